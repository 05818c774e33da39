// Package playback keeps local and remote playback progress converging while
// a file plays. A session saves the observed position to the local store on
// every tick and pushes it to the remote service every Nth tick; on start it
// resumes from the maximum of the two last-known positions, so a lost push
// or a reinstalled local store can never regress the resumable position.
package playback

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"
)

const (
	// DefaultLocalSaveInterval is how often the position is checkpointed
	// to the local store while playing.
	DefaultLocalSaveInterval = 5 * time.Second

	// DefaultRemotePushEvery is the number of local ticks between remote
	// pushes. Remote writes are batched this way to bound network chatter;
	// the remote store only needs eventual convergence.
	DefaultRemotePushEvery = 10
)

// Config carries the reconciliation cadences and the server-side user id.
type Config struct {
	UserID            uint
	LocalSaveInterval time.Duration
	RemotePushEvery   int
}

func (c Config) withDefaults() Config {
	if c.LocalSaveInterval <= 0 {
		c.LocalSaveInterval = DefaultLocalSaveInterval
	}
	if c.RemotePushEvery <= 0 {
		c.RemotePushEvery = DefaultRemotePushEvery
	}
	return c
}

// Resolver computes resume positions by merging local and remote progress.
type Resolver struct {
	store  ProgressStore
	remote RemoteProgress
	userID uint
}

// NewResolver creates a resume-position resolver.
func NewResolver(store ProgressStore, remote RemoteProgress, userID uint) *Resolver {
	return &Resolver{store: store, remote: remote, userID: userID}
}

// Resume returns max(local, remote) for a (book, file) pair. A remote
// failure counts as 0 so playback start is never blocked on the network; a
// local store failure is surfaced.
func (r *Resolver) Resume(ctx context.Context, bookID, fileID uint) (int64, error) {
	local, err := r.store.Get(bookID, fileID)
	if err != nil {
		return 0, fmt.Errorf("read local progress: %w", err)
	}

	remote, err := r.remote.GetProgress(ctx, r.userID, bookID, fileID)
	if err != nil {
		log.Printf("Remote progress unavailable for book %d file %d, resuming from local: %v", bookID, fileID, err)
		remote = 0
	}

	if remote > local {
		return remote, nil
	}
	return local, nil
}

// Session reconciles progress for one actively playing file. Sessions are
// bound to a playback lifetime: started when the file starts, closed when
// the file is switched or playback ends. The periodic flush runs in a single
// goroutine, so a slow flush can never overlap the next one; ticks that fire
// while a flush is still running are simply dropped by the ticker.
type Session struct {
	cfg    Config
	player Player
	store  ProgressStore
	remote RemoteProgress

	bookID uint
	fileID uint

	position atomic.Int64
	ticks    int

	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// NewSession creates a reconciler session for one (book, file) pair.
func NewSession(player Player, store ProgressStore, remote RemoteProgress, cfg Config, bookID, fileID uint) *Session {
	return &Session{
		cfg:    cfg.withDefaults(),
		player: player,
		store:  store,
		remote: remote,
		bookID: bookID,
		fileID: fileID,
	}
}

// Start merges local and remote progress, seeks the player to the resume
// position and starts the periodic flush loop. It returns the position
// playback resumes from.
func (s *Session) Start(ctx context.Context) (int64, error) {
	if s.started {
		return 0, fmt.Errorf("session for book %d file %d already started", s.bookID, s.fileID)
	}

	resolver := NewResolver(s.store, s.remote, s.cfg.UserID)
	resume, err := resolver.Resume(ctx, s.bookID, s.fileID)
	if err != nil {
		return 0, err
	}

	s.position.Store(resume)
	s.player.OnPositionChanged(func(positionMs int64) {
		s.position.Store(positionMs)
	})

	if resume > 0 {
		if err := s.player.Seek(resume); err != nil {
			return 0, fmt.Errorf("seek to resume position: %w", err)
		}
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.started = true
	go s.run(loopCtx)

	return resume, nil
}

// Pause pauses the player and synchronously flushes the current position to
// both stores, so a follow-up resume merge reads a fresh value.
func (s *Session) Pause(ctx context.Context) error {
	if err := s.player.Pause(); err != nil {
		return fmt.Errorf("pause player: %w", err)
	}
	return s.Flush(ctx)
}

// Flush persists the current position locally and pushes it to the remote
// service. The local write failing is fatal for the flush; a remote failure
// is returned too, but the local checkpoint has already landed by then.
func (s *Session) Flush(ctx context.Context) error {
	position := s.position.Load()
	if err := s.store.Set(s.bookID, s.fileID, position); err != nil {
		return fmt.Errorf("save local progress: %w", err)
	}
	if err := s.remote.UpdateProgress(ctx, s.cfg.UserID, s.bookID, s.fileID, position); err != nil {
		return fmt.Errorf("push remote progress: %w", err)
	}
	return nil
}

// Close stops the periodic loop and performs a final synchronous flush.
// Safe to call once per started session; must be called before starting a
// session for another file.
func (s *Session) Close(ctx context.Context) error {
	if !s.started {
		return nil
	}
	s.cancel()
	<-s.done
	s.started = false
	return s.Flush(ctx)
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.cfg.LocalSaveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick checkpoints the current position locally and, every Nth tick, pushes
// it to the remote service. A failed remote push is not retried here: the
// next scheduled push carries a newer, still-correct absolute position.
func (s *Session) tick(ctx context.Context) {
	if !s.player.Playing() {
		return
	}

	position := s.position.Load()
	if err := s.store.Set(s.bookID, s.fileID, position); err != nil {
		log.Printf("Local progress save failed for book %d file %d: %v", s.bookID, s.fileID, err)
		return
	}

	s.ticks++
	if s.ticks%s.cfg.RemotePushEvery == 0 {
		if err := s.remote.UpdateProgress(ctx, s.cfg.UserID, s.bookID, s.fileID, position); err != nil {
			log.Printf("Remote progress push failed for book %d file %d, retrying at next interval: %v", s.bookID, s.fileID, err)
		}
	}
}
