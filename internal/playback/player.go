package playback

import "context"

// Player is the black-box playback capability the reconciler runs against.
// The audio engine itself lives in the embedding application; the engine
// only needs position, transport control and a position-change notification.
type Player interface {
	Play() error
	Pause() error
	Seek(positionMs int64) error
	Position() int64
	Duration() int64
	Playing() bool
	// OnPositionChanged registers a callback invoked whenever the playback
	// position advances. Only one callback is registered per session.
	OnPositionChanged(func(positionMs int64))
}

// ProgressStore is the slice of the local progress ledger a session needs.
type ProgressStore interface {
	Get(bookID, fileID uint) (int64, error)
	Set(bookID, fileID uint, progressMs int64) error
}

// RemoteProgress is the slice of the remote API a session needs.
type RemoteProgress interface {
	GetProgress(ctx context.Context, userID, bookID, fileID uint) (int64, error)
	UpdateProgress(ctx context.Context, userID, bookID, fileID uint, progressMs int64) error
}
