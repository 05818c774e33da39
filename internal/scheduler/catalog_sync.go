// Package scheduler runs the periodic catalog sync on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/mrlokans/audioshelf/internal/library"
)

// CatalogSyncScheduler manages periodic pulls of the remote catalog.
type CatalogSyncScheduler struct {
	service  *library.Service
	schedule string

	cron       *cron.Cron
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewCatalogSyncScheduler creates a scheduler that syncs on the given cron
// schedule (standard five-field format).
func NewCatalogSyncScheduler(service *library.Service, schedule string) *CatalogSyncScheduler {
	return &CatalogSyncScheduler{
		service:  service,
		schedule: schedule,
		cron:     cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler.
func (s *CatalogSyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	_, err := s.cron.AddFunc(s.schedule, func() {
		s.runSync(cancelCtx)
	})
	if err != nil {
		s.cancelFunc()
		return fmt.Errorf("failed to schedule catalog sync: %w", err)
	}

	s.cron.Start()
	s.isRunning = true

	log.Printf("Catalog sync scheduler: started with schedule '%s'", s.schedule)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler, waiting for a running sync to finish.
func (s *CatalogSyncScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	if s.cancelFunc != nil {
		s.cancelFunc()
		s.cancelFunc = nil
	}

	log.Printf("Catalog sync scheduler: stopped")
}

// RunNow triggers an immediate sync without waiting for the schedule.
func (s *CatalogSyncScheduler) RunNow(ctx context.Context) error {
	return s.service.Sync(ctx)
}

// IsRunning returns whether the scheduler is active.
func (s *CatalogSyncScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

func (s *CatalogSyncScheduler) runSync(ctx context.Context) {
	log.Printf("Catalog sync: starting scheduled run")
	if err := s.service.Sync(ctx); err != nil {
		log.Printf("Catalog sync failed: %v", err)
		return
	}
}
