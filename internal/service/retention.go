package service

import (
	"context"
	"sync"
	"time"

	"github.com/Harshitk-cp/loancouncil/internal/domain"
	"go.uber.org/zap"
)

const defaultRetentionInterval = 1 * time.Hour

// RetentionService periodically removes deliberations older than the
// configured retention window.
type RetentionService struct {
	store  domain.DeliberationStore
	logger *zap.Logger

	retention time.Duration
	interval  time.Duration
	now       func() time.Time
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

func NewRetentionService(ds domain.DeliberationStore, retention time.Duration, logger *zap.Logger) *RetentionService {
	return &RetentionService{
		store:     ds,
		logger:    logger,
		retention: retention,
		interval:  defaultRetentionInterval,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
}

func (s *RetentionService) SetInterval(d time.Duration) {
	s.interval = d
}

// Start runs the sweep on a periodic schedule in a background goroutine.
func (s *RetentionService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("deliberation retention started",
			zap.Duration("interval", s.interval),
			zap.Duration("retention", s.retention))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				s.run(ctx)
				cancel()
			case <-s.stopCh:
				s.logger.Info("deliberation retention stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the sweeper.
func (s *RetentionService) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

func (s *RetentionService) run(ctx context.Context) int64 {
	if s.retention <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.retention)
	deleted, err := s.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error("failed to delete old deliberations", zap.Error(err))
		return 0
	}
	if deleted > 0 {
		s.logger.Info("deleted deliberations past retention",
			zap.Time("cutoff", cutoff),
			zap.Int64("count", deleted))
	}
	return deleted
}
