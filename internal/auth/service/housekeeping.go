package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/techpost/internal/auth/store"
)

// HousekeepingService periodically drops expired revocation records from
// backends that have no native TTL (sqlite, memory). Expired records are
// already invisible to readers; this only bounds storage growth.
type HousekeepingService struct {
	Sweeper  store.Sweeper
	Logger   *slog.Logger
	Interval time.Duration
	Timeout  time.Duration
	Metrics  *Metrics

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(sweeper store.Sweeper, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Sweeper:  sweeper,
		Logger:   logger,
		Interval: interval,
		Timeout:  30 * time.Second,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until any in-progress sweep has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.Sweep()

	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-s.stopCh:
			return
		}
	}
}

// Sweep runs one cleanup pass and returns the number of records removed.
func (s *HousekeepingService) Sweep() int {
	ctx, cancel := StoreContext(context.Background(), s.Timeout)
	defer cancel()

	n, err := s.Sweeper.DeleteExpired(ctx)
	if err != nil {
		s.Logger.Error("failed to delete expired refresh tokens", "error", err)
		return 0
	}

	s.Metrics.swept(n)
	s.Logger.Debug("housekeeping cleanup completed", "deleted", n)
	return n
}
