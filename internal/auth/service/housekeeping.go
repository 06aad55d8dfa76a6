package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/metrics"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/store"
)

// HousekeepingService periodically removes OAuth2 states that were never
// completed, so abandoned logins do not accumulate.
type HousekeepingService struct {
	States   store.OAuth2States
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Interval time.Duration
	StateTTL time.Duration

	Now func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(states store.OAuth2States, logger *slog.Logger, interval, stateTTL time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		States:   states,
		Logger:   logger,
		Interval: interval,
		StateTTL: stateTTL,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until any in-progress cleanup has finished.
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
	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup deletes states older than StateTTL and returns how many went.
func (s *HousekeepingService) Cleanup(ctx context.Context) int64 {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}

	n, err := s.States.DeleteExpiredStates(ctx, now.Add(-s.StateTTL))
	if err != nil {
		s.Logger.Error("failed to delete expired oauth2 states", "error", err)
		return 0
	}

	s.Metrics.StatesPurged(n)
	s.Logger.Info("housekeeping cleanup completed", "states_deleted", n)
	return n
}
