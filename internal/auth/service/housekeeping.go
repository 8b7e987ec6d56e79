package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/kubarr/internal/auth/metrics"
	"github.com/aussiebroadwan/kubarr/internal/auth/store"
)

// DefaultRetiredKeyRetention is how long retired signing key rows are kept.
const DefaultRetiredKeyRetention = 30 * 24 * time.Hour

// HousekeepingService periodically deletes expired rows. Expiry is already
// enforced on read, so this only bounds table growth.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Metrics  *metrics.Metrics // optional
	Interval time.Duration
	Now      func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service. If interval is 0 or
// negative, it defaults to 1 hour.
func NewHousekeepingService(st store.Store, logger *slog.Logger, m *metrics.Metrics, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}

	return &HousekeepingService{
		Store:    st,
		Logger:   logger,
		Metrics:  m,
		Interval: interval,
		Now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs the background worker. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until an in-progress cleanup finishes.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

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

// Cleanup runs one pass. Each table is independent; a failure in one does
// not stop the others. It returns the rows deleted per table.
func (s *HousekeepingService) Cleanup(ctx context.Context) map[string]int64 {
	now := s.Now()

	tasks := []struct {
		table string
		fn    func() (int64, error)
	}{
		{"two_factor_challenges", func() (int64, error) { return s.Store.Challenges().DeleteExpiredChallenges(ctx, now) }},
		{"authorization_codes", func() (int64, error) { return s.Store.AuthorizationCodes().DeleteExpiredAuthorizationCodes(ctx, now) }},
		{"sessions", func() (int64, error) { return s.Store.Sessions().DeleteExpiredSessions(ctx, now) }},
		{"tokens", func() (int64, error) { return s.Store.Tokens().DeleteExpiredTokens(ctx, now) }},
		{"signing_keys", func() (int64, error) {
			return s.Store.SigningKeys().DeleteRetiredSigningKeys(ctx, now.Add(-DefaultRetiredKeyRetention))
		}},
	}

	deleted := make(map[string]int64, len(tasks))
	for _, task := range tasks {
		n, err := task.fn()
		if err != nil {
			s.Logger.Error("housekeeping delete failed", "table", task.table, "error", err)
			continue
		}
		deleted[task.table] = n
		if s.Metrics != nil && n > 0 {
			s.Metrics.HousekeepingRm.WithLabelValues(task.table).Add(float64(n))
		}
	}

	s.Logger.Debug("housekeeping cleanup completed", "deleted", deleted)
	return deleted
}
