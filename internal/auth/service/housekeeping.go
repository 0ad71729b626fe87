package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/eduflowhub/eduflow/internal/auth/store"
)

// Sweeper drops expired in-process state, e.g. the in-memory lockout counter.
type Sweeper interface {
	Sweep() int
}

// HousekeepingService periodically clears expired verification codes and
// sweeps in-memory counters so neither grows without bound.
type HousekeepingService struct {
	Store    store.Store
	Sweepers []Sweeper
	Logger   *slog.Logger
	Interval time.Duration
	Now      func() time.Time

	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// NewHousekeepingService runs a pass every interval, 15 minutes when
// interval is not positive.
func NewHousekeepingService(store store.Store, logger *slog.Logger, interval time.Duration, sweepers ...Sweeper) *HousekeepingService {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &HousekeepingService{
		Store:    store,
		Sweepers: sweepers,
		Logger:   logger,
		Interval: interval,
		Now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start runs a pass immediately and then on every tick until Stop.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop cancels an in-progress pass and waits for the worker to exit. It is
// safe to call more than once.
func (s *HousekeepingService) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		<-s.done
		s.Logger.Info("housekeeping service stopped")
	})
}

func (s *HousekeepingService) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		s.pass()
		select {
		case <-ticker.C:
		case <-s.ctx.Done():
			return
		}
	}
}

// pass bounds one Cleanup so a stuck database cannot overlap the next tick.
func (s *HousekeepingService) pass() {
	ctx, cancel := context.WithTimeout(s.ctx, s.Interval)
	defer cancel()
	s.Cleanup(ctx)
}

// Cleanup runs one pass. Each step is independent; a failing one does not
// stop the others.
func (s *HousekeepingService) Cleanup(ctx context.Context) {
	s.Logger.Debug("starting housekeeping cleanup")

	cleared, err := s.Store.Users().ClearExpiredVerificationCodes(ctx, s.Now().UTC())
	if err != nil {
		s.Logger.Error("failed to clear expired verification codes", "error", err)
	}

	swept := 0
	for _, sw := range s.Sweepers {
		swept += sw.Sweep()
	}

	s.Logger.Info("housekeeping cleanup completed",
		"verification_codes_cleared", cleared,
		"counters_swept", swept,
	)
}
