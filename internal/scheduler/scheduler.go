package scheduler

import (
	"context"
	"sync"
	"time"

	"magnum_stars/internal/logger"
	"magnum_stars/internal/service"
)

// runTimeout bounds one accrual pass so a stuck storage call cannot pin the
// scheduler forever.
const runTimeout = 5 * time.Minute

// Scheduler drives the miner accrual job on a fixed interval. The job itself
// is single-flight; the scheduler just ticks.
type Scheduler struct {
	miner    *service.MinerService
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func New(miner *service.MinerService, interval time.Duration) *Scheduler {
	return &Scheduler{
		miner:    miner,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start launches the tick loop. The first pass runs one interval after
// start, not immediately.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		logger.Info("miner accrual scheduler started", "interval", s.interval.String())
		for {
			select {
			case <-s.stopCh:
				logger.Info("miner accrual scheduler stopped")
				return
			case <-ticker.C:
				s.runOnce()
			}
		}
	}()
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	if _, err := s.miner.ProcessRewards(ctx); err != nil {
		logger.Error("miner accrual pass failed", "error", err)
	}
}

// Stop halts the loop and waits for an in-flight pass to finish.
func (s *Scheduler) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}
