package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"magnum_stars/internal/cache"
	"magnum_stars/internal/domain"
	"magnum_stars/internal/logger"
	"magnum_stars/internal/metrics"
	"magnum_stars/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

var (
	ErrMinerAlreadyActive = errors.New("miner already active")
	ErrMinerNotActive     = errors.New("miner not active")
)

// accrualWorkers bounds the fan-out of one accrual pass.
const accrualWorkers = 8

// Notifier delivers best-effort payout notifications. Failures are logged
// and counted, never propagated.
type Notifier interface {
	NotifyMinerReward(ctx context.Context, tgID int64, amount float64, hours int64) error
}

// MinerService owns the per-user miner lifecycle and the periodic accrual
// job. State transitions are guarded single-statement updates; the accrual
// job is single-flight in-process and compare-and-swaps the per-user
// checkpoint, so two overlapping passes can never pay the same hours twice.
type MinerService struct {
	db         *pgxpool.Pool
	userRepo   *repository.UserRepository
	rewardRepo *repository.MinerRewardRepository
	users      *cache.UserCache
	notifier   Notifier

	rewardPerHour float64
	upgradeCost   float64

	running atomic.Bool
}

func NewMinerService(db *pgxpool.Pool, users *cache.UserCache, rewardPerHour, upgradeCost float64) *MinerService {
	return &MinerService{
		db:            db,
		userRepo:      repository.NewUserRepository(db),
		rewardRepo:    repository.NewMinerRewardRepository(db),
		users:         users,
		rewardPerHour: rewardPerHour,
		upgradeCost:   upgradeCost,
	}
}

// SetNotifier attaches the payout notification sink.
func (s *MinerService) SetNotifier(n Notifier) {
	s.notifier = n
}

// Start activates the miner and resets the accrual checkpoint to now.
func (s *MinerService) Start(ctx context.Context, userID int64) (*domain.User, error) {
	err := s.userRepo.StartMiner(ctx, userID, time.Now().Unix())
	if err != nil {
		if errors.Is(err, repository.ErrMinerAlreadyOn) {
			return nil, ErrMinerAlreadyActive
		}
		return nil, err
	}

	s.users.Delete(ctx, userID)
	return s.userRepo.GetByID(ctx, userID)
}

// Stop deactivates the miner. Accrual progress since the last whole-hour
// boundary is forfeited.
func (s *MinerService) Stop(ctx context.Context, userID int64) (*domain.User, error) {
	err := s.userRepo.StopMiner(ctx, userID, time.Now().Unix())
	if err != nil {
		if errors.Is(err, repository.ErrMinerAlreadyOff) {
			return nil, ErrMinerNotActive
		}
		return nil, err
	}

	s.users.Delete(ctx, userID)
	return s.userRepo.GetByID(ctx, userID)
}

// Upgrade buys one miner level for a fixed stars cost.
func (s *MinerService) Upgrade(ctx context.Context, userID int64) (*domain.User, error) {
	u, err := s.userRepo.UpgradeMiner(ctx, userID, s.upgradeCost, time.Now().Unix())
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientFunds) {
			return nil, ErrInsufficientFunds
		}
		return nil, err
	}

	s.users.Delete(ctx, userID)
	return u, nil
}

// MinerStats is the per-user miner projection.
type MinerStats struct {
	Active        bool    `json:"active"`
	Level         int     `json:"level"`
	Efficiency    float64 `json:"efficiency"`
	TotalEarned   float64 `json:"totalEarned"`
	LastReward    int64   `json:"lastReward"`
	PendingHours  int64   `json:"pendingHours"`
	PendingReward float64 `json:"pendingReward"`
	UpgradeCost   float64 `json:"upgradeCost"`
}

// Stats returns the miner projection for display. The pending preview uses
// the base hourly rate only; the batch job additionally applies efficiency.
func (s *MinerService) Stats(ctx context.Context, userID int64) (*MinerStats, error) {
	u, ok := s.users.Get(ctx, userID)
	if !ok {
		var err error
		u, err = s.userRepo.GetByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		s.users.Set(ctx, u)
	}

	st := &MinerStats{
		Active:      u.Miner.Active,
		Level:       u.Miner.Level,
		Efficiency:  u.Miner.Efficiency,
		TotalEarned: u.Miner.TotalEarned,
		LastReward:  u.Miner.LastReward,
		UpgradeCost: s.upgradeCost,
	}
	if u.Miner.Active && u.Miner.LastReward > 0 {
		st.PendingHours = wholeHoursSince(u.Miner.LastReward, time.Now().Unix())
		st.PendingReward = float64(st.PendingHours) * s.rewardPerHour
	}
	return st, nil
}

// wholeHoursSince returns the count of fully elapsed hours between the
// checkpoint and now; fractional remainder does not count.
func wholeHoursSince(lastReward, now int64) int64 {
	if now <= lastReward {
		return 0
	}
	return (now - lastReward) / 3600
}

// accrualReward computes one payout: whole hours at the base rate scaled by
// efficiency, which defaults to 1.0 when unset.
func accrualReward(hours int64, rewardPerHour, efficiency float64) float64 {
	if efficiency <= 0 {
		efficiency = 1.0
	}
	return float64(hours) * rewardPerHour * efficiency
}

// AccrualSummary reports one ProcessRewards pass.
type AccrualSummary struct {
	AlreadyRunning bool    `json:"alreadyRunning"`
	ActiveMiners   int     `json:"activeMiners"`
	Paid           int     `json:"paid"`
	TotalStars     float64 `json:"totalStars"`
	Elapsed        string  `json:"elapsed"`
}

// ProcessRewards pays every active miner its whole elapsed hours since the
// last checkpoint and advances the checkpoint to now. Only one pass runs at
// a time; an invocation while one is in flight is skipped, not queued. Per
// user the credit is a checkpoint compare-and-swap, so even a pass racing an
// external writer applies the reward at most once.
func (s *MinerService) ProcessRewards(ctx context.Context) (*AccrualSummary, error) {
	if !s.running.CompareAndSwap(false, true) {
		metrics.AccrualRunsSkipped.Inc()
		logger.Warn("miner accrual pass already in flight, skipping")
		return &AccrualSummary{AlreadyRunning: true}, nil
	}
	defer s.running.Store(false)

	started := time.Now()
	now := started.Unix()

	miners, err := s.userRepo.GetActiveMiners(ctx)
	if err != nil {
		return nil, err
	}

	var (
		mu         sync.Mutex
		paid       int
		totalStars float64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(accrualWorkers)
	for _, u := range miners {
		g.Go(func() error {
			hours := wholeHoursSince(u.Miner.LastReward, now)
			if hours == 0 {
				return nil
			}

			reward := accrualReward(hours, s.rewardPerHour, u.Miner.Efficiency)
			applied, err := s.userRepo.ApplyMinerReward(gctx, u.ID, reward, u.Miner.LastReward, now)
			if err != nil {
				return err
			}
			if !applied {
				// checkpoint moved under us, someone else paid
				return nil
			}

			s.users.Delete(gctx, u.ID)
			metrics.MinerPayoutsTotal.Inc()
			metrics.MinerStarsAccrued.Add(reward)

			rec := &domain.MinerRewardRecord{UserID: u.ID, Amount: reward, Hours: hours}
			if err := s.rewardRepo.Create(gctx, rec); err != nil {
				metrics.LedgerAppendFailures.WithLabelValues("miner_rewards").Inc()
				logger.Error("miner reward append failed", "user_id", u.ID, "error", err)
			}

			if s.notifier != nil {
				if err := s.notifier.NotifyMinerReward(gctx, u.TgID, reward, hours); err != nil {
					metrics.NotifyFailures.Inc()
					logger.Warn("miner reward notification failed", "user_id", u.ID, "error", err)
				}
			}

			mu.Lock()
			paid++
			totalStars += reward
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := &AccrualSummary{
		ActiveMiners: len(miners),
		Paid:         paid,
		TotalStars:   totalStars,
		Elapsed:      time.Since(started).String(),
	}
	logger.Info("miner accrual pass finished",
		"active", summary.ActiveMiners, "paid", summary.Paid,
		"stars", summary.TotalStars, "elapsed", summary.Elapsed)
	return summary, nil
}

// History returns the user's recent payouts.
func (s *MinerService) History(ctx context.Context, userID int64, limit int) ([]*domain.MinerRewardRecord, error) {
	return s.rewardRepo.GetByUserID(ctx, userID, limit)
}

// TopMiners is the all-time miner earnings leaderboard.
func (s *MinerService) TopMiners(ctx context.Context, limit int) ([]repository.TopMinerEntry, error) {
	return s.userRepo.GetTopMiners(ctx, limit)
}

// Leaderboard is the current-month accrual leaderboard.
func (s *MinerService) Leaderboard(ctx context.Context, limit int) ([]repository.LeaderboardEntry, error) {
	return s.rewardRepo.Leaderboard(ctx, limit)
}

// AggregateStats returns fleet-wide miner numbers.
func (s *MinerService) AggregateStats(ctx context.Context) (*repository.MinerAggregateStats, error) {
	return s.rewardRepo.AggregateStats(ctx)
}
