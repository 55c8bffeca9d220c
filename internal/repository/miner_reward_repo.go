package repository

import (
	"context"

	"magnum_stars/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type MinerRewardRepository struct {
	db *pgxpool.Pool
}

func NewMinerRewardRepository(db *pgxpool.Pool) *MinerRewardRepository {
	return &MinerRewardRepository{db: db}
}

// Create appends one accrual payout record.
func (r *MinerRewardRepository) Create(ctx context.Context, rec *domain.MinerRewardRecord) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO miner_rewards (user_id, amount, hours)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		rec.UserID, rec.Amount, rec.Hours,
	).Scan(&rec.ID, &rec.CreatedAt)
}

// GetByUserID returns recent payouts for a user, newest first.
func (r *MinerRewardRepository) GetByUserID(ctx context.Context, userID int64, limit int) ([]*domain.MinerRewardRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, amount, hours, created_at
		 FROM miner_rewards
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*domain.MinerRewardRecord
	for rows.Next() {
		var rec domain.MinerRewardRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Amount, &rec.Hours, &rec.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, &rec)
	}
	return res, rows.Err()
}

// MinerAggregateStats are fleet-wide miner numbers for the stats view.
type MinerAggregateStats struct {
	ActiveMiners int64   `json:"activeMiners"`
	TotalPayouts int64   `json:"totalPayouts"`
	TotalAccrued float64 `json:"totalAccrued"`
}

func (r *MinerRewardRepository) AggregateStats(ctx context.Context) (*MinerAggregateStats, error) {
	var s MinerAggregateStats
	err := r.db.QueryRow(ctx,
		`SELECT
			(SELECT COUNT(*) FROM users WHERE miner_active = TRUE),
			COUNT(*),
			COALESCE(SUM(amount), 0)
		 FROM miner_rewards`,
	).Scan(&s.ActiveMiners, &s.TotalPayouts, &s.TotalAccrued)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// LeaderboardEntry is one row of the recent-payout miner leaderboard.
type LeaderboardEntry struct {
	Rank     int     `json:"rank"`
	UserID   int64   `json:"user_id"`
	Username string  `json:"username"`
	Accrued  float64 `json:"accrued"`
	Payouts  int64   `json:"payouts"`
}

// Leaderboard ranks users by stars accrued over the current month, unlike
// GetTopMiners which is all-time.
func (r *MinerRewardRepository) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(ctx, `
		SELECT m.user_id, COALESCE(u.username, ''), SUM(m.amount), COUNT(*)
		FROM miner_rewards m
		LEFT JOIN users u ON u.id = m.user_id
		WHERE m.created_at >= date_trunc('month', CURRENT_DATE)
		GROUP BY m.user_id, u.username
		ORDER BY SUM(m.amount) DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []LeaderboardEntry
	rank := 1
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.Accrued, &e.Payouts); err != nil {
			return nil, err
		}
		e.Rank = rank
		rank++
		res = append(res, e)
	}
	return res, rows.Err()
}
