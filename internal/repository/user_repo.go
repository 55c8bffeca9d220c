package repository

import (
	"context"
	"errors"
	"time"

	"magnum_stars/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrMinerAlreadyOn    = errors.New("miner already active")
	ErrMinerAlreadyOff   = errors.New("miner not active")
)

const userColumns = `id, tg_id, COALESCE(username, ''), COALESCE(first_name, ''), created_at,
	magnum_coins, stars, total_earned_magnum_coins, total_earned_stars, total_exchanges,
	miner_active, miner_total_earned, miner_last_reward, miner_level, miner_efficiency,
	last_seen`

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.TgID, &u.Username, &u.FirstName, &u.CreatedAt,
		&u.MagnumCoins, &u.Stars, &u.TotalEarnedMagnumCoins, &u.TotalEarnedStars, &u.TotalExchanges,
		&u.Miner.Active, &u.Miner.TotalEarned, &u.Miner.LastReward, &u.Miner.Level, &u.Miner.Efficiency,
		&u.LastSeen,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *UserRepository) GetByTgID(ctx context.Context, tgID int64) (*domain.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE tg_id = $1`, tgID)
	return scanUser(row)
}

// Create inserts a user with default balances and a zeroed miner record.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	// Начальный баланс для новых пользователей
	const initialMagnumCoins = 100

	now := time.Now().Unix()
	err := r.db.QueryRow(ctx,
		`INSERT INTO users (tg_id, username, first_name, magnum_coins, last_seen)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		u.TgID, u.Username, u.FirstName, float64(initialMagnumCoins), now,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return err
	}

	u.MagnumCoins = initialMagnumCoins
	u.Miner = domain.Miner{Level: 1, Efficiency: 1.0}
	u.LastSeen = now
	return nil
}

// StartMiner flips the miner on and resets the accrual checkpoint to now so
// no retroactive credit is given for time before activation.
func (r *UserRepository) StartMiner(ctx context.Context, userID int64, now int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users
		 SET miner_active = TRUE, miner_last_reward = $1, last_seen = $1
		 WHERE id = $2 AND miner_active = FALSE`,
		now, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.minerToggleError(ctx, userID, ErrMinerAlreadyOn)
	}
	return nil
}

// StopMiner flips the miner off. Partial-hour accrual since the last whole
// hour is forfeited, not settled.
func (r *UserRepository) StopMiner(ctx context.Context, userID int64, now int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users
		 SET miner_active = FALSE, last_seen = $1
		 WHERE id = $2 AND miner_active = TRUE`,
		now, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.minerToggleError(ctx, userID, ErrMinerAlreadyOff)
	}
	return nil
}

// minerToggleError distinguishes "wrong state" from "no such user" after a
// guarded update matched nothing.
func (r *UserRepository) minerToggleError(ctx context.Context, userID int64, stateErr error) error {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrUserNotFound
	}
	return stateErr
}

// UpgradeMiner debits the upgrade cost and bumps the level in one guarded
// statement; the WHERE clause is the insufficient-funds check. SET
// expressions see pre-update values, so miner_level there is the old level
// and the efficiency lands on 1.0 + (newLevel-1)*0.1.
func (r *UserRepository) UpgradeMiner(ctx context.Context, userID int64, cost float64, now int64) (*domain.User, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE users
		 SET stars = stars - $1,
		     miner_level = miner_level + 1,
		     miner_efficiency = 1.0 + (miner_level::float8) * 0.1,
		     last_seen = $2
		 WHERE id = $3 AND stars >= $1
		 RETURNING `+userColumns,
		cost, now, userID,
	)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, r.minerToggleError(ctx, userID, ErrInsufficientFunds)
		}
		return nil, err
	}
	return u, nil
}

// GetActiveMiners returns every user whose miner is running.
func (r *UserRepository) GetActiveMiners(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users WHERE miner_active = TRUE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

// ApplyMinerReward credits an accrual payout. The miner_last_reward guard is
// a compare-and-swap: a concurrent run that already advanced the checkpoint
// makes this a no-op, so overlapping passes can never double-pay. Returns
// false when the guard did not match.
func (r *UserRepository) ApplyMinerReward(ctx context.Context, userID int64, reward float64, prevLastReward, now int64) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE users
		 SET stars = stars + $1,
		     miner_total_earned = miner_total_earned + $1,
		     total_earned_stars = total_earned_stars + $1,
		     miner_last_reward = $2
		 WHERE id = $3 AND miner_active = TRUE AND miner_last_reward = $4`,
		reward, now, userID, prevLastReward,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// TopMinerEntry is one row of the all-time miner earnings leaderboard.
type TopMinerEntry struct {
	Rank        int     `json:"rank"`
	UserID      int64   `json:"user_id"`
	Username    string  `json:"username"`
	Level       int     `json:"level"`
	TotalEarned float64 `json:"totalEarned"`
	Active      bool    `json:"active"`
}

// GetTopMiners returns users ordered by lifetime miner earnings.
func (r *UserRepository) GetTopMiners(ctx context.Context, limit int) ([]TopMinerEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, COALESCE(username, ''), miner_level, miner_total_earned, miner_active
		 FROM users
		 WHERE miner_total_earned > 0
		 ORDER BY miner_total_earned DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []TopMinerEntry
	rank := 1
	for rows.Next() {
		var e TopMinerEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.Level, &e.TotalEarned, &e.Active); err != nil {
			return nil, err
		}
		e.Rank = rank
		rank++
		res = append(res, e)
	}
	return res, rows.Err()
}
