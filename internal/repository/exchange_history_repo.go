package repository

import (
	"context"

	"magnum_stars/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type ExchangeHistoryRepository struct {
	db *pgxpool.Pool
}

func NewExchangeHistoryRepository(db *pgxpool.Pool) *ExchangeHistoryRepository {
	return &ExchangeHistoryRepository{db: db}
}

// Create appends one completed exchange. Records are never updated after
// insert.
func (r *ExchangeHistoryRepository) Create(ctx context.Context, rec *domain.ExchangeRecord) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO exchange_history (user_id, type, amount, received, commission)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		rec.UserID, rec.Type, rec.Amount, rec.Received, rec.Commission,
	).Scan(&rec.ID, &rec.CreatedAt)
}

// GetByUserID returns recent exchanges for a user, newest first.
func (r *ExchangeHistoryRepository) GetByUserID(ctx context.Context, userID int64, limit int) ([]*domain.ExchangeRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, type, amount, received, commission, created_at
		 FROM exchange_history
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*domain.ExchangeRecord
	for rows.Next() {
		var rec domain.ExchangeRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Type, &rec.Amount, &rec.Received, &rec.Commission, &rec.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, &rec)
	}
	return res, rows.Err()
}

// ExchangeStats are ledger-wide aggregates; zeroed when the ledger is empty.
type ExchangeStats struct {
	TotalExchanges  int64   `json:"totalExchanges"`
	TotalVolume     float64 `json:"totalVolume"`
	TotalCommission float64 `json:"totalCommission"`
	UniqueUsers     int64   `json:"uniqueUsers"`
}

func (r *ExchangeHistoryRepository) Stats(ctx context.Context) (*ExchangeStats, error) {
	var s ExchangeStats
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(amount), 0), COALESCE(SUM(commission), 0), COUNT(DISTINCT user_id)
		 FROM exchange_history`,
	).Scan(&s.TotalExchanges, &s.TotalVolume, &s.TotalCommission, &s.UniqueUsers)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// TopExchangerEntry is one row of the exchange volume leaderboard.
type TopExchangerEntry struct {
	Rank      int     `json:"rank"`
	UserID    int64   `json:"user_id"`
	Username  string  `json:"username"`
	Exchanges int64   `json:"exchanges"`
	Volume    float64 `json:"volume"`
}

// GetTopExchangers returns users ranked by cumulative exchanged amount.
func (r *ExchangeHistoryRepository) GetTopExchangers(ctx context.Context, limit int) ([]TopExchangerEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(ctx, `
		SELECT h.user_id, COALESCE(u.username, ''), COUNT(*), SUM(h.amount)
		FROM exchange_history h
		LEFT JOIN users u ON u.id = h.user_id
		GROUP BY h.user_id, u.username
		ORDER BY SUM(h.amount) DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []TopExchangerEntry
	rank := 1
	for rows.Next() {
		var e TopExchangerEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.Exchanges, &e.Volume); err != nil {
			return nil, err
		}
		e.Rank = rank
		rank++
		res = append(res, e)
	}
	return res, rows.Err()
}
