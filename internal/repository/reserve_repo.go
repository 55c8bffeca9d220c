package repository

import (
	"context"
	"errors"

	"magnum_stars/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrReserveNotFound means the singleton reserve row is missing; callers
// treat this as a non-fatal "exchange temporarily unavailable".
var ErrReserveNotFound = errors.New("reserve not found")

// ReserveRepository reads the singleton liquidity pool row. Mutation happens
// inside the exchange transaction (see ExchangeService), never here.
type ReserveRepository struct {
	db *pgxpool.Pool
}

func NewReserveRepository(db *pgxpool.Pool) *ReserveRepository {
	return &ReserveRepository{db: db}
}

func (r *ReserveRepository) Get(ctx context.Context) (*domain.Reserve, error) {
	row := r.db.QueryRow(ctx,
		`SELECT magnum_coins, stars, total_exchanges, total_volume, last_updated
		 FROM reserve WHERE id = 1`)

	var res domain.Reserve
	if err := row.Scan(&res.MagnumCoins, &res.Stars, &res.TotalExchanges, &res.TotalVolume, &res.LastUpdated); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReserveNotFound
		}
		return nil, err
	}
	return &res, nil
}
