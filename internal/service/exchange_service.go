package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"magnum_stars/internal/cache"
	"magnum_stars/internal/domain"
	"magnum_stars/internal/logger"
	"magnum_stars/internal/metrics"
	"magnum_stars/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrReserveUnavailable  = errors.New("exchange reserve unavailable")
	ErrMinimumAmount       = errors.New("amount below minimum")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrInsufficientReserve = errors.New("insufficient reserve liquidity")
	ErrUnsupportedPair     = errors.New("unsupported currency pair")
)

// RatePublisher receives a reserve snapshot after every committed exchange.
// Delivery is best-effort.
type RatePublisher interface {
	PublishRates(res domain.Reserve)
}

// ExchangeService converts between Magnum Coins and Stars against the shared
// liquidity reserve. The paired user/reserve mutation runs in one database
// transaction with both rows locked, so concurrent exchanges serialize on the
// reserve and can never jointly overdraw it.
type ExchangeService struct {
	db          *pgxpool.Pool
	historyRepo *repository.ExchangeHistoryRepository
	reserveRepo *repository.ReserveRepository
	users       *cache.UserCache

	commission float64
	minAmount  float64
	publisher  RatePublisher
}

func NewExchangeService(db *pgxpool.Pool, users *cache.UserCache, commission, minAmount float64) *ExchangeService {
	return &ExchangeService{
		db:          db,
		historyRepo: repository.NewExchangeHistoryRepository(db),
		reserveRepo: repository.NewReserveRepository(db),
		users:       users,
		commission:  commission,
		minAmount:   minAmount,
	}
}

// SetRatePublisher attaches a live-rate sink (the websocket hub).
func (s *ExchangeService) SetRatePublisher(p RatePublisher) {
	s.publisher = p
}

// Rates is the current reserve-derived exchange rate pair.
type Rates struct {
	MagnumToStars float64        `json:"magnumToStars"`
	StarsToMagnum float64        `json:"starsToMagnum"`
	Reserve       domain.Reserve `json:"reserve"`
}

// GetRates derives both rates from the reserve ratio.
func (s *ExchangeService) GetRates(ctx context.Context) (*Rates, error) {
	res, err := s.reserveRepo.Get(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrReserveNotFound) {
			return nil, ErrReserveUnavailable
		}
		return nil, err
	}
	return ratesFromReserve(res), nil
}

func ratesFromReserve(res *domain.Reserve) *Rates {
	r := &Rates{Reserve: *res}
	if res.MagnumCoins > 0 {
		r.MagnumToStars = res.Stars / res.MagnumCoins
	}
	if res.Stars > 0 {
		r.StarsToMagnum = res.MagnumCoins / res.Stars
	}
	return r
}

// Quote is a non-mutating preview of an exchange.
type Quote struct {
	Direction  string  `json:"direction"`
	Amount     float64 `json:"amount"`
	Commission float64 `json:"commission"`
	NetAmount  float64 `json:"netAmount"`
	Rate       float64 `json:"rate"`
	Received   float64 `json:"received"`
}

// directionForPair maps currency names to an exchange direction.
func directionForPair(from, to string) (string, error) {
	switch {
	case from == "magnumCoins" && to == "stars":
		return domain.MagnumToStars, nil
	case from == "stars" && to == "magnumCoins":
		return domain.StarsToMagnum, nil
	default:
		return "", ErrUnsupportedPair
	}
}

// computeQuote mirrors the commission and rate math of a real exchange
// without touching state. Kept pure for testability.
func computeQuote(direction string, amount, commissionRate float64, res *domain.Reserve) (*Quote, error) {
	q := &Quote{Direction: direction, Amount: amount}
	q.Commission = amount * commissionRate
	q.NetAmount = amount - q.Commission

	switch direction {
	case domain.MagnumToStars:
		if res.MagnumCoins <= 0 {
			return nil, ErrInsufficientReserve
		}
		q.Rate = res.Stars / res.MagnumCoins
	case domain.StarsToMagnum:
		if res.Stars <= 0 {
			return nil, ErrInsufficientReserve
		}
		q.Rate = res.MagnumCoins / res.Stars
	default:
		return nil, ErrUnsupportedPair
	}

	q.Received = q.NetAmount * q.Rate
	return q, nil
}

// CalculateExchange previews steps 4-6 of an exchange for quote display.
func (s *ExchangeService) CalculateExchange(ctx context.Context, from, to string, amount float64) (*Quote, error) {
	direction, err := directionForPair(from, to)
	if err != nil {
		return nil, err
	}

	res, err := s.reserveRepo.Get(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrReserveNotFound) {
			return nil, ErrReserveUnavailable
		}
		return nil, err
	}

	return computeQuote(direction, amount, s.commission, res)
}

// ExchangeResult is the outcome of a completed exchange.
type ExchangeResult struct {
	Direction  string  `json:"direction"`
	Amount     float64 `json:"amount"`
	Received   float64 `json:"received"`
	Commission float64 `json:"commission"`
	Rate       float64 `json:"rate"`
	Message    string  `json:"message"`

	MagnumCoins float64 `json:"magnumCoins"`
	Stars       float64 `json:"stars"`
}

// Exchange converts amount of the source currency for the user. All balance
// checks and both row mutations happen under row locks in a single
// transaction; the rate is computed from the locked reserve state. The
// history append and cache invalidation run after commit and never roll the
// exchange back.
func (s *ExchangeService) Exchange(ctx context.Context, userID int64, direction string, amount float64) (*ExchangeResult, error) {
	if direction != domain.MagnumToStars && direction != domain.StarsToMagnum {
		return nil, ErrUnsupportedPair
	}
	if amount < s.minAmount {
		return nil, ErrMinimumAmount
	}

	now := time.Now().Unix()

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Lock the user row first, then the reserve. Every writer that touches
	// both uses this order.
	var magnumCoins, stars float64
	err = tx.QueryRow(ctx,
		`SELECT magnum_coins, stars FROM users WHERE id = $1 FOR UPDATE`,
		userID,
	).Scan(&magnumCoins, &stars)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrUserNotFound
		}
		return nil, err
	}

	sourceBalance := magnumCoins
	if direction == domain.StarsToMagnum {
		sourceBalance = stars
	}
	if sourceBalance < amount {
		return nil, ErrInsufficientFunds
	}

	var res domain.Reserve
	err = tx.QueryRow(ctx,
		`SELECT magnum_coins, stars, total_exchanges, total_volume, last_updated
		 FROM reserve WHERE id = 1 FOR UPDATE`,
	).Scan(&res.MagnumCoins, &res.Stars, &res.TotalExchanges, &res.TotalVolume, &res.LastUpdated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReserveUnavailable
		}
		return nil, err
	}

	q, err := computeQuote(direction, amount, s.commission, &res)
	if err != nil {
		return nil, err
	}

	// The reserve pays out q.Received of the destination currency; it must
	// hold at least that much or the whole exchange is rejected.
	var payingPool float64
	if direction == domain.MagnumToStars {
		payingPool = res.Stars
	} else {
		payingPool = res.MagnumCoins
	}
	if payingPool < q.Received {
		return nil, ErrInsufficientReserve
	}

	var userQuery string
	if direction == domain.MagnumToStars {
		userQuery = `UPDATE users
			SET magnum_coins = magnum_coins - $1,
			    stars = stars + $2,
			    total_earned_stars = total_earned_stars + $2,
			    total_exchanges = total_exchanges + 1,
			    last_seen = $3
			WHERE id = $4
			RETURNING magnum_coins, stars`
	} else {
		userQuery = `UPDATE users
			SET stars = stars - $1,
			    magnum_coins = magnum_coins + $2,
			    total_earned_magnum_coins = total_earned_magnum_coins + $2,
			    total_exchanges = total_exchanges + 1,
			    last_seen = $3
			WHERE id = $4
			RETURNING magnum_coins, stars`
	}
	var newMagnum, newStars float64
	if err := tx.QueryRow(ctx, userQuery, amount, q.Received, now, userID).Scan(&newMagnum, &newStars); err != nil {
		return nil, err
	}

	// The reserve takes the full pre-commission amount in and pays the
	// post-commission converted amount out; the commission itself is
	// credited nowhere.
	var reserveQuery string
	if direction == domain.MagnumToStars {
		reserveQuery = `UPDATE reserve
			SET magnum_coins = magnum_coins + $1,
			    stars = stars - $2,
			    total_exchanges = total_exchanges + 1,
			    total_volume = total_volume + $1,
			    last_updated = NOW()
			WHERE id = 1 AND stars - $2 >= 0
			RETURNING magnum_coins, stars`
	} else {
		reserveQuery = `UPDATE reserve
			SET stars = stars + $1,
			    magnum_coins = magnum_coins - $2,
			    total_exchanges = total_exchanges + 1,
			    total_volume = total_volume + $1,
			    last_updated = NOW()
			WHERE id = 1 AND magnum_coins - $2 >= 0
			RETURNING magnum_coins, stars`
	}
	var resMagnum, resStars float64
	if err := tx.QueryRow(ctx, reserveQuery, amount, q.Received).Scan(&resMagnum, &resStars); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// guard tripped despite the locked pre-check
			return nil, ErrInsufficientReserve
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.users.Delete(ctx, userID)

	metrics.ExchangesTotal.WithLabelValues(direction).Inc()
	metrics.ExchangeVolume.Add(amount)

	rec := &domain.ExchangeRecord{
		UserID:     userID,
		Type:       direction,
		Amount:     amount,
		Received:   q.Received,
		Commission: q.Commission,
	}
	if err := s.historyRepo.Create(ctx, rec); err != nil {
		metrics.LedgerAppendFailures.WithLabelValues("exchange_history").Inc()
		logger.Error("exchange history append failed", "user_id", userID, "error", err)
	}

	if s.publisher != nil {
		res.MagnumCoins = resMagnum
		res.Stars = resStars
		s.publisher.PublishRates(res)
	}

	from, to := "Magnum Coins", "Stars"
	if direction == domain.StarsToMagnum {
		from, to = to, from
	}

	return &ExchangeResult{
		Direction:  direction,
		Amount:     amount,
		Received:   q.Received,
		Commission: q.Commission,
		Rate:       q.Rate,
		Message: fmt.Sprintf("Exchanged %.4f %s for %.4f %s (rate %.4f, commission %.4f)",
			amount, from, q.Received, to, q.Rate, q.Commission),
		MagnumCoins: newMagnum,
		Stars:       newStars,
	}, nil
}

// History returns the user's recent exchanges, empty when none.
func (s *ExchangeService) History(ctx context.Context, userID int64, limit int) ([]*domain.ExchangeRecord, error) {
	return s.historyRepo.GetByUserID(ctx, userID, limit)
}

// Stats returns ledger-wide exchange aggregates.
func (s *ExchangeService) Stats(ctx context.Context) (*repository.ExchangeStats, error) {
	return s.historyRepo.Stats(ctx)
}

// TopExchangers returns the exchange volume leaderboard.
func (s *ExchangeService) TopExchangers(ctx context.Context, limit int) ([]repository.TopExchangerEntry, error) {
	return s.historyRepo.GetTopExchangers(ctx, limit)
}

// ReserveInfo returns the reserve state together with derived rates.
func (s *ExchangeService) ReserveInfo(ctx context.Context) (*Rates, error) {
	return s.GetRates(ctx)
}
