package domain

import "time"

// Exchange directions; the same strings are persisted as the history record
// type.
const (
	MagnumToStars = "magnum_to_stars"
	StarsToMagnum = "stars_to_magnum"
)

// ExchangeRecord is one completed conversion, append-only.
type ExchangeRecord struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	Type       string    `json:"type"`
	Amount     float64   `json:"amount"`
	Received   float64   `json:"received"`
	Commission float64   `json:"commission"`
	CreatedAt  time.Time `json:"created_at"`
}

// MinerRewardRecord is one accrual payout, append-only.
type MinerRewardRecord struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Amount    float64   `json:"amount"`
	Hours     int64     `json:"hours"`
	CreatedAt time.Time `json:"created_at"`
}
