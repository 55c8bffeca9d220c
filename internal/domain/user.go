package domain

import "time"

// Miner is the per-user passive income generator. LastReward is the accrual
// checkpoint in unix seconds; only whole elapsed hours since it are paid.
type Miner struct {
	Active      bool    `json:"active"`
	TotalEarned float64 `json:"totalEarned"`
	LastReward  int64   `json:"lastReward"`
	Level       int     `json:"level"`
	Efficiency  float64 `json:"efficiency"`
}

type User struct {
	ID        int64     `json:"id"`
	TgID      int64     `json:"tg_id"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name"`
	CreatedAt time.Time `json:"created_at"`

	// Balances are mutated only through engine operations and never go
	// negative; the guards live in the UPDATE statements, not here.
	MagnumCoins float64 `json:"magnumCoins"`
	Stars       float64 `json:"stars"`

	TotalEarnedMagnumCoins float64 `json:"totalEarnedMagnumCoins"`
	TotalEarnedStars       float64 `json:"totalEarnedStars"`
	TotalExchanges         int64   `json:"totalExchanges"`

	Miner Miner `json:"miner"`

	LastSeen int64 `json:"lastSeen"`
}
