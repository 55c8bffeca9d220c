package domain

import "time"

// Reserve is the exchange's counterparty liquidity pool. A single row holds
// both currency pools; their ratio defines the floating rate. Both pools must
// stay non-negative; an exchange that would overdraw either side is rejected
// as a whole.
type Reserve struct {
	MagnumCoins    float64   `json:"magnumCoins"`
	Stars          float64   `json:"stars"`
	TotalExchanges int64     `json:"totalExchanges"`
	TotalVolume    float64   `json:"totalVolume"`
	LastUpdated    time.Time `json:"lastUpdated"`
}
