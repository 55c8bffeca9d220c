package ws

import (
	"encoding/json"
	"sync"

	"magnum_stars/internal/domain"
	"magnum_stars/internal/logger"
)

// RatesPayload is the message pushed to every connected mini-app client
// after an exchange commits.
type RatesPayload struct {
	Type          string  `json:"type"`
	MagnumToStars float64 `json:"magnumToStars"`
	StarsToMagnum float64 `json:"starsToMagnum"`
	ReserveMagnum float64 `json:"reserveMagnumCoins"`
	ReserveStars  float64 `json:"reserveStars"`
}

// Hub fans a rate update out to all subscribed clients. Slow clients are
// dropped rather than allowed to block the broadcast.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]struct{})}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.Send)
	}
	h.mu.Unlock()
}

// PublishRates implements the exchange engine's publisher hook.
func (h *Hub) PublishRates(res domain.Reserve) {
	p := RatesPayload{Type: "rates"}
	if res.MagnumCoins > 0 {
		p.MagnumToStars = res.Stars / res.MagnumCoins
	}
	if res.Stars > 0 {
		p.StarsToMagnum = res.MagnumCoins / res.Stars
	}
	p.ReserveMagnum = res.MagnumCoins
	p.ReserveStars = res.Stars

	raw, err := json.Marshal(p)
	if err != nil {
		return
	}

	h.mu.RLock()
	var stale []*Client
	for c := range h.clients {
		select {
		case c.Send <- raw:
		default:
			stale = append(stale, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range stale {
		logger.Debug("dropping slow rates subscriber")
		h.unregister(c)
	}
}
