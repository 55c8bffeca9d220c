package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Rates returns the current reserve-derived exchange rates.
func (h *Handler) Rates(c *gin.Context) {
	rates, err := h.Exchange.GetRates(c.Request.Context())
	if err != nil {
		failFromError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "rates": rates})
}

type ExchangeRequest struct {
	Direction string  `json:"direction" binding:"required"`
	Amount    float64 `json:"amount" binding:"required"`
}

// DoExchange executes a conversion for the authenticated user.
func (h *Handler) DoExchange(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ExchangeRequest
	if err := c.BindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "bad request")
		return
	}

	result, err := h.Exchange.Exchange(c.Request.Context(), userID, req.Direction, req.Amount)
	if err != nil {
		failFromError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": result.Message,
		"result":  result,
	})
}

type QuoteRequest struct {
	From   string  `json:"from" binding:"required"`
	To     string  `json:"to" binding:"required"`
	Amount float64 `json:"amount" binding:"required"`
}

// QuoteExchange previews a conversion without mutating anything.
func (h *Handler) QuoteExchange(c *gin.Context) {
	var req QuoteRequest
	if err := c.BindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "bad request")
		return
	}

	quote, err := h.Exchange.CalculateExchange(c.Request.Context(), req.From, req.To, req.Amount)
	if err != nil {
		failFromError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "quote": quote})
}

// ExchangeHistory returns the user's recent exchanges.
func (h *Handler) ExchangeHistory(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	history, err := h.Exchange.History(c.Request.Context(), userID, limitQuery(c, 10))
	if err != nil {
		failFromError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "history": history})
}

// ExchangeStats returns ledger-wide aggregates.
func (h *Handler) ExchangeStats(c *gin.Context) {
	stats, err := h.Exchange.Stats(c.Request.Context())
	if err != nil {
		failFromError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
}

// TopExchangers returns the volume leaderboard.
func (h *Handler) TopExchangers(c *gin.Context) {
	top, err := h.Exchange.TopExchangers(c.Request.Context(), limitQuery(c, 10))
	if err != nil {
		failFromError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "top": top})
}

// ReserveInfo returns the reserve pools and derived rates.
func (h *Handler) ReserveInfo(c *gin.Context) {
	info, err := h.Exchange.ReserveInfo(c.Request.Context())
	if err != nil {
		failFromError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "reserve": info.Reserve, "rates": gin.H{
		"magnumToStars": info.MagnumToStars,
		"starsToMagnum": info.StarsToMagnum,
	}})
}

func limitQuery(c *gin.Context, def int) int {
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			return n
		}
	}
	return def
}
