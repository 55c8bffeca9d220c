package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MinerStart activates the authenticated user's miner.
func (h *Handler) MinerStart(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.Miner.Start(c.Request.Context(), userID)
	if err != nil {
		failFromError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Miner started",
		"miner":   user.Miner,
	})
}

// MinerStop deactivates the miner.
func (h *Handler) MinerStop(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.Miner.Stop(c.Request.Context(), userID)
	if err != nil {
		failFromError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Miner stopped",
		"miner":   user.Miner,
	})
}

// MinerUpgrade buys one miner level.
func (h *Handler) MinerUpgrade(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.Miner.Upgrade(c.Request.Context(), userID)
	if err != nil {
		failFromError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Miner upgraded",
		"miner":   user.Miner,
		"stars":   user.Stars,
	})
}

// MinerStats returns the per-user miner projection.
func (h *Handler) MinerStats(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	stats, err := h.Miner.Stats(c.Request.Context(), userID)
	if err != nil {
		failFromError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "miner": stats})
}

// MinerHistory returns the user's recent payouts.
func (h *Handler) MinerHistory(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	history, err := h.Miner.History(c.Request.Context(), userID, limitQuery(c, 10))
	if err != nil {
		failFromError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "history": history})
}

// TopMiners returns the all-time miner earnings leaderboard.
func (h *Handler) TopMiners(c *gin.Context) {
	top, err := h.Miner.TopMiners(c.Request.Context(), limitQuery(c, 10))
	if err != nil {
		failFromError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "top": top})
}

// MinerLeaderboard returns the current-month accrual leaderboard.
func (h *Handler) MinerLeaderboard(c *gin.Context) {
	board, err := h.Miner.Leaderboard(c.Request.Context(), limitQuery(c, 10))
	if err != nil {
		failFromError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "leaderboard": board})
}

// MinerSummary returns fleet-wide miner aggregates.
func (h *Handler) MinerSummary(c *gin.Context) {
	stats, err := h.Miner.AggregateStats(c.Request.Context())
	if err != nil {
		failFromError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
}
