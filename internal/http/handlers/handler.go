package handlers

import (
	"errors"
	"net/http"

	"magnum_stars/internal/repository"
	"magnum_stars/internal/service"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	BotToken string
	Users    *service.UserService
	Exchange *service.ExchangeService
	Miner    *service.MinerService
}

func NewHandler(botToken string, users *service.UserService, exchange *service.ExchangeService, miner *service.MinerService) *Handler {
	return &Handler{
		BotToken: botToken,
		Users:    users,
		Exchange: exchange,
		Miner:    miner,
	}
}

// getUserID извлекает user_id из контекста Gin
func getUserID(c *gin.Context) (int64, bool) {
	uidVal, ok := c.Get("user_id")
	if !ok {
		return 0, false
	}
	switch v := uidVal.(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"success": false, "message": msg})
}

// failFromError maps service sentinels to HTTP statuses with a short
// human-readable reason; anything unexpected becomes a generic 500.
func failFromError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrMinimumAmount):
		fail(c, http.StatusBadRequest, "minimum exchange amount is 1")
	case errors.Is(err, service.ErrInsufficientFunds):
		fail(c, http.StatusBadRequest, "insufficient funds")
	case errors.Is(err, service.ErrInsufficientReserve):
		fail(c, http.StatusConflict, "exchange reserve cannot cover this amount")
	case errors.Is(err, service.ErrUnsupportedPair):
		fail(c, http.StatusBadRequest, "unsupported currency pair")
	case errors.Is(err, service.ErrReserveUnavailable):
		fail(c, http.StatusServiceUnavailable, "exchange temporarily unavailable")
	case errors.Is(err, service.ErrMinerAlreadyActive):
		fail(c, http.StatusConflict, "miner is already running")
	case errors.Is(err, service.ErrMinerNotActive):
		fail(c, http.StatusConflict, "miner is not running")
	case errors.Is(err, repository.ErrUserNotFound):
		fail(c, http.StatusNotFound, "user not found")
	default:
		fail(c, http.StatusInternalServerError, "internal error")
	}
}
