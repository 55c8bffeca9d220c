package http

import (
	"magnum_stars/internal/config"
	"magnum_stars/internal/http/handlers"
	"magnum_stars/internal/http/middleware"
	"magnum_stars/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RegisterRoutes wires the economy API. The bot layer and the mini-app are
// the only intended callers; identity is resolved via /auth before anything
// mutating is reachable.
func RegisterRoutes(r *gin.Engine, db *pgxpool.Pool, cfg *config.Config, h *handlers.Handler, hub *ws.Hub, version string) {
	healthHandler := handlers.NewHealthHandler(db, version)

	// Health checks (no rate limiting)
	r.GET("/health", healthHandler.Health)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)

	v1 := r.Group("/api/v1")
	v1.Use(middleware.RequestID())
	v1.Use(middleware.RedisRateLimit(cfg.APIRateLimit, cfg.APIRateWindow))

	// Auth
	v1.POST("/auth", middleware.RedisRateLimit(cfg.AuthRateLimit, cfg.AuthRateWindow), h.Auth)

	// User profile
	v1.GET("/me", middleware.JWT(), h.Me)

	// Exchange engine
	v1.GET("/exchange/rates", h.Rates)
	v1.POST("/exchange", middleware.JWT(), h.DoExchange)
	v1.POST("/exchange/quote", h.QuoteExchange)
	v1.GET("/exchange/history", middleware.JWT(), h.ExchangeHistory)
	v1.GET("/exchange/stats", h.ExchangeStats)
	v1.GET("/exchange/top", h.TopExchangers)
	v1.GET("/reserve", h.ReserveInfo)

	// Miner engine
	v1.POST("/miner/start", middleware.JWT(), h.MinerStart)
	v1.POST("/miner/stop", middleware.JWT(), h.MinerStop)
	v1.POST("/miner/upgrade", middleware.JWT(), h.MinerUpgrade)
	v1.GET("/miner/stats", middleware.JWT(), h.MinerStats)
	v1.GET("/miner/history", middleware.JWT(), h.MinerHistory)
	v1.GET("/miner/top", h.TopMiners)
	v1.GET("/miner/leaderboard", h.MinerLeaderboard)
	v1.GET("/miner/summary", h.MinerSummary)

	// WebSocket rate stream
	r.GET("/ws", h.WS(hub))
}
