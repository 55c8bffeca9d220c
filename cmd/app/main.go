package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"magnum_stars/internal/cache"
	"magnum_stars/internal/config"
	"magnum_stars/internal/db"
	httpServer "magnum_stars/internal/http"
	"magnum_stars/internal/http/handlers"
	"magnum_stars/internal/http/middleware"
	"magnum_stars/internal/logger"
	"magnum_stars/internal/notify"
	"magnum_stars/internal/scheduler"
	"magnum_stars/internal/service"
	"magnum_stars/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var version = "dev"

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_JSON") == "true")

	cfg := config.Load()
	service.InitJWT(cfg.JWTSecret)

	dbPool := db.Connect(cfg.DatabaseURL)
	defer dbPool.Close()

	users := cache.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.UserCacheTTL)
	middleware.SetRedisClient(users.Client())

	userService := service.NewUserService(dbPool, users)
	exchangeService := service.NewExchangeService(dbPool, users, cfg.ExchangeCommission, cfg.ExchangeMinAmount)
	minerService := service.NewMinerService(dbPool, users, cfg.MinerRewardPerHour, cfg.MinerUpgradeCost)

	hub := ws.NewHub()
	exchangeService.SetRatePublisher(hub)

	if notifier, err := notify.NewTelegramNotifier(cfg.BotToken); err != nil {
		logger.Warn("telegram notifier disabled", "error", err)
	} else {
		minerService.SetNotifier(notifier)
	}

	accrual := scheduler.New(minerService, cfg.MinerProcessInterval)
	accrual.Start()

	r := gin.Default()

	// CORS for production (frontend on different domain)
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := handlers.NewHandler(cfg.BotToken, userService, exchangeService, minerService)
	httpServer.RegisterRoutes(r, dbPool, cfg, h, hub, version)

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "version", version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	accrual.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
