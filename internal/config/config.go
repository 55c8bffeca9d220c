package config

import (
	"os"
	"strconv"
	"time"

	"magnum_stars/internal/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort     string
	DatabaseURL string
	BotToken    string
	BotUsername string
	JWTSecret   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Economy tunables
	ExchangeCommission float64 // fraction of the amount, burned
	ExchangeMinAmount  float64
	MinerRewardPerHour float64
	MinerUpgradeCost   float64

	MinerProcessInterval time.Duration
	UserCacheTTL         time.Duration

	APIRateLimit   int
	APIRateWindow  time.Duration
	AuthRateLimit  int
	AuthRateWindow time.Duration
}

// Загрузка конфига из env
func Load() *Config {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal("DATABASE_URL is not set")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}

	botToken := os.Getenv("BOT_TOKEN")
	if botToken == "" {
		logger.Fatal("BOT_TOKEN is not set")
	}

	botUsername := os.Getenv("BOT_USERNAME")
	if botUsername == "" {
		botUsername = "MagnumStarsBot" // ! если не установлено в env !
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	redisDB := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			redisDB = n
		}
	}

	return &Config{
		AppPort:     port,
		DatabaseURL: dbURL,
		BotToken:    botToken,
		BotUsername: botUsername,
		JWTSecret:   jwtSecret,

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		ExchangeCommission: envFloat("EXCHANGE_COMMISSION", 0.025),
		ExchangeMinAmount:  envFloat("EXCHANGE_MIN_AMOUNT", 1),
		MinerRewardPerHour: envFloat("MINER_REWARD_PER_HOUR", 0.1),
		MinerUpgradeCost:   envFloat("MINER_UPGRADE_COST", 1000),

		MinerProcessInterval: envSeconds("MINER_PROCESS_INTERVAL_SECONDS", 10*time.Minute),
		UserCacheTTL:         envSeconds("USER_CACHE_TTL_SECONDS", 5*time.Minute),

		APIRateLimit:   envInt("API_RATE_LIMIT", 30),
		APIRateWindow:  envSeconds("API_RATE_WINDOW_SECONDS", time.Minute),
		AuthRateLimit:  envInt("AUTH_RATE_LIMIT", 5),
		AuthRateWindow: envSeconds("AUTH_RATE_WINDOW_SECONDS", time.Minute),
	}
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			return f
		}
	}
	return def
}

func envSeconds(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return def
}
