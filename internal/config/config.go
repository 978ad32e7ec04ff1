package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Coins    CoinsConfig
}

type ServerConfig struct {
	Port         string
	Environment  string
	APISecret    string
	AllowOrigins string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// CoinsConfig centralizes the coin economy. The redemption rate and minimum
// are server-side only; clients never decide them.
type CoinsConfig struct {
	// RateCoins coins convert to RateUnits currency units, floor-rounded.
	RateCoins int64
	RateUnits int64
	// MinRedemptionCoins is the smallest redeemable amount.
	MinRedemptionCoins int64
	// QuizCoinsPerCorrect coins are earned per correct answer, capped at
	// QuizDailyCap coins per user per day across all episodes.
	QuizCoinsPerCorrect int64
	QuizDailyCap        int64
	ReferrerCoins       int64
	RefereeCoins        int64
	ReconcileInterval   time.Duration
}

func (d DatabaseConfig) DSN() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.Name + "?sslmode=" + d.SSLMode
}

func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	reconcileInterval, err := time.ParseDuration(getEnv("RECONCILE_INTERVAL", "1h"))
	if err != nil {
		reconcileInterval = time.Hour
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			APISecret:    getEnv("API_SECRET", "change-me-in-production"),
			AllowOrigins: getEnv("ALLOW_ORIGINS", "*"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "sarvcast"),
			Password: getEnv("DB_PASSWORD", "sarvcast"),
			Name:     getEnv("DB_NAME", "sarvcast_coins"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Coins: CoinsConfig{
			RateCoins:           getEnvInt64("REDEMPTION_RATE_COINS", 100),
			RateUnits:           getEnvInt64("REDEMPTION_RATE_UNITS", 1000),
			MinRedemptionCoins:  getEnvInt64("MIN_REDEMPTION_COINS", 100),
			QuizCoinsPerCorrect: getEnvInt64("QUIZ_COINS_PER_CORRECT", 5),
			QuizDailyCap:        getEnvInt64("QUIZ_DAILY_CAP", 50),
			ReferrerCoins:       getEnvInt64("REFERRAL_REFERRER_COINS", 20),
			RefereeCoins:        getEnvInt64("REFERRAL_REFEREE_COINS", 10),
			ReconcileInterval:   reconcileInterval,
		},
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}
	return n
}
