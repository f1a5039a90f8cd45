// Package config loads the process-wide, immutable configuration surface:
// price bounds, investment bounds, thresholds, TTLs, and decimal scales.
// Configuration is loaded once at startup and never re-read from the
// environment afterward. Not every field reaches the engine: the money
// package quantizes with its own fixed MoneyScale, QuantityScale and
// PercentScale constants, and cmd/server seeds stocks with literal price
// bounds and alert threshold, so MinPrice, MaxPrice, PriceChangeAlertThresh
// and the three scale fields are loaded and validated but not consumed.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds every externally-tunable threshold the rebalancing core uses.
type Config struct {
	Port     int
	DevMode  bool
	LogLevel string

	MinPrice                 decimal.Decimal
	MaxPrice                 decimal.Decimal
	MinInvestment            decimal.Decimal
	MaxPortfolioValue        decimal.Decimal
	MaxQuantity              decimal.Decimal
	PriceChangeAlertThresh   decimal.Decimal
	RebalanceDeviationThresh decimal.Decimal
	RebalanceLockTTL         time.Duration
	RollbackMaxAttempts      int

	MoneyScale    int32
	QuantityScale int32
	PercentScale  int32

	SnapshotBucket   string
	SnapshotPrefix   string
	SnapshotSchedule string
}

// Load reads .env (if present), then environment variables, into a validated
// Config. A missing .env file is not fatal — the same tolerance the teacher's
// own loader applies.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:     getEnvAsInt("PORT", 8080),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		MinPrice:                 getEnvAsDecimal("MIN_PRICE", "0.01"),
		MaxPrice:                 getEnvAsDecimal("MAX_PRICE", "1000000"),
		MinInvestment:            getEnvAsDecimal("MIN_INVESTMENT", "1"),
		MaxPortfolioValue:        getEnvAsDecimal("MAX_PORTFOLIO_VALUE", "10000000"),
		MaxQuantity:              getEnvAsDecimal("MAX_QUANTITY", "1000000"),
		PriceChangeAlertThresh:   getEnvAsDecimal("PRICE_CHANGE_ALERT_THRESHOLD", "0.01"),
		RebalanceDeviationThresh: getEnvAsDecimal("REBALANCE_DEVIATION_THRESHOLD", "0.02"),
		RebalanceLockTTL:         getEnvAsDuration("REBALANCE_LOCK_TTL", 6*time.Hour),
		RollbackMaxAttempts:      getEnvAsInt("ROLLBACK_MAX_ATTEMPTS", 3),

		MoneyScale:    int32(getEnvAsInt("MONEY_SCALE", 2)),
		QuantityScale: int32(getEnvAsInt("QUANTITY_SCALE", 9)),
		PercentScale:  int32(getEnvAsInt("PERCENT_SCALE", 4)),

		SnapshotBucket:   getEnv("SNAPSHOT_BUCKET", "rebalancer-snapshots"),
		SnapshotPrefix:   getEnv("SNAPSHOT_PREFIX", "portfolios"),
		SnapshotSchedule: getEnv("SNAPSHOT_SCHEDULE", "0 */5 * * * *"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configuration shapes that would make the core's
// invariants unsatisfiable.
func (c *Config) Validate() error {
	if c.MinPrice.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("config: MIN_PRICE must be positive")
	}
	if c.MaxPrice.LessThanOrEqual(c.MinPrice) {
		return fmt.Errorf("config: MAX_PRICE must exceed MIN_PRICE")
	}
	if c.MinInvestment.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("config: MIN_INVESTMENT must be positive")
	}
	if c.MaxPortfolioValue.LessThan(c.MinInvestment) {
		return fmt.Errorf("config: MAX_PORTFOLIO_VALUE must be at least MIN_INVESTMENT")
	}
	if c.RebalanceLockTTL <= 0 {
		return fmt.Errorf("config: REBALANCE_LOCK_TTL must be positive")
	}
	if c.RollbackMaxAttempts < 1 {
		return fmt.Errorf("config: ROLLBACK_MAX_ATTEMPTS must be at least 1")
	}
	if c.MoneyScale < 0 || c.QuantityScale < 0 || c.PercentScale < 0 {
		return fmt.Errorf("config: decimal scales must be non-negative")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvAsDecimal(key, fallback string) decimal.Decimal {
	v := getEnv(key, fallback)
	d, err := decimal.NewFromString(v)
	if err != nil {
		d, _ = decimal.NewFromString(fallback)
	}
	return d
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
