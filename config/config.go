// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/warp/concierge-engine/inbox"
)

// Config holds all configuration for the server.
type Config struct {
	ServerPort              int    `mapstructure:"SERVER_PORT"`
	DatabasePath            string `mapstructure:"DATABASE_PATH"`
	TaxRate                 string `mapstructure:"TAX_RATE"`
	SlaMinutes              int    `mapstructure:"SLA_MINUTES"`
	SlaWarningMinutes       int    `mapstructure:"SLA_WARNING_MINUTES"`
	UnreportedThresholdDays int    `mapstructure:"UNREPORTED_THRESHOLD_DAYS"`
	SettlementSchedule      string `mapstructure:"SETTLEMENT_SCHEDULE"`
	SettlementEnabled       bool   `mapstructure:"SETTLEMENT_ENABLED"`
	CORSAllowedOrigins      string `mapstructure:"CORS_ALLOWED_ORIGINS"`
}

var keys = []string{
	"SERVER_PORT",
	"DATABASE_PATH",
	"TAX_RATE",
	"SLA_MINUTES",
	"SLA_WARNING_MINUTES",
	"UNREPORTED_THRESHOLD_DAYS",
	"SETTLEMENT_SCHEDULE",
	"SETTLEMENT_ENABLED",
	"CORS_ALLOWED_ORIGINS",
}

// Load reads configuration from environment variables, after loading a
// .env file when one exists.
func Load() (Config, error) {
	// Local development only; a missing file is not an error.
	_ = godotenv.Load()

	viper.SetDefault("SERVER_PORT", 8080)
	viper.SetDefault("DATABASE_PATH", "concierge.db")
	viper.SetDefault("TAX_RATE", "0.10")
	viper.SetDefault("SLA_MINUTES", 60)
	viper.SetDefault("SLA_WARNING_MINUTES", 30)
	viper.SetDefault("UNREPORTED_THRESHOLD_DAYS", inbox.DefaultUnreportedThresholdDays)
	viper.SetDefault("SETTLEMENT_SCHEDULE", "0 4 1 * *")
	viper.SetDefault("SETTLEMENT_ENABLED", true)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:8080")
	viper.AutomaticEnv()

	for _, key := range keys {
		_ = viper.BindEnv(key)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if _, err := cfg.Tax(); err != nil {
		return Config{}, err
	}
	if cfg.SlaWarningMinutes > cfg.SlaMinutes {
		return Config{}, fmt.Errorf("SLA_WARNING_MINUTES (%d) exceeds SLA_MINUTES (%d)", cfg.SlaWarningMinutes, cfg.SlaMinutes)
	}
	return cfg, nil
}

// Tax parses TAX_RATE as a fraction in [0, 1].
func (c Config) Tax() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(c.TaxRate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid TAX_RATE %q: %w", c.TaxRate, err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("invalid TAX_RATE %q: must be a fraction between 0 and 1", c.TaxRate)
	}
	return rate, nil
}

// Inbox returns the inbox thresholds.
func (c Config) Inbox() inbox.Config {
	return inbox.Config{
		SlaMinutes:              c.SlaMinutes,
		SlaWarningMinutes:       c.SlaWarningMinutes,
		UnreportedThresholdDays: c.UnreportedThresholdDays,
	}
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (c Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
