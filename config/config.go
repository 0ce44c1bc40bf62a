/*
Package config loads the service configuration from the environment.

PURPOSE:
  One place for every tunable: HTTP port, database path, CORS origins,
  order validation ceilings, and log level. Values come from environment
  variables (a .env file is loaded by cmd/server before Load runs) with
  sensible defaults for local development.

USAGE:
  cfg := config.Load()
  if err := cfg.Validate(); err != nil {
      log.Fatal(err)
  }

SEE ALSO:
  - cmd/server/main.go: Wires the config into the store and services
  - ledger/orders.go: Limits consumed by the order service
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/budget-ledger/ledger"
)

type Config struct {
	// HTTP server
	Port        string
	CORSOrigins []string

	// Database
	SQLiteDBPath string

	// Order validation ceilings
	MaxOrderAmount  decimal.Decimal
	MaxQuantity     int
	MaxDescription  int
	DateWindowYears int

	// Logging
	LogLevel string
}

func Load() *Config {
	defaults := ledger.DefaultLimits()

	return &Config{
		Port:        getEnv("PORT", "8080"),
		CORSOrigins: splitEnv("CORS_ORIGINS", "*"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/ledger.db"),

		MaxOrderAmount:  getEnvDecimal("MAX_ORDER_AMOUNT", defaults.MaxOrderAmount),
		MaxQuantity:     getEnvInt("MAX_QUANTITY", defaults.MaxQuantity),
		MaxDescription:  getEnvInt("MAX_DESCRIPTION", defaults.MaxDescription),
		DateWindowYears: getEnvInt("DATE_WINDOW_YEARS", defaults.DateWindowYears),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Limits converts the configured ceilings into the form the order
// service consumes.
func (c *Config) Limits() ledger.Limits {
	return ledger.Limits{
		MaxOrderAmount:  c.MaxOrderAmount,
		MaxQuantity:     c.MaxQuantity,
		MaxDescription:  c.MaxDescription,
		DateWindowYears: c.DateWindowYears,
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else if c.SQLiteDBPath != ":memory:" {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if !c.MaxOrderAmount.IsPositive() {
		errors = append(errors, fmt.Sprintf("invalid max order amount %s: must be positive", c.MaxOrderAmount))
	}
	if c.MaxQuantity < 1 {
		errors = append(errors, fmt.Sprintf("invalid max quantity %d: must be at least 1", c.MaxQuantity))
	}
	if c.MaxDescription < 1 {
		errors = append(errors, fmt.Sprintf("invalid max description length %d: must be at least 1", c.MaxDescription))
	}
	if c.DateWindowYears < 1 {
		errors = append(errors, fmt.Sprintf("invalid date window %d: must be at least 1 year", c.DateWindowYears))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitEnv(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
