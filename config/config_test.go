package config

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func validConfig() Config {
	return Config{
		Port:            "8080",
		CORSOrigins:     []string{"*"},
		SQLiteDBPath:    ":memory:",
		MaxOrderAmount:  decimal.NewFromInt(1000000),
		MaxQuantity:     10000,
		MaxDescription:  500,
		DateWindowYears: 5,
		LogLevel:        "info",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		wantErr     bool
		errorString string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:        "invalid port - non-numeric",
			mutate:      func(c *Config) { c.Port = "abc" },
			wantErr:     true,
			errorString: "invalid port 'abc': must be a number",
		},
		{
			name:        "invalid port - out of range",
			mutate:      func(c *Config) { c.Port = "70000" },
			wantErr:     true,
			errorString: "invalid port 70000: must be between 1 and 65535",
		},
		{
			name:        "empty database path",
			mutate:      func(c *Config) { c.SQLiteDBPath = "" },
			wantErr:     true,
			errorString: "SQLite database path cannot be empty",
		},
		{
			name:        "non-positive order ceiling",
			mutate:      func(c *Config) { c.MaxOrderAmount = decimal.Zero },
			wantErr:     true,
			errorString: "invalid max order amount",
		},
		{
			name:        "zero date window",
			mutate:      func(c *Config) { c.DateWindowYears = 0 },
			wantErr:     true,
			errorString: "invalid date window",
		},
		{
			name:        "unknown log level",
			mutate:      func(c *Config) { c.LogLevel = "verbose" },
			wantErr:     true,
			errorString: "invalid log level 'verbose'",
		},
		{
			name:   "warn alias accepted",
			mutate: func(c *Config) { c.LogLevel = "WARNING" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error containing %q, got nil", tt.errorString)
				}
				if !strings.Contains(err.Error(), tt.errorString) {
					t.Errorf("error %q does not contain %q", err.Error(), tt.errorString)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestConfig_Limits(t *testing.T) {
	cfg := validConfig()
	cfg.MaxQuantity = 42

	limits := cfg.Limits()
	if limits.MaxQuantity != 42 {
		t.Errorf("MaxQuantity = %d, want 42", limits.MaxQuantity)
	}
	if !limits.MaxOrderAmount.Equal(cfg.MaxOrderAmount) {
		t.Errorf("MaxOrderAmount = %s, want %s", limits.MaxOrderAmount, cfg.MaxOrderAmount)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SQLITE_DB_PATH", ":memory:") // keep Validate from creating ./data

	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Port = %s, want 8080", cfg.Port)
	}
	if cfg.DateWindowYears != 5 {
		t.Errorf("DateWindowYears = %d, want 5", cfg.DateWindowYears)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must validate: %v", err)
	}
}
