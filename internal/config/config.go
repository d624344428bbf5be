// Package config provides configuration management for the transaction engine.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"
)

// Build-time variables (set via -ldflags)
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// AccountSpec describes one signing account loaded from the accounts file.
type AccountSpec struct {
	Address         string `json:"address"`
	SigningMaterial string `json:"signing_material"`
}

// Config holds the application configuration.
type Config struct {
	NodeURL      string
	AccountsFile string
	Accounts     []AccountSpec
	MaxRetries        int
	TickInterval      time.Duration
	ReconcileInterval time.Duration

	MetricsPort    int
	LogFile        string
	MaxLogFileSize int
}

// Parse parses command-line flags, loads the accounts file, and returns a Config.
func Parse() (*Config, error) {
	cfg := &Config{}

	flag.StringVar(&cfg.NodeURL, "node-url", "", "Substrate node WebSocket URL (required)")
	flag.StringVar(&cfg.AccountsFile, "accounts-file", "", "Path to JSON file of signing accounts (required)")
	flag.IntVar(&cfg.MaxRetries, "max-retries", 5, "Maximum retry attempts for a failed transaction")
	flag.DurationVar(&cfg.TickInterval, "tick-interval", 500*time.Millisecond, "Submission driver tick interval")
	flag.DurationVar(&cfg.ReconcileInterval, "reconcile-interval", 10*time.Second, "Retry & reconciler pass interval")
	flag.IntVar(&cfg.MetricsPort, "metrics-port", 9090, "HTTP port for /health, /version, /metrics")
	flag.StringVar(&cfg.LogFile, "log-file", "", "Path to log file (default: stdout)")
	flag.IntVar(&cfg.MaxLogFileSize, "max-log-file-size", 10*1024*1024, "Max log file size in bytes before rotation (default: 10MB)")

	flag.Parse()

	if cfg.NodeURL == "" {
		return nil, fmt.Errorf("-node-url is required")
	}
	if cfg.AccountsFile == "" {
		return nil, fmt.Errorf("-accounts-file is required")
	}

	accounts, err := loadAccounts(cfg.AccountsFile)
	if err != nil {
		return nil, fmt.Errorf("load accounts file %s: %w", cfg.AccountsFile, err)
	}
	cfg.Accounts = accounts

	return cfg, nil
}

func loadAccounts(path string) ([]AccountSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var specs []AccountSpec
	if err := json.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("parse accounts JSON: %w", err)
	}
	return specs, nil
}
