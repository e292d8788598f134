// Package config defines process configuration and loading.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Layer an optional YAML file and ECHELON_ environment variables on top.
// - External errors must be wrapped via this package's sentinel errors.
package config

import (
	"github.com/okian/echelon/internal/domain/model"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// DatabasePath locates the sqlite results database.
	DatabasePath string `koanf:"database_path"`

	// Disciplines lists the upgrade disciplines to recompute.
	Disciplines []string `koanf:"disciplines"`

	// RulesFile optionally overrides the built-in upgrade rules with a YAML
	// file keyed by discipline then category.
	RulesFile string `koanf:"rules_file"`

	// OracleBaseURL is the results site consulted for registration
	// snapshots. Empty disables scraping; stored snapshots are still used.
	OracleBaseURL string `koanf:"oracle_base_url"`

	// OracleTimeoutMS bounds each registration page fetch.
	OracleTimeoutMS int `koanf:"oracle_timeout_ms"`

	// MetricsAddr configures the Prometheus listen address, e.g. ":9090".
	// Empty disables the metrics endpoint.
	MetricsAddr string `koanf:"metrics_addr"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		DatabasePath:    "echelon.db",
		Disciplines:     model.Disciplines(),
		OracleBaseURL:   "https://obra.org",
		OracleTimeoutMS: 15000,
	}
}
