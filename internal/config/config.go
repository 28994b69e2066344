// Package config provides configuration loading and validation for the CLI
// and server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config represents the configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided
// via CLI flags or environment variables.
type Config struct {
	// Server
	Port int `json:"port,omitempty"` // HTTP listen port

	// Stores
	DatabaseURL          string `json:"database_url,omitempty"`          // PostgreSQL archive URL (optional)
	FirestoreProject     string `json:"firestore_project,omitempty"`     // Fact Store project ID (in-memory store when empty)
	FirestoreCredentials string `json:"firestore_credentials,omitempty"` // Path to service account JSON

	// Behavior
	SkipClassification bool `json:"skip_classification,omitempty"` // Bypass the page-type gate
	UseBrowser         bool `json:"use_browser,omitempty"`         // Headless browser fallback for SPA career sites
	Verbose            bool `json:"verbose,omitempty"`             // Print detailed stage traces

	// Limits
	StageTimeoutSeconds int `json:"stage_timeout_seconds,omitempty"` // Per-stage deadline
	FetchTimeoutSeconds int `json:"fetch_timeout_seconds,omitempty"` // Page fetch deadline
	ScoreConcurrency    int `json:"score_concurrency,omitempty"`     // Parallel posting scoring
	CacheSize           int `json:"cache_size,omitempty"`            // Result cache entries
	CacheTTLSeconds     int `json:"cache_ttl_seconds,omitempty"`     // Result cache serve window
}

// DefaultPort is the HTTP port used when none is configured.
const DefaultPort = 8090

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535")
	}
	if c.StageTimeoutSeconds < 0 {
		return fmt.Errorf("config error: 'stage_timeout_seconds' must be non-negative")
	}
	if c.FetchTimeoutSeconds < 0 {
		return fmt.Errorf("config error: 'fetch_timeout_seconds' must be non-negative")
	}
	if c.ScoreConcurrency < 0 {
		return fmt.Errorf("config error: 'score_concurrency' must be non-negative")
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("config error: 'cache_size' must be non-negative")
	}
	if c.CacheTTLSeconds < 0 {
		return fmt.Errorf("config error: 'cache_ttl_seconds' must be non-negative")
	}

	// Firestore credentials are only meaningful with a project
	if c.FirestoreCredentials != "" && c.FirestoreProject == "" {
		return fmt.Errorf("config error: 'firestore_credentials' requires 'firestore_project'")
	}
	if c.FirestoreCredentials != "" {
		if _, err := os.Stat(c.FirestoreCredentials); os.IsNotExist(err) {
			return fmt.Errorf("config error: firestore credentials file not found: %s", c.FirestoreCredentials)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.FirestoreProject == "" {
		result.FirestoreProject = defaults.FirestoreProject
	}
	if result.FirestoreCredentials == "" {
		result.FirestoreCredentials = defaults.FirestoreCredentials
	}

	// Int fields: use default if zero
	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.StageTimeoutSeconds == 0 {
		result.StageTimeoutSeconds = defaults.StageTimeoutSeconds
	}
	if result.FetchTimeoutSeconds == 0 {
		result.FetchTimeoutSeconds = defaults.FetchTimeoutSeconds
	}
	if result.ScoreConcurrency == 0 {
		result.ScoreConcurrency = defaults.ScoreConcurrency
	}
	if result.CacheSize == 0 {
		result.CacheSize = defaults.CacheSize
	}
	if result.CacheTTLSeconds == 0 {
		result.CacheTTLSeconds = defaults.CacheTTLSeconds
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// StageTimeout converts the configured seconds into a duration, zero when unset
func (c *Config) StageTimeout() time.Duration {
	return time.Duration(c.StageTimeoutSeconds) * time.Second
}

// FetchTimeout converts the configured seconds into a duration, zero when unset
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// CacheTTL converts the configured seconds into a duration, zero when unset
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}
