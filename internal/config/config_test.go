package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_ValidJSON(t *testing.T) {
	// Create temp config file
	content := `{
		"port": 9000,
		"database_url": "postgres://localhost:5432/jobshield",
		"firestore_project": "jobshield-prod",
		"stage_timeout_seconds": 15,
		"cache_size": 20,
		"verbose": true
	}`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "postgres://localhost:5432/jobshield", cfg.DatabaseURL)
	assert.Equal(t, "jobshield-prod", cfg.FirestoreProject)
	assert.Equal(t, 15, cfg.StageTimeoutSeconds)
	assert.Equal(t, 20, cfg.CacheSize)
	assert.True(t, cfg.Verbose)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	content := `{ invalid json }`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(tmpFile)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "config path is empty")
}

func TestValidate_PortRange(t *testing.T) {
	cfg := &Config{Port: 70000}

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "port")
}

func TestValidate_NegativeValues(t *testing.T) {
	cfg := &Config{StageTimeoutSeconds: -1}

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "stage_timeout_seconds")
}

func TestValidate_CredentialsWithoutProject(t *testing.T) {
	cfg := &Config{FirestoreCredentials: "creds.json"}

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "firestore_project")
}

func TestValidate_MissingCredentialsFile(t *testing.T) {
	cfg := &Config{
		FirestoreProject:     "jobshield-prod",
		FirestoreCredentials: "/nonexistent/creds.json",
	}

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "credentials file not found")
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := &Config{
		Port:                8090,
		DatabaseURL:         "postgres://localhost:5432/jobshield",
		StageTimeoutSeconds: 10,
		CacheSize:           10,
	}

	err := cfg.Validate()
	assert.NoError(t, err)
}

func TestMergeWithDefaults(t *testing.T) {
	defaults := Config{
		Port:                8090,
		DatabaseURL:         "postgres://localhost:5432/jobshield",
		FirestoreProject:    "jobshield-prod",
		StageTimeoutSeconds: 10,
		CacheSize:           10,
	}

	partial := Config{
		Port:        9000,
		DatabaseURL: "postgres://db.internal:5432/jobshield",
	}

	merged := partial.MergeWithDefaults(defaults)

	// Custom values should be preserved
	assert.Equal(t, 9000, merged.Port)
	assert.Equal(t, "postgres://db.internal:5432/jobshield", merged.DatabaseURL)

	// Default values should fill in empty fields
	assert.Equal(t, "jobshield-prod", merged.FirestoreProject)
	assert.Equal(t, 10, merged.StageTimeoutSeconds)
	assert.Equal(t, 10, merged.CacheSize)
}

func TestMergeWithDefaults_EmptyDefaults(t *testing.T) {
	cfg := Config{
		Port:        9000,
		DatabaseURL: "postgres://localhost:5432/jobshield",
	}

	merged := cfg.MergeWithDefaults(Config{})

	assert.Equal(t, 9000, merged.Port)
	assert.Equal(t, "postgres://localhost:5432/jobshield", merged.DatabaseURL)
}

func TestDurationHelpers(t *testing.T) {
	cfg := Config{
		StageTimeoutSeconds: 15,
		FetchTimeoutSeconds: 30,
		CacheTTLSeconds:     300,
	}

	assert.Equal(t, 15*time.Second, cfg.StageTimeout())
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout())
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL())
}

func TestDurationHelpers_ZeroWhenUnset(t *testing.T) {
	var cfg Config

	assert.Zero(t, cfg.StageTimeout())
	assert.Zero(t, cfg.FetchTimeout())
	assert.Zero(t, cfg.CacheTTL())
}
