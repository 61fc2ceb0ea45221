package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"LISTINGS_PATH", "POSTGRES_DSN", "CLICKHOUSE_DSN", "HTTP_ADDR",
	"HTTP_READ_HEADER_TIMEOUT", "SHUTDOWN_TIMEOUT", "CURRENT_YEAR",
	"DISTANCE_PER_YEAR", "VALUE_METRIC", "OUTPUT_DIR",
}

// clearEnv blanks every key for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load(filepath.Join(t.TempDir(), "missing.env"))

	assert.Equal(t, "data/listings.json", cfg.ListingsPath)
	assert.Empty(t, cfg.PostgresDSN)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 5*time.Second, cfg.ReadHeaderTimeout)
	assert.Equal(t, 0, cfg.CurrentYear)
	assert.Equal(t, 15000.0, cfg.DistancePerYear)
	assert.Equal(t, "price_per_10k", cfg.ValueMetric)
}

func TestLoad_FromEnvFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), ".env")
	content := "LISTINGS_PATH=/data/cars.json\nCURRENT_YEAR=2024\nDISTANCE_PER_YEAR=12000.5\nSHUTDOWN_TIMEOUT=3s\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg := Load(path)

	assert.Equal(t, "/data/cars.json", cfg.ListingsPath)
	assert.Equal(t, 2024, cfg.CurrentYear)
	assert.Equal(t, 12000.5, cfg.DistancePerYear)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_ADDR", ":9999")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("HTTP_ADDR=:7777\n"), 0o600))

	cfg := Load(path)

	assert.Equal(t, ":9999", cfg.HTTPAddr)
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("CURRENT_YEAR", "next year")
	t.Setenv("DISTANCE_PER_YEAR", "far")
	t.Setenv("SHUTDOWN_TIMEOUT", "soon")

	cfg := Load(filepath.Join(t.TempDir(), "missing.env"))

	assert.Equal(t, 0, cfg.CurrentYear)
	assert.Equal(t, 15000.0, cfg.DistancePerYear)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestYear(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 2025, (&Config{}).Year(now))
	assert.Equal(t, 2023, (&Config{CurrentYear: 2023}).Year(now))
}
