// Package config loads service configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	ListingsPath  string // JSON listings document
	PostgresDSN   string // optional: listing storage
	ClickhouseDSN string // optional: metrics snapshot storage

	HTTPAddr          string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration

	CurrentYear     int // 0 = current calendar year
	DistancePerYear float64
	ValueMetric     string

	OutputDir string
}

// Load reads the given .env files (".env" when none are given) and returns
// a populated Config. Existing environment variables are never overridden.
func Load(files ...string) *Config {
	if err := godotenv.Load(files...); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		ListingsPath:  getEnv("LISTINGS_PATH", "data/listings.json"),
		PostgresDSN:   getEnv("POSTGRES_DSN", ""),
		ClickhouseDSN: getEnv("CLICKHOUSE_DSN", ""),

		HTTPAddr:          getEnv("HTTP_ADDR", ":8080"),
		ReadHeaderTimeout: getEnvDuration("HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ShutdownTimeout:   getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		CurrentYear:     getEnvInt("CURRENT_YEAR", 0),
		DistancePerYear: getEnvFloat("DISTANCE_PER_YEAR", 15000),
		ValueMetric:     getEnv("VALUE_METRIC", "price_per_10k"),

		OutputDir: getEnv("OUTPUT_DIR", "output"),
	}
}

// Year returns CurrentYear, or the calendar year of now when unset.
func (c *Config) Year(now time.Time) int {
	if c.CurrentYear > 0 {
		return c.CurrentYear
	}
	return now.Year()
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err == nil {
			return d
		}
	}
	return fallback
}
