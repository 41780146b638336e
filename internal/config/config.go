// Package config reads process settings from the environment, after
// loading a .env file if one is present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Lower bounds for the timing settings. The pruner ticks at a quarter of
// IdleTimeout, so it must stay well above zero.
const (
	MinHeartbeat   = 100 * time.Millisecond
	MinIdleTimeout = time.Minute
)

type Config struct {
	Addr        string
	DBPath      string
	Store       string
	LogLevel    string
	LogFormat   string
	RandomFirst bool
	Heartbeat   time.Duration
	// IdleTimeout is how long an untouched game is kept in memory.
	IdleTimeout time.Duration
}

// Load reads configuration. Files are optional; a missing .env is not an
// error, and variables already set in the environment take precedence.
func Load(files ...string) (Config, error) {
	_ = godotenv.Load(files...)

	cfg := Config{
		Addr:      getEnv("ADDR", ":8080"),
		DBPath:    getEnv("DB_PATH", "./data/nim.db"),
		Store:     strings.ToLower(getEnv("STORE", StoreSQLite)),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "json")),
	}
	if cfg.Store != StoreSQLite && cfg.Store != StoreMemory {
		return Config{}, fmt.Errorf("STORE: unknown store %q", cfg.Store)
	}

	var err error
	if cfg.RandomFirst, err = strconv.ParseBool(getEnv("RANDOM_FIRST", "false")); err != nil {
		return Config{}, fmt.Errorf("RANDOM_FIRST: %w", err)
	}
	if cfg.Heartbeat, err = time.ParseDuration(getEnv("HEARTBEAT", "15s")); err != nil {
		return Config{}, fmt.Errorf("HEARTBEAT: %w", err)
	}
	if cfg.IdleTimeout, err = time.ParseDuration(getEnv("IDLE_TIMEOUT", "2h")); err != nil {
		return Config{}, fmt.Errorf("IDLE_TIMEOUT: %w", err)
	}
	if cfg.Heartbeat < MinHeartbeat {
		return Config{}, fmt.Errorf("HEARTBEAT: %s is below the minimum %s", cfg.Heartbeat, MinHeartbeat)
	}
	if cfg.IdleTimeout < MinIdleTimeout {
		return Config{}, fmt.Errorf("IDLE_TIMEOUT: %s is below the minimum %s", cfg.IdleTimeout, MinIdleTimeout)
	}
	return cfg, nil
}

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
