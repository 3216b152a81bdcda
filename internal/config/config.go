package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds runtime settings. Command-line flags override these.
type Config struct {
	// Bridge
	Port            int
	ExtensionOrigin string
	ConnectTimeout  time.Duration
	CallTimeout     time.Duration

	// Offline source
	Profile string

	// Storage
	DataDir string
	DBPath  string
}

// Load reads configuration from the environment, after merging the given
// .env files (or ./.env when none are named). Missing files are ignored,
// malformed ones are an error; variables already set in the environment win.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Port:            getEnvIntOrDefault("TABGRUPPEN_PORT", 19191),
		ExtensionOrigin: os.Getenv("TABGRUPPEN_EXTENSION_ORIGIN"),
		ConnectTimeout:  getEnvDurationOrDefault("TABGRUPPEN_CONNECT_TIMEOUT", 10*time.Second),
		CallTimeout:     getEnvDurationOrDefault("TABGRUPPEN_CALL_TIMEOUT", 5*time.Second),
		Profile:         os.Getenv("TABGRUPPEN_PROFILE"),
		DataDir:         os.Getenv("TABGRUPPEN_DATA_DIR"),
		DBPath:          os.Getenv("TABGRUPPEN_DB"),
	}

	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".local", "share", "tabgruppen")
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, "tabgruppen.db")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect timeout must be positive, got %s", c.ConnectTimeout)
	}
	if c.CallTimeout < 0 {
		return fmt.Errorf("call timeout must not be negative, got %s", c.CallTimeout)
	}
	return nil
}

// LogDir is where applog writes its rotated files.
func (c *Config) LogDir() string {
	return filepath.Join(c.DataDir, "logs")
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvDurationOrDefault accepts Go durations ("750ms") or plain seconds.
func getEnvDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if n, err := strconv.Atoi(val); err == nil {
		return time.Duration(n) * time.Second
	}
	return defaultVal
}
