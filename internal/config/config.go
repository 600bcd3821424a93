package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/tailscale/hujson"
)

// User is a caller known by bearer token.
type User struct {
	UserID      int64    `json:"user_id"`
	LanguageID  int64    `json:"language_id"`
	Permissions []string `json:"permissions"`
}

// Config holds all application configuration loaded from config.json.
type Config struct {
	DBPath        string
	APIAddr       string
	LogLevel      string
	LogFormat     string
	PurgeSchedule string
	Retention     time.Duration
	ConfigDir     string
	ConfigPath    string
	Users         map[string]User
}

// jsonConfig is an intermediate struct for JSON unmarshalling.
// Pointer types for numerics distinguish "missing" (nil) from "zero".
type jsonConfig struct {
	DBPath        string          `json:"db_path"`
	APIAddr       string          `json:"api_addr"`
	LogLevel      string          `json:"log_level"`
	LogFormat     string          `json:"log_format"`
	PurgeSchedule string          `json:"purge_schedule"`
	RetentionDays *int            `json:"retention_days"`
	Users         map[string]User `json:"users"`
}

// Environment variables that override the config file.
const (
	EnvConfigPath = "THREADS_CONFIG"
	EnvDBPath     = "THREADS_DB_PATH"
	EnvAPIAddr    = "THREADS_API_ADDR"
	EnvLogLevel   = "THREADS_LOG_LEVEL"
	EnvLogFormat  = "THREADS_LOG_FORMAT"
)

// userHomeDir is a package-level variable to allow overriding in tests.
var userHomeDir = os.UserHomeDir

// readFile is a package-level variable to allow overriding in tests.
var readFile = os.ReadFile

// getenv is a package-level variable to allow overriding in tests.
var getenv = os.Getenv

// loadDotEnv loads .env from the working directory without overriding
// variables that are already set.
var loadDotEnv = func() error {
	err := godotenv.Load()
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Load reads configuration from ~/.threads/config.json (or $THREADS_CONFIG)
// and applies environment overrides. A missing config file yields defaults.
func Load() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	home, err := userHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting home directory: %w", err)
	}
	configDir := filepath.Join(home, ".threads")
	configPath := stringDefault(getenv(EnvConfigPath), filepath.Join(configDir, "config.json"))

	var jc jsonConfig
	data, err := readFile(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		standardJSON, err := hujson.Standardize(data)
		if err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
		if err := json.Unmarshal(standardJSON, &jc); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg := &Config{
		DBPath:        stringDefault(getenv(EnvDBPath), stringDefault(jc.DBPath, filepath.Join(configDir, "threads.db"))),
		APIAddr:       stringDefault(getenv(EnvAPIAddr), stringDefault(jc.APIAddr, ":8223")),
		LogLevel:      stringDefault(getenv(EnvLogLevel), stringDefault(jc.LogLevel, "info")),
		LogFormat:     stringDefault(getenv(EnvLogFormat), stringDefault(jc.LogFormat, "text")),
		PurgeSchedule: stringDefault(jc.PurgeSchedule, "0 3 * * *"),
		Retention:     time.Duration(intPtrDefault(jc.RetentionDays, 30)) * 24 * time.Hour,
		ConfigDir:     configDir,
		ConfigPath:    configPath,
		Users:         jc.Users,
	}
	cfg.DBPath = expandHome(cfg.DBPath, home)

	if cfg.Retention < 0 {
		return nil, fmt.Errorf("retention_days must not be negative")
	}
	for token, u := range cfg.Users {
		if token == "" {
			return nil, fmt.Errorf("users: empty token")
		}
		if u.UserID <= 0 {
			return nil, fmt.Errorf("users: token for user_id %d must map to a positive user_id", u.UserID)
		}
	}

	return cfg, nil
}

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(path, home string) string {
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		return filepath.Join(home, rest)
	}
	return path
}

func stringDefault(val, def string) string {
	if val != "" {
		return val
	}
	return def
}

func intPtrDefault(val *int, def int) int {
	if val != nil {
		return *val
	}
	return def
}
