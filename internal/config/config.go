package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds the bridge configuration.
type Config struct {
	Host         string `yaml:"host" toml:"host"`
	Port         string `yaml:"port" toml:"port"`
	SQLiteDBPath string `yaml:"sqlite_db_path" toml:"sqlite_db_path"`
	LogLevel     string `yaml:"log_level" toml:"log_level"`
	// LogFormat is "console" or "json".
	LogFormat string `yaml:"log_format" toml:"log_format"`

	// JWTSecret enables bearer auth on the bridge when set.
	JWTSecret               string `yaml:"jwt_secret" toml:"jwt_secret"`
	JWTAccessTokenExpirySec int    `yaml:"jwt_access_token_expiry_sec" toml:"jwt_access_token_expiry_sec"`

	Device DeviceConfig `yaml:"device" toml:"device"`

	WatchEnabled           bool `yaml:"watch_enabled" toml:"watch_enabled"`
	NotifyTimeoutSec       int  `yaml:"notify_timeout_sec" toml:"notify_timeout_sec"`
	ChangeLogRetentionDays int  `yaml:"change_log_retention_days" toml:"change_log_retention_days"`

	Schedules []Schedule `yaml:"schedules" toml:"schedules"`
}

// DeviceConfig describes the radio the bridge controls.
type DeviceConfig struct {
	URL             string `yaml:"url" toml:"url"`
	PIN             string `yaml:"pin" toml:"pin"`
	TimeoutMs       int    `yaml:"timeout_ms" toml:"timeout_ms"`
	ResolveEndpoint bool   `yaml:"resolve_endpoint" toml:"resolve_endpoint"`
	ListPageSize    int    `yaml:"list_page_size" toml:"list_page_size"`
	MaxListPages    int    `yaml:"max_list_pages" toml:"max_list_pages"`
	SetSettleMs     int    `yaml:"set_settle_ms" toml:"set_settle_ms"`
	SlowSetSettleMs int    `yaml:"slow_set_settle_ms" toml:"slow_set_settle_ms"`
}

// Schedule sets an operation to a value on a cron expression.
type Schedule struct {
	Name      string `yaml:"name" toml:"name"`
	Cron      string `yaml:"cron" toml:"cron"`
	Operation string `yaml:"operation" toml:"operation"`
	Value     string `yaml:"value" toml:"value"`
}

func (d DeviceConfig) Timeout() time.Duration {
	return time.Duration(d.TimeoutMs) * time.Millisecond
}

func (d DeviceConfig) SetSettle() time.Duration {
	return time.Duration(d.SetSettleMs) * time.Millisecond
}

func (d DeviceConfig) SlowSetSettle() time.Duration {
	return time.Duration(d.SlowSetSettleMs) * time.Millisecond
}

func (c Config) NotifyTimeout() time.Duration {
	return time.Duration(c.NotifyTimeoutSec) * time.Second
}

func (c Config) Addr() string {
	return c.Host + ":" + c.Port
}

// AuthEnabled reports whether bridge routes require a bearer token.
func (c Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

func defaults() Config {
	return Config{
		Host:                    "0.0.0.0",
		Port:                    "9000",
		SQLiteDBPath:            "./data/fsapi-hub.db",
		LogLevel:                "info",
		LogFormat:               "console",
		JWTAccessTokenExpirySec: 3600,
		Device: DeviceConfig{
			TimeoutMs:       15000,
			ListPageSize:    50,
			MaxListPages:    100,
			SetSettleMs:     300,
			SlowSetSettleMs: 1000,
		},
		WatchEnabled:           true,
		NotifyTimeoutSec:       30,
		ChangeLogRetentionDays: 30,
	}
}

// Load reads the optional FSAPI_CONFIG_FILE, then applies environment
// overrides on top of it.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("FSAPI_CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg.Host = envString("HOST", cfg.Host)
	cfg.Port = envString("PORT", cfg.Port)
	cfg.SQLiteDBPath = envString("SQLITE_DB_PATH", cfg.SQLiteDBPath)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = envString("LOG_FORMAT", cfg.LogFormat)
	cfg.JWTSecret = envString("JWT_SECRET", cfg.JWTSecret)
	cfg.JWTAccessTokenExpirySec = envInt("JWT_ACCESS_TOKEN_EXPIRY", cfg.JWTAccessTokenExpirySec)

	cfg.Device.URL = envString("FSAPI_DEVICE_URL", cfg.Device.URL)
	cfg.Device.PIN = envString("FSAPI_PIN", cfg.Device.PIN)
	cfg.Device.TimeoutMs = envInt("FSAPI_TIMEOUT_MS", cfg.Device.TimeoutMs)
	cfg.Device.ResolveEndpoint = envBool("FSAPI_RESOLVE_ENDPOINT", cfg.Device.ResolveEndpoint)
	cfg.Device.ListPageSize = envInt("FSAPI_LIST_PAGE_SIZE", cfg.Device.ListPageSize)
	cfg.Device.MaxListPages = envInt("FSAPI_MAX_LIST_PAGES", cfg.Device.MaxListPages)
	cfg.Device.SetSettleMs = envInt("FSAPI_SET_SETTLE_MS", cfg.Device.SetSettleMs)
	cfg.Device.SlowSetSettleMs = envInt("FSAPI_SLOW_SET_SETTLE_MS", cfg.Device.SlowSetSettleMs)

	cfg.WatchEnabled = envBool("FSAPI_WATCH_ENABLED", cfg.WatchEnabled)
	cfg.NotifyTimeoutSec = envInt("FSAPI_NOTIFY_TIMEOUT_SEC", cfg.NotifyTimeoutSec)
	cfg.ChangeLogRetentionDays = envInt("CHANGE_LOG_RETENTION_DAYS", cfg.ChangeLogRetentionDays)

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late.
func Validate(cfg Config) error {
	if cfg.JWTSecret != "" && len(strings.TrimSpace(cfg.JWTSecret)) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	switch cfg.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be console or json, got %q", cfg.LogFormat)
	}
	if cfg.Device.TimeoutMs <= 0 {
		return fmt.Errorf("FSAPI_TIMEOUT_MS must be positive")
	}
	if cfg.Device.ListPageSize <= 0 || cfg.Device.MaxListPages <= 0 {
		return fmt.Errorf("list page size and page limit must be positive")
	}
	if cfg.NotifyTimeoutSec <= 0 {
		return fmt.Errorf("FSAPI_NOTIFY_TIMEOUT_SEC must be positive")
	}

	seen := make(map[string]struct{}, len(cfg.Schedules))
	for i, schedule := range cfg.Schedules {
		if err := validateSchedule(schedule); err != nil {
			return fmt.Errorf("schedule[%d] invalid: %w", i, err)
		}
		if _, dup := seen[schedule.Name]; dup {
			return fmt.Errorf("schedule[%d] invalid: duplicate name %q", i, schedule.Name)
		}
		seen[schedule.Name] = struct{}{}
	}
	return nil
}

func validateSchedule(schedule Schedule) error {
	if strings.TrimSpace(schedule.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if strings.TrimSpace(schedule.Cron) == "" {
		return fmt.Errorf("cron is required")
	}
	if strings.TrimSpace(schedule.Operation) == "" {
		return fmt.Errorf("operation is required")
	}
	return nil
}

func loadFile(path string, out *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, out)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, out)
	default:
		return fmt.Errorf("config load failed (%s): unsupported extension", path)
	}
	if err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func envString(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func envInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func envBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return strings.EqualFold(val, "true") || val == "1"
}
