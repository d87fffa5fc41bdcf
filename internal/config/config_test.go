package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"FSAPI_CONFIG_FILE", "HOST", "PORT", "SQLITE_DB_PATH", "LOG_LEVEL", "LOG_FORMAT",
		"JWT_SECRET", "FSAPI_DEVICE_URL", "FSAPI_PIN", "FSAPI_TIMEOUT_MS",
		"FSAPI_RESOLVE_ENDPOINT", "FSAPI_WATCH_ENABLED", "FSAPI_NOTIFY_TIMEOUT_SEC",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:9000", cfg.Addr())
	require.Equal(t, 15*time.Second, cfg.Device.Timeout())
	require.Equal(t, 50, cfg.Device.ListPageSize)
	require.Equal(t, 100, cfg.Device.MaxListPages)
	require.Equal(t, 300*time.Millisecond, cfg.Device.SetSettle())
	require.Equal(t, time.Second, cfg.Device.SlowSetSettle())
	require.Equal(t, 30*time.Second, cfg.NotifyTimeout())
	require.True(t, cfg.WatchEnabled)
	require.False(t, cfg.AuthEnabled())
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("FSAPI_DEVICE_URL", "192.168.1.50:80/device")
	t.Setenv("FSAPI_PIN", "1234")
	t.Setenv("FSAPI_TIMEOUT_MS", "2500")
	t.Setenv("FSAPI_RESOLVE_ENDPOINT", "true")
	t.Setenv("FSAPI_WATCH_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "192.168.1.50:80/device", cfg.Device.URL)
	require.Equal(t, "1234", cfg.Device.PIN)
	require.Equal(t, 2500*time.Millisecond, cfg.Device.Timeout())
	require.True(t, cfg.Device.ResolveEndpoint)
	require.False(t, cfg.WatchEnabled)
}

func TestLoad_ShortJWTSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "too-short")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_YAMLFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "hub.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9100"
device:
  url: radio.local
  pin: "4321"
schedules:
  - name: wake
    cron: "30 6 * * 1-5"
    operation: power
    value: "on"
`), 0o600))
	t.Setenv("FSAPI_CONFIG_FILE", path)
	t.Setenv("FSAPI_PIN", "1234")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "9100", cfg.Port)
	require.Equal(t, "radio.local", cfg.Device.URL)
	require.Equal(t, "1234", cfg.Device.PIN)
	require.Equal(t, 15000, cfg.Device.TimeoutMs)
	require.Equal(t, []Schedule{{Name: "wake", Cron: "30 6 * * 1-5", Operation: "power", Value: "on"}}, cfg.Schedules)
}

func TestLoad_TOMLFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "hub.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_format = "json"

[device]
url = "radio.local"
list_page_size = 20

[[schedules]]
name = "night"
cron = "0 23 * * *"
operation = "power"
value = "off"
`), 0o600))
	t.Setenv("FSAPI_CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "json", cfg.LogFormat)
	require.Equal(t, 20, cfg.Device.ListPageSize)
	require.Len(t, cfg.Schedules, 1)
	require.Equal(t, "night", cfg.Schedules[0].Name)
}

func TestLoad_InvalidFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	t.Setenv("FSAPI_CONFIG_FILE", filepath.Join(dir, "missing.yaml"))
	_, err := Load()
	require.Error(t, err)

	ini := filepath.Join(dir, "hub.ini")
	require.NoError(t, os.WriteFile(ini, []byte("x=1"), 0o600))
	t.Setenv("FSAPI_CONFIG_FILE", ini)
	_, err = Load()
	require.Error(t, err)
}

func TestValidate_Schedules(t *testing.T) {
	cfg := defaults()
	cfg.Schedules = []Schedule{
		{Name: "a", Cron: "* * * * *", Operation: "mute", Value: "on"},
		{Name: "a", Cron: "* * * * *", Operation: "mute", Value: "off"},
	}
	require.Error(t, Validate(cfg))

	cfg.Schedules = []Schedule{{Name: "a", Operation: "mute"}}
	require.Error(t, Validate(cfg))

	cfg.Schedules = nil
	require.NoError(t, Validate(cfg))
}
