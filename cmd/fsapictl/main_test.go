package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/strefethen/fsapi-hub-go/internal/auth"
	"github.com/strefethen/fsapi-hub-go/internal/config"
	"github.com/strefethen/fsapi-hub-go/internal/fsapi/fsapitest"
)

func runCtl(t *testing.T, device *fsapitest.Device, cfg config.Config, args ...string) (int, string, string) {
	t.Helper()
	if device != nil {
		cfg.Device.URL = device.Addr()
		cfg.Device.PIN = fsapitest.PIN
	}
	if cfg.Device.TimeoutMs == 0 {
		cfg.Device.TimeoutMs = 2000
	}

	var stdout, stderr bytes.Buffer
	var code int
	if device != nil {
		code = run(context.Background(), cfg, args, &stdout, &stderr, device.HTTPClient())
	} else {
		code = run(context.Background(), cfg, args, &stdout, &stderr, nil)
	}
	return code, stdout.String(), stderr.String()
}

func TestRun_Get(t *testing.T) {
	device := fsapitest.NewDevice(t)
	device.SetValue("netRemote.sys.audio.volume", "<u8>7</u8>")

	code, out, _ := runCtl(t, device, config.Config{}, "get", "volume")
	require.Equal(t, 0, code)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Equal(t, float64(7), got["value"])
	require.Equal(t, "netRemote.sys.audio.volume", got["node"])
	require.Equal(t, 1, device.Count("CREATE_SESSION"))
}

func TestRun_Set(t *testing.T) {
	device := fsapitest.NewDevice(t)
	device.SetValue("netRemote.sys.audio.mute", "<u8>0</u8>")

	code, _, _ := runCtl(t, device, config.Config{}, "set", "mute", "on")
	require.Equal(t, 0, code)
	require.Equal(t, "<u8>1</u8>", device.Value("netRemote.sys.audio.mute"))
}

func TestRun_SetInvalidValue(t *testing.T) {
	device := fsapitest.NewDevice(t)

	code, _, stderr := runCtl(t, device, config.Config{}, "set", "volume", "loud")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "volume")
	require.Zero(t, device.Count("SET"))
}

func TestRun_ListPresets(t *testing.T) {
	device := fsapitest.NewDevice(t)
	device.SetValue("netRemote.nav.state", "<u8>1</u8>")
	device.SetList("netRemote.nav.presets",
		fsapitest.Field("name", "<c8_array>Radio One</c8_array>"),
	)

	code, out, _ := runCtl(t, device, config.Config{}, "list", "presets")
	require.Equal(t, 0, code)

	var presets []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &presets))
	require.Len(t, presets, 1)
	require.Equal(t, "Radio One", presets[0]["name"])
}

func TestRun_NotifyTimesOut(t *testing.T) {
	device := fsapitest.NewDevice(t)

	code, out, _ := runCtl(t, device, config.Config{}, "notify", "power", "1s")
	require.Equal(t, 0, code)
	require.Contains(t, out, `"timed_out": true`)
	require.Contains(t, out, "netRemote.sys.power")
}

func TestRun_Caps(t *testing.T) {
	code, out, _ := runCtl(t, nil, config.Config{}, "caps")
	require.Equal(t, 0, code)
	require.Contains(t, out, "netRemote.play.control")
}

func TestRun_Token(t *testing.T) {
	cfg := config.Config{JWTSecret: "0123456789abcdef0123456789abcdef", JWTAccessTokenExpirySec: 60}

	code, out, _ := runCtl(t, nil, cfg, "token", "kitchen", "read")
	require.Equal(t, 0, code)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	payload, err := auth.VerifyToken(cfg, got["access_token"].(string))
	require.NoError(t, err)
	require.Equal(t, "kitchen", payload.Sub)
	require.Equal(t, auth.ScopeRead, payload.Scope)

	code, _, stderr := runCtl(t, nil, config.Config{}, "token", "kitchen")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "JWT_SECRET")
}

func TestRun_Usage(t *testing.T) {
	code, _, _ := runCtl(t, nil, config.Config{})
	require.Equal(t, 2, code)

	code, _, stderr := runCtl(t, nil, config.Config{}, "get", "volume")
	require.Equal(t, 2, code)
	require.Contains(t, stderr, "FSAPI_DEVICE_URL")

	device := fsapitest.NewDevice(t)
	code, _, _ = runCtl(t, device, config.Config{}, "bogus")
	require.Equal(t, 2, code)
}
