package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "fsapi-hub", "debug", "json")

	logger.Debug().Str("node", "netRemote.sys.power").Msg("fsapi call")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "fsapi-hub", entry["app"])
	require.Equal(t, "debug", entry["level"])
	require.Equal(t, "netRemote.sys.power", entry["node"])
}

func TestNewLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "fsapi-hub", "warn", "json")

	logger.Info().Msg("dropped")
	require.Zero(t, buf.Len())

	logger.Warn().Msg("kept")
	require.Contains(t, buf.String(), "kept")
}

func TestNewLogger_UnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "fsapi-hub", "chatty", "console")

	logger.Debug().Msg("dropped")
	require.Zero(t, buf.Len())

	logger.Info().Msg("kept")
	require.Contains(t, buf.String(), "kept")
}
