package fsapi

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/strefethen/fsapi-hub-go/internal/fsapi/wire"
)

func TestClient_Notify_DeviceTimeoutIsNotAnError(t *testing.T) {
	f := newFakeDevice(t)
	c := f.client(t)

	result, err := c.Notify(context.Background(), "netRemote.sys.audio.volume", 5*time.Second)
	require.NoError(t, err)
	require.True(t, result.TimedOut)
	require.Equal(t, 1, f.Count("GET_NOTIFIES"))
}

func TestClient_Notify_MatchesNodeIgnoringCase(t *testing.T) {
	f := newFakeDevice(t)
	f.QueueNotify(notify("netremote.play.status", "<u8>2</u8>"))
	f.QueueNotify(
		notify("netremote.play.info.text", "<c8_array>Now playing</c8_array>"),
		notify("netremote.sys.audio.volume", "<u8>12</u8>"),
	)
	c := f.client(t)

	result, err := c.Notify(context.Background(), "netRemote.sys.audio.volume", 5*time.Second)
	require.NoError(t, err)
	require.False(t, result.TimedOut)
	require.True(t, result.Value.Equal(wire.IntValue(12)))
	require.Equal(t, 2, f.Count("GET_NOTIFIES"))
}

func TestClient_Notify_OwnDeadline(t *testing.T) {
	f := newFakeDevice(t)
	f.SetIntercept(func(op, node string, r *http.Request) (int, string, bool) {
		if op == "GET_NOTIFIES" {
			select {
			case <-r.Context().Done():
			case <-time.After(5 * time.Second):
			}
			return http.StatusOK, respond("FS_TIMEOUT", ""), true
		}
		return 0, "", false
	})
	c := f.client(t)

	start := time.Now()
	result, err := c.Notify(context.Background(), "netRemote.sys.power", 100*time.Millisecond)
	require.NoError(t, err)
	require.True(t, result.TimedOut)
	require.Less(t, time.Since(start), 4*time.Second)
}

func TestClient_Notify_CancelKeepsSession(t *testing.T) {
	f := newFakeDevice(t)
	f.SetValue("netRemote.sys.power", "<u8>1</u8>")
	f.SetIntercept(func(op, node string, r *http.Request) (int, string, bool) {
		if op == "GET_NOTIFIES" {
			select {
			case <-r.Context().Done():
			case <-time.After(5 * time.Second):
			}
			return http.StatusOK, respond("FS_TIMEOUT", ""), true
		}
		return 0, "", false
	})
	c := f.client(t)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := c.Notify(ctx, "netRemote.sys.power", time.Minute)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, SessionActive, c.State())

	on, err := c.GetPower(context.Background())
	require.NoError(t, err)
	require.True(t, on)
	require.Equal(t, 1, f.Count("CREATE_SESSION"))
}

func TestClient_Notifies_TimeoutIsEmpty(t *testing.T) {
	f := newFakeDevice(t)
	c := f.client(t)

	notifications, err := c.Notifies(context.Background())
	require.NoError(t, err)
	require.NotNil(t, notifications)
	require.Empty(t, notifications)
}

func TestClient_Notifies_ReturnsBatch(t *testing.T) {
	f := newFakeDevice(t)
	f.QueueNotify(
		notify("netremote.sys.power", "<u8>0</u8>"),
		notify("netremote.sys.mode", "<u32>3</u32>"),
	)
	c := f.client(t)

	notifications, err := c.Notifies(context.Background())
	require.NoError(t, err)
	require.Len(t, notifications, 2)
	require.Equal(t, "netremote.sys.power", notifications[0].Node)

	op, ok := OperationForNode(notifications[1].Node)
	require.True(t, ok)
	require.Equal(t, OpMode, op)
}

func TestClient_Notify_StatusError(t *testing.T) {
	f := newFakeDevice(t)
	f.SetIntercept(func(op, node string, r *http.Request) (int, string, bool) {
		if op == "GET_NOTIFIES" {
			return http.StatusOK, respond("FS_NODE_BLOCKED", ""), true
		}
		return 0, "", false
	})
	c := f.client(t)

	_, err := c.Notify(context.Background(), "netRemote.sys.power", time.Second)
	require.True(t, IsStatus(err, wire.StatusNodeBlocked))
}

func TestClient_Notifies_CoercesBooleanNodes(t *testing.T) {
	f := newFakeDevice(t)
	f.QueueNotify(
		notify("netremote.sys.audio.mute", "<u8>1</u8>"),
		notify("netremote.unknown.node", "<u8>1</u8>"),
	)
	c := f.client(t)

	notifications, err := c.Notifies(context.Background())
	require.NoError(t, err)
	require.Len(t, notifications, 2)
	require.True(t, notifications[0].Value.Equal(wire.BoolValue(true)))
	require.True(t, notifications[1].Value.Equal(wire.IntValue(1)))
}
