package fsapi

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/strefethen/fsapi-hub-go/internal/fsapi/wire"
)

func TestClient_Set_RoundTrip(t *testing.T) {
	f := newFakeDevice(t)
	f.SetValue("netRemote.sys.power", "<u8>1</u8>")
	c := f.client(t)
	ctx := context.Background()

	ok, err := c.SetPower(ctx, false)
	require.NoError(t, err)
	require.True(t, ok)

	sets := f.RequestsFor("SET/")
	require.Len(t, sets, 1)
	require.Equal(t, "/fsapi/SET/netRemote.sys.power", sets[0].Path)
	require.Equal(t, "0", sets[0].Query().Get("value"))

	on, err := c.GetPower(ctx)
	require.NoError(t, err)
	require.False(t, on)
}

func TestClient_Set_TextIsEscaped(t *testing.T) {
	f := newFakeDevice(t)
	f.SetValue("netRemote.sys.info.friendlyName", "<c8_array>Radio</c8_array>")
	c := f.client(t)
	ctx := context.Background()

	ok, err := c.SetFriendlyName(ctx, "Küche & Bad")
	require.NoError(t, err)
	require.True(t, ok)

	name, err := c.GetFriendlyName(ctx)
	require.NoError(t, err)
	require.Equal(t, "Küche & Bad", name)
}

func TestClient_Set_RejectsBeforeNetwork(t *testing.T) {
	tests := []struct {
		name  string
		op    Operation
		value wire.Value
	}{
		{"unknown operation", Operation("bogus"), wire.IntValue(1)},
		{"kind mismatch", OpPower, wire.IntValue(1)},
		{"string for integer", OpVolume, wire.TextValue("11")},
		{"above range", OpBass, wire.IntValue(15)},
		{"below range", OpPlayRate, wire.IntValue(-128)},
		{"read only", OpRadioID, wire.TextValue("abc")},
		{"list capability", OpValidModes, wire.IntValue(0)},
		{"invalid value", OpFriendlyName, wire.Value{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doer := &countingDoer{}
			c, err := NewClient(Options{DeviceURL: "10.0.0.9", PIN: "1234", HTTPClient: doer})
			require.NoError(t, err)

			ok, err := c.Set(context.Background(), tt.op, tt.value)
			require.False(t, ok)
			var argErr *InvalidArgumentError
			require.ErrorAs(t, err, &argErr)
			require.Equal(t, tt.op, argErr.Operation)
			require.Zero(t, doer.calls.Load())
		})
	}
}

func TestClient_Set_FailReturnsFalse(t *testing.T) {
	f := newFakeDevice(t)
	f.SetIntercept(func(op, node string, r *http.Request) (int, string, bool) {
		if op == "SET" {
			return http.StatusOK, respond("FS_FAIL", ""), true
		}
		return 0, "", false
	})
	c := f.client(t)

	ok, err := c.SetMute(context.Background(), true)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestClient_Set_BlockedNodeIsStatusError(t *testing.T) {
	f := newFakeDevice(t)
	f.SetIntercept(func(op, node string, r *http.Request) (int, string, bool) {
		if op == "SET" {
			return http.StatusOK, respond("FS_NODE_BLOCKED", ""), true
		}
		return 0, "", false
	})
	c := f.client(t)

	ok, err := c.SetShuffle(context.Background(), true)
	require.False(t, ok)
	require.True(t, IsStatus(err, wire.StatusNodeBlocked))
}

func TestClient_Set_SettleStopsOnContextDone(t *testing.T) {
	f := newFakeDevice(t)
	c := f.client(t, func(o *Options) { o.SlowSetSettle = time.Hour })

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	start := time.Now()
	ok, err := c.SetPower(ctx, true)
	require.NoError(t, err)
	require.True(t, ok)
	require.Less(t, time.Since(start), 10*time.Second)
}

func TestClient_Set_WaitsSettleDelay(t *testing.T) {
	f := newFakeDevice(t)
	c := f.client(t, func(o *Options) { o.SetSettle = 60 * time.Millisecond })

	start := time.Now()
	_, err := c.SetMute(context.Background(), true)
	require.NoError(t, err)
	require.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestClient_Get_IsIdempotent(t *testing.T) {
	f := newFakeDevice(t)
	f.SetValue("netRemote.sys.audio.volume", "<u8>12</u8>")
	c := f.client(t)
	ctx := context.Background()

	first, err := c.Get(ctx, OpVolume)
	require.NoError(t, err)
	second, err := c.Get(ctx, OpVolume)
	require.NoError(t, err)
	require.True(t, first.Equal(second))
	require.Equal(t, 2, f.Count("GET/"))
}

func TestClient_Get_CoercesIntegerToBool(t *testing.T) {
	f := newFakeDevice(t)
	f.SetValue("netRemote.sys.audio.mute", "<u8>2</u8>")
	c := f.client(t)

	v, err := c.Get(context.Background(), OpMute)
	require.NoError(t, err)
	require.Equal(t, wire.KindBool, v.Kind())
	b, _ := v.Bool()
	require.True(t, b)
}

func TestClient_Get_KindMismatch(t *testing.T) {
	f := newFakeDevice(t)
	f.SetValue("netRemote.sys.audio.volume", "<c8_array>loud</c8_array>")
	c := f.client(t)

	_, err := c.Get(context.Background(), OpVolume)
	var respErr *UnexpectedResponseError
	require.ErrorAs(t, err, &respErr)
	require.Equal(t, wire.KindInt, respErr.Want)
	require.Equal(t, wire.KindString, respErr.Got)
}

func TestClient_Get_MissingNodeIsStatusError(t *testing.T) {
	f := newFakeDevice(t)
	c := f.client(t)

	_, err := c.Get(context.Background(), OpPlayRate)
	require.True(t, IsStatus(err, wire.StatusNodeDoesNotExist))
}

func TestClient_Get_RejectsWriteOnlyAndLists(t *testing.T) {
	doer := &countingDoer{}
	c, err := NewClient(Options{DeviceURL: "10.0.0.9", PIN: "1234", HTTPClient: doer})
	require.NoError(t, err)

	for _, op := range []Operation{OpPlayControl, OpPresets, Operation("nope")} {
		_, err := c.Get(context.Background(), op)
		var argErr *InvalidArgumentError
		require.ErrorAs(t, err, &argErr, op)
	}
	require.Zero(t, doer.calls.Load())
}

func modeItems() []string {
	return []string{
		field("id", "<c8_array>IR</c8_array>") + field("label", "<c8_array>Internet radio</c8_array>") + field("selectable", "<u8>1</u8>"),
		field("id", "<c8_array>FM</c8_array>") + field("label", "<c8_array>FM</c8_array>") + field("selectable", "<u8>1</u8>") + field("modetype", "<u8>0</u8>"),
		field("id", "<c8_array>AUX</c8_array>") + field("label", "<c8_array>AUX in</c8_array>") + field("streamable", "<u8>0</u8>"),
	}
}

func TestClient_Get_EnumLabelsCachedPerSession(t *testing.T) {
	f := newFakeDevice(t)
	f.SetValue("netRemote.sys.mode", "<u32>1</u32>")
	f.SetList("netRemote.sys.caps.validModes", modeItems()...)
	c := f.client(t)
	ctx := context.Background()

	v, err := c.Get(ctx, OpMode)
	require.NoError(t, err)
	require.Equal(t, "FM", v.Label)

	mode, err := c.GetMode(ctx)
	require.NoError(t, err)
	require.Equal(t, PlayerMode{Key: 1, ID: "FM", Label: "FM", Selectable: true}, mode)
	require.Equal(t, 1, f.Count("LIST_GET_NEXT"))

	f.Expire()
	v, err = c.Get(ctx, OpMode)
	require.NoError(t, err)
	require.Equal(t, "FM", v.Label)
	require.Equal(t, 2, f.Count("LIST_GET_NEXT"))
}

func TestClient_Get_UnknownEnumCode(t *testing.T) {
	f := newFakeDevice(t)
	f.SetValue("netRemote.sys.mode", "<u32>9</u32>")
	f.SetList("netRemote.sys.caps.validModes", modeItems()...)
	c := f.client(t)

	_, err := c.Get(context.Background(), OpMode)
	var respErr *UnexpectedResponseError
	require.ErrorAs(t, err, &respErr)
	require.Equal(t, OpMode, respErr.Operation)
}

func TestClient_GetEqPreset(t *testing.T) {
	f := newFakeDevice(t)
	f.SetValue("netRemote.sys.audio.eqpreset", "<u8>2</u8>")
	f.SetList("netRemote.sys.caps.eqPresets",
		field("label", "<c8_array>My EQ</c8_array>"),
		field("label", "<c8_array>Normal</c8_array>"),
		field("label", "<c8_array>Jazz</c8_array>"),
	)
	c := f.client(t)
	ctx := context.Background()

	eq, err := c.GetEqPreset(ctx)
	require.NoError(t, err)
	require.Equal(t, Equaliser{Key: 2, Label: "Jazz"}, eq)

	eqs, err := c.GetEqualisers(ctx)
	require.NoError(t, err)
	require.Len(t, eqs, 3)
	require.Equal(t, 1, f.Count("LIST_GET_NEXT"))
}

func TestClient_GetVolumeSteps_CachedAndBoundsSetVolume(t *testing.T) {
	f := newFakeDevice(t)
	f.SetValue("netRemote.sys.caps.volumeSteps", "<u8>21</u8>")
	f.SetValue("netRemote.sys.audio.volume", "<u8>5</u8>")
	c := f.client(t)
	ctx := context.Background()

	steps, err := c.GetVolumeSteps(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 21, steps)

	ok, err := c.SetVolume(ctx, 20)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = c.SetVolume(ctx, 21)
	var argErr *InvalidArgumentError
	require.ErrorAs(t, err, &argErr)

	require.Len(t, f.RequestsFor("GET/netRemote.sys.caps.volumeSteps"), 1)
}

func TestClient_GetPlayInfo_ToleratesMissingNodes(t *testing.T) {
	f := newFakeDevice(t)
	f.SetValue("netRemote.play.info.name", "<c8_array>Radio 1</c8_array>")
	f.SetValue("netRemote.play.info.text", "<c8_array>News</c8_array>")
	f.SetValue("netRemote.play.info.duration", "<u32>0</u32>")
	c := f.client(t)

	info, err := c.GetPlayInfo(context.Background())
	require.NoError(t, err)
	require.Equal(t, PlayInfo{Name: "Radio 1", Text: "News"}, info)
}

func TestClient_PlayControl(t *testing.T) {
	f := newFakeDevice(t)
	c := f.client(t)
	ctx := context.Background()

	for _, fn := range []func(context.Context) (bool, error){c.Play, c.Pause, c.Next, c.Previous} {
		ok, err := fn(ctx)
		require.NoError(t, err)
		require.True(t, ok)
	}

	var values []string
	for _, u := range f.RequestsFor("SET/netRemote.play.control") {
		values = append(values, u.Query().Get("value"))
	}
	require.Equal(t, []string{"1", "2", "3", "4"}, values)
}

func TestClient_GetPresets_EnablesNavigation(t *testing.T) {
	f := newFakeDevice(t)
	f.SetValue("netRemote.nav.state", "<u8>0</u8>")
	f.SetList("netRemote.nav.presets",
		field("name", "<c8_array>  Radio 1 </c8_array>")+field("type", "<c8_array>DAB</c8_array>"),
		field("name", "<c8_array></c8_array>"),
		field("name", "<c8_array>Jazz FM</c8_array>"),
	)
	c := f.client(t)

	presets, err := c.GetPresets(context.Background())
	require.NoError(t, err)
	require.Equal(t, []Preset{
		{Key: 0, Type: "DAB", Name: "Radio 1"},
		{Key: 2, Name: "Jazz FM"},
	}, presets)
	require.Equal(t, "<u8>1</u8>", f.Value("netRemote.nav.state"))
}

func TestClient_Nav_PathTracking(t *testing.T) {
	f := newFakeDevice(t)
	f.SetValue("netRemote.nav.state", "<u8>1</u8>")
	c := f.client(t)
	ctx := context.Background()

	ok, err := c.NavSelectFolderPath(ctx, []int{3, 1})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []int{3, 1}, c.NavPath())

	ok, err = c.NavSelectItemPath(ctx, []int{3, 4, 7})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []int{3, 4}, c.NavPath())

	var navigate []string
	for _, u := range f.RequestsFor("SET/netRemote.nav.action.navigate") {
		navigate = append(navigate, u.Query().Get("value"))
	}
	require.Equal(t, []string{"3", "1", "0xffffffff", "4"}, navigate)
	require.Len(t, f.RequestsFor("SET/netRemote.nav.action.selectItem"), 1)

	_, err = c.SetMode(ctx, 0)
	require.NoError(t, err)
	require.Empty(t, c.NavPath())
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		op      Operation
		text    string
		want    wire.Value
		wantErr bool
	}{
		{OpPower, "on", wire.BoolValue(true), false},
		{OpMute, "0", wire.BoolValue(false), false},
		{OpPower, "maybe", wire.Value{}, true},
		{OpVolume, " 12 ", wire.IntValue(12), false},
		{OpBass, "-3", wire.IntValue(-3), false},
		{OpVolume, "loud", wire.Value{}, true},
		{OpFriendlyName, "Kitchen", wire.TextValue("Kitchen"), false},
		{OpPresets, "1", wire.Value{}, true},
		{Operation("nope"), "1", wire.Value{}, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.op)+"/"+tt.text, func(t *testing.T) {
			got, err := ParseValue(tt.op, tt.text)
			if tt.wantErr {
				var argErr *InvalidArgumentError
				require.ErrorAs(t, err, &argErr)
				return
			}
			require.NoError(t, err)
			require.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestFromJSON(t *testing.T) {
	v, err := FromJSON(OpPower, true)
	require.NoError(t, err)
	require.True(t, v.Equal(wire.BoolValue(true)))

	v, err = FromJSON(OpVolume, float64(7))
	require.NoError(t, err)
	require.True(t, v.Equal(wire.IntValue(7)))

	_, err = FromJSON(OpVolume, 7.5)
	require.Error(t, err)

	_, err = FromJSON(OpVolume, true)
	require.Error(t, err)

	_, err = FromJSON(OpVolume, nil)
	require.Error(t, err)
}

func TestClient_Apply_VolumeBoundedBySteps(t *testing.T) {
	f := newFakeDevice(t)
	f.SetValue("netRemote.sys.caps.volumeSteps", "<u8>32</u8>")
	f.SetValue("netRemote.sys.audio.volume", "<u8>5</u8>")
	c := f.client(t)

	_, err := c.Apply(context.Background(), OpVolume, wire.IntValue(200))
	var argErr *InvalidArgumentError
	require.ErrorAs(t, err, &argErr)
	require.Zero(t, f.Count("SET"))

	ok, err := c.Apply(context.Background(), OpVolume, wire.IntValue(31))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "<u8>31</u8>", f.Value("netRemote.sys.audio.volume"))
}

func TestClient_Apply_NavWritesEnableNavAndTrackPath(t *testing.T) {
	f := newFakeDevice(t)
	f.SetValue("netRemote.nav.state", "<u8>0</u8>")
	f.SetValue("netRemote.nav.action.navigate", "<u32>0</u32>")
	f.SetValue("netRemote.nav.action.selectPreset", "<u32>0</u32>")
	c := f.client(t)
	ctx := context.Background()

	ok, err := c.Apply(ctx, OpNavigate, wire.IntValue(3))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "<u8>1</u8>", f.Value("netRemote.nav.state"))
	require.Equal(t, []int{3}, c.NavPath())

	ok, err = c.Apply(ctx, OpNavigate, wire.IntValue(1<<32-1))
	require.NoError(t, err)
	require.True(t, ok)
	require.Empty(t, c.NavPath())

	ok, err = c.Apply(ctx, OpNavState, wire.BoolValue(false))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "<u8>0</u8>", f.Value("netRemote.nav.state"))

	ok, err = c.Apply(ctx, OpSelectPreset, wire.IntValue(2))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "<u8>1</u8>", f.Value("netRemote.nav.state"))
}
