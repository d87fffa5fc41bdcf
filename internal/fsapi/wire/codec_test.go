package wire

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeGet_URL(t *testing.T) {
	req := EncodeGet("netRemote.sys.power", "1234", "123456")

	require.Equal(t, OpGet, req.Op)
	require.Equal(t, "netRemote.sys.power", req.Node)
	require.Equal(t,
		"http://192.168.1.50:80/device/fsapi/GET/netRemote.sys.power?pin=1234&sid=123456",
		req.URL("http://192.168.1.50:80/device/fsapi/"))
}

func TestEncodeCreateSession_NoSID(t *testing.T) {
	req := EncodeCreateSession("1234")

	require.Equal(t, "http://radio/fsapi/CREATE_SESSION?pin=1234", req.URL("http://radio/fsapi"))
	require.Empty(t, req.SessionID())
	require.False(t, req.Op.RequiresSession())
}

func TestEncodeSet_ValueKinds(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		want  string
	}{
		{name: "bool true", value: BoolValue(true), want: "1"},
		{name: "bool false", value: BoolValue(false), want: "0"},
		{name: "int", value: IntValue(-12), want: "-12"},
		{name: "string escaped", value: TextValue("Küche & Bad"), want: "K%C3%BCche+%26+Bad"},
		{name: "bytes escaped", value: BytesValue([]byte("a/b")), want: "a%2Fb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := EncodeSet("netRemote.x", tt.value, "1234", "99")
			require.NoError(t, err)
			require.Equal(t, "http://r/fsapi/SET/netRemote.x?pin=1234&sid=99&value="+tt.want, req.URL("http://r/fsapi"))
		})
	}
}

func TestEncodeSet_InvalidValue(t *testing.T) {
	_, err := EncodeSet("netRemote.x", Value{}, "1234", "99")
	require.Error(t, err)
}

func TestEncodeListGetNext(t *testing.T) {
	req := EncodeListGetNext("netRemote.sys.caps.validModes", -1, 50, "1234", "7")

	require.Equal(t,
		"http://r/fsapi/LIST_GET_NEXT/netRemote.sys.caps.validModes/-1?maxItems=50&pin=1234&sid=7",
		req.URL("http://r/fsapi"))
}

func TestDecodeResponse_ScalarTypes(t *testing.T) {
	tests := []struct {
		name string
		body string
		kind Kind
		want any
	}{
		{name: "u8", body: "<u8>1</u8>", kind: KindInt, want: int64(1)},
		{name: "u16", body: "<u16>65535</u16>", kind: KindInt, want: int64(65535)},
		{name: "u32", body: "<u32> 4294967295 </u32>", kind: KindInt, want: int64(4294967295)},
		{name: "s8", body: "<s8>-14</s8>", kind: KindInt, want: int64(-14)},
		{name: "s32", body: "<s32>-1</s32>", kind: KindInt, want: int64(-1)},
		{name: "c8_array", body: "<c8_array>Kitchen Radio</c8_array>", kind: KindString, want: "Kitchen Radio"},
		{name: "empty c8_array", body: "<c8_array></c8_array>", kind: KindString, want: ""},
		{name: "array", body: "<array>abc</array>", kind: KindBytes, want: []byte("abc")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := "<fsapiResponse><status>FS_OK</status><value>" + tt.body + "</value></fsapiResponse>"
			resp, err := DecodeResponse([]byte(raw))
			require.NoError(t, err)
			require.Equal(t, StatusOK, resp.Status)
			require.NotNil(t, resp.Value)
			require.Equal(t, tt.kind, resp.Value.Kind())
			require.Equal(t, tt.want, resp.Value.Interface())
		})
	}
}

func TestDecodeResponse_UnknownTypeIsProtocolError(t *testing.T) {
	raw := `<fsapiResponse><status>FS_OK</status><value><f64>1.5</f64></value></fsapiResponse>`

	_, err := DecodeResponse([]byte(raw))

	var protoErr *ProtocolError
	require.True(t, errors.As(err, &protoErr))
	require.Contains(t, protoErr.Error(), "f64")
}

func TestDecodeResponse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not xml", body: "this is not xml"},
		{name: "no status", body: "<fsapiResponse><value><u8>1</u8></value></fsapiResponse>"},
		{name: "u8 overflow", body: "<fsapiResponse><status>FS_OK</status><value><u8>300</u8></value></fsapiResponse>"},
		{name: "two children", body: "<fsapiResponse><status>FS_OK</status><value><u8>1</u8><u8>2</u8></value></fsapiResponse>"},
		{name: "bad key", body: `<fsapiResponse><status>FS_OK</status><item key="x"></item></fsapiResponse>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeResponse([]byte(tt.body))
			var protoErr *ProtocolError
			require.ErrorAs(t, err, &protoErr)
		})
	}
}

func TestDecodeResponse_Statuses(t *testing.T) {
	tests := []struct {
		raw  string
		want Status
	}{
		{raw: "FS_OK", want: StatusOK},
		{raw: "FS_FAIL", want: StatusFail},
		{raw: "FS_NODE_DOES_NOT_EXIST", want: StatusNodeDoesNotExist},
		{raw: "FS_NODE_BLOCKED", want: StatusNodeBlocked},
		{raw: "FS_TIMEOUT", want: StatusTimeout},
		{raw: "FS_SESSION_EXPIRED", want: StatusSessionExpired},
		{raw: "INVALID_SESSION", want: StatusInvalidSession},
		{raw: "FS_PACKET_BAD", want: StatusPacketBad},
		{raw: "FS_LIST_END", want: StatusListEnd},
		{raw: "FS_SOMETHING_NEW", want: StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			resp, err := DecodeResponse([]byte("<fsapiResponse><status>" + tt.raw + "</status></fsapiResponse>"))
			require.NoError(t, err)
			require.Equal(t, tt.want, resp.Status)
			require.Equal(t, tt.raw, resp.RawStatus)
		})
	}
}

func TestDecodeResponse_FailIgnoresPayload(t *testing.T) {
	// A payload on a failed response is never interpreted, even if malformed.
	raw := `<fsapiResponse><status>FS_FAIL</status><value><bogus>1</bogus></value></fsapiResponse>`

	resp, err := DecodeResponse([]byte(raw))
	require.NoError(t, err)
	require.Equal(t, StatusFail, resp.Status)
	require.Nil(t, resp.Value)
}

func TestDecodeResponse_SessionID(t *testing.T) {
	raw := `<fsapiResponse><status>FS_OK</status><sessionId>123456</sessionId></fsapiResponse>`

	resp, err := DecodeResponse([]byte(raw))
	require.NoError(t, err)
	require.Equal(t, "123456", resp.SessionID)
}

func TestDecodeResponse_ListPreservesOrder(t *testing.T) {
	raw := `<?xml version="1.0" encoding="UTF-8"?>
<fsapiResponse>
  <status>FS_OK</status>
  <item key="3">
    <field name="id"><c8_array>IR</c8_array></field>
    <field name="selectable"><u8>1</u8></field>
    <field name="label"><c8_array>Internet radio</c8_array></field>
  </item>
  <item key="0">
    <field name="id"><c8_array>FM</c8_array></field>
    <field name="label"><c8_array>FM</c8_array></field>
    <field name="unused"></field>
  </item>
  <listend/>
</fsapiResponse>`

	resp, err := DecodeResponse([]byte(raw))
	require.NoError(t, err)
	require.True(t, resp.ListEnd)
	require.Len(t, resp.Items, 2)

	require.Equal(t, 3, resp.Items[0].Key)
	require.Equal(t, "Internet radio", resp.Items[0].Text("label"))
	selectable, ok := resp.Items[0].Int("selectable")
	require.True(t, ok)
	require.Equal(t, int64(1), selectable)

	require.Equal(t, 0, resp.Items[1].Key)
	require.Equal(t, "FM", resp.Items[1].Text("id"))
	require.NotContains(t, resp.Items[1].Fields, "unused")
}

func TestDecodeResponse_Notifications(t *testing.T) {
	raw := `<fsapiResponse><status>FS_OK</status>
<notify node="netremote.sys.audio.volume"><value><u8>7</u8></value></notify>
<notify node="netremote.play.info.text"><value><c8_array>News</c8_array></value></notify>
</fsapiResponse>`

	resp, err := DecodeResponse([]byte(raw))
	require.NoError(t, err)
	require.Len(t, resp.Notifications, 2)
	require.Equal(t, "netremote.sys.audio.volume", resp.Notifications[0].Node)
	require.True(t, resp.Notifications[0].Value.Equal(IntValue(7)))
	require.Equal(t, TypeU8, resp.Notifications[0].Value.Type())
	require.Equal(t, "News", resp.Notifications[1].Value.Interface())
}

func TestDecodeResponse_Latin1(t *testing.T) {
	raw := append([]byte(`<?xml version="1.0" encoding="ISO-8859-1"?><fsapiResponse><status>FS_OK</status><value><c8_array>K`),
		0xfc, 'c', 'h', 'e')
	raw = append(raw, []byte(`</c8_array></value></fsapiResponse>`)...)

	resp, err := DecodeResponse(raw)
	require.NoError(t, err)
	require.Equal(t, "Küche", resp.Value.Interface())
}

func TestDecodeResponse_IsPure(t *testing.T) {
	raw := []byte(`<fsapiResponse><status>FS_OK</status><value><u32>42</u32></value></fsapiResponse>`)

	first, err := DecodeResponse(raw)
	require.NoError(t, err)
	second, err := DecodeResponse(raw)
	require.NoError(t, err)

	require.Equal(t, first, second)
}
