package fsapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func numberedItems(n int) []string {
	items := make([]string, n)
	for i := range items {
		items[i] = field("name", "<c8_array>item "+strconv.Itoa(i)+"</c8_array>")
	}
	return items
}

func TestClient_GetList_Paginates(t *testing.T) {
	tests := []struct {
		name      string
		items     int
		pageSize  int
		wantCalls int
		wantStart []string
	}{
		{"partial last page", 7, 3, 3, []string{"-1", "2", "5"}},
		{"exact multiple", 6, 3, 2, []string{"-1", "2"}},
		{"single page", 4, 50, 1, []string{"-1"}},
		{"empty list", 0, 50, 1, []string{"-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeDevice(t)
			f.SetList("netRemote.nav.list", numberedItems(tt.items)...)
			c := f.client(t, func(o *Options) { o.ListPageSize = tt.pageSize })

			items, err := c.GetList(context.Background(), "netRemote.nav.list")
			require.NoError(t, err)
			require.Len(t, items, tt.items)
			for i, item := range items {
				require.Equal(t, i, item.Key)
				require.Equal(t, "item "+strconv.Itoa(i), item.Text("name"))
			}

			reqs := f.RequestsFor("LIST_GET_NEXT")
			require.Len(t, reqs, tt.wantCalls)
			for i, u := range reqs {
				require.True(t, strings.HasSuffix(u.Path, "/"+tt.wantStart[i]), u.Path)
				require.Equal(t, strconv.Itoa(tt.pageSize), u.Query().Get("maxItems"))
			}
		})
	}
}

func TestClient_GetList_NeverEndingListFails(t *testing.T) {
	f := newFakeDevice(t)
	f.SetIntercept(func(op, node string, r *http.Request) (int, string, bool) {
		if op != "LIST_GET_NEXT" {
			return 0, "", false
		}
		start, _ := strconv.Atoi(node[strings.LastIndex(node, "/")+1:])
		body := fmt.Sprintf(`<item key="%d">%s</item>`, start+1, field("name", "<c8_array>x</c8_array>"))
		return http.StatusOK, respond("FS_OK", body), true
	})
	c := f.client(t, func(o *Options) { o.MaxListPages = 5 })

	_, err := c.GetList(context.Background(), "netRemote.nav.list")
	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
	require.Equal(t, "netRemote.nav.list", protoErr.Node)
	require.Equal(t, 5, f.Count("LIST_GET_NEXT"))
}

func TestClient_GetList_KeysMustAdvance(t *testing.T) {
	f := newFakeDevice(t)
	f.SetIntercept(func(op, node string, r *http.Request) (int, string, bool) {
		if op != "LIST_GET_NEXT" {
			return 0, "", false
		}
		return http.StatusOK, respond("FS_OK", `<item key="0"><field name="name"><c8_array>x</c8_array></field></item>`), true
	})
	c := f.client(t)

	_, err := c.GetList(context.Background(), "netRemote.nav.list")
	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
	require.Equal(t, 2, f.Count("LIST_GET_NEXT"))
}

func TestClient_GetList_FailEndsList(t *testing.T) {
	f := newFakeDevice(t)
	f.SetIntercept(func(op, node string, r *http.Request) (int, string, bool) {
		if op != "LIST_GET_NEXT" {
			return 0, "", false
		}
		if strings.HasSuffix(node, "/-1") {
			return http.StatusOK, respond("FS_OK", `<item key="0"><field name="name"><c8_array>a</c8_array></field></item><item key="1"><field name="name"><c8_array>b</c8_array></field></item>`), true
		}
		return http.StatusOK, respond("FS_FAIL", ""), true
	})
	c := f.client(t)

	items, err := c.GetList(context.Background(), "netRemote.nav.presets")
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, 2, f.Count("LIST_GET_NEXT"))
}

func TestClient_GetList_ListEndStatus(t *testing.T) {
	f := newFakeDevice(t)
	f.SetIntercept(func(op, node string, r *http.Request) (int, string, bool) {
		if op != "LIST_GET_NEXT" {
			return 0, "", false
		}
		return http.StatusOK, respond("FS_LIST_END", `<item key="4"><field name="name"><c8_array>z</c8_array></field></item>`), true
	})
	c := f.client(t)

	items, err := c.GetList(context.Background(), "netRemote.nav.list")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 4, items[0].Key)
}

func TestClient_List_RejectsScalarCapability(t *testing.T) {
	doer := &countingDoer{}
	c, err := NewClient(Options{DeviceURL: "10.0.0.9", PIN: "1234", HTTPClient: doer})
	require.NoError(t, err)

	_, err = c.List(context.Background(), OpVolume)
	var argErr *InvalidArgumentError
	require.ErrorAs(t, err, &argErr)
	require.Zero(t, doer.calls.Load())
}

func TestClient_GetModes(t *testing.T) {
	f := newFakeDevice(t)
	f.SetList("netRemote.sys.caps.validModes", modeItems()...)
	c := f.client(t)

	modes, err := c.GetModes(context.Background())
	require.NoError(t, err)
	require.Equal(t, []PlayerMode{
		{Key: 0, ID: "IR", Label: "Internet radio", Selectable: true},
		{Key: 1, ID: "FM", Label: "FM", Selectable: true},
		{Key: 2, ID: "AUX", Label: "AUX in"},
	}, modes)
}
