package fsapi

import (
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/strefethen/fsapi-hub-go/internal/fsapi/fsapitest"
)

var (
	respond = fsapitest.Respond
	field   = fsapitest.Field
	notify  = fsapitest.Notify
)

type fakeDevice struct {
	*fsapitest.Device
}

func newFakeDevice(t *testing.T) *fakeDevice {
	t.Helper()
	return &fakeDevice{Device: fsapitest.NewDevice(t)}
}

func (f *fakeDevice) client(t *testing.T, mutate ...func(*Options)) *Client {
	t.Helper()

	opts := Options{
		DeviceURL:  f.Addr(),
		PIN:        fsapitest.PIN,
		HTTPClient: f.HTTPClient(),
	}
	for _, m := range mutate {
		m(&opts)
	}
	c, err := NewClient(opts)
	require.NoError(t, err)
	return c
}

// countingDoer records requests and answers from a script.
type countingDoer struct {
	calls   atomic.Int32
	mu      sync.Mutex
	urls    []string
	respond func(*http.Request) (int, string)
}

func (d *countingDoer) Do(r *http.Request) (*http.Response, error) {
	d.calls.Add(1)
	d.mu.Lock()
	d.urls = append(d.urls, r.URL.String())
	d.mu.Unlock()

	code, body := http.StatusOK, respond("FS_OK", "")
	if d.respond != nil {
		code, body = d.respond(r)
	}
	return &http.Response{
		StatusCode: code,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
		Request:    r,
	}, nil
}
