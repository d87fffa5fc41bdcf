// Package fsapitest serves an in-memory FSAPI device for tests.
package fsapitest

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// PIN is the PIN every Device accepts.
const PIN = "1234"

// InterceptFunc may answer a request before the device does. ok=false lets
// the device handle it.
type InterceptFunc func(op, node string, r *http.Request) (code int, body string, ok bool)

// Device is an FSAPI device backed by maps. Values are stored as typed XML,
// e.g. "<u8>1</u8>". Sessions start at sid 123456.
type Device struct {
	srv *httptest.Server

	mu        sync.Mutex
	sid       string
	nextSID   int
	requests  []*url.URL
	values    map[string]string
	lists     map[string][]string
	notifies  [][]string
	intercept InterceptFunc
}

var typeTag = regexp.MustCompile(`^<(\w+)>`)

// NewDevice starts a device that is closed with the test.
func NewDevice(t testing.TB) *Device {
	t.Helper()

	d := &Device{
		nextSID: 123455,
		values:  make(map[string]string),
		lists:   make(map[string][]string),
	}
	d.srv = httptest.NewServer(http.HandlerFunc(d.serve))
	t.Cleanup(d.srv.Close)
	return d
}

// URL returns the server URL, e.g. http://127.0.0.1:1234.
func (d *Device) URL() string { return d.srv.URL }

// Addr returns the host:port the client should be configured with.
func (d *Device) Addr() string { return strings.TrimPrefix(d.srv.URL, "http://") }

// HTTPClient returns a client bound to the test server.
func (d *Device) HTTPClient() *http.Client { return d.srv.Client() }

func (d *Device) SetValue(node, typed string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.values[node] = typed
}

func (d *Device) Value(node string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.values[node]
}

// SetList stores list items; each item is keyed by its index.
func (d *Device) SetList(node string, items ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lists[node] = items
}

// QueueNotify adds one GET_NOTIFIES batch. With no batch queued the device
// answers FS_TIMEOUT.
func (d *Device) QueueNotify(notifies ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifies = append(d.notifies, notifies)
}

func (d *Device) SetIntercept(fn InterceptFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.intercept = fn
}

// Expire forgets the session so the next call with the old sid gets 404.
func (d *Device) Expire() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sid = ""
}

// Count returns how many requests started with op.
func (d *Device) Count(op string) int {
	return len(d.RequestsFor(op))
}

func (d *Device) RequestsFor(op string) []*url.URL {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []*url.URL
	for _, u := range d.requests {
		if strings.HasPrefix(u.Path, "/fsapi/"+op) {
			out = append(out, u)
		}
	}
	return out
}

func (d *Device) ResetCounts() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.requests = nil
}

func (d *Device) serve(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/device" {
		fmt.Fprintf(w, "<netRemote><friendlyName>Kitchen</friendlyName><webfsapi>%s/fsapi</webfsapi></netRemote>", d.srv.URL)
		return
	}

	u := *r.URL
	d.mu.Lock()
	d.requests = append(d.requests, &u)
	intercept := d.intercept
	d.mu.Unlock()

	rest := strings.TrimPrefix(r.URL.Path, "/fsapi/")
	op, node, _ := strings.Cut(rest, "/")
	q := r.URL.Query()

	if q.Get("pin") != PIN {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	if intercept != nil {
		if code, body, ok := intercept(op, node, r); ok {
			w.WriteHeader(code)
			io.WriteString(w, body)
			return
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if op == "CREATE_SESSION" {
		d.nextSID++
		d.sid = strconv.Itoa(d.nextSID)
		io.WriteString(w, Respond("FS_OK", "<sessionId>"+d.sid+"</sessionId>"))
		return
	}
	if d.sid == "" || q.Get("sid") != d.sid {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch op {
	case "DELETE_SESSION":
		d.sid = ""
		io.WriteString(w, Respond("FS_OK", ""))
	case "GET":
		typed, ok := d.values[node]
		if !ok {
			io.WriteString(w, Respond("FS_NODE_DOES_NOT_EXIST", ""))
			return
		}
		io.WriteString(w, Respond("FS_OK", "<value>"+typed+"</value>"))
	case "SET":
		tag := "u8"
		if m := typeTag.FindStringSubmatch(d.values[node]); m != nil {
			tag = m[1]
		}
		var escaped bytes.Buffer
		xml.EscapeText(&escaped, []byte(q.Get("value")))
		d.values[node] = "<" + tag + ">" + escaped.String() + "</" + tag + ">"
		io.WriteString(w, Respond("FS_OK", ""))
	case "LIST_GET_NEXT":
		i := strings.LastIndex(node, "/")
		start, _ := strconv.Atoi(node[i+1:])
		max, _ := strconv.Atoi(q.Get("maxItems"))
		io.WriteString(w, ListPage(d.lists[node[:i]], start, max))
	case "GET_NOTIFIES":
		if len(d.notifies) == 0 {
			io.WriteString(w, Respond("FS_TIMEOUT", ""))
			return
		}
		batch := d.notifies[0]
		d.notifies = d.notifies[1:]
		io.WriteString(w, Respond("FS_OK", strings.Join(batch, "")))
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

// ListPage serves items keyed by their index.
func ListPage(items []string, start, max int) string {
	var b strings.Builder
	end := start + 1 + max
	if end > len(items) {
		end = len(items)
	}
	for key := start + 1; key < end; key++ {
		fmt.Fprintf(&b, `<item key="%d">%s</item>`, key, items[key])
	}
	if end == len(items) {
		b.WriteString("<listend/>")
	}
	return Respond("FS_OK", b.String())
}

// Respond wraps body in an fsapiResponse with status.
func Respond(status, body string) string {
	return `<?xml version="1.0" encoding="UTF-8"?><fsapiResponse><status>` + status + `</status>` + body + `</fsapiResponse>`
}

func Field(name, typed string) string {
	return `<field name="` + name + `">` + typed + `</field>`
}

func Notify(node, typed string) string {
	return `<notify node="` + node + `"><value>` + typed + `</value></notify>`
}
