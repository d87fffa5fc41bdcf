package wire

import (
	"net/url"
	"strconv"
	"strings"
)

// Request describes a single FSAPI call independent of the device address.
type Request struct {
	Op    Op
	Node  string
	Path  string
	Query url.Values
}

// URL renders the request against a webfsapi base such as http://host/fsapi.
// Query parameters are sorted by key.
func (r Request) URL(base string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(base, "/"))
	b.WriteString("/")
	b.WriteString(r.Path)
	if len(r.Query) > 0 {
		b.WriteString("?")
		b.WriteString(r.Query.Encode())
	}
	return b.String()
}

// SessionID returns the sid parameter carried by the request.
func (r Request) SessionID() string {
	return r.Query.Get("sid")
}

func newRequest(op Op, node, path, pin, sid string) Request {
	query := url.Values{}
	query.Set("pin", pin)
	if sid != "" {
		query.Set("sid", sid)
	}
	return Request{Op: op, Node: node, Path: path, Query: query}
}

// EncodeCreateSession builds the authentication handshake.
func EncodeCreateSession(pin string) Request {
	return newRequest(OpCreateSession, "", string(OpCreateSession), pin, "")
}

// EncodeDeleteSession builds a request releasing the session on the device.
func EncodeDeleteSession(pin, sid string) Request {
	return newRequest(OpDeleteSession, "", string(OpDeleteSession), pin, sid)
}

// EncodeGet builds a read of a single node.
func EncodeGet(node, pin, sid string) Request {
	return newRequest(OpGet, node, string(OpGet)+"/"+node, pin, sid)
}

// EncodeSet builds a write of a single node.
func EncodeSet(node string, value Value, pin, sid string) (Request, error) {
	encoded, err := value.Encode()
	if err != nil {
		return Request{}, err
	}
	return EncodeSetRaw(node, encoded, pin, sid), nil
}

// EncodeSetRaw builds a write with a pre-rendered value. Used for the few
// commands whose wire form is not a plain decimal, e.g. 0xffffffff.
func EncodeSetRaw(node, value, pin, sid string) Request {
	req := newRequest(OpSet, node, string(OpSet)+"/"+node, pin, sid)
	req.Query.Set("value", value)
	return req
}

// EncodeListGetNext builds a request for the page of items following key start.
// The first page uses start -1.
func EncodeListGetNext(node string, start, maxItems int, pin, sid string) Request {
	path := string(OpListGetNext) + "/" + node + "/" + strconv.Itoa(start)
	req := newRequest(OpListGetNext, node, path, pin, sid)
	req.Query.Set("maxItems", strconv.Itoa(maxItems))
	return req
}

// EncodeGetNotifies builds a long-poll for pending change notifications.
func EncodeGetNotifies(pin, sid string) Request {
	return newRequest(OpGetNotifies, "", string(OpGetNotifies), pin, sid)
}
