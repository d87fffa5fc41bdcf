package fsapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/strefethen/fsapi-hub-go/internal/fsapi/wire"
)

const (
	DefaultTimeout      = 15 * time.Second
	DefaultListPageSize = 50
	DefaultMaxListPages = 100
)

// Doer is the HTTP transport used by the client. *http.Client satisfies it.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Options configures a Client.
type Options struct {
	// DeviceURL is host[:port][/path] or a full URL; /fsapi is appended.
	DeviceURL string
	PIN       string
	// Timeout bounds every call except GET_NOTIFIES long-polls.
	Timeout    time.Duration
	HTTPClient Doer
	Logger     zerolog.Logger
	// ResolveEndpoint reads the webfsapi URL from the device descriptor in Create.
	ResolveEndpoint bool
	ListPageSize    int
	MaxListPages    int
	SetSettle       time.Duration
	SlowSetSettle   time.Duration
}

// Client talks FSAPI to one device. It is safe for concurrent use; calls are
// not serialized, only authentication is.
type Client struct {
	deviceURL string
	base      string
	pin       string
	timeout   time.Duration
	http      Doer
	log       zerolog.Logger

	pageSize   int
	maxPages   int
	setSettle  time.Duration
	slowSettle time.Duration

	session *session
	cache   *sessionCache
	lists   singleflight.Group

	navMu   sync.Mutex
	navPath []int
}

// NewClient returns a client that authenticates lazily on the first call.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.DeviceURL) == "" {
		return nil, errors.New("fsapi: device URL is required")
	}

	c := &Client{
		deviceURL:  opts.DeviceURL,
		base:       BaseURL(opts.DeviceURL),
		pin:        opts.PIN,
		timeout:    opts.Timeout,
		http:       opts.HTTPClient,
		log:        opts.Logger.With().Str("component", "fsapi").Logger(),
		pageSize:   opts.ListPageSize,
		maxPages:   opts.MaxListPages,
		setSettle:  opts.SetSettle,
		slowSettle: opts.SlowSetSettle,
		cache:      newSessionCache(),
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.http == nil {
		c.http = newHTTPClient(c.timeout)
	}
	if c.pageSize <= 0 {
		c.pageSize = DefaultListPageSize
	}
	if c.maxPages <= 0 {
		c.maxPages = DefaultMaxListPages
	}
	c.session = newSession(c.createSession, c.cache.Invalidate)
	return c, nil
}

// Create builds a client and authenticates before returning it.
func Create(ctx context.Context, opts Options) (*Client, error) {
	c, err := NewClient(opts)
	if err != nil {
		return nil, err
	}
	if opts.ResolveEndpoint {
		base, err := ResolveWebFSAPI(ctx, c.http, opts.DeviceURL)
		if err != nil {
			return nil, err
		}
		c.base = base
	}
	if _, _, err := c.session.Ensure(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// newHTTPClient pools connections to the device. There is no Client.Timeout:
// deadlines come from the request context so long-polls can outlive Timeout.
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext:         (&net.Dialer{Timeout: timeout}).DialContext,
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// BaseURL returns the webfsapi root for a device address.
func BaseURL(deviceURL string) string {
	base := strings.TrimRight(strings.TrimSpace(deviceURL), "/")
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return base + "/fsapi"
}

// Base returns the webfsapi root requests are sent to.
func (c *Client) Base() string {
	return c.base
}

// State reports the session state.
func (c *Client) State() SessionState {
	return c.session.State()
}

// Close releases the session on the device. The client stays usable and
// will authenticate again on the next call.
func (c *Client) Close(ctx context.Context) error {
	c.resetNavPath()
	id, wasActive := c.session.Clear()
	if !wasActive || id == "" {
		return nil
	}

	resp, err := c.roundTrip(ctx, wire.EncodeDeleteSession(c.pin, id), false)
	if errors.Is(err, errInvalidSession) {
		return nil
	}
	if err != nil {
		return err
	}
	if !resp.Status.IsOK() && !resp.Status.IsSessionInvalid() {
		return &StatusError{Op: wire.OpDeleteSession, Status: resp.Status, RawStatus: resp.RawStatus}
	}
	return nil
}

func (c *Client) createSession(ctx context.Context) (string, error) {
	resp, err := c.roundTrip(ctx, wire.EncodeCreateSession(c.pin), false)
	if err != nil {
		var authErr *AuthenticationError
		if errors.As(err, &authErr) {
			return "", err
		}
		return "", &AuthenticationError{Op: wire.OpCreateSession, Reason: "session handshake failed", Err: err}
	}
	if resp.Status != wire.StatusOK {
		return "", &AuthenticationError{Op: wire.OpCreateSession, Reason: "device answered " + resp.RawStatus}
	}
	if resp.SessionID == "" {
		return "", &AuthenticationError{Op: wire.OpCreateSession, Reason: "response carries no session id"}
	}

	c.log.Debug().Str("sid", resp.SessionID).Msg("session created")
	return resp.SessionID, nil
}

// call sends the request built for the current session id. An invalid-session
// answer re-authenticates once and retries; a second one is fatal.
func (c *Client) call(ctx context.Context, build func(sid string) wire.Request, longPoll bool) (*wire.Response, uint64, error) {
	for attempt := 0; ; attempt++ {
		sid, gen, err := c.session.Ensure(ctx)
		if err != nil {
			return nil, 0, err
		}

		req := build(sid)
		resp, err := c.roundTrip(ctx, req, longPoll)
		invalid := errors.Is(err, errInvalidSession) || (err == nil && resp.Status.IsSessionInvalid())
		if !invalid {
			return resp, gen, err
		}

		c.session.Expire(gen)
		if attempt > 0 {
			return nil, 0, &AuthenticationError{Op: req.Op, Reason: "session rejected after re-authentication"}
		}
		c.log.Warn().Str("op", string(req.Op)).Str("node", req.Node).Msg("session expired, re-authenticating")
	}
}

func (c *Client) roundTrip(ctx context.Context, req wire.Request, longPoll bool) (*wire.Response, error) {
	if !longPoll {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL(c.base), nil)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	c.log.Debug().
		Str("op", string(req.Op)).
		Str("node", req.Node).
		Int("status", httpResp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("fsapi call")

	switch httpResp.StatusCode {
	case http.StatusOK:
	case http.StatusForbidden:
		return nil, &AuthenticationError{Op: req.Op, Reason: "device rejected the PIN"}
	case http.StatusNotFound:
		if req.Op.RequiresSession() && req.SessionID() != "" {
			return nil, errInvalidSession
		}
		return nil, &ProtocolError{Node: req.Node, Reason: "webfsapi endpoint not found (HTTP 404)"}
	default:
		return nil, &ProtocolError{Node: req.Node, Reason: fmt.Sprintf("unexpected HTTP status %d", httpResp.StatusCode)}
	}

	payload, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	resp, err := wire.DecodeResponse(payload)
	if err != nil {
		var protoErr *ProtocolError
		if errors.As(err, &protoErr) && protoErr.Node == "" {
			protoErr.Node = req.Node
		}
		return nil, err
	}
	return resp, nil
}
