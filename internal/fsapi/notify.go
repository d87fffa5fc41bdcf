package fsapi

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/strefethen/fsapi-hub-go/internal/fsapi/wire"
)

// NotifyResult is the outcome of Notify. TimedOut is a normal outcome.
type NotifyResult struct {
	Value    wire.Value
	TimedOut bool
}

// Notify long-polls GET_NOTIFIES until node changes or timeout elapses.
// Cancelling ctx abandons the wait; the session stays valid.
func (c *Client) Notify(ctx context.Context, node string, timeout time.Duration) (NotifyResult, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		notifications, timedOut, err := c.notifies(waitCtx)
		if err != nil {
			if ctx.Err() != nil {
				return NotifyResult{}, ctx.Err()
			}
			if errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
				return NotifyResult{TimedOut: true}, nil
			}
			return NotifyResult{}, err
		}
		if timedOut {
			return NotifyResult{TimedOut: true}, nil
		}
		for _, n := range notifications {
			if equalNode(n.Node, node) {
				return NotifyResult{Value: n.Value}, nil
			}
		}
	}
}

// Notifies performs one GET_NOTIFIES round and returns whatever changed.
// A device-side timeout yields an empty slice.
func (c *Client) Notifies(ctx context.Context) ([]wire.Notification, error) {
	notifications, _, err := c.notifies(ctx)
	return notifications, err
}

func (c *Client) notifies(ctx context.Context) ([]wire.Notification, bool, error) {
	resp, _, err := c.call(ctx, func(sid string) wire.Request {
		return wire.EncodeGetNotifies(c.pin, sid)
	}, true)
	if err != nil {
		return nil, false, err
	}

	switch resp.Status {
	case wire.StatusOK:
		for i, n := range resp.Notifications {
			resp.Notifications[i].Value = normalize(n.Node, n.Value)
		}
		return resp.Notifications, false, nil
	case wire.StatusTimeout:
		return []wire.Notification{}, true, nil
	default:
		return nil, false, &StatusError{Op: wire.OpGetNotifies, Status: resp.Status, RawStatus: resp.RawStatus}
	}
}

// normalize converts boolean nodes the device reports as integers.
func normalize(node string, value wire.Value) wire.Value {
	op, ok := OperationForNode(node)
	if !ok {
		return value
	}
	capability, _ := Lookup(op)
	if capability.List {
		return value
	}
	if coerced, err := coerce(capability, value); err == nil {
		return coerced
	}
	return value
}

// equalNode compares node paths; GET_NOTIFIES reports them in lower case.
func equalNode(a, b string) bool {
	return strings.EqualFold(a, b)
}
