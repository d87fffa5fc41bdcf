package fsapi

import (
	"context"
	"fmt"
	"time"

	"github.com/strefethen/fsapi-hub-go/internal/fsapi/wire"
)

// Get reads a scalar capability and coerces it to the declared kind. Codes of
// enumerated capabilities carry their label.
func (c *Client) Get(ctx context.Context, op Operation) (wire.Value, error) {
	value, _, err := c.get(ctx, op)
	return value, err
}

func (c *Client) get(ctx context.Context, op Operation) (wire.Value, uint64, error) {
	capability, err := lookupFor(op)
	if err != nil {
		return wire.Value{}, 0, err
	}
	if capability.List {
		return wire.Value{}, 0, &InvalidArgumentError{Operation: op, Reason: "list capabilities are read with List"}
	}
	if !capability.Access.Readable() {
		return wire.Value{}, 0, &InvalidArgumentError{Operation: op, Reason: "capability is write-only"}
	}

	resp, gen, err := c.call(ctx, func(sid string) wire.Request {
		return wire.EncodeGet(capability.Node, c.pin, sid)
	}, false)
	if err != nil {
		return wire.Value{}, 0, err
	}
	if resp.Status != wire.StatusOK {
		return wire.Value{}, 0, &StatusError{Op: wire.OpGet, Node: capability.Node, Status: resp.Status, RawStatus: resp.RawStatus}
	}
	if resp.Value == nil {
		return wire.Value{}, 0, &ProtocolError{Node: capability.Node, Reason: "response carries no value"}
	}

	value, err := coerce(capability, *resp.Value)
	if err != nil {
		return wire.Value{}, 0, err
	}
	if capability.Labels != "" {
		value, err = c.label(ctx, capability, value)
		if err != nil {
			return wire.Value{}, 0, err
		}
	}
	return value, gen, nil
}

func coerce(capability Capability, value wire.Value) (wire.Value, error) {
	if value.Kind() == capability.Kind {
		return value, nil
	}
	if capability.Kind == wire.KindBool {
		if n, ok := value.Int(); ok {
			return wire.BoolValue(n != 0), nil
		}
	}
	return wire.Value{}, &UnexpectedResponseError{
		Operation: capability.Operation,
		Node:      capability.Node,
		Want:      capability.Kind,
		Got:       value.Kind(),
	}
}

func (c *Client) label(ctx context.Context, capability Capability, value wire.Value) (wire.Value, error) {
	code, _ := value.Int()
	items, err := c.cachedList(ctx, capability.Labels)
	if err != nil {
		return wire.Value{}, err
	}
	for _, item := range items {
		if int64(item.Key) == code {
			return value.WithLabel(item.Text("label")), nil
		}
	}
	return wire.Value{}, &UnexpectedResponseError{
		Operation: capability.Operation,
		Node:      capability.Node,
		Reason:    fmt.Sprintf("code %d is not in %s", code, capability.Labels),
	}
}

// Set writes a capability. It reports false when the device answers FS_FAIL.
func (c *Client) Set(ctx context.Context, op Operation, value wire.Value) (bool, error) {
	capability, err := lookupFor(op)
	if err != nil {
		return false, err
	}
	if err := capability.validate(value); err != nil {
		return false, err
	}
	encoded, err := value.Encode()
	if err != nil {
		return false, &InvalidArgumentError{Operation: op, Reason: err.Error()}
	}
	return c.setEncoded(ctx, capability, encoded)
}

// Apply writes op through the accessor that guards it: volume is bounded by
// the device's volume steps, preset and nav writes enable navigation first
// and keep the tracked nav path current. Other operations go straight to Set.
func (c *Client) Apply(ctx context.Context, op Operation, value wire.Value) (bool, error) {
	capability, err := lookupFor(op)
	if err != nil {
		return false, err
	}
	if err := capability.validate(value); err != nil {
		return false, err
	}

	n, _ := value.Int()
	switch op {
	case OpVolume:
		return c.SetVolume(ctx, n)
	case OpMode:
		return c.SetMode(ctx, int(n))
	case OpSelectPreset:
		return c.SelectPreset(ctx, int(n))
	case OpSelectItem:
		return c.NavSelectItem(ctx, int(n))
	case OpNavigate:
		if n == navParentKey {
			return c.NavSelectParent(ctx)
		}
		return c.NavSelectFolder(ctx, int(n))
	case OpNavState:
		if on, _ := value.Bool(); !on {
			return c.NavReset(ctx)
		}
		if err := c.NavEnable(ctx); err != nil {
			return false, err
		}
		return true, nil
	}
	return c.Set(ctx, op, value)
}

func (c *Client) setEncoded(ctx context.Context, capability Capability, encoded string) (bool, error) {
	resp, _, err := c.call(ctx, func(sid string) wire.Request {
		return wire.EncodeSetRaw(capability.Node, encoded, c.pin, sid)
	}, false)
	if err != nil {
		return false, err
	}

	switch resp.Status {
	case wire.StatusOK:
		c.settle(ctx, capability.Slow)
		return true, nil
	case wire.StatusFail:
		return false, nil
	default:
		return false, &StatusError{Op: wire.OpSet, Node: capability.Node, Status: resp.Status, RawStatus: resp.RawStatus}
	}
}

// settle gives the device time to apply a SET before the next command.
func (c *Client) settle(ctx context.Context, slow bool) {
	delay := c.setSettle
	if slow {
		delay = c.slowSettle
	}
	if delay <= 0 {
		return
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

func rangeReason(n int64, r Range) string {
	return fmt.Sprintf("%d is outside [%d, %d]", n, r.Min, r.Max)
}
