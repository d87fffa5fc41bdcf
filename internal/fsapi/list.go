package fsapi

import (
	"context"
	"fmt"

	"github.com/strefethen/fsapi-hub-go/internal/fsapi/wire"
)

// List reads every item of a list capability.
func (c *Client) List(ctx context.Context, op Operation) ([]wire.ListItem, error) {
	capability, err := lookupFor(op)
	if err != nil {
		return nil, err
	}
	if !capability.List {
		return nil, &InvalidArgumentError{Operation: op, Reason: "not a list capability"}
	}
	items, _, err := c.getList(ctx, capability.Node)
	return items, err
}

// GetList pages through a list node with LIST_GET_NEXT until the device
// reports the end.
func (c *Client) GetList(ctx context.Context, node string) ([]wire.ListItem, error) {
	items, _, err := c.getList(ctx, node)
	return items, err
}

func (c *Client) getList(ctx context.Context, node string) ([]wire.ListItem, uint64, error) {
	var (
		items []wire.ListItem
		gen   uint64
	)
	start := -1

	for page := 0; ; page++ {
		if page == c.maxPages {
			return nil, 0, &ProtocolError{Node: node, Reason: fmt.Sprintf("list did not end within %d pages", c.maxPages)}
		}

		resp, g, err := c.call(ctx, func(sid string) wire.Request {
			return wire.EncodeListGetNext(node, start, c.pageSize, c.pin, sid)
		}, false)
		if err != nil {
			return nil, 0, err
		}
		gen = g

		switch resp.Status {
		case wire.StatusOK, wire.StatusListEnd:
		case wire.StatusFail:
			// Firmware answers FS_FAIL when asked past the last item.
			return items, gen, nil
		default:
			return nil, 0, &StatusError{Op: wire.OpListGetNext, Node: node, Status: resp.Status, RawStatus: resp.RawStatus}
		}

		if len(resp.Items) == 0 {
			return items, gen, nil
		}
		last := resp.Items[len(resp.Items)-1].Key
		if last <= start {
			return nil, 0, &ProtocolError{Node: node, Reason: fmt.Sprintf("page after key %d did not advance (last key %d)", start, last)}
		}
		items = append(items, resp.Items...)

		if resp.ListEnd || resp.Status == wire.StatusListEnd {
			return items, gen, nil
		}
		start = last
	}
}

// cachedList returns a list capability from the session cache, fetching it
// once for concurrent callers.
func (c *Client) cachedList(ctx context.Context, op Operation) ([]wire.ListItem, error) {
	capability, err := lookupFor(op)
	if err != nil {
		return nil, err
	}
	if items, ok := c.cache.list(c.session.Generation(), capability.Node); ok {
		return items, nil
	}

	v, err, _ := c.lists.Do(capability.Node, func() (any, error) {
		items, gen, err := c.getList(ctx, capability.Node)
		if err != nil {
			return nil, err
		}
		c.cache.storeList(gen, capability.Node, items)
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]wire.ListItem), nil
}
