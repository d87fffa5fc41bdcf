package radio

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/strefethen/fsapi-hub-go/internal/api"
	"github.com/strefethen/fsapi-hub-go/internal/apperrors"
	"github.com/strefethen/fsapi-hub-go/internal/audit"
	"github.com/strefethen/fsapi-hub-go/internal/auth"
	"github.com/strefethen/fsapi-hub-go/internal/fsapi"
	"github.com/strefethen/fsapi-hub-go/internal/fsapi/wire"
)

// MaxNotifyTimeout caps the long poll a client may request.
const MaxNotifyTimeout = 5 * time.Minute

// Routes serves the radio API for one device.
type Routes struct {
	client        *fsapi.Client
	feed          *Feed
	hub           *Hub
	watcher       *Watcher
	notifyTimeout time.Duration
}

func NewRoutes(client *fsapi.Client, feed *Feed, hub *Hub, notifyTimeout time.Duration) *Routes {
	if notifyTimeout <= 0 {
		notifyTimeout = 30 * time.Second
	}
	return &Routes{client: client, feed: feed, hub: hub, notifyTimeout: notifyTimeout}
}

// WithWatcher makes notify wait on the watcher's events. The device hands each
// change to a single GET_NOTIFIES caller, so a second poller would steal them.
func (rt *Routes) WithWatcher(w *Watcher) *Routes {
	rt.watcher = w
	return rt
}

// RegisterRoutes wires radio routes to the router.
func RegisterRoutes(router chi.Router, rt *Routes) {
	control := func(h api.Handler) http.Handler { return auth.RequireControl(h) }

	router.Method(http.MethodGet, "/v1/radio", api.Handler(rt.summary))
	router.Method(http.MethodGet, "/v1/radio/capabilities", api.Handler(rt.capabilities))
	router.Method(http.MethodGet, "/v1/radio/attributes/{op}", api.Handler(rt.getAttribute))
	router.Method(http.MethodPut, "/v1/radio/attributes/{op}", control(rt.setAttribute))

	router.Method(http.MethodGet, "/v1/radio/modes", api.Handler(rt.modes))
	router.Method(http.MethodGet, "/v1/radio/equalisers", api.Handler(rt.equalisers))
	router.Method(http.MethodGet, "/v1/radio/presets", api.Handler(rt.presets))
	router.Method(http.MethodPost, "/v1/radio/presets/{key}/select", control(rt.selectPreset))
	router.Method(http.MethodPost, "/v1/radio/control/{action}", control(rt.playControl))

	router.Method(http.MethodGet, "/v1/radio/nav", api.Handler(rt.navList))
	router.Method(http.MethodDelete, "/v1/radio/nav", control(rt.navReset))
	router.Method(http.MethodPost, "/v1/radio/nav/parent", control(rt.navParent))
	router.Method(http.MethodPost, "/v1/radio/nav/folders/{key}", control(rt.navFolder))
	router.Method(http.MethodPost, "/v1/radio/nav/items/{key}", control(rt.navItem))
	router.Method(http.MethodPost, "/v1/radio/nav/select", control(rt.navSelectPath))

	router.Method(http.MethodGet, "/v1/radio/notify", api.Handler(rt.notify))
	if rt.hub != nil {
		router.Handle("/v1/radio/stream", rt.hub)
	}
}

// GET /v1/radio
func (rt *Routes) summary(w http.ResponseWriter, r *http.Request) error {
	var (
		name   string
		power  bool
		volume int64
		mute   bool
		mode   fsapi.PlayerMode
		status fsapi.PlayState
	)

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) { name, err = rt.client.GetFriendlyName(ctx); return })
	g.Go(func() (err error) { power, err = rt.client.GetPower(ctx); return })
	g.Go(func() (err error) { volume, err = rt.client.GetVolume(ctx); return })
	g.Go(func() (err error) { mute, err = rt.client.GetMute(ctx); return })
	g.Go(func() (err error) { mode, err = rt.client.GetMode(ctx); return })
	g.Go(func() (err error) { status, err = rt.client.GetPlayStatus(ctx); return })
	if err := g.Wait(); err != nil {
		return deviceError(err)
	}

	return api.WriteResource(w, http.StatusOK, map[string]any{
		"object":        "radio",
		"friendly_name": name,
		"power":         power,
		"volume":        volume,
		"mute":          mute,
		"mode":          mode,
		"play_status":   status.String(),
		"session":       rt.client.State().String(),
	})
}

// GET /v1/radio/capabilities
func (rt *Routes) capabilities(w http.ResponseWriter, r *http.Request) error {
	caps := fsapi.Capabilities()
	data := make([]map[string]any, 0, len(caps))
	for _, c := range caps {
		data = append(data, capabilityResource(c))
	}
	return api.WriteList(w, "/v1/radio/capabilities", data, false)
}

func capabilityResource(c fsapi.Capability) map[string]any {
	res := map[string]any{
		"object":    "capability",
		"operation": string(c.Operation),
		"node":      c.Node,
		"access":    c.Access.String(),
		"list":      c.List,
	}
	if !c.List {
		res["kind"] = c.Kind.String()
	}
	if c.Range != nil {
		res["min"] = c.Range.Min
		res["max"] = c.Range.Max
	}
	if c.Labels != "" {
		res["labels"] = string(c.Labels)
	}
	return res
}

func lookupParam(r *http.Request) (fsapi.Capability, error) {
	op := fsapi.Operation(chi.URLParam(r, "op"))
	capability, ok := fsapi.Lookup(op)
	if !ok {
		return fsapi.Capability{}, apperrors.NewNotFoundResource("Operation", string(op))
	}
	return capability, nil
}

// GET /v1/radio/attributes/{op}
func (rt *Routes) getAttribute(w http.ResponseWriter, r *http.Request) error {
	capability, err := lookupParam(r)
	if err != nil {
		return err
	}

	if capability.List {
		items, err := rt.client.List(r.Context(), capability.Operation)
		if err != nil {
			return deviceError(err)
		}
		return api.WriteList(w, r.URL.Path, listItems(items), false)
	}

	value, err := rt.client.Get(r.Context(), capability.Operation)
	if err != nil {
		return deviceError(err)
	}
	return api.WriteResource(w, http.StatusOK, attributeResource(capability, value))
}

func attributeResource(capability fsapi.Capability, value wire.Value) map[string]any {
	res := map[string]any{
		"object":    "attribute",
		"operation": string(capability.Operation),
		"node":      capability.Node,
		"kind":      value.Kind().String(),
		"value":     value.Interface(),
	}
	if value.Label != "" {
		res["label"] = value.Label
	}
	return res
}

func listItems(items []wire.ListItem) []map[string]any {
	data := make([]map[string]any, 0, len(items))
	for _, item := range items {
		fields := make(map[string]any, len(item.Fields))
		for name, v := range item.Fields {
			fields[name] = v.Interface()
		}
		data = append(data, map[string]any{"key": item.Key, "fields": fields})
	}
	return data
}

type setAttributeRequest struct {
	Value any `json:"value"`
}

// PUT /v1/radio/attributes/{op}
func (rt *Routes) setAttribute(w http.ResponseWriter, r *http.Request) error {
	capability, err := lookupParam(r)
	if err != nil {
		return err
	}

	var req setAttributeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}

	value, err := fsapi.FromJSON(capability.Operation, req.Value)
	if err != nil {
		return deviceError(err)
	}

	accepted, err := rt.client.Apply(r.Context(), capability.Operation, value)
	if err != nil {
		return deviceError(err)
	}
	rt.feed.recordSet(capability.Operation, value, accepted)

	return api.WriteAction(w, http.StatusOK, map[string]any{
		"object":    "attribute_update",
		"operation": string(capability.Operation),
		"node":      capability.Node,
		"value":     value.Interface(),
		"accepted":  accepted,
	})
}

// GET /v1/radio/modes
func (rt *Routes) modes(w http.ResponseWriter, r *http.Request) error {
	modes, err := rt.client.GetModes(r.Context())
	if err != nil {
		return deviceError(err)
	}
	return api.WriteList(w, "/v1/radio/modes", modes, false)
}

// GET /v1/radio/equalisers
func (rt *Routes) equalisers(w http.ResponseWriter, r *http.Request) error {
	eqs, err := rt.client.GetEqualisers(r.Context())
	if err != nil {
		return deviceError(err)
	}
	return api.WriteList(w, "/v1/radio/equalisers", eqs, false)
}

// GET /v1/radio/presets
func (rt *Routes) presets(w http.ResponseWriter, r *http.Request) error {
	presets, err := rt.client.GetPresets(r.Context())
	if err != nil {
		return deviceError(err)
	}
	return api.WriteList(w, "/v1/radio/presets", presets, false)
}

func keyParam(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "key")
	key, err := strconv.Atoi(raw)
	if err != nil || key < 0 {
		return 0, apperrors.NewValidationError("key must be a non-negative integer", map[string]any{"key": raw})
	}
	return key, nil
}

func (rt *Routes) writeAccepted(w http.ResponseWriter, object string, op fsapi.Operation, value wire.Value, accepted bool) error {
	rt.feed.recordSet(op, value, accepted)
	return api.WriteAction(w, http.StatusOK, map[string]any{
		"object":   object,
		"accepted": accepted,
	})
}

// POST /v1/radio/presets/{key}/select
func (rt *Routes) selectPreset(w http.ResponseWriter, r *http.Request) error {
	key, err := keyParam(r)
	if err != nil {
		return err
	}
	accepted, err := rt.client.SelectPreset(r.Context(), key)
	if err != nil {
		return deviceError(err)
	}
	return rt.writeAccepted(w, "preset_selection", fsapi.OpSelectPreset, wire.IntValue(int64(key)), accepted)
}

// POST /v1/radio/control/{action}
func (rt *Routes) playControl(w http.ResponseWriter, r *http.Request) error {
	action := chi.URLParam(r, "action")
	control, ok := fsapi.ParsePlayControl(action)
	if !ok {
		return apperrors.NewValidationError("unknown control action", map[string]any{
			"action":        action,
			"valid_actions": []string{"play", "pause", "next", "previous"},
		})
	}
	accepted, err := rt.client.PlayControl(r.Context(), control)
	if err != nil {
		return deviceError(err)
	}
	return rt.writeAccepted(w, "play_control", fsapi.OpPlayControl, wire.IntValue(int64(control)), accepted)
}

// GET /v1/radio/nav
func (rt *Routes) navList(w http.ResponseWriter, r *http.Request) error {
	items, err := rt.client.NavList(r.Context())
	if err != nil {
		return deviceError(err)
	}
	return api.WriteResource(w, http.StatusOK, map[string]any{
		"object": "nav",
		"path":   rt.client.NavPath(),
		"items":  items,
	})
}

// DELETE /v1/radio/nav
func (rt *Routes) navReset(w http.ResponseWriter, r *http.Request) error {
	accepted, err := rt.client.NavReset(r.Context())
	if err != nil {
		return deviceError(err)
	}
	return rt.writeAccepted(w, "nav_reset", fsapi.OpNavState, wire.BoolValue(false), accepted)
}

// POST /v1/radio/nav/parent
func (rt *Routes) navParent(w http.ResponseWriter, r *http.Request) error {
	accepted, err := rt.client.NavSelectParent(r.Context())
	if err != nil {
		return deviceError(err)
	}
	return rt.writeNav(w, accepted)
}

// POST /v1/radio/nav/folders/{key}
func (rt *Routes) navFolder(w http.ResponseWriter, r *http.Request) error {
	key, err := keyParam(r)
	if err != nil {
		return err
	}
	accepted, err := rt.client.NavSelectFolder(r.Context(), key)
	if err != nil {
		return deviceError(err)
	}
	return rt.writeNav(w, accepted)
}

// POST /v1/radio/nav/items/{key}
func (rt *Routes) navItem(w http.ResponseWriter, r *http.Request) error {
	key, err := keyParam(r)
	if err != nil {
		return err
	}
	accepted, err := rt.client.NavSelectItem(r.Context(), key)
	if err != nil {
		return deviceError(err)
	}
	return rt.writeAccepted(w, "nav_selection", fsapi.OpSelectItem, wire.IntValue(int64(key)), accepted)
}

type navSelectRequest struct {
	Path []int `json:"path"`
	// Item selects the last key of Path instead of entering it as a folder.
	Item bool `json:"item"`
}

// POST /v1/radio/nav/select
func (rt *Routes) navSelectPath(w http.ResponseWriter, r *http.Request) error {
	var req navSelectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	for _, key := range req.Path {
		if key < 0 {
			return apperrors.NewValidationError("path keys must be non-negative", map[string]any{"path": req.Path})
		}
	}

	var (
		accepted bool
		err      error
	)
	if req.Item {
		accepted, err = rt.client.NavSelectItemPath(r.Context(), req.Path)
	} else {
		accepted, err = rt.client.NavSelectFolderPath(r.Context(), req.Path)
	}
	if err != nil {
		return deviceError(err)
	}
	return rt.writeNav(w, accepted)
}

func (rt *Routes) writeNav(w http.ResponseWriter, accepted bool) error {
	return api.WriteAction(w, http.StatusOK, map[string]any{
		"object":   "nav_update",
		"accepted": accepted,
		"path":     rt.client.NavPath(),
	})
}

// GET /v1/radio/notify?node=&timeout=
func (rt *Routes) notify(w http.ResponseWriter, r *http.Request) error {
	query := r.URL.Query()

	node := strings.TrimSpace(query.Get("node"))
	if node == "" {
		return apperrors.NewValidationError("node is required", nil)
	}
	if capability, ok := fsapi.Lookup(fsapi.Operation(node)); ok {
		node = capability.Node
	}

	timeout, err := parseTimeout(query.Get("timeout"), rt.notifyTimeout)
	if err != nil {
		return err
	}

	var result fsapi.NotifyResult
	if rt.watcher != nil && rt.hub != nil {
		result, err = rt.awaitEvent(r.Context(), node, timeout)
	} else {
		result, err = rt.client.Notify(r.Context(), node, timeout)
	}
	if err != nil {
		return deviceError(err)
	}

	res := map[string]any{
		"object":    "notification",
		"node":      node,
		"timed_out": result.TimedOut,
	}
	if !result.TimedOut {
		res["kind"] = result.Value.Kind().String()
		res["value"] = result.Value.Interface()
	}
	return api.WriteResource(w, http.StatusOK, res)
}

var errStreamClosed = apperrors.NewAppError(apperrors.ErrorCodeInternalError, "Notification stream closed", http.StatusServiceUnavailable, nil)

// awaitEvent waits for the watcher to report a change on node.
func (rt *Routes) awaitEvent(ctx context.Context, node string, timeout time.Duration) (fsapi.NotifyResult, error) {
	events, cancel, ok := rt.hub.listen()
	defer cancel()
	if !ok {
		return fsapi.NotifyResult{}, errStreamClosed
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return fsapi.NotifyResult{}, ctx.Err()
		case <-timer.C:
			return fsapi.NotifyResult{TimedOut: true}, nil
		case ev, open := <-events:
			if !open {
				return fsapi.NotifyResult{}, errStreamClosed
			}
			if ev.Source == string(audit.SourceNotify) && strings.EqualFold(ev.Node, node) {
				return fsapi.NotifyResult{Value: ev.value}, nil
			}
		}
	}
}

// parseTimeout accepts whole seconds or a Go duration string.
func parseTimeout(raw string, fallback time.Duration) (time.Duration, error) {
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		secs, convErr := strconv.Atoi(raw)
		if convErr != nil {
			return 0, apperrors.NewValidationError("invalid timeout", map[string]any{"timeout": raw})
		}
		d = time.Duration(secs) * time.Second
	}
	if d <= 0 || d > MaxNotifyTimeout {
		return 0, apperrors.NewValidationError("timeout must be positive and at most 5m", map[string]any{"timeout": raw})
	}
	return d, nil
}
