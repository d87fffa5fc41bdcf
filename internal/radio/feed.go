package radio

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/strefethen/fsapi-hub-go/internal/audit"
	"github.com/strefethen/fsapi-hub-go/internal/fsapi"
	"github.com/strefethen/fsapi-hub-go/internal/fsapi/wire"
)

// ChangeStore persists changes. *audit.Service satisfies it.
type ChangeStore interface {
	Record(input audit.WriteChangeInput) (*audit.Change, error)
}

// Feed records changes and publishes them to the hub. Either side may be nil.
type Feed struct {
	store  ChangeStore
	hub    *Hub
	logger zerolog.Logger
}

func NewFeed(store ChangeStore, hub *Hub, logger zerolog.Logger) *Feed {
	return &Feed{store: store, hub: hub, logger: logger}
}

// Record stores the change and fans it out. A storage failure is returned but
// the event is still published.
func (f *Feed) Record(input audit.WriteChangeInput) (*audit.Change, error) {
	return f.record(input, wire.Value{})
}

func (f *Feed) record(input audit.WriteChangeInput, value wire.Value) (*audit.Change, error) {
	var (
		change *audit.Change
		err    error
	)
	if f.store != nil {
		change, err = f.store.Record(input)
	}
	if change == nil {
		change = transientChange(input)
	}

	if f.hub != nil {
		ev := eventFromChange(change)
		ev.value = value
		f.hub.Publish(ev)
	}
	return change, err
}

func transientChange(input audit.WriteChangeInput) *audit.Change {
	status := input.Status
	if status == "" {
		status = audit.StatusOK
	}
	return &audit.Change{
		ChangeID:  uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Node:      input.Node,
		Operation: input.Operation,
		Value:     input.Value,
		Kind:      input.Kind,
		Label:     input.Label,
		Source:    input.Source,
		Status:    status,
		Message:   input.Message,
	}
}

// recordSet logs a write issued through the API.
func (f *Feed) recordSet(op fsapi.Operation, value wire.Value, accepted bool) {
	capability, _ := fsapi.Lookup(op)
	name := string(op)
	status := audit.StatusOK
	if !accepted {
		status = audit.StatusRejected
	}
	input := audit.WriteChangeInput{
		Node:      capability.Node,
		Operation: &name,
		Value:     value.String(),
		Kind:      value.Kind().String(),
		Source:    audit.SourceSet,
		Status:    status,
	}
	if _, err := f.Record(input); err != nil {
		f.logger.Error().Err(err).Str("operation", name).Msg("failed to record change")
	}
}
