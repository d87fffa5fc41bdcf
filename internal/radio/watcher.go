package radio

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/strefethen/fsapi-hub-go/internal/audit"
	"github.com/strefethen/fsapi-hub-go/internal/fsapi"
	"github.com/strefethen/fsapi-hub-go/internal/fsapi/wire"
)

const (
	watchMinBackoff = time.Second
	watchMaxBackoff = 30 * time.Second
	// An empty round faster than this means the device is not holding the poll.
	watchEmptyFloor = 100 * time.Millisecond
)

// NotifySource long-polls the device for changed nodes.
type NotifySource interface {
	Notifies(ctx context.Context) ([]wire.Notification, error)
}

// Watcher records every change the device reports.
type Watcher struct {
	source     NotifySource
	feed       *Feed
	logger     zerolog.Logger
	minBackoff time.Duration
	maxBackoff time.Duration
	emptyFloor time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewWatcher(source NotifySource, feed *Feed, logger zerolog.Logger) *Watcher {
	return &Watcher{
		source:     source,
		feed:       feed,
		logger:     logger.With().Str("component", "watcher").Logger(),
		minBackoff: watchMinBackoff,
		maxBackoff: watchMaxBackoff,
		emptyFloor: watchEmptyFloor,
	}
}

// Start runs the watch loop in the background until Stop.
func (w *Watcher) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		_ = w.Run(ctx)
	}()
}

// Stop cancels the watch loop and waits for it to exit.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

// Run polls until ctx is done. Device errors back off exponentially and empty
// rounds that return immediately wait minBackoff before the next poll.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info().Msg("watching device notifications")
	backoff := w.minBackoff

	for {
		started := time.Now()
		notifications, err := w.source.Notifies(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			w.logger.Warn().Err(err).Dur("retry_in", backoff).Msg("notify poll failed")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > w.maxBackoff {
				backoff = w.maxBackoff
			}
			continue
		}

		backoff = w.minBackoff
		for _, n := range notifications {
			w.handle(n)
		}
		if len(notifications) == 0 && time.Since(started) < w.emptyFloor {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.minBackoff):
			}
		}
	}
}

func (w *Watcher) handle(n wire.Notification) {
	input := audit.WriteChangeInput{
		Node:   n.Node,
		Value:  n.Value.String(),
		Kind:   n.Value.Kind().String(),
		Source: audit.SourceNotify,
	}
	if op, ok := fsapi.OperationForNode(n.Node); ok {
		name := string(op)
		input.Operation = &name
	}

	w.logger.Debug().Str("node", n.Node).Str("value", input.Value).Msg("device notification")
	if _, err := w.feed.record(input, n.Value); err != nil {
		w.logger.Error().Err(err).Str("node", n.Node).Msg("failed to record notification")
	}
}
