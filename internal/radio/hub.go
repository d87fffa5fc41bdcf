package radio

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/strefethen/fsapi-hub-go/internal/api"
	"github.com/strefethen/fsapi-hub-go/internal/apperrors"
	"github.com/strefethen/fsapi-hub-go/internal/audit"
	"github.com/strefethen/fsapi-hub-go/internal/fsapi/wire"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	subscriberBuf  = 32
	defaultMaxSubs = 16
)

// Event is pushed to stream subscribers for every recorded change.
type Event struct {
	Object    string    `json:"object"`
	Type      string    `json:"type"`
	ChangeID  string    `json:"change_id"`
	Timestamp time.Time `json:"timestamp"`
	Node      string    `json:"node"`
	Operation string    `json:"operation,omitempty"`
	Value     string    `json:"value"`
	Kind      string    `json:"kind"`
	Source    string    `json:"source"`
	Status    string    `json:"status"`

	// value is the decoded device value for NOTIFY events.
	value wire.Value
}

func eventFromChange(change *audit.Change) Event {
	ev := Event{
		Object:    "event",
		Type:      "change",
		ChangeID:  change.ChangeID,
		Timestamp: change.Timestamp,
		Node:      change.Node,
		Value:     change.Value,
		Kind:      change.Kind,
		Source:    string(change.Source),
		Status:    string(change.Status),
	}
	if change.Operation != nil {
		ev.Operation = *change.Operation
	}
	return ev
}

// Hub fans change events out to websocket subscribers.
type Hub struct {
	logger     zerolog.Logger
	upgrader   websocket.Upgrader
	maxClients int

	mu   sync.RWMutex
	subs map[string]chan Event
	// listeners are in-process waiters; they do not count against maxClients.
	listeners map[string]chan Event
	closed    bool
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		logger: logger.With().Str("component", "stream").Logger(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		maxClients: defaultMaxSubs,
		subs:       make(map[string]chan Event),
		listeners:  make(map[string]chan Event),
	}
}

// Subscribe registers a buffered receiver. The returned cancel func removes it
// and closes the channel.
func (h *Hub) Subscribe() (string, <-chan Event, func(), bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed || len(h.subs) >= h.maxClients {
		return "", nil, func() {}, false
	}

	id := uuid.New().String()
	ch := make(chan Event, subscriberBuf)
	h.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if sub, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(sub)
			}
		})
	}
	return id, ch, cancel, true
}

// listen registers an in-process receiver that is not counted as a stream
// subscriber.
func (h *Hub) listen() (<-chan Event, func(), bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, func() {}, false
	}
	id := uuid.New().String()
	ch := make(chan Event, subscriberBuf)
	h.listeners[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if l, ok := h.listeners[id]; ok {
				delete(h.listeners, id)
				close(l)
			}
		})
	}
	return ch, cancel, true
}

// Publish delivers ev to every subscriber. Subscribers with a full buffer miss
// the event.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.logger.Warn().Str("subscriber", id).Str("node", ev.Node).Msg("subscriber too slow, dropping event")
		}
	}
	for _, ch := range h.listeners {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Count returns the number of active subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close disconnects all subscribers and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
	for id, ch := range h.listeners {
		delete(h.listeners, id)
		close(ch)
	}
}

// ServeHTTP upgrades the request and streams events until either side closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, events, cancel, ok := h.Subscribe()
	if !ok {
		api.WriteError(w, r, apperrors.NewAppError(apperrors.ErrorCodeConflict, "Too many stream subscribers", http.StatusServiceUnavailable, nil))
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to upgrade stream connection")
		return
	}
	defer conn.Close()

	h.logger.Info().Str("subscriber", id).Str("addr", r.RemoteAddr).Msg("stream subscriber connected")
	defer h.logger.Info().Str("subscriber", id).Msg("stream subscriber disconnected")

	done := make(chan struct{})
	go h.readLoop(conn, done)
	h.writeLoop(conn, events, done)
}

// readLoop discards client messages and notices when the peer goes away.
func (h *Hub) readLoop(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Warn().Err(err).Msg("stream connection error")
			}
			return
		}
	}
}

func (h *Hub) writeLoop(conn *websocket.Conn, events <-chan Event, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case ev, ok := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "hub closed"))
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
