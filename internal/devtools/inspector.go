// Package devtools serves a development-time inspector over the
// reactive engine: JSON views of the revision clock, the tracked
// storage arena, and the live memoized references, plus a WebSocket
// feed of engine events.
package devtools

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/lumen-ui/lumen/pkg/observe"
	"github.com/lumen-ui/lumen/pkg/tags"
	"github.com/lumen-ui/lumen/pkg/tracking"
)

// liveEvent is the wire form of an engine event on the /live feed.
type liveEvent struct {
	Kind     string `json:"kind"`
	ID       uint64 `json:"id,omitempty"`
	Revision uint64 `json:"revision,omitempty"`
	Valid    bool   `json:"valid,omitempty"`
	Micros   int64  `json:"micros,omitempty"`
}

// refState is the last-known state of one memoized reference,
// accumulated from recompute and cache-hit events.
type refState struct {
	ID           uint64 `json:"id"`
	Recomputes   uint64 `json:"recomputes"`
	CacheHits    uint64 `json:"cacheHits"`
	LastRevision uint64 `json:"lastRevision"`
	LastMicros   int64  `json:"lastMicros"`
}

// Inspector exposes engine internals over HTTP. It implements
// observe.Sink; register it to light up the live feed and the /refs
// registry.
type Inspector struct {
	store *tracking.Storage

	refMu sync.Mutex
	refs  map[uint64]*refState

	clients  map[*websocket.Conn]bool
	mu       sync.RWMutex
	upgrader websocket.Upgrader
}

// NewInspector creates an inspector over store.
func NewInspector(store *tracking.Storage) *Inspector {
	return &Inspector{
		store:   store,
		refs:    make(map[uint64]*refState),
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins in dev
			},
		},
	}
}

// Routes returns the inspector's router, ready to mount.
func (in *Inspector) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/clock", in.handleClock)
	r.Get("/cells", in.handleCells)
	r.Get("/refs", in.handleRefs)
	r.Get("/live", in.handleLive)
	return r
}

func (in *Inspector) handleClock(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{
		"revision": tags.CurrentRevision(),
	})
}

func (in *Inspector) handleCells(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, in.store.Snapshot())
}

// handleRefs serves the last-known state of every reference the
// inspector has seen events for, ordered by ID. Empty until the
// inspector is registered as an observe sink.
func (in *Inspector) handleRefs(w http.ResponseWriter, _ *http.Request) {
	in.refMu.Lock()
	states := make([]refState, 0, len(in.refs))
	for _, state := range in.refs {
		states = append(states, *state)
	}
	in.refMu.Unlock()

	sort.Slice(states, func(i, j int) bool { return states[i].ID < states[j].ID })
	writeJSON(w, states)
}

// recordRef folds a recompute or cache-hit event into the /refs
// registry.
func (in *Inspector) recordRef(e observe.Event) {
	in.refMu.Lock()
	defer in.refMu.Unlock()

	state, ok := in.refs[e.ID]
	if !ok {
		state = &refState{ID: e.ID}
		in.refs[e.ID] = state
	}
	switch e.Kind {
	case observe.KindRecompute:
		state.Recomputes++
		state.LastRevision = e.Revision
		state.LastMicros = e.Duration.Microseconds()
	case observe.KindCacheHit:
		state.CacheHits++
	}
}

// handleLive upgrades to WebSocket and holds the connection until the
// client disconnects.
func (in *Inspector) handleLive(w http.ResponseWriter, req *http.Request) {
	conn, err := in.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}

	in.mu.Lock()
	in.clients[conn] = true
	in.mu.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	in.mu.Lock()
	delete(in.clients, conn)
	in.mu.Unlock()
	conn.Close()
}

// ReactiveEvent implements observe.Sink: reference events feed the
// /refs registry, and everything is broadcast to live-feed clients.
func (in *Inspector) ReactiveEvent(e observe.Event) {
	if e.Kind == observe.KindRecompute || e.Kind == observe.KindCacheHit {
		in.recordRef(e)
	}
	in.broadcast(liveEvent{
		Kind:     e.Kind.String(),
		ID:       e.ID,
		Revision: e.Revision,
		Valid:    e.Valid,
		Micros:   e.Duration.Microseconds(),
	})
}

// broadcast sends a message to all connected clients, dropping any
// whose write fails.
func (in *Inspector) broadcast(msg liveEvent) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	in.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(in.clients))
	for client := range in.clients {
		clients = append(clients, client)
	}
	in.mu.RUnlock()

	for _, client := range clients {
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			in.mu.Lock()
			delete(in.clients, client)
			in.mu.Unlock()
			client.Close()
		}
	}
}

// ClientCount returns the number of connected live-feed clients.
func (in *Inspector) ClientCount() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.clients)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
