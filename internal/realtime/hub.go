package realtime

import (
	"log/slog"
	"sync"

	"ripple/internal/observe"
)

// Hub is the registry of live authenticated connections and the fan-out
// primitive over them.
//
// Concurrency guarantees:
// - Join/Leave are safe under concurrent Broadcast.
// - Broadcast never blocks (drops under backpressure, counted in metrics).
// - Broadcast is panic-safe because Client.Send is never closed by the server.
type Hub struct {
	log *slog.Logger

	mu      sync.RWMutex
	members map[string]*Client
}

// NewHub constructs an empty Hub.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		log:     log,
		members: make(map[string]*Client),
	}
}

// Join adds a client to the live set.
func (h *Hub) Join(client *Client) {
	if h == nil || client == nil || client.SessionID == "" {
		return
	}

	h.mu.Lock()
	h.members[client.SessionID] = client
	n := len(h.members)
	h.mu.Unlock()

	observe.WSConnections.Set(float64(n))
	h.log.Info("hub.join", "session_id", client.SessionID, "user_id", client.UserID, "connections", n)
}

// Leave removes a client from the live set and signals its shutdown.
func (h *Hub) Leave(sessionID string) {
	if h == nil || sessionID == "" {
		return
	}

	h.mu.Lock()
	cl := h.members[sessionID]
	delete(h.members, sessionID)
	n := len(h.members)
	h.mu.Unlock()

	// Close after removal so broadcasters holding a pointer see a signalled
	// done channel rather than a half-torn-down client.
	if cl != nil {
		cl.Close()
	}

	observe.WSConnections.Set(float64(n))
	h.log.Info("hub.leave", "session_id", sessionID, "connections", n)
}

// Size returns the current number of live connections.
func (h *Hub) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.members)
}

// Broadcast fans out an envelope to every live connection, the mutating
// client included. Non-blocking: full queues and departing clients are
// skipped rather than stalling the hub.
func (h *Hub) Broadcast(env Envelope) {
	if h == nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, m := range h.members {
		if m == nil {
			continue
		}

		select {
		case <-m.Done():
			continue
		default:
		}

		select {
		case m.Send <- env:
			observe.BroadcastDeliveries.Inc()
		default:
			observe.BroadcastDrops.Inc()
		}
	}
}
