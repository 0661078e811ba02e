// Package realtime pushes dashboard view-models to connected websocket
// clients whenever a session changes.
package realtime

import (
	"encoding/json"
	"sync"

	"github.com/gofrs/uuid"

	"zenfocus/backend/internal/logger"
	"zenfocus/backend/internal/monitoring"
	"zenfocus/backend/internal/session"
)

const (
	TypeReady     = "ready"
	TypeDashboard = "dashboard"
	TypeFocus     = "focus"
	TypeSignedOut = "signed_out"
)

type Message struct {
	Type string      `json:"type"`
	Kind string      `json:"kind,omitempty"`
	Data interface{} `json:"data,omitempty"`
}

type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[uuid.UUID]map[*Client]struct{})}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	set, ok := h.clients[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.UserID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()

	monitoring.WebsocketClients.Inc()
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	set, ok := h.clients[c.UserID]
	_, present := set[c]
	if ok && present {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.UserID)
		}
	}
	h.mu.Unlock()

	if present {
		monitoring.WebsocketClients.Dec()
		c.close()
	}
}

func (h *Hub) Clients(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Broadcast queues payload on every client of userID. Clients whose queue
// is full are dropped.
func (h *Hub) Broadcast(userID uuid.UUID, payload []byte) int {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients[userID]))
	for c := range h.clients[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	sent := 0
	for _, c := range targets {
		if c.enqueue(payload) {
			sent++
			continue
		}
		logger.Warn("dropping slow websocket client", "user_id", userID)
		h.Unregister(c)
	}
	return sent
}

// Attach forwards st's changes to userID's clients.
func (h *Hub) Attach(userID uuid.UUID, st *session.State) func() {
	return st.Listen(func(kind session.ChangeKind) {
		if h.Clients(userID) == 0 {
			return
		}
		payload, err := Encode(st, kind)
		if err != nil {
			logger.Error("failed to encode push", "user_id", userID, "error", err)
			return
		}
		h.Broadcast(userID, payload)
	})
}

// Encode renders the message for a change. Timer ticks carry only the
// focus state; everything else carries the full dashboard.
func Encode(st *session.State, kind session.ChangeKind) ([]byte, error) {
	if !st.Active() {
		return json.Marshal(Message{Type: TypeSignedOut, Data: st.Visibility()})
	}
	if kind == session.ChangeTimer {
		return json.Marshal(Message{Type: TypeFocus, Kind: string(kind), Data: st.Focus()})
	}

	d, err := st.Dashboard()
	if err != nil {
		return json.Marshal(Message{Type: TypeSignedOut, Data: st.Visibility()})
	}
	return json.Marshal(Message{Type: TypeDashboard, Kind: string(kind), Data: d})
}
