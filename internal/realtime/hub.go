package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"production_backend/platform/logger"

	"github.com/google/uuid"
)

// Target selects the sessions an envelope goes to. With no users and no
// rooms the whole tenant receives it.
type Target struct {
	TenantID uuid.UUID   `json:"tenantId"`
	UserIDs  []uuid.UUID `json:"userIds,omitempty"`
	Rooms    []string    `json:"rooms,omitempty"`
}

// Transport delivers envelopes to connected sessions, locally or across
// instances.
type Transport interface {
	Deliver(ctx context.Context, t Target, env Envelope) error
}

type roomKey struct {
	tenantID uuid.UUID
	room     string
}

// Hub is the registry of authenticated sessions on this instance. Rooms are
// keyed per tenant.
type Hub struct {
	mu      sync.RWMutex
	tenants map[uuid.UUID]map[*Session]struct{}
	rooms   map[roomKey]map[*Session]struct{}
	joined  map[*Session]map[string]struct{}
	log     *logger.Logger
}

// NewHub creates an empty hub.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		tenants: make(map[uuid.UUID]map[*Session]struct{}),
		rooms:   make(map[roomKey]map[*Session]struct{}),
		joined:  make(map[*Session]map[string]struct{}),
		log:     log,
	}
}

func (h *Hub) register(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.tenants[s.tenantID]
	if !ok {
		set = make(map[*Session]struct{})
		h.tenants[s.tenantID] = set
	}
	set[s] = struct{}{}
	h.joined[s] = make(map[string]struct{})
}

func (h *Hub) unregister(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rooms, ok := h.joined[s]
	if !ok {
		return
	}
	for room := range rooms {
		h.removeFromRoom(s, room)
	}
	delete(h.joined, s)
	if set := h.tenants[s.tenantID]; set != nil {
		delete(set, s)
		if len(set) == 0 {
			delete(h.tenants, s.tenantID)
		}
	}
}

func (h *Hub) join(s *Session, room string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	rooms, ok := h.joined[s]
	if !ok {
		return false
	}
	key := roomKey{tenantID: s.tenantID, room: room}
	set, ok := h.rooms[key]
	if !ok {
		set = make(map[*Session]struct{})
		h.rooms[key] = set
	}
	set[s] = struct{}{}
	rooms[room] = struct{}{}
	return true
}

func (h *Hub) leave(s *Session, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if rooms, ok := h.joined[s]; ok {
		delete(rooms, room)
	}
	h.removeFromRoom(s, room)
}

// removeFromRoom requires h.mu held for writing.
func (h *Hub) removeFromRoom(s *Session, room string) {
	key := roomKey{tenantID: s.tenantID, room: room}
	if set := h.rooms[key]; set != nil {
		delete(set, s)
		if len(set) == 0 {
			delete(h.rooms, key)
		}
	}
}

// Deliver enqueues env on every matching session of this instance. Full
// session buffers drop the envelope.
func (h *Hub) Deliver(_ context.Context, t Target, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	for _, s := range h.match(t) {
		s.enqueue(data)
	}
	return nil
}

func (h *Hub) match(t Target) []*Session {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[*Session]struct{})
	if len(t.UserIDs) == 0 && len(t.Rooms) == 0 {
		for s := range h.tenants[t.TenantID] {
			seen[s] = struct{}{}
		}
	}
	if len(t.UserIDs) > 0 {
		users := make(map[uuid.UUID]struct{}, len(t.UserIDs))
		for _, id := range t.UserIDs {
			users[id] = struct{}{}
		}
		for s := range h.tenants[t.TenantID] {
			if _, ok := users[s.userID]; ok {
				seen[s] = struct{}{}
			}
		}
	}
	for _, room := range t.Rooms {
		for s := range h.rooms[roomKey{tenantID: t.TenantID, room: room}] {
			seen[s] = struct{}{}
		}
	}

	out := make([]*Session, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	return out
}

// SessionCount returns the number of authenticated sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.joined)
}

var _ Transport = (*Hub)(nil)
