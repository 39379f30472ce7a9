// Package realtime keeps authenticated websocket sessions per tenant and
// delivers envelopes to tenants, users and entity rooms.
package realtime

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Envelope types exchanged over the socket.
const (
	TypeAuth             = "auth"
	TypeConnectionStatus = "connection_status"
	TypeJoinRoom         = "join_room"
	TypeLeaveRoom        = "leave_room"
	TypeRoomJoined       = "room_joined"
	TypeRoomLeft         = "room_left"
	TypePing             = "ping"
	TypePong             = "pong"
	TypeError            = "error"
	TypeEvent            = "event"
	TypeNotification     = "notification"
	TypeCacheInvalidate  = "cache_invalidate"
)

// Connection statuses reported in connection_status envelopes.
const (
	StatusAuthenticated   = "authenticated"
	StatusUnauthenticated = "unauthenticated"
)

// Envelope is the JSON frame sent in both directions.
type Envelope struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	TenantID  *uuid.UUID      `json:"tenantId,omitempty"`
	UserID    *uuid.UUID      `json:"userId,omitempty"`
}

// NewEnvelope serializes payload into an envelope of type typ.
func NewEnvelope(typ string, payload interface{}) (Envelope, error) {
	env := Envelope{Type: typ, Timestamp: time.Now().UTC()}
	if payload == nil {
		return env, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", typ, err)
	}
	env.Payload = raw
	return env, nil
}

// AuthPayload is the body of the first client message.
type AuthPayload struct {
	Token    string `json:"token"`
	TenantID string `json:"tenantId"`
}

// RoomPayload names a room to join or leave.
type RoomPayload struct {
	Room string `json:"room"`
}

// StatusPayload reports the session's authentication state.
type StatusPayload struct {
	Status    string    `json:"status"`
	SessionID uuid.UUID `json:"sessionId,omitempty"`
	UserID    uuid.UUID `json:"userId,omitempty"`
}

// ErrorPayload describes a rejected client message.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var roomEntities = map[string]bool{
	"order":          true,
	"design_job":     true,
	"work_order":     true,
	"purchase_order": true,
}

// ValidRoom reports whether room has the form entity:uuid for a known entity.
func ValidRoom(room string) bool {
	entity, id, ok := strings.Cut(room, ":")
	if !ok || !roomEntities[entity] {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}
