package realtime

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Message types exchanged with the server.
const (
	TypeAuth             = "auth"
	TypeConnectionStatus = "connection_status"
	TypeJoinRoom         = "join_room"
	TypeLeaveRoom        = "leave_room"
	TypePing             = "ping"
	TypePong             = "pong"
	TypeError            = "error"
)

// Envelope is one frame on the wire.
type Envelope struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	TenantID  *uuid.UUID      `json:"tenantId,omitempty"`
	UserID    *uuid.UUID      `json:"userId,omitempty"`
}

func newEnvelope(typ string, payload interface{}) (Envelope, error) {
	env := Envelope{Type: typ, Timestamp: time.Now().UTC()}
	if payload == nil {
		return env, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	env.Payload = raw
	return env, nil
}

type authPayload struct {
	Token    string `json:"token"`
	TenantID string `json:"tenantId"`
}

type roomPayload struct {
	Room string `json:"room"`
}

type statusPayload struct {
	Status    string    `json:"status"`
	SessionID uuid.UUID `json:"sessionId"`
	UserID    uuid.UUID `json:"userId"`
}
