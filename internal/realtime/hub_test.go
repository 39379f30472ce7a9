package realtime

import (
	"context"
	"encoding/json"
	"testing"

	"production_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSession(hub *Hub, tenantID, userID uuid.UUID, buffer int) *Session {
	s := newSession(hub, nil, Options{SendBuffer: buffer}, logger.New("test"))
	s.tenantID = tenantID
	s.userID = userID
	s.state.Store(stateAuthenticated)
	hub.register(s)
	return s
}

func drain(t *testing.T, s *Session) []Envelope {
	t.Helper()
	var out []Envelope
	for {
		select {
		case data := <-s.send:
			var env Envelope
			require.NoError(t, json.Unmarshal(data, &env))
			out = append(out, env)
		default:
			return out
		}
	}
}

func TestHubDeliversByTarget(t *testing.T) {
	hub := NewHub(logger.New("test"))
	tenantA, tenantB := uuid.New(), uuid.New()
	u1, u2 := uuid.New(), uuid.New()
	s1 := testSession(hub, tenantA, u1, 8)
	s2 := testSession(hub, tenantA, u2, 8)
	s3 := testSession(hub, tenantB, u1, 8)

	room := "work_order:" + uuid.NewString()
	require.True(t, hub.join(s1, room))
	require.True(t, hub.join(s3, room))

	env, err := NewEnvelope(TypeEvent, map[string]string{"k": "v"})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, hub.Deliver(ctx, Target{TenantID: tenantA}, env))
	assert.Len(t, drain(t, s1), 1)
	assert.Len(t, drain(t, s2), 1)
	assert.Empty(t, drain(t, s3), "other tenants never receive tenant-wide envelopes")

	require.NoError(t, hub.Deliver(ctx, Target{TenantID: tenantA, UserIDs: []uuid.UUID{u2}}, env))
	assert.Empty(t, drain(t, s1))
	assert.Len(t, drain(t, s2), 1)
	assert.Empty(t, drain(t, s3), "user targeting is tenant scoped")

	require.NoError(t, hub.Deliver(ctx, Target{TenantID: tenantA, Rooms: []string{room}}, env))
	assert.Len(t, drain(t, s1), 1)
	assert.Empty(t, drain(t, s2))
	assert.Empty(t, drain(t, s3), "rooms are keyed per tenant")

	require.NoError(t, hub.Deliver(ctx, Target{TenantID: tenantA, UserIDs: []uuid.UUID{u1}, Rooms: []string{room}}, env))
	assert.Len(t, drain(t, s1), 1, "a session matching twice receives one copy")
}

func TestHubUnregisterForgetsRooms(t *testing.T) {
	hub := NewHub(logger.New("test"))
	tenant := uuid.New()
	s := testSession(hub, tenant, uuid.New(), 8)
	room := "order:" + uuid.NewString()
	hub.join(s, room)
	require.Equal(t, 1, hub.SessionCount())

	s.close()
	assert.Equal(t, 0, hub.SessionCount())
	assert.Empty(t, hub.match(Target{TenantID: tenant, Rooms: []string{room}}))
	assert.False(t, hub.join(s, room), "closed sessions cannot rejoin")
}

func TestHubLeaveRoom(t *testing.T) {
	hub := NewHub(logger.New("test"))
	tenant := uuid.New()
	s := testSession(hub, tenant, uuid.New(), 8)
	room := "design_job:" + uuid.NewString()
	hub.join(s, room)
	hub.leave(s, room)

	assert.Empty(t, hub.match(Target{TenantID: tenant, Rooms: []string{room}}))
}

func TestFullBufferDropsFrames(t *testing.T) {
	hub := NewHub(logger.New("test"))
	tenant := uuid.New()
	s := testSession(hub, tenant, uuid.New(), 1)
	env, _ := NewEnvelope(TypeEvent, nil)

	for i := 0; i < 3; i++ {
		require.NoError(t, hub.Deliver(context.Background(), Target{TenantID: tenant}, env))
	}
	assert.Len(t, drain(t, s), 1)
}

func TestValidRoom(t *testing.T) {
	id := uuid.NewString()
	cases := []struct {
		room string
		want bool
	}{
		{"order:" + id, true},
		{"design_job:" + id, true},
		{"work_order:" + id, true},
		{"purchase_order:" + id, true},
		{"invoice:" + id, false},
		{"order:not-a-uuid", false},
		{"order", false},
		{"", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ValidRoom(tc.room), tc.room)
	}
}
