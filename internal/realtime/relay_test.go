package realtime

import (
	"context"
	"testing"
	"time"

	"production_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRelayFansOutAcrossInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	log := logger.New("test")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	newInstance := func() (*Hub, *Relay) {
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
		hub := NewHub(log)
		relay := NewRelay(rdb, "", hub, log)
		require.NoError(t, relay.Start(ctx))
		return hub, relay
	}
	hubA, relayA := newInstance()
	hubB, _ := newInstance()

	tenant, user := uuid.New(), uuid.New()
	local := testSession(hubA, tenant, user, 8)
	remote := testSession(hubB, tenant, user, 8)

	env, err := NewEnvelope(TypeNotification, map[string]string{"title": "hello"})
	require.NoError(t, err)
	require.NoError(t, relayA.Deliver(ctx, Target{TenantID: tenant, UserIDs: []uuid.UUID{user}}, env))

	require.Eventually(t, func() bool { return len(remote.send) == 1 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return len(local.send) == 1 }, 2*time.Second, 10*time.Millisecond)

	got := drain(t, remote)
	require.Len(t, got, 1)
	require.Equal(t, TypeNotification, got[0].Type)
	require.JSONEq(t, `{"title":"hello"}`, string(got[0].Payload))
}
