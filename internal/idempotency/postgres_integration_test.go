//go:build integration

package idempotency

import (
	"context"
	"testing"
	"time"

	"production_backend/platform/db/dbtest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresStoreLifecycle(t *testing.T) {
	store := NewPostgresStore(dbtest.Pool(t))
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	key := uuid.New()

	claim := ClaimParams{Key: key, RequestHash: "h1", Now: now, LockedUntil: now.Add(30 * time.Second), ExpiresAt: now.Add(24 * time.Hour)}
	ok, existing, err := store.Claim(ctx, claim)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Nil(t, existing)

	ok, existing, err = store.Claim(ctx, claim)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NotNil(t, existing)
	assert.Equal(t, StatePending, existing.State)

	resp := Response{Status: 201, ContentType: "application/json", Body: []byte(`{"id":"1"}`)}
	require.NoError(t, store.Complete(ctx, key, resp))

	rec, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, StateCompleted, rec.State)
	require.NotNil(t, rec.Response)
	assert.Equal(t, resp, *rec.Response)

	// A completed record is never reclaimed before it expires.
	ok, _, err = store.Claim(ctx, ClaimParams{Key: key, RequestHash: "h1", Now: now.Add(time.Hour), LockedUntil: now.Add(time.Hour), ExpiresAt: now.Add(25 * time.Hour)})
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := store.DeleteExpired(ctx, now.Add(48*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	rec, err = store.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestPostgresStoreReclaimsStaleLock(t *testing.T) {
	store := NewPostgresStore(dbtest.Pool(t))
	ctx := context.Background()
	now := time.Now().UTC()
	key := uuid.New()

	ok, _, err := store.Claim(ctx, ClaimParams{Key: key, RequestHash: "h", Now: now, LockedUntil: now.Add(time.Second), ExpiresAt: now.Add(time.Hour)})
	require.NoError(t, err)
	require.True(t, ok)

	later := now.Add(time.Minute)
	ok, _, err = store.Claim(ctx, ClaimParams{Key: key, RequestHash: "other", Now: later, LockedUntil: later.Add(time.Second), ExpiresAt: later.Add(time.Hour)})
	require.NoError(t, err)
	assert.False(t, ok, "a different body never takes over the key")

	ok, _, err = store.Claim(ctx, ClaimParams{Key: key, RequestHash: "h", Now: later, LockedUntil: later.Add(time.Second), ExpiresAt: later.Add(time.Hour)})
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.Release(ctx, key))
	rec, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, rec)
}
