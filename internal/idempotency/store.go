// Package idempotency makes designated mutating endpoints safe to retry.
//
// A request carrying an Idempotency-Key header is executed at most once per
// key; later requests with the same key and the same fingerprint receive the
// recorded response, and requests reusing the key for different content are
// rejected.
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// State of a stored record.
type State string

const (
	StatePending   State = "pending"
	StateCompleted State = "completed"
)

// ErrStoreUnavailable marks failures where the store could not be reached.
// The guard falls back to its degraded store only for these.
var ErrStoreUnavailable = errors.New("idempotency store unavailable")

// Response is the recorded outcome replayed to retries.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// Record is one idempotency key and its state.
type Record struct {
	Key         uuid.UUID
	RequestHash string
	State       State
	Response    *Response
	LockedUntil time.Time
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// ClaimParams describes a claim attempt.
type ClaimParams struct {
	Key         uuid.UUID
	RequestHash string
	Now         time.Time
	LockedUntil time.Time
	ExpiresAt   time.Time
}

// Store persists idempotency records.
type Store interface {
	// Claim inserts a pending record for the key. It also succeeds when the
	// existing record has expired, or is pending with the same hash and an
	// expired lock. Otherwise it returns the existing record and false.
	Claim(ctx context.Context, p ClaimParams) (bool, *Record, error)
	// Complete stores the response of a claimed key.
	Complete(ctx context.Context, key uuid.UUID, resp Response) error
	// Release drops a pending claim so the key can be retried.
	Release(ctx context.Context, key uuid.UUID) error
	// Get returns the record or nil when the key is unknown.
	Get(ctx context.Context, key uuid.UUID) (*Record, error)
	// DeleteExpired removes records that expired before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
