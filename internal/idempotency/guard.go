package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"production_backend/platform/apperr"
	"production_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// HeaderKey carries the client-chosen key; HeaderReplayed marks replays.
const (
	HeaderKey      = "Idempotency-Key"
	HeaderReplayed = "Idempotent-Replayed"
)

const defaultPollInterval = 100 * time.Millisecond

// Operation runs the guarded request and returns its response.
type Operation func(ctx context.Context) (Response, error)

// Options tune the guard.
type Options struct {
	TTL          time.Duration
	LockTTL      time.Duration
	WaitTimeout  time.Duration
	PollInterval time.Duration
}

// Guard coordinates concurrent and retried executions of a key.
type Guard struct {
	primary  Store
	fallback Store
	opts     Options
	log      *logger.Logger
	group    singleflight.Group
	now      func() time.Time
}

// NewGuard creates a guard over primary, falling back to fallback when the
// primary store is unreachable. fallback may be nil.
func NewGuard(primary, fallback Store, opts Options, log *logger.Logger) *Guard {
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 30 * time.Second
	}
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = 5 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	return &Guard{primary: primary, fallback: fallback, opts: opts, log: log, now: time.Now}
}

// ParseKey validates the header value as a UUID v4.
func ParseKey(raw string) (uuid.UUID, error) {
	key, err := uuid.Parse(raw)
	if err != nil || key.Version() != 4 {
		return uuid.Nil, apperr.New(apperr.KindInvalidIdempotencyKey, "Idempotency-Key must be a UUID v4")
	}
	return key, nil
}

// Fingerprint hashes everything that identifies a request for replay purposes.
func Fingerprint(method, route, tenant string, body []byte) string {
	h := sha256.New()
	for _, part := range []string{method, route, tenant} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

type outcome struct {
	resp     Response
	replayed bool
}

// Execute runs op at most once for key. The boolean result reports whether
// the response was replayed from an earlier execution.
func (g *Guard) Execute(ctx context.Context, rawKey, fingerprint string, op Operation) (Response, bool, error) {
	key, err := ParseKey(rawKey)
	if err != nil {
		return Response{}, false, err
	}

	executed := false
	v, err, _ := g.group.Do(key.String()+"|"+fingerprint, func() (interface{}, error) {
		executed = true
		return g.run(ctx, key, fingerprint, op)
	})
	if err != nil {
		return Response{}, false, err
	}
	out := v.(outcome)
	return out.resp, out.replayed || !executed, nil
}

func (g *Guard) run(ctx context.Context, key uuid.UUID, fingerprint string, op Operation) (outcome, error) {
	deadline := g.now().Add(g.opts.WaitTimeout)
	store := g.primary

	for {
		now := g.now()
		claimed, existing, err := store.Claim(ctx, ClaimParams{
			Key:         key,
			RequestHash: fingerprint,
			Now:         now,
			LockedUntil: now.Add(g.opts.LockTTL),
			ExpiresAt:   now.Add(g.opts.TTL),
		})
		if err != nil {
			if errors.Is(err, ErrStoreUnavailable) && g.fallback != nil && store != g.fallback {
				g.log.Warn("idempotency store unavailable, using in-memory fallback", "error", err)
				store = g.fallback
				continue
			}
			return outcome{}, err
		}

		if claimed {
			return g.execute(ctx, store, key, op)
		}

		if existing.RequestHash != fingerprint {
			return outcome{}, apperr.New(apperr.KindIdempotencyKeyReused,
				"Idempotency-Key was already used for a different request")
		}
		if existing.State == StateCompleted && existing.Response != nil {
			g.log.IdempotencyReplay(key.String(), existing.Response.Status)
			return outcome{resp: *existing.Response, replayed: true}, nil
		}

		if !g.now().Before(deadline) {
			return outcome{}, apperr.Conflict("a request with this Idempotency-Key is still in progress")
		}
		if err := sleep(ctx, g.opts.PollInterval); err != nil {
			return outcome{}, err
		}
	}
}

func (g *Guard) execute(ctx context.Context, store Store, key uuid.UUID, op Operation) (outcome, error) {
	resp, err := op(ctx)
	// Recording must survive a client that hung up mid-request.
	persistCtx := context.WithoutCancel(ctx)
	if err != nil || resp.Status >= 500 {
		if relErr := store.Release(persistCtx, key); relErr != nil {
			g.log.Error("failed to release idempotency key", "key", key.String(), "error", relErr)
		}
		return outcome{resp: resp}, err
	}
	if err := store.Complete(persistCtx, key, resp); err != nil {
		g.log.Error("failed to record idempotent response", "key", key.String(), "error", err)
	}
	return outcome{resp: resp}, nil
}

// Sweep removes expired records from both stores.
func (g *Guard) Sweep(ctx context.Context) (int64, error) {
	now := g.now()
	n, err := g.primary.DeleteExpired(ctx, now)
	if g.fallback != nil {
		m, ferr := g.fallback.DeleteExpired(ctx, now)
		n += m
		err = errors.Join(err, ferr)
	}
	return n, err
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
