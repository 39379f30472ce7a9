package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

// PostgresStore is the durable store backed by idempotency_records.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store over pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Claim(ctx context.Context, p ClaimParams) (bool, *Record, error) {
	query := `
		INSERT INTO idempotency_records (key, request_hash, state, locked_until, created_at, expires_at)
		VALUES ($1, $2, 'pending', $3, $4, $5)
		ON CONFLICT (key) DO UPDATE SET
			request_hash = EXCLUDED.request_hash,
			state = 'pending',
			response_status = NULL,
			response_content_type = NULL,
			response_body = NULL,
			locked_until = EXCLUDED.locked_until,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at
		WHERE idempotency_records.expires_at < $4
		   OR (idempotency_records.state = 'pending'
		       AND idempotency_records.locked_until < $4
		       AND idempotency_records.request_hash = EXCLUDED.request_hash)
		RETURNING key`

	var claimed uuid.UUID
	err := s.pool.QueryRow(ctx, query, p.Key, p.RequestHash, p.LockedUntil, p.Now, p.ExpiresAt).Scan(&claimed)
	switch {
	case err == nil:
		return true, nil, nil
	case errors.Is(err, pgx.ErrNoRows), isUniqueViolation(err):
		// Another request holds the key.
	default:
		return false, nil, wrapStoreErr("claim idempotency key", err)
	}

	rec, err := s.Get(ctx, p.Key)
	if err != nil {
		return false, nil, err
	}
	if rec == nil {
		// The holder released between our insert and read; report as pending
		// so the caller polls and claims again.
		return false, &Record{Key: p.Key, RequestHash: p.RequestHash, State: StatePending, LockedUntil: p.Now}, nil
	}
	return false, rec, nil
}

func (s *PostgresStore) Complete(ctx context.Context, key uuid.UUID, resp Response) error {
	query := `
		UPDATE idempotency_records
		SET state = 'completed', response_status = $2, response_content_type = $3, response_body = $4
		WHERE key = $1 AND state = 'pending'`
	if _, err := s.pool.Exec(ctx, query, key, resp.Status, resp.ContentType, resp.Body); err != nil {
		return wrapStoreErr("complete idempotency key", err)
	}
	return nil
}

func (s *PostgresStore) Release(ctx context.Context, key uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM idempotency_records WHERE key = $1 AND state = 'pending'`, key); err != nil {
		return wrapStoreErr("release idempotency key", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, key uuid.UUID) (*Record, error) {
	query := `
		SELECT key, request_hash, state, response_status, response_content_type, response_body,
			locked_until, created_at, expires_at
		FROM idempotency_records WHERE key = $1`

	var (
		rec         Record
		state       string
		status      *int
		contentType *string
		body        []byte
	)
	err := s.pool.QueryRow(ctx, query, key).Scan(
		&rec.Key, &rec.RequestHash, &state, &status, &contentType, &body,
		&rec.LockedUntil, &rec.CreatedAt, &rec.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapStoreErr("get idempotency key", err)
	}

	rec.State = State(state)
	if rec.State == StateCompleted && status != nil {
		resp := &Response{Status: *status, Body: body}
		if contentType != nil {
			resp.ContentType = *contentType
		}
		rec.Response = resp
	}
	return &rec, nil
}

func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM idempotency_records WHERE expires_at < $1`, now)
	if err != nil {
		return 0, wrapStoreErr("delete expired idempotency keys", err)
	}
	return tag.RowsAffected(), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func wrapStoreErr(op string, err error) error {
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.Timeout(err) {
		return fmt.Errorf("%s: %w: %v", op, ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

var _ Store = (*PostgresStore)(nil)
