package idempotency

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps records in process. It backs degraded mode and tests.
type MemoryStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*Record
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[uuid.UUID]*Record)}
}

func (s *MemoryStore) Claim(_ context.Context, p ClaimParams) (bool, *Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[p.Key]; ok {
		reclaimable := existing.ExpiresAt.Before(p.Now) ||
			(existing.State == StatePending && existing.LockedUntil.Before(p.Now) && existing.RequestHash == p.RequestHash)
		if !reclaimable {
			cp := *existing
			return false, &cp, nil
		}
	}

	s.records[p.Key] = &Record{
		Key:         p.Key,
		RequestHash: p.RequestHash,
		State:       StatePending,
		LockedUntil: p.LockedUntil,
		CreatedAt:   p.Now,
		ExpiresAt:   p.ExpiresAt,
	}
	return true, nil, nil
}

func (s *MemoryStore) Complete(_ context.Context, key uuid.UUID, resp Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok || rec.State != StatePending {
		return nil
	}
	body := make([]byte, len(resp.Body))
	copy(body, resp.Body)
	rec.State = StateCompleted
	rec.Response = &Response{Status: resp.Status, ContentType: resp.ContentType, Body: body}
	return nil
}

func (s *MemoryStore) Release(_ context.Context, key uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[key]; ok && rec.State == StatePending {
		delete(s.records, key)
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key uuid.UUID) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for key, rec := range s.records {
		if rec.ExpiresAt.Before(now) {
			delete(s.records, key)
			n++
		}
	}
	return n, nil
}

var _ Store = (*MemoryStore)(nil)
