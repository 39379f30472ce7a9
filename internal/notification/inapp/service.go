// Package inapp stores per-recipient notifications that survive while a
// client is offline. Clients reconcile against it after reconnecting.
package inapp

import (
	"context"
	"strings"
	"time"

	"production_backend/internal/access"

	"github.com/google/uuid"
)

// Store is the persistence the service needs.
type Store interface {
	Create(ctx context.Context, p CreateParams) (Notification, error)
	List(ctx context.Context, p ListParams) ([]Notification, int, error)
	CountUnreadByResourceTypes(ctx context.Context, tenantID, userID uuid.UUID, resourceTypes []string) (int, error)
	MarkRead(ctx context.Context, tenantID, userID, id uuid.UUID) error
	MarkAllRead(ctx context.Context, tenantID, userID uuid.UUID) (int64, error)
	Delete(ctx context.Context, tenantID, userID, id uuid.UUID) error
}

type Service struct {
	repo Store
}

func NewService(repo Store) *Service {
	return &Service{repo: repo}
}

// Record persists one notification for its recipient.
func (s *Service) Record(ctx context.Context, p CreateParams) (Notification, error) {
	return s.repo.Create(ctx, p)
}

// ListQuery is the caller-controlled part of a listing.
type ListQuery struct {
	Page       int
	PageSize   int
	UnreadOnly bool
	Since      *time.Time
}

func (s *Service) List(ctx context.Context, actor access.Actor, q ListQuery) ([]Notification, int, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = 20
	}
	if q.PageSize > 100 {
		q.PageSize = 100
	}

	return s.repo.List(ctx, ListParams{
		TenantID:   actor.TenantID,
		UserID:     actor.UserID,
		UnreadOnly: q.UnreadOnly,
		Since:      q.Since,
		Limit:      q.PageSize,
		Offset:     (q.Page - 1) * q.PageSize,
	})
}

func (s *Service) CountUnread(ctx context.Context, actor access.Actor, resourceTypes []string) (int, error) {
	normalized := make([]string, 0, len(resourceTypes))
	for _, item := range resourceTypes {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		normalized = append(normalized, trimmed)
	}
	return s.repo.CountUnreadByResourceTypes(ctx, actor.TenantID, actor.UserID, normalized)
}

func (s *Service) MarkRead(ctx context.Context, actor access.Actor, id uuid.UUID) error {
	return s.repo.MarkRead(ctx, actor.TenantID, actor.UserID, id)
}

func (s *Service) MarkAllRead(ctx context.Context, actor access.Actor) (int64, error) {
	return s.repo.MarkAllRead(ctx, actor.TenantID, actor.UserID)
}

func (s *Service) Delete(ctx context.Context, actor access.Actor, id uuid.UUID) error {
	return s.repo.Delete(ctx, actor.TenantID, actor.UserID, id)
}
