package inapp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"production_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	opCreate                = "notification.inapp.repository.create"
	opList                  = "notification.inapp.repository.list"
	opCountUnreadByResource = "notification.inapp.repository.count_unread_by_resource"
	opMarkRead              = "notification.inapp.repository.mark_read"
	opMarkAllRead           = "notification.inapp.repository.mark_all_read"
	opDelete                = "notification.inapp.repository.delete"

	errRepoNotConfigured = "in-app notification repository not configured"
	errUserIDRequired    = "tenantId and userId are required"
)

type Notification struct {
	ID           uuid.UUID       `json:"id"`
	TenantID     uuid.UUID       `json:"tenantId"`
	UserID       uuid.UUID       `json:"userId"`
	EventType    string          `json:"eventType"`
	Title        string          `json:"title"`
	Content      string          `json:"content"`
	ResourceID   *uuid.UUID      `json:"resourceId,omitempty"`
	ResourceType *string         `json:"resourceType,omitempty"`
	Category     string          `json:"category"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	IsRead       bool            `json:"isRead"`
	ReadAt       *time.Time      `json:"readAt,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

type CreateParams struct {
	TenantID     uuid.UUID
	UserID       uuid.UUID
	EventType    string
	Title        string
	Content      string
	ResourceID   *uuid.UUID
	ResourceType *string
	Category     string
	Payload      json.RawMessage
}

// ListParams selects a page of a user's notifications.
type ListParams struct {
	TenantID   uuid.UUID
	UserID     uuid.UUID
	UnreadOnly bool
	Since      *time.Time
	Limit      int
	Offset     int
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const notificationColumns = `id, tenant_id, user_id, event_type, title, content, resource_id, resource_type, category, payload, is_read, read_at, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanNotification(row scanner) (Notification, error) {
	var n Notification
	err := row.Scan(&n.ID, &n.TenantID, &n.UserID, &n.EventType, &n.Title, &n.Content,
		&n.ResourceID, &n.ResourceType, &n.Category, &n.Payload, &n.IsRead, &n.ReadAt, &n.CreatedAt)
	return n, err
}

func (r *Repository) Create(ctx context.Context, p CreateParams) (Notification, error) {
	if r == nil || r.pool == nil {
		return Notification{}, apperr.Internal(errRepoNotConfigured).WithOp(opCreate)
	}
	if p.TenantID == uuid.Nil || p.UserID == uuid.Nil {
		return Notification{}, apperr.Validation(errUserIDRequired).WithOp(opCreate)
	}
	if p.Title == "" || p.Content == "" {
		return Notification{}, apperr.Validation("title and content are required").WithOp(opCreate)
	}

	category := p.Category
	if category == "" {
		category = "info"
	}
	payload := p.Payload
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}

	n, err := scanNotification(r.pool.QueryRow(ctx, `
		INSERT INTO notifications
		(tenant_id, user_id, event_type, title, content, resource_id, resource_type, category, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+notificationColumns,
		p.TenantID, p.UserID, p.EventType, p.Title, p.Content, p.ResourceID, p.ResourceType, category, payload))
	if err != nil {
		return Notification{}, apperr.Internal(fmt.Sprintf("create in-app notification failed: %v", err)).WithOp(opCreate)
	}

	return n, nil
}

func (r *Repository) List(ctx context.Context, p ListParams) ([]Notification, int, error) {
	if r == nil || r.pool == nil {
		return nil, 0, apperr.Internal(errRepoNotConfigured).WithOp(opList)
	}
	if p.TenantID == uuid.Nil || p.UserID == uuid.Nil {
		return nil, 0, apperr.Validation(errUserIDRequired).WithOp(opList)
	}

	const filter = `
		WHERE tenant_id = $1 AND user_id = $2
		  AND ($3::boolean = FALSE OR is_read = FALSE)
		  AND ($4::timestamptz IS NULL OR created_at > $4)`

	var total int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications`+filter,
		p.TenantID, p.UserID, p.UnreadOnly, p.Since).Scan(&total)
	if err != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("count notifications failed: %v", err)).WithOp(opList)
	}

	rows, err := r.pool.Query(ctx, `SELECT `+notificationColumns+` FROM notifications`+filter+`
		ORDER BY created_at DESC, id
		LIMIT $5 OFFSET $6`,
		p.TenantID, p.UserID, p.UnreadOnly, p.Since, p.Limit, p.Offset)
	if err != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("list notifications query failed: %v", err)).WithOp(opList)
	}
	defer rows.Close()

	items := make([]Notification, 0, p.Limit)
	for rows.Next() {
		n, scanErr := scanNotification(rows)
		if scanErr != nil {
			return nil, 0, apperr.Internal(fmt.Sprintf("scan notifications failed: %v", scanErr)).WithOp(opList)
		}
		items = append(items, n)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("iterate notifications failed: %v", rowsErr)).WithOp(opList)
	}

	return items, total, nil
}

func (r *Repository) CountUnreadByResourceTypes(ctx context.Context, tenantID, userID uuid.UUID, resourceTypes []string) (int, error) {
	if r == nil || r.pool == nil {
		return 0, apperr.Internal(errRepoNotConfigured).WithOp(opCountUnreadByResource)
	}
	if tenantID == uuid.Nil || userID == uuid.Nil {
		return 0, apperr.Validation(errUserIDRequired).WithOp(opCountUnreadByResource)
	}
	if resourceTypes == nil {
		resourceTypes = []string{}
	}

	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications
		WHERE tenant_id = $1 AND user_id = $2 AND is_read = FALSE
		  AND (cardinality($3::text[]) = 0 OR resource_type = ANY($3))
	`, tenantID, userID, resourceTypes).Scan(&count)
	if err != nil {
		return 0, apperr.Internal(fmt.Sprintf("count unread notifications failed: %v", err)).WithOp(opCountUnreadByResource)
	}

	return count, nil
}

func (r *Repository) MarkRead(ctx context.Context, tenantID, userID, notificationID uuid.UUID) error {
	if r == nil || r.pool == nil {
		return apperr.Internal(errRepoNotConfigured).WithOp(opMarkRead)
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications
		SET is_read = TRUE, read_at = COALESCE(read_at, now())
		WHERE id = $1 AND tenant_id = $2 AND user_id = $3
	`, notificationID, tenantID, userID)
	if err != nil {
		return apperr.Internal(fmt.Sprintf("mark notification read failed: %v", err)).WithOp(opMarkRead)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("notification not found").WithOp(opMarkRead)
	}

	return nil
}

func (r *Repository) MarkAllRead(ctx context.Context, tenantID, userID uuid.UUID) (int64, error) {
	if r == nil || r.pool == nil {
		return 0, apperr.Internal(errRepoNotConfigured).WithOp(opMarkAllRead)
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications
		SET is_read = TRUE, read_at = now()
		WHERE tenant_id = $1 AND user_id = $2 AND is_read = FALSE
	`, tenantID, userID)
	if err != nil {
		return 0, apperr.Internal(fmt.Sprintf("mark all notifications read failed: %v", err)).WithOp(opMarkAllRead)
	}

	return tag.RowsAffected(), nil
}

func (r *Repository) Delete(ctx context.Context, tenantID, userID, notificationID uuid.UUID) error {
	if r == nil || r.pool == nil {
		return apperr.Internal(errRepoNotConfigured).WithOp(opDelete)
	}

	tag, err := r.pool.Exec(ctx, `
		DELETE FROM notifications
		WHERE id = $1 AND tenant_id = $2 AND user_id = $3
	`, notificationID, tenantID, userID)
	if err != nil {
		return apperr.Internal(fmt.Sprintf("delete notification failed: %v", err)).WithOp(opDelete)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("notification not found").WithOp(opDelete)
	}

	return nil
}
