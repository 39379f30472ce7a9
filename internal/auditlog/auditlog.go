// Package auditlog defines the typed payloads of the append-only event logs
// kept for design jobs, work orders and purchase orders.
//
// Each payload type is registered under a Kind so stored rows can be decoded
// back into their concrete struct instead of an untyped map.
package auditlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Kind names a payload type as stored in the kind column.
type Kind string

const (
	KindCreated          Kind = "created"
	KindStatusChanged    Kind = "status_changed"
	KindAssigned         Kind = "assigned"
	KindSubmitted        Kind = "submitted"
	KindReviewed         Kind = "reviewed"
	KindComment          Kind = "comment"
	KindDelayed          Kind = "delayed"
	KindMilestoneUpdated Kind = "milestone_updated"
	KindLineChanged      Kind = "line_changed"
	KindReceived         Kind = "received"
	KindApproved         Kind = "approved"
	KindCancelled        Kind = "cancelled"
)

// Payload is implemented by every audit payload.
type Payload interface {
	Kind() Kind
}

// Created records entity creation.
type Created struct {
	Status string `json:"status"`
	Source string `json:"source,omitempty"`
}

// StatusChanged records a committed status edge.
type StatusChanged struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Notes string `json:"notes,omitempty"`
}

// Assigned records an assignment edge and who received the work.
type Assigned struct {
	From       string    `json:"from"`
	To         string    `json:"to"`
	AssigneeID uuid.UUID `json:"assigneeId"`
	Overrides  []string  `json:"overrides,omitempty"`
}

// Submitted records a design submission for review.
type Submitted struct {
	AssetVersions []int  `json:"assetVersions"`
	Notes         string `json:"notes,omitempty"`
}

// Reviewed records an admin review decision.
type Reviewed struct {
	Decision string `json:"decision"`
	Feedback string `json:"feedback,omitempty"`
}

// Comment is free-form discussion on an entity.
type Comment struct {
	Body string `json:"body"`
}

// Delayed records a reported production delay.
type Delayed struct {
	Reason              string    `json:"reason"`
	EstimatedCompletion time.Time `json:"estimatedCompletion"`
}

// MilestoneUpdated records a milestone create or update.
type MilestoneUpdated struct {
	MilestoneID uuid.UUID `json:"milestoneId"`
	Name        string    `json:"name"`
	Status      string    `json:"status"`
}

// LineChanged records a purchase order line edit.
type LineChanged struct {
	LineID     uuid.UUID `json:"lineId"`
	Action     string    `json:"action"`
	TotalCents int64     `json:"totalCents"`
}

// ReceivedLine is one line of a receipt.
type ReceivedLine struct {
	LineID   uuid.UUID `json:"lineId"`
	Quantity int64     `json:"quantity"`
}

// Received records goods received against a purchase order.
type Received struct {
	Lines  []ReceivedLine `json:"lines"`
	Status string         `json:"status"`
}

// Approved records purchase order approval.
type Approved struct {
	ApprovedBy uuid.UUID `json:"approvedBy"`
}

// Cancelled records a cancellation.
type Cancelled struct {
	From   string `json:"from"`
	Reason string `json:"reason,omitempty"`
}

func (Created) Kind() Kind          { return KindCreated }
func (StatusChanged) Kind() Kind    { return KindStatusChanged }
func (Assigned) Kind() Kind         { return KindAssigned }
func (Submitted) Kind() Kind        { return KindSubmitted }
func (Reviewed) Kind() Kind         { return KindReviewed }
func (Comment) Kind() Kind          { return KindComment }
func (Delayed) Kind() Kind          { return KindDelayed }
func (MilestoneUpdated) Kind() Kind { return KindMilestoneUpdated }
func (LineChanged) Kind() Kind      { return KindLineChanged }
func (Received) Kind() Kind         { return KindReceived }
func (Approved) Kind() Kind         { return KindApproved }
func (Cancelled) Kind() Kind        { return KindCancelled }

var registry = map[Kind]func() Payload{
	KindCreated:          func() Payload { return &Created{} },
	KindStatusChanged:    func() Payload { return &StatusChanged{} },
	KindAssigned:         func() Payload { return &Assigned{} },
	KindSubmitted:        func() Payload { return &Submitted{} },
	KindReviewed:         func() Payload { return &Reviewed{} },
	KindComment:          func() Payload { return &Comment{} },
	KindDelayed:          func() Payload { return &Delayed{} },
	KindMilestoneUpdated: func() Payload { return &MilestoneUpdated{} },
	KindLineChanged:      func() Payload { return &LineChanged{} },
	KindReceived:         func() Payload { return &Received{} },
	KindApproved:         func() Payload { return &Approved{} },
	KindCancelled:        func() Payload { return &Cancelled{} },
}

// Encode serializes a payload for storage.
func Encode(p Payload) (Kind, []byte, error) {
	if p == nil {
		return "", nil, fmt.Errorf("nil audit payload")
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return "", nil, fmt.Errorf("encode %s payload: %w", p.Kind(), err)
	}
	return p.Kind(), raw, nil
}

// Decode restores the concrete payload stored under kind. The returned value
// is a pointer to the payload struct.
func Decode(kind Kind, raw []byte) (Payload, error) {
	factory, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("unknown audit kind %q", kind)
	}
	p := factory()
	if len(raw) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", kind, err)
	}
	return p, nil
}

// Entry is one stored log row.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenantId"`
	EntityID  uuid.UUID `json:"entityId"`
	Kind      Kind      `json:"kind"`
	ActorID   uuid.UUID `json:"actorId"`
	Payload   Payload   `json:"payload"`
	CreatedAt time.Time `json:"createdAt"`
}

// Log is a per-entity event table.
type Log struct {
	table    string
	entityFK string
}

// Logs for the three lifecycle-managed entities.
var (
	DesignJobLog     = Log{table: "design_job_events", entityFK: "design_job_id"}
	WorkOrderLog     = Log{table: "work_order_events", entityFK: "work_order_id"}
	PurchaseOrderLog = Log{table: "purchase_order_events", entityFK: "purchase_order_id"}
)

// Append writes one entry inside the caller's transaction.
func (l Log) Append(ctx context.Context, tx pgx.Tx, tenantID, entityID, actorID uuid.UUID, p Payload) error {
	kind, raw, err := Encode(p)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`INSERT INTO %s (id, tenant_id, %s, kind, actor_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`, l.table, l.entityFK)
	if _, err := tx.Exec(ctx, query, uuid.New(), tenantID, entityID, string(kind), actorID, raw, time.Now()); err != nil {
		return fmt.Errorf("append %s: %w", l.table, err)
	}
	return nil
}

// Querier is satisfied by pgxpool.Pool and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// List returns the entity's entries oldest first.
func (l Log) List(ctx context.Context, q Querier, tenantID, entityID uuid.UUID) ([]Entry, error) {
	query := fmt.Sprintf(`SELECT id, tenant_id, %s, kind, actor_id, payload, created_at
		FROM %s WHERE %s = $1 AND tenant_id = $2 ORDER BY created_at ASC, id ASC`, l.entityFK, l.table, l.entityFK)
	rows, err := q.Query(ctx, query, entityID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", l.table, err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var (
			e    Entry
			kind string
			raw  []byte
		)
		if err := rows.Scan(&e.ID, &e.TenantID, &e.EntityID, &kind, &e.ActorID, &raw, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan %s: %w", l.table, err)
		}
		e.Kind = Kind(kind)
		if e.Payload, err = Decode(e.Kind, raw); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
