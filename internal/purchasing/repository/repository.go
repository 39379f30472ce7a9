package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"production_backend/internal/auditlog"
	"production_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const purchaseOrderNotFoundMsg = "purchase order not found"

var (
	// ErrStale is returned when a status-guarded update matched no row.
	ErrStale = errors.New("purchase order status changed concurrently")
	// ErrNotEditable is returned when lines change outside draft or pending_approval.
	ErrNotEditable = errors.New("purchase order lines are frozen")
)

// EditableStatuses allow line changes.
var EditableStatuses = []string{"draft", "pending_approval"}

// PurchaseOrder represents the purchase order database model
type PurchaseOrder struct {
	ID           uuid.UUID  `db:"id"`
	TenantID     uuid.UUID  `db:"tenant_id"`
	SupplierID   uuid.UUID  `db:"supplier_id"`
	Number       string     `db:"po_number"`
	Status       string     `db:"status"`
	TotalCents   int64      `db:"total_cents"`
	Notes        *string    `db:"notes"`
	ExpectedDate *time.Time `db:"expected_date"`
	ApprovedBy   *uuid.UUID `db:"approved_by"`
	ApprovedAt   *time.Time `db:"approved_at"`
	SubmittedAt  *time.Time `db:"submitted_at"`
	ReceivedAt   *time.Time `db:"received_at"`
	CancelledAt  *time.Time `db:"cancelled_at"`
	CreatedBy    uuid.UUID  `db:"created_by"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

// Line is one material line of a purchase order.
type Line struct {
	ID               uuid.UUID  `db:"id"`
	TenantID         uuid.UUID  `db:"tenant_id"`
	PurchaseOrderID  uuid.UUID  `db:"purchase_order_id"`
	MaterialID       uuid.UUID  `db:"material_id"`
	RequirementID    *uuid.UUID `db:"requirement_id"`
	Description      string     `db:"description"`
	Quantity         int64      `db:"quantity"`
	UnitCostCents    int64      `db:"unit_cost_cents"`
	TotalCostCents   int64      `db:"total_cost_cents"`
	ReceivedQuantity int64      `db:"received_quantity"`
	CreatedAt        time.Time  `db:"created_at"`
}

// Repository provides database operations for purchase orders
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new purchasing repository
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const poColumns = `id, tenant_id, supplier_id, po_number, status, total_cents, notes, expected_date,
	approved_by, approved_at, submitted_at, received_at, cancelled_at, created_by, created_at, updated_at`

const lineColumns = `id, tenant_id, purchase_order_id, material_id, requirement_id, description, quantity,
	unit_cost_cents, total_cost_cents, received_quantity, created_at`

func scanPurchaseOrder(row pgx.Row) (*PurchaseOrder, error) {
	var p PurchaseOrder
	if err := row.Scan(&p.ID, &p.TenantID, &p.SupplierID, &p.Number, &p.Status, &p.TotalCents, &p.Notes, &p.ExpectedDate,
		&p.ApprovedBy, &p.ApprovedAt, &p.SubmittedAt, &p.ReceivedAt, &p.CancelledAt, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func scanLine(row pgx.Row) (*Line, error) {
	var l Line
	if err := row.Scan(&l.ID, &l.TenantID, &l.PurchaseOrderID, &l.MaterialID, &l.RequirementID, &l.Description, &l.Quantity,
		&l.UnitCostCents, &l.TotalCostCents, &l.ReceivedQuantity, &l.CreatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}

// FormatNumber renders a purchase order number as PO-YYYY-NNNN.
func FormatNumber(year, seq int) string {
	return fmt.Sprintf("PO-%d-%04d", year, seq)
}

// nextNumber allocates the tenant's next purchase order number for the year.
func nextNumber(ctx context.Context, tx pgx.Tx, tenantID uuid.UUID, year int) (string, error) {
	var seq int
	err := tx.QueryRow(ctx, `
		INSERT INTO purchase_order_sequences (tenant_id, year, last_seq)
		VALUES ($1, $2, 1)
		ON CONFLICT (tenant_id, year) DO UPDATE SET last_seq = purchase_order_sequences.last_seq + 1
		RETURNING last_seq`, tenantID, year).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("failed to allocate purchase order number: %w", err)
	}
	return FormatNumber(year, seq), nil
}

// insert writes a purchase order with its lines and a creation event. The
// number is allocated here and set on po.
func insert(ctx context.Context, tx pgx.Tx, po *PurchaseOrder, lines []Line, source string) error {
	number, err := nextNumber(ctx, tx, po.TenantID, po.CreatedAt.Year())
	if err != nil {
		return err
	}
	po.Number = number
	po.TotalCents = 0
	for _, l := range lines {
		po.TotalCents += l.TotalCostCents
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO purchase_orders (id, tenant_id, supplier_id, po_number, status, total_cents, notes, expected_date,
			created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`,
		po.ID, po.TenantID, po.SupplierID, po.Number, po.Status, po.TotalCents, po.Notes, po.ExpectedDate,
		po.CreatedBy, po.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create purchase order: %w", err)
	}
	for _, l := range lines {
		if err := insertLine(ctx, tx, l); err != nil {
			return err
		}
	}
	return auditlog.PurchaseOrderLog.Append(ctx, tx, po.TenantID, po.ID, po.CreatedBy,
		auditlog.Created{Status: po.Status, Source: source})
}

func insertLine(ctx context.Context, tx pgx.Tx, l Line) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO purchase_order_lines (id, tenant_id, purchase_order_id, material_id, requirement_id, description,
			quantity, unit_cost_cents, total_cost_cents, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		l.ID, l.TenantID, l.PurchaseOrderID, l.MaterialID, l.RequirementID, l.Description,
		l.Quantity, l.UnitCostCents, l.TotalCostCents, l.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create purchase order line: %w", err)
	}
	return nil
}

// CreatePurchaseOrder inserts a purchase order with its lines. po.Number and
// po.TotalCents are filled in.
func (r *Repository) CreatePurchaseOrder(ctx context.Context, po *PurchaseOrder, lines []Line) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := insert(ctx, tx, po, lines, "manual"); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit purchase order: %w", err)
	}
	return nil
}

// GetPurchaseOrder returns a purchase order by id regardless of tenant. Callers enforce scope.
func (r *Repository) GetPurchaseOrder(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error) {
	po, err := scanPurchaseOrder(r.pool.QueryRow(ctx, `SELECT `+poColumns+` FROM purchase_orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(purchaseOrderNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get purchase order: %w", err)
	}
	return po, nil
}

// ListLines returns the purchase order's lines in creation order.
func (r *Repository) ListLines(ctx context.Context, tenantID, purchaseOrderID uuid.UUID) ([]Line, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+lineColumns+` FROM purchase_order_lines
		WHERE tenant_id = $1 AND purchase_order_id = $2 ORDER BY created_at, id`, tenantID, purchaseOrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchase order lines: %w", err)
	}
	defer rows.Close()

	out := make([]Line, 0)
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan purchase order line: %w", err)
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

// ListParams filters the purchase order list.
type ListParams struct {
	TenantID   uuid.UUID
	Status     string
	SupplierID *uuid.UUID
	Limit      int
	Offset     int
}

// ListPurchaseOrders returns a page of purchase orders and the total count.
func (r *Repository) ListPurchaseOrders(ctx context.Context, p ListParams) ([]PurchaseOrder, int, error) {
	where := ` WHERE tenant_id = $1 AND ($2 = '' OR status = $2) AND ($3::uuid IS NULL OR supplier_id = $3)`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM purchase_orders`+where, p.TenantID, p.Status, p.SupplierID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count purchase orders: %w", err)
	}
	rows, err := r.pool.Query(ctx, `SELECT `+poColumns+` FROM purchase_orders`+where+`
		ORDER BY created_at DESC, id LIMIT $4 OFFSET $5`, p.TenantID, p.Status, p.SupplierID, p.Limit, p.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list purchase orders: %w", err)
	}
	defer rows.Close()

	out := make([]PurchaseOrder, 0)
	for rows.Next() {
		po, err := scanPurchaseOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan purchase order: %w", err)
		}
		out = append(out, *po)
	}
	return out, total, rows.Err()
}

// Stamp names the timestamp column a transition sets.
type Stamp string

const (
	StampNone      Stamp = ""
	StampApproved  Stamp = "approved"
	StampSubmitted Stamp = "submitted"
	StampReceived  Stamp = "received"
	StampCancelled Stamp = "cancelled"
)

// TransitionParams describes one status-guarded change.
type TransitionParams struct {
	TenantID uuid.UUID
	ID       uuid.UUID
	From     string
	To       string
	ActorID  uuid.UUID
	Stamp    Stamp
	Events   []auditlog.Payload
}

// Transition moves the purchase order from p.From to p.To and appends
// p.Events in the same transaction. Submission puts the lines on order in
// the material counters; cancellation releases generated lines back to their
// material requirements.
func (r *Repository) Transition(ctx context.Context, p TransitionParams) (*PurchaseOrder, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	po, err := scanPurchaseOrder(tx.QueryRow(ctx, `
		UPDATE purchase_orders
		SET status = $4,
			approved_by = CASE WHEN $5 = 'approved' THEN $6 ELSE approved_by END,
			approved_at = CASE WHEN $5 = 'approved' THEN now() ELSE approved_at END,
			submitted_at = CASE WHEN $5 = 'submitted' THEN now() ELSE submitted_at END,
			received_at = CASE WHEN $5 = 'received' THEN now() ELSE received_at END,
			cancelled_at = CASE WHEN $5 = 'cancelled' THEN now() ELSE cancelled_at END,
			updated_at = now()
		WHERE id = $1 AND tenant_id = $2 AND status = $3
		RETURNING `+poColumns, p.ID, p.TenantID, p.From, p.To, string(p.Stamp), p.ActorID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStale
		}
		return nil, fmt.Errorf("failed to update purchase order status: %w", err)
	}

	if p.Stamp == StampSubmitted {
		if _, err := tx.Exec(ctx, `
			UPDATE materials m SET quantity_on_order = m.quantity_on_order + l.quantity
			FROM (SELECT material_id, SUM(quantity) AS quantity FROM purchase_order_lines
				WHERE purchase_order_id = $1 GROUP BY material_id) l
			WHERE m.id = l.material_id`, p.ID); err != nil {
			return nil, fmt.Errorf("failed to update material counters: %w", err)
		}
	}

	if p.Stamp == StampCancelled {
		if err := releaseRequirements(ctx, tx, p.ID); err != nil {
			return nil, err
		}
	}

	for _, ev := range p.Events {
		if err := auditlog.PurchaseOrderLog.Append(ctx, tx, p.TenantID, p.ID, p.ActorID, ev); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit purchase order transition: %w", err)
	}
	return po, nil
}

// ListEvents returns the purchase order's audit log oldest first.
func (r *Repository) ListEvents(ctx context.Context, tenantID, purchaseOrderID uuid.UUID) ([]auditlog.Entry, error) {
	return auditlog.PurchaseOrderLog.List(ctx, r.pool, tenantID, purchaseOrderID)
}
