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
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	workOrderNotFoundMsg = "work order not found"
	pgUniqueViolation    = "23505"
)

var (
	// ErrStale is returned when a status-guarded update matched no row.
	ErrStale = errors.New("work order status changed concurrently")
	// ErrCapacityExceeded is returned when the manufacturer has no free slot
	// at commit time.
	ErrCapacityExceeded = errors.New("manufacturer capacity exceeded")
)

// OpenStatuses count toward a manufacturer's load.
var OpenStatuses = []string{"assigned", "in_progress", "delayed"}

// WorkOrder represents the work order database model
type WorkOrder struct {
	ID                  uuid.UUID  `db:"id"`
	TenantID            uuid.UUID  `db:"tenant_id"`
	Reference           string     `db:"reference"`
	OrderItemID         uuid.UUID  `db:"order_item_id"`
	OrderID             uuid.UUID  `db:"order_id"`
	DesignJobID         uuid.UUID  `db:"design_job_id"`
	ManufacturerID      *uuid.UUID `db:"manufacturer_id"`
	Status              string     `db:"status"`
	Quantity            int        `db:"quantity"`
	RequiredSpecialties []string   `db:"required_specialties"`
	UnitCostCents       int64      `db:"unit_cost_cents"`
	TotalCostCents      int64      `db:"total_cost_cents"`
	Priority            string     `db:"priority"`
	PlannedStart        *time.Time `db:"planned_start"`
	PlannedEnd          *time.Time `db:"planned_end"`
	ActualStart         *time.Time `db:"actual_start"`
	ActualEnd           *time.Time `db:"actual_end"`
	EstimatedCompletion *time.Time `db:"estimated_completion"`
	DelayReason         *string    `db:"delay_reason"`
	QualityNotes        *string    `db:"quality_notes"`
	CreatedBy           uuid.UUID  `db:"created_by"`
	CreatedAt           time.Time  `db:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at"`
}

// Milestone is a production checkpoint of a work order.
type Milestone struct {
	ID          uuid.UUID  `db:"id"`
	TenantID    uuid.UUID  `db:"tenant_id"`
	WorkOrderID uuid.UUID  `db:"work_order_id"`
	Name        string     `db:"name"`
	SortOrder   int        `db:"sort_order"`
	DueDate     *time.Time `db:"due_date"`
	CompletedAt *time.Time `db:"completed_at"`
	Status      string     `db:"status"`
	Notes       *string    `db:"notes"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

// MaterialRequirement is material a work order needs purchased.
type MaterialRequirement struct {
	ID              uuid.UUID `db:"id"`
	TenantID        uuid.UUID `db:"tenant_id"`
	WorkOrderID     uuid.UUID `db:"work_order_id"`
	MaterialID      uuid.UUID `db:"material_id"`
	SupplierID      uuid.UUID `db:"supplier_id"`
	Quantity        int64     `db:"quantity"`
	UnitCostCents   int64     `db:"unit_cost_cents"`
	OrderedQuantity int64     `db:"ordered_quantity"`
	CreatedAt       time.Time `db:"created_at"`
}

// ManufacturerLoad summarizes a manufacturer's work.
type ManufacturerLoad struct {
	Capacity int
	Open     int
	ByStatus map[string]int
}

// Repository provides database operations for work orders
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new work orders repository
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const woColumns = `wo.id, wo.tenant_id, wo.reference, wo.order_item_id, i.order_id, wo.design_job_id,
	wo.manufacturer_id, wo.status, wo.quantity, wo.required_specialties, wo.unit_cost_cents,
	wo.total_cost_cents, wo.priority, wo.planned_start, wo.planned_end, wo.actual_start, wo.actual_end,
	wo.estimated_completion, wo.delay_reason, wo.quality_notes, wo.created_by, wo.created_at, wo.updated_at`

const woFrom = ` FROM work_orders wo JOIN order_items i ON i.id = wo.order_item_id`

func scanWorkOrder(row pgx.Row) (*WorkOrder, error) {
	var w WorkOrder
	if err := row.Scan(&w.ID, &w.TenantID, &w.Reference, &w.OrderItemID, &w.OrderID, &w.DesignJobID,
		&w.ManufacturerID, &w.Status, &w.Quantity, &w.RequiredSpecialties, &w.UnitCostCents,
		&w.TotalCostCents, &w.Priority, &w.PlannedStart, &w.PlannedEnd, &w.ActualStart, &w.ActualEnd,
		&w.EstimatedCompletion, &w.DelayReason, &w.QualityNotes, &w.CreatedBy, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	return &w, nil
}

// reserveCapacity locks the manufacturer row and fails when adding more
// open work orders would exceed its capacity. Capacity 0 means no limit.
func reserveCapacity(ctx context.Context, tx pgx.Tx, tenantID, manufacturerID uuid.UUID, adding int) error {
	var capacity int
	err := tx.QueryRow(ctx, `SELECT capacity FROM manufacturers WHERE id = $1 AND tenant_id = $2 FOR UPDATE`,
		manufacturerID, tenantID).Scan(&capacity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("manufacturer not found")
		}
		return fmt.Errorf("failed to lock manufacturer: %w", err)
	}
	if capacity == 0 {
		return nil
	}

	var open int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM work_orders WHERE manufacturer_id = $1 AND status = ANY($2)`,
		manufacturerID, OpenStatuses).Scan(&open); err != nil {
		return fmt.Errorf("failed to count open work orders: %w", err)
	}
	if open+adding > capacity {
		return ErrCapacityExceeded
	}
	return nil
}

// CreateParams creates work orders in one transaction.
type CreateParams struct {
	WorkOrders []WorkOrder
	// CheckCapacity re-checks capacity for pre-assigned work orders under a row lock.
	CheckCapacity bool
}

// CreateWorkOrders inserts the work orders and their creation events. Either
// all are created or none.
func (r *Repository) CreateWorkOrders(ctx context.Context, p CreateParams) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if p.CheckCapacity {
		adding := make(map[uuid.UUID]int)
		var order []uuid.UUID
		for _, w := range p.WorkOrders {
			if w.ManufacturerID == nil {
				continue
			}
			if adding[*w.ManufacturerID] == 0 {
				order = append(order, *w.ManufacturerID)
			}
			adding[*w.ManufacturerID]++
		}
		for _, m := range order {
			if err := reserveCapacity(ctx, tx, p.WorkOrders[0].TenantID, m, adding[m]); err != nil {
				return err
			}
		}
	}

	for _, w := range p.WorkOrders {
		_, err := tx.Exec(ctx, `
			INSERT INTO work_orders (id, tenant_id, reference, order_item_id, design_job_id, manufacturer_id, status,
				quantity, required_specialties, unit_cost_cents, total_cost_cents, priority, planned_start, planned_end,
				created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $16)`,
			w.ID, w.TenantID, w.Reference, w.OrderItemID, w.DesignJobID, w.ManufacturerID, w.Status,
			w.Quantity, w.RequiredSpecialties, w.UnitCostCents, w.TotalCostCents, w.Priority, w.PlannedStart, w.PlannedEnd,
			w.CreatedBy, w.CreatedAt,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
				return apperr.Conflict("a work order already exists for this order item").
					WithDetails(map[string]string{"orderItemId": w.OrderItemID.String()})
			}
			return fmt.Errorf("failed to create work order: %w", err)
		}
		if err := auditlog.WorkOrderLog.Append(ctx, tx, w.TenantID, w.ID, w.CreatedBy, auditlog.Created{Status: w.Status}); err != nil {
			return err
		}
		if w.ManufacturerID != nil {
			if err := auditlog.WorkOrderLog.Append(ctx, tx, w.TenantID, w.ID, w.CreatedBy,
				auditlog.Assigned{To: w.Status, AssigneeID: *w.ManufacturerID}); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit work orders: %w", err)
	}
	return nil
}

// GetWorkOrder returns a work order by id regardless of tenant. Callers enforce scope.
func (r *Repository) GetWorkOrder(ctx context.Context, id uuid.UUID) (*WorkOrder, error) {
	w, err := scanWorkOrder(r.pool.QueryRow(ctx, `SELECT `+woColumns+woFrom+` WHERE wo.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(workOrderNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get work order: %w", err)
	}
	return w, nil
}

// GetWorkOrders returns the tenant's work orders among ids.
func (r *Repository) GetWorkOrders(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]WorkOrder, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+woColumns+woFrom+` WHERE wo.tenant_id = $1 AND wo.id = ANY($2)`, tenantID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get work orders: %w", err)
	}
	return collectWorkOrders(rows)
}

func collectWorkOrders(rows pgx.Rows) ([]WorkOrder, error) {
	defer rows.Close()
	out := make([]WorkOrder, 0)
	for rows.Next() {
		w, err := scanWorkOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan work order: %w", err)
		}
		out = append(out, *w)
	}
	return out, rows.Err()
}

// ListParams filters the work order list.
type ListParams struct {
	TenantID       uuid.UUID
	Status         string
	ManufacturerID *uuid.UUID
	OrderID        *uuid.UUID
	Limit          int
	Offset         int
}

// ListWorkOrders returns a page of work orders and the total count.
func (r *Repository) ListWorkOrders(ctx context.Context, p ListParams) ([]WorkOrder, int, error) {
	where := ` WHERE wo.tenant_id = $1
		AND ($2 = '' OR wo.status = $2)
		AND ($3::uuid IS NULL OR wo.manufacturer_id = $3)
		AND ($4::uuid IS NULL OR i.order_id = $4)`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+woFrom+where, p.TenantID, p.Status, p.ManufacturerID, p.OrderID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count work orders: %w", err)
	}
	rows, err := r.pool.Query(ctx, `SELECT `+woColumns+woFrom+where+`
		ORDER BY wo.created_at DESC, wo.id LIMIT $5 OFFSET $6`,
		p.TenantID, p.Status, p.ManufacturerID, p.OrderID, p.Limit, p.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list work orders: %w", err)
	}
	out, err := collectWorkOrders(rows)
	return out, total, err
}

// StatusFields are optional columns written with a status change. Nil
// leaves the column unchanged; actual start keeps its first value.
type StatusFields struct {
	ActualStart         *time.Time
	ActualEnd           *time.Time
	EstimatedCompletion *time.Time
	DelayReason         *string
	QualityNotes        *string
}

// TransitionParams describes one status-guarded change.
type TransitionParams struct {
	TenantID        uuid.UUID
	ID              uuid.UUID
	From            string
	To              string
	ActorID         uuid.UUID
	SetManufacturer bool
	ManufacturerID  *uuid.UUID
	// CheckCapacity locks the manufacturer and re-counts open work orders.
	CheckCapacity bool
	Fields        StatusFields
	Events        []auditlog.Payload
}

// Transition moves the work order from p.From to p.To and appends p.Events
// in the same transaction.
func (r *Repository) Transition(ctx context.Context, p TransitionParams) (*WorkOrder, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if p.SetManufacturer && p.CheckCapacity && p.ManufacturerID != nil {
		if err := reserveCapacity(ctx, tx, p.TenantID, *p.ManufacturerID, 1); err != nil {
			return nil, err
		}
	}

	tag, err := tx.Exec(ctx, `
		UPDATE work_orders
		SET status = $4,
			manufacturer_id = CASE WHEN $5 THEN $6 ELSE manufacturer_id END,
			actual_start = COALESCE(actual_start, $7),
			actual_end = COALESCE($8, actual_end),
			estimated_completion = COALESCE($9, estimated_completion),
			delay_reason = COALESCE($10, delay_reason),
			quality_notes = COALESCE($11, quality_notes),
			updated_at = now()
		WHERE id = $1 AND tenant_id = $2 AND status = $3`,
		p.ID, p.TenantID, p.From, p.To, p.SetManufacturer, p.ManufacturerID,
		p.Fields.ActualStart, p.Fields.ActualEnd, p.Fields.EstimatedCompletion, p.Fields.DelayReason, p.Fields.QualityNotes)
	if err != nil {
		return nil, fmt.Errorf("failed to update work order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrStale
	}

	for _, ev := range p.Events {
		if err := auditlog.WorkOrderLog.Append(ctx, tx, p.TenantID, p.ID, p.ActorID, ev); err != nil {
			return nil, err
		}
	}

	w, err := scanWorkOrder(tx.QueryRow(ctx, `SELECT `+woColumns+woFrom+` WHERE wo.id = $1`, p.ID))
	if err != nil {
		return nil, fmt.Errorf("failed to reload work order: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit work order transition: %w", err)
	}
	return w, nil
}

// ListEvents returns the work order's audit log oldest first.
func (r *Repository) ListEvents(ctx context.Context, tenantID, workOrderID uuid.UUID) ([]auditlog.Entry, error) {
	return auditlog.WorkOrderLog.List(ctx, r.pool, tenantID, workOrderID)
}

// ManufacturerLoad counts the manufacturer's work orders by status.
func (r *Repository) ManufacturerLoad(ctx context.Context, tenantID, manufacturerID uuid.UUID) (ManufacturerLoad, error) {
	load := ManufacturerLoad{ByStatus: map[string]int{}}
	if err := r.pool.QueryRow(ctx, `SELECT capacity FROM manufacturers WHERE id = $1 AND tenant_id = $2`,
		manufacturerID, tenantID).Scan(&load.Capacity); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return load, apperr.NotFound("manufacturer not found")
		}
		return load, fmt.Errorf("failed to get manufacturer: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT status, COUNT(*) FROM work_orders
		WHERE tenant_id = $1 AND manufacturer_id = $2
		GROUP BY status`, tenantID, manufacturerID)
	if err != nil {
		return load, fmt.Errorf("failed to count manufacturer work orders: %w", err)
	}
	defer rows.Close()

	open := make(map[string]bool, len(OpenStatuses))
	for _, s := range OpenStatuses {
		open[s] = true
	}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return load, fmt.Errorf("failed to scan manufacturer load: %w", err)
		}
		load.ByStatus[status] = n
		if open[status] {
			load.Open += n
		}
	}
	return load, rows.Err()
}
