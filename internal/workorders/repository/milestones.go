package repository

import (
	"context"
	"errors"
	"fmt"

	"production_backend/internal/auditlog"
	"production_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const milestoneColumns = `id, tenant_id, work_order_id, name, sort_order, due_date, completed_at, status, notes, created_at, updated_at`

func scanMilestone(row pgx.Row) (*Milestone, error) {
	var m Milestone
	if err := row.Scan(&m.ID, &m.TenantID, &m.WorkOrderID, &m.Name, &m.SortOrder, &m.DueDate, &m.CompletedAt,
		&m.Status, &m.Notes, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

// CreateMilestone inserts a milestone and logs it on the work order.
func (r *Repository) CreateMilestone(ctx context.Context, m Milestone, actorID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		INSERT INTO work_order_milestones (id, tenant_id, work_order_id, name, sort_order, due_date, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`,
		m.ID, m.TenantID, m.WorkOrderID, m.Name, m.SortOrder, m.DueDate, m.Status, m.Notes, m.CreatedAt); err != nil {
		return fmt.Errorf("failed to create milestone: %w", err)
	}
	if err := auditlog.WorkOrderLog.Append(ctx, tx, m.TenantID, m.WorkOrderID, actorID,
		auditlog.MilestoneUpdated{MilestoneID: m.ID, Name: m.Name, Status: m.Status}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// UpdateMilestoneParams changes a milestone's status and notes.
type UpdateMilestoneParams struct {
	TenantID    uuid.UUID
	WorkOrderID uuid.UUID
	ID          uuid.UUID
	Status      string
	Notes       *string
	ActorID     uuid.UUID
}

// UpdateMilestone updates a milestone and logs the change. completed_at is
// set when the milestone becomes completed and cleared otherwise.
func (r *Repository) UpdateMilestone(ctx context.Context, p UpdateMilestoneParams) (*Milestone, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	m, err := scanMilestone(tx.QueryRow(ctx, `
		UPDATE work_order_milestones
		SET status = $4,
			notes = COALESCE($5, notes),
			completed_at = CASE WHEN $4 = 'completed' THEN COALESCE(completed_at, now()) ELSE NULL END,
			updated_at = now()
		WHERE id = $1 AND work_order_id = $2 AND tenant_id = $3
		RETURNING `+milestoneColumns, p.ID, p.WorkOrderID, p.TenantID, p.Status, p.Notes))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("milestone not found")
		}
		return nil, fmt.Errorf("failed to update milestone: %w", err)
	}
	if err := auditlog.WorkOrderLog.Append(ctx, tx, p.TenantID, p.WorkOrderID, p.ActorID,
		auditlog.MilestoneUpdated{MilestoneID: m.ID, Name: m.Name, Status: m.Status}); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit milestone: %w", err)
	}
	return m, nil
}

// ListMilestones returns the work order's milestones in display order.
func (r *Repository) ListMilestones(ctx context.Context, tenantID, workOrderID uuid.UUID) ([]Milestone, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+milestoneColumns+` FROM work_order_milestones
		WHERE work_order_id = $1 AND tenant_id = $2 ORDER BY sort_order, created_at`, workOrderID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list milestones: %w", err)
	}
	defer rows.Close()

	out := make([]Milestone, 0)
	for rows.Next() {
		m, err := scanMilestone(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan milestone: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// AddMaterialRequirement records material the work order needs.
func (r *Repository) AddMaterialRequirement(ctx context.Context, m MaterialRequirement) error {
	if _, err := r.pool.Exec(ctx, `
		INSERT INTO work_order_materials (id, tenant_id, work_order_id, material_id, supplier_id, quantity, unit_cost_cents, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		m.ID, m.TenantID, m.WorkOrderID, m.MaterialID, m.SupplierID, m.Quantity, m.UnitCostCents, m.CreatedAt); err != nil {
		return fmt.Errorf("failed to add material requirement: %w", err)
	}
	return nil
}

// ListMaterialRequirements returns the work order's material needs.
func (r *Repository) ListMaterialRequirements(ctx context.Context, tenantID, workOrderID uuid.UUID) ([]MaterialRequirement, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, work_order_id, material_id, supplier_id, quantity, unit_cost_cents, ordered_quantity, created_at
		FROM work_order_materials WHERE work_order_id = $1 AND tenant_id = $2 ORDER BY created_at, id`, workOrderID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list material requirements: %w", err)
	}
	defer rows.Close()

	out := make([]MaterialRequirement, 0)
	for rows.Next() {
		var m MaterialRequirement
		if err := rows.Scan(&m.ID, &m.TenantID, &m.WorkOrderID, &m.MaterialID, &m.SupplierID, &m.Quantity,
			&m.UnitCostCents, &m.OrderedQuantity, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan material requirement: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
