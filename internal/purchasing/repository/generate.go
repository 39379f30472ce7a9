package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Requirement is an outstanding work order material need.
type Requirement struct {
	ID              uuid.UUID
	WorkOrderID     uuid.UUID
	MaterialID      uuid.UUID
	SupplierID      uuid.UUID
	Quantity        int64
	OrderedQuantity int64
	UnitCostCents   int64
}

// Outstanding is the quantity not yet on a purchase order.
func (r Requirement) Outstanding() int64 {
	return r.Quantity - r.OrderedQuantity
}

// Draft is a purchase order planned from requirements.
type Draft struct {
	PurchaseOrder PurchaseOrder
	Lines         []Line
}

// PlanFunc turns locked requirements into purchase order drafts.
type PlanFunc func(reqs []Requirement) ([]Draft, error)

// GenerateFromRequirements locks the outstanding material requirements of
// the work orders, creates the planned purchase orders and marks every
// requirement fully ordered, all in one transaction. Drafts are returned
// with numbers and totals filled in.
func (r *Repository) GenerateFromRequirements(ctx context.Context, tenantID uuid.UUID, workOrderIDs []uuid.UUID, plan PlanFunc) ([]Draft, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	reqs, err := lockOutstanding(ctx, tx, tenantID, workOrderIDs)
	if err != nil {
		return nil, err
	}
	drafts, err := plan(reqs)
	if err != nil {
		return nil, err
	}

	for i := range drafts {
		if err := insert(ctx, tx, &drafts[i].PurchaseOrder, drafts[i].Lines, "material_requirements"); err != nil {
			return nil, err
		}
	}

	ids := make([]uuid.UUID, 0, len(reqs))
	for _, req := range reqs {
		ids = append(ids, req.ID)
	}
	if len(ids) > 0 {
		if _, err := tx.Exec(ctx, `UPDATE work_order_materials SET ordered_quantity = quantity WHERE id = ANY($1)`, ids); err != nil {
			return nil, fmt.Errorf("failed to mark requirements ordered: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit generated purchase orders: %w", err)
	}
	return drafts, nil
}

func lockOutstanding(ctx context.Context, tx pgx.Tx, tenantID uuid.UUID, workOrderIDs []uuid.UUID) ([]Requirement, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, work_order_id, material_id, supplier_id, quantity, ordered_quantity, unit_cost_cents
		FROM work_order_materials
		WHERE tenant_id = $1 AND work_order_id = ANY($2) AND ordered_quantity < quantity
		ORDER BY supplier_id, created_at, id
		FOR UPDATE`, tenantID, workOrderIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load material requirements: %w", err)
	}
	defer rows.Close()

	out := make([]Requirement, 0)
	for rows.Next() {
		var req Requirement
		if err := rows.Scan(&req.ID, &req.WorkOrderID, &req.MaterialID, &req.SupplierID, &req.Quantity,
			&req.OrderedQuantity, &req.UnitCostCents); err != nil {
			return nil, fmt.Errorf("failed to scan material requirement: %w", err)
		}
		out = append(out, req)
	}
	return out, rows.Err()
}
