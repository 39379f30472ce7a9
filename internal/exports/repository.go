package exports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WorkOrderRow is one line of the production schedule export.
type WorkOrderRow struct {
	Reference           string
	Status              string
	Priority            string
	Quantity            int
	Manufacturer        *string
	PlannedStart        *time.Time
	PlannedEnd          *time.Time
	EstimatedCompletion *time.Time
	DelayReason         *string
	TotalCostCents      int64
	CreatedAt           time.Time
}

// PurchaseOrderRow is one line of the purchasing export.
type PurchaseOrderRow struct {
	PONumber     string
	Status       string
	Supplier     string
	TotalCents   int64
	ExpectedDate *time.Time
	ApprovedAt   *time.Time
	ReceivedAt   *time.Time
	CreatedAt    time.Time
}

// Repository provides data access for export operations.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListWorkOrders returns work orders created in [from, to], oldest first.
func (r *Repository) ListWorkOrders(ctx context.Context, tenantID uuid.UUID, from time.Time, to time.Time, limit int) ([]WorkOrderRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT wo.reference, wo.status, wo.priority, wo.quantity, m.name,
			wo.planned_start, wo.planned_end, wo.estimated_completion, wo.delay_reason,
			wo.total_cost_cents, wo.created_at
		FROM work_orders wo
		LEFT JOIN manufacturers m ON m.id = wo.manufacturer_id
		WHERE wo.tenant_id = $1
			AND wo.created_at >= $2 AND wo.created_at <= $3
		ORDER BY wo.created_at ASC
		LIMIT $4
	`, tenantID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]WorkOrderRow, 0)
	for rows.Next() {
		var item WorkOrderRow
		if err := rows.Scan(
			&item.Reference,
			&item.Status,
			&item.Priority,
			&item.Quantity,
			&item.Manufacturer,
			&item.PlannedStart,
			&item.PlannedEnd,
			&item.EstimatedCompletion,
			&item.DelayReason,
			&item.TotalCostCents,
			&item.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListPurchaseOrders returns purchase orders created in [from, to], oldest first.
func (r *Repository) ListPurchaseOrders(ctx context.Context, tenantID uuid.UUID, from time.Time, to time.Time, limit int) ([]PurchaseOrderRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT po.po_number, po.status, s.name, po.total_cents,
			po.expected_date, po.approved_at, po.received_at, po.created_at
		FROM purchase_orders po
		JOIN suppliers s ON s.id = po.supplier_id
		WHERE po.tenant_id = $1
			AND po.created_at >= $2 AND po.created_at <= $3
		ORDER BY po.created_at ASC
		LIMIT $4
	`, tenantID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]PurchaseOrderRow, 0)
	for rows.Next() {
		var item PurchaseOrderRow
		if err := rows.Scan(
			&item.PONumber,
			&item.Status,
			&item.Supplier,
			&item.TotalCents,
			&item.ExpectedDate,
			&item.ApprovedAt,
			&item.ReceivedAt,
			&item.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
