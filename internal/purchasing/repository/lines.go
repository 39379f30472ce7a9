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

// lockEditable locks the purchase order row and checks that its lines may change.
func lockEditable(ctx context.Context, tx pgx.Tx, tenantID, id uuid.UUID) (*PurchaseOrder, error) {
	po, err := scanPurchaseOrder(tx.QueryRow(ctx, `SELECT `+poColumns+` FROM purchase_orders
		WHERE id = $1 AND tenant_id = $2 FOR UPDATE`, id, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(purchaseOrderNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to lock purchase order: %w", err)
	}
	for _, s := range EditableStatuses {
		if po.Status == s {
			return po, nil
		}
	}
	return nil, ErrNotEditable
}

// recomputeTotal sets the purchase order total to the sum of its lines.
func recomputeTotal(ctx context.Context, tx pgx.Tx, id uuid.UUID) (int64, error) {
	var total int64
	err := tx.QueryRow(ctx, `
		UPDATE purchase_orders
		SET total_cents = (SELECT COALESCE(SUM(total_cost_cents), 0) FROM purchase_order_lines WHERE purchase_order_id = $1),
			updated_at = now()
		WHERE id = $1
		RETURNING total_cents`, id).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to recompute purchase order total: %w", err)
	}
	return total, nil
}

// LineEdit is a single line mutation.
type LineEdit struct {
	TenantID        uuid.UUID
	PurchaseOrderID uuid.UUID
	ActorID         uuid.UUID
}

func (r *Repository) editLines(ctx context.Context, e LineEdit, action string, lineID uuid.UUID, apply func(tx pgx.Tx) error) (*PurchaseOrder, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	po, err := lockEditable(ctx, tx, e.TenantID, e.PurchaseOrderID)
	if err != nil {
		return nil, err
	}
	if err := apply(tx); err != nil {
		return nil, err
	}
	total, err := recomputeTotal(ctx, tx, e.PurchaseOrderID)
	if err != nil {
		return nil, err
	}
	po.TotalCents = total

	if err := auditlog.PurchaseOrderLog.Append(ctx, tx, e.TenantID, e.PurchaseOrderID, e.ActorID,
		auditlog.LineChanged{LineID: lineID, Action: action, TotalCents: total}); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit line change: %w", err)
	}
	return po, nil
}

// AddLine adds a line and recomputes the total.
func (r *Repository) AddLine(ctx context.Context, e LineEdit, l Line) (*PurchaseOrder, error) {
	return r.editLines(ctx, e, "added", l.ID, func(tx pgx.Tx) error {
		return insertLine(ctx, tx, l)
	})
}

// UpdateLine changes a line's quantity and unit cost and recomputes the total.
// A generated line moves its requirement's ordered quantity with it.
func (r *Repository) UpdateLine(ctx context.Context, e LineEdit, lineID uuid.UUID, quantity, unitCostCents int64) (*PurchaseOrder, error) {
	return r.editLines(ctx, e, "updated", lineID, func(tx pgx.Tx) error {
		before, requirementID, err := lockLine(ctx, tx, e.PurchaseOrderID, lineID)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE purchase_order_lines
			SET quantity = $3, unit_cost_cents = $4, total_cost_cents = $3 * $4
			WHERE id = $1 AND purchase_order_id = $2`, lineID, e.PurchaseOrderID, quantity, unitCostCents); err != nil {
			return fmt.Errorf("failed to update purchase order line: %w", err)
		}
		return adjustOrdered(ctx, tx, requirementID, quantity-before)
	})
}

// RemoveLine deletes a line, releases its requirement and recomputes the total.
func (r *Repository) RemoveLine(ctx context.Context, e LineEdit, lineID uuid.UUID) (*PurchaseOrder, error) {
	return r.editLines(ctx, e, "removed", lineID, func(tx pgx.Tx) error {
		before, requirementID, err := lockLine(ctx, tx, e.PurchaseOrderID, lineID)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM purchase_order_lines WHERE id = $1 AND purchase_order_id = $2`,
			lineID, e.PurchaseOrderID); err != nil {
			return fmt.Errorf("failed to remove purchase order line: %w", err)
		}
		return adjustOrdered(ctx, tx, requirementID, -before)
	})
}

// lockLine returns the line's quantity and the requirement it was generated from.
func lockLine(ctx context.Context, tx pgx.Tx, purchaseOrderID, lineID uuid.UUID) (int64, *uuid.UUID, error) {
	var (
		quantity      int64
		requirementID *uuid.UUID
	)
	err := tx.QueryRow(ctx, `SELECT quantity, requirement_id FROM purchase_order_lines
		WHERE id = $1 AND purchase_order_id = $2 FOR UPDATE`, lineID, purchaseOrderID).Scan(&quantity, &requirementID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil, apperr.NotFound("purchase order line not found")
		}
		return 0, nil, fmt.Errorf("failed to lock purchase order line: %w", err)
	}
	return quantity, requirementID, nil
}

// adjustOrdered moves a requirement's ordered quantity by delta, never below zero.
func adjustOrdered(ctx context.Context, tx pgx.Tx, requirementID *uuid.UUID, delta int64) error {
	if requirementID == nil || delta == 0 {
		return nil
	}
	if _, err := tx.Exec(ctx, `
		UPDATE work_order_materials
		SET ordered_quantity = GREATEST(ordered_quantity + $2, 0)
		WHERE id = $1`, *requirementID, delta); err != nil {
		return fmt.Errorf("failed to adjust ordered quantity: %w", err)
	}
	return nil
}

// releaseRequirements gives the open quantity of every generated line back
// to its requirement so it can be ordered again.
func releaseRequirements(ctx context.Context, tx pgx.Tx, purchaseOrderID uuid.UUID) error {
	if _, err := tx.Exec(ctx, `
		UPDATE work_order_materials w
		SET ordered_quantity = GREATEST(w.ordered_quantity - l.open, 0)
		FROM (SELECT requirement_id, SUM(quantity - received_quantity) AS open FROM purchase_order_lines
			WHERE purchase_order_id = $1 AND requirement_id IS NOT NULL GROUP BY requirement_id) l
		WHERE w.id = l.requirement_id`, purchaseOrderID); err != nil {
		return fmt.Errorf("failed to release material requirements: %w", err)
	}
	return nil
}

// ReceiptLine is the quantity received for one line.
type ReceiptLine struct {
	LineID   uuid.UUID
	Quantity int64
}

// DecideFunc picks the status after a receipt. It returns from unchanged
// when no transition applies, or an error to abort the receipt.
type DecideFunc func(from string, allReceived bool) (string, error)

// ReceiveParams records a receipt. Precheck runs against the locked status
// before any line changes.
type ReceiveParams struct {
	TenantID uuid.UUID
	ID       uuid.UUID
	ActorID  uuid.UUID
	Lines    []ReceiptLine
	Notes    *string
	Precheck func(from string) error
	Decide   DecideFunc
}

// ReceiveItems records receipts per line, moves material counters and
// applies the status chosen by p.Decide, all in one transaction.
func (r *Repository) ReceiveItems(ctx context.Context, p ReceiveParams) (*PurchaseOrder, string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	po, err := scanPurchaseOrder(tx.QueryRow(ctx, `SELECT `+poColumns+` FROM purchase_orders
		WHERE id = $1 AND tenant_id = $2 FOR UPDATE`, p.ID, p.TenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", apperr.NotFound(purchaseOrderNotFoundMsg)
		}
		return nil, "", fmt.Errorf("failed to lock purchase order: %w", err)
	}
	from := po.Status
	if p.Precheck != nil {
		if err := p.Precheck(from); err != nil {
			return nil, "", err
		}
	}

	for _, rl := range p.Lines {
		var materialID uuid.UUID
		err := tx.QueryRow(ctx, `
			UPDATE purchase_order_lines
			SET received_quantity = received_quantity + $3
			WHERE id = $1 AND purchase_order_id = $2 AND received_quantity + $3 <= quantity
			RETURNING material_id`, rl.LineID, p.ID, rl.Quantity).Scan(&materialID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, "", apperr.Validation("received quantity exceeds the outstanding quantity or line does not exist").
					WithDetails(map[string]string{"lineId": rl.LineID.String()})
			}
			return nil, "", fmt.Errorf("failed to record line receipt: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO purchase_order_receipts (tenant_id, purchase_order_id, line_id, quantity, received_by, notes)
			VALUES ($1, $2, $3, $4, $5, $6)`, p.TenantID, p.ID, rl.LineID, rl.Quantity, p.ActorID, p.Notes); err != nil {
			return nil, "", fmt.Errorf("failed to insert receipt: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE materials
			SET quantity_received = quantity_received + $2,
				quantity_on_order = GREATEST(quantity_on_order - $2, 0)
			WHERE id = $1`, materialID, rl.Quantity); err != nil {
			return nil, "", fmt.Errorf("failed to update material counters: %w", err)
		}
	}

	var allReceived bool
	if err := tx.QueryRow(ctx, `SELECT COALESCE(bool_and(received_quantity = quantity), false)
		FROM purchase_order_lines WHERE purchase_order_id = $1`, p.ID).Scan(&allReceived); err != nil {
		return nil, "", fmt.Errorf("failed to check receipt completeness: %w", err)
	}

	to, err := p.Decide(from, allReceived)
	if err != nil {
		return nil, "", err
	}

	received := make([]auditlog.ReceivedLine, 0, len(p.Lines))
	for _, rl := range p.Lines {
		received = append(received, auditlog.ReceivedLine{LineID: rl.LineID, Quantity: rl.Quantity})
	}
	evs := []auditlog.Payload{auditlog.Received{Lines: received, Status: to}}

	if to != from {
		po, err = scanPurchaseOrder(tx.QueryRow(ctx, `
			UPDATE purchase_orders
			SET status = $2,
				received_at = CASE WHEN $2 = 'received' THEN now() ELSE received_at END,
				updated_at = now()
			WHERE id = $1
			RETURNING `+poColumns, p.ID, to))
		if err != nil {
			return nil, "", fmt.Errorf("failed to update purchase order status: %w", err)
		}
		evs = append(evs, auditlog.StatusChanged{From: from, To: to})
	}

	for _, ev := range evs {
		if err := auditlog.PurchaseOrderLog.Append(ctx, tx, p.TenantID, p.ID, p.ActorID, ev); err != nil {
			return nil, "", err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, "", fmt.Errorf("failed to commit receipt: %w", err)
	}
	return po, from, nil
}
