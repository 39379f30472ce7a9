package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"production_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	orderNotFoundMsg  = "order not found"
	pgUniqueViolation = "23505"
)

// Order represents the order database model
type Order struct {
	ID            uuid.UUID `db:"id"`
	TenantID      uuid.UUID `db:"tenant_id"`
	Reference     string    `db:"reference"`
	CustomerName  string    `db:"customer_name"`
	CustomerEmail *string   `db:"customer_email"`
	CustomerPhone *string   `db:"customer_phone"`
	TotalCents    int64     `db:"total_cents"`
	Status        string    `db:"status"`
	CreatedBy     uuid.UUID `db:"created_by"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// OrderItem represents one product line of an order.
type OrderItem struct {
	ID                  uuid.UUID `db:"id"`
	OrderID             uuid.UUID `db:"order_id"`
	TenantID            uuid.UUID `db:"tenant_id"`
	ProductRef          string    `db:"product_ref"`
	Description         string    `db:"description"`
	Quantity            int       `db:"quantity"`
	UnitPriceCents      int64     `db:"unit_price_cents"`
	RequiredSpecialties []string  `db:"required_specialties"`
	Status              string    `db:"status"`
	CreatedAt           time.Time `db:"created_at"`
	UpdatedAt           time.Time `db:"updated_at"`
}

// ItemProgress pairs an item with the status of its child entities.
type ItemProgress struct {
	ItemID          uuid.UUID
	ItemStatus      string
	DesignJobID     *uuid.UUID
	DesignJobStatus *string
	WorkOrderID     *uuid.UUID
	WorkOrderStatus *string
}

// Repository provides database operations for orders
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new orders repository
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateOrder inserts the order and its items in one transaction.
func (r *Repository) CreateOrder(ctx context.Context, order Order, items []OrderItem) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, tenant_id, reference, customer_name, customer_email, customer_phone,
			total_cents, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`,
		order.ID, order.TenantID, order.Reference, order.CustomerName, order.CustomerEmail,
		order.CustomerPhone, order.TotalCents, order.Status, order.CreatedBy, order.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return apperr.Conflict("an order with this reference already exists")
		}
		return fmt.Errorf("failed to create order: %w", err)
	}

	for _, item := range items {
		_, err := tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, tenant_id, product_ref, description, quantity,
				unit_price_cents, required_specialties, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`,
			item.ID, order.ID, order.TenantID, item.ProductRef, item.Description, item.Quantity,
			item.UnitPriceCents, item.RequiredSpecialties, item.Status, order.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit order: %w", err)
	}
	return nil
}

const orderColumns = `id, tenant_id, reference, customer_name, customer_email, customer_phone,
	total_cents, status, created_by, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	if err := row.Scan(&o.ID, &o.TenantID, &o.Reference, &o.CustomerName, &o.CustomerEmail,
		&o.CustomerPhone, &o.TotalCents, &o.Status, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}

// GetOrder returns an order by id regardless of tenant. Callers enforce scope.
func (r *Repository) GetOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(orderNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return o, nil
}

// ListParams filters the order list.
type ListParams struct {
	TenantID uuid.UUID
	Status   string
	Search   string
	Limit    int
	Offset   int
}

// ListOrders returns a page of orders and the total count.
func (r *Repository) ListOrders(ctx context.Context, p ListParams) ([]Order, int, error) {
	where := `tenant_id = $1
		AND ($2 = '' OR status = $2)
		AND ($3 = '' OR reference ILIKE '%' || $3 || '%' OR customer_name ILIKE '%' || $3 || '%')`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE `+where, p.TenantID, p.Status, p.Search).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE `+where+`
		ORDER BY created_at DESC, id LIMIT $4 OFFSET $5`, p.TenantID, p.Status, p.Search, p.Limit, p.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	return orders, total, rows.Err()
}

const itemColumns = `id, order_id, tenant_id, product_ref, description, quantity, unit_price_cents,
	required_specialties, status, created_at, updated_at`

func scanItems(rows pgx.Rows) ([]OrderItem, error) {
	defer rows.Close()
	items := make([]OrderItem, 0)
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.TenantID, &it.ProductRef, &it.Description, &it.Quantity,
			&it.UnitPriceCents, &it.RequiredSpecialties, &it.Status, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ListItems returns the items of an order.
func (r *Repository) ListItems(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+itemColumns+` FROM order_items WHERE order_id = $1 ORDER BY created_at, id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}
	return scanItems(rows)
}

// GetItems returns the items with the given ids regardless of tenant.
func (r *Repository) GetItems(ctx context.Context, ids []uuid.UUID) ([]OrderItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+itemColumns+` FROM order_items WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get order items: %w", err)
	}
	return scanItems(rows)
}

// ItemProgress returns each item of the order with its design job and work order status.
func (r *Repository) ItemProgress(ctx context.Context, orderID uuid.UUID) ([]ItemProgress, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT i.id, i.status, dj.id, dj.status, wo.id, wo.status
		FROM order_items i
		LEFT JOIN design_jobs dj ON dj.order_item_id = i.id
		LEFT JOIN work_orders wo ON wo.order_item_id = i.id
		WHERE i.order_id = $1
		ORDER BY i.created_at, i.id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load item progress: %w", err)
	}
	defer rows.Close()

	out := make([]ItemProgress, 0)
	for rows.Next() {
		var p ItemProgress
		if err := rows.Scan(&p.ItemID, &p.ItemStatus, &p.DesignJobID, &p.DesignJobStatus, &p.WorkOrderID, &p.WorkOrderStatus); err != nil {
			return nil, fmt.Errorf("failed to scan item progress: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ApplyDerivedStatus stores recomputed item and order statuses in one
// transaction and returns the previous order status.
func (r *Repository) ApplyDerivedStatus(ctx context.Context, orderID uuid.UUID, itemStatuses map[uuid.UUID]string, orderStatus string) (string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var previous string
	if err := tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, orderID).Scan(&previous); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperr.NotFound(orderNotFoundMsg)
		}
		return "", fmt.Errorf("failed to lock order: %w", err)
	}

	for itemID, status := range itemStatuses {
		if _, err := tx.Exec(ctx, `
			UPDATE order_items SET status = $3, updated_at = now()
			WHERE id = $1 AND order_id = $2 AND status <> $3`, itemID, orderID, status); err != nil {
			return "", fmt.Errorf("failed to update item status: %w", err)
		}
	}
	if previous != orderStatus {
		if _, err := tx.Exec(ctx, `UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`, orderID, orderStatus); err != nil {
			return "", fmt.Errorf("failed to update order status: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit derived status: %w", err)
	}
	return previous, nil
}
