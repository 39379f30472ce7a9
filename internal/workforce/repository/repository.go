package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"production_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	manufacturerNotFoundMsg = "manufacturer not found"
	supplierNotFoundMsg     = "supplier not found"
	materialNotFoundMsg     = "material not found"
	memberNotFoundMsg       = "member not found"
)

// Statuses that count towards a worker's open load.
var (
	OpenDesignJobStatuses = []string{"assigned", "design_in_progress", "pending_approval", "revision_required"}
	OpenWorkOrderStatuses = []string{"assigned", "in_progress", "delayed"}
)

// Member is a tenant member known to the production service.
type Member struct {
	TenantID    uuid.UUID `db:"tenant_id"`
	UserID      uuid.UUID `db:"user_id"`
	Email       string    `db:"email"`
	DisplayName string    `db:"display_name"`
	Roles       []string  `db:"roles"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Designer is a member with the designer role and its profile.
type Designer struct {
	UserID      uuid.UUID `db:"user_id"`
	DisplayName string    `db:"display_name"`
	Email       string    `db:"email"`
	Specialties []string  `db:"specialties"`
	Capacity    int       `db:"capacity"`
	Active      bool      `db:"active"`
	OpenJobs    int       `db:"open_jobs"`
}

// Manufacturer is a production partner.
type Manufacturer struct {
	ID               uuid.UUID `db:"id"`
	TenantID         uuid.UUID `db:"tenant_id"`
	Name             string    `db:"name"`
	ContactEmail     *string   `db:"contact_email"`
	Capabilities     []string  `db:"capabilities"`
	Capacity         int       `db:"capacity"`
	MinOrderQuantity int       `db:"min_order_quantity"`
	Active           bool      `db:"active"`
	OpenWorkOrders   int       `db:"open_work_orders"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

// Supplier sells materials.
type Supplier struct {
	ID           uuid.UUID `db:"id"`
	TenantID     uuid.UUID `db:"tenant_id"`
	Name         string    `db:"name"`
	ContactEmail *string   `db:"contact_email"`
	CreatedAt    time.Time `db:"created_at"`
}

// Material is a purchasable input with procurement counters.
type Material struct {
	ID               uuid.UUID `db:"id"`
	TenantID         uuid.UUID `db:"tenant_id"`
	SupplierID       uuid.UUID `db:"supplier_id"`
	Name             string    `db:"name"`
	Unit             string    `db:"unit"`
	UnitCostCents    int64     `db:"unit_cost_cents"`
	QuantityOnOrder  int64     `db:"quantity_on_order"`
	QuantityReceived int64     `db:"quantity_received"`
	CreatedAt        time.Time `db:"created_at"`
}

// Repository provides database operations for the workforce directory.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new workforce repository
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateMember inserts a member. An existing member is returned unchanged
// with created=false.
func (r *Repository) CreateMember(ctx context.Context, m Member) (*Member, bool, error) {
	query := `
		INSERT INTO tenant_members (tenant_id, user_id, email, display_name, roles, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (tenant_id, user_id) DO NOTHING
		RETURNING tenant_id, user_id, email, display_name, roles, created_at, updated_at`

	var out Member
	err := r.pool.QueryRow(ctx, query, m.TenantID, m.UserID, m.Email, m.DisplayName, m.Roles, time.Now()).
		Scan(&out.TenantID, &out.UserID, &out.Email, &out.DisplayName, &out.Roles, &out.CreatedAt, &out.UpdatedAt)
	if err == nil {
		return &out, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to create member: %w", err)
	}
	existing, err := r.GetMember(ctx, m.TenantID, m.UserID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// GetMember returns a single member.
func (r *Repository) GetMember(ctx context.Context, tenantID, userID uuid.UUID) (*Member, error) {
	var m Member
	err := r.pool.QueryRow(ctx, `
		SELECT tenant_id, user_id, email, display_name, roles, created_at, updated_at
		FROM tenant_members WHERE tenant_id = $1 AND user_id = $2`, tenantID, userID).
		Scan(&m.TenantID, &m.UserID, &m.Email, &m.DisplayName, &m.Roles, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(memberNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return &m, nil
}

// ListMembers returns tenant members, optionally only those holding any of roles.
func (r *Repository) ListMembers(ctx context.Context, tenantID uuid.UUID, roles []string) ([]Member, error) {
	query := `
		SELECT tenant_id, user_id, email, display_name, roles, created_at, updated_at
		FROM tenant_members
		WHERE tenant_id = $1 AND (cardinality($2::text[]) = 0 OR roles && $2::text[])
		ORDER BY display_name, user_id`
	if roles == nil {
		roles = []string{}
	}
	rows, err := r.pool.Query(ctx, query, tenantID, roles)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	members := make([]Member, 0)
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.TenantID, &m.UserID, &m.Email, &m.DisplayName, &m.Roles, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// UpsertDesignerProfileParams describes a designer profile write.
type UpsertDesignerProfileParams struct {
	TenantID    uuid.UUID
	UserID      uuid.UUID
	Specialties []string
	Capacity    int
	Active      bool
}

// UpsertDesignerProfile creates or replaces a designer profile.
func (r *Repository) UpsertDesignerProfile(ctx context.Context, p UpsertDesignerProfileParams) error {
	query := `
		INSERT INTO designer_profiles (tenant_id, user_id, specialties, capacity, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		ON CONFLICT (tenant_id, user_id) DO UPDATE SET
			specialties = EXCLUDED.specialties,
			capacity = EXCLUDED.capacity,
			active = EXCLUDED.active,
			updated_at = now()`
	if _, err := r.pool.Exec(ctx, query, p.TenantID, p.UserID, p.Specialties, p.Capacity, p.Active); err != nil {
		return fmt.Errorf("failed to upsert designer profile: %w", err)
	}
	return nil
}

// ListDesigners returns designer-role members with their profile and open job count.
func (r *Repository) ListDesigners(ctx context.Context, tenantID uuid.UUID) ([]Designer, error) {
	query := `
		SELECT m.user_id, m.display_name, m.email,
			COALESCE(p.specialties, '{}'), COALESCE(p.capacity, 0), COALESCE(p.active, TRUE),
			(SELECT COUNT(*) FROM design_jobs j
			 WHERE j.tenant_id = m.tenant_id AND j.assignee_id = m.user_id AND j.status = ANY($2))
		FROM tenant_members m
		LEFT JOIN designer_profiles p ON p.tenant_id = m.tenant_id AND p.user_id = m.user_id
		WHERE m.tenant_id = $1 AND 'designer' = ANY(m.roles)
		ORDER BY m.display_name, m.user_id`

	rows, err := r.pool.Query(ctx, query, tenantID, OpenDesignJobStatuses)
	if err != nil {
		return nil, fmt.Errorf("failed to list designers: %w", err)
	}
	defer rows.Close()

	designers := make([]Designer, 0)
	for rows.Next() {
		var d Designer
		if err := rows.Scan(&d.UserID, &d.DisplayName, &d.Email, &d.Specialties, &d.Capacity, &d.Active, &d.OpenJobs); err != nil {
			return nil, fmt.Errorf("failed to scan designer: %w", err)
		}
		designers = append(designers, d)
	}
	return designers, rows.Err()
}

// CreateManufacturerParams describes a new manufacturer.
type CreateManufacturerParams struct {
	TenantID         uuid.UUID
	Name             string
	ContactEmail     *string
	Capabilities     []string
	Capacity         int
	MinOrderQuantity int
}

// CreateManufacturer inserts a manufacturer.
func (r *Repository) CreateManufacturer(ctx context.Context, p CreateManufacturerParams) (*Manufacturer, error) {
	query := `
		INSERT INTO manufacturers (id, tenant_id, name, contact_email, capabilities, capacity, min_order_quantity, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, now(), now())
		RETURNING id`
	var id uuid.UUID
	if err := r.pool.QueryRow(ctx, query, uuid.New(), p.TenantID, p.Name, p.ContactEmail, p.Capabilities, p.Capacity, p.MinOrderQuantity).Scan(&id); err != nil {
		return nil, fmt.Errorf("failed to create manufacturer: %w", err)
	}
	return r.GetManufacturer(ctx, id)
}

// UpdateManufacturerParams replaces the mutable manufacturer fields.
type UpdateManufacturerParams struct {
	ID               uuid.UUID
	TenantID         uuid.UUID
	Name             string
	ContactEmail     *string
	Capabilities     []string
	Capacity         int
	MinOrderQuantity int
	Active           bool
}

// UpdateManufacturer updates a manufacturer of the tenant.
func (r *Repository) UpdateManufacturer(ctx context.Context, p UpdateManufacturerParams) (*Manufacturer, error) {
	query := `
		UPDATE manufacturers SET
			name = $3, contact_email = $4, capabilities = $5, capacity = $6,
			min_order_quantity = $7, active = $8, updated_at = now()
		WHERE id = $1 AND tenant_id = $2`
	tag, err := r.pool.Exec(ctx, query, p.ID, p.TenantID, p.Name, p.ContactEmail, p.Capabilities, p.Capacity, p.MinOrderQuantity, p.Active)
	if err != nil {
		return nil, fmt.Errorf("failed to update manufacturer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperr.NotFound(manufacturerNotFoundMsg)
	}
	return r.GetManufacturer(ctx, p.ID)
}

const manufacturerColumns = `
	m.id, m.tenant_id, m.name, m.contact_email, m.capabilities, m.capacity, m.min_order_quantity, m.active,
	(SELECT COUNT(*) FROM work_orders w WHERE w.manufacturer_id = m.id AND w.status = ANY($2)),
	m.created_at, m.updated_at`

func scanManufacturer(row pgx.Row) (*Manufacturer, error) {
	var m Manufacturer
	err := row.Scan(&m.ID, &m.TenantID, &m.Name, &m.ContactEmail, &m.Capabilities, &m.Capacity,
		&m.MinOrderQuantity, &m.Active, &m.OpenWorkOrders, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetManufacturer returns a manufacturer by id, regardless of tenant.
// Callers enforce tenant scope.
func (r *Repository) GetManufacturer(ctx context.Context, id uuid.UUID) (*Manufacturer, error) {
	query := `SELECT ` + manufacturerColumns + ` FROM manufacturers m WHERE m.id = $1`
	m, err := scanManufacturer(r.pool.QueryRow(ctx, query, id, OpenWorkOrderStatuses))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(manufacturerNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get manufacturer: %w", err)
	}
	return m, nil
}

// ListManufacturers returns the tenant's manufacturers with open work order counts.
func (r *Repository) ListManufacturers(ctx context.Context, tenantID uuid.UUID) ([]Manufacturer, error) {
	query := `SELECT ` + manufacturerColumns + ` FROM manufacturers m WHERE m.tenant_id = $1 ORDER BY m.name, m.id`
	rows, err := r.pool.Query(ctx, query, tenantID, OpenWorkOrderStatuses)
	if err != nil {
		return nil, fmt.Errorf("failed to list manufacturers: %w", err)
	}
	defer rows.Close()

	out := make([]Manufacturer, 0)
	for rows.Next() {
		m, err := scanManufacturer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan manufacturer: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// CreateSupplier inserts a supplier.
func (r *Repository) CreateSupplier(ctx context.Context, tenantID uuid.UUID, name string, contactEmail *string) (*Supplier, error) {
	var s Supplier
	err := r.pool.QueryRow(ctx, `
		INSERT INTO suppliers (id, tenant_id, name, contact_email, created_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING id, tenant_id, name, contact_email, created_at`,
		uuid.New(), tenantID, name, contactEmail,
	).Scan(&s.ID, &s.TenantID, &s.Name, &s.ContactEmail, &s.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create supplier: %w", err)
	}
	return &s, nil
}

// GetSupplier returns a supplier by id, regardless of tenant.
func (r *Repository) GetSupplier(ctx context.Context, id uuid.UUID) (*Supplier, error) {
	var s Supplier
	err := r.pool.QueryRow(ctx, `SELECT id, tenant_id, name, contact_email, created_at FROM suppliers WHERE id = $1`, id).
		Scan(&s.ID, &s.TenantID, &s.Name, &s.ContactEmail, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(supplierNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get supplier: %w", err)
	}
	return &s, nil
}

// ListSuppliers returns the tenant's suppliers.
func (r *Repository) ListSuppliers(ctx context.Context, tenantID uuid.UUID) ([]Supplier, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, name, contact_email, created_at
		FROM suppliers WHERE tenant_id = $1 ORDER BY name, id`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list suppliers: %w", err)
	}
	defer rows.Close()

	out := make([]Supplier, 0)
	for rows.Next() {
		var s Supplier
		if err := rows.Scan(&s.ID, &s.TenantID, &s.Name, &s.ContactEmail, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan supplier: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// CreateMaterialParams describes a new material.
type CreateMaterialParams struct {
	TenantID      uuid.UUID
	SupplierID    uuid.UUID
	Name          string
	Unit          string
	UnitCostCents int64
}

// CreateMaterial inserts a material.
func (r *Repository) CreateMaterial(ctx context.Context, p CreateMaterialParams) (*Material, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
		INSERT INTO materials (id, tenant_id, supplier_id, name, unit, unit_cost_cents, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING id`,
		uuid.New(), p.TenantID, p.SupplierID, p.Name, p.Unit, p.UnitCostCents,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to create material: %w", err)
	}
	return r.GetMaterial(ctx, id)
}

// GetMaterial returns a material by id, regardless of tenant.
func (r *Repository) GetMaterial(ctx context.Context, id uuid.UUID) (*Material, error) {
	var m Material
	err := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, supplier_id, name, unit, unit_cost_cents, quantity_on_order, quantity_received, created_at
		FROM materials WHERE id = $1`, id).
		Scan(&m.ID, &m.TenantID, &m.SupplierID, &m.Name, &m.Unit, &m.UnitCostCents, &m.QuantityOnOrder, &m.QuantityReceived, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(materialNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get material: %w", err)
	}
	return &m, nil
}

// ListMaterials returns the tenant's materials, optionally for one supplier.
func (r *Repository) ListMaterials(ctx context.Context, tenantID uuid.UUID, supplierID *uuid.UUID) ([]Material, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, supplier_id, name, unit, unit_cost_cents, quantity_on_order, quantity_received, created_at
		FROM materials
		WHERE tenant_id = $1 AND ($2::uuid IS NULL OR supplier_id = $2)
		ORDER BY name, id`, tenantID, supplierID)
	if err != nil {
		return nil, fmt.Errorf("failed to list materials: %w", err)
	}
	defer rows.Close()

	out := make([]Material, 0)
	for rows.Next() {
		var m Material
		if err := rows.Scan(&m.ID, &m.TenantID, &m.SupplierID, &m.Name, &m.Unit, &m.UnitCostCents, &m.QuantityOnOrder, &m.QuantityReceived, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan material: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
