package service

import (
	"context"
	"strings"

	"production_backend/internal/access"
	"production_backend/internal/workforce/repository"
	"production_backend/internal/workforce/transport"
	"production_backend/platform/apperr"

	"github.com/google/uuid"
)

// Store is the persistence the workforce service needs.
type Store interface {
	CreateMember(ctx context.Context, m repository.Member) (*repository.Member, bool, error)
	GetMember(ctx context.Context, tenantID, userID uuid.UUID) (*repository.Member, error)
	ListMembers(ctx context.Context, tenantID uuid.UUID, roles []string) ([]repository.Member, error)
	UpsertDesignerProfile(ctx context.Context, p repository.UpsertDesignerProfileParams) error
	ListDesigners(ctx context.Context, tenantID uuid.UUID) ([]repository.Designer, error)
	CreateManufacturer(ctx context.Context, p repository.CreateManufacturerParams) (*repository.Manufacturer, error)
	UpdateManufacturer(ctx context.Context, p repository.UpdateManufacturerParams) (*repository.Manufacturer, error)
	GetManufacturer(ctx context.Context, id uuid.UUID) (*repository.Manufacturer, error)
	ListManufacturers(ctx context.Context, tenantID uuid.UUID) ([]repository.Manufacturer, error)
	CreateSupplier(ctx context.Context, tenantID uuid.UUID, name string, contactEmail *string) (*repository.Supplier, error)
	GetSupplier(ctx context.Context, id uuid.UUID) (*repository.Supplier, error)
	ListSuppliers(ctx context.Context, tenantID uuid.UUID) ([]repository.Supplier, error)
	CreateMaterial(ctx context.Context, p repository.CreateMaterialParams) (*repository.Material, error)
	GetMaterial(ctx context.Context, id uuid.UUID) (*repository.Material, error)
	ListMaterials(ctx context.Context, tenantID uuid.UUID, supplierID *uuid.UUID) ([]repository.Material, error)
}

// Service provides business logic for the workforce directory.
type Service struct {
	repo Store
}

// New creates a new workforce service
func New(repo Store) *Service {
	return &Service{repo: repo}
}

// CreateMember registers a member. Repeating the call for an existing member
// returns it unchanged with created=false.
func (s *Service) CreateMember(ctx context.Context, actor access.Actor, req transport.CreateMemberRequest) (transport.MemberResponse, bool, error) {
	if err := access.RequireAdmin(actor, "workforce.CreateMember"); err != nil {
		return transport.MemberResponse{}, false, err
	}
	m, created, err := s.repo.CreateMember(ctx, repository.Member{
		TenantID:    actor.TenantID,
		UserID:      req.UserID,
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		DisplayName: strings.TrimSpace(req.DisplayName),
		Roles:       dedupeLower(req.Roles),
	})
	if err != nil {
		return transport.MemberResponse{}, false, err
	}
	return toMemberResponse(*m), created, nil
}

// ListMembers lists members, optionally filtered by role.
func (s *Service) ListMembers(ctx context.Context, actor access.Actor, req transport.ListMembersRequest) (transport.MemberListResponse, error) {
	var roles []string
	if req.Role != "" {
		roles = []string{req.Role}
	}
	members, err := s.repo.ListMembers(ctx, actor.TenantID, roles)
	if err != nil {
		return transport.MemberListResponse{}, err
	}
	items := make([]transport.MemberResponse, 0, len(members))
	for _, m := range members {
		items = append(items, toMemberResponse(m))
	}
	return transport.MemberListResponse{Items: items}, nil
}

// UserIDsWithRoles resolves notification recipients. No roles selects every
// member of the tenant.
func (s *Service) UserIDsWithRoles(ctx context.Context, tenantID uuid.UUID, roles []string) ([]uuid.UUID, error) {
	members, err := s.repo.ListMembers(ctx, tenantID, roles)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	return ids, nil
}

// MemberContact returns the email and display name of a member.
func (s *Service) MemberContact(ctx context.Context, tenantID, userID uuid.UUID) (string, string, error) {
	m, err := s.repo.GetMember(ctx, tenantID, userID)
	if err != nil {
		return "", "", err
	}
	return m.Email, m.DisplayName, nil
}

// ListDesigners returns designers with their current load.
func (s *Service) ListDesigners(ctx context.Context, actor access.Actor) (transport.DesignerListResponse, error) {
	designers, err := s.repo.ListDesigners(ctx, actor.TenantID)
	if err != nil {
		return transport.DesignerListResponse{}, err
	}
	items := make([]transport.DesignerResponse, 0, len(designers))
	for _, d := range designers {
		items = append(items, transport.DesignerResponse{
			UserID:      d.UserID,
			DisplayName: d.DisplayName,
			Email:       d.Email,
			Specialties: d.Specialties,
			Capacity:    d.Capacity,
			Active:      d.Active,
			OpenJobs:    d.OpenJobs,
		})
	}
	return transport.DesignerListResponse{Items: items}, nil
}

// Designers returns the raw designer rows for assignment.
func (s *Service) Designers(ctx context.Context, tenantID uuid.UUID) ([]repository.Designer, error) {
	return s.repo.ListDesigners(ctx, tenantID)
}

// Manufacturers returns the tenant's manufacturers with their open load.
func (s *Service) Manufacturers(ctx context.Context, tenantID uuid.UUID) ([]repository.Manufacturer, error) {
	return s.repo.ListManufacturers(ctx, tenantID)
}

// LookupSupplier and LookupMaterial resolve catalog entries for other
// modules, which check the tenant themselves.
func (s *Service) LookupSupplier(ctx context.Context, id uuid.UUID) (*repository.Supplier, error) {
	return s.repo.GetSupplier(ctx, id)
}

func (s *Service) LookupMaterial(ctx context.Context, id uuid.UUID) (*repository.Material, error) {
	return s.repo.GetMaterial(ctx, id)
}

// UpsertDesignerProfile sets the profile of a member holding the designer role.
func (s *Service) UpsertDesignerProfile(ctx context.Context, actor access.Actor, userID uuid.UUID, req transport.UpsertDesignerProfileRequest) error {
	if err := access.RequireAdmin(actor, "workforce.UpsertDesignerProfile"); err != nil {
		return err
	}
	m, err := s.repo.GetMember(ctx, actor.TenantID, userID)
	if err != nil {
		return err
	}
	if !hasRole(m.Roles, access.RoleDesigner) {
		return apperr.Validation("member does not hold the designer role")
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return s.repo.UpsertDesignerProfile(ctx, repository.UpsertDesignerProfileParams{
		TenantID:    actor.TenantID,
		UserID:      userID,
		Specialties: dedupeLower(req.Specialties),
		Capacity:    req.Capacity,
		Active:      active,
	})
}

// CreateManufacturer adds a manufacturer.
func (s *Service) CreateManufacturer(ctx context.Context, actor access.Actor, req transport.CreateManufacturerRequest) (transport.ManufacturerResponse, error) {
	if err := access.RequireAdmin(actor, "workforce.CreateManufacturer"); err != nil {
		return transport.ManufacturerResponse{}, err
	}
	m, err := s.repo.CreateManufacturer(ctx, repository.CreateManufacturerParams{
		TenantID:         actor.TenantID,
		Name:             strings.TrimSpace(req.Name),
		ContactEmail:     req.ContactEmail,
		Capabilities:     dedupeLower(req.Capabilities),
		Capacity:         req.Capacity,
		MinOrderQuantity: req.MinOrderQuantity,
	})
	if err != nil {
		return transport.ManufacturerResponse{}, err
	}
	return toManufacturerResponse(*m), nil
}

// UpdateManufacturer replaces a manufacturer's attributes.
func (s *Service) UpdateManufacturer(ctx context.Context, actor access.Actor, id uuid.UUID, req transport.UpdateManufacturerRequest) (transport.ManufacturerResponse, error) {
	if err := access.RequireAdmin(actor, "workforce.UpdateManufacturer"); err != nil {
		return transport.ManufacturerResponse{}, err
	}
	if _, err := s.getManufacturer(ctx, actor, id); err != nil {
		return transport.ManufacturerResponse{}, err
	}
	m, err := s.repo.UpdateManufacturer(ctx, repository.UpdateManufacturerParams{
		ID:               id,
		TenantID:         actor.TenantID,
		Name:             strings.TrimSpace(req.Name),
		ContactEmail:     req.ContactEmail,
		Capabilities:     dedupeLower(req.Capabilities),
		Capacity:         req.Capacity,
		MinOrderQuantity: req.MinOrderQuantity,
		Active:           req.Active,
	})
	if err != nil {
		return transport.ManufacturerResponse{}, err
	}
	return toManufacturerResponse(*m), nil
}

// GetManufacturer returns one manufacturer of the caller's tenant.
func (s *Service) GetManufacturer(ctx context.Context, actor access.Actor, id uuid.UUID) (transport.ManufacturerResponse, error) {
	m, err := s.getManufacturer(ctx, actor, id)
	if err != nil {
		return transport.ManufacturerResponse{}, err
	}
	return toManufacturerResponse(*m), nil
}

func (s *Service) getManufacturer(ctx context.Context, actor access.Actor, id uuid.UUID) (*repository.Manufacturer, error) {
	m, err := s.repo.GetManufacturer(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.EnsureTenant(m.TenantID, actor, "workforce.GetManufacturer"); err != nil {
		return nil, err
	}
	return m, nil
}

// ListManufacturers lists the tenant's manufacturers.
func (s *Service) ListManufacturers(ctx context.Context, actor access.Actor) (transport.ManufacturerListResponse, error) {
	list, err := s.repo.ListManufacturers(ctx, actor.TenantID)
	if err != nil {
		return transport.ManufacturerListResponse{}, err
	}
	items := make([]transport.ManufacturerResponse, 0, len(list))
	for _, m := range list {
		items = append(items, toManufacturerResponse(m))
	}
	return transport.ManufacturerListResponse{Items: items}, nil
}

// CreateSupplier adds a supplier.
func (s *Service) CreateSupplier(ctx context.Context, actor access.Actor, req transport.CreateSupplierRequest) (transport.SupplierResponse, error) {
	if err := requirePurchasing(actor, "workforce.CreateSupplier"); err != nil {
		return transport.SupplierResponse{}, err
	}
	sup, err := s.repo.CreateSupplier(ctx, actor.TenantID, strings.TrimSpace(req.Name), req.ContactEmail)
	if err != nil {
		return transport.SupplierResponse{}, err
	}
	return toSupplierResponse(*sup), nil
}

// GetSupplier returns one supplier of the caller's tenant.
func (s *Service) GetSupplier(ctx context.Context, actor access.Actor, id uuid.UUID) (transport.SupplierResponse, error) {
	sup, err := s.repo.GetSupplier(ctx, id)
	if err != nil {
		return transport.SupplierResponse{}, err
	}
	if err := access.EnsureTenant(sup.TenantID, actor, "workforce.GetSupplier"); err != nil {
		return transport.SupplierResponse{}, err
	}
	return toSupplierResponse(*sup), nil
}

// ListSuppliers lists the tenant's suppliers.
func (s *Service) ListSuppliers(ctx context.Context, actor access.Actor) (transport.SupplierListResponse, error) {
	list, err := s.repo.ListSuppliers(ctx, actor.TenantID)
	if err != nil {
		return transport.SupplierListResponse{}, err
	}
	items := make([]transport.SupplierResponse, 0, len(list))
	for _, sup := range list {
		items = append(items, toSupplierResponse(sup))
	}
	return transport.SupplierListResponse{Items: items}, nil
}

// CreateMaterial adds a material sold by a supplier of the same tenant.
func (s *Service) CreateMaterial(ctx context.Context, actor access.Actor, req transport.CreateMaterialRequest) (transport.MaterialResponse, error) {
	if err := requirePurchasing(actor, "workforce.CreateMaterial"); err != nil {
		return transport.MaterialResponse{}, err
	}
	sup, err := s.repo.GetSupplier(ctx, req.SupplierID)
	if err != nil {
		return transport.MaterialResponse{}, err
	}
	if err := access.EnsureTenant(sup.TenantID, actor, "workforce.CreateMaterial"); err != nil {
		return transport.MaterialResponse{}, err
	}
	unit := strings.TrimSpace(req.Unit)
	if unit == "" {
		unit = "unit"
	}
	m, err := s.repo.CreateMaterial(ctx, repository.CreateMaterialParams{
		TenantID:      actor.TenantID,
		SupplierID:    sup.ID,
		Name:          strings.TrimSpace(req.Name),
		Unit:          unit,
		UnitCostCents: req.UnitCostCents,
	})
	if err != nil {
		return transport.MaterialResponse{}, err
	}
	return toMaterialResponse(*m), nil
}

// GetMaterial returns a material after checking tenant scope.
func (s *Service) GetMaterial(ctx context.Context, actor access.Actor, id uuid.UUID) (*repository.Material, error) {
	m, err := s.repo.GetMaterial(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.EnsureTenant(m.TenantID, actor, "workforce.GetMaterial"); err != nil {
		return nil, err
	}
	return m, nil
}

// ListMaterials lists the tenant's materials.
func (s *Service) ListMaterials(ctx context.Context, actor access.Actor, req transport.ListMaterialsRequest) (transport.MaterialListResponse, error) {
	var supplierID *uuid.UUID
	if req.SupplierID != "" {
		id, err := uuid.Parse(req.SupplierID)
		if err != nil {
			return transport.MaterialListResponse{}, apperr.Validation("invalid supplierId")
		}
		supplierID = &id
	}
	list, err := s.repo.ListMaterials(ctx, actor.TenantID, supplierID)
	if err != nil {
		return transport.MaterialListResponse{}, err
	}
	items := make([]transport.MaterialResponse, 0, len(list))
	for _, m := range list {
		items = append(items, toMaterialResponse(m))
	}
	return transport.MaterialListResponse{Items: items}, nil
}

func requirePurchasing(actor access.Actor, op string) error {
	if actor.IsAdmin() || actor.HasRole(access.RolePurchasing) {
		return nil
	}
	return apperr.Forbidden("purchasing role required").WithOp(op)
}

func hasRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func dedupeLower(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func toMemberResponse(m repository.Member) transport.MemberResponse {
	return transport.MemberResponse{
		UserID:      m.UserID,
		Email:       m.Email,
		DisplayName: m.DisplayName,
		Roles:       m.Roles,
		CreatedAt:   m.CreatedAt,
	}
}

func toManufacturerResponse(m repository.Manufacturer) transport.ManufacturerResponse {
	return transport.ManufacturerResponse{
		ID:               m.ID,
		Name:             m.Name,
		ContactEmail:     m.ContactEmail,
		Capabilities:     m.Capabilities,
		Capacity:         m.Capacity,
		MinOrderQuantity: m.MinOrderQuantity,
		Active:           m.Active,
		OpenWorkOrders:   m.OpenWorkOrders,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func toSupplierResponse(s repository.Supplier) transport.SupplierResponse {
	return transport.SupplierResponse{ID: s.ID, Name: s.Name, ContactEmail: s.ContactEmail, CreatedAt: s.CreatedAt}
}

func toMaterialResponse(m repository.Material) transport.MaterialResponse {
	return transport.MaterialResponse{
		ID:               m.ID,
		SupplierID:       m.SupplierID,
		Name:             m.Name,
		Unit:             m.Unit,
		UnitCostCents:    m.UnitCostCents,
		QuantityOnOrder:  m.QuantityOnOrder,
		QuantityReceived: m.QuantityReceived,
		CreatedAt:        m.CreatedAt,
	}
}
