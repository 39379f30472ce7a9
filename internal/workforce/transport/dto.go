package transport

import (
	"time"

	"github.com/google/uuid"
)

// CreateMemberRequest registers a user of the identity provider with the tenant.
type CreateMemberRequest struct {
	UserID      uuid.UUID `json:"userId" validate:"required"`
	Email       string    `json:"email" validate:"required,email,max=254"`
	DisplayName string    `json:"displayName" validate:"required,notblank,max=200"`
	Roles       []string  `json:"roles" validate:"required,min=1,dive,oneof=admin designer production purchasing"`
}

type MemberResponse struct {
	UserID      uuid.UUID `json:"userId"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	Roles       []string  `json:"roles"`
	CreatedAt   time.Time `json:"createdAt"`
}

type ListMembersRequest struct {
	Role string `form:"role" validate:"omitempty,oneof=admin designer production purchasing"`
}

type MemberListResponse struct {
	Items []MemberResponse `json:"items"`
}

// UpsertDesignerProfileRequest sets a designer's matching attributes.
type UpsertDesignerProfileRequest struct {
	Specialties []string `json:"specialties" validate:"dive,required,max=64"`
	Capacity    int      `json:"capacity" validate:"min=0,max=1000"`
	Active      *bool    `json:"active"`
}

type DesignerResponse struct {
	UserID      uuid.UUID `json:"userId"`
	DisplayName string    `json:"displayName"`
	Email       string    `json:"email"`
	Specialties []string  `json:"specialties"`
	Capacity    int       `json:"capacity"`
	Active      bool      `json:"active"`
	OpenJobs    int       `json:"openJobs"`
}

type DesignerListResponse struct {
	Items []DesignerResponse `json:"items"`
}

type CreateManufacturerRequest struct {
	Name             string   `json:"name" validate:"required,notblank,max=200"`
	ContactEmail     *string  `json:"contactEmail" validate:"omitempty,email"`
	Capabilities     []string `json:"capabilities" validate:"dive,required,max=64"`
	Capacity         int      `json:"capacity" validate:"min=0,max=100000"`
	MinOrderQuantity int      `json:"minOrderQuantity" validate:"min=0"`
}

type UpdateManufacturerRequest struct {
	Name             string   `json:"name" validate:"required,notblank,max=200"`
	ContactEmail     *string  `json:"contactEmail" validate:"omitempty,email"`
	Capabilities     []string `json:"capabilities" validate:"dive,required,max=64"`
	Capacity         int      `json:"capacity" validate:"min=0,max=100000"`
	MinOrderQuantity int      `json:"minOrderQuantity" validate:"min=0"`
	Active           bool     `json:"active"`
}

type ManufacturerResponse struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	ContactEmail     *string   `json:"contactEmail,omitempty"`
	Capabilities     []string  `json:"capabilities"`
	Capacity         int       `json:"capacity"`
	MinOrderQuantity int       `json:"minOrderQuantity"`
	Active           bool      `json:"active"`
	OpenWorkOrders   int       `json:"openWorkOrders"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

type ManufacturerListResponse struct {
	Items []ManufacturerResponse `json:"items"`
}

type CreateSupplierRequest struct {
	Name         string  `json:"name" validate:"required,notblank,max=200"`
	ContactEmail *string `json:"contactEmail" validate:"omitempty,email"`
}

type SupplierResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	ContactEmail *string   `json:"contactEmail,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

type SupplierListResponse struct {
	Items []SupplierResponse `json:"items"`
}

type CreateMaterialRequest struct {
	SupplierID    uuid.UUID `json:"supplierId" validate:"required"`
	Name          string    `json:"name" validate:"required,notblank,max=200"`
	Unit          string    `json:"unit" validate:"omitempty,max=32"`
	UnitCostCents int64     `json:"unitCostCents" validate:"min=0"`
}

type ListMaterialsRequest struct {
	SupplierID string `form:"supplierId" validate:"omitempty,uuid"`
}

type MaterialResponse struct {
	ID               uuid.UUID `json:"id"`
	SupplierID       uuid.UUID `json:"supplierId"`
	Name             string    `json:"name"`
	Unit             string    `json:"unit"`
	UnitCostCents    int64     `json:"unitCostCents"`
	QuantityOnOrder  int64     `json:"quantityOnOrder"`
	QuantityReceived int64     `json:"quantityReceived"`
	CreatedAt        time.Time `json:"createdAt"`
}

type MaterialListResponse struct {
	Items []MaterialResponse `json:"items"`
}
