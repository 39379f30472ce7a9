package transport

import (
	"time"

	"github.com/google/uuid"
)

type CreateOrderItemRequest struct {
	ProductRef          string   `json:"productRef" validate:"required,notblank,max=120"`
	Description         string   `json:"description" validate:"max=2000"`
	Quantity            int      `json:"quantity" validate:"required,min=1,max=1000000"`
	UnitPriceCents      int64    `json:"unitPriceCents" validate:"min=0"`
	RequiredSpecialties []string `json:"requiredSpecialties" validate:"dive,required,max=64"`
}

type CreateOrderRequest struct {
	Reference     string                   `json:"reference" validate:"required,notblank,max=64"`
	CustomerName  string                   `json:"customerName" validate:"required,notblank,max=200"`
	CustomerEmail string                   `json:"customerEmail" validate:"omitempty,email,max=254"`
	CustomerPhone string                   `json:"customerPhone" validate:"omitempty,max=32"`
	Items         []CreateOrderItemRequest `json:"items" validate:"required,min=1,max=200,dive"`
}

type ListOrdersRequest struct {
	Status   string `form:"status" validate:"omitempty,oneof=new in_design ready_for_production in_production shipped cancelled"`
	Search   string `form:"search" validate:"max=100"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

type OrderItemResponse struct {
	ID                  uuid.UUID  `json:"id"`
	ProductRef          string     `json:"productRef"`
	Description         string     `json:"description"`
	Quantity            int        `json:"quantity"`
	UnitPriceCents      int64      `json:"unitPriceCents"`
	RequiredSpecialties []string   `json:"requiredSpecialties"`
	Status              string     `json:"status"`
	DesignJobID         *uuid.UUID `json:"designJobId,omitempty"`
	DesignJobStatus     *string    `json:"designJobStatus,omitempty"`
	WorkOrderID         *uuid.UUID `json:"workOrderId,omitempty"`
	WorkOrderStatus     *string    `json:"workOrderStatus,omitempty"`
}

type OrderResponse struct {
	ID            uuid.UUID           `json:"id"`
	Reference     string              `json:"reference"`
	CustomerName  string              `json:"customerName"`
	CustomerEmail *string             `json:"customerEmail,omitempty"`
	CustomerPhone *string             `json:"customerPhone,omitempty"`
	TotalCents    int64               `json:"totalCents"`
	Status        string              `json:"status"`
	Items         []OrderItemResponse `json:"items,omitempty"`
	CreatedBy     uuid.UUID           `json:"createdBy"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

type OrderListResponse struct {
	Items    []OrderResponse `json:"items"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"pageSize"`
}
