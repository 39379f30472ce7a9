package transport

import (
	"time"

	"github.com/google/uuid"
)

type LineRequest struct {
	MaterialID    uuid.UUID `json:"materialId" validate:"required"`
	Description   string    `json:"description" validate:"max=500"`
	Quantity      int64     `json:"quantity" validate:"required,min=1"`
	UnitCostCents *int64    `json:"unitCostCents" validate:"omitempty,min=0"`
}

type CreatePurchaseOrderRequest struct {
	SupplierID   uuid.UUID     `json:"supplierId" validate:"required"`
	Notes        string        `json:"notes" validate:"max=2000"`
	ExpectedDate *time.Time    `json:"expectedDate"`
	Lines        []LineRequest `json:"lines" validate:"max=200,dive"`
}

type BulkGenerateRequest struct {
	WorkOrderIDs []uuid.UUID `json:"workOrderIds" validate:"required,min=1,max=500"`
}

type UpdateStatusRequest struct {
	StatusCode string `json:"statusCode" validate:"required"`
	Notes      string `json:"notes" validate:"max=2000"`
}

type ReceiveLineRequest struct {
	LineID   uuid.UUID `json:"lineId" validate:"required"`
	Quantity int64     `json:"quantity" validate:"required,min=1"`
}

type ReceiveItemsRequest struct {
	Lines []ReceiveLineRequest `json:"lines" validate:"required,min=1,max=200,dive"`
	Notes string               `json:"notes" validate:"max=2000"`
}

type UpdateLineRequest struct {
	Quantity      int64  `json:"quantity" validate:"required,min=1"`
	UnitCostCents *int64 `json:"unitCostCents" validate:"omitempty,min=0"`
}

type CancelRequest struct {
	Reason string `json:"reason" validate:"max=2000"`
}

type ListPurchaseOrdersRequest struct {
	Status     string     `form:"status" validate:"omitempty,oneof=draft pending_approval approved submitted partially_received received cancelled"`
	SupplierID *uuid.UUID `form:"supplierId"`
	Page       int        `form:"page" validate:"omitempty,min=1"`
	PageSize   int        `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

type LineResponse struct {
	ID               uuid.UUID  `json:"id"`
	MaterialID       uuid.UUID  `json:"materialId"`
	RequirementID    *uuid.UUID `json:"requirementId,omitempty"`
	Description      string     `json:"description"`
	Quantity         int64      `json:"quantity"`
	UnitCostCents    int64      `json:"unitCostCents"`
	TotalCostCents   int64      `json:"totalCostCents"`
	ReceivedQuantity int64      `json:"receivedQuantity"`
}

type PurchaseOrderResponse struct {
	ID           uuid.UUID      `json:"id"`
	Number       string         `json:"poNumber"`
	SupplierID   uuid.UUID      `json:"supplierId"`
	Status       string         `json:"status"`
	TotalCents   int64          `json:"totalCents"`
	Notes        *string        `json:"notes,omitempty"`
	ExpectedDate *time.Time     `json:"expectedDate,omitempty"`
	ApprovedBy   *uuid.UUID     `json:"approvedBy,omitempty"`
	ApprovedAt   *time.Time     `json:"approvedAt,omitempty"`
	SubmittedAt  *time.Time     `json:"submittedAt,omitempty"`
	ReceivedAt   *time.Time     `json:"receivedAt,omitempty"`
	CancelledAt  *time.Time     `json:"cancelledAt,omitempty"`
	Lines        []LineResponse `json:"lines,omitempty"`
	CreatedBy    uuid.UUID      `json:"createdBy"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

type PurchaseOrderListResponse struct {
	Items    []PurchaseOrderResponse `json:"items"`
	Total    int                     `json:"total"`
	Page     int                     `json:"page"`
	PageSize int                     `json:"pageSize"`
}

type BulkGenerateResponse struct {
	Created []PurchaseOrderResponse `json:"created"`
	Count   int                     `json:"count"`
}

type EventResponse struct {
	ID        uuid.UUID   `json:"id"`
	Kind      string      `json:"kind"`
	ActorID   uuid.UUID   `json:"actorId"`
	Payload   interface{} `json:"payload"`
	CreatedAt time.Time   `json:"createdAt"`
}
