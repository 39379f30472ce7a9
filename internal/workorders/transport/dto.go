package transport

import (
	"time"

	"github.com/google/uuid"
)

type CreateWorkOrderRequest struct {
	DesignJobID         uuid.UUID  `json:"designJobId" validate:"required"`
	ManufacturerID      *uuid.UUID `json:"manufacturerId"`
	UnitCostCents       int64      `json:"unitCostCents" validate:"min=0"`
	Priority            string     `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
	PlannedStart        *time.Time `json:"plannedStart"`
	PlannedEnd          *time.Time `json:"plannedEnd"`
	SkipCapacityCheck   bool       `json:"skipCapacityCheck"`
	SkipCapabilityCheck bool       `json:"skipCapabilityCheck"`
	SkipMinimumQuantity bool       `json:"skipMinimumQuantity"`
}

type BulkGenerateRequest struct {
	DesignJobIDs []uuid.UUID `json:"designJobIds" validate:"required,min=1,max=200"`
	Priority     string      `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
}

type UpdateStatusRequest struct {
	StatusCode   string `json:"statusCode" validate:"required"`
	Notes        string `json:"notes" validate:"max=2000"`
	QualityNotes string `json:"qualityNotes" validate:"max=2000"`
	// ActualDate backdates the start (in_progress) or end (completed); now when empty.
	ActualDate *time.Time `json:"actualDate"`
}

type AssignManufacturerRequest struct {
	ManufacturerID      uuid.UUID `json:"manufacturerId" validate:"required"`
	SkipCapacityCheck   bool      `json:"skipCapacityCheck"`
	SkipCapabilityCheck bool      `json:"skipCapabilityCheck"`
	SkipMinimumQuantity bool      `json:"skipMinimumQuantity"`
	Notes               string    `json:"notes" validate:"max=2000"`
}

type BulkAssignRequest struct {
	WorkOrderIDs         []uuid.UUID `json:"workOrderIds" validate:"required,min=1,max=500"`
	ManufacturerID       *uuid.UUID  `json:"manufacturerId"`
	UseWorkloadBalancing bool        `json:"useWorkloadBalancing"`
	UseSkillMatching     bool        `json:"useSkillMatching"`
	CheckCapacity        bool        `json:"checkCapacity"`
	CheckMinimumQuantity bool        `json:"checkMinimumQuantity"`
}

type ReportDelayRequest struct {
	Reason              string    `json:"reason" validate:"required,notblank,max=2000"`
	EstimatedCompletion time.Time `json:"estimatedCompletion" validate:"required"`
}

type CreateMilestoneRequest struct {
	Name      string     `json:"name" validate:"required,notblank,max=120"`
	SortOrder int        `json:"sortOrder" validate:"min=0"`
	DueDate   *time.Time `json:"dueDate"`
	Notes     string     `json:"notes" validate:"max=2000"`
}

type UpdateMilestoneRequest struct {
	Status string  `json:"status" validate:"required,oneof=pending in_progress completed skipped"`
	Notes  *string `json:"notes" validate:"omitempty,max=2000"`
}

type AddMaterialRequest struct {
	MaterialID uuid.UUID `json:"materialId" validate:"required"`
	Quantity   int64     `json:"quantity" validate:"required,min=1"`
}

type ListWorkOrdersRequest struct {
	Status         string     `form:"status" validate:"omitempty,max=40"`
	ManufacturerID *uuid.UUID `form:"manufacturerId"`
	OrderID        *uuid.UUID `form:"orderId"`
	Page           int        `form:"page" validate:"omitempty,min=1"`
	PageSize       int        `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

type WorkOrderResponse struct {
	ID                  uuid.UUID  `json:"id"`
	Reference           string     `json:"reference"`
	OrderID             uuid.UUID  `json:"orderId"`
	OrderItemID         uuid.UUID  `json:"orderItemId"`
	DesignJobID         uuid.UUID  `json:"designJobId"`
	ManufacturerID      *uuid.UUID `json:"manufacturerId,omitempty"`
	Status              string     `json:"status"`
	Quantity            int        `json:"quantity"`
	RequiredSpecialties []string   `json:"requiredSpecialties"`
	UnitCostCents       int64      `json:"unitCostCents"`
	TotalCostCents      int64      `json:"totalCostCents"`
	Priority            string     `json:"priority"`
	PlannedStart        *time.Time `json:"plannedStart,omitempty"`
	PlannedEnd          *time.Time `json:"plannedEnd,omitempty"`
	ActualStart         *time.Time `json:"actualStart,omitempty"`
	ActualEnd           *time.Time `json:"actualEnd,omitempty"`
	EstimatedCompletion *time.Time `json:"estimatedCompletion,omitempty"`
	DelayReason         *string    `json:"delayReason,omitempty"`
	QualityNotes        *string    `json:"qualityNotes,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

type WorkOrderListResponse struct {
	Items    []WorkOrderResponse `json:"items"`
	Total    int                 `json:"total"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"pageSize"`
}

type BulkGenerateResponse struct {
	Created []WorkOrderResponse `json:"created"`
	Count   int                 `json:"count"`
}

type AssignedResponse struct {
	WorkOrderID    uuid.UUID `json:"workOrderId"`
	ManufacturerID uuid.UUID `json:"manufacturerId"`
}

type SkippedResponse struct {
	ID     uuid.UUID `json:"id"`
	Reason string    `json:"reason"`
}

type BulkAssignResponse struct {
	Assigned []AssignedResponse `json:"assigned"`
	Skipped  []SkippedResponse  `json:"skipped"`
	Count    int                `json:"count"`
}

type MilestoneResponse struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	SortOrder   int        `json:"sortOrder"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Status      string     `json:"status"`
	Notes       *string    `json:"notes,omitempty"`
}

type MaterialRequirementResponse struct {
	ID              uuid.UUID `json:"id"`
	MaterialID      uuid.UUID `json:"materialId"`
	SupplierID      uuid.UUID `json:"supplierId"`
	Quantity        int64     `json:"quantity"`
	UnitCostCents   int64     `json:"unitCostCents"`
	OrderedQuantity int64     `json:"orderedQuantity"`
}

type CapacityResponse struct {
	ManufacturerID uuid.UUID      `json:"manufacturerId"`
	Capacity       int            `json:"capacity"`
	Open           int            `json:"openWorkOrders"`
	Available      *int           `json:"available"`
	ByStatus       map[string]int `json:"byStatus"`
}

type EventResponse struct {
	ID        uuid.UUID   `json:"id"`
	Kind      string      `json:"kind"`
	ActorID   uuid.UUID   `json:"actorId"`
	Payload   interface{} `json:"payload"`
	CreatedAt time.Time   `json:"createdAt"`
}
