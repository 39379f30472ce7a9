// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"production_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// Entity types carried on routed events and used for realtime room names.
const (
	EntityOrder         = "order"
	EntityDesignJob     = "design_job"
	EntityWorkOrder     = "work_order"
	EntityPurchaseOrder = "purchase_order"
)

// Routable events reach connected clients. Every lifecycle event implements it.
type Routable interface {
	Event
	Route() Route
}

// Route identifies what changed and for whom.
type Route struct {
	TenantID   uuid.UUID
	EntityType string
	EntityID   uuid.UUID
	ActorID    uuid.UUID
	// ParentRooms lists additional rooms that observe this entity, such as the owning order.
	ParentRooms []string
}

// Room returns the realtime room for the routed entity.
func (r Route) Room() string {
	return RoomName(r.EntityType, r.EntityID)
}

// RoomName formats the room key for an entity.
func RoomName(entityType string, id uuid.UUID) string {
	return entityType + ":" + id.String()
}

// =============================================================================
// Order Events
// =============================================================================

// OrderCreated is published when a customer order with its items is recorded.
type OrderCreated struct {
	BaseEvent
	OrderID   uuid.UUID `json:"orderId"`
	TenantID  uuid.UUID `json:"tenantId"`
	ActorID   uuid.UUID `json:"actorId"`
	Reference string    `json:"reference"`
	ItemCount int       `json:"itemCount"`
}

func (e OrderCreated) EventName() string { return "orders.order.created" }

func (e OrderCreated) Route() Route {
	return Route{TenantID: e.TenantID, EntityType: EntityOrder, EntityID: e.OrderID, ActorID: e.ActorID}
}

// OrderStatusDerived is published when child progress changes an order's derived status.
type OrderStatusDerived struct {
	BaseEvent
	OrderID  uuid.UUID `json:"orderId"`
	TenantID uuid.UUID `json:"tenantId"`
	From     string    `json:"from"`
	To       string    `json:"to"`
}

func (e OrderStatusDerived) EventName() string { return "orders.order.status_derived" }

func (e OrderStatusDerived) Route() Route {
	return Route{TenantID: e.TenantID, EntityType: EntityOrder, EntityID: e.OrderID}
}

// =============================================================================
// Design Job Events
// =============================================================================

// DesignJobCreated is published for every new design job.
type DesignJobCreated struct {
	BaseEvent
	JobID       uuid.UUID `json:"jobId"`
	TenantID    uuid.UUID `json:"tenantId"`
	OrderID     uuid.UUID `json:"orderId"`
	OrderItemID uuid.UUID `json:"orderItemId"`
	ActorID     uuid.UUID `json:"actorId"`
	Title       string    `json:"title"`
}

func (e DesignJobCreated) EventName() string { return "designjobs.job.created" }

func (e DesignJobCreated) Route() Route {
	return Route{TenantID: e.TenantID, EntityType: EntityDesignJob, EntityID: e.JobID, ActorID: e.ActorID,
		ParentRooms: []string{RoomName(EntityOrder, e.OrderID)}}
}

// DesignJobStatusChanged is published for every committed design job status change.
type DesignJobStatusChanged struct {
	BaseEvent
	JobID       uuid.UUID `json:"jobId"`
	TenantID    uuid.UUID `json:"tenantId"`
	OrderID     uuid.UUID `json:"orderId"`
	OrderItemID uuid.UUID `json:"orderItemId"`
	ActorID     uuid.UUID `json:"actorId"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Notes       string    `json:"notes,omitempty"`
}

func (e DesignJobStatusChanged) EventName() string { return "designjobs.job.status_changed" }

func (e DesignJobStatusChanged) Route() Route {
	return Route{TenantID: e.TenantID, EntityType: EntityDesignJob, EntityID: e.JobID, ActorID: e.ActorID,
		ParentRooms: []string{RoomName(EntityOrder, e.OrderID)}}
}

// DesignJobAssigned is published when a designer takes ownership of a job.
type DesignJobAssigned struct {
	BaseEvent
	JobID      uuid.UUID `json:"jobId"`
	TenantID   uuid.UUID `json:"tenantId"`
	ActorID    uuid.UUID `json:"actorId"`
	DesignerID uuid.UUID `json:"designerId"`
	Title      string    `json:"title"`
}

func (e DesignJobAssigned) EventName() string { return "designjobs.job.assigned" }

func (e DesignJobAssigned) Route() Route {
	return Route{TenantID: e.TenantID, EntityType: EntityDesignJob, EntityID: e.JobID, ActorID: e.ActorID}
}

// DesignJobSubmitted is published when a designer submits asset versions for review.
type DesignJobSubmitted struct {
	BaseEvent
	JobID         uuid.UUID `json:"jobId"`
	TenantID      uuid.UUID `json:"tenantId"`
	ActorID       uuid.UUID `json:"actorId"`
	Title         string    `json:"title"`
	AssetVersions []int     `json:"assetVersions"`
}

func (e DesignJobSubmitted) EventName() string { return "designjobs.job.submitted" }

func (e DesignJobSubmitted) Route() Route {
	return Route{TenantID: e.TenantID, EntityType: EntityDesignJob, EntityID: e.JobID, ActorID: e.ActorID}
}

// DesignJobReviewed is published after an admin approves or returns a design.
type DesignJobReviewed struct {
	BaseEvent
	JobID      uuid.UUID  `json:"jobId"`
	TenantID   uuid.UUID  `json:"tenantId"`
	ActorID    uuid.UUID  `json:"actorId"`
	Title      string     `json:"title"`
	Decision   string     `json:"decision"`
	Feedback   string     `json:"feedback,omitempty"`
	AssigneeID *uuid.UUID `json:"assigneeId,omitempty"`
}

func (e DesignJobReviewed) EventName() string { return "designjobs.job.reviewed" }

func (e DesignJobReviewed) Route() Route {
	return Route{TenantID: e.TenantID, EntityType: EntityDesignJob, EntityID: e.JobID, ActorID: e.ActorID}
}

// DesignJobCommented is published for every comment on a design job.
type DesignJobCommented struct {
	BaseEvent
	JobID      uuid.UUID  `json:"jobId"`
	TenantID   uuid.UUID  `json:"tenantId"`
	ActorID    uuid.UUID  `json:"actorId"`
	Title      string     `json:"title"`
	AssigneeID *uuid.UUID `json:"assigneeId,omitempty"`
	Body       string     `json:"body"`
}

func (e DesignJobCommented) EventName() string { return "designjobs.job.commented" }

func (e DesignJobCommented) Route() Route {
	return Route{TenantID: e.TenantID, EntityType: EntityDesignJob, EntityID: e.JobID, ActorID: e.ActorID}
}

// =============================================================================
// Work Order Events
// =============================================================================

// WorkOrderCreated is published for every new work order.
type WorkOrderCreated struct {
	BaseEvent
	WorkOrderID uuid.UUID `json:"workOrderId"`
	TenantID    uuid.UUID `json:"tenantId"`
	OrderID     uuid.UUID `json:"orderId"`
	OrderItemID uuid.UUID `json:"orderItemId"`
	ActorID     uuid.UUID `json:"actorId"`
	Reference   string    `json:"reference"`
}

func (e WorkOrderCreated) EventName() string { return "workorders.work_order.created" }

func (e WorkOrderCreated) Route() Route {
	return Route{TenantID: e.TenantID, EntityType: EntityWorkOrder, EntityID: e.WorkOrderID, ActorID: e.ActorID,
		ParentRooms: []string{RoomName(EntityOrder, e.OrderID)}}
}

// WorkOrderStatusChanged is published for every committed work order status change.
type WorkOrderStatusChanged struct {
	BaseEvent
	WorkOrderID uuid.UUID `json:"workOrderId"`
	TenantID    uuid.UUID `json:"tenantId"`
	OrderID     uuid.UUID `json:"orderId"`
	OrderItemID uuid.UUID `json:"orderItemId"`
	ActorID     uuid.UUID `json:"actorId"`
	Reference   string    `json:"reference"`
	From        string    `json:"from"`
	To          string    `json:"to"`
}

func (e WorkOrderStatusChanged) EventName() string { return "workorders.work_order.status_changed" }

func (e WorkOrderStatusChanged) Route() Route {
	return Route{TenantID: e.TenantID, EntityType: EntityWorkOrder, EntityID: e.WorkOrderID, ActorID: e.ActorID,
		ParentRooms: []string{RoomName(EntityOrder, e.OrderID)}}
}

// WorkOrderAssigned is published when a manufacturer is attached to a work order.
type WorkOrderAssigned struct {
	BaseEvent
	WorkOrderID    uuid.UUID `json:"workOrderId"`
	TenantID       uuid.UUID `json:"tenantId"`
	ActorID        uuid.UUID `json:"actorId"`
	Reference      string    `json:"reference"`
	ManufacturerID uuid.UUID `json:"manufacturerId"`
}

func (e WorkOrderAssigned) EventName() string { return "workorders.work_order.assigned" }

func (e WorkOrderAssigned) Route() Route {
	return Route{TenantID: e.TenantID, EntityType: EntityWorkOrder, EntityID: e.WorkOrderID, ActorID: e.ActorID}
}

// WorkOrderDelayed is published when production reports a delay.
type WorkOrderDelayed struct {
	BaseEvent
	WorkOrderID         uuid.UUID `json:"workOrderId"`
	TenantID            uuid.UUID `json:"tenantId"`
	ActorID             uuid.UUID `json:"actorId"`
	Reference           string    `json:"reference"`
	Reason              string    `json:"reason"`
	EstimatedCompletion time.Time `json:"estimatedCompletion"`
}

func (e WorkOrderDelayed) EventName() string { return "workorders.work_order.delayed" }

func (e WorkOrderDelayed) Route() Route {
	return Route{TenantID: e.TenantID, EntityType: EntityWorkOrder, EntityID: e.WorkOrderID, ActorID: e.ActorID}
}

// MilestoneUpdated is published when a production milestone is created or changes.
type MilestoneUpdated struct {
	BaseEvent
	WorkOrderID uuid.UUID `json:"workOrderId"`
	MilestoneID uuid.UUID `json:"milestoneId"`
	TenantID    uuid.UUID `json:"tenantId"`
	ActorID     uuid.UUID `json:"actorId"`
	Name        string    `json:"name"`
	Status      string    `json:"status"`
}

func (e MilestoneUpdated) EventName() string { return "workorders.milestone.updated" }

func (e MilestoneUpdated) Route() Route {
	return Route{TenantID: e.TenantID, EntityType: EntityWorkOrder, EntityID: e.WorkOrderID, ActorID: e.ActorID}
}

// =============================================================================
// Purchase Order Events
// =============================================================================

// PurchaseOrderCreated is published for every new purchase order.
type PurchaseOrderCreated struct {
	BaseEvent
	PurchaseOrderID uuid.UUID `json:"purchaseOrderId"`
	TenantID        uuid.UUID `json:"tenantId"`
	ActorID         uuid.UUID `json:"actorId"`
	SupplierID      uuid.UUID `json:"supplierId"`
	Number          string    `json:"number"`
}

func (e PurchaseOrderCreated) EventName() string { return "purchasing.purchase_order.created" }

func (e PurchaseOrderCreated) Route() Route {
	return Route{TenantID: e.TenantID, EntityType: EntityPurchaseOrder, EntityID: e.PurchaseOrderID, ActorID: e.ActorID}
}

// PurchaseOrderStatusChanged is published for every committed purchase order status change.
type PurchaseOrderStatusChanged struct {
	BaseEvent
	PurchaseOrderID uuid.UUID `json:"purchaseOrderId"`
	TenantID        uuid.UUID `json:"tenantId"`
	ActorID         uuid.UUID `json:"actorId"`
	Number          string    `json:"number"`
	From            string    `json:"from"`
	To              string    `json:"to"`
}

func (e PurchaseOrderStatusChanged) EventName() string {
	return "purchasing.purchase_order.status_changed"
}

func (e PurchaseOrderStatusChanged) Route() Route {
	return Route{TenantID: e.TenantID, EntityType: EntityPurchaseOrder, EntityID: e.PurchaseOrderID, ActorID: e.ActorID}
}

// PurchaseOrderReceived is published after goods are received against a purchase order.
type PurchaseOrderReceived struct {
	BaseEvent
	PurchaseOrderID uuid.UUID `json:"purchaseOrderId"`
	TenantID        uuid.UUID `json:"tenantId"`
	ActorID         uuid.UUID `json:"actorId"`
	Number          string    `json:"number"`
	FullyReceived   bool      `json:"fullyReceived"`
}

func (e PurchaseOrderReceived) EventName() string { return "purchasing.purchase_order.received" }

func (e PurchaseOrderReceived) Route() Route {
	return Route{TenantID: e.TenantID, EntityType: EntityPurchaseOrder, EntityID: e.PurchaseOrderID, ActorID: e.ActorID}
}

// RoutableEventNames lists every event the broadcast layer subscribes to.
func RoutableEventNames() []string {
	return []string{
		OrderCreated{}.EventName(),
		OrderStatusDerived{}.EventName(),
		DesignJobCreated{}.EventName(),
		DesignJobStatusChanged{}.EventName(),
		DesignJobAssigned{}.EventName(),
		DesignJobSubmitted{}.EventName(),
		DesignJobReviewed{}.EventName(),
		DesignJobCommented{}.EventName(),
		WorkOrderCreated{}.EventName(),
		WorkOrderStatusChanged{}.EventName(),
		WorkOrderAssigned{}.EventName(),
		WorkOrderDelayed{}.EventName(),
		MilestoneUpdated{}.EventName(),
		PurchaseOrderCreated{}.EventName(),
		PurchaseOrderStatusChanged{}.EventName(),
		PurchaseOrderReceived{}.EventName(),
	}
}
