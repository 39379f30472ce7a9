package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"production_backend/internal/access"
	"production_backend/internal/assignment"
	"production_backend/internal/auditlog"
	"production_backend/internal/events"
	"production_backend/internal/workflow"
	"production_backend/internal/workorders/repository"
	"production_backend/internal/workorders/transport"
	"production_backend/platform/apperr"
	"production_backend/platform/logger"
	"production_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	defaultPriority = "normal"

	statusPending    workflow.Status = "pending"
	statusAssigned   workflow.Status = "assigned"
	statusInProgress workflow.Status = "in_progress"
	statusDelayed    workflow.Status = "delayed"
	statusCompleted  workflow.Status = "completed"

	designApproved = "approved"
)

const entity = workflow.EntityWorkOrder

// Store is the persistence the work order service needs.
type Store interface {
	CreateWorkOrders(ctx context.Context, p repository.CreateParams) error
	GetWorkOrder(ctx context.Context, id uuid.UUID) (*repository.WorkOrder, error)
	GetWorkOrders(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]repository.WorkOrder, error)
	ListWorkOrders(ctx context.Context, p repository.ListParams) ([]repository.WorkOrder, int, error)
	Transition(ctx context.Context, p repository.TransitionParams) (*repository.WorkOrder, error)
	ListEvents(ctx context.Context, tenantID, workOrderID uuid.UUID) ([]auditlog.Entry, error)
	ManufacturerLoad(ctx context.Context, tenantID, manufacturerID uuid.UUID) (repository.ManufacturerLoad, error)
	CreateMilestone(ctx context.Context, m repository.Milestone, actorID uuid.UUID) error
	UpdateMilestone(ctx context.Context, p repository.UpdateMilestoneParams) (*repository.Milestone, error)
	ListMilestones(ctx context.Context, tenantID, workOrderID uuid.UUID) ([]repository.Milestone, error)
	AddMaterialRequirement(ctx context.Context, m repository.MaterialRequirement) error
	ListMaterialRequirements(ctx context.Context, tenantID, workOrderID uuid.UUID) ([]repository.MaterialRequirement, error)
}

// DesignJob is the part of a design job production starts from.
type DesignJob struct {
	ID                  uuid.UUID
	OrderItemID         uuid.UUID
	OrderID             uuid.UUID
	Status              string
	RequiredSpecialties []string
	Quantity            int
}

// DesignJobReader resolves the tenant's design jobs. Missing ids are omitted.
type DesignJobReader interface {
	DesignJobs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]DesignJob, error)
}

// Manufacturer is an assignable production partner with its open load.
type Manufacturer struct {
	ID               uuid.UUID
	Active           bool
	Capabilities     []string
	Capacity         int
	MinOrderQuantity int
	OpenWorkOrders   int
}

// ManufacturerDirectory lists the tenant's manufacturers.
type ManufacturerDirectory interface {
	Manufacturers(ctx context.Context, tenantID uuid.UUID) ([]Manufacturer, error)
}

// Material is a purchasable material.
type Material struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	SupplierID    uuid.UUID
	UnitCostCents int64
}

// MaterialCatalog resolves materials by id.
type MaterialCatalog interface {
	Material(ctx context.Context, id uuid.UUID) (Material, error)
}

// Service provides business logic for work orders
type Service struct {
	repo          Store
	designJobs    DesignJobReader
	manufacturers ManufacturerDirectory
	materials     MaterialCatalog
	validator     *workflow.Validator
	bus           events.Bus
	log           *logger.Logger
}

// New creates a new work order service
func New(repo Store, designJobs DesignJobReader, manufacturers ManufacturerDirectory, materials MaterialCatalog,
	validator *workflow.Validator, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:          repo,
		designJobs:    designJobs,
		manufacturers: manufacturers,
		materials:     materials,
		validator:     validator,
		bus:           bus,
		log:           log,
	}
}

func requireProduction(actor access.Actor, op string) error {
	if actor.IsAdmin() || actor.HasRole(access.RoleProduction) {
		return nil
	}
	return apperr.Forbidden("production role required").WithOp(op)
}

// Create opens a work order for an approved design job, optionally already
// assigned to a manufacturer.
func (s *Service) Create(ctx context.Context, actor access.Actor, req transport.CreateWorkOrderRequest) (transport.WorkOrderResponse, error) {
	if err := requireProduction(actor, "workorders.Create"); err != nil {
		return transport.WorkOrderResponse{}, err
	}
	jobs, err := s.designJobs.DesignJobs(ctx, actor.TenantID, []uuid.UUID{req.DesignJobID})
	if err != nil {
		return transport.WorkOrderResponse{}, err
	}
	job, ok := jobs[req.DesignJobID]
	if !ok {
		return transport.WorkOrderResponse{}, apperr.NotFound("design job not found")
	}
	if job.Status != designApproved {
		return transport.WorkOrderResponse{}, apperr.InvalidState("design job must be approved before production").
			WithDetails(map[string]string{"designJobId": job.ID.String(), "status": job.Status})
	}

	wo := s.newWorkOrder(actor, job, req.Priority, req.UnitCostCents)
	wo.PlannedStart, wo.PlannedEnd = req.PlannedStart, req.PlannedEnd

	opts := assignment.Options{
		UseSkillMatching:     true,
		CheckCapacity:        true,
		CheckMinimumQuantity: true,
		SkipCapacityCheck:    req.SkipCapacityCheck,
		SkipSkillCheck:       req.SkipCapabilityCheck,
	}
	if req.SkipMinimumQuantity {
		opts.CheckMinimumQuantity = false
	}
	if req.ManufacturerID != nil {
		if err := s.checkManufacturer(ctx, actor.TenantID, *req.ManufacturerID, wo, opts); err != nil {
			return transport.WorkOrderResponse{}, err
		}
		wo.ManufacturerID = req.ManufacturerID
		wo.Status = string(statusAssigned)
	}

	err = s.repo.CreateWorkOrders(ctx, repository.CreateParams{
		WorkOrders:    []repository.WorkOrder{wo},
		CheckCapacity: opts.CheckCapacity && !opts.SkipCapacityCheck,
	})
	if errors.Is(err, repository.ErrCapacityExceeded) {
		return transport.WorkOrderResponse{}, capacityConflict()
	}
	if err != nil {
		return transport.WorkOrderResponse{}, err
	}

	s.publishCreated(ctx, wo)
	if wo.ManufacturerID != nil {
		s.bus.Publish(ctx, events.WorkOrderAssigned{
			BaseEvent:      events.NewBaseEvent(),
			WorkOrderID:    wo.ID,
			TenantID:       wo.TenantID,
			ActorID:        actor.UserID,
			Reference:      wo.Reference,
			ManufacturerID: *wo.ManufacturerID,
		})
	}
	return toResponse(wo), nil
}

func (s *Service) checkManufacturer(ctx context.Context, tenantID, manufacturerID uuid.UUID, wo repository.WorkOrder, opts assignment.Options) error {
	all, err := s.manufacturers.Manufacturers(ctx, tenantID)
	if err != nil {
		return err
	}
	for _, m := range all {
		if m.ID != manufacturerID {
			continue
		}
		if reason, ok := assignment.Eligible(toWorker(m), toJob(wo), opts); !ok {
			return apperr.Conflict(fmt.Sprintf("assignment rejected: %s", reason)).
				WithDetails(map[string]interface{}{"reason": reason})
		}
		return nil
	}
	return apperr.NotFound("manufacturer not found")
}

// BulkGenerate opens one work order per approved design job in a single
// transaction. Any missing or unapproved job fails the whole batch.
func (s *Service) BulkGenerate(ctx context.Context, actor access.Actor, req transport.BulkGenerateRequest) (transport.BulkGenerateResponse, error) {
	if err := requireProduction(actor, "workorders.BulkGenerate"); err != nil {
		return transport.BulkGenerateResponse{}, err
	}
	ids := dedupe(req.DesignJobIDs)
	jobs, err := s.designJobs.DesignJobs(ctx, actor.TenantID, ids)
	if err != nil {
		return transport.BulkGenerateResponse{}, err
	}

	wos := make([]repository.WorkOrder, 0, len(ids))
	for _, id := range ids {
		job, ok := jobs[id]
		if !ok {
			return transport.BulkGenerateResponse{}, apperr.NotFound("design job not found").
				WithDetails(map[string]string{"designJobId": id.String()})
		}
		if job.Status != designApproved {
			return transport.BulkGenerateResponse{}, apperr.InvalidState("design job must be approved before production").
				WithDetails(map[string]string{"designJobId": id.String(), "status": job.Status})
		}
		wos = append(wos, s.newWorkOrder(actor, job, req.Priority, 0))
	}

	if err := s.repo.CreateWorkOrders(ctx, repository.CreateParams{WorkOrders: wos}); err != nil {
		return transport.BulkGenerateResponse{}, err
	}

	resp := transport.BulkGenerateResponse{Created: make([]transport.WorkOrderResponse, 0, len(wos)), Count: len(wos)}
	for _, wo := range wos {
		s.publishCreated(ctx, wo)
		resp.Created = append(resp.Created, toResponse(wo))
	}
	return resp, nil
}

func (s *Service) newWorkOrder(actor access.Actor, job DesignJob, priority string, unitCost int64) repository.WorkOrder {
	if priority == "" {
		priority = defaultPriority
	}
	quantity := job.Quantity
	if quantity < 1 {
		quantity = 1
	}
	now := time.Now().UTC()
	id := uuid.New()
	return repository.WorkOrder{
		ID:                  id,
		TenantID:            actor.TenantID,
		Reference:           "WO-" + strings.ToUpper(id.String()[:8]),
		OrderItemID:         job.OrderItemID,
		OrderID:             job.OrderID,
		DesignJobID:         job.ID,
		Status:              string(statusPending),
		Quantity:            quantity,
		RequiredSpecialties: job.RequiredSpecialties,
		UnitCostCents:       unitCost,
		TotalCostCents:      unitCost * int64(quantity),
		Priority:            priority,
		CreatedBy:           actor.UserID,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

// Get returns a work order in the caller's tenant.
func (s *Service) Get(ctx context.Context, actor access.Actor, id uuid.UUID) (transport.WorkOrderResponse, error) {
	wo, err := s.load(ctx, actor, id, "workorders.Get")
	if err != nil {
		return transport.WorkOrderResponse{}, err
	}
	return toResponse(*wo), nil
}

// List returns a page of the tenant's work orders.
func (s *Service) List(ctx context.Context, actor access.Actor, req transport.ListWorkOrdersRequest) (transport.WorkOrderListResponse, error) {
	page, pageSize := req.Page, req.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	wos, total, err := s.repo.ListWorkOrders(ctx, repository.ListParams{
		TenantID:       actor.TenantID,
		Status:         req.Status,
		ManufacturerID: req.ManufacturerID,
		OrderID:        req.OrderID,
		Limit:          pageSize,
		Offset:         (page - 1) * pageSize,
	})
	if err != nil {
		return transport.WorkOrderListResponse{}, err
	}
	items := make([]transport.WorkOrderResponse, 0, len(wos))
	for _, wo := range wos {
		items = append(items, toResponse(wo))
	}
	return transport.WorkOrderListResponse{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

// UpdateStatus applies a standard or cancellation edge. Entering in_progress
// records the actual start, completing records the actual end and quality
// notes. Both dates default to now unless req.ActualDate is set.
func (s *Service) UpdateStatus(ctx context.Context, actor access.Actor, id uuid.UUID, req transport.UpdateStatusRequest) (transport.WorkOrderResponse, error) {
	if err := requireProduction(actor, "workorders.UpdateStatus"); err != nil {
		return transport.WorkOrderResponse{}, err
	}
	wo, err := s.load(ctx, actor, id, "workorders.UpdateStatus")
	if err != nil {
		return transport.WorkOrderResponse{}, err
	}
	from, to := workflow.Status(wo.Status), workflow.Status(req.StatusCode)
	tr, err := s.validator.Check(entity, from, to)
	if err != nil {
		s.log.WithContext(ctx).TransitionRejected(string(entity), id.String(), wo.Status, req.StatusCode)
		return transport.WorkOrderResponse{}, err
	}
	if tr.Kind != workflow.KindStandard && tr.Kind != workflow.KindCancellation {
		return transport.WorkOrderResponse{}, apperr.InvalidTransition(fmt.Sprintf("%s edges require the dedicated operation", tr.Kind)).
			WithDetails(map[string]interface{}{"from": from, "to": to, "kind": tr.Kind})
	}

	actual := time.Now().UTC()
	if req.ActualDate != nil {
		actual = req.ActualDate.UTC()
	}
	var fields repository.StatusFields
	switch to {
	case statusInProgress:
		fields.ActualStart = &actual
	case statusCompleted:
		if wo.ActualStart != nil && actual.Before(*wo.ActualStart) {
			return transport.WorkOrderResponse{}, apperr.Validation("actual end cannot be before actual start").
				WithDetails(map[string]interface{}{"actualStart": wo.ActualStart, "actualEnd": actual})
		}
		fields.ActualEnd = &actual
		if q := sanitize.Text(req.QualityNotes); q != "" {
			fields.QualityNotes = &q
		}
	default:
		if req.ActualDate != nil {
			return transport.WorkOrderResponse{}, apperr.Validation("actualDate only applies to in_progress and completed")
		}
	}

	notes := sanitize.Text(req.Notes)
	evs := []auditlog.Payload{auditlog.StatusChanged{From: wo.Status, To: req.StatusCode, Notes: notes}}
	if tr.Kind == workflow.KindCancellation {
		evs = append(evs, auditlog.Cancelled{From: wo.Status, Reason: notes})
	}
	updated, err := s.transition(ctx, repository.TransitionParams{
		TenantID: actor.TenantID,
		ID:       id,
		From:     wo.Status,
		To:       req.StatusCode,
		ActorID:  actor.UserID,
		Fields:   fields,
		Events:   evs,
	})
	if err != nil {
		return transport.WorkOrderResponse{}, err
	}
	s.publishStatusChanged(ctx, *updated, wo.Status, actor.UserID)
	return toResponse(*updated), nil
}

// ReportDelay moves an in-progress work order to delayed with a reason and a
// revised estimated completion.
func (s *Service) ReportDelay(ctx context.Context, actor access.Actor, id uuid.UUID, req transport.ReportDelayRequest) (transport.WorkOrderResponse, error) {
	if err := requireProduction(actor, "workorders.ReportDelay"); err != nil {
		return transport.WorkOrderResponse{}, err
	}
	wo, err := s.load(ctx, actor, id, "workorders.ReportDelay")
	if err != nil {
		return transport.WorkOrderResponse{}, err
	}
	if _, err := s.validator.CheckKind(entity, workflow.Status(wo.Status), statusDelayed, workflow.KindDelay); err != nil {
		s.log.WithContext(ctx).TransitionRejected(string(entity), id.String(), wo.Status, string(statusDelayed))
		return transport.WorkOrderResponse{}, err
	}

	reason := sanitize.Text(req.Reason)
	eta := req.EstimatedCompletion.UTC()
	updated, err := s.transition(ctx, repository.TransitionParams{
		TenantID: actor.TenantID,
		ID:       id,
		From:     wo.Status,
		To:       string(statusDelayed),
		ActorID:  actor.UserID,
		Fields:   repository.StatusFields{DelayReason: &reason, EstimatedCompletion: &eta},
		Events: []auditlog.Payload{
			auditlog.Delayed{Reason: reason, EstimatedCompletion: eta},
			auditlog.StatusChanged{From: wo.Status, To: string(statusDelayed), Notes: reason},
		},
	})
	if err != nil {
		return transport.WorkOrderResponse{}, err
	}

	s.bus.Publish(ctx, events.WorkOrderDelayed{
		BaseEvent:           events.NewBaseEvent(),
		WorkOrderID:         updated.ID,
		TenantID:            updated.TenantID,
		ActorID:             actor.UserID,
		Reference:           updated.Reference,
		Reason:              reason,
		EstimatedCompletion: eta,
	})
	s.publishStatusChanged(ctx, *updated, wo.Status, actor.UserID)
	return toResponse(*updated), nil
}

// ListEvents returns the work order's audit log oldest first.
func (s *Service) ListEvents(ctx context.Context, actor access.Actor, id uuid.UUID) ([]transport.EventResponse, error) {
	wo, err := s.load(ctx, actor, id, "workorders.ListEvents")
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.ListEvents(ctx, wo.TenantID, wo.ID)
	if err != nil {
		return nil, err
	}
	out := make([]transport.EventResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, transport.EventResponse{ID: e.ID, Kind: string(e.Kind), ActorID: e.ActorID, Payload: e.Payload, CreatedAt: e.CreatedAt})
	}
	return out, nil
}

// ManufacturerCapacity reports a manufacturer's load. Available is nil when
// the manufacturer has no capacity limit.
func (s *Service) ManufacturerCapacity(ctx context.Context, actor access.Actor, manufacturerID uuid.UUID) (transport.CapacityResponse, error) {
	load, err := s.repo.ManufacturerLoad(ctx, actor.TenantID, manufacturerID)
	if err != nil {
		return transport.CapacityResponse{}, err
	}
	resp := transport.CapacityResponse{
		ManufacturerID: manufacturerID,
		Capacity:       load.Capacity,
		Open:           load.Open,
		ByStatus:       load.ByStatus,
	}
	if load.Capacity > 0 {
		available := load.Capacity - load.Open
		if available < 0 {
			available = 0
		}
		resp.Available = &available
	}
	return resp, nil
}

func (s *Service) load(ctx context.Context, actor access.Actor, id uuid.UUID, op string) (*repository.WorkOrder, error) {
	wo, err := s.repo.GetWorkOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.EnsureTenant(wo.TenantID, actor, op); err != nil {
		return nil, err
	}
	return wo, nil
}

func (s *Service) transition(ctx context.Context, p repository.TransitionParams) (*repository.WorkOrder, error) {
	wo, err := s.repo.Transition(ctx, p)
	if err == nil {
		return wo, nil
	}
	if !errors.Is(err, repository.ErrStale) {
		return nil, err
	}

	current, gerr := s.repo.GetWorkOrder(ctx, p.ID)
	if gerr != nil {
		return nil, gerr
	}
	if current.TenantID != p.TenantID {
		return nil, apperr.NotFound("work order not found")
	}
	s.log.WithContext(ctx).TransitionRejected(string(entity), p.ID.String(), current.Status, p.To)
	from := workflow.Status(current.Status)
	return nil, workflow.NewInvalidTransition(entity, from, workflow.Status(p.To), s.validator.ListLegalNext(entity, from))
}

func (s *Service) publishCreated(ctx context.Context, wo repository.WorkOrder) {
	s.bus.Publish(ctx, events.WorkOrderCreated{
		BaseEvent:   events.NewBaseEvent(),
		WorkOrderID: wo.ID,
		TenantID:    wo.TenantID,
		OrderID:     wo.OrderID,
		OrderItemID: wo.OrderItemID,
		ActorID:     wo.CreatedBy,
		Reference:   wo.Reference,
	})
}

func (s *Service) publishStatusChanged(ctx context.Context, wo repository.WorkOrder, from string, actorID uuid.UUID) {
	s.bus.Publish(ctx, events.WorkOrderStatusChanged{
		BaseEvent:   events.NewBaseEvent(),
		WorkOrderID: wo.ID,
		TenantID:    wo.TenantID,
		OrderID:     wo.OrderID,
		OrderItemID: wo.OrderItemID,
		ActorID:     actorID,
		Reference:   wo.Reference,
		From:        from,
		To:          wo.Status,
	})
}

func capacityConflict() error {
	return apperr.Conflict("assignment rejected: capacity_exceeded").
		WithDetails(map[string]interface{}{"reason": assignment.ReasonCapacityExceeded})
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func toResponse(w repository.WorkOrder) transport.WorkOrderResponse {
	return transport.WorkOrderResponse{
		ID:                  w.ID,
		Reference:           w.Reference,
		OrderID:             w.OrderID,
		OrderItemID:         w.OrderItemID,
		DesignJobID:         w.DesignJobID,
		ManufacturerID:      w.ManufacturerID,
		Status:              w.Status,
		Quantity:            w.Quantity,
		RequiredSpecialties: w.RequiredSpecialties,
		UnitCostCents:       w.UnitCostCents,
		TotalCostCents:      w.TotalCostCents,
		Priority:            w.Priority,
		PlannedStart:        w.PlannedStart,
		PlannedEnd:          w.PlannedEnd,
		ActualStart:         w.ActualStart,
		ActualEnd:           w.ActualEnd,
		EstimatedCompletion: w.EstimatedCompletion,
		DelayReason:         w.DelayReason,
		QualityNotes:        w.QualityNotes,
		CreatedAt:           w.CreatedAt,
		UpdatedAt:           w.UpdatedAt,
	}
}
