package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"production_backend/internal/access"
	"production_backend/internal/auditlog"
	"production_backend/internal/events"
	"production_backend/internal/purchasing/repository"
	"production_backend/internal/purchasing/transport"
	"production_backend/internal/workflow"
	"production_backend/platform/apperr"
	"production_backend/platform/logger"
	"production_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 20

	statusDraft             workflow.Status = "draft"
	statusApproved          workflow.Status = "approved"
	statusSubmitted         workflow.Status = "submitted"
	statusPartiallyReceived workflow.Status = "partially_received"
	statusReceived          workflow.Status = "received"
	statusCancelled         workflow.Status = "cancelled"
)

const entity = workflow.EntityPurchaseOrder

// Store is the persistence the purchasing service needs.
type Store interface {
	CreatePurchaseOrder(ctx context.Context, po *repository.PurchaseOrder, lines []repository.Line) error
	GenerateFromRequirements(ctx context.Context, tenantID uuid.UUID, workOrderIDs []uuid.UUID, plan repository.PlanFunc) ([]repository.Draft, error)
	GetPurchaseOrder(ctx context.Context, id uuid.UUID) (*repository.PurchaseOrder, error)
	ListLines(ctx context.Context, tenantID, purchaseOrderID uuid.UUID) ([]repository.Line, error)
	ListPurchaseOrders(ctx context.Context, p repository.ListParams) ([]repository.PurchaseOrder, int, error)
	Transition(ctx context.Context, p repository.TransitionParams) (*repository.PurchaseOrder, error)
	AddLine(ctx context.Context, e repository.LineEdit, l repository.Line) (*repository.PurchaseOrder, error)
	UpdateLine(ctx context.Context, e repository.LineEdit, lineID uuid.UUID, quantity, unitCostCents int64) (*repository.PurchaseOrder, error)
	RemoveLine(ctx context.Context, e repository.LineEdit, lineID uuid.UUID) (*repository.PurchaseOrder, error)
	ReceiveItems(ctx context.Context, p repository.ReceiveParams) (*repository.PurchaseOrder, string, error)
	ListEvents(ctx context.Context, tenantID, purchaseOrderID uuid.UUID) ([]auditlog.Entry, error)
}

// Supplier is a supplier as seen by purchasing.
type Supplier struct {
	ID       uuid.UUID
	TenantID uuid.UUID
}

// Material is a purchasable material as seen by purchasing.
type Material struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	SupplierID    uuid.UUID
	Name          string
	UnitCostCents int64
}

// Catalog resolves suppliers and materials.
type Catalog interface {
	Supplier(ctx context.Context, id uuid.UUID) (Supplier, error)
	Material(ctx context.Context, id uuid.UUID) (Material, error)
}

// Service provides business logic for purchase orders
type Service struct {
	repo      Store
	catalog   Catalog
	validator *workflow.Validator
	bus       events.Bus
	log       *logger.Logger
}

// New creates a new purchasing service
func New(repo Store, catalog Catalog, validator *workflow.Validator, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, catalog: catalog, validator: validator, bus: bus, log: log}
}

func requirePurchasing(actor access.Actor, op string) error {
	if actor.IsAdmin() || actor.HasRole(access.RolePurchasing) {
		return nil
	}
	return apperr.Forbidden("purchasing role required").WithOp(op)
}

// Create opens a draft purchase order for a supplier.
func (s *Service) Create(ctx context.Context, actor access.Actor, req transport.CreatePurchaseOrderRequest) (transport.PurchaseOrderResponse, error) {
	if err := requirePurchasing(actor, "purchasing.Create"); err != nil {
		return transport.PurchaseOrderResponse{}, err
	}
	supplier, err := s.catalog.Supplier(ctx, req.SupplierID)
	if err != nil {
		return transport.PurchaseOrderResponse{}, err
	}
	if err := access.EnsureTenant(supplier.TenantID, actor, "purchasing.Create"); err != nil {
		return transport.PurchaseOrderResponse{}, err
	}

	now := time.Now().UTC()
	po := repository.PurchaseOrder{
		ID:           uuid.New(),
		TenantID:     actor.TenantID,
		SupplierID:   supplier.ID,
		Status:       string(statusDraft),
		ExpectedDate: req.ExpectedDate,
		CreatedBy:    actor.UserID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if n := sanitize.Text(req.Notes); n != "" {
		po.Notes = &n
	}

	lines := make([]repository.Line, 0, len(req.Lines))
	for _, in := range req.Lines {
		l, err := s.buildLine(ctx, actor, po, in)
		if err != nil {
			return transport.PurchaseOrderResponse{}, err
		}
		lines = append(lines, l)
	}

	if err := s.repo.CreatePurchaseOrder(ctx, &po, lines); err != nil {
		return transport.PurchaseOrderResponse{}, err
	}
	s.publishCreated(ctx, po)
	return toResponse(po, lines), nil
}

func (s *Service) buildLine(ctx context.Context, actor access.Actor, po repository.PurchaseOrder, in transport.LineRequest) (repository.Line, error) {
	mat, err := s.catalog.Material(ctx, in.MaterialID)
	if err != nil {
		return repository.Line{}, err
	}
	if err := access.EnsureTenant(mat.TenantID, actor, "purchasing.Line"); err != nil {
		return repository.Line{}, err
	}
	if mat.SupplierID != po.SupplierID {
		return repository.Line{}, apperr.Validation("material is not sold by this supplier").
			WithDetails(map[string]string{"materialId": mat.ID.String()})
	}
	unitCost := mat.UnitCostCents
	if in.UnitCostCents != nil {
		unitCost = *in.UnitCostCents
	}
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		desc = mat.Name
	}
	return repository.Line{
		ID:              uuid.New(),
		TenantID:        po.TenantID,
		PurchaseOrderID: po.ID,
		MaterialID:      mat.ID,
		Description:     desc,
		Quantity:        in.Quantity,
		UnitCostCents:   unitCost,
		TotalCostCents:  in.Quantity * unitCost,
		CreatedAt:       time.Now().UTC(),
	}, nil
}

// BulkGenerate creates one draft purchase order per supplier from the
// outstanding material requirements of the work orders.
func (s *Service) BulkGenerate(ctx context.Context, actor access.Actor, req transport.BulkGenerateRequest) (transport.BulkGenerateResponse, error) {
	if err := requirePurchasing(actor, "purchasing.BulkGenerate"); err != nil {
		return transport.BulkGenerateResponse{}, err
	}
	drafts, err := s.repo.GenerateFromRequirements(ctx, actor.TenantID, dedupe(req.WorkOrderIDs), func(reqs []repository.Requirement) ([]repository.Draft, error) {
		return PlanDrafts(actor, time.Now().UTC(), reqs), nil
	})
	if err != nil {
		return transport.BulkGenerateResponse{}, err
	}

	resp := transport.BulkGenerateResponse{Created: make([]transport.PurchaseOrderResponse, 0, len(drafts)), Count: len(drafts)}
	for _, d := range drafts {
		s.publishCreated(ctx, d.PurchaseOrder)
		resp.Created = append(resp.Created, toResponse(d.PurchaseOrder, d.Lines))
	}
	return resp, nil
}

// PlanDrafts groups requirements by supplier, one draft per supplier in order
// of first appearance, with one line per outstanding requirement.
func PlanDrafts(actor access.Actor, now time.Time, reqs []repository.Requirement) []repository.Draft {
	index := make(map[uuid.UUID]int)
	var drafts []repository.Draft
	for _, r := range reqs {
		if r.Outstanding() <= 0 {
			continue
		}
		i, ok := index[r.SupplierID]
		if !ok {
			i = len(drafts)
			index[r.SupplierID] = i
			drafts = append(drafts, repository.Draft{PurchaseOrder: repository.PurchaseOrder{
				ID:         uuid.New(),
				TenantID:   actor.TenantID,
				SupplierID: r.SupplierID,
				Status:     string(statusDraft),
				CreatedBy:  actor.UserID,
				CreatedAt:  now,
				UpdatedAt:  now,
			}})
		}
		d := &drafts[i]
		reqID := r.ID
		qty := r.Outstanding()
		d.Lines = append(d.Lines, repository.Line{
			ID:              uuid.New(),
			TenantID:        actor.TenantID,
			PurchaseOrderID: d.PurchaseOrder.ID,
			MaterialID:      r.MaterialID,
			RequirementID:   &reqID,
			Description:     fmt.Sprintf("work order %s", r.WorkOrderID),
			Quantity:        qty,
			UnitCostCents:   r.UnitCostCents,
			TotalCostCents:  qty * r.UnitCostCents,
			CreatedAt:       now,
		})
		d.PurchaseOrder.TotalCents += qty * r.UnitCostCents
	}
	return drafts
}

// Get returns a purchase order with its lines.
func (s *Service) Get(ctx context.Context, actor access.Actor, id uuid.UUID) (transport.PurchaseOrderResponse, error) {
	po, err := s.load(ctx, actor, id, "purchasing.Get")
	if err != nil {
		return transport.PurchaseOrderResponse{}, err
	}
	return s.withLines(ctx, *po)
}

// List returns a page of the tenant's purchase orders.
func (s *Service) List(ctx context.Context, actor access.Actor, req transport.ListPurchaseOrdersRequest) (transport.PurchaseOrderListResponse, error) {
	page, pageSize := req.Page, req.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	pos, total, err := s.repo.ListPurchaseOrders(ctx, repository.ListParams{
		TenantID:   actor.TenantID,
		Status:     req.Status,
		SupplierID: req.SupplierID,
		Limit:      pageSize,
		Offset:     (page - 1) * pageSize,
	})
	if err != nil {
		return transport.PurchaseOrderListResponse{}, err
	}
	items := make([]transport.PurchaseOrderResponse, 0, len(pos))
	for _, po := range pos {
		items = append(items, toResponse(po, nil))
	}
	return transport.PurchaseOrderListResponse{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

// ListEvents returns the purchase order's audit log oldest first.
func (s *Service) ListEvents(ctx context.Context, actor access.Actor, id uuid.UUID) ([]transport.EventResponse, error) {
	po, err := s.load(ctx, actor, id, "purchasing.ListEvents")
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.ListEvents(ctx, po.TenantID, po.ID)
	if err != nil {
		return nil, err
	}
	out := make([]transport.EventResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, transport.EventResponse{ID: e.ID, Kind: string(e.Kind), ActorID: e.ActorID, Payload: e.Payload, CreatedAt: e.CreatedAt})
	}
	return out, nil
}

func (s *Service) load(ctx context.Context, actor access.Actor, id uuid.UUID, op string) (*repository.PurchaseOrder, error) {
	po, err := s.repo.GetPurchaseOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.EnsureTenant(po.TenantID, actor, op); err != nil {
		return nil, err
	}
	return po, nil
}

func (s *Service) withLines(ctx context.Context, po repository.PurchaseOrder) (transport.PurchaseOrderResponse, error) {
	lines, err := s.repo.ListLines(ctx, po.TenantID, po.ID)
	if err != nil {
		return transport.PurchaseOrderResponse{}, err
	}
	return toResponse(po, lines), nil
}

func (s *Service) transition(ctx context.Context, p repository.TransitionParams) (*repository.PurchaseOrder, error) {
	po, err := s.repo.Transition(ctx, p)
	if err == nil {
		return po, nil
	}
	if !errors.Is(err, repository.ErrStale) {
		return nil, err
	}

	current, gerr := s.repo.GetPurchaseOrder(ctx, p.ID)
	if gerr != nil {
		return nil, gerr
	}
	if current.TenantID != p.TenantID {
		return nil, apperr.NotFound("purchase order not found")
	}
	s.log.WithContext(ctx).TransitionRejected(string(entity), p.ID.String(), current.Status, p.To)
	from := workflow.Status(current.Status)
	return nil, workflow.NewInvalidTransition(entity, from, workflow.Status(p.To), s.validator.ListLegalNext(entity, from))
}

func (s *Service) publishCreated(ctx context.Context, po repository.PurchaseOrder) {
	s.bus.Publish(ctx, events.PurchaseOrderCreated{
		BaseEvent:       events.NewBaseEvent(),
		PurchaseOrderID: po.ID,
		TenantID:        po.TenantID,
		ActorID:         po.CreatedBy,
		SupplierID:      po.SupplierID,
		Number:          po.Number,
	})
}

func (s *Service) publishStatusChanged(ctx context.Context, po repository.PurchaseOrder, from string, actorID uuid.UUID) {
	s.bus.Publish(ctx, events.PurchaseOrderStatusChanged{
		BaseEvent:       events.NewBaseEvent(),
		PurchaseOrderID: po.ID,
		TenantID:        po.TenantID,
		ActorID:         actorID,
		Number:          po.Number,
		From:            from,
		To:              po.Status,
	})
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

func toResponse(po repository.PurchaseOrder, lines []repository.Line) transport.PurchaseOrderResponse {
	resp := transport.PurchaseOrderResponse{
		ID:           po.ID,
		Number:       po.Number,
		SupplierID:   po.SupplierID,
		Status:       po.Status,
		TotalCents:   po.TotalCents,
		Notes:        po.Notes,
		ExpectedDate: po.ExpectedDate,
		ApprovedBy:   po.ApprovedBy,
		ApprovedAt:   po.ApprovedAt,
		SubmittedAt:  po.SubmittedAt,
		ReceivedAt:   po.ReceivedAt,
		CancelledAt:  po.CancelledAt,
		CreatedBy:    po.CreatedBy,
		CreatedAt:    po.CreatedAt,
		UpdatedAt:    po.UpdatedAt,
	}
	if lines != nil {
		resp.Lines = make([]transport.LineResponse, 0, len(lines))
		for _, l := range lines {
			resp.Lines = append(resp.Lines, transport.LineResponse{
				ID:               l.ID,
				MaterialID:       l.MaterialID,
				RequirementID:    l.RequirementID,
				Description:      l.Description,
				Quantity:         l.Quantity,
				UnitCostCents:    l.UnitCostCents,
				TotalCostCents:   l.TotalCostCents,
				ReceivedQuantity: l.ReceivedQuantity,
			})
		}
	}
	return resp
}
