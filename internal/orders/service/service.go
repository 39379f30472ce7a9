package service

import (
	"context"
	"strings"
	"time"

	"production_backend/internal/access"
	"production_backend/internal/events"
	"production_backend/internal/orders/repository"
	"production_backend/internal/orders/transport"
	"production_backend/platform/apperr"
	"production_backend/platform/logger"
	"production_backend/platform/phone"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	defaultRegion   = "NL"
)

// Store is the persistence the orders service needs.
type Store interface {
	CreateOrder(ctx context.Context, order repository.Order, items []repository.OrderItem) error
	GetOrder(ctx context.Context, id uuid.UUID) (*repository.Order, error)
	ListOrders(ctx context.Context, p repository.ListParams) ([]repository.Order, int, error)
	ListItems(ctx context.Context, orderID uuid.UUID) ([]repository.OrderItem, error)
	GetItems(ctx context.Context, ids []uuid.UUID) ([]repository.OrderItem, error)
	ItemProgress(ctx context.Context, orderID uuid.UUID) ([]repository.ItemProgress, error)
	ApplyDerivedStatus(ctx context.Context, orderID uuid.UUID, itemStatuses map[uuid.UUID]string, orderStatus string) (string, error)
}

// Service provides business logic for orders
type Service struct {
	repo  Store
	bus   events.Bus
	phone *phone.Normalizer
	log   *logger.Logger
}

// New creates a new orders service
func New(repo Store, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, phone: phone.NewNormalizer(defaultRegion), log: log}
}

// Create records an order with its items. Items start as new.
func (s *Service) Create(ctx context.Context, actor access.Actor, req transport.CreateOrderRequest) (transport.OrderResponse, error) {
	if !actor.IsAdmin() {
		return transport.OrderResponse{}, apperr.Forbidden("only admins can create orders")
	}

	var phoneNumber *string
	if raw := strings.TrimSpace(req.CustomerPhone); raw != "" {
		normalized, ok := s.phone.NormalizeE164(raw)
		if !ok {
			return transport.OrderResponse{}, apperr.Validation("customer phone is not a valid phone number")
		}
		phoneNumber = &normalized
	}
	var email *string
	if e := strings.ToLower(strings.TrimSpace(req.CustomerEmail)); e != "" {
		email = &e
	}

	now := time.Now().UTC()
	order := repository.Order{
		ID:            uuid.New(),
		TenantID:      actor.TenantID,
		Reference:     strings.TrimSpace(req.Reference),
		CustomerName:  strings.TrimSpace(req.CustomerName),
		CustomerEmail: email,
		CustomerPhone: phoneNumber,
		Status:        StatusNew,
		CreatedBy:     actor.UserID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	items := make([]repository.OrderItem, 0, len(req.Items))
	for _, in := range req.Items {
		item := repository.OrderItem{
			ID:                  uuid.New(),
			OrderID:             order.ID,
			TenantID:            actor.TenantID,
			ProductRef:          strings.TrimSpace(in.ProductRef),
			Description:         strings.TrimSpace(in.Description),
			Quantity:            in.Quantity,
			UnitPriceCents:      in.UnitPriceCents,
			RequiredSpecialties: normalizeSpecialties(in.RequiredSpecialties),
			Status:              StatusNew,
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		order.TotalCents += int64(item.Quantity) * item.UnitPriceCents
		items = append(items, item)
	}

	if err := s.repo.CreateOrder(ctx, order, items); err != nil {
		return transport.OrderResponse{}, err
	}

	s.bus.Publish(ctx, events.OrderCreated{
		BaseEvent: events.NewBaseEvent(),
		OrderID:   order.ID,
		TenantID:  order.TenantID,
		ActorID:   actor.UserID,
		Reference: order.Reference,
		ItemCount: len(items),
	})

	resp := toOrderResponse(order)
	resp.Items = make([]transport.OrderItemResponse, 0, len(items))
	for _, it := range items {
		resp.Items = append(resp.Items, toItemResponse(it, nil))
	}
	return resp, nil
}

// Get returns an order with its items and their child progress.
func (s *Service) Get(ctx context.Context, actor access.Actor, id uuid.UUID) (transport.OrderResponse, error) {
	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return transport.OrderResponse{}, err
	}
	if err := access.EnsureTenant(order.TenantID, actor, "orders.Get"); err != nil {
		return transport.OrderResponse{}, err
	}

	items, err := s.repo.ListItems(ctx, id)
	if err != nil {
		return transport.OrderResponse{}, err
	}
	progress, err := s.repo.ItemProgress(ctx, id)
	if err != nil {
		return transport.OrderResponse{}, err
	}
	byItem := make(map[uuid.UUID]repository.ItemProgress, len(progress))
	for _, p := range progress {
		byItem[p.ItemID] = p
	}

	resp := toOrderResponse(*order)
	resp.Items = make([]transport.OrderItemResponse, 0, len(items))
	for _, it := range items {
		var p *repository.ItemProgress
		if v, ok := byItem[it.ID]; ok {
			p = &v
		}
		resp.Items = append(resp.Items, toItemResponse(it, p))
	}
	return resp, nil
}

// List returns a page of the tenant's orders.
func (s *Service) List(ctx context.Context, actor access.Actor, req transport.ListOrdersRequest) (transport.OrderListResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}

	orders, total, err := s.repo.ListOrders(ctx, repository.ListParams{
		TenantID: actor.TenantID,
		Status:   req.Status,
		Search:   strings.TrimSpace(req.Search),
		Limit:    pageSize,
		Offset:   (page - 1) * pageSize,
	})
	if err != nil {
		return transport.OrderListResponse{}, err
	}

	items := make([]transport.OrderResponse, 0, len(orders))
	for _, o := range orders {
		items = append(items, toOrderResponse(o))
	}
	return transport.OrderListResponse{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

// Recompute derives item and order statuses from the current design job and
// work order statuses and publishes OrderStatusDerived when the order changed.
func (s *Service) Recompute(ctx context.Context, tenantID, orderID uuid.UUID) error {
	progress, err := s.repo.ItemProgress(ctx, orderID)
	if err != nil {
		return err
	}

	itemStatuses := make(map[uuid.UUID]string, len(progress))
	derived := make([]string, 0, len(progress))
	for _, p := range progress {
		st := DeriveItemStatus(p.DesignJobStatus, p.WorkOrderStatus)
		itemStatuses[p.ItemID] = st
		derived = append(derived, st)
	}
	orderStatus := DeriveOrderStatus(derived)

	previous, err := s.repo.ApplyDerivedStatus(ctx, orderID, itemStatuses, orderStatus)
	if err != nil {
		return err
	}
	if previous == orderStatus {
		return nil
	}

	s.log.Info("order status derived", "orderId", orderID, "from", previous, "to", orderStatus)
	s.bus.Publish(ctx, events.OrderStatusDerived{
		BaseEvent: events.NewBaseEvent(),
		OrderID:   orderID,
		TenantID:  tenantID,
		From:      previous,
		To:        orderStatus,
	})
	return nil
}

// ItemsByID loads order items for the lifecycle modules. Every item must
// exist and belong to the tenant.
func (s *Service) ItemsByID(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]repository.OrderItem, error) {
	items, err := s.repo.GetItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]repository.OrderItem, len(items))
	for _, it := range items {
		if it.TenantID != tenantID {
			return nil, apperr.Forbidden("order item belongs to another tenant")
		}
		out[it.ID] = it
	}
	for _, id := range ids {
		if _, ok := out[id]; !ok {
			return nil, apperr.NotFound("order item not found").WithDetails(map[string]string{"orderItemId": id.String()})
		}
	}
	return out, nil
}

// RegisterHandlers recomputes order state whenever a child entity appears or
// changes status.
func (s *Service) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.DesignJobCreated{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		ev, ok := e.(events.DesignJobCreated)
		if !ok {
			return nil
		}
		return s.Recompute(ctx, ev.TenantID, ev.OrderID)
	}))
	bus.Subscribe(events.DesignJobStatusChanged{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		ev, ok := e.(events.DesignJobStatusChanged)
		if !ok {
			return nil
		}
		return s.Recompute(ctx, ev.TenantID, ev.OrderID)
	}))
	bus.Subscribe(events.WorkOrderCreated{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		ev, ok := e.(events.WorkOrderCreated)
		if !ok {
			return nil
		}
		return s.Recompute(ctx, ev.TenantID, ev.OrderID)
	}))
	bus.Subscribe(events.WorkOrderStatusChanged{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		ev, ok := e.(events.WorkOrderStatusChanged)
		if !ok {
			return nil
		}
		return s.Recompute(ctx, ev.TenantID, ev.OrderID)
	}))
}

func normalizeSpecialties(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func toOrderResponse(o repository.Order) transport.OrderResponse {
	return transport.OrderResponse{
		ID:            o.ID,
		Reference:     o.Reference,
		CustomerName:  o.CustomerName,
		CustomerEmail: o.CustomerEmail,
		CustomerPhone: o.CustomerPhone,
		TotalCents:    o.TotalCents,
		Status:        o.Status,
		CreatedBy:     o.CreatedBy,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

func toItemResponse(it repository.OrderItem, p *repository.ItemProgress) transport.OrderItemResponse {
	resp := transport.OrderItemResponse{
		ID:                  it.ID,
		ProductRef:          it.ProductRef,
		Description:         it.Description,
		Quantity:            it.Quantity,
		UnitPriceCents:      it.UnitPriceCents,
		RequiredSpecialties: it.RequiredSpecialties,
		Status:              it.Status,
	}
	if p != nil {
		resp.DesignJobID = p.DesignJobID
		resp.DesignJobStatus = p.DesignJobStatus
		resp.WorkOrderID = p.WorkOrderID
		resp.WorkOrderStatus = p.WorkOrderStatus
	}
	return resp
}
