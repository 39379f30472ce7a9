package service

import (
	"context"
	"strings"
	"time"

	"production_backend/internal/access"
	"production_backend/internal/events"
	"production_backend/internal/workflow"
	"production_backend/internal/workorders/repository"
	"production_backend/internal/workorders/transport"
	"production_backend/platform/apperr"
	"production_backend/platform/sanitize"

	"github.com/google/uuid"
)

// CreateMilestone adds a production checkpoint to an open work order.
func (s *Service) CreateMilestone(ctx context.Context, actor access.Actor, workOrderID uuid.UUID, req transport.CreateMilestoneRequest) (transport.MilestoneResponse, error) {
	wo, err := s.mutable(ctx, actor, workOrderID, "workorders.CreateMilestone")
	if err != nil {
		return transport.MilestoneResponse{}, err
	}

	now := time.Now().UTC()
	m := repository.Milestone{
		ID:          uuid.New(),
		TenantID:    wo.TenantID,
		WorkOrderID: wo.ID,
		Name:        strings.TrimSpace(req.Name),
		SortOrder:   req.SortOrder,
		DueDate:     req.DueDate,
		Status:      "pending",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if n := sanitize.Text(req.Notes); n != "" {
		m.Notes = &n
	}
	if err := s.repo.CreateMilestone(ctx, m, actor.UserID); err != nil {
		return transport.MilestoneResponse{}, err
	}
	s.publishMilestone(ctx, actor, m)
	return toMilestoneResponse(m), nil
}

// UpdateMilestone changes a milestone's status.
func (s *Service) UpdateMilestone(ctx context.Context, actor access.Actor, workOrderID, milestoneID uuid.UUID, req transport.UpdateMilestoneRequest) (transport.MilestoneResponse, error) {
	wo, err := s.mutable(ctx, actor, workOrderID, "workorders.UpdateMilestone")
	if err != nil {
		return transport.MilestoneResponse{}, err
	}
	m, err := s.repo.UpdateMilestone(ctx, repository.UpdateMilestoneParams{
		TenantID:    wo.TenantID,
		WorkOrderID: wo.ID,
		ID:          milestoneID,
		Status:      req.Status,
		Notes:       req.Notes,
		ActorID:     actor.UserID,
	})
	if err != nil {
		return transport.MilestoneResponse{}, err
	}
	s.publishMilestone(ctx, actor, *m)
	return toMilestoneResponse(*m), nil
}

// ListMilestones returns the work order's milestones.
func (s *Service) ListMilestones(ctx context.Context, actor access.Actor, workOrderID uuid.UUID) ([]transport.MilestoneResponse, error) {
	wo, err := s.load(ctx, actor, workOrderID, "workorders.ListMilestones")
	if err != nil {
		return nil, err
	}
	ms, err := s.repo.ListMilestones(ctx, wo.TenantID, wo.ID)
	if err != nil {
		return nil, err
	}
	out := make([]transport.MilestoneResponse, 0, len(ms))
	for _, m := range ms {
		out = append(out, toMilestoneResponse(m))
	}
	return out, nil
}

// AddMaterialRequirement records material the work order needs. Supplier and
// unit cost come from the material catalog.
func (s *Service) AddMaterialRequirement(ctx context.Context, actor access.Actor, workOrderID uuid.UUID, req transport.AddMaterialRequest) (transport.MaterialRequirementResponse, error) {
	wo, err := s.mutable(ctx, actor, workOrderID, "workorders.AddMaterialRequirement")
	if err != nil {
		return transport.MaterialRequirementResponse{}, err
	}
	mat, err := s.materials.Material(ctx, req.MaterialID)
	if err != nil {
		return transport.MaterialRequirementResponse{}, err
	}
	if err := access.EnsureTenant(mat.TenantID, actor, "workorders.AddMaterialRequirement"); err != nil {
		return transport.MaterialRequirementResponse{}, err
	}

	mr := repository.MaterialRequirement{
		ID:            uuid.New(),
		TenantID:      wo.TenantID,
		WorkOrderID:   wo.ID,
		MaterialID:    mat.ID,
		SupplierID:    mat.SupplierID,
		Quantity:      req.Quantity,
		UnitCostCents: mat.UnitCostCents,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.repo.AddMaterialRequirement(ctx, mr); err != nil {
		return transport.MaterialRequirementResponse{}, err
	}
	return toMaterialResponse(mr), nil
}

// ListMaterialRequirements returns the work order's material needs.
func (s *Service) ListMaterialRequirements(ctx context.Context, actor access.Actor, workOrderID uuid.UUID) ([]transport.MaterialRequirementResponse, error) {
	wo, err := s.load(ctx, actor, workOrderID, "workorders.ListMaterialRequirements")
	if err != nil {
		return nil, err
	}
	reqs, err := s.repo.ListMaterialRequirements(ctx, wo.TenantID, wo.ID)
	if err != nil {
		return nil, err
	}
	out := make([]transport.MaterialRequirementResponse, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, toMaterialResponse(r))
	}
	return out, nil
}

// mutable loads a work order that can still take production changes.
func (s *Service) mutable(ctx context.Context, actor access.Actor, id uuid.UUID, op string) (*repository.WorkOrder, error) {
	if err := requireProduction(actor, op); err != nil {
		return nil, err
	}
	wo, err := s.load(ctx, actor, id, op)
	if err != nil {
		return nil, err
	}
	if s.validator.IsTerminal(entity, workflow.Status(wo.Status)) {
		return nil, apperr.InvalidState("work order is closed").
			WithDetails(map[string]string{"status": wo.Status}).WithOp(op)
	}
	return wo, nil
}

func (s *Service) publishMilestone(ctx context.Context, actor access.Actor, m repository.Milestone) {
	s.bus.Publish(ctx, events.MilestoneUpdated{
		BaseEvent:   events.NewBaseEvent(),
		WorkOrderID: m.WorkOrderID,
		MilestoneID: m.ID,
		TenantID:    m.TenantID,
		ActorID:     actor.UserID,
		Name:        m.Name,
		Status:      m.Status,
	})
}

func toMilestoneResponse(m repository.Milestone) transport.MilestoneResponse {
	return transport.MilestoneResponse{
		ID:          m.ID,
		Name:        m.Name,
		SortOrder:   m.SortOrder,
		DueDate:     m.DueDate,
		CompletedAt: m.CompletedAt,
		Status:      m.Status,
		Notes:       m.Notes,
	}
}

func toMaterialResponse(m repository.MaterialRequirement) transport.MaterialRequirementResponse {
	return transport.MaterialRequirementResponse{
		ID:              m.ID,
		MaterialID:      m.MaterialID,
		SupplierID:      m.SupplierID,
		Quantity:        m.Quantity,
		UnitCostCents:   m.UnitCostCents,
		OrderedQuantity: m.OrderedQuantity,
	}
}
