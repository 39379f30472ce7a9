package service

import (
	"context"
	"errors"

	"production_backend/internal/access"
	"production_backend/internal/assignment"
	"production_backend/internal/auditlog"
	"production_backend/internal/events"
	"production_backend/internal/workflow"
	"production_backend/internal/workorders/repository"
	"production_backend/internal/workorders/transport"
	"production_backend/platform/sanitize"

	"github.com/google/uuid"
)

// AssignManufacturer gives a pending work order to one manufacturer.
func (s *Service) AssignManufacturer(ctx context.Context, actor access.Actor, id uuid.UUID, req transport.AssignManufacturerRequest) (transport.WorkOrderResponse, error) {
	if err := requireProduction(actor, "workorders.AssignManufacturer"); err != nil {
		return transport.WorkOrderResponse{}, err
	}
	if _, err := s.load(ctx, actor, id, "workorders.AssignManufacturer"); err != nil {
		return transport.WorkOrderResponse{}, err
	}

	opts := assignment.Options{
		UseSkillMatching:     true,
		CheckCapacity:        true,
		CheckMinimumQuantity: !req.SkipMinimumQuantity,
		SkipCapacityCheck:    req.SkipCapacityCheck,
		SkipSkillCheck:       req.SkipCapabilityCheck,
		Notes:                sanitize.Text(req.Notes),
	}
	if _, err := s.engine(actor).AssignOne(ctx, actor.TenantID, id, req.ManufacturerID, opts); err != nil {
		return transport.WorkOrderResponse{}, err
	}

	wo, err := s.repo.GetWorkOrder(ctx, id)
	if err != nil {
		return transport.WorkOrderResponse{}, err
	}
	return toResponse(*wo), nil
}

// BulkAssign distributes pending work orders over the tenant's manufacturers.
func (s *Service) BulkAssign(ctx context.Context, actor access.Actor, req transport.BulkAssignRequest) (transport.BulkAssignResponse, error) {
	if err := requireProduction(actor, "workorders.BulkAssign"); err != nil {
		return transport.BulkAssignResponse{}, err
	}

	res, err := s.engine(actor).AssignBulk(ctx, actor.TenantID, req.WorkOrderIDs, assignment.Options{
		UseWorkloadBalancing: req.UseWorkloadBalancing,
		UseSkillMatching:     req.UseSkillMatching,
		CheckCapacity:        req.CheckCapacity,
		CheckMinimumQuantity: req.CheckMinimumQuantity,
		WorkerID:             req.ManufacturerID,
	})
	if err != nil {
		return transport.BulkAssignResponse{}, err
	}

	out := transport.BulkAssignResponse{
		Assigned: make([]transport.AssignedResponse, 0, len(res.Assigned)),
		Skipped:  make([]transport.SkippedResponse, 0, len(res.Skipped)),
		Count:    len(res.Assigned),
	}
	for _, a := range res.Assigned {
		out.Assigned = append(out.Assigned, transport.AssignedResponse{WorkOrderID: a.JobID, ManufacturerID: a.WorkerID})
	}
	for _, sk := range res.Skipped {
		out.Skipped = append(out.Skipped, transport.SkippedResponse{ID: sk.ID, Reason: string(sk.Reason)})
	}
	return out, nil
}

func (s *Service) engine(actor access.Actor) *assignment.Engine {
	return assignment.New(s.validator, entity, statusAssigned, &manufacturerSource{svc: s, actor: actor})
}

type manufacturerSource struct {
	svc   *Service
	actor access.Actor
}

func (m *manufacturerSource) LoadJobs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]assignment.Job, error) {
	wos, err := m.svc.repo.GetWorkOrders(ctx, tenantID, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]assignment.Job, len(wos))
	for _, wo := range wos {
		out[wo.ID] = toJob(wo)
	}
	return out, nil
}

func (m *manufacturerSource) ListWorkers(ctx context.Context, tenantID uuid.UUID) ([]assignment.Worker, error) {
	all, err := m.svc.manufacturers.Manufacturers(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]assignment.Worker, 0, len(all))
	for _, mf := range all {
		out = append(out, toWorker(mf))
	}
	return out, nil
}

// Commit re-checks capacity under the manufacturer row lock so concurrent
// assignments cannot overfill it.
func (m *manufacturerSource) Commit(ctx context.Context, tenantID uuid.UUID, job assignment.Job, worker assignment.Worker, opts assignment.Options) error {
	manufacturerID := worker.ID
	var overrides []string
	if opts.SkipCapacityCheck {
		overrides = append(overrides, "capacity")
	}
	if opts.SkipSkillCheck {
		overrides = append(overrides, "capability")
	}

	updated, err := m.svc.transition(ctx, repository.TransitionParams{
		TenantID:        tenantID,
		ID:              job.ID,
		From:            string(job.Status),
		To:              string(statusAssigned),
		ActorID:         m.actor.UserID,
		SetManufacturer: true,
		ManufacturerID:  &manufacturerID,
		CheckCapacity:   opts.CheckCapacity && !opts.SkipCapacityCheck,
		Events: []auditlog.Payload{auditlog.Assigned{
			From:       string(job.Status),
			To:         string(statusAssigned),
			AssigneeID: manufacturerID,
			Overrides:  overrides,
		}},
	})
	if errors.Is(err, repository.ErrCapacityExceeded) {
		return &assignment.SkipError{Reason: assignment.ReasonCapacityExceeded, Message: "manufacturer is at capacity"}
	}
	if err != nil {
		return err
	}

	m.svc.bus.Publish(ctx, events.WorkOrderAssigned{
		BaseEvent:      events.NewBaseEvent(),
		WorkOrderID:    updated.ID,
		TenantID:       updated.TenantID,
		ActorID:        m.actor.UserID,
		Reference:      updated.Reference,
		ManufacturerID: manufacturerID,
	})
	m.svc.publishStatusChanged(ctx, *updated, string(job.Status), m.actor.UserID)
	return nil
}

func toJob(wo repository.WorkOrder) assignment.Job {
	return assignment.Job{
		ID:                  wo.ID,
		TenantID:            wo.TenantID,
		Status:              workflow.Status(wo.Status),
		RequiredSpecialties: wo.RequiredSpecialties,
		Quantity:            wo.Quantity,
	}
}

func toWorker(m Manufacturer) assignment.Worker {
	return assignment.Worker{
		ID:               m.ID,
		Active:           m.Active,
		Specialties:      m.Capabilities,
		Capacity:         m.Capacity,
		MinOrderQuantity: m.MinOrderQuantity,
		OpenJobs:         m.OpenWorkOrders,
	}
}
