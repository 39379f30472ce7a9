package service

import (
	"context"

	"production_backend/internal/access"
	"production_backend/internal/assignment"
	"production_backend/internal/auditlog"
	"production_backend/internal/designjobs/repository"
	"production_backend/internal/designjobs/transport"
	"production_backend/internal/events"
	"production_backend/internal/workflow"
	"production_backend/platform/sanitize"

	"github.com/google/uuid"
)

// AssignDesigner gives a pending job to one designer. Eligibility failures
// are Conflicts carrying the reason.
func (s *Service) AssignDesigner(ctx context.Context, actor access.Actor, id uuid.UUID, req transport.AssignDesignerRequest) (transport.DesignJobResponse, error) {
	if err := access.RequireAdmin(actor, "designjobs.AssignDesigner"); err != nil {
		return transport.DesignJobResponse{}, err
	}
	if _, err := s.load(ctx, actor, id, "designjobs.AssignDesigner"); err != nil {
		return transport.DesignJobResponse{}, err
	}

	opts := assignment.Options{
		UseSkillMatching:  true,
		CheckCapacity:     true,
		SkipCapacityCheck: req.SkipCapacityCheck,
		SkipSkillCheck:    req.SkipSkillCheck,
		Notes:             sanitize.Text(req.Notes),
	}
	if _, err := s.engine(actor).AssignOne(ctx, actor.TenantID, id, req.DesignerID, opts); err != nil {
		return transport.DesignJobResponse{}, err
	}

	job, err := s.repo.GetJob(ctx, id)
	if err != nil {
		return transport.DesignJobResponse{}, err
	}
	return toResponse(*job), nil
}

// BulkAssign distributes pending jobs over the tenant's designers.
func (s *Service) BulkAssign(ctx context.Context, actor access.Actor, req transport.BulkAssignRequest) (transport.BulkAssignResponse, error) {
	if err := access.RequireAdmin(actor, "designjobs.BulkAssign"); err != nil {
		return transport.BulkAssignResponse{}, err
	}

	res, err := s.engine(actor).AssignBulk(ctx, actor.TenantID, req.JobIDs, assignment.Options{
		UseWorkloadBalancing: req.UseWorkloadBalancing,
		UseSkillMatching:     req.UseSkillMatching,
		CheckCapacity:        req.CheckCapacity,
		WorkerID:             req.DesignerID,
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
		out.Assigned = append(out.Assigned, transport.AssignedResponse{JobID: a.JobID, WorkerID: a.WorkerID})
	}
	for _, sk := range res.Skipped {
		out.Skipped = append(out.Skipped, transport.SkippedResponse{ID: sk.ID, Reason: string(sk.Reason)})
	}
	return out, nil
}

func (s *Service) engine(actor access.Actor) *assignment.Engine {
	return assignment.New(s.validator, entity, statusAssigned, &designerSource{svc: s, actor: actor})
}

// designerSource adapts design jobs and designers to the assignment engine.
type designerSource struct {
	svc   *Service
	actor access.Actor
}

func (d *designerSource) LoadJobs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]assignment.Job, error) {
	jobs, err := d.svc.repo.GetJobs(ctx, tenantID, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]assignment.Job, len(jobs))
	for _, j := range jobs {
		out[j.ID] = assignment.Job{
			ID:                  j.ID,
			TenantID:            j.TenantID,
			Status:              workflow.Status(j.Status),
			RequiredSpecialties: j.RequiredSpecialties,
			Quantity:            j.Quantity,
		}
	}
	return out, nil
}

func (d *designerSource) ListWorkers(ctx context.Context, tenantID uuid.UUID) ([]assignment.Worker, error) {
	designers, err := d.svc.designers.Designers(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]assignment.Worker, 0, len(designers))
	for _, ds := range designers {
		out = append(out, assignment.Worker{
			ID:          ds.UserID,
			Active:      ds.Active,
			Specialties: ds.Specialties,
			Capacity:    ds.Capacity,
			OpenJobs:    ds.OpenJobs,
		})
	}
	return out, nil
}

func (d *designerSource) Commit(ctx context.Context, tenantID uuid.UUID, job assignment.Job, worker assignment.Worker, opts assignment.Options) error {
	designerID := worker.ID
	updated, err := d.svc.transition(ctx, repository.TransitionParams{
		TenantID:    tenantID,
		ID:          job.ID,
		From:        string(job.Status),
		To:          string(statusAssigned),
		ActorID:     d.actor.UserID,
		SetAssignee: true,
		AssigneeID:  &designerID,
		Events: []auditlog.Payload{auditlog.Assigned{
			From:       string(job.Status),
			To:         string(statusAssigned),
			AssigneeID: designerID,
			Overrides:  overrides(opts),
		}},
	})
	if err != nil {
		return err
	}

	d.svc.bus.Publish(ctx, events.DesignJobAssigned{
		BaseEvent:  events.NewBaseEvent(),
		JobID:      updated.ID,
		TenantID:   updated.TenantID,
		ActorID:    d.actor.UserID,
		DesignerID: designerID,
		Title:      updated.Title,
	})
	d.svc.publishStatusChanged(ctx, *updated, string(job.Status), d.actor.UserID, opts.Notes)
	return nil
}

func overrides(opts assignment.Options) []string {
	var out []string
	if opts.SkipCapacityCheck {
		out = append(out, "capacity")
	}
	if opts.SkipSkillCheck {
		out = append(out, "skill")
	}
	return out
}
