package service

import (
	"context"
	"fmt"
	"sort"

	"production_backend/internal/access"
	"production_backend/internal/auditlog"
	"production_backend/internal/designjobs/repository"
	"production_backend/internal/designjobs/transport"
	"production_backend/internal/events"
	"production_backend/internal/workflow"
	"production_backend/platform/apperr"
	"production_backend/platform/sanitize"

	"github.com/google/uuid"
)

// SubmitForReview moves the job to pending_approval referencing uploaded
// asset versions. Only the assignee or an admin may submit.
func (s *Service) SubmitForReview(ctx context.Context, actor access.Actor, id uuid.UUID, req transport.SubmitForReviewRequest) (transport.DesignJobResponse, error) {
	job, err := s.load(ctx, actor, id, "designjobs.SubmitForReview")
	if err != nil {
		return transport.DesignJobResponse{}, err
	}
	if !actor.IsAdmin() && !isAssignee(job, actor) {
		return transport.DesignJobResponse{}, apperr.Forbidden("only the assigned designer or an admin can submit this job")
	}
	from := workflow.Status(job.Status)
	if _, err := s.validator.CheckKind(entity, from, statusReview, workflow.KindSubmission); err != nil {
		s.log.WithContext(ctx).TransitionRejected(string(entity), id.String(), job.Status, string(statusReview))
		return transport.DesignJobResponse{}, err
	}

	versions, err := s.checkVersions(ctx, job, req.AssetVersions)
	if err != nil {
		return transport.DesignJobResponse{}, err
	}

	notes := sanitize.Text(req.Notes)
	updated, err := s.transition(ctx, repository.TransitionParams{
		TenantID: actor.TenantID,
		ID:       id,
		From:     job.Status,
		To:       string(statusReview),
		ActorID:  actor.UserID,
		Events: []auditlog.Payload{
			auditlog.Submitted{AssetVersions: versions, Notes: notes},
			auditlog.StatusChanged{From: job.Status, To: string(statusReview), Notes: notes},
		},
	})
	if err != nil {
		return transport.DesignJobResponse{}, err
	}

	s.bus.Publish(ctx, events.DesignJobSubmitted{
		BaseEvent:     events.NewBaseEvent(),
		JobID:         updated.ID,
		TenantID:      updated.TenantID,
		ActorID:       actor.UserID,
		Title:         updated.Title,
		AssetVersions: versions,
	})
	s.publishStatusChanged(ctx, *updated, job.Status, actor.UserID, notes)
	return toResponse(*updated), nil
}

func (s *Service) checkVersions(ctx context.Context, job *repository.DesignJob, requested []int) ([]int, error) {
	assets, err := s.repo.ListAssets(ctx, job.TenantID, job.ID)
	if err != nil {
		return nil, err
	}
	have := make(map[int]bool, len(assets))
	for _, a := range assets {
		have[a.Version] = true
	}

	seen := make(map[int]bool, len(requested))
	out := make([]int, 0, len(requested))
	for _, v := range requested {
		if !have[v] {
			return nil, apperr.Validation(fmt.Sprintf("asset version %d does not exist", v))
		}
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Ints(out)
	return out, nil
}

// Review approves a submitted design or sends it back for revision. Feedback
// is required when requesting a revision.
func (s *Service) Review(ctx context.Context, actor access.Actor, id uuid.UUID, req transport.ReviewRequest) (transport.DesignJobResponse, error) {
	if err := access.RequireAdmin(actor, "designjobs.Review"); err != nil {
		return transport.DesignJobResponse{}, err
	}
	job, err := s.load(ctx, actor, id, "designjobs.Review")
	if err != nil {
		return transport.DesignJobResponse{}, err
	}
	feedback := sanitize.Text(req.Feedback)
	if req.Decision == "revision_required" && feedback == "" {
		return transport.DesignJobResponse{}, apperr.Validation("feedback is required when requesting a revision")
	}

	to := workflow.Status(req.Decision)
	if _, err := s.validator.CheckKind(entity, workflow.Status(job.Status), to, workflow.KindReview); err != nil {
		s.log.WithContext(ctx).TransitionRejected(string(entity), id.String(), job.Status, req.Decision)
		return transport.DesignJobResponse{}, err
	}

	updated, err := s.transition(ctx, repository.TransitionParams{
		TenantID: actor.TenantID,
		ID:       id,
		From:     job.Status,
		To:       req.Decision,
		ActorID:  actor.UserID,
		Events: []auditlog.Payload{
			auditlog.Reviewed{Decision: req.Decision, Feedback: feedback},
			auditlog.StatusChanged{From: job.Status, To: req.Decision},
		},
	})
	if err != nil {
		return transport.DesignJobResponse{}, err
	}

	s.bus.Publish(ctx, events.DesignJobReviewed{
		BaseEvent:  events.NewBaseEvent(),
		JobID:      updated.ID,
		TenantID:   updated.TenantID,
		ActorID:    actor.UserID,
		Title:      updated.Title,
		Decision:   req.Decision,
		Feedback:   feedback,
		AssigneeID: updated.AssigneeID,
	})
	s.publishStatusChanged(ctx, *updated, job.Status, actor.UserID, feedback)
	return toResponse(*updated), nil
}

// AddComment appends a comment to the job's log.
func (s *Service) AddComment(ctx context.Context, actor access.Actor, id uuid.UUID, req transport.CommentRequest) error {
	job, err := s.load(ctx, actor, id, "designjobs.AddComment")
	if err != nil {
		return err
	}
	body := sanitize.Text(req.Body)
	if body == "" {
		return apperr.Validation("comment body is empty")
	}
	if err := s.repo.AppendEvent(ctx, job.TenantID, job.ID, actor.UserID, auditlog.Comment{Body: body}); err != nil {
		return err
	}

	s.bus.Publish(ctx, events.DesignJobCommented{
		BaseEvent:  events.NewBaseEvent(),
		JobID:      job.ID,
		TenantID:   job.TenantID,
		ActorID:    actor.UserID,
		Title:      job.Title,
		AssigneeID: job.AssigneeID,
		Body:       body,
	})
	return nil
}

// ListEvents returns the job's audit log oldest first.
func (s *Service) ListEvents(ctx context.Context, actor access.Actor, id uuid.UUID) ([]transport.EventResponse, error) {
	job, err := s.load(ctx, actor, id, "designjobs.ListEvents")
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.ListEvents(ctx, job.TenantID, job.ID)
	if err != nil {
		return nil, err
	}
	out := make([]transport.EventResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, transport.EventResponse{
			ID:        e.ID,
			Kind:      string(e.Kind),
			ActorID:   e.ActorID,
			Payload:   e.Payload,
			CreatedAt: e.CreatedAt,
		})
	}
	return out, nil
}
