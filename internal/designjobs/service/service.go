package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"production_backend/internal/access"
	"production_backend/internal/auditlog"
	"production_backend/internal/designjobs/repository"
	"production_backend/internal/designjobs/transport"
	"production_backend/internal/events"
	"production_backend/internal/workflow"
	"production_backend/platform/apperr"
	"production_backend/platform/logger"
	"production_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	defaultPriority = "normal"

	statusPending  workflow.Status = "pending_design"
	statusAssigned workflow.Status = "assigned"
	statusReview   workflow.Status = "pending_approval"
)

const entity = workflow.EntityDesignJob

// Store is the persistence the design job service needs.
type Store interface {
	CreateJobs(ctx context.Context, jobs []repository.DesignJob) error
	GetJob(ctx context.Context, id uuid.UUID) (*repository.DesignJob, error)
	GetJobs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]repository.DesignJob, error)
	ListJobs(ctx context.Context, p repository.ListParams) ([]repository.DesignJob, int, error)
	Transition(ctx context.Context, p repository.TransitionParams) (*repository.DesignJob, error)
	AppendEvent(ctx context.Context, tenantID, jobID, actorID uuid.UUID, p auditlog.Payload) error
	ListEvents(ctx context.Context, tenantID, jobID uuid.UUID) ([]auditlog.Entry, error)
	CreateAsset(ctx context.Context, a repository.Asset) (*repository.Asset, error)
	ListAssets(ctx context.Context, tenantID, jobID uuid.UUID) ([]repository.Asset, error)
}

// OrderItem is the part of an order item a design job is created from.
type OrderItem struct {
	ID                  uuid.UUID
	OrderID             uuid.UUID
	TenantID            uuid.UUID
	ProductRef          string
	Description         string
	Quantity            int
	RequiredSpecialties []string
}

// OrderItemReader resolves order items within a tenant.
type OrderItemReader interface {
	ItemsByID(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]OrderItem, error)
}

// Designer is an assignable designer with its current open job count.
type Designer struct {
	UserID      uuid.UUID
	Specialties []string
	Capacity    int
	Active      bool
	OpenJobs    int
}

// DesignerDirectory lists the tenant's designers.
type DesignerDirectory interface {
	Designers(ctx context.Context, tenantID uuid.UUID) ([]Designer, error)
}

// Service provides business logic for design jobs
type Service struct {
	repo      Store
	items     OrderItemReader
	designers DesignerDirectory
	assets    AssetStorage
	validator *workflow.Validator
	bus       events.Bus
	log       *logger.Logger
}

// New creates a new design job service
func New(repo Store, items OrderItemReader, designers DesignerDirectory, validator *workflow.Validator, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		items:     items,
		designers: designers,
		validator: validator,
		bus:       bus,
		log:       log,
	}
}

// SetAssetStorage enables asset uploads.
func (s *Service) SetAssetStorage(storage AssetStorage) {
	s.assets = storage
}

// Create opens a design job for one order item.
func (s *Service) Create(ctx context.Context, actor access.Actor, req transport.CreateDesignJobRequest) (transport.DesignJobResponse, error) {
	if err := access.RequireAdmin(actor, "designjobs.Create"); err != nil {
		return transport.DesignJobResponse{}, err
	}
	items, err := s.items.ItemsByID(ctx, actor.TenantID, []uuid.UUID{req.OrderItemID})
	if err != nil {
		return transport.DesignJobResponse{}, err
	}

	job := s.newJob(actor, items[req.OrderItemID], req.Title, req.Brief, req.Priority, req.DueDate)
	if err := s.repo.CreateJobs(ctx, []repository.DesignJob{job}); err != nil {
		return transport.DesignJobResponse{}, err
	}
	s.publishCreated(ctx, job)
	return toResponse(job), nil
}

// BulkCreate opens one design job per order item. Every item must belong to
// the caller's tenant and either all jobs are created or none.
func (s *Service) BulkCreate(ctx context.Context, actor access.Actor, req transport.BulkCreateRequest) (transport.BulkCreateResponse, error) {
	if err := access.RequireAdmin(actor, "designjobs.BulkCreate"); err != nil {
		return transport.BulkCreateResponse{}, err
	}
	ids := dedupe(req.OrderItemIDs)
	items, err := s.items.ItemsByID(ctx, actor.TenantID, ids)
	if err != nil {
		return transport.BulkCreateResponse{}, err
	}

	jobs := make([]repository.DesignJob, 0, len(ids))
	for _, id := range ids {
		jobs = append(jobs, s.newJob(actor, items[id], "", "", req.Priority, req.DueDate))
	}
	if err := s.repo.CreateJobs(ctx, jobs); err != nil {
		return transport.BulkCreateResponse{}, err
	}

	resp := transport.BulkCreateResponse{Created: make([]transport.DesignJobResponse, 0, len(jobs)), Count: len(jobs)}
	for _, j := range jobs {
		s.publishCreated(ctx, j)
		resp.Created = append(resp.Created, toResponse(j))
	}
	return resp, nil
}

func (s *Service) newJob(actor access.Actor, item OrderItem, title, brief, priority string, due *time.Time) repository.DesignJob {
	title = strings.TrimSpace(title)
	if title == "" {
		title = item.ProductRef
	}
	brief = sanitize.Text(brief)
	if brief == "" {
		brief = item.Description
	}
	if priority == "" {
		priority = defaultPriority
	}
	now := time.Now().UTC()
	return repository.DesignJob{
		ID:                  uuid.New(),
		TenantID:            actor.TenantID,
		OrderItemID:         item.ID,
		OrderID:             item.OrderID,
		Title:               title,
		Brief:               brief,
		Priority:            priority,
		RequiredSpecialties: item.RequiredSpecialties,
		Quantity:            item.Quantity,
		Status:              string(statusPending),
		DueDate:             due,
		CreatedBy:           actor.UserID,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

// Get returns a design job in the caller's tenant.
func (s *Service) Get(ctx context.Context, actor access.Actor, id uuid.UUID) (transport.DesignJobResponse, error) {
	job, err := s.load(ctx, actor, id, "designjobs.Get")
	if err != nil {
		return transport.DesignJobResponse{}, err
	}
	return toResponse(*job), nil
}

// List returns a page of the tenant's design jobs. Designers only see their own.
func (s *Service) List(ctx context.Context, actor access.Actor, req transport.ListDesignJobsRequest) (transport.DesignJobListResponse, error) {
	page, pageSize := req.Page, req.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	assignee := req.AssigneeID
	if !actor.IsAdmin() && actor.HasRole(access.RoleDesigner) {
		self := actor.UserID
		assignee = &self
	}

	jobs, total, err := s.repo.ListJobs(ctx, repository.ListParams{
		TenantID:   actor.TenantID,
		Status:     req.Status,
		AssigneeID: assignee,
		OrderID:    req.OrderID,
		Limit:      pageSize,
		Offset:     (page - 1) * pageSize,
	})
	if err != nil {
		return transport.DesignJobListResponse{}, err
	}
	items := make([]transport.DesignJobResponse, 0, len(jobs))
	for _, j := range jobs {
		items = append(items, toResponse(j))
	}
	return transport.DesignJobListResponse{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

// ListLegalNext returns the statuses the job can move to next.
func (s *Service) ListLegalNext(ctx context.Context, actor access.Actor, id uuid.UUID) (transport.LegalNextResponse, error) {
	job, err := s.load(ctx, actor, id, "designjobs.ListLegalNext")
	if err != nil {
		return transport.LegalNextResponse{}, err
	}
	next := s.validator.ListLegalNext(entity, workflow.Status(job.Status))
	out := make([]string, 0, len(next))
	for _, st := range next {
		out = append(out, string(st))
	}
	return transport.LegalNextResponse{Current: job.Status, LegalNext: out}, nil
}

// UpdateStatus applies a standard or cancellation edge. Assignment, submission
// and review edges have dedicated operations.
func (s *Service) UpdateStatus(ctx context.Context, actor access.Actor, id uuid.UUID, req transport.UpdateStatusRequest) (transport.DesignJobResponse, error) {
	job, err := s.load(ctx, actor, id, "designjobs.UpdateStatus")
	if err != nil {
		return transport.DesignJobResponse{}, err
	}
	from, to := workflow.Status(job.Status), workflow.Status(req.StatusCode)

	tr, err := s.validator.Check(entity, from, to)
	if err != nil {
		s.log.WithContext(ctx).TransitionRejected(string(entity), id.String(), string(from), string(to))
		return transport.DesignJobResponse{}, err
	}
	switch tr.Kind {
	case workflow.KindStandard:
		if !actor.IsAdmin() && !isAssignee(job, actor) {
			return transport.DesignJobResponse{}, apperr.Forbidden("only the assigned designer or an admin can change this job")
		}
	case workflow.KindCancellation:
		if err := access.RequireAdmin(actor, "designjobs.Cancel"); err != nil {
			return transport.DesignJobResponse{}, err
		}
	default:
		return transport.DesignJobResponse{}, apperr.InvalidTransition(fmt.Sprintf("%s edges require the dedicated operation", tr.Kind)).
			WithDetails(map[string]interface{}{"from": from, "to": to, "kind": tr.Kind})
	}

	notes := sanitize.Text(req.Notes)
	evs := []auditlog.Payload{auditlog.StatusChanged{From: job.Status, To: req.StatusCode, Notes: notes}}
	if tr.Kind == workflow.KindCancellation {
		evs = append(evs, auditlog.Cancelled{From: job.Status, Reason: notes})
	}
	updated, err := s.transition(ctx, repository.TransitionParams{
		TenantID: actor.TenantID,
		ID:       id,
		From:     job.Status,
		To:       req.StatusCode,
		ActorID:  actor.UserID,
		Events:   evs,
	})
	if err != nil {
		return transport.DesignJobResponse{}, err
	}
	s.publishStatusChanged(ctx, *updated, job.Status, actor.UserID, notes)
	return toResponse(*updated), nil
}

// load fetches a job and enforces tenant scope.
func (s *Service) load(ctx context.Context, actor access.Actor, id uuid.UUID, op string) (*repository.DesignJob, error) {
	job, err := s.repo.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.EnsureTenant(job.TenantID, actor, op); err != nil {
		return nil, err
	}
	return job, nil
}

// transition commits a status-guarded change. When the guard misses, the job
// is re-read to report what it moved to.
func (s *Service) transition(ctx context.Context, p repository.TransitionParams) (*repository.DesignJob, error) {
	job, err := s.repo.Transition(ctx, p)
	if err == nil {
		return job, nil
	}
	if !errors.Is(err, repository.ErrStale) {
		return nil, err
	}

	current, gerr := s.repo.GetJob(ctx, p.ID)
	if gerr != nil {
		return nil, gerr
	}
	if current.TenantID != p.TenantID {
		return nil, apperr.NotFound("design job not found")
	}
	s.log.WithContext(ctx).TransitionRejected(string(entity), p.ID.String(), current.Status, p.To)
	from := workflow.Status(current.Status)
	return nil, workflow.NewInvalidTransition(entity, from, workflow.Status(p.To), s.validator.ListLegalNext(entity, from))
}

func (s *Service) publishCreated(ctx context.Context, j repository.DesignJob) {
	s.bus.Publish(ctx, events.DesignJobCreated{
		BaseEvent:   events.NewBaseEvent(),
		JobID:       j.ID,
		TenantID:    j.TenantID,
		OrderID:     j.OrderID,
		OrderItemID: j.OrderItemID,
		ActorID:     j.CreatedBy,
		Title:       j.Title,
	})
}

func (s *Service) publishStatusChanged(ctx context.Context, j repository.DesignJob, from string, actorID uuid.UUID, notes string) {
	s.bus.Publish(ctx, events.DesignJobStatusChanged{
		BaseEvent:   events.NewBaseEvent(),
		JobID:       j.ID,
		TenantID:    j.TenantID,
		OrderID:     j.OrderID,
		OrderItemID: j.OrderItemID,
		ActorID:     actorID,
		From:        from,
		To:          j.Status,
		Notes:       notes,
	})
}

func isAssignee(j *repository.DesignJob, actor access.Actor) bool {
	return j.AssigneeID != nil && *j.AssigneeID == actor.UserID
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

func toResponse(j repository.DesignJob) transport.DesignJobResponse {
	return transport.DesignJobResponse{
		ID:                  j.ID,
		OrderID:             j.OrderID,
		OrderItemID:         j.OrderItemID,
		Title:               j.Title,
		Brief:               j.Brief,
		Priority:            j.Priority,
		RequiredSpecialties: j.RequiredSpecialties,
		Quantity:            j.Quantity,
		AssigneeID:          j.AssigneeID,
		Status:              j.Status,
		DueDate:             j.DueDate,
		CreatedBy:           j.CreatedBy,
		CreatedAt:           j.CreatedAt,
		UpdatedAt:           j.UpdatedAt,
	}
}

// JobsByID returns the tenant's jobs among ids for other modules. Missing ids
// are omitted.
func (s *Service) JobsByID(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]repository.DesignJob, error) {
	return s.repo.GetJobs(ctx, tenantID, ids)
}
