// Package assignment picks workers for design jobs and work orders.
//
// The engine is generic over the kind of work: design jobs are matched to
// designers, work orders to manufacturers. Storage and the actual state
// change are provided by a Source owned by the lifecycle service.
package assignment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"production_backend/internal/workflow"
	"production_backend/platform/apperr"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// SkipReason explains why a job was not assigned.
type SkipReason string

const (
	ReasonNotFound             SkipReason = "not_found"
	ReasonInvalidTransition    SkipReason = "invalid_transition"
	ReasonNoEligibleWorker     SkipReason = "no_eligible_worker"
	ReasonWorkerInactive       SkipReason = "worker_inactive"
	ReasonSpecialtyMismatch    SkipReason = "specialty_mismatch"
	ReasonCapacityExceeded     SkipReason = "capacity_exceeded"
	ReasonBelowMinimumQuantity SkipReason = "below_minimum_quantity"
	ReasonConflict             SkipReason = "conflict"
)

// Job is a unit of work awaiting assignment.
type Job struct {
	ID                  uuid.UUID
	TenantID            uuid.UUID
	Status              workflow.Status
	RequiredSpecialties []string
	Quantity            int
}

// Worker is a designer or manufacturer. Capacity 0 means no limit.
type Worker struct {
	ID               uuid.UUID
	Active           bool
	Specialties      []string
	Capacity         int
	MinOrderQuantity int
	OpenJobs         int
}

// Options control eligibility checks.
type Options struct {
	UseWorkloadBalancing bool
	UseSkillMatching     bool
	CheckCapacity        bool
	CheckMinimumQuantity bool
	SkipCapacityCheck    bool
	SkipSkillCheck       bool
	// WorkerID restricts candidates to a single worker.
	WorkerID *uuid.UUID
	Notes    string
}

// Source loads candidates and commits an assignment through the lifecycle
// service. Commit must re-validate the transition under a status-guarded
// update and may return a *SkipError for commit-time rejections.
type Source interface {
	LoadJobs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]Job, error)
	ListWorkers(ctx context.Context, tenantID uuid.UUID) ([]Worker, error)
	Commit(ctx context.Context, tenantID uuid.UUID, job Job, worker Worker, opts Options) error
}

// SkipError is a commit-time rejection with a reportable reason.
type SkipError struct {
	Reason  SkipReason
	Message string
}

func (e *SkipError) Error() string { return string(e.Reason) + ": " + e.Message }

// Assignment is one committed pairing.
type Assignment struct {
	JobID    uuid.UUID `json:"jobId"`
	WorkerID uuid.UUID `json:"workerId"`
}

// Skipped is a job left unassigned.
type Skipped struct {
	ID     uuid.UUID  `json:"id"`
	Reason SkipReason `json:"reason"`
}

// Result of a bulk run.
type Result struct {
	Assigned []Assignment `json:"assigned"`
	Skipped  []Skipped    `json:"skipped"`
}

// Engine assigns one entity type.
type Engine struct {
	validator *workflow.Validator
	entity    workflow.EntityType
	target    workflow.Status
	source    Source
}

// New creates an engine that moves entity jobs to target via an assignment edge.
func New(validator *workflow.Validator, entity workflow.EntityType, target workflow.Status, source Source) *Engine {
	return &Engine{validator: validator, entity: entity, target: target, source: source}
}

// AssignOne assigns jobID to workerID. Eligibility failures are reported as
// Conflict errors carrying the skip reason in their details.
func (e *Engine) AssignOne(ctx context.Context, tenantID, jobID, workerID uuid.UUID, opts Options) (Assignment, error) {
	jobs, err := e.source.LoadJobs(ctx, tenantID, []uuid.UUID{jobID})
	if err != nil {
		return Assignment{}, err
	}
	job, ok := jobs[jobID]
	if !ok {
		return Assignment{}, apperr.NotFound(fmt.Sprintf("%s not found", e.entity))
	}
	if _, err := e.validator.CheckKind(e.entity, job.Status, e.target, workflow.KindAssignment); err != nil {
		return Assignment{}, err
	}

	workers, err := e.source.ListWorkers(ctx, tenantID)
	if err != nil {
		return Assignment{}, err
	}
	var worker *Worker
	for i := range workers {
		if workers[i].ID == workerID {
			worker = &workers[i]
			break
		}
	}
	if worker == nil {
		return Assignment{}, apperr.NotFound("worker not found")
	}

	if reason, ok := eligible(*worker, job, opts, worker.OpenJobs); !ok {
		return Assignment{}, conflictFor(reason)
	}
	if err := e.source.Commit(ctx, tenantID, job, *worker, opts); err != nil {
		var skip *SkipError
		if errors.As(err, &skip) {
			return Assignment{}, conflictFor(skip.Reason)
		}
		return Assignment{}, err
	}
	return Assignment{JobID: job.ID, WorkerID: worker.ID}, nil
}

// AssignBulk assigns each job to the least-loaded eligible worker. Jobs are
// partitioned by their required specialty set and processed partition by
// partition in a deterministic order. Load counters are seeded once and only
// advance on a successful commit.
func (e *Engine) AssignBulk(ctx context.Context, tenantID uuid.UUID, jobIDs []uuid.UUID, opts Options) (Result, error) {
	res := Result{Assigned: []Assignment{}, Skipped: []Skipped{}}
	ids := dedupe(jobIDs)
	if len(ids) == 0 {
		return res, nil
	}

	var (
		jobs    map[uuid.UUID]Job
		workers []Worker
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		jobs, err = e.source.LoadJobs(gctx, tenantID, ids)
		return err
	})
	g.Go(func() error {
		var err error
		workers, err = e.source.ListWorkers(gctx, tenantID)
		return err
	})
	if err := g.Wait(); err != nil {
		return res, err
	}

	if opts.WorkerID != nil {
		workers = restrict(workers, *opts.WorkerID)
	}
	sort.Slice(workers, func(i, j int) bool { return lessID(workers[i].ID, workers[j].ID) })

	partitions := make(map[string][]Job)
	for _, id := range ids {
		job, ok := jobs[id]
		if !ok {
			res.Skipped = append(res.Skipped, Skipped{ID: id, Reason: ReasonNotFound})
			continue
		}
		if !e.validator.IsLegal(e.entity, job.Status, e.target) {
			res.Skipped = append(res.Skipped, Skipped{ID: id, Reason: ReasonInvalidTransition})
			continue
		}
		key := specialtyKey(job.RequiredSpecialties)
		partitions[key] = append(partitions[key], job)
	}

	keys := make([]string, 0, len(partitions))
	for k := range partitions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	load := newLoad(workers)
	for _, key := range keys {
		for _, job := range partitions[key] {
			worker, reason := pick(workers, job, opts, load)
			if worker == nil {
				res.Skipped = append(res.Skipped, Skipped{ID: job.ID, Reason: reason})
				continue
			}

			err := e.source.Commit(ctx, tenantID, job, *worker, opts)
			if err != nil {
				reason, ok := skipReason(err)
				if !ok {
					return res, err
				}
				if reason == ReasonCapacityExceeded {
					load.saturated[worker.ID] = true
				}
				res.Skipped = append(res.Skipped, Skipped{ID: job.ID, Reason: reason})
				continue
			}

			load.open[worker.ID]++
			load.batch[worker.ID]++
			res.Assigned = append(res.Assigned, Assignment{JobID: job.ID, WorkerID: worker.ID})
		}
	}
	return res, nil
}

type loadCounters struct {
	open      map[uuid.UUID]int
	batch     map[uuid.UUID]int
	saturated map[uuid.UUID]bool
}

func newLoad(workers []Worker) *loadCounters {
	l := &loadCounters{
		open:      make(map[uuid.UUID]int, len(workers)),
		batch:     make(map[uuid.UUID]int, len(workers)),
		saturated: make(map[uuid.UUID]bool),
	}
	for _, w := range workers {
		l.open[w.ID] = w.OpenJobs
	}
	return l
}

// pick returns the preferred eligible worker, or the reason none qualified.
// With balancing the order is (assigned in this batch, open jobs, id), which
// keeps per-batch counts within one of each other across equally eligible
// workers. Without it the order is (total open jobs, id). When every worker
// is rejected for the same reason that reason is reported.
func pick(workers []Worker, job Job, opts Options, load *loadCounters) (*Worker, SkipReason) {
	var (
		best     *Worker
		rejected SkipReason
		mixed    bool
	)
	reject := func(reason SkipReason) {
		if rejected == "" {
			rejected = reason
		} else if rejected != reason {
			mixed = true
		}
	}
	for i := range workers {
		w := &workers[i]
		if load.saturated[w.ID] && capacityChecked(opts) {
			reject(ReasonCapacityExceeded)
			continue
		}
		if reason, ok := eligible(*w, job, opts, load.open[w.ID]); !ok {
			reject(reason)
			continue
		}
		if best == nil || better(w, best, opts, load) {
			best = w
		}
	}
	if best != nil {
		return best, ""
	}
	if rejected == "" || mixed {
		return nil, ReasonNoEligibleWorker
	}
	return nil, rejected
}

func better(a, b *Worker, opts Options, load *loadCounters) bool {
	if opts.UseWorkloadBalancing {
		if load.batch[a.ID] != load.batch[b.ID] {
			return load.batch[a.ID] < load.batch[b.ID]
		}
	}
	if load.open[a.ID] != load.open[b.ID] {
		return load.open[a.ID] < load.open[b.ID]
	}
	return lessID(a.ID, b.ID)
}

// Eligible applies the same checks as AssignOne using the worker's stored
// open job count.
func Eligible(w Worker, job Job, opts Options) (SkipReason, bool) {
	return eligible(w, job, opts, w.OpenJobs)
}

func eligible(w Worker, job Job, opts Options, open int) (SkipReason, bool) {
	if !w.Active {
		return ReasonWorkerInactive, false
	}
	if opts.UseSkillMatching && !opts.SkipSkillCheck && !intersects(w.Specialties, job.RequiredSpecialties) {
		return ReasonSpecialtyMismatch, false
	}
	if capacityChecked(opts) && w.Capacity > 0 && open >= w.Capacity {
		return ReasonCapacityExceeded, false
	}
	if opts.CheckMinimumQuantity && w.MinOrderQuantity > 0 && job.Quantity < w.MinOrderQuantity {
		return ReasonBelowMinimumQuantity, false
	}
	return "", true
}

func capacityChecked(opts Options) bool {
	return opts.CheckCapacity && !opts.SkipCapacityCheck
}

// intersects reports whether the worker shares at least one required
// specialty. A job without requirements matches everyone.
func intersects(have, need []string) bool {
	if len(need) == 0 {
		return true
	}
	set := make(map[string]bool, len(have))
	for _, s := range have {
		set[strings.ToLower(strings.TrimSpace(s))] = true
	}
	for _, s := range need {
		if set[strings.ToLower(strings.TrimSpace(s))] {
			return true
		}
	}
	return false
}

func skipReason(err error) (SkipReason, bool) {
	var skip *SkipError
	if errors.As(err, &skip) {
		return skip.Reason, true
	}
	switch apperr.GetKind(err) {
	case apperr.KindInvalidTransition:
		return ReasonInvalidTransition, true
	case apperr.KindNotFound:
		return ReasonNotFound, true
	case apperr.KindConflict:
		return ReasonConflict, true
	}
	return "", false
}

func conflictFor(reason SkipReason) *apperr.Error {
	return apperr.Conflict(fmt.Sprintf("assignment rejected: %s", reason)).
		WithDetails(map[string]interface{}{"reason": reason})
}

// specialtyKey normalizes a specialty set into a partition key.
func specialtyKey(specialties []string) string {
	norm := make([]string, 0, len(specialties))
	for _, s := range specialties {
		norm = append(norm, strings.ToLower(strings.TrimSpace(s)))
	}
	sort.Strings(norm)
	return strings.Join(norm, ",")
}

func restrict(workers []Worker, id uuid.UUID) []Worker {
	for _, w := range workers {
		if w.ID == id {
			return []Worker{w}
		}
	}
	return nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func lessID(a, b uuid.UUID) bool {
	return strings.Compare(a.String(), b.String()) < 0
}
