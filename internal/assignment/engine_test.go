package assignment

import (
	"context"
	"sync"
	"testing"

	"production_backend/internal/workflow"
	"production_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu        sync.Mutex
	jobs      map[uuid.UUID]Job
	workers   []Worker
	commitErr map[uuid.UUID]error
	commits   []Assignment
}

func (f *fakeSource) LoadJobs(_ context.Context, _ uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]Job, error) {
	out := make(map[uuid.UUID]Job)
	for _, id := range ids {
		if j, ok := f.jobs[id]; ok {
			out[id] = j
		}
	}
	return out, nil
}

func (f *fakeSource) ListWorkers(context.Context, uuid.UUID) ([]Worker, error) {
	out := make([]Worker, len(f.workers))
	copy(out, f.workers)
	return out, nil
}

func (f *fakeSource) Commit(_ context.Context, _ uuid.UUID, job Job, worker Worker, _ Options) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.commitErr[job.ID]; err != nil {
		return err
	}
	f.commits = append(f.commits, Assignment{JobID: job.ID, WorkerID: worker.ID})
	return nil
}

func pendingJobs(n int, specialties ...string) map[uuid.UUID]Job {
	jobs := make(map[uuid.UUID]Job, n)
	for i := 0; i < n; i++ {
		id := uuid.New()
		jobs[id] = Job{ID: id, Status: "pending_design", RequiredSpecialties: specialties, Quantity: 10}
	}
	return jobs
}

func keys(m map[uuid.UUID]Job) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	return out
}

func newEngine(src Source) *Engine {
	return New(workflow.Default(), workflow.EntityDesignJob, "assigned", src)
}

func TestAssignBulkBalancesAcrossWorkers(t *testing.T) {
	workers := []Worker{
		{ID: uuid.New(), Active: true, OpenJobs: 5},
		{ID: uuid.New(), Active: true, OpenJobs: 0},
		{ID: uuid.New(), Active: true, OpenJobs: 2},
	}
	src := &fakeSource{jobs: pendingJobs(10), workers: workers}

	res, err := newEngine(src).AssignBulk(context.Background(), uuid.New(), keys(src.jobs), Options{UseWorkloadBalancing: true})
	require.NoError(t, err)
	require.Len(t, res.Assigned, 10)
	assert.Empty(t, res.Skipped)

	counts := map[uuid.UUID]int{}
	for _, a := range res.Assigned {
		counts[a.WorkerID]++
	}
	lo, hi := 10, 0
	for _, w := range workers {
		if counts[w.ID] < lo {
			lo = counts[w.ID]
		}
		if counts[w.ID] > hi {
			hi = counts[w.ID]
		}
	}
	assert.LessOrEqual(t, hi-lo, 1, "batch counts %v", counts)
}

func TestAssignBulkWithoutBalancingFillsLeastLoaded(t *testing.T) {
	light := Worker{ID: uuid.New(), Active: true, OpenJobs: 0}
	heavy := Worker{ID: uuid.New(), Active: true, OpenJobs: 10}
	src := &fakeSource{jobs: pendingJobs(3), workers: []Worker{heavy, light}}

	res, err := newEngine(src).AssignBulk(context.Background(), uuid.New(), keys(src.jobs), Options{})
	require.NoError(t, err)
	for _, a := range res.Assigned {
		assert.Equal(t, light.ID, a.WorkerID)
	}
}

func TestAssignBulkRespectsCapacityAndSkills(t *testing.T) {
	screen := Worker{ID: uuid.New(), Active: true, Specialties: []string{"Screen-Print"}, Capacity: 2, OpenJobs: 1}
	embroidery := Worker{ID: uuid.New(), Active: true, Specialties: []string{"embroidery"}}
	src := &fakeSource{jobs: pendingJobs(3, "screen-print"), workers: []Worker{screen, embroidery}}

	res, err := newEngine(src).AssignBulk(context.Background(), uuid.New(), keys(src.jobs), Options{
		UseSkillMatching: true,
		CheckCapacity:    true,
	})
	require.NoError(t, err)
	require.Len(t, res.Assigned, 1)
	assert.Equal(t, screen.ID, res.Assigned[0].WorkerID)
	require.Len(t, res.Skipped, 2)
	for _, s := range res.Skipped {
		assert.Equal(t, ReasonNoEligibleWorker, s.Reason)
	}
}

func TestAssignBulkReportsSkipReasons(t *testing.T) {
	jobs := pendingJobs(1)
	approved := Job{ID: uuid.New(), Status: "approved"}
	jobs[approved.ID] = approved
	conflicted := Job{ID: uuid.New(), Status: "pending_design"}
	jobs[conflicted.ID] = conflicted
	missing := uuid.New()

	worker := Worker{ID: uuid.New(), Active: true}
	src := &fakeSource{
		jobs:      jobs,
		workers:   []Worker{worker},
		commitErr: map[uuid.UUID]error{conflicted.ID: apperr.InvalidTransition("moved")},
	}

	ids := append(keys(jobs), missing)
	res, err := newEngine(src).AssignBulk(context.Background(), uuid.New(), ids, Options{})
	require.NoError(t, err)
	assert.Len(t, res.Assigned, 1)

	reasons := map[uuid.UUID]SkipReason{}
	for _, s := range res.Skipped {
		reasons[s.ID] = s.Reason
	}
	assert.Equal(t, ReasonNotFound, reasons[missing])
	assert.Equal(t, ReasonInvalidTransition, reasons[approved.ID])
	assert.Equal(t, ReasonInvalidTransition, reasons[conflicted.ID])
}

func TestAssignBulkRestrictedWorkerReportsSpecificReason(t *testing.T) {
	inactive := Worker{ID: uuid.New(), Active: false}
	src := &fakeSource{jobs: pendingJobs(1), workers: []Worker{inactive, {ID: uuid.New(), Active: true}}}

	res, err := newEngine(src).AssignBulk(context.Background(), uuid.New(), keys(src.jobs), Options{WorkerID: &inactive.ID})
	require.NoError(t, err)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, ReasonWorkerInactive, res.Skipped[0].Reason)
}

func TestAssignBulkCommitCapacityRejectionSaturatesWorker(t *testing.T) {
	jobs := pendingJobs(2)
	ids := keys(jobs)
	full := Worker{ID: uuid.New(), Active: true}
	src := &fakeSource{
		jobs:    jobs,
		workers: []Worker{full},
		commitErr: map[uuid.UUID]error{
			ids[0]: &SkipError{Reason: ReasonCapacityExceeded, Message: "full"},
			ids[1]: &SkipError{Reason: ReasonCapacityExceeded, Message: "full"},
		},
	}

	res, err := newEngine(src).AssignBulk(context.Background(), uuid.New(), ids, Options{CheckCapacity: true})
	require.NoError(t, err)
	assert.Empty(t, res.Assigned)
	require.Len(t, res.Skipped, 2)
	for _, s := range res.Skipped {
		assert.Equal(t, ReasonCapacityExceeded, s.Reason)
	}
}

func TestAssignOneMinimumQuantityOverride(t *testing.T) {
	job := Job{ID: uuid.New(), Status: "pending", Quantity: 20}
	maker := Worker{ID: uuid.New(), Active: true, MinOrderQuantity: 50}
	src := &fakeSource{jobs: map[uuid.UUID]Job{job.ID: job}, workers: []Worker{maker}}
	engine := New(workflow.Default(), workflow.EntityWorkOrder, "assigned", src)

	_, err := engine.AssignOne(context.Background(), uuid.New(), job.ID, maker.ID, Options{CheckMinimumQuantity: true})
	require.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = engine.AssignOne(context.Background(), uuid.New(), job.ID, maker.ID, Options{})
	require.NoError(t, err)
	assert.Len(t, src.commits, 1)
}

func TestAssignOneSkipChecksOverride(t *testing.T) {
	job := Job{ID: uuid.New(), Status: "pending_design", RequiredSpecialties: []string{"sublimation"}}
	designer := Worker{ID: uuid.New(), Active: true, Capacity: 1, OpenJobs: 1}
	src := &fakeSource{jobs: map[uuid.UUID]Job{job.ID: job}, workers: []Worker{designer}}
	engine := newEngine(src)

	strict := Options{UseSkillMatching: true, CheckCapacity: true}
	_, err := engine.AssignOne(context.Background(), uuid.New(), job.ID, designer.ID, strict)
	require.True(t, apperr.Is(err, apperr.KindConflict))

	strict.SkipSkillCheck = true
	strict.SkipCapacityCheck = true
	_, err = engine.AssignOne(context.Background(), uuid.New(), job.ID, designer.ID, strict)
	require.NoError(t, err)
}

func TestAssignOneRejectsIllegalTransition(t *testing.T) {
	job := Job{ID: uuid.New(), Status: "approved"}
	src := &fakeSource{jobs: map[uuid.UUID]Job{job.ID: job}, workers: []Worker{{ID: uuid.New(), Active: true}}}

	_, err := newEngine(src).AssignOne(context.Background(), uuid.New(), job.ID, src.workers[0].ID, Options{})
	assert.True(t, apperr.Is(err, apperr.KindInvalidTransition))
}

func TestSpecialtyKeyIsOrderInsensitive(t *testing.T) {
	assert.Equal(t, specialtyKey([]string{"B", "a"}), specialtyKey([]string{"a", " b"}))
}

func TestSkillMatchingNeedsOneSharedSpecialty(t *testing.T) {
	job := Job{ID: uuid.New(), Status: "pending_design", RequiredSpecialties: []string{"embroidery", "screen_print"}}
	opts := Options{UseSkillMatching: true}

	tests := []struct {
		name        string
		specialties []string
		want        bool
	}{
		{"one of two shared", []string{"embroidery"}, true},
		{"case and spacing ignored", []string{" Screen_Print "}, true},
		{"disjoint", []string{"dtg", "vinyl"}, false},
		{"no specialties", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, ok := Eligible(Worker{ID: uuid.New(), Active: true, Specialties: tt.specialties}, job, opts)
			assert.Equal(t, tt.want, ok)
			if !tt.want {
				assert.Equal(t, ReasonSpecialtyMismatch, reason)
			}
		})
	}

	open := Job{ID: uuid.New(), Status: "pending_design"}
	_, ok := Eligible(Worker{ID: uuid.New(), Active: true}, open, opts)
	assert.True(t, ok, "a job without requirements matches any worker")
}

func TestAssignBulkReportsSharedRejectionReason(t *testing.T) {
	dtg := Worker{ID: uuid.New(), Active: true, Specialties: []string{"dtg"}}
	vinyl := Worker{ID: uuid.New(), Active: true, Specialties: []string{"vinyl"}}
	src := &fakeSource{jobs: pendingJobs(1, "embroidery"), workers: []Worker{dtg, vinyl}}

	res, err := newEngine(src).AssignBulk(context.Background(), uuid.New(), keys(src.jobs), Options{UseSkillMatching: true})
	require.NoError(t, err)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, ReasonSpecialtyMismatch, res.Skipped[0].Reason)

	inactive := Worker{ID: uuid.New(), Active: false, Specialties: []string{"embroidery"}}
	src = &fakeSource{jobs: pendingJobs(1, "embroidery"), workers: []Worker{dtg, inactive}}
	res, err = newEngine(src).AssignBulk(context.Background(), uuid.New(), keys(src.jobs), Options{UseSkillMatching: true})
	require.NoError(t, err)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, ReasonNoEligibleWorker, res.Skipped[0].Reason, "mixed reasons fall back to the generic one")
}

func TestAssignBulkWithNoWorkers(t *testing.T) {
	src := &fakeSource{jobs: pendingJobs(1)}
	res, err := newEngine(src).AssignBulk(context.Background(), uuid.New(), keys(src.jobs), Options{})
	require.NoError(t, err)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, ReasonNoEligibleWorker, res.Skipped[0].Reason)
}
