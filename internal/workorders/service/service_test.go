package service

import (
	"bytes"
	"context"
	"sync"
	"testing"
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

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu         sync.Mutex
	workOrders map[uuid.UUID]repository.WorkOrder
	events     map[uuid.UUID][]auditlog.Entry
	milestones map[uuid.UUID]repository.Milestone
	materials  []repository.MaterialRequirement
	capacity   map[uuid.UUID]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		workOrders: map[uuid.UUID]repository.WorkOrder{},
		events:     map[uuid.UUID][]auditlog.Entry{},
		milestones: map[uuid.UUID]repository.Milestone{},
		capacity:   map[uuid.UUID]int{},
	}
}

func (f *fakeStore) appendLocked(tenantID, id, actorID uuid.UUID, p auditlog.Payload) {
	f.events[id] = append(f.events[id], auditlog.Entry{
		ID: uuid.New(), TenantID: tenantID, EntityID: id, Kind: p.Kind(), ActorID: actorID, Payload: p, CreatedAt: time.Now(),
	})
}

func (f *fakeStore) openLocked(manufacturerID uuid.UUID) int {
	var n int
	for _, w := range f.workOrders {
		if w.ManufacturerID == nil || *w.ManufacturerID != manufacturerID {
			continue
		}
		for _, s := range repository.OpenStatuses {
			if w.Status == s {
				n++
			}
		}
	}
	return n
}

func (f *fakeStore) CreateWorkOrders(_ context.Context, p repository.CreateParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, w := range p.WorkOrders {
		for _, existing := range f.workOrders {
			if existing.OrderItemID == w.OrderItemID {
				return apperr.Conflict("a work order already exists for this order item")
			}
		}
		if p.CheckCapacity && w.ManufacturerID != nil {
			if c := f.capacity[*w.ManufacturerID]; c > 0 && f.openLocked(*w.ManufacturerID)+1 > c {
				return repository.ErrCapacityExceeded
			}
		}
	}
	for _, w := range p.WorkOrders {
		f.workOrders[w.ID] = w
		f.appendLocked(w.TenantID, w.ID, w.CreatedBy, auditlog.Created{Status: w.Status})
	}
	return nil
}

func (f *fakeStore) GetWorkOrder(_ context.Context, id uuid.UUID) (*repository.WorkOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.workOrders[id]
	if !ok {
		return nil, apperr.NotFound("work order not found")
	}
	return &w, nil
}

func (f *fakeStore) GetWorkOrders(_ context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]repository.WorkOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.WorkOrder
	for _, id := range ids {
		if w, ok := f.workOrders[id]; ok && w.TenantID == tenantID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *fakeStore) ListWorkOrders(_ context.Context, p repository.ListParams) ([]repository.WorkOrder, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.WorkOrder
	for _, w := range f.workOrders {
		if w.TenantID == p.TenantID && (p.Status == "" || w.Status == p.Status) {
			out = append(out, w)
		}
	}
	return out, len(out), nil
}

func (f *fakeStore) Transition(_ context.Context, p repository.TransitionParams) (*repository.WorkOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.workOrders[p.ID]
	if !ok || w.TenantID != p.TenantID || w.Status != p.From {
		return nil, repository.ErrStale
	}
	if p.SetManufacturer && p.CheckCapacity && p.ManufacturerID != nil {
		if c := f.capacity[*p.ManufacturerID]; c > 0 && f.openLocked(*p.ManufacturerID)+1 > c {
			return nil, repository.ErrCapacityExceeded
		}
	}
	w.Status = p.To
	if p.SetManufacturer {
		w.ManufacturerID = p.ManufacturerID
	}
	if p.Fields.ActualStart != nil && w.ActualStart == nil {
		w.ActualStart = p.Fields.ActualStart
	}
	if p.Fields.ActualEnd != nil {
		w.ActualEnd = p.Fields.ActualEnd
	}
	if p.Fields.EstimatedCompletion != nil {
		w.EstimatedCompletion = p.Fields.EstimatedCompletion
	}
	if p.Fields.DelayReason != nil {
		w.DelayReason = p.Fields.DelayReason
	}
	if p.Fields.QualityNotes != nil {
		w.QualityNotes = p.Fields.QualityNotes
	}
	f.workOrders[p.ID] = w
	for _, ev := range p.Events {
		f.appendLocked(p.TenantID, p.ID, p.ActorID, ev)
	}
	return &w, nil
}

func (f *fakeStore) ListEvents(_ context.Context, _, id uuid.UUID) ([]auditlog.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]auditlog.Entry(nil), f.events[id]...), nil
}

func (f *fakeStore) ManufacturerLoad(_ context.Context, _, manufacturerID uuid.UUID) (repository.ManufacturerLoad, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	load := repository.ManufacturerLoad{Capacity: f.capacity[manufacturerID], ByStatus: map[string]int{}}
	for _, w := range f.workOrders {
		if w.ManufacturerID != nil && *w.ManufacturerID == manufacturerID {
			load.ByStatus[w.Status]++
		}
	}
	load.Open = f.openLocked(manufacturerID)
	return load, nil
}

func (f *fakeStore) CreateMilestone(_ context.Context, m repository.Milestone, actorID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.milestones[m.ID] = m
	f.appendLocked(m.TenantID, m.WorkOrderID, actorID, auditlog.MilestoneUpdated{MilestoneID: m.ID, Name: m.Name, Status: m.Status})
	return nil
}

func (f *fakeStore) UpdateMilestone(_ context.Context, p repository.UpdateMilestoneParams) (*repository.Milestone, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.milestones[p.ID]
	if !ok || m.WorkOrderID != p.WorkOrderID {
		return nil, apperr.NotFound("milestone not found")
	}
	m.Status = p.Status
	if p.Status == "completed" {
		now := time.Now()
		m.CompletedAt = &now
	} else {
		m.CompletedAt = nil
	}
	f.milestones[p.ID] = m
	return &m, nil
}

func (f *fakeStore) ListMilestones(_ context.Context, _, workOrderID uuid.UUID) ([]repository.Milestone, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.Milestone
	for _, m := range f.milestones {
		if m.WorkOrderID == workOrderID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeStore) AddMaterialRequirement(_ context.Context, m repository.MaterialRequirement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.materials = append(f.materials, m)
	return nil
}

func (f *fakeStore) ListMaterialRequirements(_ context.Context, _, workOrderID uuid.UUID) ([]repository.MaterialRequirement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.MaterialRequirement
	for _, m := range f.materials {
		if m.WorkOrderID == workOrderID {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeDesignJobs map[uuid.UUID]DesignJob

func (f fakeDesignJobs) DesignJobs(_ context.Context, _ uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]DesignJob, error) {
	out := make(map[uuid.UUID]DesignJob, len(ids))
	for _, id := range ids {
		if j, ok := f[id]; ok {
			out[id] = j
		}
	}
	return out, nil
}

// fakeManufacturers reports open counts from the store like the real directory.
type fakeManufacturers struct {
	store *fakeStore
	list  []Manufacturer
}

func (f *fakeManufacturers) Manufacturers(context.Context, uuid.UUID) ([]Manufacturer, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	out := make([]Manufacturer, 0, len(f.list))
	for _, m := range f.list {
		m.OpenWorkOrders = f.store.openLocked(m.ID)
		out = append(out, m)
	}
	return out, nil
}

type fakeMaterials map[uuid.UUID]Material

func (f fakeMaterials) Material(_ context.Context, id uuid.UUID) (Material, error) {
	m, ok := f[id]
	if !ok {
		return Material{}, apperr.NotFound("material not found")
	}
	return m, nil
}

type fixture struct {
	svc           *Service
	store         *fakeStore
	jobs          fakeDesignJobs
	manufacturers *fakeManufacturers
	materials     fakeMaterials
	bus           *events.InMemoryBus
	tenant        uuid.UUID
	admin         access.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.New("test")
	store := newFakeStore()
	f := &fixture{
		store:         store,
		jobs:          fakeDesignJobs{},
		manufacturers: &fakeManufacturers{store: store},
		materials:     fakeMaterials{},
		bus:           events.NewInMemoryBus(log),
		tenant:        uuid.New(),
	}
	f.admin = access.Actor{UserID: uuid.New(), TenantID: f.tenant, Roles: []string{access.RoleAdmin}}
	f.svc = New(f.store, f.jobs, f.manufacturers, f.materials, workflow.Default(), f.bus, log)
	return f
}

func (f *fixture) addDesignJob(status string, quantity int, specialties ...string) uuid.UUID {
	id := uuid.New()
	f.jobs[id] = DesignJob{ID: id, OrderItemID: uuid.New(), OrderID: uuid.New(), Status: status, Quantity: quantity, RequiredSpecialties: specialties}
	return id
}

func (f *fixture) addManufacturer(capacity, moq int, capabilities ...string) uuid.UUID {
	id := uuid.New()
	f.manufacturers.list = append(f.manufacturers.list, Manufacturer{ID: id, Active: true, Capabilities: capabilities, Capacity: capacity, MinOrderQuantity: moq})
	f.store.capacity[id] = capacity
	return id
}

func (f *fixture) createWorkOrder(t *testing.T, specialties ...string) transport.WorkOrderResponse {
	t.Helper()
	wo, err := f.svc.Create(context.Background(), f.admin, transport.CreateWorkOrderRequest{DesignJobID: f.addDesignJob("approved", 50, specialties...)})
	require.NoError(t, err)
	return wo
}

func TestCreateRequiresApprovedDesign(t *testing.T) {
	f := newFixture(t)
	pending := f.addDesignJob("pending_approval", 10)

	_, err := f.svc.Create(context.Background(), f.admin, transport.CreateWorkOrderRequest{DesignJobID: pending})
	assert.True(t, apperr.Is(err, apperr.KindInvalidState))

	_, err = f.svc.Create(context.Background(), f.admin, transport.CreateWorkOrderRequest{DesignJobID: uuid.New()})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Empty(t, f.store.workOrders)
}

func TestCreateDefaults(t *testing.T) {
	f := newFixture(t)
	wo, err := f.svc.Create(context.Background(), f.admin, transport.CreateWorkOrderRequest{
		DesignJobID:   f.addDesignJob("approved", 40, "embroidery"),
		UnitCostCents: 250,
	})
	require.NoError(t, err)

	assert.Equal(t, "pending", wo.Status)
	assert.Equal(t, "normal", wo.Priority)
	assert.Equal(t, int64(10000), wo.TotalCostCents)
	assert.Regexp(t, `^WO-[0-9A-F]{8}$`, wo.Reference)
	assert.Nil(t, wo.ManufacturerID)
}

func TestCreatePreAssignedChecksEligibility(t *testing.T) {
	f := newFixture(t)
	screen := f.addManufacturer(0, 0, "screen_print")
	big := f.addManufacturer(0, 100, "embroidery")

	_, err := f.svc.Create(context.Background(), f.admin, transport.CreateWorkOrderRequest{
		DesignJobID: f.addDesignJob("approved", 10, "embroidery"), ManufacturerID: &screen,
	})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = f.svc.Create(context.Background(), f.admin, transport.CreateWorkOrderRequest{
		DesignJobID: f.addDesignJob("approved", 10, "embroidery"), ManufacturerID: &big,
	})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	wo, err := f.svc.Create(context.Background(), f.admin, transport.CreateWorkOrderRequest{
		DesignJobID: f.addDesignJob("approved", 10, "embroidery"), ManufacturerID: &big, SkipMinimumQuantity: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "assigned", wo.Status)
	assert.Equal(t, &big, wo.ManufacturerID)
}

func TestBulkGenerateIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	a := f.addDesignJob("approved", 10)
	b := f.addDesignJob("design_in_progress", 10)

	_, err := f.svc.BulkGenerate(context.Background(), f.admin, transport.BulkGenerateRequest{DesignJobIDs: []uuid.UUID{a, b}})
	assert.True(t, apperr.Is(err, apperr.KindInvalidState))
	assert.Empty(t, f.store.workOrders)

	c := f.addDesignJob("approved", 10)
	resp, err := f.svc.BulkGenerate(context.Background(), f.admin, transport.BulkGenerateRequest{DesignJobIDs: []uuid.UUID{a, c, a}})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Count)
	assert.Len(t, f.store.workOrders, 2)
}

func TestRolesAreEnforced(t *testing.T) {
	f := newFixture(t)
	designer := access.Actor{UserID: uuid.New(), TenantID: f.tenant, Roles: []string{access.RoleDesigner}}

	_, err := f.svc.Create(context.Background(), designer, transport.CreateWorkOrderRequest{DesignJobID: f.addDesignJob("approved", 1)})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	production := access.Actor{UserID: uuid.New(), TenantID: f.tenant, Roles: []string{access.RoleProduction}}
	_, err = f.svc.Create(context.Background(), production, transport.CreateWorkOrderRequest{DesignJobID: f.addDesignJob("approved", 1)})
	assert.NoError(t, err)
}

func TestCrossTenantAccessIsForbidden(t *testing.T) {
	f := newFixture(t)
	wo := f.createWorkOrder(t)
	other := access.Actor{UserID: uuid.New(), TenantID: uuid.New(), Roles: []string{access.RoleAdmin}}

	_, err := f.svc.Get(context.Background(), other, wo.ID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestProductionLifecycle(t *testing.T) {
	f := newFixture(t)
	m := f.addManufacturer(0, 0)
	wo := f.createWorkOrder(t)
	ctx := context.Background()

	_, err := f.svc.UpdateStatus(ctx, f.admin, wo.ID, transport.UpdateStatusRequest{StatusCode: "in_progress"})
	require.True(t, apperr.Is(err, apperr.KindInvalidTransition))

	_, err = f.svc.UpdateStatus(ctx, f.admin, wo.ID, transport.UpdateStatusRequest{StatusCode: "assigned"})
	require.True(t, apperr.Is(err, apperr.KindInvalidTransition), "assignment needs the dedicated operation")

	_, err = f.svc.AssignManufacturer(ctx, f.admin, wo.ID, transport.AssignManufacturerRequest{ManufacturerID: m})
	require.NoError(t, err)

	started, err := f.svc.UpdateStatus(ctx, f.admin, wo.ID, transport.UpdateStatusRequest{StatusCode: "in_progress"})
	require.NoError(t, err)
	require.NotNil(t, started.ActualStart)
	firstStart := *started.ActualStart

	eta := time.Now().Add(72 * time.Hour)
	delayed, err := f.svc.ReportDelay(ctx, f.admin, wo.ID, transport.ReportDelayRequest{Reason: "fabric late", EstimatedCompletion: eta})
	require.NoError(t, err)
	assert.Equal(t, "delayed", delayed.Status)
	assert.Equal(t, "fabric late", *delayed.DelayReason)

	resumed, err := f.svc.UpdateStatus(ctx, f.admin, wo.ID, transport.UpdateStatusRequest{StatusCode: "in_progress"})
	require.NoError(t, err)
	assert.Equal(t, firstStart, *resumed.ActualStart)

	done, err := f.svc.UpdateStatus(ctx, f.admin, wo.ID, transport.UpdateStatusRequest{StatusCode: "completed", QualityNotes: "all good"})
	require.NoError(t, err)
	require.NotNil(t, done.ActualEnd)
	assert.Equal(t, "all good", *done.QualityNotes)

	_, err = f.svc.ReportDelay(ctx, f.admin, wo.ID, transport.ReportDelayRequest{Reason: "late", EstimatedCompletion: eta})
	assert.True(t, apperr.Is(err, apperr.KindInvalidTransition))

	shipped, err := f.svc.UpdateStatus(ctx, f.admin, wo.ID, transport.UpdateStatusRequest{StatusCode: "shipped"})
	require.NoError(t, err)
	assert.Equal(t, "shipped", shipped.Status)

	_, err = f.svc.UpdateStatus(ctx, f.admin, wo.ID, transport.UpdateStatusRequest{StatusCode: "shipped"})
	assert.True(t, apperr.Is(err, apperr.KindInvalidTransition))

	f.bus.Wait()
	evs, err := f.svc.ListEvents(ctx, f.admin, wo.ID)
	require.NoError(t, err)
	kinds := make([]string, 0, len(evs))
	for _, e := range evs {
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []string{
		"created", "assigned", "status_changed", "delayed", "status_changed", "status_changed", "status_changed", "status_changed",
	}, kinds)
}

func TestAssignManufacturerCapacityAndOverride(t *testing.T) {
	f := newFixture(t)
	m := f.addManufacturer(1, 0)
	first := f.createWorkOrder(t)
	second := f.createWorkOrder(t)
	ctx := context.Background()

	_, err := f.svc.AssignManufacturer(ctx, f.admin, first.ID, transport.AssignManufacturerRequest{ManufacturerID: m})
	require.NoError(t, err)

	_, err = f.svc.AssignManufacturer(ctx, f.admin, second.ID, transport.AssignManufacturerRequest{ManufacturerID: m})
	require.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = f.svc.AssignManufacturer(ctx, f.admin, second.ID, transport.AssignManufacturerRequest{ManufacturerID: m, SkipCapacityCheck: true})
	require.NoError(t, err)

	var overrides []string
	for _, e := range f.store.events[second.ID] {
		if a, ok := e.Payload.(auditlog.Assigned); ok {
			overrides = a.Overrides
		}
	}
	assert.Equal(t, []string{"capacity"}, overrides)
}

func TestCommitTimeCapacityRecheckBecomesSkip(t *testing.T) {
	f := newFixture(t)
	m := f.addManufacturer(1, 0)
	wo := f.createWorkOrder(t)

	// Another work order already occupies the slot but the directory has not seen it.
	other := f.createWorkOrder(t)
	f.store.mu.Lock()
	w := f.store.workOrders[other.ID]
	w.ManufacturerID, w.Status = &m, "in_progress"
	f.store.workOrders[other.ID] = w
	f.store.mu.Unlock()

	src := &manufacturerSource{svc: f.svc, actor: f.admin}
	err := src.Commit(context.Background(), f.tenant, assignment.Job{ID: wo.ID, Status: "pending"}, assignment.Worker{ID: m}, assignment.Options{CheckCapacity: true})
	var skip *assignment.SkipError
	require.ErrorAs(t, err, &skip)
	assert.Equal(t, assignment.ReasonCapacityExceeded, skip.Reason)
}

func TestBulkAssignBalancesAndReportsSkips(t *testing.T) {
	f := newFixture(t)
	a := f.addManufacturer(0, 0, "embroidery")
	b := f.addManufacturer(0, 0, "embroidery")
	f.addManufacturer(0, 0, "screen_print")

	ids := make([]uuid.UUID, 0, 5)
	for i := 0; i < 4; i++ {
		ids = append(ids, f.createWorkOrder(t, "embroidery").ID)
	}
	odd := f.createWorkOrder(t, "dtg")
	ids = append(ids, odd.ID)

	resp, err := f.svc.BulkAssign(context.Background(), f.admin, transport.BulkAssignRequest{
		WorkOrderIDs: ids, UseWorkloadBalancing: true, UseSkillMatching: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, resp.Count)

	per := map[uuid.UUID]int{}
	for _, as := range resp.Assigned {
		per[as.ManufacturerID]++
	}
	assert.Equal(t, 2, per[a])
	assert.Equal(t, 2, per[b])
	require.Len(t, resp.Skipped, 1)
	assert.Equal(t, odd.ID, resp.Skipped[0].ID)
	assert.Equal(t, string(assignment.ReasonSpecialtyMismatch), resp.Skipped[0].Reason)
}

func TestManufacturerCapacity(t *testing.T) {
	f := newFixture(t)
	limited := f.addManufacturer(3, 0)
	unlimited := f.addManufacturer(0, 0)
	wo := f.createWorkOrder(t)
	_, err := f.svc.AssignManufacturer(context.Background(), f.admin, wo.ID, transport.AssignManufacturerRequest{ManufacturerID: limited})
	require.NoError(t, err)

	got, err := f.svc.ManufacturerCapacity(context.Background(), f.admin, limited)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Open)
	require.NotNil(t, got.Available)
	assert.Equal(t, 2, *got.Available)
	assert.Equal(t, 1, got.ByStatus["assigned"])

	got, err = f.svc.ManufacturerCapacity(context.Background(), f.admin, unlimited)
	require.NoError(t, err)
	assert.Nil(t, got.Available)
}

func TestMilestonesRejectedOnClosedWorkOrder(t *testing.T) {
	f := newFixture(t)
	wo := f.createWorkOrder(t)
	ctx := context.Background()

	ms, err := f.svc.CreateMilestone(ctx, f.admin, wo.ID, transport.CreateMilestoneRequest{Name: "Cutting"})
	require.NoError(t, err)
	assert.Equal(t, "pending", ms.Status)

	updated, err := f.svc.UpdateMilestone(ctx, f.admin, wo.ID, ms.ID, transport.UpdateMilestoneRequest{Status: "completed"})
	require.NoError(t, err)
	assert.NotNil(t, updated.CompletedAt)

	_, err = f.svc.UpdateStatus(ctx, f.admin, wo.ID, transport.UpdateStatusRequest{StatusCode: "cancelled", Notes: "customer cancelled"})
	require.NoError(t, err)

	_, err = f.svc.CreateMilestone(ctx, f.admin, wo.ID, transport.CreateMilestoneRequest{Name: "Packing"})
	assert.True(t, apperr.Is(err, apperr.KindInvalidState))

	list, err := f.svc.ListMilestones(ctx, f.admin, wo.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestAddMaterialRequirementUsesCatalog(t *testing.T) {
	f := newFixture(t)
	wo := f.createWorkOrder(t)
	materialID, supplierID := uuid.New(), uuid.New()
	f.materials[materialID] = Material{ID: materialID, TenantID: f.tenant, SupplierID: supplierID, UnitCostCents: 120}

	got, err := f.svc.AddMaterialRequirement(context.Background(), f.admin, wo.ID, transport.AddMaterialRequest{MaterialID: materialID, Quantity: 30})
	require.NoError(t, err)
	assert.Equal(t, supplierID, got.SupplierID)
	assert.Equal(t, int64(120), got.UnitCostCents)

	foreign := uuid.New()
	f.materials[foreign] = Material{ID: foreign, TenantID: uuid.New(), SupplierID: supplierID}
	_, err = f.svc.AddMaterialRequirement(context.Background(), f.admin, wo.ID, transport.AddMaterialRequest{MaterialID: foreign, Quantity: 1})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestTravelerLabelIsPNG(t *testing.T) {
	f := newFixture(t)
	wo := f.createWorkOrder(t)

	label, err := f.svc.TravelerLabel(context.Background(), f.admin, wo.ID)
	require.NoError(t, err)
	assert.Equal(t, wo.Reference, label.Reference)
	assert.True(t, bytes.HasPrefix(label.PNG, []byte("\x89PNG")))
}

func TestStatusChangesArePublished(t *testing.T) {
	f := newFixture(t)
	var (
		mu  sync.Mutex
		got []string
	)
	record := events.HandlerFunc(func(_ context.Context, e events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e.EventName())
		return nil
	})
	f.bus.Subscribe(events.WorkOrderCreated{}.EventName(), record)
	f.bus.Subscribe(events.WorkOrderAssigned{}.EventName(), record)
	f.bus.Subscribe(events.WorkOrderStatusChanged{}.EventName(), record)

	m := f.addManufacturer(0, 0)
	wo := f.createWorkOrder(t)
	_, err := f.svc.AssignManufacturer(context.Background(), f.admin, wo.ID, transport.AssignManufacturerRequest{ManufacturerID: m})
	require.NoError(t, err)
	f.bus.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{
		events.WorkOrderCreated{}.EventName(),
		events.WorkOrderAssigned{}.EventName(),
		events.WorkOrderStatusChanged{}.EventName(),
	}, got)
}

func TestUpdateStatusRecordsActualDates(t *testing.T) {
	f := newFixture(t)
	m := f.addManufacturer(0, 0)
	wo := f.createWorkOrder(t)
	ctx := context.Background()
	_, err := f.svc.AssignManufacturer(ctx, f.admin, wo.ID, transport.AssignManufacturerRequest{ManufacturerID: m})
	require.NoError(t, err)

	start := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	started, err := f.svc.UpdateStatus(ctx, f.admin, wo.ID, transport.UpdateStatusRequest{StatusCode: "in_progress", ActualDate: &start})
	require.NoError(t, err)
	require.NotNil(t, started.ActualStart)
	assert.True(t, started.ActualStart.Equal(start))

	early := start.Add(-time.Hour)
	_, err = f.svc.UpdateStatus(ctx, f.admin, wo.ID, transport.UpdateStatusRequest{StatusCode: "completed", ActualDate: &early})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	end := start.Add(6 * time.Hour)
	done, err := f.svc.UpdateStatus(ctx, f.admin, wo.ID, transport.UpdateStatusRequest{StatusCode: "completed", ActualDate: &end})
	require.NoError(t, err)
	require.NotNil(t, done.ActualEnd)
	assert.True(t, done.ActualEnd.Equal(end))

	_, err = f.svc.UpdateStatus(ctx, f.admin, wo.ID, transport.UpdateStatusRequest{StatusCode: "shipped", ActualDate: &end})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestUpdateStatusDefaultsActualDatesToNow(t *testing.T) {
	f := newFixture(t)
	m := f.addManufacturer(0, 0)
	wo := f.createWorkOrder(t)
	ctx := context.Background()
	_, err := f.svc.AssignManufacturer(ctx, f.admin, wo.ID, transport.AssignManufacturerRequest{ManufacturerID: m})
	require.NoError(t, err)

	before := time.Now().UTC()
	started, err := f.svc.UpdateStatus(ctx, f.admin, wo.ID, transport.UpdateStatusRequest{StatusCode: "in_progress"})
	require.NoError(t, err)
	require.NotNil(t, started.ActualStart)
	assert.WithinDuration(t, before, *started.ActualStart, time.Minute)
}
