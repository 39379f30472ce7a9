package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"production_backend/internal/access"
	"production_backend/internal/auditlog"
	"production_backend/internal/events"
	"production_backend/internal/purchasing/repository"
	"production_backend/internal/purchasing/transport"
	"production_backend/internal/workflow"
	"production_backend/platform/apperr"
	"production_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu           sync.Mutex
	seq          int
	pos          map[uuid.UUID]repository.PurchaseOrder
	lines        map[uuid.UUID][]repository.Line
	events       map[uuid.UUID][]auditlog.Entry
	requirements []repository.Requirement
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		pos:    map[uuid.UUID]repository.PurchaseOrder{},
		lines:  map[uuid.UUID][]repository.Line{},
		events: map[uuid.UUID][]auditlog.Entry{},
	}
}

func (f *fakeStore) appendLocked(tenantID, id, actorID uuid.UUID, p auditlog.Payload) {
	f.events[id] = append(f.events[id], auditlog.Entry{
		ID: uuid.New(), TenantID: tenantID, EntityID: id, Kind: p.Kind(), ActorID: actorID, Payload: p, CreatedAt: time.Now(),
	})
}

func (f *fakeStore) insertLocked(po *repository.PurchaseOrder, lines []repository.Line) {
	f.seq++
	po.Number = repository.FormatNumber(po.CreatedAt.Year(), f.seq)
	po.TotalCents = 0
	for _, l := range lines {
		po.TotalCents += l.TotalCostCents
	}
	f.pos[po.ID] = *po
	f.lines[po.ID] = append([]repository.Line(nil), lines...)
	f.appendLocked(po.TenantID, po.ID, po.CreatedBy, auditlog.Created{Status: po.Status})
}

func (f *fakeStore) recomputeLocked(id uuid.UUID) repository.PurchaseOrder {
	po := f.pos[id]
	po.TotalCents = 0
	for _, l := range f.lines[id] {
		po.TotalCents += l.TotalCostCents
	}
	f.pos[id] = po
	return po
}

func (f *fakeStore) CreatePurchaseOrder(_ context.Context, po *repository.PurchaseOrder, lines []repository.Line) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertLocked(po, lines)
	return nil
}

func (f *fakeStore) GenerateFromRequirements(_ context.Context, _ uuid.UUID, workOrderIDs []uuid.UUID, plan repository.PlanFunc) ([]repository.Draft, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wanted := map[uuid.UUID]bool{}
	for _, id := range workOrderIDs {
		wanted[id] = true
	}
	var reqs []repository.Requirement
	for _, r := range f.requirements {
		if wanted[r.WorkOrderID] && r.Outstanding() > 0 {
			reqs = append(reqs, r)
		}
	}
	drafts, err := plan(reqs)
	if err != nil {
		return nil, err
	}
	for i := range drafts {
		f.insertLocked(&drafts[i].PurchaseOrder, drafts[i].Lines)
	}
	for i := range f.requirements {
		if wanted[f.requirements[i].WorkOrderID] {
			f.requirements[i].OrderedQuantity = f.requirements[i].Quantity
		}
	}
	return drafts, nil
}

func (f *fakeStore) GetPurchaseOrder(_ context.Context, id uuid.UUID) (*repository.PurchaseOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	po, ok := f.pos[id]
	if !ok {
		return nil, apperr.NotFound("purchase order not found")
	}
	return &po, nil
}

func (f *fakeStore) ListLines(_ context.Context, _, id uuid.UUID) ([]repository.Line, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]repository.Line{}, f.lines[id]...), nil
}

func (f *fakeStore) ListPurchaseOrders(_ context.Context, p repository.ListParams) ([]repository.PurchaseOrder, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.PurchaseOrder
	for _, po := range f.pos {
		if po.TenantID == p.TenantID && (p.Status == "" || po.Status == p.Status) {
			out = append(out, po)
		}
	}
	return out, len(out), nil
}

func (f *fakeStore) Transition(_ context.Context, p repository.TransitionParams) (*repository.PurchaseOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	po, ok := f.pos[p.ID]
	if !ok || po.TenantID != p.TenantID || po.Status != p.From {
		return nil, repository.ErrStale
	}
	po.Status = p.To
	now := time.Now()
	switch p.Stamp {
	case repository.StampApproved:
		po.ApprovedBy, po.ApprovedAt = &p.ActorID, &now
	case repository.StampSubmitted:
		po.SubmittedAt = &now
	case repository.StampCancelled:
		po.CancelledAt = &now
		for _, l := range f.lines[p.ID] {
			f.adjustOrderedLocked(l.RequirementID, l.ReceivedQuantity-l.Quantity)
		}
	}
	f.pos[p.ID] = po
	for _, ev := range p.Events {
		f.appendLocked(p.TenantID, p.ID, p.ActorID, ev)
	}
	return &po, nil
}

func (f *fakeStore) adjustOrderedLocked(requirementID *uuid.UUID, delta int64) {
	if requirementID == nil {
		return
	}
	for i := range f.requirements {
		if f.requirements[i].ID == *requirementID {
			f.requirements[i].OrderedQuantity = max(f.requirements[i].OrderedQuantity+delta, 0)
		}
	}
}

func (f *fakeStore) editLocked(e repository.LineEdit) error {
	po, ok := f.pos[e.PurchaseOrderID]
	if !ok {
		return apperr.NotFound("purchase order not found")
	}
	for _, s := range repository.EditableStatuses {
		if po.Status == s {
			return nil
		}
	}
	return repository.ErrNotEditable
}

func (f *fakeStore) AddLine(_ context.Context, e repository.LineEdit, l repository.Line) (*repository.PurchaseOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.editLocked(e); err != nil {
		return nil, err
	}
	f.lines[e.PurchaseOrderID] = append(f.lines[e.PurchaseOrderID], l)
	po := f.recomputeLocked(e.PurchaseOrderID)
	return &po, nil
}

func (f *fakeStore) UpdateLine(_ context.Context, e repository.LineEdit, lineID uuid.UUID, quantity, unitCost int64) (*repository.PurchaseOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.editLocked(e); err != nil {
		return nil, err
	}
	lines := f.lines[e.PurchaseOrderID]
	for i := range lines {
		if lines[i].ID == lineID {
			f.adjustOrderedLocked(lines[i].RequirementID, quantity-lines[i].Quantity)
			lines[i].Quantity, lines[i].UnitCostCents, lines[i].TotalCostCents = quantity, unitCost, quantity*unitCost
			po := f.recomputeLocked(e.PurchaseOrderID)
			return &po, nil
		}
	}
	return nil, apperr.NotFound("purchase order line not found")
}

func (f *fakeStore) RemoveLine(_ context.Context, e repository.LineEdit, lineID uuid.UUID) (*repository.PurchaseOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.editLocked(e); err != nil {
		return nil, err
	}
	lines := f.lines[e.PurchaseOrderID]
	for i := range lines {
		if lines[i].ID == lineID {
			f.adjustOrderedLocked(lines[i].RequirementID, -lines[i].Quantity)
			f.lines[e.PurchaseOrderID] = append(lines[:i], lines[i+1:]...)
			po := f.recomputeLocked(e.PurchaseOrderID)
			return &po, nil
		}
	}
	return nil, apperr.NotFound("purchase order line not found")
}

func (f *fakeStore) ReceiveItems(_ context.Context, p repository.ReceiveParams) (*repository.PurchaseOrder, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	po, ok := f.pos[p.ID]
	if !ok {
		return nil, "", apperr.NotFound("purchase order not found")
	}
	from := po.Status
	if err := p.Precheck(from); err != nil {
		return nil, "", err
	}

	lines := append([]repository.Line(nil), f.lines[p.ID]...)
	for _, rl := range p.Lines {
		found := false
		for i := range lines {
			if lines[i].ID == rl.LineID && lines[i].ReceivedQuantity+rl.Quantity <= lines[i].Quantity {
				lines[i].ReceivedQuantity += rl.Quantity
				found = true
			}
		}
		if !found {
			return nil, "", apperr.Validation("received quantity exceeds the outstanding quantity or line does not exist")
		}
	}
	all := len(lines) > 0
	for _, l := range lines {
		all = all && l.ReceivedQuantity == l.Quantity
	}
	to, err := p.Decide(from, all)
	if err != nil {
		return nil, "", err
	}
	f.lines[p.ID] = lines
	po.Status = to
	f.pos[p.ID] = po
	f.appendLocked(p.TenantID, p.ID, p.ActorID, auditlog.Received{Status: to})
	return &po, from, nil
}

func (f *fakeStore) ListEvents(_ context.Context, _, id uuid.UUID) ([]auditlog.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]auditlog.Entry(nil), f.events[id]...), nil
}

type fakeCatalog struct {
	suppliers map[uuid.UUID]Supplier
	materials map[uuid.UUID]Material
}

func (c *fakeCatalog) Supplier(_ context.Context, id uuid.UUID) (Supplier, error) {
	s, ok := c.suppliers[id]
	if !ok {
		return Supplier{}, apperr.NotFound("supplier not found")
	}
	return s, nil
}

func (c *fakeCatalog) Material(_ context.Context, id uuid.UUID) (Material, error) {
	m, ok := c.materials[id]
	if !ok {
		return Material{}, apperr.NotFound("material not found")
	}
	return m, nil
}

type fixture struct {
	svc     *Service
	store   *fakeStore
	catalog *fakeCatalog
	bus     *events.InMemoryBus
	tenant  uuid.UUID
	admin   access.Actor
	buyer   access.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.New("test")
	f := &fixture{
		store:   newFakeStore(),
		catalog: &fakeCatalog{suppliers: map[uuid.UUID]Supplier{}, materials: map[uuid.UUID]Material{}},
		bus:     events.NewInMemoryBus(log),
		tenant:  uuid.New(),
	}
	f.admin = access.Actor{UserID: uuid.New(), TenantID: f.tenant, Roles: []string{access.RoleAdmin}}
	f.buyer = access.Actor{UserID: uuid.New(), TenantID: f.tenant, Roles: []string{access.RolePurchasing}}
	f.svc = New(f.store, f.catalog, workflow.Default(), f.bus, log)
	return f
}

func (f *fixture) addSupplier() uuid.UUID {
	id := uuid.New()
	f.catalog.suppliers[id] = Supplier{ID: id, TenantID: f.tenant}
	return id
}

func (f *fixture) addMaterial(supplierID uuid.UUID, unitCost int64) uuid.UUID {
	id := uuid.New()
	f.catalog.materials[id] = Material{ID: id, TenantID: f.tenant, SupplierID: supplierID, Name: "cotton", UnitCostCents: unitCost}
	return id
}

func (f *fixture) createPO(t *testing.T, lines ...transport.LineRequest) transport.PurchaseOrderResponse {
	t.Helper()
	supplier := f.addSupplier()
	for i := range lines {
		if lines[i].MaterialID == uuid.Nil {
			lines[i].MaterialID = f.addMaterial(supplier, 100)
		}
	}
	po, err := f.svc.Create(context.Background(), f.buyer, transport.CreatePurchaseOrderRequest{SupplierID: supplier, Lines: lines})
	require.NoError(t, err)
	return po
}

func (f *fixture) advance(t *testing.T, id uuid.UUID, statuses ...string) {
	t.Helper()
	for _, st := range statuses {
		var err error
		if st == "approved" {
			_, err = f.svc.Approve(context.Background(), f.admin, id)
		} else {
			_, err = f.svc.UpdateStatus(context.Background(), f.buyer, id, transport.UpdateStatusRequest{StatusCode: st})
		}
		require.NoError(t, err, st)
	}
}

func TestCreateComputesTotalAndNumber(t *testing.T) {
	f := newFixture(t)
	custom := int64(250)
	po := f.createPO(t, transport.LineRequest{Quantity: 3}, transport.LineRequest{Quantity: 2, UnitCostCents: &custom})

	assert.Equal(t, "draft", po.Status)
	assert.Equal(t, int64(3*100+2*250), po.TotalCents)
	assert.Regexp(t, `^PO-\d{4}-0001$`, po.Number)
	require.Len(t, po.Lines, 2)
	assert.Equal(t, "cotton", po.Lines[0].Description)
}

func TestCreateRejectsMaterialFromOtherSupplier(t *testing.T) {
	f := newFixture(t)
	supplier := f.addSupplier()
	other := f.addMaterial(f.addSupplier(), 100)

	_, err := f.svc.Create(context.Background(), f.buyer, transport.CreatePurchaseOrderRequest{
		SupplierID: supplier, Lines: []transport.LineRequest{{MaterialID: other, Quantity: 1}},
	})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestCreateRequiresPurchasingRole(t *testing.T) {
	f := newFixture(t)
	designer := access.Actor{UserID: uuid.New(), TenantID: f.tenant, Roles: []string{access.RoleDesigner}}
	_, err := f.svc.Create(context.Background(), designer, transport.CreatePurchaseOrderRequest{SupplierID: f.addSupplier()})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestTotalTracksLineEdits(t *testing.T) {
	f := newFixture(t)
	po := f.createPO(t, transport.LineRequest{Quantity: 1})
	ctx := context.Background()
	material := po.Lines[0].MaterialID

	got, err := f.svc.AddLine(ctx, f.buyer, po.ID, transport.LineRequest{MaterialID: material, Quantity: 4})
	require.NoError(t, err)
	assert.Equal(t, int64(500), got.TotalCents)

	price := int64(10)
	got, err = f.svc.UpdateLine(ctx, f.buyer, po.ID, got.Lines[1].ID, transport.UpdateLineRequest{Quantity: 5, UnitCostCents: &price})
	require.NoError(t, err)
	assert.Equal(t, int64(150), got.TotalCents)

	got, err = f.svc.RemoveLine(ctx, f.buyer, po.ID, got.Lines[0].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), got.TotalCents)

	var sum int64
	for _, l := range got.Lines {
		sum += l.TotalCostCents
	}
	assert.Equal(t, sum, got.TotalCents)
}

func TestLinesFrozenAfterApproval(t *testing.T) {
	f := newFixture(t)
	po := f.createPO(t, transport.LineRequest{Quantity: 1})
	f.advance(t, po.ID, "pending_approval")

	_, err := f.svc.AddLine(context.Background(), f.buyer, po.ID, transport.LineRequest{MaterialID: po.Lines[0].MaterialID, Quantity: 1})
	require.NoError(t, err, "pending_approval is still editable")

	f.advance(t, po.ID, "approved")
	_, err = f.svc.AddLine(context.Background(), f.buyer, po.ID, transport.LineRequest{MaterialID: po.Lines[0].MaterialID, Quantity: 1})
	assert.True(t, apperr.Is(err, apperr.KindInvalidState))
	_, err = f.svc.RemoveLine(context.Background(), f.buyer, po.ID, po.Lines[0].ID)
	assert.True(t, apperr.Is(err, apperr.KindInvalidState))
}

func TestApproveIsIdempotentAndAdminOnly(t *testing.T) {
	f := newFixture(t)
	po := f.createPO(t, transport.LineRequest{Quantity: 1})
	ctx := context.Background()

	_, err := f.svc.Approve(ctx, f.admin, po.ID)
	assert.True(t, apperr.Is(err, apperr.KindInvalidTransition), "draft must be submitted for approval first")

	f.advance(t, po.ID, "pending_approval")
	_, err = f.svc.Approve(ctx, f.buyer, po.ID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	first, err := f.svc.Approve(ctx, f.admin, po.ID)
	require.NoError(t, err)
	second, err := f.svc.Approve(ctx, f.admin, po.ID)
	require.NoError(t, err)
	assert.Equal(t, "approved", second.Status)
	assert.Equal(t, first.ApprovedAt, second.ApprovedAt)

	var approvals int
	for _, e := range f.store.events[po.ID] {
		if e.Kind == auditlog.KindApproved {
			approvals++
		}
	}
	assert.Equal(t, 1, approvals)
}

func TestApprovalRequiresDedicatedOperation(t *testing.T) {
	f := newFixture(t)
	po := f.createPO(t, transport.LineRequest{Quantity: 1})
	f.advance(t, po.ID, "pending_approval")

	_, err := f.svc.UpdateStatus(context.Background(), f.admin, po.ID, transport.UpdateStatusRequest{StatusCode: "approved"})
	assert.True(t, apperr.Is(err, apperr.KindInvalidTransition))
}

func TestReceiveItemsPartialThenFull(t *testing.T) {
	f := newFixture(t)
	po := f.createPO(t, transport.LineRequest{Quantity: 10}, transport.LineRequest{Quantity: 5})
	ctx := context.Background()
	lineA, lineB := po.Lines[0].ID, po.Lines[1].ID

	_, err := f.svc.ReceiveItems(ctx, f.buyer, po.ID, transport.ReceiveItemsRequest{Lines: []transport.ReceiveLineRequest{{LineID: lineA, Quantity: 1}}})
	assert.True(t, apperr.Is(err, apperr.KindInvalidTransition), "draft cannot receive goods")

	f.advance(t, po.ID, "pending_approval", "approved", "submitted")

	got, err := f.svc.ReceiveItems(ctx, f.buyer, po.ID, transport.ReceiveItemsRequest{Lines: []transport.ReceiveLineRequest{{LineID: lineA, Quantity: 4}}})
	require.NoError(t, err)
	assert.Equal(t, "partially_received", got.Status)

	got, err = f.svc.ReceiveItems(ctx, f.buyer, po.ID, transport.ReceiveItemsRequest{Lines: []transport.ReceiveLineRequest{{LineID: lineA, Quantity: 3}}})
	require.NoError(t, err)
	assert.Equal(t, "partially_received", got.Status)

	_, err = f.svc.ReceiveItems(ctx, f.buyer, po.ID, transport.ReceiveItemsRequest{Lines: []transport.ReceiveLineRequest{{LineID: lineB, Quantity: 6}}})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	got, err = f.svc.ReceiveItems(ctx, f.buyer, po.ID, transport.ReceiveItemsRequest{Lines: []transport.ReceiveLineRequest{
		{LineID: lineA, Quantity: 3}, {LineID: lineB, Quantity: 5},
	}})
	require.NoError(t, err)
	assert.Equal(t, "received", got.Status)

	_, err = f.svc.ReceiveItems(ctx, f.buyer, po.ID, transport.ReceiveItemsRequest{Lines: []transport.ReceiveLineRequest{{LineID: lineA, Quantity: 1}}})
	assert.True(t, apperr.Is(err, apperr.KindInvalidTransition))
}

func TestCancelOnlyBeforeApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	draft := f.createPO(t, transport.LineRequest{Quantity: 1})
	got, err := f.svc.Cancel(ctx, f.buyer, draft.ID, transport.CancelRequest{Reason: "duplicate"})
	require.NoError(t, err)
	assert.Equal(t, "cancelled", got.Status)
	assert.NotNil(t, got.CancelledAt)

	var cancelled bool
	for _, e := range f.store.events[draft.ID] {
		if c, ok := e.Payload.(auditlog.Cancelled); ok {
			cancelled = c.Reason == "duplicate"
		}
	}
	assert.True(t, cancelled)

	submitted := f.createPO(t, transport.LineRequest{Quantity: 1})
	f.advance(t, submitted.ID, "pending_approval", "approved", "submitted")
	_, err = f.svc.Cancel(ctx, f.buyer, submitted.ID, transport.CancelRequest{})
	assert.True(t, apperr.Is(err, apperr.KindInvalidTransition))
}

func TestBulkGenerateGroupsBySupplierAndMarksOrdered(t *testing.T) {
	f := newFixture(t)
	supplierA, supplierB := uuid.New(), uuid.New()
	woA, woB := uuid.New(), uuid.New()
	f.store.requirements = []repository.Requirement{
		{ID: uuid.New(), WorkOrderID: woA, MaterialID: uuid.New(), SupplierID: supplierA, Quantity: 10, UnitCostCents: 5},
		{ID: uuid.New(), WorkOrderID: woB, MaterialID: uuid.New(), SupplierID: supplierA, Quantity: 4, OrderedQuantity: 1, UnitCostCents: 10},
		{ID: uuid.New(), WorkOrderID: woB, MaterialID: uuid.New(), SupplierID: supplierB, Quantity: 2, UnitCostCents: 100},
	}

	resp, err := f.svc.BulkGenerate(context.Background(), f.buyer, transport.BulkGenerateRequest{WorkOrderIDs: []uuid.UUID{woA, woB}})
	require.NoError(t, err)
	require.Equal(t, 2, resp.Count)

	bySupplier := map[uuid.UUID]transport.PurchaseOrderResponse{}
	for _, po := range resp.Created {
		bySupplier[po.SupplierID] = po
		assert.Equal(t, "draft", po.Status)
	}
	assert.Len(t, bySupplier[supplierA].Lines, 2)
	assert.Equal(t, int64(10*5+3*10), bySupplier[supplierA].TotalCents)
	assert.Equal(t, int64(200), bySupplier[supplierB].TotalCents)

	for _, r := range f.store.requirements {
		assert.Zero(t, r.Outstanding())
	}

	again, err := f.svc.BulkGenerate(context.Background(), f.buyer, transport.BulkGenerateRequest{WorkOrderIDs: []uuid.UUID{woA, woB}})
	require.NoError(t, err)
	assert.Zero(t, again.Count)
}

func TestCrossTenantPurchaseOrderIsForbidden(t *testing.T) {
	f := newFixture(t)
	po := f.createPO(t)
	other := access.Actor{UserID: uuid.New(), TenantID: uuid.New(), Roles: []string{access.RoleAdmin}}

	_, err := f.svc.Get(context.Background(), other, po.ID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	_, err = f.svc.Approve(context.Background(), other, po.ID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestReceiptPublishesEvents(t *testing.T) {
	f := newFixture(t)
	var (
		mu       sync.Mutex
		received []events.PurchaseOrderReceived
	)
	f.bus.Subscribe(events.PurchaseOrderReceived{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, e.(events.PurchaseOrderReceived))
		return nil
	}))

	po := f.createPO(t, transport.LineRequest{Quantity: 2})
	f.advance(t, po.ID, "pending_approval", "approved", "submitted")
	_, err := f.svc.ReceiveItems(context.Background(), f.buyer, po.ID, transport.ReceiveItemsRequest{
		Lines: []transport.ReceiveLineRequest{{LineID: po.Lines[0].ID, Quantity: 2}},
	})
	require.NoError(t, err)
	f.bus.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.True(t, received[0].FullyReceived)
}

func TestCancelledAndEditedLinesReleaseRequirements(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	supplierA, supplierB := uuid.New(), uuid.New()
	wo := uuid.New()
	reqA, reqB, reqC := uuid.New(), uuid.New(), uuid.New()
	f.store.requirements = []repository.Requirement{
		{ID: reqA, WorkOrderID: wo, MaterialID: uuid.New(), SupplierID: supplierA, Quantity: 10, UnitCostCents: 5},
		{ID: reqB, WorkOrderID: wo, MaterialID: uuid.New(), SupplierID: supplierA, Quantity: 6, UnitCostCents: 5},
		{ID: reqC, WorkOrderID: wo, MaterialID: uuid.New(), SupplierID: supplierB, Quantity: 2, UnitCostCents: 5},
	}
	outstanding := func() map[uuid.UUID]int64 {
		out := map[uuid.UUID]int64{}
		for _, r := range f.store.requirements {
			out[r.ID] = r.Outstanding()
		}
		return out
	}
	generate := func() map[uuid.UUID]transport.PurchaseOrderResponse {
		resp, err := f.svc.BulkGenerate(ctx, f.buyer, transport.BulkGenerateRequest{WorkOrderIDs: []uuid.UUID{wo}})
		require.NoError(t, err)
		bySupplier := map[uuid.UUID]transport.PurchaseOrderResponse{}
		for _, po := range resp.Created {
			bySupplier[po.SupplierID] = po
		}
		return bySupplier
	}

	first := generate()
	require.Len(t, first, 2)
	assert.Equal(t, map[uuid.UUID]int64{reqA: 0, reqB: 0, reqC: 0}, outstanding())

	poA := first[supplierA]
	var lineA, lineB uuid.UUID
	for _, l := range poA.Lines {
		require.NotNil(t, l.RequirementID)
		switch *l.RequirementID {
		case reqA:
			lineA = l.ID
		case reqB:
			lineB = l.ID
		}
	}

	_, err := f.svc.UpdateLine(ctx, f.buyer, poA.ID, lineA, transport.UpdateLineRequest{Quantity: 7})
	require.NoError(t, err)
	_, err = f.svc.RemoveLine(ctx, f.buyer, poA.ID, lineB)
	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID]int64{reqA: 3, reqB: 6, reqC: 0}, outstanding())

	_, err = f.svc.Cancel(ctx, f.buyer, first[supplierB].ID, transport.CancelRequest{Reason: "wrong supplier"})
	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID]int64{reqA: 3, reqB: 6, reqC: 2}, outstanding())

	second := generate()
	require.Len(t, second, 2)
	assert.Equal(t, int64(3*5+6*5), second[supplierA].TotalCents)
	assert.Equal(t, int64(2*5), second[supplierB].TotalCents)
	assert.Equal(t, map[uuid.UUID]int64{reqA: 0, reqB: 0, reqC: 0}, outstanding())
}
