//go:build integration

package repository

import (
	"context"
	"testing"

	"production_backend/platform/db/dbtest"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seeded struct {
	tenant   uuid.UUID
	designer uuid.UUID
	order    uuid.UUID
	job      uuid.UUID
	po       uuid.UUID
}

func seed(t *testing.T, pool *pgxpool.Pool) seeded {
	t.Helper()
	ctx := context.Background()
	s := seeded{tenant: uuid.New(), designer: uuid.New(), order: uuid.New(), job: uuid.New(), po: uuid.New()}
	creator := uuid.New()
	item := uuid.New()
	supplier := uuid.New()

	stmts := []struct {
		sql  string
		args []any
	}{
		{`INSERT INTO orders (id, tenant_id, reference, customer_name, customer_email, created_by)
			VALUES ($1, $2, 'ORD-100', 'Harbor Rowing Club', 'kit@harbor.test', $3)`, []any{s.order, s.tenant, creator}},
		{`INSERT INTO order_items (id, order_id, tenant_id, product_ref, quantity)
			VALUES ($1, $2, $3, 'HOODIE', 40)`, []any{item, s.order, s.tenant}},
		{`INSERT INTO design_jobs (id, tenant_id, order_item_id, title, brief, assignee_id, status, created_by)
			VALUES ($1, $2, $3, 'Harbor hoodie crest', 'navy 100% cotton', $4, 'in_progress', $5)`, []any{s.job, s.tenant, item, s.designer, creator}},
		{`INSERT INTO suppliers (id, tenant_id, name) VALUES ($1, $2, 'Harbor Textiles')`, []any{supplier, s.tenant}},
		{`INSERT INTO purchase_orders (id, tenant_id, supplier_id, po_number, status, created_by)
			VALUES ($1, $2, $3, 'PO-2026-0001', 'draft', $4)`, []any{s.po, s.tenant, supplier, creator}},
		// Same words in another tenant never leak.
		{`INSERT INTO orders (tenant_id, reference, customer_name, created_by)
			VALUES ($1, 'ORD-101', 'Harbor Rowing Club', $2)`, []any{uuid.New(), creator}},
	}
	for _, st := range stmts {
		_, err := pool.Exec(ctx, st.sql, st.args...)
		require.NoError(t, err)
	}
	return s
}

func TestGlobalSearch(t *testing.T) {
	pool := dbtest.Pool(t)
	repo := New(pool)
	s := seed(t, pool)
	ctx := context.Background()

	results, err := repo.GlobalSearch(ctx, Params{TenantID: s.tenant, Query: "harbor", Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 3)
	types := map[string]uuid.UUID{}
	for _, r := range results {
		types[r.Type] = r.ID
		assert.EqualValues(t, 3, r.Total)
	}
	assert.Equal(t, s.order, types["order"])
	assert.Equal(t, s.job, types["design_job"])
	assert.Equal(t, s.po, types["purchase_order"])

	exact, err := repo.GlobalSearch(ctx, Params{TenantID: s.tenant, Query: "po-2026-0001", Limit: 10})
	require.NoError(t, err)
	require.Len(t, exact, 1)
	assert.Equal(t, "po_number", exact[0].MatchedField)
	assert.EqualValues(t, 3, exact[0].Score)

	onlyOrders, err := repo.GlobalSearch(ctx, Params{TenantID: s.tenant, Query: "harbor", Types: []string{"order"}, Limit: 10})
	require.NoError(t, err)
	require.Len(t, onlyOrders, 1)

	other := uuid.New()
	scoped, err := repo.GlobalSearch(ctx, Params{TenantID: s.tenant, Query: "crest", DesignerID: &other, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, scoped)

	literal, err := repo.GlobalSearch(ctx, Params{TenantID: s.tenant, Query: "100%", Limit: 10})
	require.NoError(t, err)
	require.Len(t, literal, 1)
	assert.Equal(t, "brief", literal[0].MatchedField)
}
