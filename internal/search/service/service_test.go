package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"production_backend/internal/access"
	"production_backend/internal/search/repository"
	"production_backend/internal/search/transport"
	"production_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	got     repository.Params
	calls   int
	results []repository.SearchResult
	err     error
}

func (f *fakeSearcher) GlobalSearch(_ context.Context, p repository.Params) ([]repository.SearchResult, error) {
	f.calls++
	f.got = p
	return f.results, f.err
}

func TestGlobalSearchBlankQuerySkipsRepository(t *testing.T) {
	repo := &fakeSearcher{}
	svc := New(repo)

	resp, err := svc.GlobalSearch(context.Background(), access.Actor{TenantID: uuid.New()}, transport.SearchRequest{Query: "   "})
	require.NoError(t, err)
	assert.Empty(t, resp.Items)
	assert.Zero(t, repo.calls)
}

func TestGlobalSearchScopesDesigners(t *testing.T) {
	repo := &fakeSearcher{}
	svc := New(repo)
	designer := access.Actor{UserID: uuid.New(), TenantID: uuid.New(), Roles: []string{access.RoleDesigner}}

	_, err := svc.GlobalSearch(context.Background(), designer, transport.SearchRequest{Query: "hoodie"})
	require.NoError(t, err)
	require.NotNil(t, repo.got.DesignerID)
	assert.Equal(t, designer.UserID, *repo.got.DesignerID)
	assert.Equal(t, designer.TenantID, repo.got.TenantID)
	assert.Equal(t, defaultLimit, repo.got.Limit)

	admin := access.Actor{UserID: uuid.New(), TenantID: uuid.New(), Roles: []string{access.RoleAdmin, access.RoleDesigner}}
	_, err = svc.GlobalSearch(context.Background(), admin, transport.SearchRequest{Query: "hoodie", Limit: 5})
	require.NoError(t, err)
	assert.Nil(t, repo.got.DesignerID)
	assert.Equal(t, 5, repo.got.Limit)
}

func TestGlobalSearchMapsResults(t *testing.T) {
	woID := uuid.New()
	poID := uuid.New()
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	repo := &fakeSearcher{results: []repository.SearchResult{
		{ID: woID, Type: "work_order", Title: "WO-1A2B3C4D", Status: "in_production", MatchedField: "reference", Score: 3, CreatedAt: created, Total: 2},
		{ID: poID, Type: "purchase_order", Title: "PO-2026-0001", Subtitle: "Textile Co", Status: "draft", MatchedField: "po_number", Score: 1, CreatedAt: created, Total: 2},
	}}
	svc := New(repo)

	resp, err := svc.GlobalSearch(context.Background(), access.Actor{TenantID: uuid.New(), Roles: []string{access.RoleProduction}},
		transport.SearchRequest{Query: "WO-1A2B", Types: []string{"work_order", "purchase_order"}})
	require.NoError(t, err)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, []string{"work_order", "purchase_order"}, repo.got.Types)
	assert.Equal(t, "/app/work-orders/"+woID.String(), resp.Items[0].Link)
	assert.Equal(t, "/app/purchase-orders/"+poID.String(), resp.Items[1].Link)
	assert.Equal(t, 3.0, resp.Items[0].Score)
}

func TestGlobalSearchWrapsRepositoryFailure(t *testing.T) {
	svc := New(&fakeSearcher{err: errors.New("connection reset")})

	_, err := svc.GlobalSearch(context.Background(), access.Actor{TenantID: uuid.New()}, transport.SearchRequest{Query: "po"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindInternal))
}
