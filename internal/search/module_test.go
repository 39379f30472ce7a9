package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	apphttp "production_backend/internal/http"
	"production_backend/internal/search/repository"
	"production_backend/platform/httpkit"
	"production_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSearcher struct {
	params repository.Params
}

func (r *recordingSearcher) GlobalSearch(_ context.Context, p repository.Params) ([]repository.SearchResult, error) {
	r.params = p
	return []repository.SearchResult{{ID: uuid.New(), Type: "work_order", Title: "WO-2026-0007", Total: 1}}, nil
}

func TestModuleMountsSearchOnProtectedGroup(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tenant, user := uuid.New(), uuid.New()
	searcher := &recordingSearcher{}

	engine := gin.New()
	protected := engine.Group("/api/v1", func(c *gin.Context) {
		c.Set(httpkit.ContextUserIDKey, user)
		c.Set(httpkit.ContextRolesKey, []string{"admin"})
		c.Set(httpkit.ContextTenantIDKey, tenant)
		c.Next()
	})
	newModule(searcher, validator.New()).RegisterRoutes(&apphttp.RouterContext{Protected: protected})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/search?q=WO-2026&type=work_order,order", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "WO-2026-0007")

	assert.Equal(t, tenant, searcher.params.TenantID)
	assert.Equal(t, "WO-2026", searcher.params.Query)
	assert.ElementsMatch(t, []string{"work_order", "order"}, searcher.params.Types)
	assert.Nil(t, searcher.params.DesignerID)
}
