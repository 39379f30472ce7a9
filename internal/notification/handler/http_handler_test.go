package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"production_backend/internal/notification/inapp"
	"production_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInbox struct {
	list     inapp.ListParams
	types    []string
	deleted  uuid.UUID
	markedBy uuid.UUID
}

func (f *fakeInbox) Create(context.Context, inapp.CreateParams) (inapp.Notification, error) {
	return inapp.Notification{}, nil
}

func (f *fakeInbox) List(_ context.Context, p inapp.ListParams) ([]inapp.Notification, int, error) {
	f.list = p
	return []inapp.Notification{}, 0, nil
}

func (f *fakeInbox) CountUnreadByResourceTypes(_ context.Context, _, _ uuid.UUID, types []string) (int, error) {
	f.types = types
	return 3, nil
}

func (f *fakeInbox) MarkRead(context.Context, uuid.UUID, uuid.UUID, uuid.UUID) error { return nil }

func (f *fakeInbox) MarkAllRead(_ context.Context, _, userID uuid.UUID) (int64, error) {
	f.markedBy = userID
	return 2, nil
}

func (f *fakeInbox) Delete(_ context.Context, _, _, id uuid.UUID) error {
	f.deleted = id
	return nil
}

func newRouter(store inapp.Store, user, tenant uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(httpkit.ContextUserIDKey, user)
		c.Set(httpkit.ContextRolesKey, []string{"designer"})
		c.Set(httpkit.ContextTenantIDKey, tenant)
		c.Next()
	})
	NewHTTPHandler(inapp.NewService(store)).RegisterRoutes(r.Group("/notifications"))
	return r
}

func serve(r *gin.Engine, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestListScopesToCallerAndParsesSince(t *testing.T) {
	store := &fakeInbox{}
	user, tenant := uuid.New(), uuid.New()
	r := newRouter(store, user, tenant)

	rec := serve(r, http.MethodGet, "/notifications?page=2&limit=10&unread=true&since=2026-03-01T08:00:00Z")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, user, store.list.UserID)
	assert.Equal(t, tenant, store.list.TenantID)
	assert.True(t, store.list.UnreadOnly)
	assert.Equal(t, 10, store.list.Offset)
	require.NotNil(t, store.list.Since)
	assert.True(t, store.list.Since.Equal(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)))
}

func TestListRejectsMalformedSince(t *testing.T) {
	rec := serve(newRouter(&fakeInbox{}, uuid.New(), uuid.New()), http.MethodGet, "/notifications?since=yesterday")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCountUnreadByResourceSplitsTypes(t *testing.T) {
	store := &fakeInbox{}
	rec := serve(newRouter(store, uuid.New(), uuid.New()), http.MethodGet, "/notifications/unread-by-resource?types=design_job,%20work_order,")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"design_job", "work_order"}, store.types)
	assert.Contains(t, rec.Body.String(), `"count":3`)
}

func TestDeleteValidatesID(t *testing.T) {
	store := &fakeInbox{}
	r := newRouter(store, uuid.New(), uuid.New())

	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodDelete, "/notifications/not-a-uuid").Code)

	id := uuid.New()
	assert.Equal(t, http.StatusOK, serve(r, http.MethodDelete, "/notifications/"+id.String()).Code)
	assert.Equal(t, id, store.deleted)
}
