package exports

import (
	"context"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"production_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	tenant     uuid.UUID
	from, to   time.Time
	limit      int
	workOrders []WorkOrderRow
	purchases  []PurchaseOrderRow
}

func (f *fakeStore) ListWorkOrders(_ context.Context, tenantID uuid.UUID, from, to time.Time, limit int) ([]WorkOrderRow, error) {
	f.tenant, f.from, f.to, f.limit = tenantID, from, to, limit
	return f.workOrders, nil
}

func (f *fakeStore) ListPurchaseOrders(_ context.Context, tenantID uuid.UUID, from, to time.Time, limit int) ([]PurchaseOrderRow, error) {
	f.tenant, f.from, f.to, f.limit = tenantID, from, to, limit
	return f.purchases, nil
}

func newTestRouter(store Store, tenantID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(store)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(httpkit.ContextUserIDKey, uuid.New())
		c.Set(httpkit.ContextRolesKey, []string{"production"})
		c.Set(httpkit.ContextTenantIDKey, tenantID)
		c.Next()
	})
	r.GET("/work-orders.csv", h.ExportWorkOrdersCSV)
	r.GET("/purchase-orders.csv", h.ExportPurchaseOrdersCSV)
	return r
}

func readCSV(t *testing.T, body string) [][]string {
	t.Helper()
	reader := csv.NewReader(strings.NewReader(body))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	require.NoError(t, err)
	return records
}

func TestExportWorkOrdersCSV(t *testing.T) {
	tenantID := uuid.New()
	manufacturer := "Stitch & Co"
	planned := time.Date(2026, 5, 4, 7, 30, 0, 0, time.UTC)
	store := &fakeStore{workOrders: []WorkOrderRow{{
		Reference:      "WO-ABCDEF12",
		Status:         "in_production",
		Priority:       "high",
		Quantity:       120,
		Manufacturer:   &manufacturer,
		PlannedStart:   &planned,
		TotalCostCents: 123456,
		CreatedAt:      planned,
	}}}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/work-orders.csv?fromDate=2026-05-01&toDate=2026-05-31&timezone=Europe/Amsterdam&limit=10", nil)
	newTestRouter(store, tenantID).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, tenantID, store.tenant)
	assert.Equal(t, 10, store.limit)
	assert.Equal(t, time.Date(2026, 5, 31, 23, 59, 59, 0, time.UTC), store.to)

	records := readCSV(t, rec.Body.String())
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Parameters:TimeZone=Europe/Amsterdam"}, records[0])
	assert.Equal(t, workOrderHeaders, records[1])
	row := records[2]
	assert.Equal(t, "WO-ABCDEF12", row[0])
	assert.Equal(t, "120", row[3])
	assert.Equal(t, "Stitch & Co", row[4])
	assert.Equal(t, "2026-05-04 09:30", row[5])
	assert.Equal(t, "", row[6])
	assert.Equal(t, "1234.56", row[9])
}

func TestExportPurchaseOrdersCSVDefaultsLimit(t *testing.T) {
	store := &fakeStore{purchases: []PurchaseOrderRow{{
		PONumber:   "PO-2026-0007",
		Status:     "approved",
		Supplier:   "Textile Co",
		TotalCents: 5,
		CreatedAt:  time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
	}}}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/purchase-orders.csv?limit=999999", nil)
	newTestRouter(store, uuid.New()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, maxLimit, store.limit)
	records := readCSV(t, rec.Body.String())
	require.Len(t, records, 3)
	assert.Equal(t, []string{"PO-2026-0007", "approved", "Textile Co", "0.05", "", "", "", "2026-01-02 00:00"}, records[2])
}

func TestExportRejectsBadInput(t *testing.T) {
	router := newTestRouter(&fakeStore{}, uuid.New())

	cases := []string{
		"/work-orders.csv?fromDate=2026-05-10&toDate=2026-05-01",
		"/work-orders.csv?fromDate=yesterday",
		"/purchase-orders.csv?timezone=Mars/Olympus",
	}
	for _, target := range cases {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "0.00", formatCents(0))
	assert.Equal(t, "12.05", formatCents(1205))
	assert.Equal(t, "-3.40", formatCents(-340))
}
