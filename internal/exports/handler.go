package exports

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"production_backend/internal/access"
	"production_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	defaultTimezone = "UTC"
	dateLayout      = "2006-01-02"
	timeLayout      = "2006-01-02 15:04"
	defaultLimit    = 5000
	maxLimit        = 50000
)

// Store reads the rows behind each export.
type Store interface {
	ListWorkOrders(ctx context.Context, tenantID uuid.UUID, from time.Time, to time.Time, limit int) ([]WorkOrderRow, error)
	ListPurchaseOrders(ctx context.Context, tenantID uuid.UUID, from time.Time, to time.Time, limit int) ([]PurchaseOrderRow, error)
}

// Handler handles export requests.
type Handler struct {
	repo Store
}

// NewHandler creates a new export handler.
func NewHandler(repo Store) *Handler {
	return &Handler{repo: repo}
}

var workOrderHeaders = []string{
	"Reference",
	"Status",
	"Priority",
	"Quantity",
	"Manufacturer",
	"Planned Start",
	"Planned End",
	"Estimated Completion",
	"Delay Reason",
	"Total Cost",
	"Created At",
}

var purchaseOrderHeaders = []string{
	"PO Number",
	"Status",
	"Supplier",
	"Total",
	"Expected Date",
	"Approved At",
	"Received At",
	"Created At",
}

// ExportWorkOrdersCSV handles GET /api/v1/exports/work-orders.csv
func (h *Handler) ExportWorkOrdersCSV(c *gin.Context) {
	q, ok := parseQuery(c)
	if !ok {
		return
	}

	rows, err := h.repo.ListWorkOrders(c.Request.Context(), q.tenantID, q.from, q.to, q.limit)
	if httpkit.HandleError(c, err) {
		return
	}

	writer, ok := startCsvResponse(c, "work-orders.csv", q.tzName, workOrderHeaders)
	if !ok {
		return
	}
	for _, row := range rows {
		record := []string{
			row.Reference,
			row.Status,
			row.Priority,
			strconv.Itoa(row.Quantity),
			deref(row.Manufacturer),
			formatTime(row.PlannedStart, q.location),
			formatTime(row.PlannedEnd, q.location),
			formatTime(row.EstimatedCompletion, q.location),
			deref(row.DelayReason),
			formatCents(row.TotalCostCents),
			formatTime(&row.CreatedAt, q.location),
		}
		if err := writer.Write(record); err != nil {
			return
		}
	}
	writer.Flush()
}

// ExportPurchaseOrdersCSV handles GET /api/v1/exports/purchase-orders.csv
func (h *Handler) ExportPurchaseOrdersCSV(c *gin.Context) {
	q, ok := parseQuery(c)
	if !ok {
		return
	}

	rows, err := h.repo.ListPurchaseOrders(c.Request.Context(), q.tenantID, q.from, q.to, q.limit)
	if httpkit.HandleError(c, err) {
		return
	}

	writer, ok := startCsvResponse(c, "purchase-orders.csv", q.tzName, purchaseOrderHeaders)
	if !ok {
		return
	}
	for _, row := range rows {
		record := []string{
			row.PONumber,
			row.Status,
			row.Supplier,
			formatCents(row.TotalCents),
			formatTime(row.ExpectedDate, q.location),
			formatTime(row.ApprovedAt, q.location),
			formatTime(row.ReceivedAt, q.location),
			formatTime(&row.CreatedAt, q.location),
		}
		if err := writer.Write(record); err != nil {
			return
		}
	}
	writer.Flush()
}

// ---- Helpers ----

type exportQuery struct {
	tenantID uuid.UUID
	from     time.Time
	to       time.Time
	limit    int
	location *time.Location
	tzName   string
}

func parseQuery(c *gin.Context) (exportQuery, bool) {
	actor, ok := access.MustGetActor(c)
	if !ok {
		return exportQuery{}, false
	}
	fromDate, toDate, err := parseDateRange(c)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid date range", err.Error())
		return exportQuery{}, false
	}
	location, tzName, ok := parseTimezone(c)
	if !ok {
		return exportQuery{}, false
	}
	return exportQuery{
		tenantID: actor.TenantID,
		from:     fromDate,
		to:       toDate,
		limit:    parseLimit(c, defaultLimit, maxLimit),
		location: location,
		tzName:   tzName,
	}, true
}

func parseTimezone(c *gin.Context) (*time.Location, string, bool) {
	tzName := strings.TrimSpace(c.DefaultQuery("timezone", defaultTimezone))
	location, err := time.LoadLocation(tzName)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid timezone", nil)
		return nil, "", false
	}
	return location, tzName, true
}

func startCsvResponse(c *gin.Context, fileName, tzName string, headers []string) (*csv.Writer, bool) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename="+fileName)

	writer := csv.NewWriter(c.Writer)
	if err := writer.Write([]string{fmt.Sprintf("Parameters:TimeZone=%s", tzName)}); err != nil {
		return nil, false
	}
	if err := writer.Write(headers); err != nil {
		return nil, false
	}
	return writer, true
}

func parseDateRange(c *gin.Context) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	defaultFrom := now.AddDate(0, 0, -90)
	fromStr := strings.TrimSpace(c.DefaultQuery("fromDate", ""))
	toStr := strings.TrimSpace(c.DefaultQuery("toDate", ""))

	from := defaultFrom
	to := now

	if fromStr != "" {
		parsed, err := time.Parse(dateLayout, fromStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = parsed
	}
	if toStr != "" {
		parsed, err := time.Parse(dateLayout, toStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = parsed.Add(23*time.Hour + 59*time.Minute + 59*time.Second)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("toDate before fromDate")
	}
	return from, to, nil
}

func parseLimit(c *gin.Context, fallback int, max int) int {
	limit := fallback
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	if limit > max {
		return max
	}
	if limit < 1 {
		return fallback
	}
	return limit
}

func formatTime(t *time.Time, loc *time.Location) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.In(loc).Format(timeLayout)
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
