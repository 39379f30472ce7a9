// Package exports streams production data as CSV for planners and
// bookkeeping.
package exports

import (
	"production_backend/internal/access"
	apphttp "production_backend/internal/http"
	"production_backend/platform/httpkit"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the exports bounded context module implementing http.Module.
type Module struct {
	handler *Handler
}

// NewModule creates and initializes the exports module.
func NewModule(pool *pgxpool.Pool) *Module {
	return &Module{handler: NewHandler(NewRepository(pool))}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "exports"
}

// RegisterRoutes mounts export routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/exports")
	group.GET("/work-orders.csv", httpkit.RequireAnyRole(access.RoleAdmin, access.RoleProduction), m.handler.ExportWorkOrdersCSV)
	group.GET("/purchase-orders.csv", httpkit.RequireAnyRole(access.RoleAdmin, access.RolePurchasing), m.handler.ExportPurchaseOrdersCSV)
}

var _ apphttp.Module = (*Module)(nil)
