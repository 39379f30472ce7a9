// Package workorders manages production work orders, their manufacturer
// assignment, milestones and material needs.
package workorders

import (
	"production_backend/internal/events"
	apphttp "production_backend/internal/http"
	"production_backend/internal/workflow"
	"production_backend/internal/workorders/handler"
	"production_backend/internal/workorders/repository"
	"production_backend/internal/workorders/service"
	"production_backend/platform/logger"
	"production_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the work orders domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new work orders module with all dependencies wired
func NewModule(
	pool *pgxpool.Pool,
	designJobs service.DesignJobReader,
	manufacturers service.ManufacturerDirectory,
	materials service.MaterialCatalog,
	transitions *workflow.Validator,
	bus events.Bus,
	val *validator.Validator,
	log *logger.Logger,
) *Module {
	svc := service.New(repository.New(pool), designJobs, manufacturers, materials, transitions, bus, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "workorders"
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/work-orders"))
	m.handler.RegisterManufacturerRoutes(ctx.Protected.Group("/manufacturers"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
