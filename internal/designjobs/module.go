// Package designjobs manages design jobs from creation through designer
// assignment, submission and review.
package designjobs

import (
	"production_backend/internal/designjobs/handler"
	"production_backend/internal/designjobs/repository"
	"production_backend/internal/designjobs/service"
	"production_backend/internal/events"
	apphttp "production_backend/internal/http"
	"production_backend/internal/workflow"
	"production_backend/platform/logger"
	"production_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the design jobs domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new design jobs module with all dependencies wired
func NewModule(
	pool *pgxpool.Pool,
	items service.OrderItemReader,
	designers service.DesignerDirectory,
	transitions *workflow.Validator,
	bus events.Bus,
	val *validator.Validator,
	log *logger.Logger,
) *Module {
	svc := service.New(repository.New(pool), items, designers, transitions, bus, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// SetAssetStorage enables design asset uploads.
func (m *Module) SetAssetStorage(storage service.AssetStorage) {
	m.service.SetAssetStorage(storage)
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "designjobs"
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/design-jobs"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)

// Service exposes design job lookups to the work order module.
func (m *Module) Service() *service.Service {
	return m.service
}
