// Package purchasing manages supplier purchase orders from draft through
// approval, submission and goods receipt.
package purchasing

import (
	"production_backend/internal/events"
	apphttp "production_backend/internal/http"
	"production_backend/internal/purchasing/handler"
	"production_backend/internal/purchasing/repository"
	"production_backend/internal/purchasing/service"
	"production_backend/internal/workflow"
	"production_backend/platform/logger"
	"production_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the purchasing domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new purchasing module with all dependencies wired
func NewModule(
	pool *pgxpool.Pool,
	catalog service.Catalog,
	transitions *workflow.Validator,
	bus events.Bus,
	val *validator.Validator,
	log *logger.Logger,
) *Module {
	svc := service.New(repository.New(pool), catalog, transitions, bus, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "purchasing"
}

// Service exposes the purchasing service.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/purchase-orders"), ctx.Idempotent)
}

var _ apphttp.Module = (*Module)(nil)
