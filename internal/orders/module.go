// Package orders records customer orders and keeps their production status
// derived from the design jobs and work orders of each item.
package orders

import (
	"production_backend/internal/events"
	apphttp "production_backend/internal/http"
	"production_backend/internal/orders/handler"
	"production_backend/internal/orders/repository"
	"production_backend/internal/orders/service"
	"production_backend/platform/logger"
	"production_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the orders domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new orders module and subscribes order-state
// derivation to child lifecycle events.
func NewModule(pool *pgxpool.Pool, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), bus, log)
	svc.RegisterHandlers(bus)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Service exposes order item lookups to the lifecycle modules.
func (m *Module) Service() *service.Service {
	return m.service
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "orders"
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/orders"), ctx.Idempotent)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
