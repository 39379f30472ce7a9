// Package workforce provides the directory of members, designers,
// manufacturers, suppliers and materials that production work is matched
// against.
package workforce

import (
	apphttp "production_backend/internal/http"
	"production_backend/internal/workforce/handler"
	"production_backend/internal/workforce/repository"
	"production_backend/internal/workforce/service"
	"production_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the workforce domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates a new workforce module with all dependencies wired
func NewModule(pool *pgxpool.Pool, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
		repo:    repo,
	}
}

// Service exposes the directory to other modules through adapters.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository exposes raw directory reads for assignment sources.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "workforce"
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected)
	m.handler.RegisterAdminRoutes(ctx.Admin, ctx.Idempotent)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
