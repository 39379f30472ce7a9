// Package search finds orders, design jobs, work orders and purchase orders
// by reference, customer, title or supplier from a single query box.
package search

import (
	apphttp "production_backend/internal/http"
	"production_backend/internal/search/handler"
	"production_backend/internal/search/repository"
	"production_backend/internal/search/service"
	"production_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module serves GET /search to every authenticated role.
type Module struct {
	handler *handler.Handler
}

func NewModule(pool *pgxpool.Pool, val *validator.Validator) *Module {
	return newModule(repository.New(pool), val)
}

func newModule(repo service.Searcher, val *validator.Validator) *Module {
	return &Module{handler: handler.New(service.New(repo), val)}
}

func (m *Module) Name() string { return "search" }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/search"))
}

var _ apphttp.Module = (*Module)(nil)
