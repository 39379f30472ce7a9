package service

import (
	"context"
	"math"
	"strings"

	"github.com/google/uuid"

	"production_backend/internal/access"
	"production_backend/internal/search/repository"
	"production_backend/internal/search/transport"
	"production_backend/platform/apperr"
)

const defaultLimit = 10

// Searcher runs the tenant-scoped query.
type Searcher interface {
	GlobalSearch(ctx context.Context, p repository.Params) ([]repository.SearchResult, error)
}

type Service struct {
	repo Searcher
}

func New(repo Searcher) *Service {
	return &Service{repo: repo}
}

// GlobalSearch matches q across the production entities. Designers without
// the admin role only see design jobs assigned to them.
func (s *Service) GlobalSearch(ctx context.Context, actor access.Actor, req transport.SearchRequest) (*transport.SearchResponse, error) {
	q := strings.TrimSpace(req.Query)
	if q == "" {
		return &transport.SearchResponse{Items: []transport.SearchResultItem{}, Total: 0}, nil
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	params := repository.Params{
		TenantID: actor.TenantID,
		Query:    q,
		Types:    req.Types,
		Limit:    limit,
	}
	if !actor.IsAdmin() && actor.HasRole(access.RoleDesigner) {
		designer := actor.UserID
		params.DesignerID = &designer
	}

	results, err := s.repo.GlobalSearch(ctx, params)
	if err != nil {
		appErr := apperr.Internal("search failed").WithOp("search.GlobalSearch")
		appErr.Err = err
		return nil, appErr
	}

	total := 0
	if len(results) > 0 {
		// COUNT(*) OVER() returns bigint
		total = int(min(results[0].Total, math.MaxInt32))
	}

	items := make([]transport.SearchResultItem, len(results))
	for i, r := range results {
		items[i] = transport.SearchResultItem{
			ID:           r.ID.String(),
			Type:         r.Type,
			Title:        r.Title,
			Subtitle:     r.Subtitle,
			Status:       r.Status,
			Link:         buildFrontendLink(r.Type, r.ID),
			Score:        float64(r.Score),
			MatchedField: r.MatchedField,
			CreatedAt:    r.CreatedAt,
		}
	}

	return &transport.SearchResponse{Items: items, Total: total}, nil
}

func buildFrontendLink(entityType string, id uuid.UUID) string {
	switch entityType {
	case "order":
		return "/app/orders/" + id.String()
	case "design_job":
		return "/app/design-jobs/" + id.String()
	case "work_order":
		return "/app/work-orders/" + id.String()
	case "purchase_order":
		return "/app/purchase-orders/" + id.String()
	default:
		return "/app"
	}
}
