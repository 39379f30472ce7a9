package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type SearchResult struct {
	ID           uuid.UUID
	Type         string
	Title        string
	Subtitle     string
	Status       string
	MatchedField string
	Score        float32
	CreatedAt    time.Time
	Total        int64
}

// Params narrows a search. Empty Types searches every entity; a non-nil
// DesignerID limits design jobs to that assignee.
type Params struct {
	TenantID   uuid.UUID
	Query      string
	Types      []string
	DesignerID *uuid.UUID
	Limit      int
}

// Scores: exact reference 3, reference prefix 2, anything else 1.
const globalSearchSQL = `
	WITH hits AS (
		SELECT o.id, 'order' AS type, o.reference AS title, o.customer_name AS subtitle,
			o.status, o.created_at,
			CASE WHEN lower(o.reference) = lower($2) THEN 'reference'
				WHEN o.reference ILIKE $3 THEN 'reference'
				WHEN o.customer_name ILIKE $4 THEN 'customer_name'
				ELSE 'customer_email' END AS matched_field,
			CASE WHEN lower(o.reference) = lower($2) THEN 3
				WHEN o.reference ILIKE $3 THEN 2 ELSE 1 END AS score
		FROM orders o
		WHERE o.tenant_id = $1
			AND ($5::text[] IS NULL OR 'order' = ANY($5))
			AND (o.reference ILIKE $4 OR o.customer_name ILIKE $4 OR coalesce(o.customer_email, '') ILIKE $4)
		UNION ALL
		SELECT dj.id, 'design_job', dj.title, dj.priority, dj.status, dj.created_at,
			CASE WHEN dj.title ILIKE $4 THEN 'title' ELSE 'brief' END,
			CASE WHEN dj.title ILIKE $3 THEN 2 ELSE 1 END
		FROM design_jobs dj
		WHERE dj.tenant_id = $1
			AND ($5::text[] IS NULL OR 'design_job' = ANY($5))
			AND ($6::uuid IS NULL OR dj.assignee_id = $6)
			AND (dj.title ILIKE $4 OR dj.brief ILIKE $4)
		UNION ALL
		SELECT wo.id, 'work_order', wo.reference, wo.priority, wo.status, wo.created_at,
			'reference',
			CASE WHEN lower(wo.reference) = lower($2) THEN 3
				WHEN wo.reference ILIKE $3 THEN 2 ELSE 1 END
		FROM work_orders wo
		WHERE wo.tenant_id = $1
			AND ($5::text[] IS NULL OR 'work_order' = ANY($5))
			AND wo.reference ILIKE $4
		UNION ALL
		SELECT po.id, 'purchase_order', po.po_number, s.name, po.status, po.created_at,
			CASE WHEN po.po_number ILIKE $4 THEN 'po_number' ELSE 'supplier' END,
			CASE WHEN lower(po.po_number) = lower($2) THEN 3
				WHEN po.po_number ILIKE $3 THEN 2 ELSE 1 END
		FROM purchase_orders po
		JOIN suppliers s ON s.id = po.supplier_id
		WHERE po.tenant_id = $1
			AND ($5::text[] IS NULL OR 'purchase_order' = ANY($5))
			AND (po.po_number ILIKE $4 OR s.name ILIKE $4)
	)
	SELECT id, type, title, subtitle, status, matched_field, score::real, created_at,
		COUNT(*) OVER() AS total
	FROM hits
	ORDER BY score DESC, created_at DESC
	LIMIT $7`

func (r *Repository) GlobalSearch(ctx context.Context, p Params) ([]SearchResult, error) {
	term := escapeLike(p.Query)
	var types []string
	if len(p.Types) > 0 {
		types = p.Types
	}

	rows, err := r.pool.Query(ctx, globalSearchSQL,
		p.TenantID, p.Query, term+"%", "%"+term+"%", types, p.DesignerID, p.Limit)
	if err != nil {
		return nil, fmt.Errorf("global search: %w", err)
	}
	defer rows.Close()

	results := make([]SearchResult, 0, p.Limit)
	for rows.Next() {
		var res SearchResult
		if err := rows.Scan(&res.ID, &res.Type, &res.Title, &res.Subtitle, &res.Status,
			&res.MatchedField, &res.Score, &res.CreatedAt, &res.Total); err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
