package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"production_backend/internal/auditlog"
	"production_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	jobNotFoundMsg    = "design job not found"
	pgUniqueViolation = "23505"
)

// ErrStale is returned when a status-guarded update matched no row because
// the job moved on or does not exist in the tenant.
var ErrStale = errors.New("design job status changed concurrently")

// DesignJob represents the design job database model
type DesignJob struct {
	ID                  uuid.UUID  `db:"id"`
	TenantID            uuid.UUID  `db:"tenant_id"`
	OrderItemID         uuid.UUID  `db:"order_item_id"`
	OrderID             uuid.UUID  `db:"order_id"`
	Title               string     `db:"title"`
	Brief               string     `db:"brief"`
	Priority            string     `db:"priority"`
	RequiredSpecialties []string   `db:"required_specialties"`
	Quantity            int        `db:"quantity"`
	AssigneeID          *uuid.UUID `db:"assignee_id"`
	Status              string     `db:"status"`
	DueDate             *time.Time `db:"due_date"`
	CreatedBy           uuid.UUID  `db:"created_by"`
	CreatedAt           time.Time  `db:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at"`
}

// Asset is one uploaded design file version.
type Asset struct {
	ID          uuid.UUID `db:"id"`
	TenantID    uuid.UUID `db:"tenant_id"`
	DesignJobID uuid.UUID `db:"design_job_id"`
	Version     int       `db:"version"`
	FileKey     string    `db:"file_key"`
	FileName    string    `db:"file_name"`
	ContentType string    `db:"content_type"`
	SizeBytes   int64     `db:"size_bytes"`
	UploadedBy  uuid.UUID `db:"uploaded_by"`
	CreatedAt   time.Time `db:"created_at"`
}

// Repository provides database operations for design jobs
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new design jobs repository
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const jobColumns = `dj.id, dj.tenant_id, dj.order_item_id, i.order_id, dj.title, dj.brief, dj.priority,
	dj.required_specialties, dj.quantity, dj.assignee_id, dj.status, dj.due_date, dj.created_by,
	dj.created_at, dj.updated_at`

const jobFrom = ` FROM design_jobs dj JOIN order_items i ON i.id = dj.order_item_id`

func scanJob(row pgx.Row) (*DesignJob, error) {
	var j DesignJob
	if err := row.Scan(&j.ID, &j.TenantID, &j.OrderItemID, &j.OrderID, &j.Title, &j.Brief, &j.Priority,
		&j.RequiredSpecialties, &j.Quantity, &j.AssigneeID, &j.Status, &j.DueDate, &j.CreatedBy,
		&j.CreatedAt, &j.UpdatedAt); err != nil {
		return nil, err
	}
	return &j, nil
}

// CreateJobs inserts the jobs and their creation events in one transaction.
// A second job for the same order item is a Conflict.
func (r *Repository) CreateJobs(ctx context.Context, jobs []DesignJob) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, j := range jobs {
		_, err := tx.Exec(ctx, `
			INSERT INTO design_jobs (id, tenant_id, order_item_id, title, brief, priority, required_specialties,
				quantity, assignee_id, status, due_date, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)`,
			j.ID, j.TenantID, j.OrderItemID, j.Title, j.Brief, j.Priority, j.RequiredSpecialties,
			j.Quantity, j.AssigneeID, j.Status, j.DueDate, j.CreatedBy, j.CreatedAt,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
				return apperr.Conflict("a design job already exists for this order item").
					WithDetails(map[string]string{"orderItemId": j.OrderItemID.String()})
			}
			return fmt.Errorf("failed to create design job: %w", err)
		}
		if err := auditlog.DesignJobLog.Append(ctx, tx, j.TenantID, j.ID, j.CreatedBy, auditlog.Created{Status: j.Status}); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit design jobs: %w", err)
	}
	return nil
}

// GetJob returns a job by id regardless of tenant. Callers enforce scope.
func (r *Repository) GetJob(ctx context.Context, id uuid.UUID) (*DesignJob, error) {
	j, err := scanJob(r.pool.QueryRow(ctx, `SELECT `+jobColumns+jobFrom+` WHERE dj.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(jobNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get design job: %w", err)
	}
	return j, nil
}

// GetJobs returns the tenant's jobs among ids. Missing ids are omitted.
func (r *Repository) GetJobs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]DesignJob, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+jobColumns+jobFrom+` WHERE dj.tenant_id = $1 AND dj.id = ANY($2)`, tenantID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get design jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]DesignJob, 0, len(ids))
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan design job: %w", err)
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

// ListParams filters the job list.
type ListParams struct {
	TenantID   uuid.UUID
	Status     string
	AssigneeID *uuid.UUID
	OrderID    *uuid.UUID
	Limit      int
	Offset     int
}

// ListJobs returns a page of jobs and the total count.
func (r *Repository) ListJobs(ctx context.Context, p ListParams) ([]DesignJob, int, error) {
	where := ` WHERE dj.tenant_id = $1
		AND ($2 = '' OR dj.status = $2)
		AND ($3::uuid IS NULL OR dj.assignee_id = $3)
		AND ($4::uuid IS NULL OR i.order_id = $4)`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+jobFrom+where, p.TenantID, p.Status, p.AssigneeID, p.OrderID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count design jobs: %w", err)
	}

	rows, err := r.pool.Query(ctx, `SELECT `+jobColumns+jobFrom+where+`
		ORDER BY dj.created_at DESC, dj.id LIMIT $5 OFFSET $6`,
		p.TenantID, p.Status, p.AssigneeID, p.OrderID, p.Limit, p.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list design jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]DesignJob, 0)
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan design job: %w", err)
		}
		jobs = append(jobs, *j)
	}
	return jobs, total, rows.Err()
}

// TransitionParams describes one status-guarded change.
type TransitionParams struct {
	TenantID uuid.UUID
	ID       uuid.UUID
	From     string
	To       string
	ActorID  uuid.UUID
	// SetAssignee writes AssigneeID. Only assignment edges set it.
	SetAssignee bool
	AssigneeID  *uuid.UUID
	Events      []auditlog.Payload
}

// Transition moves the job from p.From to p.To and appends p.Events in the
// same transaction. ErrStale means no row matched the expected status.
func (r *Repository) Transition(ctx context.Context, p TransitionParams) (*DesignJob, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE design_jobs
		SET status = $4,
			assignee_id = CASE WHEN $5 THEN $6 ELSE assignee_id END,
			updated_at = now()
		WHERE id = $1 AND tenant_id = $2 AND status = $3`,
		p.ID, p.TenantID, p.From, p.To, p.SetAssignee, p.AssigneeID)
	if err != nil {
		return nil, fmt.Errorf("failed to update design job status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrStale
	}

	for _, ev := range p.Events {
		if err := auditlog.DesignJobLog.Append(ctx, tx, p.TenantID, p.ID, p.ActorID, ev); err != nil {
			return nil, err
		}
	}

	job, err := scanJob(tx.QueryRow(ctx, `SELECT `+jobColumns+jobFrom+` WHERE dj.id = $1`, p.ID))
	if err != nil {
		return nil, fmt.Errorf("failed to reload design job: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit design job transition: %w", err)
	}
	return job, nil
}

// AppendEvent records an event that does not change status.
func (r *Repository) AppendEvent(ctx context.Context, tenantID, jobID, actorID uuid.UUID, p auditlog.Payload) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := auditlog.DesignJobLog.Append(ctx, tx, tenantID, jobID, actorID, p); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ListEvents returns the job's audit log oldest first.
func (r *Repository) ListEvents(ctx context.Context, tenantID, jobID uuid.UUID) ([]auditlog.Entry, error) {
	return auditlog.DesignJobLog.List(ctx, r.pool, tenantID, jobID)
}

// CreateAsset stores the next version of a job's design file. The job row is
// locked so concurrent uploads get consecutive versions.
func (r *Repository) CreateAsset(ctx context.Context, a Asset) (*Asset, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var locked uuid.UUID
	if err := tx.QueryRow(ctx, `SELECT id FROM design_jobs WHERE id = $1 AND tenant_id = $2 FOR UPDATE`,
		a.DesignJobID, a.TenantID).Scan(&locked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(jobNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to lock design job: %w", err)
	}

	if err := tx.QueryRow(ctx, `
		INSERT INTO design_assets (id, tenant_id, design_job_id, version, file_key, file_name, content_type,
			size_bytes, uploaded_by, created_at)
		SELECT $1, $2, $3, COALESCE(MAX(version), 0) + 1, $4, $5, $6, $7, $8, $9
		FROM design_assets WHERE design_job_id = $3
		RETURNING version`,
		a.ID, a.TenantID, a.DesignJobID, a.FileKey, a.FileName, a.ContentType, a.SizeBytes, a.UploadedBy, a.CreatedAt,
	).Scan(&a.Version); err != nil {
		return nil, fmt.Errorf("failed to create design asset: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit design asset: %w", err)
	}
	return &a, nil
}

// ListAssets returns every version of the job's files, newest first.
func (r *Repository) ListAssets(ctx context.Context, tenantID, jobID uuid.UUID) ([]Asset, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, design_job_id, version, file_key, file_name, content_type, size_bytes, uploaded_by, created_at
		FROM design_assets WHERE design_job_id = $1 AND tenant_id = $2
		ORDER BY version DESC`, jobID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list design assets: %w", err)
	}
	defer rows.Close()

	assets := make([]Asset, 0)
	for rows.Next() {
		var a Asset
		if err := rows.Scan(&a.ID, &a.TenantID, &a.DesignJobID, &a.Version, &a.FileKey, &a.FileName,
			&a.ContentType, &a.SizeBytes, &a.UploadedBy, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan design asset: %w", err)
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}
