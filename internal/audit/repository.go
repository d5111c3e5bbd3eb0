package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/onlytop/finanzas-core/internal/shared"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Entry is one recorded action, read back from the log.
type Entry struct {
	ID         uuid.UUID      `json:"id"`
	Actor      string         `json:"actor"`
	Action     string         `json:"action"`
	Entity     string         `json:"entity"`
	EntityID   string         `json:"entity_id"`
	Meta       map[string]any `json:"meta,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Filters narrows the timeline.
type Filters struct {
	Actor    string
	Entity   string
	EntityID string
	Action   string
	From     *time.Time
	To       *time.Time
	Page     int
	PerPage  int
}

// Repository reads the audit log.
type Repository interface {
	Timeline(ctx context.Context, f Filters) ([]Entry, shared.Pagination, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Timeline(ctx context.Context, f Filters) ([]Entry, shared.Pagination, error) {
	if f.PerPage <= 0 {
		f.PerPage = defaultPageSize
	}
	if f.PerPage > maxPageSize {
		f.PerPage = maxPageSize
	}
	if f.Page <= 0 {
		f.Page = 1
	}

	where := " WHERE 1=1"
	args := []any{}
	add := func(cond string, v any) {
		args = append(args, v)
		where += fmt.Sprintf(" AND "+cond, len(args))
	}
	if f.Actor != "" {
		add("actor = $%d", f.Actor)
	}
	if f.Entity != "" {
		add("entity = $%d", f.Entity)
	}
	if f.EntityID != "" {
		add("entity_id = $%d", f.EntityID)
	}
	if f.Action != "" {
		add("action = $%d", f.Action)
	}
	if f.From != nil {
		add("occurred_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("occurred_at <= $%d", *f.To)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM audit_logs`+where, args...).Scan(&total); err != nil {
		return nil, shared.Pagination{}, fmt.Errorf("count audit logs: %w", err)
	}

	pg := shared.NewPagination(f.Page, f.PerPage, total)
	args = append(args, pg.PerPage, pg.Offset())
	query := fmt.Sprintf(`SELECT id, actor, action, entity, entity_id, meta, occurred_at
		FROM audit_logs`+where+` ORDER BY occurred_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, shared.Pagination{}, fmt.Errorf("query audit logs: %w", err)
	}
	defer rows.Close()

	out := make([]Entry, 0, pg.PerPage)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Actor, &e.Action, &e.Entity, &e.EntityID, &e.Meta, &e.OccurredAt); err != nil {
			return nil, shared.Pagination{}, err
		}
		out = append(out, e)
	}
	return out, pg, rows.Err()
}
