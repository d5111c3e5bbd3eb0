package scales

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/onlytop/finanzas-core/internal/money"
	"github.com/onlytop/finanzas-core/internal/shared"
)

// Repository encapsulates DB operations for commission scales.
type Repository interface {
	List(ctx context.Context) ([]CommissionScale, error)
	Get(ctx context.Context, id int64) (CommissionScale, error)
	GetActive(ctx context.Context) (CommissionScale, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes methods available within a transaction. Activation is
// a deactivate-all-then-activate-one swap so the single-active invariant can
// never be observed broken.
type TxRepository interface {
	Insert(ctx context.Context, scale CommissionScale) (CommissionScale, error)
	Update(ctx context.Context, scale CommissionScale) (CommissionScale, error)
	GetForUpdate(ctx context.Context, id int64) (CommissionScale, error)
	DeactivateAll(ctx context.Context) error
	Activate(ctx context.Context, id int64) error
	ClearDefault(ctx context.Context) error
	SetDefault(ctx context.Context, id int64) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const scaleColumns = `id, name, scale_type, is_active, is_default, created_at, updated_at`

func (r *repository) List(ctx context.Context) ([]CommissionScale, error) {
	rows, err := r.db.Query(ctx, `SELECT `+scaleColumns+` FROM commission_scales ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CommissionScale
	for rows.Next() {
		var s CommissionScale
		if err := rows.Scan(&s.ID, &s.Name, &s.Type, &s.IsActive, &s.IsDefault, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		rules, err := loadRules(ctx, r.db, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Rules = rules
	}
	return out, nil
}

func (r *repository) Get(ctx context.Context, id int64) (CommissionScale, error) {
	return scanScale(ctx, r.db, `SELECT `+scaleColumns+` FROM commission_scales WHERE id=$1`, id)
}

func (r *repository) GetActive(ctx context.Context) (CommissionScale, error) {
	return scanScale(ctx, r.db, `SELECT `+scaleColumns+` FROM commission_scales WHERE is_active LIMIT 1`)
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func scanScale(ctx context.Context, q querier, sql string, args ...any) (CommissionScale, error) {
	var s CommissionScale
	err := q.QueryRow(ctx, sql, args...).
		Scan(&s.ID, &s.Name, &s.Type, &s.IsActive, &s.IsDefault, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CommissionScale{}, fmt.Errorf("scales: %w", shared.ErrNotFound)
		}
		return CommissionScale{}, err
	}
	rules, err := loadRules(ctx, q, s.ID)
	if err != nil {
		return CommissionScale{}, err
	}
	s.Rules = rules
	return s, nil
}

func loadRules(ctx context.Context, q querier, scaleID int64) ([]Rule, error) {
	rows, err := q.Query(ctx, `SELECT min_usd, max_usd, percent_bp FROM commission_scale_rules WHERE scale_id=$1 ORDER BY min_usd ASC`, scaleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var rules []Rule
	for rows.Next() {
		var rule Rule
		var max *int64
		var bp int64
		if err := rows.Scan(&rule.MinUSD, &max, &bp); err != nil {
			return nil, err
		}
		rule.MaxUSD = max
		rule.PercentBP = money.BasisPoints(bp)
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) Insert(ctx context.Context, scale CommissionScale) (CommissionScale, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO commission_scales (name, scale_type, is_active, is_default)
VALUES ($1,$2,false,false) RETURNING id, created_at, updated_at`, scale.Name, scale.Type).
		Scan(&scale.ID, &scale.CreatedAt, &scale.UpdatedAt)
	if err != nil {
		return CommissionScale{}, err
	}
	scale.IsActive = false
	scale.IsDefault = false
	if err := r.replaceRules(ctx, scale.ID, scale.Rules); err != nil {
		return CommissionScale{}, err
	}
	return scale, nil
}

func (r *txRepository) Update(ctx context.Context, scale CommissionScale) (CommissionScale, error) {
	cmd, err := r.tx.Exec(ctx, `UPDATE commission_scales SET name=$2, scale_type=$3, updated_at=NOW() WHERE id=$1`,
		scale.ID, scale.Name, scale.Type)
	if err != nil {
		return CommissionScale{}, err
	}
	if cmd.RowsAffected() == 0 {
		return CommissionScale{}, fmt.Errorf("scales: %w", shared.ErrNotFound)
	}
	if err := r.replaceRules(ctx, scale.ID, scale.Rules); err != nil {
		return CommissionScale{}, err
	}
	return scanScale(ctx, r.tx, `SELECT `+scaleColumns+` FROM commission_scales WHERE id=$1`, scale.ID)
}

func (r *txRepository) replaceRules(ctx context.Context, scaleID int64, rules []Rule) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM commission_scale_rules WHERE scale_id=$1`, scaleID); err != nil {
		return err
	}
	for _, rule := range rules {
		if _, err := r.tx.Exec(ctx, `INSERT INTO commission_scale_rules (scale_id, min_usd, max_usd, percent_bp)
VALUES ($1,$2,$3,$4)`, scaleID, rule.MinUSD, rule.MaxUSD, int64(rule.PercentBP)); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) GetForUpdate(ctx context.Context, id int64) (CommissionScale, error) {
	return scanScale(ctx, r.tx, `SELECT `+scaleColumns+` FROM commission_scales WHERE id=$1 FOR UPDATE`, id)
}

func (r *txRepository) DeactivateAll(ctx context.Context) error {
	_, err := r.tx.Exec(ctx, `UPDATE commission_scales SET is_active=false, updated_at=NOW() WHERE is_active`)
	return err
}

func (r *txRepository) Activate(ctx context.Context, id int64) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE commission_scales SET is_active=true, updated_at=NOW() WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("scales: %w", shared.ErrNotFound)
	}
	return nil
}

func (r *txRepository) ClearDefault(ctx context.Context) error {
	_, err := r.tx.Exec(ctx, `UPDATE commission_scales SET is_default=false, updated_at=NOW() WHERE is_default`)
	return err
}

func (r *txRepository) SetDefault(ctx context.Context, id int64) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE commission_scales SET is_default=true, updated_at=NOW() WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("scales: %w", shared.ErrNotFound)
	}
	return nil
}
