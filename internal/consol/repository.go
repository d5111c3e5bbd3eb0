package consol

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/onlytop/finanzas-core/internal/bank"
	"github.com/onlytop/finanzas-core/internal/platform/db"
	"github.com/onlytop/finanzas-core/internal/shared"
)

// Repository exposes read access to consolidated period snapshots plus a
// transactional scope for the consolidation itself.
type Repository interface {
	Get(ctx context.Context, id int64) (ConsolidatedPeriod, error)
	GetByPeriodo(ctx context.Context, periodo string) (ConsolidatedPeriod, error)
	List(ctx context.Context, p shared.Pagination) ([]ConsolidatedPeriod, int, error)
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
}

// TxRepository is the set of statements that must share one store
// transaction during consolidation. The bank row lock comes first so
// concurrent ledger writes queue behind the close.
type TxRepository interface {
	GetByPeriodoForUpdate(ctx context.Context, periodo string) (ConsolidatedPeriod, bool, error)
	LockBank(ctx context.Context) (bank.Bank, error)
	AggregateFinances(ctx context.Context, mes, anio int) (FinanceTotals, error)
	CountPeriodSales(ctx context.Context, periodo string) (int, error)
	Insert(ctx context.Context, p ConsolidatedPeriod) (ConsolidatedPeriod, error)
	Update(ctx context.Context, p ConsolidatedPeriod) (ConsolidatedPeriod, error)
	UpdateEstado(ctx context.Context, id int64, estado string) error
	StampFinances(ctx context.Context, ids []int64, periodoID int64) error
	ConsolidateTransactions(ctx context.Context, periodo string) (int, error)
	TransferMovementToConsolidated(ctx context.Context, nextPeriodo string) (bank.Bank, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const periodColumns = `id, periodo, mes, anio,
	total_ventas_netas_usd, total_comision_agencia_usd, total_comision_banco_usd,
	total_ganancia_modelos_usd, total_ganancia_onlytop_usd,
	cantidad_modelos, cantidad_ventas,
	estado, notas, consolidado_por, fecha_consolidacion, finanzas_ids,
	created_at, updated_at`

func scanPeriod(row pgx.Row) (ConsolidatedPeriod, error) {
	var p ConsolidatedPeriod
	err := row.Scan(&p.ID, &p.Periodo, &p.Mes, &p.Anio,
		&p.TotalVentasNetasUSD, &p.TotalComisionAgenciaUSD, &p.TotalComisionBancoUSD,
		&p.TotalGananciaModelosUSD, &p.TotalGananciaOnlyTopUSD,
		&p.CantidadModelos, &p.CantidadVentas,
		&p.Estado, &p.Notas, &p.ConsolidadoPor, &p.FechaConsolidacion, &p.FinanzasIDs,
		&p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *repository) Get(ctx context.Context, id int64) (ConsolidatedPeriod, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+periodColumns+` FROM consolidated_periods WHERE id = $1`, id)
	p, err := scanPeriod(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return ConsolidatedPeriod{}, shared.ErrNotFound
	}
	return p, err
}

func (r *repository) GetByPeriodo(ctx context.Context, periodo string) (ConsolidatedPeriod, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+periodColumns+` FROM consolidated_periods WHERE periodo = $1`, periodo)
	p, err := scanPeriod(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return ConsolidatedPeriod{}, shared.ErrNotFound
	}
	return p, err
}

func (r *repository) List(ctx context.Context, pg shared.Pagination) ([]ConsolidatedPeriod, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM consolidated_periods`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count consolidated periods: %w", err)
	}
	rows, err := r.pool.Query(ctx, `SELECT `+periodColumns+`
		FROM consolidated_periods
		ORDER BY anio DESC, mes DESC
		LIMIT $1 OFFSET $2`, pg.PerPage, pg.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list consolidated periods: %w", err)
	}
	defer rows.Close()

	out := make([]ConsolidatedPeriod, 0, pg.PerPage)
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (r *repository) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{q: tx})
	})
}

type txRepository struct {
	q querier
}

func (t *txRepository) GetByPeriodoForUpdate(ctx context.Context, periodo string) (ConsolidatedPeriod, bool, error) {
	row := t.q.QueryRow(ctx, `SELECT `+periodColumns+` FROM consolidated_periods WHERE periodo = $1 FOR UPDATE`, periodo)
	p, err := scanPeriod(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return ConsolidatedPeriod{}, false, nil
	}
	if err != nil {
		return ConsolidatedPeriod{}, false, err
	}
	return p, true, nil
}

// LockBank takes the singleton bank row lock for the rest of the
// transaction. Ledger writes increment the same row, so they serialize
// behind a consolidation in flight.
func (t *txRepository) LockBank(ctx context.Context) (bank.Bank, error) {
	row := t.q.QueryRow(ctx, `SELECT `+bank.Columns+` FROM bank WHERE id = $1 FOR UPDATE`, bank.SingletonID)
	return bank.ScanRow(row)
}

func (t *txRepository) AggregateFinances(ctx context.Context, mes, anio int) (FinanceTotals, error) {
	var ft FinanceTotals
	row := t.q.QueryRow(ctx, `SELECT
		COALESCE(SUM(ventas_netas_usd), 0),
		COALESCE(SUM(comision_agencia_usd), 0),
		COALESCE(SUM(comision_banco_usd), 0),
		COALESCE(SUM(ganancia_modelo_usd), 0),
		COALESCE(SUM(ganancia_onlytop_usd), 0),
		COUNT(*),
		COALESCE(ARRAY_AGG(id ORDER BY id) FILTER (WHERE id IS NOT NULL), '{}')
		FROM model_finances WHERE mes = $1 AND anio = $2`, mes, anio)
	if err := row.Scan(&ft.VentasNetas, &ft.ComisionAgencia, &ft.ComisionBanco,
		&ft.GananciaModelos, &ft.GananciaOnlyTop, &ft.CantidadModelos, &ft.FinanzasIDs); err != nil {
		return FinanceTotals{}, fmt.Errorf("aggregate finances %d-%d: %w", anio, mes, err)
	}
	return ft, nil
}

func (t *txRepository) CountPeriodSales(ctx context.Context, periodo string) (int, error) {
	var n int
	err := t.q.QueryRow(ctx, `SELECT COUNT(*) FROM ledger_transactions
		WHERE periodo = $1 AND tipo = 'INGRESO' AND estado IN ('EN_MOVIMIENTO', 'CONSOLIDADO')`, periodo).Scan(&n)
	return n, err
}

func (t *txRepository) Insert(ctx context.Context, p ConsolidatedPeriod) (ConsolidatedPeriod, error) {
	row := t.q.QueryRow(ctx, `INSERT INTO consolidated_periods
		(periodo, mes, anio,
		 total_ventas_netas_usd, total_comision_agencia_usd, total_comision_banco_usd,
		 total_ganancia_modelos_usd, total_ganancia_onlytop_usd,
		 cantidad_modelos, cantidad_ventas,
		 estado, notas, consolidado_por, fecha_consolidacion, finanzas_ids)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING `+periodColumns,
		p.Periodo, p.Mes, p.Anio,
		p.TotalVentasNetasUSD, p.TotalComisionAgenciaUSD, p.TotalComisionBancoUSD,
		p.TotalGananciaModelosUSD, p.TotalGananciaOnlyTopUSD,
		p.CantidadModelos, p.CantidadVentas,
		p.Estado, p.Notas, p.ConsolidadoPor, p.FechaConsolidacion, p.FinanzasIDs)
	out, err := scanPeriod(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ConsolidatedPeriod{}, shared.ErrAlreadyConsolidated
		}
		return ConsolidatedPeriod{}, fmt.Errorf("insert consolidated period %s: %w", p.Periodo, err)
	}
	return out, nil
}

func (t *txRepository) Update(ctx context.Context, p ConsolidatedPeriod) (ConsolidatedPeriod, error) {
	row := t.q.QueryRow(ctx, `UPDATE consolidated_periods SET
		total_ventas_netas_usd = $2, total_comision_agencia_usd = $3, total_comision_banco_usd = $4,
		total_ganancia_modelos_usd = $5, total_ganancia_onlytop_usd = $6,
		cantidad_modelos = $7, cantidad_ventas = $8,
		estado = $9, notas = $10, consolidado_por = $11, fecha_consolidacion = $12,
		finanzas_ids = $13, updated_at = NOW()
		WHERE id = $1
		RETURNING `+periodColumns,
		p.ID,
		p.TotalVentasNetasUSD, p.TotalComisionAgenciaUSD, p.TotalComisionBancoUSD,
		p.TotalGananciaModelosUSD, p.TotalGananciaOnlyTopUSD,
		p.CantidadModelos, p.CantidadVentas,
		p.Estado, p.Notas, p.ConsolidadoPor, p.FechaConsolidacion, p.FinanzasIDs)
	out, err := scanPeriod(row)
	if err != nil {
		return ConsolidatedPeriod{}, fmt.Errorf("update consolidated period %d: %w", p.ID, err)
	}
	return out, nil
}

func (t *txRepository) UpdateEstado(ctx context.Context, id int64, estado string) error {
	tag, err := t.q.Exec(ctx, `UPDATE consolidated_periods SET estado = $2, updated_at = NOW() WHERE id = $1`, id, estado)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (t *txRepository) StampFinances(ctx context.Context, ids []int64, periodoID int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := t.q.Exec(ctx, `UPDATE model_finances SET periodo_id = $2, updated_at = NOW() WHERE id = ANY($1)`, ids, periodoID)
	return err
}

func (t *txRepository) ConsolidateTransactions(ctx context.Context, periodo string) (int, error) {
	tag, err := t.q.Exec(ctx, `UPDATE ledger_transactions
		SET estado = 'CONSOLIDADO', updated_at = NOW()
		WHERE periodo = $1 AND estado = 'EN_MOVIMIENTO'`, periodo)
	if err != nil {
		return 0, fmt.Errorf("consolidate transactions %s: %w", periodo, err)
	}
	return int(tag.RowsAffected()), nil
}

// TransferMovementToConsolidated folds the in-movement balance into the
// consolidated balance in a single statement, so the arithmetic always
// sees the row as locked earlier in this transaction.
func (t *txRepository) TransferMovementToConsolidated(ctx context.Context, nextPeriodo string) (bank.Bank, error) {
	row := t.q.QueryRow(ctx, `UPDATE bank SET
		dinero_consolidado_usd = dinero_consolidado_usd + dinero_movimiento_usd,
		dinero_movimiento_usd = 0,
		periodo_actual = $2,
		total_periodos_consolidados = total_periodos_consolidados + 1,
		updated_at = NOW()
		WHERE id = $1
		RETURNING `+bank.Columns,
		bank.SingletonID, nextPeriodo)
	return bank.ScanRow(row)
}
