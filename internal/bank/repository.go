package bank

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/onlytop/finanzas-core/internal/money"
	"github.com/onlytop/finanzas-core/internal/shared"
)

// Repository reads and corrects the singleton balance. Movement adjustments
// and the consolidation transfer live in the ledger and consol repositories
// respectively, because they must execute inside those modules'
// transactions; the SQL discipline (single-statement increments, never
// read-then-write) is shared.
type Repository interface {
	Get(ctx context.Context) (Bank, error)
	// Ensure bootstraps the singleton row if missing.
	Ensure(ctx context.Context, periodoActual string) error
	// AdjustConsolidated applies an explicit audited correction as one
	// atomic increment.
	AdjustConsolidated(ctx context.Context, delta money.Amount) (Bank, error)
	// SetSimulation overwrites the fixed-expense projection figure.
	SetSimulation(ctx context.Context, value money.Amount) (Bank, error)
	// ResetSimulation zeroes the projection field.
	ResetSimulation(ctx context.Context) (Bank, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

// Columns is the scan order ScanRow expects. Queries elsewhere that feed
// ScanRow must select exactly this list.
const Columns = `dinero_consolidado_usd, dinero_movimiento_usd, simulacion_gastos_fijos_usd, periodo_actual, total_periodos_consolidados, updated_at`

// ScanRow reads a bank row in column order. Exported for the ledger and
// consol tx repositories that RETURNING the row they just adjusted.
func ScanRow(row pgx.Row) (Bank, error) {
	var b Bank
	var consolidado, movimiento, simulacion int64
	err := row.Scan(&consolidado, &movimiento, &simulacion, &b.PeriodoActual, &b.TotalPeriodosConsolidados, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Bank{}, fmt.Errorf("bank: singleton row missing: %w", shared.ErrNotFound)
		}
		return Bank{}, err
	}
	b.DineroConsolidadoUSD = money.Amount(consolidado)
	b.DineroMovimientoUSD = money.Amount(movimiento)
	b.SimulacionAfectoGastosFijosUSD = money.Amount(simulacion)
	return b, nil
}

func (r *repository) Get(ctx context.Context) (Bank, error) {
	return ScanRow(r.db.QueryRow(ctx, `SELECT `+Columns+` FROM bank WHERE id=$1`, SingletonID))
}

func (r *repository) Ensure(ctx context.Context, periodoActual string) error {
	_, err := r.db.Exec(ctx, `INSERT INTO bank (id, dinero_consolidado_usd, dinero_movimiento_usd, simulacion_gastos_fijos_usd, periodo_actual, total_periodos_consolidados)
VALUES ($1, 0, 0, 0, $2, 0) ON CONFLICT (id) DO NOTHING`, SingletonID, periodoActual)
	return err
}

func (r *repository) AdjustConsolidated(ctx context.Context, delta money.Amount) (Bank, error) {
	return ScanRow(r.db.QueryRow(ctx, `UPDATE bank SET dinero_consolidado_usd = dinero_consolidado_usd + $2, updated_at = NOW()
WHERE id=$1 RETURNING `+Columns, SingletonID, int64(delta)))
}

func (r *repository) SetSimulation(ctx context.Context, value money.Amount) (Bank, error) {
	return ScanRow(r.db.QueryRow(ctx, `UPDATE bank SET simulacion_gastos_fijos_usd = $2, updated_at = NOW()
WHERE id=$1 RETURNING `+Columns, SingletonID, int64(value)))
}

func (r *repository) ResetSimulation(ctx context.Context) (Bank, error) {
	return ScanRow(r.db.QueryRow(ctx, `UPDATE bank SET simulacion_gastos_fijos_usd = 0, updated_at = NOW()
WHERE id=$1 RETURNING `+Columns, SingletonID))
}
