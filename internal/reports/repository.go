package reports

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/onlytop/finanzas-core/internal/money"
)

// CashFlowPoint is one month of movement through the ledger.
type CashFlowPoint struct {
	Periodo  string       `json:"periodo"`
	Ingresos money.Amount `json:"ingresos_usd"`
	Egresos  money.Amount `json:"egresos_usd"`
	Neto     money.Amount `json:"neto_usd"`
}

// OriginPoint breaks a period's movement down by origin.
type OriginPoint struct {
	Origen   string       `json:"origen"`
	Ingresos money.Amount `json:"ingresos_usd"`
	Egresos  money.Amount `json:"egresos_usd"`
}

// ModelShare ranks one model's contribution inside a month.
type ModelShare struct {
	ModeloID           string       `json:"modelo_id"`
	VentasNetasUSD     money.Amount `json:"ventas_netas_usd"`
	GananciaOnlyTopUSD money.Amount `json:"ganancia_onlytop_usd"`
	ComisionAgenciaUSD money.Amount `json:"comision_agencia_usd"`
	GananciaModeloUSD  money.Amount `json:"ganancia_modelo_usd"`
	PorcentajeAplicado float64      `json:"porcentaje_aplicado"`
}

// Repository is the read-only query layer behind reports. Reversed ledger
// entries never count; consolidated ones do.
type Repository interface {
	MonthlyCashFlow(ctx context.Context, fromPeriodo, toPeriodo string) ([]CashFlowPoint, error)
	OriginBreakdown(ctx context.Context, periodo string) ([]OriginPoint, error)
	TopModels(ctx context.Context, mes, anio, limit int) ([]ModelShare, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) MonthlyCashFlow(ctx context.Context, fromPeriodo, toPeriodo string) ([]CashFlowPoint, error) {
	rows, err := r.pool.Query(ctx, `SELECT periodo,
		COALESCE(SUM(monto_usd) FILTER (WHERE tipo = 'INGRESO'), 0),
		COALESCE(SUM(monto_usd) FILTER (WHERE tipo = 'EGRESO'), 0)
		FROM ledger_transactions
		WHERE periodo >= $1 AND periodo <= $2
		  AND estado IN ('EN_MOVIMIENTO', 'CONSOLIDADO')
		GROUP BY periodo
		ORDER BY periodo`, fromPeriodo, toPeriodo)
	if err != nil {
		return nil, fmt.Errorf("monthly cash flow %s..%s: %w", fromPeriodo, toPeriodo, err)
	}
	defer rows.Close()

	var out []CashFlowPoint
	for rows.Next() {
		var p CashFlowPoint
		if err := rows.Scan(&p.Periodo, &p.Ingresos, &p.Egresos); err != nil {
			return nil, err
		}
		p.Neto = p.Ingresos.Sub(p.Egresos)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repository) OriginBreakdown(ctx context.Context, periodo string) ([]OriginPoint, error) {
	rows, err := r.pool.Query(ctx, `SELECT origen,
		COALESCE(SUM(monto_usd) FILTER (WHERE tipo = 'INGRESO'), 0),
		COALESCE(SUM(monto_usd) FILTER (WHERE tipo = 'EGRESO'), 0)
		FROM ledger_transactions
		WHERE periodo = $1 AND estado IN ('EN_MOVIMIENTO', 'CONSOLIDADO')
		GROUP BY origen
		ORDER BY origen`, periodo)
	if err != nil {
		return nil, fmt.Errorf("origin breakdown %s: %w", periodo, err)
	}
	defer rows.Close()

	var out []OriginPoint
	for rows.Next() {
		var p OriginPoint
		if err := rows.Scan(&p.Origen, &p.Ingresos, &p.Egresos); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repository) TopModels(ctx context.Context, mes, anio, limit int) ([]ModelShare, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.pool.Query(ctx, `SELECT modelo_id, ventas_netas_usd, ganancia_onlytop_usd,
		comision_agencia_usd, ganancia_modelo_usd, agency_pct_bp
		FROM model_finances
		WHERE mes = $1 AND anio = $2
		ORDER BY ventas_netas_usd DESC
		LIMIT $3`, mes, anio, limit)
	if err != nil {
		return nil, fmt.Errorf("top models %d-%d: %w", anio, mes, err)
	}
	defer rows.Close()

	var out []ModelShare
	for rows.Next() {
		var m ModelShare
		var pctBP int64
		if err := rows.Scan(&m.ModeloID, &m.VentasNetasUSD, &m.GananciaOnlyTopUSD,
			&m.ComisionAgenciaUSD, &m.GananciaModeloUSD, &pctBP); err != nil {
			return nil, err
		}
		m.PorcentajeAplicado = float64(pctBP) / 100
		out = append(out, m)
	}
	return out, rows.Err()
}
