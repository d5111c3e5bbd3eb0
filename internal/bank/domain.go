package bank

import (
	"time"

	"github.com/onlytop/finanzas-core/internal/money"
)

// SingletonID is the fixed discriminator of the one bank row. A unique index
// on the column backs the exactly-one-document invariant at the store level.
const SingletonID = 1

// Bank is the agency's single global balance record. DineroConsolidado only
// grows during consolidation (or by an explicit audited correction);
// DineroMovimiento tracks the in-flight period and is zeroed atomically with
// the consolidated increment. There is no direct field-assignment API: every
// mutation is a single SQL increment or the guarded transfer.
type Bank struct {
	DineroConsolidadoUSD           money.Amount `json:"dinero_consolidado_usd"`
	DineroMovimientoUSD            money.Amount `json:"dinero_movimiento_usd"`
	SimulacionAfectoGastosFijosUSD money.Amount `json:"simulacion_afecto_gastos_fijos_usd"`
	PeriodoActual                  string       `json:"periodo_actual"`
	TotalPeriodosConsolidados      int          `json:"total_periodos_consolidados"`
	UpdatedAt                      time.Time    `json:"updated_at"`
}

// TotalUSD is the dashboard headline figure.
func (b Bank) TotalUSD() money.Amount {
	return b.DineroConsolidadoUSD.Add(b.DineroMovimientoUSD)
}
