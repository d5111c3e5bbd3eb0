package consol

import (
	"errors"
	"strings"
	"time"

	"github.com/onlytop/finanzas-core/internal/money"
	"github.com/onlytop/finanzas-core/internal/shared"
)

// ConsolidatedPeriod is the frozen snapshot of one calendar month. Once the
// estado reaches CONSOLIDADO the totals and the referenced finance records
// are immutable; CERRADO is archival and cannot be reopened through the API.
type ConsolidatedPeriod struct {
	ID      int64  `json:"id"`
	Periodo string `json:"periodo"`
	Mes     int    `json:"mes"`
	Anio    int    `json:"anio"`

	TotalVentasNetasUSD     money.Amount `json:"total_ventas_netas_usd"`
	TotalComisionAgenciaUSD money.Amount `json:"total_comision_agencia_usd"`
	TotalComisionBancoUSD   money.Amount `json:"total_comision_banco_usd"`
	TotalGananciaModelosUSD money.Amount `json:"total_ganancia_modelos_usd"`
	TotalGananciaOnlyTopUSD money.Amount `json:"total_ganancia_onlytop_usd"`

	CantidadModelos int `json:"cantidad_modelos"`
	CantidadVentas  int `json:"cantidad_ventas"`

	Estado             string     `json:"estado"`
	Notas              string     `json:"notas,omitempty"`
	ConsolidadoPor     string     `json:"consolidado_por,omitempty"`
	FechaConsolidacion *time.Time `json:"fecha_consolidacion,omitempty"`

	FinanzasIDs []int64 `json:"finanzas_ids,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsFrozen reports whether the snapshot rejects re-consolidation.
func (p ConsolidatedPeriod) IsFrozen() bool {
	return p.Estado == shared.PeriodStatusConsolidated || p.Estado == shared.PeriodStatusClosed
}

// FinanceTotals is the aggregation over a month's finance records.
type FinanceTotals struct {
	VentasNetas     money.Amount
	ComisionAgencia money.Amount
	ComisionBanco   money.Amount
	GananciaModelos money.Amount
	GananciaOnlyTop money.Amount
	CantidadModelos int
	FinanzasIDs     []int64
}

// ConsolidateInput wraps parameters for closing a period.
type ConsolidateInput struct {
	Mes   int
	Anio  int
	Notas string
	Actor string
}

// Validate checks consolidation parameters.
func (in ConsolidateInput) Validate() error {
	if _, err := shared.PeriodCode(in.Mes, in.Anio); err != nil {
		return err
	}
	if strings.TrimSpace(in.Actor) == "" {
		return errors.New("consol: actor required")
	}
	return nil
}
