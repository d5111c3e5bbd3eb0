package finanzas

import (
	"fmt"
	"time"

	"github.com/onlytop/finanzas-core/internal/money"
	"github.com/onlytop/finanzas-core/internal/shared"
)

// Status is the payment lifecycle of a per-model finance record. Monetary
// fields freeze at consolidation; only the status keeps advancing.
type Status string

const (
	StatusCalculado         Status = "CALCULADO"
	StatusPendienteRevision Status = "PENDIENTE_REVISION"
	StatusAprobado          Status = "APROBADO"
	StatusPagado            Status = "PAGADO"
)

// ValidTransition reports whether the payment status may advance. The chain
// only moves forward: CALCULADO -> PENDIENTE_REVISION -> APROBADO -> PAGADO.
func ValidTransition(from, to Status) bool {
	order := map[Status]int{
		StatusCalculado:         0,
		StatusPendienteRevision: 1,
		StatusAprobado:          2,
		StatusPagado:            3,
	}
	fromIdx, okFrom := order[from]
	toIdx, okTo := order[to]
	return okFrom && okTo && toIdx == fromIdx+1
}

// ModelFinance is one model's finance record for one calendar month, unique
// per (modeloId, mes, anio). PeriodoID stays nil until the month is frozen
// into a consolidated snapshot.
type ModelFinance struct {
	ID       int64  `json:"id"`
	ModeloID string `json:"modelo_id"`
	Mes      int    `json:"mes"`
	Anio     int    `json:"anio"`
	Periodo  string `json:"periodo"`
	// PeriodoID links to the frozen snapshot after consolidation.
	PeriodoID *int64 `json:"periodo_id,omitempty"`

	VentasNetasUSD     money.Amount `json:"ventas_netas_usd"`
	ComisionAgenciaUSD money.Amount `json:"comision_agencia_usd"`
	ComisionBancoUSD   money.Amount `json:"comision_banco_usd"`
	GananciaModeloUSD  money.Amount `json:"ganancia_modelo_usd"`
	GananciaOnlyTopUSD money.Amount `json:"ganancia_onlytop_usd"`

	AgencyPctBP money.BasisPoints `json:"agency_pct_bp"`
	BankPctBP   money.BasisPoints `json:"bank_pct_bp"`

	Estado Status `json:"estado"`
	// LedgerTxnID points at the live INGRESO entry mirroring this record's
	// agency profit; recalculation reverses it and records a fresh one.
	LedgerTxnID *int64 `json:"ledger_txn_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Breakdown is the pure arithmetic result of the commission formula.
type Breakdown struct {
	VentasNetasUSD     money.Amount
	ComisionAgenciaUSD money.Amount
	ComisionBancoUSD   money.Amount
	GananciaModeloUSD  money.Amount
	GananciaOnlyTopUSD money.Amount
}

// Compute applies the commission formula in its fixed business order:
//
//	comisionAgencia = ventasNetas x agencyPct
//	gananciaModelo  = ventasNetas - comisionAgencia
//	comisionBanco   = comisionAgencia x bankPct
//	gananciaOnlyTop = comisionAgencia - comisionBanco
//
// The bank fee is levied only against the agency's cut, never the model's
// share. Deterministic over its inputs; zero sales yield all zeros.
func Compute(netSales money.Amount, agencyPct, bankPct money.BasisPoints) (Breakdown, error) {
	if netSales.IsNegative() {
		return Breakdown{}, fmt.Errorf("%w: negative net sales (refund adjustment happens upstream)", shared.ErrInvalidAmount)
	}
	comisionAgencia := netSales.ApplyBasisPoints(agencyPct)
	gananciaModelo := netSales.Sub(comisionAgencia)
	comisionBanco := comisionAgencia.ApplyBasisPoints(bankPct)
	gananciaOnlyTop := comisionAgencia.Sub(comisionBanco)
	return Breakdown{
		VentasNetasUSD:     netSales,
		ComisionAgenciaUSD: comisionAgencia,
		ComisionBancoUSD:   comisionBanco,
		GananciaModeloUSD:  gananciaModelo,
		GananciaOnlyTopUSD: gananciaOnlyTop,
	}, nil
}
