package ledger

import (
	"time"

	"github.com/onlytop/finanzas-core/internal/money"
)

// TransactionType carries the sign of a movement; amounts themselves are
// always positive magnitudes.
type TransactionType string

const (
	TypeIngreso TransactionType = "INGRESO"
	TypeEgreso  TransactionType = "EGRESO"
)

// Origin tags the business source of a movement.
type Origin string

const (
	OriginGananciaModelo Origin = "GANANCIA_MODELO"
	OriginCostoFijo      Origin = "COSTO_FIJO"
	OriginAjusteManual   Origin = "AJUSTE_MANUAL"
)

// TransactionStatus is the movement lifecycle. EN_MOVIMIENTO transactions
// are live against the bank movement balance; CONSOLIDADO ones are frozen
// into a period snapshot; REVERTIDO ones have been compensated and no longer
// count toward any balance.
type TransactionStatus string

const (
	StatusEnMovimiento TransactionStatus = "EN_MOVIMIENTO"
	StatusConsolidado  TransactionStatus = "CONSOLIDADO"
	StatusRevertido    TransactionStatus = "REVERTIDO"
)

// ReferenceKind discriminates the entity a transaction points back to.
type ReferenceKind string

const (
	RefModelFinance     ReferenceKind = "MODEL_FINANCE"
	RefFixedExpense     ReferenceKind = "FIXED_EXPENSE"
	RefManualAdjustment ReferenceKind = "MANUAL_ADJUSTMENT"
	RefReversal         ReferenceKind = "REVERSAL"
)

// Reference is the typed polymorphic pointer to the originating record.
type Reference struct {
	Kind ReferenceKind `json:"kind"`
	ID   string        `json:"id"`
}

// Transaction is one append-only ledger entry. Monetary magnitude is always
// positive; the sign lives in Tipo. Every entry carries enough data (tipo,
// monto, periodo, estado) for the reconciliation job to recompute the bank
// movement balance from scratch.
type Transaction struct {
	ID          int64             `json:"id"`
	Periodo     string            `json:"periodo"`
	Tipo        TransactionType   `json:"tipo"`
	Origen      Origin            `json:"origen"`
	MontoUSD    money.Amount      `json:"monto_usd"`
	Referencia  Reference         `json:"referencia"`
	Descripcion string            `json:"descripcion,omitempty"`
	Estado      TransactionStatus `json:"estado"`
	CreatedBy   string            `json:"created_by,omitempty"`

	// Reversal bookkeeping: set on the original when compensated.
	RevertidaPor    *int64     `json:"revertida_por,omitempty"`
	MotivoReversion *string    `json:"motivo_reversion,omitempty"`
	RevertidaAt     *time.Time `json:"revertida_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SignedAmount folds tipo into the magnitude: + for INGRESO, - for EGRESO.
func (t Transaction) SignedAmount() money.Amount {
	if t.Tipo == TypeEgreso {
		return t.MontoUSD.Neg()
	}
	return t.MontoUSD
}

// InverseType flips INGRESO<->EGRESO for compensating entries.
func (t TransactionType) Inverse() TransactionType {
	if t == TypeIngreso {
		return TypeEgreso
	}
	return TypeIngreso
}

// OriginTotal is one line of a period summary.
type OriginTotal struct {
	Origen   Origin       `json:"origen"`
	Ingresos money.Amount `json:"ingresos_usd"`
	Egresos  money.Amount `json:"egresos_usd"`
}

// PeriodSummary aggregates a period's movements (live and consolidated),
// feeding both dashboards and the consolidation orchestrator.
type PeriodSummary struct {
	Periodo   string        `json:"periodo"`
	Ingresos  money.Amount  `json:"ingresos_usd"`
	Egresos   money.Amount  `json:"egresos_usd"`
	Neto      money.Amount  `json:"neto_usd"`
	Cantidad  int           `json:"cantidad"`
	PorOrigen []OriginTotal `json:"por_origen"`
}
