package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/onlytop/finanzas-core/internal/money"
	"github.com/onlytop/finanzas-core/internal/shared"
)

// RecordInput groups fields required to append a movement.
type RecordInput struct {
	Periodo     string
	Tipo        TransactionType
	Origen      Origin
	MontoUSD    money.Amount
	Referencia  Reference
	Descripcion string
	Actor       string
}

// Validate ensures record input meets minimum criteria: positive magnitude,
// known tipo/origen, canonical period code, and a typed reference.
func (in RecordInput) Validate() error {
	if in.MontoUSD <= 0 {
		return fmt.Errorf("%w: monto must be positive, sign is carried by tipo", shared.ErrInvalidAmount)
	}
	switch in.Tipo {
	case TypeIngreso, TypeEgreso:
	default:
		return fmt.Errorf("ledger: unknown tipo %q", in.Tipo)
	}
	switch in.Origen {
	case OriginGananciaModelo, OriginCostoFijo, OriginAjusteManual:
	default:
		return fmt.Errorf("ledger: unknown origen %q", in.Origen)
	}
	if _, _, err := shared.ParsePeriodCode(in.Periodo); err != nil {
		return err
	}
	switch in.Referencia.Kind {
	case RefModelFinance, RefFixedExpense, RefManualAdjustment:
	default:
		return fmt.Errorf("ledger: unknown reference kind %q", in.Referencia.Kind)
	}
	if strings.TrimSpace(in.Referencia.ID) == "" {
		return errors.New("ledger: reference id required")
	}
	return nil
}

// ReverseInput wraps parameters for a compensating reversal.
type ReverseInput struct {
	TransaccionID int64
	Motivo        string
	Actor         string
}

// Validate checks reversal parameters.
func (in ReverseInput) Validate() error {
	if in.TransaccionID == 0 {
		return errors.New("ledger: transaction id required")
	}
	if strings.TrimSpace(in.Motivo) == "" {
		return errors.New("ledger: reversal requires a motive")
	}
	return nil
}

// ListFilter narrows dashboard listings.
type ListFilter struct {
	Periodo  string
	Tipo     TransactionType
	Origen   Origin
	Estado   TransactionStatus
	DateFrom *time.Time
	DateTo   *time.Time
	Page     int
	PerPage  int
}
