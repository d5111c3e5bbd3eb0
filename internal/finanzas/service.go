package finanzas

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/onlytop/finanzas-core/internal/ledger"
	"github.com/onlytop/finanzas-core/internal/money"
	"github.com/onlytop/finanzas-core/internal/shared"
)

// ScalePort resolves the active commission scale's percentage.
type ScalePort interface {
	ResolveForSales(ctx context.Context, netSales money.Amount) (money.BasisPoints, error)
}

// LedgerPort is the write-through channel to the movement log.
type LedgerPort interface {
	Record(ctx context.Context, in ledger.RecordInput) (ledger.Transaction, error)
	Reverse(ctx context.Context, in ledger.ReverseInput) (ledger.Transaction, error)
}

// AuditPort records finance actions.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// DefaultBankPct is the processing fee the payment rail takes from the
// agency's cut, in whole percent.
const DefaultBankPct = 2

// CalculateInput groups parameters for a (re)calculation.
type CalculateInput struct {
	ModeloID    string
	Mes         int
	Anio        int
	VentasNetas money.Amount
	// AgencyPct overrides the active scale when set (whole percent).
	AgencyPct *int64
	// BankPct defaults to DefaultBankPct when nil (whole percent).
	BankPct *int64
	Actor   string
}

// Service computes per-model finance records and mirrors the agency's net
// profit into the ledger.
type Service struct {
	repo   Repository
	scales ScalePort
	ledger LedgerPort
	audit  AuditPort
	now    func() time.Time
}

// NewService constructs a Service instance.
func NewService(repo Repository, scales ScalePort, ledgerPort LedgerPort, audit AuditPort) *Service {
	return &Service{repo: repo, scales: scales, ledger: ledgerPort, audit: audit, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Get loads one record.
func (s *Service) Get(ctx context.Context, id int64) (ModelFinance, error) {
	return s.repo.Get(ctx, id)
}

// ListByPeriodo lists a month's records.
func (s *Service) ListByPeriodo(ctx context.Context, mes, anio int) ([]ModelFinance, error) {
	if _, err := shared.PeriodCode(mes, anio); err != nil {
		return nil, err
	}
	return s.repo.ListByPeriodo(ctx, mes, anio)
}

// Calculate computes (or recomputes) a model's finance record for a month.
// Recalculation overwrites in place; an already-consolidated record rejects
// the overwrite. The agency's net profit is written through to the ledger:
// on recalculation the prior entry is reversed first so the movement balance
// always mirrors the latest figures.
func (s *Service) Calculate(ctx context.Context, in CalculateInput) (ModelFinance, error) {
	periodo, err := shared.PeriodCode(in.Mes, in.Anio)
	if err != nil {
		return ModelFinance{}, err
	}
	if in.ModeloID == "" {
		return ModelFinance{}, errors.New("finanzas: modelo id required")
	}
	if in.VentasNetas.IsNegative() {
		return ModelFinance{}, fmt.Errorf("%w: negative net sales", shared.ErrInvalidAmount)
	}

	agencyBP, err := s.resolveAgencyPct(ctx, in)
	if err != nil {
		return ModelFinance{}, err
	}
	bankPct := int64(DefaultBankPct)
	if in.BankPct != nil {
		bankPct = *in.BankPct
	}
	bankBP, err := money.PercentToBasisPoints(bankPct)
	if err != nil {
		return ModelFinance{}, err
	}

	breakdown, err := Compute(in.VentasNetas, agencyBP, bankBP)
	if err != nil {
		return ModelFinance{}, err
	}

	var saved ModelFinance
	var priorLedgerTxn *int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, found, err := tx.GetForUpdate(ctx, in.ModeloID, in.Mes, in.Anio)
		if err != nil {
			return err
		}
		if found && existing.PeriodoID != nil {
			return fmt.Errorf("finanzas: record %s %s: %w", in.ModeloID, periodo, shared.ErrAlreadyConsolidated)
		}
		if found {
			priorLedgerTxn = existing.LedgerTxnID
		}
		saved, err = tx.Upsert(ctx, ModelFinance{
			ModeloID:           in.ModeloID,
			Mes:                in.Mes,
			Anio:               in.Anio,
			Periodo:            periodo,
			VentasNetasUSD:     breakdown.VentasNetasUSD,
			ComisionAgenciaUSD: breakdown.ComisionAgenciaUSD,
			ComisionBancoUSD:   breakdown.ComisionBancoUSD,
			GananciaModeloUSD:  breakdown.GananciaModeloUSD,
			GananciaOnlyTopUSD: breakdown.GananciaOnlyTopUSD,
			AgencyPctBP:        agencyBP,
			BankPctBP:          bankBP,
			Estado:             StatusCalculado,
		})
		return err
	})
	if err != nil {
		return ModelFinance{}, err
	}

	if err := s.syncLedger(ctx, &saved, priorLedgerTxn, in.Actor); err != nil {
		return ModelFinance{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Actor:    in.Actor,
			Action:   "finanzas.calculate",
			Entity:   "model_finance",
			EntityID: strconv.FormatInt(saved.ID, 10),
			Meta: map[string]any{
				"modelo_id":    saved.ModeloID,
				"periodo":      saved.Periodo,
				"ventas_netas": saved.VentasNetasUSD.String(),
			},
			At: s.now(),
		})
	}
	return saved, nil
}

func (s *Service) resolveAgencyPct(ctx context.Context, in CalculateInput) (money.BasisPoints, error) {
	if in.AgencyPct != nil {
		return money.PercentToBasisPoints(*in.AgencyPct)
	}
	return s.scales.ResolveForSales(ctx, in.VentasNetas)
}

// syncLedger mirrors the record's agency profit into the movement log. The
// ledger itself pairs each write with its bank adjustment; here we only keep
// the pointer current. Prior entry first, so a crash between the two leaves
// the balance under- rather than double-counted and the reconciliation sweep
// flags it.
func (s *Service) syncLedger(ctx context.Context, rec *ModelFinance, priorTxn *int64, actor string) error {
	if s.ledger == nil {
		return nil
	}
	if priorTxn != nil {
		_, err := s.ledger.Reverse(ctx, ledger.ReverseInput{
			TransaccionID: *priorTxn,
			Motivo:        fmt.Sprintf("recálculo de finanzas %s %s", rec.ModeloID, rec.Periodo),
			Actor:         actor,
		})
		if err != nil && !errors.Is(err, shared.ErrAlreadyReversed) {
			return err
		}
	}
	var newTxnID *int64
	if rec.GananciaOnlyTopUSD > 0 {
		txn, err := s.ledger.Record(ctx, ledger.RecordInput{
			Periodo:  rec.Periodo,
			Tipo:     ledger.TypeIngreso,
			Origen:   ledger.OriginGananciaModelo,
			MontoUSD: rec.GananciaOnlyTopUSD,
			Referencia: ledger.Reference{
				Kind: ledger.RefModelFinance,
				ID:   strconv.FormatInt(rec.ID, 10),
			},
			Descripcion: fmt.Sprintf("Ganancia OnlyTop modelo %s periodo %s", rec.ModeloID, rec.Periodo),
			Actor:       actor,
		})
		if err != nil {
			return err
		}
		newTxnID = &txn.ID
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.SetLedgerTxn(ctx, rec.ID, newTxnID)
	})
	if err != nil {
		return err
	}
	rec.LedgerTxnID = newTxnID
	return nil
}

// AdvanceEstado moves the payment status one step forward. Post-consolidation
// this is the only mutation a record accepts.
func (s *Service) AdvanceEstado(ctx context.Context, id int64, target Status, actor string) (ModelFinance, error) {
	var updated ModelFinance
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := s.repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if !ValidTransition(current.Estado, target) {
			return fmt.Errorf("finanzas: %s -> %s: %w", current.Estado, target, shared.ErrInvalidPeriodTransition)
		}
		if err := tx.UpdateEstado(ctx, id, target); err != nil {
			return err
		}
		current.Estado = target
		updated = current
		return nil
	})
	if err != nil {
		return ModelFinance{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Actor:    actor,
			Action:   "finanzas.estado",
			Entity:   "model_finance",
			EntityID: strconv.FormatInt(id, 10),
			Meta:     map[string]any{"estado": string(target)},
			At:       s.now(),
		})
	}
	return updated, nil
}
