package ledger

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/onlytop/finanzas-core/internal/shared"
)

// AuditPort records ledger actions.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// PeriodLocker serialises reversals against consolidations of the same
// period. Implemented by shared.PeriodLock over redis.
type PeriodLocker interface {
	Acquire(ctx context.Context, periodo string) (func(context.Context) error, error)
}

// Service is the append-only money-movement log. Every Record/Reverse leaves
// the ledger and the bank singleton in a consistent paired state: the entry
// insert and the balance increment share one store transaction.
type Service struct {
	repo  Repository
	locks PeriodLocker
	audit AuditPort
	now   func() time.Time
}

// NewService constructs a Service instance.
func NewService(repo Repository, locks PeriodLocker, audit AuditPort) *Service {
	return &Service{repo: repo, locks: locks, audit: audit, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Get loads one transaction.
func (s *Service) Get(ctx context.Context, id int64) (Transaction, error) {
	return s.repo.Get(ctx, id)
}

// List returns a filtered, paginated slice of the ledger.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Transaction, shared.Pagination, error) {
	return s.repo.List(ctx, filter)
}

// Record appends a movement and adjusts the bank movement balance by the
// signed amount, atomically.
func (s *Service) Record(ctx context.Context, in RecordInput) (Transaction, error) {
	if err := in.Validate(); err != nil {
		return Transaction{}, err
	}
	txn := Transaction{
		Periodo:     in.Periodo,
		Tipo:        in.Tipo,
		Origen:      in.Origen,
		MontoUSD:    in.MontoUSD,
		Referencia:  in.Referencia,
		Descripcion: in.Descripcion,
		Estado:      StatusEnMovimiento,
		CreatedBy:   in.Actor,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inserted, err := tx.Insert(ctx, txn)
		if err != nil {
			return err
		}
		if _, err := tx.AdjustBankMovement(ctx, inserted.SignedAmount()); err != nil {
			return err
		}
		txn = inserted
		return nil
	})
	if err != nil {
		return Transaction{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Actor:    in.Actor,
			Action:   "ledger.record",
			Entity:   "ledger_transaction",
			EntityID: strconv.FormatInt(txn.ID, 10),
			Meta: map[string]any{
				"tipo":      string(txn.Tipo),
				"origen":    string(txn.Origen),
				"monto_usd": txn.MontoUSD.String(),
				"periodo":   txn.Periodo,
			},
			At: s.now(),
		})
	}
	return txn, nil
}

// Reverse compensates a live transaction: a new inverse-tipo entry is
// appended, the original is marked REVERTIDO, and the bank movement balance
// gets the inverse adjustment. The amount is never mutated. The period lock
// keeps reversals out of an in-flight consolidation of the same period.
func (s *Service) Reverse(ctx context.Context, in ReverseInput) (Transaction, error) {
	if err := in.Validate(); err != nil {
		return Transaction{}, err
	}
	original, err := s.repo.Get(ctx, in.TransaccionID)
	if err != nil {
		return Transaction{}, err
	}
	if err := checkReversible(original); err != nil {
		return Transaction{}, err
	}

	release, err := s.locks.Acquire(ctx, original.Periodo)
	if err != nil {
		return Transaction{}, err
	}
	defer func() { _ = release(context.WithoutCancel(ctx)) }()

	var reversal Transaction
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, in.TransaccionID)
		if err != nil {
			return err
		}
		if err := checkReversible(current); err != nil {
			return err
		}
		// The compensating entry is born REVERTIDO: its balance effect is
		// applied here and it must never count again at consolidation.
		inserted, err := tx.Insert(ctx, Transaction{
			Periodo:  current.Periodo,
			Tipo:     current.Tipo.Inverse(),
			Origen:   current.Origen,
			MontoUSD: current.MontoUSD,
			Referencia: Reference{
				Kind: RefReversal,
				ID:   strconv.FormatInt(current.ID, 10),
			},
			Descripcion: fmt.Sprintf("Reversión de transacción %d: %s", current.ID, in.Motivo),
			Estado:      StatusRevertido,
			CreatedBy:   in.Actor,
		})
		if err != nil {
			return err
		}
		if err := tx.MarkReversed(ctx, current.ID, inserted.ID, in.Motivo, s.now()); err != nil {
			return err
		}
		if _, err := tx.AdjustBankMovement(ctx, current.SignedAmount().Neg()); err != nil {
			return err
		}
		reversal = inserted
		return nil
	})
	if err != nil {
		return Transaction{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Actor:    in.Actor,
			Action:   "ledger.reverse",
			Entity:   "ledger_transaction",
			EntityID: strconv.FormatInt(in.TransaccionID, 10),
			Meta: map[string]any{
				"reversal_id": reversal.ID,
				"motivo":      in.Motivo,
			},
			At: s.now(),
		})
	}
	return reversal, nil
}

func checkReversible(t Transaction) error {
	switch t.Estado {
	case StatusEnMovimiento:
		return nil
	case StatusRevertido:
		return fmt.Errorf("ledger: transaction %d: %w", t.ID, shared.ErrAlreadyReversed)
	default:
		return fmt.Errorf("ledger: transaction %d: %w", t.ID, shared.ErrAlreadyConsolidated)
	}
}

// SummarizePeriod aggregates a period's live and consolidated movements.
func (s *Service) SummarizePeriod(ctx context.Context, periodo string) (PeriodSummary, error) {
	if _, _, err := shared.ParsePeriodCode(periodo); err != nil {
		return PeriodSummary{}, err
	}
	return s.repo.SummarizePeriod(ctx, periodo)
}
