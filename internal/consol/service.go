package consol

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/onlytop/finanzas-core/internal/shared"
)

// PeriodLocker serialises a consolidation against reversals and rival
// consolidations of the same period.
type PeriodLocker interface {
	Acquire(ctx context.Context, periodo string) (func(context.Context) error, error)
}

// AuditPort records consolidation actions.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service closes calendar months: it freezes the period's finance records
// and ledger entries and moves the in-movement balance into consolidated
// capital, all in one store transaction.
type Service struct {
	repo       Repository
	locks      PeriodLocker
	audit      AuditPort
	invalidate func(context.Context) error
	now        func() time.Time
}

// NewService constructs a Service instance.
func NewService(repo Repository, locks PeriodLocker, audit AuditPort) *Service {
	return &Service{repo: repo, locks: locks, audit: audit, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) {
	s.now = now
}

// WithInvalidator registers a hook run after a successful consolidation,
// used to drop cached report payloads.
func (s *Service) WithInvalidator(fn func(context.Context) error) {
	s.invalidate = fn
}

// Get returns one snapshot by id.
func (s *Service) Get(ctx context.Context, id int64) (ConsolidatedPeriod, error) {
	return s.repo.Get(ctx, id)
}

// GetByPeriodo returns the snapshot for a period code.
func (s *Service) GetByPeriodo(ctx context.Context, periodo string) (ConsolidatedPeriod, error) {
	if _, _, err := shared.ParsePeriodCode(periodo); err != nil {
		return ConsolidatedPeriod{}, err
	}
	return s.repo.GetByPeriodo(ctx, periodo)
}

// List returns snapshots newest period first.
func (s *Service) List(ctx context.Context, page, perPage int) ([]ConsolidatedPeriod, shared.Pagination, error) {
	pg := shared.NewPagination(page, perPage, 0)
	periods, total, err := s.repo.List(ctx, pg)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return periods, shared.NewPagination(pg.Page, pg.PerPage, total), nil
}

// Consolidate freezes the given month. It is idempotent in the failure
// direction: a period already CONSOLIDADO or CERRADO returns
// ErrAlreadyConsolidated and nothing moves.
func (s *Service) Consolidate(ctx context.Context, in ConsolidateInput) (ConsolidatedPeriod, error) {
	if err := in.Validate(); err != nil {
		return ConsolidatedPeriod{}, err
	}
	periodo, _ := shared.PeriodCode(in.Mes, in.Anio)
	nextPeriodo, err := shared.NextPeriodCode(in.Mes, in.Anio)
	if err != nil {
		return ConsolidatedPeriod{}, err
	}

	release, err := s.locks.Acquire(ctx, periodo)
	if err != nil {
		return ConsolidatedPeriod{}, err
	}
	defer func() { _ = release(context.WithoutCancel(ctx)) }()

	var snap ConsolidatedPeriod
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, found, err := tx.GetByPeriodoForUpdate(ctx, periodo)
		if err != nil {
			return err
		}
		if found && existing.IsFrozen() {
			return shared.ErrAlreadyConsolidated
		}

		// Bank row lock first: ledger writes touch the same row, so
		// nothing else can move money while the period closes.
		if _, err := tx.LockBank(ctx); err != nil {
			return err
		}

		totals, err := tx.AggregateFinances(ctx, in.Mes, in.Anio)
		if err != nil {
			return err
		}
		if totals.CantidadModelos == 0 {
			return shared.ErrNothingToConsolidate
		}
		ventas, err := tx.CountPeriodSales(ctx, periodo)
		if err != nil {
			return err
		}

		when := s.now().UTC()
		snap = ConsolidatedPeriod{
			Periodo:                 periodo,
			Mes:                     in.Mes,
			Anio:                    in.Anio,
			TotalVentasNetasUSD:     totals.VentasNetas,
			TotalComisionAgenciaUSD: totals.ComisionAgencia,
			TotalComisionBancoUSD:   totals.ComisionBanco,
			TotalGananciaModelosUSD: totals.GananciaModelos,
			TotalGananciaOnlyTopUSD: totals.GananciaOnlyTop,
			CantidadModelos:         totals.CantidadModelos,
			CantidadVentas:          ventas,
			Estado:                  shared.PeriodStatusConsolidated,
			Notas:                   in.Notas,
			ConsolidadoPor:          in.Actor,
			FechaConsolidacion:      &when,
			FinanzasIDs:             totals.FinanzasIDs,
		}
		if found {
			snap.ID = existing.ID
			snap, err = tx.Update(ctx, snap)
		} else {
			snap, err = tx.Insert(ctx, snap)
		}
		if err != nil {
			return err
		}

		if err := tx.StampFinances(ctx, totals.FinanzasIDs, snap.ID); err != nil {
			return err
		}
		if _, err := tx.ConsolidateTransactions(ctx, periodo); err != nil {
			return err
		}
		if _, err := tx.TransferMovementToConsolidated(ctx, nextPeriodo); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return ConsolidatedPeriod{}, err
	}

	if s.invalidate != nil {
		_ = s.invalidate(context.WithoutCancel(ctx))
	}
	s.auditRecord(ctx, in.Actor, "consol.consolidate", snap)
	return snap, nil
}

// MarkInReview flags an open period as under review ahead of the close.
// A missing snapshot row is created so the review state survives restarts.
func (s *Service) MarkInReview(ctx context.Context, mes, anio int, actor string) (ConsolidatedPeriod, error) {
	periodo, err := shared.PeriodCode(mes, anio)
	if err != nil {
		return ConsolidatedPeriod{}, err
	}
	var snap ConsolidatedPeriod
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, found, err := tx.GetByPeriodoForUpdate(ctx, periodo)
		if err != nil {
			return err
		}
		if !found {
			snap, err = tx.Insert(ctx, ConsolidatedPeriod{
				Periodo: periodo,
				Mes:     mes,
				Anio:    anio,
				Estado:  shared.PeriodStatusInReview,
			})
			return err
		}
		if err := shared.ValidatePeriodTransition(existing.Estado, shared.PeriodStatusInReview); err != nil {
			return err
		}
		if err := tx.UpdateEstado(ctx, existing.ID, shared.PeriodStatusInReview); err != nil {
			return err
		}
		existing.Estado = shared.PeriodStatusInReview
		snap = existing
		return nil
	})
	if err != nil {
		return ConsolidatedPeriod{}, err
	}
	s.auditRecord(ctx, actor, "consol.review", snap)
	return snap, nil
}

// Close archives a consolidated period.
func (s *Service) Close(ctx context.Context, id int64, actor string) (ConsolidatedPeriod, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return ConsolidatedPeriod{}, err
	}
	var snap ConsolidatedPeriod
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, found, err := tx.GetByPeriodoForUpdate(ctx, current.Periodo)
		if err != nil {
			return err
		}
		if !found {
			return shared.ErrNotFound
		}
		if err := shared.ValidatePeriodTransition(existing.Estado, shared.PeriodStatusClosed); err != nil {
			return err
		}
		if err := tx.UpdateEstado(ctx, existing.ID, shared.PeriodStatusClosed); err != nil {
			return err
		}
		existing.Estado = shared.PeriodStatusClosed
		snap = existing
		return nil
	})
	if err != nil {
		return ConsolidatedPeriod{}, err
	}
	s.auditRecord(ctx, actor, "consol.close", snap)
	return snap, nil
}

func (s *Service) auditRecord(ctx context.Context, actor, action string, p ConsolidatedPeriod) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ID:       uuid.New(),
		Actor:    actor,
		Action:   action,
		Entity:   "consolidated_period",
		EntityID: p.Periodo,
		Meta:     map[string]any{"estado": p.Estado, "modelos": p.CantidadModelos},
		At:       s.now().UTC(),
	})
}
