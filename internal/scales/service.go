package scales

import (
	"context"
	"fmt"
	"time"

	"github.com/onlytop/finanzas-core/internal/money"
	"github.com/onlytop/finanzas-core/internal/shared"
)

// AuditPort records scale lifecycle actions.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service owns commission scale lifecycle and tier resolution.
type Service struct {
	repo  Repository
	audit AuditPort
	now   func() time.Time
}

// NewService constructs a Service instance.
func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// List returns every scale with its rules.
func (s *Service) List(ctx context.Context) ([]CommissionScale, error) {
	return s.repo.List(ctx)
}

// Get returns one scale by id.
func (s *Service) Get(ctx context.Context, id int64) (CommissionScale, error) {
	return s.repo.Get(ctx, id)
}

// GetActive returns the single active scale.
func (s *Service) GetActive(ctx context.Context) (CommissionScale, error) {
	return s.repo.GetActive(ctx)
}

// Create validates and persists a new scale (inactive until activated).
func (s *Service) Create(ctx context.Context, scale CommissionScale) (CommissionScale, error) {
	if err := scale.Validate(); err != nil {
		return CommissionScale{}, err
	}
	var created CommissionScale
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var e error
		created, e = tx.Insert(ctx, scale)
		return e
	})
	if err != nil {
		return CommissionScale{}, err
	}
	return created, nil
}

// Update replaces a scale's name, type, and tier table. Invalid tier tables
// never reach the store.
func (s *Service) Update(ctx context.Context, scale CommissionScale) (CommissionScale, error) {
	if scale.ID == 0 {
		return CommissionScale{}, fmt.Errorf("scales: %w: id required", shared.ErrNotFound)
	}
	if err := scale.Validate(); err != nil {
		return CommissionScale{}, err
	}
	var updated CommissionScale
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, e := tx.GetForUpdate(ctx, scale.ID); e != nil {
			return e
		}
		var e error
		updated, e = tx.Update(ctx, scale)
		return e
	})
	if err != nil {
		return CommissionScale{}, err
	}
	return updated, nil
}

// Activate makes one scale the single active one. The deactivate-all and
// activate-one writes share a transaction so no request ever sees zero or
// two active scales.
func (s *Service) Activate(ctx context.Context, id int64, actor string) (CommissionScale, error) {
	var activated CommissionScale
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := current.Validate(); err != nil {
			return err
		}
		if err := tx.DeactivateAll(ctx); err != nil {
			return err
		}
		if err := tx.Activate(ctx, id); err != nil {
			return err
		}
		current.IsActive = true
		activated = current
		return nil
	})
	if err != nil {
		return CommissionScale{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Actor:    actor,
			Action:   "scale.activate",
			Entity:   "commission_scale",
			EntityID: fmt.Sprintf("%d", id),
			Meta:     map[string]any{"name": activated.Name},
			At:       s.now(),
		})
	}
	return activated, nil
}

// SetDefault swaps the single default scale, same discipline as Activate.
func (s *Service) SetDefault(ctx context.Context, id int64, actor string) (CommissionScale, error) {
	var marked CommissionScale
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.ClearDefault(ctx); err != nil {
			return err
		}
		if err := tx.SetDefault(ctx, id); err != nil {
			return err
		}
		current.IsDefault = true
		marked = current
		return nil
	})
	if err != nil {
		return CommissionScale{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Actor:    actor,
			Action:   "scale.set_default",
			Entity:   "commission_scale",
			EntityID: fmt.Sprintf("%d", id),
			At:       s.now(),
		})
	}
	return marked, nil
}

// ResolveForSales resolves the active scale's tier for a net-sales amount
// and returns the agency percentage to apply.
func (s *Service) ResolveForSales(ctx context.Context, netSales money.Amount) (money.BasisPoints, error) {
	scale, err := s.repo.GetActive(ctx)
	if err != nil {
		return 0, err
	}
	rule, err := scale.Resolve(netSales)
	if err != nil {
		return 0, err
	}
	return rule.PercentBP, nil
}
