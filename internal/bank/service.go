package bank

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/onlytop/finanzas-core/internal/money"
	"github.com/onlytop/finanzas-core/internal/shared"
)

// AuditPort records balance corrections.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service exposes the read side of the singleton plus the two explicit
// mutations that bypass the ledger: consolidated-capital corrections and the
// fixed-expense simulation field.
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

// Get returns the current balance record.
func (s *Service) Get(ctx context.Context) (Bank, error) {
	return s.repo.Get(ctx)
}

// Correct applies an explicit correction to the consolidated capital. This
// is the only path that moves the consolidated figure outside consolidation
// itself, so it demands a motive and leaves an audit record.
func (s *Service) Correct(ctx context.Context, delta money.Amount, motivo, actor string) (Bank, error) {
	if delta == 0 {
		return Bank{}, fmt.Errorf("%w: correction of zero", shared.ErrInvalidAmount)
	}
	if strings.TrimSpace(motivo) == "" {
		return Bank{}, fmt.Errorf("bank: correction requires a motive")
	}
	updated, err := s.repo.AdjustConsolidated(ctx, delta)
	if err != nil {
		return Bank{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Actor:    actor,
			Action:   "bank.correct",
			Entity:   "bank",
			EntityID: fmt.Sprintf("%d", SingletonID),
			Meta: map[string]any{
				"delta_usd": delta.String(),
				"motivo":    motivo,
			},
			At: s.now(),
		})
	}
	return updated, nil
}

// SetSimulation stores a fixed-expense projection figure. Projection only;
// it never feeds into consolidation arithmetic.
func (s *Service) SetSimulation(ctx context.Context, value money.Amount) (Bank, error) {
	if value.IsNegative() {
		return Bank{}, fmt.Errorf("%w: negative simulation", shared.ErrInvalidAmount)
	}
	return s.repo.SetSimulation(ctx, value)
}

// ResetSimulation zeroes the projection field.
func (s *Service) ResetSimulation(ctx context.Context) (Bank, error) {
	return s.repo.ResetSimulation(ctx)
}
