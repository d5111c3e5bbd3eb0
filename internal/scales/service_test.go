package scales

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onlytop/finanzas-core/internal/money"
	"github.com/onlytop/finanzas-core/internal/shared"
)

// ============================================================================
// MOCK REPOSITORY
// ============================================================================

type mockRepository struct {
	scales map[int64]*CommissionScale
	nextID int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{scales: make(map[int64]*CommissionScale), nextID: 1}
}

func (m *mockRepository) List(ctx context.Context) ([]CommissionScale, error) {
	var out []CommissionScale
	for _, s := range m.scales {
		out = append(out, *s)
	}
	return out, nil
}

func (m *mockRepository) Get(ctx context.Context, id int64) (CommissionScale, error) {
	s, ok := m.scales[id]
	if !ok {
		return CommissionScale{}, shared.ErrNotFound
	}
	return *s, nil
}

func (m *mockRepository) GetActive(ctx context.Context) (CommissionScale, error) {
	for _, s := range m.scales {
		if s.IsActive {
			return *s, nil
		}
	}
	return CommissionScale{}, shared.ErrNotFound
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &mockTxRepo{mock: m})
}

type mockTxRepo struct {
	mock *mockRepository
}

func (t *mockTxRepo) Insert(ctx context.Context, scale CommissionScale) (CommissionScale, error) {
	scale.ID = t.mock.nextID
	t.mock.nextID++
	scale.IsActive = false
	scale.IsDefault = false
	cp := scale
	t.mock.scales[scale.ID] = &cp
	return scale, nil
}

func (t *mockTxRepo) Update(ctx context.Context, scale CommissionScale) (CommissionScale, error) {
	existing, ok := t.mock.scales[scale.ID]
	if !ok {
		return CommissionScale{}, shared.ErrNotFound
	}
	existing.Name = scale.Name
	existing.Type = scale.Type
	existing.Rules = scale.Rules
	return *existing, nil
}

func (t *mockTxRepo) GetForUpdate(ctx context.Context, id int64) (CommissionScale, error) {
	return t.mock.Get(ctx, id)
}

func (t *mockTxRepo) DeactivateAll(ctx context.Context) error {
	for _, s := range t.mock.scales {
		s.IsActive = false
	}
	return nil
}

func (t *mockTxRepo) Activate(ctx context.Context, id int64) error {
	s, ok := t.mock.scales[id]
	if !ok {
		return shared.ErrNotFound
	}
	s.IsActive = true
	return nil
}

func (t *mockTxRepo) ClearDefault(ctx context.Context) error {
	for _, s := range t.mock.scales {
		s.IsDefault = false
	}
	return nil
}

func (t *mockTxRepo) SetDefault(ctx context.Context, id int64) error {
	s, ok := t.mock.scales[id]
	if !ok {
		return shared.ErrNotFound
	}
	s.IsDefault = true
	return nil
}

type nopAudit struct{}

func (nopAudit) Record(ctx context.Context, log shared.AuditLog) error { return nil }

// ============================================================================
// TESTS
// ============================================================================

func TestCreateRejectsInvalidScale(t *testing.T) {
	svc := NewService(newMockRepository(), nopAudit{})
	_, err := svc.Create(context.Background(), CommissionScale{Name: "mala", Rules: []Rule{
		{MinUSD: 5, MaxUSD: nil, PercentBP: 1000},
	}})
	assert.ErrorIs(t, err, shared.ErrInvalidScaleDefinition)
}

func TestActivateSwapsSingleActive(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nopAudit{})
	ctx := context.Background()

	a, err := svc.Create(ctx, tieredScale(t))
	require.NoError(t, err)
	second := tieredScale(t)
	second.Name = "Escala alterna"
	b, err := svc.Create(ctx, second)
	require.NoError(t, err)

	_, err = svc.Activate(ctx, a.ID, "admin")
	require.NoError(t, err)
	active, err := svc.GetActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, a.ID, active.ID)

	_, err = svc.Activate(ctx, b.ID, "admin")
	require.NoError(t, err)
	active, err = svc.GetActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, b.ID, active.ID)

	// Single-active invariant: exactly one is active after the swap.
	all, err := svc.List(ctx)
	require.NoError(t, err)
	count := 0
	for _, s := range all {
		if s.IsActive {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestActivateUnknownScale(t *testing.T) {
	svc := NewService(newMockRepository(), nopAudit{})
	_, err := svc.Activate(context.Background(), 99, "admin")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestResolveForSales(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nopAudit{})
	ctx := context.Background()

	created, err := svc.Create(ctx, tieredScale(t))
	require.NoError(t, err)
	_, err = svc.Activate(ctx, created.ID, "admin")
	require.NoError(t, err)

	bp, err := svc.ResolveForSales(ctx, money.FromUSD(21_000))
	require.NoError(t, err)
	assert.Equal(t, money.BasisPoints(2000), bp)
}

func TestResolveForSalesNoActiveScale(t *testing.T) {
	svc := NewService(newMockRepository(), nopAudit{})
	_, err := svc.ResolveForSales(context.Background(), money.FromUSD(100))
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
