package consol

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onlytop/finanzas-core/internal/bank"
	"github.com/onlytop/finanzas-core/internal/money"
	"github.com/onlytop/finanzas-core/internal/shared"
)

// ============================================================================
// MOCK REPOSITORY
// ============================================================================

type mockFinance struct {
	ID        int64
	Mes, Anio int
	Ventas    money.Amount
	ComAg     money.Amount
	ComBanco  money.Amount
	GanModelo money.Amount
	GanOT     money.Amount
	PeriodoID *int64
}

type mockTxn struct {
	ID      int64
	Periodo string
	Tipo    string
	Estado  string
}

type mockRepository struct {
	periods  map[string]*ConsolidatedPeriod
	finances map[int64]*mockFinance
	txns     map[int64]*mockTxn
	bank     bank.Bank
	nextID   int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		periods:  make(map[string]*ConsolidatedPeriod),
		finances: make(map[int64]*mockFinance),
		txns:     make(map[int64]*mockTxn),
		nextID:   1,
	}
}

func (m *mockRepository) Get(ctx context.Context, id int64) (ConsolidatedPeriod, error) {
	for _, p := range m.periods {
		if p.ID == id {
			return *p, nil
		}
	}
	return ConsolidatedPeriod{}, shared.ErrNotFound
}

func (m *mockRepository) GetByPeriodo(ctx context.Context, periodo string) (ConsolidatedPeriod, error) {
	p, ok := m.periods[periodo]
	if !ok {
		return ConsolidatedPeriod{}, shared.ErrNotFound
	}
	return *p, nil
}

func (m *mockRepository) List(ctx context.Context, pg shared.Pagination) ([]ConsolidatedPeriod, int, error) {
	out := make([]ConsolidatedPeriod, 0, len(m.periods))
	for _, p := range m.periods {
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (m *mockRepository) snapshot() mockState {
	st := mockState{
		periods:  make(map[string]ConsolidatedPeriod, len(m.periods)),
		finances: make(map[int64]mockFinance, len(m.finances)),
		txns:     make(map[int64]mockTxn, len(m.txns)),
		bank:     m.bank,
		nextID:   m.nextID,
	}
	for k, v := range m.periods {
		st.periods[k] = *v
	}
	for k, v := range m.finances {
		st.finances[k] = *v
	}
	for k, v := range m.txns {
		st.txns[k] = *v
	}
	return st
}

type mockState struct {
	periods  map[string]ConsolidatedPeriod
	finances map[int64]mockFinance
	txns     map[int64]mockTxn
	bank     bank.Bank
	nextID   int64
}

func (m *mockRepository) restore(st mockState) {
	m.periods = make(map[string]*ConsolidatedPeriod, len(st.periods))
	for k, v := range st.periods {
		cp := v
		m.periods[k] = &cp
	}
	m.finances = make(map[int64]*mockFinance, len(st.finances))
	for k, v := range st.finances {
		cp := v
		m.finances[k] = &cp
	}
	m.txns = make(map[int64]*mockTxn, len(st.txns))
	for k, v := range st.txns {
		cp := v
		m.txns[k] = &cp
	}
	m.bank = st.bank
	m.nextID = st.nextID
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	st := m.snapshot()
	if err := fn(ctx, &mockTxRepo{mock: m}); err != nil {
		m.restore(st)
		return err
	}
	return nil
}

type mockTxRepo struct {
	mock *mockRepository
}

func (t *mockTxRepo) GetByPeriodoForUpdate(ctx context.Context, periodo string) (ConsolidatedPeriod, bool, error) {
	p, ok := t.mock.periods[periodo]
	if !ok {
		return ConsolidatedPeriod{}, false, nil
	}
	return *p, true, nil
}

func (t *mockTxRepo) LockBank(ctx context.Context) (bank.Bank, error) {
	return t.mock.bank, nil
}

func (t *mockTxRepo) AggregateFinances(ctx context.Context, mes, anio int) (FinanceTotals, error) {
	var ft FinanceTotals
	for _, f := range t.mock.finances {
		if f.Mes != mes || f.Anio != anio {
			continue
		}
		ft.VentasNetas = ft.VentasNetas.Add(f.Ventas)
		ft.ComisionAgencia = ft.ComisionAgencia.Add(f.ComAg)
		ft.ComisionBanco = ft.ComisionBanco.Add(f.ComBanco)
		ft.GananciaModelos = ft.GananciaModelos.Add(f.GanModelo)
		ft.GananciaOnlyTop = ft.GananciaOnlyTop.Add(f.GanOT)
		ft.CantidadModelos++
		ft.FinanzasIDs = append(ft.FinanzasIDs, f.ID)
	}
	sort.Slice(ft.FinanzasIDs, func(i, j int) bool { return ft.FinanzasIDs[i] < ft.FinanzasIDs[j] })
	return ft, nil
}

func (t *mockTxRepo) CountPeriodSales(ctx context.Context, periodo string) (int, error) {
	n := 0
	for _, txn := range t.mock.txns {
		if txn.Periodo == periodo && txn.Tipo == "INGRESO" && txn.Estado != "REVERTIDO" {
			n++
		}
	}
	return n, nil
}

func (t *mockTxRepo) Insert(ctx context.Context, p ConsolidatedPeriod) (ConsolidatedPeriod, error) {
	if _, exists := t.mock.periods[p.Periodo]; exists {
		return ConsolidatedPeriod{}, shared.ErrAlreadyConsolidated
	}
	p.ID = t.mock.nextID
	t.mock.nextID++
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	cp := p
	t.mock.periods[p.Periodo] = &cp
	return p, nil
}

func (t *mockTxRepo) Update(ctx context.Context, p ConsolidatedPeriod) (ConsolidatedPeriod, error) {
	existing, ok := t.mock.periods[p.Periodo]
	if !ok {
		return ConsolidatedPeriod{}, shared.ErrNotFound
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now()
	cp := p
	t.mock.periods[p.Periodo] = &cp
	return p, nil
}

func (t *mockTxRepo) UpdateEstado(ctx context.Context, id int64, estado string) error {
	for _, p := range t.mock.periods {
		if p.ID == id {
			p.Estado = estado
			return nil
		}
	}
	return shared.ErrNotFound
}

func (t *mockTxRepo) StampFinances(ctx context.Context, ids []int64, periodoID int64) error {
	for _, id := range ids {
		if f, ok := t.mock.finances[id]; ok {
			pid := periodoID
			f.PeriodoID = &pid
		}
	}
	return nil
}

func (t *mockTxRepo) ConsolidateTransactions(ctx context.Context, periodo string) (int, error) {
	n := 0
	for _, txn := range t.mock.txns {
		if txn.Periodo == periodo && txn.Estado == "EN_MOVIMIENTO" {
			txn.Estado = "CONSOLIDADO"
			n++
		}
	}
	return n, nil
}

func (t *mockTxRepo) TransferMovementToConsolidated(ctx context.Context, nextPeriodo string) (bank.Bank, error) {
	b := &t.mock.bank
	b.DineroConsolidadoUSD = b.DineroConsolidadoUSD.Add(b.DineroMovimientoUSD)
	b.DineroMovimientoUSD = 0
	b.PeriodoActual = nextPeriodo
	b.TotalPeriodosConsolidados++
	return *b, nil
}

type mockLock struct {
	held map[string]bool
}

func (l *mockLock) Acquire(ctx context.Context, periodo string) (func(context.Context) error, error) {
	if l.held[periodo] {
		return nil, shared.ErrConcurrentConsolidation
	}
	return func(context.Context) error { return nil }, nil
}

type nopAudit struct{}

func (nopAudit) Record(ctx context.Context, log shared.AuditLog) error { return nil }

// ============================================================================
// FIXTURES
// ============================================================================

func usd(t *testing.T, s string) money.Amount {
	t.Helper()
	a, err := money.Parse(s)
	require.NoError(t, err)
	return a
}

// seedMarch populates March 2025 with two finance records and their ledger
// entries, plus a bank carrying prior consolidated capital.
func seedMarch(t *testing.T, repo *mockRepository) {
	t.Helper()
	repo.bank = bank.Bank{
		DineroConsolidadoUSD:      usd(t, "10000.00"),
		DineroMovimientoUSD:       usd(t, "3240.75"),
		PeriodoActual:             "2025-03",
		TotalPeriodosConsolidados: 5,
	}
	repo.finances[1] = &mockFinance{
		ID: 1, Mes: 3, Anio: 2025,
		Ventas:    usd(t, "2500.00"),
		ComAg:     usd(t, "250.00"),
		ComBanco:  usd(t, "5.00"),
		GanModelo: usd(t, "2250.00"),
		GanOT:     usd(t, "245.00"),
	}
	repo.finances[2] = &mockFinance{
		ID: 2, Mes: 3, Anio: 2025,
		Ventas:    usd(t, "3000.00"),
		ComAg:     usd(t, "600.00"),
		ComBanco:  usd(t, "12.00"),
		GanModelo: usd(t, "2400.00"),
		GanOT:     usd(t, "588.00"),
	}
	repo.txns[10] = &mockTxn{ID: 10, Periodo: "2025-03", Tipo: "INGRESO", Estado: "EN_MOVIMIENTO"}
	repo.txns[11] = &mockTxn{ID: 11, Periodo: "2025-03", Tipo: "INGRESO", Estado: "EN_MOVIMIENTO"}
	repo.txns[12] = &mockTxn{ID: 12, Periodo: "2025-03", Tipo: "EGRESO", Estado: "EN_MOVIMIENTO"}
	repo.nextID = 100
}

func newTestService(repo *mockRepository) *Service {
	svc := NewService(repo, &mockLock{}, nopAudit{})
	svc.WithNow(func() time.Time { return time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC) })
	return svc
}

// ============================================================================
// TESTS
// ============================================================================

func TestConsolidateTransfersMovement(t *testing.T) {
	repo := newMockRepository()
	seedMarch(t, repo)
	svc := newTestService(repo)

	snap, err := svc.Consolidate(context.Background(), ConsolidateInput{
		Mes: 3, Anio: 2025, Notas: "cierre marzo", Actor: "admin",
	})
	require.NoError(t, err)

	assert.Equal(t, "2025-03", snap.Periodo)
	assert.Equal(t, shared.PeriodStatusConsolidated, snap.Estado)
	assert.Equal(t, usd(t, "5500.00"), snap.TotalVentasNetasUSD)
	assert.Equal(t, usd(t, "850.00"), snap.TotalComisionAgenciaUSD)
	assert.Equal(t, usd(t, "17.00"), snap.TotalComisionBancoUSD)
	assert.Equal(t, usd(t, "4650.00"), snap.TotalGananciaModelosUSD)
	assert.Equal(t, usd(t, "833.00"), snap.TotalGananciaOnlyTopUSD)
	assert.Equal(t, 2, snap.CantidadModelos)
	assert.Equal(t, 2, snap.CantidadVentas)
	assert.Equal(t, []int64{1, 2}, snap.FinanzasIDs)
	require.NotNil(t, snap.FechaConsolidacion)
	assert.Equal(t, "admin", snap.ConsolidadoPor)

	// Movement folds into consolidated capital and the month advances.
	assert.Equal(t, usd(t, "13240.75"), repo.bank.DineroConsolidadoUSD)
	assert.Equal(t, money.Amount(0), repo.bank.DineroMovimientoUSD)
	assert.Equal(t, "2025-04", repo.bank.PeriodoActual)
	assert.Equal(t, 6, repo.bank.TotalPeriodosConsolidados)

	// Finance records carry the snapshot id, ledger entries are frozen.
	for _, f := range repo.finances {
		require.NotNil(t, f.PeriodoID)
		assert.Equal(t, snap.ID, *f.PeriodoID)
	}
	for _, txn := range repo.txns {
		assert.Equal(t, "CONSOLIDADO", txn.Estado)
	}
}

func TestConsolidateTwiceRejected(t *testing.T) {
	repo := newMockRepository()
	seedMarch(t, repo)
	svc := newTestService(repo)

	_, err := svc.Consolidate(context.Background(), ConsolidateInput{Mes: 3, Anio: 2025, Actor: "admin"})
	require.NoError(t, err)
	bankAfter := repo.bank

	_, err = svc.Consolidate(context.Background(), ConsolidateInput{Mes: 3, Anio: 2025, Actor: "admin"})
	require.ErrorIs(t, err, shared.ErrAlreadyConsolidated)

	// Nothing moved on the rejected attempt.
	assert.Equal(t, bankAfter, repo.bank)
}

func TestConsolidateEmptyPeriodRejected(t *testing.T) {
	repo := newMockRepository()
	seedMarch(t, repo)
	svc := newTestService(repo)

	_, err := svc.Consolidate(context.Background(), ConsolidateInput{Mes: 7, Anio: 2025, Actor: "admin"})
	require.ErrorIs(t, err, shared.ErrNothingToConsolidate)
	assert.Equal(t, usd(t, "3240.75"), repo.bank.DineroMovimientoUSD)
	assert.Equal(t, 5, repo.bank.TotalPeriodosConsolidados)
}

func TestConsolidateBlockedByHeldLock(t *testing.T) {
	repo := newMockRepository()
	seedMarch(t, repo)
	svc := NewService(repo, &mockLock{held: map[string]bool{"2025-03": true}}, nopAudit{})

	_, err := svc.Consolidate(context.Background(), ConsolidateInput{Mes: 3, Anio: 2025, Actor: "admin"})
	require.ErrorIs(t, err, shared.ErrConcurrentConsolidation)
}

func TestConsolidateRequiresActor(t *testing.T) {
	repo := newMockRepository()
	seedMarch(t, repo)
	svc := newTestService(repo)

	_, err := svc.Consolidate(context.Background(), ConsolidateInput{Mes: 3, Anio: 2025})
	require.Error(t, err)
}

func TestReviewThenConsolidateReusesSnapshot(t *testing.T) {
	repo := newMockRepository()
	seedMarch(t, repo)
	svc := newTestService(repo)

	reviewed, err := svc.MarkInReview(context.Background(), 3, 2025, "admin")
	require.NoError(t, err)
	assert.Equal(t, shared.PeriodStatusInReview, reviewed.Estado)

	snap, err := svc.Consolidate(context.Background(), ConsolidateInput{Mes: 3, Anio: 2025, Actor: "admin"})
	require.NoError(t, err)
	assert.Equal(t, reviewed.ID, snap.ID)
	assert.Equal(t, shared.PeriodStatusConsolidated, snap.Estado)
}

func TestCloseLifecycle(t *testing.T) {
	repo := newMockRepository()
	seedMarch(t, repo)
	svc := newTestService(repo)

	snap, err := svc.Consolidate(context.Background(), ConsolidateInput{Mes: 3, Anio: 2025, Actor: "admin"})
	require.NoError(t, err)

	closed, err := svc.Close(context.Background(), snap.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, shared.PeriodStatusClosed, closed.Estado)

	// Closing again is a no-op, not an error.
	again, err := svc.Close(context.Background(), snap.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, shared.PeriodStatusClosed, again.Estado)

	_, err = svc.Consolidate(context.Background(), ConsolidateInput{Mes: 3, Anio: 2025, Actor: "admin"})
	require.ErrorIs(t, err, shared.ErrAlreadyConsolidated)
}
