package reports

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onlytop/finanzas-core/internal/bank"
	"github.com/onlytop/finanzas-core/internal/consol"
	"github.com/onlytop/finanzas-core/internal/ledger"
	"github.com/onlytop/finanzas-core/internal/money"
	"github.com/onlytop/finanzas-core/internal/shared"
)

type stubRepo struct {
	cashflowCalls int
	points        []CashFlowPoint
}

func (s *stubRepo) MonthlyCashFlow(ctx context.Context, from, to string) ([]CashFlowPoint, error) {
	s.cashflowCalls++
	return s.points, nil
}

func (s *stubRepo) OriginBreakdown(ctx context.Context, periodo string) ([]OriginPoint, error) {
	return nil, nil
}

func (s *stubRepo) TopModels(ctx context.Context, mes, anio, limit int) ([]ModelShare, error) {
	return nil, nil
}

type stubBank struct{ b bank.Bank }

func (s *stubBank) Get(ctx context.Context) (bank.Bank, error) { return s.b, nil }

type stubConsol struct {
	periods map[string]consol.ConsolidatedPeriod
}

func (s *stubConsol) GetByPeriodo(ctx context.Context, periodo string) (consol.ConsolidatedPeriod, error) {
	p, ok := s.periods[periodo]
	if !ok {
		return consol.ConsolidatedPeriod{}, shared.ErrNotFound
	}
	return p, nil
}

func (s *stubConsol) List(ctx context.Context, page, perPage int) ([]consol.ConsolidatedPeriod, shared.Pagination, error) {
	out := make([]consol.ConsolidatedPeriod, 0, len(s.periods))
	for _, p := range s.periods {
		out = append(out, p)
	}
	return out, shared.NewPagination(page, perPage, len(out)), nil
}

type stubLedger struct{ summary ledger.PeriodSummary }

func (s *stubLedger) SummarizePeriod(ctx context.Context, periodo string) (ledger.PeriodSummary, error) {
	s.summary.Periodo = periodo
	return s.summary, nil
}

func usd(t *testing.T, s string) money.Amount {
	t.Helper()
	a, err := money.Parse(s)
	require.NoError(t, err)
	return a
}

func TestFormatUSDGroupsThousands(t *testing.T) {
	svc := NewService(&stubRepo{}, &stubBank{}, &stubConsol{}, &stubLedger{}, nil)
	assert.Equal(t, "$13,240.75", svc.FormatUSD(usd(t, "13240.75")))
	assert.Equal(t, "$0.00", svc.FormatUSD(0))
	assert.Equal(t, "$-250.50", svc.FormatUSD(usd(t, "-250.50")))
}

func TestComparePeriods(t *testing.T) {
	consolStub := &stubConsol{periods: map[string]consol.ConsolidatedPeriod{
		"2025-02": {
			Periodo:                 "2025-02",
			TotalVentasNetasUSD:     usd(t, "4000.00"),
			TotalGananciaOnlyTopUSD: usd(t, "400.00"),
			CantidadModelos:         3,
		},
		"2025-03": {
			Periodo:                 "2025-03",
			TotalVentasNetasUSD:     usd(t, "5500.00"),
			TotalGananciaOnlyTopUSD: usd(t, "833.00"),
			CantidadModelos:         2,
		},
	}}
	svc := NewService(&stubRepo{}, &stubBank{}, consolStub, &stubLedger{}, nil)

	cmp, err := svc.ComparePeriods(context.Background(), "2025-02", "2025-03")
	require.NoError(t, err)
	assert.Equal(t, usd(t, "1500.00"), cmp.VentasNetas.Delta)
	require.NotNil(t, cmp.VentasNetas.PctChange)
	assert.InDelta(t, 37.5, *cmp.VentasNetas.PctChange, 0.001)
	assert.Equal(t, -1, cmp.ModelosDelta)

	// Zero base means pct change is undefined, not infinite.
	assert.Nil(t, cmp.ComisionAgencia.PctChange)

	_, err = svc.ComparePeriods(context.Background(), "2025-02", "2025-09")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCashFlowTrendRejectsBadRange(t *testing.T) {
	svc := NewService(&stubRepo{}, &stubBank{}, &stubConsol{}, &stubLedger{}, nil)

	_, err := svc.CashFlowTrend(context.Background(), "2025-05", "2025-03")
	require.ErrorIs(t, err, shared.ErrInvalidPeriod)

	_, err = svc.CashFlowTrend(context.Background(), "march", "2025-03")
	require.ErrorIs(t, err, shared.ErrInvalidPeriod)
}

func TestCashFlowTrendCachesUntilBump(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCache(client, time.Minute)

	repo := &stubRepo{points: []CashFlowPoint{
		{Periodo: "2025-03", Ingresos: usd(t, "5500.00"), Egresos: usd(t, "1200.00"), Neto: usd(t, "4300.00")},
	}}
	svc := NewService(repo, &stubBank{}, &stubConsol{}, &stubLedger{}, cache)

	for i := 0; i < 3; i++ {
		points, err := svc.CashFlowTrend(context.Background(), "2025-01", "2025-03")
		require.NoError(t, err)
		require.Len(t, points, 1)
		assert.Equal(t, usd(t, "4300.00"), points[0].Neto)
	}
	assert.Equal(t, 1, repo.cashflowCalls)

	require.NoError(t, cache.Bump(context.Background()))
	_, err := svc.CashFlowTrend(context.Background(), "2025-01", "2025-03")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.cashflowCalls)
}

func TestDashboardAssemblesHeadline(t *testing.T) {
	b := bank.Bank{
		DineroConsolidadoUSD:      usd(t, "13240.75"),
		DineroMovimientoUSD:       usd(t, "500.00"),
		PeriodoActual:             "2025-04",
		TotalPeriodosConsolidados: 6,
	}
	consolStub := &stubConsol{periods: map[string]consol.ConsolidatedPeriod{
		"2025-03": {
			Periodo:                 "2025-03",
			TotalVentasNetasUSD:     usd(t, "5500.00"),
			TotalGananciaOnlyTopUSD: usd(t, "833.00"),
			CantidadModelos:         2,
		},
	}}
	svc := NewService(&stubRepo{}, &stubBank{b: b}, consolStub, &stubLedger{}, nil)

	d, err := svc.GetDashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, usd(t, "13740.75"), d.TotalUSD)
	assert.Equal(t, "$13,740.75", d.TotalDisplay)
	assert.Equal(t, "2025-04", d.CurrentPeriod.Periodo)
	require.NotNil(t, d.LastConsolidado)
	assert.Equal(t, "2025-03", d.LastConsolidado.Periodo)
}
