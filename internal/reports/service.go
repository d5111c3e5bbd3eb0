package reports

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/onlytop/finanzas-core/internal/bank"
	"github.com/onlytop/finanzas-core/internal/consol"
	"github.com/onlytop/finanzas-core/internal/ledger"
	"github.com/onlytop/finanzas-core/internal/money"
	"github.com/onlytop/finanzas-core/internal/shared"
)

// BankPort reads the capital snapshot.
type BankPort interface {
	Get(ctx context.Context) (bank.Bank, error)
}

// ConsolPort reads consolidated period snapshots.
type ConsolPort interface {
	GetByPeriodo(ctx context.Context, periodo string) (consol.ConsolidatedPeriod, error)
	List(ctx context.Context, page, perPage int) ([]consol.ConsolidatedPeriod, shared.Pagination, error)
}

// LedgerPort summarises period movement.
type LedgerPort interface {
	SummarizePeriod(ctx context.Context, periodo string) (ledger.PeriodSummary, error)
}

// Service is the read side of the finance subsystem: dashboards, cash-flow
// series and period comparisons. Everything here is derived data, cached
// behind a version that consolidation bumps.
type Service struct {
	repo    Repository
	bank    BankPort
	consol  ConsolPort
	ledger  LedgerPort
	cache   *Cache
	printer *message.Printer
}

// NewService constructs a Service instance.
func NewService(repo Repository, bankPort BankPort, consolPort ConsolPort, ledgerPort LedgerPort, cache *Cache) *Service {
	return &Service{
		repo:    repo,
		bank:    bankPort,
		consol:  consolPort,
		ledger:  ledgerPort,
		cache:   cache,
		printer: message.NewPrinter(language.AmericanEnglish),
	}
}

// FormatUSD renders an amount for dashboards, with thousands grouping.
func (s *Service) FormatUSD(a money.Amount) string {
	return s.printer.Sprintf("$%v", number.Decimal(a.Float64(),
		number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}

// Dashboard is the headline payload for the finance home screen.
type Dashboard struct {
	Bank            bank.Bank            `json:"bank"`
	TotalUSD        money.Amount         `json:"total_usd"`
	TotalDisplay    string               `json:"total_display"`
	CurrentPeriod   ledger.PeriodSummary `json:"current_period"`
	LastConsolidado *PeriodCard          `json:"last_consolidado,omitempty"`
}

// PeriodCard is a compact consolidated-period summary.
type PeriodCard struct {
	Periodo             string       `json:"periodo"`
	TotalVentasNetasUSD money.Amount `json:"total_ventas_netas_usd"`
	GananciaOnlyTopUSD  money.Amount `json:"ganancia_onlytop_usd"`
	CantidadModelos     int          `json:"cantidad_modelos"`
	VentasDisplay       string       `json:"ventas_display"`
}

// GetDashboard assembles the bank snapshot, the running period's movement
// and the most recent consolidation.
func (s *Service) GetDashboard(ctx context.Context) (Dashboard, error) {
	b, err := s.bank.Get(ctx)
	if err != nil {
		return Dashboard{}, err
	}

	var (
		summary ledger.PeriodSummary
		periods []consol.ConsolidatedPeriod
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summary, err = s.ledger.SummarizePeriod(gctx, b.PeriodoActual)
		return err
	})
	g.Go(func() error {
		var err error
		periods, _, err = s.consol.List(gctx, 1, 1)
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	d := Dashboard{
		Bank:          b,
		TotalUSD:      b.TotalUSD(),
		TotalDisplay:  s.FormatUSD(b.TotalUSD()),
		CurrentPeriod: summary,
	}
	if len(periods) > 0 {
		p := periods[0]
		d.LastConsolidado = &PeriodCard{
			Periodo:             p.Periodo,
			TotalVentasNetasUSD: p.TotalVentasNetasUSD,
			GananciaOnlyTopUSD:  p.TotalGananciaOnlyTopUSD,
			CantidadModelos:     p.CantidadModelos,
			VentasDisplay:       s.FormatUSD(p.TotalVentasNetasUSD),
		}
	}
	return d, nil
}

// CashFlowTrend returns the monthly movement series over [from, to],
// inclusive period codes.
func (s *Service) CashFlowTrend(ctx context.Context, fromPeriodo, toPeriodo string) ([]CashFlowPoint, error) {
	if _, _, err := shared.ParsePeriodCode(fromPeriodo); err != nil {
		return nil, err
	}
	if _, _, err := shared.ParsePeriodCode(toPeriodo); err != nil {
		return nil, err
	}
	if fromPeriodo > toPeriodo {
		return nil, fmt.Errorf("%w: range %s..%s", shared.ErrInvalidPeriod, fromPeriodo, toPeriodo)
	}
	loader := func(ctx context.Context) (any, error) {
		return s.repo.MonthlyCashFlow(ctx, fromPeriodo, toPeriodo)
	}
	key, err := s.cache.BuildKey(ctx, "reports", "cashflow", fromPeriodo, toPeriodo)
	if err != nil {
		return nil, err
	}
	var points []CashFlowPoint
	if err := s.cache.FetchJSON(ctx, key, &points, loader); err != nil {
		return nil, err
	}
	return points, nil
}

// OriginBreakdown returns a period's movement grouped by origin.
func (s *Service) OriginBreakdown(ctx context.Context, periodo string) ([]OriginPoint, error) {
	if _, _, err := shared.ParsePeriodCode(periodo); err != nil {
		return nil, err
	}
	return s.repo.OriginBreakdown(ctx, periodo)
}

// TopModels ranks the month's models by net sales.
func (s *Service) TopModels(ctx context.Context, mes, anio, limit int) ([]ModelShare, error) {
	if _, err := shared.PeriodCode(mes, anio); err != nil {
		return nil, err
	}
	return s.repo.TopModels(ctx, mes, anio, limit)
}

// MetricDelta compares one figure across two consolidated periods.
type MetricDelta struct {
	Base       money.Amount `json:"base_usd"`
	Target     money.Amount `json:"target_usd"`
	Delta      money.Amount `json:"delta_usd"`
	PctChange  *float64     `json:"pct_change,omitempty"`
	BaseText   string       `json:"base_display"`
	TargetText string       `json:"target_display"`
}

// Comparison puts two consolidated periods side by side.
type Comparison struct {
	BasePeriodo     string      `json:"base_periodo"`
	TargetPeriodo   string      `json:"target_periodo"`
	VentasNetas     MetricDelta `json:"ventas_netas"`
	ComisionAgencia MetricDelta `json:"comision_agencia"`
	GananciaOnlyTop MetricDelta `json:"ganancia_onlytop"`
	GananciaModelos MetricDelta `json:"ganancia_modelos"`
	ModelosDelta    int         `json:"modelos_delta"`
}

// ComparePeriods diffs two consolidated snapshots. Both must exist; open
// months have no frozen totals to compare.
func (s *Service) ComparePeriods(ctx context.Context, basePeriodo, targetPeriodo string) (Comparison, error) {
	base, err := s.consol.GetByPeriodo(ctx, basePeriodo)
	if err != nil {
		return Comparison{}, err
	}
	target, err := s.consol.GetByPeriodo(ctx, targetPeriodo)
	if err != nil {
		return Comparison{}, err
	}
	return Comparison{
		BasePeriodo:     base.Periodo,
		TargetPeriodo:   target.Periodo,
		VentasNetas:     s.delta(base.TotalVentasNetasUSD, target.TotalVentasNetasUSD),
		ComisionAgencia: s.delta(base.TotalComisionAgenciaUSD, target.TotalComisionAgenciaUSD),
		GananciaOnlyTop: s.delta(base.TotalGananciaOnlyTopUSD, target.TotalGananciaOnlyTopUSD),
		GananciaModelos: s.delta(base.TotalGananciaModelosUSD, target.TotalGananciaModelosUSD),
		ModelosDelta:    target.CantidadModelos - base.CantidadModelos,
	}, nil
}

func (s *Service) delta(base, target money.Amount) MetricDelta {
	d := MetricDelta{
		Base:       base,
		Target:     target,
		Delta:      target.Sub(base),
		BaseText:   s.FormatUSD(base),
		TargetText: s.FormatUSD(target),
	}
	if base != 0 {
		pct := (target.Float64() - base.Float64()) / base.Float64() * 100
		d.PctChange = &pct
	}
	return d
}
