package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/onlytop/finanzas-core/internal/audit"
	"github.com/onlytop/finanzas-core/internal/bank"
	"github.com/onlytop/finanzas-core/internal/consol"
	"github.com/onlytop/finanzas-core/internal/finanzas"
	"github.com/onlytop/finanzas-core/internal/ledger"
	"github.com/onlytop/finanzas-core/internal/reports"
	"github.com/onlytop/finanzas-core/internal/scales"
	"github.com/onlytop/finanzas-core/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	BankHandler     *bank.Handler
	ScalesHandler   *scales.Handler
	FinanzasHandler *finanzas.Handler
	LedgerHandler   *ledger.Handler
	ConsolHandler   *consol.Handler
	ReportsHandler  *reports.Handler
	AuditHandler    *audit.Handler
	JobsHandler     *jobs.Handler
}

// NewRouter constructs the chi.Router for the finance API.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(BearerAuth(params.Logger, params.Config.AdminTokenHash))

		params.BankHandler.MountRoutes(api)
		params.ScalesHandler.MountRoutes(api)
		params.FinanzasHandler.MountRoutes(api)
		params.LedgerHandler.MountRoutes(api)
		params.ConsolHandler.MountRoutes(api)
		params.ReportsHandler.MountRoutes(api)
		if params.AuditHandler != nil {
			params.AuditHandler.MountRoutes(api)
		}
		if params.JobsHandler != nil {
			api.Route("/jobs", params.JobsHandler.MountRoutes)
		}
	})

	return r
}
