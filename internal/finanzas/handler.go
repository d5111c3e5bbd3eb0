package finanzas

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/onlytop/finanzas-core/internal/money"
	"github.com/onlytop/finanzas-core/internal/platform/httpx"
	"github.com/onlytop/finanzas-core/internal/shared"
)

// Handler manages model finance endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers finance routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/finances/calculate", h.calculate)
	r.Get("/finances/{id}", h.show)
	r.Get("/finances", h.listByPeriodo)
	r.Post("/finances/{id}/estado", h.advanceEstado)
}

// CalculateRequest triggers a (re)calculation for one model-month.
type CalculateRequest struct {
	ModeloID       string `json:"modelo_id" validate:"required,max=64"`
	Mes            int    `json:"mes" validate:"required,gte=1,lte=12"`
	Anio           int    `json:"anio" validate:"required,gte=2000,lte=9999"`
	VentasNetasUSD string `json:"ventas_netas_usd" validate:"required"`
	AgencyPct      *int64 `json:"agency_pct,omitempty" validate:"omitempty,gte=0,lte=100"`
	BankPct        *int64 `json:"bank_pct,omitempty" validate:"omitempty,gte=0,lte=100"`
}

// EstadoRequest advances the payment status.
type EstadoRequest struct {
	Estado string `json:"estado" validate:"required,oneof=PENDIENTE_REVISION APROBADO PAGADO"`
}

func (h *Handler) calculate(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	ventas, err := money.Parse(req.VentasNetasUSD)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rec, err := h.service.Calculate(r.Context(), CalculateInput{
		ModeloID:    req.ModeloID,
		Mes:         req.Mes,
		Anio:        req.Anio,
		VentasNetas: ventas,
		AgencyPct:   req.AgencyPct,
		BankPct:     req.BankPct,
		Actor:       shared.ActorFromContext(r.Context()),
	})
	if err != nil {
		h.logger.Error("calculate finance", slog.String("modelo", req.ModeloID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid record id")
		return
	}
	rec, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) listByPeriodo(w http.ResponseWriter, r *http.Request) {
	mes, _ := strconv.Atoi(r.URL.Query().Get("mes"))
	anio, _ := strconv.Atoi(r.URL.Query().Get("anio"))
	records, err := h.service.ListByPeriodo(r.Context(), mes, anio)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"finances": records})
}

func (h *Handler) advanceEstado(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid record id")
		return
	}
	var req EstadoRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	rec, err := h.service.AdvanceEstado(r.Context(), id, Status(req.Estado), shared.ActorFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}
