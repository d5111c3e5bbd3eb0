package bank

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/onlytop/finanzas-core/internal/money"
	"github.com/onlytop/finanzas-core/internal/platform/httpx"
	"github.com/onlytop/finanzas-core/internal/shared"
)

// Handler manages bank singleton endpoints.
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

// MountRoutes registers bank routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/bank", h.show)
	r.Post("/bank/correction", h.correct)
	r.Put("/bank/simulation", h.setSimulation)
	r.Delete("/bank/simulation", h.resetSimulation)
}

// CorrectionRequest applies an explicit consolidated-capital correction.
type CorrectionRequest struct {
	DeltaUSD string `json:"delta_usd" validate:"required"`
	Motivo   string `json:"motivo" validate:"required,max=500"`
}

// SimulationRequest overwrites the fixed-expense projection.
type SimulationRequest struct {
	ValueUSD string `json:"value_usd" validate:"required"`
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.Get(r.Context())
	if err != nil {
		h.logger.Error("load bank", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) correct(w http.ResponseWriter, r *http.Request) {
	var req CorrectionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	delta, err := money.Parse(req.DeltaUSD)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	b, err := h.service.Correct(r.Context(), delta, req.Motivo, shared.ActorFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) setSimulation(w http.ResponseWriter, r *http.Request) {
	var req SimulationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	value, err := money.Parse(req.ValueUSD)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	b, err := h.service.SetSimulation(r.Context(), value)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) resetSimulation(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.ResetSimulation(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}
