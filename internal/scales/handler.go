package scales

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

// Handler manages commission scale endpoints.
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
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
	}
}

// MountRoutes registers scale routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/scales", h.list)
	r.Get("/scales/active", h.showActive)
	r.Get("/scales/{id}", h.show)
	r.Post("/scales", h.create)
	r.Put("/scales/{id}", h.update)
	r.Post("/scales/{id}/activate", h.activate)
	r.Post("/scales/{id}/default", h.setDefault)
}

// RuleRequest is one tier in a create/update payload.
type RuleRequest struct {
	MinUSD  int64  `json:"min_usd" validate:"gte=0"`
	MaxUSD  *int64 `json:"max_usd,omitempty" validate:"omitempty,gte=0"`
	Percent int64  `json:"percent" validate:"gte=0,lte=100"`
}

// ScaleRequest creates or replaces a scale definition.
type ScaleRequest struct {
	Name  string        `json:"name" validate:"required,max=120"`
	Type  string        `json:"type" validate:"required,oneof=MONTO_USD PORCENTAJE_OBJETIVO"`
	Rules []RuleRequest `json:"rules" validate:"required,min=1,dive"`
}

func (req ScaleRequest) toDomain(id int64) (CommissionScale, error) {
	scale := CommissionScale{
		ID:   id,
		Name: req.Name,
		Type: ScaleType(req.Type),
	}
	for _, r := range req.Rules {
		bp, err := money.PercentToBasisPoints(r.Percent)
		if err != nil {
			return CommissionScale{}, err
		}
		scale.Rules = append(scale.Rules, Rule{MinUSD: r.MinUSD, MaxUSD: r.MaxUSD, PercentBP: bp})
	}
	return scale, nil
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list scales", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"scales": out})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid scale id")
		return
	}
	scale, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, scale)
}

func (h *Handler) showActive(w http.ResponseWriter, r *http.Request) {
	scale, err := h.service.GetActive(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, scale)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req ScaleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	scale, err := req.toDomain(0)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	created, err := h.service.Create(r.Context(), scale)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid scale id")
		return
	}
	var req ScaleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	scale, err := req.toDomain(id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	updated, err := h.service.Update(r.Context(), scale)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) activate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid scale id")
		return
	}
	scale, err := h.service.Activate(r.Context(), id, shared.ActorFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, scale)
}

func (h *Handler) setDefault(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid scale id")
		return
	}
	scale, err := h.service.SetDefault(r.Context(), id, shared.ActorFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, scale)
}
