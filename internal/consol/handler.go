package consol

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/onlytop/finanzas-core/internal/platform/httpx"
	"github.com/onlytop/finanzas-core/internal/shared"
)

// Handler manages consolidation endpoints.
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

// MountRoutes registers consolidation routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/periods", h.list)
	r.Get("/periods/{periodo}", h.show)
	r.Post("/periods/consolidate", h.consolidate)
	r.Post("/periods/review", h.review)
	r.Post("/periods/{id}/close", h.close)
}

// ConsolidateRequest freezes one month.
type ConsolidateRequest struct {
	Mes   int    `json:"mes" validate:"required,min=1,max=12"`
	Anio  int    `json:"anio" validate:"required,min=2020,max=2100"`
	Notas string `json:"notas,omitempty" validate:"max=1000"`
}

// ReviewRequest flags one month for pre-close review.
type ReviewRequest struct {
	Mes  int `json:"mes" validate:"required,min=1,max=12"`
	Anio int `json:"anio" validate:"required,min=2020,max=2100"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	periods, pg, err := h.service.List(r.Context(), page, perPage)
	if err != nil {
		h.logger.Error("list consolidated periods", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"periods":    periods,
		"pagination": pg,
	})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	periodo := chi.URLParam(r, "periodo")
	p, err := h.service.GetByPeriodo(r.Context(), periodo)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) consolidate(w http.ResponseWriter, r *http.Request) {
	var req ConsolidateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	p, err := h.service.Consolidate(r.Context(), ConsolidateInput{
		Mes:   req.Mes,
		Anio:  req.Anio,
		Notas: req.Notas,
		Actor: shared.ActorFromContext(r.Context()),
	})
	if err != nil {
		h.logger.Error("consol: consolidate", slog.Int("mes", req.Mes), slog.Int("anio", req.Anio), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("period consolidated",
		slog.String("periodo", p.Periodo),
		slog.Int("modelos", p.CantidadModelos))
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) review(w http.ResponseWriter, r *http.Request) {
	var req ReviewRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	p, err := h.service.MarkInReview(r.Context(), req.Mes, req.Anio, shared.ActorFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be an integer")
		return
	}
	p, err := h.service.Close(r.Context(), id, shared.ActorFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}
