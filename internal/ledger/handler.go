package ledger

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/onlytop/finanzas-core/internal/money"
	"github.com/onlytop/finanzas-core/internal/platform/httpx"
	"github.com/onlytop/finanzas-core/internal/shared"
)

// Handler manages ledger endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	idem     *shared.IdempotencyStore
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// WithIdempotency enables Idempotency-Key deduplication on record requests.
func (h *Handler) WithIdempotency(store *shared.IdempotencyStore) {
	h.idem = store
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/transactions", h.list)
	r.Get("/transactions/{id}", h.show)
	r.Post("/transactions", h.record)
	r.Post("/transactions/{id}/reverse", h.reverse)
	r.Get("/periods/{periodo}/summary", h.summarize)
}

// RecordRequest appends a movement. The expense-approval and sales
// collaborators both come through here.
type RecordRequest struct {
	Periodo     string `json:"periodo" validate:"required"`
	Tipo        string `json:"tipo" validate:"required,oneof=INGRESO EGRESO"`
	Origen      string `json:"origen" validate:"required,oneof=GANANCIA_MODELO COSTO_FIJO AJUSTE_MANUAL"`
	MontoUSD    string `json:"monto_usd" validate:"required"`
	RefKind     string `json:"ref_kind" validate:"required,oneof=MODEL_FINANCE FIXED_EXPENSE MANUAL_ADJUSTMENT"`
	RefID       string `json:"ref_id" validate:"required,max=64"`
	Descripcion string `json:"descripcion,omitempty" validate:"max=500"`
}

// ReverseRequest compensates a live movement.
type ReverseRequest struct {
	Motivo string `json:"motivo" validate:"required,max=500"`
}

func (h *Handler) record(w http.ResponseWriter, r *http.Request) {
	var req RecordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	monto, err := money.Parse(req.MontoUSD)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	idemKey := r.Header.Get("Idempotency-Key")
	if idemKey != "" && h.idem != nil {
		if err := h.idem.CheckAndInsert(r.Context(), idemKey, "ledger"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				httpx.Problem(w, http.StatusConflict, "Conflict", "request already processed")
				return
			}
			httpx.RespondError(w, err)
			return
		}
	}
	txn, err := h.service.Record(r.Context(), RecordInput{
		Periodo:     req.Periodo,
		Tipo:        TransactionType(req.Tipo),
		Origen:      Origin(req.Origen),
		MontoUSD:    monto,
		Referencia:  Reference{Kind: ReferenceKind(req.RefKind), ID: req.RefID},
		Descripcion: req.Descripcion,
		Actor:       shared.ActorFromContext(r.Context()),
	})
	if err != nil {
		if idemKey != "" && h.idem != nil {
			// Release the key so the client can retry the failed write.
			_ = h.idem.Delete(r.Context(), idemKey)
		}
		h.logger.Error("record transaction", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, txn)
}

func (h *Handler) reverse(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid transaction id")
		return
	}
	var req ReverseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	reversal, err := h.service.Reverse(r.Context(), ReverseInput{
		TransaccionID: id,
		Motivo:        req.Motivo,
		Actor:         shared.ActorFromContext(r.Context()),
	})
	if err != nil {
		h.logger.Error("reverse transaction", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, reversal)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid transaction id")
		return
	}
	txn, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, txn)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		Periodo: r.URL.Query().Get("periodo"),
		Tipo:    TransactionType(r.URL.Query().Get("tipo")),
		Origen:  Origin(r.URL.Query().Get("origen")),
		Estado:  TransactionStatus(r.URL.Query().Get("estado")),
	}
	if v := r.URL.Query().Get("page"); v != "" {
		filter.Page, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("per_page"); v != "" {
		filter.PerPage, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("from"); v != "" {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			filter.DateFrom = &ts
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			filter.DateTo = &ts
		}
	}
	txns, page, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list transactions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"transactions": txns,
		"pagination":   page,
	})
}

func (h *Handler) summarize(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.SummarizePeriod(r.Context(), chi.URLParam(r, "periodo"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}
