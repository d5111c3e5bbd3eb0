// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/onlytop/finanzas-core/internal/shared"
)

// RespondError maps finance domain errors to HTTP responses using RFC7807.
// Every taxonomy member gets a distinct, inspectable mapping; nothing is
// silently downgraded to a generic 500 except truly unknown failures.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrInvalidAmount),
		errors.Is(err, shared.ErrInvalidScaleDefinition),
		errors.Is(err, shared.ErrInvalidPeriod):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrAlreadyConsolidated):
		Problem(w, http.StatusConflict, "Already Consolidated", err.Error())
	case errors.Is(err, shared.ErrAlreadyReversed):
		Problem(w, http.StatusConflict, "Already Reversed", err.Error())
	case errors.Is(err, shared.ErrConcurrentConsolidation):
		Problem(w, http.StatusConflict, "Concurrent Consolidation", err.Error())
	case errors.Is(err, shared.ErrNothingToConsolidate):
		Problem(w, http.StatusUnprocessableEntity, "Nothing To Consolidate", err.Error())
	case errors.Is(err, shared.ErrInvalidPeriodTransition):
		Problem(w, http.StatusConflict, "Invalid Transition", err.Error())
	case errors.Is(err, shared.ErrNoApplicableRule):
		Problem(w, http.StatusInternalServerError, "No Applicable Rule", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
