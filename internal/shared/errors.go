package shared

import "errors"

// Sentinel errors shared across the finance modules. Handlers map these to
// problem responses; services return them wrapped with context.
var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidAmount rejects negative or malformed monetary input before any write.
	ErrInvalidAmount = errors.New("invalid monetary amount")
	// ErrInvalidScaleDefinition rejects a commission scale whose rules have gaps,
	// overlaps, or out-of-range percentages.
	ErrInvalidScaleDefinition = errors.New("invalid commission scale definition")
	// ErrNoApplicableRule means no tier matched the input. Unreachable for a
	// validated scale; surfaced loudly instead of defaulting to 0%.
	ErrNoApplicableRule = errors.New("no applicable commission rule")
	// ErrAlreadyConsolidated guards re-consolidating a period or touching a
	// transaction that already left EN_MOVIMIENTO.
	ErrAlreadyConsolidated = errors.New("already consolidated")
	// ErrAlreadyReversed guards double reversal of a ledger transaction.
	ErrAlreadyReversed = errors.New("transaction already reversed")
	// ErrNothingToConsolidate means the period has no finance records.
	ErrNothingToConsolidate = errors.New("nothing to consolidate for period")
	// ErrConcurrentConsolidation reports a rival consolidation or reversal
	// holding the period lock; the operation is safe to retry.
	ErrConcurrentConsolidation = errors.New("concurrent consolidation in progress")
)
