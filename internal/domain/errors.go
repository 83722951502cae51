package domain

import "fmt"

// EngineError is the unified error type for the engine.
// Each error has a numeric code and human-readable message.
type EngineError struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	return fmt.Sprintf("engine error %d: %s", e.Code, e.Message)
}

// Is reports whether target is an EngineError with the same code, so that
// errors built with NewEngineError still match the sentinel values below.
func (e *EngineError) Is(target error) bool {
	t, ok := target.(*EngineError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewEngineError creates a new EngineError.
func NewEngineError(code int, msg string) *EngineError {
	return &EngineError{Code: code, Message: msg}
}

// WrapEngineError creates an EngineError that includes a cause.
func WrapEngineError(code int, msg string, cause error) *EngineError {
	return &EngineError{Code: code, Message: fmt.Sprintf("%s: %v", msg, cause)}
}

// ---- Plan generation / substitution errors (-32010 to -32039) ----

var (
	ErrValidation               = &EngineError{Code: -32010, Message: "invalid biometric profile"}
	ErrMealIndex                = &EngineError{Code: -32011, Message: "meal index out of range"}
	ErrEmptyChoice              = &EngineError{Code: -32012, Message: "chosen alternative must not be empty"}
	ErrRestrictionUnsatisfiable = &EngineError{Code: -32013, Message: "restrictions exclude every candidate in a category"}
	ErrMealState                = &EngineError{Code: -32014, Message: "meal has an unknown substitution state"}
)

// ---- Plan store / lookup errors (-32040 to -32069) ----

var (
	ErrPlanNotFound      = &EngineError{Code: -32040, Message: "diet plan not found"}
	ErrRevisionConflict  = &EngineError{Code: -32041, Message: "revision conflict: plan was modified concurrently"}
	ErrOwnerRequired     = &EngineError{Code: -32042, Message: "owner is required"}
	ErrNoHeight          = &EngineError{Code: -32043, Message: "height unknown: provide height_cm or create a plan first"}
	ErrRateLimitExceeded = &EngineError{Code: -32044, Message: "rate limit exceeded"}
)

// ---- Store / Config / Catalog errors (-32130 to -32159) ----

var (
	ErrSnapshotCorrupt = &EngineError{Code: -32134, Message: "snapshot checksum mismatch"}
	ErrConfigInvalid   = &EngineError{Code: -32136, Message: "invalid configuration"}
	ErrCatalogInvalid  = &EngineError{Code: -32137, Message: "invalid food catalog"}
)
