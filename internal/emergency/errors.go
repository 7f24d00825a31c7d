package emergency

import "errors"

// Sentinel errors surfaced to callers. Per-channel send failures are never
// errors at this level; they are captured in the trigger's Report.
var (
	// ErrSubjectNotFound halts a trigger before any side effect.
	ErrSubjectNotFound = errors.New("subject not found")

	// ErrSubjectExists rejects re-registration of a phone number.
	ErrSubjectExists = errors.New("subject already registered")

	// ErrAlertNotFound reports an unknown alert ID.
	ErrAlertNotFound = errors.New("alert not found")

	// ErrStateConflict rejects a lifecycle transition on a terminal record.
	ErrStateConflict = errors.New("alert is already in a terminal state")

	// ErrInvalidAlertType rejects an unrecognized alert type at entry.
	ErrInvalidAlertType = errors.New("invalid alert type")
)
