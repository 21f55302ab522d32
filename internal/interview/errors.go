package interview

import (
	"fmt"
	"time"
)

// ─── Sentinel errors ─────────────────────────────────────────────────────────

// ErrNotFound is returned when a referenced interview, application or job
// does not exist.
var ErrNotFound = fmt.Errorf("interview not found")

// ─── Typed errors ────────────────────────────────────────────────────────────

// ConfigurationError means the stage's interview configuration is missing,
// disabled, or unusable (e.g. duration ≤ 0). The operation is aborted
// before any persistence; callers must not retry.
type ConfigurationError struct {
	StageID string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("stage %s: %s", e.StageID, e.Reason)
}

// InvalidTransitionError means the requested operation is not legal from
// the interview's current lifecycle status.
type InvalidTransitionError struct {
	Current Status
	Op      Operation
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s an interview in status %s", e.Op, e.Current)
}

// ConflictError means an explicitly requested slot collides with an
// existing active interview inside the buffered window. The caller should
// pick a different time; the engine never retries on its own.
type ConflictError struct {
	Start time.Time
	End   time.Time
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("slot %s – %s conflicts with an existing interview",
		e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339))
}

// PastDateError rejects manual scheduling or rescheduling to a time that
// is not strictly in the future.
type PastDateError struct{ When time.Time }

func (e *PastDateError) Error() string {
	return fmt.Sprintf("scheduled date %s is in the past", e.When.Format(time.RFC3339))
}

// DateTooFarError rejects manual scheduling or rescheduling more than one
// year ahead.
type DateTooFarError struct{ When time.Time }

func (e *DateTooFarError) Error() string {
	return fmt.Sprintf("scheduled date %s is more than a year ahead", e.When.Format(time.RFC3339))
}

// ValidationError wraps a user-facing validation message for malformed
// input that fits no more specific type.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }
