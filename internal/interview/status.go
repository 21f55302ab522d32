// Package interview implements the interview scheduling engine for the
// jobmate platform: slot allocation, conflict detection under buffered
// time windows, the interview lifecycle state machine, and the cascading
// reschedule/cancellation policies.
//
// Lifecycle state graph:
//
//	SCHEDULED ◄──► RESCHEDULED          (reschedule)
//	    │               │
//	    ├───────────────┼──► IN_PROGRESS ──► COMPLETED
//	    │               │         │
//	    ├───────────────┼─────────┴──► CANCELLED
//	    │               │
//	    └───────────────┴──► NO_SHOW
//
// COMPLETED, CANCELLED and NO_SHOW are terminal states.
package interview

import "fmt"

// Status values mirror the interview_status enum in PostgreSQL.
type Status string

const (
	StatusScheduled   Status = "SCHEDULED"
	StatusRescheduled Status = "RESCHEDULED"
	StatusInProgress  Status = "IN_PROGRESS"
	StatusCompleted   Status = "COMPLETED"
	StatusCancelled   Status = "CANCELLED"
	StatusNoShow      Status = "NO_SHOW"
)

// Operation names a lifecycle mutation requested on an interview.
type Operation string

const (
	OpReschedule Operation = "reschedule"
	OpStart      Operation = "start"
	OpComplete   Operation = "complete"
	OpCancel     Operation = "cancel"
	OpNoShow     Operation = "no_show"
)

// allowedFrom lists, per operation, every status the operation may be
// applied from. Terminal states appear in no list.
var allowedFrom = map[Operation][]Status{
	OpReschedule: {StatusScheduled, StatusRescheduled},
	OpStart:      {StatusScheduled, StatusRescheduled},
	OpComplete:   {StatusScheduled, StatusRescheduled, StatusInProgress},
	OpCancel:     {StatusScheduled, StatusRescheduled, StatusInProgress},
	OpNoShow:     {StatusScheduled, StatusRescheduled},
}

// target gives the status an interview lands in after each operation.
var target = map[Operation]Status{
	OpReschedule: StatusRescheduled,
	OpStart:      StatusInProgress,
	OpComplete:   StatusCompleted,
	OpCancel:     StatusCancelled,
	OpNoShow:     StatusNoShow,
}

// ParseStatus converts a raw string to a Status, returning an error for
// unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusScheduled, StatusRescheduled, StatusInProgress,
		StatusCompleted, StatusCancelled, StatusNoShow:
		return st, nil
	}
	return "", fmt.Errorf("unknown interview status %q", s)
}

// IsActive returns true for statuses that occupy calendar time: an active
// interview blocks conflicting slots and counts against the
// one-active-interview-per-stage rule.
func IsActive(s Status) bool {
	return s == StatusScheduled || s == StatusRescheduled || s == StatusInProgress
}

// IsTerminal returns true when no further operation is accepted from s.
func IsTerminal(s Status) bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

// CanApply returns true when op is permitted from the given status.
func CanApply(op Operation, from Status) bool {
	for _, s := range allowedFrom[op] {
		if s == from {
			return true
		}
	}
	return false
}

// Apply validates op against the current status and returns the resulting
// status, or an *InvalidTransitionError naming the rejected pair.
func Apply(op Operation, from Status) (Status, error) {
	if !CanApply(op, from) {
		return "", &InvalidTransitionError{Current: from, Op: op}
	}
	return target[op], nil
}
