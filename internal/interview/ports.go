package interview

import (
	"context"
	"time"
)

// Injected collaborator interfaces. The engine owns the contracts; the
// pgx/redis/HTTP implementations live in internal/store and
// internal/gateway, and tests swap in in-memory fakes.

// ─── Persistence ─────────────────────────────────────────────────────────────

// ConflictChecker decides whether a proposed [start, end) slot, padded by
// bufferMinutes on both sides, overlaps any active interview. excludeID
// (optional) exempts one interview, used when rescheduling it.
type ConflictChecker interface {
	HasConflict(ctx context.Context, start, end time.Time, bufferMinutes int, excludeID string) (bool, error)
}

// Repo is a data-access handle. It is either autocommit (the Store itself)
// or scoped to one transaction (inside Store.WithTx) — conflict checks run
// against the same handle as the writes that depend on them.
type Repo interface {
	ConflictChecker

	GetInterview(ctx context.Context, id string) (*Interview, error)

	// ActiveForStage returns the active (SCHEDULED/RESCHEDULED/IN_PROGRESS)
	// interview for an application+stage pair, or nil when none exists.
	ActiveForStage(ctx context.Context, applicationID, stageID string) (*Interview, error)

	CreateInterview(ctx context.Context, iv *Interview) error
	UpdateInterview(ctx context.Context, iv *Interview) error

	ListByJob(ctx context.Context, jobID string) ([]Interview, error)
	ListByApplication(ctx context.Context, applicationID string) ([]Interview, error)

	// LockStage serializes writers for one application+stage pair until the
	// surrounding transaction ends. Outside a transaction it is a no-op.
	LockStage(ctx context.Context, applicationID, stageID string) error

	UpsertStageProgress(ctx context.Context, applicationID, stageID, interviewID string) error
	CompleteStageProgress(ctx context.Context, applicationID, stageID string) error

	InsertFeedback(ctx context.Context, fb *Feedback) error
	ListFeedback(ctx context.Context, interviewID string) ([]Feedback, error)
}

// Store is the persistence boundary: a Repo plus the ability to run a
// function inside one database transaction.
type Store interface {
	Repo

	// WithTx runs fn against a transaction-scoped Repo. fn returning an
	// error rolls the transaction back; otherwise it commits.
	WithTx(ctx context.Context, fn func(Repo) error) error
}

// ─── Configuration ───────────────────────────────────────────────────────────

// ConfigProvider supplies the interview configuration of a pipeline stage.
// Returns nil (with nil error) when the stage has none.
type ConfigProvider interface {
	StageConfig(ctx context.Context, stageID string) (*StageConfig, error)
}

// Directory resolves application and job references for linkage validation
// and gateway payloads. Read-only.
type Directory interface {
	Application(ctx context.Context, id string) (*ApplicationRef, error)
	Job(ctx context.Context, id string) (*JobRef, error)
}

// ─── External gateways ───────────────────────────────────────────────────────

// CalendarEvent is the provider-agnostic payload for a meeting.
type CalendarEvent struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	Attendees   []string
}

// CalendarResult is what a provider hands back for a created or updated
// meeting.
type CalendarResult struct {
	EventID     string
	MeetingLink string
}

// CalendarGateway creates, updates and cancels meetings with an external
// calendar provider. Errors from it are logged and swallowed by the
// engine — a scheduling decision never fails because the calendar did.
type CalendarGateway interface {
	CreateEvent(ctx context.Context, ev CalendarEvent) (*CalendarResult, error)
	UpdateEvent(ctx context.Context, eventID string, ev CalendarEvent) (*CalendarResult, error)
	CancelEvent(ctx context.Context, eventID string) error
}

// Notifier informs the candidate of scheduling events. Fire-and-forget:
// implementations log failures and never surface them.
type Notifier interface {
	InterviewScheduled(ctx context.Context, iv *Interview, app *ApplicationRef, job *JobRef)
	InterviewRescheduled(ctx context.Context, iv *Interview, previous time.Time, app *ApplicationRef)
	InterviewCancelled(ctx context.Context, iv *Interview, reason string)
	InterviewNoShow(ctx context.Context, iv *Interview, reason string)
}
