// Package store implements the engine's persistence ports on PostgreSQL
// via pgx. The Store hands out either autocommit access or a
// transaction-scoped Repo, so conflict checks and the writes that depend
// on them share one transaction.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobmate/interview-service/internal/interview"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store implements interview.Store on a pgx pool.
type Store struct {
	repo
	pool *pgxpool.Pool
}

// New returns a Store backed by pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{repo: repo{q: pool}, pool: pool}
}

// WithTx runs fn against a transaction-scoped Repo. An error from fn rolls
// the transaction back; otherwise it commits.
func (s *Store) WithTx(ctx context.Context, fn func(interview.Repo) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&repo{q: tx, inTx: true}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// repo is one data-access handle, autocommit or transactional.
type repo struct {
	q    querier
	inTx bool
}

// interviewCols is the canonical column list scanned by scanInterview.
const interviewCols = `
	id, application_id, candidate_id, job_id, COALESCE(stage_id, ''),
	scheduled_date, duration_minutes, status, type, interviewer_ids,
	is_auto_scheduled, COALESCE(meeting_link, ''), COALESCE(calendar_event_id, ''),
	COALESCE(rescheduled_from, ''), rescheduled_at, COALESCE(rescheduled_by, ''),
	COALESCE(cancellation_reason, ''), COALESCE(no_show_reason, ''),
	overall_score, COALESCE(recommendation, ''), COALESCE(notes, ''),
	history_log, created_at, updated_at`

func scanInterview(row pgx.Row) (*interview.Interview, error) {
	var iv interview.Interview
	var status, format string
	err := row.Scan(
		&iv.ID, &iv.ApplicationID, &iv.CandidateID, &iv.JobID, &iv.StageID,
		&iv.ScheduledDate, &iv.DurationMinutes, &status, &format, &iv.InterviewerIDs,
		&iv.IsAutoScheduled, &iv.MeetingLink, &iv.CalendarEventID,
		&iv.RescheduledFrom, &iv.RescheduledAt, &iv.RescheduledBy,
		&iv.CancellationReason, &iv.NoShowReason,
		&iv.OverallScore, &iv.Recommendation, &iv.Notes,
		&iv.HistoryLog, &iv.CreatedAt, &iv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	iv.Status = interview.Status(status)
	iv.Type = interview.Format(format)
	return &iv, nil
}

// GetInterview returns one interview by id.
func (r *repo) GetInterview(ctx context.Context, id string) (*interview.Interview, error) {
	iv, err := scanInterview(r.q.QueryRow(ctx,
		`SELECT `+interviewCols+` FROM interviews WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, interview.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getInterview: %w", err)
	}
	return iv, nil
}

// ActiveForStage returns the active interview for an application+stage
// pair, or nil when none exists.
func (r *repo) ActiveForStage(ctx context.Context, applicationID, stageID string) (*interview.Interview, error) {
	iv, err := scanInterview(r.q.QueryRow(ctx,
		`SELECT `+interviewCols+`
		 FROM interviews
		 WHERE application_id = $1 AND stage_id = $2
		   AND status IN ('SCHEDULED', 'RESCHEDULED', 'IN_PROGRESS')
		 ORDER BY created_at DESC
		 LIMIT 1`,
		applicationID, stageID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("activeForStage: %w", err)
	}
	return iv, nil
}

// HasConflict reports whether any active interview's [scheduled_date,
// scheduled_date+duration) overlaps the proposed slot padded by
// bufferMinutes on both sides. The check is symmetric interval overlap and
// global across all active interviews (single scheduling resource).
func (r *repo) HasConflict(ctx context.Context, start, end time.Time, bufferMinutes int, excludeID string) (bool, error) {
	buffer := time.Duration(bufferMinutes) * time.Minute
	var busy bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM interviews
		   WHERE status IN ('SCHEDULED', 'RESCHEDULED', 'IN_PROGRESS')
		     AND ($3 = '' OR id <> $3)
		     AND scheduled_date < $2
		     AND scheduled_date + make_interval(mins => duration_minutes) > $1
		 )`,
		start.Add(-buffer), end.Add(buffer), excludeID,
	).Scan(&busy)
	if err != nil {
		return false, fmt.Errorf("hasConflict: %w", err)
	}
	return busy, nil
}

// LockStage takes a transaction-scoped advisory lock serializing writers
// for one application+stage pair. Outside a transaction it is a no-op.
func (r *repo) LockStage(ctx context.Context, applicationID, stageID string) error {
	if !r.inTx {
		return nil
	}
	_, err := r.q.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtext($1 || ':' || $2))`,
		applicationID, stageID)
	if err != nil {
		return fmt.Errorf("lockStage: %w", err)
	}
	return nil
}

// CreateInterview inserts a new interview row.
func (r *repo) CreateInterview(ctx context.Context, iv *interview.Interview) error {
	err := r.q.QueryRow(ctx,
		`INSERT INTO interviews (
		   id, application_id, candidate_id, job_id, stage_id,
		   scheduled_date, duration_minutes, status, type, interviewer_ids,
		   is_auto_scheduled, meeting_link, calendar_event_id, notes, history_log
		 ) VALUES (
		   $1, $2, $3, $4, NULLIF($5, ''),
		   $6, $7, $8::interview_status, $9::interview_type, $10,
		   $11, NULLIF($12, ''), NULLIF($13, ''), NULLIF($14, ''), COALESCE($15::jsonb, '[]'::jsonb)
		 )
		 RETURNING created_at, updated_at`,
		iv.ID, iv.ApplicationID, iv.CandidateID, iv.JobID, iv.StageID,
		iv.ScheduledDate, iv.DurationMinutes, string(iv.Status), string(iv.Type), iv.InterviewerIDs,
		iv.IsAutoScheduled, iv.MeetingLink, iv.CalendarEventID, iv.Notes, []byte(iv.HistoryLog),
	).Scan(&iv.CreatedAt, &iv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("createInterview: %w", err)
	}
	return nil
}

// UpdateInterview persists every mutable field of an existing row.
func (r *repo) UpdateInterview(ctx context.Context, iv *interview.Interview) error {
	err := r.q.QueryRow(ctx,
		`UPDATE interviews SET
		   scheduled_date      = $2,
		   duration_minutes    = $3,
		   status              = $4::interview_status,
		   interviewer_ids     = $5,
		   meeting_link        = NULLIF($6, ''),
		   calendar_event_id   = NULLIF($7, ''),
		   rescheduled_from    = NULLIF($8, ''),
		   rescheduled_at      = $9,
		   rescheduled_by      = NULLIF($10, ''),
		   cancellation_reason = NULLIF($11, ''),
		   no_show_reason      = NULLIF($12, ''),
		   overall_score       = $13,
		   recommendation      = NULLIF($14, ''),
		   notes               = NULLIF($15, ''),
		   history_log         = COALESCE($16::jsonb, history_log),
		   updated_at          = NOW()
		 WHERE id = $1
		 RETURNING updated_at`,
		iv.ID, iv.ScheduledDate, iv.DurationMinutes, string(iv.Status), iv.InterviewerIDs,
		iv.MeetingLink, iv.CalendarEventID, iv.RescheduledFrom, iv.RescheduledAt, iv.RescheduledBy,
		iv.CancellationReason, iv.NoShowReason, iv.OverallScore, iv.Recommendation, iv.Notes,
		[]byte(iv.HistoryLog),
	).Scan(&iv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return interview.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("updateInterview: %w", err)
	}
	return nil
}

// ListByJob returns all interviews for a job, newest first.
func (r *repo) ListByJob(ctx context.Context, jobID string) ([]interview.Interview, error) {
	return r.list(ctx, `job_id = $1`, jobID)
}

// ListByApplication returns all interviews for an application, newest first.
func (r *repo) ListByApplication(ctx context.Context, applicationID string) ([]interview.Interview, error) {
	return r.list(ctx, `application_id = $1`, applicationID)
}

func (r *repo) list(ctx context.Context, where string, arg any) ([]interview.Interview, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+interviewCols+` FROM interviews WHERE `+where+` ORDER BY scheduled_date DESC`,
		arg)
	if err != nil {
		return nil, fmt.Errorf("list interviews: %w", err)
	}
	defer rows.Close()

	out := make([]interview.Interview, 0)
	for rows.Next() {
		iv, err := scanInterview(rows)
		if err != nil {
			return nil, fmt.Errorf("list interviews scan: %w", err)
		}
		out = append(out, *iv)
	}
	return out, rows.Err()
}
