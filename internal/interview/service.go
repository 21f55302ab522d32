package interview

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ─── Service ─────────────────────────────────────────────────────────────────

// Service is the scheduling orchestrator: the sole writer boundary for
// interviews and their stage-progress linkage. Every mutation goes through
// it, which is what enforces the lifecycle state machine and the
// one-active-interview-per-(application, stage) invariant.
//
// External gateway failures (calendar, notifications) never fail a
// scheduling decision: the interview row is authoritative, the meeting
// link and notification delivery are best-effort.
type Service struct {
	store    Store
	configs  ConfigProvider
	dir      Directory
	calendar CalendarGateway
	notify   Notifier
	slots    *SlotFinder
	now      func() time.Time
}

// Deps bundles the collaborators a Service needs. Now is optional and
// defaults to the wall clock.
type Deps struct {
	Store    Store
	Configs  ConfigProvider
	Dir      Directory
	Calendar CalendarGateway
	Notify   Notifier
	Now      func() time.Time
}

// NewService returns a configured Service.
func NewService(d Deps) *Service {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:    d.Store,
		configs:  d.Configs,
		dir:      d.Dir,
		calendar: d.Calendar,
		notify:   d.Notify,
		slots:    NewSlotFinderAt(now),
		now:      now,
	}
}

// actor used on history entries written by cascade re-scheduling.
const systemActor = "system"

// ─── Auto-scheduling ─────────────────────────────────────────────────────────

// AutoSchedule allocates an interview for an application entering a
// pipeline stage. Idempotent: when an active interview already exists for
// the pair, it is returned unchanged instead of creating a duplicate.
func (s *Service) AutoSchedule(ctx context.Context, applicationID, stageID, triggeredBy string) (*Interview, error) {
	if applicationID == "" || stageID == "" {
		return nil, &ValidationError{Msg: "applicationId and stageId are required"}
	}

	cfg, err := s.configs.StageConfig(ctx, stageID)
	if err != nil {
		return nil, fmt.Errorf("load stage config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.AutoSchedule {
		return nil, &ConfigurationError{StageID: stageID, Reason: "auto-scheduling is disabled"}
	}

	// Fast path: an active interview for the pair means we are done.
	if existing, err := s.store.ActiveForStage(ctx, applicationID, stageID); err != nil {
		return nil, fmt.Errorf("active interview lookup: %w", err)
	} else if existing != nil {
		return existing, nil
	}

	app, err := s.dir.Application(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	job, err := s.dir.Job(ctx, app.JobID)
	if err != nil {
		return nil, err
	}

	// Provisional slot for the calendar payload. The calendar call stays
	// outside the transaction; the authoritative slot search re-runs inside
	// it against the transaction-scoped conflict checker.
	provisional, err := s.slots.Find(ctx, cfg, s.store)
	if err != nil {
		return nil, err
	}
	var cal *CalendarResult
	if cfg.Format == FormatLiveVideo && cfg.Calendar != "" && cfg.Calendar != CalendarNone {
		cal = s.mintCalendarEvent(ctx, "", cfg, app, job, provisional)
	}

	iv := &Interview{
		ID:              uuid.NewString(),
		ApplicationID:   applicationID,
		CandidateID:     app.CandidateID,
		JobID:           app.JobID,
		StageID:         stageID,
		DurationMinutes: cfg.DefaultDurationMinutes,
		Status:          StatusScheduled,
		Type:            cfg.Format,
		InterviewerIDs:  append([]string(nil), cfg.InterviewerIDs...),
		IsAutoScheduled: true,
	}
	if cal != nil {
		iv.MeetingLink = cal.MeetingLink
		iv.CalendarEventID = cal.EventID
	}

	created := true
	err = s.store.WithTx(ctx, func(tx Repo) error {
		if err := tx.LockStage(ctx, applicationID, stageID); err != nil {
			return err
		}
		// Re-check under the lock: a concurrent caller may have won.
		existing, err := tx.ActiveForStage(ctx, applicationID, stageID)
		if err != nil {
			return err
		}
		if existing != nil {
			iv = existing
			created = false
			return nil
		}

		start, err := s.slots.Find(ctx, cfg, tx)
		if err != nil {
			return err
		}
		if cal != nil && !start.Equal(provisional) {
			slog.Warn("slot moved between calendar call and commit",
				"interviewId", iv.ID, "provisional", provisional, "final", start)
		}
		iv.ScheduledDate = start
		iv.HistoryLog = appendHistory(nil, historyEntry{
			Op: "schedule", To: StatusScheduled, By: triggeredBy, At: s.now(),
		})
		if err := tx.CreateInterview(ctx, iv); err != nil {
			return err
		}
		return tx.UpsertStageProgress(ctx, applicationID, stageID, iv.ID)
	})
	if err != nil {
		return nil, err
	}

	if created {
		s.notify.InterviewScheduled(ctx, iv, app, job)
	}
	return iv, nil
}

// ─── Manual creation ─────────────────────────────────────────────────────────

// ManualParams carries a caller-chosen interview. StageID is optional:
// manual interviews created outside a pipeline stage are legal and exempt
// from the stage-progress linkage and the auto-reschedule cascades.
type ManualParams struct {
	ApplicationID   string
	StageID         string
	ScheduledDate   time.Time
	DurationMinutes int // 0 falls back to the stage's default duration
	Format          Format
	InterviewerIDs  []string // empty falls back to the stage's assigned interviewers
	CreatedBy       string
	Notes           string
}

// CreateManual schedules an interview at a caller-supplied time. It still
// runs the conflict checker and, when a stage is given, still enforces the
// one-active-interview rule for the pair.
func (s *Service) CreateManual(ctx context.Context, p ManualParams) (*Interview, error) {
	if p.ApplicationID == "" {
		return nil, &ValidationError{Msg: "applicationId is required"}
	}
	if err := s.validateWindow(p.ScheduledDate); err != nil {
		return nil, err
	}

	// Stage configuration supplies defaults when present. A disabled config
	// does not block a manual interview — the operator's choice wins.
	var cfg *StageConfig
	if p.StageID != "" {
		var err error
		if cfg, err = s.configs.StageConfig(ctx, p.StageID); err != nil {
			return nil, fmt.Errorf("load stage config: %w", err)
		}
	}

	duration := p.DurationMinutes
	if duration <= 0 && cfg != nil {
		duration = cfg.DefaultDurationMinutes
	}
	if duration <= 0 {
		return nil, &ValidationError{Msg: "durationMinutes is required"}
	}
	format := p.Format
	if format == "" && cfg != nil {
		format = cfg.Format
	}
	if format == "" {
		return nil, &ValidationError{Msg: "interview format is required"}
	}
	interviewers := p.InterviewerIDs
	if len(interviewers) == 0 && cfg != nil {
		interviewers = cfg.InterviewerIDs
	}
	buffer := DefaultBufferMinutes
	if cfg != nil && cfg.BufferMinutes > 0 {
		buffer = cfg.BufferMinutes
	}

	app, err := s.dir.Application(ctx, p.ApplicationID)
	if err != nil {
		return nil, err
	}
	job, err := s.dir.Job(ctx, app.JobID)
	if err != nil {
		return nil, err
	}

	var cal *CalendarResult
	if format == FormatLiveVideo && cfg != nil && cfg.Calendar != "" && cfg.Calendar != CalendarNone {
		cal = s.mintCalendarEvent(ctx, "", cfg, app, job, p.ScheduledDate)
	}

	iv := &Interview{
		ID:              uuid.NewString(),
		ApplicationID:   p.ApplicationID,
		CandidateID:     app.CandidateID,
		JobID:           app.JobID,
		StageID:         p.StageID,
		ScheduledDate:   p.ScheduledDate,
		DurationMinutes: duration,
		Status:          StatusScheduled,
		Type:            format,
		InterviewerIDs:  append([]string(nil), interviewers...),
		Notes:           p.Notes,
	}
	if cal != nil {
		iv.MeetingLink = cal.MeetingLink
		iv.CalendarEventID = cal.EventID
	}

	err = s.store.WithTx(ctx, func(tx Repo) error {
		if p.StageID != "" {
			if err := tx.LockStage(ctx, p.ApplicationID, p.StageID); err != nil {
				return err
			}
			existing, err := tx.ActiveForStage(ctx, p.ApplicationID, p.StageID)
			if err != nil {
				return err
			}
			if existing != nil {
				return &ValidationError{Msg: "an active interview already exists for this application and stage"}
			}
		}

		end := p.ScheduledDate.Add(time.Duration(duration) * time.Minute)
		busy, err := tx.HasConflict(ctx, p.ScheduledDate, end, buffer, "")
		if err != nil {
			return fmt.Errorf("conflict check: %w", err)
		}
		if busy {
			return &ConflictError{Start: p.ScheduledDate, End: end}
		}

		iv.HistoryLog = appendHistory(nil, historyEntry{
			Op: "schedule", To: StatusScheduled, By: p.CreatedBy, At: s.now(),
		})
		if err := tx.CreateInterview(ctx, iv); err != nil {
			return err
		}
		if p.StageID != "" {
			return tx.UpsertStageProgress(ctx, p.ApplicationID, p.StageID, iv.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify.InterviewScheduled(ctx, iv, app, job)
	return iv, nil
}

// ─── Reschedule ──────────────────────────────────────────────────────────────

// Reschedule moves an active interview to a new time. The interviewer list
// is preserved and rescheduledFrom is pinned to the chain's original
// interview id, however many times the interview has already moved.
func (s *Service) Reschedule(ctx context.Context, id string, newTime time.Time, actor, reason string) (*Interview, error) {
	if err := s.validateWindow(newTime); err != nil {
		return nil, err
	}

	// Pre-read for fast transition failure and for the calendar payload.
	current, err := s.store.GetInterview(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := Apply(OpReschedule, current.Status); err != nil {
		return nil, err
	}

	buffer, cfg := s.bufferFor(ctx, current.StageID)
	app, err := s.dir.Application(ctx, current.ApplicationID)
	if err != nil {
		return nil, err
	}
	job, err := s.dir.Job(ctx, current.JobID)
	if err != nil {
		return nil, err
	}

	// Regenerate the calendar event outside the transaction, best-effort.
	var cal *CalendarResult
	if current.Type == FormatLiveVideo && cfg != nil && cfg.Calendar != "" && cfg.Calendar != CalendarNone {
		cal = s.mintCalendarEvent(ctx, current.CalendarEventID, cfg, app, job, newTime)
	}

	var iv *Interview
	previous := current.ScheduledDate
	err = s.store.WithTx(ctx, func(tx Repo) error {
		iv, err = tx.GetInterview(ctx, id)
		if err != nil {
			return err
		}
		newStatus, err := Apply(OpReschedule, iv.Status)
		if err != nil {
			return err
		}
		if iv.StageID != "" {
			if err := tx.LockStage(ctx, iv.ApplicationID, iv.StageID); err != nil {
				return err
			}
		}

		end := newTime.Add(time.Duration(iv.DurationMinutes) * time.Minute)
		busy, err := tx.HasConflict(ctx, newTime, end, buffer, iv.ID)
		if err != nil {
			return fmt.Errorf("conflict check: %w", err)
		}
		if busy {
			return &ConflictError{Start: newTime, End: end}
		}

		now := s.now()
		previous = iv.ScheduledDate
		iv.RescheduledFrom = iv.ChainOriginID()
		iv.RescheduledAt = &now
		iv.RescheduledBy = actor
		from := iv.Status
		iv.Status = newStatus
		iv.ScheduledDate = newTime
		if cal != nil {
			iv.MeetingLink = cal.MeetingLink
			iv.CalendarEventID = cal.EventID
		}
		iv.HistoryLog = appendHistory(iv.HistoryLog, historyEntry{
			Op: string(OpReschedule), From: from, To: newStatus, By: actor, Reason: reason, At: now,
		})
		if err := tx.UpdateInterview(ctx, iv); err != nil {
			return err
		}
		if iv.StageID != "" {
			// Re-point the stage-progress linkage at this interview.
			return tx.UpsertStageProgress(ctx, iv.ApplicationID, iv.StageID, iv.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify.InterviewRescheduled(ctx, iv, previous, app)
	return iv, nil
}

// ─── Cancel / no-show ────────────────────────────────────────────────────────

// Cancel terminates an interview with a reason. When the stage's policy
// asks for it and no other active interview covers the pair, a replacement
// is auto-scheduled.
func (s *Service) Cancel(ctx context.Context, id, actor, reason string) (*Interview, error) {
	iv, err := s.terminate(ctx, id, OpCancel, actor, reason)
	if err != nil {
		return nil, err
	}

	if iv.CalendarEventID != "" {
		if err := s.calendar.CancelEvent(ctx, iv.CalendarEventID); err != nil {
			slog.Warn("calendar cancel failed", "interviewId", iv.ID, "err", err)
		}
	}
	s.notify.InterviewCancelled(ctx, iv, reason)

	s.cascade(ctx, iv, func(cfg *StageConfig) bool { return cfg.AutoRescheduleOnCancel })
	return iv, nil
}

// MarkNoShow records a candidate no-show. Lineage fields stay untouched —
// only a reschedule writes them — and the stage policy may cascade into a
// fresh auto-schedule.
func (s *Service) MarkNoShow(ctx context.Context, id, actor, reason string) (*Interview, error) {
	iv, err := s.terminate(ctx, id, OpNoShow, actor, reason)
	if err != nil {
		return nil, err
	}

	if iv.CalendarEventID != "" {
		if err := s.calendar.CancelEvent(ctx, iv.CalendarEventID); err != nil {
			slog.Warn("calendar cancel failed", "interviewId", iv.ID, "err", err)
		}
	}
	s.notify.InterviewNoShow(ctx, iv, reason)

	s.cascade(ctx, iv, func(cfg *StageConfig) bool { return cfg.AutoRescheduleOnNoShow })
	return iv, nil
}

// terminate applies a terminal operation (cancel or no-show) inside one
// transaction.
func (s *Service) terminate(ctx context.Context, id string, op Operation, actor, reason string) (*Interview, error) {
	var iv *Interview
	err := s.store.WithTx(ctx, func(tx Repo) error {
		var err error
		iv, err = tx.GetInterview(ctx, id)
		if err != nil {
			return err
		}
		newStatus, err := Apply(op, iv.Status)
		if err != nil {
			return err
		}
		from := iv.Status
		iv.Status = newStatus
		switch op {
		case OpCancel:
			iv.CancellationReason = reason
		case OpNoShow:
			iv.NoShowReason = reason
		}
		iv.HistoryLog = appendHistory(iv.HistoryLog, historyEntry{
			Op: string(op), From: from, To: newStatus, By: actor, Reason: reason, At: s.now(),
		})
		return tx.UpdateInterview(ctx, iv)
	})
	if err != nil {
		return nil, err
	}
	return iv, nil
}

// cascade re-enters the auto-schedule path after a cancel/no-show when the
// stage policy asks for it. Failures are logged, never surfaced: the
// terminal transition already committed.
func (s *Service) cascade(ctx context.Context, iv *Interview, policy func(*StageConfig) bool) {
	if iv.StageID == "" {
		return
	}
	cfg, err := s.configs.StageConfig(ctx, iv.StageID)
	if err != nil || cfg == nil || !policy(cfg) {
		return
	}
	active, err := s.store.ActiveForStage(ctx, iv.ApplicationID, iv.StageID)
	if err != nil || active != nil {
		return
	}
	if _, err := s.AutoSchedule(ctx, iv.ApplicationID, iv.StageID, systemActor); err != nil {
		slog.Warn("auto-reschedule cascade failed",
			"applicationId", iv.ApplicationID, "stageId", iv.StageID, "err", err)
	}
}

// ─── Status / outcome ────────────────────────────────────────────────────────

// Outcome carries the completion fields set alongside a COMPLETED status.
type Outcome struct {
	OverallScore   *float64
	Recommendation string
	Notes          string
}

// UpdateStatus moves an interview to IN_PROGRESS or COMPLETED. Completion
// also marks the stage-progress linkage complete.
func (s *Service) UpdateStatus(ctx context.Context, id string, status Status, actor string, outcome *Outcome) (*Interview, error) {
	var op Operation
	switch status {
	case StatusInProgress:
		op = OpStart
	case StatusCompleted:
		op = OpComplete
	default:
		return nil, &ValidationError{Msg: fmt.Sprintf("status must be %s or %s", StatusInProgress, StatusCompleted)}
	}

	var iv *Interview
	err := s.store.WithTx(ctx, func(tx Repo) error {
		var err error
		iv, err = tx.GetInterview(ctx, id)
		if err != nil {
			return err
		}
		newStatus, err := Apply(op, iv.Status)
		if err != nil {
			return err
		}
		from := iv.Status
		iv.Status = newStatus
		if newStatus == StatusCompleted && outcome != nil {
			if outcome.OverallScore != nil {
				iv.OverallScore = outcome.OverallScore
			}
			iv.Recommendation = outcome.Recommendation
			iv.Notes = outcome.Notes
		}
		iv.HistoryLog = appendHistory(iv.HistoryLog, historyEntry{
			Op: string(op), From: from, To: newStatus, By: actor, At: s.now(),
		})
		if err := tx.UpdateInterview(ctx, iv); err != nil {
			return err
		}
		if newStatus == StatusCompleted && iv.StageID != "" {
			return tx.CompleteStageProgress(ctx, iv.ApplicationID, iv.StageID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return iv, nil
}

// ─── Feedback ────────────────────────────────────────────────────────────────

// FeedbackInput is one interviewer's submitted evaluation.
type FeedbackInput struct {
	InterviewerID  string
	Rating         int // 1–5
	CriteriaScores map[string]int
	Strengths      string
	Weaknesses     string
	Comments       string
}

// RecordFeedback appends an interviewer's feedback and recomputes the
// interview's overall score as the mean of all recorded ratings.
func (s *Service) RecordFeedback(ctx context.Context, interviewID string, in FeedbackInput) (*Feedback, error) {
	if in.InterviewerID == "" {
		return nil, &ValidationError{Msg: "interviewerId is required"}
	}
	if in.Rating < 1 || in.Rating > 5 {
		return nil, &ValidationError{Msg: "rating must be between 1 and 5"}
	}

	fb := &Feedback{
		ID:             uuid.NewString(),
		InterviewID:    interviewID,
		InterviewerID:  in.InterviewerID,
		Rating:         in.Rating,
		CriteriaScores: in.CriteriaScores,
		Strengths:      in.Strengths,
		Weaknesses:     in.Weaknesses,
		Comments:       in.Comments,
		SubmittedAt:    s.now(),
	}

	err := s.store.WithTx(ctx, func(tx Repo) error {
		iv, err := tx.GetInterview(ctx, interviewID)
		if err != nil {
			return err
		}
		if err := tx.InsertFeedback(ctx, fb); err != nil {
			return err
		}
		all, err := tx.ListFeedback(ctx, interviewID)
		if err != nil {
			return err
		}
		var sum int
		for _, f := range all {
			sum += f.Rating
		}
		mean := float64(sum) / float64(len(all))
		iv.OverallScore = &mean
		return tx.UpdateInterview(ctx, iv)
	})
	if err != nil {
		return nil, err
	}
	return fb, nil
}

// ─── Queries ─────────────────────────────────────────────────────────────────

// Get returns one interview by id.
func (s *Service) Get(ctx context.Context, id string) (*Interview, error) {
	return s.store.GetInterview(ctx, id)
}

// ListByJob returns all interviews for a job, newest first.
func (s *Service) ListByJob(ctx context.Context, jobID string) ([]Interview, error) {
	return s.store.ListByJob(ctx, jobID)
}

// ListByApplication returns all interviews for an application, newest first.
func (s *Service) ListByApplication(ctx context.Context, applicationID string) ([]Interview, error) {
	return s.store.ListByApplication(ctx, applicationID)
}

// Progression reports which assigned interviewers have submitted feedback
// for an interview, for the pipeline-stage-progression logic. With
// requireAllInterviewers set the interview can only progress on unanimous
// feedback; otherwise a single submission suffices.
func (s *Service) Progression(ctx context.Context, interviewID string) (*ProgressionStatus, error) {
	iv, err := s.store.GetInterview(ctx, interviewID)
	if err != nil {
		return nil, err
	}
	all, err := s.store.ListFeedback(ctx, interviewID)
	if err != nil {
		return nil, err
	}

	requireAll := false
	if iv.StageID != "" {
		if cfg, err := s.configs.StageConfig(ctx, iv.StageID); err == nil && cfg != nil {
			requireAll = cfg.RequireAllInterviewers
		}
	}

	submitted := make(map[string]bool, len(all))
	for _, f := range all {
		submitted[f.InterviewerID] = true
	}
	st := &ProgressionStatus{
		InterviewID:            interviewID,
		RequireAllInterviewers: requireAll,
		Submitted:              make([]string, 0, len(all)),
		Missing:                make([]string, 0),
	}
	for _, id := range iv.InterviewerIDs {
		if submitted[id] {
			st.Submitted = append(st.Submitted, id)
		} else {
			st.Missing = append(st.Missing, id)
		}
	}
	st.AllSubmitted = len(st.Missing) == 0 && len(iv.InterviewerIDs) > 0
	st.CanProgress = st.AllSubmitted || (!requireAll && len(st.Submitted) > 0)
	return st, nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// validateWindow enforces the (now, now+365d] window for caller-supplied
// times.
func (s *Service) validateWindow(t time.Time) error {
	now := s.now()
	if !t.After(now) {
		return &PastDateError{When: t}
	}
	if t.After(now.AddDate(1, 0, 0)) {
		return &DateTooFarError{When: t}
	}
	return nil
}

// bufferFor resolves the buffer minutes for an interview's stage, falling
// back to the default for stage-less interviews.
func (s *Service) bufferFor(ctx context.Context, stageID string) (int, *StageConfig) {
	if stageID == "" {
		return DefaultBufferMinutes, nil
	}
	cfg, err := s.configs.StageConfig(ctx, stageID)
	if err != nil || cfg == nil {
		return DefaultBufferMinutes, nil
	}
	buffer := cfg.BufferMinutes
	if buffer <= 0 {
		buffer = DefaultBufferMinutes
	}
	return buffer, cfg
}

// mintCalendarEvent creates or regenerates the provider meeting for an
// interview. Failures are logged and swallowed; the interview is still
// scheduled without a link.
func (s *Service) mintCalendarEvent(ctx context.Context, eventID string, cfg *StageConfig, app *ApplicationRef, job *JobRef, start time.Time) *CalendarResult {
	if s.calendar == nil {
		return nil
	}
	ev := CalendarEvent{
		Summary:     fmt.Sprintf("%s — interview with %s", job.Title, app.CandidateName),
		Description: fmt.Sprintf("Interview for %s at %s", job.Title, job.CompanyName),
		Start:       start,
		End:         start.Add(time.Duration(cfg.DefaultDurationMinutes) * time.Minute),
		Attendees:   []string{app.CandidateEmail},
	}
	var (
		res *CalendarResult
		err error
	)
	if eventID != "" {
		res, err = s.calendar.UpdateEvent(ctx, eventID, ev)
	} else {
		res, err = s.calendar.CreateEvent(ctx, ev)
	}
	if err != nil {
		slog.Warn("calendar event failed", "applicationId", app.ID, "err", err)
		return nil
	}
	return res
}

// historyEntry is one audit record appended to an interview's history log.
type historyEntry struct {
	Op     string    `json:"op"`
	From   Status    `json:"from,omitempty"`
	To     Status    `json:"to"`
	By     string    `json:"by,omitempty"`
	Reason string    `json:"reason,omitempty"`
	At     time.Time `json:"at"`
}

// appendHistory appends one entry to a JSON-array history log.
func appendHistory(log json.RawMessage, entry historyEntry) json.RawMessage {
	var items []json.RawMessage
	if len(log) > 0 {
		_ = json.Unmarshal(log, &items)
	}
	raw, _ := json.Marshal(entry)
	items = append(items, raw)
	out, _ := json.Marshal(items)
	return out
}
