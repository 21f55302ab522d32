package interview_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"jobmate/interview-service/internal/interview"
)

// ─── In-memory fakes ─────────────────────────────────────────────────────────

// memStore implements interview.Store over maps. WithTx runs the function
// directly against the store: good enough for single-goroutine tests, the
// real transaction semantics live in internal/store.
type memStore struct {
	interviews map[string]*interview.Interview
	feedback   map[string][]interview.Feedback
	progress   map[string]string
	completed  map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		interviews: make(map[string]*interview.Interview),
		feedback:   make(map[string][]interview.Feedback),
		progress:   make(map[string]string),
		completed:  make(map[string]bool),
	}
}

func stageKey(applicationID, stageID string) string { return applicationID + ":" + stageID }

func copyInterview(iv *interview.Interview) *interview.Interview {
	cp := *iv
	cp.InterviewerIDs = append([]string(nil), iv.InterviewerIDs...)
	return &cp
}

func (m *memStore) WithTx(_ context.Context, fn func(interview.Repo) error) error { return fn(m) }

func (m *memStore) LockStage(context.Context, string, string) error { return nil }

func (m *memStore) GetInterview(_ context.Context, id string) (*interview.Interview, error) {
	iv, ok := m.interviews[id]
	if !ok {
		return nil, interview.ErrNotFound
	}
	return copyInterview(iv), nil
}

func (m *memStore) ActiveForStage(_ context.Context, applicationID, stageID string) (*interview.Interview, error) {
	for _, iv := range m.interviews {
		if iv.ApplicationID == applicationID && iv.StageID == stageID && interview.IsActive(iv.Status) {
			return copyInterview(iv), nil
		}
	}
	return nil, nil
}

func (m *memStore) HasConflict(_ context.Context, start, end time.Time, bufferMinutes int, excludeID string) (bool, error) {
	buffer := time.Duration(bufferMinutes) * time.Minute
	for _, iv := range m.interviews {
		if !interview.IsActive(iv.Status) || iv.ID == excludeID {
			continue
		}
		if iv.ScheduledDate.Before(end.Add(buffer)) && iv.End().After(start.Add(-buffer)) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) CreateInterview(_ context.Context, iv *interview.Interview) error {
	m.interviews[iv.ID] = copyInterview(iv)
	return nil
}

func (m *memStore) UpdateInterview(_ context.Context, iv *interview.Interview) error {
	if _, ok := m.interviews[iv.ID]; !ok {
		return interview.ErrNotFound
	}
	m.interviews[iv.ID] = copyInterview(iv)
	return nil
}

func (m *memStore) ListByJob(_ context.Context, jobID string) ([]interview.Interview, error) {
	out := make([]interview.Interview, 0)
	for _, iv := range m.interviews {
		if iv.JobID == jobID {
			out = append(out, *copyInterview(iv))
		}
	}
	return out, nil
}

func (m *memStore) ListByApplication(_ context.Context, applicationID string) ([]interview.Interview, error) {
	out := make([]interview.Interview, 0)
	for _, iv := range m.interviews {
		if iv.ApplicationID == applicationID {
			out = append(out, *copyInterview(iv))
		}
	}
	return out, nil
}

func (m *memStore) UpsertStageProgress(_ context.Context, applicationID, stageID, interviewID string) error {
	m.progress[stageKey(applicationID, stageID)] = interviewID
	return nil
}

func (m *memStore) CompleteStageProgress(_ context.Context, applicationID, stageID string) error {
	m.completed[stageKey(applicationID, stageID)] = true
	return nil
}

func (m *memStore) InsertFeedback(_ context.Context, fb *interview.Feedback) error {
	m.feedback[fb.InterviewID] = append(m.feedback[fb.InterviewID], *fb)
	return nil
}

func (m *memStore) ListFeedback(_ context.Context, interviewID string) ([]interview.Feedback, error) {
	return append([]interview.Feedback(nil), m.feedback[interviewID]...), nil
}

// fakeConfigs serves stage configs from a map; absent stages yield nil.
type fakeConfigs map[string]*interview.StageConfig

func (f fakeConfigs) StageConfig(_ context.Context, stageID string) (*interview.StageConfig, error) {
	return f[stageID], nil
}

// fakeDir resolves every application to one candidate and one job.
type fakeDir struct{}

func (fakeDir) Application(_ context.Context, id string) (*interview.ApplicationRef, error) {
	if id == "app-missing" {
		return nil, interview.ErrNotFound
	}
	return &interview.ApplicationRef{
		ID: id, CandidateID: "cand-1", JobID: "job-1",
		CandidateName: "Ada Candidate", CandidateEmail: "ada@example.com",
	}, nil
}

func (fakeDir) Job(_ context.Context, id string) (*interview.JobRef, error) {
	return &interview.JobRef{ID: id, Title: "Backend Engineer", CompanyName: "JobMate"}, nil
}

type fakeCalendar struct {
	fail      bool
	created   int
	updated   int
	cancelled int
}

func (c *fakeCalendar) CreateEvent(context.Context, interview.CalendarEvent) (*interview.CalendarResult, error) {
	if c.fail {
		return nil, fmt.Errorf("calendar bridge unavailable")
	}
	c.created++
	return &interview.CalendarResult{EventID: "evt-1", MeetingLink: "https://meet.example.com/abc"}, nil
}

func (c *fakeCalendar) UpdateEvent(context.Context, string, interview.CalendarEvent) (*interview.CalendarResult, error) {
	if c.fail {
		return nil, fmt.Errorf("calendar bridge unavailable")
	}
	c.updated++
	return &interview.CalendarResult{EventID: "evt-1", MeetingLink: "https://meet.example.com/abc"}, nil
}

func (c *fakeCalendar) CancelEvent(context.Context, string) error {
	c.cancelled++
	return nil
}

type fakeNotifier struct {
	scheduled   int
	rescheduled int
	cancelled   int
	noShow      int
}

func (n *fakeNotifier) InterviewScheduled(context.Context, *interview.Interview, *interview.ApplicationRef, *interview.JobRef) {
	n.scheduled++
}
func (n *fakeNotifier) InterviewRescheduled(context.Context, *interview.Interview, time.Time, *interview.ApplicationRef) {
	n.rescheduled++
}
func (n *fakeNotifier) InterviewCancelled(context.Context, *interview.Interview, string) {
	n.cancelled++
}
func (n *fakeNotifier) InterviewNoShow(context.Context, *interview.Interview, string) {
	n.noShow++
}

// newEngine wires a Service over the fakes with the clock pinned to Monday
// 08:00.
func newEngine(cfg *interview.StageConfig) (*interview.Service, *memStore, *fakeCalendar, *fakeNotifier) {
	st := newMemStore()
	cal := &fakeCalendar{}
	notify := &fakeNotifier{}
	cfgs := fakeConfigs{}
	if cfg != nil {
		cfgs[cfg.StageID] = cfg
	}
	svc := interview.NewService(interview.Deps{
		Store:    st,
		Configs:  cfgs,
		Dir:      fakeDir{},
		Calendar: cal,
		Notify:   notify,
		Now:      func() time.Time { return at(monday, 8, 0) },
	})
	return svc, st, cal, notify
}

// ── AutoSchedule ───────────────────────────────────────────────────────────

func TestAutoSchedule_FirstFreeSlot(t *testing.T) {
	cfg := testConfig()
	cfg.InterviewerIDs = []string{"i-1", "i-2"}
	cfg.Format = interview.FormatPhone
	svc, st, _, notify := newEngine(cfg)

	iv, err := svc.AutoSchedule(context.Background(), "app-1", "stage-1", "recruiter-1")
	if err != nil {
		t.Fatalf("AutoSchedule returned unexpected error: %v", err)
	}
	if want := at(monday, 9, 0); !iv.ScheduledDate.Equal(want) {
		t.Errorf("ScheduledDate = %s, want %s", iv.ScheduledDate, want)
	}
	if iv.Status != interview.StatusScheduled {
		t.Errorf("Status = %s, want SCHEDULED", iv.Status)
	}
	if !iv.IsAutoScheduled {
		t.Error("IsAutoScheduled should be true")
	}
	if len(iv.InterviewerIDs) != 2 || iv.InterviewerIDs[0] != "i-1" {
		t.Errorf("InterviewerIDs = %v, want the stage's assigned interviewers", iv.InterviewerIDs)
	}
	if got := st.progress[stageKey("app-1", "stage-1")]; got != iv.ID {
		t.Errorf("stage progress points at %q, want %q", got, iv.ID)
	}
	if notify.scheduled != 1 {
		t.Errorf("scheduled notifications = %d, want 1", notify.scheduled)
	}
}

func TestAutoSchedule_Idempotent(t *testing.T) {
	svc, _, _, notify := newEngine(testConfig())

	first, err := svc.AutoSchedule(context.Background(), "app-1", "stage-1", "recruiter-1")
	if err != nil {
		t.Fatalf("first AutoSchedule: %v", err)
	}
	second, err := svc.AutoSchedule(context.Background(), "app-1", "stage-1", "recruiter-1")
	if err != nil {
		t.Fatalf("second AutoSchedule: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("second call created a duplicate: %q vs %q", first.ID, second.ID)
	}
	if notify.scheduled != 1 {
		t.Errorf("scheduled notifications = %d, want 1 (no duplicate event)", notify.scheduled)
	}
}

// An existing active interview at 09:00 pushes the next application to
// 10:00 — the 15-minute buffer is satisfied (09:30+15 = 09:45 ≤ 10:00).
func TestAutoSchedule_AvoidsBookedSlot(t *testing.T) {
	svc, _, _, _ := newEngine(testConfig())

	first, err := svc.AutoSchedule(context.Background(), "app-1", "stage-1", "recruiter-1")
	if err != nil {
		t.Fatalf("first AutoSchedule: %v", err)
	}
	if want := at(monday, 9, 0); !first.ScheduledDate.Equal(want) {
		t.Fatalf("first ScheduledDate = %s, want %s", first.ScheduledDate, want)
	}

	second, err := svc.AutoSchedule(context.Background(), "app-2", "stage-1", "recruiter-1")
	if err != nil {
		t.Fatalf("second AutoSchedule: %v", err)
	}
	if want := at(monday, 10, 0); !second.ScheduledDate.Equal(want) {
		t.Errorf("second ScheduledDate = %s, want %s", second.ScheduledDate, want)
	}
}

func TestAutoSchedule_ConfigurationGates(t *testing.T) {
	disabled := testConfig()
	disabled.Enabled = false

	noDuration := testConfig()
	noDuration.DefaultDurationMinutes = 0

	manualOnly := testConfig()
	manualOnly.AutoSchedule = false

	cases := []struct {
		name string
		cfg  *interview.StageConfig
	}{
		{"missing config", nil},
		{"disabled stage", disabled},
		{"zero duration", noDuration},
		{"auto-schedule off", manualOnly},
	}
	for _, c := range cases {
		svc, _, _, _ := newEngine(c.cfg)
		_, err := svc.AutoSchedule(context.Background(), "app-1", "stage-1", "recruiter-1")
		var cfgErr *interview.ConfigurationError
		if !errors.As(err, &cfgErr) {
			t.Errorf("%s: error = %v, want *ConfigurationError", c.name, err)
		}
	}
}

func TestAutoSchedule_MeetingLinkForLiveVideo(t *testing.T) {
	cfg := testConfig()
	cfg.Format = interview.FormatLiveVideo
	cfg.Calendar = interview.CalendarGoogle
	svc, _, cal, _ := newEngine(cfg)

	iv, err := svc.AutoSchedule(context.Background(), "app-1", "stage-1", "recruiter-1")
	if err != nil {
		t.Fatalf("AutoSchedule returned unexpected error: %v", err)
	}
	if iv.MeetingLink == "" {
		t.Error("MeetingLink should be set for LIVE_VIDEO with calendar integration")
	}
	if cal.created != 1 {
		t.Errorf("calendar events created = %d, want 1", cal.created)
	}
}

// A dead calendar bridge must not stop the interview from being scheduled.
func TestAutoSchedule_CalendarFailureIsSwallowed(t *testing.T) {
	cfg := testConfig()
	cfg.Format = interview.FormatLiveVideo
	cfg.Calendar = interview.CalendarGoogle
	svc, _, cal, notify := newEngine(cfg)
	cal.fail = true

	iv, err := svc.AutoSchedule(context.Background(), "app-1", "stage-1", "recruiter-1")
	if err != nil {
		t.Fatalf("AutoSchedule should succeed without a calendar, got: %v", err)
	}
	if iv.MeetingLink != "" {
		t.Errorf("MeetingLink = %q, want empty after calendar failure", iv.MeetingLink)
	}
	if notify.scheduled != 1 {
		t.Errorf("scheduled notifications = %d, want 1", notify.scheduled)
	}
}

func TestAutoSchedule_UnknownApplication(t *testing.T) {
	svc, _, _, _ := newEngine(testConfig())
	_, err := svc.AutoSchedule(context.Background(), "app-missing", "stage-1", "recruiter-1")
	if !errors.Is(err, interview.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

// ── CreateManual ───────────────────────────────────────────────────────────

func manualParams(when time.Time) interview.ManualParams {
	return interview.ManualParams{
		ApplicationID:   "app-1",
		ScheduledDate:   when,
		DurationMinutes: 45,
		Format:          interview.FormatInPerson,
		InterviewerIDs:  []string{"i-9"},
		CreatedBy:       "recruiter-1",
	}
}

func TestCreateManual_WithoutStage(t *testing.T) {
	svc, st, _, _ := newEngine(nil)

	iv, err := svc.CreateManual(context.Background(), manualParams(at(monday, 13, 0)))
	if err != nil {
		t.Fatalf("CreateManual returned unexpected error: %v", err)
	}
	if iv.StageID != "" {
		t.Errorf("StageID = %q, want empty for a manual interview outside a pipeline", iv.StageID)
	}
	if iv.IsAutoScheduled {
		t.Error("IsAutoScheduled should be false for manual creation")
	}
	if len(st.progress) != 0 {
		t.Error("no stage progress row should exist for a stage-less interview")
	}
}

func TestCreateManual_RejectsPastDate(t *testing.T) {
	svc, _, _, _ := newEngine(nil)
	_, err := svc.CreateManual(context.Background(), manualParams(at(monday, 7, 0)))
	var pastErr *interview.PastDateError
	if !errors.As(err, &pastErr) {
		t.Errorf("error = %v, want *PastDateError", err)
	}
}

func TestCreateManual_RejectsDateTooFar(t *testing.T) {
	svc, _, _, _ := newEngine(nil)
	_, err := svc.CreateManual(context.Background(), manualParams(at(monday.AddDate(1, 0, 1), 9, 0)))
	var farErr *interview.DateTooFarError
	if !errors.As(err, &farErr) {
		t.Errorf("error = %v, want *DateTooFarError", err)
	}
}

func TestCreateManual_ConflictWithActiveInterview(t *testing.T) {
	svc, _, _, _ := newEngine(testConfig())
	if _, err := svc.AutoSchedule(context.Background(), "app-1", "stage-1", "recruiter-1"); err != nil {
		t.Fatalf("AutoSchedule: %v", err)
	}

	// 09:15 overlaps the 09:00–09:30 interview even before buffering.
	p := manualParams(at(monday, 9, 15))
	p.ApplicationID = "app-2"
	_, err := svc.CreateManual(context.Background(), p)
	var conflictErr *interview.ConflictError
	if !errors.As(err, &conflictErr) {
		t.Errorf("error = %v, want *ConflictError", err)
	}
}

func TestCreateManual_OneActivePerStage(t *testing.T) {
	svc, _, _, _ := newEngine(testConfig())
	if _, err := svc.AutoSchedule(context.Background(), "app-1", "stage-1", "recruiter-1"); err != nil {
		t.Fatalf("AutoSchedule: %v", err)
	}

	p := manualParams(at(monday, 15, 0))
	p.StageID = "stage-1"
	_, err := svc.CreateManual(context.Background(), p)
	var validErr *interview.ValidationError
	if !errors.As(err, &validErr) {
		t.Errorf("error = %v, want *ValidationError (duplicate active interview)", err)
	}
}

// ── Reschedule ─────────────────────────────────────────────────────────────

func TestReschedule_PreservesInterviewersAndLineage(t *testing.T) {
	cfg := testConfig()
	cfg.InterviewerIDs = []string{"i-1", "i-2"}
	svc, _, _, notify := newEngine(cfg)

	original, err := svc.AutoSchedule(context.Background(), "app-1", "stage-1", "recruiter-1")
	if err != nil {
		t.Fatalf("AutoSchedule: %v", err)
	}

	moved, err := svc.Reschedule(context.Background(), original.ID, at(monday, 14, 0), "recruiter-2", "candidate request")
	if err != nil {
		t.Fatalf("first Reschedule: %v", err)
	}
	if moved.Status != interview.StatusRescheduled {
		t.Errorf("Status = %s, want RESCHEDULED", moved.Status)
	}
	if moved.RescheduledFrom != original.ID {
		t.Errorf("RescheduledFrom = %q, want original id %q", moved.RescheduledFrom, original.ID)
	}
	if moved.RescheduledBy != "recruiter-2" || moved.RescheduledAt == nil {
		t.Error("reschedule audit fields not set")
	}
	if len(moved.InterviewerIDs) != 2 {
		t.Errorf("InterviewerIDs = %v, want preserved", moved.InterviewerIDs)
	}

	// A second hop must still point at the chain's first interview.
	again, err := svc.Reschedule(context.Background(), original.ID, at(monday.AddDate(0, 0, 1), 11, 0), "recruiter-2", "")
	if err != nil {
		t.Fatalf("second Reschedule: %v", err)
	}
	if again.RescheduledFrom != original.ID {
		t.Errorf("chained RescheduledFrom = %q, want original id %q", again.RescheduledFrom, original.ID)
	}
	if notify.rescheduled != 2 {
		t.Errorf("rescheduled notifications = %d, want 2", notify.rescheduled)
	}
}

// Moving an interview close to its own old time must not conflict with
// itself.
func TestReschedule_ExcludesSelfFromConflictCheck(t *testing.T) {
	svc, _, _, _ := newEngine(testConfig())
	iv, err := svc.AutoSchedule(context.Background(), "app-1", "stage-1", "recruiter-1")
	if err != nil {
		t.Fatalf("AutoSchedule: %v", err)
	}

	if _, err := svc.Reschedule(context.Background(), iv.ID, iv.ScheduledDate.Add(10*time.Minute), "recruiter-1", ""); err != nil {
		t.Errorf("Reschedule overlapping its own slot should pass, got: %v", err)
	}
}

func TestReschedule_RejectsTerminalStates(t *testing.T) {
	svc, _, _, _ := newEngine(testConfig())
	iv, err := svc.AutoSchedule(context.Background(), "app-1", "stage-1", "recruiter-1")
	if err != nil {
		t.Fatalf("AutoSchedule: %v", err)
	}
	if _, err := svc.Cancel(context.Background(), iv.ID, "recruiter-1", "position closed"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	_, err = svc.Reschedule(context.Background(), iv.ID, at(monday, 15, 0), "recruiter-1", "")
	var transErr *interview.InvalidTransitionError
	if !errors.As(err, &transErr) {
		t.Errorf("error = %v, want *InvalidTransitionError", err)
	}
}

// ── Cancel / no-show ───────────────────────────────────────────────────────

func TestCancel_RecordsReason(t *testing.T) {
	svc, st, _, notify := newEngine(testConfig())
	iv, err := svc.AutoSchedule(context.Background(), "app-1", "stage-1", "recruiter-1")
	if err != nil {
		t.Fatalf("AutoSchedule: %v", err)
	}

	cancelled, err := svc.Cancel(context.Background(), iv.ID, "recruiter-1", "position closed")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != interview.StatusCancelled {
		t.Errorf("Status = %s, want CANCELLED", cancelled.Status)
	}
	if cancelled.CancellationReason != "position closed" {
		t.Errorf("CancellationReason = %q", cancelled.CancellationReason)
	}
	if notify.cancelled != 1 {
		t.Errorf("cancelled notifications = %d, want 1", notify.cancelled)
	}
	// No cascade without the policy flag.
	if active, _ := st.ActiveForStage(context.Background(), "app-1", "stage-1"); active != nil {
		t.Error("no replacement interview expected without autoRescheduleOnCancel")
	}
}

func TestCancel_TerminalStatesRejected(t *testing.T) {
	svc, _, _, _ := newEngine(testConfig())
	iv, err := svc.AutoSchedule(context.Background(), "app-1", "stage-1", "recruiter-1")
	if err != nil {
		t.Fatalf("AutoSchedule: %v", err)
	}
	if _, err := svc.UpdateStatus(context.Background(), iv.ID, interview.StatusCompleted, "recruiter-1", nil); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	_, err = svc.Cancel(context.Background(), iv.ID, "recruiter-1", "too late")
	var transErr *interview.InvalidTransitionError
	if !errors.As(err, &transErr) {
		t.Fatalf("cancel on COMPLETED: error = %v, want *InvalidTransitionError", err)
	}

	other, err := svc.AutoSchedule(context.Background(), "app-2", "stage-1", "recruiter-1")
	if err != nil {
		t.Fatalf("AutoSchedule: %v", err)
	}
	if _, err := svc.Cancel(context.Background(), other.ID, "recruiter-1", "first"); err != nil {
		t.Fatalf("first Cancel: %v", err)
	}
	_, err = svc.Cancel(context.Background(), other.ID, "recruiter-1", "second")
	if !errors.As(err, &transErr) {
		t.Errorf("cancel on CANCELLED: error = %v, want *InvalidTransitionError", err)
	}
}

func TestCancel_CascadesIntoReplacement(t *testing.T) {
	cfg := testConfig()
	cfg.AutoRescheduleOnCancel = true
	svc, st, _, _ := newEngine(cfg)

	iv, err := svc.AutoSchedule(context.Background(), "app-1", "stage-1", "recruiter-1")
	if err != nil {
		t.Fatalf("AutoSchedule: %v", err)
	}
	if _, err := svc.Cancel(context.Background(), iv.ID, "recruiter-1", "interviewer sick"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	replacement, err := st.ActiveForStage(context.Background(), "app-1", "stage-1")
	if err != nil || replacement == nil {
		t.Fatalf("expected a cascaded replacement interview, got %v (err %v)", replacement, err)
	}
	if replacement.ID == iv.ID {
		t.Error("replacement must be a new interview")
	}
	if !replacement.IsAutoScheduled {
		t.Error("replacement should be auto-scheduled")
	}
}

func TestMarkNoShow_CascadeLeavesLineageUntouched(t *testing.T) {
	cfg := testConfig()
	cfg.AutoRescheduleOnNoShow = true
	svc, st, _, notify := newEngine(cfg)

	iv, err := svc.AutoSchedule(context.Background(), "app-1", "stage-1", "recruiter-1")
	if err != nil {
		t.Fatalf("AutoSchedule: %v", err)
	}
	marked, err := svc.MarkNoShow(context.Background(), iv.ID, "recruiter-1", "candidate absent")
	if err != nil {
		t.Fatalf("MarkNoShow: %v", err)
	}
	if marked.Status != interview.StatusNoShow {
		t.Errorf("Status = %s, want NO_SHOW", marked.Status)
	}
	if marked.NoShowReason != "candidate absent" {
		t.Errorf("NoShowReason = %q", marked.NoShowReason)
	}
	// Lineage is only written by reschedule, never by a no-show cascade.
	if marked.RescheduledFrom != "" || marked.RescheduledAt != nil {
		t.Error("no-show must not touch reschedule lineage fields")
	}

	replacement, _ := st.ActiveForStage(context.Background(), "app-1", "stage-1")
	if replacement == nil || replacement.ID == iv.ID {
		t.Fatal("expected a fresh cascaded interview after no-show")
	}
	if replacement.RescheduledFrom != "" {
		t.Errorf("cascaded interview RescheduledFrom = %q, want empty", replacement.RescheduledFrom)
	}
	if notify.noShow != 1 || notify.scheduled != 2 {
		t.Errorf("notifications = {noShow:%d scheduled:%d}, want {1 2}", notify.noShow, notify.scheduled)
	}
}

func TestMarkNoShow_RejectedFromInProgress(t *testing.T) {
	svc, _, _, _ := newEngine(testConfig())
	iv, err := svc.AutoSchedule(context.Background(), "app-1", "stage-1", "recruiter-1")
	if err != nil {
		t.Fatalf("AutoSchedule: %v", err)
	}
	if _, err := svc.UpdateStatus(context.Background(), iv.ID, interview.StatusInProgress, "recruiter-1", nil); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	_, err = svc.MarkNoShow(context.Background(), iv.ID, "recruiter-1", "")
	var transErr *interview.InvalidTransitionError
	if !errors.As(err, &transErr) {
		t.Errorf("error = %v, want *InvalidTransitionError", err)
	}
}

// ── UpdateStatus ───────────────────────────────────────────────────────────

func TestUpdateStatus_CompleteRecordsOutcomeAndProgress(t *testing.T) {
	svc, st, _, _ := newEngine(testConfig())
	iv, err := svc.AutoSchedule(context.Background(), "app-1", "stage-1", "recruiter-1")
	if err != nil {
		t.Fatalf("AutoSchedule: %v", err)
	}

	score := 4.0
	done, err := svc.UpdateStatus(context.Background(), iv.ID, interview.StatusCompleted, "recruiter-1", &interview.Outcome{
		OverallScore:   &score,
		Recommendation: "HIRE",
		Notes:          "strong systems background",
	})
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if done.Status != interview.StatusCompleted {
		t.Errorf("Status = %s, want COMPLETED", done.Status)
	}
	if done.OverallScore == nil || *done.OverallScore != 4.0 {
		t.Errorf("OverallScore = %v, want 4.0", done.OverallScore)
	}
	if done.Recommendation != "HIRE" {
		t.Errorf("Recommendation = %q", done.Recommendation)
	}
	if !st.completed[stageKey("app-1", "stage-1")] {
		t.Error("stage progress should be marked complete")
	}
}

func TestUpdateStatus_OnlyStartAndComplete(t *testing.T) {
	svc, _, _, _ := newEngine(testConfig())
	iv, err := svc.AutoSchedule(context.Background(), "app-1", "stage-1", "recruiter-1")
	if err != nil {
		t.Fatalf("AutoSchedule: %v", err)
	}

	for _, status := range []interview.Status{interview.StatusCancelled, interview.StatusNoShow, interview.StatusScheduled} {
		_, err := svc.UpdateStatus(context.Background(), iv.ID, status, "recruiter-1", nil)
		var validErr *interview.ValidationError
		if !errors.As(err, &validErr) {
			t.Errorf("UpdateStatus(%s): error = %v, want *ValidationError", status, err)
		}
	}
}

// ── Feedback & progression ─────────────────────────────────────────────────

func TestRecordFeedback_RecomputesMeanScore(t *testing.T) {
	svc, _, _, _ := newEngine(testConfig())
	iv, err := svc.AutoSchedule(context.Background(), "app-1", "stage-1", "recruiter-1")
	if err != nil {
		t.Fatalf("AutoSchedule: %v", err)
	}

	if _, err := svc.RecordFeedback(context.Background(), iv.ID, interview.FeedbackInput{
		InterviewerID: "i-1", Rating: 4,
	}); err != nil {
		t.Fatalf("first RecordFeedback: %v", err)
	}
	if _, err := svc.RecordFeedback(context.Background(), iv.ID, interview.FeedbackInput{
		InterviewerID: "i-2", Rating: 5,
		CriteriaScores: map[string]int{"technical": 5, "communication": 4},
	}); err != nil {
		t.Fatalf("second RecordFeedback: %v", err)
	}

	got, err := svc.Get(context.Background(), iv.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.OverallScore == nil || *got.OverallScore != 4.5 {
		t.Errorf("OverallScore = %v, want 4.5", got.OverallScore)
	}
}

func TestRecordFeedback_RatingBounds(t *testing.T) {
	svc, _, _, _ := newEngine(testConfig())
	iv, err := svc.AutoSchedule(context.Background(), "app-1", "stage-1", "recruiter-1")
	if err != nil {
		t.Fatalf("AutoSchedule: %v", err)
	}

	for _, rating := range []int{0, 6, -1} {
		_, err := svc.RecordFeedback(context.Background(), iv.ID, interview.FeedbackInput{
			InterviewerID: "i-1", Rating: rating,
		})
		var validErr *interview.ValidationError
		if !errors.As(err, &validErr) {
			t.Errorf("rating %d: error = %v, want *ValidationError", rating, err)
		}
	}
}

func TestProgression_RequireAllInterviewers(t *testing.T) {
	cfg := testConfig()
	cfg.InterviewerIDs = []string{"i-1", "i-2"}
	cfg.RequireAllInterviewers = true
	svc, _, _, _ := newEngine(cfg)

	iv, err := svc.AutoSchedule(context.Background(), "app-1", "stage-1", "recruiter-1")
	if err != nil {
		t.Fatalf("AutoSchedule: %v", err)
	}
	if _, err := svc.RecordFeedback(context.Background(), iv.ID, interview.FeedbackInput{
		InterviewerID: "i-1", Rating: 4,
	}); err != nil {
		t.Fatalf("RecordFeedback: %v", err)
	}

	st, err := svc.Progression(context.Background(), iv.ID)
	if err != nil {
		t.Fatalf("Progression: %v", err)
	}
	if st.AllSubmitted || st.CanProgress {
		t.Errorf("progression = %+v, want blocked until all interviewers submit", st)
	}
	if len(st.Missing) != 1 || st.Missing[0] != "i-2" {
		t.Errorf("Missing = %v, want [i-2]", st.Missing)
	}

	if _, err := svc.RecordFeedback(context.Background(), iv.ID, interview.FeedbackInput{
		InterviewerID: "i-2", Rating: 5,
	}); err != nil {
		t.Fatalf("RecordFeedback: %v", err)
	}
	st, err = svc.Progression(context.Background(), iv.ID)
	if err != nil {
		t.Fatalf("Progression: %v", err)
	}
	if !st.AllSubmitted || !st.CanProgress {
		t.Errorf("progression = %+v, want progressable after unanimous feedback", st)
	}
}

func TestProgression_SingleFeedbackSufficesWithoutRequireAll(t *testing.T) {
	cfg := testConfig()
	cfg.InterviewerIDs = []string{"i-1", "i-2"}
	svc, _, _, _ := newEngine(cfg)

	iv, err := svc.AutoSchedule(context.Background(), "app-1", "stage-1", "recruiter-1")
	if err != nil {
		t.Fatalf("AutoSchedule: %v", err)
	}
	if _, err := svc.RecordFeedback(context.Background(), iv.ID, interview.FeedbackInput{
		InterviewerID: "i-1", Rating: 3,
	}); err != nil {
		t.Fatalf("RecordFeedback: %v", err)
	}

	st, err := svc.Progression(context.Background(), iv.ID)
	if err != nil {
		t.Fatalf("Progression: %v", err)
	}
	if st.AllSubmitted {
		t.Error("AllSubmitted should be false with one of two interviewers")
	}
	if !st.CanProgress {
		t.Error("CanProgress should be true without requireAllInterviewers")
	}
}

// ── Cross-cutting properties ───────────────────────────────────────────────

// Every successful scheduling call yields a strictly future date.
func TestScheduling_AlwaysStrictlyFuture(t *testing.T) {
	svc, _, _, _ := newEngine(testConfig())
	now := at(monday, 8, 0)

	auto, err := svc.AutoSchedule(context.Background(), "app-1", "stage-1", "recruiter-1")
	if err != nil {
		t.Fatalf("AutoSchedule: %v", err)
	}
	if !auto.ScheduledDate.After(now) {
		t.Errorf("auto-scheduled date %s is not after %s", auto.ScheduledDate, now)
	}

	manual, err := svc.CreateManual(context.Background(), manualParams(at(monday, 16, 0)))
	if err != nil {
		t.Fatalf("CreateManual: %v", err)
	}
	if !manual.ScheduledDate.After(now) {
		t.Errorf("manual date %s is not after %s", manual.ScheduledDate, now)
	}
}
