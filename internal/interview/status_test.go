package interview_test

import (
	"errors"
	"testing"

	"jobmate/interview-service/internal/interview"
)

// ── ParseStatus ────────────────────────────────────────────────────────────

func TestParseStatus_ValidValues(t *testing.T) {
	valid := []string{"SCHEDULED", "RESCHEDULED", "IN_PROGRESS", "COMPLETED", "CANCELLED", "NO_SHOW"}
	for _, s := range valid {
		got, err := interview.ParseStatus(s)
		if err != nil {
			t.Errorf("ParseStatus(%q) returned unexpected error: %v", s, err)
		}
		if string(got) != s {
			t.Errorf("ParseStatus(%q) = %q, want %q", s, got, s)
		}
	}
}

func TestParseStatus_InvalidValue(t *testing.T) {
	_, err := interview.ParseStatus("UNKNOWN")
	if err == nil {
		t.Error("ParseStatus(\"UNKNOWN\") expected error, got nil")
	}
}

func TestParseStatus_EmptyString(t *testing.T) {
	_, err := interview.ParseStatus("")
	if err == nil {
		t.Error("ParseStatus(\"\") expected error, got nil")
	}
}

// ParseStatus must be case-sensitive — lowercase variants must not be valid.
func TestParseStatus_CaseSensitive(t *testing.T) {
	lowercase := []string{"scheduled", "rescheduled", "in_progress", "completed", "cancelled", "no_show"}
	for _, s := range lowercase {
		_, err := interview.ParseStatus(s)
		if err == nil {
			t.Errorf("ParseStatus(%q) should reject lowercase value, got nil error", s)
		}
	}
}

// ── IsActive / IsTerminal ──────────────────────────────────────────────────

func TestIsActive(t *testing.T) {
	active := []interview.Status{
		interview.StatusScheduled,
		interview.StatusRescheduled,
		interview.StatusInProgress,
	}
	for _, s := range active {
		if !interview.IsActive(s) {
			t.Errorf("IsActive(%s) should return true", s)
		}
	}
	inactive := []interview.Status{
		interview.StatusCompleted,
		interview.StatusCancelled,
		interview.StatusNoShow,
	}
	for _, s := range inactive {
		if interview.IsActive(s) {
			t.Errorf("IsActive(%s) should return false", s)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	terminals := []interview.Status{
		interview.StatusCompleted,
		interview.StatusCancelled,
		interview.StatusNoShow,
	}
	for _, s := range terminals {
		if !interview.IsTerminal(s) {
			t.Errorf("IsTerminal(%s) should return true", s)
		}
		if interview.IsActive(s) {
			t.Errorf("terminal status %s must not be active", s)
		}
	}
}

// ── CanApply — allowed operations per state ────────────────────────────────

func TestCanApply_FromScheduled(t *testing.T) {
	ops := []interview.Operation{
		interview.OpReschedule,
		interview.OpStart,
		interview.OpComplete,
		interview.OpCancel,
		interview.OpNoShow,
	}
	for _, op := range ops {
		if !interview.CanApply(op, interview.StatusScheduled) {
			t.Errorf("CanApply(%s, SCHEDULED) should be true", op)
		}
		if !interview.CanApply(op, interview.StatusRescheduled) {
			t.Errorf("CanApply(%s, RESCHEDULED) should be true", op)
		}
	}
}

func TestCanApply_FromInProgress(t *testing.T) {
	allowed := []interview.Operation{interview.OpComplete, interview.OpCancel}
	for _, op := range allowed {
		if !interview.CanApply(op, interview.StatusInProgress) {
			t.Errorf("CanApply(%s, IN_PROGRESS) should be true", op)
		}
	}
	forbidden := []interview.Operation{
		interview.OpReschedule,
		interview.OpStart,
		interview.OpNoShow,
	}
	for _, op := range forbidden {
		if interview.CanApply(op, interview.StatusInProgress) {
			t.Errorf("CanApply(%s, IN_PROGRESS) should be false", op)
		}
	}
}

// Terminal states accept no operation at all.
func TestCanApply_FromTerminal(t *testing.T) {
	terminals := []interview.Status{
		interview.StatusCompleted,
		interview.StatusCancelled,
		interview.StatusNoShow,
	}
	ops := []interview.Operation{
		interview.OpReschedule,
		interview.OpStart,
		interview.OpComplete,
		interview.OpCancel,
		interview.OpNoShow,
	}
	for _, from := range terminals {
		for _, op := range ops {
			if interview.CanApply(op, from) {
				t.Errorf("CanApply(%s, %s) should be false (terminal state)", op, from)
			}
		}
	}
}

// ── Apply ──────────────────────────────────────────────────────────────────

func TestApply_Targets(t *testing.T) {
	cases := []struct {
		op   interview.Operation
		from interview.Status
		want interview.Status
	}{
		{interview.OpReschedule, interview.StatusScheduled, interview.StatusRescheduled},
		{interview.OpReschedule, interview.StatusRescheduled, interview.StatusRescheduled},
		{interview.OpStart, interview.StatusScheduled, interview.StatusInProgress},
		{interview.OpComplete, interview.StatusInProgress, interview.StatusCompleted},
		{interview.OpCancel, interview.StatusScheduled, interview.StatusCancelled},
		{interview.OpNoShow, interview.StatusRescheduled, interview.StatusNoShow},
	}
	for _, c := range cases {
		got, err := interview.Apply(c.op, c.from)
		if err != nil {
			t.Errorf("Apply(%s, %s) unexpected error: %v", c.op, c.from, err)
			continue
		}
		if got != c.want {
			t.Errorf("Apply(%s, %s) = %s, want %s", c.op, c.from, got, c.want)
		}
	}
}

func TestApply_RejectedTransitionNamesStateAndOperation(t *testing.T) {
	_, err := interview.Apply(interview.OpCancel, interview.StatusCompleted)
	if err == nil {
		t.Fatal("Apply(cancel, COMPLETED) expected error, got nil")
	}
	var transErr *interview.InvalidTransitionError
	if !errors.As(err, &transErr) {
		t.Fatalf("Apply(cancel, COMPLETED) error type = %T, want *InvalidTransitionError", err)
	}
	if transErr.Current != interview.StatusCompleted || transErr.Op != interview.OpCancel {
		t.Errorf("InvalidTransitionError = {%s %s}, want {COMPLETED cancel}",
			transErr.Current, transErr.Op)
	}
}
