package interview

import (
	"encoding/json"
	"fmt"
	"time"
)

// ─── Enums ───────────────────────────────────────────────────────────────────

// Format mirrors the interview_type enum in PostgreSQL.
type Format string

const (
	FormatLiveVideo Format = "LIVE_VIDEO"
	FormatPhone     Format = "PHONE"
	FormatInPerson  Format = "IN_PERSON"
	FormatPanel     Format = "PANEL"
)

// ParseFormat converts a raw string to a Format, returning an error for
// unknown values.
func ParseFormat(s string) (Format, error) {
	f := Format(s)
	switch f {
	case FormatLiveVideo, FormatPhone, FormatInPerson, FormatPanel:
		return f, nil
	}
	return "", fmt.Errorf("unknown interview format %q", s)
}

// CalendarIntegration selects whether (and which) calendar provider is
// asked for a meeting link when an interview is scheduled.
type CalendarIntegration string

const (
	CalendarNone   CalendarIntegration = "NONE"
	CalendarGoogle CalendarIntegration = "GOOGLE"
)

// ─── Stage configuration ─────────────────────────────────────────────────────

// Default values applied by the configuration provider when a stage leaves
// the corresponding field unset.
const (
	DefaultBufferMinutes = 15
	DefaultWindowDays    = 7
)

// DefaultTimeSlots is the slot list used when a stage configures none.
var DefaultTimeSlots = []string{"09:00", "10:00", "14:00", "15:00"}

// StageConfig is the per-pipeline-stage interview configuration. It is
// owned and edited by the pipeline configuration flows; this engine only
// reads it.
type StageConfig struct {
	StageID                string
	Enabled                bool
	AutoSchedule           bool
	DefaultDurationMinutes int
	BufferMinutes          int
	TimeSlots              []string // "HH:MM", tried in list order
	WindowDays             int      // how many days ahead the slot search walks
	Format                 Format
	InterviewerIDs         []string
	Calendar               CalendarIntegration
	AutoRescheduleOnCancel bool
	AutoRescheduleOnNoShow bool
	RequireAllInterviewers bool
}

// Validate reports whether the engine can operate with this configuration.
// A nil or disabled config, or a non-positive duration, is a hard stop.
func (c *StageConfig) Validate() error {
	if c == nil {
		return &ConfigurationError{Reason: "no interview configuration"}
	}
	if !c.Enabled {
		return &ConfigurationError{StageID: c.StageID, Reason: "interview scheduling is disabled"}
	}
	if c.DefaultDurationMinutes <= 0 {
		return &ConfigurationError{StageID: c.StageID, Reason: "defaultDurationMinutes must be positive"}
	}
	return nil
}

// ─── Interview ───────────────────────────────────────────────────────────────

// Interview is the scheduled unit of work. Terminal interviews are kept
// forever for audit; rows are never deleted.
type Interview struct {
	ID            string `json:"id"`
	ApplicationID string `json:"applicationId"`
	CandidateID   string `json:"candidateId"`
	JobID         string `json:"jobId"`
	StageID       string `json:"stageId,omitempty"` // empty for manual interviews outside a pipeline

	ScheduledDate   time.Time `json:"scheduledDate"`
	DurationMinutes int       `json:"durationMinutes"`
	Status          Status    `json:"status"`
	Type            Format    `json:"type"`
	InterviewerIDs  []string  `json:"interviewerIds"`
	IsAutoScheduled bool      `json:"isAutoScheduled"`
	MeetingLink     string    `json:"meetingLink,omitempty"`
	CalendarEventID string    `json:"-"` // provider event id, kept for update/cancel calls

	// Reschedule lineage: always the first interview ever created for this
	// application+stage, never an intermediate link in the chain.
	RescheduledFrom string     `json:"rescheduledFrom,omitempty"`
	RescheduledAt   *time.Time `json:"rescheduledAt,omitempty"`
	RescheduledBy   string     `json:"rescheduledBy,omitempty"`

	CancellationReason string `json:"cancellationReason,omitempty"`
	NoShowReason       string `json:"noShowReason,omitempty"`

	// Outcome, written only on/after completion.
	OverallScore   *float64 `json:"overallScore,omitempty"`
	Recommendation string   `json:"recommendation,omitempty"`
	Notes          string   `json:"notes,omitempty"`

	HistoryLog json.RawMessage `json:"historyLog,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// End returns the exclusive end of the interview's time range.
func (iv *Interview) End() time.Time {
	return iv.ScheduledDate.Add(time.Duration(iv.DurationMinutes) * time.Minute)
}

// ChainOriginID resolves the id rescheduledFrom must carry after the next
// reschedule of this interview: the original id if this row is already part
// of a chain, otherwise the row's own id.
func (iv *Interview) ChainOriginID() string {
	if iv.RescheduledFrom != "" {
		return iv.RescheduledFrom
	}
	return iv.ID
}

// ─── Feedback ────────────────────────────────────────────────────────────────

// Feedback is one interviewer's submitted evaluation of an interview.
type Feedback struct {
	ID             string         `json:"id"`
	InterviewID    string         `json:"interviewId"`
	InterviewerID  string         `json:"interviewerId"`
	Rating         int            `json:"rating"` // 1–5
	CriteriaScores map[string]int `json:"criteriaScores,omitempty"`
	Strengths      string         `json:"strengths,omitempty"`
	Weaknesses     string         `json:"weaknesses,omitempty"`
	Comments       string         `json:"comments,omitempty"`
	SubmittedAt    time.Time      `json:"submittedAt"`
}

// ProgressionStatus reports which assigned interviewers have submitted
// feedback. It is consumed by the pipeline-stage-progression logic.
type ProgressionStatus struct {
	InterviewID            string   `json:"interviewId"`
	RequireAllInterviewers bool     `json:"requireAllInterviewers"`
	Submitted              []string `json:"submitted"`
	Missing                []string `json:"missing"`
	AllSubmitted           bool     `json:"allSubmitted"`
	CanProgress            bool     `json:"canProgress"`
}

// ─── External references ─────────────────────────────────────────────────────

// ApplicationRef is the slice of an application row the engine needs for
// linkage validation and notification/calendar payloads.
type ApplicationRef struct {
	ID             string
	CandidateID    string
	JobID          string
	CandidateName  string
	CandidateEmail string
}

// JobRef is the slice of a job row used in payloads.
type JobRef struct {
	ID          string
	Title       string
	CompanyName string
}
