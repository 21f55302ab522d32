package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"jobmate/interview-service/internal/interview"
)

// Event channels consumed by the Gateway, which renders copy and forwards
// to the candidate over email/SSE.
const (
	EventScheduled   = "EVENT_INTERVIEW_SCHEDULED"
	EventRescheduled = "EVENT_INTERVIEW_RESCHEDULED"
	EventCancelled   = "EVENT_INTERVIEW_CANCELLED"
	EventNoShow      = "EVENT_INTERVIEW_NO_SHOW"
	EventReminder    = "EVENT_INTERVIEW_REMINDER"
)

// RedisNotifier publishes interview scheduling events to Redis.
// Fire-and-forget: publish failures are logged and never surfaced, so a
// dead notification channel cannot fail a scheduling decision.
type RedisNotifier struct {
	rdb *redis.Client
}

// NewRedisNotifier returns a notifier on rdb.
func NewRedisNotifier(rdb *redis.Client) *RedisNotifier {
	return &RedisNotifier{rdb: rdb}
}

// InterviewScheduled announces a newly scheduled interview.
func (n *RedisNotifier) InterviewScheduled(ctx context.Context, iv *interview.Interview, app *interview.ApplicationRef, job *interview.JobRef) {
	payload := map[string]any{
		"type":          EventScheduled,
		"interviewId":   iv.ID,
		"applicationId": iv.ApplicationID,
		"candidateId":   iv.CandidateID,
		"jobId":         iv.JobID,
		"scheduledDate": iv.ScheduledDate.UTC().Format(time.RFC3339),
		"meetingLink":   iv.MeetingLink,
		"autoScheduled": iv.IsAutoScheduled,
	}
	if app != nil {
		payload["candidateEmail"] = app.CandidateEmail
	}
	if job != nil {
		payload["jobTitle"] = job.Title
	}
	n.publish(ctx, EventScheduled, payload)
}

// InterviewRescheduled announces a moved interview with its previous time.
func (n *RedisNotifier) InterviewRescheduled(ctx context.Context, iv *interview.Interview, previous time.Time, app *interview.ApplicationRef) {
	payload := map[string]any{
		"type":          EventRescheduled,
		"interviewId":   iv.ID,
		"applicationId": iv.ApplicationID,
		"previousDate":  previous.UTC().Format(time.RFC3339),
		"scheduledDate": iv.ScheduledDate.UTC().Format(time.RFC3339),
		"meetingLink":   iv.MeetingLink,
	}
	if app != nil {
		payload["candidateEmail"] = app.CandidateEmail
	}
	n.publish(ctx, EventRescheduled, payload)
}

// InterviewCancelled announces a cancellation.
func (n *RedisNotifier) InterviewCancelled(ctx context.Context, iv *interview.Interview, reason string) {
	n.publish(ctx, EventCancelled, map[string]any{
		"type":          EventCancelled,
		"interviewId":   iv.ID,
		"applicationId": iv.ApplicationID,
		"reason":        reason,
	})
}

// InterviewNoShow announces a recorded no-show.
func (n *RedisNotifier) InterviewNoShow(ctx context.Context, iv *interview.Interview, reason string) {
	n.publish(ctx, EventNoShow, map[string]any{
		"type":          EventNoShow,
		"interviewId":   iv.ID,
		"applicationId": iv.ApplicationID,
		"reason":        reason,
	})
}

func (n *RedisNotifier) publish(ctx context.Context, channel string, payload map[string]any) {
	event, _ := json.Marshal(payload)
	if err := n.rdb.Publish(ctx, channel, event).Err(); err != nil {
		slog.Warn("publish failed", "channel", channel, "err", err)
	}
}
