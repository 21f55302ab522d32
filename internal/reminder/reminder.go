// Package reminder wires up the cron job that nudges candidates about
// interviews starting soon. It only reads the schedule and stamps
// reminder_sent_at — all scheduling decisions stay in the interview
// engine.
package reminder

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
)

// lookaheadHours is how far before the start a reminder fires.
const lookaheadHours = 24

// reminderChannel matches gateway.EventReminder; the Gateway renders the
// candidate-facing copy.
const reminderChannel = "EVENT_INTERVIEW_REMINDER"

// Scheduler wraps robfig/cron and manages the reminder loop.
type Scheduler struct {
	cron *cron.Cron
	pool *pgxpool.Pool
	rdb  *redis.Client
	spec string // cron spec, e.g. "@every 15m"
}

// New creates a Scheduler that fires every intervalMinutes minutes.
func New(pool *pgxpool.Pool, rdb *redis.Client, intervalMinutes int) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithLogger(cron.DefaultLogger)),
		pool: pool,
		rdb:  rdb,
		spec: fmt.Sprintf("@every %dm", intervalMinutes),
	}
}

// Start registers the job and starts the scheduler. Also runs one sweep
// immediately so reminders are not delayed by the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.sweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	log.Printf("[reminder] Cron started — spec: %s", s.spec)

	go s.sweep(ctx)

	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("[reminder] Cron stopped")
}

// sweep claims due reminders and publishes one event per interview. The
// UPDATE ... RETURNING claim makes concurrent sweeps (or replicas) safe:
// each row is stamped exactly once.
func (s *Scheduler) sweep(ctx context.Context) {
	rows, err := s.pool.Query(ctx,
		`UPDATE interviews
		 SET reminder_sent_at = NOW()
		 WHERE status IN ('SCHEDULED', 'RESCHEDULED')
		   AND reminder_sent_at IS NULL
		   AND scheduled_date > NOW()
		   AND scheduled_date <= NOW() + make_interval(hours => $1)
		 RETURNING id, application_id, candidate_id, scheduled_date, COALESCE(meeting_link, '')`,
		lookaheadHours)
	if err != nil {
		log.Printf("[reminder] sweep query error: %v", err)
		return
	}
	defer rows.Close()

	var sent int
	for rows.Next() {
		var (
			id, applicationID, candidateID, link string
			scheduledDate                        time.Time
		)
		if err := rows.Scan(&id, &applicationID, &candidateID, &scheduledDate, &link); err != nil {
			log.Printf("[reminder] sweep scan error: %v", err)
			return
		}

		event, _ := json.Marshal(map[string]string{
			"type":          reminderChannel,
			"interviewId":   id,
			"applicationId": applicationID,
			"candidateId":   candidateID,
			"scheduledDate": scheduledDate.UTC().Format(time.RFC3339),
			"meetingLink":   link,
		})
		if err := s.rdb.Publish(ctx, reminderChannel, event).Err(); err != nil {
			log.Printf("[reminder] publish failed for interview %s: %v", id, err)
			continue
		}
		sent++
	}
	if err := rows.Err(); err != nil {
		log.Printf("[reminder] sweep rows error: %v", err)
		return
	}
	if sent > 0 {
		log.Printf("[reminder] Sweep complete — %d reminder(s) sent", sent)
	}
}
