package store

import (
	"context"
	"encoding/json"
	"fmt"

	"jobmate/interview-service/internal/interview"
)

// Stage-progress linkage and interviewer feedback, sharing the repo handle
// so they participate in the same transactions as the interview writes.

// UpsertStageProgress points the application+stage progress row at an
// interview, creating the row on first schedule.
func (r *repo) UpsertStageProgress(ctx context.Context, applicationID, stageID, interviewID string) error {
	_, err := r.q.Exec(ctx,
		`INSERT INTO stage_progress (application_id, stage_id, interview_id)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (application_id, stage_id)
		 DO UPDATE SET interview_id = EXCLUDED.interview_id, updated_at = NOW()`,
		applicationID, stageID, interviewID)
	if err != nil {
		return fmt.Errorf("upsertStageProgress: %w", err)
	}
	return nil
}

// CompleteStageProgress stamps the progress row completed.
func (r *repo) CompleteStageProgress(ctx context.Context, applicationID, stageID string) error {
	_, err := r.q.Exec(ctx,
		`UPDATE stage_progress
		 SET completed_at = NOW(), updated_at = NOW()
		 WHERE application_id = $1 AND stage_id = $2`,
		applicationID, stageID)
	if err != nil {
		return fmt.Errorf("completeStageProgress: %w", err)
	}
	return nil
}

// InsertFeedback appends one interviewer's feedback row.
func (r *repo) InsertFeedback(ctx context.Context, fb *interview.Feedback) error {
	var criteria []byte
	if len(fb.CriteriaScores) > 0 {
		criteria, _ = json.Marshal(fb.CriteriaScores)
	}
	_, err := r.q.Exec(ctx,
		`INSERT INTO interview_feedback (
		   id, interview_id, interviewer_id, rating, criteria_scores,
		   strengths, weaknesses, comments, submitted_at
		 ) VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), $9)`,
		fb.ID, fb.InterviewID, fb.InterviewerID, fb.Rating, criteria,
		fb.Strengths, fb.Weaknesses, fb.Comments, fb.SubmittedAt)
	if err != nil {
		return fmt.Errorf("insertFeedback: %w", err)
	}
	return nil
}

// ListFeedback returns all feedback for an interview, oldest first.
func (r *repo) ListFeedback(ctx context.Context, interviewID string) ([]interview.Feedback, error) {
	rows, err := r.q.Query(ctx,
		`SELECT id, interview_id, interviewer_id, rating, criteria_scores,
		        COALESCE(strengths, ''), COALESCE(weaknesses, ''), COALESCE(comments, ''),
		        submitted_at
		 FROM interview_feedback
		 WHERE interview_id = $1
		 ORDER BY submitted_at ASC`,
		interviewID)
	if err != nil {
		return nil, fmt.Errorf("listFeedback: %w", err)
	}
	defer rows.Close()

	out := make([]interview.Feedback, 0)
	for rows.Next() {
		var fb interview.Feedback
		var criteria []byte
		if err := rows.Scan(
			&fb.ID, &fb.InterviewID, &fb.InterviewerID, &fb.Rating, &criteria,
			&fb.Strengths, &fb.Weaknesses, &fb.Comments, &fb.SubmittedAt,
		); err != nil {
			return nil, fmt.Errorf("listFeedback scan: %w", err)
		}
		if len(criteria) > 0 {
			_ = json.Unmarshal(criteria, &fb.CriteriaScores)
		}
		out = append(out, fb)
	}
	return out, rows.Err()
}
