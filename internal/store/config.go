package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobmate/interview-service/internal/interview"
)

// ConfigProvider reads per-stage interview configuration. The rows are
// owned and edited by the pipeline configuration flows; this service only
// reads them (autocommit, no transaction needed).
type ConfigProvider struct {
	pool *pgxpool.Pool
}

// NewConfigProvider returns a ConfigProvider on pool.
func NewConfigProvider(pool *pgxpool.Pool) *ConfigProvider {
	return &ConfigProvider{pool: pool}
}

// StageConfig returns the interview configuration of a pipeline stage, or
// nil when the stage has none. Unset optional fields receive the engine
// defaults.
func (p *ConfigProvider) StageConfig(ctx context.Context, stageID string) (*interview.StageConfig, error) {
	var (
		cfg    interview.StageConfig
		format string
		cal    string
	)
	err := p.pool.QueryRow(ctx,
		`SELECT stage_id, enabled, auto_schedule, default_duration_minutes,
		        COALESCE(buffer_minutes, 0), COALESCE(time_slots, '{}'),
		        COALESCE(window_days, 0), COALESCE(format, ''),
		        COALESCE(interviewer_ids, '{}'), COALESCE(calendar_integration, 'NONE'),
		        auto_reschedule_on_cancel, auto_reschedule_on_no_show,
		        require_all_interviewers
		 FROM stage_configs
		 WHERE stage_id = $1`,
		stageID,
	).Scan(
		&cfg.StageID, &cfg.Enabled, &cfg.AutoSchedule, &cfg.DefaultDurationMinutes,
		&cfg.BufferMinutes, &cfg.TimeSlots,
		&cfg.WindowDays, &format,
		&cfg.InterviewerIDs, &cal,
		&cfg.AutoRescheduleOnCancel, &cfg.AutoRescheduleOnNoShow,
		&cfg.RequireAllInterviewers,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stageConfig: %w", err)
	}

	cfg.Format = interview.Format(format)
	cfg.Calendar = interview.CalendarIntegration(cal)
	if cfg.BufferMinutes <= 0 {
		cfg.BufferMinutes = interview.DefaultBufferMinutes
	}
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = interview.DefaultWindowDays
	}
	if len(cfg.TimeSlots) == 0 {
		cfg.TimeSlots = append([]string(nil), interview.DefaultTimeSlots...)
	}
	return &cfg, nil
}
