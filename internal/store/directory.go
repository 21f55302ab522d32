package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobmate/interview-service/internal/interview"
)

// Directory resolves application and job references for linkage validation
// and gateway payloads. Read-only: this service never mutates either table.
type Directory struct {
	pool *pgxpool.Pool
}

// NewDirectory returns a Directory on pool.
func NewDirectory(pool *pgxpool.Pool) *Directory {
	return &Directory{pool: pool}
}

// Application returns the application slice the engine needs, joined with
// the candidate's contact details.
func (d *Directory) Application(ctx context.Context, id string) (*interview.ApplicationRef, error) {
	var ref interview.ApplicationRef
	err := d.pool.QueryRow(ctx,
		`SELECT a.id, a.candidate_id, a.job_id,
		        COALESCE(c.full_name, ''), COALESCE(c.email, '')
		 FROM applications a
		 LEFT JOIN candidates c ON c.id = a.candidate_id
		 WHERE a.id = $1`,
		id,
	).Scan(&ref.ID, &ref.CandidateID, &ref.JobID, &ref.CandidateName, &ref.CandidateEmail)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, interview.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("application lookup: %w", err)
	}
	return &ref, nil
}

// Job returns the job slice used in notification and calendar payloads.
func (d *Directory) Job(ctx context.Context, id string) (*interview.JobRef, error) {
	var ref interview.JobRef
	err := d.pool.QueryRow(ctx,
		`SELECT id, COALESCE(title, ''), COALESCE(company_name, '')
		 FROM jobs
		 WHERE id = $1`,
		id,
	).Scan(&ref.ID, &ref.Title, &ref.CompanyName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, interview.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("job lookup: %w", err)
	}
	return &ref, nil
}
