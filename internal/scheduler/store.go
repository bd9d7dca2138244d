package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// PostgresJobStore хранит задания в таблице scheduled_jobs.
type PostgresJobStore struct {
	db *sqlx.DB
}

func NewPostgresJobStore(db *sqlx.DB) *PostgresJobStore {
	return &PostgresJobStore{db: db}
}

func (s *PostgresJobStore) Insert(ctx context.Context, job *Job) error {
	query := `
		INSERT INTO scheduled_jobs (name, payload, run_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	if err := s.db.QueryRowxContext(ctx, query, job.Name, job.Payload, job.RunAt).
		Scan(&job.ID, &job.CreatedAt); err != nil {
		return fmt.Errorf("job store: insert %w", err)
	}
	return nil
}

func (s *PostgresJobStore) GetPending(ctx context.Context, id uuid.UUID) (*Job, error) {
	var job Job
	err := s.db.GetContext(ctx, &job,
		`SELECT * FROM scheduled_jobs WHERE id = $1 AND completed_at IS NULL`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("job store: get pending %w", err)
	}
	return &job, nil
}

func (s *PostgresJobStore) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE scheduled_jobs SET completed_at = NOW() WHERE id = $1 AND completed_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("job store: mark completed %w", err)
	}
	return nil
}

func (s *PostgresJobStore) ListPending(ctx context.Context) ([]Job, error) {
	var jobs []Job
	err := s.db.SelectContext(ctx, &jobs,
		`SELECT * FROM scheduled_jobs WHERE completed_at IS NULL ORDER BY run_at`)
	if err != nil {
		return nil, fmt.Errorf("job store: list pending %w", err)
	}
	return jobs, nil
}
