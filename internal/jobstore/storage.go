package jobstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/mailsweep/internal/domain"
	"github.com/jmoiron/sqlx"
)

// Storage is the durable job queue. It is the sole coordination point
// between the producer API and the worker: both sides only ever touch
// jobs through it.
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// New creates a new Storage instance
func New(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// Create inserts a PENDING job and returns its assigned id
func (s *Storage) Create(ctx context.Context, jobType, parameters string) (int64, error) {
	query := `
		INSERT INTO jobs (job_type, parameters, status, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id
	`

	var id int64
	err := s.db.QueryRowContext(ctx, query, jobType, parameters, domain.JobStatusPending).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create job: %w", err)
	}

	s.logger.Info("Job created",
		slog.Int64("job_id", id),
		slog.String("job_type", jobType),
	)

	return id, nil
}

// ClaimNext atomically selects the oldest PENDING job (lowest id on ties),
// transitions it to RUNNING and returns a snapshot. Returns (nil, nil)
// when no PENDING job exists.
//
// The claim runs in a transaction with FOR UPDATE SKIP LOCKED so that a
// second consumer can never claim the same row, even though the reference
// deployment runs a single worker.
func (s *Storage) ClaimNext(ctx context.Context, workerID string) (*domain.Job, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin claim transaction: %w", err)
	}
	defer tx.Rollback()

	selectQuery := `
		SELECT id, job_type, parameters, status, progress_message, worker_id,
		       created_at, started_at, last_heartbeat_at, completed_at
		FROM jobs
		WHERE status = $1
		ORDER BY created_at ASC, id ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`

	var job domain.Job
	err = tx.GetContext(ctx, &job, selectQuery, domain.JobStatusPending)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to select pending job: %w", err)
	}

	updateQuery := `
		UPDATE jobs
		SET status = $1,
		    worker_id = $2,
		    started_at = NOW(),
		    last_heartbeat_at = NOW()
		WHERE id = $3
	`

	if _, err := tx.ExecContext(ctx, updateQuery, domain.JobStatusRunning, workerID, job.ID); err != nil {
		return nil, fmt.Errorf("failed to mark job running: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit claim: %w", err)
	}

	job.Status = domain.JobStatusRunning
	job.WorkerID = workerID

	s.logger.Info("Job claimed",
		slog.Int64("job_id", job.ID),
		slog.String("job_type", job.JobType),
		slog.String("worker_id", workerID),
	)

	return &job, nil
}

// ReportProgress overwrites a job's progress message without touching its
// status. Failures here are logged by the caller and never abort the job.
func (s *Storage) ReportProgress(ctx context.Context, jobID int64, message string) error {
	query := `UPDATE jobs SET progress_message = $1 WHERE id = $2`

	if _, err := s.db.ExecContext(ctx, query, message, jobID); err != nil {
		return fmt.Errorf("failed to update job progress: %w", err)
	}
	return nil
}

// Complete marks a job DONE with a summary message. Safe to call on an
// already-terminal job.
func (s *Storage) Complete(ctx context.Context, jobID int64, message string) error {
	return s.finish(ctx, jobID, domain.JobStatusDone, message)
}

// Fail marks a job FAILED with an error message. Safe to call on an
// already-terminal job.
func (s *Storage) Fail(ctx context.Context, jobID int64, message string) error {
	return s.finish(ctx, jobID, domain.JobStatusFailed, message)
}

func (s *Storage) finish(ctx context.Context, jobID int64, status, message string) error {
	query := `
		UPDATE jobs
		SET status = $1,
		    progress_message = $2,
		    completed_at = NOW()
		WHERE id = $3
	`

	if _, err := s.db.ExecContext(ctx, query, status, message, jobID); err != nil {
		return fmt.Errorf("failed to finish job: %w", err)
	}

	s.logger.Info("Job finished",
		slog.Int64("job_id", jobID),
		slog.String("status", status),
	)

	return nil
}

// Heartbeat bumps last_heartbeat_at for a RUNNING job
func (s *Storage) Heartbeat(ctx context.Context, jobID int64) error {
	query := `
		UPDATE jobs
		SET last_heartbeat_at = NOW()
		WHERE id = $1 AND status = $2
	`

	if _, err := s.db.ExecContext(ctx, query, jobID, domain.JobStatusRunning); err != nil {
		return fmt.Errorf("failed to update job heartbeat: %w", err)
	}
	return nil
}

// RequeueStale moves RUNNING jobs whose heartbeat is older than threshold
// back to PENDING so they can be claimed again. This is the crash-recovery
// path for jobs orphaned by a dead worker.
func (s *Storage) RequeueStale(ctx context.Context, threshold time.Duration) (int64, error) {
	query := `
		UPDATE jobs
		SET status = $1,
		    worker_id = '',
		    started_at = NULL,
		    last_heartbeat_at = NULL
		WHERE status = $2
		  AND last_heartbeat_at < NOW() - $3::interval
	`

	interval := fmt.Sprintf("%d seconds", int64(threshold.Seconds()))
	res, err := s.db.ExecContext(ctx, query, domain.JobStatusPending, domain.JobStatusRunning, interval)
	if err != nil {
		return 0, fmt.Errorf("failed to requeue stale jobs: %w", err)
	}

	requeued, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if requeued > 0 {
		s.logger.Warn("Requeued stale running jobs",
			slog.Int64("count", requeued),
			slog.Duration("threshold", threshold),
		)
	}

	return requeued, nil
}

// Get retrieves a single job by id
func (s *Storage) Get(ctx context.Context, jobID int64) (*domain.Job, error) {
	query := `
		SELECT id, job_type, parameters, status, progress_message, worker_id,
		       created_at, started_at, last_heartbeat_at, completed_at
		FROM jobs
		WHERE id = $1
	`

	var job domain.Job
	err := s.db.GetContext(ctx, &job, query, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// List returns the most recently created jobs, newest first
func (s *Storage) List(ctx context.Context, limit int) ([]domain.Job, error) {
	query := `
		SELECT id, job_type, parameters, status, progress_message, worker_id,
		       created_at, started_at, last_heartbeat_at, completed_at
		FROM jobs
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`

	var jobs []domain.Job
	if err := s.db.SelectContext(ctx, &jobs, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	return jobs, nil
}
