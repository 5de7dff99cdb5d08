// Package worker runs the single background job worker: a polling loop
// that claims one job at a time from the job store and drives the mailbox
// gateway, classifier, and message store through type-specific handlers.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/mailsweep/internal/domain"
	"github.com/cuongbtq/mailsweep/internal/gmail"
	"github.com/google/uuid"
)

// JobStore is the slice of the job queue the worker consumes
type JobStore interface {
	ClaimNext(ctx context.Context, workerID string) (*domain.Job, error)
	ReportProgress(ctx context.Context, jobID int64, message string) error
	Complete(ctx context.Context, jobID int64, message string) error
	Fail(ctx context.Context, jobID int64, message string) error
	Heartbeat(ctx context.Context, jobID int64) error
	RequeueStale(ctx context.Context, threshold time.Duration) (int64, error)
}

// MailStore is the slice of the message store the handlers write
type MailStore interface {
	FilterNew(ctx context.Context, ids []string) ([]string, error)
	Save(ctx context.Context, email *domain.Email) error
	ListByCategories(ctx context.Context, categories []string) ([]domain.Email, error)
	Remove(ctx context.Context, id string) error
}

// Gateway is the mailbox provider surface the handlers drive
type Gateway interface {
	ListMessageIDs(ctx context.Context, query string, cap int) ([]string, error)
	GetMessage(ctx context.Context, id string) (*gmail.Message, error)
	DeleteMessage(ctx context.Context, id string) error
}

// Classifier decides a category for one message
type Classifier interface {
	Classify(ctx context.Context, subject, sender, body string) (domain.Category, error)
}

// Config holds worker dependencies and tuning
type Config struct {
	Logger     *slog.Logger
	Jobs       JobStore
	Mail       MailStore
	Gateway    Gateway
	Classifier Classifier

	PollInterval      time.Duration
	LoopErrorBackoff  time.Duration
	DeleteBatchSize   int
	BatchPause        time.Duration
	HeartbeatInterval time.Duration
	StaleJobThreshold time.Duration
	ListCap           int
}

// Worker is the single background consumer of the job store
type Worker struct {
	logger     *slog.Logger
	jobs       JobStore
	mail       MailStore
	gateway    Gateway
	classifier Classifier
	workerID   string

	pollInterval      time.Duration
	loopErrorBackoff  time.Duration
	deleteBatchSize   int
	batchPause        time.Duration
	heartbeatInterval time.Duration
	staleJobThreshold time.Duration
	listCap           int
}

// New creates a new worker instance
func New(cfg *Config) *Worker {
	if cfg.DeleteBatchSize <= 0 {
		cfg.DeleteBatchSize = 25
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 30 * time.Second
	}
	if cfg.ListCap <= 0 {
		cfg.ListCap = 10000
	}

	return &Worker{
		logger:            cfg.Logger,
		jobs:              cfg.Jobs,
		mail:              cfg.Mail,
		gateway:           cfg.Gateway,
		classifier:        cfg.Classifier,
		workerID:          uuid.New().String(),
		pollInterval:      cfg.PollInterval,
		loopErrorBackoff:  cfg.LoopErrorBackoff,
		deleteBatchSize:   cfg.DeleteBatchSize,
		batchPause:        cfg.BatchPause,
		heartbeatInterval: cfg.HeartbeatInterval,
		staleJobThreshold: cfg.StaleJobThreshold,
		listCap:           cfg.ListCap,
	}
}

// Run polls the job store until the context is canceled. Errors outside a
// handler are survivable: logged, followed by a backoff pause, never fatal.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("Worker running, checking for jobs",
		slog.String("worker_id", w.workerID),
		slog.Duration("poll_interval", w.pollInterval),
	)

	for {
		if err := ctx.Err(); err != nil {
			w.logger.Info("Worker stopping",
				slog.String("worker_id", w.workerID),
			)
			return err
		}

		if err := w.pollOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			w.logger.Error("Unexpected error in worker loop",
				slog.Any("error", err),
				slog.Duration("backoff", w.loopErrorBackoff),
			)
			w.sleep(ctx, w.loopErrorBackoff)
		}
	}
}

// pollOnce performs one iteration: requeue stale claims, try to claim a
// job, process it or idle-wait.
func (w *Worker) pollOnce(ctx context.Context) error {
	if _, err := w.jobs.RequeueStale(ctx, w.staleJobThreshold); err != nil {
		return fmt.Errorf("stale job sweep: %w", err)
	}

	job, err := w.jobs.ClaimNext(ctx, w.workerID)
	if err != nil {
		return fmt.Errorf("claiming next job: %w", err)
	}

	if job == nil {
		w.sleep(ctx, w.pollInterval)
		return nil
	}

	w.process(ctx, job)
	return nil
}

// process dispatches a claimed job to its handler and writes the terminal
// state. Handler errors fail the job, they never escape to the loop.
func (w *Worker) process(ctx context.Context, job *domain.Job) {
	w.logger.Info("Processing job",
		slog.Int64("job_id", job.ID),
		slog.String("job_type", job.JobType),
	)

	stopHeartbeat := w.startHeartbeat(ctx, job.ID)
	defer stopHeartbeat()

	var summary string
	var err error

	switch job.JobType {
	case domain.JobTypeFetch:
		summary, err = w.runFetch(ctx, job)
	case domain.JobTypeDelete:
		summary, err = w.runDelete(ctx, job)
	default:
		err = fmt.Errorf("%w: %s", domain.ErrUnknownJobType, job.JobType)
	}

	if err != nil {
		w.logger.Error("Job failed",
			slog.Int64("job_id", job.ID),
			slog.String("job_type", job.JobType),
			slog.Any("error", err),
		)
		if failErr := w.jobs.Fail(ctx, job.ID, err.Error()); failErr != nil {
			w.logger.Error("Failed to mark job failed",
				slog.Int64("job_id", job.ID),
				slog.Any("error", failErr),
			)
		}
		return
	}

	if doneErr := w.jobs.Complete(ctx, job.ID, summary); doneErr != nil {
		w.logger.Error("Failed to mark job done",
			slog.Int64("job_id", job.ID),
			slog.Any("error", doneErr),
		)
		return
	}

	w.logger.Info("Job finished",
		slog.Int64("job_id", job.ID),
		slog.String("summary", summary),
	)
}

// reportProgress is fire-and-forget: a progress write failure must never
// abort the job.
func (w *Worker) reportProgress(ctx context.Context, jobID int64, message string) {
	if err := w.jobs.ReportProgress(ctx, jobID, message); err != nil {
		w.logger.Warn("Failed to report job progress",
			slog.Int64("job_id", jobID),
			slog.Any("error", err),
		)
	}
}

// startHeartbeat bumps the job's heartbeat until the returned stop func is
// called, so a crashed worker's claim eventually goes stale.
func (w *Worker) startHeartbeat(ctx context.Context, jobID int64) func() {
	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(w.heartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := w.jobs.Heartbeat(ctx, jobID); err != nil {
					w.logger.Warn("Failed to update job heartbeat",
						slog.Int64("job_id", jobID),
						slog.Any("error", err),
					)
				}
			}
		}
	}()

	return func() { close(done) }
}

// sleep waits for d or until the context is canceled
func (w *Worker) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
