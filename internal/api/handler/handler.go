package handler

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/mailsweep/internal/domain"
	"github.com/cuongbtq/mailsweep/internal/mailstore"
)

// JobStore is the producer-side slice of the job queue
type JobStore interface {
	Create(ctx context.Context, jobType, parameters string) (int64, error)
	Get(ctx context.Context, jobID int64) (*domain.Job, error)
	List(ctx context.Context, limit int) ([]domain.Job, error)
}

// MailStats exposes the message store's aggregate accounting
type MailStats interface {
	GetStats(ctx context.Context) (*mailstore.Stats, error)
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger *slog.Logger
	Jobs   JobStore
	Mail   MailStats
}

// JobHandler handles job-related HTTP requests
type JobHandler struct {
	logger *slog.Logger
	jobs   JobStore
	mail   MailStats
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger: deps.Logger,
		jobs:   deps.Jobs,
		mail:   deps.Mail,
	}
}
