package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Job type constants
const (
	JobTypeFetch  = "FETCH"
	JobTypeDelete = "DELETE"
)

// Job status constants. A job only ever moves forward:
// PENDING -> RUNNING -> DONE or FAILED.
const (
	JobStatusPending = "PENDING"
	JobStatusRunning = "RUNNING"
	JobStatusDone    = "DONE"
	JobStatusFailed  = "FAILED"
)

// Job represents a unit of requested background work tracked in the job store.
type Job struct {
	ID              int64      `db:"id"`
	JobType         string     `db:"job_type"`
	Parameters      string     `db:"parameters"` // JSON string
	Status          string     `db:"status"`
	ProgressMessage string     `db:"progress_message"`
	WorkerID        string     `db:"worker_id"`
	CreatedAt       time.Time  `db:"created_at"`
	StartedAt       *time.Time `db:"started_at"`
	LastHeartbeatAt *time.Time `db:"last_heartbeat_at"`
	CompletedAt     *time.Time `db:"completed_at"`
}

// FetchParameters is the payload of a FETCH job. Query is an opaque Gmail
// search expression, e.g. "before:2025/05/01".
type FetchParameters struct {
	Query string `json:"query"`
}

// DeleteParameters is the payload of a DELETE job.
type DeleteParameters struct {
	Categories []string `json:"categories"`
}

// ParseFetchParameters decodes a FETCH job's parameters field.
func ParseFetchParameters(raw string) (*FetchParameters, error) {
	var p FetchParameters
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}
	return &p, nil
}

// ParseDeleteParameters decodes a DELETE job's parameters field.
func ParseDeleteParameters(raw string) (*DeleteParameters, error) {
	var p DeleteParameters
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}
	return &p, nil
}

// IsTerminal reports whether the job has reached a terminal status.
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusDone || j.Status == JobStatusFailed
}
