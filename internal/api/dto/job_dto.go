package dto

// CreateFetchJobRequest enqueues a FETCH job. Either a raw provider query
// or an older-than window must be given; the query wins when both are set.
type CreateFetchJobRequest struct {
	Query         string `json:"query"`
	OlderThanDays int    `json:"older_than_days"`
}

// CreateDeleteJobRequest enqueues a DELETE job for the given categories
type CreateDeleteJobRequest struct {
	Categories []string `json:"categories" binding:"required"`
}

// JobDTO is the wire representation of a job
type JobDTO struct {
	ID              int64  `json:"id"`
	JobType         string `json:"job_type"`
	Parameters      string `json:"parameters"`
	Status          string `json:"status"`
	ProgressMessage string `json:"progress_message"`
	CreatedAt       string `json:"created_at"`
	CompletedAt     string `json:"completed_at,omitempty"`
}

// ListJobsResponse wraps the recent-jobs listing
type ListJobsResponse struct {
	Jobs []JobDTO `json:"jobs"`
}

// StatsResponse reports mailbox accounting for the dashboard
type StatsResponse struct {
	StoredCount       int64   `json:"stored_count"`
	StorageSavedBytes int64   `json:"storage_saved_bytes"`
	StorageSavedMB    float64 `json:"storage_saved_mb"`
	OldestStored      string  `json:"oldest_stored,omitempty"`
}
