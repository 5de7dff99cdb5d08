package jobstore

import (
	"context"
	"fmt"
)

// schema is the DDL for the jobs table. Applied idempotently at startup.
const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id                BIGSERIAL PRIMARY KEY,
	job_type          TEXT NOT NULL,
	parameters        TEXT NOT NULL DEFAULT '{}',
	status            TEXT NOT NULL DEFAULT 'PENDING',
	progress_message  TEXT NOT NULL DEFAULT '',
	worker_id         TEXT NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	started_at        TIMESTAMPTZ,
	last_heartbeat_at TIMESTAMPTZ,
	completed_at      TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_jobs_status_created ON jobs(status, created_at, id);
`

// EnsureSchema creates the jobs table and its indexes if they do not exist
func (s *Storage) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure jobs schema: %w", err)
	}
	return nil
}
