package mailstore

import (
	"context"
	"fmt"
)

// schema is the DDL for the emails and deleted_emails tables
const schema = `
CREATE TABLE IF NOT EXISTS emails (
	id          TEXT PRIMARY KEY,
	subject     TEXT NOT NULL DEFAULT '',
	sender      TEXT NOT NULL DEFAULT '',
	body        TEXT NOT NULL DEFAULT '',
	category    TEXT NOT NULL DEFAULT '',
	size_bytes  BIGINT NOT NULL DEFAULT 0,
	occurred_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS deleted_emails (
	id         TEXT PRIMARY KEY,
	size_bytes BIGINT NOT NULL DEFAULT 0,
	deleted_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_emails_category ON emails(category);
CREATE INDEX IF NOT EXISTS idx_emails_occurred_at ON emails(occurred_at);
`

// EnsureSchema creates the email tables and indexes if they do not exist
func (s *Storage) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure email schema: %w", err)
	}
	return nil
}
