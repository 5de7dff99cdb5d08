package mailstore

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

// Storage is the durable message store: one row per fetched and classified
// email, plus a tombstone table of deleted-message sizes for storage-saved
// accounting.
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// Stats summarizes the stored mailbox snapshot for the API surface
type Stats struct {
	StoredCount  int64      `db:"stored_count"`
	StorageSaved int64      `db:"storage_saved"`
	OldestStored *time.Time `db:"oldest_stored"`
}

// New creates a new Storage instance
func New(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// Save persists a classified email. Saving an id that already exists is a
// no-op: presence in the store means the message was already observed and
// classified, and a re-fetch must not reprocess it.
func (s *Storage) Save(ctx context.Context, email *domain.Email) error {
	query := `
		INSERT INTO emails (id, subject, sender, body, category, size_bytes, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := s.db.ExecContext(ctx, query,
		email.ID,
		email.Subject,
		email.Sender,
		email.Body,
		email.Category,
		email.SizeBytes,
		email.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save email: %w", err)
	}

	return nil
}

// Exists reports whether an email id is already stored
func (s *Storage) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM emails WHERE id = $1)`, id)
	if err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}
	return exists, nil
}

// FilterNew returns the subset of ids that are not yet stored, preserving
// input order. This is the idempotency guard for FETCH jobs.
func (s *Storage) FilterNew(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`SELECT id FROM emails WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build existence query: %w", err)
	}

	var existing []string
	if err := s.db.SelectContext(ctx, &existing, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to query existing emails: %w", err)
	}

	seen := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		seen[id] = struct{}{}
	}

	fresh := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			fresh = append(fresh, id)
		}
	}

	return fresh, nil
}

// ListAll returns every stored email, oldest first
func (s *Storage) ListAll(ctx context.Context) ([]domain.Email, error) {
	query := `
		SELECT id, subject, sender, body, category, size_bytes, occurred_at
		FROM emails
		ORDER BY occurred_at ASC, id ASC
	`

	var emails []domain.Email
	if err := s.db.SelectContext(ctx, &emails, query); err != nil {
		return nil, fmt.Errorf("failed to list emails: %w", err)
	}

	return emails, nil
}

// ListByCategories returns stored emails whose category is in the given
// set, oldest first
func (s *Storage) ListByCategories(ctx context.Context, categories []string) ([]domain.Email, error) {
	if len(categories) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`
		SELECT id, subject, sender, body, category, size_bytes, occurred_at
		FROM emails
		WHERE category IN (?)
		ORDER BY occurred_at ASC, id ASC
	`, categories)
	if err != nil {
		return nil, fmt.Errorf("failed to build category query: %w", err)
	}

	var emails []domain.Email
	if err := s.db.SelectContext(ctx, &emails, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list emails by category: %w", err)
	}

	return emails, nil
}

// Remove deletes a stored email and records a tombstone with its size in
// one transaction. Re-deleting the same id overwrites the tombstone.
func (s *Storage) Remove(ctx context.Context, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin remove transaction: %w", err)
	}
	defer tx.Rollback()

	var sizeBytes int64
	err = tx.GetContext(ctx, &sizeBytes, `SELECT size_bytes FROM emails WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrEmailNotFound
		}
		return fmt.Errorf("failed to look up email size: %w", err)
	}

	tombstoneQuery := `
		INSERT INTO deleted_emails (id, size_bytes, deleted_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO UPDATE
		SET size_bytes = EXCLUDED.size_bytes,
		    deleted_at = EXCLUDED.deleted_at
	`

	if _, err := tx.ExecContext(ctx, tombstoneQuery, id, sizeBytes); err != nil {
		return fmt.Errorf("failed to record tombstone: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM emails WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete email: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit remove: %w", err)
	}

	s.logger.Debug("Email removed from store",
		slog.String("email_id", id),
		slog.Int64("size_bytes", sizeBytes),
	)

	return nil
}

// GetStats returns stored-count, total tombstone bytes, and the oldest
// stored timestamp
func (s *Storage) GetStats(ctx context.Context) (*Stats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM emails)                        AS stored_count,
			(SELECT COALESCE(SUM(size_bytes), 0) FROM deleted_emails) AS storage_saved,
			(SELECT MIN(occurred_at) FROM emails)                AS oldest_stored
	`

	var stats Stats
	if err := s.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("failed to get mail stats: %w", err)
	}

	return &stats, nil
}
