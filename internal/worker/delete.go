package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/mailsweep/internal/domain"
)

// runDelete handles a DELETE job: load stored emails in the requested
// categories and delete them provider-side in paced batches, removing each
// from the store and recording a tombstone as it goes. A per-message
// failure leaves that email in the store for a future DELETE job.
func (w *Worker) runDelete(ctx context.Context, job *domain.Job) (string, error) {
	params, err := domain.ParseDeleteParameters(job.Parameters)
	if err != nil {
		return "", err
	}

	// Empty category set is a caller error, not a transient fault.
	if len(params.Categories) == 0 {
		return "", domain.ErrNoCategories
	}

	w.reportProgress(ctx, job.ID, fmt.Sprintf("Finding all emails in categories: %v", params.Categories))

	emails, err := w.mail.ListByCategories(ctx, params.Categories)
	if err != nil {
		return "", fmt.Errorf("listing emails by category: %w", err)
	}

	if len(emails) == 0 {
		return "No emails found matching the criteria.", nil
	}

	total := len(emails)
	w.reportProgress(ctx, job.ID, fmt.Sprintf("Found %d emails to delete. Starting batches...", total))

	var results tally
	for start := 0; start < total; start += w.deleteBatchSize {
		end := start + w.deleteBatchSize
		if end > total {
			end = total
		}

		for _, email := range emails[start:end] {
			err := w.deleteOne(ctx, email.ID)
			results.add(email.ID, err)
			if err != nil {
				w.logger.Warn("Failed to delete email, skipping",
					slog.Int64("job_id", job.ID),
					slog.String("email_id", email.ID),
					slog.Any("error", err),
				)
			}
		}

		w.reportProgress(ctx, job.ID, fmt.Sprintf("Deleted %d / %d emails...", results.processed(), total))

		// Pause between batches to respect provider rate limits on
		// bulk deletes.
		if end < total {
			w.sleep(ctx, w.batchPause)
		}
	}

	return fmt.Sprintf("Successfully deleted %d emails.", results.processed()), nil
}

// deleteOne is the per-message unit of work: provider delete first, then
// store removal with tombstone. A provider failure leaves the store row
// untouched.
func (w *Worker) deleteOne(ctx context.Context, id string) error {
	if err := w.gateway.DeleteMessage(ctx, id); err != nil {
		return fmt.Errorf("provider delete: %w", err)
	}

	if err := w.mail.Remove(ctx, id); err != nil {
		return fmt.Errorf("store remove: %w", err)
	}

	return nil
}
