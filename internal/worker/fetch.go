package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/mailsweep/internal/domain"
)

// progressEvery controls how often cumulative fetch progress is reported
const progressEvery = 10

// runFetch handles a FETCH job: list candidate ids for the query, drop the
// ones already stored, then fetch, classify, and persist the rest.
// Per-message failures are skipped; an id that never reaches the store
// stays eligible for a future FETCH with an overlapping query.
func (w *Worker) runFetch(ctx context.Context, job *domain.Job) (string, error) {
	params, err := domain.ParseFetchParameters(job.Parameters)
	if err != nil {
		return "", err
	}

	w.reportProgress(ctx, job.ID, fmt.Sprintf("Fetching email list for query: %q...", params.Query))

	ids, err := w.gateway.ListMessageIDs(ctx, params.Query, w.listCap)
	if err != nil {
		return "", fmt.Errorf("listing messages: %w", err)
	}

	fresh, err := w.mail.FilterNew(ctx, ids)
	if err != nil {
		return "", fmt.Errorf("filtering known messages: %w", err)
	}

	if len(fresh) == 0 {
		return "No new emails found for this query.", nil
	}

	total := len(fresh)
	w.reportProgress(ctx, job.ID, fmt.Sprintf("Found %d new emails. Fetching details...", total))

	var results tally
	for i, id := range fresh {
		err := w.fetchOne(ctx, id)
		results.add(id, err)
		if err != nil {
			w.logger.Warn("Failed to process email, skipping",
				slog.Int64("job_id", job.ID),
				slog.String("email_id", id),
				slog.Any("error", err),
			)
		}

		if (i+1)%progressEvery == 0 {
			w.reportProgress(ctx, job.ID, fmt.Sprintf("Processed %d / %d emails.", i+1, total))
		}
	}

	if skipped := results.skipped(); skipped > 0 {
		return fmt.Sprintf("Fetched and classified %d emails (%d skipped).", results.processed(), skipped), nil
	}
	return fmt.Sprintf("Successfully fetched and classified %d emails.", results.processed()), nil
}

// fetchOne is the per-message unit of work: get details, classify, persist
func (w *Worker) fetchOne(ctx context.Context, id string) error {
	msg, err := w.gateway.GetMessage(ctx, id)
	if err != nil {
		return fmt.Errorf("fetching details: %w", err)
	}

	category, err := w.classifier.Classify(ctx, msg.Subject, msg.Sender, msg.Body)
	if err != nil {
		return fmt.Errorf("classifying: %w", err)
	}

	email := &domain.Email{
		ID:         msg.ID,
		Subject:    msg.Subject,
		Sender:     msg.Sender,
		Body:       msg.Body,
		Category:   category,
		SizeBytes:  msg.SizeBytes,
		OccurredAt: msg.OccurredAt,
	}

	if err := w.mail.Save(ctx, email); err != nil {
		return fmt.Errorf("saving: %w", err)
	}

	return nil
}
