// Package classifier assigns a category to an email using a two-stage
// decision: a deterministic keyword rule pass, then a language-model
// fallback for anything the rules do not cover.
package classifier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/mailsweep/internal/domain"
)

// ModelClient is the classification backend the engine falls back to when
// no keyword rule matches.
type ModelClient interface {
	Classify(ctx context.Context, subject, body, sender string) (string, error)
}

// Engine decides a category for one message
type Engine struct {
	model  ModelClient
	logger *slog.Logger
}

// NewEngine creates a new classification engine
func NewEngine(model ModelClient, logger *slog.Logger) *Engine {
	return &Engine{
		model:  model,
		logger: logger,
	}
}

// Classify returns the category for a message. The rule pass short-circuits
// the model call; when it falls through, the model's free-text answer is
// normalized onto the closed category set, with unrecognized answers mapped
// to Unclassified.
func (e *Engine) Classify(ctx context.Context, subject, sender, body string) (domain.Category, error) {
	if category, ok := ruleClassify(subject, sender, body); ok {
		return category, nil
	}

	answer, err := e.model.Classify(ctx, subject, body, sender)
	if err != nil {
		return "", fmt.Errorf("model classification failed: %w", err)
	}

	category := domain.NormalizeCategory(answer)
	if category == domain.CategoryUnclassified {
		e.logger.Warn("Model returned unrecognized category",
			slog.String("answer", answer),
		)
	}

	return category, nil
}
