package domain

import (
	"strings"
	"time"
)

// Category is a closed label assigned to every classified email.
type Category string

const (
	CategoryWork         Category = "Work"
	CategoryPersonal     Category = "Personal"
	CategoryPriority     Category = "Priority"
	CategoryNewsletter   Category = "Newsletter"
	CategoryPromotional  Category = "Promotional"
	CategorySpam         Category = "Spam"
	CategoryUnclassified Category = "Unclassified"
)

// Categories lists the labels the classifier may assign, in display order.
// Unclassified is excluded: it is a fallback for unrecognized model output,
// never a label the model is asked for.
var Categories = []Category{
	CategoryWork,
	CategoryPersonal,
	CategoryPriority,
	CategoryNewsletter,
	CategoryPromotional,
	CategorySpam,
}

// NormalizeCategory maps free-text model output onto the closed category
// set. Matching is case-insensitive after trimming; anything unrecognized
// becomes Unclassified.
func NormalizeCategory(s string) Category {
	trimmed := strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(trimmed, string(c)) {
			return c
		}
	}
	return CategoryUnclassified
}

// Email is a fetched and classified mailbox message. Body holds only a
// bounded prefix of the original text.
type Email struct {
	ID         string    `db:"id"`
	Subject    string    `db:"subject"`
	Sender     string    `db:"sender"`
	Body       string    `db:"body"`
	Category   Category  `db:"category"`
	SizeBytes  int64     `db:"size_bytes"`
	OccurredAt time.Time `db:"occurred_at"`
}

// Tombstone records the size of a deleted email for storage-saved
// accounting. Re-deleting the same id overwrites the previous record.
type Tombstone struct {
	ID        string    `db:"id"`
	SizeBytes int64     `db:"size_bytes"`
	DeletedAt time.Time `db:"deleted_at"`
}
