// Package retention decides whether a stored email should be deleted,
// given its category, age, size, and the user's selected deletion set.
package retention

import (
	"fmt"
	"time"

	"github.com/cuongbtq/mailsweep/internal/domain"
)

const (
	// staleNewsletterDays is the age beyond which newsletters are deleted.
	// Strictly greater-than: a 60-day-old newsletter is kept.
	staleNewsletterDays = 60

	// oversizedBytes is the size beyond which any email is deleted.
	// Strictly greater-than: an email of exactly 5 MiB is kept.
	oversizedBytes = 5 * 1024 * 1024
)

// ShouldDelete evaluates the retention policy for one email at the given
// time. Rules are checked in order and the first match wins:
//
//  1. category in the user-selected deletion set
//  2. category is Spam
//  3. category is Newsletter and older than 60 whole days
//  4. larger than 5 MiB
//
// Returns whether to delete and a human-readable reason, or (false, "").
func ShouldDelete(email *domain.Email, selected []domain.Category, now time.Time) (bool, string) {
	for _, c := range selected {
		if email.Category == c {
			return true, fmt.Sprintf("User selected auto-clean for %s", email.Category)
		}
	}

	if email.Category == domain.CategorySpam {
		return true, "Spam Email"
	}

	if email.Category == domain.CategoryNewsletter {
		ageDays := int(now.Sub(email.OccurredAt).Hours() / 24)
		if ageDays > staleNewsletterDays {
			return true, fmt.Sprintf("Old Newsletter (%d days)", ageDays)
		}
	}

	if email.SizeBytes > oversizedBytes {
		return true, fmt.Sprintf("Large Email (%.1fMB)", float64(email.SizeBytes)/1_000_000)
	}

	return false, ""
}
