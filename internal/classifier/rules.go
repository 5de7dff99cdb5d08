package classifier

import (
	"strings"

	"github.com/cuongbtq/mailsweep/internal/domain"
)

// Keyword sets for the deterministic rule pass. Order matters: spam is
// checked before promotional so that phishing mail dressed up with
// discount language still lands in Spam.
var (
	spamKeywords = []string{
		"win", "lottery", "urgent", "claim", "credit card", "bitcoin",
	}

	promoKeywords = []string{
		"offer", "sale", "discount", "deal", "promo", "premium",
		"spotify", "dazn", "myntra", "swiggy", "zomato", "amazon sale",
	}

	newsletterKeywords = []string{
		"unsubscribe", "newsletter", "update", "digest",
	}
)

// ruleClassify scans the lowercased subject+sender+body for keyword
// membership. Returns the matched category and true, or "" and false when
// no rule applies. Pure string matching, never fails.
func ruleClassify(subject, sender, body string) (domain.Category, bool) {
	text := strings.ToLower(subject + " " + sender + " " + body)

	if containsAny(text, spamKeywords) {
		return domain.CategorySpam, true
	}

	if containsAny(text, promoKeywords) {
		return domain.CategoryPromotional, true
	}

	if containsAny(text, newsletterKeywords) {
		return domain.CategoryNewsletter, true
	}

	return "", false
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
