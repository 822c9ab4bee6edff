package sepay

import (
	"strings"
	"time"

	"xparking/internal/models"
)

// Matcher decides which feed transaction, if any, settles a pending payment.
// Injected so reconciliation logic can be replaced or faked in tests.
type Matcher interface {
	Match(txns []Transaction, ref string, amount int64, now time.Time, loc *time.Location) (Transaction, bool)
}

// NarrativeMatcher matches on exact amount, a narrative containing the
// reference, and a transaction time within the match window. Banks sometimes
// strip the BOOK/EXIT routing prefix from the narrative, so the bare
// remainder also counts.
type NarrativeMatcher struct {
	Window time.Duration
}

func NewNarrativeMatcher(windowMinutes int) *NarrativeMatcher {
	if windowMinutes <= 0 {
		windowMinutes = models.DefaultMatchWindowMinutes
	}
	return &NarrativeMatcher{Window: time.Duration(windowMinutes) * time.Minute}
}

func (m *NarrativeMatcher) Match(txns []Transaction, ref string, amount int64, now time.Time, loc *time.Location) (Transaction, bool) {
	bare := strings.TrimPrefix(strings.TrimPrefix(ref, models.RefPrefixBooking), models.RefPrefixExit)
	cutoff := now.Add(-m.Window)

	for _, txn := range txns {
		if txn.Amount() != amount {
			continue
		}

		content := strings.ToUpper(txn.Content)
		if !strings.Contains(content, ref) && !strings.Contains(content, bare) {
			continue
		}

		at, err := txn.Time(loc)
		if err != nil {
			continue
		}
		if at.Before(cutoff) {
			continue
		}

		// First match in feed order wins.
		return txn, true
	}
	return Transaction{}, false
}
