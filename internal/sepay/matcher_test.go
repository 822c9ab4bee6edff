package sepay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedTxn(id, content string, amount string, at time.Time) Transaction {
	return Transaction{
		ID:              id,
		AmountIn:        amount,
		Content:         content,
		TransactionDate: at.Format("2006-01-02 15:04:05"),
	}
}

func TestNarrativeMatcherMatches(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, loc)
	m := NewNarrativeMatcher(15)

	txns := []Transaction{
		feedTxn("1", "CK chuyen tien BOOKS173000000042 thanh toan", "40000.00", now.Add(-5*time.Minute)),
	}

	got, ok := m.Match(txns, "BOOKS173000000042", 40000, now, loc)
	require.True(t, ok)
	assert.Equal(t, "1", got.ID)
}

func TestNarrativeMatcherStrippedPrefix(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, loc)
	m := NewNarrativeMatcher(15)

	// Bank stripped the BOOK routing prefix from the narrative.
	txns := []Transaction{
		feedTxn("1", "thanh toan S173000000042", "40000", now.Add(-time.Minute)),
	}

	_, ok := m.Match(txns, "BOOKS173000000042", 40000, now, loc)
	assert.True(t, ok)
}

func TestNarrativeMatcherRejectsWrongAmount(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, loc)
	m := NewNarrativeMatcher(15)

	txns := []Transaction{
		feedTxn("1", "BOOKS173000000042", "39000", now.Add(-time.Minute)),
	}

	_, ok := m.Match(txns, "BOOKS173000000042", 40000, now, loc)
	assert.False(t, ok)
}

func TestNarrativeMatcherRejectsStaleTransaction(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, loc)
	m := NewNarrativeMatcher(15)

	// Right ref, right amount, but 20 minutes old: outside the window.
	txns := []Transaction{
		feedTxn("1", "BOOKS173000000042", "40000", now.Add(-20*time.Minute)),
	}

	_, ok := m.Match(txns, "BOOKS173000000042", 40000, now, loc)
	assert.False(t, ok)
}

func TestNarrativeMatcherRejectsUnrelatedNarrative(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, loc)
	m := NewNarrativeMatcher(15)

	txns := []Transaction{
		feedTxn("1", "chuyen tien an trua", "40000", now.Add(-time.Minute)),
	}

	_, ok := m.Match(txns, "BOOKS173000000042", 40000, now, loc)
	assert.False(t, ok)
}

func TestNarrativeMatcherFirstMatchWins(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, loc)
	m := NewNarrativeMatcher(15)

	txns := []Transaction{
		feedTxn("first", "BOOKS173000000042", "40000", now.Add(-2*time.Minute)),
		feedTxn("second", "BOOKS173000000042", "40000", now.Add(-time.Minute)),
	}

	got, ok := m.Match(txns, "BOOKS173000000042", 40000, now, loc)
	require.True(t, ok)
	assert.Equal(t, "first", got.ID)
}
