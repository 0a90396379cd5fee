package ui

import (
	"bytes"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"softpos/internal/journal"
)

func TestStatusIsPlainWithoutTerminal(t *testing.T) {
	styles := NewStyles(&bytes.Buffer{})

	assert.Equal(t, "approved", styles.Status("approved"))
	assert.Equal(t, "unknown", styles.Status("unknown"))
}

func TestHistoryTable(t *testing.T) {
	styles := NewStyles(&bytes.Buffer{})
	out := styles.HistoryTable([]journal.Entry{
		{
			ReferenceID:   "ref-1",
			Status:        "approved",
			Amount:        "10.00",
			Currency:      "USD",
			TransactionID: "T1",
			Message:       "Transaction complete: true",
			CreatedAt:     time.Now(),
		},
		{ReferenceID: "ref-2", Status: "failed", Message: "No payment device is available.", CreatedAt: time.Now()},
	})

	assert.Contains(t, out, "REFERENCE")
	assert.Contains(t, out, "ref-1")
	assert.Contains(t, out, "10.00 USD")
	assert.Contains(t, out, "ref-2")
	assert.Contains(t, out, "No payment device is available.")
}

func TestCopyToClipboard(t *testing.T) {
	var copied string
	orig := writeClipboard
	writeClipboard = func(text string) error {
		copied = text
		return nil
	}
	t.Cleanup(func() { writeClipboard = orig })

	assert.NoError(t, CopyToClipboard("ABC123"))
	assert.Equal(t, "ABC123", copied)

	writeClipboard = func(string) error { return stderrors.New("no clipboard utility") }
	assert.Error(t, CopyToClipboard("ABC123"))
}
