package journal

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"testing"
	"time"

	"softpos/internal/checkout"
	"softpos/internal/errors"
	"softpos/internal/logging"
	"softpos/internal/tap"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T, retention time.Duration) *Journal {
	t.Helper()
	j, err := Open(":memory:", retention, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func approvedOutcome(ref, txnID string) checkout.Outcome {
	return checkout.Outcome{
		Status:  checkout.StatusApproved,
		Message: "Transaction complete: true",
		Device:  &tap.Device{ID: "nfc-1"},
		Request: &tap.PaymentRequest{
			Amount:       decimal.RequireFromString("10.5"),
			CurrencyCode: "USD",
			ReferenceID:  ref,
			Metadata:     map[string]any{"table": "4"},
		},
		Result: &tap.TransactionResult{
			IsSuccess:       true,
			TransactionID:   txnID,
			ResponseCode:    "00",
			ResponseMessage: "Approved",
		},
		Duration: 1500 * time.Millisecond,
	}
}

func TestRecordAndGet(t *testing.T) {
	j := openMemory(t, 0)
	ctx := context.Background()

	_, err := j.Record(ctx, approvedOutcome("ref-1", "T1"))
	require.NoError(t, err)

	entry, err := j.Get(ctx, "ref-1")
	require.NoError(t, err)
	assert.Equal(t, "approved", entry.Status)
	assert.Equal(t, "10.50", entry.Amount)
	assert.Equal(t, "USD", entry.Currency)
	assert.Equal(t, "T1", entry.TransactionID)
	assert.Equal(t, "00", entry.ResponseCode)
	assert.Equal(t, "nfc-1", entry.DeviceID)
	assert.Equal(t, int64(1500), entry.DurationMS)
	assert.Equal(t, map[string]any{"table": "4"}, entry.Metadata)
	assert.WithinDuration(t, time.Now(), entry.CreatedAt, time.Minute)

	byTxn, err := j.Get(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, "ref-1", byTxn.ReferenceID)
}

func TestGetMissing(t *testing.T) {
	j := openMemory(t, 0)

	_, err := j.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestPublishFailureWithoutRequest(t *testing.T) {
	j := openMemory(t, 0)
	ctx := context.Background()

	outcome := checkout.Outcome{
		Status:  checkout.StatusFailed,
		Message: "No payment device is available.",
		Err:     tap.ErrNoAvailableDevice,
	}
	require.NoError(t, j.Publish(ctx, outcome))

	entries, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].ReferenceID)
	assert.Equal(t, "failed", entries[0].Status)
	assert.Equal(t, string(errors.TypeOf(tap.ErrNoAvailableDevice)), entries[0].ErrorKind)
	assert.Empty(t, entries[0].Amount)
	assert.Nil(t, entries[0].Metadata)
}

func TestRecentNewestFirst(t *testing.T) {
	j := openMemory(t, 0)
	ctx := context.Background()

	for _, ref := range []string{"a", "b", "c"} {
		_, err := j.Record(ctx, approvedOutcome(ref, "T-"+ref))
		require.NoError(t, err)
	}

	entries, err := j.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "c", entries[0].ReferenceID)
	assert.Equal(t, "b", entries[1].ReferenceID)
}

func TestRecordReplacesSameReference(t *testing.T) {
	j := openMemory(t, 0)
	ctx := context.Background()

	_, err := j.Record(ctx, approvedOutcome("ref-1", "T1"))
	require.NoError(t, err)

	declined := approvedOutcome("ref-1", "T1")
	declined.Status = checkout.StatusDeclined
	declined.Err = stderrors.New("card declined")
	_, err = j.Record(ctx, declined)
	require.NoError(t, err)

	entries, err := j.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "declined", entries[0].Status)
}

func TestCleanupRemovesExpiredEntries(t *testing.T) {
	j := openMemory(t, time.Hour)
	ctx := context.Background()

	_, err := j.Record(ctx, approvedOutcome("fresh", "T1"))
	require.NoError(t, err)
	_, err = j.db.ExecContext(ctx, `INSERT INTO checkouts (reference_id, status, message, created_at) VALUES (?, ?, ?, ?)`,
		"stale", "approved", "old", time.Now().Add(-2*time.Hour).UnixMilli())
	require.NoError(t, err)

	removed, err := j.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = j.Get(ctx, "stale")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = j.Get(ctx, "fresh")
	assert.NoError(t, err)
}

func TestOpenFileCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "journal.db")

	j, err := Open(path, 0, logging.Discard())
	require.NoError(t, err)
	_, err = j.Record(context.Background(), approvedOutcome("ref-1", "T1"))
	require.NoError(t, err)
	require.NoError(t, j.Close())

	reopened, err := Open(path, 0, logging.Discard())
	require.NoError(t, err)
	defer reopened.Close()

	entry, err := reopened.Get(context.Background(), "ref-1")
	require.NoError(t, err)
	assert.Equal(t, "T1", entry.TransactionID)
}
