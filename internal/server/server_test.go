package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"softpos/internal/checkout"
	"softpos/internal/config"
	"softpos/internal/errors"
	"softpos/internal/journal"
	"softpos/internal/logging"
	"softpos/internal/sdk/sandbox"
	"softpos/internal/tap"
)

type fakeHistory struct {
	entries []journal.Entry
}

func (h *fakeHistory) Recent(ctx context.Context, limit int) ([]journal.Entry, error) {
	if limit < len(h.entries) {
		return h.entries[:limit], nil
	}
	return h.entries, nil
}

func (h *fakeHistory) Get(ctx context.Context, id string) (journal.Entry, error) {
	for _, e := range h.entries {
		if e.ReferenceID == id {
			return e, nil
		}
	}
	return journal.Entry{}, journal.ErrNotFound
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := NewServer(":0", nil, nil, logging.Discard())

	rec := do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCreatePaymentStatusCodes(t *testing.T) {
	tests := []struct {
		name    string
		outcome checkout.Outcome
		code    int
	}{
		{name: "approved", outcome: checkout.Outcome{Status: checkout.StatusApproved}, code: http.StatusOK},
		{name: "declined", outcome: checkout.Outcome{Status: checkout.StatusDeclined}, code: http.StatusPaymentRequired},
		{name: "activation", outcome: checkout.Outcome{Status: checkout.StatusActivationRequired, ActivationCode: "ABC123"}, code: http.StatusForbidden},
		{name: "device selected", outcome: checkout.Outcome{Status: checkout.StatusDeviceSelected}, code: http.StatusAccepted},
		{name: "invalid amount", outcome: checkout.Outcome{Status: checkout.StatusFailed, Err: errors.Validation("bad amount")}, code: http.StatusBadRequest},
		{name: "busy sdk", outcome: checkout.Outcome{Status: checkout.StatusFailed, Err: tap.ErrOperationInProgress}, code: http.StatusConflict},
		{name: "timeout", outcome: checkout.Outcome{Status: checkout.StatusFailed, Err: errors.Timeout("transaction")}, code: http.StatusGatewayTimeout},
		{name: "no device", outcome: checkout.Outcome{Status: checkout.StatusFailed, Err: tap.ErrNoAvailableDevice}, code: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := func(ctx context.Context, order checkout.Order) checkout.Outcome { return tt.outcome }
			rec := do(t, NewServer(":0", run, nil, logging.Discard()), http.MethodPost, "/v1/payments", `{"amount":"1.00"}`)

			assert.Equal(t, tt.code, rec.Code)
			var resp PaymentResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.outcome.Status, resp.Status)
			assert.Equal(t, tt.outcome.ActivationCode, resp.ActivationCode)
		})
	}
}

func TestCreatePaymentPassesOrder(t *testing.T) {
	var got checkout.Order
	run := func(ctx context.Context, order checkout.Order) checkout.Outcome {
		got = order
		return checkout.Outcome{
			Status:  checkout.StatusApproved,
			Request: &tap.PaymentRequest{Amount: decimal.RequireFromString("25"), CurrencyCode: "EUR", ReferenceID: "ref-1"},
			Result:  &tap.TransactionResult{IsSuccess: true, TransactionID: "T1", ResponseCode: "00"},
			Device:  &tap.Device{ID: "nfc-1"},
		}
	}

	rec := do(t, NewServer(":0", run, nil, logging.Discard()), http.MethodPost, "/v1/payments",
		`{"amount":"25","currency":"EUR","metadata":{"table":"4"}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, checkout.Order{Amount: "25", Currency: "EUR", Metadata: map[string]any{"table": "4"}}, got)

	var resp PaymentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ref-1", resp.ReferenceID)
	assert.Equal(t, "25.00", resp.Amount)
	assert.Equal(t, "T1", resp.TransactionID)
	assert.Equal(t, "nfc-1", resp.DeviceID)
}

func TestCreatePaymentRejectsBadJSON(t *testing.T) {
	called := false
	run := func(ctx context.Context, order checkout.Order) checkout.Outcome {
		called = true
		return checkout.Outcome{}
	}

	rec := do(t, NewServer(":0", run, nil, logging.Discard()), http.MethodPost, "/v1/payments", `{amount`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, called)
}

func TestCreatePaymentWhileBusy(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	run := func(ctx context.Context, order checkout.Order) checkout.Outcome {
		close(started)
		<-release
		return checkout.Outcome{Status: checkout.StatusApproved}
	}
	s := NewServer(":0", run, nil, logging.Discard())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		rec := do(t, s, http.MethodPost, "/v1/payments", `{"amount":"1"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
	}()
	<-started

	rec := do(t, s, http.MethodPost, "/v1/payments", `{"amount":"2"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	close(release)
	wg.Wait()
}

func TestListAndGetPayments(t *testing.T) {
	history := &fakeHistory{entries: []journal.Entry{
		{ReferenceID: "b", Status: "declined"},
		{ReferenceID: "a", Status: "approved"},
	}}
	s := NewServer(":0", nil, history, logging.Discard())

	rec := do(t, s, http.MethodGet, "/v1/payments?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []journal.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "b", entries[0].ReferenceID)

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/v1/payments?limit=x", "").Code)

	rec = do(t, s, http.MethodGet, "/v1/payments/a", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var entry journal.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
	assert.Equal(t, "approved", entry.Status)

	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/v1/payments/zzz", "").Code)
}

func TestHistoryDisabled(t *testing.T) {
	s := NewServer(":0", nil, nil, logging.Discard())

	assert.Equal(t, http.StatusServiceUnavailable, do(t, s, http.MethodGet, "/v1/payments", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, s, http.MethodGet, "/v1/payments/a", "").Code)
}

func TestServeAgainstSandboxAndJournal(t *testing.T) {
	sdk := sandbox.New(config.SandboxConfig{
		Activated:      true,
		Devices:        []config.DeviceConfig{{ID: "nfc-1", Name: "Built-in NFC", Mode: "device"}},
		DeclineAmounts: []string{"13.13"},
		CallbackDelay:  time.Millisecond,
	}, logging.Discard())
	t.Cleanup(sdk.Close)

	j, err := journal.Open(":memory:", 0, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	catalog, err := checkout.LoadCatalog()
	require.NoError(t, err)
	flow := checkout.NewFlow(tap.NewSession(sdk, logging.Discard()), checkout.Options{
		AutoConnect: true,
		Currency:    "USD",
		Timeouts:    config.TimeoutConfig{Initialize: 5 * time.Second, Transaction: 5 * time.Second, Shutdown: time.Second},
	}, catalog, logging.Discard()).WithPublisher(j)

	srv := httptest.NewServer(NewServer(":0", flow.Run, j, logging.Discard()).Handler)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/payments", "application/json", strings.NewReader(`{"amount":"13.13"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)

	var payment PaymentResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payment))
	assert.Equal(t, checkout.StatusDeclined, payment.Status)
	require.NotEmpty(t, payment.ReferenceID)

	got, err := http.Get(srv.URL + "/v1/payments/" + payment.ReferenceID)
	require.NoError(t, err)
	defer got.Body.Close()
	assert.Equal(t, http.StatusOK, got.StatusCode)

	var entry journal.Entry
	require.NoError(t, json.NewDecoder(got.Body).Decode(&entry))
	assert.Equal(t, "declined", entry.Status)
	assert.Equal(t, "13.13", entry.Amount)
}
