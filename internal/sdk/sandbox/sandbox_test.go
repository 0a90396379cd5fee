package sandbox

import (
	"context"
	"testing"
	"time"

	"softpos/internal/config"
	"softpos/internal/errors"
	"softpos/internal/logging"
	"softpos/internal/tap"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sandboxConfig() config.SandboxConfig {
	return config.SandboxConfig{
		Activated:      true,
		ActivationCode: "ABC123",
		Terminal:       config.TerminalConfig{TerminalID: "SBX-0001", MerchantID: "M-1"},
		Devices: []config.DeviceConfig{
			{ID: "nfc-1", Name: "Built-in NFC", Mode: "device"},
			{ID: "reader-1", Name: "Reader", Mode: "reader"},
		},
		DeclineAmounts: []string{"13.13", "not-a-number"},
		CallbackDelay:  time.Millisecond,
	}
}

func newSession(t *testing.T, cfg config.SandboxConfig) (*tap.Session, *SDK) {
	t.Helper()
	sdk := New(cfg, logging.Discard())
	t.Cleanup(sdk.Close)
	return tap.NewSession(sdk, logging.Discard()), sdk
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func request(amount string) tap.PaymentRequest {
	return tap.NewPaymentRequest(decimal.RequireFromString(amount), "USD")
}

func TestApprovedTransaction(t *testing.T) {
	session, _ := newSession(t, sandboxConfig())
	ctx := testContext(t)

	activated, err := session.CheckActivation(ctx)
	require.NoError(t, err)
	require.True(t, activated)

	device, err := session.InitializeAndConnect(ctx, tap.ModeDevice, true)
	require.NoError(t, err)
	assert.Equal(t, "nfc-1", device.ID)

	result, err := session.RunTransaction(ctx, request("10.00"))
	require.NoError(t, err)
	assert.True(t, result.IsSuccess)
	assert.Equal(t, ResponseApproved, result.ResponseCode)
	assert.NotEmpty(t, result.TransactionID)

	session.Shutdown(ctx)
	_, connected := session.ConnectedDevice()
	assert.False(t, connected)
}

func TestDeclinedTransaction(t *testing.T) {
	session, _ := newSession(t, sandboxConfig())
	ctx := testContext(t)

	_, err := session.InitializeAndConnect(ctx, tap.ModeDevice, true)
	require.NoError(t, err)

	_, err = session.RunTransaction(ctx, request("13.13"))
	result, ok := tap.AsTransactionFailed(err)
	require.True(t, ok, "expected a transaction failure, got %v", err)
	assert.False(t, result.IsSuccess)
	assert.Equal(t, ResponseDeclined, result.ResponseCode)
	assert.ErrorIs(t, result.Err, ErrDeclined)
	assert.NotEmpty(t, result.TransactionID)
}

func TestActivationRequired(t *testing.T) {
	cfg := sandboxConfig()
	cfg.Activated = false
	session, _ := newSession(t, cfg)
	ctx := testContext(t)

	activated, err := session.CheckActivation(ctx)
	require.NoError(t, err)
	assert.False(t, activated)

	code, err := session.FetchActivationCode(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ABC123", code)

	info, ok := session.TerminalInfo()
	require.True(t, ok)
	assert.Equal(t, "SBX-0001", info.TerminalID)
}

func TestReaderModeSelectsReader(t *testing.T) {
	session, _ := newSession(t, sandboxConfig())

	device, err := session.InitializeAndConnect(testContext(t), tap.ModeReader, true)
	require.NoError(t, err)
	assert.Equal(t, "reader-1", device.ID)
}

func TestNoDevices(t *testing.T) {
	cfg := sandboxConfig()
	cfg.Devices = nil
	session, _ := newSession(t, cfg)

	_, err := session.InitializeAndConnect(testContext(t), tap.ModeDevice, true)
	assert.ErrorIs(t, err, tap.ErrNoAvailableDevice)
}

func TestInitAndConnectErrors(t *testing.T) {
	t.Run("init", func(t *testing.T) {
		cfg := sandboxConfig()
		cfg.InitError = "sdk license expired"
		session, _ := newSession(t, cfg)

		_, err := session.CheckActivation(testContext(t))
		assert.True(t, errors.IsType(err, errors.ErrorTypeInitialization))
		assert.Contains(t, err.Error(), "sdk license expired")
	})

	t.Run("connect", func(t *testing.T) {
		cfg := sandboxConfig()
		cfg.ConnectError = "nfc disabled"
		session, _ := newSession(t, cfg)

		_, err := session.InitializeAndConnect(testContext(t), tap.ModeDevice, true)
		assert.True(t, errors.IsType(err, errors.ErrorTypeConnection))
		assert.Contains(t, err.Error(), "nfc disabled")
	})
}

func TestDuplicateCallbacksResolveOnce(t *testing.T) {
	cfg := sandboxConfig()
	cfg.DuplicateCallbacks = true
	session, _ := newSession(t, cfg)
	ctx := testContext(t)

	activated, err := session.CheckActivation(ctx)
	require.NoError(t, err)
	assert.True(t, activated)

	_, err = session.InitializeAndConnect(ctx, tap.ModeDevice, true)
	require.NoError(t, err)

	first, err := session.RunTransaction(ctx, request("5.00"))
	require.NoError(t, err)
	second, err := session.RunTransaction(ctx, request("6.00"))
	require.NoError(t, err)
	assert.NotEqual(t, first.TransactionID, second.TransactionID)

	session.Shutdown(ctx)
	assert.Empty(t, session.Pending())
}

func TestCloseIsIdempotent(t *testing.T) {
	sdk := New(sandboxConfig(), logging.Discard())
	sdk.Close()
	assert.NotPanics(t, sdk.Close)
}
