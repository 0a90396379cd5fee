package tap

import (
	stderrors "errors"
	"fmt"

	poserrors "softpos/internal/errors"
)

var (
	// ErrNoAvailableDevice is returned when initialization reports no devices
	ErrNoAvailableDevice = poserrors.New(poserrors.ErrorTypeDevice, "no available payment device")

	// ErrNotConnected is returned by RunTransaction before a successful connect
	ErrNotConnected = poserrors.New(poserrors.ErrorTypeDevice, "no connected payment device")

	// ErrOperationInProgress is returned when an operation of the same kind is still pending
	ErrOperationInProgress = poserrors.New(poserrors.ErrorTypeValidation, "operation already in progress")

	// ErrActivationNotRequired is returned by FetchActivationCode when the SDK
	// initialized without asking for activation, so no code will ever arrive.
	ErrActivationNotRequired = poserrors.New(poserrors.ErrorTypeActivation, "activation is not required")
)

// InitializationFailed wraps an SDK initialization error
func InitializationFailed(cause error) *poserrors.PosError {
	return poserrors.Wrap(cause, poserrors.ErrorTypeInitialization, "payment SDK initialization failed")
}

// ConnectionFailed wraps an SDK connection error
func ConnectionFailed(device Device, cause error) *poserrors.PosError {
	return poserrors.Wrap(cause, poserrors.ErrorTypeConnection, "payment device connection failed").
		WithContext("device", device.ID)
}

// TransactionFailedError carries the full result of a declined or failed transaction
type TransactionFailedError struct {
	Result TransactionResult
}

func (e *TransactionFailedError) Error() string {
	if msg := e.Result.ErrorMessage(); msg != "" {
		return fmt.Sprintf("transaction failed: %s", msg)
	}
	if e.Result.ResponseMessage != "" {
		return fmt.Sprintf("transaction failed: %s", e.Result.ResponseMessage)
	}
	return "transaction failed"
}

func (e *TransactionFailedError) Unwrap() error {
	return e.Result.Err
}

// ActivationRequiredError is returned by InitializeAndConnect when the
// terminal still has to be activated with the given code.
type ActivationRequiredError struct {
	Code string
}

func (e *ActivationRequiredError) Error() string {
	return fmt.Sprintf("activation required (code %s)", e.Code)
}

// AsTransactionFailed extracts the failed result from err, if any
func AsTransactionFailed(err error) (TransactionResult, bool) {
	var failed *TransactionFailedError
	if stderrors.As(err, &failed) {
		return failed.Result, true
	}
	return TransactionResult{}, false
}
