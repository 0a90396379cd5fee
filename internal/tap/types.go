package tap

import (
	"fmt"
	"regexp"

	poserrors "softpos/internal/errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionMode selects how the vendor SDK reads the card
type TransactionMode string

const (
	// ModeDevice reads the card with the phone's own NFC antenna
	ModeDevice TransactionMode = "device"
	// ModeReader uses a paired external card reader
	ModeReader TransactionMode = "reader"
)

// Device is a payment device reported by the SDK
type Device struct {
	ID    string
	Name  string
	Model string
	Ready bool
}

func (d Device) String() string {
	if d.Name == "" {
		return d.ID
	}
	return fmt.Sprintf("%s (%s)", d.Name, d.ID)
}

// DiscoverableDevice is a device seen during discovery but not yet selected
type DiscoverableDevice struct {
	ID   string
	Name string
	RSSI int
}

// TerminalInfo is surfaced by the SDK while activation is starting
type TerminalInfo struct {
	TerminalID string
	MerchantID string
	Label      string
}

// PaymentRequest is a single sale submitted to the SDK
type PaymentRequest struct {
	Amount       decimal.Decimal
	CurrencyCode string
	ReferenceID  string
	Metadata     map[string]any
}

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// NewPaymentRequest builds a request with a fresh reference ID
func NewPaymentRequest(amount decimal.Decimal, currency string) PaymentRequest {
	return PaymentRequest{
		Amount:       amount,
		CurrencyCode: currency,
		ReferenceID:  uuid.NewString(),
	}
}

// Validate checks the request before it is handed to the SDK
func (r PaymentRequest) Validate() error {
	if !r.Amount.IsPositive() {
		return poserrors.Validation("transaction amount must be greater than zero").
			WithContext("amount", r.Amount.String())
	}
	if !r.Amount.Equal(r.Amount.Round(2)) {
		return poserrors.Validation("transaction amount has more than two decimal places").
			WithContext("amount", r.Amount.String())
	}
	if !currencyPattern.MatchString(r.CurrencyCode) {
		return poserrors.Validation("currency code must be a three letter ISO 4217 code").
			WithContext("currency", r.CurrencyCode)
	}
	return nil
}

// TransactionResult is produced once by the SDK for every transaction
type TransactionResult struct {
	IsSuccess       bool
	TransactionID   string
	ResponseCode    string
	ResponseMessage string
	Err             error

	// ReferenceID echoes PaymentRequest.ReferenceID when the SDK reports it
	ReferenceID string
}

// ErrorMessage returns the failure text carried by the result
func (r TransactionResult) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Summary renders the result the way the sample screen shows it
func (r TransactionResult) Summary() string {
	return fmt.Sprintf("Transaction complete: %t - transactionID: %s - responseCode: %s - responseMessage: %s",
		r.IsSuccess, optional(r.TransactionID), optional(r.ResponseCode), optional(r.ResponseMessage))
}

func optional(s string) string {
	if s == "" {
		return "nil"
	}
	return s
}
