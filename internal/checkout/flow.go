package checkout

import (
	"context"
	"strings"
	"time"

	"softpos/internal/config"
	"softpos/internal/errors"
	"softpos/internal/logging"
	"softpos/internal/tap"

	"github.com/shopspring/decimal"
)

// Status is the final state of a checkout run
type Status string

const (
	StatusApproved           Status = "approved"
	StatusDeclined           Status = "declined"
	StatusActivationRequired Status = "activation_required"
	StatusDeviceSelected     Status = "device_selected"
	StatusFailed             Status = "failed"
)

// Terminal is the adapter surface a checkout drives. *tap.Session satisfies it.
type Terminal interface {
	CheckActivation(ctx context.Context) (bool, error)
	FetchActivationCode(ctx context.Context) (string, error)
	InitializeAndConnect(ctx context.Context, mode tap.TransactionMode, autoConnect bool) (tap.Device, error)
	RunTransaction(ctx context.Context, request tap.PaymentRequest) (tap.TransactionResult, error)
	Shutdown(ctx context.Context)
}

// Publisher receives every finished outcome
type Publisher interface {
	Publish(ctx context.Context, outcome Outcome) error
}

// Order is what the merchant entered
type Order struct {
	Amount   string
	Currency string
	Metadata map[string]any
}

// Outcome describes how a checkout ended
type Outcome struct {
	Status         Status
	Message        string
	ActivationCode string
	Device         *tap.Device
	Request        *tap.PaymentRequest
	Result         *tap.TransactionResult
	Err            error
	Duration       time.Duration
}

// Succeeded reports whether the card was charged
func (o Outcome) Succeeded() bool {
	return o.Status == StatusApproved
}

// Options configure a Flow
type Options struct {
	Mode        tap.TransactionMode
	AutoConnect bool
	Currency    string
	Locale      string
	Timeouts    config.TimeoutConfig
}

// Flow runs one checkout against a terminal
type Flow struct {
	terminal  Terminal
	opts      Options
	catalog   *Catalog
	publisher Publisher
	logger    *logging.Logger
}

// NewFlow creates a checkout flow
func NewFlow(terminal Terminal, opts Options, catalog *Catalog, logger *logging.Logger) *Flow {
	if logger == nil {
		logger = logging.NewDefaultLogger("checkout")
	}
	if opts.Mode == "" {
		opts.Mode = tap.ModeDevice
	}
	if opts.Locale == "" {
		opts.Locale = defaultLocale
	}
	return &Flow{
		terminal: terminal,
		opts:     opts,
		catalog:  catalog,
		logger:   logger,
	}
}

// WithPublisher attaches a publisher that receives each outcome
func (f *Flow) WithPublisher(p Publisher) *Flow {
	f.publisher = p
	return f
}

// ParseAmount parses a merchant-entered amount. Empty input is rejected.
func ParseAmount(input string) (decimal.Decimal, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return decimal.Zero, errors.Validation("amount is required")
	}
	amount, err := decimal.NewFromString(input)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, errors.ErrorTypeValidation, "amount is not a number").
			WithContext("amount", input)
	}
	return amount, nil
}

// Run drives check activation, connect, transaction and shutdown. Invalid
// input is rejected before the terminal is touched; once it has been,
// shutdown runs on every path. Without AutoConnect the run stops at device
// selection and no payment is taken.
func (f *Flow) Run(ctx context.Context, order Order) Outcome {
	start := time.Now()

	var outcome Outcome
	if request, err := f.request(order); err != nil {
		outcome = f.failed(err)
	} else {
		outcome = f.run(ctx, request)
		f.shutdown(ctx)
	}
	outcome.Duration = time.Since(start)

	if outcome.Err != nil {
		f.logger.Debug("checkout ended with %s: %v", outcome.Status, outcome.Err)
	} else {
		f.logger.Info("checkout ended with %s", outcome.Status)
	}

	if f.publisher != nil {
		// The card may already be charged, so record it even if the caller is gone.
		if err := f.publisher.Publish(context.WithoutCancel(ctx), outcome); err != nil {
			f.logger.Warn("Failed to publish checkout outcome: %v", err)
		}
	}
	return outcome
}

// request builds the payment request for order and validates it
func (f *Flow) request(order Order) (tap.PaymentRequest, error) {
	amount, err := ParseAmount(order.Amount)
	if err != nil {
		return tap.PaymentRequest{}, err
	}

	currency := strings.ToUpper(strings.TrimSpace(order.Currency))
	if currency == "" {
		currency = f.opts.Currency
	}

	request := tap.NewPaymentRequest(amount, currency)
	request.Metadata = order.Metadata
	if err := request.Validate(); err != nil {
		return tap.PaymentRequest{}, err
	}
	return request, nil
}

func (f *Flow) run(ctx context.Context, request tap.PaymentRequest) Outcome {
	initCtx, cancel := WithTimeout(ctx, f.opts.Timeouts.Initialize)
	defer cancel()

	activated, err := f.terminal.CheckActivation(initCtx)
	if err != nil {
		return f.failed(err)
	}
	if !activated {
		code, err := f.terminal.FetchActivationCode(initCtx)
		if errors.Is(err, tap.ErrActivationNotRequired) {
			// Activated, but no device came back ready
			return f.failed(tap.ErrNoAvailableDevice)
		}
		if err != nil {
			return f.failed(err)
		}
		return Outcome{
			Status:         StatusActivationRequired,
			Message:        f.catalog.ActivationCode(f.opts.Locale, code),
			ActivationCode: code,
		}
	}

	device, err := f.terminal.InitializeAndConnect(initCtx, f.opts.Mode, f.opts.AutoConnect)
	if err != nil {
		return f.failed(err)
	}
	if !f.opts.AutoConnect {
		f.logger.Debug("selected %s without connecting", device)
		return Outcome{
			Status:  StatusDeviceSelected,
			Message: f.catalog.DeviceSelected(f.opts.Locale, device.String()),
			Device:  &device,
			Request: &request,
		}
	}
	f.logger.Debug("connected to %s", device)

	txnCtx, txnCancel := WithTimeout(ctx, f.opts.Timeouts.Transaction)
	defer txnCancel()

	result, err := f.terminal.RunTransaction(txnCtx, request)
	if err != nil {
		outcome := f.failed(err)
		outcome.Device = &device
		outcome.Request = &request
		return outcome
	}

	status := StatusApproved
	if !result.IsSuccess {
		status = StatusDeclined
	}
	return Outcome{
		Status:  status,
		Message: result.Summary(),
		Device:  &device,
		Request: &request,
		Result:  &result,
	}
}

func (f *Flow) failed(err error) Outcome {
	if result, ok := tap.AsTransactionFailed(err); ok {
		msg := result.ErrorMessage()
		if msg == "" {
			msg = f.catalog.Message(f.opts.Locale, string(errors.ErrorTypeTransaction))
		}
		return Outcome{Status: StatusDeclined, Message: msg, Result: &result, Err: err}
	}
	return Outcome{Status: StatusFailed, Message: f.catalog.ForError(f.opts.Locale, err), Err: err}
}

func (f *Flow) shutdown(ctx context.Context) {
	Shutdown(ctx, f.terminal, f.opts.Timeouts.Shutdown)
}

// Shutdown tears terminal down. With a positive timeout it still waits for
// confirmation after ctx is done.
func Shutdown(ctx context.Context, terminal Terminal, timeout time.Duration) {
	if timeout > 0 {
		ctx = context.WithoutCancel(ctx)
	}
	shutdownCtx, cancel := WithTimeout(ctx, timeout)
	defer cancel()
	terminal.Shutdown(shutdownCtx)
}

// WithTimeout bounds ctx by d. Zero or negative d means no deadline.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
