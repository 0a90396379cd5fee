// Package sandbox simulates the vendor payment-device SDK. Callbacks are
// delivered one at a time from a single goroutine, after a configurable
// delay, the way the real SDK reports from its own execution context.
package sandbox

import (
	"errors"
	"sync"
	"time"

	"softpos/internal/config"
	"softpos/internal/logging"
	"softpos/internal/tap"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Response codes reported by the sandbox host
const (
	ResponseApproved = "00"
	ResponseDeclined = "05"
	ResponseNoDevice = "91"
)

var (
	// ErrDeclined is carried by declined transaction results
	ErrDeclined = errors.New("card declined by issuer")
	// ErrNoConnection is carried by transactions started before a connect
	ErrNoConnection = errors.New("payment device not connected")
)

// SDK is an in-process stand-in for the vendor SDK
type SDK struct {
	cfg      config.SandboxConfig
	logger   *logging.Logger
	declines map[string]struct{}

	queueMu   sync.Mutex
	queue     []func()
	wake      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	stopped   chan struct{}

	mu           sync.Mutex
	mode         tap.TransactionMode
	initDelegate tap.InitializationDelegate
	devDelegate  tap.DeviceDelegate
	connected    *tap.Device
}

// New creates a sandbox SDK from configuration
func New(cfg config.SandboxConfig, logger *logging.Logger) *SDK {
	if logger == nil {
		logger = logging.NewDefaultLogger("sandbox")
	}

	declines := make(map[string]struct{}, len(cfg.DeclineAmounts))
	for _, amount := range cfg.DeclineAmounts {
		d, err := decimal.NewFromString(amount)
		if err != nil {
			logger.Warn("Ignoring invalid decline amount %q: %v", amount, err)
			continue
		}
		declines[d.StringFixed(2)] = struct{}{}
	}

	return &SDK{
		cfg:      cfg,
		logger:   logger,
		declines: declines,
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
		mode:     tap.ModeDevice,
	}
}

// SetTransactionMode limits the devices reported by the next initialize
func (s *SDK) SetTransactionMode(mode tap.TransactionMode) {
	s.mu.Lock()
	s.mode = mode
	s.mu.Unlock()
}

// Initialize reports activation state and the devices for the current mode
func (s *SDK) Initialize(delegate tap.InitializationDelegate) {
	s.mu.Lock()
	s.initDelegate = delegate
	mode := s.mode
	s.mu.Unlock()

	s.logger.Debug("initialize (mode=%s)", mode)

	switch {
	case s.cfg.InitError != "":
		err := errors.New(s.cfg.InitError)
		s.terminal(func() { delegate.OnInitFailed(err) })

	case !s.cfg.Activated:
		info := tap.TerminalInfo{
			TerminalID: s.cfg.Terminal.TerminalID,
			MerchantID: s.cfg.Terminal.MerchantID,
			Label:      s.cfg.Terminal.Label,
		}
		s.dispatch(func() { delegate.OnActivationStarting(info) })
		s.terminal(func() { delegate.OnActivationRequired(s.cfg.ActivationCode) })

	default:
		devices := s.devicesFor(mode)
		s.terminal(func() { delegate.OnInitialized(devices) })
	}
}

// Connect selects the first available device for the current mode
func (s *SDK) Connect(delegate tap.DeviceDelegate) {
	s.mu.Lock()
	s.devDelegate = delegate
	mode := s.mode
	s.mu.Unlock()

	devices := s.devicesFor(mode)
	if len(devices) == 0 {
		s.terminal(func() { delegate.OnConnectionFailed(tap.Device{}, errors.New("no device to connect")) })
		return
	}
	device := devices[0]

	s.dispatch(func() { delegate.OnDiscoveringDevice(true) })
	s.dispatch(func() { delegate.OnDeviceSelected(device) })
	s.dispatch(func() { delegate.OnDiscoveringDevice(false) })

	if s.cfg.ConnectError != "" {
		err := errors.New(s.cfg.ConnectError)
		s.terminal(func() { delegate.OnConnectionFailed(device, err) })
		return
	}

	s.mu.Lock()
	s.connected = &device
	s.mu.Unlock()

	s.dispatch(func() { delegate.OnActivationProgress(device, 100) })
	s.terminal(func() { delegate.OnConnected(device) })
}

// StartTransaction approves every amount except the configured decline amounts,
// or declines everything when DeclineAll is set
func (s *SDK) StartTransaction(request tap.PaymentRequest, ui tap.TransactionUI) {
	s.mu.Lock()
	delegate := s.devDelegate
	connected := s.connected != nil
	s.mu.Unlock()

	if delegate == nil {
		s.logger.Warn("startTransaction before connect, no delegate to notify")
		return
	}

	if !connected {
		result := tap.TransactionResult{ResponseCode: ResponseNoDevice, ResponseMessage: "No device", Err: ErrNoConnection}
		s.terminal(func() { delegate.OnTransactionFailed(result) })
		return
	}

	s.dispatch(func() { delegate.DidStartTransaction(request) })
	s.dispatch(func() { delegate.OnLcdMessage("Tap card") })
	s.dispatch(func() { delegate.OnCardRead(true) })
	s.dispatch(func() { delegate.DidStartAuthorization(request) })

	result := tap.TransactionResult{TransactionID: uuid.NewString(), ReferenceID: request.ReferenceID}
	if _, declined := s.declines[request.Amount.StringFixed(2)]; declined || s.cfg.DeclineAll {
		result.ResponseCode = ResponseDeclined
		result.ResponseMessage = "Do not honor"
		result.Err = ErrDeclined
		s.terminal(func() { delegate.OnTransactionFailed(result) })
	} else {
		result.IsSuccess = true
		result.ResponseCode = ResponseApproved
		result.ResponseMessage = "Approved"
		s.terminal(func() { delegate.OnTransactionCompleted(result) })
	}

	if ui.OnDismissed != nil {
		s.dispatch(ui.OnDismissed)
	}
}

// Deinitialize drops the connection and confirms to the last initialization delegate
func (s *SDK) Deinitialize() {
	s.mu.Lock()
	s.connected = nil
	s.devDelegate = nil
	delegate := s.initDelegate
	s.mu.Unlock()

	if delegate == nil {
		s.logger.Debug("deinitialize before initialize")
		return
	}
	s.terminal(delegate.OnDeinitialized)
}

// Close stops the callback goroutine. Pending callbacks are dropped.
func (s *SDK) Close() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	s.startOnce.Do(func() {
		close(s.stopped)
	})
	<-s.stopped
}

func (s *SDK) devicesFor(mode tap.TransactionMode) []tap.Device {
	devices := make([]tap.Device, 0, len(s.cfg.Devices))
	for _, d := range s.cfg.Devices {
		if d.Mode != "" && tap.TransactionMode(d.Mode) != mode {
			continue
		}
		devices = append(devices, tap.Device{ID: d.ID, Name: d.Name, Model: d.Model, Ready: true})
	}
	return devices
}

// terminal dispatches a terminal callback, twice when duplicate delivery is enabled
func (s *SDK) terminal(fn func()) {
	s.dispatch(fn)
	if s.cfg.DuplicateCallbacks {
		s.dispatch(fn)
	}
}

// dispatch queues fn for the callback goroutine. It never blocks, so
// callbacks may call back into the SDK.
func (s *SDK) dispatch(fn func()) {
	s.startOnce.Do(func() {
		go s.run()
	})

	s.queueMu.Lock()
	s.queue = append(s.queue, fn)
	s.queueMu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *SDK) next() (func(), bool) {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	if len(s.queue) == 0 {
		return nil, false
	}
	fn := s.queue[0]
	s.queue = s.queue[1:]
	return fn, true
}

func (s *SDK) run() {
	defer close(s.stopped)
	for {
		fn, ok := s.next()
		if !ok {
			select {
			case <-s.stop:
				return
			case <-s.wake:
				continue
			}
		}

		if s.cfg.CallbackDelay > 0 {
			select {
			case <-time.After(s.cfg.CallbackDelay):
			case <-s.stop:
				return
			}
		} else {
			select {
			case <-s.stop:
				return
			default:
			}
		}
		fn()
	}
}

var _ tap.DeviceSDK = (*SDK)(nil)
