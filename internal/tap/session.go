package tap

import (
	"context"
	"fmt"
	"sync"

	poserrors "softpos/internal/errors"
	"softpos/internal/logging"

	"github.com/google/uuid"
)

// ModeSelector is implemented by SDKs that can be told which transaction
// mode to initialize for. Session checks for it with a type assertion.
type ModeSelector interface {
	SetTransactionMode(mode TransactionMode)
}

// Session turns the callback surface of a DeviceSDK into blocking calls.
// Each operation kind has one completion slot; a slot is filled before the
// SDK is called and emptied by the first callback that answers it, so every
// call returns exactly once no matter how many callbacks the SDK delivers.
//
// A Session expects a single caller. Operations of different kinds may
// overlap, operations of the same kind may not.
type Session struct {
	sdk    DeviceSDK
	logger *logging.Logger

	deviceDelegate *deviceDelegate

	mu              sync.Mutex
	activationCheck *pending[bool]
	activationCode  *pending[string]
	connect         *pending[Device]
	transaction     *pending[TransactionResult]
	deinit          *pending[struct{}]

	initialized bool
	initGen     uint64
	autoConnect bool
	dialing     bool
	connected   *Device
	terminal    *TerminalInfo
	lastCode    string
}

// NewSession creates a session bound to sdk
func NewSession(sdk DeviceSDK, logger *logging.Logger) *Session {
	if logger == nil {
		logger = logging.NewDefaultLogger("tap")
	}
	s := &Session{
		sdk:    sdk,
		logger: logger,
	}
	s.deviceDelegate = &deviceDelegate{session: s}
	return s
}

// CheckActivation initializes the SDK and reports whether the terminal is
// activated with at least one ready device. Activation being required is not
// an error.
func (s *Session) CheckActivation(ctx context.Context) (bool, error) {
	s.logger.Debug("Checking activation")
	p, err := register(s, &s.activationCheck, kindActivationCheck, "")
	if err != nil {
		return false, err
	}
	s.initialize()
	return await(ctx, s, &s.activationCheck, p)
}

// FetchActivationCode initializes the SDK and returns the activation code it
// asks for. If the SDK initializes without requiring activation the call
// fails with ErrActivationNotRequired.
func (s *Session) FetchActivationCode(ctx context.Context) (string, error) {
	s.logger.Debug("Fetching activation code")
	p, err := register(s, &s.activationCode, kindActivationCode, "")
	if err != nil {
		return "", err
	}
	s.initialize()
	return await(ctx, s, &s.activationCode, p)
}

// InitializeAndConnect initializes the SDK and, when autoConnect is set,
// connects to the first available device. Without autoConnect it returns
// the first available device unconnected.
func (s *Session) InitializeAndConnect(ctx context.Context, mode TransactionMode, autoConnect bool) (Device, error) {
	switch mode {
	case ModeDevice, ModeReader:
	default:
		return Device{}, poserrors.Validation(fmt.Sprintf("unknown transaction mode %q", mode))
	}

	s.logger.Debug("Initializing device: mode=%s autoConnect=%t", mode, autoConnect)
	p, err := register(s, &s.connect, kindConnect, string(mode))
	if err != nil {
		return Device{}, err
	}

	s.mu.Lock()
	s.autoConnect = autoConnect
	s.dialing = false
	s.mu.Unlock()

	if selector, ok := s.sdk.(ModeSelector); ok {
		selector.SetTransactionMode(mode)
	}
	s.initialize()
	return await(ctx, s, &s.connect, p)
}

// RunTransaction submits request to the connected device and waits for its
// result. A declined or failed transaction returns *TransactionFailedError.
func (s *Session) RunTransaction(ctx context.Context, request PaymentRequest) (TransactionResult, error) {
	if err := request.Validate(); err != nil {
		return TransactionResult{}, err
	}
	if request.ReferenceID == "" {
		request.ReferenceID = uuid.NewString()
	}

	s.mu.Lock()
	if s.connected == nil {
		s.mu.Unlock()
		return TransactionResult{}, ErrNotConnected
	}
	if s.transaction != nil {
		s.mu.Unlock()
		return TransactionResult{}, ErrOperationInProgress
	}
	p := newPending[TransactionResult](kindTransaction, request.ReferenceID)
	s.transaction = p
	s.mu.Unlock()

	s.logger.Debug("Starting transaction %s %s ref=%s",
		request.Amount.StringFixed(2), request.CurrencyCode, request.ReferenceID)
	s.sdk.StartTransaction(request, TransactionUI{
		OnDismissed: func() {
			s.logger.Debug("Authorization screen dismissed")
		},
	})
	return await(ctx, s, &s.transaction, p)
}

// Shutdown asks the SDK to tear down and waits for it to confirm, or for
// ctx to end. It never fails and is safe to call at any time.
func (s *Session) Shutdown(ctx context.Context) {
	s.mu.Lock()
	s.connected = nil
	if !s.initialized {
		s.mu.Unlock()
		s.logger.Debug("Shutdown before initialize, nothing to confirm")
		s.sdk.Deinitialize()
		return
	}
	if existing := s.deinit; existing != nil {
		s.mu.Unlock()
		s.logger.Debug("Shutdown already requested, waiting")
		waitQuietly(ctx, existing)
		return
	}
	p := newPending[struct{}](kindDeinitialize, "")
	p.gen = s.initGen
	s.deinit = p
	s.mu.Unlock()

	s.logger.Debug("Deinitializing")
	s.sdk.Deinitialize()

	if _, err := await(ctx, s, &s.deinit, p); err != nil {
		s.logger.Warn("Shutdown not confirmed: %v", err)
	}
}

// initialize starts a new SDK initialization with its own delegate. Slots
// still waiting are bound to it; callbacks from older initializations cannot
// answer them.
func (s *Session) initialize() {
	s.mu.Lock()
	s.initialized = true
	s.initGen++
	gen := s.initGen
	bind(s.activationCheck, gen)
	bind(s.activationCode, gen)
	bind(s.connect, gen)
	s.mu.Unlock()

	s.sdk.Initialize(&initializationDelegate{session: s, gen: gen})
}

// TerminalInfo returns the terminal details reported while activation was starting
func (s *Session) TerminalInfo() (TerminalInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminal == nil {
		return TerminalInfo{}, false
	}
	return *s.terminal, true
}

// LastActivationCode returns the most recent activation code the SDK asked for
func (s *Session) LastActivationCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastCode
}

// ConnectedDevice returns the device transactions will run on
func (s *Session) ConnectedDevice() (Device, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connected == nil {
		return Device{}, false
	}
	return *s.connected, true
}

// Pending lists the operation kinds currently waiting for a callback
func (s *Session) Pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var kinds []string
	if s.activationCheck != nil {
		kinds = append(kinds, kindActivationCheck.String())
	}
	if s.activationCode != nil {
		kinds = append(kinds, kindActivationCode.String())
	}
	if s.connect != nil {
		kinds = append(kinds, kindConnect.String())
	}
	if s.transaction != nil {
		kinds = append(kinds, kindTransaction.String())
	}
	if s.deinit != nil {
		kinds = append(kinds, kindDeinitialize.String())
	}
	return kinds
}

func register[T any](s *Session, slot **pending[T], kind opKind, reference string) (*pending[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if *slot != nil {
		return nil, ErrOperationInProgress
	}
	p := newPending[T](kind, reference)
	*slot = p
	return p, nil
}

// bind ties an unbound slot to initialization gen. Callers hold s.mu.
func bind[T any](p *pending[T], gen uint64) {
	if p != nil && p.gen == 0 {
		p.gen = gen
	}
}

// answers reports whether the delegate of initialization gen may complete p.
// Callers hold s.mu.
func answers[T any](p *pending[T], gen uint64) bool {
	return p != nil && p.gen != 0 && p.gen <= gen
}

// claim empties slot if the delegate of initialization gen may answer it.
// Callers hold s.mu.
func claim[T any](slot **pending[T], gen uint64) *pending[T] {
	if !answers(*slot, gen) {
		return nil
	}
	return take(slot)
}

// take empties slot and returns what it held. Callers hold s.mu.
func take[T any](slot **pending[T]) *pending[T] {
	p := *slot
	*slot = nil
	return p
}

// takeTransaction empties the transaction slot unless result belongs to a
// different request than the one waiting. Results without a reference
// always match.
func (s *Session) takeTransaction(result TransactionResult) *pending[TransactionResult] {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.transaction
	if p != nil && result.ReferenceID != "" && p.reference != "" && result.ReferenceID != p.reference {
		s.logger.Debug("Ignoring result for ref=%s while waiting on ref=%s", result.ReferenceID, p.reference)
		return nil
	}
	return take(&s.transaction)
}

func await[T any](ctx context.Context, s *Session, slot **pending[T], p *pending[T]) (T, error) {
	select {
	case <-p.done:
	case <-ctx.Done():
		s.mu.Lock()
		if *slot == p {
			*slot = nil
		}
		s.mu.Unlock()
		if p.reject(poserrors.Wrap(ctx.Err(), poserrors.ErrorTypeTimeout, fmt.Sprintf("%s abandoned", p.kind))) {
			s.logger.Warn("Stopped waiting for %s: %v", p.kind, ctx.Err())
		}
	}
	return p.result()
}

func waitQuietly[T any](ctx context.Context, p *pending[T]) {
	select {
	case <-p.done:
	case <-ctx.Done():
	}
}

func (s *Session) ignored(callback string) {
	s.logger.Debug("Ignoring %s: no operation waiting for it", callback)
}
