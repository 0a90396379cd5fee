package tap

import (
	"sync"
)

// fakeSDK records calls and hands the delegates to per-test hooks. Hooks
// run synchronously inside the SDK call unless a test wraps them with async.
type fakeSDK struct {
	mu           sync.Mutex
	initCalls    int
	connectCalls int
	startCalls   int
	deinitCalls  int
	mode         TransactionMode
	lastRequest  PaymentRequest
	initDelegate InitializationDelegate
	devDelegate  DeviceDelegate

	onInitialize   func(InitializationDelegate)
	onConnect      func(DeviceDelegate)
	onStart        func(DeviceDelegate, PaymentRequest, TransactionUI)
	onDeinitialize func(InitializationDelegate)
}

func (f *fakeSDK) SetTransactionMode(mode TransactionMode) {
	f.mu.Lock()
	f.mode = mode
	f.mu.Unlock()
}

func (f *fakeSDK) Initialize(delegate InitializationDelegate) {
	f.mu.Lock()
	f.initCalls++
	f.initDelegate = delegate
	hook := f.onInitialize
	f.mu.Unlock()

	if hook != nil {
		hook(delegate)
	}
}

func (f *fakeSDK) Connect(delegate DeviceDelegate) {
	f.mu.Lock()
	f.connectCalls++
	f.devDelegate = delegate
	hook := f.onConnect
	f.mu.Unlock()

	if hook != nil {
		hook(delegate)
	}
}

func (f *fakeSDK) StartTransaction(request PaymentRequest, ui TransactionUI) {
	f.mu.Lock()
	f.startCalls++
	f.lastRequest = request
	delegate := f.devDelegate
	hook := f.onStart
	f.mu.Unlock()

	if hook != nil {
		hook(delegate, request, ui)
	}
}

func (f *fakeSDK) Deinitialize() {
	f.mu.Lock()
	f.deinitCalls++
	delegate := f.initDelegate
	hook := f.onDeinitialize
	f.mu.Unlock()

	if hook != nil {
		hook(delegate)
	}
}

func (f *fakeSDK) counts() (init, connect, start, deinit int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.initCalls, f.connectCalls, f.startCalls, f.deinitCalls
}

func (f *fakeSDK) delegates() (InitializationDelegate, DeviceDelegate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.initDelegate, f.devDelegate
}

// async runs fn on its own goroutine, the way the vendor SDK delivers callbacks
func async[D any](fn func(D)) func(D) {
	return func(d D) { go fn(d) }
}

var testDevice = Device{ID: "dev-1", Name: "Built-in NFC", Model: "iPhone", Ready: true}

// connectedSDK initializes with one device and connects to it
func connectedSDK() *fakeSDK {
	return &fakeSDK{
		onInitialize: func(d InitializationDelegate) {
			d.OnInitialized([]Device{testDevice})
		},
		onConnect: func(d DeviceDelegate) {
			d.OnConnected(testDevice)
		},
		onDeinitialize: func(d InitializationDelegate) {
			d.OnDeinitialized()
		},
	}
}
