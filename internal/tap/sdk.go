package tap

// DeviceSDK is the vendor payment-device SDK. Every method returns
// immediately; outcomes are reported later through the delegate passed in,
// possibly on another goroutine and possibly before the method returns.
type DeviceSDK interface {
	Initialize(delegate InitializationDelegate)
	Connect(delegate DeviceDelegate)
	StartTransaction(request PaymentRequest, ui TransactionUI)
	Deinitialize()
}

// InitializationDelegate receives initialization and activation events
type InitializationDelegate interface {
	OnInitFailed(err error)
	OnInitialized(availableDevices []Device)
	OnActivationRequired(activationCode string)
	OnActivationStarting(info TerminalInfo)
	OnDeinitialized()

	WillLaunchEducationalScreen()
	DidLaunchEducationalScreen()
	OnEducationScreenDismissed()
}

// DeviceDelegate receives connection and transaction events
type DeviceDelegate interface {
	OnConnected(device Device)
	OnConnectionFailed(device Device, err error)
	OnTransactionCompleted(result TransactionResult)
	OnTransactionFailed(result TransactionResult)

	OnDeviceDiscovered(device DiscoverableDevice)
	OnDeviceSelected(device Device)
	OnDiscoveringDevice(discovering bool)
	OnLcdMessage(text string)
	OnLcdConfirmation(text string)
	DidStartTransaction(request PaymentRequest)
	DidStartAuthorization(request PaymentRequest)
	OnActivationProgress(device Device, completed int)
	OnCardRead(success bool)
}

// TransactionUI is the authorization screen handle given to StartTransaction
type TransactionUI struct {
	OnDismissed func()
}
