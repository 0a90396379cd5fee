package tap

// initializationDelegate answers the activation-check, activation-code,
// connect and deinitialize slots of its session. Each SDK initialization gets
// its own delegate, so a late callback from an earlier one is ignored by
// operations started after it.
type initializationDelegate struct {
	session *Session
	gen     uint64
}

func (d *initializationDelegate) OnInitFailed(err error) {
	s := d.session
	s.logger.Debug("onInitFailed: %v", err)

	s.mu.Lock()
	check := claim(&s.activationCheck, d.gen)
	code := claim(&s.activationCode, d.gen)
	conn := claim(&s.connect, d.gen)
	s.mu.Unlock()

	handled := check.reject(InitializationFailed(err))
	handled = code.reject(InitializationFailed(err)) || handled
	handled = conn.reject(InitializationFailed(err)) || handled
	if !handled {
		s.ignored("onInitFailed")
	}
}

func (d *initializationDelegate) OnInitialized(availableDevices []Device) {
	s := d.session
	s.logger.Debug("onInitialized: %d device(s)", len(availableDevices))

	s.mu.Lock()
	check := claim(&s.activationCheck, d.gen)
	code := claim(&s.activationCode, d.gen)

	var conn *pending[Device]
	dial := false
	if answers(s.connect, d.gen) && !s.dialing {
		if len(availableDevices) > 0 && s.autoConnect {
			s.dialing = true
			dial = true
		} else {
			conn = take(&s.connect)
		}
	}
	s.mu.Unlock()

	handled := check.resolve(anyReady(availableDevices))
	handled = code.reject(ErrActivationNotRequired) || handled

	switch {
	case dial:
		s.logger.Debug("Connecting to %s", availableDevices[0])
		s.sdk.Connect(s.deviceDelegate)
		return
	case conn != nil && len(availableDevices) == 0:
		handled = conn.reject(ErrNoAvailableDevice) || handled
	case conn != nil:
		handled = conn.resolve(availableDevices[0]) || handled
	}

	if !handled {
		s.ignored("onInitialized")
	}
}

func (d *initializationDelegate) OnActivationRequired(activationCode string) {
	s := d.session
	s.logger.Debug("onActivationRequired")

	s.mu.Lock()
	if d.gen == s.initGen {
		s.lastCode = activationCode
	}
	check := claim(&s.activationCheck, d.gen)
	code := claim(&s.activationCode, d.gen)
	conn := claim(&s.connect, d.gen)
	if conn != nil {
		s.dialing = false
	}
	s.mu.Unlock()

	handled := check.resolve(false)
	handled = code.resolve(activationCode) || handled
	handled = conn.reject(&ActivationRequiredError{Code: activationCode}) || handled
	if !handled {
		s.ignored("onActivationRequired")
	}
}

func (d *initializationDelegate) OnActivationStarting(info TerminalInfo) {
	s := d.session
	s.logger.Debug("onActivationStarting: terminal %s", info.TerminalID)

	s.mu.Lock()
	s.terminal = &info
	s.mu.Unlock()
}

func (d *initializationDelegate) OnDeinitialized() {
	s := d.session
	s.logger.Debug("onDeinitialized")

	s.mu.Lock()
	p := claim(&s.deinit, d.gen)
	s.mu.Unlock()

	if !p.resolve(struct{}{}) {
		s.ignored("onDeinitialized")
	}
}

func anyReady(devices []Device) bool {
	for _, device := range devices {
		if device.Ready {
			return true
		}
	}
	return false
}

func (d *initializationDelegate) WillLaunchEducationalScreen() {}
func (d *initializationDelegate) DidLaunchEducationalScreen()  {}
func (d *initializationDelegate) OnEducationScreenDismissed()  {}

// deviceDelegate answers the connect and transaction slots of its session.
type deviceDelegate struct {
	session *Session
}

func (d *deviceDelegate) OnConnected(device Device) {
	s := d.session
	s.logger.Debug("onConnected: %s", device)

	s.mu.Lock()
	conn := take(&s.connect)
	s.dialing = false
	if conn != nil {
		connected := device
		s.connected = &connected
	}
	s.mu.Unlock()

	if !conn.resolve(device) {
		s.ignored("onConnected")
	}
}

func (d *deviceDelegate) OnConnectionFailed(device Device, err error) {
	s := d.session
	s.logger.Debug("onConnectionFailed: %s: %v", device, err)

	s.mu.Lock()
	conn := take(&s.connect)
	s.dialing = false
	if conn != nil {
		s.connected = nil
	}
	s.mu.Unlock()

	if !conn.reject(ConnectionFailed(device, err)) {
		s.ignored("onConnectionFailed")
	}
}

func (d *deviceDelegate) OnTransactionCompleted(result TransactionResult) {
	s := d.session
	s.logger.Debug("onTransactionCompleted: %s", result.TransactionID)

	p := s.takeTransaction(result)

	if !p.resolve(result) {
		s.ignored("onTransactionCompleted")
	}
}

func (d *deviceDelegate) OnTransactionFailed(result TransactionResult) {
	s := d.session
	s.logger.Debug("onTransactionFailed: %s", result.TransactionID)

	p := s.takeTransaction(result)

	if !p.reject(&TransactionFailedError{Result: result}) {
		s.ignored("onTransactionFailed")
	}
}

func (d *deviceDelegate) OnDeviceDiscovered(device DiscoverableDevice) {}

func (d *deviceDelegate) OnDeviceSelected(device Device) {
	d.session.logger.Debug("onDeviceSelected: %s", device)
}

func (d *deviceDelegate) OnDiscoveringDevice(discovering bool) {
	d.session.logger.Debug("onDiscoveringDevice: %t", discovering)
}

func (d *deviceDelegate) OnLcdMessage(text string)      {}
func (d *deviceDelegate) OnLcdConfirmation(text string) {}

func (d *deviceDelegate) DidStartTransaction(request PaymentRequest) {
	d.session.logger.Debug("didStartTransaction: ref=%s", request.ReferenceID)
}

func (d *deviceDelegate) DidStartAuthorization(request PaymentRequest) {}

func (d *deviceDelegate) OnActivationProgress(device Device, completed int) {
	d.session.logger.Debug("onActivationProgress: %s %d%%", device, completed)
}

func (d *deviceDelegate) OnCardRead(success bool) {}

var (
	_ InitializationDelegate = (*initializationDelegate)(nil)
	_ DeviceDelegate         = (*deviceDelegate)(nil)
)
