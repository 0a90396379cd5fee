package di

import (
	"fmt"
	"sync"

	"softpos/internal/checkout"
	"softpos/internal/clients/datadog"
	"softpos/internal/config"
	"softpos/internal/errors"
	"softpos/internal/journal"
	"softpos/internal/logging"
	"softpos/internal/sdk/sandbox"
	"softpos/internal/telemetry"
	"softpos/internal/tap"
)

// Container holds all application dependencies
type Container struct {
	cfg           *config.Config
	sdk           tap.DeviceSDK
	closeSDK      func()
	session       *tap.Session
	catalog       *checkout.Catalog
	datadogClient datadog.DatadogInterface
	journal       *journal.Journal
	publisher     checkout.Publisher
	mu            sync.RWMutex
}

// NewContainer creates a new dependency injection container
func NewContainer() *Container {
	return &Container{}
}

// InitializeForConfig initializes all services for the loaded configuration
func (c *Container) InitializeForConfig(cfg *config.Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cfg == nil {
		return errors.Internal("container initialized without configuration")
	}
	c.cfg = cfg

	catalog, err := checkout.LoadCatalog()
	if err != nil {
		return err
	}
	c.catalog = catalog

	// The vendor SDK only ships as a sandbox simulation
	if !cfg.IsSandbox() {
		return errors.Configuration(fmt.Sprintf("no payment SDK is available for environment %q, use sandbox", cfg.Environment))
	}
	sdk := sandbox.New(cfg.Sandbox, logging.NewDefaultLogger("sandbox"))
	c.sdk = sdk
	c.closeSDK = sdk.Close

	// One session per process
	c.session = tap.NewSession(c.sdk, logging.NewDefaultLogger("tap"))

	if cfg.Datadog.Enabled {
		c.datadogClient = datadog.NewDatadogClient(cfg.Datadog, logging.NewDefaultLogger("datadog"))
	}
	sink := telemetry.NewSink(cfg, c.datadogClient, logging.NewDefaultLogger("telemetry"))

	if cfg.Journal.Enabled {
		path, err := cfg.JournalPath()
		if err != nil {
			return err
		}
		j, err := journal.Open(path, cfg.Journal.Retention, logging.NewDefaultLogger("journal"))
		if err != nil {
			return err
		}
		c.journal = j
		c.publisher = checkout.Publishers(j, sink)
	} else {
		c.publisher = sink
	}

	return nil
}

// Close releases the SDK and the journal
func (c *Container) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closeSDK != nil {
		c.closeSDK()
		c.closeSDK = nil
	}
	if c.journal != nil {
		if err := c.journal.Close(); err != nil {
			logging.Warn("Failed to close journal: %v", err)
		}
		c.journal = nil
	}
}

// Config returns the loaded configuration
func (c *Container) Config() *config.Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg
}

// Session returns the payment session
func (c *Container) Session() *tap.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// DatadogClient returns the Datadog client instance, nil when shipping is disabled
func (c *Container) DatadogClient() datadog.DatadogInterface {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.datadogClient
}

// Journal returns the checkout journal, nil when disabled
func (c *Container) Journal() *journal.Journal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.journal
}

// ClientSet contains all dependencies for commands
type ClientSet struct {
	Config    *config.Config
	Session   *tap.Session
	Catalog   *checkout.Catalog
	Datadog   datadog.DatadogInterface
	Journal   *journal.Journal
	Publisher checkout.Publisher
}

// GetClientSet returns all clients as a convenient struct
func (c *Container) GetClientSet() *ClientSet {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return &ClientSet{
		Config:    c.cfg,
		Session:   c.session,
		Catalog:   c.catalog,
		Datadog:   c.datadogClient,
		Journal:   c.journal,
		Publisher: c.publisher,
	}
}

// NewFlow builds a checkout flow over the session with the configured defaults
func (cs *ClientSet) NewFlow(mode tap.TransactionMode, autoConnect bool, logger *logging.Logger) *checkout.Flow {
	opts := checkout.Options{
		Mode:        mode,
		AutoConnect: autoConnect,
		Currency:    cs.Config.Payment.Currency,
		Locale:      cs.Config.Locale,
		Timeouts:    cs.Config.Timeouts,
	}
	return checkout.NewFlow(cs.Session, opts, cs.Catalog, logger).WithPublisher(cs.Publisher)
}
