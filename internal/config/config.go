package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"softpos/internal/buildinfo"
	"softpos/internal/errors"
)

// Config is the full runtime configuration of the softpos CLI
type Config struct {
	Environment string        `yaml:"environment" toml:"environment"`
	LogLevel    string        `yaml:"log_level" toml:"log_level"`
	Locale      string        `yaml:"locale" toml:"locale"`
	Payment     PaymentConfig `yaml:"payment" toml:"payment"`
	Timeouts    TimeoutConfig `yaml:"timeouts" toml:"timeouts"`
	Sandbox     SandboxConfig `yaml:"sandbox" toml:"sandbox"`
	Portal      PortalConfig  `yaml:"portal" toml:"portal"`
	Journal     JournalConfig `yaml:"journal" toml:"journal"`
	Server      ServerConfig  `yaml:"server" toml:"server"`
	Datadog     DatadogConfig `yaml:"datadog" toml:"datadog"`
}

// PaymentConfig holds checkout defaults
type PaymentConfig struct {
	Currency    string   `yaml:"currency" toml:"currency"`
	Mode        string   `yaml:"mode" toml:"mode"`
	AutoConnect bool     `yaml:"auto_connect" toml:"auto_connect"`
	Currencies  []string `yaml:"currencies" toml:"currencies"`
}

// TimeoutConfig bounds each adapter operation; zero means wait forever
type TimeoutConfig struct {
	Initialize  time.Duration `yaml:"initialize" toml:"initialize"`
	Transaction time.Duration `yaml:"transaction" toml:"transaction"`
	Shutdown    time.Duration `yaml:"shutdown" toml:"shutdown"`
}

// SandboxConfig drives the simulated vendor SDK
type SandboxConfig struct {
	Activated          bool           `yaml:"activated" toml:"activated"`
	ActivationCode     string         `yaml:"activation_code" toml:"activation_code"`
	Terminal           TerminalConfig `yaml:"terminal" toml:"terminal"`
	Devices            []DeviceConfig `yaml:"devices" toml:"devices"`
	InitError          string         `yaml:"init_error" toml:"init_error"`
	ConnectError       string         `yaml:"connect_error" toml:"connect_error"`
	DeclineAmounts     []string       `yaml:"decline_amounts" toml:"decline_amounts"`
	DeclineAll         bool           `yaml:"decline_all" toml:"decline_all"`
	CallbackDelay      time.Duration  `yaml:"callback_delay" toml:"callback_delay"`
	DuplicateCallbacks bool           `yaml:"duplicate_callbacks" toml:"duplicate_callbacks"`
}

// TerminalConfig is reported while activation is starting
type TerminalConfig struct {
	TerminalID string `yaml:"terminal_id" toml:"terminal_id"`
	MerchantID string `yaml:"merchant_id" toml:"merchant_id"`
	Label      string `yaml:"label" toml:"label"`
}

// DeviceConfig describes one simulated payment device
type DeviceConfig struct {
	ID    string `yaml:"id" toml:"id"`
	Name  string `yaml:"name" toml:"name"`
	Model string `yaml:"model" toml:"model"`
	Mode  string `yaml:"mode" toml:"mode"`
}

// PortalConfig points at the merchant portal
type PortalConfig struct {
	TransactionURL string `yaml:"transaction_url" toml:"transaction_url"`
	OpenBrowser    bool   `yaml:"open_browser" toml:"open_browser"`
}

// JournalConfig controls the local SQLite record of checkouts
type JournalConfig struct {
	Enabled   bool          `yaml:"enabled" toml:"enabled"`
	Path      string        `yaml:"path" toml:"path"`
	Retention time.Duration `yaml:"retention" toml:"retention"`
}

// ServerConfig configures the local HTTP bridge
type ServerConfig struct {
	Addr string `yaml:"addr" toml:"addr"`
}

// DatadogConfig controls shipping of checkout outcomes to Datadog logs
type DatadogConfig struct {
	Enabled bool     `yaml:"enabled" toml:"enabled"`
	Site    string   `yaml:"site" toml:"site"`
	BaseURL string   `yaml:"base_url" toml:"base_url"`
	APIKey  string   `yaml:"api_key" toml:"api_key"`
	Service string   `yaml:"service" toml:"service"`
	Source  string   `yaml:"source" toml:"source"`
	Tags    []string `yaml:"tags" toml:"tags"`
}

var currencyCode = regexp.MustCompile(`^[A-Z]{3}$`)

// Validate checks the configuration for values the CLI cannot run with
func (c *Config) Validate() error {
	switch c.Environment {
	case "sandbox", "production":
	default:
		return errors.Configuration(fmt.Sprintf("environment must be sandbox or production, got %q", c.Environment))
	}
	if !currencyCode.MatchString(c.Payment.Currency) {
		return errors.Configuration(fmt.Sprintf("payment.currency %q is not an ISO 4217 code", c.Payment.Currency))
	}
	for _, cur := range c.Payment.Currencies {
		if !currencyCode.MatchString(cur) {
			return errors.Configuration(fmt.Sprintf("payment.currencies entry %q is not an ISO 4217 code", cur))
		}
	}
	switch c.Payment.Mode {
	case "device", "reader":
	default:
		return errors.Configuration(fmt.Sprintf("payment.mode must be device or reader, got %q", c.Payment.Mode))
	}
	if c.Timeouts.Initialize < 0 || c.Timeouts.Transaction < 0 || c.Timeouts.Shutdown < 0 {
		return errors.Configuration("timeouts must not be negative")
	}
	if c.Journal.Retention < 0 {
		return errors.Configuration("journal.retention must not be negative")
	}
	if c.Datadog.Enabled && c.Datadog.APIKey == "" {
		return errors.Configuration("datadog.enabled requires an API key (datadog.api_key, DD_API_KEY or build-time key)")
	}
	return nil
}

// IsSandbox reports whether the simulated SDK should be used
func (c *Config) IsSandbox() bool {
	return c.Environment == "sandbox"
}

// TransactionURL renders the merchant portal link for a transaction
func (c *Config) TransactionURL(transactionID string) string {
	if c.Portal.TransactionURL == "" || transactionID == "" {
		return ""
	}
	return strings.ReplaceAll(c.Portal.TransactionURL, "{transaction_id}", transactionID)
}

// JournalPath resolves the journal database location, expanding a leading ~
func (c *Config) JournalPath() (string, error) {
	path := c.Journal.Path
	if path == ":memory:" {
		return path, nil
	}
	if path == "" || path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, errors.ErrorTypeConfiguration, "cannot resolve home directory for journal")
		}
		if path == "" {
			return filepath.Join(home, ".softpos", "journal.db"), nil
		}
		return filepath.Join(home, strings.TrimPrefix(strings.TrimPrefix(path, "~"), "/")), nil
	}
	return path, nil
}

// applyOverrides layers build-time constants and environment variables on top of the files
func (c *Config) applyOverrides() {
	if buildinfo.BuildEnvironment != "" {
		c.Environment = buildinfo.BuildEnvironment
	}
	if env := os.Getenv("SOFTPOS_ENVIRONMENT"); env != "" {
		c.Environment = env
	}
	if level := os.Getenv("SOFTPOS_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}

	if c.Datadog.APIKey == "" {
		c.Datadog.APIKey = buildinfo.DatadogAPIKey
	}
	if key := os.Getenv("DD_API_KEY"); key != "" {
		c.Datadog.APIKey = key
	}
	if buildinfo.DatadogSite != "" {
		c.Datadog.Site = buildinfo.DatadogSite
	}
	if site := os.Getenv("DD_SITE"); site != "" {
		c.Datadog.Site = site
	}
	c.Payment.Currency = strings.ToUpper(c.Payment.Currency)
}

// Sandbox scenarios selectable with --scenario
var scenarios = map[string]func(s *SandboxConfig){
	"approved": func(s *SandboxConfig) {},
	"activation-required": func(s *SandboxConfig) {
		s.Activated = false
	},
	"no-device": func(s *SandboxConfig) {
		s.Devices = nil
	},
	"init-fail": func(s *SandboxConfig) {
		s.InitError = "payment service unavailable"
	},
	"connect-fail": func(s *SandboxConfig) {
		s.ConnectError = "NFC is disabled on this device"
	},
	"decline": func(s *SandboxConfig) {
		s.DeclineAll = true
	},
	"duplicate-callbacks": func(s *SandboxConfig) {
		s.DuplicateCallbacks = true
	},
}

// ScenarioNames lists the sandbox scenarios in a stable order
func ScenarioNames() []string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyScenario adjusts the sandbox settings to reproduce a named scenario
func (s *SandboxConfig) ApplyScenario(name string) error {
	apply, ok := scenarios[name]
	if !ok {
		return errors.Validation(fmt.Sprintf("unknown sandbox scenario %q (one of: %s)",
			name, strings.Join(ScenarioNames(), ", ")))
	}
	apply(s)
	return nil
}
