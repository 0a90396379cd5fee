package common

import (
	"softpos/internal/buildinfo"
	"softpos/internal/config"
	"softpos/internal/errors"
	"softpos/internal/logging"
)

type Context struct {
	Environment string
	BinaryName  string
	Config      *config.Config
}

func NewContext(binaryName string) *Context {
	env := buildinfo.BuildEnvironment
	if env == "" {
		env = "sandbox"
	}
	return &Context{
		Environment: env,
		BinaryName:  binaryName,
	}
}

// Load reads configuration, applies a sandbox scenario and sets the log level.
// An explicit level overrides the configured one.
func (c *Context) Load(path, scenario, level string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if scenario != "" {
		if err := cfg.Sandbox.ApplyScenario(scenario); err != nil {
			return err
		}
	}
	if level == "" {
		level = cfg.LogLevel
	}
	if level != "" {
		parsed, err := logging.ParseLevel(level)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeValidation, "invalid log level")
		}
		logging.SetLevel(parsed)
	}

	c.Config = cfg
	c.Environment = cfg.Environment
	return nil
}

func (c *Context) GetPrefix() string {
	if c.IsSandbox() {
		return "[SANDBOX] "
	}
	return "[PROD] "
}

func (c *Context) IsSandbox() bool {
	return c.Environment == "sandbox"
}
