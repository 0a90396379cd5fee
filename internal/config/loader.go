package config

import (
	"embed"
	"os"
	"path/filepath"
	"strings"

	"softpos/internal/buildinfo"
	"softpos/internal/errors"
	"softpos/internal/logging"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var configFS embed.FS

const (
	// EnvConfigPath names the environment variable holding a config file path
	EnvConfigPath = "SOFTPOS_CONFIG"

	// EnvFile in the working directory is loaded before environment overrides.
	// Variables already set in the process win.
	EnvFile = ".env"
)

// ConfigLoader reads the embedded defaults and an optional user file,
// YAML or TOML by extension
type ConfigLoader struct {
	logger *logging.Logger
}

// NewConfigLoader creates a new configuration loader
func NewConfigLoader() *ConfigLoader {
	return &ConfigLoader{
		logger: logging.NewDefaultLogger("config"),
	}
}

// Load builds the configuration. path may be empty, in which case
// $SOFTPOS_CONFIG and then ~/.softpos.yaml are tried.
func (cl *ConfigLoader) Load(path string) (*Config, error) {
	if err := buildinfo.ValidateConstants(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfiguration, "build-time validation failed")
	}

	cfg, err := cl.LoadDefaults()
	if err != nil {
		return nil, err
	}

	if err := godotenv.Load(EnvFile); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, errors.ErrorTypeConfiguration, "failed to load "+EnvFile)
	}

	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvConfigPath)
		explicit = path != ""
	}
	if !explicit {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, ".softpos.yaml")
		}
	}

	if path != "" {
		if err := cl.overlay(cfg, path, explicit); err != nil {
			return nil, err
		}
	}

	cfg.applyOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefaults parses the embedded defaults only
func (cl *ConfigLoader) LoadDefaults() (*Config, error) {
	data, err := configFS.ReadFile("defaults.yaml")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfiguration,
			"failed to read embedded defaults")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfiguration,
			"failed to parse embedded defaults")
	}
	return &cfg, nil
}

func (cl *ConfigLoader) overlay(cfg *Config, path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			cl.logger.Debug("No user config at %s, using defaults", path)
			return nil
		}
		return errors.Wrap(err, errors.ErrorTypeConfiguration, "failed to read config file").
			WithContext("path", path)
	}

	// Unmarshal on top of the defaults so the file only needs the keys it changes.
	unmarshal := yaml.Unmarshal
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		unmarshal = toml.Unmarshal
	}
	if err := unmarshal(data, cfg); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfiguration, "failed to parse config file").
			WithContext("path", path)
	}
	cl.logger.Debug("Loaded config overrides from %s", path)
	return nil
}

// Load is a shorthand for NewConfigLoader().Load(path)
func Load(path string) (*Config, error) {
	return NewConfigLoader().Load(path)
}
