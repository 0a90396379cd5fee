package buildinfo

import (
	"fmt"
)

// These variables will be set at build time using ldflags
var (
	// Version of the binary
	Version = "dev"

	// BuildEnvironment selects the vendor backend: sandbox or production
	BuildEnvironment string

	// Datadog log intake credentials
	DatadogAPIKey string
	DatadogSite   string
)

// ValidateConstants ensures the constants set at build time are usable
func ValidateConstants() error {
	switch BuildEnvironment {
	case "", "sandbox", "production":
	default:
		return fmt.Errorf("BUILD_ENVIRONMENT must be sandbox or production, got %q", BuildEnvironment)
	}
	return nil
}
