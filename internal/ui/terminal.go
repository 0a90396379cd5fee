package ui

import (
	"os"
)

// HyperlinksMode controls hyperlink behavior
type HyperlinksMode int

const (
	HyperlinksAuto HyperlinksMode = iota
	HyperlinksOn
	HyperlinksOff
)

// IsInteractive returns true if running in an interactive terminal
func IsInteractive() bool {
	fileInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// shouldEnableHyperlinks determines if hyperlinks should be enabled
func shouldEnableHyperlinks(mode HyperlinksMode) bool {
	switch mode {
	case HyperlinksOn:
		return true
	case HyperlinksOff:
		return false
	case HyperlinksAuto:
		// Disable if TERM is dumb or CI is set
		if os.Getenv("TERM") == "dumb" {
			return false
		}
		if os.Getenv("CI") != "" {
			return false
		}
		return true
	default:
		return false
	}
}
