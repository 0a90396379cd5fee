package ui

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// TruncateText collapses whitespace and cuts text to maxLen runes, ending in "..." when cut.
// Device names and issuer messages are not always ASCII.
func TruncateText(text string, maxLen int) string {
	runes := []rune(strings.Join(strings.Fields(text), " "))
	if len(runes) <= maxLen {
		return string(runes)
	}
	if maxLen <= 3 {
		return string(runes[:max(maxLen, 0)])
	}
	return string(runes[:maxLen-3]) + "..."
}

// WordWrap wraps text to the specified width, preserving word boundaries
func WordWrap(text string, width int) []string {
	if text == "" || width <= 0 {
		return []string{}
	}

	var lines []string
	currentLine := ""

	for _, word := range strings.Fields(text) {
		switch {
		case currentLine == "":
			currentLine = word
		case len(currentLine)+1+len(word) <= width:
			currentLine += " " + word
		default:
			lines = append(lines, currentLine)
			currentLine = word
		}
	}

	if currentLine != "" {
		lines = append(lines, currentLine)
	}

	return lines
}

// FormatLink wraps text with OSC-8 hyperlink if enabled, otherwise returns text
func FormatLink(text, url string, enabled bool) string {
	if !enabled {
		return fmt.Sprintf("%s (%s)", text, url)
	}

	// ANSI hyperlink escape sequence: \x1b]8;;URL\x1b\URL Text\x1b]8;;\x1b\
	return fmt.Sprintf("\x1b]8;;%s\x1b\\%s\x1b]8;;\x1b\\", url, text)
}

// FormatAmount renders an amount with two decimal places and its currency
func FormatAmount(amount decimal.Decimal, currency string) string {
	return amount.StringFixed(2) + " " + currency
}
