package checkout

import (
	"embed"
	"fmt"

	"softpos/internal/errors"

	"gopkg.in/yaml.v3"
)

//go:embed messages.yaml
var messagesFS embed.FS

const defaultLocale = "en"

// Catalog holds user-facing messages per locale
type Catalog struct {
	locales map[string]map[string]string
}

// LoadCatalog parses the embedded message catalog
func LoadCatalog() (*Catalog, error) {
	data, err := messagesFS.ReadFile("messages.yaml")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfiguration, "failed to read embedded messages")
	}
	return ParseCatalog(data)
}

// ParseCatalog parses a catalog from YAML keyed by locale then message key
func ParseCatalog(data []byte) (*Catalog, error) {
	var locales map[string]map[string]string
	if err := yaml.Unmarshal(data, &locales); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfiguration, "failed to parse message catalog")
	}
	if _, ok := locales[defaultLocale]; !ok {
		return nil, errors.Configuration("message catalog has no " + defaultLocale + " locale")
	}
	return &Catalog{locales: locales}, nil
}

// Message looks key up in locale, falling back to English and then to the key itself
func (c *Catalog) Message(locale, key string) string {
	if msg, ok := c.locales[locale][key]; ok {
		return msg
	}
	if msg, ok := c.locales[defaultLocale][key]; ok {
		return msg
	}
	return key
}

// ForError returns the generic message for err's category
func (c *Catalog) ForError(locale string, err error) string {
	return c.Message(locale, string(errors.TypeOf(err)))
}

// ActivationCode renders the activation code message
func (c *Catalog) ActivationCode(locale, code string) string {
	if code == "" {
		code = c.Message(locale, "no_code")
	}
	return fmt.Sprintf(c.Message(locale, "activation_code"), code)
}

// DeviceSelected renders the message for a run that stopped at device selection
func (c *Catalog) DeviceSelected(locale, device string) string {
	return fmt.Sprintf(c.Message(locale, "device_selected"), device)
}
