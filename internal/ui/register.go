package ui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/pkg/browser"

	"softpos/internal/checkout"
	"softpos/internal/errors"
)

// Post-sale actions
const (
	ActionOpenBrowser    = "Open in browser"
	ActionNewTransaction = "New transaction"
	ActionQuit           = "Quit"
)

var openURL = browser.OpenURL

// OpenURL opens url in the default browser
func OpenURL(url string) error {
	return openURL(url)
}

// RegisterConfig configures the interactive register
type RegisterConfig struct {
	Currencies      []string
	DefaultCurrency string
	HyperlinksMode  HyperlinksMode
	Out             io.Writer

	// TransactionURL maps a transaction ID to its portal page; nil disables the link
	TransactionURL func(transactionID string) string
}

// CheckoutFunc runs one checkout for an order
type CheckoutFunc func(ctx context.Context, order checkout.Order) checkout.Outcome

// RunRegister prompts for sales until the merchant quits
func RunRegister(ctx context.Context, cfg RegisterConfig, run CheckoutFunc) error {
	for {
		amount, err := promptAmount()
		if err != nil {
			return exitOnInterrupt(err)
		}

		currency, err := selectCurrency(cfg.Currencies, cfg.DefaultCurrency)
		if err != nil {
			return exitOnInterrupt(err)
		}

		outcome := run(ctx, checkout.Order{Amount: amount, Currency: currency})
		PrintReceipt(cfg.Out, outcome, cfg.TransactionURL, cfg.HyperlinksMode)

		if outcome.Status == checkout.StatusActivationRequired {
			return nil
		}

		url := receiptURL(outcome, cfg.TransactionURL)
		for {
			action, err := selectAction(url != "")
			if err != nil {
				return exitOnInterrupt(err)
			}
			if action == ActionQuit {
				return nil
			}
			if action == ActionNewTransaction {
				break
			}
			if err := openURL(url); err != nil {
				fmt.Fprintf(cfg.Out, "Error opening browser: %v\n", err)
			}
		}
	}
}

// PrintReceipt displays the outcome of a checkout
func PrintReceipt(w io.Writer, outcome checkout.Outcome, transactionURL func(string) string, mode HyperlinksMode) {
	styles := NewStyles(w)
	fmt.Fprintf(w, "\n[receipt]\n")
	fmt.Fprintf(w, "status: %s\n", styles.Status(string(outcome.Status)))

	if outcome.Request != nil {
		fmt.Fprintf(w, "amount: %s\n", FormatAmount(outcome.Request.Amount, outcome.Request.CurrencyCode))
		fmt.Fprintf(w, "reference: %s\n", outcome.Request.ReferenceID)
	}
	if outcome.Device != nil {
		fmt.Fprintf(w, "device: %s\n", TruncateText(outcome.Device.String(), 60))
	}
	if outcome.Result != nil && outcome.Result.TransactionID != "" {
		id := outcome.Result.TransactionID
		if url := receiptURL(outcome, transactionURL); url != "" {
			fmt.Fprintf(w, "transaction: %s\n", FormatLink(id, url, shouldEnableHyperlinks(mode)))
		} else {
			fmt.Fprintf(w, "transaction: %s\n", id)
		}
	}

	for i, line := range WordWrap(outcome.Message, 80) {
		if i == 0 {
			fmt.Fprintf(w, "message: %s\n", line)
		} else {
			fmt.Fprintf(w, "         %s\n", line)
		}
	}
	fmt.Fprintln(w)
}

func receiptURL(outcome checkout.Outcome, transactionURL func(string) string) string {
	if transactionURL == nil || outcome.Result == nil || outcome.Result.TransactionID == "" {
		return ""
	}
	return transactionURL(outcome.Result.TransactionID)
}

// ValidateAmount accepts a positive amount with at most two decimal places
func ValidateAmount(input string) error {
	amount, err := checkout.ParseAmount(input)
	if err != nil {
		return err
	}
	if !amount.IsPositive() {
		return errors.Validation("amount must be greater than zero")
	}
	if !amount.Equal(amount.Round(2)) {
		return errors.Validation("amount has more than two decimal places")
	}
	return nil
}

func promptAmount() (string, error) {
	prompt := promptui.Prompt{
		Label:    "Amount",
		Validate: ValidateAmount,
		Templates: &promptui.PromptTemplates{
			Prompt:  "{{ . }}: ",
			Valid:   `{{ "✔" | green }} {{ . }}: `,
			Invalid: `{{ "✗" | red }} {{ . }}: `,
			Success: `{{ "✔" | green }} {{ . }}: `,
		},
	}
	amount, err := prompt.Run()
	return strings.TrimSpace(amount), err
}

func selectCurrency(currencies []string, def string) (string, error) {
	if len(currencies) <= 1 {
		if len(currencies) == 1 {
			return currencies[0], nil
		}
		return def, nil
	}

	cursor := 0
	for i, c := range currencies {
		if c == def {
			cursor = i
		}
	}

	prompt := promptui.Select{
		Label:     "Select currency",
		Items:     currencies,
		Size:      min(8, len(currencies)),
		CursorPos: cursor,
		Templates: selectTemplates(),
	}
	_, currency, err := prompt.Run()
	return currency, err
}

// selectAction shows the post-sale action prompt
func selectAction(hasBrowser bool) (string, error) {
	actions := []string{ActionNewTransaction, ActionQuit}
	if hasBrowser {
		actions = append([]string{ActionOpenBrowser}, actions...)
	}

	prompt := promptui.Select{
		Label:     "Select action",
		Items:     actions,
		Size:      len(actions),
		Templates: selectTemplates(),
	}

	_, action, err := prompt.Run()
	return action, err
}

func selectTemplates() *promptui.SelectTemplates {
	return &promptui.SelectTemplates{
		Label:    "{{ . }}?",
		Active:   `{{ "✔" | cyan }} {{ . | cyan }}`,
		Inactive: `  {{ . }}`,
		Selected: `{{ "✔" | green }} {{ . | green }}`,
	}
}

func exitOnInterrupt(err error) error {
	if err == promptui.ErrEOF || err == promptui.ErrInterrupt {
		return nil
	}
	return err
}
