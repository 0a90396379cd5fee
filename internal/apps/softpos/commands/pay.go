package softpos

import (
	"context"

	"softpos/internal/apps/common"
	"softpos/internal/apps/common/commands"
	"softpos/internal/checkout"
	"softpos/internal/di"
	"softpos/internal/errors"
	"softpos/internal/tap"
	"softpos/internal/ui"

	"github.com/spf13/cobra"
)

// NewPayCmd creates the command that takes a payment
func NewPayCmd(appCtx *common.Context, container *di.Container) *cobra.Command {
	var (
		amount        string
		currency      string
		mode          string
		noAutoConnect bool
		metadata      map[string]string
		open          bool
		interactive   bool
	)

	cmd := &cobra.Command{
		Use:   "pay",
		Short: "Take a contactless card payment",
		Long: `Check activation, connect to the payment device, run one transaction and shut the SDK down.
Without --amount on a terminal, an interactive register prompts for each sale.`,
		Example: `  softpos pay --amount 10.00
  softpos pay --amount 25 --currency EUR --metadata table=4
  softpos pay --amount 13.13 --scenario decline
  softpos pay --interactive`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			base := commands.NewBaseCommand(appCtx, container, "pay")
			base.Out = cmd.OutOrStdout()
			clients := base.Clients()
			cfg := clients.Config

			if mode == "" {
				mode = cfg.Payment.Mode
			}
			autoConnect := cfg.Payment.AutoConnect && !noAutoConnect
			flow := clients.NewFlow(tap.TransactionMode(mode), autoConnect, base.Logger)

			_ = base.ExecuteWithContext(func(ctx context.Context) error {
				if interactive || (amount == "" && ui.IsInteractive()) {
					return ui.RunRegister(ctx, ui.RegisterConfig{
						Currencies:      cfg.Payment.Currencies,
						DefaultCurrency: cfg.Payment.Currency,
						HyperlinksMode:  ui.HyperlinksAuto,
						Out:             base.Out,
						TransactionURL:  cfg.TransactionURL,
					}, flow.Run)
				}

				outcome := flow.Run(ctx, checkout.Order{
					Amount:   amount,
					Currency: currency,
					Metadata: toMetadata(metadata),
				})
				ui.PrintReceipt(base.Out, outcome, cfg.TransactionURL, ui.HyperlinksAuto)

				if (open || cfg.Portal.OpenBrowser) && outcome.Result != nil {
					if url := cfg.TransactionURL(outcome.Result.TransactionID); url != "" {
						if err := ui.OpenURL(url); err != nil {
							base.Logger.Warn("Error opening browser: %v", err)
						}
					}
				}

				return outcomeError(outcome)
			})
		},
	}

	cmd.Flags().StringVarP(&amount, "amount", "a", "", "Amount to charge, e.g. 10.00")
	cmd.Flags().StringVarP(&currency, "currency", "c", "", "ISO 4217 currency code (default from config)")
	cmd.Flags().StringVarP(&mode, "mode", "m", "", "Transaction mode: device or reader (default from config)")
	cmd.Flags().BoolVar(&noAutoConnect, "no-auto-connect", false, "Select a device without connecting to it")
	cmd.Flags().StringToStringVar(&metadata, "metadata", nil, "Request metadata as key=value pairs")
	cmd.Flags().BoolVar(&open, "open", false, "Open the transaction in the merchant portal")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Prompt for amount and currency")

	return cmd
}

// outcomeError maps a finished checkout to the command's exit status
func outcomeError(outcome checkout.Outcome) error {
	switch outcome.Status {
	case checkout.StatusApproved, checkout.StatusActivationRequired, checkout.StatusDeviceSelected:
		return nil
	case checkout.StatusDeclined:
		if outcome.Err == nil {
			return errors.New(errors.ErrorTypeTransaction, outcome.Message)
		}
		return errors.Wrap(outcome.Err, errors.ErrorTypeTransaction, "payment declined")
	}
	if outcome.Err != nil {
		return outcome.Err
	}
	return errors.Internal(outcome.Message)
}

func toMetadata(values map[string]string) map[string]any {
	if len(values) == 0 {
		return nil
	}
	metadata := make(map[string]any, len(values))
	for k, v := range values {
		metadata[k] = v
	}
	return metadata
}
