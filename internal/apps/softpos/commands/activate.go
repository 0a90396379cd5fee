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

// NewActivateCmd creates the command that shows the terminal activation code
func NewActivateCmd(appCtx *common.Context, container *di.Container) *cobra.Command {
	var copyCode bool

	cmd := &cobra.Command{
		Use:   "activate",
		Short: "Show the activation code for this terminal",
		Long:  `Check whether the terminal is activated and, if not, print the code to enter in the merchant portal.`,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			base := commands.NewBaseCommand(appCtx, container, "activate")
			base.Out = cmd.OutOrStdout()
			clients := base.Clients()
			cfg := clients.Config
			session := clients.Session

			_ = base.ExecuteWithContext(func(ctx context.Context) error {
				defer checkout.Shutdown(ctx, session, cfg.Timeouts.Shutdown)

				initCtx, cancel := checkout.WithTimeout(ctx, cfg.Timeouts.Initialize)
				defer cancel()

				activated, err := session.CheckActivation(initCtx)
				if err != nil {
					return err
				}
				if activated {
					base.PrintSuccess("Terminal is already activated")
					return nil
				}

				code, err := session.FetchActivationCode(initCtx)
				if errors.Is(err, tap.ErrActivationNotRequired) {
					base.PrintSuccess("Terminal is already activated, but no payment device is ready")
					return nil
				}
				if err != nil {
					return err
				}
				base.PrintInfo("%s", clients.Catalog.ActivationCode(cfg.Locale, code))
				if info, ok := session.TerminalInfo(); ok {
					base.PrintInfo("Terminal %s, merchant %s", info.TerminalID, info.MerchantID)
				}

				if copyCode && code != "" {
					if err := ui.CopyToClipboard(code); err != nil {
						base.Logger.Warn("Could not copy activation code: %v", err)
					} else {
						base.PrintSuccess("Activation code copied to clipboard")
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&copyCode, "copy", false, "Copy the activation code to the clipboard")
	return cmd
}
