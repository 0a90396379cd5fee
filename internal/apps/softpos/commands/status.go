package softpos

import (
	"context"

	"softpos/internal/apps/common"
	"softpos/internal/apps/common/commands"
	"softpos/internal/buildinfo"
	"softpos/internal/checkout"
	"softpos/internal/di"
	"softpos/internal/tap"
	"softpos/internal/ui"

	"github.com/spf13/cobra"
)

// NewStatusCmd creates the command that reports terminal and device state
func NewStatusCmd(appCtx *common.Context, container *di.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show activation, terminal and device status",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			base := commands.NewBaseCommand(appCtx, container, "status")
			base.Out = cmd.OutOrStdout()
			clients := base.Clients()
			cfg := clients.Config
			session := clients.Session

			_ = base.ExecuteWithContext(func(ctx context.Context) error {
				defer checkout.Shutdown(ctx, session, cfg.Timeouts.Shutdown)

				base.PrintInfo("version: %s", buildinfo.Version)
				base.PrintInfo("environment: %s", cfg.Environment)
				base.PrintInfo("mode: %s", cfg.Payment.Mode)
				base.PrintInfo("datadog: %t", cfg.Datadog.Enabled)

				initCtx, cancel := checkout.WithTimeout(ctx, cfg.Timeouts.Initialize)
				defer cancel()

				activated, err := session.CheckActivation(initCtx)
				if err != nil {
					return err
				}
				base.PrintInfo("activated: %t", activated)

				if !activated {
					if info, ok := session.TerminalInfo(); ok {
						base.PrintInfo("terminal: %s (merchant %s)", info.TerminalID, info.MerchantID)
					}
					return nil
				}

				device, err := session.InitializeAndConnect(initCtx, tap.TransactionMode(cfg.Payment.Mode), false)
				if err != nil {
					return err
				}
				base.PrintInfo("device: %s", ui.TruncateText(device.String(), 60))
				return nil
			})
		},
	}
}
