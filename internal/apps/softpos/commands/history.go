package softpos

import (
	"context"
	"fmt"

	"softpos/internal/apps/common"
	"softpos/internal/apps/common/commands"
	"softpos/internal/di"
	"softpos/internal/errors"
	"softpos/internal/ui"

	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the command that lists recorded checkouts
func NewHistoryCmd(appCtx *common.Context, container *di.Container) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [reference]",
		Short: "List recent checkouts from the local journal",
		Example: `  softpos history
  softpos history --limit 5
  softpos history 3f0c9a4e-6d1b-4a57-9d0e-0f6f3c2a9b11`,
		Args: cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			base := commands.NewBaseCommand(appCtx, container, "history")
			base.Out = cmd.OutOrStdout()
			journal := base.Clients().Journal

			_ = base.ExecuteWithContext(func(ctx context.Context) error {
				if journal == nil {
					return errors.Configuration("journal is disabled, set journal.enabled in the config")
				}

				if len(args) == 1 {
					entry, err := journal.Get(ctx, args[0])
					if err != nil {
						return err
					}
					base.PrintInfo("reference: %s", entry.ReferenceID)
					base.PrintInfo("status: %s", entry.Status)
					if entry.Amount != "" {
						base.PrintInfo("amount: %s %s", entry.Amount, entry.Currency)
					}
					if entry.TransactionID != "" {
						base.PrintInfo("transaction: %s (%s %s)", entry.TransactionID, entry.ResponseCode, entry.ResponseMessage)
					}
					if entry.DeviceID != "" {
						base.PrintInfo("device: %s", entry.DeviceID)
					}
					base.PrintInfo("message: %s", entry.Message)
					base.PrintInfo("recorded: %s", entry.CreatedAt.Local().Format("2006-01-02 15:04:05"))
					return nil
				}

				entries, err := journal.Recent(ctx, limit)
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					base.PrintInfo("No checkouts recorded yet")
					return nil
				}
				fmt.Fprintln(base.Out, ui.NewStyles(base.Out).HistoryTable(entries))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of checkouts to show")
	return cmd
}
