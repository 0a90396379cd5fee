package softpos

import (
	"context"
	"time"

	"softpos/internal/apps/common"
	"softpos/internal/apps/common/commands"
	"softpos/internal/di"
	"softpos/internal/server"
	"softpos/internal/tap"

	"github.com/spf13/cobra"
)

// NewServeCmd creates the command that exposes checkout over HTTP
func NewServeCmd(appCtx *common.Context, container *di.Container) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the payment API for a register front end",
		Long: `Listen for POST /v1/payments and run each request through the checkout flow.
Recorded checkouts are served from GET /v1/payments when the journal is enabled.`,
		Example: `  softpos serve
  softpos serve --addr 127.0.0.1:9000`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			base := commands.NewBaseCommand(appCtx, container, "serve")
			base.Out = cmd.OutOrStdout()
			clients := base.Clients()
			cfg := clients.Config

			if addr == "" {
				addr = cfg.Server.Addr
			}
			flow := clients.NewFlow(tap.TransactionMode(cfg.Payment.Mode), cfg.Payment.AutoConnect, base.Logger)

			var history server.History
			if clients.Journal != nil {
				history = clients.Journal
			}
			srv := server.NewServer(addr, flow.Run, history, base.Logger)

			_ = base.ExecuteWithContext(func(ctx context.Context) error {
				errCh := make(chan error, 1)
				go func() { errCh <- srv.Start() }()
				base.PrintInfo("Payment API listening on http://%s", addr)

				select {
				case err := <-errCh:
					return err
				case <-ctx.Done():
				}

				stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Stop(stopCtx)
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	return cmd
}
