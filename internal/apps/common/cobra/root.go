package cobra

import (
	"fmt"
	"strings"

	"softpos/internal/apps/common"
	"softpos/internal/buildinfo"
	"softpos/internal/config"
	"softpos/internal/di"

	"github.com/spf13/cobra"
)

func NewRootCommand(appCtx *common.Context, container *di.Container) *cobra.Command {
	var (
		configPath string
		scenario   string
		logLevel   string
	)

	rootCmd := &cobra.Command{
		Use:               appCtx.BinaryName,
		Short:             "Tap-to-pay checkout CLI",
		Long:              `A CLI that takes contactless card payments through the payment-device SDK, with a sandbox SDK for development.`,
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Version:           buildinfo.Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := appCtx.Load(configPath, scenario, logLevel); err != nil {
				return err
			}
			return container.InitializeForConfig(appCtx.Config)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $"+config.EnvConfigPath+" or ~/.softpos.yaml)")
	rootCmd.PersistentFlags().StringVar(&scenario, "scenario", "", "Sandbox scenario: "+strings.Join(config.ScenarioNames(), ", "))
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Display the version of " + appCtx.BinaryName,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (Environment: %s)\n", appCtx.BinaryName, buildinfo.Version, appCtx.Environment)
		},
	}
	// version needs no configuration
	versionCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {}
	rootCmd.AddCommand(versionCmd)

	return rootCmd
}
