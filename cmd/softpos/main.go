package main

import (
	"os"

	"softpos/internal/apps/common"
	cobraPkg "softpos/internal/apps/common/cobra"
	softposCmd "softpos/internal/apps/softpos/commands"
	"softpos/internal/di"
	"softpos/internal/logging"
)

func main() {
	logger := logging.NewDefaultLogger("softpos")

	appCtx := common.NewContext("softpos")

	// Services are wired once flags and config are parsed
	container := di.NewContainer()

	rootCmd := cobraPkg.NewRootCommand(appCtx, container)
	rootCmd.AddCommand(softposCmd.GetCommands(appCtx, container)...)

	err := rootCmd.Execute()
	container.Close()
	if err != nil {
		logger.Error("Command execution failed: %v", err)
		os.Exit(1)
	}
}
