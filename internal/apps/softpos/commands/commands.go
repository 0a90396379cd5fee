package softpos

import (
	"softpos/internal/apps/common"
	"softpos/internal/di"

	"github.com/spf13/cobra"
)

func GetCommands(appCtx *common.Context, container *di.Container) []*cobra.Command {
	return []*cobra.Command{
		NewPayCmd(appCtx, container),
		NewActivateCmd(appCtx, container),
		NewStatusCmd(appCtx, container),
		NewHistoryCmd(appCtx, container),
		NewServeCmd(appCtx, container),
	}
}
