package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"softpos/internal/apps/common"
	"softpos/internal/di"
	"softpos/internal/errors"
	"softpos/internal/logging"
)

// BaseCommand provides common functionality for all commands
type BaseCommand struct {
	AppCtx    *common.Context
	Container *di.Container
	Logger    *logging.Logger
	Out       io.Writer

	exit func(code int)
}

// NewBaseCommand creates a new base command
func NewBaseCommand(appCtx *common.Context, container *di.Container, name string) *BaseCommand {
	return &BaseCommand{
		AppCtx:    appCtx,
		Container: container,
		Logger:    logging.NewDefaultLogger(name),
		Out:       os.Stdout,
		exit:      os.Exit,
	}
}

// Clients returns the dependencies wired for the loaded configuration
func (bc *BaseCommand) Clients() *di.ClientSet {
	return bc.Container.GetClientSet()
}

// HandleError provides consistent error handling across commands
func (bc *BaseCommand) HandleError(err error) {
	if err == nil {
		return
	}

	var posErr *errors.PosError
	if errors.As(err, &posErr) {
		bc.Logger.Error("%s: %v", posErr.Type, err)
		if len(posErr.Context) > 0 {
			bc.Logger.Debug("Error context: %+v", posErr.Context)
		}
		if posErr.Cause != nil {
			bc.Logger.Debug("Caused by: %v", posErr.Cause)
		}
	} else {
		bc.Logger.Error("Unexpected error: %v", err)
	}

	bc.exit(1)
}

// ExecuteWithContext runs fn with a context cancelled on interrupt
func (bc *BaseCommand) ExecuteWithContext(fn func(context.Context) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := fn(ctx); err != nil {
		bc.HandleError(err)
		return err
	}

	return nil
}

// PrintSuccess prints a success message with consistent formatting
func (bc *BaseCommand) PrintSuccess(message string, args ...any) {
	fmt.Fprintf(bc.Out, "%s%s\n", bc.AppCtx.GetPrefix(), fmt.Sprintf(message, args...))
}

// PrintInfo prints an info message with consistent formatting
func (bc *BaseCommand) PrintInfo(message string, args ...any) {
	fmt.Fprintf(bc.Out, "%s%s\n", bc.AppCtx.GetPrefix(), fmt.Sprintf(message, args...))
}
