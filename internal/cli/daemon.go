package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/algostake/stakepool/internal/platform"
)

func GetDaemonCmdOpts(app *App) *cli.Command {
	return &cli.Command{
		Name:    "daemon",
		Aliases: []string{"d"},
		Usage:   "Run the application as a background daemon",
		Before:  checkConfigured(app),
		Action:  runAsDaemon(app),
	}
}

func runAsDaemon(app *App) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		if app.Daemon == nil {
			return fmt.Errorf("daemon not initialized")
		}
		syncManagedPools(app)

		errc := make(chan error)
		go func() {
			c := make(chan os.Signal, 1)
			signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
			errc <- fmt.Errorf("%s", <-c)
		}()

		runCtx, cancel := context.WithCancel(context.Background())
		app.Daemon.Start(runCtx, &app.wg)

		platform.Infof(app.Logger, "exiting (%v)", <-errc)
		cancel()
		platform.Infof(app.Logger, "waiting on background tasks")
		app.wg.Wait()
		platform.Infof(app.Logger, "exited")
		return nil
	}
}
