package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/daylog/internal/daylog"
)

type SyncCmd struct {
	flags  *Flags
	app    *daylog.App
	dryRun bool
}

func NewSyncCmd(flags *Flags, app *daylog.App) *SyncCmd {
	return &SyncCmd{flags: flags, app: app}
}

func (cmd *SyncCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "sync",
		Usage:       "Reconcile the current record with its linked issues",
		UsageText:   "daylog sync [options]",
		Description: "Checks off todos whose linked issues were closed and closes issues whose todos were checked off.",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "dry-run",
				Usage:       "report what would change without writing anything",
				Destination: &cmd.dryRun,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *SyncCmd) run(ctx context.Context, _ *cli.Command) error {
	result, err := cmd.app.Syncer.Run(ctx, cmd.dryRun)
	if err != nil {
		return err
	}

	w := os.Stderr
	if result.NoRecord {
		_, _ = fmt.Fprintln(w, "no open record to sync")
		return nil
	}

	prefix := ""
	if cmd.dryRun {
		prefix = "dry run: "
	}
	_, _ = fmt.Fprintf(w, "%srecord #%d: %d todo(s) checked, %d issue(s) closed\n",
		prefix, result.IssueNumber, len(result.Checked), len(result.ClosedIssues))
	return nil
}
