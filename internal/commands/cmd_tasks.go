package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/daylog/internal/daylog"
)

type TasksCmd struct {
	flags   *Flags
	app     *daylog.App
	repoDir string
	dryRun  bool
	yes     bool
}

func NewTasksCmd(flags *Flags, app *daylog.App) *TasksCmd {
	return &TasksCmd{flags: flags, app: app}
}

func (cmd *TasksCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "tasks",
		Usage:     "Manage task proposals on the tracker",
		UsageText: "daylog tasks <command> [options]",
		Commands: []*cli.Command{
			{
				Name:        "submit",
				Usage:       "Submit proposal files as proposal issues",
				Description: "Reads every proposal file from the proposals directory, opens a proposal issue for each, and removes the file.",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "repo-dir",
						Usage:       "path to the repository checkout",
						Value:       ".",
						Destination: &cmd.repoDir,
					},
					&cli.BoolFlag{
						Name:        "dry-run",
						Usage:       "parse and report without creating issues or removing files",
						Destination: &cmd.dryRun,
					},
				},
				Action: cmd.runSubmit,
			},
			{
				Name:        "convert",
				Usage:       "Convert approved proposals into task issues",
				Description: "Turns every open, approved proposal into a task issue, links the pair with comments, and closes the proposal.",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:        "yes",
						Aliases:     []string{"y"},
						Usage:       "skip the confirmation prompt",
						Destination: &cmd.yes,
					},
				},
				Action: cmd.runConvert,
			},
		},
	})
	return app
}

func (cmd *TasksCmd) runSubmit(ctx context.Context, _ *cli.Command) error {
	result, err := cmd.app.Tasks.Submit(ctx, cmd.repoDir, cmd.dryRun)
	if err != nil {
		return err
	}

	w := os.Stderr
	if len(result.Files) == 0 {
		_, _ = fmt.Fprintln(w, "no proposal files found")
		return nil
	}

	if cmd.dryRun {
		_, _ = fmt.Fprintf(w, "dry run: %d proposal file(s) would be submitted\n", len(result.Files))
		for _, path := range result.Files {
			_, _ = fmt.Fprintf(w, "  %s\n", path)
		}
		return nil
	}

	_, _ = fmt.Fprintf(w, "submitted %d proposal(s)\n", len(result.Created))
	return nil
}

func (cmd *TasksCmd) runConvert(ctx context.Context, _ *cli.Command) error {
	if !cmd.yes {
		var confirmed bool
		err := huh.NewConfirm().
			Title("Convert approved proposals?").
			Description("Each approved proposal is closed and replaced by a task issue.").
			Value(&confirmed).
			Run()
		if err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return fmt.Errorf("confirm: %w", err)
		}
		if !confirmed {
			return nil
		}
	}

	result, err := cmd.app.Tasks.ConvertApproved(ctx)
	if err != nil {
		return err
	}

	w := os.Stderr
	if len(result.Tasks) == 0 {
		_, _ = fmt.Fprintln(w, "no approved proposals to convert")
		return nil
	}

	for proposal, task := range result.Tasks {
		_, _ = fmt.Fprintf(w, "proposal #%d converted to task #%d\n", proposal, task)
	}
	return nil
}
