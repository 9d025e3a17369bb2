package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/colonyops/daylog/internal/core/styles"
	"github.com/colonyops/daylog/internal/daylog"
)

type ReportCmd struct {
	flags   *Flags
	app     *daylog.App
	repoDir string
	branch  string
	dryRun  bool
}

func NewReportCmd(flags *Flags, app *daylog.App) *ReportCmd {
	return &ReportCmd{flags: flags, app: app}
}

func (cmd *ReportCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "report",
		Usage:       "Update today's report from the repository history",
		UsageText:   "daylog report [options]",
		Description: "Rotates stale daily records, ingests the day's commits, and writes the result back to the tracker.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "repo-dir",
				Usage:       "path to the repository checkout",
				Value:       ".",
				Destination: &cmd.repoDir,
			},
			&cli.StringFlag{
				Name:        "branch",
				Usage:       "override the checked-out branch",
				Destination: &cmd.branch,
			},
			&cli.BoolFlag{
				Name:        "dry-run",
				Usage:       "compute and preview the report without writing anything",
				Destination: &cmd.dryRun,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *ReportCmd) run(ctx context.Context, c *cli.Command) error {
	reporter := cmd.app.Reporter(cmd.repoDir)

	result, err := reporter.Run(ctx, daylog.RunOptions{
		Branch: cmd.branch,
		DryRun: cmd.dryRun,
	})
	if err != nil {
		return err
	}

	w := os.Stderr
	switch {
	case result.BranchSkipped:
		_, _ = fmt.Fprintf(w, "branch %q is excluded, nothing to do\n", result.Branch)
		return nil
	case result.NoChanges:
		_, _ = fmt.Fprintf(w, "record for %s is up to date\n", result.Day)
		return nil
	}

	if cmd.dryRun {
		if err := cmd.preview(c, result.Body); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(w, "\ndry run: %d new commits, %d skipped, %d rotated record(s), nothing written\n",
			result.NewCommits, result.SkippedCommit, len(result.Rotated))
		return nil
	}

	verb := "updated"
	if result.Created {
		verb = "created"
	}
	_, _ = fmt.Fprintf(w, "%s record #%d for %s: %d new commits, %d rotated record(s)\n",
		verb, result.IssueNumber, result.Day, result.NewCommits, len(result.Rotated))
	if result.IssueURL != "" {
		_, _ = fmt.Fprintln(w, result.IssueURL)
	}
	return nil
}

// preview renders the would-be record body, through glamour when
// stdout is a terminal.
func (cmd *ReportCmd) preview(c *cli.Command, body string) error {
	out := c.Root().Writer
	if out == nil {
		out = os.Stdout
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		_, _ = fmt.Fprintln(out, body)
		return nil
	}

	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		width = 80
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStyles(styles.GlamourStyle()),
		glamour.WithWordWrap(min(width, 120)),
	)
	if err != nil {
		_, _ = fmt.Fprintln(out, body)
		return nil
	}

	rendered, err := renderer.Render(body)
	if err != nil {
		_, _ = fmt.Fprintln(out, body)
		return nil
	}

	_, _ = fmt.Fprint(out, rendered)
	return nil
}
