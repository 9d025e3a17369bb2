package main

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/daylog/internal/commands"
	"github.com/colonyops/daylog/internal/core/config"
	"github.com/colonyops/daylog/internal/core/git"
	"github.com/colonyops/daylog/internal/core/logging"
	"github.com/colonyops/daylog/internal/data/db"
	"github.com/colonyops/daylog/internal/data/issuestore"
	"github.com/colonyops/daylog/internal/data/stores"
	"github.com/colonyops/daylog/internal/daylog"
	"github.com/colonyops/daylog/internal/daylog/sweep"
	"github.com/colonyops/daylog/internal/daylog/updatecheck"
	"github.com/colonyops/daylog/internal/notify"
	"github.com/colonyops/daylog/pkg/executil"
	"github.com/colonyops/daylog/pkg/logutils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	// When installed via `go install module@version`, init() populates
	// these from runtime/debug.BuildInfo instead.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	v, c, d := version, commit, date

	// When installed via `go install module@version`, ldflags aren't set
	// so version remains "dev". Fall back to runtime/debug.BuildInfo which
	// Go populates automatically with the module version and VCS metadata.
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					c = s.Value
				case "vcs.time":
					d = s.Value
				}
			}
		}
	}

	short := c
	if len(c) > 7 {
		short = c[:7]
	}

	return fmt.Sprintf("%s (%s) %s", v, short, d)
}

func main() {
	ctx := context.Background()

	var (
		logCloser func()
		daylogApp = &daylog.App{}
		database  *db.DB
	)

	flags := &commands.Flags{}

	app := &cli.Command{
		Name:      "daylog",
		Usage:     "Keep a daily development status report on your issue tracker",
		UsageText: "daylog [global options] command [command options]",
		Description: `Daylog turns a repository's commit history into a daily status report
issue: one record per day, with per-branch commit summaries and a
categorized todo ledger that carries unfinished items forward.

Run 'daylog report' after committing to update today's record.
Run 'daylog sync' to reconcile todos with their linked issues.`,
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("DAYLOG_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (defaults to stderr)",
				Sources:     cli.EnvVars("DAYLOG_LOG_FILE"),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("DAYLOG_CONFIG"),
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "data-dir",
				Usage:       "path to data directory",
				Sources:     cli.EnvVars("DAYLOG_DATA_DIR"),
				Value:       commands.DefaultDataDir(),
				Destination: &flags.DataDir,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			logger, closer, err := logutils.New(flags.LogLevel, flags.LogFile)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger.Hook(logging.ContextHook{})
			logCloser = closer

			cfg, err := config.Load(flags.ConfigPath, flags.DataDir)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}

			if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
				return ctx, fmt.Errorf("create data dir: %w", err)
			}

			database, err = db.Open(cfg.DataDir)
			if err != nil {
				return ctx, fmt.Errorf("open database: %w", err)
			}

			kvStore := stores.NewKVStore(database)
			sweep.Run(ctx, kvStore)

			store := issuestore.NewGitHub(issuestore.GitHubOptions{
				APIBase:   cfg.GitHub.APIBase,
				Repo:      cfg.Repo,
				Token:     cfg.GitHub.Token(),
				Attempts:  cfg.GitHub.RetryAttempts,
				BaseDelay: cfg.GitHub.RetryBaseDelay,
			})

			var notifier daylog.Notifier
			if webhook := cfg.Slack.Webhook(); webhook != "" {
				notifier = notify.NewSlack(webhook, cfg.Slack.Channel, nil)
			}

			exec := &executil.RealExecutor{}
			gitExec := git.NewExecutor(cfg.GitPath, exec)

			// Populate the pre-allocated App struct (commands already hold a pointer to it)
			*daylogApp = *daylog.NewApp(cfg, store, gitExec, database, kvStore, notifier)

			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if daylogApp.Config != nil && daylogApp.Config.Updates.Enabled {
				if result, err := updatecheck.Check(ctx, daylogApp.KV, version); err == nil && result != nil {
					_, _ = fmt.Fprintf(os.Stderr, "\nA new version is available: %s (current %s)\n",
						result.Latest, result.Current)
				}
			}

			if database != nil {
				if err := database.Close(); err != nil {
					log.Error().Err(err).Msg("failed to close database")
					return err
				}
			}

			if logCloser != nil {
				logCloser()
			}
			return nil
		},
	}

	app = commands.NewReportCmd(flags, daylogApp).Register(app)
	app = commands.NewSyncCmd(flags, daylogApp).Register(app)
	app = commands.NewTasksCmd(flags, daylogApp).Register(app)
	app = commands.NewDoctorCmd(flags, daylogApp).Register(app)

	exitCode := 0
	runErr := app.Run(ctx, os.Args)
	if runErr != nil {
		fmt.Println()
		fmt.Println(runErr.Error())
		exitCode = 1
	}

	os.Exit(exitCode)
}
