package daylog

import (
	"github.com/colonyops/daylog/internal/core/config"
	"github.com/colonyops/daylog/internal/core/git"
	"github.com/colonyops/daylog/internal/core/kv"
	"github.com/colonyops/daylog/internal/data/db"
	"github.com/colonyops/daylog/internal/data/issuestore"
)

// App is the central entry point for all daylog operations.
// Commands consume App instead of cherry-picking raw dependencies.
type App struct {
	Syncer *Syncer
	Tasks  *Tasks

	Config *config.Config
	Store  issuestore.Store
	Git    *git.Executor
	DB     *db.DB
	KV     kv.KV

	notifier Notifier
}

// NewApp constructs an App from explicit dependencies. notifier may be
// nil when notifications are not configured.
func NewApp(
	cfg *config.Config,
	store issuestore.Store,
	gitExec *git.Executor,
	database *db.DB,
	kvStore kv.KV,
	notifier Notifier,
) *App {
	return &App{
		Syncer:   NewSyncer(cfg, store),
		Tasks:    NewTasks(cfg, store),
		Config:   cfg,
		Store:    store,
		Git:      gitExec,
		DB:       database,
		KV:       kvStore,
		notifier: notifier,
	}
}

// Reporter builds a reporter bound to the repository checkout at
// repoDir.
func (a *App) Reporter(repoDir string) *Reporter {
	return NewReporter(a.Config, a.Store, a.Git, repoDir, a.notifier)
}
