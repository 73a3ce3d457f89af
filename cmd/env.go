package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/zjrosen/smartnotes/internal/autostart"
	"github.com/zjrosen/smartnotes/internal/config"
	"github.com/zjrosen/smartnotes/internal/controller"
	"github.com/zjrosen/smartnotes/internal/history"
	"github.com/zjrosen/smartnotes/internal/hook"
	"github.com/zjrosen/smartnotes/internal/log"
	"github.com/zjrosen/smartnotes/internal/store"
	"github.com/zjrosen/smartnotes/internal/supervisor"
	"github.com/zjrosen/smartnotes/internal/tracing"
)

// Seams replaced by tests.
var (
	newHook    = hook.Default
	newSpawner = func(c config.Config) supervisor.Spawner {
		return supervisor.ExecSpawner{Command: c.Widget.Command, Dir: c.DataDir}
	}
	selfCommand = func() ([]string, error) {
		exe, err := os.Executable()
		if err != nil {
			return nil, err
		}
		return []string{exe, "startup"}, nil
	}
	processAlive = supervisor.Alive
)

// env is everything a command needs, built from the loaded config.
type env struct {
	cfg     config.Config
	store   *store.Store
	reg     *autostart.Registry
	hook    hook.Hook
	sup     *supervisor.Supervisor
	history *history.DB
	tracing *tracing.Provider
	ctrl    *controller.Controller
}

func openEnv(ctx context.Context) (*env, error) {
	e := &env{cfg: cfg}

	tp, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		log.Warn(log.CatConfig, "Tracing disabled", "error", err)
		tp = tracing.Noop()
	}
	e.tracing = tp

	e.store = store.New(cfg.DataDir)
	e.reg = autostart.Open(e.store.Layout().AutoStart())
	e.hook = newHook()

	supOpts := []supervisor.Option{supervisor.WithTracer(tp.Tracer())}
	var journal controller.History
	if cfg.History.Enabled {
		db, err := history.Open(cfg.History.Path)
		if err != nil {
			// Launching must not depend on the journal.
			log.Warn(log.CatHistory, "Launch history unavailable", "path", cfg.History.Path, "error", err)
		} else {
			e.history = db
			journal = db
			supOpts = append(supOpts, supervisor.WithJournal(db))
		}
	}
	e.sup = supervisor.New(newSpawner(cfg), supOpts...)

	self, err := selfCommand()
	if err != nil {
		log.Warn(log.CatStartup, "Cannot locate own executable; global startup entry disabled", "error", err)
	}
	ctrl, err := controller.New(controller.Deps{
		Config:       cfg,
		Store:        e.store,
		Registry:     e.reg,
		Hook:         e.hook,
		Supervisor:   e.sup,
		History:      journal,
		Tracer:       tp.Tracer(),
		SelfCommand:  self,
		ProcessAlive: processAlive,
	})
	if err != nil {
		e.Close()
		return nil, err
	}
	if err := ctrl.Load(ctx); err != nil {
		e.Close()
		return nil, fmt.Errorf("loading instances from %s: %w", cfg.DataDir, err)
	}
	e.ctrl = ctrl
	return e, nil
}

// resolve maps a user-supplied id or prefix to an instance id.
func (e *env) resolve(arg string) (string, error) {
	return e.ctrl.Resolve(arg)
}

func (e *env) Close() {
	e.sup.Close()
	if e.history != nil {
		if err := e.history.Close(); err != nil {
			log.Warn(log.CatHistory, "Closing launch history", "error", err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.tracing.Shutdown(ctx); err != nil {
		log.Warn(log.CatConfig, "Flushing traces", "error", err)
	}
}
