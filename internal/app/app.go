// Package app wires configuration, logging, the gateway, the units core and
// the store into a running service.
package app

import (
	"context"
	"errors"
	"time"

	"svcwatch/internal/api"
	"svcwatch/internal/config"
	"svcwatch/internal/observability/pprof"
	"svcwatch/internal/runtime/supervisor"
	"svcwatch/internal/snapshot"
	logx "svcwatch/pkg/logx"
)

type App struct {
	cfgm *config.ConfigManager
	cfg  *config.Config

	logs *logx.Service
	log  logx.Logger
	core *Core

	srv   *api.Server
	snap  *snapshot.Job
	pprof *pprof.Service
	sup   *supervisor.Supervisor
}

// Env is the loaded configuration plus the logging service built from it.
type Env struct {
	Manager *config.ConfigManager
	Config  *config.Config
	Logs    *logx.Service
	Log     logx.Logger
}

// Boot loads the config (flag, $SVCWATCH_CONFIG or default path) and starts
// the logging service.
func Boot(cfgPath string) (*Env, error) {
	cfgm := config.NewConfigManager(config.ResolvePath(cfgPath))
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	logs, log := logx.New(mapLoggingConfig(cfg.Logging))
	cfgm.SetLogger(log.With(logx.String("comp", "config")))
	return &Env{Manager: cfgm, Config: cfg, Logs: logs, Log: log}, nil
}

func (e *Env) Close() error {
	if e == nil || e.Logs == nil {
		return nil
	}
	return e.Logs.Close()
}

func NewApp(ctx context.Context, cfgPath string) (*App, error) {
	env, err := Boot(cfgPath)
	if err != nil {
		return nil, err
	}
	cfg, log := env.Config, env.Log
	core, err := NewCore(ctx, cfg, log)
	if err != nil {
		_ = env.Close()
		return nil, err
	}

	a := &App{cfgm: env.Manager, cfg: cfg, logs: env.Logs, log: log.With(logx.String("comp", "app")), core: core}

	apiCfg, err := mapAPIConfig(cfg.HTTP)
	if err != nil {
		_ = a.close()
		return nil, err
	}
	a.srv = api.NewServer(apiCfg, api.Deps{
		Status:    core.Status,
		Resources: core.Resources,
		Actions:   core.Actions,
		Catalog:   core.Catalog,
		Store:     core.Store,
		Health:    a.health,
	}, log)

	job, err := snapshot.New(mapSnapshotConfig(cfg.Snapshot), core.Store, core.Status, log)
	switch {
	case errors.Is(err, snapshot.ErrDisabled):
	case err != nil:
		_ = a.close()
		return nil, err
	default:
		a.snap = job
	}
	if cfg.Debug.PprofEnabled {
		a.pprof = pprof.New(pprof.Config{Addr: cfg.Debug.PprofAddr, Token: cfg.Debug.PprofToken}, log)
	}
	return a, nil
}

// health reports supervised component states and, when scheduled, the last
// snapshot pass.
func (a *App) health() map[string]any {
	out := map[string]any{}
	if a.sup != nil {
		out["components"] = a.sup.Components()
	}
	if a.snap != nil {
		out["snapshot"] = a.snap.Last()
	}
	return out
}

// Start launches the HTTP server, the config watcher and, when scheduled,
// the snapshot job. A failing HTTP listener cancels everything.
func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))

	a.sup.Go("http", a.srv.Run)

	updates := a.cfgm.Subscribe(1)
	a.sup.Go("config.apply", func(ctx context.Context) error {
		defer a.cfgm.Unsubscribe(updates)
		for {
			select {
			case <-ctx.Done():
				return nil
			case cfg, ok := <-updates:
				if !ok {
					return nil
				}
				a.logs.Apply(mapLoggingConfig(cfg.Logging))
			}
		}
	})
	a.sup.GoRestart("config.watch", a.cfgm.Watch)

	if a.snap != nil {
		a.sup.GoRestart("snapshot", a.snap.Run)
	}
	if a.pprof != nil {
		a.sup.GoRestart("pprof", a.pprof.Run, supervisor.WithRestartBackoff(time.Second, time.Minute))
	}

	a.log.Info("svcwatch started",
		logx.String("addr", a.cfg.HTTP.Addr),
		logx.String("backend", a.cfg.Gateway.Backend),
		logx.Bool("snapshot", a.snap != nil),
		logx.Bool("pprof", a.pprof != nil),
	)
	return nil
}

// Done is closed when the supervisor context ends (signal or fatal error).
func (a *App) Done() <-chan struct{} { return a.sup.Context().Done() }

func (a *App) Err() error { return a.sup.Err() }

// Stop cancels every component, waits for them within ctx and releases the
// store, the gateway and the log file.
func (a *App) Stop(ctx context.Context) error {
	var err error
	if a.sup != nil {
		err = a.sup.Stop(ctx)
	}
	if cerr := a.close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func (a *App) close() error {
	err := a.core.Close()
	a.log.Info("svcwatch stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return err
}
