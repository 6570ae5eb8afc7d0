package main

import (
	"context"

	"marker-ide/internal/config"
	"marker-ide/internal/logging"
	"marker-ide/internal/realtime"
	"marker-ide/internal/session"
	"marker-ide/internal/watcher"

	"github.com/uber-go/tally"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

const metricsPrefix = "marker_ide"

func newApp(opts options) *fx.App {
	return fx.New(
		appOptions(opts),
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger}
		}),
	)
}

func appOptions(opts options) fx.Option {
	return fx.Options(
		fx.Supply(opts),
		fx.Provide(
			newConfig,
			newLogger,
			newSugaredLogger,
			newScope,
			newManager,
			newWatcher,
		),
		fx.Invoke(register),
	)
}

func newConfig(opts options) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	return cfg, nil
}

func newLogger(cfg config.Config, lc fx.Lifecycle) (*zap.Logger, error) {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			logger.Sync()
			return nil
		},
	})
	return logger, nil
}

func newSugaredLogger(logger *zap.Logger) *zap.SugaredLogger {
	return logger.Sugar()
}

func newScope(lc fx.Lifecycle) tally.Scope {
	scope, closer := tally.NewRootScope(tally.ScopeOptions{Prefix: metricsPrefix}, 0)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return closer.Close()
		},
	})
	return scope
}

func newManager(cfg config.Config, logger *zap.SugaredLogger, scope tally.Scope) *session.Manager {
	serverCfg := realtime.Config{
		IDEName:   cfg.IDE.Name,
		LockDir:   cfg.IDE.LockDir,
		PortMin:   cfg.IDE.PortMin,
		PortMax:   cfg.IDE.PortMax,
		ScanLimit: cfg.IDE.ScanLimit,
	}
	return session.NewManager(realtime.Factory(serverCfg, logger, scope), logger)
}

func newWatcher(mgr *session.Manager, logger *zap.SugaredLogger) *watcher.Watcher {
	return watcher.New(mgr.UpdateActiveFile, logger)
}

func register(lc fx.Lifecycle, opts options, mgr *session.Manager, w *watcher.Watcher) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			if err := mgr.Open(opts.workspace); err != nil {
				return err
			}
			if opts.follow != "" {
				if err := w.Follow(opts.follow); err != nil {
					mgr.Close()
					return err
				}
			}
			return nil
		},
		OnStop: func(context.Context) error {
			w.Shutdown()
			mgr.Close()
			return nil
		},
	})
}
