// Package app assembles the notification engine from its parts.
//
// Two entry modes share one assembly: HandleStdin processes a single event
// from standard input and exits (the hook path), Serve runs the HTTP ingest
// with background maintenance until the context is cancelled.
package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"hooknotify/internal/config"
	"hooknotify/internal/debounce"
	"hooknotify/internal/dispatch"
	"hooknotify/internal/eventbus"
	"hooknotify/internal/maintenance"
	"hooknotify/internal/pipeline"
	"hooknotify/internal/runtime/supervisor"
	"hooknotify/internal/server"
	"hooknotify/internal/session"
	"hooknotify/internal/storage"
	"hooknotify/pkg/logx"
)

type App struct {
	manager *config.Manager
	logSvc  *logx.Service
	log     logx.Logger

	store   storage.Store
	markers debounce.MarkerStore
	bus     eventbus.Bus
	pipe    *pipeline.Pipeline
}

// New loads configuration from path (or defaults when the default file is
// absent) and builds the full pipeline. The returned App owns the store and
// marker files; callers must Close it.
func New(path string) (*App, error) {
	if path == "" {
		path = config.DefaultPath()
	}
	manager := config.NewManager(path, logx.Nop())
	cfg, err := manager.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})

	a := &App{manager: manager, logSvc: logSvc, log: log}
	if err := a.build(cfg); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(cfg *config.Config) error {
	busy, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return err
	}
	store, err := storage.Open(storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busy,
	}, a.log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	a.store = store

	if cfg.Debounce.Dir != "" {
		a.markers, err = debounce.NewFileStore(cfg.Debounce.Dir)
		if err != nil {
			return fmt.Errorf("open markers: %w", err)
		}
	} else {
		a.markers = debounce.NewMemoryStore()
	}

	remote := dispatch.Resolve(dispatch.TelegramConfig{
		Enabled:    cfg.Telegram.Enabled,
		Token:      cfg.Telegram.Token,
		ChatID:     cfg.Telegram.ChatID,
		GroupID:    cfg.Telegram.GroupID,
		RatePerSec: cfg.Telegram.RatePerSec,
	}, a.log)

	var local dispatch.LocalChannel = dispatch.NoopLocal{}
	if cfg.Desktop.Enabled {
		if d, ok := dispatch.NewDesktop(a.log); ok {
			local = d
		}
	}

	a.bus = eventbus.New()
	gate := debounce.NewGate(a.markers, a.log)
	tracker := session.NewTracker(a.store, a.log)
	a.pipe = pipeline.New(tracker, gate, a.store, remote, local, a.bus, a.log)
	return nil
}

// HandleStdin reads one event from stdin and runs it through the pipeline.
// Empty input is a no-op; hooks fire on events we never asked for.
func (a *App) HandleStdin(ctx context.Context) error {
	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}
	if len(raw) == 0 {
		a.log.Debug("empty stdin, nothing to do")
		return nil
	}
	return a.pipe.Handle(ctx, raw)
}

// Serve runs HTTP ingest, counters, maintenance, and the config watcher
// until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	cfg := a.manager.Get()

	srvCfg := server.Config{}
	if sc := cfg.Server; sc != nil {
		srvCfg.Addr = sc.Addr
		var err error
		if srvCfg.ReadTimeout, err = config.ParseDurationField("server.read_timeout", sc.ReadTimeout); err != nil {
			return err
		}
		if srvCfg.WriteTimeout, err = config.ParseDurationField("server.write_timeout", sc.WriteTimeout); err != nil {
			return err
		}
		if srvCfg.IdleTimeout, err = config.ParseDurationField("server.idle_timeout", sc.IdleTimeout); err != nil {
			return err
		}
	}

	maintCfg := maintenance.Config{}
	if mc := cfg.Maintenance; mc != nil {
		maintCfg.PruneSchedule = mc.PruneSchedule
	}
	maint, err := maintenance.New(maintCfg, a.markers, a.log)
	if err != nil {
		return fmt.Errorf("maintenance: %w", err)
	}

	stats := server.NewStats()
	srv := server.New(srvCfg, a.pipe, stats, a.log)

	sup := supervisor.New(ctx, a.log)
	sup.Go("stats", func(ctx context.Context) error {
		return stats.Run(ctx, a.bus)
	})
	sup.Go("http", srv.Run)
	sup.Go("maintenance", maint.Run)
	sup.Go("config-watch", func(ctx context.Context) error {
		return a.manager.Watch(ctx, a.onConfigChange)
	})
	return sup.Wait(ctx)
}

// onConfigChange re-applies the logging section. Channel and storage
// settings are fixed for the life of the process; changing them needs a
// restart, and we say so rather than half-apply.
func (a *App) onConfigChange(cfg *config.Config) {
	a.logSvc.Apply(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	a.log.Info("configuration reloaded; channel and storage changes need a restart")
}

func (a *App) Close() error {
	var first error
	if a.markers != nil {
		if err := a.markers.Close(); err != nil && first == nil {
			first = err
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil && first == nil {
			first = err
		}
	}
	if a.logSvc != nil {
		if err := a.logSvc.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Pipeline exposes the assembled pipeline for direct embedding.
func (a *App) Pipeline() *pipeline.Pipeline { return a.pipe }
