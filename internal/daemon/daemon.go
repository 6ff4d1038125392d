// Package daemon wires the subsystem together: state store, job queue, the
// single worker, the notification bus, the HTTP API, periodic maintenance and
// config watching. It owns startup order and graceful shutdown.
package daemon

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/appdock/appdock/internal/api"
	"github.com/appdock/appdock/internal/apps"
	"github.com/appdock/appdock/internal/config"
	ferrors "github.com/appdock/appdock/internal/foundation/errors"
	"github.com/appdock/appdock/internal/logfields"
	"github.com/appdock/appdock/internal/metrics"
	"github.com/appdock/appdock/internal/notify"
	"github.com/appdock/appdock/internal/orchestrator"
	"github.com/appdock/appdock/internal/state"
)

// Daemon is the long-running appdock process.
type Daemon struct {
	cfg        *config.Config
	configPath string
	log        *slog.Logger

	store     *state.Store
	queue     *orchestrator.Queue
	worker    *orchestrator.Worker
	bus       *notify.Bus
	catalog   *apps.Catalog
	procs     *apps.ExecRunner
	server    *api.Server
	scheduler *Scheduler
	watcher   *ConfigWatcher
	bridge    *notify.NATSBridge

	workers WorkerGroup
}

// New builds a daemon from configuration. Nothing starts running until Run.
func New(cfg *config.Config, configPath string, log *slog.Logger) (*Daemon, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryDaemon, "create data directory").
			WithContext("path", cfg.DataDir).Build()
	}

	store, err := state.Open(filepath.Join(cfg.DataDir, "state.db"))
	if err != nil {
		return nil, err
	}

	catalog, err := apps.LoadCatalog(cfg.Catalog.Path, cfg.Catalog.CacheDir)
	if err != nil {
		store.Close()
		return nil, err
	}

	queue := orchestrator.NewQueue(cfg.Queue.MaxDepth)
	bus := notify.NewBus()
	procs := apps.NewExecRunner()
	envs := apps.NewDirProvider(filepath.Join(cfg.DataDir, "envs"))
	translator := apps.NewScriptTranslator()

	dispatch := orchestrator.NewDispatcher()
	dispatch.Register(orchestrator.KindInstall, orchestrator.NewInstallHandler(catalog, translator, envs))
	dispatch.Register(orchestrator.KindLaunch, orchestrator.NewLaunchHandler(catalog, translator, envs, procs))
	dispatch.Register(orchestrator.KindStop, orchestrator.NewStopHandler(procs))
	dispatch.Register(orchestrator.KindUninstall, orchestrator.NewUninstallHandler(envs))
	dispatch.Register(orchestrator.KindCancel, orchestrator.NewCancelHandler(queue))

	registry := prom.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(registry)

	worker := orchestrator.NewWorker(queue, store, dispatch, bus, log).WithRecorder(recorder)
	if timeout, _ := cfg.JobTimeout(); timeout > 0 {
		worker.WithJobTimeout(timeout)
	}

	server := api.NewServer(cfg.Listen, api.Deps{
		Queue:   queue,
		Store:   store,
		Bus:     bus,
		Catalog: catalog,
		Metrics: metrics.HTTPHandler(registry),
	}, log)

	scheduler, err := NewScheduler()
	if err != nil {
		store.Close()
		return nil, err
	}

	return &Daemon{
		cfg:        cfg,
		configPath: configPath,
		log:        log,
		store:      store,
		queue:      queue,
		worker:     worker,
		bus:        bus,
		catalog:    catalog,
		procs:      procs,
		server:     server,
		scheduler:  scheduler,
	}, nil
}

// Run starts every component and blocks until the context is canceled or the
// worker hits a fatal error. Handler failures never end up here; only losing
// the store does.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workerErr := make(chan error, 1)
	d.workers.Go(func() {
		workerErr <- d.worker.Run(ctx)
	})

	serverErr := make(chan error, 1)
	d.workers.Go(func() {
		d.log.Info("API server listening", logfields.Endpoint(d.cfg.Listen))
		if err := d.server.Start(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	})

	if d.cfg.Notify.NATSURL != "" {
		bridge, err := notify.NewNATSBridge(d.cfg.Notify.NATSURL, d.cfg.Notify.Subject, d.bus)
		if err != nil {
			d.log.Warn("NATS bridge unavailable, continuing without it", logfields.Error(err))
		} else {
			d.bridge = bridge
		}
	}

	if err := d.startMaintenance(ctx); err != nil {
		d.shutdown(ctx)
		return err
	}

	watcher, err := NewConfigWatcher(d.configPath, d)
	if err != nil {
		d.log.Warn("config watcher unavailable, hot reload disabled", logfields.Error(err))
	} else {
		d.watcher = watcher
		if err := watcher.Start(ctx); err != nil {
			d.log.Warn("config watcher failed to start", logfields.Error(err))
			d.watcher = nil
		}
	}

	d.log.Info("Daemon started", "data_dir", d.cfg.DataDir)

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-workerErr:
		if err != nil {
			d.log.Error("Worker stopped on fatal error", logfields.Error(err))
			runErr = err
		}
	case err := <-serverErr:
		d.log.Error("API server failed", logfields.Error(err))
		runErr = err
	}

	cancel()
	d.shutdown(context.Background())
	return runErr
}

// startMaintenance registers the periodic jobs: a liveness sweep that turns
// dead processes into stop jobs, and audit-row pruning.
func (d *Daemon) startMaintenance(ctx context.Context) error {
	interval, _ := d.cfg.LivenessInterval()
	if interval > 0 {
		if err := d.scheduler.ScheduleLivenessSweep(interval, d.sweepDeadProcesses); err != nil {
			return err
		}
	}

	retention, _ := d.cfg.AuditRetention()
	if retention > 0 {
		prune := func() {
			pruneCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			n, err := d.store.PruneAudit(pruneCtx, time.Now().Add(-retention))
			if err != nil {
				d.log.Warn("audit prune failed", logfields.Error(err))
				return
			}
			if n > 0 {
				d.log.Info("Pruned job audit rows", "rows", n)
			}
		}
		if err := d.scheduler.ScheduleAuditPrune(retention/4, prune); err != nil {
			return err
		}
	}

	d.scheduler.Start()
	return nil
}

// sweepDeadProcesses enqueues a stop job for every application the store
// believes is running but whose process is gone. The stop handler then
// commits the Stopped record through the normal single-writer path.
func (d *Daemon) sweepDeadProcesses() {
	for _, app := range d.store.Snapshot().Apps {
		if app.RunStatus != state.RunRunning {
			continue
		}
		if d.procs.Alive(apps.ProcessHandle{ID: app.ProcessID, PID: app.PID}) {
			continue
		}
		id, err := d.queue.Enqueue(orchestrator.KindStop, app.AppID, orchestrator.Payload{})
		if err != nil {
			d.log.Warn("failed to enqueue liveness stop",
				logfields.AppID(app.AppID), logfields.Error(err))
			continue
		}
		d.log.Info("Process gone, enqueued stop",
			logfields.AppID(app.AppID), logfields.JobID(id), slog.Int("pid", app.PID))
	}
}

// shutdown stops components in reverse dependency order.
func (d *Daemon) shutdown(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if d.watcher != nil {
		_ = d.watcher.Stop()
	}
	if err := d.scheduler.Stop(); err != nil {
		d.log.Warn("scheduler shutdown failed", logfields.Error(err))
	}
	if err := d.server.Shutdown(shutdownCtx); err != nil {
		d.log.Warn("API server shutdown failed", logfields.Error(err))
	}
	d.queue.Close()
	if d.bridge != nil {
		d.bridge.Close()
	}
	d.bus.Close()

	if err := d.workers.StopAndWait(shutdownCtx); err != nil {
		d.log.Warn("daemon workers did not stop in time", logfields.Error(err))
	}

	if err := d.store.Close(); err != nil {
		d.log.Warn("state store close failed", logfields.Error(err))
	}
	d.log.Info("Daemon stopped")
}

// ReloadConfig applies a changed configuration file. Only hot-swappable
// settings take effect: the catalog path and contents. Queue bounds, listen
// address and storage paths require a restart.
func (d *Daemon) ReloadConfig(newCfg *config.Config) error {
	if newCfg.Catalog.Path != d.cfg.Catalog.Path {
		d.log.Warn("catalog.path changed; restart required for the new path to apply")
	}
	if err := d.catalog.Reload(); err != nil {
		return err
	}
	d.log.Info("Configuration reloaded", "catalog", d.cfg.Catalog.Path)
	return nil
}

// Config returns the active configuration.
func (d *Daemon) Config() *config.Config {
	return d.cfg
}
