// Command tenantdesk-server runs the tenant administration service:
// document store, live sync surface, audit trail, and operator API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/tenantdesk/tenantdesk/internal/admin"
	"github.com/tenantdesk/tenantdesk/internal/api"
	"github.com/tenantdesk/tenantdesk/internal/audit"
	"github.com/tenantdesk/tenantdesk/internal/config"
	"github.com/tenantdesk/tenantdesk/internal/db"
	"github.com/tenantdesk/tenantdesk/internal/db/migrations"
	"github.com/tenantdesk/tenantdesk/internal/dbpool"
	"github.com/tenantdesk/tenantdesk/internal/docstore"
	"github.com/tenantdesk/tenantdesk/internal/domain"
	"github.com/tenantdesk/tenantdesk/internal/monitor"
	"github.com/tenantdesk/tenantdesk/internal/tenantsync"
	"github.com/tenantdesk/tenantdesk/internal/ws"
)

// version is set at build time via -ldflags.
var version = "dev"

const (
	startupTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
	bridgeRetries   = 5
	bridgeRetryWait = 2 * time.Second
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	if err := run(log); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}

func run(log *logrus.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	pool, err := dbpool.New(startCtx, cfg.DatabaseURL.Value(), int32(cfg.DBMaxConns))
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	if err := db.RunMigrations(startCtx, pool, log, migrations.FS); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	store := docstore.New(pool, log)
	dispatcher := docstore.NewDispatcher(store, log)
	reporter := monitor.NewReporter(store, log, cfg.Environment)

	auditor := audit.NewLogger(store, log)
	worker := audit.NewWorker(auditor, log, cfg.AuditQueueSize)

	adminSvc := admin.NewService(store, domain.NewBatcher(store), worker, log)

	hub := ws.NewHub(log)

	bridge := db.NewNotifyBridge(log, pool, dispatcher, hub)
	if err := reporter.WithRetry(startCtx, bridgeRetries, bridgeRetryWait, func() error {
		return bridge.Start(ctx)
	}); err != nil {
		return fmt.Errorf("starting notify bridge: %w", err)
	}

	deps := &api.RouterDeps{
		Log:      log,
		Pool:     pool,
		Hub:      hub,
		Admin:    adminSvc,
		Reporter: reporter,
		Sessions: func(tenantID string, id tenantsync.Identity) *tenantsync.Session {
			return tenantsync.NewSession(
				store, domain.NewWatcher(dispatcher),
				auditor, reporter, log, tenantID, id,
			)
		},
		TenantLookup: adminSvc,
		AdminToken:   cfg.AdminToken.Value(),
		CORSOrigins:  cfg.CORSOrigins,
		Version:      version,
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           api.NewRouter(ctx, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		worker.Run(gctx)
		return nil
	})

	g.Go(func() error {
		log.WithFields(logrus.Fields{
			"addr":    cfg.Addr(),
			"version": version,
		}).Info("server listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("http shutdown incomplete")
		}

		return nil
	})

	return g.Wait()
}
