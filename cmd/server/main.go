package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/farmsales/internal/config"
	"github.com/mamadbah2/farmsales/internal/repository/mongodb"
	"github.com/mamadbah2/farmsales/internal/repository/sheets"
	"github.com/mamadbah2/farmsales/internal/repository/sqlite"
	"github.com/mamadbah2/farmsales/internal/scheduler"
	"github.com/mamadbah2/farmsales/internal/server/handlers"
	"github.com/mamadbah2/farmsales/internal/server/router"
	"github.com/mamadbah2/farmsales/internal/service/drafts"
	"github.com/mamadbah2/farmsales/internal/service/journal"
	"github.com/mamadbah2/farmsales/internal/service/notify"
	reportingsvc "github.com/mamadbah2/farmsales/internal/service/reporting"
	salessvc "github.com/mamadbah2/farmsales/internal/service/sales"
	"github.com/mamadbah2/farmsales/pkg/clients/farmapi"
	whatsappclient "github.com/mamadbah2/farmsales/pkg/clients/whatsapp"
	"github.com/mamadbah2/farmsales/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	location, err := cfg.Reporting.Location()
	if err != nil {
		baseLogger.Fatal("invalid timezone", zap.Error(err))
	}

	backend := farmapi.NewClient(cfg.FarmAPI, baseLogger.Named("client.farmapi"))

	var draftBuffer drafts.Buffer
	kv, err := sqlite.NewKVStore(cfg.Drafts.DBPath, baseLogger.Named("repo.sqlite"))
	if err != nil {
		baseLogger.Error("failed to open draft buffer, drafts kept in memory", zap.String("path", cfg.Drafts.DBPath), zap.Error(err))
		draftBuffer = drafts.NewMemoryBuffer()
	} else {
		defer func() {
			if err := kv.Close(); err != nil {
				baseLogger.Error("failed to close draft buffer", zap.Error(err))
			}
		}()
		draftBuffer = kv
	}
	draftStore := drafts.NewStore(draftBuffer, baseLogger.Named("svc.drafts"))

	var listeners []salessvc.Listener
	var notifier scheduler.Notifier
	var snapshots scheduler.SnapshotStore

	if cfg.Sheets.Enabled() {
		appender, err := sheets.NewAppender(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets appender", zap.Error(err))
		}
		listeners = append(listeners, journal.New(appender, baseLogger.Named("svc.journal")))
	} else {
		baseLogger.Warn("google sheets not configured, sales journal disabled")
	}

	if cfg.WhatsApp.Enabled() {
		notifySvc := notify.NewService(whatsappclient.NewClient(cfg.WhatsApp), cfg.WhatsApp.ManagerID, baseLogger.Named("svc.notify"))
		listeners = append(listeners, notifySvc)
		notifier = notifySvc
	} else {
		baseLogger.Warn("whatsapp not configured, notifications disabled")
	}

	if cfg.MongoDB.Enabled() {
		mongoRepo, err := mongodb.NewSnapshotRepository(context.Background(), cfg.MongoDB, baseLogger.Named("repo.mongodb"))
		if err != nil {
			baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
		}
		defer func() {
			if err := mongoRepo.Close(context.Background()); err != nil {
				baseLogger.Error("failed to close mongodb connection", zap.Error(err))
			}
		}()
		snapshots = mongoRepo
	} else {
		baseLogger.Warn("mongodb not configured, daily snapshots disabled")
	}

	salesEngine := salessvc.NewEngine(backend, backend, draftStore, baseLogger.Named("svc.sales"), listeners...)
	reportingSvc := reportingsvc.NewService(backend, location, baseLogger.Named("svc.reporting"))

	salesHandler := handlers.NewSalesHandler(salesEngine, reportingSvc, baseLogger.Named("handlers.sales"))
	engine := router.New(salesHandler, baseLogger.Named("router"))

	sched, err := scheduler.NewScheduler(cfg.Reporting, reportingSvc, notifier, snapshots, baseLogger.Named("scheduler"))
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
