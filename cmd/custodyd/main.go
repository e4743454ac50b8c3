package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"custodycore/internal/blob"
	"custodycore/internal/config"
	"custodycore/internal/core"
	"custodycore/internal/export"
	"custodycore/internal/scheduler"
	"custodycore/internal/server/handlers"
	"custodycore/internal/server/router"
	"custodycore/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New())
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	engine := core.NewDefaultRulesEngine(cfg.Yard.MaxCapacity)
	store, err := core.OpenPersistentStore(engine)
	if err != nil {
		baseLogger.Fatal("failed to open persistent store", zap.Error(err))
	}
	baseLogger.Info("persistent store ready", zap.String("driver", cfg.Storage.Driver))

	photoStore, err := blob.Open(context.Background())
	if err != nil {
		baseLogger.Fatal("failed to open photo store", zap.Error(err))
	}
	baseLogger.Info("photo store ready", zap.String("driver", string(photoStore.Driver())))

	metrics := core.NewPrometheusRecorder(prometheus.DefaultRegisterer)

	svc := core.NewService(store,
		core.WithLogger(logger.Named(baseLogger, "svc.lifecycle")),
		core.WithMetrics(metrics),
		core.WithPhotoStore(photoStore),
		core.WithMaxCapacity(cfg.Yard.MaxCapacity),
	)

	exporter := export.NewService(svc, logger.Named(baseLogger, "svc.export"))
	handler := handlers.NewLifecycleHandler(svc, exporter, logger.Named(baseLogger, "handlers.lifecycle"))
	ginEngine := router.New(handler, logger.Named(baseLogger, "router"), cfg.Server.RequestTimeout)

	sched := scheduler.NewScheduler(cfg.Reporting, svc, metrics, logger.Named(baseLogger, "scheduler"))
	sched.Start()
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      ginEngine,
		ReadTimeout:  cfg.Server.RequestTimeout,
		WriteTimeout: cfg.Server.RequestTimeout,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
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
