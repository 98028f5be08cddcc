package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/kotyarick/ttgt-schedule-api/api/swagger"
	"github.com/kotyarick/ttgt-schedule-api/internal/fetch"
	"github.com/kotyarick/ttgt-schedule-api/internal/handler"
	"github.com/kotyarick/ttgt-schedule-api/internal/middleware"
	"github.com/kotyarick/ttgt-schedule-api/internal/parser"
	"github.com/kotyarick/ttgt-schedule-api/internal/service"
	"github.com/kotyarick/ttgt-schedule-api/pkg/cache"
	"github.com/kotyarick/ttgt-schedule-api/pkg/config"
	"github.com/kotyarick/ttgt-schedule-api/pkg/jobs"
	"github.com/kotyarick/ttgt-schedule-api/pkg/logger"
	corsmiddleware "github.com/kotyarick/ttgt-schedule-api/pkg/middleware/cors"
	reqidmiddleware "github.com/kotyarick/ttgt-schedule-api/pkg/middleware/requestid"
	"github.com/kotyarick/ttgt-schedule-api/pkg/storage"
	"github.com/kotyarick/ttgt-schedule-api/pkg/store"
)

// @title TTGT Schedule API
// @version 1.0.0
// @description Normalized class timetable with daily substitution overlays
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var artifactStore store.Store
	if cfg.Redis.Enabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("redis unavailable", "error", err)
		}
		defer client.Close() //nolint:errcheck
		artifactStore = store.NewRedisStore(client, logr)
	} else {
		localFS, err := storage.NewLocalStorage(cfg.Schedule.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("artifact storage unavailable", "error", err)
		}
		artifactStore = store.NewFileStore(localFS)
	}

	fetcher, err := fetch.NewFetcher(cfg.Schedule.WorkDir, cfg.Schedule.FetchTimeout, logr)
	if err != nil {
		logr.Sugar().Fatalw("fetcher init failed", "error", err)
	}

	workFS, err := storage.NewLocalStorage(cfg.Schedule.WorkDir)
	if err != nil {
		logr.Sugar().Fatalw("work directory unavailable", "error", err)
	}

	// Downloads left behind by a previous run are stale by definition.
	if removed, err := workFS.CleanupOlderThan(24 * time.Hour); err == nil && len(removed) > 0 {
		logr.Sugar().Infow("stale downloads removed", "count", len(removed))
	}

	var archiveSource fetch.ArchiveSource
	if cfg.MinIO.Enabled {
		archiveSource, err = fetch.NewMinIOArchiveSource(cfg.MinIO, cfg.Schedule.ArchiveObject, workFS, logr)
		if err != nil {
			logr.Sugar().Fatalw("minio source init failed", "error", err)
		}
	} else {
		archiveSource = fetch.NewHTTPArchiveSource(fetcher, cfg.Schedule.ArchiveURL)
	}

	metricsSvc := service.NewMetricsService()

	timetableSvc := service.NewTimetableService(archiveSource, parser.NewArchiveParser(logr), artifactStore, logr)

	refreshQueue := jobs.NewQueue("archive-refresh", func(jobCtx context.Context, job jobs.Job) error {
		return timetableSvc.Refresh(jobCtx)
	}, jobs.QueueConfig{Workers: 1, Logger: logr})
	timetableSvc.AttachQueue(refreshQueue)
	refreshQueue.Start(ctx)
	defer refreshQueue.Stop()

	overridesSvc := service.NewOverridesService(
		fetcher,
		parser.NewBulletinParser(parser.NewPDFExtractor(logr), logr),
		service.SystemClock(),
		metricsSvc,
		logr,
		cfg.Schedule.BulletinURL,
		cfg.Schedule.CutoffHour,
	)

	timetableSvc.Load(ctx)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	scheduleHandler := handler.NewScheduleHandler(timetableSvc, overridesSvc, validator.New())
	scheduleHandler.Register(api)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)

	srv := &http.Server{Addr: addr, Handler: r}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Schedule.FetchTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown failed", "error", err)
	}
}
