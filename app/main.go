package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/lysyi3m/social-comb/app/api"
	"github.com/lysyi3m/social-comb/app/cache"
	"github.com/lysyi3m/social-comb/app/cfg"
	"github.com/lysyi3m/social-comb/app/database"
	"github.com/lysyi3m/social-comb/app/events"
	"github.com/lysyi3m/social-comb/app/pipeline"
	"github.com/lysyi3m/social-comb/app/sources"
	"github.com/lysyi3m/social-comb/app/sources/x"
	"github.com/lysyi3m/social-comb/app/sources/youtube"
	"github.com/lysyi3m/social-comb/app/tasks"
	"github.com/lysyi3m/social-comb/app/telemetry"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		return
	}

	telemetry.InitLogger(appCfg.Debug)

	slog.Info("Starting Social Comb",
		"version", appCfg.Version,
		"db_driver", appCfg.DBDriver,
		"run_interval", appCfg.RunIntervalDuration().String(),
		"run_once", appCfg.RunOnce)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.InitTracer(ctx, appCfg.OtelEndpoint, appCfg.Version)
	if err != nil {
		slog.Error("Failed to init tracer", "error", err)
	} else {
		defer func() { _ = tp.Shutdown(context.Background()) }()
	}

	db, err := database.NewConnection(database.Options{
		Driver:   appCfg.DBDriver,
		Host:     appCfg.DBHost,
		Port:     appCfg.DBPort,
		User:     appCfg.DBUser,
		Password: appCfg.DBPassword,
		Name:     appCfg.DBName,
		SSLMode:  appCfg.DBSSLMode,
		Path:     appCfg.DBPath,
	})
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "driver", appCfg.DBDriver, "schema_version", version, "dirty", dirty)

	settings, err := sources.LoadSettings(appCfg.SourcesFile)
	if err != nil {
		slog.Error("Failed to load sources settings", "error", err)
		os.Exit(1)
	}

	sourceX, sourceYouTube := buildSources(appCfg, settings)
	postRepo := database.NewPostRepository(db)
	ingestion := pipeline.New(sourceX, sourceYouTube, postRepo)

	history := &tasks.MemoryRecorder{}
	recorders := []tasks.RunRecorder{history}
	taskOpts := []tasks.IngestTaskOption{
		tasks.WithRetries(appCfg.RunRetries, appCfg.RetryDelayDuration()),
	}

	var runCache *cache.Cache
	if appCfg.RedisAddr != "" {
		runCache, err = cache.NewCache(ctx, appCfg.RedisAddr, appCfg.RedisPassword)
		if err != nil {
			slog.Warn("Redis unavailable, using in-process run lock only", "error", err)
		} else {
			defer runCache.Close()
			recorders = append(recorders, runCache)
			// The lock outlives one attempt so a slow run is not joined by another replica.
			taskOpts = append(taskOpts, tasks.WithLocker(runCache, appCfg.RunTimeoutDuration()+time.Minute))
		}
	}

	if appCfg.NatsURL != "" {
		nc, err := nats.Connect(appCfg.NatsURL, nats.Name("social-comb"))
		if err != nil {
			slog.Warn("NATS unavailable, run events disabled", "error", err)
		} else {
			defer nc.Drain()
			slog.Info("Connected to NATS", "subject", appCfg.NatsSubject)
			recorders = append(recorders, events.NewNatsPublisher(nc, appCfg.NatsSubject))
		}
	}

	taskOpts = append(taskOpts, tasks.WithRecorders(recorders...))
	newTask := func() tasks.TaskInterface {
		return tasks.NewIngestTask(ingestion, taskOpts...)
	}

	if appCfg.RunOnce {
		if err := tasks.RunOnce(ctx, newTask(), appCfg.RunTimeoutDuration()); err != nil {
			slog.Error("Ingestion run failed", "error", err)
			os.Exit(1)
		}
		slog.Info("Ingestion run finished")
		return
	}

	scheduler := tasks.NewScheduler(newTask, appCfg.RunIntervalDuration(), appCfg.RunTimeoutDuration())
	scheduler.Start()
	defer scheduler.Stop()

	var cacheHealth api.HealthReporter
	if runCache != nil {
		cacheHealth = runCache
	}
	var runHistory api.RunHistory = history
	if runCache != nil {
		runHistory = runCache
	}

	apiHandler := api.NewHandler(postRepo, scheduler, runHistory, cacheHealth)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("Received shutdown signal")
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}
}

// buildSources returns nil for a disabled platform so the pipeline treats it as empty.
func buildSources(appCfg *cfg.Cfg, settings *sources.Settings) (pipeline.Fetcher, pipeline.Fetcher) {
	var sourceX, sourceYouTube pipeline.Fetcher

	if settings.X.IsEnabled() {
		if appCfg.XBearerToken == "" {
			slog.Warn("X_BEARER_TOKEN not set, X requests will be rejected")
		}
		opts := []x.ClientOption{
			x.WithUserAgent(appCfg.UserAgent),
			x.WithTimeout(appCfg.RequestTimeoutDuration()),
		}
		if settings.X.BaseURL != "" {
			opts = append(opts, x.WithBaseURL(settings.X.BaseURL))
		}
		if settings.X.Query != "" {
			opts = append(opts, x.WithQuery(settings.X.Query))
		}
		if settings.X.MaxResults != 0 {
			opts = append(opts, x.WithMaxResults(settings.X.MaxResults))
		}
		sourceX = x.NewClient(appCfg.XBearerToken, opts...)
	} else {
		slog.Info("X source disabled")
	}

	if settings.YouTube.IsEnabled() {
		if appCfg.YouTubeAPIKey == "" {
			slog.Warn("YOUTUBE_API_KEY not set, YouTube requests will be rejected")
		}
		opts := []youtube.ClientOption{
			youtube.WithUserAgent(appCfg.UserAgent),
			youtube.WithTimeout(appCfg.RequestTimeoutDuration()),
		}
		if settings.YouTube.BaseURL != "" {
			opts = append(opts, youtube.WithBaseURL(settings.YouTube.BaseURL))
		}
		if settings.YouTube.Query != "" {
			opts = append(opts, youtube.WithQuery(settings.YouTube.Query))
		}
		if settings.YouTube.MaxResults != 0 {
			opts = append(opts, youtube.WithMaxResults(settings.YouTube.MaxResults))
		}
		sourceYouTube = youtube.NewClient(appCfg.YouTubeAPIKey, opts...)
	} else {
		slog.Info("YouTube source disabled")
	}

	return sourceX, sourceYouTube
}
