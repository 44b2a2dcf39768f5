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

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/bnema/transcoder/config"
	HTTPAdapter "github.com/bnema/transcoder/internal/adapter/http"
	"github.com/bnema/transcoder/internal/adapter/process"
	sqlitestore "github.com/bnema/transcoder/internal/adapter/storage/sqlite"
	"github.com/bnema/transcoder/internal/command"
	"github.com/bnema/transcoder/internal/infrastructure/logger"
	"github.com/bnema/transcoder/internal/port"
	"github.com/bnema/transcoder/internal/service"
)

const (
	shutdownTimeout = 30 * time.Second
	// drainTimeout bounds how long running transcodes may delay exit.
	drainTimeout = 2 * time.Minute
)

func main() {
	if err := run(); err != nil {
		logger.Error.Printf("%v", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger.SetLevel(cfg.LogLevel)

	logger.Info.Printf("starting transcoder on port %d, tool=%s, policy=%s, max jobs=%d",
		cfg.Port, cfg.ToolName, cfg.CommandPolicy, cfg.MaxConcurrentJobs)

	if err := os.MkdirAll(cfg.JobsDir, 0755); err != nil {
		return fmt.Errorf("failed to create jobs directory: %w", err)
	}

	validator, err := command.NewPolicy(cfg.CommandPolicy, cfg.ToolName)
	if err != nil {
		return err
	}

	var archive port.JobArchive
	if cfg.ArchiveDir != "" {
		if err := os.MkdirAll(cfg.ArchiveDir, 0755); err != nil {
			return fmt.Errorf("failed to create archive directory: %w", err)
		}
		store, err := sqlitestore.NewStore(cfg.ArchiveDir)
		if err != nil {
			return fmt.Errorf("failed to open archive: %w", err)
		}
		defer func() { _ = store.Close() }()
		archive = store
		logger.Info.Printf("job history archived in %s", cfg.ArchiveDir)
	}

	auth, err := service.NewAPIKeyAuthenticator(cfg.APIKey, bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to set up authentication: %w", err)
	}

	eventBus := service.NewEventBus()
	registry := service.NewRegistry()
	executor := service.NewExecutor(registry, process.NewRunner(), cfg.ToolName, cfg.JobsDir, service.WithEvents(eventBus))
	scheduler := service.NewScheduler(executor, cfg.MaxConcurrentJobs)
	jobs := service.NewJobService(registry, scheduler, validator, archive, service.JobServiceConfig{
		JobsDir:           cfg.JobsDir,
		AllowedExtensions: cfg.AllowedExtensions,
		MIMETypes:         cfg.MIMETypes,
	})

	reaperOpts := []service.ReaperOption{}
	if archive != nil {
		reaperOpts = append(reaperOpts, service.WithArchive(archive))
	}
	reaper := service.NewReaper(registry, cfg.JobRetentionPeriod, cfg.CleanupInterval, reaperOpts...)

	server := HTTPAdapter.NewServer(jobs, auth, eventBus, cfg.JobsDir, cfg.MaxUploadBytes(), cfg.TrustProxy)

	addr := fmt.Sprintf(":%d", cfg.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.ServerTimeout,
		WriteTimeout:      cfg.ServerTimeout,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info.Printf("server listening on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return reaper.Run(gctx)
	})

	g.Go(func() error {
		return server.RunMaintenance(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info.Printf("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error.Printf("http shutdown error: %v", err)
		}
		return nil
	})

	err = g.Wait()

	// Jobs are never reloaded, so give running ones a chance to finish.
	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if running, queued := scheduler.Stats(); running+queued > 0 {
		logger.Info.Printf("waiting for %d running and %d queued jobs", running, queued)
	}
	if werr := scheduler.Wait(drainCtx); werr != nil {
		logger.Warn.Printf("jobs still running at exit: %v", werr)
	}

	if err != nil {
		return err
	}
	logger.Info.Printf("shutdown complete")
	return nil
}
