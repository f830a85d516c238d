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

	"github.com/aliuyar1234/tasktally/internal/app"
	"github.com/aliuyar1234/tasktally/internal/config"
	"github.com/aliuyar1234/tasktally/internal/notifications"
	"github.com/aliuyar1234/tasktally/internal/retention"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "admin" {
		_ = godotenv.Load()
		os.Exit(runAdmin(os.Args[2:]))
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	application, err := app.New(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	scheduler, err := setupJobs(cfg, application.DB)
	if err != nil {
		application.Close()
		fmt.Fprintf(os.Stderr, "Failed to schedule background jobs: %v\n", err)
		os.Exit(1)
	}
	scheduler.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- application.Start()
	}()

	select {
	case err := <-errChan:
		<-scheduler.Stop().Done()
		application.Close()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Server error")
			os.Exit(1)
		}
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

		// Let running jobs finish before the pool closes.
		<-scheduler.Stop().Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := application.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Shutdown failed")
			os.Exit(1)
		}
	}
}

func setupJobs(cfg *config.Config, pool *pgxpool.Pool) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(time.UTC))

	jobs := []struct {
		name     string
		schedule string
		run      func(ctx context.Context) error
	}{
		{
			name:     "due-soon",
			schedule: cfg.DueSoonSchedule,
			run: func(ctx context.Context) error {
				return notifications.RunDueSoonJob(ctx, pool, cfg.DueSoonThreshold)
			},
		},
		{
			name:     "retention",
			schedule: cfg.RetentionSchedule,
			run: func(ctx context.Context) error {
				return retention.RunRetentionJob(ctx, pool, cfg.NotificationRetentionDays, cfg.AuditRetentionDays)
			},
		},
	}

	for _, job := range jobs {
		job := job
		if _, err := c.AddFunc(job.schedule, func() { runJob(job.name, job.run) }); err != nil {
			return nil, fmt.Errorf("failed to schedule %s job: %w", job.name, err)
		}
		log.Info().Str("job", job.name).Str("schedule", job.schedule).Msg("Background job scheduled")
	}

	return c, nil
}

func runJob(name string, run func(ctx context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("job", name).Msg("Background job panicked")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := run(ctx); err != nil {
		log.Error().Err(err).Str("job", name).Msg("Background job failed")
	}
}
