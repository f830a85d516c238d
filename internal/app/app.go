package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/aliuyar1234/tasktally/internal/config"
	"github.com/aliuyar1234/tasktally/internal/db"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// App holds the application state
type App struct {
	Config *config.Config
	DB     *pgxpool.Pool
	Router http.Handler

	server *http.Server
}

// New creates and initializes a new application instance
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	setupLogger(cfg.LogLevel, cfg.IsDev())

	log.Info().Msg("Initializing TaskTally application")
	log.Info().Interface("config", cfg.RedactedValues()).Msg("Configuration loaded")

	log.Info().Msg("Connecting to database...")
	pool, err := db.Connect(ctx, cfg.DBDSN, cfg.PoolOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info().Msg("Database connection established")

	// Run migrations if in dev mode
	if cfg.IsDev() {
		log.Info().Msg("Development mode: running migrations automatically")
		if err := db.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	} else {
		log.Info().Msg("Production mode: migrations must be run manually")
	}

	app := &App{
		Config: cfg,
		DB:     pool,
		Router: NewRouter(pool, cfg),
	}

	log.Info().Msg("Application initialized successfully")
	return app, nil
}

// Start starts the HTTP server and blocks until it stops
func (a *App) Start() error {
	addr := a.Config.HTTPAddr
	log.Info().Str("addr", addr).Msg("Starting HTTP server")

	a.server = &http.Server{
		Addr:              addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return a.server.ListenAndServe()
}

// Shutdown drains in-flight requests and closes the database pool
func (a *App) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down application")

	var err error
	if a.server != nil {
		err = a.server.Shutdown(ctx)
	}
	a.Close()
	return err
}

// Close releases the database pool
func (a *App) Close() {
	if a.DB != nil {
		log.Info().Msg("Closing database connection")
		a.DB.Close()
		a.DB = nil
	}
}

// setupLogger configures the global logger
func setupLogger(level string, pretty bool) {
	if pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	parsed, err := zerolog.ParseLevel(level)
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)

	log.Debug().Str("level", level).Msg("Logger configured")
}
