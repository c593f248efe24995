package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fintrack/fintrack/internal/adapters/http/api"
	"github.com/fintrack/fintrack/internal/adapters/http/swagger"
	"github.com/fintrack/fintrack/internal/adapters/repository"
	app "github.com/fintrack/fintrack/internal/app"
	"github.com/fintrack/fintrack/internal/config"
	"github.com/fintrack/fintrack/internal/domain/types"
	"github.com/fintrack/fintrack/pkg/logger"
	"github.com/fintrack/fintrack/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
	startupTimeout    = 15 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	metrics.Init()

	starterCtx, cancelStarter := context.WithTimeout(ctx, startupTimeout)
	defer cancelStarter()

	// Local store: SQLite file, the durable per-device storage for guests.
	local, err := repository.NewSQLiteStore(starterCtx, cfg.LocalDBPath)
	if err != nil {
		os.Stderr.WriteString("failed to open local store: " + err.Error() + "\n")
		return
	}
	defer func() { _ = local.Close() }()

	// Remote store: Postgres document store for registered identities.
	// Without a configured URL, registered identities get an in-memory
	// store; fine for dev, useless for durability.
	var remote repository.Store = repository.NewMemoryStore()
	if cfg.PostgresURL != "" {
		db, err := repository.OpenPostgres(starterCtx, cfg.PostgresURL)
		if err != nil {
			os.Stderr.WriteString("failed to connect remote store: " + err.Error() + "\n")
			return
		}
		defer func() { _ = db.Close() }()
		pg, err := repository.NewPostgresStore(starterCtx, db)
		if err != nil {
			os.Stderr.WriteString("failed to init remote store: " + err.Error() + "\n")
			return
		}
		remote = pg
	} else {
		log.Warn(ctx, "no postgres_url configured; registered identities use a volatile store")
	}

	engine := app.New(
		app.WithLogger(log),
		app.WithLocalStore(local),
		app.WithRemoteStore(remote),
		app.WithDebounceWindow(time.Duration(cfg.DebounceMS)*time.Millisecond),
		app.WithDemoSeed(cfg.DemoSeed),
	)
	defer engine.Stop(context.Background())

	// Activate the startup guest session so the API is usable before any
	// identity provider callback arrives.
	if cfg.GuestID != "" {
		guest := types.Identity{ID: cfg.GuestID, Anonymous: true}
		if err := engine.SetIdentity(starterCtx, guest); err != nil {
			log.Warn(ctx, "guest session activation failed; waiting for POST /identity",
				logger.Error(err))
		}
	}

	// HTTP mux and routes.
	mux := http.NewServeMux()
	apiServer := api.NewServer(engine)
	apiServer.Register(ctx, mux)
	swagger.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}
