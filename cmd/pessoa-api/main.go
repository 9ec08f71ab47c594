// main is the entry point of the Pessoa API application.
//
// STARTUP SEQUENCE:
//  1. Load configuration from a YAML file (plus env overrides)
//  2. Initialise the logger
//  3. Connect to (and set up) the configured database
//  4. Build the service and register all HTTP routes
//  5. Start the HTTP server in a separate goroutine
//  6. Block the main goroutine until an OS signal (Ctrl+C / kill) arrives
//  7. Gracefully shut down: finish in-flight requests, close the database
//
// RUNNING THE SERVER:
//
//	go run ./cmd/pessoa-api --config=config/local.yaml
//
// or (with the environment variable):
//
//	CONFIG_PATH=config/local.yaml go run ./cmd/pessoa-api
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aanand-mishra/pessoa-api/internal/config"
	"github.com/aanand-mishra/pessoa-api/internal/http/routes"
	"github.com/aanand-mishra/pessoa-api/internal/logctx"
	"github.com/aanand-mishra/pessoa-api/internal/service"
	"github.com/aanand-mishra/pessoa-api/internal/storage"
	"github.com/aanand-mishra/pessoa-api/internal/storage/postgres"
	"github.com/aanand-mishra/pessoa-api/internal/storage/sqlite"
)

const version = "1.0.0"

func main() {
	// ── 1. Load Config ────────────────────────────────────────────────────
	// MustLoad reads the YAML file, applies env overrides and validates the
	// result. It exits on any problem, so if it returns the config is valid.
	cfg := config.MustLoad()

	// ── 2. Initialise Logger ──────────────────────────────────────────────
	// Installed as the default too, so package-level slog calls (error
	// responses, the diagnostic endpoint) carry the request context.
	log := setupLogger(cfg.Env)
	slog.SetDefault(log)

	log.Info("starting pessoa-api",
		slog.String("env", cfg.Env),
		slog.String("version", version),
	)

	// ── 3. Initialise Storage (Database) ──────────────────────────────────
	// openStorage picks the backend named by storage.driver in the config.
	// The result is held as the storage.Storage INTERFACE, not as
	// *sqlite.SQLite or *postgres.Postgres: the service and handlers never
	// learn which database they talk to, so switching from SQLite to
	// PostgreSQL is a config change, not a code change.
	//
	// Both backends create the pessoas table (and its index) if it is
	// missing, so a fresh database is usable right away.
	store, err := openStorage(context.Background(), cfg.Storage)
	if err != nil {
		log.Error("failed to initialise storage",
			slog.String("driver", cfg.Storage.Driver),
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("storage initialised", slog.String("driver", cfg.Storage.Driver))

	// ── 4. Service and Routes ─────────────────────────────────────────────
	// The service owns the business rules and receives the storage and the
	// logger as dependencies. routes.New hands the service to the handler
	// factories and wraps the router in the request logging middleware.
	svc := service.NewPersonService(store, log)

	// ── 5. Create the HTTP Server ─────────────────────────────────────────
	// Timeouts come from the config (with defaults) to protect against
	// slow clients holding connections open.
	server := &http.Server{
		Addr:    cfg.HTTPServer.Addr,
		Handler: routes.New(svc, log),

		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	// ── 6. Start Server in a Goroutine ────────────────────────────────────
	// ListenAndServe blocks while it accepts connections, so it runs in its
	// own goroutine and main stays free to wait for a shutdown signal.
	go func() {
		log.Info("server started", slog.String("address", cfg.HTTPServer.Addr))

		// ListenAndServe returns http.ErrServerClosed once Shutdown is called.
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server encountered an error",
				slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// ── 7. Wait for Shutdown Signal ───────────────────────────────────────
	// The channel is buffered so a signal delivered before main reaches
	// <-done is not dropped. SIGINT is Ctrl+C; SIGTERM is what `kill` and
	// container orchestrators send.
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	<-done

	log.Info("shutdown signal received, stopping server...")

	// ── 8. Graceful Shutdown ──────────────────────────────────────────────
	// Shutdown stops accepting new connections and waits for in-flight
	// requests, up to http_server.shutdown_timeout. defer cancel() frees
	// the context's timer however main returns.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTPServer.ShutdownTimeout)
	defer cancel()

	exitCode := 0
	if err := server.Shutdown(ctx); err != nil {
		log.Error("failed to shutdown server gracefully",
			slog.String("error", err.Error()))
		exitCode = 1
	}

	// Close the database only after the server has drained: a request still
	// running must not find its connection pool gone. Closing flushes the
	// SQLite file handle or releases every pooled PostgreSQL connection.
	if err := store.Close(); err != nil {
		log.Error("failed to close storage", slog.String("error", err.Error()))
		exitCode = 1
	}

	// os.Exit skips deferred calls, so cancel runs explicitly first.
	if exitCode != 0 {
		cancel()
		os.Exit(exitCode)
	}

	log.Info("server stopped gracefully")
}

// openStorage returns the storage backend selected by cfg.Driver.
//
//	sqlite   → file database at cfg.Path (created if missing)
//	postgres → connection pool to cfg.DSN, at most cfg.MaxConns connections
//
// config.Load already rejects other drivers; the default case only guards
// callers that build a config.Storage by hand.
func openStorage(ctx context.Context, cfg config.Storage) (storage.Storage, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return sqlite.New(cfg.Path)
	case config.DriverPostgres:
		return postgres.New(ctx, cfg.DSN, cfg.MaxConns)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// setupLogger returns a *slog.Logger configured for the given environment.
//
// Development (dev): human-readable text output at DEBUG level.
// Production (prod): machine-readable JSON output at INFO level.
//
// The handler is wrapped so every record also carries the attributes
// stored in its context by logctx.With.
func setupLogger(env string) *slog.Logger {
	var handler slog.Handler

	switch env {
	case "prod":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	case "staging":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}

	return slog.New(logctx.NewHandler(handler))
}
