// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Shivanand-hulikatti/volunteer-scheduling/internal/auth"
	"github.com/Shivanand-hulikatti/volunteer-scheduling/internal/calendar"
	"github.com/Shivanand-hulikatti/volunteer-scheduling/internal/config"
	"github.com/Shivanand-hulikatti/volunteer-scheduling/internal/database"
	"github.com/Shivanand-hulikatti/volunteer-scheduling/internal/handler"
	"github.com/Shivanand-hulikatti/volunteer-scheduling/internal/jobs"
	"github.com/Shivanand-hulikatti/volunteer-scheduling/internal/logging"
	"github.com/Shivanand-hulikatti/volunteer-scheduling/internal/metrics"
	"github.com/Shivanand-hulikatti/volunteer-scheduling/internal/repository"
	"github.com/Shivanand-hulikatti/volunteer-scheduling/internal/service"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	migrate := flag.String("migrate", "", `run migrations and exit: "up" or "down"`)
	flag.Parse()

	if err := run(*configPath, *migrate); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(configPath, migrate string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 1. Load configuration ─────────────────────────────────────────────
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := logging.New(cfg.Log)
	slog.SetDefault(logger)

	// ── 2. Connect to PostgreSQL ──────────────────────────────────────────
	pool, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()
	db := database.OpenDB(pool)
	defer db.Close()
	logger.Info("connected to postgres", "host", cfg.Database.Host, "db", cfg.Database.Name)

	// ── 3. Schema migrations ──────────────────────────────────────────────
	migrator := database.NewMigrator(db, database.Migrations())
	switch migrate {
	case "up":
		applied, err := migrator.Up(ctx)
		if err != nil {
			return err
		}
		logger.Info("migrations applied", "names", applied)
		return nil
	case "down":
		name, err := migrator.Down(ctx)
		if err != nil {
			return err
		}
		logger.Info("migration rolled back", "name", name)
		return nil
	case "":
	default:
		return fmt.Errorf("unknown -migrate value %q", migrate)
	}
	if cfg.Database.AutoMigrate {
		applied, err := migrator.Up(ctx)
		if err != nil {
			return err
		}
		if len(applied) > 0 {
			logger.Info("migrations applied", "names", applied)
		}
	}

	// ── 4. Wire up layers ────────────────────────────────────────────────
	store := repository.NewPostgres(db)
	m := metrics.New()
	svc := service.New(store, logger, m)

	cal, err := calendar.NewExporter(cfg.Calendar)
	if err != nil {
		return err
	}
	verifier, err := auth.NewVerifier(cfg.Auth.Secret, cfg.Auth.Issuer)
	if err != nil {
		return err
	}
	router := handler.NewRouter(handler.NewHandler(svc, cal), verifier, m, cfg.RateLimit)

	// ── 5. Background jobs ────────────────────────────────────────────────
	scheduler := jobs.NewScheduler(ctx, cal.Location())
	if cfg.Jobs.VacancyCron != "" {
		report := jobs.NewVacancyReport(store, m, logger, cal.Location())
		if err := scheduler.Add(cfg.Jobs.VacancyCron, report); err != nil {
			return err
		}
		if _, err := report.Run(ctx); err != nil {
			logger.Warn("initial vacancy report failed", "err", err)
		}
	}
	scheduler.Start()

	// ── 6. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Block until SIGINT/SIGTERM or a listener failure.
	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	scheduler.Stop(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
