package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opensource-finance/heron/internal/api"
	"github.com/opensource-finance/heron/internal/bus"
	"github.com/opensource-finance/heron/internal/cache"
	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/portfolio"
	"github.com/opensource-finance/heron/internal/repository"
	"github.com/opensource-finance/heron/internal/worker"
)

// cmdServe starts the HTTP API together with the portfolio run
// worker and blocks until SIGINT or SIGTERM.
func cmdServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configDir := fs.String("config", "", "account and profile config directory (default: built-in catalogue)")
	fs.Parse(args)

	cfg := loadConfig()
	if *configDir != "" {
		cfg.Engine.ConfigDir = *configDir
	}

	slog.Info("starting heron",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)
	slog.Info("configuration loaded",
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
		"workers", cfg.Engine.Workers,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize the account shelf and engines
	a, err := loadShelf(cfg.Engine.ConfigDir)
	if err != nil {
		slog.Error("failed to load account shelf", "error", err)
		os.Exit(1)
	}
	slog.Info("account shelf loaded", "accounts", len(a.Accounts()))

	engine := portfolio.NewEngine(a, cfg.Engine.Workers)

	// Start the run worker
	w := worker.NewWorker(busImpl, repo, engine)
	if err := w.Start(); err != nil {
		slog.Error("failed to start run worker", "error", err)
		os.Exit(1)
	}
	slog.Info("run worker started")

	// Initialize Server
	srv := api.NewServer(cfg.Server, repo, cacheImpl, busImpl, a, engine, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("heron is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop the worker first so in-flight runs finish cleanly
	if err := w.Stop(); err != nil {
		slog.Error("failed to stop run worker", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("heron shutdown complete")
	return nil
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔════════════════════════════════════════════╗")
	fmt.Println("  ║                🪶 HERON                     ║")
	fmt.Println("  ║       Account Fit Intelligence              ║")
	fmt.Println("  ║   The right account for every customer.     ║")
	fmt.Println("  ╚════════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    GET    /accounts             - List the account shelf")
	fmt.Println("    GET    /accounts/{id}        - Get one account config")
	fmt.Println("    POST   /analyze              - Cost a customer on one account")
	fmt.Println("    POST   /compare              - Cost a customer across the shelf")
	fmt.Println("    GET    /comparisons/{id}     - Latest comparison for a customer")
	fmt.Println("    POST   /datasets             - Upload a dataset")
	fmt.Println("    GET    /datasets             - List datasets")
	fmt.Println("    GET    /datasets/{id}        - Get dataset metadata")
	fmt.Println("    DELETE /datasets/{id}        - Delete a dataset")
	fmt.Println("    GET    /datasets/{id}/runs   - List runs for a dataset")
	fmt.Println("    POST   /runs                 - Queue a portfolio run")
	fmt.Println("    GET    /runs/{id}            - Get run status and summary")
	fmt.Println("    GET    /health               - Health check")
	fmt.Println()
}
