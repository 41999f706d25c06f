// Heron - Account fit intelligence for retail banking.
// Copyright (c) 2026 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/opensource-finance/heron/internal/analyzer"
	"github.com/opensource-finance/heron/internal/config"
	"github.com/opensource-finance/heron/internal/domain"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Logs go to stderr so console reports own stdout.
	logLevel := slog.LevelInfo
	if os.Getenv("HERON_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "generate":
		err = cmdGenerate(args)
	case "analyze":
		err = cmdAnalyze(args)
	case "compare":
		err = cmdCompare(args)
	case "portfolio":
		err = cmdPortfolio(args)
	case "serve":
		err = cmdServe(args)
	case "version":
		fmt.Printf("heron %s (commit %s, built %s)\n", Version, Commit, BuildDate)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "heron: unknown command %q\n\n", cmd)
		printUsage()
		os.Exit(2)
	}

	if err != nil {
		slog.Error("command failed", "command", cmd, "error", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Heron - account fit intelligence for retail banking portfolios.

Usage:
  heron <command> [flags]

Commands:
  generate    Write a synthetic customer and transaction dataset
  analyze     Cost one customer against one account
  compare     Cost one customer across the whole account shelf
  portfolio   Run every customer through the shelf and print the rollup
  serve       Start the HTTP API server with the run worker
  version     Print version information
  help        Print this message

Run 'heron <command> -h' for the flags of a command.`)
}

// loadConfig builds the runtime config from defaults and HERON_* env
// vars. HERON_CLUSTER=true starts from the shared-infrastructure
// preset (Postgres, Redis, NATS) instead of the single-node one.
func loadConfig() *domain.Config {
	cfg := domain.DefaultConfig()
	if os.Getenv("HERON_CLUSTER") == "true" {
		cfg = domain.ClusterConfig()
		slog.Info("running in cluster mode")
	}

	envInt("HERON_PORT", &cfg.Server.Port)
	envInt("HERON_RATE_LIMIT", &cfg.Server.RateLimit)
	envString("HERON_DB_DRIVER", &cfg.Repository.Driver)
	envString("HERON_DB_DSN", &cfg.Repository.DSN)
	envString("HERON_CACHE", &cfg.Cache.Type)
	envString("HERON_REDIS_ADDR", &cfg.Cache.RedisAddr)
	envString("HERON_BUS", &cfg.EventBus.Type)
	envString("HERON_NATS_URL", &cfg.EventBus.NATSUrl)
	envInt("HERON_WORKERS", &cfg.Engine.Workers)
	envString("HERON_CONFIG_DIR", &cfg.Engine.ConfigDir)

	return cfg
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("ignoring non-numeric env value", "key", key, "value", v)
		return
	}
	*dst = n
}

// loadShelf builds an analyzer from the account and profile YAML in
// dir, or from the built-in catalogue when dir is empty.
func loadShelf(dir string) (*analyzer.Analyzer, error) {
	if dir == "" {
		accounts, profiles := config.Builtin()
		return analyzer.New(accounts, profiles)
	}
	shelf, err := config.LoadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config dir %s: %w", dir, err)
	}
	return analyzer.New(shelf.Accounts, shelf.Profiles)
}
