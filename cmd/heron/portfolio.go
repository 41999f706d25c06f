package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/ingest"
	"github.com/opensource-finance/heron/internal/portfolio"
	"github.com/opensource-finance/heron/internal/render"
	"github.com/opensource-finance/heron/internal/repository"
)

// cmdPortfolio runs every customer in the dataset through the shelf
// and prints the portfolio rollup. -store persists the dataset and a
// completed run so serve mode can list them later.
func cmdPortfolio(args []string) error {
	fs := flag.NewFlagSet("portfolio", flag.ExitOnError)
	customersPath := fs.String("customers", "data/customers.csv", "customers CSV path")
	transactionsPath := fs.String("transactions", "data/transactions.csv", "transactions CSV path")
	configDir := fs.String("config", "", "account and profile config directory (default: built-in catalogue)")
	workers := fs.Int("workers", 0, "worker pool size (default: engine default)")
	export := fs.String("export", "", "write the JSON summary to this file")
	store := fs.Bool("store", false, "persist the dataset and run to the repository (HERON_DB_DRIVER/HERON_DB_DSN)")
	name := fs.String("name", "", "dataset name used with -store (default: customers file name)")
	fs.Parse(args)

	a, err := loadShelf(*configDir)
	if err != nil {
		return err
	}

	customers, txns, err := ingest.LoadDataset(*customersPath, *transactionsPath)
	if err != nil {
		return err
	}

	engine := portfolio.NewEngine(a, *workers)

	requestedAt := time.Now().UTC()
	summary, err := engine.Run(context.Background(), customers, txns)
	if err != nil {
		return err
	}

	fmt.Print(render.PortfolioReport(summary))

	if *export != "" {
		data, err := render.ExportPortfolio(summary)
		if err != nil {
			return err
		}
		if err := writeExport(*export, data); err != nil {
			return err
		}
	}

	if *store {
		datasetName := *name
		if datasetName == "" {
			datasetName = *customersPath
		}
		return storeRun(customers, txns, summary, datasetName, requestedAt)
	}
	return nil
}

// storeRun persists the dataset and a completed portfolio run using
// the repository settings from the environment.
func storeRun(customers []*domain.Customer, txns []*domain.Transaction, summary *domain.PortfolioSummary, name string, requestedAt time.Time) error {
	cfg := loadConfig()
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		return fmt.Errorf("failed to open repository: %w", err)
	}
	defer repo.Close()

	ctx := context.Background()
	dataset := &domain.Dataset{
		ID:               uuid.New().String(),
		Name:             name,
		CustomerCount:    len(customers),
		TransactionCount: len(txns),
		CreatedAt:        time.Now().UTC(),
	}
	if err := repo.CreateDataset(ctx, dataset); err != nil {
		return fmt.Errorf("failed to create dataset: %w", err)
	}
	if err := repo.SaveCustomers(ctx, dataset.ID, customers); err != nil {
		return fmt.Errorf("failed to save customers: %w", err)
	}
	if err := repo.SaveTransactions(ctx, dataset.ID, txns); err != nil {
		return fmt.Errorf("failed to save transactions: %w", err)
	}

	completedAt := time.Now().UTC()
	run := &domain.PortfolioRun{
		ID:          uuid.New().String(),
		DatasetID:   dataset.ID,
		Status:      domain.RunCompleted,
		RequestedAt: requestedAt,
		CompletedAt: &completedAt,
		Summary:     summary,
	}
	if err := repo.CreateRun(ctx, run); err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	slog.Info("portfolio run stored",
		"dataset_id", dataset.ID,
		"run_id", run.ID,
		"driver", cfg.Repository.Driver,
	)
	fmt.Printf("stored dataset %s with run %s\n", dataset.ID, run.ID)
	return nil
}
