package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/opensource-finance/heron/internal/datagen"
	"github.com/opensource-finance/heron/internal/ingest"
)

// cmdGenerate writes a synthetic dataset as customers.csv and
// transactions.csv under the output directory.
func cmdGenerate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	customers := fs.Int("customers", datagen.DefaultCustomers, "number of customers to generate")
	seed := fs.Int64("seed", datagen.DefaultSeed, "random seed, same seed same dataset")
	out := fs.String("out", "data", "output directory")
	fs.Parse(args)

	custs, txns := datagen.Generate(datagen.Options{
		Customers: *customers,
		Seed:      *seed,
	})

	if err := os.MkdirAll(*out, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	customersPath := filepath.Join(*out, "customers.csv")
	if err := ingest.WriteCustomers(customersPath, custs); err != nil {
		return fmt.Errorf("failed to write customers: %w", err)
	}

	transactionsPath := filepath.Join(*out, "transactions.csv")
	if err := ingest.WriteTransactions(transactionsPath, txns); err != nil {
		return fmt.Errorf("failed to write transactions: %w", err)
	}

	slog.Info("dataset generated",
		"customers", len(custs),
		"transactions", len(txns),
		"seed", *seed,
		"dir", *out,
	)
	fmt.Printf("wrote %d customers and %d transactions to %s\n", len(custs), len(txns), *out)
	return nil
}
