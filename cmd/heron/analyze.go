package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/ingest"
	"github.com/opensource-finance/heron/internal/render"
)

// cmdAnalyze costs a single customer against a single account and
// prints the console report. -export additionally writes the
// full-precision JSON report.
func cmdAnalyze(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	customersPath := fs.String("customers", "data/customers.csv", "customers CSV path")
	transactionsPath := fs.String("transactions", "data/transactions.csv", "transactions CSV path")
	customerID := fs.String("customer", "", "customer ID to analyze (required)")
	accountID := fs.String("account", "", "account ID (default: the customer's current account)")
	configDir := fs.String("config", "", "account and profile config directory (default: built-in catalogue)")
	export := fs.String("export", "", "write the JSON report to this file")
	fs.Parse(args)

	if *customerID == "" {
		return fmt.Errorf("-customer is required")
	}

	a, err := loadShelf(*configDir)
	if err != nil {
		return err
	}

	customers, txns, err := ingest.LoadDataset(*customersPath, *transactionsPath)
	if err != nil {
		return err
	}

	customer, err := findCustomer(customers, *customerID)
	if err != nil {
		return err
	}

	id := *accountID
	if id == "" {
		id = customer.AccountTypeID
	}
	account, ok := a.Account(id)
	if !ok {
		return fmt.Errorf("unknown account %q", id)
	}

	report, err := a.Analyze(customer, customerTransactions(txns, customer.ID), account)
	if err != nil {
		return err
	}

	fmt.Print(render.AccountReport(account, []*domain.FitReport{report}))

	if *export != "" {
		data, err := render.ExportReport(report)
		if err != nil {
			return err
		}
		return writeExport(*export, data)
	}
	return nil
}

// cmdCompare costs a single customer against every account on the
// shelf and prints the ranked comparison.
func cmdCompare(args []string) error {
	fs := flag.NewFlagSet("compare", flag.ExitOnError)
	customersPath := fs.String("customers", "data/customers.csv", "customers CSV path")
	transactionsPath := fs.String("transactions", "data/transactions.csv", "transactions CSV path")
	customerID := fs.String("customer", "", "customer ID to compare (required)")
	configDir := fs.String("config", "", "account and profile config directory (default: built-in catalogue)")
	export := fs.String("export", "", "write the JSON comparison to this file")
	fs.Parse(args)

	if *customerID == "" {
		return fmt.Errorf("-customer is required")
	}

	a, err := loadShelf(*configDir)
	if err != nil {
		return err
	}

	customers, txns, err := ingest.LoadDataset(*customersPath, *transactionsPath)
	if err != nil {
		return err
	}

	customer, err := findCustomer(customers, *customerID)
	if err != nil {
		return err
	}

	cmp, err := a.Compare(customer, customerTransactions(txns, customer.ID))
	if err != nil {
		return err
	}

	fmt.Print(render.ComparisonReport(cmp))

	if *export != "" {
		data, err := render.ExportComparison(cmp)
		if err != nil {
			return err
		}
		return writeExport(*export, data)
	}
	return nil
}

func findCustomer(customers []*domain.Customer, id string) (*domain.Customer, error) {
	for _, c := range customers {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, fmt.Errorf("customer %s not found in dataset", id)
}

// customerTransactions keeps file order, which the engines rely on.
func customerTransactions(txns []*domain.Transaction, customerID string) []*domain.Transaction {
	var out []*domain.Transaction
	for _, t := range txns {
		if t.CustomerID == customerID {
			out = append(out, t)
		}
	}
	return out
}

func writeExport(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	slog.Info("export written", "path", path, "bytes", len(data))
	return nil
}
