// Package ingest reads and writes the CSV interchange format for
// customer and transaction data. Loaders validate every record and
// fail on the first malformed row so bad data never reaches the
// engines.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/opensource-finance/heron/internal/domain"
)

// timeLayout is the timestamp format used in transaction files.
const timeLayout = "2006-01-02 15:04:05"

var customerHeader = []string{
	"customer_id", "age", "residency", "income_gross_monthly",
	"customer_segment", "account_category", "account_type_id", "annual_turnover",
}

var transactionHeader = []string{
	"transaction_id", "customer_id", "timestamp", "amount",
	"transaction_type", "channel", "atm_owner", "transfer_scope", "merchant",
}

type columns map[string]int

func indexColumns(header, required []string, file string) (columns, error) {
	cols := make(columns, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("%s: missing column %q", file, name)
		}
	}
	return cols, nil
}

// LoadCustomers reads a customers CSV file. Column order is derived
// from the header, rows are validated and duplicate ids rejected.
func LoadCustomers(path string) ([]*domain.Customer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open customers file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read customers header: %w", err)
	}
	cols, err := indexColumns(header, customerHeader, "customers file")
	if err != nil {
		return nil, err
	}

	var out []*domain.Customer
	seen := make(map[string]bool)
	for row := 2; ; row++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("customers row %d: %w", row, err)
		}
		c, err := parseCustomer(record, cols)
		if err != nil {
			return nil, fmt.Errorf("customers row %d: %w", row, err)
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("customers row %d: duplicate customer id %s", row, c.ID)
		}
		seen[c.ID] = true
		out = append(out, c)
	}
	return out, nil
}

func parseCustomer(record []string, cols columns) (*domain.Customer, error) {
	age, err := strconv.Atoi(record[cols["age"]])
	if err != nil {
		return nil, fmt.Errorf("bad age %q", record[cols["age"]])
	}
	income, err := strconv.ParseFloat(record[cols["income_gross_monthly"]], 64)
	if err != nil {
		return nil, fmt.Errorf("bad income %q", record[cols["income_gross_monthly"]])
	}
	c := &domain.Customer{
		ID:                 record[cols["customer_id"]],
		Age:                age,
		Residency:          record[cols["residency"]],
		IncomeGrossMonthly: income,
		Segment:            domain.Segment(record[cols["customer_segment"]]),
		AccountCategory:    record[cols["account_category"]],
		AccountTypeID:      record[cols["account_type_id"]],
	}
	if raw := record[cols["annual_turnover"]]; raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("bad annual_turnover %q", raw)
		}
		c.AnnualTurnover = &v
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadTransactions reads a transactions CSV file with per-row
// validation and duplicate id rejection.
func LoadTransactions(path string) ([]*domain.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open transactions file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read transactions header: %w", err)
	}
	cols, err := indexColumns(header, transactionHeader, "transactions file")
	if err != nil {
		return nil, err
	}

	var out []*domain.Transaction
	seen := make(map[string]bool)
	for row := 2; ; row++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("transactions row %d: %w", row, err)
		}
		txn, err := parseTransaction(record, cols)
		if err != nil {
			return nil, fmt.Errorf("transactions row %d: %w", row, err)
		}
		if seen[txn.ID] {
			return nil, fmt.Errorf("transactions row %d: duplicate transaction id %s", row, txn.ID)
		}
		seen[txn.ID] = true
		out = append(out, txn)
	}
	return out, nil
}

func parseTransaction(record []string, cols columns) (*domain.Transaction, error) {
	amount, err := strconv.ParseFloat(record[cols["amount"]], 64)
	if err != nil {
		return nil, fmt.Errorf("bad amount %q", record[cols["amount"]])
	}
	ts, err := time.Parse(timeLayout, record[cols["timestamp"]])
	if err != nil {
		return nil, fmt.Errorf("bad timestamp %q", record[cols["timestamp"]])
	}
	txn := &domain.Transaction{
		ID:            record[cols["transaction_id"]],
		CustomerID:    record[cols["customer_id"]],
		Kind:          record[cols["transaction_type"]],
		Amount:        amount,
		Channel:       record[cols["channel"]],
		ATMOwner:      record[cols["atm_owner"]],
		TransferScope: record[cols["transfer_scope"]],
		Merchant:      record[cols["merchant"]],
		Timestamp:     ts,
	}
	if err := txn.Validate(); err != nil {
		return nil, err
	}
	return txn, nil
}

// LoadDataset loads both files and checks referential integrity:
// every transaction must reference a loaded customer.
func LoadDataset(customersPath, transactionsPath string) ([]*domain.Customer, []*domain.Transaction, error) {
	customers, err := LoadCustomers(customersPath)
	if err != nil {
		return nil, nil, err
	}
	txns, err := LoadTransactions(transactionsPath)
	if err != nil {
		return nil, nil, err
	}
	ids := make(map[string]bool, len(customers))
	for _, c := range customers {
		ids[c.ID] = true
	}
	for _, txn := range txns {
		if !ids[txn.CustomerID] {
			return nil, nil, fmt.Errorf("transaction %s references unknown customer %s", txn.ID, txn.CustomerID)
		}
	}
	return customers, txns, nil
}

// WriteCustomers writes a customers CSV file in the loader's format.
func WriteCustomers(path string, customers []*domain.Customer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create customers file: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(customerHeader); err != nil {
		f.Close()
		return fmt.Errorf("failed to write customers file: %w", err)
	}
	for _, c := range customers {
		if err := w.Write(customerRecord(c)); err != nil {
			f.Close()
			return fmt.Errorf("failed to write customers file: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write customers file: %w", err)
	}
	return f.Close()
}

// WriteTransactions writes a transactions CSV file in the loader's
// format.
func WriteTransactions(path string, txns []*domain.Transaction) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create transactions file: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(transactionHeader); err != nil {
		f.Close()
		return fmt.Errorf("failed to write transactions file: %w", err)
	}
	for _, txn := range txns {
		if err := w.Write(transactionRecord(txn)); err != nil {
			f.Close()
			return fmt.Errorf("failed to write transactions file: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write transactions file: %w", err)
	}
	return f.Close()
}

func customerRecord(c *domain.Customer) []string {
	turnover := ""
	if c.AnnualTurnover != nil {
		turnover = formatFloat(*c.AnnualTurnover)
	}
	return []string{
		c.ID,
		strconv.Itoa(c.Age),
		c.Residency,
		formatFloat(c.IncomeGrossMonthly),
		string(c.Segment),
		c.AccountCategory,
		c.AccountTypeID,
		turnover,
	}
}

func transactionRecord(t *domain.Transaction) []string {
	return []string{
		t.ID,
		t.CustomerID,
		t.Timestamp.UTC().Format(timeLayout),
		formatFloat(t.Amount),
		t.Kind,
		t.Channel,
		t.ATMOwner,
		t.TransferScope,
		t.Merchant,
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
