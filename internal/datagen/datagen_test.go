package datagen

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/opensource-finance/heron/internal/domain"
)

func TestGenerateDeterministic(t *testing.T) {
	c1, t1 := Generate(Options{Customers: 20, Seed: 42})
	c2, t2 := Generate(Options{Customers: 20, Seed: 42})

	if !reflect.DeepEqual(c1, c2) {
		t.Error("same seed produced different customers")
	}
	if !reflect.DeepEqual(t1, t2) {
		t.Error("same seed produced different transactions")
	}

	_, t3 := Generate(Options{Customers: 20, Seed: 7})
	if reflect.DeepEqual(t1, t3) {
		t.Error("different seeds produced identical transactions")
	}
}

func TestGenerateDefaults(t *testing.T) {
	customers, _ := Generate(Options{})
	if len(customers) != DefaultCustomers {
		t.Fatalf("got %d customers, expected default %d", len(customers), DefaultCustomers)
	}

	defaulted, _ := Generate(Options{Customers: DefaultCustomers, Seed: DefaultSeed})
	if !reflect.DeepEqual(customers, defaulted) {
		t.Error("zero options did not fall back to the default seed")
	}
}

func TestGenerateSegmentSplit(t *testing.T) {
	// 100 customers consume the segment pool exactly once.
	customers, _ := Generate(Options{Customers: 100})

	counts := make(map[domain.Segment]int)
	for _, c := range customers {
		counts[c.Segment]++
	}
	expected := map[domain.Segment]int{
		domain.SegmentIndividual: 50,
		domain.SegmentSME:        30,
		domain.SegmentBusiness:   20,
	}
	if !reflect.DeepEqual(counts, expected) {
		t.Errorf("segment split = %v, expected %v", counts, expected)
	}
}

func TestGenerateRecordsValid(t *testing.T) {
	customers, txns := Generate(Options{Customers: 50})

	ids := make(map[string]bool, len(customers))
	for i, c := range customers {
		if err := c.Validate(); err != nil {
			t.Fatalf("customer %d invalid: %v", i, err)
		}
		expected := fmt.Sprintf("CUST_%03d", i+1)
		if c.ID != expected {
			t.Errorf("customer id = %s, expected %s", c.ID, expected)
		}
		ids[c.ID] = true
		if c.Segment == domain.SegmentIndividual && c.AnnualTurnover != nil {
			t.Errorf("individual %s has annual turnover set", c.ID)
		}
		if c.AnnualTurnover != nil && *c.AnnualTurnover == 1_300_000 {
			t.Errorf("customer %s turnover sits exactly on the threshold", c.ID)
		}
	}

	windowEnd := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	seen := make(map[string]bool, len(txns))
	for _, txn := range txns {
		if err := txn.Validate(); err != nil {
			t.Fatalf("transaction %s invalid: %v", txn.ID, err)
		}
		if seen[txn.ID] {
			t.Fatalf("duplicate transaction id %s", txn.ID)
		}
		seen[txn.ID] = true
		if !ids[txn.CustomerID] {
			t.Errorf("transaction %s references unknown customer %s", txn.ID, txn.CustomerID)
		}
		if txn.Timestamp.Before(windowStart) || !txn.Timestamp.Before(windowEnd) {
			t.Errorf("transaction %s timestamp %v outside the statement month", txn.ID, txn.Timestamp)
		}
	}
}

func TestGenerateIncomeAndDeposits(t *testing.T) {
	customers, txns := Generate(Options{Customers: 40})

	incomes := make(map[string]int)
	deposits := make(map[string]int)
	for _, txn := range txns {
		switch txn.Kind {
		case domain.TxnIncome:
			incomes[txn.CustomerID]++
			if txn.Amount >= 0 {
				t.Errorf("income %s has non-negative amount %v", txn.ID, txn.Amount)
			}
		case domain.TxnCashDeposit:
			deposits[txn.CustomerID]++
			if txn.Amount <= 0 {
				t.Errorf("deposit %s has non-positive amount %v", txn.ID, txn.Amount)
			}
		}
	}

	for _, c := range customers {
		if incomes[c.ID] != 1 {
			t.Errorf("customer %s has %d income transactions, expected 1", c.ID, incomes[c.ID])
		}
		n := deposits[c.ID]
		if c.Segment == domain.SegmentIndividual {
			if n != 0 {
				t.Errorf("individual %s has %d cash deposits, expected none", c.ID, n)
			}
		} else if n < 2 || n > 5 {
			t.Errorf("customer %s (%s) has %d cash deposits, expected 2..5", c.ID, c.Segment, n)
		}
	}
}
