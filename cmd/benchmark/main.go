// Benchmark tool for load-testing Heron's shelf comparison endpoint.
//
// Usage:
//   go run ./cmd/benchmark -url http://localhost:8080 -generate 500
//   go run ./cmd/benchmark -customers data/customers.csv -transactions data/transactions.csv
//
// This tool:
//   1. Loads a customer/transaction dataset (CSV files or synthetic)
//   2. Sends each customer with their statement month to POST /compare
//   3. Tallies recommendations, projected savings and unresolved totals
//   4. Reports latency and throughput
//
// The API rate limiter will throttle an aggressive run; start the
// server with HERON_RATE_LIMIT=0 for load tests.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opensource-finance/heron/internal/datagen"
	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/ingest"
)

// compareRequest mirrors the POST /compare body.
type compareRequest struct {
	Customer     domain.Customer       `json:"customer"`
	Transactions []*domain.Transaction `json:"transactions"`
}

// compareResponse carries the part of the reply the benchmark reads.
type compareResponse struct {
	Comparison *domain.Comparison `json:"comparison"`
}

var errRateLimited = errors.New("rate limited")

// Metrics tracks benchmark results. Counters are atomics; the
// distribution fields are guarded by mu.
type Metrics struct {
	TotalProcessed   int64
	TotalErrors      int64
	RateLimited      int64
	ProcessingTimeMs int64

	mu              sync.Mutex
	recommendations map[string]int64 // account id -> times recommended
	moveCandidates  int64            // recommended account differs from current
	unresolved      int64            // customers with no resolvable recommendation
	currentFees     float64          // resolved current-account totals, N$
	bestFees        float64          // recommended totals for the same customers, N$
	feeSamples      int64
}

func main() {
	customersPath := flag.String("customers", "", "customers CSV path (empty = synthetic dataset)")
	transactionsPath := flag.String("transactions", "", "transactions CSV path")
	baseURL := flag.String("url", "http://localhost:8080", "Heron base URL")
	generate := flag.Int("generate", 200, "synthetic customers to generate when no CSV is given")
	seed := flag.Int64("seed", datagen.DefaultSeed, "synthetic dataset seed")
	limit := flag.Int("limit", 0, "maximum customers to send (0 = all)")
	workers := flag.Int("workers", 10, "number of concurrent workers")
	verbose := flag.Bool("verbose", false, "print each comparison result")
	flag.Parse()

	if *customersPath != "" && *transactionsPath == "" {
		fmt.Println("Usage: benchmark -customers customers.csv -transactions transactions.csv [-url http://localhost:8080]")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║          HERON BENCHMARK - Shelf Comparison Throughput        ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nHeron URL:   %s\n", *baseURL)
	fmt.Printf("Workers:     %d\n", *workers)
	fmt.Printf("Limit:       %d\n", *limit)
	fmt.Println()

	// Check Heron is running
	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: Heron not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure Heron is running:")
		fmt.Println("  HERON_RATE_LIMIT=0 go run ./cmd/heron serve")
		os.Exit(1)
	}
	fmt.Println("✓ Heron is healthy")

	// Load the dataset
	var (
		customers []*domain.Customer
		txns      []*domain.Transaction
		err       error
	)
	if *customersPath != "" {
		fmt.Printf("\nReading dataset from %s...\n", *customersPath)
		customers, txns, err = ingest.LoadDataset(*customersPath, *transactionsPath)
		if err != nil {
			fmt.Printf("ERROR: Failed to load dataset: %v\n", err)
			os.Exit(1)
		}
	} else {
		fmt.Printf("\nGenerating %d synthetic customers (seed %d)...\n", *generate, *seed)
		customers, txns = datagen.Generate(datagen.Options{Customers: *generate, Seed: *seed})
	}
	if *limit > 0 && len(customers) > *limit {
		customers = customers[:*limit]
	}
	fmt.Printf("✓ Loaded %d customers, %d transactions\n", len(customers), len(txns))

	byCustomer := make(map[string][]*domain.Transaction)
	for _, t := range txns {
		byCustomer[t.CustomerID] = append(byCustomer[t.CustomerID], t)
	}

	// Run benchmark
	fmt.Printf("\nRunning benchmark with %d workers...\n", *workers)
	startTime := time.Now()
	metrics := runBenchmark(customers, byCustomer, *baseURL, *workers, *verbose)
	duration := time.Since(startTime)

	// Print results
	printResults(metrics, duration)
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func runBenchmark(customers []*domain.Customer, byCustomer map[string][]*domain.Transaction, baseURL string, numWorkers int, verbose bool) *Metrics {
	metrics := &Metrics{recommendations: make(map[string]int64)}

	work := make(chan *domain.Customer, 100)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 10 * time.Second}

			for customer := range work {
				start := time.Now()
				cmp, err := compareCustomer(client, baseURL, customer, byCustomer[customer.ID])
				elapsed := time.Since(start).Milliseconds()

				atomic.AddInt64(&metrics.ProcessingTimeMs, elapsed)
				atomic.AddInt64(&metrics.TotalProcessed, 1)

				if err != nil {
					atomic.AddInt64(&metrics.TotalErrors, 1)
					if errors.Is(err, errRateLimited) {
						atomic.AddInt64(&metrics.RateLimited, 1)
					}
					if verbose {
						fmt.Printf("ERROR: %s -> %v\n", customer.ID, err)
					}
					continue
				}

				metrics.record(customer, cmp)

				if verbose {
					printVerbose(customer, cmp)
				}
			}
		}()
	}

	for _, c := range customers {
		work <- c
	}
	close(work)

	wg.Wait()
	return metrics
}

// record folds one comparison into the distribution fields.
func (m *Metrics) record(customer *domain.Customer, cmp *domain.Comparison) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := cmp.Recommendation
	if rec == nil || rec.AccountID == "" {
		m.unresolved++
		return
	}
	m.recommendations[rec.AccountID]++
	if rec.AccountID != customer.AccountTypeID {
		m.moveCandidates++
	}

	// Savings are measured only where the current account resolves.
	for i := range cmp.Reports {
		r := &cmp.Reports[i]
		if r.AccountID == customer.AccountTypeID && r.Total.Available {
			m.currentFees += r.Total.Amount
			m.bestFees += rec.Total
			m.feeSamples++
			break
		}
	}
}

func printVerbose(customer *domain.Customer, cmp *domain.Comparison) {
	rec := cmp.Recommendation
	if rec == nil {
		fmt.Printf("? %-10s | current: %-16s | no resolvable recommendation\n", customer.ID, customer.AccountTypeID)
		return
	}
	marker := "="
	if rec.AccountID != customer.AccountTypeID {
		marker = "→"
	}
	fmt.Printf("%s %-10s | current: %-16s | best: %-16s N$%10.2f\n",
		marker, customer.ID, customer.AccountTypeID, rec.AccountID, rec.Total)
}

func compareCustomer(client *http.Client, baseURL string, customer *domain.Customer, txns []*domain.Transaction) (*domain.Comparison, error) {
	req := compareRequest{
		Customer:     *customer,
		Transactions: txns,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequest(http.MethodPost, baseURL+"/compare", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result compareResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	if result.Comparison == nil {
		return nil, fmt.Errorf("empty comparison")
	}
	return result.Comparison, nil
}

func printResults(m *Metrics, duration time.Duration) {
	fmt.Println("\n╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                      BENCHMARK RESULTS                        ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")

	fmt.Printf("\n📊 DATASET STATISTICS\n")
	fmt.Printf("   Total Processed:  %d\n", m.TotalProcessed)
	fmt.Printf("   Errors:           %d\n", m.TotalErrors)
	if m.RateLimited > 0 {
		fmt.Printf("   Rate Limited:     %d ⚠️  (run the server with HERON_RATE_LIMIT=0)\n", m.RateLimited)
	}

	succeeded := m.TotalProcessed - m.TotalErrors

	fmt.Printf("\n📈 RECOMMENDATION DISTRIBUTION\n")
	if len(m.recommendations) == 0 {
		fmt.Println("   (no successful comparisons)")
	} else {
		type entry struct {
			account string
			count   int64
		}
		var entries []entry
		for account, count := range m.recommendations {
			entries = append(entries, entry{account, count})
		}
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].count != entries[j].count {
				return entries[i].count > entries[j].count
			}
			return entries[i].account < entries[j].account
		})
		for _, e := range entries {
			fmt.Printf("   %-20s %6d (%.1f%%)\n", e.account, e.count, 100*float64(e.count)/float64(succeeded))
		}
		if m.unresolved > 0 {
			fmt.Printf("   %-20s %6d (%.1f%%)\n", "(unresolved)", m.unresolved, 100*float64(m.unresolved)/float64(succeeded))
		}
	}

	if m.feeSamples > 0 {
		avgCurrent := m.currentFees / float64(m.feeSamples)
		avgBest := m.bestFees / float64(m.feeSamples)
		monthlySavings := m.currentFees - m.bestFees
		fmt.Printf("\n💰 FEE ANALYSIS (%d customers with resolvable current accounts)\n", m.feeSamples)
		fmt.Printf("   Avg Current Fee:   N$ %10.2f / month\n", avgCurrent)
		fmt.Printf("   Avg Best Fee:      N$ %10.2f / month\n", avgBest)
		fmt.Printf("   Monthly Savings:   N$ %10.2f across the book\n", monthlySavings)
		fmt.Printf("   Annualized:        N$ %10.2f\n", 12*monthlySavings)
	}

	fmt.Printf("\n⏱️  PERFORMANCE\n")
	fmt.Printf("   Total Duration:   %v\n", duration.Round(time.Millisecond))
	if m.TotalProcessed > 0 {
		avgMs := float64(m.ProcessingTimeMs) / float64(m.TotalProcessed)
		cps := float64(m.TotalProcessed) / duration.Seconds()
		fmt.Printf("   Avg Latency:      %.2f ms\n", avgMs)
		fmt.Printf("   Throughput:       %.2f comparisons/sec\n", cps)
	}

	fmt.Printf("\n💡 INTERPRETATION\n")
	if succeeded == 0 {
		fmt.Println("   ❌ No successful comparisons - check the server logs")
		fmt.Println()
		return
	}
	moveShare := float64(m.moveCandidates) / float64(succeeded)
	switch {
	case moveShare >= 0.5:
		fmt.Printf("   ⚠️  %.0f%% of the book would be cheaper on another account\n", 100*moveShare)
	case moveShare >= 0.2:
		fmt.Printf("   ⚠️  %.0f%% of customers have a cheaper account available\n", 100*moveShare)
	default:
		fmt.Printf("   ✅ %.0f%% of customers already sit on their cheapest account\n", 100*(1-moveShare))
	}
	if m.unresolved > 0 {
		fmt.Printf("   ⚠️  %d customers have no resolvable recommendation - check tariff coverage\n", m.unresolved)
	}

	fmt.Println()
}
