// Package portfolio runs the account shelf across a whole customer
// batch. Customers are analyzed independently and concurrently, then
// rolled up into counts, fee exposure and ranked outreach lists.
// Results keep input order so repeated runs render byte-identical.
package portfolio

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/opensource-finance/heron/internal/analyzer"
	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/render"
	"github.com/opensource-finance/heron/internal/tariff"
)

// targetLimit caps each outreach list.
const targetLimit = 10

// Signal names the outreach lists key on. Profiles that emit other
// signals still aggregate; only these drive target ranking.
const (
	SignalUpgrade      = "payu_upgrade_candidate"
	SignalCashoutShift = "cashout_shift_candidate"
	SignalDigitalShift = "digital_shift_candidate"
)

const kpiPaidRailRatio = "paid_rail_dependency_ratio"

// Engine evaluates portfolios with a bounded worker pool.
type Engine struct {
	analyzer *analyzer.Analyzer
	workers  int
}

// NewEngine creates a portfolio engine running at most workers
// concurrent customer analyses.
func NewEngine(a *analyzer.Analyzer, workers int) *Engine {
	if workers <= 0 {
		workers = 4
	}
	return &Engine{analyzer: a, workers: workers}
}

// Run compares every customer against the full shelf. Transactions
// are grouped by customer id; transactions for customers outside the
// batch are ignored. Results are collected by input index, so output
// order equals input order regardless of worker count.
func (e *Engine) Run(ctx context.Context, customers []*domain.Customer, txns []*domain.Transaction) (*domain.PortfolioSummary, error) {
	byCustomer := make(map[string][]*domain.Transaction)
	for _, txn := range txns {
		byCustomer[txn.CustomerID] = append(byCustomer[txn.CustomerID], txn)
	}

	results := make([]*domain.Comparison, len(customers))
	errs := make([]error, len(customers))

	var wg sync.WaitGroup
	sem := make(chan struct{}, e.workers)

	for i, customer := range customers {
		wg.Add(1)
		go func(idx int, c *domain.Customer) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			if err := ctx.Err(); err != nil {
				errs[idx] = err
				return
			}

			cmp, err := e.analyzer.Compare(c, byCustomer[c.ID])
			if err != nil {
				errs[idx] = fmt.Errorf("failed to compare customer %s: %w", c.ID, err)
				return
			}
			results[idx] = cmp
		}(i, customer)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	summary := &domain.PortfolioSummary{
		Customers: make([]domain.Comparison, len(results)),
		Aggregate: aggregate(results),
		Targets:   rankTargets(results),
	}
	for i, cmp := range results {
		summary.Customers[i] = *cmp
	}
	return summary, nil
}

// aggregate rolls comparisons up into portfolio counts. Signal counts
// are deduplicated per customer across that customer's reports. Fee
// pain covers only customers with a resolvable recommendation;
// unavailable totals stay out of both the numerator and the
// denominator.
func aggregate(results []*domain.Comparison) domain.Aggregate {
	agg := domain.Aggregate{
		CustomerCount:        len(results),
		RecommendationCounts: make(map[string]int),
		SignalCounts:         make(map[string]int),
		BehaviourTagCounts:   make(map[string]int),
		DepositStatusCounts:  make(map[string]int),
	}

	var ratioSum float64

	for _, cmp := range results {
		rec := cmp.Recommendation
		if rec != nil && rec.AccountID != "" {
			agg.RecommendationCounts[rec.AccountID]++
			agg.FeePain.TotalCost = tariff.Round2(agg.FeePain.TotalCost + rec.Total)
			agg.FeePain.CostedCustomers++
		} else {
			agg.RecommendationCounts["none"]++
		}

		seen := make(map[string]bool)
		flagged := false
		pressured := false
		depositStatus := ""

		for ri := range cmp.Reports {
			r := &cmp.Reports[ri]

			for _, sig := range r.KPI.Signals {
				if !seen[sig] {
					seen[sig] = true
					agg.SignalCounts[sig]++
				}
			}
			if len(r.Flags) > 0 {
				flagged = true
			}
			if depositStatus == "" && r.DepositFee != nil {
				depositStatus = string(r.DepositFee.Status)
			}
			for _, ben := range r.KPI.Benefits {
				if ben.Counted && ben.Used > ben.Allowance {
					pressured = true
				}
			}
		}

		if flagged {
			agg.FlaggedCustomers++
		}
		if pressured {
			agg.AllowancePressure++
		}
		if depositStatus != "" {
			agg.DepositStatusCounts[depositStatus]++
		}
		if len(cmp.Reports) > 0 && cmp.Reports[0].Features != nil {
			agg.BehaviourTagCounts[cmp.Reports[0].Features.BehaviourTag]++
			ratioSum += cmp.Reports[0].Features.DigitalRatio
		}
	}

	if agg.CustomerCount > 0 {
		agg.AvgDigitalRatio = ratioSum / float64(agg.CustomerCount)
	}
	if agg.FeePain.CostedCustomers > 0 {
		agg.FeePain.AvgCost = agg.FeePain.TotalCost / float64(agg.FeePain.CostedCustomers)
	}
	return agg
}

// targetView carries the ranking inputs for one customer, read from
// the first report that ran a KPI profile.
type targetView struct {
	customerID  string
	signals     map[string]bool
	excessCount int
	paidRail    float64
	digiRatio   float64
	atmCount    int
}

func buildView(cmp *domain.Comparison) (targetView, bool) {
	for ri := range cmp.Reports {
		r := &cmp.Reports[ri]
		if r.KPI.ProfileName == "" {
			continue
		}

		v := targetView{
			customerID: cmp.CustomerID,
			signals:    make(map[string]bool, len(r.KPI.Signals)),
			digiRatio:  1,
		}
		for _, sig := range r.KPI.Signals {
			v.signals[sig] = true
		}
		for _, val := range r.KPI.Values {
			if val.Name == kpiPaidRailRatio && val.Available {
				v.paidRail = val.Value
			}
		}
		if r.Features != nil {
			v.digiRatio = r.Features.DigitalRatio
			v.atmCount = r.Features.OnUsATMWithdrawalCount
		}
		for _, ben := range r.KPI.Benefits {
			if ben.Counted && ben.Used-ben.Allowance > v.excessCount {
				v.excessCount = ben.Used - ben.Allowance
			}
		}
		return v, true
	}
	return targetView{}, false
}

// rankTargets builds the three outreach lists. Every profiled
// customer appears in each ranking; the limit keeps only the top
// entries. Sorts are stable over input order, so ties keep the
// dataset's customer order.
func rankTargets(results []*domain.Comparison) domain.Targets {
	var upgrade, cashout, digital []domain.TargetEntry

	for _, cmp := range results {
		v, ok := buildView(cmp)
		if !ok {
			continue
		}

		upgrade = append(upgrade, domain.TargetEntry{
			CustomerID: v.customerID,
			HasSignal:  v.signals[SignalUpgrade],
			Primary:    float64(v.excessCount),
			Secondary:  v.paidRail,
			Reason:     render.ClampLine(fmt.Sprintf("ATMex %d PaidRail %.2f", v.excessCount, v.paidRail)),
		})
		cashout = append(cashout, domain.TargetEntry{
			CustomerID: v.customerID,
			HasSignal:  v.signals[SignalCashoutShift],
			Primary:    float64(v.atmCount),
			Reason:     render.ClampLine(fmt.Sprintf("ATM Count %d", v.atmCount)),
		})
		digital = append(digital, domain.TargetEntry{
			CustomerID: v.customerID,
			HasSignal:  v.signals[SignalDigitalShift],
			Primary:    v.digiRatio,
			Reason:     render.ClampLine(fmt.Sprintf("DigiRatio %.2f", v.digiRatio)),
		})
	}

	descending := func(entries []domain.TargetEntry) {
		sort.SliceStable(entries, func(i, j int) bool {
			if entries[i].HasSignal != entries[j].HasSignal {
				return entries[i].HasSignal
			}
			if entries[i].Primary != entries[j].Primary {
				return entries[i].Primary > entries[j].Primary
			}
			return entries[i].Secondary > entries[j].Secondary
		})
	}
	descending(upgrade)
	descending(cashout)

	// Digital shift ranks the LOWEST ratio first: those customers have
	// the most room to move.
	sort.SliceStable(digital, func(i, j int) bool {
		if digital[i].HasSignal != digital[j].HasSignal {
			return digital[i].HasSignal
		}
		return digital[i].Primary < digital[j].Primary
	})

	return domain.Targets{
		Upgrade:      truncate(upgrade),
		CashoutShift: truncate(cashout),
		DigitalShift: truncate(digital),
	}
}

func truncate(entries []domain.TargetEntry) []domain.TargetEntry {
	if len(entries) > targetLimit {
		return entries[:targetLimit]
	}
	return entries
}
