// Package analyzer costs customers against account products and
// recommends the cheapest eligible fit.
package analyzer

import (
	"fmt"

	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/features"
	"github.com/opensource-finance/heron/internal/kpi"
	"github.com/opensource-finance/heron/internal/tariff"
)

// Analyzer holds the account shelf and the compiled KPI profiles.
// Analysis itself is pure; the same customer and transactions always
// produce the same report.
type Analyzer struct {
	accounts []*domain.AccountConfig
	kpi      *kpi.Engine
}

// New builds an analyzer from the account shelf and profile set.
// Shelf order is preserved in comparisons and breaks recommendation
// ties after priority.
func New(accounts []*domain.AccountConfig, profiles []*domain.KPIProfile) (*Analyzer, error) {
	if len(accounts) == 0 {
		return nil, fmt.Errorf("at least one account config is required")
	}
	for _, acc := range accounts {
		if err := acc.Validate(); err != nil {
			return nil, err
		}
	}

	engine, err := kpi.NewEngine()
	if err != nil {
		return nil, err
	}
	if err := engine.LoadProfiles(profiles); err != nil {
		return nil, err
	}

	loaded := make(map[string]bool, len(profiles))
	for _, p := range profiles {
		loaded[p.Name] = true
	}
	for _, acc := range accounts {
		if acc.KPIProfile != "" && !loaded[acc.KPIProfile] {
			return nil, fmt.Errorf("account %s references unknown kpi profile %q", acc.ID, acc.KPIProfile)
		}
	}

	return &Analyzer{accounts: accounts, kpi: engine}, nil
}

// Accounts returns the shelf in configured order.
func (a *Analyzer) Accounts() []*domain.AccountConfig {
	return a.accounts
}

// Account looks up one shelf entry by id.
func (a *Analyzer) Account(id string) (*domain.AccountConfig, bool) {
	for _, acc := range a.accounts {
		if acc.ID == id {
			return acc, true
		}
	}
	return nil, false
}

// Analyze costs one customer against one account: eligibility,
// fixed and variable fees, the deposit charge, KPIs and flags. The
// report is produced even for ineligible customers so callers can
// show why an account was ruled out.
func (a *Analyzer) Analyze(customer *domain.Customer, txns []*domain.Transaction, account *domain.AccountConfig) (*domain.FitReport, error) {
	feats := features.Build(txns)

	eligibility := CheckEligibility(account.Eligibility, customer)

	lines := tariff.Lines(account, feats)
	feats.ChargedTxnCount = chargedTxnCount(lines)

	dep, flags := tariff.DepositCharge(customer, account.DepositRule, feats.CashDepositCount)
	total := tariff.Total(account.MonthlyFee, lines, dep)

	report := &domain.FitReport{
		CustomerID:   customer.ID,
		AccountID:    account.ID,
		AccountName:  account.Name,
		Segment:      customer.Segment,
		Eligibility:  eligibility,
		FixedFee:     account.MonthlyFee,
		VariableFees: lines,
		DepositFee:   dep,
		Total:        total,
		Flags:        flags,
		Features:     feats,
	}

	if account.KPIProfile != "" {
		summary, err := a.kpi.Compute(account.KPIProfile, account, feats)
		if err != nil {
			return nil, err
		}
		report.KPI = summary
	}

	return report, nil
}

// chargedTxnCount counts events on fee lines that actually charged,
// feeding the paid rail KPIs.
func chargedTxnCount(lines []domain.FeeLine) int {
	count := 0
	for _, line := range lines {
		if line.Fee.Available && line.Fee.Amount > 0 {
			count += line.Events
		}
	}
	return count
}

// Compare costs one customer against the whole shelf and picks the
// cheapest eligible account with a resolvable total. Unavailable
// totals never win; ties go to the lower priority number, then shelf
// order.
func (a *Analyzer) Compare(customer *domain.Customer, txns []*domain.Transaction) (*domain.Comparison, error) {
	cmp := &domain.Comparison{CustomerID: customer.ID}

	for _, account := range a.accounts {
		report, err := a.Analyze(customer, txns, account)
		if err != nil {
			return nil, err
		}
		cmp.Reports = append(cmp.Reports, *report)
	}

	cmp.Recommendation = a.recommend(cmp.Reports)
	return cmp, nil
}

func (a *Analyzer) recommend(reports []domain.FitReport) *domain.Recommendation {
	type candidate struct {
		report   *domain.FitReport
		priority int
	}

	var candidates []candidate
	for i := range reports {
		r := &reports[i]
		if !r.Eligibility.Eligible || !r.Total.Available {
			continue
		}
		acc, ok := a.Account(r.AccountID)
		priority := 0
		if ok {
			priority = acc.Priority
		}
		candidates = append(candidates, candidate{report: r, priority: priority})
	}

	if len(candidates) == 0 {
		return &domain.Recommendation{
			Reason: "no eligible account with a resolvable total",
		}
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		switch {
		case c.report.Total.Amount < best.report.Total.Amount:
			best = c
		case c.report.Total.Amount == best.report.Total.Amount && c.priority < best.priority:
			best = c
		}
	}

	rec := &domain.Recommendation{
		AccountID:   best.report.AccountID,
		AccountName: best.report.AccountName,
		Total:       best.report.Total.Amount,
	}

	if len(candidates) == 1 {
		rec.Reason = fmt.Sprintf("only resolvable option at N$%.2f", rec.Total)
		return rec
	}

	// Cheapest runner-up drives the savings message.
	var runnerUp *domain.FitReport
	for _, c := range candidates {
		if c.report.AccountID == best.report.AccountID {
			continue
		}
		if runnerUp == nil || c.report.Total.Amount < runnerUp.Total.Amount {
			runnerUp = c.report
		}
	}

	if saving := tariff.Round2(runnerUp.Total.Amount - rec.Total); saving > 0 {
		rec.Reason = fmt.Sprintf("saves N$%.2f vs %s", saving, runnerUp.AccountName)
	} else {
		rec.Reason = fmt.Sprintf("tie on total N$%.2f, shelf priority wins", rec.Total)
	}
	return rec
}
