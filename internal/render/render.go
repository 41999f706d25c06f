// Package render turns fit reports, comparisons and portfolio
// summaries into console text and export payloads. Console rendering
// is deterministic: identical inputs produce byte-identical text, so
// frozen reference outputs stay valid across runs.
//
// Single-account reports render at full width. Comparison and
// portfolio reports clamp every line to MaxLineWidth bytes.
package render

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/tariff"
)

// MaxLineWidth caps comparison and portfolio console lines.
const MaxLineWidth = 59

const ruleWidth = 62

// ClampLine truncates s to MaxLineWidth bytes. Bytes beyond the limit
// are dropped; shorter lines pass through unchanged.
func ClampLine(s string) string {
	if len(s) <= MaxLineWidth {
		return s
	}
	return s[:MaxLineWidth]
}

// comma formats an amount with thousand separators and two decimals,
// e.g. 1234567.5 renders as 1,234,567.50.
func comma(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	dot := strings.IndexByte(s, '.')
	intPart, frac := s[:dot], s[dot:]

	var b strings.Builder
	for i := 0; i < len(intPart); i++ {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteByte(intPart[i])
	}
	if neg {
		return "-" + b.String() + frac
	}
	return b.String() + frac
}

// feeCell renders a money cell that may be unavailable. NA is never
// written as a number.
func feeCell(amount float64, available bool) string {
	if !available {
		return "NA"
	}
	return fmt.Sprintf("N$%6.2f", amount)
}

// segTag abbreviates a segment for the fixed-width customer line.
func segTag(seg domain.Segment) string {
	s := strings.ToUpper(string(seg))
	if len(s) > 3 {
		s = s[:3]
	}
	return s
}

func hasFlag(flags []string, want string) bool {
	for _, f := range flags {
		if f == want {
			return true
		}
	}
	return false
}

// AccountReport renders the multi-customer console report for one
// account: a block per customer followed by distribution footers and
// the assumptions trailer. Lines are not width clamped.
func AccountReport(account *domain.AccountConfig, reports []*domain.FitReport) string {
	var b strings.Builder
	heavy := strings.Repeat("=", ruleWidth)
	light := strings.Repeat("-", ruleWidth)

	fmt.Fprintf(&b, "\n%s\n", heavy)
	fmt.Fprintf(&b, "%s Multi-Customer Intelligence Report\n", account.Name)
	fmt.Fprintf(&b, "%s\n", heavy)
	fmt.Fprintf(&b, "\nAccount Type: %s\n", account.ID)
	fmt.Fprintf(&b, "Account Class: %s\n", account.Class)
	fmt.Fprintf(&b, "Total Customers: %d\n\n", len(reports))

	tagCounts := make(map[string]int)
	depositCounts := make(map[domain.DepositEligibility]int)
	flagged := 0
	var ratioSum, feeSum float64
	costed := 0

	for _, r := range reports {
		writeCustomerBlock(&b, r)

		if r.Features != nil {
			tagCounts[r.Features.BehaviourTag]++
			ratioSum += r.Features.DigitalRatio
		}
		if r.DepositFee != nil {
			depositCounts[r.DepositFee.Status]++
		}
		if hasFlag(r.Flags, domain.FlagTurnoverRequired) {
			flagged++
		}
		if r.Total.Available {
			feeSum += r.Total.Amount
			costed++
		}
	}

	fmt.Fprintf(&b, "%s\n", heavy)

	b.WriteString("\nBehaviour Distribution:\n")
	for _, tag := range sortedTags(tagCounts) {
		fmt.Fprintf(&b, "  %-17s %3d customers\n", tag, tagCounts[tag])
	}

	if len(depositCounts) > 0 {
		b.WriteString("\nDeposit Eligibility Distribution:\n")
		for _, st := range sortedStatuses(depositCounts) {
			fmt.Fprintf(&b, "  %-28s %3d customers\n", st, depositCounts[st])
		}
	}

	var avgRatio, avgFee float64
	if len(reports) > 0 {
		avgRatio = ratioSum / float64(len(reports))
	}
	if costed > 0 {
		avgFee = feeSum / float64(costed)
	}
	fmt.Fprintf(&b, "\nAverage Digital Ratio: %.1f%%\n", avgRatio*100)
	fmt.Fprintf(&b, "Average Total Fee:     N$%.2f\n", avgFee)

	fmt.Fprintf(&b, "\n%s\n", light)
	b.WriteString("ASSUMPTIONS:\n")
	if flagged > 0 {
		fmt.Fprintf(&b, "  * %d customer(s) have cash deposits but no annual turnover\n", flagged)
		b.WriteString("    -> deposit fee not charged, flagged for turnover review\n")
	} else {
		b.WriteString("  * No customers flagged for missing turnover\n")
	}
	if account.DepositRule != nil {
		fmt.Fprintf(&b, "  * Cash deposit fee N$%.2f applies above N$%s annual turnover\n",
			account.DepositRule.FlatFee, comma(account.DepositRule.TurnoverThreshold))
	}
	fmt.Fprintf(&b, "%s\n", heavy)

	return b.String()
}

func writeCustomerBlock(b *strings.Builder, r *domain.FitReport) {
	f := r.Features
	if f == nil {
		f = &domain.Features{}
	}

	fmt.Fprintf(b, "%-11s [%s] %3dtx %5.1f%% %-17s\n",
		r.CustomerID, segTag(r.Segment), f.TxnCount, f.DigitalRatio*100, f.BehaviourTag)
	fmt.Fprintf(b, "  In: N$%10s  Out: N$%10s\n", comma(f.TotalInflow), comma(f.TotalOutflow))

	varFee, varOK := variableTotal(r)
	fmt.Fprintf(b, "  Fixed: N$%5.2f  Var: %s  Total: %s\n",
		r.FixedFee, feeCell(varFee, varOK), feeCell(r.Total.Amount, r.Total.Available))

	if dep := r.DepositFee; dep != nil && (dep.EventCount > 0 || hasFlag(r.Flags, domain.FlagTurnoverRequired)) {
		feeStr := "FREE"
		if dep.Fee > 0 {
			feeStr = fmt.Sprintf("N$%.2f", dep.Fee)
		}
		fmt.Fprintf(b, "  Deposit: %-24s  %s (%d events)\n", dep.Status, feeStr, dep.EventCount)
	}

	if drivers := topFeeDrivers(r, 3); len(drivers) > 0 {
		parts := make([]string, len(drivers))
		for i, d := range drivers {
			parts[i] = fmt.Sprintf("%s N$%.2f", d.label, d.amount)
		}
		fmt.Fprintf(b, "  Top fees: %s\n", strings.Join(parts, ", "))
	}

	b.WriteString("\n")
}

// variableTotal sums all variable lines plus the deposit charge. The
// sum is unavailable when any line is.
func variableTotal(r *domain.FitReport) (float64, bool) {
	var total float64
	for _, line := range r.VariableFees {
		if !line.Fee.Available {
			return 0, false
		}
		total = tariff.Round2(total + line.Fee.Amount)
	}
	if r.DepositFee != nil {
		total = tariff.Round2(total + r.DepositFee.Fee)
	}
	return total, true
}

type feeDriver struct {
	label  string
	amount float64
}

// topFeeDrivers returns the n largest charged lines, deposit included,
// ordered by amount descending with label as the deterministic tie
// break.
func topFeeDrivers(r *domain.FitReport, n int) []feeDriver {
	var drivers []feeDriver
	for _, line := range r.VariableFees {
		if line.Fee.Available && line.Fee.Amount > 0 {
			drivers = append(drivers, feeDriver{label: line.Label, amount: line.Fee.Amount})
		}
	}
	if r.DepositFee != nil && r.DepositFee.Fee > 0 {
		drivers = append(drivers, feeDriver{label: "cash deposits", amount: r.DepositFee.Fee})
	}
	sort.Slice(drivers, func(i, j int) bool {
		if drivers[i].amount != drivers[j].amount {
			return drivers[i].amount > drivers[j].amount
		}
		return drivers[i].label < drivers[j].label
	})
	if len(drivers) > n {
		drivers = drivers[:n]
	}
	return drivers
}

func sortedTags(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedStatuses(m map[domain.DepositEligibility]int) []domain.DepositEligibility {
	keys := make([]domain.DepositEligibility, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// ComparisonReport renders one customer's shelf comparison. Every
// line is clamped to MaxLineWidth.
func ComparisonReport(cmp *domain.Comparison) string {
	lines := []string{
		ClampLine(fmt.Sprintf("=== Account Comparison: %s ===", cmp.CustomerID)),
		"",
	}

	for _, r := range cmp.Reports {
		total := "NA"
		if r.Total.Available {
			total = fmt.Sprintf("N$%.2f", r.Total.Amount)
		}
		elig := "eligible"
		if !r.Eligibility.Eligible {
			elig = fmt.Sprintf("ineligible (%d checks failed)", len(r.Eligibility.Reasons))
		}
		lines = append(lines, ClampLine(fmt.Sprintf("%-20s %10s  %s", r.AccountID, total, elig)))

		if r.KPI.ProfileName != "" {
			sig := "none"
			if len(r.KPI.Signals) > 0 {
				sig = strings.Join(r.KPI.Signals, ", ")
			}
			lines = append(lines, ClampLine(fmt.Sprintf("  fit %5.1f  signals: %s", r.KPI.FitScore, sig)))
			for _, ins := range r.KPI.Insights {
				lines = append(lines, ClampLine("  - "+ins))
			}
		}
		for _, fl := range r.Flags {
			lines = append(lines, ClampLine("  ! "+fl))
		}
	}

	lines = append(lines, "")
	rec := cmp.Recommendation
	switch {
	case rec == nil:
		lines = append(lines, ClampLine("Recommended: none"))
	case rec.AccountID == "":
		lines = append(lines, ClampLine("Recommended: none ("+rec.Reason+")"))
	default:
		lines = append(lines, ClampLine(fmt.Sprintf("Recommended: %s at N$%.2f (%s)",
			rec.AccountID, rec.Total, rec.Reason)))
	}

	return strings.Join(lines, "\n") + "\n"
}

// PortfolioReport renders the batch rollup. Every line is clamped to
// MaxLineWidth.
func PortfolioReport(s *domain.PortfolioSummary) string {
	agg := s.Aggregate
	lines := []string{
		ClampLine(fmt.Sprintf("=== Portfolio Summary (%d customers) ===", agg.CustomerCount)),
		"",
	}

	lines = appendCountSection(lines, "Recommendations:", agg.RecommendationCounts)
	lines = appendCountSection(lines, "Signals:", agg.SignalCounts)
	lines = appendCountSection(lines, "Behaviour:", agg.BehaviourTagCounts)
	lines = appendCountSection(lines, "Deposit eligibility:", agg.DepositStatusCounts)

	lines = append(lines,
		ClampLine(fmt.Sprintf("Flagged for review:    %3d", agg.FlaggedCustomers)),
		ClampLine(fmt.Sprintf("Allowance pressure:    %3d", agg.AllowancePressure)),
		ClampLine(fmt.Sprintf("Avg digital ratio:     %5.1f%%", agg.AvgDigitalRatio*100)),
		ClampLine(fmt.Sprintf("Fee exposure: N$%s total, N$%.2f avg (%d costed)",
			comma(agg.FeePain.TotalCost), agg.FeePain.AvgCost, agg.FeePain.CostedCustomers)),
	)

	lines = appendTargetSection(lines, "Upgrade targets:", s.Targets.Upgrade)
	lines = appendTargetSection(lines, "Cashout shift targets:", s.Targets.CashoutShift)
	lines = appendTargetSection(lines, "Digital shift targets:", s.Targets.DigitalShift)

	return strings.Join(lines, "\n") + "\n"
}

func appendCountSection(lines []string, title string, counts map[string]int) []string {
	if len(counts) == 0 {
		return lines
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines = append(lines, ClampLine(title))
	for _, k := range keys {
		lines = append(lines, ClampLine(fmt.Sprintf("  %-28s %3d", k, counts[k])))
	}
	return lines
}

func appendTargetSection(lines []string, title string, targets []domain.TargetEntry) []string {
	lines = append(lines, "", ClampLine(title))
	if len(targets) == 0 {
		lines = append(lines, ClampLine("  none"))
		return lines
	}
	for _, t := range targets {
		lines = append(lines, ClampLine(fmt.Sprintf("  %-11s %s", t.CustomerID, t.Reason)))
	}
	return lines
}
