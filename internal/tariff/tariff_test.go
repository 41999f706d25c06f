package tariff

import (
	"testing"

	"github.com/opensource-finance/heron/internal/domain"
)

func TestApplyRulePerStep(t *testing.T) {
	// Silver Pay-U ATM tariff: 3 free withdrawals, then N$10 per withdrawal.
	rule := domain.FeeRule{
		Kind:      domain.FeePerStep,
		FreeUnits: 3,
		StepSize:  1,
		StepFee:   10,
	}

	tests := []struct {
		name  string
		count int
		want  float64
	}{
		{"five withdrawals pays for two", 5, 20},
		{"exactly free allowance", 3, 0},
		{"below free allowance", 2, 0},
		{"zero events", 0, 0},
		{"one over", 4, 10},
		{"negative count clamps to zero", -1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyRule(rule, tt.count)
			if got != tt.want {
				t.Errorf("ApplyRule(count=%d) = %v, expected %v", tt.count, got, tt.want)
			}
			if got < 0 {
				t.Errorf("ApplyRule(count=%d) = %v, fees must never be negative", tt.count, got)
			}
		})
	}
}

func TestApplyRulePerStepPartialSteps(t *testing.T) {
	// Partial steps charge as full steps.
	rule := domain.FeeRule{
		Kind:      domain.FeePerStep,
		FreeUnits: 0,
		StepSize:  3,
		StepFee:   5,
	}

	tests := []struct {
		count int
		want  float64
	}{
		{0, 0},
		{1, 5},
		{3, 5},
		{4, 10},
		{6, 10},
		{7, 15},
	}

	for _, tt := range tests {
		got := ApplyRule(rule, tt.count)
		if got != tt.want {
			t.Errorf("ApplyRule(count=%d) = %v, expected %v", tt.count, got, tt.want)
		}
	}
}

func TestApplyRuleFlatPerEvent(t *testing.T) {
	rule := domain.FeeRule{Kind: domain.FeeFlatPerEvent, UnitFee: 2.5}

	if got := ApplyRule(rule, 4); got != 10 {
		t.Errorf("ApplyRule(count=4) = %v, expected 10", got)
	}
	if got := ApplyRule(rule, 0); got != 0 {
		t.Errorf("ApplyRule(count=0) = %v, expected 0", got)
	}
}

func TestApplyRuleBasePlusStepCap(t *testing.T) {
	rule := domain.FeeRule{
		Kind:     domain.FeeBasePlusStepCap,
		BaseFee:  7.20,
		StepSize: 500,
		StepFee:  13.70,
		Cap:      35.00,
	}

	tests := []struct {
		name  string
		count int
		want  float64
	}{
		{"zero events cost nothing", 0, 0},
		{"two steps under cap", 1000, 34.60},
		{"cap kicks in", 2000, 35.00},
		{"single partial step", 1, 20.90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyRule(rule, tt.count)
			if got != tt.want {
				t.Errorf("ApplyRule(count=%d) = %v, expected %v", tt.count, got, tt.want)
			}
		})
	}
}

func TestApplyRuleFixedMonthly(t *testing.T) {
	rule := domain.FeeRule{Kind: domain.FeeFixedMonthly, UnitFee: 30}

	// Usage never changes a fixed fee.
	for _, count := range []int{0, 1, 100} {
		if got := ApplyRule(rule, count); got != 30 {
			t.Errorf("ApplyRule(count=%d) = %v, expected 30", count, got)
		}
	}
}

func TestResolveDepositEligibility(t *testing.T) {
	const threshold = 1300000

	turnover := func(v float64) *float64 { return &v }

	tests := []struct {
		name     string
		customer domain.Customer
		want     domain.DepositEligibility
	}{
		{
			"individual never pays",
			domain.Customer{Segment: domain.SegmentIndividual, AnnualTurnover: turnover(9000000)},
			domain.DepositIndividual,
		},
		{
			"sme without turnover is unknown",
			domain.Customer{Segment: domain.SegmentSME},
			domain.DepositUnknown,
		},
		{
			"sme above threshold",
			domain.Customer{Segment: domain.SegmentSME, AnnualTurnover: turnover(1500000)},
			domain.DepositSMEAboveThreshold,
		},
		{
			"sme below threshold",
			domain.Customer{Segment: domain.SegmentSME, AnnualTurnover: turnover(1200000)},
			domain.DepositSMEBelowThreshold,
		},
		{
			"exactly at threshold is below",
			domain.Customer{Segment: domain.SegmentSME, AnnualTurnover: turnover(1300000)},
			domain.DepositSMEBelowThreshold,
		},
		{
			"business without turnover is unknown",
			domain.Customer{Segment: domain.SegmentBusiness},
			domain.DepositUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveDepositEligibility(&tt.customer, threshold)
			if got != tt.want {
				t.Errorf("ResolveDepositEligibility() = %q, expected %q", got, tt.want)
			}
		})
	}
}

func TestDepositCharge(t *testing.T) {
	rule := &domain.DepositRule{FlatFee: 25, TurnoverThreshold: 1300000}
	turnover := func(v float64) *float64 { return &v }

	t.Run("sme above threshold pays per event", func(t *testing.T) {
		cust := &domain.Customer{Segment: domain.SegmentSME, AnnualTurnover: turnover(1500000)}
		dep, flags := DepositCharge(cust, rule, 4)
		if dep.Fee != 100 {
			t.Errorf("fee = %v, expected 100", dep.Fee)
		}
		if dep.Status != domain.DepositSMEAboveThreshold {
			t.Errorf("status = %q, expected sme_above_threshold", dep.Status)
		}
		if len(flags) != 0 {
			t.Errorf("flags = %v, expected none", flags)
		}
	})

	t.Run("unknown turnover charges nothing and flags", func(t *testing.T) {
		cust := &domain.Customer{Segment: domain.SegmentSME}
		dep, flags := DepositCharge(cust, rule, 3)
		if dep.Fee != 0 {
			t.Errorf("fee = %v, expected 0", dep.Fee)
		}
		if dep.Status != domain.DepositUnknown {
			t.Errorf("status = %q, expected unknown", dep.Status)
		}
		if len(flags) != 1 || flags[0] != domain.FlagTurnoverRequired {
			t.Errorf("flags = %v, expected [%s]", flags, domain.FlagTurnoverRequired)
		}
	})

	t.Run("unknown turnover with zero deposits does not flag", func(t *testing.T) {
		cust := &domain.Customer{Segment: domain.SegmentSME}
		dep, flags := DepositCharge(cust, rule, 0)
		if dep.Fee != 0 {
			t.Errorf("fee = %v, expected 0", dep.Fee)
		}
		if len(flags) != 0 {
			t.Errorf("flags = %v, expected none", flags)
		}
	})

	t.Run("individual pays nothing", func(t *testing.T) {
		cust := &domain.Customer{Segment: domain.SegmentIndividual, AnnualTurnover: turnover(5000000)}
		dep, flags := DepositCharge(cust, rule, 10)
		if dep.Fee != 0 {
			t.Errorf("fee = %v, expected 0", dep.Fee)
		}
		if len(flags) != 0 {
			t.Errorf("flags = %v, expected none", flags)
		}
	})

	t.Run("sme below threshold pays nothing", func(t *testing.T) {
		cust := &domain.Customer{Segment: domain.SegmentSME, AnnualTurnover: turnover(900000)}
		dep, _ := DepositCharge(cust, rule, 6)
		if dep.Fee != 0 {
			t.Errorf("fee = %v, expected 0", dep.Fee)
		}
	})

	t.Run("no deposit rule", func(t *testing.T) {
		cust := &domain.Customer{Segment: domain.SegmentSME}
		dep, flags := DepositCharge(cust, nil, 5)
		if dep != nil {
			t.Errorf("dep = %+v, expected nil", dep)
		}
		if flags != nil {
			t.Errorf("flags = %v, expected nil", flags)
		}
	})
}

func TestLinesAndTotal(t *testing.T) {
	account := &domain.AccountConfig{
		ID:         "silver_payu",
		MonthlyFee: 30,
		FeeRules: []domain.FeeRule{
			{Kind: domain.FeePerStep, FeatureKey: "atm_withdrawal_count", Label: "ATM withdrawals", FreeUnits: 3, StepSize: 1, StepFee: 10},
			{Kind: domain.FeeFlatPerEvent, FeatureKey: "eft_to_other_count", Label: "EFT to other banks", UnitFee: 5},
		},
	}

	feats := &domain.Features{ATMWithdrawalCount: 5, EFTToOtherCount: 2}

	lines := Lines(account, feats)
	if len(lines) != 2 {
		t.Fatalf("Lines() returned %d lines, expected 2", len(lines))
	}
	if lines[0].Fee.Amount != 20 || !lines[0].Fee.Available {
		t.Errorf("atm line = %+v, expected resolved 20", lines[0].Fee)
	}
	if lines[0].Events != 5 {
		t.Errorf("atm line events = %d, expected 5", lines[0].Events)
	}
	if lines[1].Fee.Amount != 10 || !lines[1].Fee.Available {
		t.Errorf("eft line = %+v, expected resolved 10", lines[1].Fee)
	}

	total := Total(account.MonthlyFee, lines, nil)
	if !total.Available {
		t.Fatalf("Total() unavailable: %s", total.Note)
	}
	if total.Amount != 60 {
		t.Errorf("Total() = %v, expected 60", total.Amount)
	}
}

func TestTotalZeroActivityIsFixedFeeOnly(t *testing.T) {
	account := &domain.AccountConfig{
		ID:         "silver_payu",
		MonthlyFee: 30,
		FeeRules: []domain.FeeRule{
			{Kind: domain.FeePerStep, FeatureKey: "atm_withdrawal_count", Label: "ATM withdrawals", FreeUnits: 3, StepSize: 1, StepFee: 10},
		},
	}

	lines := Lines(account, &domain.Features{})
	total := Total(account.MonthlyFee, lines, nil)
	if !total.Available || total.Amount != 30 {
		t.Errorf("Total() = %+v, expected resolved 30", total)
	}
}

func TestLinesUnknownKindIsUnpriced(t *testing.T) {
	account := &domain.AccountConfig{
		ID: "exotic",
		FeeRules: []domain.FeeRule{
			{Kind: "percent_of_value", FeatureKey: "txn_count", Label: "value levy"},
		},
	}

	lines := Lines(account, &domain.Features{TxnCount: 4})
	if len(lines) != 1 {
		t.Fatalf("Lines() returned %d lines, expected 1", len(lines))
	}
	if lines[0].Fee.Available {
		t.Fatalf("line = %+v, expected unpriced rule kind to be unavailable", lines[0].Fee)
	}
	if lines[0].Fee.Amount != 0 {
		t.Errorf("unavailable fee amount = %v, expected 0", lines[0].Fee.Amount)
	}
}

func TestTotalPropagatesUnavailable(t *testing.T) {
	account := &domain.AccountConfig{
		ID: "broken",
		FeeRules: []domain.FeeRule{
			{Kind: domain.FeeFlatPerEvent, FeatureKey: "no_such_feature", Label: "mystery", UnitFee: 1},
		},
	}

	lines := Lines(account, &domain.Features{})
	if lines[0].Fee.Available {
		t.Fatalf("line for unknown feature should be unavailable")
	}

	total := Total(0, lines, nil)
	if total.Available {
		t.Errorf("Total() = %+v, expected unavailable", total)
	}
	// Unavailable is a distinct state, not a zero fee.
	if total.Note == "" {
		t.Errorf("unavailable total should carry a note")
	}
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{10.006, 10.01},
		{10.004, 10.0},
		{0, 0},
		{33.333333, 33.33},
		{7.2 + 13.7*2, 34.6},
	}
	for _, tt := range tests {
		if got := Round2(tt.in); got != tt.want {
			t.Errorf("Round2(%v) = %v, expected %v", tt.in, got, tt.want)
		}
	}
}
