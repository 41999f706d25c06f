package kpi

import (
	"strings"
	"testing"

	"github.com/opensource-finance/heron/internal/domain"
)

func testAccount() *domain.AccountConfig {
	return &domain.AccountConfig{
		ID:         "basic_banking",
		Name:       "Basic Banking",
		KPIProfile: "basic_banking",
		FreeTier: domain.FreeTier{
			Counts:   map[string]int{"free_onus_atm_withdrawals": 3},
			Included: map[string]bool{"unlimited_card_swipes": true},
		},
	}
}

func testProfile() *domain.KPIProfile {
	return &domain.KPIProfile{
		Name: "basic_banking",
		KPIs: []domain.KPIDefinition{
			{
				Name:    "paid_rail_dependency_ratio",
				Formula: "charged_txn_count / max(total_payments, 1)",
				Inputs:  []string{"charged_txn_count", "total_payments"},
			},
			{
				Name: "excess_atm_cost",
				ExcessUsage: &domain.ExcessUsageSpec{
					UsageKey:      "onus_atm_withdrawal_count",
					AllowanceName: "free_onus_atm_withdrawals",
					StepSize:      1,
					StepFee:       10,
				},
				Signal: &domain.SignalSpec{
					Name:      "payu_upgrade_candidate",
					Operator:  domain.OpGT,
					Threshold: 0,
					Penalty:   15,
				},
				Insight: "Free ATM allowance exhausted, excess cost N${value} this month",
			},
			{
				Name:    "digital_ratio",
				Formula: "digital_ratio",
				Inputs:  []string{"digital_ratio"},
				Signal: &domain.SignalSpec{
					Name:      "digital_shift_candidate",
					Operator:  domain.OpLT,
					Threshold: 0.5,
					Penalty:   10,
				},
				Insight: "Digital share {value} is below {threshold}",
			},
		},
		GoodFitMessage: "Current account fits observed usage",
		Benefits: []domain.BenefitDef{
			{Name: "free_atm_withdrawals", AllowanceName: "free_onus_atm_withdrawals", UsageKey: "onus_atm_withdrawal_count"},
			{Name: "card_swipes", AllowanceName: "unlimited_card_swipes", UsageKey: "pos_purchase_count"},
		},
	}
}

func newTestEngine(t *testing.T, profiles ...*domain.KPIProfile) *Engine {
	t.Helper()
	e, err := NewEngine()
	if err != nil {
		t.Fatalf("NewEngine() error: %v", err)
	}
	if err := e.LoadProfiles(profiles); err != nil {
		t.Fatalf("LoadProfiles() error: %v", err)
	}
	return e
}

func TestComputeFullPipeline(t *testing.T) {
	e := newTestEngine(t, testProfile())

	feats := &domain.Features{
		TxnCount:               20,
		TotalPayments:          16,
		ChargedTxnCount:        8,
		OnUsATMWithdrawalCount: 5,
		ATMWithdrawalCount:     5,
		POSPurchaseCount:       6,
		DigitalRatio:           0.3,
	}

	summary, err := e.Compute("basic_banking", testAccount(), feats)
	if err != nil {
		t.Fatalf("Compute() error: %v", err)
	}

	if len(summary.Values) != 3 {
		t.Fatalf("got %d KPI values, expected 3", len(summary.Values))
	}

	paidRail := summary.Values[0]
	if !paidRail.Available {
		t.Fatalf("paid_rail unavailable: %s", paidRail.Reason)
	}
	if paidRail.Value != 0.5 {
		t.Errorf("paid_rail = %v, expected 0.5", paidRail.Value)
	}

	excess := summary.Values[1]
	if !excess.Available || excess.Value != 20 {
		t.Errorf("excess_atm_cost = %+v, expected resolved 20", excess)
	}

	// Both signals fire: excess cost > 0 and digital ratio < 0.5.
	if len(summary.Signals) != 2 {
		t.Fatalf("signals = %v, expected 2 fired", summary.Signals)
	}
	if summary.Signals[0] != "payu_upgrade_candidate" || summary.Signals[1] != "digital_shift_candidate" {
		t.Errorf("signals = %v, expected upgrade then digital shift", summary.Signals)
	}

	// Score: 100 - 15 - 10 = 75.
	if summary.FitScore != 75 {
		t.Errorf("FitScore = %v, expected 75", summary.FitScore)
	}

	if len(summary.Insights) != 2 {
		t.Fatalf("insights = %v, expected 2", summary.Insights)
	}
	if summary.Insights[0] != "Free ATM allowance exhausted, excess cost N$20 this month" {
		t.Errorf("insight[0] = %q", summary.Insights[0])
	}
	if summary.Insights[1] != "Digital share 0.3 is below 0.5" {
		t.Errorf("insight[1] = %q", summary.Insights[1])
	}
}

func TestComputeGoodFit(t *testing.T) {
	e := newTestEngine(t, testProfile())

	feats := &domain.Features{
		TxnCount:               10,
		TotalPayments:          8,
		ChargedTxnCount:        1,
		OnUsATMWithdrawalCount: 2,
		DigitalRatio:           0.8,
	}

	summary, err := e.Compute("basic_banking", testAccount(), feats)
	if err != nil {
		t.Fatalf("Compute() error: %v", err)
	}

	if len(summary.Signals) != 0 {
		t.Errorf("signals = %v, expected none", summary.Signals)
	}
	if summary.FitScore != 100 {
		t.Errorf("FitScore = %v, expected 100", summary.FitScore)
	}
	if len(summary.Insights) != 1 || summary.Insights[0] != "Current account fits observed usage" {
		t.Errorf("insights = %v, expected good fit fallback", summary.Insights)
	}
}

func TestMalformedFormulaIsUnavailableNotFatal(t *testing.T) {
	profile := &domain.KPIProfile{
		Name: "broken",
		KPIs: []domain.KPIDefinition{
			{Name: "bad_syntax", Formula: "1 + + +"},
			{Name: "bad_construct", Formula: "[1, 2, 3]"},
			{Name: "divides_by_zero", Formula: "1 / (txn_count - txn_count)"},
			{Name: "fine", Formula: "txn_count * 2"},
		},
	}

	e := newTestEngine(t, profile)

	summary, err := e.Compute("broken", nil, &domain.Features{TxnCount: 4})
	if err != nil {
		t.Fatalf("Compute() error: %v", err)
	}

	if len(summary.Values) != 4 {
		t.Fatalf("got %d values, expected 4", len(summary.Values))
	}

	for _, name := range []string{"bad_syntax", "bad_construct", "divides_by_zero"} {
		v := findValue(t, summary, name)
		if v.Available {
			t.Errorf("%s should be unavailable", name)
		}
		if v.Reason == "" {
			t.Errorf("%s should carry a reason", name)
		}
	}

	fine := findValue(t, summary, "fine")
	if !fine.Available || fine.Value != 8 {
		t.Errorf("fine = %+v, expected resolved 8", fine)
	}
}

func TestUndefinedVariableIsUnavailable(t *testing.T) {
	profile := &domain.KPIProfile{
		Name: "p",
		KPIs: []domain.KPIDefinition{
			{Name: "ghost", Formula: "no_such_feature * 2"},
		},
	}

	e := newTestEngine(t, profile)
	summary, err := e.Compute("p", nil, &domain.Features{})
	if err != nil {
		t.Fatalf("Compute() error: %v", err)
	}

	v := summary.Values[0]
	if v.Available {
		t.Fatalf("ghost should be unavailable")
	}
	if !strings.Contains(v.Reason, "no_such_feature") {
		t.Errorf("reason = %q, expected mention of the missing name", v.Reason)
	}
}

func TestDeclaredInputMissing(t *testing.T) {
	profile := &domain.KPIProfile{
		Name: "p",
		KPIs: []domain.KPIDefinition{
			{Name: "needs_input", Formula: "txn_count", Inputs: []string{"txn_count", "not_a_feature"}},
		},
	}

	e := newTestEngine(t, profile)
	summary, err := e.Compute("p", nil, &domain.Features{TxnCount: 1})
	if err != nil {
		t.Fatalf("Compute() error: %v", err)
	}

	v := summary.Values[0]
	if v.Available {
		t.Fatalf("needs_input should be unavailable when a declared input is missing")
	}
}

func TestExcessUsageWithinAllowance(t *testing.T) {
	e := newTestEngine(t, testProfile())

	feats := &domain.Features{
		TotalPayments:          4,
		OnUsATMWithdrawalCount: 3,
		DigitalRatio:           0.9,
	}

	summary, err := e.Compute("basic_banking", testAccount(), feats)
	if err != nil {
		t.Fatalf("Compute() error: %v", err)
	}

	excess := findValue(t, summary, "excess_atm_cost")
	if !excess.Available || excess.Value != 0 {
		t.Errorf("excess_atm_cost = %+v, expected resolved 0", excess)
	}
	for _, s := range summary.Signals {
		if s == "payu_upgrade_candidate" {
			t.Errorf("upgrade signal fired at zero excess cost")
		}
	}
}

func TestScoreClampsAtZero(t *testing.T) {
	profile := &domain.KPIProfile{
		Name:       "heavy",
		BasePoints: 20,
		KPIs: []domain.KPIDefinition{
			{
				Name:    "always_on",
				Formula: "1",
				Signal:  &domain.SignalSpec{Name: "s1", Operator: domain.OpGT, Threshold: 0, Penalty: 50},
			},
		},
	}

	e := newTestEngine(t, profile)
	summary, err := e.Compute("heavy", nil, &domain.Features{})
	if err != nil {
		t.Fatalf("Compute() error: %v", err)
	}
	if summary.FitScore != 0 {
		t.Errorf("FitScore = %v, expected clamp to 0", summary.FitScore)
	}
}

func TestBenefits(t *testing.T) {
	e := newTestEngine(t, testProfile())

	feats := &domain.Features{
		OnUsATMWithdrawalCount: 5,
		POSPurchaseCount:       12,
		TotalPayments:          12,
		DigitalRatio:           0.8,
	}

	summary, err := e.Compute("basic_banking", testAccount(), feats)
	if err != nil {
		t.Fatalf("Compute() error: %v", err)
	}

	if len(summary.Benefits) != 2 {
		t.Fatalf("got %d benefits, expected 2", len(summary.Benefits))
	}

	atm := summary.Benefits[0]
	if !atm.Counted || atm.Allowance != 3 || atm.Used != 5 || atm.Remaining != 0 {
		t.Errorf("atm benefit = %+v, expected counted 3 allowance, 5 used, 0 remaining", atm)
	}

	swipes := summary.Benefits[1]
	if !swipes.Included || swipes.Counted {
		t.Errorf("swipes benefit = %+v, expected included flag", swipes)
	}
	if swipes.Used != 12 {
		t.Errorf("swipes used = %d, expected 12", swipes.Used)
	}
}

func TestUnknownProfile(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.Compute("nope", nil, &domain.Features{}); err == nil {
		t.Fatalf("Compute() with unknown profile should fail")
	}
}

func findValue(t *testing.T, s domain.KPISummary, name string) domain.KPIValue {
	t.Helper()
	for _, v := range s.Values {
		if v.Name == name {
			return v
		}
	}
	t.Fatalf("KPI %q not in summary", name)
	return domain.KPIValue{}
}
