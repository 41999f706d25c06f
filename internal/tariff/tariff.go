// Package tariff prices monthly account usage against fee rules.
// All functions are pure: same inputs, same fees.
package tariff

import (
	"math"

	"github.com/opensource-finance/heron/internal/domain"
)

// Round2 rounds to cents. Fees are rounded at every accumulation
// point so exports and console output agree.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// ceilDiv is integer ceiling division for positive steps.
func ceilDiv(n, step int) int {
	return (n + step - 1) / step
}

// ApplyRule computes the fee one rule charges for the given event
// count. Counts at or below the free allowance cost nothing; partial
// steps are charged as full steps.
func ApplyRule(rule domain.FeeRule, count int) float64 {
	if count < 0 {
		count = 0
	}

	switch rule.Kind {
	case domain.FeeFlatPerEvent:
		return Round2(float64(count) * rule.UnitFee)

	case domain.FeePerStep:
		chargeable := count - rule.FreeUnits
		if chargeable <= 0 {
			return 0
		}
		return Round2(float64(ceilDiv(chargeable, rule.StepSize)) * rule.StepFee)

	case domain.FeeBasePlusStepCap:
		if count == 0 {
			return 0
		}
		excess := count - rule.FreeUnits
		if excess < 0 {
			excess = 0
		}
		fee := rule.BaseFee + float64(ceilDiv(excess, rule.StepSize))*rule.StepFee
		if rule.Cap > 0 && fee > rule.Cap {
			fee = rule.Cap
		}
		return Round2(fee)

	case domain.FeeFixedMonthly:
		return Round2(rule.UnitFee)

	default:
		return 0
	}
}

// Lines prices every fee rule of the account against the feature
// vector, preserving rule order. A rule whose feature key is missing
// from the vector, or whose kind has no tariff, yields an unavailable
// fee rather than a silent zero.
func Lines(account *domain.AccountConfig, feats *domain.Features) []domain.FeeLine {
	vars := feats.Vars()
	lines := make([]domain.FeeLine, 0, len(account.FeeRules))

	for _, rule := range account.FeeRules {
		line := domain.FeeLine{
			Label:      rule.Label,
			FeatureKey: rule.FeatureKey,
		}

		switch rule.Kind {
		case domain.FeeFlatPerEvent, domain.FeePerStep, domain.FeeBasePlusStepCap, domain.FeeFixedMonthly:
		default:
			line.Fee = domain.Unavailable("no tariff for rule kind " + string(rule.Kind))
			lines = append(lines, line)
			continue
		}

		if rule.Kind == domain.FeeFixedMonthly {
			line.Fee = domain.Resolved(ApplyRule(rule, 0))
			lines = append(lines, line)
			continue
		}

		raw, ok := vars[rule.FeatureKey]
		if !ok {
			line.Fee = domain.Unavailable("feature " + rule.FeatureKey + " not in vector")
			lines = append(lines, line)
			continue
		}

		count := int(raw)
		line.Events = count
		line.Fee = domain.Resolved(ApplyRule(rule, count))
		lines = append(lines, line)
	}

	return lines
}

// ResolveDepositEligibility classifies a customer for the cash
// deposit charge. Individuals never pay. SME and business customers
// without turnover on file are unknown; otherwise the threshold
// splits them, strictly above pays.
func ResolveDepositEligibility(customer *domain.Customer, threshold float64) domain.DepositEligibility {
	if customer.Segment == domain.SegmentIndividual {
		return domain.DepositIndividual
	}
	if customer.AnnualTurnover == nil {
		return domain.DepositUnknown
	}
	if *customer.AnnualTurnover > threshold {
		return domain.DepositSMEAboveThreshold
	}
	return domain.DepositSMEBelowThreshold
}

// DepositCharge resolves the cash deposit fee for one customer. The
// returned flags carry the turnover-required assumption when the fee
// could not be resolved. Zero deposit events always cost zero and
// never raise a flag.
func DepositCharge(customer *domain.Customer, rule *domain.DepositRule, depositCount int) (*domain.DepositFee, []string) {
	if rule == nil {
		return nil, nil
	}

	status := ResolveDepositEligibility(customer, rule.TurnoverThreshold)
	dep := &domain.DepositFee{
		Status:     status,
		EventCount: depositCount,
	}

	switch {
	case status == domain.DepositIndividual:
		return dep, nil
	case depositCount == 0:
		return dep, nil
	case status == domain.DepositUnknown:
		return dep, []string{domain.FlagTurnoverRequired}
	case status == domain.DepositSMEBelowThreshold:
		return dep, nil
	default:
		dep.Fee = Round2(rule.FlatFee * float64(depositCount))
		return dep, nil
	}
}

// Total sums the fixed fee, the variable lines and the deposit
// charge. The total is unavailable whenever any line is.
func Total(fixedFee float64, lines []domain.FeeLine, dep *domain.DepositFee) domain.FeeAmount {
	total := fixedFee
	for _, line := range lines {
		if !line.Fee.Available {
			return domain.Unavailable(line.Fee.Note)
		}
		total = Round2(total + line.Fee.Amount)
	}
	if dep != nil {
		total = Round2(total + dep.Fee)
	}
	return domain.Resolved(total)
}
