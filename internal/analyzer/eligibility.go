package analyzer

import (
	"fmt"

	"github.com/opensource-finance/heron/internal/domain"
)

// CheckEligibility runs every configured gate and collects the
// failures. Zero-valued gates are disabled; an empty residency or
// segment list admits everyone.
func CheckEligibility(rule domain.EligibilityRule, c *domain.Customer) domain.EligibilityStatus {
	var reasons []string

	if rule.MinAge > 0 && c.Age < rule.MinAge {
		reasons = append(reasons, fmt.Sprintf("age %d is below the minimum %d", c.Age, rule.MinAge))
	}
	if rule.MaxAge > 0 && c.Age > rule.MaxAge {
		reasons = append(reasons, fmt.Sprintf("age %d is above the maximum %d", c.Age, rule.MaxAge))
	}

	if len(rule.Residencies) > 0 && !contains(rule.Residencies, c.Residency) {
		reasons = append(reasons, fmt.Sprintf("residency %s is not accepted", c.Residency))
	}

	if rule.MinMonthlyIncome > 0 && c.IncomeGrossMonthly < rule.MinMonthlyIncome {
		reasons = append(reasons, fmt.Sprintf("monthly income N$%.2f is below the minimum N$%.2f", c.IncomeGrossMonthly, rule.MinMonthlyIncome))
	}
	if rule.MaxMonthlyIncome > 0 && c.IncomeGrossMonthly > rule.MaxMonthlyIncome {
		reasons = append(reasons, fmt.Sprintf("monthly income N$%.2f is above the maximum N$%.2f", c.IncomeGrossMonthly, rule.MaxMonthlyIncome))
	}

	if len(rule.Segments) > 0 && !contains(rule.Segments, string(c.Segment)) {
		reasons = append(reasons, fmt.Sprintf("segment %s is not accepted", c.Segment))
	}

	return domain.EligibilityStatus{
		Eligible: len(reasons) == 0,
		Reasons:  reasons,
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
