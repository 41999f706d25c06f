package config

import "github.com/opensource-finance/heron/internal/domain"

// Builtin returns the bundled shelf, so the CLI runs without a config
// directory: the bundled basic account with its KPI profile and the
// pay-as-you-use account with the turnover-gated deposit fee. Callers
// get fresh values on every call.
func Builtin() ([]*domain.AccountConfig, []*domain.KPIProfile) {
	accounts := []*domain.AccountConfig{
		{
			ID:         "basic_banking",
			Name:       "Basic Banking",
			Class:      "current",
			Priority:   1,
			MonthlyFee: 5,
			FeeRules: []domain.FeeRule{
				{
					Kind:       domain.FeePerStep,
					FeatureKey: "onus_atm_withdrawal_count",
					Label:      "ATM withdrawals",
					FreeUnits:  3,
					StepSize:   1,
					StepFee:    10,
				},
				{
					Kind:       domain.FeeBasePlusStepCap,
					FeatureKey: "third_party_payment_count",
					Label:      "Third party payments",
					BaseFee:    7.20,
					StepSize:   1,
					StepFee:    13.70,
					Cap:        35,
				},
				{
					Kind:       domain.FeeFlatPerEvent,
					FeatureKey: "cashout_count",
					Label:      "Retail cashouts",
					UnitFee:    2,
				},
			},
			Eligibility: domain.EligibilityRule{
				MinAge:           16,
				MaxMonthlyIncome: 8000,
			},
			KPIProfile: "basic_banking",
			FreeTier: domain.FreeTier{
				Counts: map[string]int{
					"free_onus_atm_withdrawals": 3,
				},
				Included: map[string]bool{
					"unlimited_card_swipes": true,
					"online_banking":        true,
				},
			},
		},
		{
			ID:         "silver_payu",
			Name:       "Silver Pay-As-You-Use",
			Class:      "current",
			Priority:   2,
			MonthlyFee: 30,
			FeeRules: []domain.FeeRule{
				{
					Kind:       domain.FeePerStep,
					FeatureKey: "onus_atm_withdrawal_count",
					Label:      "On-us ATM withdrawals",
					FreeUnits:  0,
					StepSize:   1,
					StepFee:    10,
				},
				{
					Kind:       domain.FeeFlatPerEvent,
					FeatureKey: "eft_to_other_count",
					Label:      "EFT to other banks",
					UnitFee:    5,
				},
				{
					Kind:       domain.FeeFlatPerEvent,
					FeatureKey: "third_party_payment_count",
					Label:      "Third party payments",
					UnitFee:    2.50,
				},
				{
					Kind:       domain.FeeFlatPerEvent,
					FeatureKey: "pos_purchase_count",
					Label:      "POS purchases",
					UnitFee:    2,
				},
			},
			DepositRule: &domain.DepositRule{
				FlatFee:           25,
				TurnoverThreshold: 1300000,
			},
			Eligibility: domain.EligibilityRule{
				MinAge: 18,
			},
		},
	}

	profiles := []*domain.KPIProfile{
		{
			Name:       "basic_banking",
			BasePoints: 100,
			KPIs: []domain.KPIDefinition{
				{
					Name:    "paid_rail_dependency_ratio",
					Formula: "charged_txn_count / max(total_payments, 1)",
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
					Name:    "atm_usage",
					Formula: "atm_withdrawal_count",
					Signal: &domain.SignalSpec{
						Name:      "cashout_shift_candidate",
						Operator:  domain.OpGT,
						Threshold: 3,
						Penalty:   5,
					},
					Insight: "{value} ATM withdrawals this month, retail cashout costs less",
				},
				{
					Name:    "digital_ratio",
					Formula: "digital_ratio",
					Signal: &domain.SignalSpec{
						Name:      "digital_shift_candidate",
						Operator:  domain.OpLT,
						Threshold: 0.5,
						Penalty:   10,
					},
					Insight: "Digital share {value} is below {threshold}",
				},
			},
			Benefits: []domain.BenefitDef{
				{
					Name:          "free_atm_withdrawals",
					AllowanceName: "free_onus_atm_withdrawals",
					UsageKey:      "onus_atm_withdrawal_count",
				},
				{
					Name:          "unlimited_card_swipes",
					AllowanceName: "unlimited_card_swipes",
				},
			},
			GoodFitMessage: "Current account fits observed usage",
		},
	}

	return accounts, profiles
}
