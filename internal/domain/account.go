package domain

import "fmt"

// Fee rule kinds supported by the tariff engine.
type FeeRuleType string

const (
	// FeeFlatPerEvent charges unit_fee for every counted event.
	FeeFlatPerEvent FeeRuleType = "flat_per_event"
	// FeePerStep charges step_fee per started step of events beyond
	// the free allowance.
	FeePerStep FeeRuleType = "per_step"
	// FeeBasePlusStepCap charges a base fee plus step_fee per started
	// step beyond the free allowance, capped at cap. Zero events cost
	// nothing.
	FeeBasePlusStepCap FeeRuleType = "base_plus_step_cap"
	// FeeFixedMonthly is the account's monthly admin fee. It ignores
	// usage entirely.
	FeeFixedMonthly FeeRuleType = "fixed_monthly"
)

// FeeRule prices one usage dimension of an account. FeatureKey names
// the count in the feature vector the rule reads. Parameters not used
// by the rule's type are ignored.
type FeeRule struct {
	Kind       FeeRuleType `yaml:"kind" json:"kind" validate:"required,oneof=flat_per_event per_step base_plus_step_cap fixed_monthly"`
	FeatureKey string      `yaml:"feature_key" json:"feature_key"`
	Label      string      `yaml:"label" json:"label" validate:"required"`
	UnitFee    float64     `yaml:"unit_fee" json:"unit_fee" validate:"gte=0"`
	FreeUnits  int         `yaml:"free_units" json:"free_units" validate:"gte=0"`
	StepSize   int         `yaml:"step_size" json:"step_size" validate:"gte=0"`
	StepFee    float64     `yaml:"step_fee" json:"step_fee" validate:"gte=0"`
	BaseFee    float64     `yaml:"base_fee" json:"base_fee" validate:"gte=0"`
	Cap        float64     `yaml:"cap" json:"cap" validate:"gte=0"`
}

// DepositRule prices cash deposits with a turnover gate. Individuals
// never pay; SME and business customers pay FlatFee per deposit event
// only once their annual turnover is on file and exceeds
// TurnoverThreshold.
type DepositRule struct {
	FlatFee           float64 `yaml:"flat_fee" json:"flat_fee" validate:"gte=0"`
	TurnoverThreshold float64 `yaml:"turnover_threshold" json:"turnover_threshold" validate:"gte=0"`
}

// Deposit eligibility outcomes.
type DepositEligibility string

const (
	DepositIndividual        DepositEligibility = "individual"
	DepositSMEBelowThreshold DepositEligibility = "sme_below_threshold"
	DepositSMEAboveThreshold DepositEligibility = "sme_above_threshold"
	DepositUnknown           DepositEligibility = "unknown"
)

// EligibilityRule gates who may hold an account. Zero values disable
// the corresponding check; an empty Residencies list admits everyone.
type EligibilityRule struct {
	MinAge           int      `yaml:"min_age" json:"min_age" validate:"gte=0"`
	MaxAge           int      `yaml:"max_age" json:"max_age" validate:"gte=0"`
	Residencies      []string `yaml:"residencies" json:"residencies"`
	MinMonthlyIncome float64  `yaml:"min_monthly_income" json:"min_monthly_income" validate:"gte=0"`
	MaxMonthlyIncome float64  `yaml:"max_monthly_income" json:"max_monthly_income" validate:"gte=0"`
	Segments         []string `yaml:"segments" json:"segments"`
}

// FreeTier declares the bundled allowances an account ships with.
// Counts holds per-feature monthly allowances, Included flags
// unconditional perks. The KPI profile's benefit definitions read
// these by name.
type FreeTier struct {
	Counts   map[string]int  `yaml:"counts" json:"counts"`
	Included map[string]bool `yaml:"included" json:"included"`
}

// AccountConfig is one product on the comparison shelf. Priority
// breaks ties when totals are equal, lower number wins.
type AccountConfig struct {
	ID          string          `yaml:"id" json:"id" validate:"required"`
	Name        string          `yaml:"name" json:"name" validate:"required"`
	Class       string          `yaml:"class" json:"class"`
	Priority    int             `yaml:"priority" json:"priority" validate:"gte=0"`
	MonthlyFee  float64         `yaml:"monthly_fee" json:"monthly_fee" validate:"gte=0"`
	FeeRules    []FeeRule       `yaml:"fee_rules" json:"fee_rules" validate:"dive"`
	DepositRule *DepositRule    `yaml:"deposit_rule" json:"deposit_rule,omitempty"`
	Eligibility EligibilityRule `yaml:"eligibility" json:"eligibility"`
	KPIProfile  string          `yaml:"kpi_profile" json:"kpi_profile"`
	FreeTier    FreeTier        `yaml:"free_tier" json:"free_tier"`
}

// Validate checks cross-field constraints the struct tags cannot
// express.
func (a *AccountConfig) Validate() error {
	for i, r := range a.FeeRules {
		switch r.Kind {
		case FeePerStep, FeeBasePlusStepCap:
			if r.StepSize <= 0 {
				return fmt.Errorf("account %s: fee rule %d (%s): step_size must be positive", a.ID, i, r.Label)
			}
		case FeeFlatPerEvent, FeeFixedMonthly:
		default:
			return fmt.Errorf("account %s: fee rule %d (%s): unknown kind %q", a.ID, i, r.Label, r.Kind)
		}
		if r.Kind != FeeFixedMonthly && r.FeatureKey == "" {
			return fmt.Errorf("account %s: fee rule %d (%s): feature_key is required", a.ID, i, r.Label)
		}
	}
	if e := a.Eligibility; e.MaxAge > 0 && e.MinAge > e.MaxAge {
		return fmt.Errorf("account %s: eligibility min_age %d exceeds max_age %d", a.ID, e.MinAge, e.MaxAge)
	}
	return nil
}
