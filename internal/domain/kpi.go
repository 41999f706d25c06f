package domain

// Signal comparison operators.
const (
	OpGT  = "gt"
	OpGTE = "gte"
	OpLT  = "lt"
	OpLTE = "lte"
	OpEQ  = "eq"
)

// SignalSpec raises a named signal when the KPI value crosses the
// threshold. Penalty points are deducted from the fit score while the
// signal is active.
type SignalSpec struct {
	Name      string  `yaml:"name" json:"name" validate:"required"`
	Operator  string  `yaml:"operator" json:"operator" validate:"required,oneof=gt gte lt lte eq"`
	Threshold float64 `yaml:"threshold" json:"threshold"`
	Penalty   float64 `yaml:"penalty" json:"penalty" validate:"gte=0"`
}

// ExcessUsageSpec prices usage beyond a bundled allowance as a KPI.
// The allowance count comes from the account free tier by name;
// every started step of excess events costs StepFee.
type ExcessUsageSpec struct {
	UsageKey      string  `yaml:"usage_key" json:"usage_key" validate:"required"`
	AllowanceName string  `yaml:"allowance_name" json:"allowance_name" validate:"required"`
	StepSize      int     `yaml:"step_size" json:"step_size" validate:"gt=0"`
	StepFee       float64 `yaml:"step_fee" json:"step_fee" validate:"gte=0"`
}

// KPIDefinition computes one indicator from the feature vector.
// Formula is an arithmetic expression over the names listed in
// Inputs plus the profile's constants and the account free tier
// counts. When ExcessUsage is set the formula is ignored and the
// indicator is the monetary cost of usage beyond the allowance.
// Insight is a message template rendered when the signal fires; it
// may reference {kpi}, {value} and {threshold}.
type KPIDefinition struct {
	Name        string           `yaml:"name" json:"name" validate:"required"`
	Formula     string           `yaml:"formula" json:"formula"`
	Inputs      []string         `yaml:"inputs" json:"inputs"`
	ExcessUsage *ExcessUsageSpec `yaml:"excess_usage" json:"excess_usage,omitempty"`
	Signal      *SignalSpec      `yaml:"signal" json:"signal,omitempty"`
	Insight     string           `yaml:"insight" json:"insight"`
}

// BenefitDef maps a bundled perk to the usage it offsets. Counted
// benefits read the allowance from the account free tier by
// AllowanceName and report how much remains; flag benefits only
// report inclusion.
type BenefitDef struct {
	Name          string `yaml:"name" json:"name" validate:"required"`
	AllowanceName string `yaml:"allowance_name" json:"allowance_name"`
	UsageKey      string `yaml:"usage_key" json:"usage_key"`
}

// KPIProfile bundles the indicators, signals and benefit mappings for
// one account product. Constants are extra names the formulas may
// reference beyond the feature vector.
type KPIProfile struct {
	Name           string             `yaml:"name" json:"name" validate:"required"`
	BasePoints     float64            `yaml:"base_points" json:"base_points"`
	Constants      map[string]float64 `yaml:"constants" json:"constants"`
	KPIs           []KPIDefinition    `yaml:"kpis" json:"kpis" validate:"dive"`
	Benefits       []BenefitDef       `yaml:"benefits" json:"benefits" validate:"dive"`
	GoodFitMessage string             `yaml:"good_fit_message" json:"good_fit_message"`
}
