package domain

// FlagTurnoverRequired is raised when an SME or business customer has
// cash deposits but no annual turnover on file, so the deposit fee
// cannot be resolved.
const FlagTurnoverRequired = "turnover_required_for_deposit_fee"

// FeeAmount is a money value that knows whether it could be computed.
// An unavailable amount is not zero; renderers print NA and
// comparisons skip it.
type FeeAmount struct {
	Amount    float64 `json:"amount"`
	Available bool    `json:"available"`
	Note      string  `json:"note,omitempty"`
}

// Resolved wraps a computed amount.
func Resolved(amount float64) FeeAmount {
	return FeeAmount{Amount: amount, Available: true}
}

// Unavailable marks an amount that could not be computed, with the
// reason it could not.
func Unavailable(note string) FeeAmount {
	return FeeAmount{Available: false, Note: note}
}

// FeeLine is one priced usage dimension in a fit report.
type FeeLine struct {
	Label      string    `json:"label"`
	FeatureKey string    `json:"feature_key,omitempty"`
	Events     int       `json:"events"`
	Fee        FeeAmount `json:"fee"`
}

// DepositFee is the resolved cash deposit charge for one account.
type DepositFee struct {
	Status     DepositEligibility `json:"status"`
	EventCount int                `json:"event_count"`
	Fee        float64            `json:"fee"`
}

// KPIValue is one computed indicator. Available is false when the
// formula failed to evaluate; Reason then says why.
type KPIValue struct {
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
	Available bool    `json:"available"`
	Reason    string  `json:"reason,omitempty"`
}

// BenefitUsage reports how a bundled perk was consumed this month.
// For counted benefits Remaining is allowance minus usage, floored at
// zero. Flag benefits set Included only.
type BenefitUsage struct {
	Name      string `json:"name"`
	Included  bool   `json:"included"`
	Counted   bool   `json:"counted"`
	Allowance int    `json:"allowance,omitempty"`
	Used      int    `json:"used,omitempty"`
	Remaining int    `json:"remaining,omitempty"`
}

// KPISummary is the KPI engine's output for one customer and account.
// Values keeps the profile's definition order.
type KPISummary struct {
	ProfileName string         `json:"profile_name,omitempty"`
	Values      []KPIValue     `json:"values,omitempty"`
	Signals     []string       `json:"signals,omitempty"`
	FitScore    float64        `json:"fit_score"`
	Insights    []string       `json:"insights,omitempty"`
	Benefits    []BenefitUsage `json:"benefits,omitempty"`
}

// EligibilityStatus says whether a customer may hold an account and,
// if not, which checks failed.
type EligibilityStatus struct {
	Eligible bool     `json:"eligible"`
	Reasons  []string `json:"reasons,omitempty"`
}

// FitReport is the full costing of one customer against one account.
// VariableFees keeps the account's fee rule order. Total is
// unavailable whenever any component is.
type FitReport struct {
	CustomerID   string            `json:"customer_id"`
	AccountID    string            `json:"account_id"`
	AccountName  string            `json:"account_name"`
	Segment      Segment           `json:"segment"`
	Eligibility  EligibilityStatus `json:"eligibility"`
	FixedFee     float64           `json:"fixed_fee"`
	VariableFees []FeeLine         `json:"variable_fees"`
	DepositFee   *DepositFee       `json:"deposit_fee,omitempty"`
	Total        FeeAmount         `json:"total"`
	KPI          KPISummary        `json:"kpi"`
	Flags        []string          `json:"flags,omitempty"`
	Features     *Features         `json:"features,omitempty"`
}

// Recommendation names the cheapest eligible account with a resolved
// total. AccountID is empty when no account qualifies.
type Recommendation struct {
	AccountID   string  `json:"account_id"`
	AccountName string  `json:"account_name,omitempty"`
	Total       float64 `json:"total"`
	Reason      string  `json:"reason"`
}

// Comparison is one customer costed against every account on the
// shelf. Reports keeps the shelf order.
type Comparison struct {
	CustomerID     string          `json:"customer_id"`
	Reports        []FitReport     `json:"reports"`
	Recommendation *Recommendation `json:"recommendation,omitempty"`
}
