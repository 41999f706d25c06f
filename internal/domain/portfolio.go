package domain

import "time"

// FeePain aggregates recommended-account totals across a portfolio.
// Customers whose total is unavailable are excluded from the average
// rather than counted as zero.
type FeePain struct {
	TotalCost       float64 `json:"total_cost"`
	AvgCost         float64 `json:"avg_cost"`
	CostedCustomers int     `json:"costed_customers"`
}

// Aggregate is the portfolio-level rollup.
type Aggregate struct {
	CustomerCount        int            `json:"customer_count"`
	RecommendationCounts map[string]int `json:"recommendation_counts"`
	SignalCounts         map[string]int `json:"signal_counts"`
	BehaviourTagCounts   map[string]int `json:"behaviour_tag_counts"`
	DepositStatusCounts  map[string]int `json:"deposit_status_counts"`
	AllowancePressure    int            `json:"allowance_pressure"`
	FlaggedCustomers     int            `json:"flagged_customers"`
	AvgDigitalRatio      float64        `json:"avg_digital_ratio"`
	FeePain              FeePain        `json:"fee_pain"`
}

// TargetEntry is one customer on a ranked outreach list. Primary and
// Secondary carry the metrics the list was sorted by; Reason is a
// short console-ready explanation.
type TargetEntry struct {
	CustomerID string  `json:"customer_id"`
	HasSignal  bool    `json:"has_signal"`
	Primary    float64 `json:"primary"`
	Secondary  float64 `json:"secondary"`
	Reason     string  `json:"reason"`
}

// Targets holds the ranked outreach lists built from a portfolio run.
type Targets struct {
	Upgrade      []TargetEntry `json:"upgrade"`
	CashoutShift []TargetEntry `json:"cashout_shift"`
	DigitalShift []TargetEntry `json:"digital_shift"`
}

// PortfolioSummary is a full portfolio run result. Customers keeps
// the input order of the dataset.
type PortfolioSummary struct {
	Customers []Comparison `json:"customers"`
	Aggregate Aggregate    `json:"aggregate"`
	Targets   Targets      `json:"targets"`
}

// Dataset describes one stored customer/transaction batch.
type Dataset struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	CustomerCount    int       `json:"customer_count"`
	TransactionCount int       `json:"transaction_count"`
	CreatedAt        time.Time `json:"created_at"`
}

// Portfolio run lifecycle states.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// PortfolioRun tracks one asynchronous portfolio evaluation over a
// stored dataset.
type PortfolioRun struct {
	ID          string            `json:"id"`
	DatasetID   string            `json:"dataset_id"`
	Status      RunStatus         `json:"status"`
	RequestedAt time.Time         `json:"requested_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	Summary     *PortfolioSummary `json:"summary,omitempty"`
	Error       string            `json:"error,omitempty"`
}
