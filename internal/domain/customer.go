package domain

import "fmt"

// Segment classifies a customer for fee eligibility purposes.
type Segment string

const (
	SegmentIndividual Segment = "individual"
	SegmentSME        Segment = "sme"
	SegmentBusiness   Segment = "business"
)

// Residency values accepted on customer records.
const (
	ResidencyNamibian    = "namibian_resident"
	ResidencyNonResident = "non_resident"
)

// Customer is a bank customer profile as loaded from upstream data.
// AnnualTurnover is nil when turnover is not on file; the deposit fee
// rules treat that as "unknown", never as zero.
type Customer struct {
	ID                 string   `json:"customer_id" yaml:"customer_id"`
	Age                int      `json:"age" yaml:"age"`
	Residency          string   `json:"residency" yaml:"residency"`
	IncomeGrossMonthly float64  `json:"income_gross_monthly" yaml:"income_gross_monthly"`
	Segment            Segment  `json:"customer_segment" yaml:"customer_segment"`
	AccountCategory    string   `json:"account_category" yaml:"account_category"`
	AccountTypeID      string   `json:"account_type_id" yaml:"account_type_id"`
	AnnualTurnover     *float64 `json:"annual_turnover,omitempty" yaml:"annual_turnover,omitempty"`
}

// Validate checks the customer record for schema violations.
// Upstream loaders call this and fail fast rather than let bad
// records reach the engines.
func (c *Customer) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("customer: id is required")
	}
	if c.Age < 0 {
		return fmt.Errorf("customer %s: age must not be negative", c.ID)
	}
	switch c.Segment {
	case SegmentIndividual, SegmentSME, SegmentBusiness:
	default:
		return fmt.Errorf("customer %s: unknown segment %q", c.ID, c.Segment)
	}
	switch c.Residency {
	case ResidencyNamibian, ResidencyNonResident:
	default:
		return fmt.Errorf("customer %s: unknown residency %q", c.ID, c.Residency)
	}
	if c.IncomeGrossMonthly < 0 {
		return fmt.Errorf("customer %s: income must not be negative", c.ID)
	}
	if c.AnnualTurnover != nil && *c.AnnualTurnover < 0 {
		return fmt.Errorf("customer %s: annual turnover must not be negative", c.ID)
	}
	return nil
}
