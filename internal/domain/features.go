package domain

// Behaviour tags assigned from the monthly feature vector.
const (
	TagNoActivity       = "no_activity"
	TagCashHeavy        = "cash_heavy"
	TagDigitalFirst     = "digital_first"
	TagUtilitiesFocused = "utilities_focused"
	TagMixedUsage       = "mixed_usage"
)

// Features is the per-customer monthly usage vector every engine
// reads. Counts are whole events. DigitalRatio is digital
// transactions over all transactions, rounded to four decimals.
// ChargedTxnCount is zero until the fee pipeline fills it in, since
// it depends on the account tariff.
type Features struct {
	TxnCount               int     `json:"txn_count"`
	TotalInflow            float64 `json:"total_inflow"`
	TotalOutflow           float64 `json:"total_outflow"`
	ATMWithdrawalCount     int     `json:"atm_withdrawal_count"`
	CashDepositCount       int     `json:"cash_deposit_count"`
	UtilityCount           int     `json:"utility_count"`
	ThirdPartyPaymentCount int     `json:"third_party_payment_count"`
	DigitalRatio           float64 `json:"digital_ratio"`
	BehaviourTag           string  `json:"behaviour_tag"`
	OnUsATMWithdrawalCount int     `json:"onus_atm_withdrawal_count"`
	CashoutCount           int     `json:"cashout_count"`
	DigitalTxnCount        int     `json:"digital_txn_count"`
	TotalPayments          int     `json:"total_payments"`
	POSPurchaseCount       int     `json:"pos_purchase_count"`
	ChargedTxnCount        int     `json:"charged_txn_count"`
	OnlineChannelUsed      int     `json:"online_channel_used"`
	EFTToOnUsCount         int     `json:"eft_to_onus_count"`
	EFTToOtherCount        int     `json:"eft_to_other_count"`
}

// Vars exposes the numeric features under their wire names for
// formula evaluation. The behaviour tag is a label, not a number, so
// it stays out.
func (f *Features) Vars() map[string]float64 {
	return map[string]float64{
		"txn_count":                  float64(f.TxnCount),
		"total_inflow":               f.TotalInflow,
		"total_outflow":              f.TotalOutflow,
		"atm_withdrawal_count":       float64(f.ATMWithdrawalCount),
		"cash_deposit_count":         float64(f.CashDepositCount),
		"utility_count":              float64(f.UtilityCount),
		"third_party_payment_count":  float64(f.ThirdPartyPaymentCount),
		"digital_ratio":              f.DigitalRatio,
		"onus_atm_withdrawal_count":  float64(f.OnUsATMWithdrawalCount),
		"cashout_count":              float64(f.CashoutCount),
		"digital_txn_count":          float64(f.DigitalTxnCount),
		"total_payments":             float64(f.TotalPayments),
		"pos_purchase_count":         float64(f.POSPurchaseCount),
		"charged_txn_count":          float64(f.ChargedTxnCount),
		"online_channel_used":        float64(f.OnlineChannelUsed),
		"eft_to_onus_count":          float64(f.EFTToOnUsCount),
		"eft_to_other_count":         float64(f.EFTToOtherCount),
	}
}
