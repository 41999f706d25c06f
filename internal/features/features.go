// Package features turns a customer's monthly transactions into the
// behaviour feature vector the fee and KPI engines consume.
package features

import (
	"math"

	"github.com/opensource-finance/heron/internal/domain"
)

// Behaviour tag thresholds. The checks run in order: inactivity
// first, then cash share, digital share, utility focus.
const (
	cashHeavyShare    = 0.4
	digitalFirstRatio = 0.7
	utilityFocusCount = 3
)

func round4(x float64) float64 {
	return math.Round(x*10000) / 10000
}

// Build extracts the feature vector from one customer's transactions
// for a single statement month. The input order does not matter; the
// output is deterministic for the same set.
func Build(txns []*domain.Transaction) *domain.Features {
	f := &domain.Features{TxnCount: len(txns)}

	for _, t := range txns {
		if t.Kind == domain.TxnIncome {
			f.TotalInflow += t.Amount
		} else {
			f.TotalOutflow += t.Amount
		}

		switch t.Kind {
		case domain.TxnATMWithdrawal:
			f.ATMWithdrawalCount++
			if t.ATMOwner == domain.OwnerOnUs {
				f.OnUsATMWithdrawalCount++
			}
		case domain.TxnCashDeposit:
			f.CashDepositCount++
		case domain.TxnAirtimePurchase, domain.TxnElectricityPurchase:
			f.UtilityCount++
		case domain.TxnThirdPartyPayment:
			f.ThirdPartyPaymentCount++
		case domain.TxnPOSPurchase:
			f.POSPurchaseCount++
		case domain.TxnEFTTransfer:
			switch t.TransferScope {
			case domain.TransferInternal:
				f.EFTToOnUsCount++
			case domain.TransferExternal:
				f.EFTToOtherCount++
			}
		}

		if t.IsDigital() {
			f.DigitalTxnCount++
		}
		if t.IsPayment() {
			f.TotalPayments++
		}
		if t.IsCashout() {
			f.CashoutCount++
		}
		if t.IsDigitalChannel() {
			f.OnlineChannelUsed = 1
		}
	}

	// Income rows carry negative amounts in the export convention;
	// report inflow as a positive figure.
	f.TotalInflow = math.Abs(f.TotalInflow)

	if f.TxnCount > 0 {
		f.DigitalRatio = round4(float64(f.DigitalTxnCount) / float64(f.TxnCount))
	}

	f.BehaviourTag = behaviourTag(f)
	return f
}

// behaviourTag classifies the month with explainable rules.
func behaviourTag(f *domain.Features) string {
	switch {
	case f.TxnCount == 0:
		return domain.TagNoActivity
	case float64(f.ATMWithdrawalCount)/float64(max(f.TxnCount, 1)) >= cashHeavyShare:
		return domain.TagCashHeavy
	case f.DigitalRatio >= digitalFirstRatio:
		return domain.TagDigitalFirst
	case f.UtilityCount >= utilityFocusCount:
		return domain.TagUtilitiesFocused
	default:
		return domain.TagMixedUsage
	}
}
