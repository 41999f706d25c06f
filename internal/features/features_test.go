package features

import (
	"testing"

	"github.com/opensource-finance/heron/internal/domain"
)

func txn(kind string, opts ...func(*domain.Transaction)) *domain.Transaction {
	t := &domain.Transaction{CustomerID: "CUST_001", Kind: kind, Amount: 100}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func withOwner(owner string) func(*domain.Transaction) {
	return func(t *domain.Transaction) { t.ATMOwner = owner }
}

func withChannel(ch string) func(*domain.Transaction) {
	return func(t *domain.Transaction) { t.Channel = ch }
}

func withScope(scope string) func(*domain.Transaction) {
	return func(t *domain.Transaction) { t.TransferScope = scope }
}

func withMerchant(m string) func(*domain.Transaction) {
	return func(t *domain.Transaction) { t.Merchant = m }
}

func withAmount(a float64) func(*domain.Transaction) {
	return func(t *domain.Transaction) { t.Amount = a }
}

func TestBuildCounts(t *testing.T) {
	txns := []*domain.Transaction{
		txn(domain.TxnIncome, withAmount(-12000)),
		txn(domain.TxnATMWithdrawal, withOwner(domain.OwnerOnUs), withAmount(500)),
		txn(domain.TxnATMWithdrawal, withOwner(domain.OwnerOffUs), withAmount(300)),
		txn(domain.TxnPOSPurchase, withChannel(domain.ChannelPOS), withAmount(250)),
		txn(domain.TxnPOSPurchase, withMerchant(domain.MerchantRetailCashout), withAmount(400)),
		txn(domain.TxnCashout, withAmount(200)),
		txn(domain.TxnAirtimePurchase, withChannel(domain.ChannelApp), withAmount(50)),
		txn(domain.TxnElectricityPurchase, withChannel(domain.ChannelUSSD), withAmount(300)),
		txn(domain.TxnThirdPartyPayment, withChannel(domain.ChannelOnline), withAmount(150)),
		txn(domain.TxnEFTTransfer, withScope(domain.TransferInternal), withAmount(800)),
		txn(domain.TxnEFTTransfer, withScope(domain.TransferExternal), withAmount(600)),
		txn(domain.TxnCashDeposit, withAmount(5000)),
	}

	f := Build(txns)

	if f.TxnCount != 12 {
		t.Errorf("TxnCount = %d, expected 12", f.TxnCount)
	}
	if f.TotalInflow != 12000 {
		t.Errorf("TotalInflow = %v, expected 12000 (reported positive)", f.TotalInflow)
	}
	if f.TotalOutflow != 8550 {
		t.Errorf("TotalOutflow = %v, expected 8550", f.TotalOutflow)
	}
	if f.ATMWithdrawalCount != 2 {
		t.Errorf("ATMWithdrawalCount = %d, expected 2", f.ATMWithdrawalCount)
	}
	if f.OnUsATMWithdrawalCount != 1 {
		t.Errorf("OnUsATMWithdrawalCount = %d, expected 1", f.OnUsATMWithdrawalCount)
	}
	if f.CashDepositCount != 1 {
		t.Errorf("CashDepositCount = %d, expected 1", f.CashDepositCount)
	}
	if f.UtilityCount != 2 {
		t.Errorf("UtilityCount = %d, expected 2", f.UtilityCount)
	}
	if f.ThirdPartyPaymentCount != 1 {
		t.Errorf("ThirdPartyPaymentCount = %d, expected 1", f.ThirdPartyPaymentCount)
	}
	if f.POSPurchaseCount != 2 {
		t.Errorf("POSPurchaseCount = %d, expected 2", f.POSPurchaseCount)
	}
	if f.EFTToOnUsCount != 1 || f.EFTToOtherCount != 1 {
		t.Errorf("EFT counts = %d/%d, expected 1/1", f.EFTToOnUsCount, f.EFTToOtherCount)
	}

	// cashout = explicit cashout + POS purchase at the retail cash-back merchant
	if f.CashoutCount != 2 {
		t.Errorf("CashoutCount = %d, expected 2", f.CashoutCount)
	}

	// digital kinds: 2 pos + airtime + electricity + third party + 2 eft = 7
	if f.DigitalTxnCount != 7 {
		t.Errorf("DigitalTxnCount = %d, expected 7", f.DigitalTxnCount)
	}

	// payments exclude income and the cash deposit
	if f.TotalPayments != 10 {
		t.Errorf("TotalPayments = %d, expected 10", f.TotalPayments)
	}

	if f.DigitalRatio != round4(7.0/12.0) {
		t.Errorf("DigitalRatio = %v, expected %v", f.DigitalRatio, round4(7.0/12.0))
	}

	if f.OnlineChannelUsed != 1 {
		t.Errorf("OnlineChannelUsed = %d, expected 1", f.OnlineChannelUsed)
	}
}

func TestBuildEmptyMonth(t *testing.T) {
	f := Build(nil)

	if f.TxnCount != 0 {
		t.Errorf("TxnCount = %d, expected 0", f.TxnCount)
	}
	if f.DigitalRatio != 0 {
		t.Errorf("DigitalRatio = %v, expected 0", f.DigitalRatio)
	}
	if f.BehaviourTag != domain.TagNoActivity {
		t.Errorf("BehaviourTag = %q, expected %q", f.BehaviourTag, domain.TagNoActivity)
	}
}

func TestBehaviourTagPrecedence(t *testing.T) {
	tests := []struct {
		name string
		txns []*domain.Transaction
		want string
	}{
		{
			"cash heavy at forty percent share",
			[]*domain.Transaction{
				txn(domain.TxnATMWithdrawal, withOwner(domain.OwnerOnUs)),
				txn(domain.TxnATMWithdrawal, withOwner(domain.OwnerOnUs)),
				txn(domain.TxnPOSPurchase),
				txn(domain.TxnPOSPurchase),
				txn(domain.TxnPOSPurchase),
			},
			domain.TagCashHeavy,
		},
		{
			"digital first",
			[]*domain.Transaction{
				txn(domain.TxnPOSPurchase),
				txn(domain.TxnEFTTransfer, withScope(domain.TransferInternal)),
				txn(domain.TxnAirtimePurchase),
				txn(domain.TxnATMWithdrawal, withOwner(domain.OwnerOnUs)),
			},
			domain.TagDigitalFirst,
		},
		{
			"utilities focused",
			[]*domain.Transaction{
				txn(domain.TxnAirtimePurchase),
				txn(domain.TxnAirtimePurchase),
				txn(domain.TxnElectricityPurchase),
				txn(domain.TxnATMWithdrawal, withOwner(domain.OwnerOnUs)),
				txn(domain.TxnIncome, withAmount(-9000)),
				txn(domain.TxnCashDeposit),
			},
			domain.TagUtilitiesFocused,
		},
		{
			"mixed usage fallback",
			[]*domain.Transaction{
				txn(domain.TxnPOSPurchase),
				txn(domain.TxnATMWithdrawal, withOwner(domain.OwnerOnUs)),
				txn(domain.TxnIncome, withAmount(-9000)),
				txn(domain.TxnCashDeposit),
			},
			domain.TagMixedUsage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Build(tt.txns)
			if f.BehaviourTag != tt.want {
				t.Errorf("BehaviourTag = %q, expected %q", f.BehaviourTag, tt.want)
			}
		})
	}
}
