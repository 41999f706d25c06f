package domain

import (
	"fmt"
	"time"
)

// Transaction kinds present in upstream exports.
const (
	TxnPOSPurchase         = "pos_purchase"
	TxnAirtimePurchase     = "airtime_purchase"
	TxnElectricityPurchase = "electricity_purchase"
	TxnThirdPartyPayment   = "third_party_payment"
	TxnATMWithdrawal       = "atm_withdrawal"
	TxnEFTTransfer         = "eft_transfer"
	TxnCashout             = "cashout"
	TxnCashDeposit         = "cash_deposit"
	TxnIncome              = "income"
)

// Channels a transaction can arrive on.
const (
	ChannelOnline = "online"
	ChannelApp    = "app"
	ChannelUSSD   = "ussd"
	ChannelATM    = "atm"
	ChannelPOS    = "pos"
	ChannelBranch = "branch"
)

// ATM owner values. OwnerOnUs is the bank's own fleet, OwnerOffUs is
// any other bank's machine.
const (
	OwnerOnUs  = "on_us"
	OwnerOffUs = "off_us"
)

// EFT destination scopes.
const (
	TransferInternal = "internal"
	TransferExternal = "external"
)

// MerchantRetailCashout marks a POS purchase rung up as cash-back at
// the till. Feature building folds these into the cashout counts.
const MerchantRetailCashout = "retail_cashout"

// Transaction is a single customer transaction for one statement
// month. Amount is negative for inflows (income) and positive for
// spend, matching the upstream export convention.
type Transaction struct {
	ID            string    `json:"transaction_id" yaml:"transaction_id"`
	CustomerID    string    `json:"customer_id" yaml:"customer_id"`
	Kind          string    `json:"transaction_type" yaml:"transaction_type"`
	Amount        float64   `json:"amount" yaml:"amount"`
	Channel       string    `json:"channel" yaml:"channel"`
	ATMOwner      string    `json:"atm_owner,omitempty" yaml:"atm_owner,omitempty"`
	TransferScope string    `json:"transfer_scope,omitempty" yaml:"transfer_scope,omitempty"`
	Merchant      string    `json:"merchant,omitempty" yaml:"merchant,omitempty"`
	Timestamp     time.Time `json:"timestamp" yaml:"timestamp"`
}

var validTxnKinds = map[string]bool{
	TxnPOSPurchase:         true,
	TxnAirtimePurchase:     true,
	TxnElectricityPurchase: true,
	TxnThirdPartyPayment:   true,
	TxnATMWithdrawal:       true,
	TxnEFTTransfer:         true,
	TxnCashout:             true,
	TxnCashDeposit:         true,
	TxnIncome:              true,
}

// Validate checks the transaction record for schema violations.
func (t *Transaction) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("transaction: id is required")
	}
	if t.CustomerID == "" {
		return fmt.Errorf("transaction %s: customer_id is required", t.ID)
	}
	if !validTxnKinds[t.Kind] {
		return fmt.Errorf("transaction %s: unknown type %q", t.ID, t.Kind)
	}
	if t.Kind == TxnATMWithdrawal {
		switch t.ATMOwner {
		case OwnerOnUs, OwnerOffUs:
		default:
			return fmt.Errorf("transaction %s: atm withdrawal needs atm_owner on_us or off_us, got %q", t.ID, t.ATMOwner)
		}
	}
	if t.Kind == TxnEFTTransfer {
		switch t.TransferScope {
		case TransferInternal, TransferExternal:
		default:
			return fmt.Errorf("transaction %s: eft transfer needs transfer_scope internal or external, got %q", t.ID, t.TransferScope)
		}
	}
	return nil
}

// IsDigital reports whether the transaction is a digital payment
// kind. Cash movement at an ATM, the till or the branch counter is
// never digital.
func (t *Transaction) IsDigital() bool {
	switch t.Kind {
	case TxnPOSPurchase, TxnAirtimePurchase, TxnElectricityPurchase, TxnThirdPartyPayment, TxnEFTTransfer:
		return true
	}
	return false
}

// IsPayment reports whether the transaction counts as a payment,
// which is everything except income and cash deposits.
func (t *Transaction) IsPayment() bool {
	switch t.Kind {
	case TxnIncome, TxnCashDeposit:
		return false
	}
	return true
}

// IsCashout reports whether the transaction is till cash-back, either
// an explicit cashout or a POS purchase at the retail cash-back
// merchant code.
func (t *Transaction) IsCashout() bool {
	if t.Kind == TxnCashout {
		return true
	}
	return t.Kind == TxnPOSPurchase && t.Merchant == MerchantRetailCashout
}

// IsDigitalChannel reports whether the transaction arrived on a
// self-service digital channel.
func (t *Transaction) IsDigitalChannel() bool {
	switch t.Channel {
	case ChannelOnline, ChannelApp, ChannelUSSD:
		return true
	}
	return false
}
