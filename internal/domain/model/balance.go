package model

import "github.com/shopspring/decimal"

// BalanceInfo is the normalized result of a provider's user-info endpoint.
// Quota and UsedQuota are only meaningful when Success is true; Error is set
// otherwise.
type BalanceInfo struct {
	Success   bool
	Quota     decimal.Decimal
	UsedQuota decimal.Decimal
	Display   string
	Error     string
}

func FailedBalance(reason string) BalanceInfo {
	return BalanceInfo{Success: false, Error: reason}
}

type CheckInOutcome struct {
	OK      bool
	Balance *BalanceInfo
	Reason  string
}

// UsableBalance returns the balance when the read succeeded.
func (o CheckInOutcome) UsableBalance() (BalanceInfo, bool) {
	if o.Balance == nil || !o.Balance.Success {
		return BalanceInfo{}, false
	}
	return *o.Balance, true
}
