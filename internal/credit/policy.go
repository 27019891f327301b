package credit

import "github.com/shopspring/decimal"

// Policy evaluates a proposed credit sale against a customer's limit. The
// evaluation is advisory: the cashier sees the warning and decides, and the
// ledger records whatever was decided. A limit of zero means no limit.
type Policy struct{}

// CheckResult describes how a proposed sale relates to the limit.
type CheckResult struct {
	WithinLimit      bool            `json:"within_limit"`
	Available        decimal.Decimal `json:"available"`
	ProjectedBalance decimal.Decimal `json:"projected_balance"`
}

// Check projects the balance after a credit sale of amount.
func (Policy) Check(limit, balance, amount decimal.Decimal) CheckResult {
	projected := balance.Add(amount)
	if limit.IsZero() {
		return CheckResult{WithinLimit: true, Available: decimal.Zero, ProjectedBalance: projected}
	}
	available := limit.Sub(balance)
	if available.IsNegative() {
		available = decimal.Zero
	}
	return CheckResult{
		WithinLimit:      projected.LessThanOrEqual(limit),
		Available:        available,
		ProjectedBalance: projected,
	}
}
