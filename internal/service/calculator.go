package service

import (
	"github.com/prestadiario/prestadiario-backend/internal/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// InstallmentPlan is the billing schedule derived from a loan's terms
type InstallmentPlan struct {
	InstallmentCount int32           `json:"installmentCount"`
	InstallmentValue decimal.Decimal `json:"installmentValue"`
	TotalPayable     decimal.Decimal `json:"totalPayable"`
	InterestAmount   decimal.Decimal `json:"interestAmount"`
}

// ScheduledTotal is what the borrower actually pays across all installments.
// It is never below TotalPayable because the installment value rounds up.
func (p InstallmentPlan) ScheduledTotal() decimal.Decimal {
	return p.InstallmentValue.Mul(decimal.NewFromInt32(p.InstallmentCount))
}

// Calculator turns loan terms into installments using the configured policy
type Calculator struct {
	policy domain.CollectionPolicy
}

// NewCalculator creates a Calculator; an invalid policy is rejected
func NewCalculator(policy domain.CollectionPolicy) (*Calculator, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{policy: policy}, nil
}

// Policy returns the policy the calculator was built with
func (c *Calculator) Policy() domain.CollectionPolicy {
	return c.policy
}

// ComputeInstallments computes interest, total and the per-installment value.
// The value is rounded up to a whole currency unit so the lender never
// under-collects.
func (c *Calculator) ComputeInstallments(principal decimal.Decimal, frequency domain.Frequency, ratePercent decimal.Decimal) (InstallmentPlan, error) {
	if !principal.IsPositive() {
		return InstallmentPlan{}, domain.ErrPrincipalNotPositive
	}
	if ratePercent.IsNegative() {
		return InstallmentPlan{}, domain.ErrNegativeRate
	}
	count, err := c.policy.InstallmentCount(frequency)
	if err != nil {
		return InstallmentPlan{}, err
	}

	interest := principal.Mul(ratePercent).Div(hundred)
	total := principal.Add(interest)
	value := total.Div(decimal.NewFromInt(int64(count))).Ceil()

	return InstallmentPlan{
		InstallmentCount: int32(count),
		InstallmentValue: value,
		TotalPayable:     total,
		InterestAmount:   interest,
	}, nil
}

// CanRenew reports whether a loan with pending installments left may be renewed
func (c *Calculator) CanRenew(pending int32) bool {
	return pending >= 0 && int(pending) <= c.policy.RenewalMaxPending
}

// PendingBalance is installment value times pending installments
func PendingBalance(installmentValue decimal.Decimal, pending int32) (decimal.Decimal, error) {
	if installmentValue.IsNegative() || pending < 0 {
		return decimal.Zero, domain.ErrNegativeOperand
	}
	return installmentValue.Mul(decimal.NewFromInt32(pending)), nil
}

// PendingInstallments is total minus paid
func PendingInstallments(total, paid int32) (int32, error) {
	if total < 0 || paid < 0 {
		return 0, domain.ErrNegativeOperand
	}
	if paid > total {
		return 0, domain.ErrPaidExceedsTotal
	}
	return total - paid, nil
}

// ProgressPercent returns paid/total as a percentage clamped to [0, 100]
func ProgressPercent(paid, total int32) float64 {
	if total <= 0 || paid <= 0 {
		return 0
	}
	p := float64(paid) / float64(total) * 100
	if p > 100 {
		return 100
	}
	return p
}

// RenewalCashOut is the cash handed to the borrower when a renewal settles the
// outstanding balance. A renewal must always lend more than it settles.
func RenewalCashOut(newPrincipal, outstanding decimal.Decimal) (decimal.Decimal, error) {
	if newPrincipal.LessThanOrEqual(outstanding) {
		return decimal.Zero, domain.ErrRenewalPrincipalTooLow
	}
	return newPrincipal.Sub(outstanding), nil
}
