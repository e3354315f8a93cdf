package service

import (
	"errors"
	"testing"

	"github.com/prestadiario/prestadiario-backend/internal/domain"
	"github.com/shopspring/decimal"
)

func newTestCalculator(t *testing.T, weekly, renewalMax int) *Calculator {
	t.Helper()
	policy := domain.DefaultCollectionPolicy()
	policy.Installments[domain.FrequencyWeekly] = weekly
	policy.RenewalMaxPending = renewalMax
	calc, err := NewCalculator(policy)
	if err != nil {
		t.Fatalf("NewCalculator: %v", err)
	}
	return calc
}

func TestComputeInstallments_WeeklyFivepercent(t *testing.T) {
	// 200000 at 5% weekly: interest 10000, total 210000, 4 x 52500
	calc := newTestCalculator(t, 4, 3)

	plan, err := calc.ComputeInstallments(decimal.NewFromInt(200000), domain.FrequencyWeekly, decimal.NewFromInt(5))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !plan.InterestAmount.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("Expected interest 10000, got %s", plan.InterestAmount)
	}
	if !plan.TotalPayable.Equal(decimal.NewFromInt(210000)) {
		t.Errorf("Expected total 210000, got %s", plan.TotalPayable)
	}
	if plan.InstallmentCount != 4 {
		t.Errorf("Expected 4 installments, got %d", plan.InstallmentCount)
	}
	if !plan.InstallmentValue.Equal(decimal.NewFromInt(52500)) {
		t.Errorf("Expected installment 52500, got %s", plan.InstallmentValue)
	}
}

func TestComputeInstallments_TenInstallmentTable(t *testing.T) {
	calc := newTestCalculator(t, 10, 10)

	plan, err := calc.ComputeInstallments(decimal.NewFromInt(200000), domain.FrequencyWeekly, decimal.NewFromInt(5))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if plan.InstallmentCount != 10 || !plan.InstallmentValue.Equal(decimal.NewFromInt(21000)) {
		t.Errorf("Expected 10 x 21000, got %d x %s", plan.InstallmentCount, plan.InstallmentValue)
	}
}

func TestComputeInstallments_RoundsUp(t *testing.T) {
	// 100000 at 5% daily: 105000 / 24 = 4375 exactly; 100001 forces a remainder
	calc := newTestCalculator(t, 4, 3)

	plan, err := calc.ComputeInstallments(decimal.NewFromInt(100001), domain.FrequencyDaily, decimal.NewFromInt(5))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	// 100001 * 1.05 = 105001.05; / 24 = 4375.04375 -> 4376
	if !plan.InstallmentValue.Equal(decimal.NewFromInt(4376)) {
		t.Errorf("Expected 4376, got %s", plan.InstallmentValue)
	}
	if plan.ScheduledTotal().LessThan(plan.TotalPayable) {
		t.Errorf("Scheduled total %s below payable %s", plan.ScheduledTotal(), plan.TotalPayable)
	}
}

func TestComputeInstallments_RoundingInvariant(t *testing.T) {
	calc := newTestCalculator(t, 4, 3)
	principals := []int64{1, 7, 999, 50000, 123457, 200000, 1000003}
	rates := []string{"0", "2.5", "5", "7.75", "19.99", "100"}

	for _, p := range principals {
		for _, r := range rates {
			for _, f := range domain.Frequencies {
				principal := decimal.NewFromInt(p)
				rate := decimal.RequireFromString(r)
				plan, err := calc.ComputeInstallments(principal, f, rate)
				if err != nil {
					t.Fatalf("principal %d rate %s %s: %v", p, r, f, err)
				}
				want := principal.Mul(decimal.NewFromInt(1).Add(rate.Div(decimal.NewFromInt(100))))
				if plan.ScheduledTotal().LessThan(want) {
					t.Errorf("principal %d rate %s %s: %s x %d < %s", p, r, f, plan.InstallmentValue, plan.InstallmentCount, want)
				}
				if !plan.InstallmentValue.Equal(plan.InstallmentValue.Truncate(0)) {
					t.Errorf("installment value %s is not whole", plan.InstallmentValue)
				}
			}
		}
	}
}

func TestComputeInstallments_InvalidArguments(t *testing.T) {
	calc := newTestCalculator(t, 4, 3)
	tests := []struct {
		name      string
		principal decimal.Decimal
		frequency domain.Frequency
		rate      decimal.Decimal
		want      error
	}{
		{"zero principal", decimal.Zero, domain.FrequencyDaily, decimal.NewFromInt(5), domain.ErrPrincipalNotPositive},
		{"negative principal", decimal.NewFromInt(-1), domain.FrequencyDaily, decimal.NewFromInt(5), domain.ErrPrincipalNotPositive},
		{"negative rate", decimal.NewFromInt(1000), domain.FrequencyDaily, decimal.NewFromInt(-1), domain.ErrNegativeRate},
		{"unknown frequency", decimal.NewFromInt(1000), domain.Frequency("mensual"), decimal.NewFromInt(5), domain.ErrInvalidFrequency},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := calc.ComputeInstallments(tt.principal, tt.frequency, tt.rate)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
			if !errors.Is(err, domain.ErrInvalidArgument) {
				t.Errorf("Expected InvalidArgument class, got %v", err)
			}
		})
	}
}

func TestNewCalculator_RejectsIncompletePolicy(t *testing.T) {
	_, err := NewCalculator(domain.CollectionPolicy{
		Installments:      map[domain.Frequency]int{domain.FrequencyDaily: 24},
		RenewalMaxPending: 3,
	})
	if !errors.Is(err, domain.ErrInvalidPolicy) {
		t.Errorf("Expected ErrInvalidPolicy, got %v", err)
	}
}

func TestPendingBalance(t *testing.T) {
	got, err := PendingBalance(decimal.NewFromInt(52500), 2)
	if err != nil || !got.Equal(decimal.NewFromInt(105000)) {
		t.Errorf("Expected 105000, got %s (%v)", got, err)
	}

	if _, err := PendingBalance(decimal.NewFromInt(-1), 2); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("Expected InvalidArgument for negative value, got %v", err)
	}
	if _, err := PendingBalance(decimal.NewFromInt(1), -2); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("Expected InvalidArgument for negative count, got %v", err)
	}
}

func TestPendingInstallments(t *testing.T) {
	got, err := PendingInstallments(24, 10)
	if err != nil || got != 14 {
		t.Errorf("Expected 14, got %d (%v)", got, err)
	}
	if _, err := PendingInstallments(4, 5); !errors.Is(err, domain.ErrPaidExceedsTotal) {
		t.Errorf("Expected ErrPaidExceedsTotal, got %v", err)
	}
	if _, err := PendingInstallments(-1, 0); !errors.Is(err, domain.ErrNegativeOperand) {
		t.Errorf("Expected ErrNegativeOperand, got %v", err)
	}
}

func TestProgressPercent(t *testing.T) {
	tests := []struct {
		paid, total int32
		want        float64
	}{
		{0, 0, 0},
		{0, 4, 0},
		{1, 4, 25},
		{4, 4, 100},
		{5, 4, 100},
		{-1, 4, 0},
	}
	for _, tt := range tests {
		if got := ProgressPercent(tt.paid, tt.total); got != tt.want {
			t.Errorf("ProgressPercent(%d, %d) = %v, want %v", tt.paid, tt.total, got, tt.want)
		}
	}
}

func TestProgressPercent_Monotonic(t *testing.T) {
	const total = 24
	prev := -1.0
	for paid := int32(0); paid <= total+2; paid++ {
		got := ProgressPercent(paid, total)
		if got < prev || got < 0 || got > 100 {
			t.Fatalf("progress not monotonic/bounded at paid=%d: %v after %v", paid, got, prev)
		}
		prev = got
	}
}

func TestCanRenew_DependsOnThreshold(t *testing.T) {
	strict := newTestCalculator(t, 4, 3)
	lenient := newTestCalculator(t, 10, 10)

	if !strict.CanRenew(2) || !lenient.CanRenew(2) {
		t.Error("Expected 2 pending to be renewable under both thresholds")
	}
	if strict.CanRenew(11) || lenient.CanRenew(11) {
		t.Error("Expected 11 pending to be rejected by both thresholds")
	}
	if strict.CanRenew(5) || !lenient.CanRenew(5) {
		t.Error("Expected 5 pending to be renewable only under threshold 10")
	}
	if strict.CanRenew(-1) {
		t.Error("Expected negative pending to be rejected")
	}
}

func TestRenewalCashOut(t *testing.T) {
	got, err := RenewalCashOut(decimal.NewFromInt(200000), decimal.NewFromInt(60000))
	if err != nil || !got.Equal(decimal.NewFromInt(140000)) {
		t.Errorf("Expected 140000, got %s (%v)", got, err)
	}

	for _, principal := range []int64{60000, 59999, 0} {
		_, err := RenewalCashOut(decimal.NewFromInt(principal), decimal.NewFromInt(60000))
		if !errors.Is(err, domain.ErrRenewalPrincipalTooLow) {
			t.Errorf("principal %d: expected ErrRenewalPrincipalTooLow, got %v", principal, err)
		}
	}
}
