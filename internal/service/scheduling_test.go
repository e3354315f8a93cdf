package service

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/prestadiario/prestadiario-backend/internal/calendar"
	"github.com/prestadiario/prestadiario-backend/internal/domain"
)

func mustDate(t *testing.T, s string) civil.Date {
	t.Helper()
	d, err := calendar.ParseDate(s)
	if err != nil {
		t.Fatalf("ParseDate(%q): %v", s, err)
	}
	return d
}

func TestOverdueInstallmentCount(t *testing.T) {
	tests := []struct {
		name      string
		nextDue   string
		today     string
		frequency domain.Frequency
		pending   int32
		want      int32
	}{
		{"daily three days late", "2025-10-10", "2025-10-13", domain.FrequencyDaily, 10, 3},
		{"daily due today", "2025-10-13", "2025-10-13", domain.FrequencyDaily, 10, 0},
		{"daily due tomorrow", "2025-10-14", "2025-10-13", domain.FrequencyDaily, 10, 0},
		{"daily capped at pending", "2025-10-01", "2025-10-13", domain.FrequencyDaily, 5, 5},
		{"weekly less than a step", "2025-10-10", "2025-10-16", domain.FrequencyWeekly, 4, 0},
		{"weekly one step", "2025-10-10", "2025-10-17", domain.FrequencyWeekly, 4, 1},
		{"weekly twelve days", "2025-10-01", "2025-10-13", domain.FrequencyWeekly, 4, 1},
		{"biweekly thirty days", "2025-10-01", "2025-10-31", domain.FrequencyBiweekly, 2, 2},
		{"nothing pending", "2025-10-01", "2025-10-31", domain.FrequencyDaily, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := OverdueInstallmentCount(mustDate(t, tt.nextDue), mustDate(t, tt.today), tt.frequency, tt.pending)
			if got != tt.want {
				t.Errorf("Expected %d overdue, got %d", tt.want, got)
			}
		})
	}
}

func TestOverdueInstallmentCount_Bounded(t *testing.T) {
	nextDue := mustDate(t, "2025-01-15")
	for _, f := range domain.Frequencies {
		for pending := int32(0); pending <= 24; pending += 3 {
			for offset := -30; offset <= 400; offset += 7 {
				got := OverdueInstallmentCount(nextDue, nextDue.AddDays(offset), f, pending)
				if got < 0 || got > pending {
					t.Fatalf("%s pending=%d offset=%d: got %d", f, pending, offset, got)
				}
				if offset <= 0 && got != 0 {
					t.Fatalf("%s offset=%d: expected 0 when not late, got %d", f, offset, got)
				}
			}
		}
	}
}

func TestIsDueToday(t *testing.T) {
	if !IsDueToday(mustDate(t, "2025-10-14"), mustDate(t, "2025-10-14")) {
		t.Error("Expected same date to be due today")
	}
	if IsDueToday(mustDate(t, "2025-10-14"), mustDate(t, "2025-10-15")) {
		t.Error("Expected different dates not to be due today")
	}
}

func TestIsDueForCollection(t *testing.T) {
	today := mustDate(t, "2025-10-14")
	loan := &domain.Loan{
		TotalInstallments: 4,
		PaidInstallments:  1,
		NextDueDate:       today,
		State:             domain.LoanStateActive,
	}

	if !IsDueForCollection(loan, today) {
		t.Error("Expected loan due today to be collectable")
	}

	late := loan.Clone()
	late.NextDueDate = mustDate(t, "2025-10-01")
	late.State = domain.LoanState("atrasado")
	if !IsDueForCollection(late, today) {
		t.Error("Expected late loan in legacy state to be collectable")
	}

	future := loan.Clone()
	future.NextDueDate = mustDate(t, "2025-10-20")
	if IsDueForCollection(future, today) {
		t.Error("Expected future due date not to be collectable")
	}

	done := loan.Clone()
	done.State = domain.LoanStateCompleted
	if IsDueForCollection(done, today) {
		t.Error("Expected completed loan not to be collectable")
	}
}
