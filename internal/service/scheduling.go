package service

import (
	"cloud.google.com/go/civil"
	"github.com/prestadiario/prestadiario-backend/internal/calendar"
	"github.com/prestadiario/prestadiario-backend/internal/domain"
)

// IsDueToday compares the YYYY-MM-DD forms of both dates
func IsDueToday(nextDue, today civil.Date) bool {
	return calendar.SameDay(nextDue, today)
}

// OverdueInstallmentCount returns how many whole collection steps have elapsed
// since nextDue, capped at pending. A loan due today or later has none.
//
// The count is floor(daysLate / stepDays); the due date itself counts once a
// full step has passed after it.
func OverdueInstallmentCount(nextDue, today civil.Date, frequency domain.Frequency, pending int32) int32 {
	if pending <= 0 || !nextDue.Before(today) {
		return 0
	}
	daysLate := today.DaysSince(nextDue)
	overdue := int32(daysLate / frequency.StepDays())
	if overdue > pending {
		return pending
	}
	return overdue
}

// IsDueForCollection reports whether the collector should visit the borrower
// today: the loan has pending installments and its due date is today or earlier.
func IsDueForCollection(loan *domain.Loan, today civil.Date) bool {
	return loan.State.IsOpen() && loan.PendingInstallments() > 0 && !loan.NextDueDate.After(today)
}
