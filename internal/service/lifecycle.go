package service

import (
	"strings"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/prestadiario/prestadiario-backend/internal/calendar"
	"github.com/prestadiario/prestadiario-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// Lifecycle applies loan state transitions. Every method validates first and
// returns a new record; the input loan is never modified.
type Lifecycle struct {
	calc *Calculator
	cal  *calendar.Calendar
}

// NewLifecycle creates a Lifecycle
func NewLifecycle(calc *Calculator, cal *calendar.Calendar) *Lifecycle {
	return &Lifecycle{calc: calc, cal: cal}
}

// Calculator returns the calculator used for installment economics
func (lc *Lifecycle) Calculator() *Calculator {
	return lc.calc
}

// Calendar returns the calendar used for due dates
func (lc *Lifecycle) Calendar() *calendar.Calendar {
	return lc.cal
}

// NewLoanParams contains input for issuing a loan
type NewLoanParams struct {
	CollectorID  uuid.UUID
	Borrower     domain.Borrower
	Principal    decimal.Decimal
	Frequency    domain.Frequency
	InterestRate decimal.Decimal
	Today        civil.Date
}

// NewLoan builds an Active loan record. Checking that the borrower has no
// other open loan is the caller's job since it needs the store.
func (lc *Lifecycle) NewLoan(p NewLoanParams) (*domain.Loan, error) {
	borrower := domain.Borrower{
		Name:       strings.TrimSpace(p.Borrower.Name),
		NationalID: strings.TrimSpace(p.Borrower.NationalID),
		Phone:      strings.TrimSpace(p.Borrower.Phone),
		Address:    strings.TrimSpace(p.Borrower.Address),
	}
	if borrower.Name == "" || borrower.NationalID == "" {
		return nil, domain.ErrBorrowerFieldsRequired
	}

	loan, err := lc.issue(p.CollectorID, borrower, p.Principal, p.Frequency, p.InterestRate, p.Today)
	if err != nil {
		return nil, err
	}
	loan.State = domain.LoanStateActive
	return loan, nil
}

func (lc *Lifecycle) issue(collectorID uuid.UUID, borrower domain.Borrower, principal decimal.Decimal, frequency domain.Frequency, rate decimal.Decimal, today civil.Date) (*domain.Loan, error) {
	plan, err := lc.calc.ComputeInstallments(principal, frequency, rate)
	if err != nil {
		return nil, err
	}
	firstDue, err := lc.cal.FirstCollectionDate(today, frequency)
	if err != nil {
		return nil, err
	}

	return &domain.Loan{
		CollectorID:       collectorID,
		Borrower:          borrower,
		Principal:         principal,
		Frequency:         frequency,
		InterestRate:      rate,
		InstallmentValue:  plan.InstallmentValue,
		TotalInstallments: plan.InstallmentCount,
		PaidInstallments:  0,
		PendingBalance:    plan.ScheduledTotal(),
		StartDate:         today,
		NextDueDate:       firstDue,
	}, nil
}

// RegisterPayment records installments paid today. The next due date is one
// collection step after today no matter how many installments were covered.
func (lc *Lifecycle) RegisterPayment(loan *domain.Loan, installments int32, today civil.Date) (*domain.Loan, error) {
	if !loan.State.IsOpen() {
		return nil, domain.ErrLoanCompleted
	}
	pending := loan.PendingInstallments()
	if installments < 1 || installments > pending {
		return nil, domain.ErrInstallmentsOutOfRange
	}
	nextDue, err := lc.cal.NextCollectionDate(today, loan.Frequency)
	if err != nil {
		return nil, err
	}

	next := loan.Clone()
	next.PaidInstallments += installments
	next.PendingBalance = loan.PendingBalance.Sub(loan.InstallmentValue.Mul(decimal.NewFromInt32(installments)))
	next.NextDueDate = nextDue
	paidOn := today
	next.LastPaymentDate = &paidOn

	if next.PaidInstallments >= next.TotalInstallments {
		next.PaidInstallments = next.TotalInstallments
		next.PendingBalance = decimal.Zero
		next.State = domain.LoanStateCompleted
	} else {
		if next.PendingBalance.IsNegative() {
			next.PendingBalance = decimal.Zero
		}
		next.State = domain.LoanStateActive
	}
	return next, nil
}

// RegisterNonPayment marks the loan delinquent and schedules the next visit
func (lc *Lifecycle) RegisterNonPayment(loan *domain.Loan, today civil.Date) (*domain.Loan, error) {
	if !loan.State.IsOpen() {
		return nil, domain.ErrLoanCompleted
	}
	nextDue, err := lc.cal.NextCollectionDate(today, loan.Frequency)
	if err != nil {
		return nil, err
	}

	next := loan.Clone()
	next.State = domain.LoanStateDelinquent
	next.NextDueDate = nextDue
	return next, nil
}

// DetectDelinquency moves an on-time loan with overdue installments to
// delinquent. Only the state changes.
func (lc *Lifecycle) DetectDelinquency(loan *domain.Loan, today civil.Date) (*domain.Loan, error) {
	switch domain.NormalizeLoanState(loan.State) {
	case domain.LoanStateCompleted:
		return nil, domain.ErrLoanCompleted
	case domain.LoanStateDelinquent:
		return nil, domain.ErrDelinquencyNotApplicable
	}
	if OverdueInstallmentCount(loan.NextDueDate, today, loan.Frequency, loan.PendingInstallments()) == 0 {
		return nil, domain.ErrDelinquencyNotApplicable
	}

	next := loan.Clone()
	next.State = domain.LoanStateDelinquent
	return next, nil
}

// RenewalResult holds both records produced by a renewal
type RenewalResult struct {
	Closed  *domain.Loan    `json:"closed"`
	Opened  *domain.Loan    `json:"opened"`
	CashOut decimal.Decimal `json:"cashOut"`
}

// Renew settles the outstanding balance with a new loan. The old record is
// force-completed and kept; the new record's installments are computed on
// newPrincipal alone, and the borrower receives newPrincipal minus the old balance.
func (lc *Lifecycle) Renew(loan *domain.Loan, newPrincipal, rate decimal.Decimal, today civil.Date) (*RenewalResult, error) {
	if !loan.State.IsOpen() {
		return nil, domain.ErrLoanCompleted
	}
	if !lc.calc.CanRenew(loan.PendingInstallments()) {
		return nil, domain.ErrRenewalNotAllowed
	}
	cashOut, err := RenewalCashOut(newPrincipal, loan.PendingBalance)
	if err != nil {
		return nil, err
	}

	opened, err := lc.issue(loan.CollectorID, loan.Borrower, newPrincipal, loan.Frequency, rate, today)
	if err != nil {
		return nil, err
	}
	opened.State = domain.LoanStateRenewed
	previousID := loan.ID
	opened.RenewedFromID = &previousID

	closed := loan.Clone()
	closed.PaidInstallments = closed.TotalInstallments
	closed.PendingBalance = decimal.Zero
	closed.State = domain.LoanStateCompleted

	return &RenewalResult{Closed: closed, Opened: opened, CashOut: cashOut}, nil
}
