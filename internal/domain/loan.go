package domain

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LoanState is the lifecycle state stored on a loan record
type LoanState string

const (
	LoanStateActive     LoanState = "al_dia"
	LoanStateDelinquent LoanState = "mora"
	LoanStateRenewed    LoanState = "renovado"
	LoanStateCompleted  LoanState = "completado"

	// loanStateLegacyDelinquent is written by older clients and read as mora
	loanStateLegacyDelinquent LoanState = "atrasado"
)

// NormalizeLoanState folds synonyms into the canonical state
func NormalizeLoanState(s LoanState) LoanState {
	if s == loanStateLegacyDelinquent {
		return LoanStateDelinquent
	}
	return s
}

// ParseLoanState validates a wire value, accepting the legacy delinquent spelling
func ParseLoanState(s string) (LoanState, error) {
	st := NormalizeLoanState(LoanState(s))
	switch st {
	case LoanStateActive, LoanStateDelinquent, LoanStateRenewed, LoanStateCompleted:
		return st, nil
	}
	return "", ErrInvalidArgument
}

// IsOpen reports whether the loan still has collections ahead of it
func (s LoanState) IsOpen() bool {
	return NormalizeLoanState(s) != LoanStateCompleted
}

// Borrower identifies the person a loan was issued to
type Borrower struct {
	Name       string `json:"name"`
	NationalID string `json:"nationalId"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
}

// Loan is one credit issued to a borrower. A borrower accumulates several loan
// records over time because renewals append a new record.
type Loan struct {
	ID                uuid.UUID       `json:"id"`
	CollectorID       uuid.UUID       `json:"collectorId"`
	Borrower          Borrower        `json:"borrower"`
	Principal         decimal.Decimal `json:"principal"`
	Frequency         Frequency       `json:"frequency"`
	InterestRate      decimal.Decimal `json:"interestRate"`
	InstallmentValue  decimal.Decimal `json:"installmentValue"`
	TotalInstallments int32           `json:"totalInstallments"`
	PaidInstallments  int32           `json:"paidInstallments"`
	PendingBalance    decimal.Decimal `json:"pendingBalance"`
	StartDate         civil.Date      `json:"startDate"`
	NextDueDate       civil.Date      `json:"nextDueDate"`
	LastPaymentDate   *civil.Date     `json:"lastPaymentDate,omitempty"`
	State             LoanState       `json:"state"`
	RenewedFromID     *uuid.UUID      `json:"renewedFromId,omitempty"`
	Version           int32           `json:"version"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// PendingInstallments returns total minus paid, never below zero
func (l *Loan) PendingInstallments() int32 {
	if l.PaidInstallments >= l.TotalInstallments {
		return 0
	}
	return l.TotalInstallments - l.PaidInstallments
}

// Clone returns a copy that shares no pointers with l
func (l *Loan) Clone() *Loan {
	c := *l
	if l.LastPaymentDate != nil {
		d := *l.LastPaymentDate
		c.LastPaymentDate = &d
	}
	if l.RenewedFromID != nil {
		id := *l.RenewedFromID
		c.RenewedFromID = &id
	}
	return &c
}

// LoanFilter narrows loan listings by lifecycle state
type LoanFilter string

const (
	LoanFilterAll       LoanFilter = "all"
	LoanFilterOpen      LoanFilter = "open"
	LoanFilterCompleted LoanFilter = "completed"
)

// LoanRepository is the loan store boundary. Update applies the record only if
// the stored version still equals expectedVersion; otherwise ErrVersionMismatch.
type LoanRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Loan, error)
	ListByCollector(ctx context.Context, collectorID uuid.UUID, filter LoanFilter) ([]*Loan, error)
	ListAll(ctx context.Context, filter LoanFilter) ([]*Loan, error)
	ListActiveByNationalID(ctx context.Context, nationalID string) ([]*Loan, error)
	Insert(ctx context.Context, loan *Loan) (*Loan, error)
	Update(ctx context.Context, loan *Loan, expectedVersion int32) (*Loan, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
