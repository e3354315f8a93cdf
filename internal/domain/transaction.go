package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType classifies ledger entries
type TransactionType string

const (
	// TransactionTypeCollection is money received from a borrower
	TransactionTypeCollection TransactionType = "cobro"
	// TransactionTypeDisbursement is money handed to a borrower
	TransactionTypeDisbursement TransactionType = "pago"
	// TransactionTypeAdjustment settles a balance without cash moving
	TransactionTypeAdjustment TransactionType = "ajuste"
)

// Transaction is an append-only ledger entry recording a balance change on a loan
type Transaction struct {
	ID              uuid.UUID       `json:"id"`
	Type            TransactionType `json:"type"`
	LoanID          uuid.UUID       `json:"loanId"`
	BorrowerName    string          `json:"borrowerName"`
	CollectorID     uuid.UUID       `json:"collectorId"`
	Amount          decimal.Decimal `json:"amount"`
	PreviousBalance decimal.Decimal `json:"previousBalance"`
	NewBalance      decimal.Decimal `json:"newBalance"`
	Description     string          `json:"description"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// TransactionFilters narrows ledger listings
type TransactionFilters struct {
	CollectorID *uuid.UUID
	LoanID      *uuid.UUID
	Type        *TransactionType
	From        *time.Time
	To          *time.Time
	Limit       int32
}

const (
	DefaultTransactionLimit = 50
	MaxTransactionLimit     = 500
)

// TransactionRepository is the ledger store
type TransactionRepository interface {
	Create(ctx context.Context, tx *Transaction) (*Transaction, error)
	List(ctx context.Context, filters TransactionFilters) ([]*Transaction, error)
	SumByCollectorSince(ctx context.Context, collectorID uuid.UUID, txType TransactionType, since time.Time) (decimal.Decimal, error)
}
