package domain

import "context"

// Repos is the set of repositories bound to one store transaction
type Repos struct {
	Loans        LoanRepository
	Payments     LoanPaymentRepository
	Transactions TransactionRepository
}

// UnitOfWork runs fn inside a single store transaction. If fn returns an
// error nothing it wrote is kept.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(r Repos) error) error
}
