package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod is how the borrower handed over the money
type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "efectivo"
	PaymentMethodTransfer PaymentMethod = "transferencia"
	PaymentMethodCard     PaymentMethod = "tarjeta"
)

// ParsePaymentMethod validates a wire value; empty means cash
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(s); m {
	case "":
		return PaymentMethodCash, nil
	case PaymentMethodCash, PaymentMethodTransfer, PaymentMethodCard:
		return m, nil
	}
	return "", ErrInvalidPaymentMethod
}

// LoanPayment is an immutable record of one collection covering one or more installments
type LoanPayment struct {
	ID                  uuid.UUID       `json:"id"`
	LoanID              uuid.UUID       `json:"loanId"`
	CollectorID         uuid.UUID       `json:"collectorId"`
	InstallmentsCovered int32           `json:"installmentsCovered"`
	Amount              decimal.Decimal `json:"amount"`
	Method              PaymentMethod   `json:"method"`
	Notes               *string         `json:"notes,omitempty"`
	CreatedAt           time.Time       `json:"createdAt"`
}

// LoanPaymentRepository persists payment events
type LoanPaymentRepository interface {
	Create(ctx context.Context, payment *LoanPayment) (*LoanPayment, error)
	ListByLoan(ctx context.Context, loanID uuid.UUID) ([]*LoanPayment, error)
}
