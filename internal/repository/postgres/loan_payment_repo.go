package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/prestadiario/prestadiario-backend/internal/domain"
)

// LoanPaymentRepository implements domain.LoanPaymentRepository using PostgreSQL
type LoanPaymentRepository struct {
	db DBTX
}

// NewLoanPaymentRepository creates a new LoanPaymentRepository
func NewLoanPaymentRepository(db DBTX) *LoanPaymentRepository {
	return &LoanPaymentRepository{db: db}
}

const paymentColumns = `id, loan_id, collector_id, installments_covered, amount, method, notes, created_at`

// Create records a payment event
func (r *LoanPaymentRepository) Create(ctx context.Context, payment *domain.LoanPayment) (*domain.LoanPayment, error) {
	amount, err := decimalToPgNumeric(payment.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}

	row := r.db.QueryRow(ctx, `INSERT INTO loan_payments (loan_id, collector_id, installments_covered, amount, method, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+paymentColumns,
		uuidToPg(payment.LoanID),
		uuidToPg(payment.CollectorID),
		payment.InstallmentsCovered,
		amount,
		string(payment.Method),
		stringPtrToPgText(payment.Notes),
	)
	created, err := scanPayment(row)
	if err != nil {
		return nil, translateError(err, nil)
	}
	return created, nil
}

// ListByLoan returns a loan's payments, newest first
func (r *LoanPaymentRepository) ListByLoan(ctx context.Context, loanID uuid.UUID) ([]*domain.LoanPayment, error) {
	rows, err := r.db.Query(ctx, `SELECT `+paymentColumns+` FROM loan_payments
		WHERE loan_id = $1
		ORDER BY created_at DESC`, uuidToPg(loanID))
	if err != nil {
		return nil, translateError(err, nil)
	}
	defer rows.Close()

	payments := make([]*domain.LoanPayment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, translateError(err, nil)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(err, nil)
	}
	return payments, nil
}

func scanPayment(row pgx.Row) (*domain.LoanPayment, error) {
	var (
		id, loanID, collectorID pgtype.UUID
		amount                  pgtype.Numeric
		method                  string
		notes                   pgtype.Text
		createdAt               pgtype.Timestamptz
		payment                 domain.LoanPayment
	)
	if err := row.Scan(&id, &loanID, &collectorID, &payment.InstallmentsCovered, &amount, &method, &notes, &createdAt); err != nil {
		return nil, err
	}
	payment.ID = pgToUUID(id)
	payment.LoanID = pgToUUID(loanID)
	payment.CollectorID = pgToUUID(collectorID)
	payment.Amount = pgNumericToDecimal(amount)
	payment.Method = domain.PaymentMethod(method)
	payment.Notes = pgTextToStringPtr(notes)
	payment.CreatedAt = createdAt.Time
	return &payment, nil
}
