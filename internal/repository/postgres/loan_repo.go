package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/prestadiario/prestadiario-backend/internal/domain"
)

// LoanRepository implements domain.LoanRepository using PostgreSQL
type LoanRepository struct {
	db DBTX
	// lockRows makes GetByID take a row lock; set for repositories bound to a transaction
	lockRows bool
}

// NewLoanRepository creates a new LoanRepository
func NewLoanRepository(db DBTX) *LoanRepository {
	return &LoanRepository{db: db}
}

const loanColumns = `id, collector_id, borrower_name, national_id, phone, address,
	principal, frequency, interest_rate, installment_value, total_installments,
	paid_installments, pending_balance, start_date, next_due_date, last_payment_date,
	state, renewed_from_id, version, created_at, updated_at`

// GetByID retrieves a loan by its ID. Inside a unit of work the row stays
// locked until commit so concurrent transitions queue up.
func (r *LoanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`
	if r.lockRows {
		query += ` FOR UPDATE`
	}
	loan, err := scanLoan(r.db.QueryRow(ctx, query, uuidToPg(id)))
	if err != nil {
		return nil, translateError(err, domain.ErrLoanNotFound)
	}
	return loan, nil
}

// ListByCollector retrieves a collector's loans ordered by next due date
func (r *LoanRepository) ListByCollector(ctx context.Context, collectorID uuid.UUID, filter domain.LoanFilter) ([]*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE collector_id = $1` + filterClause(filter) +
		` ORDER BY next_due_date, created_at`
	return r.list(ctx, query, uuidToPg(collectorID))
}

// ListAll retrieves every loan ordered by next due date
func (r *LoanRepository) ListAll(ctx context.Context, filter domain.LoanFilter) ([]*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE TRUE` + filterClause(filter) +
		` ORDER BY next_due_date, created_at`
	return r.list(ctx, query)
}

// ListActiveByNationalID returns open loans held by a borrower
func (r *LoanRepository) ListActiveByNationalID(ctx context.Context, nationalID string) ([]*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE national_id = $1` + filterClause(domain.LoanFilterOpen) +
		` ORDER BY created_at`
	return r.list(ctx, query, nationalID)
}

// Insert stores a new loan at version 1
func (r *LoanRepository) Insert(ctx context.Context, loan *domain.Loan) (*domain.Loan, error) {
	args, err := loanArgs(loan)
	if err != nil {
		return nil, err
	}
	id := loan.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	row := r.db.QueryRow(ctx, `INSERT INTO loans (
		id, collector_id, borrower_name, national_id, phone, address,
		principal, frequency, interest_rate, installment_value, total_installments,
		paid_installments, pending_balance, start_date, next_due_date, last_payment_date,
		state, renewed_from_id, version
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, 1)
	RETURNING `+loanColumns, append([]any{uuidToPg(id)}, args...)...)

	created, err := scanLoan(row)
	if err != nil {
		return nil, translateError(err, nil)
	}
	return created, nil
}

// Update writes loan only if the stored version equals expectedVersion, and
// bumps the version.
func (r *LoanRepository) Update(ctx context.Context, loan *domain.Loan, expectedVersion int32) (*domain.Loan, error) {
	args, err := loanArgs(loan)
	if err != nil {
		return nil, err
	}
	row := r.db.QueryRow(ctx, `UPDATE loans SET
		collector_id = $3, borrower_name = $4, national_id = $5, phone = $6, address = $7,
		principal = $8, frequency = $9, interest_rate = $10, installment_value = $11,
		total_installments = $12, paid_installments = $13, pending_balance = $14,
		start_date = $15, next_due_date = $16, last_payment_date = $17,
		state = $18, renewed_from_id = $19,
		version = version + 1, updated_at = now()
	WHERE id = $1 AND version = $2
	RETURNING `+loanColumns, append([]any{uuidToPg(loan.ID), expectedVersion}, args...)...)

	updated, err := scanLoan(row)
	if err == nil {
		return updated, nil
	}
	if err != pgx.ErrNoRows {
		return nil, translateError(err, nil)
	}

	// Distinguish a missing loan from a stale version
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM loans WHERE id = $1)`, uuidToPg(loan.ID)).Scan(&exists); err != nil {
		return nil, translateError(err, nil)
	}
	if !exists {
		return nil, domain.ErrLoanNotFound
	}
	return nil, domain.ErrVersionMismatch
}

// Delete removes a loan and its payments
func (r *LoanRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM loans WHERE id = $1`, uuidToPg(id))
	if err != nil {
		return translateError(err, nil)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLoanNotFound
	}
	return nil
}

func (r *LoanRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Loan, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, translateError(err, nil)
	}
	defer rows.Close()

	loans := make([]*domain.Loan, 0)
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, translateError(err, nil)
		}
		loans = append(loans, loan)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(err, nil)
	}
	return loans, nil
}

func filterClause(filter domain.LoanFilter) string {
	switch filter {
	case domain.LoanFilterOpen:
		return ` AND state <> 'completado'`
	case domain.LoanFilterCompleted:
		return ` AND state = 'completado'`
	default:
		return ""
	}
}

// loanArgs returns every mutable column in insert/update order
func loanArgs(loan *domain.Loan) ([]any, error) {
	principal, err := decimalToPgNumeric(loan.Principal)
	if err != nil {
		return nil, fmt.Errorf("invalid principal: %w", err)
	}
	rate, err := decimalToPgNumeric(loan.InterestRate)
	if err != nil {
		return nil, fmt.Errorf("invalid interest rate: %w", err)
	}
	installment, err := decimalToPgNumeric(loan.InstallmentValue)
	if err != nil {
		return nil, fmt.Errorf("invalid installment value: %w", err)
	}
	balance, err := decimalToPgNumeric(loan.PendingBalance)
	if err != nil {
		return nil, fmt.Errorf("invalid pending balance: %w", err)
	}

	return []any{
		uuidToPg(loan.CollectorID),
		loan.Borrower.Name,
		loan.Borrower.NationalID,
		loan.Borrower.Phone,
		loan.Borrower.Address,
		principal,
		string(loan.Frequency),
		rate,
		installment,
		loan.TotalInstallments,
		loan.PaidInstallments,
		balance,
		civilToPgDate(loan.StartDate),
		civilToPgDate(loan.NextDueDate),
		civilPtrToPgDate(loan.LastPaymentDate),
		string(loan.State),
		uuidPtrToPg(loan.RenewedFromID),
	}, nil
}

func scanLoan(row pgx.Row) (*domain.Loan, error) {
	var (
		id, collectorID, renewedFrom            pgtype.UUID
		principal, rate, installment, balance   pgtype.Numeric
		startDate, nextDueDate, lastPaymentDate pgtype.Date
		frequency, state                        string
		createdAt, updatedAt                    pgtype.Timestamptz
		loan                                    domain.Loan
	)
	err := row.Scan(
		&id, &collectorID,
		&loan.Borrower.Name, &loan.Borrower.NationalID, &loan.Borrower.Phone, &loan.Borrower.Address,
		&principal, &frequency, &rate, &installment,
		&loan.TotalInstallments, &loan.PaidInstallments, &balance,
		&startDate, &nextDueDate, &lastPaymentDate,
		&state, &renewedFrom, &loan.Version, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	loan.ID = pgToUUID(id)
	loan.CollectorID = pgToUUID(collectorID)
	loan.Principal = pgNumericToDecimal(principal)
	loan.Frequency = domain.Frequency(frequency)
	loan.InterestRate = pgNumericToDecimal(rate)
	loan.InstallmentValue = pgNumericToDecimal(installment)
	loan.PendingBalance = pgNumericToDecimal(balance)
	loan.StartDate = pgDateToCivil(startDate)
	loan.NextDueDate = pgDateToCivil(nextDueDate)
	loan.LastPaymentDate = pgDateToCivilPtr(lastPaymentDate)
	loan.State = domain.NormalizeLoanState(domain.LoanState(state))
	loan.RenewedFromID = pgToUUIDPtr(renewedFrom)
	loan.CreatedAt = createdAt.Time
	loan.UpdatedAt = updatedAt.Time
	return &loan, nil
}
