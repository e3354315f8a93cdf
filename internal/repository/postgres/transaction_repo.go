package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/prestadiario/prestadiario-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// TransactionRepository implements domain.TransactionRepository using PostgreSQL.
// The ledger is append-only: there is no update or delete.
type TransactionRepository struct {
	db DBTX
}

// NewTransactionRepository creates a new TransactionRepository
func NewTransactionRepository(db DBTX) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `id, type, loan_id, borrower_name, collector_id, amount,
	previous_balance, new_balance, description, created_at`

// Create appends a ledger entry
func (r *TransactionRepository) Create(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	amount, err := decimalToPgNumeric(tx.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}
	previous, err := decimalToPgNumeric(tx.PreviousBalance)
	if err != nil {
		return nil, fmt.Errorf("invalid previous balance: %w", err)
	}
	next, err := decimalToPgNumeric(tx.NewBalance)
	if err != nil {
		return nil, fmt.Errorf("invalid new balance: %w", err)
	}

	row := r.db.QueryRow(ctx, `INSERT INTO transactions
		(type, loan_id, borrower_name, collector_id, amount, previous_balance, new_balance, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+transactionColumns,
		string(tx.Type),
		uuidToPg(tx.LoanID),
		tx.BorrowerName,
		uuidToPg(tx.CollectorID),
		amount,
		previous,
		next,
		tx.Description,
	)
	created, err := scanTransaction(row)
	if err != nil {
		return nil, translateError(err, nil)
	}
	return created, nil
}

// List returns ledger entries matching filters, newest first
func (r *TransactionRepository) List(ctx context.Context, filters domain.TransactionFilters) ([]*domain.Transaction, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filters.CollectorID != nil {
		add("collector_id = $%d", uuidToPg(*filters.CollectorID))
	}
	if filters.LoanID != nil {
		add("loan_id = $%d", uuidToPg(*filters.LoanID))
	}
	if filters.Type != nil {
		add("type = $%d", string(*filters.Type))
	}
	if filters.From != nil {
		add("created_at >= $%d", *filters.From)
	}
	if filters.To != nil {
		add("created_at < $%d", *filters.To)
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = domain.DefaultTransactionLimit
	}
	if limit > domain.MaxTransactionLimit {
		limit = domain.MaxTransactionLimit
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d`, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, translateError(err, nil)
	}
	defer rows.Close()

	txs := make([]*domain.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, translateError(err, nil)
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(err, nil)
	}
	return txs, nil
}

// SumByCollectorSince totals a collector's entries of one type created at or after since
func (r *TransactionRepository) SumByCollectorSince(ctx context.Context, collectorID uuid.UUID, txType domain.TransactionType, since time.Time) (decimal.Decimal, error) {
	var total pgtype.Numeric
	err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM transactions
		WHERE collector_id = $1 AND type = $2 AND created_at >= $3`,
		uuidToPg(collectorID), string(txType), since,
	).Scan(&total)
	if err != nil {
		return decimal.Zero, translateError(err, nil)
	}
	return pgNumericToDecimal(total), nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		id, loanID, collectorID     pgtype.UUID
		amount, previous, newAmount pgtype.Numeric
		txType                      string
		createdAt                   pgtype.Timestamptz
		t                           domain.Transaction
	)
	err := row.Scan(&id, &txType, &loanID, &t.BorrowerName, &collectorID, &amount, &previous, &newAmount, &t.Description, &createdAt)
	if err != nil {
		return nil, err
	}
	t.ID = pgToUUID(id)
	t.Type = domain.TransactionType(txType)
	t.LoanID = pgToUUID(loanID)
	t.CollectorID = pgToUUID(collectorID)
	t.Amount = pgNumericToDecimal(amount)
	t.PreviousBalance = pgNumericToDecimal(previous)
	t.NewBalance = pgNumericToDecimal(newAmount)
	t.CreatedAt = createdAt.Time
	return &t, nil
}
