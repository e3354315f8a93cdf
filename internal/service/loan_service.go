package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/prestadiario/prestadiario-backend/internal/domain"
	"github.com/prestadiario/prestadiario-backend/internal/websocket"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// InterestConfigSource supplies the rate applied to new loans
type InterestConfigSource interface {
	Current() domain.InterestConfig
}

// LoanService handles loan business logic
type LoanService struct {
	loanRepo       domain.LoanRepository
	paymentRepo    domain.LoanPaymentRepository
	txRepo         domain.TransactionRepository
	userRepo       domain.UserRepository
	uow            domain.UnitOfWork
	lifecycle      *Lifecycle
	config         InterestConfigSource
	eventPublisher websocket.EventPublisher
	now            func() time.Time
}

// NewLoanService creates a new LoanService
func NewLoanService(
	loanRepo domain.LoanRepository,
	paymentRepo domain.LoanPaymentRepository,
	txRepo domain.TransactionRepository,
	userRepo domain.UserRepository,
	uow domain.UnitOfWork,
	lifecycle *Lifecycle,
	config InterestConfigSource,
) *LoanService {
	return &LoanService{
		loanRepo:    loanRepo,
		paymentRepo: paymentRepo,
		txRepo:      txRepo,
		userRepo:    userRepo,
		uow:         uow,
		lifecycle:   lifecycle,
		config:      config,
		now:         time.Now,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *LoanService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

// SetClock overrides the wall clock, for tests
func (s *LoanService) SetClock(now func() time.Time) {
	s.now = now
}

// publishEvent publishes a WebSocket event if a publisher is configured
func (s *LoanService) publishEvent(collectorID uuid.UUID, event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(collectorID, event)
	}
}

// Today is the current collection date in the calendar's timezone
func (s *LoanService) Today() civil.Date {
	return s.lifecycle.Calendar().Today(s.now())
}

func canAccess(actor *domain.User, loan *domain.Loan) bool {
	return actor.IsAdmin() || loan.CollectorID == actor.ID
}

// getOwned loads a loan the actor may act on. Other collectors' loans are
// reported as not found.
func getOwned(ctx context.Context, repo domain.LoanRepository, actor *domain.User, id uuid.UUID) (*domain.Loan, error) {
	loan, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canAccess(actor, loan) {
		return nil, domain.ErrLoanNotFound
	}
	return loan, nil
}

// LoanView is a loan annotated with figures derived for today
type LoanView struct {
	*domain.Loan
	PendingInstallments int32   `json:"pendingInstallments"`
	OverdueInstallments int32   `json:"overdueInstallments"`
	ProgressPercent     float64 `json:"progressPercent"`
	DueToday            bool    `json:"dueToday"`
}

// NewLoanView derives the annotations for loan as of today
func NewLoanView(loan *domain.Loan, today civil.Date) *LoanView {
	pending := loan.PendingInstallments()
	view := &LoanView{
		Loan:                loan,
		PendingInstallments: pending,
		ProgressPercent:     ProgressPercent(loan.PaidInstallments, loan.TotalInstallments),
	}
	if loan.State.IsOpen() {
		view.OverdueInstallments = OverdueInstallmentCount(loan.NextDueDate, today, loan.Frequency, pending)
		view.DueToday = IsDueToday(loan.NextDueDate, today)
	}
	return view
}

// CreateLoanInput contains input for issuing a loan
type CreateLoanInput struct {
	// CollectorID lets an admin issue on behalf of a collector; ignored for collectors
	CollectorID *uuid.UUID
	Borrower    domain.Borrower
	Principal   decimal.Decimal
	Frequency   domain.Frequency
}

// CreateLoan issues a loan at the current interest rate and records the disbursement
func (s *LoanService) CreateLoan(ctx context.Context, actor *domain.User, input CreateLoanInput) (*domain.Loan, error) {
	collectorID := actor.ID
	if actor.IsAdmin() && input.CollectorID != nil && *input.CollectorID != actor.ID {
		if err := s.requireActiveCollector(ctx, *input.CollectorID); err != nil {
			return nil, err
		}
		collectorID = *input.CollectorID
	}

	cfg := s.config.Current()
	loan, err := s.lifecycle.NewLoan(NewLoanParams{
		CollectorID:  collectorID,
		Borrower:     input.Borrower,
		Principal:    input.Principal,
		Frequency:    input.Frequency,
		InterestRate: cfg.Rate,
		Today:        s.Today(),
	})
	if err != nil {
		return nil, err
	}

	var created *domain.Loan
	err = s.uow.WithinTx(ctx, func(r domain.Repos) error {
		// One open loan per national ID
		existing, err := r.Loans.ListActiveByNationalID(ctx, loan.Borrower.NationalID)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return domain.ErrActiveLoanExists
		}

		created, err = r.Loans.Insert(ctx, loan)
		if err != nil {
			return err
		}

		_, err = r.Transactions.Create(ctx, &domain.Transaction{
			Type:            domain.TransactionTypeDisbursement,
			LoanID:          created.ID,
			BorrowerName:    created.Borrower.Name,
			CollectorID:     created.CollectorID,
			Amount:          created.Principal,
			PreviousBalance: decimal.Zero,
			NewBalance:      created.PendingBalance,
			Description:     "Desembolso de préstamo",
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("loan_id", created.ID.String()).
		Str("collector_id", created.CollectorID.String()).
		Str("principal", created.Principal.String()).
		Str("frequency", string(created.Frequency)).
		Msg("Loan created")

	s.publishEvent(created.CollectorID, websocket.LoanCreated(created))
	return created, nil
}

func (s *LoanService) requireActiveCollector(ctx context.Context, id uuid.UUID) error {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if user.Role != domain.RoleCollector {
		return domain.ErrNotACollector
	}
	if !user.Active {
		return domain.ErrCollectorInactive
	}
	return nil
}

// PreviewLoanInput contains input for previewing loan calculations
type PreviewLoanInput struct {
	Principal decimal.Decimal
	Frequency domain.Frequency
}

// LoanPreview is what a loan would look like if issued today
type LoanPreview struct {
	InstallmentPlan
	InterestRate   decimal.Decimal `json:"interestRate"`
	CurrencyCode   string          `json:"currencyCode"`
	FirstDueDate   civil.Date      `json:"firstDueDate"`
	ScheduledTotal decimal.Decimal `json:"scheduledTotal"`
}

// PreviewLoan calculates loan values without creating the loan
func (s *LoanService) PreviewLoan(ctx context.Context, input PreviewLoanInput) (*LoanPreview, error) {
	cfg := s.config.Current()
	plan, err := s.lifecycle.Calculator().ComputeInstallments(input.Principal, input.Frequency, cfg.Rate)
	if err != nil {
		return nil, err
	}
	firstDue, err := s.lifecycle.Calendar().FirstCollectionDate(s.Today(), input.Frequency)
	if err != nil {
		return nil, err
	}
	return &LoanPreview{
		InstallmentPlan: plan,
		InterestRate:    cfg.Rate,
		CurrencyCode:    cfg.CurrencyCode,
		FirstDueDate:    firstDue,
		ScheduledTotal:  plan.ScheduledTotal(),
	}, nil
}

// GetLoan returns a loan the actor may see
func (s *LoanService) GetLoan(ctx context.Context, actor *domain.User, id uuid.UUID) (*LoanView, error) {
	loan, err := getOwned(ctx, s.loanRepo, actor, id)
	if err != nil {
		return nil, err
	}
	return NewLoanView(loan, s.Today()), nil
}

// ListLoans returns the actor's loans. Admins see every collector unless
// collectorID narrows the listing.
func (s *LoanService) ListLoans(ctx context.Context, actor *domain.User, filter domain.LoanFilter, collectorID *uuid.UUID) ([]*LoanView, error) {
	loans, err := s.listVisible(ctx, actor, filter, collectorID)
	if err != nil {
		return nil, err
	}
	today := s.Today()
	views := make([]*LoanView, 0, len(loans))
	for _, l := range loans {
		views = append(views, NewLoanView(l, today))
	}
	return views, nil
}

func (s *LoanService) listVisible(ctx context.Context, actor *domain.User, filter domain.LoanFilter, collectorID *uuid.UUID) ([]*domain.Loan, error) {
	switch {
	case !actor.IsAdmin():
		return s.loanRepo.ListByCollector(ctx, actor.ID, filter)
	case collectorID != nil:
		return s.loanRepo.ListByCollector(ctx, *collectorID, filter)
	default:
		return s.loanRepo.ListAll(ctx, filter)
	}
}

// ListDueToday returns open loans due today or earlier, most overdue first
func (s *LoanService) ListDueToday(ctx context.Context, actor *domain.User, collectorID *uuid.UUID) ([]*LoanView, error) {
	loans, err := s.listVisible(ctx, actor, domain.LoanFilterOpen, collectorID)
	if err != nil {
		return nil, err
	}

	today := s.Today()
	due := make([]*LoanView, 0)
	for _, l := range loans {
		if IsDueForCollection(l, today) {
			due = append(due, NewLoanView(l, today))
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		if due[i].OverdueInstallments != due[j].OverdueInstallments {
			return due[i].OverdueInstallments > due[j].OverdueInstallments
		}
		return due[i].NextDueDate.Before(due[j].NextDueDate)
	})
	return due, nil
}

// RegisterPaymentInput contains input for recording a collection
type RegisterPaymentInput struct {
	Installments    int32
	Method          domain.PaymentMethod
	Notes           *string
	ExpectedVersion int32
}

// PaymentResult is the updated loan together with the stored payment
type PaymentResult struct {
	Loan    *domain.Loan        `json:"loan"`
	Payment *domain.LoanPayment `json:"payment"`
}

// RegisterPayment records installments collected today. The loan update,
// payment event and ledger entry are written in one transaction.
func (s *LoanService) RegisterPayment(ctx context.Context, actor *domain.User, loanID uuid.UUID, input RegisterPaymentInput) (*PaymentResult, error) {
	if input.Method == "" {
		input.Method = domain.PaymentMethodCash
	}
	today := s.Today()

	var result PaymentResult
	err := s.uow.WithinTx(ctx, func(r domain.Repos) error {
		// 1. Load and authorize
		loan, err := getOwned(ctx, r.Loans, actor, loanID)
		if err != nil {
			return err
		}
		if loan.Version != input.ExpectedVersion {
			return domain.ErrVersionMismatch
		}

		// 2. Apply the transition
		next, err := s.lifecycle.RegisterPayment(loan, input.Installments, today)
		if err != nil {
			return err
		}
		updated, err := r.Loans.Update(ctx, next, input.ExpectedVersion)
		if err != nil {
			return err
		}

		// 3. Record the payment and the ledger entry
		amount := loan.InstallmentValue.Mul(decimal.NewFromInt32(input.Installments))
		payment, err := r.Payments.Create(ctx, &domain.LoanPayment{
			LoanID:              loan.ID,
			CollectorID:         actor.ID,
			InstallmentsCovered: input.Installments,
			Amount:              amount,
			Method:              input.Method,
			Notes:               input.Notes,
		})
		if err != nil {
			return err
		}
		_, err = r.Transactions.Create(ctx, &domain.Transaction{
			Type:            domain.TransactionTypeCollection,
			LoanID:          loan.ID,
			BorrowerName:    loan.Borrower.Name,
			CollectorID:     loan.CollectorID,
			Amount:          amount,
			PreviousBalance: loan.PendingBalance,
			NewBalance:      updated.PendingBalance,
			Description:     fmt.Sprintf("Cobro de %d cuota(s)", input.Installments),
		})
		if err != nil {
			return err
		}

		result = PaymentResult{Loan: updated, Payment: payment}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("loan_id", loanID.String()).
		Int32("installments", input.Installments).
		Str("amount", result.Payment.Amount.String()).
		Str("state", string(result.Loan.State)).
		Msg("Payment registered")

	s.publishEvent(result.Loan.CollectorID, websocket.LoanPaymentCreated(result.Payment))
	s.publishEvent(result.Loan.CollectorID, websocket.LoanUpdated(result.Loan))
	return &result, nil
}

// RegisterNonPayment records a visit where the borrower did not pay
func (s *LoanService) RegisterNonPayment(ctx context.Context, actor *domain.User, loanID uuid.UUID, expectedVersion int32) (*domain.Loan, error) {
	loan, err := getOwned(ctx, s.loanRepo, actor, loanID)
	if err != nil {
		return nil, err
	}
	if loan.Version != expectedVersion {
		return nil, domain.ErrVersionMismatch
	}

	next, err := s.lifecycle.RegisterNonPayment(loan, s.Today())
	if err != nil {
		return nil, err
	}
	updated, err := s.loanRepo.Update(ctx, next, expectedVersion)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("loan_id", loanID.String()).
		Str("next_due", updated.NextDueDate.String()).
		Msg("Non-payment registered")

	s.publishEvent(updated.CollectorID, websocket.LoanUpdated(updated))
	return updated, nil
}

// RenewLoan closes the loan and opens a new one for the same borrower. The
// borrower receives newPrincipal minus the outstanding balance.
func (s *LoanService) RenewLoan(ctx context.Context, actor *domain.User, loanID uuid.UUID, newPrincipal decimal.Decimal, expectedVersion int32) (*RenewalResult, error) {
	rate := s.config.Current().Rate
	today := s.Today()

	var result RenewalResult
	err := s.uow.WithinTx(ctx, func(r domain.Repos) error {
		loan, err := getOwned(ctx, r.Loans, actor, loanID)
		if err != nil {
			return err
		}
		if loan.Version != expectedVersion {
			return domain.ErrVersionMismatch
		}

		renewal, err := s.lifecycle.Renew(loan, newPrincipal, rate, today)
		if err != nil {
			return err
		}

		closed, err := r.Loans.Update(ctx, renewal.Closed, expectedVersion)
		if err != nil {
			return err
		}
		_, err = r.Transactions.Create(ctx, &domain.Transaction{
			Type:            domain.TransactionTypeAdjustment,
			LoanID:          closed.ID,
			BorrowerName:    closed.Borrower.Name,
			CollectorID:     closed.CollectorID,
			Amount:          loan.PendingBalance,
			PreviousBalance: loan.PendingBalance,
			NewBalance:      decimal.Zero,
			Description:     "Saldo liquidado por renovación",
		})
		if err != nil {
			return err
		}

		opened, err := r.Loans.Insert(ctx, renewal.Opened)
		if err != nil {
			return err
		}
		_, err = r.Transactions.Create(ctx, &domain.Transaction{
			Type:            domain.TransactionTypeDisbursement,
			LoanID:          opened.ID,
			BorrowerName:    opened.Borrower.Name,
			CollectorID:     opened.CollectorID,
			Amount:          renewal.CashOut,
			PreviousBalance: decimal.Zero,
			NewBalance:      opened.PendingBalance,
			Description:     fmt.Sprintf("Renovación del préstamo %s", closed.ID),
		})
		if err != nil {
			return err
		}

		result = RenewalResult{Closed: closed, Opened: opened, CashOut: renewal.CashOut}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("closed_loan_id", result.Closed.ID.String()).
		Str("opened_loan_id", result.Opened.ID.String()).
		Str("cash_out", result.CashOut.String()).
		Msg("Loan renewed")

	s.publishEvent(result.Opened.CollectorID, websocket.LoanRenewed(result))
	return &result, nil
}

// DeleteLoan removes a loan record. Admin only.
func (s *LoanService) DeleteLoan(ctx context.Context, actor *domain.User, id uuid.UUID) error {
	if !actor.IsAdmin() {
		return domain.ErrAdminRequired
	}
	loan, err := s.loanRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.loanRepo.Delete(ctx, id); err != nil {
		return err
	}

	log.Info().Str("loan_id", id.String()).Str("admin_id", actor.ID.String()).Msg("Loan deleted")
	s.publishEvent(loan.CollectorID, websocket.LoanDeleted(map[string]interface{}{"id": id}))
	return nil
}

// ListPayments returns the payment history of a loan, newest first
func (s *LoanService) ListPayments(ctx context.Context, actor *domain.User, loanID uuid.UUID) ([]*domain.LoanPayment, error) {
	if _, err := getOwned(ctx, s.loanRepo, actor, loanID); err != nil {
		return nil, err
	}
	return s.paymentRepo.ListByLoan(ctx, loanID)
}

// ListTransactions returns ledger entries. Collectors only ever see their own.
func (s *LoanService) ListTransactions(ctx context.Context, actor *domain.User, filters domain.TransactionFilters) ([]*domain.Transaction, error) {
	if !actor.IsAdmin() {
		id := actor.ID
		filters.CollectorID = &id
	}
	if filters.Limit <= 0 {
		filters.Limit = domain.DefaultTransactionLimit
	}
	if filters.Limit > domain.MaxTransactionLimit {
		filters.Limit = domain.MaxTransactionLimit
	}
	return s.txRepo.List(ctx, filters)
}

// SweepResult summarizes one delinquency sweep
type SweepResult struct {
	Checked   int
	Marked    int
	Conflicts int
	Errors    int
}

// SweepDelinquencies marks every on-time loan with overdue installments as
// delinquent. Loans modified concurrently are skipped and picked up next run.
func (s *LoanService) SweepDelinquencies(ctx context.Context) (*SweepResult, error) {
	loans, err := s.loanRepo.ListAll(ctx, domain.LoanFilterOpen)
	if err != nil {
		return nil, err
	}

	today := s.Today()
	result := &SweepResult{}
	for _, loan := range loans {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Checked++

		next, err := s.lifecycle.DetectDelinquency(loan, today)
		if err != nil {
			// not overdue, already delinquent or completed
			continue
		}
		updated, err := s.loanRepo.Update(ctx, next, loan.Version)
		switch {
		case err == nil:
			result.Marked++
			s.publishEvent(updated.CollectorID, websocket.LoanUpdated(updated))
		case errors.Is(err, domain.ErrConflict):
			result.Conflicts++
			log.Warn().Str("loan_id", loan.ID.String()).Msg("Loan changed during delinquency sweep, skipping")
		default:
			result.Errors++
			log.Error().Err(err).Str("loan_id", loan.ID.String()).Msg("Failed to mark loan delinquent")
		}
	}
	return result, nil
}
