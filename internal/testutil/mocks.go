package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prestadiario/prestadiario-backend/internal/domain"
	"github.com/prestadiario/prestadiario-backend/internal/websocket"
	"github.com/shopspring/decimal"
)

// MockUserRepository is a mock implementation of domain.UserRepository
type MockUserRepository struct {
	ByID      map[uuid.UUID]*domain.User
	BySubject map[string]*domain.User
	GetErr    error
}

// NewMockUserRepository creates a new MockUserRepository
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		ByID:      make(map[uuid.UUID]*domain.User),
		BySubject: make(map[string]*domain.User),
	}
}

// AddUser is a helper to add a user directly for testing
func (m *MockUserRepository) AddUser(user *domain.User) *domain.User {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	m.ByID[user.ID] = user
	if user.AuthSubject != "" {
		m.BySubject[user.AuthSubject] = user
	}
	return user
}

// GetByID retrieves a user by ID
func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	if user, ok := m.ByID[id]; ok {
		return user, nil
	}
	return nil, domain.ErrUserNotFound
}

// GetByAuthSubject retrieves a user by identity provider subject
func (m *MockUserRepository) GetByAuthSubject(ctx context.Context, subject string) (*domain.User, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	if user, ok := m.BySubject[subject]; ok {
		return user, nil
	}
	return nil, domain.ErrUserNotFound
}

// ListByRole returns users with the role ordered by name
func (m *MockUserRepository) ListByRole(ctx context.Context, role domain.Role) ([]*domain.User, error) {
	result := []*domain.User{}
	for _, u := range m.ByID {
		if u.Role == role {
			result = append(result, u)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// SetActive toggles a user's active flag
func (m *MockUserRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) (*domain.User, error) {
	user, ok := m.ByID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	user.Active = active
	return user, nil
}

// MockLoanRepository is a mock implementation of domain.LoanRepository.
// It stores copies so callers cannot mutate stored records by accident.
type MockLoanRepository struct {
	mu       sync.Mutex
	Loans    map[uuid.UUID]*domain.Loan
	order    []uuid.UUID
	GetErr   error
	UpdateFn func(loan *domain.Loan, expectedVersion int32) (*domain.Loan, error)
}

// NewMockLoanRepository creates a new MockLoanRepository
func NewMockLoanRepository() *MockLoanRepository {
	return &MockLoanRepository{
		Loans: make(map[uuid.UUID]*domain.Loan),
	}
}

// AddLoan stores a loan as-is for testing; missing ID and version are filled in
func (m *MockLoanRepository) AddLoan(loan *domain.Loan) *domain.Loan {
	m.mu.Lock()
	defer m.mu.Unlock()
	if loan.ID == uuid.Nil {
		loan.ID = uuid.New()
	}
	if loan.Version == 0 {
		loan.Version = 1
	}
	m.Loans[loan.ID] = loan.Clone()
	m.order = append(m.order, loan.ID)
	return loan
}

// Stored returns a copy of the stored loan, or nil
func (m *MockLoanRepository) Stored(id uuid.UUID) *domain.Loan {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.Loans[id]; ok {
		return l.Clone()
	}
	return nil
}

// GetByID retrieves a loan by ID
func (m *MockLoanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	loan, ok := m.Loans[id]
	if !ok {
		return nil, domain.ErrLoanNotFound
	}
	return loan.Clone(), nil
}

func matchesFilter(loan *domain.Loan, filter domain.LoanFilter) bool {
	switch filter {
	case domain.LoanFilterOpen:
		return loan.State.IsOpen()
	case domain.LoanFilterCompleted:
		return !loan.State.IsOpen()
	}
	return true
}

func (m *MockLoanRepository) list(keep func(*domain.Loan) bool) []*domain.Loan {
	result := []*domain.Loan{}
	for _, id := range m.order {
		if loan, ok := m.Loans[id]; ok && keep(loan) {
			result = append(result, loan.Clone())
		}
	}
	return result
}

// ListByCollector returns the collector's loans in insertion order
func (m *MockLoanRepository) ListByCollector(ctx context.Context, collectorID uuid.UUID, filter domain.LoanFilter) ([]*domain.Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	return m.list(func(l *domain.Loan) bool {
		return l.CollectorID == collectorID && matchesFilter(l, filter)
	}), nil
}

// ListAll returns every loan in insertion order
func (m *MockLoanRepository) ListAll(ctx context.Context, filter domain.LoanFilter) ([]*domain.Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	return m.list(func(l *domain.Loan) bool { return matchesFilter(l, filter) }), nil
}

// ListActiveByNationalID returns the borrower's open loans
func (m *MockLoanRepository) ListActiveByNationalID(ctx context.Context, nationalID string) ([]*domain.Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(func(l *domain.Loan) bool {
		return l.Borrower.NationalID == nationalID && l.State.IsOpen()
	}), nil
}

// Insert stores a new loan with version 1
func (m *MockLoanRepository) Insert(ctx context.Context, loan *domain.Loan) (*domain.Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := loan.Clone()
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	stored.Version = 1
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	m.Loans[stored.ID] = stored
	m.order = append(m.order, stored.ID)
	return stored.Clone(), nil
}

// Update replaces the loan when the stored version matches
func (m *MockLoanRepository) Update(ctx context.Context, loan *domain.Loan, expectedVersion int32) (*domain.Loan, error) {
	if m.UpdateFn != nil {
		return m.UpdateFn(loan, expectedVersion)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.Loans[loan.ID]
	if !ok {
		return nil, domain.ErrLoanNotFound
	}
	if current.Version != expectedVersion {
		return nil, domain.ErrVersionMismatch
	}
	stored := loan.Clone()
	stored.Version = expectedVersion + 1
	stored.CreatedAt = current.CreatedAt
	stored.UpdatedAt = time.Now()
	m.Loans[stored.ID] = stored
	return stored.Clone(), nil
}

// Delete removes a loan
func (m *MockLoanRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Loans[id]; !ok {
		return domain.ErrLoanNotFound
	}
	delete(m.Loans, id)
	return nil
}

func (m *MockLoanRepository) snapshot() func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	loans := make(map[uuid.UUID]*domain.Loan, len(m.Loans))
	for id, l := range m.Loans {
		loans[id] = l.Clone()
	}
	order := append([]uuid.UUID(nil), m.order...)
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.Loans = loans
		m.order = order
	}
}

// MockLoanPaymentRepository is a mock implementation of domain.LoanPaymentRepository
type MockLoanPaymentRepository struct {
	mu        sync.Mutex
	Payments  []*domain.LoanPayment
	CreateErr error
}

// NewMockLoanPaymentRepository creates a new MockLoanPaymentRepository
func NewMockLoanPaymentRepository() *MockLoanPaymentRepository {
	return &MockLoanPaymentRepository{}
}

// Create records a payment
func (m *MockLoanPaymentRepository) Create(ctx context.Context, payment *domain.LoanPayment) (*domain.LoanPayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	p := *payment
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	m.Payments = append(m.Payments, &p)
	return &p, nil
}

// ListByLoan returns a loan's payments newest first
func (m *MockLoanPaymentRepository) ListByLoan(ctx context.Context, loanID uuid.UUID) ([]*domain.LoanPayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := []*domain.LoanPayment{}
	for i := len(m.Payments) - 1; i >= 0; i-- {
		if m.Payments[i].LoanID == loanID {
			result = append(result, m.Payments[i])
		}
	}
	return result, nil
}

func (m *MockLoanPaymentRepository) snapshot() func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	saved := append([]*domain.LoanPayment(nil), m.Payments...)
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.Payments = saved
	}
}

// MockTransactionRepository is a mock implementation of domain.TransactionRepository
type MockTransactionRepository struct {
	mu           sync.Mutex
	Transactions []*domain.Transaction
	CreateErr    error
}

// NewMockTransactionRepository creates a new MockTransactionRepository
func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{}
}

// Create appends a ledger entry
func (m *MockTransactionRepository) Create(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	t := *tx
	t.ID = uuid.New()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	m.Transactions = append(m.Transactions, &t)
	return &t, nil
}

// AddTransaction is a helper to add an entry with a chosen timestamp
func (m *MockTransactionRepository) AddTransaction(tx *domain.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	m.Transactions = append(m.Transactions, tx)
}

// ByType returns the entries of one type in insertion order
func (m *MockTransactionRepository) ByType(txType domain.TransactionType) []*domain.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*domain.Transaction
	for _, t := range m.Transactions {
		if t.Type == txType {
			result = append(result, t)
		}
	}
	return result
}

// List returns matching entries newest first
func (m *MockTransactionRepository) List(ctx context.Context, filters domain.TransactionFilters) ([]*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := []*domain.Transaction{}
	for i := len(m.Transactions) - 1; i >= 0; i-- {
		t := m.Transactions[i]
		if filters.CollectorID != nil && t.CollectorID != *filters.CollectorID {
			continue
		}
		if filters.LoanID != nil && t.LoanID != *filters.LoanID {
			continue
		}
		if filters.Type != nil && t.Type != *filters.Type {
			continue
		}
		if filters.From != nil && t.CreatedAt.Before(*filters.From) {
			continue
		}
		if filters.To != nil && !t.CreatedAt.Before(*filters.To) {
			continue
		}
		result = append(result, t)
		if filters.Limit > 0 && int32(len(result)) == filters.Limit {
			break
		}
	}
	return result, nil
}

// SumByCollectorSince totals the collector's entries of a type created at or after since
func (m *MockTransactionRepository) SumByCollectorSince(ctx context.Context, collectorID uuid.UUID, txType domain.TransactionType, since time.Time) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sum := decimal.Zero
	for _, t := range m.Transactions {
		if t.CollectorID == collectorID && t.Type == txType && !t.CreatedAt.Before(since) {
			sum = sum.Add(t.Amount)
		}
	}
	return sum, nil
}

func (m *MockTransactionRepository) snapshot() func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	saved := append([]*domain.Transaction(nil), m.Transactions...)
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.Transactions = saved
	}
}

// MockUnitOfWork runs fn against the mock repositories and restores their
// contents when fn fails, mimicking a rolled back transaction
type MockUnitOfWork struct {
	Loans        *MockLoanRepository
	Payments     *MockLoanPaymentRepository
	Transactions *MockTransactionRepository
	Calls        int
}

// NewMockUnitOfWork creates a MockUnitOfWork over the given repositories
func NewMockUnitOfWork(loans *MockLoanRepository, payments *MockLoanPaymentRepository, txs *MockTransactionRepository) *MockUnitOfWork {
	return &MockUnitOfWork{Loans: loans, Payments: payments, Transactions: txs}
}

// WithinTx implements domain.UnitOfWork
func (u *MockUnitOfWork) WithinTx(ctx context.Context, fn func(r domain.Repos) error) error {
	u.Calls++
	restoreLoans := u.Loans.snapshot()
	restorePayments := u.Payments.snapshot()
	restoreTxs := u.Transactions.snapshot()

	err := fn(domain.Repos{
		Loans:        u.Loans,
		Payments:     u.Payments,
		Transactions: u.Transactions,
	})
	if err != nil {
		restoreLoans()
		restorePayments()
		restoreTxs()
		return err
	}
	return nil
}

// MockInterestConfigRepository is a mock implementation of domain.InterestConfigRepository
type MockInterestConfigRepository struct {
	mu        sync.Mutex
	Rows      []*domain.InterestConfig
	GetErr    error
	CreateErr error
	Gets      int
}

// NewMockInterestConfigRepository creates a new MockInterestConfigRepository
func NewMockInterestConfigRepository() *MockInterestConfigRepository {
	return &MockInterestConfigRepository{}
}

// GetCurrent returns the most recently updated row
func (m *MockInterestConfigRepository) GetCurrent(ctx context.Context) (*domain.InterestConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Gets++
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	var latest *domain.InterestConfig
	for _, row := range m.Rows {
		if latest == nil || !row.UpdatedAt.Before(latest.UpdatedAt) {
			latest = row
		}
	}
	if latest == nil {
		return nil, domain.ErrConfigNotFound
	}
	c := *latest
	return &c, nil
}

// Create appends a configuration row
func (m *MockInterestConfigRepository) Create(ctx context.Context, cfg *domain.InterestConfig) (*domain.InterestConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	c := *cfg
	c.ID = uuid.New()
	c.UpdatedAt = time.Now()
	m.Rows = append(m.Rows, &c)
	out := c
	return &out, nil
}

// PublishedEvent records one call on MockEventPublisher
type PublishedEvent struct {
	CollectorID uuid.UUID
	All         bool
	Event       websocket.Event
}

// MockEventPublisher captures published events
type MockEventPublisher struct {
	mu     sync.Mutex
	Events []PublishedEvent
}

// NewMockEventPublisher creates a new MockEventPublisher
func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{}
}

// Publish records a collector-scoped event
func (m *MockEventPublisher) Publish(collectorID uuid.UUID, event websocket.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, PublishedEvent{CollectorID: collectorID, Event: event})
}

// PublishAll records a broadcast event
func (m *MockEventPublisher) PublishAll(event websocket.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, PublishedEvent{All: true, Event: event})
}

// Types returns the published event types in order
func (m *MockEventPublisher) Types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, len(m.Events))
	for i, e := range m.Events {
		types[i] = e.Event.Type
	}
	return types
}
