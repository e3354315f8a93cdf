package service

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/prestadiario/prestadiario-backend/internal/calendar"
	"github.com/prestadiario/prestadiario-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// DashboardService builds the overview figures for collectors and admins
type DashboardService struct {
	loanRepo domain.LoanRepository
	txRepo   domain.TransactionRepository
	userRepo domain.UserRepository
	cal      *calendar.Calendar
	now      func() time.Time
}

// NewDashboardService creates a new DashboardService
func NewDashboardService(loanRepo domain.LoanRepository, txRepo domain.TransactionRepository, userRepo domain.UserRepository, cal *calendar.Calendar) *DashboardService {
	return &DashboardService{
		loanRepo: loanRepo,
		txRepo:   txRepo,
		userRepo: userRepo,
		cal:      cal,
		now:      time.Now,
	}
}

// SetClock overrides the wall clock, for tests
func (s *DashboardService) SetClock(now func() time.Time) {
	s.now = now
}

// CollectorSummary returns the figures for one collector's portfolio
func (s *DashboardService) CollectorSummary(ctx context.Context, collectorID uuid.UUID) (*domain.CollectorSummary, error) {
	loans, err := s.loanRepo.ListByCollector(ctx, collectorID, domain.LoanFilterAll)
	if err != nil {
		return nil, err
	}

	now := s.now()
	today := s.cal.Today(now)
	summary := summarize(collectorID, loans, today)

	startOfDay := time.Date(today.Year, today.Month, today.Day, 0, 0, 0, 0, s.cal.Location())
	collected, err := s.txRepo.SumByCollectorSince(ctx, collectorID, domain.TransactionTypeCollection, startOfDay)
	if err != nil {
		return nil, err
	}
	summary.CollectedToday = collected
	return summary, nil
}

func summarize(collectorID uuid.UUID, loans []*domain.Loan, today civil.Date) *domain.CollectorSummary {
	summary := &domain.CollectorSummary{
		CollectorID:    collectorID,
		Outstanding:    decimal.Zero,
		CollectedToday: decimal.Zero,
	}
	for _, l := range loans {
		if l.RenewedFromID != nil && l.StartDate.Year == today.Year && l.StartDate.Month == today.Month {
			summary.RenewedThisMonth++
		}
		if !l.State.IsOpen() {
			continue
		}
		summary.ActiveLoans++
		if domain.NormalizeLoanState(l.State) == domain.LoanStateDelinquent {
			summary.Delinquent++
		} else {
			summary.OnTime++
		}
		if IsDueForCollection(l, today) {
			summary.DueToday++
		}
		summary.Outstanding = summary.Outstanding.Add(l.PendingBalance)
	}
	return summary
}

// AdminOverview returns a summary per collector plus totals
func (s *DashboardService) AdminOverview(ctx context.Context) (*domain.AdminOverview, error) {
	collectors, err := s.userRepo.ListByRole(ctx, domain.RoleCollector)
	if err != nil {
		return nil, err
	}

	overview := &domain.AdminOverview{
		Collectors: make([]*domain.CollectorSummary, 0, len(collectors)),
		Totals: domain.CollectorSummary{
			Outstanding:    decimal.Zero,
			CollectedToday: decimal.Zero,
		},
	}
	for _, c := range collectors {
		summary, err := s.CollectorSummary(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		summary.CollectorName = c.Name
		overview.Collectors = append(overview.Collectors, summary)

		t := &overview.Totals
		t.ActiveLoans += summary.ActiveLoans
		t.OnTime += summary.OnTime
		t.Delinquent += summary.Delinquent
		t.RenewedThisMonth += summary.RenewedThisMonth
		t.DueToday += summary.DueToday
		t.Outstanding = t.Outstanding.Add(summary.Outstanding)
		t.CollectedToday = t.CollectedToday.Add(summary.CollectedToday)
	}
	return overview, nil
}
