package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/prestadiario/prestadiario-backend/internal/domain"
	"github.com/prestadiario/prestadiario-backend/internal/websocket"
	"github.com/rs/zerolog/log"
)

// CollectorService handles admin oversight of field collectors
type CollectorService struct {
	userRepo       domain.UserRepository
	loanRepo       domain.LoanRepository
	eventPublisher websocket.EventPublisher
}

// NewCollectorService creates a new CollectorService
func NewCollectorService(userRepo domain.UserRepository, loanRepo domain.LoanRepository) *CollectorService {
	return &CollectorService{
		userRepo: userRepo,
		loanRepo: loanRepo,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *CollectorService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

// ListCollectors returns every collector ordered by name
func (s *CollectorService) ListCollectors(ctx context.Context) ([]*domain.User, error) {
	return s.userRepo.ListByRole(ctx, domain.RoleCollector)
}

// SetCollectorActive enables or disables a collector. Disabled collectors are
// rejected at authentication but keep their loans.
func (s *CollectorService) SetCollectorActive(ctx context.Context, actor *domain.User, id uuid.UUID, active bool) (*domain.User, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrAdminRequired
	}
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role != domain.RoleCollector {
		return nil, domain.ErrNotACollector
	}

	updated, err := s.userRepo.SetActive(ctx, id, active)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("collector_id", id.String()).
		Bool("active", active).
		Str("admin_id", actor.ID.String()).
		Msg("Collector status changed")
	return updated, nil
}

// ReassignLoan moves a loan to another active collector
func (s *CollectorService) ReassignLoan(ctx context.Context, actor *domain.User, loanID, collectorID uuid.UUID, expectedVersion int32) (*domain.Loan, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrAdminRequired
	}

	target, err := s.userRepo.GetByID(ctx, collectorID)
	if err != nil {
		return nil, err
	}
	if target.Role != domain.RoleCollector {
		return nil, domain.ErrNotACollector
	}
	if !target.Active {
		return nil, domain.ErrCollectorInactive
	}

	loan, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.Version != expectedVersion {
		return nil, domain.ErrVersionMismatch
	}
	if !loan.State.IsOpen() {
		return nil, domain.ErrLoanCompleted
	}

	next := loan.Clone()
	next.CollectorID = collectorID
	updated, err := s.loanRepo.Update(ctx, next, expectedVersion)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("loan_id", loanID.String()).
		Str("from_collector", loan.CollectorID.String()).
		Str("to_collector", collectorID.String()).
		Msg("Loan reassigned")

	if s.eventPublisher != nil {
		event := websocket.LoanReassigned(updated)
		s.eventPublisher.Publish(loan.CollectorID, event)
		if loan.CollectorID != collectorID {
			s.eventPublisher.Publish(collectorID, event)
		}
	}
	return updated, nil
}
