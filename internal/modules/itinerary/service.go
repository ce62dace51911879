package itinerary

import (
	"context"
	"errors"
	"time"

	"tripdesk/internal/domain"
	"tripdesk/internal/repository"
)

// ItineraryRepository is the persistence surface for itineraries.
type ItineraryRepository interface {
	Create(ctx context.Context, i *domain.Itinerary) error
	GetByID(ctx context.Context, id int64) (*domain.Itinerary, error)
	Update(ctx context.Context, i *domain.Itinerary) error
	UpdateStatus(ctx context.Context, id int64, status domain.ItineraryStatus) error
	UpdateApprovalStatus(ctx context.Context, id int64, status domain.ApprovalStatus) error
	ListByAgent(ctx context.Context, agentID int64, limit, offset int) ([]domain.Itinerary, error)
	ListByTraveler(ctx context.Context, travelerID int64, limit, offset int) ([]domain.Itinerary, error)
}

// WorkflowStarter kicks the post-approval orchestration.
type WorkflowStarter interface {
	Start(ctx context.Context, itineraryID, agentID int64) (*domain.WorkflowProgress, error)
}

type Service struct {
	itineraries ItineraryRepository
	workflows   WorkflowStarter
}

func NewService(itineraries ItineraryRepository, workflows WorkflowStarter) *Service {
	return &Service{itineraries: itineraries, workflows: workflows}
}

func (s *Service) Create(ctx context.Context, agentID int64, req CreateRequest) (*domain.Itinerary, error) {
	if !req.EndDate.After(req.StartDate) {
		return nil, ErrValidation
	}

	it := &domain.Itinerary{
		AgentID:        agentID,
		TravelerID:     req.TravelerID,
		Destination:    req.Destination,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		TravelerCount:  req.TravelerCount,
		Days:           toDays(req.Days),
		Status:         domain.ItineraryDraft,
		ApprovalStatus: domain.ApprovalPending,
	}
	if err := s.itineraries.Create(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*domain.Itinerary, error) {
	it, err := s.itineraries.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return it, nil
}

// Update edits the draft content. Editing a shared or confirmed
// itinerary moves it to modified.
func (s *Service) Update(ctx context.Context, id, agentID int64, req UpdateRequest) (*domain.Itinerary, error) {
	it, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if it.AgentID != agentID {
		return nil, ErrForbidden
	}
	if it.Status == domain.ItineraryNegotiated {
		return nil, ErrInvalidTransition
	}

	if req.Destination != "" {
		it.Destination = req.Destination
	}
	if req.StartDate != nil {
		it.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		it.EndDate = *req.EndDate
	}
	if req.TravelerCount > 0 {
		it.TravelerCount = req.TravelerCount
	}
	if req.Days != nil {
		it.Days = toDays(req.Days)
	}
	if !it.EndDate.After(it.StartDate) {
		return nil, ErrValidation
	}
	if it.Status == domain.ItineraryShared || it.Status == domain.ItineraryConfirmed {
		it.Status = domain.ItineraryModified
	}
	it.UpdatedAt = time.Now()

	if err := s.itineraries.Update(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

// UpdateStatus applies an agent-driven lifecycle transition. The
// negotiated status is reserved for the workflow.
func (s *Service) UpdateStatus(ctx context.Context, id, agentID int64, status domain.ItineraryStatus) (*domain.Itinerary, error) {
	it, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if it.AgentID != agentID {
		return nil, ErrForbidden
	}
	if !validTransition(it.Status, status) {
		return nil, ErrInvalidTransition
	}

	if err := s.itineraries.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	it.Status = status
	return it, nil
}

func validTransition(from, to domain.ItineraryStatus) bool {
	switch from {
	case domain.ItineraryDraft:
		return to == domain.ItineraryShared
	case domain.ItineraryShared:
		return to == domain.ItineraryConfirmed || to == domain.ItineraryModified
	case domain.ItineraryModified:
		return to == domain.ItineraryShared || to == domain.ItineraryConfirmed
	case domain.ItineraryConfirmed:
		return to == domain.ItineraryModified
	default:
		return false
	}
}

// Approve marks the itinerary approved and starts the post-approval
// negotiation workflow.
func (s *Service) Approve(ctx context.Context, id, agentID int64) (*domain.WorkflowProgress, error) {
	it, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if it.AgentID != agentID {
		return nil, ErrForbidden
	}
	if it.ApprovalStatus == domain.ApprovalApproved {
		return nil, ErrAlreadyApproved
	}

	if err := s.itineraries.UpdateApprovalStatus(ctx, id, domain.ApprovalApproved); err != nil {
		return nil, err
	}

	return s.workflows.Start(ctx, id, agentID)
}

func (s *Service) ListByAgent(ctx context.Context, agentID int64, limit, offset int) ([]domain.Itinerary, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.itineraries.ListByAgent(ctx, agentID, limit, offset)
}

func (s *Service) ListByTraveler(ctx context.Context, travelerID int64, limit, offset int) ([]domain.Itinerary, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.itineraries.ListByTraveler(ctx, travelerID, limit, offset)
}
