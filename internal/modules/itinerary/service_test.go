package itinerary

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tripdesk/internal/domain"
)

type MockItineraryRepository struct {
	mock.Mock
}

func (m *MockItineraryRepository) Create(ctx context.Context, i *domain.Itinerary) error {
	args := m.Called(ctx, i)
	if i != nil {
		i.ID = 999 // simulate DB insert
	}
	return args.Error(0)
}

func (m *MockItineraryRepository) GetByID(ctx context.Context, id int64) (*domain.Itinerary, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Itinerary), args.Error(1)
}

func (m *MockItineraryRepository) Update(ctx context.Context, i *domain.Itinerary) error {
	args := m.Called(ctx, i)
	return args.Error(0)
}

func (m *MockItineraryRepository) UpdateStatus(ctx context.Context, id int64, status domain.ItineraryStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockItineraryRepository) UpdateApprovalStatus(ctx context.Context, id int64, status domain.ApprovalStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockItineraryRepository) ListByAgent(ctx context.Context, agentID int64, limit, offset int) ([]domain.Itinerary, error) {
	args := m.Called(ctx, agentID, limit, offset)
	return args.Get(0).([]domain.Itinerary), args.Error(1)
}

func (m *MockItineraryRepository) ListByTraveler(ctx context.Context, travelerID int64, limit, offset int) ([]domain.Itinerary, error) {
	args := m.Called(ctx, travelerID, limit, offset)
	return args.Get(0).([]domain.Itinerary), args.Error(1)
}

type MockWorkflowStarter struct {
	mock.Mock
}

func (m *MockWorkflowStarter) Start(ctx context.Context, itineraryID, agentID int64) (*domain.WorkflowProgress, error) {
	args := m.Called(ctx, itineraryID, agentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WorkflowProgress), args.Error(1)
}

func baseItinerary(status domain.ItineraryStatus) *domain.Itinerary {
	return &domain.Itinerary{
		ID:             1,
		AgentID:        7,
		Destination:    "Phuket",
		StartDate:      time.Now(),
		EndDate:        time.Now().AddDate(0, 0, 5),
		TravelerCount:  4,
		Status:         status,
		ApprovalStatus: domain.ApprovalPending,
	}
}

func TestCreate_RejectsInvertedDates(t *testing.T) {
	svc := NewService(new(MockItineraryRepository), new(MockWorkflowStarter))
	_, err := svc.Create(context.Background(), 7, CreateRequest{
		Destination:   "Phuket",
		StartDate:     time.Now(),
		EndDate:       time.Now().AddDate(0, 0, -1),
		TravelerCount: 2,
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdate_SharedBecomesModified(t *testing.T) {
	mockRepo := new(MockItineraryRepository)
	mockRepo.On("GetByID", mock.Anything, int64(1)).Return(baseItinerary(domain.ItineraryShared), nil)
	mockRepo.On("Update", mock.Anything, mock.Anything).Return(nil)

	svc := NewService(mockRepo, new(MockWorkflowStarter))
	it, err := svc.Update(context.Background(), 1, 7, UpdateRequest{Destination: "Krabi"})
	require.NoError(t, err)

	assert.Equal(t, "Krabi", it.Destination)
	assert.Equal(t, domain.ItineraryModified, it.Status)
}

func TestUpdate_ForeignItinerary(t *testing.T) {
	mockRepo := new(MockItineraryRepository)
	mockRepo.On("GetByID", mock.Anything, int64(1)).Return(baseItinerary(domain.ItineraryDraft), nil)

	svc := NewService(mockRepo, new(MockWorkflowStarter))
	_, err := svc.Update(context.Background(), 1, 42, UpdateRequest{Destination: "Krabi"})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestUpdateStatus_Transitions(t *testing.T) {
	tests := []struct {
		from domain.ItineraryStatus
		to   domain.ItineraryStatus
		ok   bool
	}{
		{domain.ItineraryDraft, domain.ItineraryShared, true},
		{domain.ItineraryShared, domain.ItineraryConfirmed, true},
		{domain.ItineraryShared, domain.ItineraryModified, true},
		{domain.ItineraryModified, domain.ItineraryShared, true},
		{domain.ItineraryConfirmed, domain.ItineraryModified, true},
		{domain.ItineraryDraft, domain.ItineraryConfirmed, false},
		{domain.ItineraryDraft, domain.ItineraryNegotiated, false},
		{domain.ItineraryNegotiated, domain.ItineraryShared, false},
	}
	for _, tt := range tests {
		mockRepo := new(MockItineraryRepository)
		mockRepo.On("GetByID", mock.Anything, int64(1)).Return(baseItinerary(tt.from), nil)
		mockRepo.On("UpdateStatus", mock.Anything, int64(1), tt.to).Return(nil)

		svc := NewService(mockRepo, new(MockWorkflowStarter))
		_, err := svc.UpdateStatus(context.Background(), 1, 7, tt.to)
		if tt.ok {
			assert.NoError(t, err, "%s -> %s", tt.from, tt.to)
		} else {
			assert.ErrorIs(t, err, ErrInvalidTransition, "%s -> %s", tt.from, tt.to)
		}
	}
}

func TestApprove_StartsWorkflow(t *testing.T) {
	mockRepo := new(MockItineraryRepository)
	mockWf := new(MockWorkflowStarter)
	mockRepo.On("GetByID", mock.Anything, int64(1)).Return(baseItinerary(domain.ItineraryConfirmed), nil)
	mockRepo.On("UpdateApprovalStatus", mock.Anything, int64(1), domain.ApprovalApproved).Return(nil)
	mockWf.On("Start", mock.Anything, int64(1), int64(7)).Return(&domain.WorkflowProgress{
		ItineraryID: 1,
		Phase:       domain.PhaseAwaitingResponses,
		Percent:     70,
	}, nil)

	svc := NewService(mockRepo, mockWf)
	p, err := svc.Approve(context.Background(), 1, 7)
	require.NoError(t, err)

	assert.Equal(t, domain.PhaseAwaitingResponses, p.Phase)
	mockRepo.AssertExpectations(t)
	mockWf.AssertExpectations(t)
}

func TestApprove_AlreadyApproved(t *testing.T) {
	mockRepo := new(MockItineraryRepository)
	it := baseItinerary(domain.ItineraryConfirmed)
	it.ApprovalStatus = domain.ApprovalApproved
	mockRepo.On("GetByID", mock.Anything, int64(1)).Return(it, nil)

	svc := NewService(mockRepo, new(MockWorkflowStarter))
	_, err := svc.Approve(context.Background(), 1, 7)
	assert.ErrorIs(t, err, ErrAlreadyApproved)
}
