package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tripdesk/internal/domain"
)

type MockItemRepository struct {
	mock.Mock
}

func (m *MockItemRepository) CountByItinerary(ctx context.Context, itineraryID int64) (int64, error) {
	args := m.Called(ctx, itineraryID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockItemRepository) BulkCreate(ctx context.Context, items []domain.ItineraryItem) error {
	args := m.Called(ctx, items)
	return args.Error(0)
}

func (m *MockItemRepository) ListByItinerary(ctx context.Context, itineraryID int64) ([]domain.ItineraryItem, error) {
	args := m.Called(ctx, itineraryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ItineraryItem), args.Error(1)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		activity   string
		want       domain.ServiceType
		negotiable bool
	}{
		{"Airport transfer to resort", domain.ServiceTransportation, true},
		{"Phi Phi Islands tour", domain.ServiceTours, true},
		{"Hotel check-in", domain.ServiceAccommodation, true},
		{"Welcome dinner at beachfront restaurant", domain.ServiceDining, true},
		{"Snorkeling at Maya Bay", domain.ServiceActivities, true},
		{"Free time in the evening", domain.ServiceLeisure, false},
		// Leisure wins even when another keyword appears later.
		{"Free time at the resort", domain.ServiceLeisure, false},
		// No keyword at all defaults to activities.
		{"Morning yoga on the beach", domain.ServiceActivities, true},
	}
	for _, tt := range tests {
		got, negotiable := Classify(tt.activity)
		assert.Equal(t, tt.want, got, tt.activity)
		assert.Equal(t, tt.negotiable, negotiable, tt.activity)
	}
}

func TestGroupMultiplier(t *testing.T) {
	// Group-rate services get diminishing returns per extra traveler.
	assert.InDelta(t, 3.1, GroupMultiplier(domain.ServiceTransportation, 4), 1e-9)
	assert.InDelta(t, 1.0, GroupMultiplier(domain.ServiceAccommodation, 1), 1e-9)
	assert.InDelta(t, 1.7, GroupMultiplier(domain.ServiceAccommodation, 2), 1e-9)

	// Per-person services scale linearly.
	assert.InDelta(t, 4.0, GroupMultiplier(domain.ServiceTours, 4), 1e-9)
	assert.InDelta(t, 2.0, GroupMultiplier(domain.ServiceDining, 2), 1e-9)

	// Defensive clamp for zero travelers.
	assert.InDelta(t, 1.0, GroupMultiplier(domain.ServiceTours, 0), 1e-9)
}

func TestPriorityFor(t *testing.T) {
	assert.Equal(t, domain.PriorityHigh, PriorityFor(domain.ServiceAccommodation, 50))
	assert.Equal(t, domain.PriorityHigh, PriorityFor(domain.ServiceTours, 10))
	assert.Equal(t, domain.PriorityHigh, PriorityFor(domain.ServiceDining, 350))
	assert.Equal(t, domain.PriorityMedium, PriorityFor(domain.ServiceTransportation, 50))
	assert.Equal(t, domain.PriorityMedium, PriorityFor(domain.ServiceActivities, 20))
	assert.Equal(t, domain.PriorityMedium, PriorityFor(domain.ServiceDining, 150))
	assert.Equal(t, domain.PriorityLow, PriorityFor(domain.ServiceDining, 80))
}

func TestParseItinerary_TwoDayTrip(t *testing.T) {
	svc := NewService(new(MockItemRepository), nil)

	it := &domain.Itinerary{
		ID:            1,
		Destination:   "Phuket",
		TravelerCount: 4,
		Days: []domain.Day{
			{DayNumber: 1, Title: "Arrival", Activities: []string{
				"Airport transfer to resort",
				"Hotel check-in",
			}},
			{DayNumber: 2, Title: "Islands", Activities: []string{
				"Phi Phi Islands tour",
				"Free time in the evening",
			}},
		},
	}

	items, err := svc.ParseItinerary(context.Background(), it)
	require.NoError(t, err)
	require.Len(t, items, 4)

	transfer := items[0]
	assert.Equal(t, domain.ServiceTransportation, transfer.ServiceType)
	assert.True(t, transfer.IsNegotiable)
	// $50 base at the 1+(4-1)*0.7 group multiplier.
	assert.InDelta(t, 155.0, transfer.EstimatedPrice, 0.001)
	assert.Equal(t, domain.PriorityMedium, transfer.Priority)

	hotel := items[1]
	assert.Equal(t, domain.ServiceAccommodation, hotel.ServiceType)
	assert.InDelta(t, 620.0, hotel.EstimatedPrice, 0.001)
	assert.Equal(t, domain.PriorityHigh, hotel.Priority)

	tour := items[2]
	assert.Equal(t, domain.ServiceTours, tour.ServiceType)
	// $120 base, per person for 4 travelers.
	assert.InDelta(t, 480.0, tour.EstimatedPrice, 0.001)
	assert.Equal(t, domain.PriorityHigh, tour.Priority)

	leisure := items[3]
	assert.Equal(t, domain.ServiceLeisure, leisure.ServiceType)
	assert.False(t, leisure.IsNegotiable)
	assert.Zero(t, leisure.EstimatedPrice)
}

func TestParseItinerary_NoDays(t *testing.T) {
	svc := NewService(new(MockItemRepository), nil)

	_, err := svc.ParseItinerary(context.Background(), &domain.Itinerary{ID: 1})
	assert.ErrorIs(t, err, ErrNoDays)
}

func TestParseItinerary_MarketRateOverride(t *testing.T) {
	svc := NewService(new(MockItemRepository), stubMarket{rate: 110})

	it := &domain.Itinerary{
		ID:            1,
		Destination:   "Phuket",
		TravelerCount: 2,
		Days: []domain.Day{
			{DayNumber: 1, Activities: []string{"Phi Phi Islands tour"}},
		},
	}

	items, err := svc.ParseItinerary(context.Background(), it)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.InDelta(t, 220.0, items[0].EstimatedPrice, 0.001)
	require.NotNil(t, items[0].MarketRate)
	assert.InDelta(t, 110.0, *items[0].MarketRate, 0.001)
}

func TestParseAndStore_IdempotentRerun(t *testing.T) {
	mockItems := new(MockItemRepository)
	existing := []domain.ItineraryItem{{ID: 7, ItineraryID: 1}}
	mockItems.On("CountByItinerary", mock.Anything, int64(1)).Return(int64(1), nil)
	mockItems.On("ListByItinerary", mock.Anything, int64(1)).Return(existing, nil)

	svc := NewService(mockItems, nil)

	items, created, err := svc.ParseAndStore(context.Background(), &domain.Itinerary{ID: 1})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, existing, items)
	mockItems.AssertNotCalled(t, "BulkCreate", mock.Anything, mock.Anything)
}

func TestParseAndStore_FirstRunPersists(t *testing.T) {
	mockItems := new(MockItemRepository)
	mockItems.On("CountByItinerary", mock.Anything, int64(1)).Return(int64(0), nil)
	mockItems.On("BulkCreate", mock.Anything, mock.Anything).Return(nil)

	svc := NewService(mockItems, nil)

	it := &domain.Itinerary{
		ID:            1,
		TravelerCount: 2,
		Days: []domain.Day{
			{DayNumber: 1, Activities: []string{"City sightseeing tour"}},
		},
	}

	items, created, err := svc.ParseAndStore(context.Background(), it)
	require.NoError(t, err)
	assert.True(t, created)
	require.Len(t, items, 1)
	mockItems.AssertExpectations(t)
}

type stubMarket struct {
	rate float64
}

func (s stubMarket) GetRate(ctx context.Context, serviceType domain.ServiceType, location string) (*domain.MarketIntelligence, error) {
	return &domain.MarketIntelligence{
		ServiceType: serviceType,
		Location:    location,
		MedianRate:  s.rate,
		SampleSize:  10,
	}, nil
}
