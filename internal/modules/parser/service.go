package parser

import (
	"context"
	"errors"
	"math"
	"strings"

	"tripdesk/internal/domain"
)

var ErrNoDays = errors.New("itinerary has no days to parse")

// ItemRepository is the subset of item persistence the parser needs.
type ItemRepository interface {
	CountByItinerary(ctx context.Context, itineraryID int64) (int64, error)
	BulkCreate(ctx context.Context, items []domain.ItineraryItem) error
	ListByItinerary(ctx context.Context, itineraryID int64) ([]domain.ItineraryItem, error)
}

// MarketSource resolves a reference rate for a service type in a
// location. May be nil; parsing then uses built-in base prices only.
type MarketSource interface {
	GetRate(ctx context.Context, serviceType domain.ServiceType, location string) (*domain.MarketIntelligence, error)
}

type classificationRule struct {
	serviceType domain.ServiceType
	negotiable  bool
	keywords    []string
}

// Rule order matters: the first keyword hit wins, and leisure must be
// checked before anything else so "free time at the resort" never
// becomes an accommodation item.
var classificationRules = []classificationRule{
	{domain.ServiceLeisure, false, []string{"free time", "leisure", "relax", "at your own pace"}},
	{domain.ServiceTransportation, true, []string{"transfer", "pickup", "pick-up", "drop-off", "shuttle", "taxi"}},
	{domain.ServiceTours, true, []string{"tour", "visit", "excursion", "sightseeing", "day trip"}},
	{domain.ServiceAccommodation, true, []string{"hotel", "resort", "check-in", "check in", "villa", "hostel"}},
	{domain.ServiceDining, true, []string{"dinner", "lunch", "breakfast", "restaurant", "tasting"}},
	{domain.ServiceActivities, true, []string{"show", "spa", "ticket", "massage", "snorkel", "class"}},
}

// Base price per service type, before group sizing and market override.
var basePrices = map[domain.ServiceType]float64{
	domain.ServiceTransportation: 50,
	domain.ServiceTours:          120,
	domain.ServiceAccommodation:  200,
	domain.ServiceDining:         40,
	domain.ServiceActivities:     80,
}

// Group-rate services price per booking with diminishing returns;
// everything else is priced per person.
var groupRateServices = map[domain.ServiceType]bool{
	domain.ServiceTransportation: true,
	domain.ServiceAccommodation:  true,
}

type Service struct {
	items  ItemRepository
	market MarketSource
}

func NewService(items ItemRepository, market MarketSource) *Service {
	return &Service{items: items, market: market}
}

// Classify maps one free-text activity line to a service type and a
// negotiable flag.
func Classify(activity string) (domain.ServiceType, bool) {
	text := strings.ToLower(activity)
	for _, rule := range classificationRules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return rule.serviceType, rule.negotiable
			}
		}
	}
	return domain.ServiceActivities, true
}

// GroupMultiplier returns the factor applied to the base price for a
// group of n travelers: n for per-person services, 1+(n-1)*0.7 for
// group-rate services.
func GroupMultiplier(serviceType domain.ServiceType, n int) float64 {
	if n < 1 {
		n = 1
	}
	if groupRateServices[serviceType] {
		return 1 + float64(n-1)*0.7
	}
	return float64(n)
}

// PriorityFor assigns negotiation priority from price and service type.
func PriorityFor(serviceType domain.ServiceType, price float64) domain.ItemPriority {
	if price > 300 || serviceType == domain.ServiceAccommodation || serviceType == domain.ServiceTours {
		return domain.PriorityHigh
	}
	if price > 100 || serviceType == domain.ServiceTransportation || serviceType == domain.ServiceActivities {
		return domain.PriorityMedium
	}
	return domain.PriorityLow
}

// ParseItinerary converts the itinerary's free-text days into line
// items without persisting them.
func (s *Service) ParseItinerary(ctx context.Context, it *domain.Itinerary) ([]domain.ItineraryItem, error) {
	if len(it.Days) == 0 {
		return nil, ErrNoDays
	}

	items := make([]domain.ItineraryItem, 0)
	for _, day := range it.Days {
		for _, activity := range day.Activities {
			if strings.TrimSpace(activity) == "" {
				continue
			}

			serviceType, negotiable := Classify(activity)

			item := domain.ItineraryItem{
				ItineraryID:  it.ID,
				DayNumber:    day.DayNumber,
				ActivityText: activity,
				ServiceType:  serviceType,
				Participants: it.TravelerCount,
				IsNegotiable: negotiable,
				Priority:     domain.PriorityLow,
			}

			if negotiable {
				base := basePrices[serviceType]
				if s.market != nil {
					if mi, err := s.market.GetRate(ctx, serviceType, it.Destination); err == nil && mi != nil && mi.MedianRate > 0 {
						base = mi.MedianRate
						rate := mi.MedianRate
						item.MarketRate = &rate
					}
				}
				price := round2(base * GroupMultiplier(serviceType, it.TravelerCount))
				item.EstimatedPrice = price
				item.Priority = PriorityFor(serviceType, price)
			}

			items = append(items, item)
		}
	}
	return items, nil
}

// ParseAndStore parses and persists items for an itinerary. Re-running
// against an itinerary that already has items is a no-op: the stored
// items are returned unchanged and created is false.
func (s *Service) ParseAndStore(ctx context.Context, it *domain.Itinerary) (items []domain.ItineraryItem, created bool, err error) {
	cnt, err := s.items.CountByItinerary(ctx, it.ID)
	if err != nil {
		return nil, false, err
	}
	if cnt > 0 {
		existing, err := s.items.ListByItinerary(ctx, it.ID)
		return existing, false, err
	}

	parsed, err := s.ParseItinerary(ctx, it)
	if err != nil {
		return nil, false, err
	}
	if err := s.items.BulkCreate(ctx, parsed); err != nil {
		return nil, false, err
	}
	return parsed, true, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
