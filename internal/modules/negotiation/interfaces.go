package negotiation

import (
	"context"

	"tripdesk/internal/domain"
	"tripdesk/internal/modules/vendor"
	"tripdesk/internal/repository"
)

// NegotiationRepository defines the persistence surface for negotiation
// records.
type NegotiationRepository interface {
	Create(ctx context.Context, itineraryID int64, n *domain.Negotiation) error
	GetByID(ctx context.Context, id int64) (*domain.Negotiation, error)
	ListByItinerary(ctx context.Context, itineraryID int64) ([]domain.Negotiation, error)
	ListByVendor(ctx context.Context, vendorID int64) ([]domain.Negotiation, error)
	ListByAgent(ctx context.Context, agentID int64) ([]domain.Negotiation, error)
	AppendMessage(ctx context.Context, id int64, msg domain.Message) (*domain.Negotiation, error)
	UpdateStatus(ctx context.Context, id int64, status domain.NegotiationStatus) error
	SetFinalPrice(ctx context.Context, id int64, price float64) error
	CountByStatus(ctx context.Context, itineraryID int64) (repository.StatusCounts, error)
}

// ItemRepository gives the bulk service access to the items being
// negotiated.
type ItemRepository interface {
	GetByIDs(ctx context.Context, ids []int64) ([]domain.ItineraryItem, error)
}

// ItineraryReader resolves destination and parties for the bulk run.
type ItineraryReader interface {
	GetByID(ctx context.Context, id int64) (*domain.Itinerary, error)
}

// VendorMatcher ranks vendors for a service request.
type VendorMatcher interface {
	MatchVendors(ctx context.Context, req vendor.MatchRequest) ([]vendor.Match, error)
}

// Notifier sends side-channel messages. Implementations must not fail
// the caller; delivery problems are their own concern.
type Notifier interface {
	NotifyNegotiationCreated(ctx context.Context, vendorUserID, negotiationID int64, serviceType domain.ServiceType, targetPrice float64)
	NotifyOfferReceived(ctx context.Context, agentID, negotiationID int64, offer float64)
	NotifyNegotiationClosed(ctx context.Context, agentID, negotiationID int64, status domain.NegotiationStatus, finalPrice float64)
}
