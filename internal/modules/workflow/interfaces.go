package workflow

import (
	"context"
	"time"

	"tripdesk/internal/domain"
	"tripdesk/internal/modules/negotiation"
	"tripdesk/internal/modules/vendor"
	"tripdesk/internal/repository"
)

// ItineraryStore resolves itineraries and records the final status flip
// to negotiated.
type ItineraryStore interface {
	GetByID(ctx context.Context, id int64) (*domain.Itinerary, error)
	UpdateStatus(ctx context.Context, id int64, status domain.ItineraryStatus) error
}

// ItemParser turns an approved itinerary into stored line items. The
// second return reports whether items were created by this call (false
// means the idempotent no-op path).
type ItemParser interface {
	ParseAndStore(ctx context.Context, it *domain.Itinerary) ([]domain.ItineraryItem, bool, error)
}

// ItemStore records vendor suggestions on parsed items.
type ItemStore interface {
	GetByID(ctx context.Context, id int64) (*domain.ItineraryItem, error)
	SetSuggestedVendors(ctx context.Context, itemID int64, vendorIDs []int64) error
}

// VendorMatcher ranks vendors for a service request.
type VendorMatcher interface {
	MatchVendors(ctx context.Context, req vendor.MatchRequest) ([]vendor.Match, error)
}

// BulkCreator creates the negotiation batch for the parsed items.
type BulkCreator interface {
	CreateBulk(ctx context.Context, req negotiation.BulkRequest) (*negotiation.BulkResult, error)
}

// NegotiationStore is the polling and non-response surface.
type NegotiationStore interface {
	GetByID(ctx context.Context, id int64) (*domain.Negotiation, error)
	UpdateStatus(ctx context.Context, id int64, status domain.NegotiationStatus) error
	CountByStatus(ctx context.Context, itineraryID int64) (repository.StatusCounts, error)
}

// ProgressStore persists workflow progress so a restart can resume.
type ProgressStore interface {
	Upsert(ctx context.Context, p *domain.WorkflowProgress) error
	GetByItinerary(ctx context.Context, itineraryID int64) (*domain.WorkflowProgress, error)
	ListActive(ctx context.Context, now time.Time) ([]domain.WorkflowProgress, error)
}

// Notifier delivers workflow status messages; delivery problems are the
// implementation's concern, never the orchestrator's.
type Notifier interface {
	NotifyWorkflowPartial(ctx context.Context, agentID, itineraryID int64, completed, total int)
	NotifyWorkflowCompleted(ctx context.Context, userID, itineraryID int64, savings float64)
	NotifyWorkflowFailed(ctx context.Context, agentID, itineraryID int64, reason string)
}
