package negotiation

import (
	"time"

	"tripdesk/internal/domain"
)

// BulkRequest creates one negotiation per itinerary item.
type BulkRequest struct {
	ItineraryID           int64               `json:"itinerary_id" binding:"required"`
	ItemIDs               []int64             `json:"item_ids" binding:"required"`
	AgentID               int64               `json:"-"`
	Priority              domain.ItemPriority `json:"priority"`
	Deadline              *time.Time          `json:"deadline,omitempty"`
	AutoApprovalThreshold float64             `json:"auto_approval_threshold,omitempty"`
}

// ItemError records a per-item failure during bulk creation. Bulk
// processing continues past these; partial success is the normal case.
type ItemError struct {
	ItemID int64  `json:"item_id"`
	Reason string `json:"reason"`
}

// BulkResult aggregates the outcome of a bulk creation run.
type BulkResult struct {
	Created          int         `json:"created"`
	NegotiationIDs   []int64     `json:"negotiation_ids"`
	EstimatedSavings float64     `json:"estimated_savings"`
	Errors           []ItemError `json:"errors,omitempty"`
}

type AddMessageRequest struct {
	Text       string   `json:"text" binding:"required"`
	PriceOffer *float64 `json:"price_offer,omitempty"`
}

type RespondRequest struct {
	Offer float64 `json:"offer" binding:"required,gt=0"`
	Text  string  `json:"text"`
}

type UpdateStatusRequest struct {
	Status     domain.NegotiationStatus `json:"status" binding:"required"`
	FinalPrice *float64                 `json:"final_price,omitempty"`
}
