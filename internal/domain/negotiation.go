package domain

import "time"

type NegotiationStatus string

const (
	NegotiationPending     NegotiationStatus = "pending"
	NegotiationNegotiating NegotiationStatus = "negotiating"
	NegotiationAccepted    NegotiationStatus = "accepted"
	NegotiationRejected    NegotiationStatus = "rejected"
	NegotiationExpired     NegotiationStatus = "expired"
)

// Terminal reports whether the status is final. Terminal negotiations
// are immutable.
func (s NegotiationStatus) Terminal() bool {
	return s == NegotiationAccepted || s == NegotiationRejected || s == NegotiationExpired
}

type MessageSender string

const (
	SenderAgent  MessageSender = "agent"
	SenderVendor MessageSender = "vendor"
	SenderSystem MessageSender = "system"
)

// Message is one entry in a negotiation's ordered conversation log.
type Message struct {
	Sender     MessageSender `json:"sender"`
	Text       string        `json:"text"`
	PriceOffer *float64      `json:"price_offer,omitempty"`
	SentAt     time.Time     `json:"sent_at"`
}

// Negotiation links exactly one ItineraryItem to exactly one
// VendorProfile and tracks the offer exchange between agent and vendor.
// AutoApprovalThreshold is the deviation above target (in percent) the
// agent pre-authorized at creation: vendor offers inside it are
// accepted without waiting for the agent. Zero disables auto-approval.
type Negotiation struct {
	ID                    int64             `json:"id"`
	ItineraryItemID       int64             `json:"itinerary_item_id" validate:"required"`
	VendorID              int64             `json:"vendor_id" validate:"required"`
	AgentID               int64             `json:"agent_id"`
	OriginalPrice         float64           `json:"original_price"`
	TargetPrice           float64           `json:"target_price"`
	CurrentOffer          *float64          `json:"current_offer,omitempty"`
	FinalPrice            *float64          `json:"final_price,omitempty"`
	AutoApprovalThreshold float64           `json:"auto_approval_threshold,omitempty"`
	Status                NegotiationStatus `json:"status"`
	Messages              []Message         `json:"messages"`
	Deadline              *time.Time        `json:"deadline,omitempty"`
	CreatedAt             time.Time         `json:"created_at"`
	UpdatedAt             time.Time         `json:"updated_at"`
}
