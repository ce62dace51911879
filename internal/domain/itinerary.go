package domain

import "time"

type ItineraryStatus string

const (
	ItineraryDraft      ItineraryStatus = "draft"
	ItineraryShared     ItineraryStatus = "shared"
	ItineraryConfirmed  ItineraryStatus = "confirmed"
	ItineraryModified   ItineraryStatus = "modified"
	ItineraryNegotiated ItineraryStatus = "negotiated"
)

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Day is one day of an itinerary. Activities are free-text lines the
// parser later classifies into negotiable line items.
type Day struct {
	DayNumber  int      `json:"day_number"`
	Title      string   `json:"title"`
	Activities []string `json:"activities"`
}

type Itinerary struct {
	ID             int64           `json:"id"`
	AgentID        int64           `json:"agent_id" validate:"required"`
	TravelerID     int64           `json:"traveler_id"`
	Destination    string          `json:"destination" validate:"required"`
	StartDate      time.Time       `json:"start_date"`
	EndDate        time.Time       `json:"end_date"`
	TravelerCount  int             `json:"traveler_count" validate:"required,gte=1"`
	Days           []Day           `json:"days"`
	Status         ItineraryStatus `json:"status"`
	ApprovalStatus ApprovalStatus  `json:"approval_status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
