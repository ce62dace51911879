package domain

import "time"

type ServiceType string

const (
	ServiceTransportation ServiceType = "transportation"
	ServiceTours          ServiceType = "tours"
	ServiceAccommodation  ServiceType = "accommodation"
	ServiceDining         ServiceType = "dining"
	ServiceActivities     ServiceType = "activities"
	ServiceLeisure        ServiceType = "leisure"
)

type ItemPriority string

const (
	PriorityLow    ItemPriority = "low"
	PriorityMedium ItemPriority = "medium"
	PriorityHigh   ItemPriority = "high"
)

// ItineraryItem is one negotiable unit extracted from a day's activity
// text. Items are written once per approved itinerary and never mutated.
type ItineraryItem struct {
	ID                 int64        `json:"id"`
	ItineraryID        int64        `json:"itinerary_id"`
	DayNumber          int          `json:"day_number"`
	ActivityText       string       `json:"activity_text"`
	ServiceType        ServiceType  `json:"service_type"`
	EstimatedPrice     float64      `json:"estimated_price"`
	Participants       int          `json:"participants"`
	MarketRate         *float64     `json:"market_rate,omitempty"`
	SuggestedVendorIDs []int64      `json:"suggested_vendor_ids,omitempty"`
	IsNegotiable       bool         `json:"is_negotiable"`
	Priority           ItemPriority `json:"priority"`
	CreatedAt          time.Time    `json:"created_at"`
}
