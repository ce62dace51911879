package domain

import "time"

type NotificationType string

const (
	NotifNegotiationCreated  NotificationType = "negotiation_created"
	NotifOfferReceived       NotificationType = "offer_received"
	NotifNegotiationAccepted NotificationType = "negotiation_accepted"
	NotifNegotiationRejected NotificationType = "negotiation_rejected"
	NotifNegotiationExpired  NotificationType = "negotiation_expired"
	NotifWorkflowPartial     NotificationType = "workflow_partial_complete"
	NotifWorkflowCompleted   NotificationType = "workflow_completed"
	NotifWorkflowFailed      NotificationType = "workflow_failed"
	NotifItineraryApproved   NotificationType = "itinerary_approved"
)

type NotificationPriority string

const (
	NotifPriorityLow    NotificationPriority = "low"
	NotifPriorityNormal NotificationPriority = "normal"
	NotifPriorityHigh   NotificationPriority = "high"
)

type Notification struct {
	ID        int64                `json:"id"`
	UserID    int64                `json:"user_id"`
	Type      NotificationType     `json:"type"`
	Title     string               `json:"title"`
	Message   string               `json:"message"`
	Data      map[string]any       `json:"data,omitempty"`
	ActionURL string               `json:"action_url,omitempty"`
	Priority  NotificationPriority `json:"priority"`
	IsRead    bool                 `json:"is_read"`
	ReadAt    *time.Time           `json:"read_at,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
}
