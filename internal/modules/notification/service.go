package notification

import (
	"context"
	"fmt"
	"log"

	"tripdesk/internal/domain"
	"tripdesk/internal/realtime"
)

// Store is the persistence surface for notification rows.
type Store interface {
	Create(ctx context.Context, n *domain.Notification) error
	ListByUser(ctx context.Context, userID int64, limit int) ([]domain.Notification, error)
	CountUnread(ctx context.Context, userID int64) (int64, error)
	MarkAsRead(ctx context.Context, notificationID, userID int64) error
	MarkAllAsRead(ctx context.Context, userID int64) error
}

// Pusher delivers an event to a connected user, best effort.
type Pusher interface {
	PushToUser(userID int64, event *realtime.Event) bool
}

type Service struct {
	store Store
	push  Pusher
}

func NewService(store Store, push Pusher) *Service {
	return &Service{store: store, push: push}
}

// Create writes the notification and pushes it to the user if they are
// connected. Failures never propagate: side-channel messaging must not
// block the primary workflow, so they are logged instead.
func (s *Service) Create(ctx context.Context, n *domain.Notification) {
	if err := s.store.Create(ctx, n); err != nil {
		log.Printf("notification_write_failed user_id=%d type=%s error=%q", n.UserID, n.Type, err.Error())
		return
	}
	if s.push != nil {
		if ok := s.push.PushToUser(n.UserID, &realtime.Event{
			Type:    realtime.EventNotification,
			Payload: n,
		}); !ok {
			log.Printf("notification_push_skipped user_id=%d type=%s notification_id=%d", n.UserID, n.Type, n.ID)
		}
	}
}

func (s *Service) ListForUser(ctx context.Context, userID int64, limit int) ([]domain.Notification, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	list, err := s.store.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, 0, err
	}

	unread, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		unread = 0
	}

	return list, unread, nil
}

func (s *Service) MarkAsRead(ctx context.Context, notificationID, userID int64) error {
	return s.store.MarkAsRead(ctx, notificationID, userID)
}

func (s *Service) MarkAllAsRead(ctx context.Context, userID int64) error {
	return s.store.MarkAllAsRead(ctx, userID)
}

func (s *Service) NotifyNegotiationCreated(ctx context.Context, vendorUserID, negotiationID int64, serviceType domain.ServiceType, targetPrice float64) {
	s.Create(ctx, &domain.Notification{
		UserID:    vendorUserID,
		Type:      domain.NotifNegotiationCreated,
		Title:     "New rate request",
		Message:   fmt.Sprintf("A travel agent requested a rate for %s services, target $%.2f", serviceType, targetPrice),
		Data:      map[string]any{"negotiation_id": negotiationID},
		ActionURL: "/vendor-dashboard",
		Priority:  domain.NotifPriorityNormal,
	})
}

func (s *Service) NotifyOfferReceived(ctx context.Context, agentID, negotiationID int64, offer float64) {
	s.Create(ctx, &domain.Notification{
		UserID:    agentID,
		Type:      domain.NotifOfferReceived,
		Title:     "New vendor offer",
		Message:   fmt.Sprintf("A vendor offered $%.2f", offer),
		Data:      map[string]any{"negotiation_id": negotiationID, "offer": offer},
		ActionURL: "/rate-negotiation-ai",
		Priority:  domain.NotifPriorityNormal,
	})
}

func (s *Service) NotifyNegotiationClosed(ctx context.Context, agentID, negotiationID int64, status domain.NegotiationStatus, finalPrice float64) {
	t := domain.NotifNegotiationRejected
	title := "Negotiation rejected"
	msg := "The vendor declined the request"
	if status == domain.NegotiationAccepted {
		t = domain.NotifNegotiationAccepted
		title = "Negotiation accepted"
		msg = fmt.Sprintf("Final price agreed: $%.2f", finalPrice)
	}
	s.Create(ctx, &domain.Notification{
		UserID:    agentID,
		Type:      t,
		Title:     title,
		Message:   msg,
		Data:      map[string]any{"negotiation_id": negotiationID},
		ActionURL: "/rate-negotiation-ai",
		Priority:  domain.NotifPriorityNormal,
	})
}

func (s *Service) NotifyWorkflowPartial(ctx context.Context, agentID, itineraryID int64, completed, total int) {
	s.Create(ctx, &domain.Notification{
		UserID:    agentID,
		Type:      domain.NotifWorkflowPartial,
		Title:     "Negotiations progressing",
		Message:   fmt.Sprintf("%d of %d negotiations resolved", completed, total),
		Data:      map[string]any{"itinerary_id": itineraryID},
		ActionURL: "/agent-dashboard",
		Priority:  domain.NotifPriorityLow,
	})
}

func (s *Service) NotifyWorkflowCompleted(ctx context.Context, userID, itineraryID int64, savings float64) {
	s.Create(ctx, &domain.Notification{
		UserID:    userID,
		Type:      domain.NotifWorkflowCompleted,
		Title:     "Rate negotiation finished",
		Message:   fmt.Sprintf("All negotiations settled, estimated savings $%.2f", savings),
		Data:      map[string]any{"itinerary_id": itineraryID, "savings": savings},
		ActionURL: fmt.Sprintf("/shared-itinerary/%d", itineraryID),
		Priority:  domain.NotifPriorityHigh,
	})
}

func (s *Service) NotifyWorkflowFailed(ctx context.Context, agentID, itineraryID int64, reason string) {
	s.Create(ctx, &domain.Notification{
		UserID:    agentID,
		Type:      domain.NotifWorkflowFailed,
		Title:     "Rate negotiation failed",
		Message:   "The post-approval workflow stopped: " + reason,
		Data:      map[string]any{"itinerary_id": itineraryID},
		ActionURL: "/agent-dashboard",
		Priority:  domain.NotifPriorityHigh,
	})
}
