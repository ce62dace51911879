package negotiation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"tripdesk/internal/config"
	"tripdesk/internal/domain"
	"tripdesk/internal/modules/decision"
	"tripdesk/internal/modules/vendor"
	"tripdesk/internal/repository"
)

type Service struct {
	negotiations NegotiationRepository
	items        ItemRepository
	itineraries  ItineraryReader
	matcher      VendorMatcher
	notifs       Notifier
	engine       *decision.Engine
	discounts    config.DiscountConfig
}

func NewService(
	negotiations NegotiationRepository,
	items ItemRepository,
	itineraries ItineraryReader,
	matcher VendorMatcher,
	notifs Notifier,
	engine *decision.Engine,
	discounts config.DiscountConfig,
) *Service {
	return &Service{
		negotiations: negotiations,
		items:        items,
		itineraries:  itineraries,
		matcher:      matcher,
		notifs:       notifs,
		engine:       engine,
		discounts:    discounts,
	}
}

// TargetDiscountPercent looks up the discount to aim for by service
// type and adjusts it by price tier: expensive items leave more room,
// cheap ones less.
func (s *Service) TargetDiscountPercent(serviceType domain.ServiceType, price float64) float64 {
	var pct float64
	switch serviceType {
	case domain.ServiceAccommodation:
		pct = s.discounts.Accommodation
	case domain.ServiceTours:
		pct = s.discounts.Tours
	case domain.ServiceTransportation:
		pct = s.discounts.Transportation
	case domain.ServiceDining:
		pct = s.discounts.Dining
	case domain.ServiceActivities:
		pct = s.discounts.Activities
	default:
		pct = s.discounts.Activities
	}

	if price > s.discounts.TierHighPrice {
		pct += s.discounts.TierBonus
	} else if price < s.discounts.TierLowPrice {
		pct -= s.discounts.TierPenalty
	}
	if pct < 0 {
		pct = 0
	}
	return pct
}

// CreateBulk creates one pending negotiation per item, matching the top
// vendor for each. Per-item failures are collected and processing
// continues; the aggregate result is always returned.
func (s *Service) CreateBulk(ctx context.Context, req BulkRequest) (*BulkResult, error) {
	if len(req.ItemIDs) == 0 {
		return nil, ErrNoItems
	}

	it, err := s.itineraries.GetByID(ctx, req.ItineraryID)
	if err != nil {
		return nil, err
	}

	items, err := s.items.GetByIDs(ctx, req.ItemIDs)
	if err != nil {
		return nil, err
	}

	result := &BulkResult{NegotiationIDs: make([]int64, 0, len(items))}

	for i := range items {
		item := items[i]
		if item.ItineraryID != req.ItineraryID {
			result.Errors = append(result.Errors, ItemError{ItemID: item.ID, Reason: "item belongs to another itinerary"})
			continue
		}
		if !item.IsNegotiable {
			result.Errors = append(result.Errors, ItemError{ItemID: item.ID, Reason: "item is not negotiable"})
			continue
		}

		matches, err := s.matcher.MatchVendors(ctx, vendor.MatchRequest{
			ServiceType:  item.ServiceType,
			Location:     it.Destination,
			Participants: item.Participants,
			Budget:       item.EstimatedPrice,
			Priority:     req.Priority,
		})
		if err != nil {
			result.Errors = append(result.Errors, ItemError{ItemID: item.ID, Reason: "vendor matching failed: " + err.Error()})
			continue
		}
		if len(matches) == 0 {
			log.Printf("bulk_negotiation_no_vendor item_id=%d service_type=%s location=%s", item.ID, item.ServiceType, it.Destination)
			result.Errors = append(result.Errors, ItemError{ItemID: item.ID, Reason: "no vendor available"})
			continue
		}

		top := matches[0]
		discount := s.TargetDiscountPercent(item.ServiceType, item.EstimatedPrice)
		targetPrice := round2(item.EstimatedPrice * (1 - discount/100))

		n := &domain.Negotiation{
			ItineraryItemID:       item.ID,
			VendorID:              top.Vendor.ID,
			AgentID:               req.AgentID,
			OriginalPrice:         item.EstimatedPrice,
			TargetPrice:           targetPrice,
			AutoApprovalThreshold: req.AutoApprovalThreshold,
			Status:                domain.NegotiationPending,
			Deadline:              req.Deadline,
			Messages: []domain.Message{{
				Sender: domain.SenderAgent,
				Text: fmt.Sprintf("Requesting a rate for %q (%d participants). Estimated market price $%.2f.",
					item.ActivityText, item.Participants, item.EstimatedPrice),
				PriceOffer: &targetPrice,
				SentAt:     time.Now(),
			}},
		}

		if err := s.negotiations.Create(ctx, req.ItineraryID, n); err != nil {
			if errors.Is(err, repository.ErrDuplicateNegotiation) {
				result.Errors = append(result.Errors, ItemError{ItemID: item.ID, Reason: "negotiation already in progress"})
				continue
			}
			result.Errors = append(result.Errors, ItemError{ItemID: item.ID, Reason: "create failed: " + err.Error()})
			continue
		}

		result.Created++
		result.NegotiationIDs = append(result.NegotiationIDs, n.ID)
		result.EstimatedSavings = round2(result.EstimatedSavings + item.EstimatedPrice - targetPrice)

		s.notifs.NotifyNegotiationCreated(ctx, top.Vendor.UserID, n.ID, item.ServiceType, targetPrice)
	}

	return result, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*domain.Negotiation, error) {
	n, err := s.negotiations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return n, nil
}

func (s *Service) ListByItinerary(ctx context.Context, itineraryID int64) ([]domain.Negotiation, error) {
	return s.negotiations.ListByItinerary(ctx, itineraryID)
}

func (s *Service) ListByVendor(ctx context.Context, vendorID int64) ([]domain.Negotiation, error) {
	return s.negotiations.ListByVendor(ctx, vendorID)
}

func (s *Service) ListByAgent(ctx context.Context, agentID int64) ([]domain.Negotiation, error) {
	return s.negotiations.ListByAgent(ctx, agentID)
}

// AddMessage appends a message from one of the parties. Terminal
// negotiations are immutable.
func (s *Service) AddMessage(ctx context.Context, id int64, sender domain.MessageSender, req AddMessageRequest) (*domain.Negotiation, error) {
	n, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.Status.Terminal() {
		return nil, ErrTerminalStatus
	}

	return s.negotiations.AppendMessage(ctx, id, domain.Message{
		Sender:     sender,
		Text:       req.Text,
		PriceOffer: req.PriceOffer,
		SentAt:     time.Now(),
	})
}

// RespondToOffer records a vendor's counter-offer, moves the
// negotiation to negotiating, and returns the decision engine's
// recommendation for the agent.
func (s *Service) RespondToOffer(ctx context.Context, id, vendorID int64, req RespondRequest) (*domain.Negotiation, *decision.Decision, error) {
	n, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if n.VendorID != vendorID {
		return nil, nil, ErrForbidden
	}
	if n.Status.Terminal() {
		return nil, nil, ErrTerminalStatus
	}

	text := req.Text
	if text == "" {
		text = fmt.Sprintf("Offering $%.2f", req.Offer)
	}
	offer := req.Offer
	n, err = s.negotiations.AppendMessage(ctx, id, domain.Message{
		Sender:     domain.SenderVendor,
		Text:       text,
		PriceOffer: &offer,
		SentAt:     time.Now(),
	})
	if err != nil {
		return nil, nil, err
	}

	// Offers inside the pre-authorized band close the negotiation
	// without the agent in the loop.
	if s.autoApprovable(n, req.Offer) {
		if err := s.negotiations.SetFinalPrice(ctx, id, req.Offer); err != nil {
			return nil, nil, err
		}
		n.Status = domain.NegotiationAccepted
		final := req.Offer
		n.FinalPrice = &final
		d := decision.Decision{
			Action:     decision.ActionAccept,
			Price:      req.Offer,
			Confidence: 1,
			Rationale: fmt.Sprintf("offer within the pre-authorized %.1f%% band, accepted automatically",
				n.AutoApprovalThreshold),
		}
		s.notifs.NotifyNegotiationClosed(ctx, n.AgentID, n.ID, domain.NegotiationAccepted, req.Offer)
		return n, &d, nil
	}

	if n.Status == domain.NegotiationPending {
		if err := s.negotiations.UpdateStatus(ctx, id, domain.NegotiationNegotiating); err != nil {
			return nil, nil, err
		}
		n.Status = domain.NegotiationNegotiating
	}

	d := s.engine.Evaluate(n.OriginalPrice, n.TargetPrice, req.Offer)
	s.notifs.NotifyOfferReceived(ctx, n.AgentID, n.ID, req.Offer)

	return n, &d, nil
}

func (s *Service) autoApprovable(n *domain.Negotiation, offer float64) bool {
	if n.AutoApprovalThreshold <= 0 || n.TargetPrice <= 0 {
		return false
	}
	return decision.Deviation(n.TargetPrice, offer) <= n.AutoApprovalThreshold
}

// UpdateStatus applies a lifecycle transition. Accepting requires a
// final price (explicit, or the current offer, or the target).
func (s *Service) UpdateStatus(ctx context.Context, id int64, actorID int64, req UpdateStatusRequest) (*domain.Negotiation, error) {
	n, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.AgentID != actorID && n.VendorID != actorID {
		return nil, ErrForbidden
	}
	if n.Status.Terminal() {
		return nil, ErrInvalidTransition
	}
	if !validTransition(n.Status, req.Status) {
		return nil, ErrInvalidTransition
	}

	if req.Status == domain.NegotiationAccepted {
		final := n.TargetPrice
		if req.FinalPrice != nil {
			final = *req.FinalPrice
		} else if n.CurrentOffer != nil {
			final = *n.CurrentOffer
		}
		if err := s.negotiations.SetFinalPrice(ctx, id, final); err != nil {
			return nil, err
		}
		s.notifs.NotifyNegotiationClosed(ctx, n.AgentID, n.ID, domain.NegotiationAccepted, final)
	} else {
		if err := s.negotiations.UpdateStatus(ctx, id, req.Status); err != nil {
			return nil, err
		}
		if req.Status == domain.NegotiationRejected {
			s.notifs.NotifyNegotiationClosed(ctx, n.AgentID, n.ID, domain.NegotiationRejected, 0)
		}
	}

	return s.GetByID(ctx, id)
}

func validTransition(from, to domain.NegotiationStatus) bool {
	switch from {
	case domain.NegotiationPending:
		return to == domain.NegotiationNegotiating || to.Terminal()
	case domain.NegotiationNegotiating:
		return to.Terminal()
	default:
		return false
	}
}

func (s *Service) CountByStatus(ctx context.Context, itineraryID int64) (repository.StatusCounts, error) {
	return s.negotiations.CountByStatus(ctx, itineraryID)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
