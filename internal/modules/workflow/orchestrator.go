package workflow

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"tripdesk/internal/config"
	"tripdesk/internal/domain"
	"tripdesk/internal/modules/negotiation"
	"tripdesk/internal/modules/vendor"
	"tripdesk/internal/repository"
)

// Phase percentages. Progress only ever moves forward; the failed
// transition is the single exception.
const (
	percentParsing      = 10
	percentMatching     = 30
	percentNegotiations = 50
	percentAwaiting     = 70
	percentCompleted    = 100
	maxSuggestedVendors = 3
)

// Orchestrator drives the post-approval workflow: parse the itinerary,
// match vendors, open negotiations in bulk, then poll until enough of
// them settle. Progress lives in the workflow_progress table; only the
// poller handles are process-local.
type Orchestrator struct {
	itineraries  ItineraryStore
	items        ItemStore
	parser       ItemParser
	matcher      VendorMatcher
	bulk         BulkCreator
	negotiations NegotiationStore
	progress     ProgressStore
	notifs       Notifier
	cfg          config.WorkflowConfig

	mu      sync.Mutex
	pollers map[int64]*poller

	now func() time.Time
}

// poller is the process-local handle for one itinerary's polling
// goroutine. done closes once the goroutine has fully unwound.
type poller struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func NewOrchestrator(
	itineraries ItineraryStore,
	items ItemStore,
	parser ItemParser,
	matcher VendorMatcher,
	bulk BulkCreator,
	negotiations NegotiationStore,
	progress ProgressStore,
	notifs Notifier,
	cfg config.WorkflowConfig,
) *Orchestrator {
	return &Orchestrator{
		itineraries:  itineraries,
		items:        items,
		parser:       parser,
		matcher:      matcher,
		bulk:         bulk,
		negotiations: negotiations,
		progress:     progress,
		notifs:       notifs,
		cfg:          cfg,
		pollers:      make(map[int64]*poller),
		now:          time.Now,
	}
}

// Start runs the synchronous phases and then hands off to the poller.
// It is driven entirely by the agent's approval action; there is no
// autonomous trigger.
func (o *Orchestrator) Start(ctx context.Context, itineraryID, agentID int64) (*domain.WorkflowProgress, error) {
	it, err := o.itineraries.GetByID(ctx, itineraryID)
	if err != nil {
		return nil, err
	}
	if it.ApprovalStatus != domain.ApprovalApproved {
		return nil, ErrNotApproved
	}

	if existing, err := o.progress.GetByItinerary(ctx, itineraryID); err == nil && !existing.Phase.Terminal() {
		return nil, ErrAlreadyRunning
	}

	p := &domain.WorkflowProgress{
		ItineraryID: itineraryID,
		RunID:       uuid.NewString(),
		Phase:       domain.PhaseParsing,
		Percent:     percentParsing,
		ExpiresAt:   o.now().Add(o.cfg.Expiry),
	}
	if err := o.progress.Upsert(ctx, p); err != nil {
		return nil, err
	}

	items, created, err := o.parser.ParseAndStore(ctx, it)
	if err != nil {
		return p, o.fail(ctx, p, agentID, "parsing failed: "+err.Error())
	}
	if !created {
		log.Printf("workflow_parse_noop itinerary_id=%d items=%d", itineraryID, len(items))
	}

	negotiable := make([]domain.ItineraryItem, 0, len(items))
	for _, item := range items {
		if item.IsNegotiable {
			negotiable = append(negotiable, item)
		}
	}

	o.setPhase(ctx, p, domain.PhaseVendorMatching, percentMatching)

	for _, item := range negotiable {
		matches, err := o.matcher.MatchVendors(ctx, vendor.MatchRequest{
			ServiceType:  item.ServiceType,
			Location:     it.Destination,
			Participants: item.Participants,
			Budget:       item.EstimatedPrice,
			Priority:     item.Priority,
		})
		if err != nil {
			log.Printf("workflow_match_failed itinerary_id=%d item_id=%d error=%q", itineraryID, item.ID, err.Error())
			continue
		}
		ids := make([]int64, 0, maxSuggestedVendors)
		for i, m := range matches {
			if i == maxSuggestedVendors {
				break
			}
			ids = append(ids, m.Vendor.ID)
		}
		if len(ids) > 0 {
			if err := o.items.SetSuggestedVendors(ctx, item.ID, ids); err != nil {
				log.Printf("workflow_suggest_failed item_id=%d error=%q", item.ID, err.Error())
			}
		}
	}

	if len(negotiable) == 0 {
		// Nothing to negotiate: the workflow is trivially done.
		p.Note = "no negotiable items"
		o.setPhase(ctx, p, domain.PhaseCompleted, percentCompleted)
		return p, nil
	}

	o.setPhase(ctx, p, domain.PhaseNegotiationsActive, percentNegotiations)

	itemIDs := make([]int64, 0, len(negotiable))
	for _, item := range negotiable {
		itemIDs = append(itemIDs, item.ID)
	}
	result, err := o.bulk.CreateBulk(ctx, negotiation.BulkRequest{
		ItineraryID: itineraryID,
		ItemIDs:     itemIDs,
		AgentID:     agentID,
	})
	if err != nil {
		return p, o.fail(ctx, p, agentID, "bulk negotiation failed: "+err.Error())
	}
	for _, ie := range result.Errors {
		log.Printf("workflow_item_skipped itinerary_id=%d item_id=%d reason=%q", itineraryID, ie.ItemID, ie.Reason)
	}
	if result.Created == 0 {
		return p, o.fail(ctx, p, agentID, "no negotiations could be created")
	}

	p.ActiveNegotiations = result.Created
	p.EstimatedSavings = result.EstimatedSavings
	o.setPhase(ctx, p, domain.PhaseAwaitingResponses, percentAwaiting)

	o.spawnPoller(itineraryID, agentID)

	return p, nil
}

// GetProgress returns the durable progress row for an itinerary.
func (o *Orchestrator) GetProgress(ctx context.Context, itineraryID int64) (*domain.WorkflowProgress, error) {
	p, err := o.progress.GetByItinerary(ctx, itineraryID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// ResumeActive re-attaches pollers to non-terminal runs after a process
// restart. Runs whose synchronous phases never finished are failed: the
// approving request is gone and cannot be replayed safely.
func (o *Orchestrator) ResumeActive(ctx context.Context) error {
	active, err := o.progress.ListActive(ctx, o.now())
	if err != nil {
		return err
	}
	for i := range active {
		p := active[i]
		it, err := o.itineraries.GetByID(ctx, p.ItineraryID)
		if err != nil {
			log.Printf("workflow_resume_skipped itinerary_id=%d error=%q", p.ItineraryID, err.Error())
			continue
		}
		switch p.Phase {
		case domain.PhaseAwaitingResponses, domain.PhasePartialComplete:
			log.Printf("workflow_resumed itinerary_id=%d run_id=%s phase=%s", p.ItineraryID, p.RunID, p.Phase)
			o.spawnPoller(p.ItineraryID, it.AgentID)
		default:
			_ = o.fail(ctx, &p, it.AgentID, "interrupted by restart during "+string(p.Phase))
		}
	}
	return nil
}

// Stop cancels the poller for one itinerary, if any.
func (o *Orchestrator) Stop(itineraryID int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if h, ok := o.pollers[itineraryID]; ok {
		h.cancel()
		delete(o.pollers, itineraryID)
	}
}

// Shutdown cancels all pollers. Progress rows stay in the store and are
// picked up by ResumeActive on the next boot.
func (o *Orchestrator) Shutdown() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for id, h := range o.pollers {
		h.cancel()
		delete(o.pollers, id)
	}
}

func (o *Orchestrator) spawnPoller(itineraryID, agentID int64) {
	ctx, cancel := context.WithCancel(context.Background())
	h := &poller{cancel: cancel, done: make(chan struct{})}

	o.mu.Lock()
	if old, ok := o.pollers[itineraryID]; ok {
		old.cancel()
	}
	o.pollers[itineraryID] = h
	o.mu.Unlock()

	go func() {
		defer close(h.done)
		defer o.release(itineraryID, h)

		ticker := time.NewTicker(o.cfg.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				done, err := o.pollOnce(ctx, itineraryID, agentID)
				if err != nil {
					log.Printf("workflow_poll_error itinerary_id=%d error=%q", itineraryID, err.Error())
					continue
				}
				if done {
					return
				}
			}
		}
	}()
}

// release drops the exiting goroutine's own map entry. A replacement
// spawned for the same itinerary keeps its slot; only an entry still
// pointing at h is removed.
func (o *Orchestrator) release(itineraryID int64, h *poller) {
	o.mu.Lock()
	defer o.mu.Unlock()
	h.cancel()
	if existing, ok := o.pollers[itineraryID]; ok && existing == h {
		delete(o.pollers, itineraryID)
	}
}

// pollOnce checks negotiation completion for one itinerary and advances
// the durable progress. It is idempotent across ticks: repeated calls
// in the same state change nothing and re-send nothing.
func (o *Orchestrator) pollOnce(ctx context.Context, itineraryID, agentID int64) (done bool, err error) {
	p, err := o.progress.GetByItinerary(ctx, itineraryID)
	if err != nil {
		return true, err
	}
	if p.Phase.Terminal() {
		return true, nil
	}

	if o.now().After(p.ExpiresAt) {
		return true, o.fail(ctx, p, agentID, "workflow expired before negotiations settled")
	}

	counts, err := o.negotiations.CountByStatus(ctx, itineraryID)
	if err != nil {
		return false, err
	}

	p.ActiveNegotiations = counts.Pending + counts.Negotiating
	p.CompletedNegotiations = counts.Terminal()

	open := counts.Pending + counts.Negotiating
	ratio := 0.0
	if counts.Total > 0 {
		ratio = float64(counts.Terminal()) / float64(counts.Total)
	}

	if counts.Total == 0 || open == 0 || ratio >= o.cfg.CompletionThreshold {
		return true, o.complete(ctx, p, itineraryID, agentID)
	}

	if ratio >= o.cfg.PartialThreshold {
		percent := percentAwaiting + int(float64(percentCompleted-percentAwaiting)*ratio)
		if percent < p.Percent {
			percent = p.Percent // progress never regresses
		}
		notify := p.LastNotifiedPhase != domain.PhasePartialComplete
		p.Phase = domain.PhasePartialComplete
		p.Percent = percent
		if notify {
			o.notifs.NotifyWorkflowPartial(ctx, agentID, itineraryID, counts.Terminal(), counts.Total)
			p.LastNotifiedPhase = domain.PhasePartialComplete
		}
		return false, o.progress.Upsert(ctx, p)
	}

	return false, o.progress.Upsert(ctx, p)
}

func (o *Orchestrator) complete(ctx context.Context, p *domain.WorkflowProgress, itineraryID, agentID int64) error {
	p.Phase = domain.PhaseCompleted
	p.Percent = percentCompleted
	p.LastNotifiedPhase = domain.PhaseCompleted
	if err := o.progress.Upsert(ctx, p); err != nil {
		return err
	}

	if err := o.itineraries.UpdateStatus(ctx, itineraryID, domain.ItineraryNegotiated); err != nil {
		log.Printf("workflow_status_update_failed itinerary_id=%d error=%q", itineraryID, err.Error())
	}

	o.notifs.NotifyWorkflowCompleted(ctx, agentID, itineraryID, p.EstimatedSavings)
	if it, err := o.itineraries.GetByID(ctx, itineraryID); err == nil && it.TravelerID != 0 && it.TravelerID != agentID {
		o.notifs.NotifyWorkflowCompleted(ctx, it.TravelerID, itineraryID, p.EstimatedSavings)
	}

	log.Printf("workflow_completed itinerary_id=%d run_id=%s savings=%.2f", itineraryID, p.RunID, p.EstimatedSavings)
	return nil
}

// fail moves the run into the absorbing failed state and notifies the
// agent exactly once. No automatic retry follows.
func (o *Orchestrator) fail(ctx context.Context, p *domain.WorkflowProgress, agentID int64, reason string) error {
	p.Phase = domain.PhaseFailed
	p.ErrorText = reason
	p.LastNotifiedPhase = domain.PhaseFailed
	if err := o.progress.Upsert(ctx, p); err != nil {
		return err
	}

	o.notifs.NotifyWorkflowFailed(ctx, agentID, p.ItineraryID, reason)
	log.Printf("workflow_failed itinerary_id=%d run_id=%s reason=%q", p.ItineraryID, p.RunID, reason)
	return nil
}

func (o *Orchestrator) setPhase(ctx context.Context, p *domain.WorkflowProgress, phase domain.WorkflowPhase, percent int) {
	p.Phase = phase
	if percent > p.Percent {
		p.Percent = percent
	}
	if err := o.progress.Upsert(ctx, p); err != nil {
		log.Printf("workflow_progress_write_failed itinerary_id=%d phase=%s error=%q", p.ItineraryID, phase, err.Error())
	}
}

// HandleVendorNonResponse expires a stalled negotiation and re-matches
// vendors excluding the silent one. It deliberately does not open the
// replacement negotiation; the agent reviews the substitutes and
// decides.
func (o *Orchestrator) HandleVendorNonResponse(ctx context.Context, negotiationID int64) ([]vendor.Match, error) {
	n, err := o.negotiations.GetByID(ctx, negotiationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if n.Status.Terminal() {
		return nil, ErrTerminal
	}

	item, err := o.items.GetByID(ctx, n.ItineraryItemID)
	if err != nil {
		return nil, err
	}
	it, err := o.itineraries.GetByID(ctx, item.ItineraryID)
	if err != nil {
		return nil, err
	}

	substitutes, err := o.matcher.MatchVendors(ctx, vendor.MatchRequest{
		ServiceType:      item.ServiceType,
		Location:         it.Destination,
		Participants:     item.Participants,
		Budget:           item.EstimatedPrice,
		Priority:         item.Priority,
		ExcludeVendorIDs: []int64{n.VendorID},
	})
	if err != nil {
		return nil, err
	}

	if err := o.negotiations.UpdateStatus(ctx, negotiationID, domain.NegotiationExpired); err != nil {
		return nil, err
	}

	if p, err := o.progress.GetByItinerary(ctx, item.ItineraryID); err == nil {
		p.Note = "vendor substitution suggested for item " + item.ActivityText
		if err := o.progress.Upsert(ctx, p); err != nil {
			log.Printf("workflow_progress_write_failed itinerary_id=%d error=%q", item.ItineraryID, err.Error())
		}
	}

	log.Printf("workflow_vendor_non_response negotiation_id=%d vendor_id=%d substitutes=%d",
		negotiationID, n.VendorID, len(substitutes))
	return substitutes, nil
}
