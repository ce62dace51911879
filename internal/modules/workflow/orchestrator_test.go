package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tripdesk/internal/config"
	"tripdesk/internal/domain"
	"tripdesk/internal/modules/negotiation"
	"tripdesk/internal/modules/vendor"
	"tripdesk/internal/repository"
)

type MockItineraryStore struct {
	mock.Mock
}

func (m *MockItineraryStore) GetByID(ctx context.Context, id int64) (*domain.Itinerary, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Itinerary), args.Error(1)
}

func (m *MockItineraryStore) UpdateStatus(ctx context.Context, id int64, status domain.ItineraryStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

type MockItemStore struct {
	mock.Mock
}

func (m *MockItemStore) GetByID(ctx context.Context, id int64) (*domain.ItineraryItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ItineraryItem), args.Error(1)
}

func (m *MockItemStore) SetSuggestedVendors(ctx context.Context, itemID int64, vendorIDs []int64) error {
	args := m.Called(ctx, itemID, vendorIDs)
	return args.Error(0)
}

type MockItemParser struct {
	mock.Mock
}

func (m *MockItemParser) ParseAndStore(ctx context.Context, it *domain.Itinerary) ([]domain.ItineraryItem, bool, error) {
	args := m.Called(ctx, it)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]domain.ItineraryItem), args.Bool(1), args.Error(2)
}

type MockVendorMatcher struct {
	mock.Mock
}

func (m *MockVendorMatcher) MatchVendors(ctx context.Context, req vendor.MatchRequest) ([]vendor.Match, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]vendor.Match), args.Error(1)
}

type MockBulkCreator struct {
	mock.Mock
}

func (m *MockBulkCreator) CreateBulk(ctx context.Context, req negotiation.BulkRequest) (*negotiation.BulkResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*negotiation.BulkResult), args.Error(1)
}

type MockNegotiationStore struct {
	mock.Mock
}

func (m *MockNegotiationStore) GetByID(ctx context.Context, id int64) (*domain.Negotiation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Negotiation), args.Error(1)
}

func (m *MockNegotiationStore) UpdateStatus(ctx context.Context, id int64, status domain.NegotiationStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockNegotiationStore) CountByStatus(ctx context.Context, itineraryID int64) (repository.StatusCounts, error) {
	args := m.Called(ctx, itineraryID)
	return args.Get(0).(repository.StatusCounts), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyWorkflowPartial(ctx context.Context, agentID, itineraryID int64, completed, total int) {
	m.Called(ctx, agentID, itineraryID, completed, total)
}

func (m *MockNotifier) NotifyWorkflowCompleted(ctx context.Context, userID, itineraryID int64, savings float64) {
	m.Called(ctx, userID, itineraryID, savings)
}

func (m *MockNotifier) NotifyWorkflowFailed(ctx context.Context, agentID, itineraryID int64, reason string) {
	m.Called(ctx, agentID, itineraryID, reason)
}

// fakeProgressStore is an in-memory ProgressStore so tests can observe
// the durable phase transitions without a database.
type fakeProgressStore struct {
	rows map[int64]domain.WorkflowProgress
}

func newFakeProgressStore() *fakeProgressStore {
	return &fakeProgressStore{rows: make(map[int64]domain.WorkflowProgress)}
}

func (f *fakeProgressStore) Upsert(ctx context.Context, p *domain.WorkflowProgress) error {
	if p.ID == 0 {
		p.ID = int64(len(f.rows) + 1)
	}
	f.rows[p.ItineraryID] = *p
	return nil
}

func (f *fakeProgressStore) GetByItinerary(ctx context.Context, itineraryID int64) (*domain.WorkflowProgress, error) {
	row, ok := f.rows[itineraryID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := row
	return &out, nil
}

func (f *fakeProgressStore) ListActive(ctx context.Context, now time.Time) ([]domain.WorkflowProgress, error) {
	var out []domain.WorkflowProgress
	for _, row := range f.rows {
		if !row.Phase.Terminal() && row.ExpiresAt.After(now) {
			out = append(out, row)
		}
	}
	return out, nil
}

type orchestratorFixture struct {
	itineraries  *MockItineraryStore
	items        *MockItemStore
	parser       *MockItemParser
	matcher      *MockVendorMatcher
	bulk         *MockBulkCreator
	negotiations *MockNegotiationStore
	progress     *fakeProgressStore
	notifs       *MockNotifier
	orch         *Orchestrator
}

func newFixture() *orchestratorFixture {
	f := &orchestratorFixture{
		itineraries:  new(MockItineraryStore),
		items:        new(MockItemStore),
		parser:       new(MockItemParser),
		matcher:      new(MockVendorMatcher),
		bulk:         new(MockBulkCreator),
		negotiations: new(MockNegotiationStore),
		progress:     newFakeProgressStore(),
		notifs:       new(MockNotifier),
	}
	cfg := config.DefaultPolicy().Workflow
	cfg.PollInterval = time.Hour // tests drive pollOnce directly
	f.orch = NewOrchestrator(
		f.itineraries, f.items, f.parser, f.matcher, f.bulk,
		f.negotiations, f.progress, f.notifs, cfg,
	)
	return f
}

func approvedItinerary() *domain.Itinerary {
	return &domain.Itinerary{
		ID:             1,
		AgentID:        7,
		TravelerID:     8,
		Destination:    "Phuket",
		TravelerCount:  4,
		Status:         domain.ItineraryConfirmed,
		ApprovalStatus: domain.ApprovalApproved,
	}
}

func TestStart_RequiresApproval(t *testing.T) {
	f := newFixture()
	it := approvedItinerary()
	it.ApprovalStatus = domain.ApprovalPending
	f.itineraries.On("GetByID", mock.Anything, int64(1)).Return(it, nil)

	_, err := f.orch.Start(context.Background(), 1, 7)
	assert.ErrorIs(t, err, ErrNotApproved)
}

func TestStart_RejectsConcurrentRun(t *testing.T) {
	f := newFixture()
	f.itineraries.On("GetByID", mock.Anything, int64(1)).Return(approvedItinerary(), nil)
	f.progress.rows[1] = domain.WorkflowProgress{
		ItineraryID: 1,
		Phase:       domain.PhaseAwaitingResponses,
	}

	_, err := f.orch.Start(context.Background(), 1, 7)
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestStart_TerminalRunCanBeRestarted(t *testing.T) {
	f := newFixture()
	f.itineraries.On("GetByID", mock.Anything, int64(1)).Return(approvedItinerary(), nil)
	f.progress.rows[1] = domain.WorkflowProgress{ItineraryID: 1, Phase: domain.PhaseFailed}

	f.parser.On("ParseAndStore", mock.Anything, mock.Anything).
		Return([]domain.ItineraryItem{{ID: 10, IsNegotiable: false}}, true, nil)

	p, err := f.orch.Start(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseCompleted, p.Phase)
}

func TestStart_HappyPath(t *testing.T) {
	f := newFixture()
	f.itineraries.On("GetByID", mock.Anything, int64(1)).Return(approvedItinerary(), nil)
	f.parser.On("ParseAndStore", mock.Anything, mock.Anything).Return([]domain.ItineraryItem{
		{ID: 10, ItineraryID: 1, ServiceType: domain.ServiceTours, EstimatedPrice: 480, IsNegotiable: true},
		{ID: 11, ItineraryID: 1, ServiceType: domain.ServiceLeisure, IsNegotiable: false},
	}, true, nil)
	f.matcher.On("MatchVendors", mock.Anything, mock.Anything).Return([]vendor.Match{
		{Vendor: domain.VendorProfile{ID: 3}, Score: 90},
		{Vendor: domain.VendorProfile{ID: 4}, Score: 80},
	}, nil)
	f.items.On("SetSuggestedVendors", mock.Anything, int64(10), []int64{3, 4}).Return(nil)
	f.bulk.On("CreateBulk", mock.Anything, negotiation.BulkRequest{
		ItineraryID: 1,
		ItemIDs:     []int64{10},
		AgentID:     7,
	}).Return(&negotiation.BulkResult{Created: 1, NegotiationIDs: []int64{100}, EstimatedSavings: 120}, nil)

	p, err := f.orch.Start(context.Background(), 1, 7)
	require.NoError(t, err)
	defer f.orch.Shutdown()

	assert.Equal(t, domain.PhaseAwaitingResponses, p.Phase)
	assert.Equal(t, 70, p.Percent)
	assert.Equal(t, 1, p.ActiveNegotiations)
	assert.InDelta(t, 120.0, p.EstimatedSavings, 0.001)
	assert.NotEmpty(t, p.RunID)

	stored, err := f.progress.GetByItinerary(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseAwaitingResponses, stored.Phase)
	f.items.AssertExpectations(t)
}

func TestStart_NoNegotiableItemsCompletesTrivially(t *testing.T) {
	f := newFixture()
	f.itineraries.On("GetByID", mock.Anything, int64(1)).Return(approvedItinerary(), nil)
	f.parser.On("ParseAndStore", mock.Anything, mock.Anything).Return([]domain.ItineraryItem{
		{ID: 10, ServiceType: domain.ServiceLeisure, IsNegotiable: false},
	}, true, nil)

	p, err := f.orch.Start(context.Background(), 1, 7)
	require.NoError(t, err)

	assert.Equal(t, domain.PhaseCompleted, p.Phase)
	assert.Equal(t, 100, p.Percent)
	assert.Equal(t, "no negotiable items", p.Note)
	f.bulk.AssertNotCalled(t, "CreateBulk", mock.Anything, mock.Anything)
}

func TestStart_FailsWhenNothingCreated(t *testing.T) {
	f := newFixture()
	f.itineraries.On("GetByID", mock.Anything, int64(1)).Return(approvedItinerary(), nil)
	f.parser.On("ParseAndStore", mock.Anything, mock.Anything).Return([]domain.ItineraryItem{
		{ID: 10, ItineraryID: 1, ServiceType: domain.ServiceTours, IsNegotiable: true},
	}, true, nil)
	f.matcher.On("MatchVendors", mock.Anything, mock.Anything).Return([]vendor.Match{}, nil)
	f.bulk.On("CreateBulk", mock.Anything, mock.Anything).
		Return(&negotiation.BulkResult{Created: 0, Errors: []negotiation.ItemError{{ItemID: 10, Reason: "no vendor available"}}}, nil)
	f.notifs.On("NotifyWorkflowFailed", mock.Anything, int64(7), int64(1), mock.Anything).Return()

	p, err := f.orch.Start(context.Background(), 1, 7)
	require.NoError(t, err)

	assert.Equal(t, domain.PhaseFailed, p.Phase)
	assert.NotEmpty(t, p.ErrorText)
	f.notifs.AssertNumberOfCalls(t, "NotifyWorkflowFailed", 1)
}

func awaitingProgress(expiry time.Time) domain.WorkflowProgress {
	return domain.WorkflowProgress{
		ID:          1,
		ItineraryID: 1,
		RunID:       "run-1",
		Phase:       domain.PhaseAwaitingResponses,
		Percent:     70,
		ExpiresAt:   expiry,
	}
}

func TestPollOnce_CompletesAtThreshold(t *testing.T) {
	f := newFixture()
	f.progress.rows[1] = awaitingProgress(time.Now().Add(time.Hour))

	// 4 of 5 settled: 80% meets the completion threshold.
	f.negotiations.On("CountByStatus", mock.Anything, int64(1)).Return(repository.StatusCounts{
		Total: 5, Pending: 1, Accepted: 3, Rejected: 1,
	}, nil)
	f.itineraries.On("UpdateStatus", mock.Anything, int64(1), domain.ItineraryNegotiated).Return(nil)
	f.itineraries.On("GetByID", mock.Anything, int64(1)).Return(approvedItinerary(), nil)
	f.notifs.On("NotifyWorkflowCompleted", mock.Anything, int64(7), int64(1), mock.Anything).Return()
	f.notifs.On("NotifyWorkflowCompleted", mock.Anything, int64(8), int64(1), mock.Anything).Return()

	done, err := f.orch.pollOnce(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.True(t, done)

	stored, _ := f.progress.GetByItinerary(context.Background(), 1)
	assert.Equal(t, domain.PhaseCompleted, stored.Phase)
	assert.Equal(t, 100, stored.Percent)

	// Agent and traveler are both told.
	f.notifs.AssertNumberOfCalls(t, "NotifyWorkflowCompleted", 2)
	f.itineraries.AssertExpectations(t)
}

func TestPollOnce_PartialNotifiesOnce(t *testing.T) {
	f := newFixture()
	f.progress.rows[1] = awaitingProgress(time.Now().Add(time.Hour))

	// 3 of 5 settled: 60% is partial, not complete.
	f.negotiations.On("CountByStatus", mock.Anything, int64(1)).Return(repository.StatusCounts{
		Total: 5, Pending: 2, Accepted: 3,
	}, nil)
	f.notifs.On("NotifyWorkflowPartial", mock.Anything, int64(7), int64(1), 3, 5).Return()

	done, err := f.orch.pollOnce(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.False(t, done)

	stored, _ := f.progress.GetByItinerary(context.Background(), 1)
	assert.Equal(t, domain.PhasePartialComplete, stored.Phase)
	assert.Equal(t, 88, stored.Percent) // 70 + 30*0.6

	// A second tick in the same state stays quiet.
	done, err = f.orch.pollOnce(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.False(t, done)
	f.notifs.AssertNumberOfCalls(t, "NotifyWorkflowPartial", 1)
}

func TestPollOnce_ProgressNeverRegresses(t *testing.T) {
	f := newFixture()
	p := awaitingProgress(time.Now().Add(time.Hour))
	p.Phase = domain.PhasePartialComplete
	p.Percent = 91
	p.LastNotifiedPhase = domain.PhasePartialComplete
	f.progress.rows[1] = p

	// Ratio drops the computed percent below the stored one.
	f.negotiations.On("CountByStatus", mock.Anything, int64(1)).Return(repository.StatusCounts{
		Total: 5, Pending: 2, Accepted: 3,
	}, nil)

	done, err := f.orch.pollOnce(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.False(t, done)

	stored, _ := f.progress.GetByItinerary(context.Background(), 1)
	assert.Equal(t, 91, stored.Percent)
}

func TestPollOnce_ExpiresIntoFailed(t *testing.T) {
	f := newFixture()
	f.progress.rows[1] = awaitingProgress(time.Now().Add(-time.Minute))
	f.notifs.On("NotifyWorkflowFailed", mock.Anything, int64(7), int64(1), mock.Anything).Return()

	done, err := f.orch.pollOnce(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.True(t, done)

	stored, _ := f.progress.GetByItinerary(context.Background(), 1)
	assert.Equal(t, domain.PhaseFailed, stored.Phase)
	assert.Contains(t, stored.ErrorText, "expired")
}

func TestPollOnce_TerminalIsAbsorbing(t *testing.T) {
	f := newFixture()
	p := awaitingProgress(time.Now().Add(time.Hour))
	p.Phase = domain.PhaseFailed
	f.progress.rows[1] = p

	done, err := f.orch.pollOnce(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.True(t, done)
	f.negotiations.AssertNotCalled(t, "CountByStatus", mock.Anything, mock.Anything)
}

func TestHandleVendorNonResponse(t *testing.T) {
	f := newFixture()
	f.progress.rows[1] = awaitingProgress(time.Now().Add(time.Hour))

	f.negotiations.On("GetByID", mock.Anything, int64(100)).Return(&domain.Negotiation{
		ID: 100, ItineraryItemID: 10, VendorID: 3,
		Status: domain.NegotiationPending,
	}, nil)
	f.items.On("GetByID", mock.Anything, int64(10)).Return(&domain.ItineraryItem{
		ID: 10, ItineraryID: 1, ServiceType: domain.ServiceTours,
		EstimatedPrice: 480, ActivityText: "Phi Phi Islands tour",
	}, nil)
	f.itineraries.On("GetByID", mock.Anything, int64(1)).Return(approvedItinerary(), nil)
	f.matcher.On("MatchVendors", mock.Anything, mock.MatchedBy(func(req vendor.MatchRequest) bool {
		return len(req.ExcludeVendorIDs) == 1 && req.ExcludeVendorIDs[0] == 3
	})).Return([]vendor.Match{{Vendor: domain.VendorProfile{ID: 4}, Score: 75}}, nil)
	f.negotiations.On("UpdateStatus", mock.Anything, int64(100), domain.NegotiationExpired).Return(nil)

	subs, err := f.orch.HandleVendorNonResponse(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, int64(4), subs[0].Vendor.ID)

	// No replacement negotiation is opened automatically.
	f.bulk.AssertNotCalled(t, "CreateBulk", mock.Anything, mock.Anything)

	stored, _ := f.progress.GetByItinerary(context.Background(), 1)
	assert.Contains(t, stored.Note, "Phi Phi Islands tour")
}

func TestHandleVendorNonResponse_TerminalNegotiation(t *testing.T) {
	f := newFixture()
	f.negotiations.On("GetByID", mock.Anything, int64(100)).Return(&domain.Negotiation{
		ID: 100, Status: domain.NegotiationAccepted,
	}, nil)

	_, err := f.orch.HandleVendorNonResponse(context.Background(), 100)
	assert.ErrorIs(t, err, ErrTerminal)
}

func TestSpawnPoller_ReplacementSurvivesOldPollerExit(t *testing.T) {
	f := newFixture()

	f.orch.spawnPoller(1, 7)
	f.orch.mu.Lock()
	first := f.orch.pollers[1]
	f.orch.mu.Unlock()
	require.NotNil(t, first)

	// Re-running the itinerary replaces the live poller. The old
	// goroutine's cleanup must not take the replacement down with it.
	f.orch.spawnPoller(1, 7)
	<-first.done

	f.orch.mu.Lock()
	current := f.orch.pollers[1]
	f.orch.mu.Unlock()
	require.NotNil(t, current)
	assert.NotSame(t, first, current)

	f.orch.Shutdown()
	<-current.done

	f.orch.mu.Lock()
	assert.Empty(t, f.orch.pollers)
	f.orch.mu.Unlock()
}

func TestResumeActive(t *testing.T) {
	f := newFixture()
	f.progress.rows[1] = awaitingProgress(time.Now().Add(time.Hour))

	interrupted := awaitingProgress(time.Now().Add(time.Hour))
	interrupted.ItineraryID = 2
	interrupted.Phase = domain.PhaseVendorMatching
	f.progress.rows[2] = interrupted

	f.itineraries.On("GetByID", mock.Anything, int64(1)).Return(approvedItinerary(), nil)
	it2 := approvedItinerary()
	it2.ID = 2
	f.itineraries.On("GetByID", mock.Anything, int64(2)).Return(it2, nil)
	f.notifs.On("NotifyWorkflowFailed", mock.Anything, int64(7), int64(2), mock.Anything).Return()

	require.NoError(t, f.orch.ResumeActive(context.Background()))
	defer f.orch.Shutdown()

	// The awaiting run got its poller back, the interrupted one failed.
	stored1, _ := f.progress.GetByItinerary(context.Background(), 1)
	assert.Equal(t, domain.PhaseAwaitingResponses, stored1.Phase)
	stored2, _ := f.progress.GetByItinerary(context.Background(), 2)
	assert.Equal(t, domain.PhaseFailed, stored2.Phase)
}
