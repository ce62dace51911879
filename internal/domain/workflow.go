package domain

import "time"

type WorkflowPhase string

const (
	PhaseParsing            WorkflowPhase = "parsing"
	PhaseVendorMatching     WorkflowPhase = "vendor_matching"
	PhaseNegotiationsActive WorkflowPhase = "negotiations_active"
	PhaseAwaitingResponses  WorkflowPhase = "awaiting_responses"
	PhasePartialComplete    WorkflowPhase = "partial_complete"
	PhaseCompleted          WorkflowPhase = "completed"
	PhaseFailed             WorkflowPhase = "failed"
)

// Terminal reports whether the workflow has stopped for good.
func (p WorkflowPhase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

// WorkflowProgress is the durable per-itinerary record of a running
// post-approval orchestration. It is persisted so a restart can resume
// polling instead of losing the run.
type WorkflowProgress struct {
	ID                    int64         `json:"id"`
	ItineraryID           int64         `json:"itinerary_id"`
	RunID                 string        `json:"run_id"`
	Phase                 WorkflowPhase `json:"phase"`
	Percent               int           `json:"percent"` // 0-100
	ActiveNegotiations    int           `json:"active_negotiations"`
	CompletedNegotiations int           `json:"completed_negotiations"`
	EstimatedSavings      float64       `json:"estimated_savings"`
	LastNotifiedPhase     WorkflowPhase `json:"last_notified_phase,omitempty"`
	Note                  string        `json:"note,omitempty"`
	ErrorText             string        `json:"error_text,omitempty"`
	ExpiresAt             time.Time     `json:"expires_at"`
	CreatedAt             time.Time     `json:"created_at"`
	UpdatedAt             time.Time     `json:"updated_at"`
}
