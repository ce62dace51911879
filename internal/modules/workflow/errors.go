package workflow

import "errors"

var (
	ErrNotApproved    = errors.New("itinerary is not approved")
	ErrAlreadyRunning = errors.New("a workflow is already running for this itinerary")
	ErrNotFound       = errors.New("no workflow for this itinerary")
	ErrTerminal       = errors.New("negotiation already reached a final status")
)
