package itinerary

import "errors"

var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("itinerary not found")
	ErrForbidden         = errors.New("not your itinerary")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrAlreadyApproved   = errors.New("itinerary already approved")
)
