package negotiation

import "errors"

var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("negotiation not found")
	ErrForbidden         = errors.New("not a party to this negotiation")
	ErrTerminalStatus    = errors.New("negotiation already reached a final status")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNoItems           = errors.New("no negotiable items in request")
)
