package booking

import "errors"

var (
	ErrInvalidTransition = errors.New("booking: invalid status transition")
	ErrInvalidTime       = errors.New("booking: interval does not fit inside the day")
	ErrInvalidScore      = errors.New("booking: satisfaction score must be between 0 and 10")
	ErrInvalidPayment    = errors.New("booking: payment method required")
	ErrSlotConflict      = errors.New("booking: time slot conflicts with an existing appointment")
	ErrNotFound          = errors.New("booking: appointment not found")
	ErrStoreUnavailable  = errors.New("booking: store unavailable")
)
