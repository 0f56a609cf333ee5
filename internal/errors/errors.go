package errors

import "errors"

// Business outcomes are sentinel errors so callers can branch on them with
// errors.Is instead of parsing messages. Transport faults from the payment
// gateway are a separate type in internal/external.

var ErrUnauthorized = errors.New("user is not authorized")
var ErrForbidden = errors.New("operation is forbidden for user")

var ErrNotFound = errors.New("record not found")
var ErrValidation = errors.New("invalid request payload")
var ErrInvalidQuantity = errors.New("quantity must be a positive integer")
var ErrTicketTypeMismatch = errors.New("ticket type does not belong to the specified event")
var ErrEventInactive = errors.New("event is not active")
var ErrInsufficientTickets = errors.New("not enough tickets available")
var ErrAlreadyConfirmed = errors.New("booking is already confirmed")
var ErrAlreadyCancelled = errors.New("booking is already cancelled")
