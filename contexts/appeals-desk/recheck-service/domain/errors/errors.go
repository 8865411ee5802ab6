package errors

import "errors"

var (
	// ErrInvalidRecheckInput marks a request missing required identity or
	// reason fields.
	ErrInvalidRecheckInput = errors.New("invalid recheck input")

	// ErrRecheckNotFound marks an unknown request ID.
	ErrRecheckNotFound = errors.New("recheck request not found")

	// ErrOpenRecheckExists marks a submission against a result that already
	// has a non-terminal request.
	ErrOpenRecheckExists = errors.New("open recheck request already exists for result")

	// ErrInvalidStateTransition marks an operation attempted from a state
	// that does not allow it. Wrapped errors name both states.
	ErrInvalidStateTransition = errors.New("invalid recheck state transition")

	// ErrPaymentGateway marks a gateway call that failed before a verdict
	// could be reached.
	ErrPaymentGateway = errors.New("payment gateway unavailable")

	// ErrPaymentInvalid marks a payment the gateway rejected as unverifiable
	// or tampered.
	ErrPaymentInvalid = errors.New("payment verification failed")

	// ErrPaymentNotFound marks a verification for an order this service
	// never initiated.
	ErrPaymentNotFound = errors.New("payment order not found")
)
