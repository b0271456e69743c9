package models

import "errors"

// Engine error taxonomy. All are expected, recoverable outcomes surfaced to
// the caller; wrap with fmt.Errorf("...: %w", Err...) and test with
// errors.Is.
var (
	// ErrValidation marks malformed or missing input.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks an unknown call, bid, member or marketplace id.
	ErrNotFound = errors.New("not found")

	// ErrNotAuthorized marks a tenant or role mismatch.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrInvalidState marks an operation that is not valid for the
	// entity's current status, e.g. cancelling a resolved call.
	ErrInvalidState = errors.New("invalid state")

	// ErrAlreadyResolved is returned on losing a concurrent claim or
	// accept race. It specializes ErrInvalidState so the UI can show
	// "someone else already took this call".
	ErrAlreadyResolved = errors.New("call already resolved")

	// ErrCallNotOpen marks a bid against a call that is no longer open.
	ErrCallNotOpen = errors.New("call is not open")

	// ErrBiddingDisabled marks a bid against a tenant whose policy does
	// not use bid approval.
	ErrBiddingDisabled = errors.New("bidding disabled for tenant")
)
