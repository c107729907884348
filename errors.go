package nutribudget

import "errors"

var (
	// ErrParse means user input did not match the expected field shape.
	ErrParse = errors.New("could not parse input")

	// ErrCapabilityUnavailable means an external research or generation capability
	// is missing, failed, timed out or returned something unusable.
	ErrCapabilityUnavailable = errors.New("capability unavailable")

	// ErrUnrecoverablePlan means no viable plan could be built, not even from fallback data.
	ErrUnrecoverablePlan = errors.New("unrecoverable meal plan")

	// ErrSessionBusy means another turn is already running for the session. Retryable.
	ErrSessionBusy = errors.New("session busy")

	ErrSessionNotFound = errors.New("session not found")
)
