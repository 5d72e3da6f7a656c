package domain

import "errors"

// Sentinel errors shared across services, repos and handlers.
// Callers compare with errors.Is.
var (
	// ErrSignatureInvalid means an inbound webhook could not be
	// authenticated against the provider secret. Terminal for the
	// request; the only webhook failure surfaced as a 4xx.
	ErrSignatureInvalid = errors.New("webhook signature invalid")

	// ErrUserNotResolved means a completed checkout referenced an email
	// with no matching user. Logged and swallowed toward the provider.
	ErrUserNotResolved = errors.New("no user matches checkout email")

	ErrTourNotFound         = errors.New("tour not found")
	ErrUnknownPaymentMethod = errors.New("unknown payment method")

	// ErrProviderUnavailable wraps transient network/5xx failures from a
	// payment backend. Retried with backoff before being treated as
	// permanent.
	ErrProviderUnavailable = errors.New("payment provider unavailable")
)
