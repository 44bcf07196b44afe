package domain

import "errors"

// Sentinel errors shared across the pipeline layers.
var (
	// ErrUnknownSentiment is returned when the LLM emits a sentiment label
	// outside the known enum.
	ErrUnknownSentiment = errors.New("unknown sentiment")
	// ErrItemNotFound is returned by stores when no row exists for an ID.
	ErrItemNotFound = errors.New("item not found")
	// ErrSourceResponse is returned when a source replied with an
	// application-level error payload.
	ErrSourceResponse = errors.New("source returned error")
	// ErrAuthFailed is returned when a source rejects our credentials.
	// Operators must rotate credentials; there is no automatic recovery.
	ErrAuthFailed = errors.New("source authentication failed")
)
