package handler

// Generic HTTP error messages for client responses.
// These messages intentionally do not expose internal error details.
// Both handlers and tests should reference these constants to maintain consistency.
const (
	ErrMsgInvalidRequest        = "Invalid request body"
	ErrMsgInvalidRequestSummary = "Invalid request"
	ErrMsgInvalidID             = "Invalid id"

	// Generic messages
	ErrMsgGenericServerError   = "Something went wrong"
	ErrMsgResourceNotFound     = "Resource not found"
	ErrMsgTooManyRequestsError = "Too many requests. Please try again later."

	// Synchronization messages
	ErrMsgRunAlreadyInProgress = "Synchronization is already running"
	ErrMsgRunQueueFull         = "Run queue is full. Please try again later."
	ErrMsgSyncDisabled         = "Synchronization configuration is invalid or disabled"
)
