package domain

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Error message string constants - single source of truth for error messages
// Use these in assert.Contains() checks when testing error messages
const (
	// Configuration errors
	ErrMsgSynchronizationNotFound = "synchronization not found"
	ErrMsgSourceNotFound          = "source not found"
	ErrMsgMappingNotFound         = "mapping not found"
	ErrMsgRuleNotFound            = "rule not found"
	ErrMsgUnsupportedSourceType   = "unsupported source type"
	ErrMsgUnsupportedTargetType   = "unsupported target type"
	ErrMsgInvalidConfiguration    = "invalid synchronization configuration"

	// Per-object errors
	ErrMsgOriginIDMissing = "origin id not found in object"
	ErrMsgInvalidObject   = "object is not a structured record"

	// Contract errors
	ErrMsgContractNotFound = "synchronization contract not found"

	// Run errors
	ErrMsgRunNotFound   = "synchronization run not found"
	ErrMsgFollowUpCycle = "follow-up synchronization cycle detected"
	ErrMsgRunInProgress = "synchronization already running"

	// Object store errors
	ErrMsgObjectNotFound = "object not found"

	// Pipeline errors
	ErrMsgRuleTerminated = "rule pipeline terminated"
)

// Common domain errors
// These errors should be used consistently across all layers of the engine.
// Wrap these errors with fmt.Errorf("%w: %s", domain.ErrXxx, details) for additional context.
var (
	// Configuration errors - fatal for the run
	ErrSynchronizationNotFound = errors.New(ErrMsgSynchronizationNotFound)
	ErrSourceNotFound          = errors.New(ErrMsgSourceNotFound)
	ErrMappingNotFound         = errors.New(ErrMsgMappingNotFound)
	ErrRuleNotFound            = errors.New(ErrMsgRuleNotFound)
	ErrUnsupportedSourceType   = errors.New(ErrMsgUnsupportedSourceType)
	ErrUnsupportedTargetType   = errors.New(ErrMsgUnsupportedTargetType)
	ErrInvalidConfiguration    = errors.New(ErrMsgInvalidConfiguration)

	// Per-object errors - isolated to the object, never abort the run
	ErrOriginIDMissing = errors.New(ErrMsgOriginIDMissing)
	ErrInvalidObject   = errors.New(ErrMsgInvalidObject)

	// Contract errors
	ErrContractNotFound = errors.New(ErrMsgContractNotFound)

	// Run errors
	ErrRunNotFound   = errors.New(ErrMsgRunNotFound)
	ErrFollowUpCycle = errors.New(ErrMsgFollowUpCycle)
	ErrRunInProgress = errors.New(ErrMsgRunInProgress)

	// Object store errors
	ErrObjectNotFound = errors.New(ErrMsgObjectNotFound)
)

// RateLimitError reports an exhausted or throttled source.
// It carries the retry headers of the upstream API so callers can surface
// a 429-equivalent response without re-fetching state.
type RateLimitError struct {
	SourceID  string
	Limit     int
	Remaining int
	Reset     time.Time
	Window    time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("source %s rate limit exhausted, resets at %s", e.SourceID, e.Reset.Format(time.RFC3339))
}

// Headers returns the X-RateLimit-* headers describing the limit state.
func (e *RateLimitError) Headers() map[string]string {
	h := map[string]string{
		"X-RateLimit-Limit":     strconv.Itoa(e.Limit),
		"X-RateLimit-Remaining": strconv.Itoa(e.Remaining),
		"X-RateLimit-Reset":     strconv.FormatInt(e.Reset.Unix(), 10),
	}
	if e.Window > 0 {
		h["X-RateLimit-Window"] = strconv.Itoa(int(e.Window.Seconds()))
	}
	if retry := time.Until(e.Reset); retry > 0 {
		h["Retry-After"] = strconv.Itoa(int(retry.Seconds()) + 1)
	}
	return h
}
