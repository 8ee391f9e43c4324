package errors

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies a scrape error
type Kind string

const (
	// KindNetwork represents transient network errors (timeouts, refused
	// connections, upstream rate limiting). Retried by the fetch helper.
	KindNetwork Kind = "network"
	// KindMalformed represents responses whose expected data shape is
	// absent or structurally wrong. Never retried within a cycle.
	KindMalformed Kind = "malformed"
	// KindValidation represents URLs that do not match a platform's
	// search-page shape. Only raised at query-registration time.
	KindValidation Kind = "validation"
	// KindPersistence represents an unreachable persistence gateway.
	// Aborts the whole polling cycle.
	KindPersistence Kind = "persistence"
	// KindNotify represents notification delivery failures. Logged,
	// never fatal to a cycle.
	KindNotify Kind = "notify"
)

// ScrapeError carries enough structured context (platform, query id,
// kind, message) for a front-end to translate a failure into an
// actionable message.
type ScrapeError struct {
	Kind     Kind
	Platform string
	QueryID  int64
	Message  string
	Err      error
	Time     time.Time
}

// Error implements the error interface
func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s query=%d: %s - %v", e.Kind, e.Platform, e.QueryID, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s query=%d: %s", e.Kind, e.Platform, e.QueryID, e.Message)
}

// Unwrap returns the underlying error
func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if another attempt within the same cycle can
// plausibly succeed.
func (e *ScrapeError) IsRetryable() bool {
	return e.Kind == KindNetwork
}

// WithQuery returns a copy of the error bound to a tracked query id.
func (e *ScrapeError) WithQuery(queryID int64) *ScrapeError {
	dup := *e
	dup.QueryID = queryID
	return &dup
}

// New creates a new ScrapeError
func New(kind Kind, platform, message string, err error) *ScrapeError {
	return &ScrapeError{
		Kind:     kind,
		Platform: platform,
		Message:  message,
		Err:      err,
		Time:     time.Now(),
	}
}

// NewNetwork creates a new transient network error
func NewNetwork(platform, message string, err error) *ScrapeError {
	return New(KindNetwork, platform, message, err)
}

// NewMalformed creates a new malformed-response error
func NewMalformed(platform, message string, err error) *ScrapeError {
	return New(KindMalformed, platform, message, err)
}

// NewValidation creates a new validation error
func NewValidation(platform, message string) *ScrapeError {
	return New(KindValidation, platform, message, nil)
}

// NewPersistence creates a new persistence-gateway error
func NewPersistence(message string, err error) *ScrapeError {
	return New(KindPersistence, "", message, err)
}

// NewNotify creates a new notification-delivery error
func NewNotify(platform, message string, err error) *ScrapeError {
	return New(KindNotify, platform, message, err)
}

// KindOf extracts the Kind from any error in the chain, or "" when the
// chain carries no ScrapeError.
func KindOf(err error) Kind {
	var se *ScrapeError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// IsNetwork reports whether the error chain is a transient network error.
func IsNetwork(err error) bool {
	return KindOf(err) == KindNetwork
}

// IsMalformed reports whether the error chain is a malformed-response error.
func IsMalformed(err error) bool {
	return KindOf(err) == KindMalformed
}
