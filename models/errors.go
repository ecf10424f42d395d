package models

import "fmt"

// Error codes attached to DetectionOutcome.Error.
const (
	ErrCodePrecheck         = "precheck_failed"
	ErrCodeTimeout          = "timeout"
	ErrCodeLocationMismatch = "location_mismatch"
	ErrCodeSkipChain        = "skip_chain"
	ErrCodeSkipJunkDomain   = "skip_junk_domain"
	ErrCodeNavigation       = "navigation_error"
	ErrCodeInternal         = "internal_error"
)

// ErrorDetail is the structured error recorded on an outcome.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DetectError is the internal error type carrying an error code.
// It implements the error interface and supports wrapping via Unwrap.
type DetectError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *DetectError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DetectError) Unwrap() error {
	return e.Err
}

// NewDetectError creates a new DetectError.
func NewDetectError(code, message string, err error) *DetectError {
	return &DetectError{Code: code, Message: message, Err: err}
}

// Terminal reports whether the failure must never be retried by the caller.
// A terminal record is still persisted so future batches skip the site.
func (e *DetectError) Terminal() bool {
	switch e.Code {
	case ErrCodePrecheck, ErrCodeLocationMismatch, ErrCodeSkipChain, ErrCodeSkipJunkDomain:
		return true
	}
	return false
}

// Retriable reports whether the site is eligible for external re-queue.
func (e *DetectError) Retriable() bool {
	switch e.Code {
	case ErrCodeTimeout, ErrCodeNavigation:
		return true
	}
	return false
}

// ToDetail converts an internal error to the outcome-facing ErrorDetail.
func (e *DetectError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}
