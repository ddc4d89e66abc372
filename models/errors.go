package models

import (
	"errors"
	"fmt"
)

// Error codes used in logs, the status API, and internal error handling.
const (
	ErrCodeTimeout      = "SCRAPE_TIMEOUT"
	ErrCodeNavigation   = "NAVIGATION_FAILED"
	ErrCodeBlocked      = "BLOCKED"
	ErrCodeExtraction   = "EXTRACTION_FAILED"
	ErrCodeBrowserCrash = "BROWSER_CRASH"
	ErrCodeDelivery     = "DELIVERY_FAILED"
	ErrCodePreCheck     = "PRECHECK_UNAVAILABLE"
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// HarvestError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type HarvestError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *HarvestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *HarvestError) Unwrap() error {
	return e.Err
}

// NewHarvestError creates a new HarvestError.
func NewHarvestError(code, message string, err error) *HarvestError {
	return &HarvestError{Code: code, Message: message, Err: err}
}

// CodeOf returns the harvest error code for err, unwrapping as needed, or
// ErrCodeInternal if no HarvestError is in the chain.
func CodeOf(err error) string {
	var he *HarvestError
	if errors.As(err, &he) {
		return he.Code
	}
	return ErrCodeInternal
}
