package models

import (
	"context"
	"errors"
	"fmt"
)

// Error codes used in run reports and internal error handling.
const (
	ErrCodeLaunch      = "LAUNCH_FAILED"
	ErrCodePage        = "PAGE_FAILED"
	ErrCodeNavigation  = "NAVIGATION_FAILED"
	ErrCodeTimeout     = "WAIT_TIMEOUT"
	ErrCodeAssertion   = "ASSERTION_FAILED"
	ErrCodeScreenshot  = "SCREENSHOT_FAILED"
	ErrCodeInvalidPlan = "INVALID_PLAN"
	ErrCodeInternal    = "INTERNAL_ERROR"
)

// ErrorDetail is the structured error in run reports.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// VerifyError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type VerifyError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *VerifyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *VerifyError) Unwrap() error {
	return e.Err
}

// NewVerifyError creates a new VerifyError.
func NewVerifyError(code, message string, err error) *VerifyError {
	return &VerifyError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to a report-facing ErrorDetail.
func (e *VerifyError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Error()}
}

// Categorize wraps a raw driver error into a VerifyError. Deadline and
// cancellation errors become WAIT_TIMEOUT regardless of the fallback code.
func Categorize(err error, fallbackCode, msg string) *VerifyError {
	var ve *VerifyError
	if errors.As(err, &ve) {
		return ve
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewVerifyError(ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return NewVerifyError(ErrCodeTimeout, "run canceled", err)
	default:
		return NewVerifyError(fallbackCode, msg, err)
	}
}

// CodeOf returns the code of the first VerifyError in err's chain, or
// ErrCodeInternal.
func CodeOf(err error) string {
	var ve *VerifyError
	if errors.As(err, &ve) {
		return ve.Code
	}
	return ErrCodeInternal
}

// DetailOf converts any error into an ErrorDetail.
func DetailOf(err error) *ErrorDetail {
	if err == nil {
		return nil
	}
	var ve *VerifyError
	if errors.As(err, &ve) {
		return &ErrorDetail{Code: ve.Code, Message: err.Error()}
	}
	return &ErrorDetail{Code: ErrCodeInternal, Message: err.Error()}
}
