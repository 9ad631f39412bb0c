// Package apperr defines the service's closed error taxonomy. Every failure
// that crosses a component boundary carries a Code so callers can branch on
// classification instead of matching message strings.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a failure.
type Code string

const (
	// CodeNotFound means the session id is unknown or the session expired.
	CodeNotFound Code = "not_found"
	// CodeResourceExhausted means the concurrent-session limit was reached.
	CodeResourceExhausted Code = "resource_exhausted"
	// CodeDriverUnavailable means a browser tab could not be opened.
	CodeDriverUnavailable Code = "driver_unavailable"
	// CodeDriverError means the browser process or protocol failed mid-action.
	// Fatal to the owning session.
	CodeDriverError Code = "driver_error"
	// CodeTimeout means a bounded operation exceeded its deadline.
	CodeTimeout Code = "timeout"
	// CodeCanceled means the caller abandoned the operation before it finished.
	CodeCanceled Code = "canceled"
	// CodeElementNotFound means a selector matched nothing in time.
	CodeElementNotFound Code = "element_not_found"
	// CodeNavigationFailed means a navigation did not complete.
	CodeNavigationFailed Code = "navigation_failed"
	// CodeScriptError means an injected script failed to evaluate.
	CodeScriptError Code = "script_error"
	// CodePlannerUnavailable is internal to the planner; it is always absorbed
	// into a fallback plan and never surfaced to callers.
	CodePlannerUnavailable Code = "planner_unavailable"
	// CodeValidation means the request parameters were malformed.
	CodeValidation Code = "validation_error"
	// CodeInternal is the residual classification.
	CodeInternal Code = "internal"
)

// Error pairs a Code with a message and an optional wrapped cause.
type Error struct {
	Code Code
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a classified error.
func New(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error. A nil cause yields nil.
func Wrap(code Code, err error, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf extracts the classification of err, defaulting to CodeInternal.
// A nil error has no code.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// HTTPStatus maps a classification to an HTTP status for the API boundary.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeResourceExhausted:
		return http.StatusTooManyRequests
	case CodeValidation:
		return http.StatusBadRequest
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeCanceled:
		// Nginx convention for client-closed-request; no stdlib constant.
		return 499
	case CodeDriverUnavailable, CodeDriverError:
		return http.StatusBadGateway
	case CodeElementNotFound, CodeNavigationFailed, CodeScriptError:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
