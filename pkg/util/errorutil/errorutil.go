package errorutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
)

// Reasons reported by the backend in the JSend data object.
const (
	ReasonCodeIncorrect = "code_incorrect"
	ReasonAlreadyExists = "already_exists"
	ReasonGuestNotFound = "guest_not_found"
)

const (
	CodeValidation   = "VALIDATION_FAILED"
	CodeNotFound     = "NOT_FOUND"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL_ERROR"
	CodeUpstream     = "UPSTREAM_FAILED"
	CodeUnavailable  = "UPSTREAM_UNAVAILABLE"
	CodeTimeout      = "TIMEOUT"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewUpstreamError describes a non-success reply from the support backend.
// data is the JSend data object; it usually names the failing field and a reason.
func NewUpstreamError(status int, code, message string, data map[string]any) *DomainError {
	if message == "" {
		message = http.StatusText(status)
	}
	if code == "" {
		code = CodeUpstream
	}
	return &DomainError{
		Code:       code,
		Message:    message,
		HTTPStatus: status,
		Details:    data,
	}
}

// NewUnavailable wraps a transport failure talking to an upstream.
func NewUnavailable(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &DomainError{Code: CodeTimeout, Message: "upstream timed out", HTTPStatus: http.StatusGatewayTimeout, Err: err}
	}
	return &DomainError{Code: CodeUnavailable, Message: "upstream unavailable", HTTPStatus: http.StatusBadGateway, Err: err}
}

// Reason extracts the backend sub-code from err, e.g. ("code", "code_incorrect").
// Keys are inspected in sorted order so the result is stable.
func Reason(err error) (field, reason string, ok bool) {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || len(domainErr.Details) == 0 {
		return "", "", false
	}
	keys := make([]string, 0, len(domainErr.Details))
	for k := range domainErr.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v, isStr := domainErr.Details[k].(string); isStr && isKnownReason(v) {
			return k, v, true
		}
	}
	return "", "", false
}

func isKnownReason(v string) bool {
	switch v {
	case ReasonCodeIncorrect, ReasonAlreadyExists, ReasonGuestNotFound:
		return true
	}
	return false
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}
