package models

import (
	"errors"
	"fmt"
)

// ErrorCategory normalizes collaborator failures.
type ErrorCategory string

const (
	ErrorTimeout     ErrorCategory = "timeout"
	ErrorOutage      ErrorCategory = "outage"
	ErrorBadData     ErrorCategory = "bad_data"
	ErrorRejected    ErrorCategory = "rejected"
	ErrorRateLimited ErrorCategory = "rate_limited"
	ErrorNotFound    ErrorCategory = "not_found"
)

// ExternalServiceError wraps a failure at a collaborator boundary.
type ExternalServiceError struct {
	Service   string
	Category  ErrorCategory
	Retryable bool
	Err       error
}

func (e *ExternalServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s [%s]: %v", e.Service, e.Category, e.Err)
	}
	return fmt.Sprintf("%s [%s]", e.Service, e.Category)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

// NewExternalServiceError classifies timeouts, outages and rate limits as retryable.
func NewExternalServiceError(service string, category ErrorCategory, err error) *ExternalServiceError {
	return &ExternalServiceError{
		Service:   service,
		Category:  category,
		Retryable: category == ErrorTimeout || category == ErrorOutage || category == ErrorRateLimited,
		Err:       err,
	}
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var ese *ExternalServiceError
	if errors.As(err, &ese) {
		return ese.Retryable
	}
	return false
}

// ClassifyHTTPStatus maps a non-2xx collaborator response to an error.
func ClassifyHTTPStatus(service string, status int) *ExternalServiceError {
	err := fmt.Errorf("unexpected HTTP status %d", status)
	switch {
	case status == 429:
		return NewExternalServiceError(service, ErrorRateLimited, err)
	case status == 404:
		return NewExternalServiceError(service, ErrorNotFound, err)
	case status == 408 || status == 504:
		return NewExternalServiceError(service, ErrorTimeout, err)
	case status >= 500:
		return NewExternalServiceError(service, ErrorOutage, err)
	default:
		return NewExternalServiceError(service, ErrorRejected, err)
	}
}
