package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error codes used by the backend's error payloads.
const (
	CodeSessionNotFound    = "session_not_found"
	CodeSessionExpired     = "session_expired"
	CodeRateLimited        = "rate_limit_exceeded"
	CodeFileValidation     = "file_validation_error"
	CodeServiceUnavailable = "service_unavailable"
	CodeAnalysis           = "analysis_error"
)

type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if e.Code != "" {
		return fmt.Sprintf("api error (%d %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}

// IsSessionGone reports whether the backend no longer knows the session:
// terminal, not retryable, the user has to upload again.
func IsSessionGone(err error) bool {
	apiErr := AsAPIError(err)
	if apiErr == nil {
		return false
	}
	if apiErr.Code == CodeSessionNotFound || apiErr.Code == CodeSessionExpired {
		return true
	}
	return apiErr.StatusCode == http.StatusNotFound
}

// IsRateLimited reports whether the backend asked the caller to slow down.
// Never session-fatal.
func IsRateLimited(err error) bool {
	apiErr := AsAPIError(err)
	if apiErr == nil {
		return false
	}
	return apiErr.Code == CodeRateLimited || apiErr.StatusCode == http.StatusTooManyRequests
}

// IsCanceled distinguishes cooperative cancellation from real failures.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}

func decodeAPIError(resp *http.Response) error {
	type errorPayload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	var payload errorPayload
	_ = json.NewDecoder(resp.Body).Decode(&payload)

	apiErr := &APIError{StatusCode: resp.StatusCode, Code: payload.Error, Message: payload.Message}
	if apiErr.Message == "" {
		apiErr.Message = payload.Detail
	}
	if apiErr.Code == "" {
		switch resp.StatusCode {
		case http.StatusNotFound:
			apiErr.Code = CodeSessionNotFound
		case http.StatusTooManyRequests:
			apiErr.Code = CodeRateLimited
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = resp.Status
	}
	return apiErr
}
