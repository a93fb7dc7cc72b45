// Package core provides core types and interfaces for the chat gateway.
package core

import (
	"fmt"
	"net/http"
	"strings"
)

// ErrorType represents the type of error that occurred
type ErrorType string

const (
	// ErrorTypeInvalidRequest indicates malformed client input (400)
	ErrorTypeInvalidRequest ErrorType = "invalid_request_error"
	// ErrorTypeConfiguration indicates a deployment misconfiguration (400 or 500)
	ErrorTypeConfiguration ErrorType = "configuration_error"
	// ErrorTypeUpstream indicates the remote provider failed or refused the request
	ErrorTypeUpstream ErrorType = "upstream_error"
)

// GatewayError is the base error type for all gateway errors
type GatewayError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code"`
	Provider   string    `json:"provider,omitempty"`
	// Original error for debugging (not exposed to clients)
	Err error `json:"-"`
}

// Error implements the error interface
func (e *GatewayError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Provider, e.Type, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the error unwrapping interface
func (e *GatewayError) Unwrap() error {
	return e.Err
}

// HTTPStatusCode returns the appropriate HTTP status code for this error
func (e *GatewayError) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}
	switch e.Type {
	case ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case ErrorTypeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ToJSON converts the error to a JSON-compatible map.
// "detail" carries the bare message for clients that only read that field.
func (e *GatewayError) ToJSON() map[string]any {
	body := map[string]any{
		"type":    e.Type,
		"message": e.Message,
	}
	if e.Provider != "" {
		body["provider"] = e.Provider
	}
	return map[string]any{
		"detail": e.Message,
		"error":  body,
	}
}

// NewValidationError creates an error for client input that violates a request constraint (400)
func NewValidationError(message string) *GatewayError {
	return &GatewayError{
		Type:       ErrorTypeInvalidRequest,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewMissingKeyError reports that the selected provider has no credential configured (400)
func NewMissingKeyError(provider string) *GatewayError {
	return &GatewayError{
		Type:       ErrorTypeConfiguration,
		Message:    "Missing API key for provider: " + provider,
		StatusCode: http.StatusBadRequest,
		Provider:   provider,
	}
}

// NewIntegrationUnavailableError reports a known provider whose adapter is not part of this deployment (500)
func NewIntegrationUnavailableError(provider string) *GatewayError {
	return &GatewayError{
		Type:       ErrorTypeConfiguration,
		Message:    "provider integration not available: " + provider,
		StatusCode: http.StatusInternalServerError,
		Provider:   provider,
	}
}

// NewUpstreamError creates an error carrying the upstream status code and raw body.
// A zero or non-error status is reported as 502.
func NewUpstreamError(provider string, statusCode int, message string, err error) *GatewayError {
	if statusCode < http.StatusBadRequest {
		statusCode = http.StatusBadGateway
	}
	return &GatewayError{
		Type:       ErrorTypeUpstream,
		Message:    message,
		StatusCode: statusCode,
		Provider:   provider,
		Err:        err,
	}
}

// ParseProviderError builds an UpstreamError from a failed upstream response.
// The raw body is preserved verbatim so callers see exactly what the provider said.
func ParseProviderError(provider string, statusCode int, body []byte, originalErr error) *GatewayError {
	message := strings.TrimSpace(string(body))
	if message == "" {
		message = http.StatusText(statusCode)
	}
	return NewUpstreamError(provider, statusCode, message, originalErr)
}
