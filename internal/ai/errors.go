// errors.go - Error categorization for OCR and answer provider calls

package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/api/googleapi"
)

// Error categories
const (
	CategoryBadRequest      = "bad_request"
	CategoryUnauthorized    = "unauthorized"
	CategoryForbidden       = "forbidden"
	CategoryNotFound        = "not_found"
	CategoryPayloadTooLarge = "payload_too_large"
	CategoryRateLimit       = "rate_limit"
	CategoryServerError     = "server_error"
	CategoryTimeout         = "timeout"
	CategoryCanceled        = "canceled"
	CategoryQuotaExceeded   = "quota_exceeded"
	CategoryNetworkError    = "network_error"
	CategoryUnknown         = "unknown"
)

// ProviderError represents a categorized provider API error
type ProviderError struct {
	Provider      string
	OriginalError error
	Category      string
	StatusCode    int
	Message       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: [%s] %s (status: %d)", e.Provider, e.Category, e.Message, e.StatusCode)
}

func (e *ProviderError) Unwrap() error {
	return e.OriginalError
}

// Temporary reports whether the same call could succeed later
func (e *ProviderError) Temporary() bool {
	switch e.Category {
	case CategoryRateLimit, CategoryServerError, CategoryTimeout, CategoryNetworkError:
		return true
	}
	return false
}

// CategorizeError wraps err in a ProviderError for provider.
// An error that is already a ProviderError is returned unchanged.
func CategorizeError(provider string, err error) *ProviderError {
	if err == nil {
		return nil
	}

	var existing *ProviderError
	if errors.As(err, &existing) {
		return existing
	}

	providerErr := &ProviderError{
		Provider:      provider,
		OriginalError: err,
		Category:      CategoryUnknown,
		Message:       err.Error(),
	}

	if status := statusCodeOf(err); status != 0 {
		providerErr.StatusCode = status
		categorizeStatus(providerErr, status)
		return providerErr
	}

	// Check for context errors
	if errors.Is(err, context.DeadlineExceeded) {
		providerErr.Category = CategoryTimeout
		providerErr.Message = "Request timeout - processing took too long"
		return providerErr
	}

	if errors.Is(err, context.Canceled) {
		providerErr.Category = CategoryCanceled
		providerErr.Message = "Request was canceled"
		return providerErr
	}

	// Check error message for common patterns
	errMsg := strings.ToLower(err.Error())

	if strings.Contains(errMsg, "quota") {
		providerErr.Category = CategoryQuotaExceeded
		providerErr.Message = "API quota exceeded - daily or monthly limit reached"
		return providerErr
	}

	if strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "deadline") {
		providerErr.Category = CategoryTimeout
		providerErr.Message = "Request timeout"
		return providerErr
	}

	if strings.Contains(errMsg, "connection") || strings.Contains(errMsg, "network") || strings.Contains(errMsg, "no such host") {
		providerErr.Category = CategoryNetworkError
		providerErr.Message = "Network connection error"
		return providerErr
	}

	return providerErr
}

// statusCodeOf extracts the HTTP status from the SDK error types we talk to
func statusCodeOf(err error) int {
	var googleErr *googleapi.Error
	if errors.As(err, &googleErr) {
		return googleErr.Code
	}

	var openaiErr *openai.APIError
	if errors.As(err, &openaiErr) {
		return openaiErr.HTTPStatusCode
	}

	var openaiReqErr *openai.RequestError
	if errors.As(err, &openaiReqErr) {
		return openaiReqErr.HTTPStatusCode
	}

	var anthropicErr *anthropic.Error
	if errors.As(err, &anthropicErr) {
		return anthropicErr.StatusCode
	}

	var httpErr *HTTPStatusError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}

	return 0
}

func categorizeStatus(providerErr *ProviderError, status int) {
	switch {
	case status == http.StatusBadRequest:
		providerErr.Category = CategoryBadRequest
		providerErr.Message = "Invalid request format or parameters"

	case status == http.StatusUnauthorized:
		providerErr.Category = CategoryUnauthorized
		providerErr.Message = "Invalid API key or authentication failed"

	case status == http.StatusForbidden:
		providerErr.Category = CategoryForbidden
		providerErr.Message = "API key lacks required permissions"

	case status == http.StatusNotFound:
		providerErr.Category = CategoryNotFound
		providerErr.Message = "Model not found or invalid endpoint"

	case status == http.StatusRequestEntityTooLarge:
		providerErr.Category = CategoryPayloadTooLarge
		providerErr.Message = "Request size exceeds limit (reduce image size)"

	case status == http.StatusTooManyRequests:
		providerErr.Category = CategoryRateLimit
		providerErr.Message = "Rate limit exceeded - too many requests"

	case status >= 500:
		providerErr.Category = CategoryServerError
		providerErr.Message = fmt.Sprintf("%s server error (%d)", providerErr.Provider, status)

	default:
		providerErr.Category = "unknown_api_error"
		providerErr.Message = fmt.Sprintf("API error (%d)", status)
	}
}

// HTTPStatusError is returned by the REST providers on a non-2xx response
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// UserMessage converts a technical error into a short message shown next to a failed answer
func UserMessage(err error) string {
	var providerErr *ProviderError
	if !errors.As(err, &providerErr) {
		return err.Error()
	}

	switch providerErr.Category {
	case CategoryRateLimit:
		return "Too many requests. Please wait a moment and try again."
	case CategoryQuotaExceeded:
		return "API quota exceeded. Please try again later."
	case CategoryUnauthorized, CategoryForbidden:
		return "API authentication failed. Please check the API key."
	case CategoryPayloadTooLarge:
		return "Image size is too large. Please use a smaller image."
	case CategoryTimeout:
		return "Request took too long. Please try again."
	case CategoryServerError:
		return "Service is temporarily unavailable. Please try again in a few minutes."
	case CategoryNetworkError:
		return "Network connection issue. Please try again."
	default:
		return providerErr.Message
	}
}

// BuildErrorResponse renders a categorized error as a JSON body for the API
func BuildErrorResponse(err error) map[string]interface{} {
	providerErr := CategorizeError("provider", err)

	errorResponse := map[string]interface{}{
		"error":    "AI processing failed",
		"category": providerErr.Category,
		"details":  UserMessage(providerErr),
	}
	if providerErr.Temporary() {
		errorResponse["retry_recommended"] = true
	}
	return errorResponse
}
