// provider_response.go - Tagged success/failure result for one provider answer

package processor

import (
	"errors"
	"strings"
)

// ErrorMarkerPrefix marks a failed answer in the string form exchanged with
// callers that predate the tagged result ("Error: <message>").
const ErrorMarkerPrefix = "Error:"

// UpstreamError is a failure reported by an OCR or answer provider
type UpstreamError struct {
	Message string
}

func (e *UpstreamError) Error() string {
	return e.Message
}

// ProviderResponse is the answer (or failure) of one provider
type ProviderResponse struct {
	Provider string
	Text     string
	Err      error
}

// NewSuccess builds a successful response
func NewSuccess(provider, text string) ProviderResponse {
	return ProviderResponse{Provider: provider, Text: text}
}

// NewFailure builds a failed response; a nil err is replaced by a generic one
func NewFailure(provider string, err error) ProviderResponse {
	if err == nil {
		err = errors.New("unknown error")
	}
	return ProviderResponse{Provider: provider, Err: err}
}

// Succeeded reports whether the provider returned usable, non-empty text.
// Text that itself starts with "Error:" is never usable.
func (r ProviderResponse) Succeeded() bool {
	return r.Err == nil && r.Text != "" && !IsErrorMarker(r.Text)
}

// IsErrorMarker reports whether raw uses the "Error:" failure convention
func IsErrorMarker(raw string) bool {
	return strings.HasPrefix(raw, ErrorMarkerPrefix)
}

// ParseProviderResponse converts a wire string into a tagged response.
// Strings carrying the "Error:" prefix become failures; the message is kept opaque.
func ParseProviderResponse(provider, raw string) ProviderResponse {
	if IsErrorMarker(raw) {
		msg := strings.TrimSpace(strings.TrimPrefix(raw, ErrorMarkerPrefix))
		return ProviderResponse{Provider: provider, Err: &UpstreamError{Message: msg}}
	}
	return ProviderResponse{Provider: provider, Text: raw}
}

// WireText renders the response in the "Error:" string convention
func (r ProviderResponse) WireText() string {
	if r.Err != nil {
		return ErrorMarkerPrefix + " " + r.Err.Error()
	}
	return r.Text
}
