// interface.go - Provider interfaces for OCR and answer models

package ai

import (
	"context"

	"github.com/bosocmputer/ocr_answer_compare/internal/common"
)

// OCRProvider defines the interface that all OCR providers must implement
// This allows us to support multiple OCR backends (OCR.Space, Gemini, Mistral) with the same interface
type OCRProvider interface {
	// ExtractText reads the text visible in an image.
	// An image without text yields an empty RawText, not an error.
	ExtractText(ctx context.Context, image []byte, mimeType string, reqCtx *common.RequestContext) (*OCRResult, error)

	// GetProviderName returns the name of the provider (e.g., "ocrspace", "gemini", "mistral")
	GetProviderName() string
}

// AnswerProvider is one language model asked to answer the extracted question
type AnswerProvider interface {
	// Answer sends text to the model under the configured system prompt
	Answer(ctx context.Context, text string) (string, *common.TokenUsage, error)

	// Name is the display name used as the provider key ("ChatGPT", "Claude", ...)
	Name() string

	// Model is the upstream model identifier
	Model() string
}

// OCRResult represents the raw text read from an image
type OCRResult struct {
	Provider     string             `json:"provider"`
	RawText      string             `json:"raw_text"`
	TextLength   int                `json:"text_length"`
	FallbackUsed bool               `json:"fallback_used"`
	Warning      string             `json:"warning,omitempty"`
	Tokens       *common.TokenUsage `json:"tokens,omitempty"`
}

// newOCRResult fills the derived fields of an OCRResult
func newOCRResult(provider, text string, tokens *common.TokenUsage) *OCRResult {
	return &OCRResult{
		Provider:   provider,
		RawText:    text,
		TextLength: len([]rune(text)),
		Tokens:     tokens,
	}
}
