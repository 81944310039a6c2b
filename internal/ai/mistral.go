// mistral.go - Mistral AI client for OCR processing

package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bosocmputer/ocr_answer_compare/internal/common"
)

const mistralOCREndpoint = "https://api.mistral.ai/v1/ocr"

// Mistral OCR is billed per page: $2 per 1,000 pages
const mistralCostPerPage = 0.002

// MistralProvider implements OCRProvider interface for Mistral AI
type MistralProvider struct {
	apiKey    string
	modelName string
	endpoint  string
	client    *http.Client
}

// NewMistralProvider creates a new Mistral AI provider
func NewMistralProvider(apiKey, modelName string) *MistralProvider {
	return &MistralProvider{
		apiKey:    apiKey,
		modelName: modelName,
		endpoint:  mistralOCREndpoint,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// GetProviderName returns "mistral"
func (m *MistralProvider) GetProviderName() string {
	return "mistral"
}

// Mistral OCR API request/response structures
type mistralOCRDocument struct {
	Type     string `json:"type"`      // "image_url"
	ImageURL string `json:"image_url"` // base64 data URL
}

type mistralOCRRequest struct {
	Model    string             `json:"model"`
	Document mistralOCRDocument `json:"document"`
}

type mistralOCRPage struct {
	Index    int    `json:"index"`
	Markdown string `json:"markdown"`
}

type mistralOCRUsageInfo struct {
	PagesProcessed int `json:"pages_processed"`
	DocSizeBytes   int `json:"doc_size_bytes,omitempty"`
}

type mistralOCRResponse struct {
	Model     string              `json:"model"`
	Pages     []mistralOCRPage    `json:"pages"`
	UsageInfo mistralOCRUsageInfo `json:"usage_info"`
}

type mistralErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// ExtractText sends the image as a base64 data URL and joins the markdown of every page
func (m *MistralProvider) ExtractText(ctx context.Context, image []byte, mimeType string, reqCtx *common.RequestContext) (*OCRResult, error) {
	reqCtx.LogInfo("🔷 Using Mistral AI provider (model: %s)", m.modelName)
	reqCtx.LogInfo("📊 Image size: %.2f KB, MIME type: %s", float64(len(image))/1024.0, mimeType)

	imageURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))
	request := mistralOCRRequest{
		Model: m.modelName,
		Document: mistralOCRDocument{
			Type:     "image_url",
			ImageURL: imageURL,
		},
	}

	reqCtx.StartSubStep("mistral_ocr_api_call")
	response, err := m.callMistralOCRAPI(ctx, request)
	if err != nil {
		reqCtx.EndSubStep("❌ FAILED")
		return nil, CategorizeError(m.GetProviderName(), err)
	}
	reqCtx.EndSubStep(fmt.Sprintf("%d page(s)", len(response.Pages)))

	// Combine all pages' markdown content
	var extractedText strings.Builder
	for i, page := range response.Pages {
		if i > 0 {
			extractedText.WriteString("\n\n")
		}
		extractedText.WriteString(page.Markdown)
	}
	finalText := extractedText.String()
	reqCtx.LogInfo("✅ Extracted text from %d page(s), length: %d characters", len(response.Pages), len([]rune(finalText)))

	pagesProcessed := response.UsageInfo.PagesProcessed
	tokenUsage := &common.TokenUsage{
		InputTokens: pagesProcessed, // pages are reported as "tokens"
		TotalTokens: pagesProcessed,
		CostUSD:     float64(pagesProcessed) * mistralCostPerPage,
	}
	reqCtx.LogInfo("💰 Cost: %d page(s) × $%.3f = $%.6f USD", pagesProcessed, mistralCostPerPage, tokenUsage.CostUSD)

	return newOCRResult(m.GetProviderName(), finalText, tokenUsage), nil
}

// callMistralOCRAPI makes HTTP request to Mistral OCR API
func (m *MistralProvider) callMistralOCRAPI(ctx context.Context, request mistralOCRRequest) (*mistralOCRResponse, error) {
	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", m.apiKey))

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp mistralErrorResponse
		if err := json.Unmarshal(body, &errorResp); err == nil && errorResp.Error.Message != "" {
			return nil, &HTTPStatusError{StatusCode: resp.StatusCode, Body: errorResp.Error.Message}
		}
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var response mistralOCRResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse OCR response: %w", err)
	}

	return &response, nil
}
