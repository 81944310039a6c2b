// ocrspace.go - OCR.Space client for plain image OCR

package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/bosocmputer/ocr_answer_compare/internal/common"
)

// OCRSpaceProvider implements OCRProvider using the OCR.Space parse endpoint
type OCRSpaceProvider struct {
	apiKey   string
	endpoint string
	language string
	client   *http.Client
}

// NewOCRSpaceProvider creates a new OCR.Space provider
func NewOCRSpaceProvider(apiKey, endpoint, language string) *OCRSpaceProvider {
	return &OCRSpaceProvider{
		apiKey:   apiKey,
		endpoint: endpoint,
		language: language,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// GetProviderName returns "ocrspace"
func (o *OCRSpaceProvider) GetProviderName() string {
	return "ocrspace"
}

type ocrSpaceParsedResult struct {
	ParsedText        string `json:"ParsedText"`
	FileParseExitCode int    `json:"FileParseExitCode"`
	ErrorMessage      string `json:"ErrorMessage"`
}

type ocrSpaceResponse struct {
	ParsedResults         []ocrSpaceParsedResult `json:"ParsedResults"`
	OCRExitCode           int                    `json:"OCRExitCode"`
	IsErroredOnProcessing bool                   `json:"IsErroredOnProcessing"`
	ErrorMessage          json.RawMessage        `json:"ErrorMessage"`
}

// errorText flattens ErrorMessage, which OCR.Space sends as a string or a list of strings
func (r *ocrSpaceResponse) errorText() string {
	if len(r.ErrorMessage) == 0 {
		return "unknown error"
	}
	var single string
	if err := json.Unmarshal(r.ErrorMessage, &single); err == nil {
		return single
	}
	var list []string
	if err := json.Unmarshal(r.ErrorMessage, &list); err == nil && len(list) > 0 {
		return list[0]
	}
	return string(r.ErrorMessage)
}

// ExtractText uploads the image and returns the first parsed result
func (o *OCRSpaceProvider) ExtractText(ctx context.Context, image []byte, mimeType string, reqCtx *common.RequestContext) (*OCRResult, error) {
	reqCtx.LogInfo("🟢 Using OCR.Space provider (language: %s)", o.language)

	reqCtx.StartSubStep("build_multipart_form")
	body, contentType, err := o.buildForm(image, mimeType)
	reqCtx.EndSubStep(fmt.Sprintf("%.2f KB", float64(len(image))/1024.0))
	if err != nil {
		return nil, fmt.Errorf("failed to build OCR.Space request: %w", err)
	}

	reqCtx.StartSubStep("call_ocrspace_api")
	response, err := o.callAPI(ctx, body, contentType)
	if err != nil {
		reqCtx.EndSubStep("❌ FAILED")
		return nil, CategorizeError(o.GetProviderName(), err)
	}
	reqCtx.EndSubStep("")

	if response.IsErroredOnProcessing {
		return nil, &ProviderError{
			Provider:      o.GetProviderName(),
			OriginalError: fmt.Errorf("OCR.Space error: %s", response.errorText()),
			Category:      CategoryBadRequest,
			Message:       response.errorText(),
		}
	}

	text := ""
	if len(response.ParsedResults) > 0 {
		text = response.ParsedResults[0].ParsedText
	}
	if text == "" {
		reqCtx.LogWarning("No text detected in the image (OCR.Space)")
	} else {
		reqCtx.LogInfo("✅ Extracted text length: %d characters", len([]rune(text)))
	}

	return newOCRResult(o.GetProviderName(), text, nil), nil
}

func (o *OCRSpaceProvider) buildForm(image []byte, mimeType string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writer.WriteField("apikey", o.apiKey); err != nil {
		return nil, "", err
	}
	if err := writer.WriteField("language", o.language); err != nil {
		return nil, "", err
	}

	part, err := writer.CreateFormFile("file", "image"+extensionForMIME(mimeType))
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body, writer.FormDataContentType(), nil
}

func (o *OCRSpaceProvider) callAPI(ctx context.Context, body io.Reader, contentType string) (*ocrSpaceResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var response ocrSpaceResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, fmt.Errorf("failed to parse OCR.Space response: %w", err)
	}
	return &response, nil
}

// extensionForMIME picks the file extension OCR.Space uses to detect the image type
func extensionForMIME(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/bmp":
		return ".bmp"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
