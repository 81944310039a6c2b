// gemini.go - Gemini AI client for vision OCR and question answering

package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/bosocmputer/ocr_answer_compare/configs"
	"github.com/bosocmputer/ocr_answer_compare/internal/common"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini's max output limit for OCR responses
const geminiOCRMaxOutputTokens = 8192

// GeminiOCRProvider implements OCRProvider with a Gemini vision model
type GeminiOCRProvider struct {
	apiKey    string
	modelName string
}

// NewGeminiOCRProvider creates a new Gemini OCR provider
func NewGeminiOCRProvider(apiKey, modelName string) *GeminiOCRProvider {
	return &GeminiOCRProvider{apiKey: apiKey, modelName: modelName}
}

// GetProviderName returns "gemini"
func (g *GeminiOCRProvider) GetProviderName() string {
	return "gemini"
}

// ExtractText asks Gemini to transcribe every visible line of the image
func (g *GeminiOCRProvider) ExtractText(ctx context.Context, image []byte, mimeType string, reqCtx *common.RequestContext) (*OCRResult, error) {
	reqCtx.LogInfo("🔵 Using Gemini OCR provider (model: %s)", g.modelName)

	reqCtx.StartSubStep("init_gemini_client")
	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		reqCtx.EndSubStep("❌ FAILED")
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(g.modelName)
	model.SetMaxOutputTokens(geminiOCRMaxOutputTokens)
	reqCtx.EndSubStep("")

	reqCtx.StartSubStep("call_gemini_api")
	resp, err := model.GenerateContent(ctx,
		genai.Text(GetOCRPrompt()),
		genai.Blob{
			MIMEType: mimeType,
			Data:     image,
		},
	)
	if err != nil {
		reqCtx.EndSubStep("❌ FAILED")
		return nil, CategorizeError(g.GetProviderName(), err)
	}

	text, err := firstCandidateText(resp)
	if err != nil {
		reqCtx.EndSubStep("❌ EMPTY")
		return nil, err
	}
	reqCtx.EndSubStep(fmt.Sprintf("%d chars", len([]rune(text))))

	result := newOCRResult(g.GetProviderName(), text, geminiUsage(resp))
	if resp.Candidates[0].FinishReason == genai.FinishReasonMaxTokens {
		result.Warning = "OCR response was truncated due to token limit. Text may be incomplete."
		reqCtx.LogWarning("⚠️  OCR response was truncated (FinishReason: MAX_TOKENS)")
	}

	// Gemini answers with a sentinel when the image holds no text
	if strings.TrimSpace(text) == noTextSentinel {
		result.RawText = ""
		result.TextLength = 0
	}
	return result, nil
}

// GeminiAnswerProvider implements AnswerProvider with a Gemini text model
type GeminiAnswerProvider struct {
	cfg configs.ModelConfig

	// extra client options appended after the API key
	clientOptions []option.ClientOption
}

// NewGeminiAnswerProvider creates an answer provider from a model configuration
func NewGeminiAnswerProvider(cfg configs.ModelConfig) *GeminiAnswerProvider {
	return &GeminiAnswerProvider{cfg: cfg}
}

func (g *GeminiAnswerProvider) Name() string  { return g.cfg.Name }
func (g *GeminiAnswerProvider) Model() string { return g.cfg.Model }

// Answer sends the extracted text under the system instruction
func (g *GeminiAnswerProvider) Answer(ctx context.Context, text string) (string, *common.TokenUsage, error) {
	opts := append([]option.ClientOption{option.WithAPIKey(g.cfg.APIKey)}, g.clientOptions...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(g.cfg.Model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPromptFor(g.cfg))},
	}
	model.SetTemperature(float32(g.cfg.Temperature))
	model.SetMaxOutputTokens(int32(g.cfg.MaxTokens))

	resp, err := model.GenerateContent(ctx, genai.Text(text))
	if err != nil {
		return "", nil, CategorizeError(g.cfg.Name, err)
	}

	answer, err := firstCandidateText(resp)
	if err != nil {
		return "", nil, err
	}
	return strings.TrimSpace(answer), geminiUsage(resp), nil
}

// firstCandidateText concatenates the text parts of the first candidate
func firstCandidateText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil {
			return "", fmt.Errorf("no candidates from Gemini API (BlockReason: %v)", resp.PromptFeedback.BlockReason)
		}
		return "", fmt.Errorf("no candidates from Gemini API")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content parts from Gemini API (FinishReason: %v)", candidate.FinishReason)
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String(), nil
}

func geminiUsage(resp *genai.GenerateContentResponse) *common.TokenUsage {
	if resp.UsageMetadata == nil {
		return nil
	}
	tokens := common.CalculateTokenCost(
		int(resp.UsageMetadata.PromptTokenCount),
		int(resp.UsageMetadata.CandidatesTokenCount),
	)
	return &tokens
}
