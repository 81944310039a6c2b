// factory.go - Provider factory for creating OCR and answer provider instances

package ai

import (
	"fmt"
	"log"

	"github.com/bosocmputer/ocr_answer_compare/configs"
)

// NewAnswerProvider creates the provider implementation for one configured model
func NewAnswerProvider(cfg configs.ModelConfig) (AnswerProvider, error) {
	switch cfg.Provider {
	case configs.PROVIDER_OPENAI, configs.PROVIDER_OPENAI_COMPATIBLE:
		return NewOpenAIProvider(cfg), nil
	case configs.PROVIDER_GEMINI:
		return NewGeminiAnswerProvider(cfg), nil
	case configs.PROVIDER_ANTHROPIC:
		return NewAnthropicProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported answer provider %q for model %s", cfg.Provider, cfg.Name)
	}
}

// CreateAnswerProviders builds a provider for every enabled model, in configured order
func CreateAnswerProviders(models []configs.ModelConfig) ([]AnswerProvider, error) {
	providers := make([]AnswerProvider, 0, len(models))
	for _, cfg := range models {
		if !cfg.Enabled {
			continue
		}
		provider, err := NewAnswerProvider(cfg)
		if err != nil {
			return nil, err
		}
		log.Printf("🤖 Answer model ready: %s (%s)", cfg.Name, cfg.Model)
		providers = append(providers, provider)
	}
	return providers, nil
}

// CreateOCRProvider creates an OCR provider by name
func CreateOCRProvider(provider string) (OCRProvider, error) {
	switch provider {
	case "ocrspace":
		log.Printf("🟢 Creating OCR.Space provider")
		return NewOCRSpaceProvider(configs.OCR_SPACE_API_KEY, configs.OCR_SPACE_ENDPOINT, configs.OCR_LANGUAGE), nil

	case "gemini":
		log.Printf("🔵 Creating Gemini OCR provider")
		return NewGeminiOCRProvider(configs.GEMINI_API_KEY, configs.OCR_MODEL_NAME), nil

	case "mistral":
		log.Printf("🔷 Creating Mistral OCR provider")
		return NewMistralProvider(configs.MISTRAL_API_KEY, configs.MISTRAL_MODEL_NAME), nil

	default:
		return nil, fmt.Errorf("unsupported OCR provider: %s (supported: ocrspace, gemini, mistral)", provider)
	}
}

// CreateOCRProviderWithFallback creates the configured OCR provider plus a fallback.
// The fallback is the first other provider with a usable API key, or nil.
func CreateOCRProviderWithFallback() (primary OCRProvider, fallback OCRProvider, err error) {
	primary, err = CreateOCRProvider(configs.OCR_PROVIDER)
	if err != nil {
		return nil, nil, err
	}

	candidates := []struct {
		name   string
		apiKey string
	}{
		{"ocrspace", configs.OCR_SPACE_API_KEY},
		{"gemini", configs.GEMINI_API_KEY},
		{"mistral", configs.MISTRAL_API_KEY},
	}

	for _, candidate := range candidates {
		if candidate.name == primary.GetProviderName() || !configs.ValidateAPIKey(candidate.apiKey) {
			continue
		}
		fallback, err = CreateOCRProvider(candidate.name)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("✅ Fallback provider configured: %s", candidate.name)
		break
	}

	return primary, fallback, nil
}
