// config.go - Configuration loaded from environment variables

package configs

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Provider types understood by the answer provider factory
const (
	PROVIDER_OPENAI            = "openai"
	PROVIDER_OPENAI_COMPATIBLE = "openai-compatible"
	PROVIDER_GEMINI            = "gemini"
	PROVIDER_ANTHROPIC         = "anthropic"
)

// DefaultSystemPrompt asks the model for a short question/option/answer block
const DefaultSystemPrompt = "You are a helpful assistant. " +
	"Given the following text extracted from an image, identify the main question. " +
	"If the question has options (A, B, C, D, etc.), select the correct option and provide the answer in this format:\n" +
	"Question: <the question>\n" +
	"Option: <the selected option>\n" +
	"Answer: <the answer>\n" +
	"If there are no options, just provide:\n" +
	"Question: <the question>\n" +
	"Answer: <the answer>\n" +
	"Be as concise and direct as possible. Only output the question, option (if any), and answer in the specified format."

// ModelConfig describes one answer model that can take part in a comparison
type ModelConfig struct {
	Name         string  `json:"name"`
	Provider     string  `json:"provider"`
	Model        string  `json:"model"`
	APIKey       string  `json:"-"`
	BaseURL      string  `json:"base_url,omitempty"`
	MaxTokens    int     `json:"max_tokens"`
	Temperature  float64 `json:"temperature"`
	SystemPrompt string  `json:"-"`
	Enabled      bool    `json:"enabled"`
}

var (
	APP_NAME    = "AI Image Q&A Comparison"
	APP_VERSION = "1.0.0"
	DEBUG       bool

	// Server Configuration
	PORT            string
	ALLOWED_ORIGINS string

	// Upload validation
	SUPPORTED_IMAGE_FORMATS    []string
	MAX_IMAGE_SIZE_MB          int
	ENABLE_IMAGE_PREPROCESSING bool
	MAX_IMAGE_DIMENSION        int

	// OCR Configuration
	OCR_PROVIDER       string // "ocrspace", "gemini" or "mistral"
	OCR_SPACE_API_KEY  string
	OCR_SPACE_ENDPOINT string
	OCR_LANGUAGE       string
	OCR_MODEL_NAME     string // Gemini model used for vision OCR
	MISTRAL_API_KEY    string
	MISTRAL_MODEL_NAME string

	// Answer provider keys
	OPENAI_API_KEY     string
	GEMINI_API_KEY     string
	GROQ_API_KEY       string
	PERPLEXITY_API_KEY string
	DEEPSEEK_API_KEY   string
	ANTHROPIC_API_KEY  string

	// Answer model defaults
	DEFAULT_MAX_TOKENS  int
	DEFAULT_TEMPERATURE float64
	SYSTEM_PROMPT       string
	ENABLED_MODELS      []string // empty means every model with an API key

	// API_TIMEOUT is the per-call budget in seconds for OCR and answer calls
	API_TIMEOUT int
	// RATE_LIMIT_RPM is the per-provider request budget per minute (0 disables)
	RATE_LIMIT_RPM int

	// Analysis settings
	MIN_TEXT_LENGTH      int
	MAX_TEXT_LENGTH      int
	SIMILARITY_THRESHOLD float64
	QUALITY_THRESHOLD    float64
	MAX_KEYWORDS         int
	CACHE_ENABLED        bool

	// MongoDB Configuration (history is disabled when MONGO_URI is empty)
	MONGO_URI     string
	MONGO_DB_NAME string

	// Pricing used for token cost reporting (per 1M tokens in USD)
	INPUT_PRICE_PER_MILLION  float64
	OUTPUT_PRICE_PER_MILLION float64

	// Models holds every known answer model in display order
	Models []ModelConfig
)

// LoadConfig loads configuration from environment variables
func LoadConfig() {
	// Load .env file if exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	DEBUG = getEnvBool("DEBUG", false)

	PORT = getEnv("PORT", "8080")
	ALLOWED_ORIGINS = getEnv("ALLOWED_ORIGINS", "*")

	SUPPORTED_IMAGE_FORMATS = getEnvList("SUPPORTED_IMAGE_FORMATS", []string{"png", "jpg", "jpeg", "gif", "bmp"})
	MAX_IMAGE_SIZE_MB = getEnvInt("MAX_IMAGE_SIZE_MB", 10)
	ENABLE_IMAGE_PREPROCESSING = getEnvBool("ENABLE_IMAGE_PREPROCESSING", false)
	MAX_IMAGE_DIMENSION = getEnvInt("MAX_IMAGE_DIMENSION", 2000)

	OCR_PROVIDER = strings.ToLower(getEnv("OCR_PROVIDER", "ocrspace"))
	OCR_SPACE_API_KEY = getEnv("OCR_SPACE_API_KEY", "")
	OCR_SPACE_ENDPOINT = getEnv("OCR_SPACE_ENDPOINT", "https://api.ocr.space/parse/image")
	OCR_LANGUAGE = getEnv("OCR_LANGUAGE", "eng")
	OCR_MODEL_NAME = getEnv("OCR_MODEL_NAME", "gemini-2.5-flash")
	MISTRAL_API_KEY = getEnv("MISTRAL_API_KEY", "")
	MISTRAL_MODEL_NAME = getEnv("MISTRAL_MODEL_NAME", "mistral-ocr-latest")

	OPENAI_API_KEY = getEnv("OPENAI_API_KEY", "")
	// GOOGLE_GENAI_API_KEY is the historical name of the Gemini key
	GEMINI_API_KEY = getEnv("GEMINI_API_KEY", getEnv("GOOGLE_GENAI_API_KEY", ""))
	GROQ_API_KEY = getEnv("GROQ_API_KEY", "")
	PERPLEXITY_API_KEY = getEnv("PERPLEXITY_API_KEY", "")
	DEEPSEEK_API_KEY = getEnv("DEEPSEEK_API_KEY", "")
	ANTHROPIC_API_KEY = getEnv("ANTHROPIC_API_KEY", "")

	DEFAULT_MAX_TOKENS = getEnvInt("MAX_TOKENS", 1000)
	DEFAULT_TEMPERATURE = getEnvFloat("TEMPERATURE", 0.7)
	SYSTEM_PROMPT = getEnv("SYSTEM_PROMPT", DefaultSystemPrompt)
	ENABLED_MODELS = getEnvList("ENABLED_MODELS", nil)

	API_TIMEOUT = getEnvInt("API_TIMEOUT", 30)
	RATE_LIMIT_RPM = getEnvInt("RATE_LIMIT_RPM", 60)

	MIN_TEXT_LENGTH = getEnvInt("MIN_TEXT_LENGTH", 10)
	MAX_TEXT_LENGTH = getEnvInt("MAX_TEXT_LENGTH", 10000)
	SIMILARITY_THRESHOLD = getEnvFloat("SIMILARITY_THRESHOLD", 0.3)
	QUALITY_THRESHOLD = getEnvFloat("QUALITY_THRESHOLD", 0.5)
	MAX_KEYWORDS = getEnvInt("MAX_KEYWORDS", 10)
	CACHE_ENABLED = getEnvBool("CACHE_ENABLED", true)

	MONGO_URI = getEnv("MONGO_URI", "")
	MONGO_DB_NAME = getEnv("MONGO_DB_NAME", "ocr_answer_compare")

	INPUT_PRICE_PER_MILLION = getEnvFloat("INPUT_PRICE_PER_MILLION", 0.15)
	OUTPUT_PRICE_PER_MILLION = getEnvFloat("OUTPUT_PRICE_PER_MILLION", 0.60)

	Models = buildModels()

	enabled := EnabledModels()
	if len(enabled) == 0 {
		log.Println("⚠️  No answer model has a usable API key - comparisons will return no answers")
	}

	log.Printf("✓ Configuration loaded successfully (%d model(s) enabled, OCR: %s)", len(enabled), OCR_PROVIDER)
}

func buildModels() []ModelConfig {
	newModel := func(name, provider, envPrefix, defaultModel, apiKey, baseURL string) ModelConfig {
		return ModelConfig{
			Name:         name,
			Provider:     provider,
			Model:        getEnv(envPrefix+"_MODEL", defaultModel),
			APIKey:       apiKey,
			BaseURL:      getEnv(envPrefix+"_BASE_URL", baseURL),
			MaxTokens:    getEnvInt(envPrefix+"_MAX_TOKENS", DEFAULT_MAX_TOKENS),
			Temperature:  getEnvFloat(envPrefix+"_TEMPERATURE", DEFAULT_TEMPERATURE),
			SystemPrompt: SYSTEM_PROMPT,
		}
	}

	models := []ModelConfig{
		newModel("ChatGPT", PROVIDER_OPENAI, "OPENAI", "gpt-4o-mini", OPENAI_API_KEY, ""),
		newModel("Gemini", PROVIDER_GEMINI, "GEMINI", "gemini-2.5-flash", GEMINI_API_KEY, ""),
		newModel("Grok", PROVIDER_OPENAI_COMPATIBLE, "GROQ", "llama-3.3-70b-versatile", GROQ_API_KEY, "https://api.groq.com/openai/v1"),
		newModel("Perplexity", PROVIDER_OPENAI_COMPATIBLE, "PERPLEXITY", "sonar", PERPLEXITY_API_KEY, "https://api.perplexity.ai"),
		newModel("DeepSeek", PROVIDER_OPENAI_COMPATIBLE, "DEEPSEEK", "deepseek-chat", DEEPSEEK_API_KEY, "https://api.deepseek.com/v1"),
		newModel("Claude", PROVIDER_ANTHROPIC, "ANTHROPIC", "claude-3-5-haiku-latest", ANTHROPIC_API_KEY, ""),
	}

	for i := range models {
		models[i].Enabled = ValidateAPIKey(models[i].APIKey) && isListed(models[i].Name, ENABLED_MODELS)
	}
	return models
}

// isListed reports whether name is in the allow list; an empty list allows everything
func isListed(name string, allow []string) bool {
	if len(allow) == 0 {
		return true
	}
	for _, a := range allow {
		if strings.EqualFold(a, name) {
			return true
		}
	}
	return false
}

// ValidateAPIKey rejects empty keys and the placeholders shipped in example .env files
func ValidateAPIKey(apiKey string) bool {
	key := strings.ToLower(strings.TrimSpace(apiKey))
	if key == "" {
		return false
	}
	if strings.Contains(key, "your_") || strings.Contains(key, "here") {
		return false
	}
	return true
}

// ValidateConfig reports which service keys are usable
func ValidateConfig() map[string]bool {
	return map[string]bool{
		"ocr_space_api_key":  ValidateAPIKey(OCR_SPACE_API_KEY),
		"mistral_api_key":    ValidateAPIKey(MISTRAL_API_KEY),
		"openai_api_key":     ValidateAPIKey(OPENAI_API_KEY),
		"gemini_api_key":     ValidateAPIKey(GEMINI_API_KEY),
		"groq_api_key":       ValidateAPIKey(GROQ_API_KEY),
		"perplexity_api_key": ValidateAPIKey(PERPLEXITY_API_KEY),
		"deepseek_api_key":   ValidateAPIKey(DEEPSEEK_API_KEY),
		"anthropic_api_key":  ValidateAPIKey(ANTHROPIC_API_KEY),
	}
}

// EnabledModels returns the enabled models in display order
func EnabledModels() []ModelConfig {
	enabled := make([]ModelConfig, 0, len(Models))
	for _, m := range Models {
		if m.Enabled {
			enabled = append(enabled, m)
		}
	}
	return enabled
}

// MaxImageSizeBytes returns the upload limit in bytes
func MaxImageSizeBytes() int64 {
	return int64(MAX_IMAGE_SIZE_MB) * 1024 * 1024
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvList parses a comma separated list, dropping empty items
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, strings.ToLower(item))
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
