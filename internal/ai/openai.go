// openai.go - OpenAI and OpenAI-compatible chat completion provider

package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/bosocmputer/ocr_answer_compare/configs"
	"github.com/bosocmputer/ocr_answer_compare/internal/common"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider answers through the chat completions API.
// Groq, Perplexity and DeepSeek speak the same protocol behind their own base URL.
type OpenAIProvider struct {
	cfg    configs.ModelConfig
	client *openai.Client
}

// NewOpenAIProvider creates a chat completion provider for cfg
func NewOpenAIProvider(cfg configs.ModelConfig) *OpenAIProvider {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	return &OpenAIProvider{
		cfg:    cfg,
		client: openai.NewClientWithConfig(clientConfig),
	}
}

func (p *OpenAIProvider) Name() string  { return p.cfg.Name }
func (p *OpenAIProvider) Model() string { return p.cfg.Model }

// Answer sends the system prompt and the extracted text as a two message chat
func (p *OpenAIProvider) Answer(ctx context.Context, text string) (string, *common.TokenUsage, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPromptFor(p.cfg)},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: float32(p.cfg.Temperature),
	})
	if err != nil {
		return "", nil, CategorizeError(p.cfg.Name, err)
	}

	if len(resp.Choices) == 0 {
		return "", nil, fmt.Errorf("%s returned an empty response", p.cfg.Name)
	}

	tokens := common.CalculateTokenCost(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	return strings.TrimSpace(resp.Choices[0].Message.Content), &tokens, nil
}
