// anthropic.go - Claude provider on the Anthropic Messages API

package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/bosocmputer/ocr_answer_compare/configs"
	"github.com/bosocmputer/ocr_answer_compare/internal/common"
)

// AnthropicProvider answers through Claude
type AnthropicProvider struct {
	cfg    configs.ModelConfig
	client anthropic.Client
}

// NewAnthropicProvider creates a Claude provider for cfg.
// Retries are disabled; a failed call is reported as a failed answer.
func NewAnthropicProvider(cfg configs.ModelConfig) *AnthropicProvider {
	opts := []anthropicoption.RequestOption{
		anthropicoption.WithAPIKey(cfg.APIKey),
		anthropicoption.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropicoption.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")+"/"))
	}
	return &AnthropicProvider{
		cfg:    cfg,
		client: anthropic.NewClient(opts...),
	}
}

func (p *AnthropicProvider) Name() string  { return p.cfg.Name }
func (p *AnthropicProvider) Model() string { return p.cfg.Model }

// Answer sends the extracted text as a single user message
func (p *AnthropicProvider) Answer(ctx context.Context, text string) (string, *common.TokenUsage, error) {
	msg, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.cfg.Model),
		MaxTokens: int64(p.cfg.MaxTokens),
		System: []anthropic.TextBlockParam{
			{Text: systemPromptFor(p.cfg)},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
		Temperature: anthropic.Float(p.cfg.Temperature),
	})
	if err != nil {
		return "", nil, CategorizeError(p.cfg.Name, err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	answer := strings.TrimSpace(sb.String())
	if answer == "" {
		return "", nil, fmt.Errorf("%s returned an empty response", p.cfg.Name)
	}

	tokens := common.CalculateTokenCost(int(msg.Usage.InputTokens), int(msg.Usage.OutputTokens))
	return answer, &tokens, nil
}
