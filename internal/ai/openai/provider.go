package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/gitclixlogix/contentry/internal/ai/verdict"
	"github.com/gitclixlogix/contentry/internal/config"
	"github.com/gitclixlogix/contentry/pkg/models"
	goopenai "github.com/sashabaranov/go-openai"
)

// Provider implements models.AIProvider using the OpenAI chat completions API.
type Provider struct {
	client *goopenai.Client
	model  string
}

func NewProvider(cfg config.OpenAIConfig) *Provider {
	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Provider{
		client: goopenai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
	}
}

func (p *Provider) Name() string { return "openai" }

func (p *Provider) Moderate(ctx context.Context, req models.ModerationRequest) (models.ModerationResult, error) {
	resp, err := p.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       p.model,
		Temperature: 0,
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: verdict.BuildPrompt(req)},
		},
	})
	if err != nil {
		return models.ModerationResult{}, classifyError(err)
	}

	if len(resp.Choices) == 0 {
		return models.ModerationResult{}, fmt.Errorf("%w: no choices returned", verdict.ErrInvalidResponse)
	}

	result, err := verdict.Parse(resp.Choices[0].Message.Content)
	if err != nil {
		return models.ModerationResult{}, err
	}
	result.Model = p.model
	return result, nil
}

// classifyError maps go-openai errors to the shared provider sentinels.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", verdict.ErrInferenceTimeout, err)
	}

	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500 {
			return fmt.Errorf("%w: %v", verdict.ErrProviderUnavailable, err)
		}
		return fmt.Errorf("openai request rejected: %w", err)
	}

	return fmt.Errorf("%w: %v", verdict.ErrProviderUnavailable, err)
}

var _ models.AIProvider = (*Provider)(nil)
