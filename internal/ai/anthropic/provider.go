package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gitclixlogix/contentry/internal/ai/verdict"
	"github.com/gitclixlogix/contentry/internal/config"
	"github.com/gitclixlogix/contentry/pkg/models"
)

const (
	apiVersion = "2023-06-01"
	maxTokens  = 1024
)

// Provider implements models.AIProvider using the Anthropic messages API.
type Provider struct {
	cfg    config.AnthropicConfig
	client *http.Client
}

func NewProvider(cfg config.AnthropicConfig) *Provider {
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: 2 * time.Minute},
	}
}

func (p *Provider) Name() string { return "anthropic" }

func (p *Provider) Moderate(ctx context.Context, req models.ModerationRequest) (models.ModerationResult, error) {
	body := messagesRequest{
		Model:     p.cfg.Model,
		MaxTokens: maxTokens,
		Messages: []message{
			{Role: "user", Content: verdict.BuildPrompt(req)},
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return models.ModerationResult{}, fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.cfg.BaseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return models.ModerationResult{}, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.cfg.APIKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return models.ModerationResult{}, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return models.ModerationResult{}, fmt.Errorf("%w: status %d", verdict.ErrProviderUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr messagesError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Message != "" {
			return models.ModerationResult{}, fmt.Errorf("anthropic request rejected: %s", apiErr.Error.Message)
		}
		return models.ModerationResult{}, fmt.Errorf("anthropic request rejected: status %d", resp.StatusCode)
	}

	var msgResp messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&msgResp); err != nil {
		return models.ModerationResult{}, fmt.Errorf("%w: %v", verdict.ErrInvalidResponse, err)
	}
	if len(msgResp.Content) == 0 {
		return models.ModerationResult{}, fmt.Errorf("%w: empty content", verdict.ErrInvalidResponse)
	}

	result, err := verdict.Parse(msgResp.Content[0].Text)
	if err != nil {
		return models.ModerationResult{}, err
	}
	result.Model = p.cfg.Model
	return result, nil
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", verdict.ErrInferenceTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", verdict.ErrInferenceTimeout, err)
	}

	return fmt.Errorf("%w: %v", verdict.ErrProviderUnavailable, err)
}

// --- Anthropic API types ---

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type messagesError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

var _ models.AIProvider = (*Provider)(nil)
