package ai

import (
	"fmt"

	"github.com/gitclixlogix/contentry/internal/ai/anthropic"
	"github.com/gitclixlogix/contentry/internal/ai/mock"
	"github.com/gitclixlogix/contentry/internal/ai/openai"
	"github.com/gitclixlogix/contentry/internal/config"
	"github.com/gitclixlogix/contentry/pkg/models"
)

// NewProvider constructs the appropriate AI provider based on config.
// Called once at server startup.
func NewProvider(cfg config.AIConfig) (models.AIProvider, error) {
	switch cfg.Provider {
	case "openai":
		return openai.NewProvider(cfg.OpenAI), nil
	case "anthropic":
		return anthropic.NewProvider(cfg.Anthropic), nil
	case "mock":
		return mock.NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q: must be one of openai, anthropic, mock", cfg.Provider)
	}
}
