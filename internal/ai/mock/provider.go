package mock

import (
	"context"

	"github.com/gitclixlogix/contentry/pkg/models"
)

// MockProvider satisfies models.AIProvider for testing and local development.
type MockProvider struct {
	Name_        string
	ModerateFunc func(ctx context.Context, req models.ModerationRequest) (models.ModerationResult, error)
}

func (m *MockProvider) Name() string { return m.Name_ }

func (m *MockProvider) Moderate(ctx context.Context, req models.ModerationRequest) (models.ModerationResult, error) {
	if m.ModerateFunc != nil {
		return m.ModerateFunc(ctx, req)
	}
	return models.ModerationResult{}, nil
}

// NewMockProvider returns a MockProvider with sensible default responses.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Name_: "mock",
		ModerateFunc: func(_ context.Context, req models.ModerationRequest) (models.ModerationResult, error) {
			suggestion := "No changes needed."
			return models.ModerationResult{
				Model: "mock-v1",
				Score: 92,
				Categories: models.CategoryScores{
					Toxicity: 3,
					Spam:     8,
				},
				Verdict:    models.VerdictApprove,
				Summary:    "Simulated verdict from mock provider",
				Suggestion: &suggestion,
			}, nil
		},
	}
}

// NewFailingProvider returns a MockProvider that always returns the given error.
func NewFailingProvider(err error) *MockProvider {
	return &MockProvider{
		Name_: "mock-failing",
		ModerateFunc: func(_ context.Context, _ models.ModerationRequest) (models.ModerationResult, error) {
			return models.ModerationResult{}, err
		},
	}
}

// NewBlockingProvider returns a MockProvider that blocks until its context is
// cancelled, then surfaces the context error.
func NewBlockingProvider() *MockProvider {
	return &MockProvider{
		Name_: "mock-blocking",
		ModerateFunc: func(ctx context.Context, _ models.ModerationRequest) (models.ModerationResult, error) {
			<-ctx.Done()
			return models.ModerationResult{}, ctx.Err()
		},
	}
}

// Compile-time check that MockProvider implements AIProvider.
var _ models.AIProvider = (*MockProvider)(nil)
