// Package models contains shared data models used across the Contentry codebase.
package models

import (
	"context"
)

// AIProvider is the interface every moderation backend must implement.
// Callers inject this interface rather than talking to a provider directly.
type AIProvider interface {
	// Moderate scores a piece of content against the moderation categories.
	Moderate(ctx context.Context, req ModerationRequest) (ModerationResult, error)
	// Name returns the provider identifier (e.g., "openai", "anthropic").
	Name() string
}

// ModerationRequest is the input to an AI moderation operation.
type ModerationRequest struct {
	Content         string
	Language        string
	PlatformContext string   // target platform, e.g. "twitter", "linkedin"
	Profile         *Profile // optional moderation policy; nil means defaults
}
