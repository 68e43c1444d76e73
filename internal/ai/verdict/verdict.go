// Package verdict defines the JSON contract between Contentry and its AI
// providers: the prompt that asks for a moderation verdict, the schema the
// model's reply must satisfy, and the parser that turns a reply into a
// models.ModerationResult.
package verdict

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gitclixlogix/contentry/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// Sentinel errors shared by all AI providers.
var (
	ErrProviderUnavailable = errors.New("ai provider unavailable")
	ErrInferenceTimeout    = errors.New("ai inference timeout")
	ErrInvalidResponse     = errors.New("ai provider returned invalid response")
)

// Schema constrains the JSON object a provider must return.
// Category scores are 0-100 risk (higher is riskier); the overall score is
// 0-100 safety (higher is safer).
const Schema = `{
  "type": "object",
  "required": ["score", "categories", "verdict", "summary"],
  "properties": {
    "score": {"type": "integer", "minimum": 0, "maximum": 100},
    "categories": {
      "type": "object",
      "required": ["toxicity", "hate", "harassment", "self_harm", "sexual", "violence", "spam"],
      "properties": {
        "toxicity":   {"type": "integer", "minimum": 0, "maximum": 100},
        "hate":       {"type": "integer", "minimum": 0, "maximum": 100},
        "harassment": {"type": "integer", "minimum": 0, "maximum": 100},
        "self_harm":  {"type": "integer", "minimum": 0, "maximum": 100},
        "sexual":     {"type": "integer", "minimum": 0, "maximum": 100},
        "violence":   {"type": "integer", "minimum": 0, "maximum": 100},
        "spam":       {"type": "integer", "minimum": 0, "maximum": 100}
      }
    },
    "verdict": {"type": "string", "enum": ["approve", "review", "reject"]},
    "summary": {"type": "string"},
    "suggestion": {"type": "string"}
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(Schema)

// BuildPrompt renders the moderation instruction for the given request.
func BuildPrompt(req models.ModerationRequest) string {
	var b strings.Builder
	b.WriteString("You are a content moderation engine for social media publishing.\n")
	b.WriteString("Score the content below and respond with a single JSON object, no prose:\n")
	b.WriteString(`{"score": <0-100 overall safety, higher is safer>, "categories": {"toxicity": <0-100>, "hate": <0-100>, "harassment": <0-100>, "self_harm": <0-100>, "sexual": <0-100>, "violence": <0-100>, "spam": <0-100>}, "verdict": "approve"|"review"|"reject", "summary": "<one sentence>", "suggestion": "<optional rewrite advice>"}`)
	b.WriteString("\n\n")

	if req.Language != "" {
		fmt.Fprintf(&b, "Content language: %s\n", req.Language)
	}
	if req.PlatformContext != "" {
		fmt.Fprintf(&b, "Target platform: %s\n", req.PlatformContext)
	}
	if p := req.Profile; p != nil {
		fmt.Fprintf(&b, "Moderation strictness: %d/100\n", p.Strictness)
		if len(p.BlockedCategories) > 0 {
			fmt.Fprintf(&b, "Reject outright if any of these categories score above 50: %s\n",
				strings.Join(p.BlockedCategories, ", "))
		}
	}

	b.WriteString("\nContent:\n")
	b.WriteString(req.Content)
	return b.String()
}

// Parse validates raw model output against Schema and converts it into a
// ModerationResult. Only the scoring fields are populated; identifiers and
// timestamps are the caller's responsibility.
func Parse(raw string) (models.ModerationResult, error) {
	raw = stripFences(raw)

	docLoader := gojsonschema.NewStringLoader(raw)
	validation, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return models.ModerationResult{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if !validation.Valid() {
		issues := make([]string, 0, len(validation.Errors()))
		for _, e := range validation.Errors() {
			issues = append(issues, e.String())
		}
		return models.ModerationResult{}, fmt.Errorf("%w: %s", ErrInvalidResponse, strings.Join(issues, "; "))
	}

	var payload struct {
		Score      int                   `json:"score"`
		Categories models.CategoryScores `json:"categories"`
		Verdict    string                `json:"verdict"`
		Summary    string                `json:"summary"`
		Suggestion string                `json:"suggestion"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return models.ModerationResult{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	result := models.ModerationResult{
		Score:      payload.Score,
		Categories: payload.Categories,
		Verdict:    payload.Verdict,
		Summary:    payload.Summary,
	}
	if payload.Suggestion != "" {
		result.Suggestion = &payload.Suggestion
	}
	return result, nil
}

// stripFences removes a markdown code fence if the model wrapped its JSON in one.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
