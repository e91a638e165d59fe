package schemas

import "context"

// ModelTier selects between the router's fast and powerful tiers, per
// the two-tier routing the oracle and planner both rely on.
type ModelTier string

const (
	TierFast     ModelTier = "fast"
	TierPowerful ModelTier = "powerful"
)

// GenerationOptions tunes a single generation call.
type GenerationOptions struct {
	Temperature     float32
	MaxOutputTokens int32
	JSONMode        bool
}

// GenerationRequest is the tier-agnostic input to an LLMClient.
type GenerationRequest struct {
	Tier         ModelTier
	SystemPrompt string
	UserPrompt   string
	Images       [][]byte
	Options      GenerationOptions
}

// GenerationResponse is the tier-agnostic output of an LLMClient.
type GenerationResponse struct {
	Text         string
	FinishReason string
}

// LLMClient abstracts a provider's generation call so the oracle and
// planner never depend on a concrete SDK type.
type LLMClient interface {
	Generate(ctx context.Context, req GenerationRequest) (GenerationResponse, error)
}
