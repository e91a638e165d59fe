package llmclient

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kestrel-run/pilot/api/schemas"
)

// Router implements schemas.LLMClient and dispatches to the fast or
// powerful tier client based on the request's Tier field.
type Router struct {
	logger  *zap.Logger
	clients map[schemas.ModelTier]schemas.LLMClient
}

// NewRouter builds a Router over the given per-tier clients.
func NewRouter(logger *zap.Logger, fast, powerful schemas.LLMClient) (*Router, error) {
	if fast == nil || powerful == nil {
		return nil, fmt.Errorf("both fast and powerful tier clients must be provided")
	}
	return &Router{
		logger: logger.Named("llm_router"),
		clients: map[schemas.ModelTier]schemas.LLMClient{
			schemas.TierFast:     fast,
			schemas.TierPowerful: powerful,
		},
	}, nil
}

// Generate implements schemas.LLMClient, routing by req.Tier (default:
// powerful, when unspecified).
func (r *Router) Generate(ctx context.Context, req schemas.GenerationRequest) (schemas.GenerationResponse, error) {
	tier := req.Tier
	if tier == "" {
		tier = schemas.TierPowerful
	}
	client, ok := r.clients[tier]
	if !ok {
		return schemas.GenerationResponse{}, fmt.Errorf("no LLM client configured for tier %q", tier)
	}
	r.logger.Debug("routing LLM request", zap.String("tier", string(tier)))
	return client.Generate(ctx, req)
}
