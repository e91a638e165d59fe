// Package llmclient wires pilot's schemas.LLMClient interface to the
// official Gemini SDK, with exponential-backoff retry of every failed call
// except a cancelled context or an empty candidate list; errors are not
// classified as transient or permanent — replacing the teacher's hand-rolled Gemini REST client with
// the SDK the teacher already depends on.
package llmclient

import (
	"context"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/kestrel-run/pilot/api/schemas"
)

// GenAIClient is one model binding (one tier) backed by google.golang.org/genai.
type GenAIClient struct {
	client     *genai.Client
	model      string
	logger     *zap.Logger
	maxRetries int
}

// NewGenAIClient constructs a client bound to a single model name.
func NewGenAIClient(ctx context.Context, apiKey, model string, maxRetries int, logger *zap.Logger) (*GenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GenAIClient{client: client, model: model, logger: logger.Named("genai_client"), maxRetries: maxRetries}, nil
}

// Generate implements schemas.LLMClient.
func (c *GenAIClient) Generate(ctx context.Context, req schemas.GenerationRequest) (schemas.GenerationResponse, error) {
	genConfig := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(req.Options.Temperature),
		MaxOutputTokens: req.Options.MaxOutputTokens,
	}
	if req.SystemPrompt != "" {
		genConfig.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	if req.Options.JSONMode {
		genConfig.ResponseMIMEType = "application/json"
	}

	parts := []*genai.Part{genai.NewPartFromText(req.UserPrompt)}
	for _, img := range req.Images {
		parts = append(parts, genai.NewPartFromBytes(img, "image/png"))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	var result schemas.GenerationResponse

	b := backoff.NewExponentialBackOff()
	operation := func() error {
		resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, genConfig)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("%w: %v", schemas.ErrLLMUnavailable, err)
		}
		if len(resp.Candidates) == 0 {
			return backoff.Permanent(fmt.Errorf("%w: no candidates returned", schemas.ErrLLMUnavailable))
		}
		result = schemas.GenerationResponse{
			Text:         resp.Text(),
			FinishReason: string(resp.Candidates[0].FinishReason),
		}
		return nil
	}

	retryPolicy := backoff.WithMaxRetries(b, uint64(maxInt(c.maxRetries, 0)))
	if err := backoff.Retry(operation, backoff.WithContext(retryPolicy, ctx)); err != nil {
		c.logger.Warn("genai generate failed after retries", zap.Error(err), zap.String("model", c.model))
		return schemas.GenerationResponse{}, err
	}
	return result, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
