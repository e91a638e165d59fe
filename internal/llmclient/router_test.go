package llmclient_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kestrel-run/pilot/api/schemas"
	"github.com/kestrel-run/pilot/internal/llmclient"
)

type fakeClient struct {
	name string
}

func (f *fakeClient) Generate(ctx context.Context, req schemas.GenerationRequest) (schemas.GenerationResponse, error) {
	return schemas.GenerationResponse{Text: f.name}, nil
}

func TestNewRouterRejectsNilClients(t *testing.T) {
	t.Parallel()
	_, err := llmclient.NewRouter(zap.NewNop(), nil, &fakeClient{name: "powerful"})
	assert.Error(t, err)

	_, err = llmclient.NewRouter(zap.NewNop(), &fakeClient{name: "fast"}, nil)
	assert.Error(t, err)
}

func TestRouterDispatchesByTier(t *testing.T) {
	t.Parallel()
	fast := &fakeClient{name: "fast"}
	powerful := &fakeClient{name: "powerful"}
	router, err := llmclient.NewRouter(zap.NewNop(), fast, powerful)
	require.NoError(t, err)

	resp, err := router.Generate(context.Background(), schemas.GenerationRequest{Tier: schemas.TierFast})
	require.NoError(t, err)
	assert.Equal(t, "fast", resp.Text)

	resp, err = router.Generate(context.Background(), schemas.GenerationRequest{Tier: schemas.TierPowerful})
	require.NoError(t, err)
	assert.Equal(t, "powerful", resp.Text)
}

func TestRouterDefaultsToPowerfulTierWhenUnset(t *testing.T) {
	t.Parallel()
	fast := &fakeClient{name: "fast"}
	powerful := &fakeClient{name: "powerful"}
	router, err := llmclient.NewRouter(zap.NewNop(), fast, powerful)
	require.NoError(t, err)

	resp, err := router.Generate(context.Background(), schemas.GenerationRequest{})
	require.NoError(t, err)
	assert.Equal(t, "powerful", resp.Text)
}
