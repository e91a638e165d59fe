package planner_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kestrel-run/pilot/api/schemas"
	"github.com/kestrel-run/pilot/internal/planner"
)

type fakeLLM struct {
	text string
	err  error
}

func (f *fakeLLM) Generate(ctx context.Context, req schemas.GenerationRequest) (schemas.GenerationResponse, error) {
	if f.err != nil {
		return schemas.GenerationResponse{}, f.err
	}
	return schemas.GenerationResponse{Text: f.text}, nil
}

func testLogger() *zap.Logger { return zap.NewNop() }

func TestPlanUsesLLMPlanWhenValid(t *testing.T) {
	t.Parallel()
	llm := &fakeLLM{text: `{"strategy":"Simple Action","steps":[{"id":"1","title":"Click login","needsAuth":false}]}`}
	p := planner.New(llm, testLogger())

	plan, err := p.Plan(context.Background(), "log me in")
	require.NoError(t, err)
	assert.Equal(t, schemas.StrategySimpleAction, plan.Strategy)
	require.Len(t, plan.Steps, 1)
	assert.Equal(t, "Click login", plan.Steps[0].Title)
}

func TestPlanFallsBackToHeuristicOnLLMFailure(t *testing.T) {
	t.Parallel()
	llm := &fakeLLM{err: errors.New("unreachable")}
	p := planner.New(llm, testLogger())

	plan, err := p.Plan(context.Background(), "search for shoes, then click the first result")
	require.NoError(t, err)
	assert.Contains(t, string(plan.Strategy), "System Offline")
	assert.True(t, len(plan.Steps) >= 2)
}

func TestPlanFallsBackToHeuristicOnUnparsableResponse(t *testing.T) {
	t.Parallel()
	llm := &fakeLLM{text: "not json"}
	p := planner.New(llm, testLogger())

	plan, err := p.Plan(context.Background(), "do the thing")
	require.NoError(t, err)
	assert.Contains(t, string(plan.Strategy), "System Offline")
}

func TestPlanNilLLMUsesHeuristic(t *testing.T) {
	t.Parallel()
	p := planner.New(nil, testLogger())

	plan, err := p.Plan(context.Background(), "go to the homepage. log in with my password. submit the form")
	require.NoError(t, err)
	require.Len(t, plan.Steps, 3)
	assert.True(t, plan.Steps[1].NeedsAuth)
}

func TestHeuristicPlanCapsAtTenSteps(t *testing.T) {
	t.Parallel()
	p := planner.New(nil, testLogger())

	task := ""
	for i := 0; i < 15; i++ {
		task += "do step. "
	}
	plan, err := p.Plan(context.Background(), task)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(plan.Steps), 10)
}

func TestHeuristicPlanSingleStepWhenUnsplittable(t *testing.T) {
	t.Parallel()
	p := planner.New(nil, testLogger())

	plan, err := p.Plan(context.Background(), "  ")
	require.NoError(t, err)
	require.Len(t, plan.Steps, 1)
	assert.Equal(t, "step-1", plan.Steps[0].ID)
}
