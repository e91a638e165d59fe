package schemas

import "fmt"

// Strategy classifies how the Planner expects a task to unfold.
type Strategy string

const (
	StrategySimpleAction   Strategy = "Simple Action"
	StrategyDeepResearch   Strategy = "Deep Research"
	StrategyTransactional  Strategy = "Transactional"
	// StrategySystemOffline is the heuristic fallback's strategy label,
	// used when no LLM is configured or the LLM plan is unusable; the
	// reason is appended at plan time.
	StrategySystemOffline Strategy = "System Offline"
)

// PlanStep is one atomic, ordered unit of a Plan.
type PlanStep struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	NeedsAuth   bool   `json:"needsAuth"`
}

// Plan is the Planner's decomposition of a free-form task.
type Plan struct {
	Strategy Strategy   `json:"strategy"`
	Steps    []PlanStep `json:"steps"`
}

const (
	minPlanSteps = 1
	maxPlanSteps = 10
)

// Validate enforces the 1..10 step-count bound from §3.
func (p Plan) Validate() error {
	if len(p.Steps) < minPlanSteps || len(p.Steps) > maxPlanSteps {
		return fmt.Errorf("%w: plan must have between %d and %d steps, got %d", ErrSchemaInvalid, minPlanSteps, maxPlanSteps, len(p.Steps))
	}
	for i, s := range p.Steps {
		if s.Title == "" {
			return fmt.Errorf("%w: plan step %d missing title", ErrSchemaInvalid, i)
		}
	}
	return nil
}
