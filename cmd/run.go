package cmd

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kestrel-run/pilot/api/schemas"
	"github.com/kestrel-run/pilot/internal/browser"
	"github.com/kestrel-run/pilot/internal/catalogue"
	"github.com/kestrel-run/pilot/internal/config"
	"github.com/kestrel-run/pilot/internal/controller"
	"github.com/kestrel-run/pilot/internal/llmclient"
	"github.com/kestrel-run/pilot/internal/memory"
	"github.com/kestrel-run/pilot/internal/observability"
	"github.com/kestrel-run/pilot/internal/oracle"
	"github.com/kestrel-run/pilot/internal/planner"
)

func newRunCmd() *cobra.Command {
	var startURL string

	runCmd := &cobra.Command{
		Use:   "run [task]",
		Short: "Plan and drive a browser session for a natural-language task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTask(cmd.Context(), args[0], startURL)
		},
	}
	runCmd.Flags().StringVar(&startURL, "start-url", "", "URL to navigate to before planning begins")
	return runCmd
}

func runTask(ctx context.Context, task, startURL string) error {
	logger := observability.GetLogger()
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	llmRouter, err := buildLLMRouter(ctx, cfg.LLM, logger)
	if err != nil {
		return err
	}
	var llm schemas.LLMClient
	if llmRouter != nil {
		llm = llmRouter
	}

	history, err := buildHistoryStore(ctx, cfg.Memory)
	if err != nil {
		return err
	}

	manager := browser.NewManager(cfg.Browser, logger)
	defer manager.Shutdown(ctx)

	persona := schemas.DefaultPersona()
	session, err := manager.NewSession(ctx, persona)
	if err != nil {
		return fmt.Errorf("create browser session: %w", err)
	}

	if startURL != "" {
		if err := session.Navigate(ctx, startURL); err != nil {
			return fmt.Errorf("navigate to start url: %w", err)
		}
	}

	pl := planner.New(llm, logger)
	plan, err := pl.Plan(ctx, task)
	if err != nil {
		return fmt.Errorf("plan task: %w", err)
	}
	logger.Info("plan produced", zap.String("strategy", string(plan.Strategy)), zap.Int("steps", len(plan.Steps)))

	orc := oracle.New(llm, logger)
	cat := catalogue.New()
	ctrl := controller.New(session, cat, orc, history, cfg, persona.Height, logger)

	onStep := func(snapshot schemas.SessionSnapshot) {
		logger.Debug("step",
			zap.String("phase", string(snapshot.Phase)),
			zap.Int("step", snapshot.Step),
			zap.Int("regions", len(snapshot.Regions)),
		)
	}

	for _, step := range plan.Steps {
		stepTask := fmt.Sprintf("%s\n\nCURRENT STEP: %s", task, step.Title)
		result, err := ctrl.RunLoop(ctx, session.ID(), stepTask, onStep, schemas.RunLoopOptions{ResetStepCount: cfg.Controller.ResetStepCount})
		if err != nil {
			return fmt.Errorf("run loop: %w", err)
		}

		logger.Info("step finished",
			zap.String("title", step.Title),
			zap.Bool("completed", result.Completed),
			zap.String("reason", result.Reason),
			zap.String("pauseKind", string(result.PauseKind)),
		)

		if !result.Completed && result.PendingAction != nil {
			logger.Warn("loop paused, awaiting human input",
				zap.String("pauseKind", string(result.PauseKind)),
				zap.Bool("stepCompletionCheck", result.StepCompletionCheck),
			)
			return nil
		}
		if !result.Completed {
			return fmt.Errorf("step %q did not complete: %s", step.Title, result.Reason)
		}
	}
	return nil
}

func buildLLMRouter(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (*llmclient.Router, error) {
	if cfg.APIKey == "" {
		logger.Info("no LLM API key configured, running heuristic-only")
		return nil, nil
	}

	fast, err := llmclient.NewGenAIClient(ctx, cfg.APIKey, cfg.FastModel, cfg.MaxRetries, logger)
	if err != nil {
		return nil, fmt.Errorf("build fast-tier LLM client: %w", err)
	}
	powerful, err := llmclient.NewGenAIClient(ctx, cfg.APIKey, cfg.PowerfulModel, cfg.MaxRetries, logger)
	if err != nil {
		return nil, fmt.Errorf("build powerful-tier LLM client: %w", err)
	}
	router, err := llmclient.NewRouter(logger, fast, powerful)
	if err != nil {
		return nil, fmt.Errorf("build LLM router: %w", err)
	}
	return router, nil
}

func buildHistoryStore(ctx context.Context, cfg config.MemoryConfig) (memory.HistoryStore, error) {
	switch cfg.Backend {
	case "postgres", "pg":
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect history database: %w", err)
		}
		return memory.NewPGStore(ctx, pool)
	default:
		return memory.NewRingStore(cfg.RingSize), nil
	}
}
