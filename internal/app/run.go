package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/vk/pipegridgo/internal/conditions"
	"github.com/vk/pipegridgo/internal/ctxlog"
	"github.com/vk/pipegridgo/internal/graph"
	"github.com/vk/pipegridgo/internal/pipeline"
	"github.com/vk/pipegridgo/internal/schedule"
	"github.com/vk/pipegridgo/internal/viz"
)

// Run executes the selected application mode: validate, graph, analyze,
// save, or an actual pipeline run.
func (a *App) Run(ctx context.Context, appConfig *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	// startHealthcheckServer spawns its own serving goroutine.
	if appConfig.HealthcheckPort > 0 {
		a.startHealthcheckServer(appConfig.HealthcheckPort)
	}

	p, err := a.registry.Get(a.pipelineName)
	if err != nil {
		return err
	}

	switch {
	case appConfig.ValidateOnly:
		return a.reportValidation(p)
	case appConfig.Graph:
		fmt.Fprint(a.outW, viz.DOT(p))
		return nil
	case appConfig.Analyze:
		return a.reportAnalysis(p)
	case appConfig.SavePath != "":
		if err := pipeline.Save(p, appConfig.SavePath); err != nil {
			return err
		}
		a.logger.Info("Pipeline definition saved.", "path", appConfig.SavePath)
		return nil
	}

	return a.executePipeline(ctx, appConfig)
}

// reportValidation prints structural and dependency validation findings.
func (a *App) reportValidation(p *pipeline.Pipeline) error {
	errs := append([]string{}, a.validationErrs...)
	if _, depErrs := graph.ForStages(p.Stages).Validate(); len(depErrs) > 0 {
		errs = append(errs, depErrs...)
	}

	if len(errs) == 0 {
		fmt.Fprintf(a.outW, "pipeline %q is valid\n", p.Name)
		return nil
	}
	for _, e := range errs {
		fmt.Fprintf(a.outW, "  - %s\n", e)
	}
	return fmt.Errorf("pipeline %q is invalid: %d error(s)", p.Name, len(errs))
}

// reportAnalysis prints the advisory schedule analysis.
func (a *App) reportAnalysis(p *pipeline.Pipeline) error {
	analysis, err := schedule.Analyze(p)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.outW, "pipeline %q schedule analysis\n", p.Name)
	for i, level := range analysis.ExecutionLevels {
		fmt.Fprintf(a.outW, "  level %d: %s\n", i, strings.Join(level, ", "))
	}
	fmt.Fprintf(a.outW, "  estimated parallelism: %d\n", analysis.EstimatedParallelism)
	fmt.Fprintf(a.outW, "  parallel stages: %d\n", analysis.ParallelStages)
	fmt.Fprintf(a.outW, "  sequential chains: %d\n", analysis.SequentialChains)
	for _, s := range analysis.Suggestions {
		fmt.Fprintf(a.outW, "  suggestion: %s\n", s)
	}
	return nil
}

// executePipeline refuses structurally invalid definitions, then drives a
// blocking run through the engine.
func (a *App) executePipeline(ctx context.Context, appConfig *Config) error {
	if len(a.validationErrs) > 0 {
		for _, e := range a.validationErrs {
			fmt.Fprintf(a.outW, "  - %s\n", e)
		}
		return fmt.Errorf("refusing to run: pipeline definition has %d validation error(s)", len(a.validationErrs))
	}

	rctx := conditions.Context{
		Branch: appConfig.Branch,
		Env:    environMap(),
	}

	a.logger.Info("🚀 Starting pipeline execution.", "pipeline", a.pipelineName, "workers", appConfig.WorkerCount)
	p, err := a.engine.RunNamed(ctx, a.pipelineName, appConfig.Overrides, rctx)
	if err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}

	if p.Status != pipeline.StatusSuccess {
		return fmt.Errorf("pipeline %q finished with status %s", p.Name, p.Status)
	}
	a.logger.Info("🏁 Pipeline succeeded.", "duration", p.Duration)
	return nil
}

// environMap exposes the process environment to condition evaluation.
func environMap() map[string]string {
	env := map[string]string{}
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i > 0 {
			env[kv[:i]] = kv[i+1:]
		}
	}
	return env
}
