// Package schedule provides offline analysis of a pipeline's dependency
// graph: the execution-level decomposition and advisory parallelism
// metrics. The execution engine does not consult this analysis; it is for
// humans tuning their pipelines.
package schedule

import (
	"fmt"

	"github.com/vk/pipegridgo/internal/graph"
	"github.com/vk/pipegridgo/internal/pipeline"
)

// Analysis is the result of analyzing a pipeline's schedule.
type Analysis struct {
	// ExecutionLevels is the topological layering: stages within one level
	// share no dependency relationship and may run concurrently.
	ExecutionLevels [][]string
	// ParallelStages counts the stages that appear in levels wider than one.
	ParallelStages int
	// SequentialChains is the chain depth: levels beyond the first.
	SequentialChains int
	// EstimatedParallelism is the width of the widest level.
	EstimatedParallelism int
	// Suggestions are human-readable optimization hints.
	Suggestions []string
}

// Analyze computes the execution-level decomposition and parallelism
// metrics for a pipeline. An empty pipeline yields zero levels and zero
// parallelism. A pipeline whose stage graph is invalid cannot be leveled
// and returns an error.
func Analyze(p *pipeline.Pipeline) (*Analysis, error) {
	g := graph.ForStages(p.Stages)
	if ok, errs := g.Validate(); !ok {
		return nil, fmt.Errorf("cannot analyze schedule: %v", errs)
	}

	levels, _ := g.Levels()
	a := &Analysis{ExecutionLevels: levels}

	for _, level := range levels {
		if len(level) > a.EstimatedParallelism {
			a.EstimatedParallelism = len(level)
		}
		if len(level) > 1 {
			a.ParallelStages += len(level)
		}
	}
	if len(levels) > 1 {
		a.SequentialChains = len(levels) - 1
	}

	a.Suggestions = suggestions(p, levels)
	return a, nil
}

func suggestions(p *pipeline.Pipeline, levels [][]string) []string {
	var out []string

	singleRun := 0
	for _, level := range levels {
		if len(level) == 1 {
			singleRun++
		} else {
			singleRun = 0
		}
		if singleRun == 2 {
			out = append(out, "consecutive single-stage levels detected; consider merging stages or loosening dependencies to widen the schedule")
		}
	}

	for _, s := range p.Stages {
		if !s.Parallel && len(s.Jobs) > 1 {
			out = append(out, fmt.Sprintf("stage '%s' runs %d jobs sequentially; consider parallel = true", s.Name, len(s.Jobs)))
		}
	}

	return out
}
