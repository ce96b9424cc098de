package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/vk/pipegridgo/internal/conditions"
	"github.com/vk/pipegridgo/internal/ctxlog"
	"github.com/vk/pipegridgo/internal/graph"
	"github.com/vk/pipegridgo/internal/pipeline"
	"github.com/vk/pipegridgo/internal/shell"
	"github.com/vk/pipegridgo/internal/vars"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrAlreadyRunning is returned when a run is requested for a pipeline
	// name that already has a live execution.
	ErrAlreadyRunning = errors.New("pipeline is already running")
	// ErrGraphInvalid is returned when the stage graph contains a
	// self-dependency or a cycle; such a pipeline is refused outright.
	ErrGraphInvalid = errors.New("pipeline dependency graph is invalid")
	// ErrNoSource is returned by the named-run entry points when the engine
	// was built without a pipeline source.
	ErrNoSource = errors.New("no pipeline source configured")
)

// PipelineSource is the registry collaborator the named-run entry points
// consume.
type PipelineSource interface {
	Get(name string) (*pipeline.Pipeline, error)
	List() []*pipeline.Pipeline
}

// Engine executes pipelines. One Engine owns one active-run registry; it is
// safe for concurrent use.
type Engine struct {
	workers int
	runner  shell.Runner
	sink    EventSink
	source  PipelineSource
	active  *activeRuns
}

// Option configures an Engine.
type Option func(*Engine)

// WithRunner replaces the default shell runner.
func WithRunner(r shell.Runner) Option {
	return func(e *Engine) { e.runner = r }
}

// WithSink replaces the default event sink.
func WithSink(s EventSink) Option {
	return func(e *Engine) { e.sink = s }
}

// WithSource attaches the pipeline registry consumed by RunNamed/StartNamed.
func WithSource(s PipelineSource) Option {
	return func(e *Engine) { e.source = s }
}

// New creates an Engine with the given worker pool size. A size below one
// is clamped to one; a pool can never be unusable.
func New(workers int, opts ...Option) *Engine {
	if workers < 1 {
		workers = 1
	}
	e := &Engine{
		workers: workers,
		runner:  shell.NewExecRunner(),
		sink:    LogSink{},
		active:  newActiveRuns(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes the pipeline and blocks until it reaches a terminal state.
// Overrides take precedence over the pipeline's declared variables.
func (e *Engine) Run(ctx context.Context, p *pipeline.Pipeline, overrides map[string]string, rctx conditions.Context) (*pipeline.Pipeline, error) {
	h, err := e.Start(ctx, p, overrides, rctx)
	if err != nil {
		return nil, err
	}
	return h.Wait()
}

// RunNamed looks the pipeline up in the configured source and runs it.
func (e *Engine) RunNamed(ctx context.Context, name string, overrides map[string]string, rctx conditions.Context) (*pipeline.Pipeline, error) {
	h, err := e.StartNamed(ctx, name, overrides, rctx)
	if err != nil {
		return nil, err
	}
	return h.Wait()
}

// StartNamed is the asynchronous variant of RunNamed.
func (e *Engine) StartNamed(ctx context.Context, name string, overrides map[string]string, rctx conditions.Context) (*Handle, error) {
	if e.source == nil {
		return nil, ErrNoSource
	}
	p, err := e.source.Get(name)
	if err != nil {
		return nil, err
	}
	return e.Start(ctx, p, overrides, rctx)
}

// Start begins executing the pipeline and returns its run handle
// immediately. It refuses pipelines whose stage graph has a
// self-dependency or a cycle, and pipelines that already have a live run.
func (e *Engine) Start(ctx context.Context, p *pipeline.Pipeline, overrides map[string]string, rctx conditions.Context) (*Handle, error) {
	logger := ctxlog.FromContext(ctx)

	g := graph.ForStages(p.Stages)
	var fatal []string
	for _, issue := range g.Inspect() {
		switch issue.Kind {
		case graph.IssueSelfDependency:
			fatal = append(fatal, fmt.Sprintf("stage '%s' depends on itself", issue.Node))
		case graph.IssueCycle:
			fatal = append(fatal, "dependency cycle detected")
		default:
			// Missing references are not fatal: the dependent stage can
			// never be satisfied and is skipped at dispatch time.
			logger.Warn("Stage depends on a nonexistent stage; it will be skipped.",
				"stage", issue.Node, "dependency", issue.Dependency)
		}
	}
	if len(fatal) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrGraphInvalid, strings.Join(fatal, "; "))
	}

	runCtx, cancel := context.WithCancel(ctx)
	h := &Handle{
		ID:       uuid.NewString(),
		pipeline: p,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	if err := e.active.start(p.Name, h); err != nil {
		cancel()
		return nil, err
	}

	go e.execute(runCtx, h, p, overrides, rctx, g)
	return h, nil
}

// Cancel signals cancellation of the live run for the named pipeline. It
// returns true when a live run existed and was signalled; false otherwise.
func (e *Engine) Cancel(name string) bool {
	return e.active.cancel(name)
}

// execute drives a single run to its terminal state.
func (e *Engine) execute(ctx context.Context, h *Handle, p *pipeline.Pipeline, overrides map[string]string, rctx conditions.Context, g *graph.Graph) {
	logger := ctxlog.FromContext(ctx).With("pipeline", p.Name, "run_id", h.ID)
	ctx = ctxlog.WithLogger(ctx, logger)
	defer close(h.done)
	defer e.active.finish(p.Name)

	p.ResetStatus()
	start := time.Now()
	p.StartedAt = &start
	p.Status = pipeline.StatusRunning
	e.sink.Emit(ctx, Event{Type: EventSessionCreated, RunID: h.ID, Pipeline: p.Name})
	e.sink.Emit(ctx, Event{Type: EventPipelineStatus, RunID: h.ID, Pipeline: p.Name, Status: p.Status})
	logger.Info("🚀 Pipeline run started.", "stages", len(p.Stages), "workers", e.workers)

	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.TimeoutDuration())
		defer cancel()
	}

	merged := vars.Merge(p.Variables, overrides)

	levels, unplaced := g.Levels()
	if len(unplaced) > 0 {
		// Stages blocked by missing references can never be satisfied; they
		// flow through dispatch once so they record SKIPPED.
		levels = append(levels, unplaced)
	}

	var sawFailure atomic.Bool
	sawFailure.Store(rctx.HasPreviousFailures)

	for _, level := range levels {
		if ctx.Err() != nil {
			break
		}
		var eg errgroup.Group
		eg.SetLimit(e.workers)
		for _, name := range level {
			stage := p.StageByName(name)
			if stage == nil {
				continue
			}
			eg.Go(func() error {
				e.runStage(ctx, h, p, stage, merged, rctx, &sawFailure)
				return nil
			})
		}
		// Stage goroutines record failures as status; errors are never
		// returned through the group.
		_ = eg.Wait()
	}

	end := time.Now()
	p.FinishedAt = &end
	p.Duration = end.Sub(start)
	p.Status = e.finalStatus(ctx, h, p)
	e.sink.Emit(ctx, Event{Type: EventPipelineStatus, RunID: h.ID, Pipeline: p.Name, Status: p.Status})
	logger.Info("🏁 Pipeline run finished.", "status", string(p.Status), "duration", p.Duration)
}

// finalStatus aggregates the terminal pipeline status.
func (e *Engine) finalStatus(ctx context.Context, h *Handle, p *pipeline.Pipeline) pipeline.Status {
	if h.cancelled.Load() {
		return pipeline.StatusCancelled
	}
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return pipeline.StatusFailure
		}
		return pipeline.StatusCancelled
	}
	for _, s := range p.Stages {
		if s.Status == pipeline.StatusFailure && !s.AllowFailure {
			return pipeline.StatusFailure
		}
	}
	return pipeline.StatusSuccess
}

// runStage checks dependency satisfaction and conditions, then executes the
// stage's jobs in declaration order or concurrently per its parallel flag.
func (e *Engine) runStage(ctx context.Context, h *Handle, p *pipeline.Pipeline, stage *pipeline.Stage, mergedVars map[string]string, rctx conditions.Context, sawFailure *atomic.Bool) {
	logger := ctxlog.FromContext(ctx).With("stage", stage.Name)

	if ctx.Err() != nil {
		e.setStageStatus(ctx, h, p, stage, pipeline.StatusCancelled)
		return
	}

	for _, depName := range stage.Dependencies {
		dep := p.StageByName(depName)
		if dep != nil && dep.AllowFailure {
			// An allow-failure dependency satisfies regardless of outcome.
			continue
		}
		if dep == nil || dep.Status != pipeline.StatusSuccess {
			logger.Info("Stage skipped: dependency not satisfied.", "dependency", depName)
			e.setStageStatus(ctx, h, p, stage, pipeline.StatusSkipped)
			return
		}
	}

	cond := rctx
	cond.HasPreviousFailures = sawFailure.Load()
	if !conditions.ShouldRun(stage.Conditions, cond) {
		logger.Info("Stage skipped: conditions not met.")
		e.setStageStatus(ctx, h, p, stage, pipeline.StatusSkipped)
		return
	}

	e.setStageStatus(ctx, h, p, stage, pipeline.StatusRunning)
	logger.Debug("Stage started.", "jobs", len(stage.Jobs), "parallel", stage.Parallel)

	scope := vars.Merge(mergedVars, stage.Environment)
	if stage.Parallel {
		e.runJobsParallel(ctx, h, p, stage, scope)
	} else {
		for _, job := range stage.Jobs {
			if ctx.Err() != nil {
				break
			}
			e.runJob(ctx, h, p, stage, job, scope)
		}
	}

	status := e.stageOutcome(ctx, stage)
	if status == pipeline.StatusFailure {
		sawFailure.Store(true)
	}
	e.setStageStatus(ctx, h, p, stage, status)
	logger.Debug("Stage finished.", "status", string(status))
}

// runJobsParallel levels the stage's own job graph and dispatches each
// level through the worker pool. Jobs within one level have no ordering
// guarantee relative to each other.
func (e *Engine) runJobsParallel(ctx context.Context, h *Handle, p *pipeline.Pipeline, stage *pipeline.Stage, scope map[string]string) {
	jg := graph.ForJobs(stage.Jobs)
	levels, unplaced := jg.Levels()
	if len(unplaced) > 0 {
		levels = append(levels, unplaced)
	}

	jobsByName := make(map[string]*pipeline.Job, len(stage.Jobs))
	for _, j := range stage.Jobs {
		jobsByName[j.Name] = j
	}

	for _, level := range levels {
		if ctx.Err() != nil {
			return
		}
		var eg errgroup.Group
		eg.SetLimit(e.workers)
		for _, name := range level {
			job := jobsByName[name]
			if job == nil {
				continue
			}
			eg.Go(func() error {
				e.runJob(ctx, h, p, stage, job, scope)
				return nil
			})
		}
		_ = eg.Wait()
	}
}

// stageOutcome aggregates job statuses: a stage succeeds exactly when every
// non-allow-failure job succeeded. A cancelled run leaves the stage
// CANCELLED rather than blaming undispatched jobs.
func (e *Engine) stageOutcome(ctx context.Context, stage *pipeline.Stage) pipeline.Status {
	for _, job := range stage.Jobs {
		if job.AllowFailure {
			continue
		}
		if job.Status != pipeline.StatusSuccess {
			if ctx.Err() != nil && !job.Status.Terminal() {
				return pipeline.StatusCancelled
			}
			return pipeline.StatusFailure
		}
	}
	return pipeline.StatusSuccess
}

// runJob executes one job's command sequence as a single logical unit,
// retrying up to RetryCount additional times on failure. A timeout counts
// as a failure. Variable placeholders are substituted with the merged
// pipeline scope plus the stage environment before execution.
func (e *Engine) runJob(ctx context.Context, h *Handle, p *pipeline.Pipeline, stage *pipeline.Stage, job *pipeline.Job, scope map[string]string) {
	logger := ctxlog.FromContext(ctx).With("stage", stage.Name, "job", job.Name)

	if ctx.Err() != nil {
		return
	}

	e.setJobStatus(ctx, h, p, stage, job, pipeline.StatusRunning)
	commands := vars.ExpandAll(job.Commands, scope)

	attempts := job.RetryCount + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := e.runner.Run(ctx, commands, scope, job.TimeoutDuration())
		job.Output = result.Output
		if err != nil {
			job.Output += "\n" + err.Error()
		}
		if err == nil && result.ExitCode == 0 {
			e.setJobStatus(ctx, h, p, stage, job, pipeline.StatusSuccess)
			logger.Debug("Job succeeded.", "attempt", attempt, "duration", result.Duration)
			return
		}
		if ctx.Err() != nil {
			// No retries after a cancellation or pipeline timeout.
			break
		}
		if attempt < attempts {
			logger.Warn("Job failed, retrying.", "attempt", attempt, "remaining", attempts-attempt, "exit_code", result.ExitCode)
		}
	}

	e.setJobStatus(ctx, h, p, stage, job, pipeline.StatusFailure)
	if job.AllowFailure {
		logger.Warn("Job failed but is allowed to fail.")
	} else {
		logger.Error("Job failed.", "retries", job.RetryCount)
	}
}

func (e *Engine) setStageStatus(ctx context.Context, h *Handle, p *pipeline.Pipeline, stage *pipeline.Stage, status pipeline.Status) {
	stage.Status = status
	e.sink.Emit(ctx, Event{Type: EventStageStatus, RunID: h.ID, Pipeline: p.Name, Stage: stage.Name, Status: status})
}

func (e *Engine) setJobStatus(ctx context.Context, h *Handle, p *pipeline.Pipeline, stage *pipeline.Stage, job *pipeline.Job, status pipeline.Status) {
	job.Status = status
	e.sink.Emit(ctx, Event{Type: EventJobStatus, RunID: h.ID, Pipeline: p.Name, Stage: stage.Name, Job: job.Name, Status: status})
}
