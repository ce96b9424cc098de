package executor

import (
	"context"

	"github.com/vk/pipegridgo/internal/ctxlog"
	"github.com/vk/pipegridgo/internal/pipeline"
)

// EventType classifies an observability event.
type EventType string

const (
	// EventSessionCreated fires once per run, before any stage dispatch.
	EventSessionCreated EventType = "session_created"
	// EventPipelineStatus fires on every pipeline status transition.
	EventPipelineStatus EventType = "pipeline_status"
	// EventStageStatus fires on every stage status transition.
	EventStageStatus EventType = "stage_status"
	// EventJobStatus fires on every job status transition.
	EventJobStatus EventType = "job_status"
)

// Event is a single state transition emitted by the engine.
type Event struct {
	Type     EventType
	RunID    string
	Pipeline string
	Stage    string
	Job      string
	Status   pipeline.Status
}

// EventSink receives engine events. Implementations must be safe for
// concurrent use: parallel stages emit from their own goroutines.
type EventSink interface {
	Emit(ctx context.Context, ev Event)
}

// LogSink is the default sink; it writes every event to the contextual
// logger at debug level.
type LogSink struct{}

// Emit implements EventSink.
func (LogSink) Emit(ctx context.Context, ev Event) {
	ctxlog.FromContext(ctx).Debug("Engine event.",
		"type", string(ev.Type),
		"run_id", ev.RunID,
		"pipeline", ev.Pipeline,
		"stage", ev.Stage,
		"job", ev.Job,
		"status", string(ev.Status),
	)
}
