package executor

import (
	"context"
	"sync/atomic"

	"github.com/vk/pipegridgo/internal/pipeline"
)

// Handle represents one in-flight pipeline run. It is returned by Start and
// doubles as the cancellation handle held in the active-run registry.
type Handle struct {
	// ID uniquely identifies this run (not the pipeline).
	ID string

	pipeline  *pipeline.Pipeline
	cancel    context.CancelFunc
	cancelled atomic.Bool
	done      chan struct{}
	err       error
}

// Wait blocks until the run reaches a terminal state and returns the
// pipeline with its recorded statuses.
func (h *Handle) Wait() (*pipeline.Pipeline, error) {
	<-h.done
	return h.pipeline, h.err
}

// Done returns a channel closed when the run reaches a terminal state.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Cancel signals cooperative cancellation: no new stage or job is
// dispatched after the signal and the pipeline's terminal state records
// CANCELLED. Already-dispatched commands are not guaranteed to stop
// instantly. The status becomes observable through Wait or Done; the run
// goroutine owns the pipeline's live fields until then.
func (h *Handle) Cancel() {
	h.markCancelled()
}

func (h *Handle) markCancelled() {
	if h.cancelled.CompareAndSwap(false, true) {
		h.cancel()
	}
}
