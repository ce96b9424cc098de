package executor

import (
	"fmt"
	"sync"
)

// activeRuns tracks the live execution handle per pipeline name. All access
// goes through one mutex; at most one entry exists per name, enforcing
// at-most-one-concurrent-run-per-pipeline-name.
type activeRuns struct {
	mu   sync.Mutex
	runs map[string]*Handle
}

func newActiveRuns() *activeRuns {
	return &activeRuns{runs: make(map[string]*Handle)}
}

// start registers a handle for the named pipeline. It fails when a run is
// already live under that name.
func (a *activeRuns) start(name string, h *Handle) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.runs[name]; exists {
		return fmt.Errorf("%w: pipeline %q", ErrAlreadyRunning, name)
	}
	a.runs[name] = h
	return nil
}

// finish removes the named pipeline's registry entry.
func (a *activeRuns) finish(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.runs, name)
}

// cancel signals the live run for the named pipeline. It reports whether a
// live run existed.
func (a *activeRuns) cancel(name string) bool {
	a.mu.Lock()
	h, ok := a.runs[name]
	a.mu.Unlock()
	if !ok {
		return false
	}
	h.markCancelled()
	return true
}
