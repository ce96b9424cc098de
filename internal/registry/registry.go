// Package registry holds named pipeline definitions for an application
// instance. It is the source the engine's named-run entry points consume.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/vk/pipegridgo/internal/pipeline"
)

// ErrNotFound is returned when a pipeline name is not registered. Callers
// branch on it rather than treating lookup misses as exceptional.
var ErrNotFound = errors.New("pipeline not found")

// Registry is an in-memory, mutex-guarded pipeline store. Pipeline names
// are unique within a registry.
type Registry struct {
	mu        sync.RWMutex
	pipelines map[string]*pipeline.Pipeline
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{pipelines: make(map[string]*pipeline.Pipeline)}
}

// Add registers a pipeline under its name. Re-registering a name replaces
// the previous definition.
func (r *Registry) Add(p *pipeline.Pipeline) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pipelines[p.Name] = p
}

// Get returns the pipeline registered under name, or ErrNotFound.
func (r *Registry) Get(name string) (*pipeline.Pipeline, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pipelines[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return p, nil
}

// List returns every registered pipeline, sorted by name.
func (r *Registry) List() []*pipeline.Pipeline {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*pipeline.Pipeline, 0, len(r.pipelines))
	for _, p := range r.pipelines {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
