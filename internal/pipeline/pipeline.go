// Package pipeline defines the strict in-memory model of a pipeline and the
// translation from the raw config document into it. Once a Document has been
// parsed here, no later component ever deals with missing keys or loose
// types again.
package pipeline

import "time"

// Status is the lifecycle state of a pipeline, stage or job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSuccess   Status = "success"
	StatusFailure   Status = "failure"
	StatusSkipped   Status = "skipped"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status is a final one.
func (s Status) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFailure, StatusSkipped, StatusCancelled:
		return true
	}
	return false
}

// DefaultTimeoutSeconds is the overall pipeline budget applied when the
// definition does not declare one.
const DefaultTimeoutSeconds = 7200

// Pipeline is the top-level unit of execution: a named, ordered collection
// of stages. The declared fields round-trip through persistence; the live
// status fields are owned by the execution engine and are never serialized.
type Pipeline struct {
	Name        string            `yaml:"name" json:"name"`
	Description string            `yaml:"description,omitempty" json:"description,omitempty"`
	Variables   map[string]string `yaml:"variables,omitempty" json:"variables,omitempty"`
	Timeout     float64           `yaml:"timeout" json:"timeout"`
	Triggers    []string          `yaml:"triggers,omitempty" json:"triggers,omitempty"`
	Stages      []*Stage          `yaml:"stages" json:"stages"`

	Status     Status        `yaml:"-" json:"-"`
	StartedAt  *time.Time    `yaml:"-" json:"-"`
	FinishedAt *time.Time    `yaml:"-" json:"-"`
	Duration   time.Duration `yaml:"-" json:"-"`
}

// Stage is a named group of jobs sharing dependency, condition and
// parallelism policy.
type Stage struct {
	Name         string            `yaml:"name" json:"name"`
	Dependencies []string          `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
	Environment  map[string]string `yaml:"environment,omitempty" json:"environment,omitempty"`
	Parallel     bool              `yaml:"parallel,omitempty" json:"parallel,omitempty"`
	AllowFailure bool              `yaml:"allow_failure,omitempty" json:"allow_failure,omitempty"`
	Conditions   *Conditions       `yaml:"conditions,omitempty" json:"conditions,omitempty"`
	Jobs         []*Job            `yaml:"jobs" json:"jobs"`

	Status Status `yaml:"-" json:"-"`
}

// Conditions gates whether a stage runs. Absent kinds are automatically
// satisfied; present kinds combine with AND semantics.
type Conditions struct {
	Branch      string            `yaml:"branch,omitempty" json:"branch,omitempty"`
	Environment map[string]string `yaml:"environment,omitempty" json:"environment,omitempty"`
	Custom      string            `yaml:"custom,omitempty" json:"custom,omitempty"`
}

// Job is the smallest executable unit: an ordered command sequence run as
// one logical unit. Timeout is in seconds; zero means unbounded at this
// layer. RetryCount is the number of additional attempts after the first
// failure.
type Job struct {
	Name         string   `yaml:"name" json:"name"`
	Commands     []string `yaml:"commands" json:"commands"`
	Timeout      float64  `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	RetryCount   int      `yaml:"retry_count,omitempty" json:"retry_count,omitempty"`
	AllowFailure bool     `yaml:"allow_failure,omitempty" json:"allow_failure,omitempty"`
	Artifacts    []string `yaml:"artifacts,omitempty" json:"artifacts,omitempty"`
	Dependencies []string `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`

	Status Status `yaml:"-" json:"-"`
	Output string `yaml:"-" json:"-"`
}

// TimeoutDuration returns the pipeline's wall-clock budget.
func (p *Pipeline) TimeoutDuration() time.Duration {
	return time.Duration(p.Timeout * float64(time.Second))
}

// TimeoutDuration returns the job's budget, or zero when unbounded.
func (j *Job) TimeoutDuration() time.Duration {
	return time.Duration(j.Timeout * float64(time.Second))
}

// StageByName returns the stage with the given name, or nil.
func (p *Pipeline) StageByName(name string) *Stage {
	for _, s := range p.Stages {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// ResetStatus returns every live status field to its pre-run state. The
// engine calls this at run start so a pipeline object can be run again.
func (p *Pipeline) ResetStatus() {
	p.Status = StatusPending
	p.StartedAt = nil
	p.FinishedAt = nil
	p.Duration = 0
	for _, s := range p.Stages {
		s.Status = StatusPending
		for _, j := range s.Jobs {
			j.Status = StatusPending
			j.Output = ""
		}
	}
}
