package app

import "errors"

// Config holds everything an App instance needs to run.
type Config struct {
	// PipelinePath points at a definition file, or a directory containing
	// one.
	PipelinePath string

	// Branch is the branch name stage conditions are evaluated against.
	Branch string
	// Overrides are run-time variable overrides; they win over the
	// pipeline's declared defaults.
	Overrides map[string]string

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	// WorkerCount bounds the engine's worker pool. The engine clamps
	// values below one.
	WorkerCount int

	// ValidateOnly, Graph and Analyze select report-and-exit modes instead
	// of executing the pipeline. SavePath round-trips the parsed pipeline
	// to the given file.
	ValidateOnly bool
	Graph        bool
	Analyze      bool
	SavePath     string
}

// NewConfig validates a Config and returns it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.PipelinePath == "" {
		return nil, errors.New("PipelinePath is a required configuration field and cannot be empty")
	}
	return &cfg, nil
}
