// Package app wires the application together: configuration loading,
// structural validation, the pipeline registry and the execution engine.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/vk/pipegridgo/internal/config"
	"github.com/vk/pipegridgo/internal/ctxlog"
	"github.com/vk/pipegridgo/internal/executor"
	"github.com/vk/pipegridgo/internal/fsutil"
	"github.com/vk/pipegridgo/internal/pipeline"
	"github.com/vk/pipegridgo/internal/registry"
)

// definitionExtensions are the file extensions recognized as pipeline
// definitions when the configured path is a directory.
var definitionExtensions = []string{".yaml", ".yml", ".json", ".hcl"}

// App encapsulates the application's dependencies, configuration and
// lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	registry *registry.Registry
	engine   *executor.Engine

	pipelineName   string
	validationErrs []string
}

// NewApp constructs the application: it loads and parses the pipeline
// definition, records structural validation findings, and wires the engine
// to the registry. A definition that cannot be loaded or decoded at all is
// a fatal startup error and panics; main recovers it for a clean message.
func NewApp(outW io.Writer, appConfig *Config) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	path := resolveDefinitionPath(ctx, appConfig.PipelinePath)
	doc, err := config.NewLoader().Load(ctx, path)
	if err != nil {
		panic(fmt.Errorf("failed to load configuration: %w", err))
	}
	logger.Debug("Pipeline definition loaded into document model.", "path", path)

	_, validationErrs := config.Validate(doc)
	logger.Debug("Structural validation finished.", "errors", len(validationErrs))

	p, err := pipeline.FromDocument(doc)
	if err != nil {
		panic(fmt.Errorf("failed to parse pipeline definition: %w", err))
	}
	logger.Debug("Pipeline parsed.", "name", p.Name, "stages", len(p.Stages))

	reg := registry.New()
	reg.Add(p)

	eng := executor.New(appConfig.WorkerCount, executor.WithSource(reg))

	return &App{
		outW:           outW,
		logger:         logger,
		registry:       reg,
		engine:         eng,
		pipelineName:   p.Name,
		validationErrs: validationErrs,
	}
}

// Registry returns the application's pipeline registry. Primarily for
// testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Engine returns the application's execution engine. Primarily for testing.
func (a *App) Engine() *executor.Engine {
	return a.engine
}

// resolveDefinitionPath maps a directory argument onto the first pipeline
// definition found inside it; file paths pass through unchanged.
func resolveDefinitionPath(ctx context.Context, path string) string {
	logger := ctxlog.FromContext(ctx)

	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return path
	}

	files, err := fsutil.FindByExtensions(path, definitionExtensions...)
	if err != nil {
		panic(fmt.Errorf("failed to scan %q for pipeline definitions: %w", path, err))
	}
	if len(files) == 0 {
		panic(fmt.Errorf("no pipeline definition found under %q", path))
	}
	if len(files) > 1 {
		logger.Debug("Multiple pipeline definitions found; using the first.", "count", len(files), "chosen", files[0])
	}
	return files[0]
}
