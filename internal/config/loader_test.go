package config

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/pipegridgo/internal/ctxlog"
)

func testCtx() context.Context {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return ctxlog.WithLogger(context.Background(), logger)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_YAML(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "pipeline.yaml", `
name: demo
timeout: 600
variables:
  GOOS: linux
stages:
  - name: build
    jobs:
      - name: compile
        commands: ["go build ./..."]
`)

	doc, err := NewLoader().Load(testCtx(), path)

	require.NoError(t, err)
	require.Equal(t, "demo", doc["name"])
	require.Equal(t, 600, doc["timeout"])
	stages, ok := doc["stages"].([]any)
	require.True(t, ok)
	require.Len(t, stages, 1)
}

func TestLoad_JSON(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "pipeline.json", `{
		"name": "demo",
		"stages": [
			{"name": "build", "jobs": [{"name": "compile", "commands": ["true"]}]}
		]
	}`)

	doc, err := NewLoader().Load(testCtx(), path)

	require.NoError(t, err)
	require.Equal(t, "demo", doc["name"])
}

func TestLoad_HCLTranslatesToSameDocumentShape(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "pipeline.hcl", `
name     = "demo"
timeout  = 600
variables = {
  GOOS = "linux"
}
triggers = ["push"]

stage "build" {
  parallel = true
  environment = {
    CGO_ENABLED = "0"
  }

  job "compile" {
    commands    = ["go build ./..."]
    retry_count = 2
  }
}

stage "test" {
  dependencies = ["build"]

  conditions {
    branch = "main"
  }

  job "unit" {
    commands = ["go test ./..."]
  }
}
`)

	doc, err := NewLoader().Load(testCtx(), path)

	require.NoError(t, err)
	require.Equal(t, "demo", doc["name"])
	require.Equal(t, float64(600), doc["timeout"])
	require.Equal(t, map[string]any{"GOOS": "linux"}, doc["variables"])
	require.Equal(t, []any{"push"}, doc["triggers"])

	stages, ok := doc["stages"].([]any)
	require.True(t, ok)
	require.Len(t, stages, 2)

	build := stages[0].(map[string]any)
	require.Equal(t, "build", build["name"])
	require.Equal(t, true, build["parallel"])
	require.Equal(t, map[string]any{"CGO_ENABLED": "0"}, build["environment"])
	jobs := build["jobs"].([]any)
	require.Len(t, jobs, 1)
	require.Equal(t, "compile", jobs[0].(map[string]any)["name"])
	require.Equal(t, 2, jobs[0].(map[string]any)["retry_count"])

	test := stages[1].(map[string]any)
	require.Equal(t, []any{"build"}, test["dependencies"])
	cond := test["conditions"].(map[string]any)
	require.Equal(t, "main", cond["branch"])

	// The translated document passes the same structural validation as a
	// YAML one.
	ok2, errs := Validate(doc)
	require.True(t, ok2, "errors: %v", errs)
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "pipeline.toml", "name = 'demo'")

	_, err := NewLoader().Load(testCtx(), path)

	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported pipeline definition format")
}

func TestDecodeYAML_NonMappingRoot(t *testing.T) {
	t.Parallel()

	_, err := DecodeYAML([]byte("- just\n- a\n- list\n"))

	require.Error(t, err)
}

func TestDecodeYAML_Empty(t *testing.T) {
	t.Parallel()

	_, err := DecodeYAML([]byte(""))

	require.Error(t, err)
	require.Contains(t, err.Error(), "empty")
}

func TestDecodeJSON_NonObjectRoot(t *testing.T) {
	t.Parallel()

	_, err := DecodeJSON([]byte(`[1, 2, 3]`))

	require.Error(t, err)
}
