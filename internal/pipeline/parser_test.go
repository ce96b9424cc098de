package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/pipegridgo/internal/config"
)

func TestFromDocument_Defaults(t *testing.T) {
	t.Parallel()

	doc := config.Document{
		"stages": []any{
			map[string]any{
				"name": "build",
				"jobs": []any{
					map[string]any{"name": "compile", "commands": []any{"go build ./..."}},
				},
			},
		},
	}

	p, err := FromDocument(doc)

	require.NoError(t, err)
	require.Equal(t, DefaultName, p.Name)
	require.Equal(t, float64(DefaultTimeoutSeconds), p.Timeout)
	require.NotNil(t, p.Variables)
	require.Empty(t, p.Variables)
	require.Equal(t, StatusPending, p.Status)

	require.Len(t, p.Stages, 1)
	stage := p.Stages[0]
	require.Equal(t, "build", stage.Name)
	require.Empty(t, stage.Dependencies)
	require.False(t, stage.Parallel)
	require.False(t, stage.AllowFailure)
	require.NotNil(t, stage.Environment)
	require.Nil(t, stage.Conditions)
	require.Equal(t, StatusPending, stage.Status)

	require.Len(t, stage.Jobs, 1)
	job := stage.Jobs[0]
	require.Equal(t, "compile", job.Name)
	require.Equal(t, []string{"go build ./..."}, job.Commands)
	require.Zero(t, job.Timeout)
	require.Zero(t, job.RetryCount)
	require.False(t, job.AllowFailure)
	require.Empty(t, job.Artifacts)
	require.Empty(t, job.Dependencies)
}

func TestFromDocument_FullDeclaration(t *testing.T) {
	t.Parallel()

	doc := config.Document{
		"name":        "release",
		"description": "release pipeline",
		"timeout":     3600,
		"variables":   map[string]any{"VERSION": "1.0"},
		"triggers":    []any{"push", "manual"},
		"stages": []any{
			map[string]any{
				"name":          "deploy",
				"dependencies":  []any{"build"},
				"environment":   map[string]any{"REGION": "eu"},
				"parallel":      true,
				"allow_failure": true,
				"conditions": map[string]any{
					"branch":      "release/*",
					"environment": map[string]any{"DEPLOY": "1"},
					"custom":      "on success",
				},
				"jobs": []any{
					map[string]any{
						"name":          "push-image",
						"commands":      []any{"docker push img:${VERSION}"},
						"timeout":       120,
						"retry_count":   3,
						"allow_failure": true,
						"artifacts":     []any{"digest.txt"},
						"dependencies":  []any{"build-image"},
					},
				},
			},
		},
	}

	p, err := FromDocument(doc)

	require.NoError(t, err)
	require.Equal(t, "release", p.Name)
	require.Equal(t, "release pipeline", p.Description)
	require.Equal(t, float64(3600), p.Timeout)
	require.Equal(t, map[string]string{"VERSION": "1.0"}, p.Variables)
	require.Equal(t, []string{"push", "manual"}, p.Triggers)

	stage := p.Stages[0]
	require.Equal(t, []string{"build"}, stage.Dependencies)
	require.Equal(t, map[string]string{"REGION": "eu"}, stage.Environment)
	require.True(t, stage.Parallel)
	require.True(t, stage.AllowFailure)
	require.NotNil(t, stage.Conditions)
	require.Equal(t, "release/*", stage.Conditions.Branch)
	require.Equal(t, map[string]string{"DEPLOY": "1"}, stage.Conditions.Environment)
	require.Equal(t, "on success", stage.Conditions.Custom)

	job := stage.Jobs[0]
	require.Equal(t, float64(120), job.Timeout)
	require.Equal(t, 3, job.RetryCount)
	require.True(t, job.AllowFailure)
	require.Equal(t, []string{"digest.txt"}, job.Artifacts)
	require.Equal(t, []string{"build-image"}, job.Dependencies)
}

func TestFromDocument_ZeroStages(t *testing.T) {
	t.Parallel()

	p, err := FromDocument(config.Document{"name": "empty"})

	require.NoError(t, err)
	require.NotNil(t, p.Stages)
	require.Empty(t, p.Stages)
}

func TestFromDocument_StagesNotAList(t *testing.T) {
	t.Parallel()

	_, err := FromDocument(config.Document{"stages": "oops"})

	require.Error(t, err)
	require.Contains(t, err.Error(), "'stages' must be a list")
}

func TestFromDocument_NilDocument(t *testing.T) {
	t.Parallel()

	_, err := FromDocument(nil)

	require.Error(t, err)
}

func TestResetStatus(t *testing.T) {
	t.Parallel()

	p := &Pipeline{
		Status: StatusFailure,
		Stages: []*Stage{
			{Status: StatusFailure, Jobs: []*Job{{Status: StatusFailure, Output: "boom"}}},
		},
	}

	p.ResetStatus()

	require.Equal(t, StatusPending, p.Status)
	require.Equal(t, StatusPending, p.Stages[0].Status)
	require.Equal(t, StatusPending, p.Stages[0].Jobs[0].Status)
	require.Empty(t, p.Stages[0].Jobs[0].Output)
}
