package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func validDoc() Document {
	return Document{
		"name": "build-and-test",
		"stages": []any{
			map[string]any{
				"name": "build",
				"jobs": []any{
					map[string]any{"name": "compile", "commands": []any{"go build ./..."}},
				},
			},
		},
	}
}

func TestValidate_ValidDocument(t *testing.T) {
	t.Parallel()

	ok, errs := Validate(validDoc())

	require.True(t, ok)
	require.Empty(t, errs)
}

func TestValidate_EmptyStagesIsValid(t *testing.T) {
	t.Parallel()

	doc := Document{"name": "empty", "stages": []any{}}

	ok, errs := Validate(doc)

	require.True(t, ok)
	require.Empty(t, errs)
}

func TestValidate_MissingNameAndStages(t *testing.T) {
	t.Parallel()

	ok, errs := Validate(Document{})

	require.False(t, ok)
	require.Len(t, errs, 2)
	require.Contains(t, errs[0], "'name' is required")
	require.Contains(t, errs[1], "'stages' is required")
}

func TestValidate_AccumulatesAllErrors(t *testing.T) {
	t.Parallel()

	// One document with several independent problems: every one of them
	// must be reported, not just the first.
	doc := Document{
		"name":     42,
		"timeout":  -1,
		"triggers": []any{"push", "bogus"},
		"stages": []any{
			map[string]any{
				"name":         "build",
				"dependencies": "not-a-list",
				"jobs": []any{
					map[string]any{"name": "compile", "commands": []any{}},
					map[string]any{"commands": []any{"true"}, "retry_count": -2},
				},
			},
			map[string]any{"jobs": []any{}},
		},
	}

	ok, errs := Validate(doc)

	require.False(t, ok)
	require.Contains(t, errs, "pipeline 'name' must be a string")
	require.Contains(t, errs, "'timeout' must be a positive number")
	require.Contains(t, errs, "invalid trigger bogus: must be one of push, pull_request, manual, schedule")
	require.Contains(t, errs, "stage 'build': 'dependencies' must be a list")
	require.Contains(t, errs, "stage 'build' job 'compile': 'commands' must not be empty")
	require.Contains(t, errs, "stage 'build' job 1: 'name' is required")
	require.Contains(t, errs, "stage 'build' job 1: 'retry_count' must be >= 0")
	require.Contains(t, errs, "stage 1: 'name' is required")
}

func TestValidate_TriggersMustBeAList(t *testing.T) {
	t.Parallel()

	doc := validDoc()
	doc["triggers"] = "push"

	ok, errs := Validate(doc)

	require.False(t, ok)
	require.Contains(t, errs, "'triggers' must be a list")
}

func TestValidate_JobTimeoutMustBePositive(t *testing.T) {
	t.Parallel()

	doc := Document{
		"name": "p",
		"stages": []any{
			map[string]any{
				"name": "s",
				"jobs": []any{
					map[string]any{"name": "j", "commands": []any{"true"}, "timeout": 0},
				},
			},
		},
	}

	ok, errs := Validate(doc)

	require.False(t, ok)
	require.Contains(t, errs, "stage 's' job 'j': 'timeout' must be a positive number")
}

func TestValidate_StagesMustBeAList(t *testing.T) {
	t.Parallel()

	doc := Document{"name": "p", "stages": "oops"}

	ok, errs := Validate(doc)

	require.False(t, ok)
	require.Equal(t, []string{"'stages' must be a list"}, errs)
}

func TestValidate_Idempotent(t *testing.T) {
	t.Parallel()

	doc := Document{
		"name":   7,
		"stages": []any{map[string]any{"jobs": "nope"}},
	}

	_, first := Validate(doc)
	_, second := Validate(doc)

	require.Equal(t, first, second)
}
