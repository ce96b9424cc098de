// Package conditions decides whether a stage should run given the runtime
// context of the pipeline run.
package conditions

import (
	"github.com/gobwas/glob"
	"github.com/vk/pipegridgo/internal/pipeline"
)

// Context is the runtime information conditions are evaluated against.
type Context struct {
	// Branch is the source branch of the run, matched against branch
	// condition patterns.
	Branch string
	// Env holds the key/value pairs environment conditions are checked
	// against.
	Env map[string]string
	// HasPreviousFailures is true once any earlier stage in the run failed.
	HasPreviousFailures bool
}

// ShouldRun evaluates a stage's conditions against the runtime context. A
// stage with no conditions always runs. Present condition kinds combine
// with AND semantics; absent kinds are automatically satisfied.
func ShouldRun(cond *pipeline.Conditions, rctx Context) bool {
	if cond == nil {
		return true
	}
	if cond.Branch != "" && !matchBranch(cond.Branch, rctx.Branch) {
		return false
	}
	for key, want := range cond.Environment {
		if rctx.Env[key] != want {
			return false
		}
	}
	if cond.Custom != "" && !matchCustom(cond.Custom, rctx) {
		return false
	}
	return true
}

// matchBranch matches a glob-style pattern ('*' any run, '?' one character)
// against the branch name. Exact equality is the degenerate glob case. A
// pattern that fails to compile falls back to exact comparison.
func matchBranch(pattern, branch string) bool {
	g, err := glob.Compile(pattern)
	if err != nil {
		return pattern == branch
	}
	return g.Match(branch)
}

// matchCustom evaluates the fixed vocabulary of custom trigger tokens.
// Unknown tokens never match.
func matchCustom(token string, rctx Context) bool {
	switch token {
	case "on failure":
		return rctx.HasPreviousFailures
	case "on success":
		return !rctx.HasPreviousFailures
	}
	return false
}
