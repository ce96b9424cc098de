package shell

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vk/pipegridgo/internal/ctxlog"
)

func testCtx() context.Context {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return ctxlog.WithLogger(context.Background(), logger)
}

func TestRun_CapturesOutputAndExitCode(t *testing.T) {
	t.Parallel()

	r := NewExecRunner()

	res, err := r.Run(testCtx(), []string{"echo hello", "echo world"}, nil, 0)

	require.NoError(t, err)
	require.Zero(t, res.ExitCode)
	require.Contains(t, res.Output, "hello")
	require.Contains(t, res.Output, "world")
	require.Greater(t, res.Duration, time.Duration(0))
}

func TestRun_StopsAtFirstFailure(t *testing.T) {
	t.Parallel()

	r := NewExecRunner()

	res, err := r.Run(testCtx(), []string{"echo before", "exit 3", "echo after"}, nil, 0)

	require.NoError(t, err)
	require.Equal(t, 3, res.ExitCode)
	require.Contains(t, res.Output, "before")
	require.NotContains(t, res.Output, "after")
}

func TestRun_ExtraEnvironment(t *testing.T) {
	t.Parallel()

	r := NewExecRunner()

	res, err := r.Run(testCtx(), []string{"echo $GREETING"}, map[string]string{"GREETING": "hi"}, 0)

	require.NoError(t, err)
	require.Zero(t, res.ExitCode)
	require.Contains(t, res.Output, "hi")
}

func TestRun_TimeoutNotedInOutput(t *testing.T) {
	t.Parallel()

	r := NewExecRunner()

	res, err := r.Run(testCtx(), []string{"sleep 5"}, nil, 100*time.Millisecond)

	require.NoError(t, err)
	require.Equal(t, -1, res.ExitCode)
	require.Contains(t, res.Output, "timed out after 100ms")
}

func TestRun_ParentCancellationNotedInOutput(t *testing.T) {
	t.Parallel()

	r := NewExecRunner()
	ctx, cancel := context.WithCancel(testCtx())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	// No unit timeout: the abort comes from the caller's context.
	res, err := r.Run(ctx, []string{"sleep 5"}, nil, 0)

	require.NoError(t, err)
	require.Equal(t, -1, res.ExitCode)
	require.Contains(t, res.Output, "was cancelled")
	require.NotContains(t, res.Output, "after 0s")
}
