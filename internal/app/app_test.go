package app

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHealthHandler(t *testing.T) {
	t.Parallel()

	a := &App{logger: newLogger("info", "text", io.Discard)}
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	a.healthHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "OK\n", rec.Body.String())
}

func TestStartHealthcheckServer_ReturnsImmediately(t *testing.T) {
	t.Parallel()

	a := &App{logger: newLogger("info", "text", io.Discard)}

	// Serving happens on an internal goroutine; the call itself must not
	// block the run loop.
	a.startHealthcheckServer(0)
}
