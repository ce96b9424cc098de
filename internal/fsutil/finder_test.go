package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFindByExtensions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0750))
	for _, name := range []string{"a.yaml", "b.txt", "nested/c.json"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0600))
	}

	files, err := FindByExtensions(dir, ".yaml", ".json")

	require.NoError(t, err)
	require.Len(t, files, 2)
	require.Equal(t, filepath.Join(dir, "a.yaml"), files[0])
	require.Equal(t, filepath.Join(dir, "nested", "c.json"), files[1])
}

func TestFindByExtensions_NoMatches(t *testing.T) {
	t.Parallel()

	files, err := FindByExtensions(t.TempDir(), ".hcl")

	require.NoError(t, err)
	require.Empty(t, files)
}

func TestFindByExtensions_MissingRoot(t *testing.T) {
	t.Parallel()

	_, err := FindByExtensions(filepath.Join(t.TempDir(), "absent"), ".yaml")

	require.Error(t, err)
}

func TestFindByExtensions_NoExtensionsPanics(t *testing.T) {
	t.Parallel()

	require.Panics(t, func() {
		_, _ = FindByExtensions(t.TempDir())
	})
}
