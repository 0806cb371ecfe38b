package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCloneCopiesSessionStateSkipsCaches(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	writeFile(t, filepath.Join(src, "Default", "Cookies"), "cookie-db")
	writeFile(t, filepath.Join(src, "Default", "Preferences"), "{}")
	writeFile(t, filepath.Join(src, "Default", "Network", "Cookies"), "net-cookie-db")
	writeFile(t, filepath.Join(src, "Local State"), "local-state")

	// None of these may survive the clone.
	writeFile(t, filepath.Join(src, "Default", "Cache", "f_0001"), "cached")
	writeFile(t, filepath.Join(src, "Default", "Code Cache", "js", "x"), "cached")
	writeFile(t, filepath.Join(src, "Default", "Service Worker", "Database", "x"), "cached")
	writeFile(t, filepath.Join(src, "Default", "IndexedDB", "x.leveldb", "y"), "cached")

	require.NoError(t, Clone(src, dst))

	for _, kept := range []string{
		filepath.Join("Default", "Cookies"),
		filepath.Join("Default", "Preferences"),
		filepath.Join("Default", "Network", "Cookies"),
		"Local State",
	} {
		data, err := os.ReadFile(filepath.Join(dst, kept))
		require.NoError(t, err, "expected %s in clone", kept)
		assert.NotEmpty(t, data)
	}

	for _, skipped := range []string{
		filepath.Join("Default", "Cache"),
		filepath.Join("Default", "Code Cache"),
		filepath.Join("Default", "Service Worker"),
		filepath.Join("Default", "IndexedDB"),
	} {
		_, err := os.Stat(filepath.Join(dst, skipped))
		assert.True(t, os.IsNotExist(err), "%s should not be cloned", skipped)
	}
}

func TestCloneWithoutDefaultProfile(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	require.NoError(t, Clone(src, dst))

	// An empty Default directory is created so Chrome can start.
	info, err := os.Stat(filepath.Join(dst, "Default"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
