package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("CHATSTATE_HTTP_ADDR=:9999\nCHATSTATE_STORAGE_BACKEND=memory\n"), 0600))

	t.Setenv("CHATSTATE_STORAGE_BACKEND", "postgres")
	t.Setenv("CHATSTATE_HTTP_ADDR", "")
	require.NoError(t, os.Unsetenv("CHATSTATE_HTTP_ADDR"))

	require.NoError(t, LoadEnv(filepath.Join(dir, "missing.env"), path))

	assert.Equal(t, ":9999", os.Getenv("CHATSTATE_HTTP_ADDR"))
	assert.Equal(t, "postgres", os.Getenv("CHATSTATE_STORAGE_BACKEND"))
}

func TestLoadEnv_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("BAD$KEY=1\n"), 0600))

	assert.Error(t, LoadEnv(path))
}
