package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWorkspace(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "root")

	ws, err := NewWorkspace(root, "abc")
	require.NoError(t, err)

	info, err := os.Stat(ws.Path)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, root, filepath.Dir(ws.Path))
	assert.True(t, strings.HasPrefix(filepath.Base(ws.Path), WorkspacePrefix+"abc-"))

	other, err := NewWorkspace(root, "abc")
	require.NoError(t, err)
	assert.NotEqual(t, ws.Path, other.Path)
}

func TestWorkspaceCleanupIsIdempotent(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir(), "job")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(ws.Path, "partial.webm.part"), []byte("x"), 0o644))

	require.NoError(t, ws.Cleanup())
	_, err = os.Stat(ws.Path)
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, ws.Cleanup())
}

func TestNilWorkspaceCleanup(t *testing.T) {
	var ws *Workspace
	assert.NoError(t, ws.Cleanup())
}
