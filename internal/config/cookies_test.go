package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnescapeCookies(t *testing.T) {
	got := UnescapeCookies(`"# Netscape HTTP Cookie File\n.youtube.com\tTRUE\t/\tTRUE\t0\tPREF\tx"`)
	assert.Equal(t, "# Netscape HTTP Cookie File\n.youtube.com\tTRUE\t/\tTRUE\t0\tPREF\tx\n", got)
	assert.Equal(t, "already\n", UnescapeCookies("already\n"))
}

func TestPrepareCookiesInline(t *testing.T) {
	cfg := Default()
	cfg.Workspace.Root = filepath.Join(t.TempDir(), "root")
	cfg.YouTube.Cookies = `.youtube.com\tTRUE\t/\tTRUE\t0\tPREF\tx`
	cfg.YouTube.CookiesFile = "/ignored/cookies.txt"

	path, err := cfg.PrepareCookies()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.Workspace.Root, CookieFileName), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, ".youtube.com\tTRUE\t/\tTRUE\t0\tPREF\tx\n", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestPrepareCookiesFile(t *testing.T) {
	cfg := Default()
	file := filepath.Join(t.TempDir(), "cookies.txt")
	require.NoError(t, os.WriteFile(file, []byte("# Netscape HTTP Cookie File\n"), 0o600))
	cfg.YouTube.CookiesFile = file

	path, err := cfg.PrepareCookies()
	require.NoError(t, err)
	assert.Equal(t, file, path)

	cfg.YouTube.CookiesFile = filepath.Join(t.TempDir(), "missing.txt")
	_, err = cfg.PrepareCookies()
	assert.Error(t, err)
}

func TestPrepareCookiesNone(t *testing.T) {
	cfg := Default()
	path, err := cfg.PrepareCookies()
	require.NoError(t, err)
	assert.Empty(t, path)
}
