package fetch

import (
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCookies = `# Netscape HTTP Cookie File
# This is a generated file! Do not edit.

.youtube.com	TRUE	/	TRUE	4102444800	PREF	f6=40000000
#HttpOnly_.youtube.com	TRUE	/	TRUE	4102444800	SID	secret-session
www.youtube.com	FALSE	/	FALSE	0	VISITOR	abc
`

func TestLoadCookieJar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.txt")
	require.NoError(t, os.WriteFile(path, []byte(sampleCookies), 0o600))

	jar, count, err := LoadCookieJar(path)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	cookies := jar.Cookies(&url.URL{Scheme: "https", Host: "www.youtube.com", Path: "/watch"})
	names := make(map[string]string)
	for _, c := range cookies {
		names[c.Name] = c.Value
	}
	assert.Equal(t, "f6=40000000", names["PREF"])
	assert.Equal(t, "secret-session", names["SID"])
	assert.Equal(t, "abc", names["VISITOR"])
}

func TestLoadCookieJarMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.txt")
	require.NoError(t, os.WriteFile(path, []byte("youtube.com\tTRUE\t/\n"), 0o600))

	_, _, err := LoadCookieJar(path)
	assert.Error(t, err)
}

func TestLoadCookieJarMissingFile(t *testing.T) {
	_, _, err := LoadCookieJar(filepath.Join(t.TempDir(), "missing.txt"))
	assert.True(t, os.IsNotExist(err))
}
