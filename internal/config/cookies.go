package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CookieFileName is where inline cookie text is written inside the workspace root.
const CookieFileName = "youtube_cookies.txt"

// PrepareCookies returns the cookie file extraction should use. Inline
// YOUTUBE_COOKIES text wins over YOUTUBE_COOKIES_FILE and is written to the
// workspace root with owner-only permissions. An empty result means no cookies.
func (c *Config) PrepareCookies() (string, error) {
	if c.YouTube.Cookies != "" {
		path := filepath.Join(c.Workspace.Root, CookieFileName)
		if err := os.MkdirAll(c.Workspace.Root, 0o755); err != nil {
			return "", fmt.Errorf("create workspace root: %w", err)
		}
		if err := os.WriteFile(path, []byte(UnescapeCookies(c.YouTube.Cookies)), 0o600); err != nil {
			return "", fmt.Errorf("write cookie file: %w", err)
		}
		return path, nil
	}

	if c.YouTube.CookiesFile == "" {
		return "", nil
	}
	if _, err := os.Stat(c.YouTube.CookiesFile); err != nil {
		return "", fmt.Errorf("cookie file %s: %w", c.YouTube.CookiesFile, err)
	}
	return c.YouTube.CookiesFile, nil
}

// UnescapeCookies turns single-line environment cookie text back into a
// Netscape cookies.txt document.
func UnescapeCookies(value string) string {
	value = strings.Trim(value, `"`)
	value = strings.ReplaceAll(value, `\t`, "\t")
	value = strings.ReplaceAll(value, `\n`, "\n")
	if !strings.HasSuffix(value, "\n") {
		value += "\n"
	}
	return value
}
