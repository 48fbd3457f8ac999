package fetch

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// FallbackName is used when a title has no characters left after sanitizing.
const FallbackName = "audio"

// SanitizeTitle keeps letters, digits, spaces, hyphens and underscores of a
// title and trims surrounding spaces. It is idempotent.
func SanitizeTitle(title string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == ' ' || r == '-' || r == '_' {
			return r
		}
		return -1
	}, norm.NFC.String(title))

	return strings.TrimSpace(norm.NFC.String(cleaned))
}

// FileStem is the sanitized title, or FallbackName when nothing is left.
func FileStem(title string) string {
	if stem := SanitizeTitle(title); stem != "" {
		return stem
	}
	return FallbackName
}
