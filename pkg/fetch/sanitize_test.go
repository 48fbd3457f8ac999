package fetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		expected string
	}{
		{name: "already clean", title: "Never Gonna Give You Up", expected: "Never Gonna Give You Up"},
		{name: "punctuation removed", title: "Rick Astley - Never Gonna Give You Up (Official Video)", expected: "Rick Astley - Never Gonna Give You Up Official Video"},
		{name: "path separators removed", title: "AC/DC: Back in Black", expected: "ACDC Back in Black"},
		{name: "underscores kept", title: "lofi_beats_2024", expected: "lofi_beats_2024"},
		{name: "non latin letters kept", title: "米津玄師 - Lemon", expected: "米津玄師 - Lemon"},
		{name: "emoji removed and trimmed", title: "🔥 Hot Track 🔥", expected: "Hot Track"},
		{name: "decomposed accents composed", title: "Cafe\u0301 del Mar", expected: "Caf\u00e9 del Mar"},
		{name: "nothing left", title: "!!!???", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeTitle(tt.title)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, got, SanitizeTitle(got), "sanitizing twice must not change the result")
		})
	}
}

func TestFileStem(t *testing.T) {
	assert.Equal(t, "Song", FileStem("Song!"))
	assert.Equal(t, FallbackName, FileStem("***"))
	assert.Equal(t, FallbackName, FileStem(""))
}
