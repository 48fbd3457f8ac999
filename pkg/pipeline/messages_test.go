package pipeline

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSuccessCaption(t *testing.T) {
	caption := SuccessCaption("Never Gonna Give You Up", 8*1024*1024)
	assert.Equal(t, "✅ **Never Gonna Give You Up** converted successfully!\n📊 Format: 16-bit 44.1kHz mono WAV\n📁 Size: 8.0MB", caption)
}

func TestHostedSummaryWithoutExpiry(t *testing.T) {
	summary := DefaultLabels().HostedSummary("Song", 12*1024*1024, &DeliveryResult{URL: "https://example.com/x"})
	assert.Contains(t, summary, "🔗 Download link: https://example.com/x")
	assert.NotContains(t, summary, "expire")
}

func TestFailureMessage(t *testing.T) {
	labels := DefaultLabels()

	tests := []struct {
		name     string
		job      *Job
		expected string
	}{
		{
			name:     "invalid source",
			job:      &Job{Err: InvalidSource("ftp://example.com")},
			expected: "❌ Please provide a valid YouTube URL",
		},
		{
			name:     "fetch failure",
			job:      &Job{Err: FetchFailed(errors.New("Video unavailable"))},
			expected: "❌ Error: Failed to download audio: Video unavailable",
		},
		{
			name:     "transcode failure with stderr",
			job:      &Job{Err: TranscodeFailed(errors.New("ffmpeg exited with status 1"), "moov atom not found")},
			expected: "❌ Error: Audio conversion failed: ffmpeg exited with status 1: moov atom not found",
		},
		{
			name: "remote delivery failure",
			job: &Job{
				Err:      DeliveryFailed(errors.New("HTTP 503")),
				Route:    RouteRemoteHost,
				Artifact: &MediaArtifact{Size: 15 * 1024 * 1024},
			},
			expected: "❌ File too large (15.0MB) and Filebin.net upload failed: HTTP 503",
		},
		{
			name:     "unclassified",
			job:      &Job{Err: errors.New("disk full")},
			expected: "❌ Error: disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, labels.FailureMessage(tt.job))
		})
	}
}

func TestFailureMessageIsTruncated(t *testing.T) {
	long := strings.Repeat("ошибка ", 1000)
	msg := DefaultLabels().FailureMessage(&Job{Err: FetchFailed(errors.New(long))})
	assert.LessOrEqual(t, utf8.RuneCountInString(msg), maxMessageLength)
	assert.True(t, strings.HasSuffix(msg, "…"))
}

func TestHumanHours(t *testing.T) {
	assert.Equal(t, "6 hours", humanHours(6*time.Hour))
	assert.Equal(t, "1 hour", humanHours(time.Hour))
	assert.Equal(t, "1h30m0s", humanHours(90*time.Minute))
}

func TestAudioFormatString(t *testing.T) {
	assert.Equal(t, "16-bit 44.1kHz mono WAV", TargetFormat.String())
	assert.Equal(t, "24-bit 48kHz stereo WAV", AudioFormat{Codec: "pcm_s24le", BitDepth: 24, SampleRate: 48000, Channels: 2}.String())
	assert.Equal(t, "unknown", AudioFormat{}.String())
}
