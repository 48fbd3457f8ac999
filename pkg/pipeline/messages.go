package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// maxMessageLength keeps rendered messages under the chat platform's limit.
const maxMessageLength = 1900

// Labels name the places a job's result can end up, for progress text.
type Labels struct {
	Source   string
	Platform string
	Host     string
}

// DefaultLabels matches the Discord deployment.
func DefaultLabels() Labels {
	return Labels{
		Source:   "YouTube",
		Platform: "Discord",
		Host:     "Filebin.net",
	}
}

func formatLabel(f AudioFormat) string {
	rate := fmt.Sprintf("%gkHz", float64(f.SampleRate)/1000)
	channels := "stereo"
	if f.Channels == 1 {
		channels = "mono"
	}
	return fmt.Sprintf("%d-bit %s %s WAV", f.BitDepth, rate, channels)
}

// SizeMB renders a byte count the way result messages show it.
func SizeMB(size int64) string {
	return fmt.Sprintf("%.1fMB", float64(size)/(1024*1024))
}

// QueuedMessage is the first status a job reports.
func (l Labels) QueuedMessage() string {
	return fmt.Sprintf("🔄 Processing your %s link...", l.Source)
}

func (l Labels) fetchingMessage() string {
	return fmt.Sprintf("⬇️ Downloading audio from %s...", l.Source)
}

func (l Labels) transcodingMessage() string {
	return fmt.Sprintf("🔄 Converting to %d-bit %gkHz WAV...", TargetFormat.BitDepth, float64(TargetFormat.SampleRate)/1000)
}

func (l Labels) deliveringMessage(route RouteChoice) string {
	if route == RouteRemoteHost {
		return fmt.Sprintf("☁️ Uploading to %s...", l.Host)
	}
	return fmt.Sprintf("⬆️ Uploading to %s...", l.Platform)
}

// SuccessCaption is the text that accompanies a delivered artifact.
func SuccessCaption(title string, size int64) string {
	return fmt.Sprintf("✅ **%s** converted successfully!\n📊 Format: %s\n📁 Size: %s",
		title, formatLabel(TargetFormat), SizeMB(size))
}

// HostedSummary is the terminal message for an artifact delivered by link.
func (l Labels) HostedSummary(title string, size int64, result *DeliveryResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ **%s** converted successfully!\n", title)
	fmt.Fprintf(&b, "📊 Format: %s\n", formatLabel(TargetFormat))
	fmt.Fprintf(&b, "📁 Size: %s (too large for %s)\n", SizeMB(size), l.Platform)
	fmt.Fprintf(&b, "🔗 Download link: %s", result.URL)
	if result.Expiry != nil {
		fmt.Fprintf(&b, "\n\n⚠️ %s links expire after %s - download soon!\n💡 Right-click link and save as...",
			l.Host, humanHours(*result.Expiry))
	}
	return b.String()
}

// FailureMessage renders err for the requester without internal detail.
func (l Labels) FailureMessage(job *Job) string {
	err := job.Err
	var msg string
	switch KindOf(err) {
	case KindInvalidSource:
		msg = fmt.Sprintf("❌ Please provide a valid %s URL", l.Source)
	case KindFetchFailed:
		msg = fmt.Sprintf("❌ Error: Failed to download audio: %s", causeText(err))
	case KindTranscodeFailed:
		msg = fmt.Sprintf("❌ Error: Audio conversion failed: %s", causeText(err))
	case KindDeliveryFailed:
		size := int64(0)
		if job.Artifact != nil {
			size = job.Artifact.Size
		}
		if job.Route == RouteRemoteHost {
			msg = fmt.Sprintf("❌ File too large (%s) and %s upload failed: %s", SizeMB(size), l.Host, causeText(err))
		} else {
			msg = fmt.Sprintf("❌ Upload to %s failed (%s): %s", l.Platform, SizeMB(size), causeText(err))
		}
	default:
		msg = fmt.Sprintf("❌ Error: %s", causeText(err))
	}
	return truncate(msg, maxMessageLength)
}

func causeText(err error) string {
	if err == nil {
		return "unknown error"
	}
	var pe *PipelineError
	if errors.As(err, &pe) {
		return strings.TrimSpace(pe.Error())
	}
	return strings.TrimSpace(err.Error())
}

func humanHours(d time.Duration) string {
	hours := d.Hours()
	if hours == float64(int64(hours)) {
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", int64(hours))
	}
	return d.String()
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
