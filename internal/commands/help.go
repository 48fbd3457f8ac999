package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/latoulicious/wavbot/pkg/pipeline"
)

// HelpEmbed describes the converter, including the configured attachment ceiling
func HelpEmbed(maxFileSizeMB float64, expiry time.Duration) *discordgo.MessageEmbed {
	format := pipeline.TargetFormat
	channels := "Stereo"
	if format.Channels == 1 {
		channels = "Mono"
	}
	ceiling := formatMB(maxFileSizeMB)

	hosting := []string{
		fmt.Sprintf("• 📏 Small files (≤%sMB): Uploaded directly to Discord", ceiling),
		fmt.Sprintf("• ☁️ Large files (>%sMB): Uploaded to Filebin.net with download link", ceiling),
	}
	if expiry > 0 {
		hosting = append(hosting, fmt.Sprintf("• ⚠️ Filebin links expire after %s - download promptly", expiryText(expiry)))
	}

	return &discordgo.MessageEmbed{
		Title:       "🎵 YouTube to WAV Converter Bot",
		Description: fmt.Sprintf("`/%s <url>` - Convert YouTube video to %d-bit %gkHz WAV", CommandYouTube, format.BitDepth, float64(format.SampleRate)/1000),
		Color:       0x00ff00,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name: "Format",
				Value: strings.Join([]string{
					fmt.Sprintf("• 🎧 Bit depth: %d-bit", format.BitDepth),
					fmt.Sprintf("• 📊 Sample rate: %gkHz", float64(format.SampleRate)/1000),
					"• 🎵 Channels: " + channels,
					"• 📁 Format: WAV",
				}, "\n"),
			},
			{
				Name:  "File Handling",
				Value: strings.Join(hosting, "\n"),
			},
			{
				Name:  "Example",
				Value: fmt.Sprintf("`/%s https://www.youtube.com/watch?v=dQw4w9WgXcQ`", CommandYouTube),
			},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Make sure the bot has permission to upload files!",
		},
	}
}

// PingMessage reports gateway heartbeat latency
func PingMessage(latency time.Duration) string {
	return fmt.Sprintf("🏓 Pong! Latency: %dms", latency.Round(time.Millisecond).Milliseconds())
}

func formatMB(mb float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", mb), "0"), ".")
}

func expiryText(d time.Duration) string {
	if d%time.Hour == 0 {
		hours := int(d / time.Hour)
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	return d.String()
}
