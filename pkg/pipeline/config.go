package pipeline

import (
	"fmt"
	"time"
)

// Config contains the read-only settings shared by every job
type Config struct {
	// WorkspaceRoot is where job workspaces are created; empty means os.TempDir().
	WorkspaceRoot string
	// MaxAttachmentBytes is the size ceiling for inline delivery.
	MaxAttachmentBytes int64
	// StageTimeout bounds each fetch/transcode/deliver stage; zero disables it.
	StageTimeout time.Duration
	Labels       Labels
}

// DefaultConfig returns a configuration with the bot's defaults
func DefaultConfig() Config {
	return Config{
		MaxAttachmentBytes: 10 * 1024 * 1024,
		Labels:             DefaultLabels(),
	}
}

// Validate validates the configuration and returns any errors
func (c Config) Validate() error {
	var errors []string

	if c.MaxAttachmentBytes <= 0 {
		errors = append(errors, "max attachment size must be > 0")
	}
	if c.StageTimeout < 0 {
		errors = append(errors, "stage timeout must be >= 0")
	}

	if len(errors) > 0 {
		return fmt.Errorf("pipeline configuration validation failed: %v", errors)
	}
	return nil
}
