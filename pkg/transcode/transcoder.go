package transcode

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/latoulicious/wavbot/pkg/common"
	"github.com/latoulicious/wavbot/pkg/pipeline"
)

// FFmpeg converts audio to pipeline.TargetFormat with the ffmpeg executable
type FFmpeg struct {
	ffmpegPath string
	runner     common.CommandRunner
	logger     pipeline.Logger
}

// Option is a functional option for configuring FFmpeg
type Option func(*FFmpeg)

// WithFFmpegPath sets a custom ffmpeg executable path
func WithFFmpegPath(path string) Option {
	return func(f *FFmpeg) {
		if path != "" {
			f.ffmpegPath = path
		}
	}
}

// WithCommandRunner sets a custom command runner (for testing)
func WithCommandRunner(runner common.CommandRunner) Option {
	return func(f *FFmpeg) {
		f.runner = runner
	}
}

// WithLogger sets the logger
func WithLogger(logger pipeline.Logger) Option {
	return func(f *FFmpeg) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// New creates a new ffmpeg transcoder
func New(opts ...Option) *FFmpeg {
	f := &FFmpeg{
		ffmpegPath: "ffmpeg",
		runner:     common.ExecRunner{},
		logger:     pipeline.NullLogger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Args returns the fixed ffmpeg argument list for one conversion
func Args(inputPath, outputPath string) []string {
	return []string{
		"-i", inputPath,
		"-acodec", pipeline.TargetFormat.Codec,
		"-ar", strconv.Itoa(pipeline.TargetFormat.SampleRate),
		"-ac", strconv.Itoa(pipeline.TargetFormat.Channels),
		"-y",
		outputPath,
	}
}

// Transcode implements pipeline.Transcoder. Success is decided by the exit
// status alone.
func (f *FFmpeg) Transcode(ctx context.Context, inputPath, outputPath string) error {
	f.logger.Info("Converting audio",
		pipeline.String("input", inputPath),
		pipeline.String("output", outputPath),
	)

	result, err := f.runner.Run(ctx, f.ffmpegPath, Args(inputPath, outputPath)...)
	if err != nil {
		stderr := strings.TrimSpace(result.Stderr)
		if stderr == "" {
			stderr = "Unknown error"
		}
		f.logger.Error("FFmpeg conversion failed",
			pipeline.Int("exit_code", result.ExitCode),
			pipeline.String("stderr", common.LastLines(stderr, 5)),
		)
		return pipeline.TranscodeFailed(err, common.LastLines(stderr, 5))
	}

	f.logger.Debug("Conversion complete", pipeline.String("output", outputPath))
	return nil
}

// VerifyInstalled checks that ffmpeg is available
func (f *FFmpeg) VerifyInstalled(ctx context.Context) error {
	_, err := f.Version(ctx)
	return err
}

// Version returns the first line of `ffmpeg -version`
func (f *FFmpeg) Version(ctx context.Context) (string, error) {
	result, err := f.runner.Run(ctx, f.ffmpegPath, "-version")
	if err != nil {
		return "", fmt.Errorf("ffmpeg not found or not executable: %w", err)
	}
	line, _, _ := strings.Cut(strings.TrimSpace(result.Stdout), "\n")
	return line, nil
}

var _ pipeline.Transcoder = (*FFmpeg)(nil)
