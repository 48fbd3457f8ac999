package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/latoulicious/wavbot/pkg/common"
	"github.com/latoulicious/wavbot/pkg/pipeline"
)

// ytdlpReport is printed by yt-dlp once the file reached its final location.
const ytdlpReport = `after_move:{"title":%(title)j,"ext":%(ext)j,"filepath":%(filepath)j}`

// YtDlp extracts audio by running the yt-dlp executable
type YtDlp struct {
	binary  string
	options Options
	runner  common.CommandRunner
	logger  pipeline.Logger
}

// YtDlpOption is a functional option for configuring YtDlp
type YtDlpOption func(*YtDlp)

// WithYtDlpPath sets a custom yt-dlp executable path
func WithYtDlpPath(path string) YtDlpOption {
	return func(y *YtDlp) {
		if path != "" {
			y.binary = path
		}
	}
}

// WithYtDlpRunner sets a custom command runner (for testing)
func WithYtDlpRunner(runner common.CommandRunner) YtDlpOption {
	return func(y *YtDlp) {
		y.runner = runner
	}
}

// WithYtDlpLogger sets the logger
func WithYtDlpLogger(logger pipeline.Logger) YtDlpOption {
	return func(y *YtDlp) {
		if logger != nil {
			y.logger = logger
		}
	}
}

// NewYtDlp creates a yt-dlp backed extractor
func NewYtDlp(options Options, opts ...YtDlpOption) *YtDlp {
	if options.Format == "" {
		options.Format = DefaultFormat
	}
	y := &YtDlp{
		binary:  "yt-dlp",
		options: options,
		runner:  common.ExecRunner{},
		logger:  pipeline.NullLogger(),
	}
	for _, opt := range opts {
		opt(y)
	}
	return y
}

// Args returns the yt-dlp arguments for downloading sourceURL into dir
func (y *YtDlp) Args(sourceURL, dir string) []string {
	args := []string{
		"-f", y.options.Format,
		"--no-playlist",
		"--no-warnings",
		"--no-progress",
		"--no-simulate",
		"-o", filepath.Join(dir, "%(title)s.%(ext)s"),
		"--print", ytdlpReport,
		// --print implies --quiet, which hides the max-filesize abort notice.
		"--no-quiet",
	}
	if y.options.MaxFileSize > 0 {
		args = append(args, "--max-filesize", strconv.FormatInt(y.options.MaxFileSize, 10))
	}
	if cookies := y.cookieFile(); cookies != "" {
		args = append(args, "--cookies", cookies)
	}
	return append(args, sourceURL)
}

func (y *YtDlp) cookieFile() string {
	if y.options.CookieFile == "" {
		return ""
	}
	if _, err := os.Stat(y.options.CookieFile); err != nil {
		y.logger.Warn("Cookie file not readable, continuing without it",
			pipeline.String("path", y.options.CookieFile),
			pipeline.Error(err),
		)
		return ""
	}
	return y.options.CookieFile
}

// Extract implements Extractor
func (y *YtDlp) Extract(ctx context.Context, sourceURL, dir string) (*Extraction, error) {
	result, err := y.runner.Run(ctx, y.binary, y.Args(sourceURL, dir)...)
	if err != nil {
		if detail := common.LastLines(result.Stderr, 3); detail != "" {
			return nil, fmt.Errorf("%w: %s", err, detail)
		}
		return nil, err
	}

	extraction, parseErr := parseYtDlpReport(result.Stdout)
	if parseErr == nil {
		return extraction, nil
	}

	// yt-dlp skips oversized files with a zero exit status and prints nothing after_move.
	combined := result.Stdout + "\n" + result.Stderr
	if strings.Contains(combined, "max-filesize") {
		return nil, fmt.Errorf("%w (%s)", pipeline.ErrSizeExceeded, common.LastLines(combined, 1))
	}
	return nil, parseErr
}

// Version returns the installed yt-dlp version
func (y *YtDlp) Version(ctx context.Context) (string, error) {
	result, err := y.runner.Run(ctx, y.binary, "--version")
	if err != nil {
		return "", fmt.Errorf("yt-dlp not found or not executable: %w", err)
	}
	return strings.TrimSpace(result.Stdout), nil
}

type ytdlpReportLine struct {
	Title    string `json:"title"`
	Ext      string `json:"ext"`
	Filepath string `json:"filepath"`
}

func parseYtDlpReport(stdout string) (*Extraction, error) {
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var report ytdlpReportLine
		if err := json.Unmarshal([]byte(line), &report); err != nil {
			continue
		}
		if report.Filepath == "" {
			continue
		}
		return &Extraction{
			Title: report.Title,
			Ext:   report.Ext,
			Path:  report.Filepath,
		}, nil
	}
	return nil, errors.New("yt-dlp did not report a downloaded file")
}

var _ Extractor = (*YtDlp)(nil)
