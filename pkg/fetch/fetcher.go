package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/latoulicious/wavbot/pkg/pipeline"
)

// AllowedHosts are the video platform domains a source URL must belong to.
var AllowedHosts = []string{"youtube.com", "youtu.be", "www.youtube.com"}

// Extraction is what an extraction backend reports about a finished download
type Extraction struct {
	Title string
	Ext   string
	// Path is the file the backend actually wrote.
	Path string
}

// Options is the extraction backend configuration surface
type Options struct {
	// Format is the stream selector, "bestaudio/best" by default.
	Format string
	// MaxFileSize aborts downloads larger than this many bytes; zero disables it.
	MaxFileSize int64
	// CookieFile is an optional Netscape cookies.txt used for authenticated requests.
	CookieFile string
}

// DefaultFormat selects the best audio-only stream, falling back to the best muxed one.
const DefaultFormat = "bestaudio/best"

// Extractor downloads the audio of a single video into dir
type Extractor interface {
	Extract(ctx context.Context, sourceURL, dir string) (*Extraction, error)
}

// Fetcher validates a source URL, downloads its audio through an Extractor and
// gives the file a filesystem-safe name.
type Fetcher struct {
	extractor Extractor
	logger    pipeline.Logger
}

// NewFetcher creates a fetcher over extractor
func NewFetcher(extractor Extractor, logger pipeline.Logger) *Fetcher {
	if logger == nil {
		logger = pipeline.DefaultLogger()
	}
	return &Fetcher{
		extractor: extractor,
		logger:    logger.With(pipeline.String("component", "fetcher")),
	}
}

// ValidateSource reports an InvalidSource error unless rawURL's host belongs
// to one of AllowedHosts.
func ValidateSource(rawURL string) error {
	host := sourceHost(rawURL)
	if host == "" {
		return pipeline.InvalidSource(rawURL)
	}
	for _, allowed := range AllowedHosts {
		if strings.Contains(host, allowed) {
			return nil
		}
	}
	return pipeline.InvalidSource(rawURL)
}

func sourceHost(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	if parsed.Host == "" && parsed.Scheme == "" {
		// Bare "youtu.be/abc" style input.
		parsed, err = url.Parse("https://" + rawURL)
		if err != nil {
			return ""
		}
	}
	if parsed.Scheme != "" && parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}

// Fetch implements pipeline.Fetcher
func (f *Fetcher) Fetch(ctx context.Context, sourceURL, workspaceDir string) (string, string, error) {
	if err := ValidateSource(sourceURL); err != nil {
		return "", "", err
	}

	f.logger.Info("Downloading audio", pipeline.String("url", sourceURL))

	extraction, err := f.extractor.Extract(ctx, sourceURL, workspaceDir)
	if err != nil {
		f.discardPartial(workspaceDir)
		return "", "", pipeline.FetchFailed(err)
	}

	title := strings.TrimSpace(extraction.Title)
	ext := strings.TrimPrefix(extraction.Ext, ".")
	if ext == "" {
		ext = strings.TrimPrefix(filepath.Ext(extraction.Path), ".")
	}

	target := filepath.Join(workspaceDir, FileStem(title)+"."+ext)
	if extraction.Path != target {
		if _, err := os.Stat(extraction.Path); err == nil {
			if err := os.Rename(extraction.Path, target); err != nil {
				f.discardPartial(workspaceDir)
				return "", "", pipeline.FetchFailed(fmt.Errorf("rename download: %w", err))
			}
		} else if _, statErr := os.Stat(target); statErr != nil {
			f.discardPartial(workspaceDir)
			return "", "", pipeline.FetchFailed(errors.New("downloaded file not found"))
		}
	}

	if title == "" {
		title = "Unknown Title"
	}

	f.logger.Debug("Download complete",
		pipeline.String("title", title),
		pipeline.String("path", target),
	)
	return title, target, nil
}

// discardPartial removes whatever a failed extraction left behind.
func (f *Fetcher) discardPartial(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			f.logger.Warn("Failed to remove partial download", pipeline.String("name", entry.Name()), pipeline.Error(err))
		}
	}
}

var _ pipeline.Fetcher = (*Fetcher)(nil)
