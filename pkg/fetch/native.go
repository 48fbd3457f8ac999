package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/kkdai/youtube/v2"

	"github.com/latoulicious/wavbot/pkg/pipeline"
)

// youtubeClient is the part of youtube.Client the native extractor needs
type youtubeClient interface {
	GetVideoContext(ctx context.Context, url string) (*youtube.Video, error)
	GetStreamContext(ctx context.Context, video *youtube.Video, format *youtube.Format) (io.ReadCloser, int64, error)
}

// Native extracts audio in-process with github.com/kkdai/youtube
type Native struct {
	client  youtubeClient
	options Options
	logger  pipeline.Logger
}

// NewNative creates an in-process extractor. A cookie file, when given, is
// loaded into the HTTP client's jar.
func NewNative(options Options, logger pipeline.Logger) (*Native, error) {
	if logger == nil {
		logger = pipeline.NullLogger()
	}

	httpClient := &http.Client{}
	if options.CookieFile != "" {
		jar, count, err := LoadCookieJar(options.CookieFile)
		if err != nil {
			return nil, fmt.Errorf("load cookies: %w", err)
		}
		httpClient.Jar = jar
		logger.Info("Loaded YouTube cookies", pipeline.String("path", options.CookieFile), pipeline.Int("count", count))
	}

	return &Native{
		client:  &youtube.Client{HTTPClient: httpClient},
		options: options,
		logger:  logger,
	}, nil
}

// Extract implements Extractor
func (n *Native) Extract(ctx context.Context, sourceURL, dir string) (*Extraction, error) {
	video, err := n.client.GetVideoContext(ctx, sourceURL)
	if err != nil {
		return nil, fmt.Errorf("resolve video: %w", err)
	}

	format := bestAudio(video.Formats)
	if format == nil {
		return nil, pipeline.ErrNoAudioStream
	}
	if n.options.MaxFileSize > 0 && format.ContentLength > n.options.MaxFileSize {
		return nil, fmt.Errorf("%w (%d bytes > %d bytes)", pipeline.ErrSizeExceeded, format.ContentLength, n.options.MaxFileSize)
	}

	ext := extensionForMime(format.MimeType)
	name := rawFilename(video)
	path := filepath.Join(dir, name+"."+ext)

	n.logger.Debug("Selected audio format",
		pipeline.Int("itag", format.ItagNo),
		pipeline.String("mime", format.MimeType),
		pipeline.Int("bitrate", format.Bitrate),
	)

	stream, _, err := n.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	defer stream.Close()

	if err := n.writeStream(stream, path); err != nil {
		_ = os.Remove(path)
		return nil, err
	}

	return &Extraction{
		Title: video.Title,
		Ext:   ext,
		Path:  path,
	}, nil
}

func (n *Native) writeStream(stream io.Reader, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create download file: %w", err)
	}
	defer file.Close()

	reader := stream
	if n.options.MaxFileSize > 0 {
		reader = io.LimitReader(stream, n.options.MaxFileSize+1)
	}

	written, err := io.Copy(file, reader)
	if err != nil {
		return fmt.Errorf("download stream: %w", err)
	}
	if n.options.MaxFileSize > 0 && written > n.options.MaxFileSize {
		return fmt.Errorf("%w (more than %d bytes)", pipeline.ErrSizeExceeded, n.options.MaxFileSize)
	}
	if written == 0 {
		return errors.New("download stream was empty")
	}
	return file.Close()
}

// bestAudio picks the audio-only format with the highest bitrate, falling
// back to the best format that carries audio at all.
func bestAudio(formats youtube.FormatList) *youtube.Format {
	var best, fallback *youtube.Format
	for i := range formats {
		f := &formats[i]
		if strings.HasPrefix(f.MimeType, "audio/") {
			if best == nil || f.Bitrate > best.Bitrate {
				best = f
			}
			continue
		}
		if f.AudioChannels > 0 && (fallback == nil || f.Bitrate > fallback.Bitrate) {
			fallback = f
		}
	}
	if best != nil {
		return best
	}
	return fallback
}

func extensionForMime(mime string) string {
	base := strings.TrimSpace(strings.SplitN(mime, ";", 2)[0])
	switch base {
	case "audio/mp4", "audio/m4a":
		return "m4a"
	case "audio/webm":
		return "webm"
	case "video/mp4":
		return "mp4"
	case "video/webm":
		return "webm"
	}
	if i := strings.Index(base, "/"); i >= 0 && i < len(base)-1 {
		return base[i+1:]
	}
	return "bin"
}

func rawFilename(video *youtube.Video) string {
	name := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator || r == 0 {
			return '_'
		}
		return r
	}, strings.TrimSpace(video.Title))
	if name == "" || name == "." || name == ".." {
		name = video.ID
	}
	if name == "" {
		name = FallbackName
	}
	return name
}

var _ Extractor = (*Native)(nil)
