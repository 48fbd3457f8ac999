// Package filebin is a small client for the filebin.net anonymous file host.
package filebin

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/latoulicious/wavbot/pkg/pipeline"
)

const (
	// DefaultBaseURL is the public filebin.net instance.
	DefaultBaseURL = "https://filebin.net"
	// DefaultGrace is how long to wait after an upload before the link is handed out.
	DefaultGrace = time.Second
	// DefaultExpiry is the retention filebin.net applies to anonymous bins.
	DefaultExpiry = 6 * time.Hour

	binIDLength   = 8
	binIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	userAgent     = "wavbot/1.0"
)

// Upload describes a file placed on filebin.net
type Upload struct {
	BinID    string
	Filename string
	URL      string
	Size     int64
	SHA256   string
}

// BinFile is one entry of a bin listing
type BinFile struct {
	Filename    string    `json:"filename"`
	ContentType string    `json:"content-type"`
	Bytes       int64     `json:"bytes"`
	SHA256      string    `json:"sha256"`
	UpdatedAt   time.Time `json:"updated_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// BinInfo is the metadata filebin.net returns for a bin
type BinInfo struct {
	Bin struct {
		ID        string    `json:"id"`
		Readonly  bool      `json:"readonly"`
		Bytes     int64     `json:"bytes"`
		Files     int       `json:"files"`
		UpdatedAt time.Time `json:"updated_at"`
		CreatedAt time.Time `json:"created_at"`
		ExpiredAt time.Time `json:"expired_at"`
	} `json:"bin"`
	Files []BinFile `json:"files"`
}

// uploadResponse holds the fields of the upload reply the client relies on.
type uploadResponse struct {
	Bin struct {
		ID string `json:"id"`
	} `json:"bin"`
	File struct {
		Filename string `json:"filename"`
	} `json:"file"`
}

// Client uploads files to filebin.net
type Client struct {
	baseURL    string
	httpClient *http.Client
	grace      time.Duration
	logger     pipeline.Logger
	newBinID   func() string
}

// Option is a functional option for configuring Client
type Option func(*Client)

// WithBaseURL points the client at another filebin instance
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithHTTPClient sets the HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithGrace sets the post-upload delay; zero disables it
func WithGrace(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.grace = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger pipeline.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithBinIDGenerator replaces the random bin id source (for testing)
func WithBinIDGenerator(gen func() string) Option {
	return func(c *Client) {
		if gen != nil {
			c.newBinID = gen
		}
	}
}

// NewClient creates a filebin.net client
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		grace:      DefaultGrace,
		logger:     pipeline.NullLogger(),
		newBinID:   GenerateBinID,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the filebin instance the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GenerateBinID returns a random 8 character lowercase alphanumeric bin id.
func GenerateBinID() string {
	b := make([]byte, binIDLength)
	for i := range b {
		b[i] = binIDAlphabet[rand.Intn(len(binIDAlphabet))]
	}
	return string(b)
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[^\p{L}\p{N}_\s.-]`)
	filenameSpaces      = regexp.MustCompile(`\s+`)
)

// SanitizeFilename keeps letters, digits, underscores, whitespace, dots and
// hyphens and collapses whitespace runs.
func SanitizeFilename(name string) string {
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	name = filenameSpaces.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

// Upload places the file at path into a new bin and returns its download link.
func (c *Client) Upload(ctx context.Context, path string) (*Upload, error) {
	filename := filepath.Base(path)
	if safe := SanitizeFilename(filename); safe != "" {
		filename = safe
	} else {
		filename = "audio.wav"
	}

	sum, size, err := fileChecksum(path)
	if err != nil {
		return nil, err
	}

	binID := c.newBinID()
	endpoint := fmt.Sprintf("%s/%s/%s", c.baseURL, binID, url.PathEscape(filename))

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, file)
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Content-SHA256", sum)
	req.Header.Set("User-Agent", userAgent)

	c.logger.Info("Uploading to filebin",
		pipeline.String("bin", binID),
		pipeline.String("filename", filename),
		pipeline.Bytes("size", size),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("%w: HTTP %d: %s", pipeline.ErrUploadRejected, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	linkBin, linkName := binID, filename
	var reply uploadResponse
	if err := json.Unmarshal(body, &reply); err == nil {
		if reply.Bin.ID != "" {
			linkBin = reply.Bin.ID
		}
		if reply.File.Filename != "" {
			linkName = reply.File.Filename
		}
	} else {
		c.logger.Debug("Upload response was not JSON, using local bin id", pipeline.Error(err))
	}

	upload := &Upload{
		BinID:    linkBin,
		Filename: linkName,
		URL:      fmt.Sprintf("%s/%s/%s", c.baseURL, linkBin, url.PathEscape(linkName)),
		Size:     size,
		SHA256:   sum,
	}
	c.logger.Info("Upload complete", pipeline.String("url", upload.URL))
	return upload, nil
}

// BinInfo fetches a bin's metadata. It returns nil when the bin cannot be read.
func (c *Client) BinInfo(ctx context.Context, binID string) (*BinInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s/", c.baseURL, url.PathEscape(binID)), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bin info request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("Bin info unavailable", pipeline.String("bin", binID), pipeline.Int("status", resp.StatusCode))
		return nil, nil
	}

	var info BinInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode bin info: %w", err)
	}
	return &info, nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.grace <= 0 {
		return nil
	}
	timer := time.NewTimer(c.grace)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func fileChecksum(path string) (string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	hash := sha256.New()
	size, err := io.Copy(hash, file)
	if err != nil {
		return "", 0, fmt.Errorf("checksum upload: %w", err)
	}
	return hex.EncodeToString(hash.Sum(nil)), size, nil
}
