package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/latoulicious/wavbot/pkg/cron"
	"github.com/latoulicious/wavbot/pkg/fetch"
	"github.com/latoulicious/wavbot/pkg/filebin"
	"github.com/latoulicious/wavbot/pkg/pipeline"
)

const (
	BackendYtDlp  = "ytdlp"
	BackendNative = "native"

	megabyte = 1024 * 1024
)

// Discord contains bot credentials and command sync settings.
type Discord struct {
	Token       string `toml:"token"`
	TestGuildID string `toml:"test_guild_id"`
}

// Limits contains the size ceilings.
type Limits struct {
	// MaxFileSizeMB is the inline attachment ceiling.
	MaxFileSizeMB float64 `toml:"max_file_size_mb"`
	// MaxDownloadSizeMB aborts larger downloads; zero means MaxFileSizeMB.
	MaxDownloadSizeMB float64 `toml:"max_download_size_mb"`
}

// YouTube contains extraction settings.
type YouTube struct {
	Backend     string `toml:"backend"`
	YtDlpPath   string `toml:"ytdlp_path"`
	Format      string `toml:"format"`
	CookiesFile string `toml:"cookies_file"`
	// Cookies is cookies.txt content with newlines escaped as \n.
	Cookies string `toml:"cookies"`
}

// FFmpeg contains transcoder settings.
type FFmpeg struct {
	Path string `toml:"path"`
}

// Filebin contains remote hosting settings.
type Filebin struct {
	BaseURL string `toml:"base_url"`
	Grace   string `toml:"grace"`
	Expiry  string `toml:"expiry"`
}

// Workspace contains job directory settings.
type Workspace struct {
	Root            string `toml:"root"`
	StageTimeout    string `toml:"stage_timeout"`
	JanitorSchedule string `toml:"janitor_schedule"`
	JanitorMaxAge   string `toml:"janitor_max_age"`
}

// Config encapsulates all configuration values for the bot.
type Config struct {
	Discord     Discord                `toml:"discord"`
	Limits      Limits                 `toml:"limits"`
	YouTube     YouTube                `toml:"youtube"`
	FFmpeg      FFmpeg                 `toml:"ffmpeg"`
	Filebin     Filebin                `toml:"filebin"`
	Workspace   Workspace              `toml:"workspace"`
	Diagnostics bool                   `toml:"diagnostics"`
	Logging     pipeline.LoggingConfig `toml:"logging"`
}

var (
	ErrDiscordTokenNotSet = errors.New("DISCORD_BOT_TOKEN is not set")
	ErrInvalidConfig      = errors.New("invalid configuration")
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Limits: Limits{
			MaxFileSizeMB: 10,
		},
		YouTube: YouTube{
			Backend:   BackendYtDlp,
			YtDlpPath: "yt-dlp",
			Format:    fetch.DefaultFormat,
		},
		FFmpeg: FFmpeg{
			Path: "ffmpeg",
		},
		Filebin: Filebin{
			BaseURL: filebin.DefaultBaseURL,
			Grace:   filebin.DefaultGrace.String(),
			Expiry:  filebin.DefaultExpiry.String(),
		},
		Workspace: Workspace{
			Root:            filepath.Join(os.TempDir(), "wavbot"),
			JanitorSchedule: cron.DefaultJanitorSchedule,
			JanitorMaxAge:   cron.DefaultMaxAge.String(),
		},
		Logging: pipeline.LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads .env, an optional TOML file, and environment overrides, in
// that order. An empty path falls back to WAVBOT_CONFIG. The result is not
// validated.
func LoadConfig(path string) (*Config, error) {
	// A missing .env is normal in containers.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path == "" {
		path = os.Getenv("WAVBOT_CONFIG")
	}
	if path != "" {
		if err := cfg.decodeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) decodeFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config %s: %w", path, err)
	}
	defer file.Close()

	if err := toml.NewDecoder(file).Decode(c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

type lookupFunc func(key string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(target *string, keys ...string) {
		for _, key := range keys {
			if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
				*target = strings.TrimSpace(v)
				return
			}
		}
	}

	str(&c.Discord.Token, "DISCORD_BOT_TOKEN", "DISCORD_TOKEN")
	str(&c.Discord.TestGuildID, "TEST_GUILD_ID")
	str(&c.YouTube.Backend, "EXTRACTOR_BACKEND")
	str(&c.YouTube.YtDlpPath, "YTDLP_PATH")
	str(&c.YouTube.CookiesFile, "YOUTUBE_COOKIES_FILE")
	str(&c.YouTube.Cookies, "YOUTUBE_COOKIES")
	str(&c.FFmpeg.Path, "FFMPEG_PATH")
	str(&c.Filebin.BaseURL, "FILEBIN_BASE_URL")
	str(&c.Filebin.Grace, "FILEBIN_GRACE")
	str(&c.Workspace.Root, "WORKSPACE_ROOT")
	str(&c.Workspace.StageTimeout, "STAGE_TIMEOUT")
	str(&c.Workspace.JanitorSchedule, "JANITOR_SCHEDULE")
	str(&c.Workspace.JanitorMaxAge, "JANITOR_MAX_AGE")
	str(&c.Logging.Level, "LOG_LEVEL")
	str(&c.Logging.Format, "LOG_FORMAT")

	var problems []string
	if v, ok := lookup("MAX_FILE_SIZE_MB"); ok && v != "" {
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			problems = append(problems, fmt.Sprintf("MAX_FILE_SIZE_MB: %v", err))
		} else {
			c.Limits.MaxFileSizeMB = n
		}
	}
	if v, ok := lookup("MAX_DOWNLOAD_SIZE_MB"); ok && v != "" {
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			problems = append(problems, fmt.Sprintf("MAX_DOWNLOAD_SIZE_MB: %v", err))
		} else {
			c.Limits.MaxDownloadSizeMB = n
		}
	}
	if v, ok := lookup("DIAGNOSTICS_ENABLED"); ok && v != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			problems = append(problems, fmt.Sprintf("DIAGNOSTICS_ENABLED: %v", err))
		} else {
			c.Diagnostics = b
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// Validate reports every configuration problem at once. Only the bot needs a
// token, so requireToken is false for offline commands.
func (c *Config) Validate(requireToken bool) error {
	var problems []string

	if requireToken && c.Discord.Token == "" {
		return ErrDiscordTokenNotSet
	}
	if c.Limits.MaxFileSizeMB <= 0 {
		problems = append(problems, "max_file_size_mb must be > 0")
	}
	if c.Limits.MaxDownloadSizeMB < 0 {
		problems = append(problems, "max_download_size_mb must be >= 0")
	}
	switch c.YouTube.Backend {
	case BackendYtDlp, BackendNative:
	default:
		problems = append(problems, fmt.Sprintf("extractor backend must be %q or %q, got %q", BackendYtDlp, BackendNative, c.YouTube.Backend))
	}
	if c.Workspace.Root == "" {
		problems = append(problems, "workspace root must not be empty")
	}
	if !strings.HasPrefix(c.Filebin.BaseURL, "http://") && !strings.HasPrefix(c.Filebin.BaseURL, "https://") {
		problems = append(problems, fmt.Sprintf("filebin base url must be http(s), got %q", c.Filebin.BaseURL))
	}
	for name, value := range map[string]string{
		"filebin grace":   c.Filebin.Grace,
		"filebin expiry":  c.Filebin.Expiry,
		"stage timeout":   c.Workspace.StageTimeout,
		"janitor max age": c.Workspace.JanitorMaxAge,
	} {
		if d, err := parseDuration(value); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", name, err))
		} else if d < 0 {
			problems = append(problems, fmt.Sprintf("%s must be >= 0", name))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

func parseDuration(value string) (time.Duration, error) {
	if strings.TrimSpace(value) == "" {
		return 0, nil
	}
	return time.ParseDuration(strings.TrimSpace(value))
}

func mustDuration(value string) time.Duration {
	d, _ := parseDuration(value)
	return d
}

// MaxAttachmentBytes is the inline delivery ceiling in bytes.
func (c *Config) MaxAttachmentBytes() int64 {
	return int64(c.Limits.MaxFileSizeMB * megabyte)
}

// MaxDownloadBytes is the extraction size limit in bytes.
func (c *Config) MaxDownloadBytes() int64 {
	if c.Limits.MaxDownloadSizeMB > 0 {
		return int64(c.Limits.MaxDownloadSizeMB * megabyte)
	}
	return c.MaxAttachmentBytes()
}

// FilebinGrace is the delay between an upload and handing out its link.
func (c *Config) FilebinGrace() time.Duration {
	return mustDuration(c.Filebin.Grace)
}

// FilebinExpiry is how long hosted links stay valid; zero means no expiry.
func (c *Config) FilebinExpiry() time.Duration {
	return mustDuration(c.Filebin.Expiry)
}

// JanitorMaxAge is the age after which leftover workspaces are swept.
func (c *Config) JanitorMaxAge() time.Duration {
	return mustDuration(c.Workspace.JanitorMaxAge)
}

// Pipeline builds the orchestrator configuration.
func (c *Config) Pipeline() pipeline.Config {
	cfg := pipeline.DefaultConfig()
	cfg.WorkspaceRoot = c.Workspace.Root
	cfg.MaxAttachmentBytes = c.MaxAttachmentBytes()
	cfg.StageTimeout = mustDuration(c.Workspace.StageTimeout)
	return cfg
}

// FetchOptions builds the extraction backend options. cookieFile is the
// resolved cookie file from PrepareCookies.
func (c *Config) FetchOptions(cookieFile string) fetch.Options {
	return fetch.Options{
		Format:      c.YouTube.Format,
		MaxFileSize: c.MaxDownloadBytes(),
		CookieFile:  cookieFile,
	}
}
