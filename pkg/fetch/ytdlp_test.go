package fetch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latoulicious/wavbot/pkg/common"
	"github.com/latoulicious/wavbot/pkg/pipeline"
)

type fakeRunner struct {
	result common.CommandResult
	err    error
	name   string
	args   []string
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (common.CommandResult, error) {
	f.name = name
	f.args = args
	return f.result, f.err
}

func TestYtDlpArgs(t *testing.T) {
	cookies := filepath.Join(t.TempDir(), "cookies.txt")
	require.NoError(t, os.WriteFile(cookies, []byte("# Netscape HTTP Cookie File\n"), 0o600))

	y := NewYtDlp(Options{MaxFileSize: 10485760, CookieFile: cookies})
	args := y.Args("https://youtu.be/abc", "/tmp/job-1")

	assert.Equal(t, []string{
		"-f", "bestaudio/best",
		"--no-playlist",
		"--no-warnings",
		"--no-progress",
		"--no-simulate",
		"-o", "/tmp/job-1/%(title)s.%(ext)s",
		"--print", ytdlpReport,
		"--no-quiet",
		"--max-filesize", "10485760",
		"--cookies", cookies,
		"https://youtu.be/abc",
	}, args)
}

func TestYtDlpArgsSkipsMissingCookies(t *testing.T) {
	y := NewYtDlp(Options{CookieFile: "/does/not/exist.txt"})
	args := y.Args("https://youtu.be/abc", "/tmp/job-1")

	assert.NotContains(t, args, "--cookies")
	assert.NotContains(t, args, "--max-filesize")
	assert.Contains(t, args, "--no-quiet")
	assert.Equal(t, "https://youtu.be/abc", args[len(args)-1])
}

func TestYtDlpExtract(t *testing.T) {
	runner := &fakeRunner{result: common.CommandResult{
		Stdout: "[youtube] Extracting URL\n" +
			`{"title": "Never Gonna Give You Up", "ext": "webm", "filepath": "/tmp/job-1/Never Gonna Give You Up.webm"}` + "\n",
	}}
	y := NewYtDlp(Options{}, WithYtDlpRunner(runner), WithYtDlpPath("/usr/local/bin/yt-dlp"))

	extraction, err := y.Extract(context.Background(), "https://youtu.be/abc", "/tmp/job-1")
	require.NoError(t, err)

	assert.Equal(t, "/usr/local/bin/yt-dlp", runner.name)
	assert.Equal(t, "Never Gonna Give You Up", extraction.Title)
	assert.Equal(t, "webm", extraction.Ext)
	assert.Equal(t, "/tmp/job-1/Never Gonna Give You Up.webm", extraction.Path)
}

func TestYtDlpExtractFailure(t *testing.T) {
	runner := &fakeRunner{
		result: common.CommandResult{
			Stderr:   "WARNING: something\nERROR: [youtube] abc: Video unavailable\n",
			ExitCode: 1,
		},
		err: errors.New("yt-dlp exited with status 1"),
	}
	y := NewYtDlp(Options{}, WithYtDlpRunner(runner))

	_, err := y.Extract(context.Background(), "https://youtu.be/abc", "/tmp/job-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "yt-dlp exited with status 1")
	assert.Contains(t, err.Error(), "Video unavailable")
}

func TestYtDlpExtractMaxFilesize(t *testing.T) {
	runner := &fakeRunner{result: common.CommandResult{
		Stdout: "[download] File is larger than max-filesize (52428800 bytes > 10485760 bytes). Aborting.\n",
	}}
	y := NewYtDlp(Options{MaxFileSize: 10485760}, WithYtDlpRunner(runner))

	_, err := y.Extract(context.Background(), "https://youtu.be/abc", "/tmp/job-1")
	assert.ErrorIs(t, err, pipeline.ErrSizeExceeded)
}

func TestParseYtDlpReport(t *testing.T) {
	_, err := parseYtDlpReport("")
	assert.Error(t, err)

	_, err = parseYtDlpReport(`{"title": "x", "ext": "m4a", "filepath": ""}`)
	assert.Error(t, err)

	extraction, err := parseYtDlpReport("{not json}\n" + `{"title": "b", "ext": "m4a", "filepath": "/b.m4a"}`)
	require.NoError(t, err)
	assert.Equal(t, "/b.m4a", extraction.Path)
}

func TestYtDlpVersion(t *testing.T) {
	runner := &fakeRunner{result: common.CommandResult{Stdout: "2025.09.26\n"}}
	y := NewYtDlp(Options{}, WithYtDlpRunner(runner), WithYtDlpPath("/usr/local/bin/yt-dlp"))

	version, err := y.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2025.09.26", version)
	assert.Equal(t, "/usr/local/bin/yt-dlp", runner.name)
	assert.Equal(t, []string{"--version"}, runner.args)

	_, err = NewYtDlp(Options{}, WithYtDlpRunner(&fakeRunner{err: errors.New("not found")})).Version(context.Background())
	assert.Error(t, err)
}
