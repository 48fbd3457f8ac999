package transcode

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latoulicious/wavbot/pkg/common"
	"github.com/latoulicious/wavbot/pkg/pipeline"
)

type mockRunner struct {
	calls  [][]string
	result common.CommandResult
	err    error
}

func (m *mockRunner) Run(ctx context.Context, name string, args ...string) (common.CommandResult, error) {
	m.calls = append(m.calls, append([]string{name}, args...))
	return m.result, m.err
}

func TestArgs(t *testing.T) {
	assert.Equal(t, []string{
		"-i", "/tmp/job/in.webm",
		"-acodec", "pcm_s16le",
		"-ar", "44100",
		"-ac", "1",
		"-y",
		"/tmp/job/out.wav",
	}, Args("/tmp/job/in.webm", "/tmp/job/out.wav"))
}

func TestTranscode(t *testing.T) {
	runner := &mockRunner{}
	f := New(WithCommandRunner(runner), WithFFmpegPath("/opt/ffmpeg/bin/ffmpeg"))

	err := f.Transcode(context.Background(), "in.m4a", "out.wav")
	require.NoError(t, err)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, "/opt/ffmpeg/bin/ffmpeg", runner.calls[0][0])
	assert.Equal(t, Args("in.m4a", "out.wav"), runner.calls[0][1:])
}

func TestTranscodeFailureCarriesStderr(t *testing.T) {
	runner := &mockRunner{
		result: common.CommandResult{
			Stderr:   "ffmpeg version 6.1\n...\nin.m4a: Invalid data found when processing input\n",
			ExitCode: 1,
		},
		err: errors.New("ffmpeg exited with status 1"),
	}
	f := New(WithCommandRunner(runner))

	err := f.Transcode(context.Background(), "in.m4a", "out.wav")
	require.Error(t, err)

	var pe *pipeline.PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, pipeline.KindTranscodeFailed, pe.Kind)
	assert.Contains(t, pe.Detail, "Invalid data found when processing input")
	assert.Contains(t, err.Error(), "ffmpeg exited with status 1")
}

func TestTranscodeFailureWithoutStderr(t *testing.T) {
	f := New(WithCommandRunner(&mockRunner{err: errors.New("failed to start ffmpeg")}))

	err := f.Transcode(context.Background(), "in.m4a", "out.wav")
	var pe *pipeline.PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "Unknown error", pe.Detail)
}

func TestVerifyInstalled(t *testing.T) {
	runner := &mockRunner{}
	require.NoError(t, New(WithCommandRunner(runner)).VerifyInstalled(context.Background()))
	assert.Equal(t, []string{"ffmpeg", "-version"}, runner.calls[0])

	missing := New(WithCommandRunner(&mockRunner{err: errors.New("executable file not found")}))
	assert.Error(t, missing.VerifyInstalled(context.Background()))
}

func TestVersion(t *testing.T) {
	runner := &mockRunner{result: common.CommandResult{Stdout: "ffmpeg version 6.1.1 Copyright (c) 2000-2023\nbuilt with gcc 13\n"}}
	version, err := New(WithCommandRunner(runner)).Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ffmpeg version 6.1.1 Copyright (c) 2000-2023", version)
}
