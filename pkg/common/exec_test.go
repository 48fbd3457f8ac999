package common

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLastLines(t *testing.T) {
	assert.Equal(t, "b\nc", LastLines("a\nb\n\nc\n", 2))
	assert.Equal(t, "only", LastLines("only", 3))
	assert.Equal(t, "", LastLines("  \n ", 2))
}

func TestExecRunner(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	runner := ExecRunner{}

	result, err := runner.Run(context.Background(), "sh", "-c", "echo out; echo err >&2")
	require.NoError(t, err)
	assert.Equal(t, "out\n", result.Stdout)
	assert.Equal(t, "err\n", result.Stderr)
	assert.Equal(t, 0, result.ExitCode)

	result, err = runner.Run(context.Background(), "sh", "-c", "echo boom >&2; exit 3")
	require.Error(t, err)
	assert.Equal(t, 3, result.ExitCode)
	assert.Equal(t, "boom\n", result.Stderr)
	assert.Contains(t, err.Error(), "exited with status 3")
}

func TestExecRunnerMissingBinary(t *testing.T) {
	_, err := ExecRunner{}.Run(context.Background(), "definitely-not-a-real-binary-wavbot")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start")
}

func TestExecRunnerCancelled(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ExecRunner{}.Run(ctx, "sleep", "5")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
