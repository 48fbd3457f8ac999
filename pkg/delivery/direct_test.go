package delivery

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latoulicious/wavbot/pkg/pipeline"
)

func writeArtifact(t *testing.T, data []byte) pipeline.MediaArtifact {
	t.Helper()
	path := filepath.Join(t.TempDir(), "output.wav")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return pipeline.MediaArtifact{Path: path, Size: int64(len(data)), Format: pipeline.TargetFormat}
}

func TestAttachmentFilename(t *testing.T) {
	assert.Equal(t, "Never Gonna Give You Up.wav", AttachmentFilename("Never Gonna Give You Up!"))
	assert.Equal(t, "audio.wav", AttachmentFilename("???"))
}

func TestDirectAttachDeliver(t *testing.T) {
	var got []pipeline.Attachment
	agent := NewDirectAttach(AttacherFunc(func(ctx context.Context, a pipeline.Attachment) error {
		got = append(got, a)
		return nil
	}), nil)

	artifact := writeArtifact(t, []byte("RIFF----WAVE"))
	result, err := agent.Deliver(context.Background(), artifact, "Song (Live)")
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "Song Live.wav", got[0].Filename)
	assert.Equal(t, []byte("RIFF----WAVE"), got[0].Data)
	assert.Equal(t, pipeline.SuccessCaption("Song (Live)", artifact.Size), got[0].Caption)

	assert.Equal(t, pipeline.RouteDirectAttach, result.Route)
	require.NotNil(t, result.Attachment)
	assert.Equal(t, "Song Live.wav", result.Attachment.Filename)
	assert.Empty(t, result.URL)
	assert.Nil(t, result.Expiry)
}

func TestDirectAttachFailure(t *testing.T) {
	agent := NewDirectAttach(AttacherFunc(func(ctx context.Context, a pipeline.Attachment) error {
		return errors.New("HTTP 413 Request Entity Too Large")
	}), nil)

	_, err := agent.Deliver(context.Background(), writeArtifact(t, []byte("RIFF")), "Song")
	require.Error(t, err)
	assert.Equal(t, pipeline.KindDeliveryFailed, pipeline.KindOf(err))
	assert.Contains(t, err.Error(), "413")
}

func TestDirectAttachMissingArtifact(t *testing.T) {
	called := false
	agent := NewDirectAttach(AttacherFunc(func(ctx context.Context, a pipeline.Attachment) error {
		called = true
		return nil
	}), nil)

	artifact := pipeline.MediaArtifact{Path: filepath.Join(t.TempDir(), "missing.wav")}
	_, err := agent.Deliver(context.Background(), artifact, "Song")
	assert.Equal(t, pipeline.KindDeliveryFailed, pipeline.KindOf(err))
	assert.False(t, called)
}

func TestDirectAttachWithoutAttacher(t *testing.T) {
	_, err := NewDirectAttach(nil, nil).Deliver(context.Background(), writeArtifact(t, []byte("RIFF")), "Song")
	assert.Equal(t, pipeline.KindDeliveryFailed, pipeline.KindOf(err))
}
