package pipeline

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindFetchFailed, KindOf(FetchFailed(errors.New("x"))))
	assert.Equal(t, KindDeliveryFailed, KindOf(fmt.Errorf("wrapped: %w", DeliveryFailed(errors.New("x")))))
	assert.Equal(t, KindUnexpected, KindOf(errors.New("plain")))
	assert.Equal(t, KindUnexpected, KindOf(nil))
}

func TestPipelineErrorUnwrap(t *testing.T) {
	err := FetchFailed(fmt.Errorf("%w: 30MB", ErrSizeExceeded))
	assert.ErrorIs(t, err, ErrSizeExceeded)
	assert.ErrorIs(t, InvalidSource("x"), ErrInvalidSource)
}

func TestClassifyKeepsExistingKind(t *testing.T) {
	original := TranscodeFailed(errors.New("exit 1"), "bad input")
	pe := classify(original, StageTranscoding, KindUnexpected)
	require.Same(t, original, pe)
	assert.Equal(t, KindTranscodeFailed, pe.Kind)
	assert.Equal(t, StageTranscoding, pe.Stage)
	assert.Equal(t, "exit 1: bad input", pe.Error())
}

func TestClassifyUsesFallback(t *testing.T) {
	pe := classify(errors.New("connection reset"), StageDelivering, KindDeliveryFailed)
	assert.Equal(t, KindDeliveryFailed, pe.Kind)
	assert.Equal(t, StageDelivering, pe.Stage)
	assert.False(t, pe.Timestamp.IsZero())
}

func TestErrorKindString(t *testing.T) {
	assert.Equal(t, "invalid_source", KindInvalidSource.String())
	assert.Equal(t, "fetch_failed", KindFetchFailed.String())
	assert.Equal(t, "transcode_failed", KindTranscodeFailed.String())
	assert.Equal(t, "delivery_failed", KindDeliveryFailed.String())
	assert.Equal(t, "unexpected_failure", KindUnexpected.String())
}
