package pipeline

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies pipeline failures
type ErrorKind int

const (
	KindUnexpected ErrorKind = iota
	KindInvalidSource
	KindFetchFailed
	KindTranscodeFailed
	KindDeliveryFailed
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidSource:
		return "invalid_source"
	case KindFetchFailed:
		return "fetch_failed"
	case KindTranscodeFailed:
		return "transcode_failed"
	case KindDeliveryFailed:
		return "delivery_failed"
	default:
		return "unexpected_failure"
	}
}

var (
	ErrInvalidSource  = errors.New("unsupported source url")
	ErrSizeExceeded   = errors.New("file exceeds download size limit")
	ErrNoAudioStream  = errors.New("no audio stream available")
	ErrOutputMissing  = errors.New("transcoder produced no output")
	ErrUploadRejected = errors.New("upload rejected by hosting backend")
	ErrNoAgent        = errors.New("no delivery agent for route")
)

// PipelineError represents a classified failure of one job stage
type PipelineError struct {
	Kind      ErrorKind
	Stage     Stage
	Err       error
	Detail    string
	Timestamp time.Time
}

func (pe *PipelineError) Error() string {
	if pe == nil {
		return ""
	}
	msg := "unknown error"
	if pe.Err != nil {
		msg = pe.Err.Error()
	}
	if pe.Detail != "" {
		return fmt.Sprintf("%s: %s", msg, pe.Detail)
	}
	return msg
}

// Unwrap exposes the underlying error for errors.Is / errors.As
func (pe *PipelineError) Unwrap() error {
	if pe == nil {
		return nil
	}
	return pe.Err
}

// NewPipelineError creates a new classified pipeline error
func NewPipelineError(kind ErrorKind, err error) *PipelineError {
	return &PipelineError{
		Kind:      kind,
		Err:       err,
		Timestamp: time.Now(),
	}
}

// InvalidSource builds an InvalidSource error for rawURL
func InvalidSource(rawURL string) *PipelineError {
	return NewPipelineError(KindInvalidSource, fmt.Errorf("%w: %s", ErrInvalidSource, rawURL))
}

// FetchFailed wraps an extraction failure
func FetchFailed(err error) *PipelineError {
	return NewPipelineError(KindFetchFailed, err)
}

// TranscodeFailed wraps a transcoder failure together with its captured stderr
func TranscodeFailed(err error, stderr string) *PipelineError {
	pe := NewPipelineError(KindTranscodeFailed, err)
	pe.Detail = stderr
	return pe
}

// DeliveryFailed wraps a delivery agent failure
func DeliveryFailed(err error) *PipelineError {
	return NewPipelineError(KindDeliveryFailed, err)
}

// KindOf returns the classification of err, KindUnexpected when err carries none.
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnexpected
}

// classify makes sure err is a *PipelineError tagged with the stage it came
// from. Unclassified errors get the fallback kind.
func classify(err error, stage Stage, fallback ErrorKind) *PipelineError {
	var pe *PipelineError
	if errors.As(err, &pe) {
		if pe.Stage == StageIdle {
			pe.Stage = stage
		}
		return pe
	}
	pe = NewPipelineError(fallback, err)
	pe.Stage = stage
	return pe
}
