package delivery

import (
	"context"
	"errors"
	"time"

	"github.com/latoulicious/wavbot/pkg/filebin"
	"github.com/latoulicious/wavbot/pkg/pipeline"
)

// Uploader places a file on a remote host and reports its public link
type Uploader interface {
	Upload(ctx context.Context, path string) (*filebin.Upload, error)
}

// RemoteHost delivers artifacts as a link to an upload on a file host
type RemoteHost struct {
	uploader Uploader
	expiry   time.Duration
	logger   pipeline.Logger
}

// NewRemoteHost creates a remote hosting agent. A zero expiry means links
// do not expire.
func NewRemoteHost(uploader Uploader, expiry time.Duration, logger pipeline.Logger) *RemoteHost {
	if logger == nil {
		logger = pipeline.NullLogger()
	}
	return &RemoteHost{uploader: uploader, expiry: expiry, logger: logger}
}

// Deliver implements pipeline.DeliveryAgent
func (r *RemoteHost) Deliver(ctx context.Context, artifact pipeline.MediaArtifact, title string) (*pipeline.DeliveryResult, error) {
	if r.uploader == nil {
		return nil, pipeline.DeliveryFailed(errors.New("no uploader configured"))
	}

	upload, err := r.uploader.Upload(ctx, artifact.Path)
	if err != nil {
		return nil, pipeline.DeliveryFailed(err)
	}
	if upload == nil || upload.URL == "" {
		return nil, pipeline.DeliveryFailed(errors.New("upload returned no link"))
	}

	r.logger.Info("Artifact hosted",
		pipeline.String("title", title),
		pipeline.String("url", upload.URL),
	)

	result := &pipeline.DeliveryResult{
		Route: pipeline.RouteRemoteHost,
		URL:   upload.URL,
	}
	if r.expiry > 0 {
		expiry := r.expiry
		result.Expiry = &expiry
	}
	return result, nil
}

var _ pipeline.DeliveryAgent = (*RemoteHost)(nil)
var _ Uploader = (*filebin.Client)(nil)
