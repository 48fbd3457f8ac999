package delivery

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/latoulicious/wavbot/pkg/fetch"
	"github.com/latoulicious/wavbot/pkg/pipeline"
)

// Attacher posts an attachment inline to the chat platform
type Attacher interface {
	Attach(ctx context.Context, attachment pipeline.Attachment) error
}

// AttacherFunc adapts a function to Attacher
type AttacherFunc func(ctx context.Context, attachment pipeline.Attachment) error

// Attach calls f
func (f AttacherFunc) Attach(ctx context.Context, attachment pipeline.Attachment) error {
	return f(ctx, attachment)
}

// DirectAttach delivers artifacts as inline attachments
type DirectAttach struct {
	attacher Attacher
	logger   pipeline.Logger
}

// NewDirectAttach creates a direct attachment agent
func NewDirectAttach(attacher Attacher, logger pipeline.Logger) *DirectAttach {
	if logger == nil {
		logger = pipeline.NullLogger()
	}
	return &DirectAttach{attacher: attacher, logger: logger}
}

// AttachmentFilename is the name an artifact gets on the chat platform.
func AttachmentFilename(title string) string {
	return fetch.FileStem(title) + ".wav"
}

// Deliver implements pipeline.DeliveryAgent
func (d *DirectAttach) Deliver(ctx context.Context, artifact pipeline.MediaArtifact, title string) (*pipeline.DeliveryResult, error) {
	if d.attacher == nil {
		return nil, pipeline.DeliveryFailed(errors.New("no attacher configured"))
	}

	// The router only sends artifacts at or under the attachment ceiling here,
	// so holding them in memory lets the platform client retry the send.
	data, err := os.ReadFile(artifact.Path)
	if err != nil {
		return nil, pipeline.DeliveryFailed(fmt.Errorf("read artifact: %w", err))
	}

	attachment := pipeline.Attachment{
		Filename: AttachmentFilename(title),
		Caption:  pipeline.SuccessCaption(title, artifact.Size),
		Data:     data,
	}

	d.logger.Info("Attaching artifact",
		pipeline.String("filename", attachment.Filename),
		pipeline.Bytes("size", artifact.Size),
	)
	if err := d.attacher.Attach(ctx, attachment); err != nil {
		return nil, pipeline.DeliveryFailed(err)
	}

	return &pipeline.DeliveryResult{
		Route:      pipeline.RouteDirectAttach,
		Attachment: &attachment,
	}, nil
}

var _ pipeline.DeliveryAgent = (*DirectAttach)(nil)
