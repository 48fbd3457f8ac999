package handlers

import (
	"bytes"
	"context"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/latoulicious/wavbot/pkg/delivery"
	"github.com/latoulicious/wavbot/pkg/pipeline"
)

// InteractionSession is the part of discordgo.Session the interaction
// handlers use
type InteractionSession interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	InteractionResponseDelete(interaction *discordgo.Interaction, options ...discordgo.RequestOption) error
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	HeartbeatLatency() time.Duration
}

var _ InteractionSession = (*discordgo.Session)(nil)

// interactionNotifier reports job progress by editing the interaction's
// original response.
type interactionNotifier struct {
	session     InteractionSession
	interaction *discordgo.Interaction
	logger      pipeline.Logger
}

func (n *interactionNotifier) Update(ctx context.Context, status string) error {
	_, err := n.session.InteractionResponseEdit(n.interaction, &discordgo.WebhookEdit{
		Content: &status,
	}, discordgo.WithContext(ctx))
	return err
}

// Finish edits the progress message into the summary. An expired interaction
// falls back to a plain channel message.
func (n *interactionNotifier) Finish(ctx context.Context, summary string) error {
	_, err := n.session.InteractionResponseEdit(n.interaction, &discordgo.WebhookEdit{
		Content: &summary,
	}, discordgo.WithContext(ctx))
	if err == nil {
		return nil
	}
	n.logger.Debug("Could not edit interaction response, sending to channel", pipeline.Error(err))
	_, err = n.session.ChannelMessageSend(n.interaction.ChannelID, summary, discordgo.WithContext(ctx))
	return err
}

func (n *interactionNotifier) Dismiss(ctx context.Context) error {
	return n.session.InteractionResponseDelete(n.interaction, discordgo.WithContext(ctx))
}

// interactionAttacher posts a WAV as a follow-up to the interaction, falling
// back to a channel message once the interaction token has expired.
type interactionAttacher struct {
	session     InteractionSession
	interaction *discordgo.Interaction
	logger      pipeline.Logger
}

func (a *interactionAttacher) Attach(ctx context.Context, attachment pipeline.Attachment) error {
	_, err := a.session.FollowupMessageCreate(a.interaction, true, &discordgo.WebhookParams{
		Content: attachment.Caption,
		Files:   []*discordgo.File{wavFile(attachment)},
	}, discordgo.WithContext(ctx))
	if err == nil {
		return nil
	}

	a.logger.Warn("Follow-up upload failed, sending to channel", pipeline.Error(err))
	_, err = a.session.ChannelMessageSendComplex(a.interaction.ChannelID, &discordgo.MessageSend{
		Content: attachment.Caption,
		Files:   []*discordgo.File{wavFile(attachment)},
	}, discordgo.WithContext(ctx))
	return err
}

func wavFile(attachment pipeline.Attachment) *discordgo.File {
	return &discordgo.File{
		Name:        attachment.Filename,
		ContentType: "audio/wav",
		Reader:      bytes.NewReader(attachment.Data),
	}
}

var (
	_ pipeline.Notifier = (*interactionNotifier)(nil)
	_ delivery.Attacher = (*interactionAttacher)(nil)
)
