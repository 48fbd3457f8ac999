package handlers

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/latoulicious/wavbot/internal/commands"
	"github.com/latoulicious/wavbot/pkg/delivery"
	"github.com/latoulicious/wavbot/pkg/fetch"
	"github.com/latoulicious/wavbot/pkg/pipeline"
)

// PermissionDeniedMessage is shown when the bot cannot attach files in a channel.
const PermissionDeniedMessage = "❌ I don't have permission to upload files in this channel!"

// ShuttingDownMessage is shown for requests that arrive while the bot stops.
const ShuttingDownMessage = "❌ The bot is restarting, please try again in a minute."

// Runner runs one conversion job to completion
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) *pipeline.Job
	Labels() pipeline.Labels
}

// Options configures the slash command handler
type Options struct {
	// Remote is the delivery agent for artifacts over the attachment ceiling.
	Remote pipeline.DeliveryAgent
	// MaxFileSizeMB and HostedExpiry are shown in the help text.
	MaxFileSizeMB float64
	HostedExpiry  time.Duration
	Logger        pipeline.Logger
}

// SlashHandler dispatches application command interactions. Each /youtube
// request runs as its own goroutine.
type SlashHandler struct {
	ctx     context.Context
	session InteractionSession
	runner  Runner
	options Options
	logger  pipeline.Logger

	mu      sync.Mutex
	closing bool
	jobs    sync.WaitGroup
}

// NewSlashHandler creates a handler. ctx is the parent of every job context;
// cancelling it aborts in-flight jobs.
func NewSlashHandler(ctx context.Context, session InteractionSession, runner Runner, options Options) *SlashHandler {
	logger := options.Logger
	if logger == nil {
		logger = pipeline.DefaultLogger()
	}
	return &SlashHandler{
		ctx:     ctx,
		session: session,
		runner:  runner,
		options: options,
		logger:  logger.With(pipeline.String("component", "slash")),
	}
}

// OnInteractionCreate is registered with discordgo's AddHandler
func (h *SlashHandler) OnInteractionCreate(_ *discordgo.Session, i *discordgo.InteractionCreate) {
	h.Handle(i.Interaction)
}

// Handle processes one interaction
func (h *SlashHandler) Handle(i *discordgo.Interaction) {
	if i == nil || i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	if user := interactionUser(i); user != nil && user.Bot {
		return
	}

	data := i.ApplicationCommandData()
	switch data.Name {
	case commands.CommandYouTube:
		h.handleYouTube(i, stringOption(data, commands.OptionYouTubeURL))
	case commands.CommandHelpYouTube:
		h.respondEmbed(i, commands.HelpEmbed(h.options.MaxFileSizeMB, h.options.HostedExpiry))
	case commands.CommandPing:
		h.respond(i, commands.PingMessage(h.session.HeartbeatLatency()))
	default:
		h.logger.Warn("Unknown command", pipeline.String("name", data.Name))
		h.respond(i, "❌ Unknown command.")
	}
}

func (h *SlashHandler) handleYouTube(i *discordgo.Interaction, sourceURL string) {
	labels := h.runner.Labels()

	if err := fetch.ValidateSource(sourceURL); err != nil {
		h.respond(i, labels.FailureMessage(&pipeline.Job{Err: err}))
		return
	}
	if i.GuildID != "" && i.AppPermissions&discordgo.PermissionAttachFiles == 0 {
		h.respond(i, PermissionDeniedMessage)
		return
	}

	h.mu.Lock()
	if h.closing {
		h.mu.Unlock()
		h.respond(i, ShuttingDownMessage)
		return
	}
	h.jobs.Add(1)
	h.mu.Unlock()

	// Without the initial response there is nothing to report progress on.
	if err := h.respondErr(i, labels.QueuedMessage()); err != nil {
		h.logger.Warn("Interaction expired before the job started", pipeline.Error(err))
		h.jobs.Done()
		return
	}

	go func() {
		defer h.jobs.Done()
		h.runJob(i, sourceURL)
	}()
}

func (h *SlashHandler) runJob(i *discordgo.Interaction, sourceURL string) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("Conversion goroutine panicked",
				pipeline.String("url", sourceURL),
				pipeline.Any("panic", r),
			)
		}
	}()

	attacher := &interactionAttacher{session: h.session, interaction: i, logger: h.logger}
	req := pipeline.Request{
		SourceURL: sourceURL,
		Notifier:  &interactionNotifier{session: h.session, interaction: i, logger: h.logger},
		Agents: pipeline.Agents{
			Direct: delivery.NewDirectAttach(attacher, h.logger),
			Remote: h.options.Remote,
		},
	}

	job := h.runner.Run(h.ctx, req)
	if job == nil {
		h.logger.Error("Conversion returned no job", pipeline.String("url", sourceURL))
		return
	}

	fields := []pipeline.Field{
		pipeline.String("job_id", job.ID),
		pipeline.String("stage", job.Stage.String()),
		pipeline.String("guild_id", i.GuildID),
		pipeline.Duration("elapsed", job.EndedAt.Sub(job.StartedAt)),
	}
	if user := interactionUser(i); user != nil {
		fields = append(fields, pipeline.String("user", user.Username))
	}
	h.logger.Info("Conversion request finished", fields...)
}

// Close stops the handler from starting new jobs. Running jobs are not
// affected; use Wait for them.
func (h *SlashHandler) Close() {
	h.mu.Lock()
	h.closing = true
	h.mu.Unlock()
}

// Wait blocks until every running job has finished or ctx is done
func (h *SlashHandler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.jobs.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *SlashHandler) respondErr(i *discordgo.Interaction, content string) error {
	return h.session.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
		},
	})
}

func (h *SlashHandler) respond(i *discordgo.Interaction, content string) {
	if err := h.respondErr(i, content); err != nil {
		h.logger.Warn("Error sending interaction response", pipeline.Error(err))
	}
}

func (h *SlashHandler) respondEmbed(i *discordgo.Interaction, embed *discordgo.MessageEmbed) {
	err := h.session.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
	if err != nil {
		h.logger.Warn("Error sending interaction response", pipeline.Error(err))
	}
}

func stringOption(data discordgo.ApplicationCommandInteractionData, name string) string {
	for _, option := range data.Options {
		if option.Name == name && option.Type == discordgo.ApplicationCommandOptionString {
			return strings.TrimSpace(option.StringValue())
		}
	}
	return ""
}

func interactionUser(i *discordgo.Interaction) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}
