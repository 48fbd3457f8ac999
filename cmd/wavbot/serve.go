package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/cobra"

	"github.com/latoulicious/wavbot/internal/commands"
	"github.com/latoulicious/wavbot/internal/handlers"
	"github.com/latoulicious/wavbot/internal/presence"
	"github.com/latoulicious/wavbot/pkg/cron"
	"github.com/latoulicious/wavbot/pkg/pipeline"
)

const shutdownGrace = 30 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	var skipSync bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Discord bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(true); err != nil {
				return err
			}
			logger := ctx.ensureLogger()
			pipeline.NewStdLogAdapter(logger).SetAsStdLogger()

			lock, err := cron.AcquireRootLock(cfg.Workspace.Root)
			if err != nil {
				return err
			}
			defer lock.Release()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			st, err := newStack(cfg, logger)
			if err != nil {
				return err
			}
			if err := st.transcoder.VerifyInstalled(runCtx); err != nil {
				logger.Warn("FFmpeg check failed, conversions will fail", pipeline.Error(err))
			}

			janitor := cron.NewJanitor(cfg.Workspace.Root, cfg.JanitorMaxAge(), cfg.Workspace.JanitorSchedule, logger)
			janitor.SetInUse(st.orchestrator.OwnsWorkspace)
			if err := janitor.Start(); err != nil {
				return err
			}
			defer janitor.Stop()

			dg, err := discordgo.New("Bot " + cfg.Discord.Token)
			if err != nil {
				return fmt.Errorf("create Discord session: %w", err)
			}
			dg.Identify.Intents = discordgo.IntentsGuilds

			jobCtx, cancelJobs := context.WithCancel(context.Background())
			defer cancelJobs()

			slash := handlers.NewSlashHandler(jobCtx, dg, st.orchestrator, handlers.Options{
				Remote:        st.remote,
				MaxFileSizeMB: cfg.Limits.MaxFileSizeMB,
				HostedExpiry:  cfg.FilebinExpiry(),
				Logger:        logger,
			})
			dg.AddHandler(slash.OnInteractionCreate)

			presenceManager := presence.NewPresenceManager(dg, presence.SessionGuildCounter(dg), commands.CommandYouTube, logger)
			dg.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
				logger.Info("Bot logged in",
					pipeline.String("user", r.User.Username),
					pipeline.String("id", r.User.ID),
					pipeline.Int("guilds", len(r.Guilds)),
				)
				if !skipSync {
					commands.RegisterSlashCommands(s, r.User.ID, cfg.Discord.TestGuildID, logger)
				}
				presenceManager.Update()
			})

			if err := dg.Open(); err != nil {
				return fmt.Errorf("open Discord session: %w", err)
			}
			defer dg.Close()

			presenceManager.StartPeriodicUpdates(runCtx, presence.DefaultInterval)

			logger.Info("Bot is running. Press CTRL-C to exit.",
				pipeline.String("workspace_root", cfg.Workspace.Root),
				pipeline.String("extractor", cfg.YouTube.Backend),
				pipeline.Bytes("attachment_ceiling", cfg.MaxAttachmentBytes()),
			)
			<-runCtx.Done()

			// Stop taking new jobs before waiting on the running ones. REST calls
			// made by running jobs still work once the gateway is closed.
			slash.Close()
			if err := dg.Close(); err != nil {
				logger.Warn("Failed to close Discord gateway", pipeline.Error(err))
			}

			// In-flight jobs get a grace period before their subprocesses are killed.
			logger.Info("Shutting down, waiting for running conversions")
			waitCtx, cancelWait := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancelWait()
			if err := slash.Wait(waitCtx); err != nil {
				logger.Warn("Cancelling unfinished conversions", pipeline.Error(err))
				cancelJobs()
				_ = slash.Wait(context.Background())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipSync, "skip-sync", false, "Do not sync slash commands on startup")
	return cmd
}
