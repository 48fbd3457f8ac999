package main

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/cobra"

	"github.com/latoulicious/wavbot/internal/commands"
)

func newCommandsCommand(ctx *commandContext) *cobra.Command {
	var guildID string

	cmd := &cobra.Command{
		Use:   "commands",
		Short: "Manage the bot's slash commands",
	}
	cmd.PersistentFlags().StringVar(&guildID, "guild", "", "Guild ID (defaults to global commands)")

	cmd.AddCommand(&cobra.Command{
		Use:   "register",
		Short: "Sync slash commands globally and to the test guild",
		RunE: func(cmd *cobra.Command, args []string) error {
			dg, appID, err := openRESTSession(ctx)
			if err != nil {
				return err
			}
			cfg, _ := ctx.ensureConfig()
			testGuild := cfg.Discord.TestGuildID
			if guildID != "" {
				testGuild = guildID
			}

			var failed []string
			for _, result := range commands.RegisterSlashCommands(dg, appID, testGuild, ctx.ensureLogger()) {
				if result.Err != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: failed: %v\n", result.Scope, result.Err)
					failed = append(failed, result.Scope)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: synced %d command(s)\n", result.Scope, result.Count)
			}
			if len(failed) > 0 {
				return fmt.Errorf("command sync failed for %s", strings.Join(failed, ", "))
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List registered slash commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			dg, appID, err := openRESTSession(ctx)
			if err != nil {
				return err
			}
			registered, err := commands.ListSlashCommands(dg, appID, guildID)
			if err != nil {
				return err
			}
			if len(registered) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No commands registered")
				return nil
			}

			rows := make([][]string, 0, len(registered))
			for _, c := range registered {
				rows = append(rows, []string{c.Name, c.ID, c.Description, fmt.Sprintf("%d", len(c.Options))})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Name", "ID", "Description", "Options"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete",
		Short: "Delete all slash commands in the scope",
		RunE: func(cmd *cobra.Command, args []string) error {
			dg, appID, err := openRESTSession(ctx)
			if err != nil {
				return err
			}
			deleted, err := commands.DeleteAllSlashCommands(dg, appID, guildID, ctx.ensureLogger())
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d command(s)\n", len(deleted))
			return err
		},
	})

	return cmd
}

// openRESTSession creates a session for REST calls only; no gateway
// connection is opened.
func openRESTSession(ctx *commandContext) (*discordgo.Session, string, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(true); err != nil {
		return nil, "", err
	}

	dg, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		return nil, "", fmt.Errorf("create Discord session: %w", err)
	}
	me, err := dg.User("@me")
	if err != nil {
		return nil, "", fmt.Errorf("resolve application id: %w", err)
	}
	return dg, me.ID, nil
}
