package commands

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/latoulicious/wavbot/pkg/pipeline"
)

// Command names
const (
	CommandYouTube     = "youtube"
	CommandHelpYouTube = "help_youtube"
	CommandPing        = "ping"

	// OptionYouTubeURL is the only option of the youtube command.
	OptionYouTubeURL = "youtube_url"
)

// Session is the part of discordgo.Session used for command management
type Session interface {
	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
	ApplicationCommands(appID, guildID string, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
	ApplicationCommandDelete(appID, guildID, cmdID string, options ...discordgo.RequestOption) error
}

// Definitions returns the bot's slash commands
func Definitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        CommandYouTube,
			Description: fmt.Sprintf("Convert YouTube video to %d-bit %gkHz WAV", pipeline.TargetFormat.BitDepth, float64(pipeline.TargetFormat.SampleRate)/1000),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        OptionYouTubeURL,
					Description: "YouTube video URL",
					Required:    true,
				},
			},
		},
		{
			Name:        CommandHelpYouTube,
			Description: "Show help for YouTube converter",
		},
		{
			Name:        CommandPing,
			Description: "Check bot latency",
		},
	}
}

// SyncResult reports how many commands a scope ended up with
type SyncResult struct {
	Scope string
	Count int
	Err   error
}

// RegisterSlashCommands overwrites the global command set and, when
// testGuildID is set, the test guild's set too, which applies instantly.
// A failure in one scope does not stop the other.
func RegisterSlashCommands(s Session, appID, testGuildID string, logger pipeline.Logger) []SyncResult {
	if logger == nil {
		logger = pipeline.NullLogger()
	}

	scopes := []string{""}
	if testGuildID != "" {
		scopes = append(scopes, testGuildID)
	}

	results := make([]SyncResult, 0, len(scopes))
	for _, guildID := range scopes {
		result := SyncResult{Scope: scopeName(guildID)}
		synced, err := s.ApplicationCommandBulkOverwrite(appID, guildID, Definitions())
		if err != nil {
			result.Err = err
			logger.Error("Failed to sync slash commands", pipeline.String("scope", result.Scope), pipeline.Error(err))
			if guildID != "" {
				logger.Info("Make sure the bot is in the test server and has the applications.commands scope")
			}
		} else {
			result.Count = len(synced)
			logger.Info("Synced slash commands", pipeline.String("scope", result.Scope), pipeline.Int("count", result.Count))
		}
		results = append(results, result)
	}
	return results
}

// ListSlashCommands returns the commands registered in guildID, or globally
// when guildID is empty.
func ListSlashCommands(s Session, appID, guildID string) ([]*discordgo.ApplicationCommand, error) {
	return s.ApplicationCommands(appID, guildID)
}

// DeleteAllSlashCommands deletes every command in guildID, or globally when
// guildID is empty, and returns the names it removed.
func DeleteAllSlashCommands(s Session, appID, guildID string, logger pipeline.Logger) ([]string, error) {
	if logger == nil {
		logger = pipeline.NullLogger()
	}

	registered, err := s.ApplicationCommands(appID, guildID)
	if err != nil {
		return nil, fmt.Errorf("fetch commands: %w", err)
	}

	deleted := make([]string, 0, len(registered))
	for _, cmd := range registered {
		if err := s.ApplicationCommandDelete(appID, guildID, cmd.ID); err != nil {
			return deleted, fmt.Errorf("delete command %s: %w", cmd.Name, err)
		}
		logger.Info("Deleted command", pipeline.String("name", cmd.Name), pipeline.String("scope", scopeName(guildID)))
		deleted = append(deleted, cmd.Name)
	}
	return deleted, nil
}

func scopeName(guildID string) string {
	if guildID == "" {
		return "global"
	}
	return "guild:" + guildID
}
