package presence

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/latoulicious/wavbot/pkg/pipeline"
)

// DefaultInterval is how often the presence is refreshed.
const DefaultInterval = 5 * time.Minute

// StatusUpdater is the part of discordgo.Session the presence manager uses
type StatusUpdater interface {
	UpdateStatusComplex(usd discordgo.UpdateStatusData) error
}

// GuildCounter reports how many servers the bot is in
type GuildCounter func() int

// PresenceManager manages the bot's presence
type PresenceManager struct {
	session StatusUpdater
	guilds  GuildCounter
	command string
	logger  pipeline.Logger

	mu      sync.RWMutex
	current string
}

// NewPresenceManager creates a presence manager advertising /command
func NewPresenceManager(session StatusUpdater, guilds GuildCounter, command string, logger pipeline.Logger) *PresenceManager {
	if logger == nil {
		logger = pipeline.NullLogger()
	}
	return &PresenceManager{
		session: session,
		guilds:  guilds,
		command: command,
		logger:  logger,
	}
}

// SessionGuildCounter counts guilds from the session's state cache
func SessionGuildCounter(s *discordgo.Session) GuildCounter {
	return func() int {
		if s.State == nil {
			return 0
		}
		s.State.RLock()
		defer s.State.RUnlock()
		return len(s.State.Guilds)
	}
}

// Activity builds the presence shown for serverCount servers
func (pm *PresenceManager) Activity(serverCount int) discordgo.UpdateStatusData {
	state := fmt.Sprintf("in %d servers", serverCount)
	if serverCount == 1 {
		state = "in 1 server"
	}
	return discordgo.UpdateStatusData{
		Status: string(discordgo.StatusOnline),
		Activities: []*discordgo.Activity{
			{
				Name:  "/" + pm.command,
				Type:  discordgo.ActivityTypeListening,
				State: state,
			},
		},
	}
}

// Update pushes the current presence
func (pm *PresenceManager) Update() {
	count := 0
	if pm.guilds != nil {
		count = pm.guilds()
	}

	data := pm.Activity(count)
	if err := pm.session.UpdateStatusComplex(data); err != nil {
		pm.logger.Warn("Failed to update bot presence", pipeline.Error(err))
		return
	}

	pm.mu.Lock()
	pm.current = data.Activities[0].Name + " " + data.Activities[0].State
	pm.mu.Unlock()
}

// Current returns the last presence that was set successfully
func (pm *PresenceManager) Current() string {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.current
}

// StartPeriodicUpdates refreshes the presence every interval until ctx is done
func (pm *PresenceManager) StartPeriodicUpdates(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				pm.Update()
			}
		}
	}()
}
