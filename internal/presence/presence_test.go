package presence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUpdater struct {
	mu      sync.Mutex
	updates []discordgo.UpdateStatusData
	err     error
}

func (f *fakeUpdater) UpdateStatusComplex(usd discordgo.UpdateStatusData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.updates = append(f.updates, usd)
	return nil
}

func (f *fakeUpdater) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updates)
}

func TestActivity(t *testing.T) {
	pm := NewPresenceManager(&fakeUpdater{}, nil, "youtube", nil)

	data := pm.Activity(3)
	assert.Equal(t, string(discordgo.StatusOnline), data.Status)
	require.Len(t, data.Activities, 1)
	assert.Equal(t, "/youtube", data.Activities[0].Name)
	assert.Equal(t, discordgo.ActivityTypeListening, data.Activities[0].Type)
	assert.Equal(t, "in 3 servers", data.Activities[0].State)

	assert.Equal(t, "in 1 server", pm.Activity(1).Activities[0].State)
}

func TestUpdate(t *testing.T) {
	updater := &fakeUpdater{}
	pm := NewPresenceManager(updater, func() int { return 12 }, "youtube", nil)

	pm.Update()
	require.Equal(t, 1, updater.count())
	assert.Equal(t, "/youtube in 12 servers", pm.Current())
}

func TestUpdateFailureKeepsPrevious(t *testing.T) {
	updater := &fakeUpdater{}
	pm := NewPresenceManager(updater, func() int { return 2 }, "youtube", nil)
	pm.Update()

	updater.err = errors.New("websocket closed")
	pm.Update()
	assert.Equal(t, "/youtube in 2 servers", pm.Current())
}

func TestStartPeriodicUpdates(t *testing.T) {
	updater := &fakeUpdater{}
	pm := NewPresenceManager(updater, func() int { return 1 }, "youtube", nil)

	ctx, cancel := context.WithCancel(context.Background())
	pm.StartPeriodicUpdates(ctx, 10*time.Millisecond)

	assert.Eventually(t, func() bool { return updater.count() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
}

func TestSessionGuildCounter(t *testing.T) {
	s := &discordgo.Session{State: discordgo.NewState()}
	s.State.Guilds = []*discordgo.Guild{{ID: "1"}, {ID: "2"}}
	assert.Equal(t, 2, SessionGuildCounter(s)())

	assert.Equal(t, 0, SessionGuildCounter(&discordgo.Session{})())
}
