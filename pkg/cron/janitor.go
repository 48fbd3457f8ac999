package cron

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/robfig/cron/v3"

	"github.com/latoulicious/wavbot/pkg/pipeline"
)

const (
	// DefaultJanitorSchedule runs a sweep every 30 minutes.
	DefaultJanitorSchedule = "0 */30 * * * *"
	// DefaultMaxAge is how old a job workspace must be before a sweep removes it.
	DefaultMaxAge = 2 * time.Hour
)

// SweepResult summarises one janitor pass
type SweepResult struct {
	Removed []string
	Bytes   int64
	Errors  int
}

// Janitor periodically removes job workspaces a crashed or killed process
// left behind under the workspace root.
type Janitor struct {
	cron      *cron.Cron
	cronEntry cron.EntryID
	root      string
	maxAge    time.Duration
	schedule  string
	logger    pipeline.Logger
	now       func() time.Time
	inUse     func(path string) bool

	mutex     sync.RWMutex
	isRunning bool
	lastSweep SweepResult
}

// NewJanitor creates a janitor for root. It does nothing until Start.
func NewJanitor(root string, maxAge time.Duration, schedule string, logger pipeline.Logger) *Janitor {
	if schedule == "" {
		schedule = DefaultJanitorSchedule
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	if logger == nil {
		logger = pipeline.NullLogger()
	}
	return &Janitor{
		cron:     cron.New(cron.WithSeconds()),
		root:     root,
		maxAge:   maxAge,
		schedule: schedule,
		logger:   logger.With(pipeline.String("component", "janitor")),
		now:      time.Now,
	}
}

// SetInUse registers a check for workspaces that belong to running jobs.
// Sweeps leave those alone whatever their age. Call it before Start.
func (j *Janitor) SetInUse(fn func(path string) bool) {
	j.inUse = fn
}

// Start schedules periodic sweeps and runs one immediately in the background.
func (j *Janitor) Start() error {
	entryID, err := j.cron.AddFunc(j.schedule, j.runSweep)
	if err != nil {
		return fmt.Errorf("schedule workspace janitor %q: %w", j.schedule, err)
	}
	j.cronEntry = entryID
	j.cron.Start()

	j.logger.Info("Scheduled workspace janitor",
		pipeline.String("schedule", j.schedule),
		pipeline.Duration("max_age", j.maxAge),
	)

	go j.runSweep()
	return nil
}

func (j *Janitor) runSweep() {
	j.mutex.Lock()
	if j.isRunning {
		j.mutex.Unlock()
		j.logger.Debug("Sweep already in progress, skipping")
		return
	}
	j.isRunning = true
	j.mutex.Unlock()

	result := j.Sweep()

	j.mutex.Lock()
	j.isRunning = false
	j.lastSweep = result
	j.mutex.Unlock()
}

// Sweep removes every job workspace under root older than the max age.
func (j *Janitor) Sweep() SweepResult {
	var result SweepResult

	entries, err := os.ReadDir(j.root)
	if err != nil {
		if !os.IsNotExist(err) {
			j.logger.Warn("Failed to list workspace root", pipeline.String("root", j.root), pipeline.Error(err))
			result.Errors++
		}
		return result
	}

	cutoff := j.now().Add(-j.maxAge)
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), pipeline.WorkspacePrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			result.Errors++
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(j.root, entry.Name())
		if j.inUse != nil && j.inUse(path) {
			j.logger.Debug("Keeping stale workspace of a running job", pipeline.String("path", path))
			continue
		}
		size := dirSize(path)
		if err := os.RemoveAll(path); err != nil {
			j.logger.Warn("Failed to remove stale workspace", pipeline.String("path", path), pipeline.Error(err))
			result.Errors++
			continue
		}
		result.Removed = append(result.Removed, path)
		result.Bytes += size
	}

	if len(result.Removed) > 0 {
		j.logger.Info("Removed stale workspaces",
			pipeline.Int("count", len(result.Removed)),
			pipeline.String("reclaimed", humanize.IBytes(uint64(result.Bytes))),
		)
	}
	return result
}

// Stop stops the scheduler and waits for a running sweep to finish
func (j *Janitor) Stop() {
	if j.cron != nil {
		<-j.cron.Stop().Done()
		j.logger.Info("Workspace janitor stopped")
	}
}

// NextRun returns the next scheduled sweep time
func (j *Janitor) NextRun() time.Time {
	if j.cron != nil {
		if entry := j.cron.Entry(j.cronEntry); entry.Valid() {
			return entry.Next
		}
	}
	return time.Time{}
}

// IsRunning returns whether a sweep is currently in progress
func (j *Janitor) IsRunning() bool {
	j.mutex.RLock()
	defer j.mutex.RUnlock()
	return j.isRunning
}

// LastSweep returns the result of the most recent scheduled sweep
func (j *Janitor) LastSweep() SweepResult {
	j.mutex.RLock()
	defer j.mutex.RUnlock()
	return j.lastSweep
}

// Schedule returns the cron schedule
func (j *Janitor) Schedule() string {
	return j.schedule
}

func dirSize(path string) int64 {
	var total int64
	_ = filepath.WalkDir(path, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if info, infoErr := d.Info(); infoErr == nil && !d.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total
}
