package pipeline

import (
	"fmt"
	"os"
	"sync"
)

// WorkspacePrefix is the directory name prefix of every job workspace.
const WorkspacePrefix = "job-"

// Workspace is a temporary directory owned by exactly one job
type Workspace struct {
	Path string

	mu       sync.Mutex
	released bool
}

// NewWorkspace creates a fresh directory for jobID under root. An empty root
// uses the system temp directory.
func NewWorkspace(root, jobID string) (*Workspace, error) {
	if root != "" {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, fmt.Errorf("create workspace root: %w", err)
		}
	}

	dir, err := os.MkdirTemp(root, WorkspacePrefix+jobID+"-")
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Workspace{Path: dir}, nil
}

// Cleanup removes the workspace and everything in it. Calling it again is a no-op.
func (w *Workspace) Cleanup() error {
	if w == nil {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.released {
		return nil
	}
	if err := os.RemoveAll(w.Path); err != nil {
		return fmt.Errorf("remove workspace %s: %w", w.Path, err)
	}
	w.released = true
	return nil
}
