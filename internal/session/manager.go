package session

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// Endpoint is one control-plane session bound to a workspace.
type Endpoint interface {
	Start(workspace string) error
	Stop()
	UpdateActiveFile(path, content string)
}

// Factory builds an endpoint that reads and writes the given tracker.
type Factory func(tracker *Tracker) Endpoint

// Manager owns the single control-plane session of the process. Opening a
// workspace always stops the previous session first.
type Manager struct {
	mu        sync.Mutex
	factory   Factory
	tracker   *Tracker
	current   Endpoint
	workspace string
	logger    *zap.SugaredLogger
}

// NewManager creates a manager with no live session.
func NewManager(factory Factory, logger *zap.SugaredLogger) *Manager {
	return &Manager{
		factory: factory,
		tracker: NewTracker(),
		logger:  logger,
	}
}

// Open starts a session for workspace, stopping any live one.
func (m *Manager) Open(workspace string) error {
	abs, err := filepath.Abs(workspace)
	if err != nil {
		return fmt.Errorf("resolve workspace %s: %w", workspace, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("workspace does not exist: %s", abs)
	}
	if !info.IsDir() {
		return fmt.Errorf("workspace is not a directory: %s", abs)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked()

	ep := m.factory(m.tracker)
	if err := ep.Start(abs); err != nil {
		ep.Stop()
		return fmt.Errorf("start session for %s: %w", abs, err)
	}

	m.current = ep
	m.workspace = abs
	m.logger.Infow("session opened", "workspace", abs)
	return nil
}

// Close stops the live session. Safe to call repeatedly or before Open.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked()
}

func (m *Manager) stopLocked() {
	if m.current == nil {
		return
	}
	m.current.Stop()
	m.logger.Infow("session closed", "workspace", m.workspace)
	m.current = nil
	m.workspace = ""
}

// UpdateActiveFile records the host's new active file and, when a session
// is live, lets it notify its peers.
func (m *Manager) UpdateActiveFile(path, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		m.current.UpdateActiveFile(path, content)
		return
	}
	m.tracker.Set(path, content)
}

// Workspace returns the workspace of the live session, or "".
func (m *Manager) Workspace() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.workspace
}

// Tracker returns the active file state shared by every session.
func (m *Manager) Tracker() *Tracker {
	return m.tracker
}
