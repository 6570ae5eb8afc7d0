package session

import "sync"

// ActiveFile is the file the host application last reported as focused.
type ActiveFile struct {
	Path    string
	Content string
}

// Tracker holds the latest ActiveFile. Every Set replaces the previous value
// wholesale; no history is kept.
type Tracker struct {
	mu   sync.RWMutex
	file ActiveFile
	set  bool
}

// NewTracker returns a tracker with no active file.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Set records a new active file and its full content.
func (t *Tracker) Set(path, content string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.file = ActiveFile{Path: path, Content: content}
	t.set = true
}

// Current returns the active file, or false if none has been reported yet.
func (t *Tracker) Current() (ActiveFile, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.file, t.set
}
