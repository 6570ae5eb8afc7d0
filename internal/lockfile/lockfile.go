// Package lockfile writes the session descriptor that lets a coding
// assistant discover a running IDE session: <dir>/<port>.lock.
package lockfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	TransportWebSocket = "ws"
	extension          = ".lock"
)

var ErrNotInitialized = errors.New("cannot write lock file: server not fully initialized")

// Descriptor is the JSON body of a lock file.
type Descriptor struct {
	PID              int      `json:"pid"`
	WorkspaceFolders []string `json:"workspaceFolders"`
	IDEName          string   `json:"ideName"`
	Transport        string   `json:"transport"`
	AuthToken        string   `json:"authToken"`
}

// Lockfile is the descriptor for one session.
type Lockfile struct {
	dir  string
	path string
}

// DefaultDir returns <home>/.claude/ide, the directory the assistant scans.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".claude", "ide"), nil
}

// New returns a lock file rooted at dir. Nothing is written until Write.
func New(dir string) *Lockfile {
	return &Lockfile{dir: dir}
}

// Path returns the file written by the last successful Write, or "".
func (l *Lockfile) Path() string {
	return l.path
}

// Write creates <dir>/<port>.lock for the session.
func (l *Lockfile) Write(port int, workspace, ideName, token string) error {
	if port <= 0 || workspace == "" || token == "" {
		return ErrNotInitialized
	}

	if err := os.MkdirAll(l.dir, 0o700); err != nil {
		return fmt.Errorf("create lock file directory: %w", err)
	}

	data, err := json.MarshalIndent(Descriptor{
		PID:              os.Getpid(),
		WorkspaceFolders: []string{workspace},
		IDEName:          ideName,
		Transport:        TransportWebSocket,
		AuthToken:        token,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal descriptor: %w", err)
	}

	path := filepath.Join(l.dir, strconv.Itoa(port)+extension)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write lock file: %w", err)
	}
	l.path = path
	return nil
}

// Remove deletes the lock file. A file that is already gone is not an error.
func (l *Lockfile) Remove() error {
	if l.path == "" {
		return nil
	}
	path := l.path
	l.path = ""

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove lock file %s: %w", path, err)
	}
	return nil
}

// Read parses the descriptor at path.
func Read(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse lock file %s: %w", path, err)
	}
	return &d, nil
}

// Entry is a discovered lock file.
type Entry struct {
	Port       int
	Path       string
	Descriptor *Descriptor
}

// List scans dir for lock files. Unparseable files are skipped.
func List(dir string) ([]Entry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var result []Entry
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, extension) {
			continue
		}
		port, err := strconv.Atoi(strings.TrimSuffix(name, extension))
		if err != nil {
			continue
		}
		path := filepath.Join(dir, name)
		d, err := Read(path)
		if err != nil {
			continue
		}
		result = append(result, Entry{Port: port, Path: path, Descriptor: d})
	}
	return result, nil
}
