// Package docstore is the file-backed state store shared with the
// external stimulus and feedback processes. Each document is a single
// JSON object at a well-known path under the runtime directory; there is
// no locking, so readers must treat a missing or partially written file
// as equivalent to absent and fall back to the canonical default.
package docstore

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/mi-lab/backend/internal/session"
)

const (
	configFile   = "config.json"
	statusFile   = "status.json"
	feedbackFile = "feedback.json"
)

type Store struct {
	dir string
}

// New creates a store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create runtime dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// ConfigPath is the path handed to the spawned processes via --config.
func (s *Store) ConfigPath() string { return filepath.Join(s.dir, configFile) }

func (s *Store) statusPath() string   { return filepath.Join(s.dir, statusFile) }
func (s *Store) feedbackPath() string { return filepath.Join(s.dir, feedbackFile) }

// WriteConfig persists the session configuration consumed by the
// external processes at their startup.
func (s *Store) WriteConfig(cfg session.Config) error {
	return s.writeJSON(s.ConfigPath(), cfg)
}

// WriteStatus persists a status document. Used only for the initial
// practice document and terminal reconciliation; all intermediate
// transitions are written by the stimulus process itself.
func (s *Store) WriteStatus(st session.Status) error {
	return s.writeJSON(s.statusPath(), st)
}

// ReadStatus returns the persisted status, or the canonical idle
// document if the file is absent or unparseable. It never returns an
// error: a truncated mid-write document from a killed child is expected
// and must not break a poll.
func (s *Store) ReadStatus() session.Status {
	var st session.Status
	if !s.readJSON(s.statusPath(), &st) {
		return session.IdleStatus()
	}
	if st.State == "" {
		return session.IdleStatus()
	}
	return st
}

// WriteFeedback persists a feedback snapshot. Normally feedback.json is
// produced by the feedback process; this is used by the mock simulator.
func (s *Store) WriteFeedback(fb session.Feedback) error {
	return s.writeJSON(s.feedbackPath(), fb)
}

// ReadFeedback returns the persisted feedback snapshot, or the canonical
// disconnected document if absent or unparseable.
func (s *Store) ReadFeedback() session.Feedback {
	var fb session.Feedback
	if !s.readJSON(s.feedbackPath(), &fb) {
		return session.DisconnectedFeedback("Feedback processor not running")
	}
	return fb
}

// DeleteFeedback removes feedback.json so stale readings cannot leak
// into the next session's initial display. Absence is not an error.
func (s *Store) DeleteFeedback() {
	removeIfPresent(s.feedbackPath())
}

// DeleteStatus removes status.json. Only used by tests and resets;
// normal operation overwrites rather than deletes.
func (s *Store) DeleteStatus() {
	removeIfPresent(s.statusPath())
}

// writeJSON writes atomically via temp file + rename, matching the write
// discipline of the external processes so observers never see a partial
// document from the orchestrator side.
func (s *Store) writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	tmp := fmt.Sprintf("%s.%d.tmp", path, os.Getpid())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}

// readJSON reports whether a well-formed document was read into v.
func (s *Store) readJSON(path string, v any) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

// removeIfPresent deletes the document, treating absence as success.
// Other failures are logged only; the next write clobbers the file
// anyway.
func removeIfPresent(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("docstore: removing %s: %v", filepath.Base(path), err)
	}
}
