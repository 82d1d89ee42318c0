package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"slackharvest/pkg/logger"
	"slackharvest/pkg/slack"
)

// Progress is the durable resume marker. Exactly one field is live per
// job type: NextIndex for the replies job (position in the thread work
// list), LastSeenTS for the channel listing job (newest exported ts,
// used as the lower bound of the next run).
type Progress struct {
	NextIndex  int       `json:"last_processed_index"`
	LastSeenTS string    `json:"last_seen_ts,omitempty"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
}

// Files names the durable snapshot files relative to the store directory
type Files struct {
	Threads  string
	Replies  string
	Progress string
}

// Store owns the durable result snapshots and the resume marker. Every
// write replaces the whole file atomically; a partially written file is
// never observable.
type Store struct {
	dir    string
	files  Files
	logger logger.Logger
}

// NewStore creates a snapshot store rooted at dir
func NewStore(dir string, files Files, log logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Store{dir: dir, files: files, logger: log}, nil
}

// LoadThreads reads the thread snapshot. Missing or corrupt state is
// treated as empty rather than failing the job.
func (s *Store) LoadThreads() []slack.ThreadRecord {
	var threads []slack.ThreadRecord
	s.readJSON(s.files.Threads, &threads)
	return threads
}

// SaveThreads atomically replaces the thread snapshot
func (s *Store) SaveThreads(threads []slack.ThreadRecord) error {
	if threads == nil {
		threads = []slack.ThreadRecord{}
	}
	return s.writeJSON(s.files.Threads, threads)
}

// LoadReplies reads the reply snapshot, tolerating absent/corrupt state
func (s *Store) LoadReplies() []slack.Message {
	var replies []slack.Message
	s.readJSON(s.files.Replies, &replies)
	return replies
}

// SaveReplies atomically replaces the reply snapshot
func (s *Store) SaveReplies(replies []slack.Message) error {
	if replies == nil {
		replies = []slack.Message{}
	}
	return s.writeJSON(s.files.Replies, replies)
}

// LoadProgress reads the resume marker, defaulting to the zero marker
// when it is absent or unreadable.
func (s *Store) LoadProgress() Progress {
	var p Progress
	if !s.readJSON(s.files.Progress, &p) {
		return Progress{}
	}
	if p.NextIndex < 0 {
		return Progress{}
	}
	return p
}

// SaveProgress atomically replaces the resume marker
func (s *Store) SaveProgress(p Progress) error {
	p.UpdatedAt = time.Now()
	return s.writeJSON(s.files.Progress, p)
}

// ResetIndex returns the index marker to its initial value so the next
// invocation starts clean. The ts boundary is preserved.
func (s *Store) ResetIndex() error {
	p := s.LoadProgress()
	p.NextIndex = 0
	return s.SaveProgress(p)
}

// Path returns the absolute path of one of the store's files
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// readJSON reports whether the file existed and decoded cleanly.
// Corruption is logged and treated as absence.
func (s *Store) readJSON(name string, target interface{}) bool {
	path := s.Path(name)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.WarnWithFields("unreadable state file, starting fresh", map[string]interface{}{
				"path":  path,
				"error": err.Error(),
			})
		}
		return false
	}
	if err := json.Unmarshal(data, target); err != nil {
		s.logger.WarnWithFields("corrupt state file, starting fresh", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		return false
	}
	return true
}

// writeJSON writes to a temporary file, syncs, then renames over the
// destination so the old snapshot stays intact until the new one is
// durable.
func (s *Store) writeJSON(name string, value interface{}) error {
	path := s.Path(name)
	tempPath := path + ".tmp"

	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(value); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync %s: %w", name, err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close %s: %w", name, err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}

	return nil
}
