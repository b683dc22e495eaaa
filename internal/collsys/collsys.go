// Package collsys records metrics for a single test or training run.
//
// A Session is a context-managed recording: open it with Start, emit
// checkpoints and metrics while the run progresses, and Close it when the run
// ends. Records are appended as JSON lines to one file per session under the
// collection directory (SHAPE_TRAINER_COLLSYS_DIR, defaulting to the system
// temp directory), so a crashed run still leaves everything written so far on
// disk.
package collsys

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ironsheep/shape-trainer/internal/logging"
)

// EnvCollectionDir overrides where session files are written.
const EnvCollectionDir = "SHAPE_TRAINER_COLLSYS_DIR"

// Record is one line in a session file.
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"` // "setup", "internal", "final", "metadata"
	Name      string    `json:"name"`
	Value     string    `json:"value"`
}

// Session records checkpoints, final metrics, and metadata for one run.
// All methods are safe for concurrent use. Methods called before Start or
// after Close are dropped with a warning rather than failing the run.
type Session struct {
	name  string
	setup map[string]string
	log   zerolog.Logger

	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewSession creates a session with the given name and setup metadata
// (scenario, subject, model, project and similar run descriptors).
func NewSession(name string, setup map[string]string) *Session {
	return &Session{
		name:  name,
		setup: setup,
		log:   logging.New("collsys"),
	}
}

// Start opens the session file and writes one setup record per entry.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file != nil {
		return fmt.Errorf("session %q already started", s.name)
	}

	dir := os.Getenv(EnvCollectionDir)
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "shape-trainer-collsys")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create collection dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s-%d.jsonl", s.name, time.Now().UnixNano()))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create session file: %w", err)
	}
	s.file = f
	s.enc = json.NewEncoder(f)

	for k, v := range s.setup {
		s.write(Record{Timestamp: time.Now().UTC(), Kind: "setup", Name: k, Value: v})
	}
	s.log.Info().Str("session", s.name).Str("path", path).Msg("collection session started")
	return nil
}

// LogInternalMetric records an intermediate checkpoint. When flush is true
// the record is forced to disk before returning.
func (s *Session) LogInternalMetric(name, value string, flush bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.write(Record{Timestamp: time.Now().UTC(), Kind: "internal", Name: name, Value: value})
	if flush && s.file != nil {
		if err := s.file.Sync(); err != nil {
			s.log.Warn().Err(err).Msg("failed to flush session file")
		}
	}
}

// LogFinalMetric records a named numeric result of the run.
func (s *Session) LogFinalMetric(name string, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.write(Record{
		Timestamp: time.Now().UTC(),
		Kind:      "final",
		Name:      name,
		Value:     fmt.Sprintf("%g", value),
	})
}

// UpdateMetadata records a key/value pair describing the run.
func (s *Session) UpdateMetadata(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.write(Record{Timestamp: time.Now().UTC(), Kind: "metadata", Name: key, Value: value})
}

// Close flushes and closes the session file. A session cannot be restarted.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.enc = nil
	if err != nil {
		return fmt.Errorf("failed to close session file: %w", err)
	}
	return nil
}

// write must be called with the mutex held.
func (s *Session) write(r Record) {
	if s.enc == nil {
		s.log.Warn().Str("name", r.Name).Msg("record dropped: session not open")
		return
	}
	if err := s.enc.Encode(r); err != nil {
		s.log.Warn().Err(err).Str("name", r.Name).Msg("failed to write record")
	}
}
