// Package registry tracks every project the tool has seen.
//
// The registry is a single JSON object keyed by project fingerprint:
//
//	<home>/projects.json
//	{
//	  "a1b2c3d4e5f6": {
//	    "name": "api",
//	    "root": "/src/api",
//	    "remote": "git@github.com:acme/api.git",
//	    "last_seen": "2025-01-02T03:04:05.000000Z"
//	  }
//	}
//
// It is rewritten as a whole on every update. A missing or unreadable file
// reads as an empty registry.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/instinct/internal/logging"
)

// Errors for registry operations.
var (
	ErrInvalidID         = errors.New("invalid project id: must be alphanumeric with hyphens/underscores")
	ErrRegistryCorrupted = errors.New("registry file corrupted")
)

// idPattern validates project fingerprints used as directory names.
var idPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// TimeLayout formats last_seen as UTC ISO-8601 with microseconds.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

// Entry is the last-known metadata of one project.
type Entry struct {
	Name     string `json:"name"`
	Root     string `json:"root"`
	Remote   string `json:"remote"`
	LastSeen string `json:"last_seen"`
}

// Record pairs an Entry with its fingerprint.
type Record struct {
	ID string
	Entry
}

// Registry reads and writes the project registry file.
type Registry struct {
	mu       sync.RWMutex
	filePath string
	logger   *logging.Logger
	now      func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the time source for last_seen.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// New creates a registry backed by filePath.
func New(filePath string, logger *logging.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = logging.Nop()
	}
	r := &Registry{
		filePath: filePath,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ValidateID checks that id is safe to use as a directory name.
func ValidateID(id string) error {
	if id == "" || len(id) > 255 {
		return ErrInvalidID
	}
	if !idPattern.MatchString(id) || filepath.Clean(id) != id {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// Load returns all entries. A missing file yields an empty map; a corrupt
// file is logged and also yields an empty map.
func (r *Registry) Load(ctx context.Context) map[string]Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries, err := r.load()
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			r.logger.Warn(ctx, "ignoring unreadable project registry",
				zap.String("path", r.filePath),
				zap.Error(err),
			)
		}
		return map[string]Entry{}
	}
	return entries
}

// Touch records a detection of project id, replacing its metadata and
// stamping last_seen with the current time.
func (r *Registry) Touch(ctx context.Context, id string, entry Entry) error {
	if err := ValidateID(id); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.load()
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			r.logger.Warn(ctx, "replacing unreadable project registry",
				zap.String("path", r.filePath),
				zap.Error(err),
			)
		}
		entries = map[string]Entry{}
	}

	entry.LastSeen = r.now().UTC().Format(TimeLayout)
	entries[id] = entry

	if err := r.save(entries); err != nil {
		return err
	}
	r.logger.Debug(ctx, "project registered",
		zap.String("project.id", id),
		zap.String("name", entry.Name),
	)
	return nil
}

// ByLastSeen returns entries ordered by last_seen, most recent first. Ties
// order by fingerprint.
func ByLastSeen(entries map[string]Entry) []Record {
	out := make([]Record, 0, len(entries))
	for id, e := range entries {
		out = append(out, Record{ID: id, Entry: e})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastSeen != out[j].LastSeen {
			return out[i].LastSeen > out[j].LastSeen
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// load reads the registry from disk.
func (r *Registry) load() (map[string]Entry, error) {
	data, err := os.ReadFile(r.filePath)
	if err != nil {
		return nil, err
	}

	var entries map[string]Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRegistryCorrupted, err)
	}
	if entries == nil {
		entries = map[string]Entry{}
	}
	return entries, nil
}

// save writes the registry to disk.
func (r *Registry) save(entries map[string]Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.filePath), 0o755); err != nil {
		return fmt.Errorf("failed to create registry directory: %w", err)
	}

	// Write atomically
	tmpPath := r.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write registry: %w", err)
	}

	if err := os.Rename(tmpPath, r.filePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename registry: %w", err)
	}

	return nil
}
