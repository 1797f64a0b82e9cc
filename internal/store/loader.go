// Package store reads and writes instinct files on the local file system.
package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/instinct/internal/instinct"
	"github.com/fyrsmithlabs/instinct/internal/logging"
)

// RecordExt is the extension of instinct files.
const RecordExt = ".yaml"

// FileError reports a file whose records were skipped.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e FileError) Unwrap() error {
	return e.Err
}

// Loader reads every instinct file of a storage directory.
type Loader struct {
	logger *logging.Logger
}

// NewLoader creates a Loader. A nil logger discards output.
func NewLoader(logger *logging.Logger) *Loader {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Loader{logger: logger}
}

// LoadDir returns the records of every *.yaml file directly inside dir, in
// lexical file order, annotated with provenance. Records without an explicit
// scope take label.
//
// A missing or unreadable dir yields no records. A file that cannot be read
// or parsed is logged, reported in the returned FileErrors, and skipped.
func (l *Loader) LoadDir(ctx context.Context, dir string, kind instinct.Kind, label instinct.Scope) ([]*instinct.Instinct, []FileError) {
	files, err := RecordFiles(dir)
	if err != nil {
		l.logger.Debug(ctx, "instinct directory not readable",
			zap.String("dir", dir),
			zap.Error(err),
		)
		return nil, nil
	}

	var (
		out    []*instinct.Instinct
		failed []FileError
	)
	for _, path := range files {
		records, err := loadFile(path)
		if err != nil {
			l.logger.Warn(ctx, "failed to parse instinct file",
				zap.String("path", path),
				zap.Error(err),
			)
			failed = append(failed, FileError{Path: path, Err: err})
			continue
		}
		for _, inst := range records {
			inst.SourceFile = path
			inst.SourceKind = kind
			inst.ScopeLabel = label
			if inst.Scope == "" {
				inst.Scope = label
			}
		}
		out = append(out, records...)
	}

	l.logger.Trace(ctx, "loaded instinct directory",
		zap.String("dir", dir),
		zap.String("kind", string(kind)),
		zap.Int("records", len(out)),
		zap.Int("failed_files", len(failed)),
	)
	return out, failed
}

func loadFile(path string) ([]*instinct.Instinct, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return instinct.Parse(string(data))
}

// RecordFiles lists the instinct files directly inside dir, sorted.
// A missing dir returns no files and no error.
func RecordFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), RecordExt) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// CountRecordFiles returns the number of instinct files in dir, 0 when it
// cannot be read.
func CountRecordFiles(dir string) int {
	files, err := RecordFiles(dir)
	if err != nil {
		return 0
	}
	return len(files)
}
