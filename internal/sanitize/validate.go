// Package sanitize provides path validation for user-supplied files and
// identifier derivation for generated artifacts.
package sanitize

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Validation errors for security checks.
var (
	// ErrEmptyPath indicates an empty path was provided.
	ErrEmptyPath = errors.New("path cannot be empty")

	// ErrSystemPath indicates a path resolves into a protected system directory.
	ErrSystemPath = errors.New("path targets a system directory")

	// ErrPathNotExist indicates a required path does not exist.
	ErrPathNotExist = errors.New("path does not exist")

	// ErrUnsafeFileName indicates a value cannot be used as a single file name.
	ErrUnsafeFileName = errors.New("unsafe file name")
)

// blockedPrefixes are system directories user files must never resolve into.
// Temporary directories (/var/folders on macOS) stay allowed.
var blockedPrefixes = []string{
	"/etc", "/usr", "/bin", "/sbin", "/proc", "/sys",
	"/var/log", "/var/run", "/var/lib", "/var/spool",
	// macOS resolves /etc to /private/etc
	"/private/etc",
	"/private/var/log", "/private/var/run", "/private/var/db",
}

// ValidateFilePath expands "~", resolves path to an absolute path following
// symlinks where possible, and rejects paths inside system directories.
// With mustExist, a missing path is rejected with ErrPathNotExist.
func ValidateFilePath(path string, mustExist bool) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", ErrEmptyPath
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	resolved := resolveSymlinks(absPath)

	for _, prefix := range blockedPrefixes {
		if resolved == prefix || strings.HasPrefix(resolved, prefix+"/") {
			return "", fmt.Errorf("%w: %s", ErrSystemPath, resolved)
		}
	}

	if mustExist {
		if _, err := os.Stat(resolved); err != nil {
			if os.IsNotExist(err) {
				return "", fmt.Errorf("%w: %s", ErrPathNotExist, resolved)
			}
			return "", fmt.Errorf("failed to stat %s: %w", resolved, err)
		}
	}

	return resolved, nil
}

// resolveSymlinks follows symlinks on the longest existing prefix of path.
func resolveSymlinks(path string) string {
	if r, err := filepath.EvalSymlinks(path); err == nil {
		return r
	}
	parent := filepath.Dir(path)
	if parent == path {
		return path
	}
	return filepath.Join(resolveSymlinks(parent), filepath.Base(path))
}

// ValidateFileName checks that name can be used as a single path element.
func ValidateFileName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty", ErrUnsafeFileName)
	}
	if len(name) > 255 {
		return fmt.Errorf("%w: too long (max 255)", ErrUnsafeFileName)
	}
	if name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrUnsafeFileName, name)
	}
	if strings.ContainsAny(name, "/\\\x00") {
		return fmt.Errorf("%w: %q contains a path separator", ErrUnsafeFileName, name)
	}
	return nil
}
