// Package project resolves which project the tool is running for and where
// that project's instinct stores live.
//
// A project is identified by a fingerprint: the first 12 hex characters of
// the SHA-256 of its origin remote URL, or of its root path when it has no
// remote. Running outside any project selects the global pseudo-project,
// whose stores are the global stores themselves.
package project

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"

	"github.com/fyrsmithlabs/instinct/internal/config"
)

// FingerprintLen is the number of hex characters in a project fingerprint.
const FingerprintLen = 12

// Project is a detected unit of work and its storage locations.
type Project struct {
	ID     string
	Name   string
	Root   string
	Remote string

	Dir              string
	PersonalDir      string
	InheritedDir     string
	EvolvedDir       string
	ObservationsFile string
}

// IsGlobal reports whether p is the global pseudo-project.
func (p Project) IsGlobal() bool {
	return p.ID == config.GlobalID
}

// Global returns the pseudo-project used when no project is detected.
func Global(layout config.Layout) Project {
	return Project{
		ID:               config.GlobalID,
		Name:             config.GlobalID,
		Dir:              layout.Home,
		PersonalDir:      layout.GlobalPersonalDir(),
		InheritedDir:     layout.GlobalInheritedDir(),
		EvolvedDir:       layout.GlobalEvolvedDir(),
		ObservationsFile: layout.GlobalObservationsFile(),
	}
}

// New returns the project with fingerprint id rooted in layout.
func New(layout config.Layout, id, name, root, remote string) Project {
	if id == config.GlobalID {
		return Global(layout)
	}
	dir := layout.ProjectDir(id)
	return Project{
		ID:               id,
		Name:             name,
		Root:             root,
		Remote:           remote,
		Dir:              dir,
		PersonalDir:      layout.ProjectPersonalDir(id),
		InheritedDir:     layout.ProjectInheritedDir(id),
		EvolvedDir:       filepath.Join(dir, "evolved"),
		ObservationsFile: layout.ProjectObservationsFile(id),
	}
}

// Fingerprint derives a project id from its remote URL, falling back to the
// root path when remote is empty.
func Fingerprint(remote, root string) string {
	source := remote
	if source == "" {
		source = root
	}
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])[:FingerprintLen]
}
