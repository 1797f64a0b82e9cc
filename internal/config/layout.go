package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// GlobalID is the fingerprint of the global pseudo-project.
const GlobalID = "global"

// Layout resolves every storage path under a single root.
//
//	<home>/
//	├── projects.json
//	├── observations.jsonl
//	├── instincts/{personal,inherited}/     ← global store
//	├── evolved/{skills,commands,agents}/
//	└── projects/<id>/
//	    ├── instincts/{personal,inherited}/
//	    ├── evolved/{skills,commands,agents}/
//	    ├── observations.jsonl
//	    └── observations.archive/
type Layout struct {
	Home string
}

// RegistryFile returns the project registry path.
func (l Layout) RegistryFile() string {
	return filepath.Join(l.Home, "projects.json")
}

// ProjectsDir returns the directory holding per-project stores.
func (l Layout) ProjectsDir() string {
	return filepath.Join(l.Home, "projects")
}

// GlobalPersonalDir returns the global personal instinct store.
func (l Layout) GlobalPersonalDir() string {
	return filepath.Join(l.Home, "instincts", "personal")
}

// GlobalInheritedDir returns the global inherited instinct store.
func (l Layout) GlobalInheritedDir() string {
	return filepath.Join(l.Home, "instincts", "inherited")
}

// GlobalEvolvedDir returns the global evolved artifact root.
func (l Layout) GlobalEvolvedDir() string {
	return filepath.Join(l.Home, "evolved")
}

// GlobalObservationsFile returns the global observation log.
func (l Layout) GlobalObservationsFile() string {
	return filepath.Join(l.Home, "observations.jsonl")
}

// ProjectDir returns the storage root of a project fingerprint.
func (l Layout) ProjectDir(id string) string {
	return filepath.Join(l.ProjectsDir(), id)
}

// ProjectPersonalDir returns a project's personal instinct store.
func (l Layout) ProjectPersonalDir(id string) string {
	return filepath.Join(l.ProjectDir(id), "instincts", "personal")
}

// ProjectInheritedDir returns a project's inherited instinct store.
func (l Layout) ProjectInheritedDir(id string) string {
	return filepath.Join(l.ProjectDir(id), "instincts", "inherited")
}

// ProjectObservationsFile returns a project's observation log.
func (l Layout) ProjectObservationsFile(id string) string {
	return filepath.Join(l.ProjectDir(id), "observations.jsonl")
}

// EnsureGlobalDirs creates the global store, the global evolved tree and the
// projects directory.
func (l Layout) EnsureGlobalDirs() error {
	evolved := l.GlobalEvolvedDir()
	return mkdirAll(
		l.GlobalPersonalDir(),
		l.GlobalInheritedDir(),
		filepath.Join(evolved, "skills"),
		filepath.Join(evolved, "commands"),
		filepath.Join(evolved, "agents"),
		l.ProjectsDir(),
	)
}

// EnsureProjectDirs creates the directory tree of a project fingerprint.
func (l Layout) EnsureProjectDirs(id string) error {
	dir := l.ProjectDir(id)
	return mkdirAll(
		l.ProjectPersonalDir(id),
		l.ProjectInheritedDir(id),
		filepath.Join(dir, "observations.archive"),
		filepath.Join(dir, "evolved", "skills"),
		filepath.Join(dir, "evolved", "commands"),
		filepath.Join(dir, "evolved", "agents"),
	)
}

func mkdirAll(dirs ...string) error {
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", d, err)
		}
	}
	return nil
}
