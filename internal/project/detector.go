package project

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/instinct/internal/config"
	"github.com/fyrsmithlabs/instinct/internal/logging"
	"github.com/fyrsmithlabs/instinct/internal/registry"
)

// Detector resolves the current project.
type Detector interface {
	Detect(ctx context.Context) (Project, error)
}

// Static is a Detector that always returns the same project.
type Static Project

// Detect returns the wrapped project.
func (s Static) Detect(context.Context) (Project, error) {
	return Project(s), nil
}

// GitDetector finds the project from an environment variable naming its
// root, or else from the git repository enclosing the working directory.
// A detected project gets its directory tree created and its registry entry
// refreshed.
type GitDetector struct {
	layout   config.Layout
	envVar   string
	registry *registry.Registry
	logger   *logging.Logger

	getenv  func(string) string
	workDir func() (string, error)
}

// NewGitDetector creates a detector for cfg. reg may be nil to skip
// registry updates.
func NewGitDetector(cfg *config.Config, reg *registry.Registry, logger *logging.Logger) *GitDetector {
	if logger == nil {
		logger = logging.Nop()
	}
	return &GitDetector{
		layout:   cfg.Layout(),
		envVar:   cfg.ProjectDirEnv,
		registry: reg,
		logger:   logger,
		getenv:   os.Getenv,
		workDir:  os.Getwd,
	}
}

// Detect resolves the current project, falling back to Global.
func (d *GitDetector) Detect(ctx context.Context) (Project, error) {
	root := d.rootFromEnv()
	if root == "" {
		root = d.rootFromGit(ctx)
	}
	if root == "" {
		d.logger.Debug(ctx, "no project detected, using global store")
		return Global(d.layout), nil
	}

	remote := originURL(root)
	id := Fingerprint(remote, root)
	p := New(d.layout, id, filepath.Base(root), root, remote)

	if err := d.layout.EnsureProjectDirs(id); err != nil {
		return Project{}, fmt.Errorf("failed to prepare project %s: %w", id, err)
	}

	if d.registry != nil {
		entry := registry.Entry{Name: p.Name, Root: p.Root, Remote: p.Remote}
		if err := d.registry.Touch(ctx, id, entry); err != nil {
			d.logger.Warn(ctx, "failed to update project registry",
				zap.String("project.id", id),
				zap.Error(err),
			)
		}
	}

	d.logger.Debug(ctx, "project detected",
		zap.String("project.id", id),
		zap.String("name", p.Name),
		zap.String("root", root),
	)
	return p, nil
}

func (d *GitDetector) rootFromEnv() string {
	if d.envVar == "" {
		return ""
	}
	dir := d.getenv(d.envVar)
	if dir == "" {
		return ""
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return ""
	}
	return dir
}

func (d *GitDetector) rootFromGit(ctx context.Context) string {
	wd, err := d.workDir()
	if err != nil {
		return ""
	}
	repo, err := git.PlainOpenWithOptions(wd, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if !errors.Is(err, git.ErrRepositoryNotExists) {
			d.logger.Debug(ctx, "failed to open git repository", zap.String("dir", wd), zap.Error(err))
		}
		return ""
	}
	wt, err := repo.Worktree()
	if err != nil {
		return ""
	}
	return wt.Filesystem.Root()
}

// originURL returns the first URL of the origin remote of the repository
// enclosing root, or "".
func originURL(root string) string {
	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return ""
	}
	remote, err := repo.Remote("origin")
	if err != nil {
		return ""
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return ""
	}
	return urls[0]
}
