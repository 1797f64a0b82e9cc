package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/instinct/internal/aggregate"
	"github.com/fyrsmithlabs/instinct/internal/config"
	"github.com/fyrsmithlabs/instinct/internal/evolve"
	"github.com/fyrsmithlabs/instinct/internal/exchange"
	"github.com/fyrsmithlabs/instinct/internal/logging"
	"github.com/fyrsmithlabs/instinct/internal/project"
	"github.com/fyrsmithlabs/instinct/internal/promote"
	"github.com/fyrsmithlabs/instinct/internal/registry"
	"github.com/fyrsmithlabs/instinct/internal/secrets"
	"github.com/fyrsmithlabs/instinct/internal/store"
)

// app holds the components shared by every command.
type app struct {
	opts options

	cfg      *config.Config
	logger   *logging.Logger
	registry *registry.Registry
	detector project.Detector
	loader   *store.Loader
	agg      *aggregate.Aggregator

	fetcher   *exchange.Fetcher
	importer  *exchange.Importer
	exporter  *exchange.Exporter
	analyzer  *evolve.Analyzer
	generator *evolve.Generator
	promoter  *promote.Promoter
}

// setup loads configuration and wires components for one invocation.
func (a *app) setup(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a.cfg = cfg

	logCfg, err := logging.FromSettings(cfg.Logging)
	if err != nil {
		return err
	}
	logger, err := logging.NewLogger(logCfg, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	a.logger = logger

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logging.WithRunID(ctx, logging.NewRunID())
	cmd.SetContext(ctx)

	layout := cfg.Layout()
	if err := layout.EnsureGlobalDirs(); err != nil {
		return fmt.Errorf("failed to create storage directories: %w", err)
	}

	scrubber := secrets.Scrubber(secrets.NoopScrubber{})
	if cfg.Import.ScrubSecrets {
		scrubber, err = secrets.New(secrets.DefaultConfig())
		if err != nil {
			return fmt.Errorf("failed to create secret scrubber: %w", err)
		}
	}

	now := a.opts.now
	if now == nil {
		now = time.Now
	}
	a.registry = registry.New(layout.RegistryFile(), logger.Named("registry"), registry.WithClock(now))
	a.loader = store.NewLoader(logger.Named("store"))
	a.agg = aggregate.New(layout, a.loader, logger.Named("aggregate"))
	a.fetcher = exchange.NewFetcher(cfg.Import.FetchTimeout)
	a.importer = exchange.NewImporter(layout, a.agg, scrubber, logger.Named("import"), exchange.WithImportClock(now))
	a.exporter = exchange.NewExporter(a.agg)
	a.analyzer = evolve.NewAnalyzer(cfg.Evolve)
	a.generator = evolve.NewGenerator(cfg.Evolve, logger.Named("evolve"))
	a.promoter = promote.New(cfg, a.registry, a.agg, a.loader, logger.Named("promote"), promote.WithClock(now))

	if a.opts.detector != nil {
		a.detector = a.opts.detector(a)
	} else {
		a.detector = project.NewGitDetector(cfg, a.registry, logger.Named("project"))
	}

	logger.Debug(ctx, "configuration loaded",
		zap.String("home", cfg.Home),
		zap.String("command", cmd.Name()),
	)
	return nil
}

func (a *app) close() {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// detect resolves the current project and tags ctx with its id.
func (a *app) detect(cmd *cobra.Command) (context.Context, project.Project, error) {
	ctx := cmd.Context()
	p, err := a.detector.Detect(ctx)
	if err != nil {
		return ctx, p, fmt.Errorf("failed to detect project: %w", err)
	}
	ctx = logging.WithProjectID(ctx, p.ID)
	cmd.SetContext(ctx)
	return ctx, p, nil
}

// confirm asks a yes/no question on the command's streams. Anything but
// "y" or "yes" declines.
func confirm(cmd *cobra.Command, prompt string) (bool, error) {
	cmd.Printf("\n%s [y/N] ", prompt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// observationCount returns the event count of path, or -1 when it does not
// exist.
func observationCount(path string) int {
	if !store.Exists(path) {
		return -1
	}
	n, err := store.CountLines(path)
	if err != nil {
		return -1
	}
	return n
}
