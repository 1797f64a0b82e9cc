// Package main implements the instinct CLI for managing learned instincts
// across projects.
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/instinct/internal/project"
)

// version information
var version = "dev"

// errReported marks a failure that has already been explained on stdout.
var errReported = errors.New("failure already reported")

func main() {
	if err := newRootCmd(defaultOptions()).Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd(opts options) *cobra.Command {
	var configPath string
	a := &app{opts: opts}

	root := &cobra.Command{
		Use:   "instinct",
		Short: "Manage learned instincts for projects and the global store",
		Long: `instinct manages small trigger/action records learned while working.

Records live either in the current project's store or in the global store
that applies everywhere. Projects are detected from the enclosing git
repository.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd, configPath)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.claude/homunculus/config.yaml)")

	root.AddCommand(
		newStatusCmd(a),
		newImportCmd(a),
		newExportCmd(a),
		newEvolveCmd(a),
		newPromoteCmd(a),
		newProjectsCmd(a),
	)
	return root
}

// options holds the seams tests replace.
type options struct {
	// detector overrides git project detection when set.
	detector func(a *app) project.Detector
	now      func() time.Time
}

func defaultOptions() options {
	return options{now: time.Now}
}
