package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/instinct/internal/exchange"
	"github.com/fyrsmithlabs/instinct/internal/report"
	"github.com/fyrsmithlabs/instinct/internal/sanitize"
	"github.com/fyrsmithlabs/instinct/internal/store"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		output        string
		domain        string
		minConfidence float64
		scope         string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export instincts as a shareable file",
		Long: `Export instincts in the instinct file format.

The output goes to stdout unless --output is given.

Examples:
  # Export everything visible from the current project
  instinct export -o instincts.yaml

  # Export confident testing instincts from the global store
  instinct export --scope global --domain testing --min-confidence 0.8`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := exchange.ExportOptions{
				Scope:         exchange.ExportScope(scope),
				Domain:        domain,
				MinConfidence: minConfidence,
			}
			if !opts.Scope.Valid() {
				return fmt.Errorf("invalid scope %q: must be project, global or all", scope)
			}

			ctx, p, err := a.detect(cmd)
			if err != nil {
				return err
			}
			out := report.New(cmd.OutOrStdout())

			list, err := a.exporter.Select(ctx, p, opts)
			switch {
			case errors.Is(err, exchange.ErrNoInstincts):
				out.Line("No instincts to export.")
				return errReported
			case errors.Is(err, exchange.ErrNoMatch):
				out.Line("No instincts match the criteria.")
				return errReported
			case err != nil:
				return err
			}

			text := a.exporter.Render(p, opts, list)
			if output == "" {
				fmt.Fprint(cmd.OutOrStdout(), text)
				return nil
			}

			path, err := sanitize.ValidateFilePath(output, false)
			if err != nil {
				return fmt.Errorf("invalid output path: %w", err)
			}
			if err := store.WriteFile(path, []byte(text)); err != nil {
				return fmt.Errorf("failed to write export: %w", err)
			}
			out.Exported(len(list), path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file")
	cmd.Flags().StringVar(&domain, "domain", "", "Filter by domain")
	cmd.Flags().Float64Var(&minConfidence, "min-confidence", 0, "Minimum confidence")
	cmd.Flags().StringVar(&scope, "scope", string(exchange.ExportAll), "Export scope (project, global or all)")
	return cmd
}
