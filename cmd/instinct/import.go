package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/instinct/internal/exchange"
	"github.com/fyrsmithlabs/instinct/internal/instinct"
	"github.com/fyrsmithlabs/instinct/internal/report"
)

func newImportCmd(a *app) *cobra.Command {
	var (
		dryRun        bool
		force         bool
		minConfidence float64
		scope         string
	)

	cmd := &cobra.Command{
		Use:   "import <file-or-url>",
		Short: "Import instincts from a file or URL",
		Long: `Import instincts from a local file or an http(s) URL.

Incoming instincts are compared with the current view: unknown ids are
added, ids held with a lower confidence are updated, everything else is
skipped. Accepted instincts are written to one file in the inherited store
of the target scope.

Examples:
  # Preview an import
  instinct import team.yaml --dry-run

  # Import into the global store without prompting
  instinct import https://example.com/pack.yaml --scope global --force`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := instinct.Scope(scope)
			if !target.Valid() {
				return fmt.Errorf("invalid scope %q: must be project or global", scope)
			}

			ctx, p, err := a.detect(cmd)
			if err != nil {
				return err
			}
			out := report.New(cmd.OutOrStdout())

			source := args[0]
			if exchange.IsURL(source) {
				out.Line("Fetching from URL: %s", source)
			}
			text, err := a.fetcher.Fetch(ctx, source)
			if err != nil {
				return err
			}

			plan, err := a.importer.Plan(ctx, p, source, text, exchange.ImportOptions{
				Scope:         target,
				MinConfidence: minConfidence,
			})
			if errors.Is(err, exchange.ErrNoInstincts) {
				out.Line("No valid instincts found in source.")
				return errReported
			}
			if err != nil {
				return err
			}

			out.ImportPlan(plan)
			if dryRun {
				out.DryRun()
				return nil
			}
			if plan.Empty() {
				out.NothingToImport()
				return nil
			}
			if !force {
				ok, err := confirm(cmd, fmt.Sprintf("Import %d instincts?", len(plan.New)+len(plan.Update)))
				if err != nil {
					return err
				}
				if !ok {
					out.Cancelled()
					return nil
				}
			}

			path, err := a.importer.Apply(ctx, plan)
			if err != nil {
				return fmt.Errorf("failed to write imported instincts: %w", err)
			}
			out.Imported(plan, path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview without importing")
	cmd.Flags().BoolVar(&force, "force", false, "Skip confirmation")
	cmd.Flags().Float64Var(&minConfidence, "min-confidence", 0, "Minimum confidence threshold")
	cmd.Flags().StringVar(&scope, "scope", string(instinct.ScopeProject), "Import scope (project or global)")
	return cmd
}
