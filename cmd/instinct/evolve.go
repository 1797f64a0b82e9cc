package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/instinct/internal/aggregate"
	"github.com/fyrsmithlabs/instinct/internal/evolve"
	"github.com/fyrsmithlabs/instinct/internal/report"
)

func newEvolveCmd(a *app) *cobra.Command {
	var generate bool

	cmd := &cobra.Command{
		Use:   "evolve",
		Short: "Cluster instincts into skill, command and agent candidates",
		Long: `Analyze the current view for instincts that share a trigger.

Clusters of related instincts become skill candidates, confident workflow
instincts become command candidates, and large confident clusters become
agent candidates. With --generate the candidates are written as documents
under the project's evolved directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, p, err := a.detect(cmd)
			if err != nil {
				return err
			}
			out := report.New(cmd.OutOrStdout())

			list := a.agg.All(ctx, p)
			analysis, err := a.analyzer.Analyze(list)
			if errors.Is(err, evolve.ErrTooFewInstincts) {
				out.TooFew(a.cfg.Evolve.MinInstincts, len(list))
				return errReported
			}
			if err != nil {
				return err
			}

			projectScoped, global := aggregate.ByScopeLabel(list)
			view := report.EvolveView{
				Project:       p,
				ProjectScoped: len(projectScoped),
				Global:        len(global),
				Analysis:      analysis,
				Limits:        a.cfg.Evolve,
				Promotions:    a.promoter.Candidates(ctx),
				MinProjects:   a.cfg.Promote.MinProjects,
			}
			out.Evolve(view)

			if !generate {
				out.Footer()
				return nil
			}
			paths, err := a.generator.Generate(ctx, analysis, p.EvolvedDir)
			if err != nil {
				return fmt.Errorf("failed to generate evolved structures: %w", err)
			}
			out.Generated(paths)
			return nil
		},
	}

	cmd.Flags().BoolVar(&generate, "generate", false, "Generate evolved structures")
	return cmd
}
