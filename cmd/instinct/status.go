package main

import (
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/instinct/internal/report"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show instincts for the current project and the global store",
		Long: `Show every instinct visible from the current project.

Project-scoped instincts are listed first, then global ones. Within each
group instincts are grouped by domain and ordered by confidence.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, p, err := a.detect(cmd)
			if err != nil {
				return err
			}
			report.New(cmd.OutOrStdout()).Status(report.StatusView{
				Project:      p,
				GlobalDir:    a.cfg.Layout().GlobalPersonalDir(),
				Instincts:    a.agg.All(ctx, p),
				Observations: observationCount(p.ObservationsFile),
			})
			return nil
		},
	}
}
