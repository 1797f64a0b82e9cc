package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/instinct/internal/promote"
	"github.com/fyrsmithlabs/instinct/internal/report"
)

func newPromoteCmd(a *app) *cobra.Command {
	var (
		force  bool
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "promote [instinct-id]",
		Short: "Promote project instincts to the global store",
		Long: `Promote instincts from project scope to global scope.

With an id, that instinct is copied from the current project into the
global store unchanged. Without one, every instinct found in enough
projects with a high enough average confidence is promoted.

Examples:
  # Promote one instinct
  instinct promote prefer-early-return

  # Preview automatic promotion
  instinct promote --dry-run`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := report.New(cmd.OutOrStdout())
			if len(args) == 1 {
				return promoteOne(cmd, a, out, args[0], force, dryRun)
			}
			return promoteAuto(cmd, a, out, force, dryRun)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Skip confirmation")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview without promoting")
	return cmd
}

func promoteOne(cmd *cobra.Command, a *app, out *report.Report, id string, force, dryRun bool) error {
	ctx, p, err := a.detect(cmd)
	if err != nil {
		return err
	}
	if p.IsGlobal() {
		out.Failure("Promotion needs a project; no project detected.")
		return errReported
	}

	src, err := a.promoter.Prepare(ctx, p, id)
	if err != nil {
		out.Outcome(p, promote.OutcomeFor(id, err))
		return errReported
	}

	out.PromotionPreview(src, p)
	if dryRun {
		out.DryRun()
		return nil
	}
	if !force {
		ok, err := confirm(cmd, "Promote to global scope?")
		if err != nil {
			return err
		}
		if !ok {
			out.Cancelled()
			return nil
		}
	}

	o := a.promoter.PromoteByID(ctx, p, id)
	out.Outcome(p, o)
	if o.Status != promote.StatusPromoted {
		return errReported
	}
	return nil
}

func promoteAuto(cmd *cobra.Command, a *app, out *report.Report, force, dryRun bool) error {
	ctx := cmd.Context()
	cands := a.promoter.AutoCandidates(ctx)
	if len(cands) == 0 {
		out.NoAutoCandidates(a.cfg.Promote)
		return nil
	}

	out.AutoCandidates(cands)
	if dryRun {
		out.DryRun()
		return nil
	}
	if !force {
		ok, err := confirm(cmd, fmt.Sprintf("Promote %d instincts to global?", len(cands)))
		if err != nil {
			return err
		}
		if !ok {
			out.Cancelled()
			return nil
		}
	}

	out.Outcomes(a.promoter.PromoteAuto(ctx, cands))
	return nil
}
