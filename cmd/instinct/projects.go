package main

import (
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/instinct/internal/registry"
	"github.com/fyrsmithlabs/instinct/internal/report"
	"github.com/fyrsmithlabs/instinct/internal/store"
)

func newProjectsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List known projects and their instinct counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			layout := a.cfg.Layout()
			records := registry.ByLastSeen(a.registry.Load(cmd.Context()))

			view := report.ProjectsView{
				Projects:        make([]report.ProjectSummary, 0, len(records)),
				GlobalPersonal:  store.CountRecordFiles(layout.GlobalPersonalDir()),
				GlobalInherited: store.CountRecordFiles(layout.GlobalInheritedDir()),
			}
			for _, rec := range records {
				obs := observationCount(layout.ProjectObservationsFile(rec.ID))
				if obs < 0 {
					obs = 0
				}
				view.Projects = append(view.Projects, report.ProjectSummary{
					Record:       rec,
					Personal:     store.CountRecordFiles(layout.ProjectPersonalDir(rec.ID)),
					Inherited:    store.CountRecordFiles(layout.ProjectInheritedDir(rec.ID)),
					Observations: obs,
				})
			}

			report.New(cmd.OutOrStdout()).Projects(view)
			return nil
		},
	}
}
