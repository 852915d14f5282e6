package main

import (
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/rtr-ops/backend/internal/db"
	"github.com/rtr-ops/backend/internal/service"
	"github.com/rtr-ops/backend/internal/sheet"
)

func newImportCmd(a *app) *cobra.Command {
	var (
		force  bool
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import an RTR workbook",
		Long:  "Import an RTR workbook. With --dry-run rows are reconciled against an empty in-memory store and nothing is written to Postgres.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asOf, err := a.asOfTime()
			if err != nil {
				return err
			}
			opts, err := a.cfg.ImportOptions()
			if err != nil {
				return err
			}
			sheets, err := sheet.OpenWorkbook(args[0])
			if err != nil {
				return err
			}

			var repo db.Repository
			if dryRun {
				repo = db.NewMemStore()
			} else {
				store, err := a.openStore(cmd.Context())
				if err != nil {
					return err
				}
				defer store.Close()
				repo = store
			}

			start := time.Now()
			importer := service.NewImporter(repo, opts, a.logger)
			report, err := importer.ImportWorkbook(cmd.Context(), filepath.Base(args[0]), sheets, a.audit(), asOf, service.ImportOptions{Force: force})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), output{
				Command:    "import",
				DryRun:     dryRun,
				DurationMS: time.Since(start).Milliseconds(),
				Result:     report,
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "process sheets whose header row is below the coverage floor")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "reconcile in memory without touching the database")
	return cmd
}
