package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/rtr-ops/backend/internal/service"
)

func newPermitsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "permits",
		Short: "Permit maintenance",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "refresh",
		Short: "Recompute the status of every live permit and re-run the ticket annotation guard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			asOf, err := a.asOfTime()
			if err != nil {
				return err
			}
			opts, err := a.cfg.ImportOptions()
			if err != nil {
				return err
			}
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			start := time.Now()
			lc := &service.Lifecycle{Repo: store, Logger: a.logger, Location: opts.Location, Window: opts.Window}
			sum, err := lc.RefreshPermits(cmd.Context(), a.audit(), asOf)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), output{
				Command:    "permits refresh",
				DurationMS: time.Since(start).Milliseconds(),
				Result:     sum,
			})
		},
	})
	return cmd
}
