package main

import (
	"github.com/spf13/cobra"

	"github.com/rtr-ops/backend/internal/sheet"
)

type sheetResolution struct {
	Sheet        string           `json:"sheet"`
	Kind         sheet.Kind       `json:"kind"`
	Resolution   sheet.Resolution `json:"resolution"`
	PartialCount *int             `json:"partial_count,omitempty"`
	Error        string           `json:"error,omitempty"`
}

func newResolveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve FILE",
		Short: "Show the header row and column map found for every sheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sheets, err := sheet.OpenWorkbook(args[0])
			if err != nil {
				return err
			}
			resolver := sheet.NewResolver(a.cfg.HeaderScanRows, a.cfg.HeaderMinCoverage)
			ticket := sheet.TicketSchema(a.cfg.TicketHeaderThreshold)
			financial := sheet.FinancialSchema(a.cfg.FinancialHeaderThreshold)

			out := make([]sheetResolution, 0, len(sheets))
			for _, sh := range sheets {
				cls := resolver.Classify(sh.Rows, ticket, financial)
				r := sheetResolution{Sheet: sh.Name, Kind: cls.Kind, Resolution: cls.Resolution}
				if cls.Err != nil {
					r.Error = cls.Err.Error()
					if n, ok := sheet.PartialCount(cls.Err); ok {
						r.PartialCount = &n
					}
				}
				out = append(out, r)
			}
			return writeJSON(cmd.OutOrStdout(), output{Command: "resolve", Result: out})
		},
	}
}
