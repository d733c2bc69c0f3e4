package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/aims-sectors/internal/allocation"
)

var (
	chartJSON bool
	chartBy   string
)

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Aggregate stored selections by category, sector and subsector",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		measure, err := allocation.ParseMeasure(chartBy)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		tree, err := loadTree(ctx, st)
		if err != nil {
			return err
		}
		activities, err := st.ListAllocations(ctx)
		if err != nil {
			return eris.Wrap(err, "list allocations")
		}

		chart := allocation.SunburstBy(tree, activities, measure)
		if chartJSON {
			return printJSON(cmd.OutOrStdout(), chart)
		}
		printChart(cmd.OutOrStdout(), chart)
		return nil
	},
}

func init() {
	chartCmd.Flags().BoolVar(&chartJSON, "json", false, "print sunburst JSON")
	chartCmd.Flags().StringVar(&chartBy, "by", string(allocation.ByActivity), "weight activities by: activities or funding")
	rootCmd.AddCommand(chartCmd)
}
