package main

import (
	"fmt"
	"slices"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/aims-sectors/internal/allocation"
	"github.com/sells-group/aims-sectors/internal/sector"
	"github.com/sells-group/aims-sectors/internal/tui"
)

var pickEven bool

var pickCmd = &cobra.Command{
	Use:   "pick <activity-id>",
	Short: "Choose an activity's sectors interactively",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		activityID := args[0]

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		tree, err := loadTree(ctx, st)
		if err != nil {
			return err
		}
		current, err := st.GetActivitySectors(ctx, activityID)
		if err != nil {
			return eris.Wrap(err, "load activity sectors")
		}

		picker := sector.NewPicker(tree,
			sector.WithMaxSelections(cfg.Picker.MaxSelections),
			sector.WithFilterCache(sector.NewFilterCache(tree, sector.DefaultFilterCacheSize)),
			sector.WithStoredValue(current.Codes()),
		)
		value, confirmed, err := tui.Run(ctx, picker,
			tui.WithTitle("Sectors for "+activityID),
			tui.WithBadgeLimit(cfg.Picker.BadgeLimit),
		)
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Fprintln(cmd.OutOrStdout(), "cancelled, nothing saved")
			return nil
		}
		if slices.Equal(value, current.Codes()) && !pickEven {
			fmt.Fprintln(cmd.OutOrStdout(), "no changes")
			return nil
		}

		allocs := allocation.Codes(value)
		if pickEven {
			allocs = allocation.EvenSplit(value)
		}
		if err := st.SetActivitySectors(ctx, activityID, allocs); err != nil {
			return eris.Wrap(err, "save activity sectors")
		}
		zap.L().Info("activity sectors saved", zap.String("activity", activityID), zap.Strings("codes", value))
		fmt.Fprintf(cmd.OutOrStdout(), "%s: saved %d sectors\n", activityID, len(value))
		return nil
	},
}

func init() {
	pickCmd.Flags().BoolVar(&pickEven, "even", false, "store an even percentage split")
	rootCmd.AddCommand(pickCmd)
}
