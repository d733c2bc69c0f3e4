package main

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/aims-sectors/internal/allocation"
	"github.com/sells-group/aims-sectors/internal/model"
	"github.com/sells-group/aims-sectors/internal/sector"
	"github.com/sells-group/aims-sectors/internal/store"
)

type assignOptions struct {
	toggle   []string
	remove   []string
	set      []string
	allocate []string
	clear    bool
	even     bool
	json     bool

	funding      float64
	setFunding   bool
	clearFunding bool
}

var assignOpts assignOptions

var assignCmd = &cobra.Command{
	Use:   "assign <activity-id>",
	Short: "Change an activity's sector selection",
	Long:  "Applies --clear, then --set, then --remove, then --toggle to the stored selection of an activity and saves the result. Adds beyond the selection cap are skipped with a warning. --allocate code=pct instead replaces the selection with explicit percentages that must cover every code and sum to 100. --funding records the amount used by funding-weighted charts.",
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

		if cmd.Flags().Changed("funding") {
			assignOpts.setFunding = true
		}
		if assignOpts.setFunding && assignOpts.clearFunding {
			return eris.New("--funding and --clear-funding are mutually exclusive")
		}

		picker := sector.NewPicker(tree,
			sector.WithMaxSelections(cfg.Picker.MaxSelections),
			sector.WithStoredValue(current.Codes()),
		)

		if len(assignOpts.allocate) > 0 {
			allocs, err := allocateSelection(picker, assignOpts)
			if err != nil {
				return err
			}
			if err := st.SetActivitySectors(ctx, activityID, allocs); err != nil {
				return eris.Wrap(err, "save activity sectors")
			}
			if err := applyFunding(ctx, st, activityID, assignOpts); err != nil {
				return err
			}
			return printAssign(cmd, st, activityID, picker)
		}

		skipped, err := applyAssign(picker, assignOpts)
		if err != nil {
			return err
		}
		for _, code := range skipped {
			zap.L().Warn("selection limit reached, code not added",
				zap.String("activity", activityID),
				zap.String("code", code),
				zap.Int("max", picker.Max()),
			)
		}

		value := picker.Value()
		changed := !slices.Equal(value, current.Codes())
		allocs := current.Allocations
		if assignOpts.even {
			allocs = allocation.EvenSplit(value)
		} else if changed {
			allocs = allocation.Codes(value)
		}
		if assignOpts.even || changed {
			if err := st.SetActivitySectors(ctx, activityID, allocs); err != nil {
				return eris.Wrap(err, "save activity sectors")
			}
		}

		if err := applyFunding(ctx, st, activityID, assignOpts); err != nil {
			return err
		}
		return printAssign(cmd, st, activityID, picker)
	},
}

// printAssign reports the saved state of the activity. JSON output rereads
// the store so it carries the funding amount.
func printAssign(cmd *cobra.Command, st store.Store, activityID string, picker *sector.Picker) error {
	out := cmd.OutOrStdout()
	if assignOpts.json {
		saved, err := st.GetActivitySectors(cmd.Context(), activityID)
		if err != nil {
			return eris.Wrap(err, "reload activity sectors")
		}
		return printJSON(out, saved)
	}
	fmt.Fprintf(out, "%s: %d/%d selected", activityID, picker.Count(), picker.Max())
	if summary := picker.Summary(0); summary != "" {
		fmt.Fprintf(out, ": %s", summary)
	}
	fmt.Fprintln(out)
	return nil
}

// applyFunding stores or clears the funding amount when asked to.
func applyFunding(ctx context.Context, st store.Store, activityID string, opts assignOptions) error {
	if !opts.setFunding && !opts.clearFunding {
		return nil
	}
	var amount *float64
	if opts.setFunding {
		amount = &opts.funding
	}
	if err := st.SetActivityFunding(ctx, activityID, amount); err != nil {
		return eris.Wrap(err, "save activity funding")
	}
	return nil
}

// parseAllocations turns code=pct arguments into allocations. A bare code
// carries no percentage.
func parseAllocations(args []string) ([]model.SectorAllocation, error) {
	out := make([]model.SectorAllocation, 0, len(args))
	for _, arg := range args {
		code, raw, hasPct := strings.Cut(strings.TrimSpace(arg), "=")
		a := model.SectorAllocation{Code: strings.TrimSpace(code)}
		if hasPct {
			p, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				return nil, eris.Wrapf(err, "invalid percentage in %q", arg)
			}
			a.Percentage = &p
		}
		out = append(out, a)
	}
	return out, nil
}

// allocateSelection validates explicit allocations against the tree and the
// cap, and loads their codes into the picker.
func allocateSelection(p *sector.Picker, opts assignOptions) ([]model.SectorAllocation, error) {
	if len(opts.set) > 0 || len(opts.toggle) > 0 || len(opts.remove) > 0 || opts.clear || opts.even {
		return nil, eris.New("--allocate cannot be combined with --set, --toggle, --remove, --clear or --even")
	}
	allocs, err := parseAllocations(opts.allocate)
	if err != nil {
		return nil, err
	}
	codes := allocation.CodesOf(allocs)
	if unknown := p.Index().Unknown(codes); len(unknown) > 0 {
		return nil, eris.Errorf("unknown sector codes: %s", strings.Join(unknown, ", "))
	}
	if len(allocs) > p.Max() {
		return nil, eris.Errorf("too many sectors: %d exceeds the limit of %d", len(allocs), p.Max())
	}
	if err := allocation.Validate(allocs); err != nil {
		return nil, err
	}
	p.SetValue(codes)
	return allocs, nil
}

// applyAssign runs the scripted operations against the picker and returns
// the codes that could not be added because the cap was reached.
func applyAssign(p *sector.Picker, opts assignOptions) ([]string, error) {
	if unknown := p.Index().Unknown(slices.Concat(opts.set, opts.toggle)); len(unknown) > 0 {
		return nil, eris.Errorf("unknown sector codes: %s", strings.Join(unknown, ", "))
	}

	var skipped []string
	if opts.clear {
		p.Clear()
	}
	if len(opts.set) > 0 {
		p.SetValue(opts.set)
		for _, code := range opts.set {
			if !p.IsSelected(code) {
				skipped = append(skipped, code)
			}
		}
	}
	for _, code := range opts.remove {
		p.Remove(code)
	}
	for _, code := range opts.toggle {
		if p.Toggle(code) == sector.LimitReached {
			skipped = append(skipped, code)
		}
	}
	return skipped, nil
}

func init() {
	assignCmd.Flags().StringSliceVar(&assignOpts.toggle, "toggle", nil, "sector codes to toggle")
	assignCmd.Flags().StringSliceVar(&assignOpts.remove, "remove", nil, "sector codes to remove")
	assignCmd.Flags().StringSliceVar(&assignOpts.set, "set", nil, "replace the selection with these codes")
	assignCmd.Flags().StringArrayVar(&assignOpts.allocate, "allocate", nil, "replace the selection with code=percentage pairs (repeatable)")
	assignCmd.Flags().BoolVar(&assignOpts.clear, "clear", false, "clear the selection first")
	assignCmd.Flags().BoolVar(&assignOpts.even, "even", false, "store an even percentage split")
	assignCmd.Flags().BoolVar(&assignOpts.json, "json", false, "print the stored allocations as JSON")
	assignCmd.Flags().Float64Var(&assignOpts.funding, "funding", 0, "set the activity's funding amount")
	assignCmd.Flags().BoolVar(&assignOpts.clearFunding, "clear-funding", false, "remove the activity's funding amount")
	rootCmd.AddCommand(assignCmd)
}
