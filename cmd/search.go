package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sells-group/aims-sectors/internal/sector"
)

var searchJSON bool

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "List subsectors matching a query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		tree, err := loadTree(ctx, st)
		if err != nil {
			return err
		}
		leaves := searchLeaves(tree, strings.Join(args, " "))

		if searchJSON {
			return printJSON(cmd.OutOrStdout(), leaves)
		}
		if len(leaves) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no matching sectors")
			return nil
		}
		printLeaves(cmd.OutOrStdout(), leaves)
		return nil
	},
}

// searchLeaves returns the subsectors matching query in tree order.
func searchLeaves(tree []sector.Category, query string) []sector.Subsector {
	var out []sector.Subsector
	for _, leaf := range sector.Leaves(tree) {
		if sector.MatchesQuery(leaf, query) {
			out = append(out, leaf)
		}
	}
	return out
}

func init() {
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "print JSON")
	rootCmd.AddCommand(searchCmd)
}
