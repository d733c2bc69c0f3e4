package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/aims-sectors/internal/sector"
)

var (
	treeQuery string
	treeJSON  bool
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the sector hierarchy",
	RunE: func(cmd *cobra.Command, _ []string) error {
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
		visible := sector.FilterHierarchy(tree, treeQuery)

		if treeJSON {
			return printJSON(cmd.OutOrStdout(), visible)
		}
		printTree(cmd.OutOrStdout(), visible, nil)
		return nil
	},
}

func init() {
	treeCmd.Flags().StringVarP(&treeQuery, "query", "q", "", "only show subsectors whose code or name contains this text")
	treeCmd.Flags().BoolVar(&treeJSON, "json", false, "print JSON instead of an outline")
	rootCmd.AddCommand(treeCmd)
}
