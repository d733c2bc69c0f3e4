package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/sells-group/aims-sectors/internal/allocation"
	"github.com/sells-group/aims-sectors/internal/sector"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printTree writes an indented category/sector/subsector outline.
func printTree(w io.Writer, tree []sector.Category, isSelected func(string) bool) {
	for _, cat := range tree {
		fmt.Fprintf(w, "%s %s\n", cat.Code, cat.Name)
		for _, sec := range cat.Sectors {
			fmt.Fprintf(w, "  %s %s\n", sec.Code, sec.Name)
			for _, leaf := range sec.Subsectors {
				mark := " "
				if isSelected != nil && isSelected(leaf.Code) {
					mark = "x"
				}
				fmt.Fprintf(w, "    [%s] %s\n", mark, leaf.Label())
			}
		}
	}
}

func printLeaves(w io.Writer, leaves []sector.Subsector) {
	for _, leaf := range leaves {
		fmt.Fprintf(w, "%s\t%s\t%s / %s\n", leaf.Code, leaf.Name, leaf.CategoryName, leaf.SectorName)
	}
}

func printChart(w io.Writer, chart allocation.Chart) {
	fmt.Fprintf(w, "%d activities, total weight %.2f", chart.Activities, chart.Total)
	if chart.Unmapped > 0 {
		fmt.Fprintf(w, " (%.2f unmapped)", chart.Unmapped)
	}
	if chart.Unfunded > 0 {
		fmt.Fprintf(w, ", %d without funding", chart.Unfunded)
	}
	fmt.Fprintln(w)
	printNodes(w, chart.Nodes, 0)
}

func printNodes(w io.Writer, nodes []allocation.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, n := range nodes {
		fmt.Fprintf(w, "%s%s %s  %.2f (%.2f%%)\n", indent, n.Code, n.Name, n.Value, n.Percentage)
		printNodes(w, n.Children, depth+1)
	}
}
