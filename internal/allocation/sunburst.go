package allocation

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/aims-sectors/internal/model"
	"github.com/sells-group/aims-sectors/internal/sector"
)

// Node is one ring segment of the sector sunburst.
type Node struct {
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	Value      float64 `json:"value"`
	Percentage float64 `json:"percentage"`
	Children   []Node  `json:"children,omitempty"`
}

// Measure selects what the chart segments add up.
type Measure string

const (
	// ByActivity weighs every activity as 1.
	ByActivity Measure = "activities"
	// ByFunding weighs every activity by its funding amount. Activities
	// without funding are left out and counted in Chart.Unfunded.
	ByFunding Measure = "funding"
)

// ParseMeasure reads a measure name. Empty means ByActivity.
func ParseMeasure(s string) (Measure, error) {
	switch m := Measure(strings.ToLower(strings.TrimSpace(s))); m {
	case "", ByActivity:
		return ByActivity, nil
	case ByFunding:
		return m, nil
	}
	return "", eris.Errorf("allocation: unknown measure %q (want activities or funding)", s)
}

// Chart is the aggregated sector distribution across activities.
type Chart struct {
	Measure Measure `json:"measure"`
	// Total is the summed weight of every mapped allocation.
	Total float64 `json:"total"`
	// Unmapped is the weight of codes missing from the hierarchy.
	Unmapped   float64 `json:"unmapped"`
	Activities int     `json:"activities"`
	Unfunded   int     `json:"unfunded,omitempty"`
	Nodes      []Node  `json:"nodes"`
}

// Sunburst aggregates activity allocations by subsector, sector and
// category, in tree order, with each activity weighing 1.
func Sunburst(tree []sector.Category, activities []model.ActivitySectors) Chart {
	return SunburstBy(tree, activities, ByActivity)
}

// SunburstBy is Sunburst with a choice of measure. An activity's weight is
// split across its codes by reported percentages, or evenly when they are
// incomplete. Segments with no weight are omitted.
func SunburstBy(tree []sector.Category, activities []model.ActivitySectors, m Measure) Chart {
	idx := sector.NewIndex(tree)
	leafValue := make(map[string]float64)
	chart := Chart{Measure: m, Nodes: make([]Node, 0)}

	for _, act := range activities {
		if len(act.Allocations) == 0 {
			continue
		}
		scale := 1.0
		if m == ByFunding {
			if act.Funding == nil {
				chart.Unfunded++
				continue
			}
			scale = *act.Funding
		}
		chart.Activities++
		for i, w := range weights(act.Allocations) {
			w *= scale
			code := act.Allocations[i].Code
			if _, ok := idx.Lookup(code); !ok {
				chart.Unmapped += w
				continue
			}
			leafValue[code] += w
			chart.Total += w
		}
	}

	for _, cat := range tree {
		catNode := Node{Code: cat.Code, Name: cat.Name}
		for _, sec := range cat.Sectors {
			secNode := Node{Code: sec.Code, Name: sec.Name}
			for _, leaf := range sec.Subsectors {
				v := leafValue[leaf.Code]
				if v == 0 {
					continue
				}
				secNode.Children = append(secNode.Children, Node{Code: leaf.Code, Name: leaf.Name, Value: v})
				secNode.Value += v
			}
			if secNode.Value == 0 {
				continue
			}
			catNode.Children = append(catNode.Children, secNode)
			catNode.Value += secNode.Value
		}
		if catNode.Value == 0 {
			continue
		}
		chart.Nodes = append(chart.Nodes, catNode)
	}

	setPercentages(chart.Nodes, chart.Total)
	chart.Total = round2(chart.Total)
	chart.Unmapped = round2(chart.Unmapped)
	return chart
}

func setPercentages(nodes []Node, total float64) {
	for i := range nodes {
		if total > 0 {
			nodes[i].Percentage = round2(nodes[i].Value / total * 100)
		}
		setPercentages(nodes[i].Children, total)
		nodes[i].Value = round2(nodes[i].Value)
	}
}
