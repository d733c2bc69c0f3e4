package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/aims-sectors/internal/allocation"
	"github.com/sells-group/aims-sectors/internal/model"
	"github.com/sells-group/aims-sectors/internal/sector"
)

func outputTree() []sector.Category {
	return sector.BuildHierarchy([]model.SectorRecord{
		{Code: "11110", Name: "Education policy", GroupCode: "110", GroupName: "Education", CategoryCode: "111", CategoryName: "Education, Level Unspecified"},
		{Code: "12220", Name: "Basic health care", GroupCode: "120", GroupName: "Health", CategoryCode: "122", CategoryName: "Basic Health"},
	})
}

func TestPrintTree(t *testing.T) {
	var buf bytes.Buffer
	printTree(&buf, outputTree(), func(code string) bool { return code == "12220" })

	want := strings.Join([]string{
		"110 Education",
		"  111 Education, Level Unspecified",
		"    [ ] 11110 - Education policy",
		"120 Health",
		"  122 Basic Health",
		"    [x] 12220 - Basic health care",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestPrintLeaves(t *testing.T) {
	var buf bytes.Buffer
	printLeaves(&buf, sector.Leaves(outputTree())[:1])
	assert.Equal(t, "11110\tEducation policy\tEducation / Education, Level Unspecified\n", buf.String())
}

func TestPrintChart(t *testing.T) {
	chart := allocation.Sunburst(outputTree(), []model.ActivitySectors{
		{ActivityID: "a", Allocations: []model.SectorAllocation{{Code: "11110"}, {Code: "00000"}}},
	})

	var buf bytes.Buffer
	printChart(&buf, chart)
	out := buf.String()
	assert.Contains(t, out, "1 activities, total weight 0.50 (0.50 unmapped)")
	assert.Contains(t, out, "110 Education  0.50 (100.00%)")
	assert.Contains(t, out, "    11110 Education policy  0.50 (100.00%)")
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printJSON(&buf, outputTree()))

	var decoded []sector.Category
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, outputTree(), decoded)
}

func TestTreeAndSearchCommands(t *testing.T) {
	useTestConfig(t)
	t.Cleanup(func() { treeQuery, treeJSON, searchJSON = "", false, false })

	treeQuery = "basic health"
	out, err := runCmd(t, treeCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "12220 - Basic health care")
	assert.Contains(t, out, "12230 - Basic health infrastructure")
	assert.NotContains(t, out, "11110")

	out, err = runCmd(t, searchCmd, "reproductive")
	require.NoError(t, err)
	assert.Equal(t, "13020\tReproductive health care\tPopulation Policies/Programmes & Reproductive Health / Population Policies/Programmes & Reproductive Health\n", out)

	out, err = runCmd(t, searchCmd, "no", "such", "sector")
	require.NoError(t, err)
	assert.Equal(t, "no matching sectors\n", out)
}

func TestChartCommand_Empty(t *testing.T) {
	useTestConfig(t)
	t.Cleanup(func() { chartJSON = false })

	chartJSON = true
	out, err := runCmd(t, chartCmd)
	require.NoError(t, err)

	var chart allocation.Chart
	require.NoError(t, json.Unmarshal([]byte(out), &chart))
	assert.Zero(t, chart.Activities)
	assert.Empty(t, chart.Nodes)
}

func TestPrintChart_Unfunded(t *testing.T) {
	amount := 1000.0
	chart := allocation.SunburstBy(outputTree(), []model.ActivitySectors{
		{ActivityID: "a", Funding: &amount, Allocations: []model.SectorAllocation{{Code: "12220"}}},
		{ActivityID: "b", Allocations: []model.SectorAllocation{{Code: "11110"}}},
	}, allocation.ByFunding)

	var buf bytes.Buffer
	printChart(&buf, chart)
	out := buf.String()
	assert.Contains(t, out, "total weight 1000.00, 1 without funding")
	assert.Contains(t, out, "120 Health  1000.00 (100.00%)")
	assert.NotContains(t, out, "Education")
}

func TestChartCommand_ByFunding(t *testing.T) {
	useTestConfig(t)
	t.Cleanup(func() { chartJSON, chartBy = false, "" })

	ctx := context.Background()
	st, err := openStore(ctx)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	require.NoError(t, st.SetActivitySectors(ctx, "act-1", []model.SectorAllocation{{Code: "12220"}}))
	require.NoError(t, st.SetActivitySectors(ctx, "act-2", []model.SectorAllocation{{Code: "11110"}}))
	amount := 2500.0
	require.NoError(t, st.SetActivityFunding(ctx, "act-1", &amount))

	chartJSON, chartBy = true, "funding"
	out, err := runCmd(t, chartCmd)
	require.NoError(t, err)

	var chart allocation.Chart
	require.NoError(t, json.Unmarshal([]byte(out), &chart))
	assert.Equal(t, allocation.ByFunding, chart.Measure)
	assert.InDelta(t, 2500.0, chart.Total, 0.001)
	assert.Equal(t, 1, chart.Unfunded)

	chartBy = "budget"
	_, err = runCmd(t, chartCmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown measure")
}

func TestSearchLeaves(t *testing.T) {
	tree := outputTree()
	assert.Equal(t, []string{"12220"}, leafCodes(searchLeaves(tree, "HEALTH")))
	assert.Equal(t, []string{"11110", "12220"}, leafCodes(searchLeaves(tree, "  ")))
	assert.Empty(t, searchLeaves(tree, "122 basic"))
	// Category names are not searched.
	assert.Empty(t, searchLeaves(tree, "level unspecified"))
}

func leafCodes(leaves []sector.Subsector) []string {
	out := make([]string, 0, len(leaves))
	for _, l := range leaves {
		out = append(out, l.Code)
	}
	return out
}
