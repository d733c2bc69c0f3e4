package main

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/aims-sectors/internal/model"
	"github.com/sells-group/aims-sectors/internal/sector"
	"github.com/sells-group/aims-sectors/internal/store"
	"github.com/sells-group/aims-sectors/internal/taxonomy"
)

func defaultPicker(t *testing.T, max int, value ...string) *sector.Picker {
	t.Helper()
	records, err := taxonomy.Default()
	require.NoError(t, err)
	tree := sector.BuildHierarchy(taxonomy.ActiveOnly(records))
	return sector.NewPicker(tree, sector.WithMaxSelections(max), sector.WithValue(value))
}

func TestApplyAssign_Order(t *testing.T) {
	p := defaultPicker(t, 3, "11110", "12220")

	skipped, err := applyAssign(p, assignOptions{
		clear:  true,
		set:    []string{"12220", "23110"},
		remove: []string{"12220", "31110"},
		toggle: []string{"11110", "23110"},
	})
	require.NoError(t, err)
	assert.Empty(t, skipped)
	assert.Equal(t, []string{"11110"}, p.Value())
}

func TestApplyAssign_LimitReached(t *testing.T) {
	p := defaultPicker(t, 2)

	skipped, err := applyAssign(p, assignOptions{toggle: []string{"11110", "12220", "23110"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"23110"}, skipped)
	assert.Equal(t, []string{"11110", "12220"}, p.Value())

	p = defaultPicker(t, 2)
	skipped, err = applyAssign(p, assignOptions{set: []string{"11110", "12220", "23110"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"23110"}, skipped)
}

func TestApplyAssign_UnknownCode(t *testing.T) {
	p := defaultPicker(t, 3, "11110")

	_, err := applyAssign(p, assignOptions{toggle: []string{"00000"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown sector codes: 00000")
	assert.Equal(t, []string{"11110"}, p.Value(), "nothing applied on error")
}

func TestAssignCommand_PersistsSelection(t *testing.T) {
	useTestConfig(t)
	t.Cleanup(func() { assignOpts = assignOptions{} })

	assignOpts = assignOptions{toggle: []string{"11110", "12220"}, even: true}
	out, err := runCmd(t, assignCmd, "act-1")
	require.NoError(t, err)
	assert.Contains(t, out, "act-1: 2/3 selected")
	assert.Contains(t, out, "11110 - Education policy and administrative management")

	st, err := openStore(context.Background())
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	got, err := st.GetActivitySectors(context.Background(), "act-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"11110", "12220"}, got.Codes())
	require.NotNil(t, got.Allocations[0].Percentage)
	assert.InDelta(t, 50.0, *got.Allocations[0].Percentage, 0.001)

	// Removing a code drops the stale percentages.
	assignOpts = assignOptions{remove: []string{"11110"}}
	_, err = runCmd(t, assignCmd, "act-1")
	require.NoError(t, err)

	got, err = st.GetActivitySectors(context.Background(), "act-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"12220"}, got.Codes())
	assert.Nil(t, got.Allocations[0].Percentage)
}

func TestAssignCommand_KeepsStoredCodesPastCap(t *testing.T) {
	useTestConfig(t)
	t.Cleanup(func() { assignOpts = assignOptions{} })

	ctx := context.Background()
	st, err := openStore(ctx)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	// Saved before the cap was lowered to 3.
	require.NoError(t, st.SetActivitySectors(ctx, "act-1", []model.SectorAllocation{
		{Code: "11110"}, {Code: "12220"}, {Code: "23110"}, {Code: "31110"},
	}))

	assignOpts = assignOptions{remove: []string{"12220"}}
	out, err := runCmd(t, assignCmd, "act-1")
	require.NoError(t, err)
	assert.Contains(t, out, "act-1: 3/3 selected")

	got, err := st.GetActivitySectors(ctx, "act-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"11110", "23110", "31110"}, got.Codes())

	// At the cap, adds are still skipped.
	assignOpts = assignOptions{toggle: []string{"12220"}}
	_, err = runCmd(t, assignCmd, "act-1")
	require.NoError(t, err)

	got, err = st.GetActivitySectors(ctx, "act-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"11110", "23110", "31110"}, got.Codes())
}

func TestAssignCommand_Allocate(t *testing.T) {
	useTestConfig(t)
	t.Cleanup(func() { assignOpts = assignOptions{} })

	assignOpts = assignOptions{allocate: []string{"12220=70", "11110=30"}}
	out, err := runCmd(t, assignCmd, "act-1")
	require.NoError(t, err)
	assert.Contains(t, out, "act-1: 2/3 selected")

	ctx := context.Background()
	st, err := openStore(ctx)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	got, err := st.GetActivitySectors(ctx, "act-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"12220", "11110"}, got.Codes())
	require.NotNil(t, got.Allocations[0].Percentage)
	assert.InDelta(t, 70.0, *got.Allocations[0].Percentage, 0.001)
}

func TestAssignCommand_AllocateRejected(t *testing.T) {
	useTestConfig(t)
	t.Cleanup(func() { assignOpts = assignOptions{} })

	tests := []struct {
		name string
		opts assignOptions
		want string
	}{
		{"sum not 100", assignOptions{allocate: []string{"12220=60", "11110=30"}}, "must sum to 100"},
		{"mixed percentages", assignOptions{allocate: []string{"12220=100", "11110"}}, "all sectors or none"},
		{"bad number", assignOptions{allocate: []string{"12220=lots"}}, "invalid percentage"},
		{"unknown code", assignOptions{allocate: []string{"00000=100"}}, "unknown sector codes: 00000"},
		{"over cap", assignOptions{allocate: []string{"11110=25", "12220=25", "23110=25", "31110=25"}}, "exceeds the limit of 3"},
		{"combined", assignOptions{allocate: []string{"12220=100"}, even: true}, "cannot be combined"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assignOpts = tt.opts
			_, err := runCmd(t, assignCmd, "act-1")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	ctx := context.Background()
	st, err := openStore(ctx)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	got, err := st.GetActivitySectors(ctx, "act-1")
	require.NoError(t, err)
	assert.Empty(t, got.Codes(), "nothing saved on error")
}

func TestAssignCommand_Funding(t *testing.T) {
	useTestConfig(t)
	t.Cleanup(func() { assignOpts = assignOptions{} })

	assignOpts = assignOptions{toggle: []string{"12220"}, funding: 5000, setFunding: true, json: true}
	out, err := runCmd(t, assignCmd, "act-1")
	require.NoError(t, err)

	var saved model.ActivitySectors
	require.NoError(t, json.Unmarshal([]byte(out), &saved))
	assert.Equal(t, []string{"12220"}, saved.Codes())
	require.NotNil(t, saved.Funding)
	assert.InDelta(t, 5000.0, *saved.Funding, 0.001)

	assignOpts = assignOptions{clearFunding: true, json: true}
	out, err = runCmd(t, assignCmd, "act-1")
	require.NoError(t, err)
	saved = model.ActivitySectors{}
	require.NoError(t, json.Unmarshal([]byte(out), &saved))
	assert.Nil(t, saved.Funding)
	assert.Equal(t, []string{"12220"}, saved.Codes())

	assignOpts = assignOptions{funding: -1, setFunding: true}
	_, err = runCmd(t, assignCmd, "act-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNegativeFunding)

	assignOpts = assignOptions{funding: 1, setFunding: true, clearFunding: true}
	_, err = runCmd(t, assignCmd, "act-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestParseAllocations(t *testing.T) {
	allocs, err := parseAllocations([]string{" 12220 = 62.5 ", "11110"})
	require.NoError(t, err)
	require.Len(t, allocs, 2)
	assert.Equal(t, "12220", allocs[0].Code)
	require.NotNil(t, allocs[0].Percentage)
	assert.InDelta(t, 62.5, *allocs[0].Percentage, 0.001)
	assert.Equal(t, "11110", allocs[1].Code)
	assert.Nil(t, allocs[1].Percentage)
}
