package sector

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterHierarchy_EmptyQueryIsIdentity(t *testing.T) {
	tree := BuildHierarchy(sampleRecords())
	for _, q := range []string{"", "   ", "\t\n"} {
		got := FilterHierarchy(tree, q)
		require.Len(t, got, len(tree))
		assert.Same(t, &tree[0], &got[0], "query %q should return the input slice", q)
	}
}

func TestFilterHierarchy_CodeQuery(t *testing.T) {
	tree := BuildHierarchy(sampleRecords())
	got := FilterHierarchy(tree, "221")

	require.Len(t, got, 1)
	assert.Equal(t, "122", got[0].Code)
	require.Len(t, got[0].Sectors, 1)
	assert.Equal(t, []string{"12210"}, leafCodes(got[0].Sectors[0].Subsectors))
}

func TestFilterHierarchy_NameQueryCaseInsensitive(t *testing.T) {
	tree := BuildHierarchy(sampleRecords())
	got := FilterHierarchy(tree, "  FACILITIES ")
	assert.Equal(t, []string{"11120"}, leafCodes(Leaves(got)))
}

func TestFilterHierarchy_ParentLabelsNotSearched(t *testing.T) {
	tree := BuildHierarchy(sampleRecords())
	// "Level Unspecified" only appears in category/sector names.
	got := FilterHierarchy(tree, "level unspecified")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFilterHierarchy_KeepsSourceOrder(t *testing.T) {
	tree := BuildHierarchy(sampleRecords())
	got := FilterHierarchy(tree, "1")
	assert.Equal(t, leafCodes(Leaves(tree)), leafCodes(Leaves(got)))
}

func TestFilterHierarchy_DoesNotMutateInput(t *testing.T) {
	tree := BuildHierarchy(sampleRecords())
	before := CountLeaves(tree)
	_ = FilterHierarchy(tree, "health")
	assert.Equal(t, before, CountLeaves(tree))
}

func TestFilterHierarchy_AncestryPreserved(t *testing.T) {
	tree := BuildHierarchy(sampleRecords())
	for _, q := range []string{"1", "11", "health", "edu", "0", "zzz", "POLICY", "care"} {
		got := FilterHierarchy(tree, q)
		for _, c := range got {
			require.NotEmpty(t, c.Sectors, "query %q: empty category %s", q, c.Code)
			for _, s := range c.Sectors {
				require.NotEmpty(t, s.Subsectors, "query %q: empty sector %s", q, s.Code)
				for _, leaf := range s.Subsectors {
					assert.True(t, MatchesQuery(leaf, q), "query %q: leaf %s does not match", q, leaf.Code)
				}
			}
		}
		// Every matching leaf of the source tree survives.
		want := 0
		for _, leaf := range Leaves(tree) {
			if MatchesQuery(leaf, q) {
				want++
			}
		}
		assert.Equal(t, want, CountLeaves(got), "query %q", q)
	}
}

func TestMatchesQuery(t *testing.T) {
	leaf := Subsector{Code: "12210", Name: "Basic health care"}
	assert.True(t, MatchesQuery(leaf, ""))
	assert.True(t, MatchesQuery(leaf, "122"))
	assert.True(t, MatchesQuery(leaf, "Health"))
	assert.False(t, MatchesQuery(leaf, "education"))
}

func TestFilterCache_Memoizes(t *testing.T) {
	tree := BuildHierarchy(sampleRecords())
	c := NewFilterCache(tree, 2)

	a := c.Filter("health")
	b := c.Filter("HEALTH")
	require.Len(t, a, 1)
	assert.Same(t, &a[0], &b[0])
	assert.Equal(t, 1, c.Len())

	assert.Equal(t, len(tree), len(c.Filter("")))
	assert.Equal(t, 1, c.Len())
}

func TestFilterCache_Evicts(t *testing.T) {
	c := NewFilterCache(BuildHierarchy(sampleRecords()), 2)
	c.Filter("1")
	c.Filter("2")
	c.Filter("3")
	assert.Equal(t, 2, c.Len())
}

func TestFilterCache_Concurrent(t *testing.T) {
	c := NewFilterCache(BuildHierarchy(sampleRecords()), 8)
	var wg sync.WaitGroup
	for i := range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q := fmt.Sprintf("%d", i%4)
			got := c.Filter(q)
			for _, leaf := range Leaves(got) {
				assert.True(t, strings.Contains(leaf.Code, q) || strings.Contains(strings.ToLower(leaf.Name), q))
			}
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 8)
}
