package sector

import (
	"strings"
	"sync"

	"golang.org/x/text/cases"
)

// FilterHierarchy returns the part of tree whose subsectors match query by
// code or name (case-insensitive substring). Categories and sectors are kept
// only when at least one of their subsectors matches; their own labels are
// not searched. An empty or whitespace-only query returns tree unchanged.
func FilterHierarchy(tree []Category, query string) []Category {
	folder := cases.Fold()
	q := folder.String(strings.TrimSpace(query))
	if q == "" {
		return tree
	}

	out := make([]Category, 0)
	for _, c := range tree {
		var sectors []Sector
		for _, s := range c.Sectors {
			var leaves []Subsector
			for _, leaf := range s.Subsectors {
				if matchFolded(folder, leaf, q) {
					leaves = append(leaves, leaf)
				}
			}
			if len(leaves) > 0 {
				sectors = append(sectors, Sector{Code: s.Code, Name: s.Name, Subsectors: leaves})
			}
		}
		if len(sectors) > 0 {
			out = append(out, Category{Code: c.Code, Name: c.Name, Sectors: sectors})
		}
	}
	return out
}

// MatchesQuery reports whether leaf matches query the way FilterHierarchy
// does. An empty query matches everything.
func MatchesQuery(leaf Subsector, query string) bool {
	folder := cases.Fold()
	q := folder.String(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return matchFolded(folder, leaf, q)
}

func matchFolded(folder cases.Caser, leaf Subsector, q string) bool {
	return strings.Contains(folder.String(leaf.Code), q) ||
		strings.Contains(folder.String(leaf.Name), q)
}

// DefaultFilterCacheSize bounds the number of memoized queries.
const DefaultFilterCacheSize = 256

// FilterCache memoizes FilterHierarchy results for one tree. Oldest queries
// are evicted first once the cache is full. Safe for concurrent use.
type FilterCache struct {
	tree []Category
	size int

	mu      sync.Mutex
	entries map[string][]Category
	order   []string
}

// NewFilterCache creates a cache over tree holding at most size queries.
func NewFilterCache(tree []Category, size int) *FilterCache {
	if size <= 0 {
		size = DefaultFilterCacheSize
	}
	return &FilterCache{
		tree:    tree,
		size:    size,
		entries: make(map[string][]Category, size),
	}
}

// Filter returns FilterHierarchy(tree, query), computing it at most once per
// distinct normalized query while it stays cached.
func (c *FilterCache) Filter(query string) []Category {
	key := cases.Fold().String(strings.TrimSpace(query))
	if key == "" {
		return c.tree
	}

	c.mu.Lock()
	if res, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return res
	}
	c.mu.Unlock()

	res := FilterHierarchy(c.tree, key)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		if len(c.order) >= c.size {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.order = append(c.order, key)
		c.entries[key] = res
	}
	return res
}

// Len returns the number of cached queries.
func (c *FilterCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
