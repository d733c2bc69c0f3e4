package sector

// Category is the top level of the hierarchy, keyed by the 3-character
// group code of the taxonomy.
type Category struct {
	Code    string   `json:"code"`
	Name    string   `json:"name"`
	Sectors []Sector `json:"sectors"`
}

// Sector is the middle level, keyed by the 3-character category code of the
// taxonomy. A sector whose code equals its parent's code is still a
// separate node.
type Sector struct {
	Code       string      `json:"code"`
	Name       string      `json:"name"`
	Subsectors []Subsector `json:"subsectors"`
}

// Subsector is a selectable leaf identified by a 5-character code. Parent
// codes and names are copied for display only.
type Subsector struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	SectorCode   string `json:"sector_code"`
	SectorName   string `json:"sector_name"`
	CategoryCode string `json:"category_code"`
	CategoryName string `json:"category_name"`
}

// Label renders the leaf as "code - name".
func (s Subsector) Label() string {
	if s.Name == "" {
		return s.Code
	}
	return s.Code + " - " + s.Name
}

// Leaves flattens the tree into its subsectors in tree order.
func Leaves(tree []Category) []Subsector {
	var out []Subsector
	for _, c := range tree {
		for _, s := range c.Sectors {
			out = append(out, s.Subsectors...)
		}
	}
	return out
}

// CountLeaves returns the number of subsectors in the tree.
func CountLeaves(tree []Category) int {
	n := 0
	for _, c := range tree {
		for _, s := range c.Sectors {
			n += len(s.Subsectors)
		}
	}
	return n
}

// Index looks up subsectors by code.
type Index map[string]Subsector

// NewIndex indexes every leaf of the tree.
func NewIndex(tree []Category) Index {
	idx := make(Index, CountLeaves(tree))
	for _, leaf := range Leaves(tree) {
		idx[leaf.Code] = leaf
	}
	return idx
}

// Lookup returns the subsector for code.
func (idx Index) Lookup(code string) (Subsector, bool) {
	s, ok := idx[code]
	return s, ok
}

// Unknown returns the codes not present in the index, in input order.
func (idx Index) Unknown(codes []string) []string {
	var out []string
	for _, c := range codes {
		if _, ok := idx[c]; !ok {
			out = append(out, c)
		}
	}
	return out
}
