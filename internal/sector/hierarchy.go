package sector

import (
	"slices"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/sells-group/aims-sectors/internal/model"
)

// Placeholder values used when a record lacks group or category metadata.
const (
	PlaceholderCode = "XXX"
	PlaceholderName = "Other"
)

// BuildOption configures BuildHierarchy.
type BuildOption func(*buildOptions)

type buildOptions struct {
	lang language.Tag
}

// WithLanguage sets the collation language used to order category and
// sector names. Defaults to English.
func WithLanguage(tag language.Tag) BuildOption {
	return func(o *buildOptions) {
		o.lang = tag
	}
}

// BuildHierarchy turns flat taxonomy records into a category -> sector ->
// subsector tree. Records without a 5-character code are skipped. When two
// records share a code the later one wins.
//
// Categories and sectors are ordered by name using locale-aware collation
// (ties broken by code); subsectors are ordered by code.
func BuildHierarchy(records []model.SectorRecord, opts ...BuildOption) []Category {
	o := buildOptions{lang: language.English}
	for _, opt := range opts {
		opt(&o)
	}

	records = dedupeRecords(records)

	tree := make([]Category, 0)
	catPos := make(map[string]int)
	secPos := make(map[string]map[string]int)

	for _, r := range records {
		groupCode, groupName := withPlaceholder(r.GroupCode, r.GroupName)
		catCode, catName := withPlaceholder(r.CategoryCode, r.CategoryName)

		ci, ok := catPos[groupCode]
		if !ok {
			ci = len(tree)
			catPos[groupCode] = ci
			secPos[groupCode] = make(map[string]int)
			tree = append(tree, Category{Code: groupCode, Name: groupName})
		}
		cat := &tree[ci]

		si, ok := secPos[groupCode][catCode]
		if !ok {
			si = len(cat.Sectors)
			secPos[groupCode][catCode] = si
			cat.Sectors = append(cat.Sectors, Sector{Code: catCode, Name: catName})
		}
		sec := &cat.Sectors[si]

		sec.Subsectors = append(sec.Subsectors, Subsector{
			Code:         r.Code,
			Name:         strings.TrimSpace(r.Name),
			SectorCode:   catCode,
			SectorName:   catName,
			CategoryCode: groupCode,
			CategoryName: groupName,
		})
	}

	sortTree(tree, collate.New(o.lang))
	return tree
}

// dedupeRecords drops records without a valid code and collapses duplicate
// codes, keeping the position of the first occurrence and the content of
// the last.
func dedupeRecords(records []model.SectorRecord) []model.SectorRecord {
	out := make([]model.SectorRecord, 0, len(records))
	pos := make(map[string]int, len(records))
	for _, r := range records {
		if !r.HasValidCode() {
			continue
		}
		if i, ok := pos[r.Code]; ok {
			zap.L().Warn("sector: duplicate taxonomy code, keeping last",
				zap.String("code", r.Code),
				zap.String("previous_name", out[i].Name),
				zap.String("name", r.Name),
			)
			out[i] = r
			continue
		}
		pos[r.Code] = len(out)
		out = append(out, r)
	}
	return out
}

func withPlaceholder(code, name string) (string, string) {
	code = strings.TrimSpace(code)
	name = strings.TrimSpace(name)
	if code == "" {
		code = PlaceholderCode
	}
	if name == "" {
		name = PlaceholderName
	}
	return code, name
}

func sortTree(tree []Category, col *collate.Collator) {
	byName := func(aName, aCode, bName, bCode string) int {
		if c := col.CompareString(aName, bName); c != 0 {
			return c
		}
		return strings.Compare(aCode, bCode)
	}

	slices.SortStableFunc(tree, func(a, b Category) int {
		return byName(a.Name, a.Code, b.Name, b.Code)
	})
	for ci := range tree {
		sectors := tree[ci].Sectors
		slices.SortStableFunc(sectors, func(a, b Sector) int {
			return byName(a.Name, a.Code, b.Name, b.Code)
		})
		for si := range sectors {
			slices.SortStableFunc(sectors[si].Subsectors, func(a, b Subsector) int {
				return strings.Compare(a.Code, b.Code)
			})
		}
	}
}
