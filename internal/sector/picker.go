package sector

import (
	"fmt"
	"strings"
)

// SectorPicker is the selection capability shared by every host (HTTP API,
// terminal picker, CLI).
type SectorPicker interface {
	SetQuery(query string)
	Query() string
	Visible() []Category
	Toggle(code string) ToggleResult
	Remove(code string) bool
	Clear()
	SetValue(value []string)
	Value() []string
	IsSelected(code string) bool
}

// Picker combines a built tree, a live query and a Selection. The host owns
// the value: SetValue resynchronizes the picker and every change made
// through the picker is reported to the OnValueChange callback.
type Picker struct {
	tree     []Category
	index    Index
	cache    *FilterCache
	sel      *Selection
	onChange func([]string)

	query   string
	visible []Category

	max     int
	initial []string
	stored  bool
}

var _ SectorPicker = (*Picker)(nil)

// PickerOption configures a Picker.
type PickerOption func(*Picker)

// WithMaxSelections sets the selection cap.
func WithMaxSelections(n int) PickerOption {
	return func(p *Picker) {
		p.max = n
	}
}

// WithOnValueChange registers the callback invoked with the new value
// whenever the selection changes.
func WithOnValueChange(fn func([]string)) PickerOption {
	return func(p *Picker) {
		p.onChange = fn
	}
}

// WithFilterCache shares a memoized filter across pickers over the same tree.
func WithFilterCache(c *FilterCache) PickerOption {
	return func(p *Picker) {
		p.cache = c
	}
}

// WithValue sets the initial controlled value.
func WithValue(value []string) PickerOption {
	return func(p *Picker) {
		p.initial = value
	}
}

// WithStoredValue sets the initial value from persisted data. Every code is
// kept even when the value exceeds the cap; see Selection.Load.
func WithStoredValue(value []string) PickerOption {
	return func(p *Picker) {
		p.initial = value
		p.stored = true
	}
}

// NewPicker creates a picker over a tree built once by the caller.
func NewPicker(tree []Category, opts ...PickerOption) *Picker {
	p := &Picker{
		tree:    tree,
		index:   NewIndex(tree),
		visible: tree,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.sel = NewSelection(p.max)
	if p.stored {
		p.sel.Load(p.initial)
	} else {
		p.sel.SetValue(p.initial)
	}
	p.initial = nil
	return p
}

// Index returns the leaf index of the tree.
func (p *Picker) Index() Index { return p.index }

// Max returns the selection cap.
func (p *Picker) Max() int { return p.sel.Max() }

// Count returns the number of selected codes.
func (p *Picker) Count() int { return p.sel.Count() }

// OverCap reports whether a stored value left more codes than the cap.
func (p *Picker) OverCap() bool { return p.sel.OverCap() }

// AtCap reports whether the selection is full.
func (p *Picker) AtCap() bool { return p.sel.AtCap() }

// SetQuery updates the search text and recomputes the visible tree when it
// changed.
func (p *Picker) SetQuery(query string) {
	if query == p.query {
		return
	}
	p.query = query
	if p.cache != nil {
		p.visible = p.cache.Filter(query)
		return
	}
	p.visible = FilterHierarchy(p.tree, query)
}

// Query returns the current search text.
func (p *Picker) Query() string { return p.query }

// Visible returns the tree filtered by the current query.
func (p *Picker) Visible() []Category { return p.visible }

// Toggle flips code and notifies the host when the selection changed.
func (p *Picker) Toggle(code string) ToggleResult {
	res := p.sel.Toggle(code)
	if res.Changed() {
		p.emit()
	}
	return res
}

// Remove deselects code, notifying the host if it was selected.
func (p *Picker) Remove(code string) bool {
	if !p.sel.Remove(code) {
		return false
	}
	p.emit()
	return true
}

// Clear deselects everything. The host is notified only if something was
// selected.
func (p *Picker) Clear() {
	if p.sel.Count() == 0 {
		return
	}
	p.sel.Clear()
	p.emit()
}

// SetValue resynchronizes the selection from the host. It does not call
// OnValueChange.
func (p *Picker) SetValue(value []string) {
	p.sel.SetValue(value)
}

// Value returns the selected codes in selection order.
func (p *Picker) Value() []string { return p.sel.Selected() }

// IsSelected reports whether code is selected.
func (p *Picker) IsSelected(code string) bool { return p.sel.IsSelected(code) }

// Lookup returns the subsector for code.
func (p *Picker) Lookup(code string) (Subsector, bool) { return p.index.Lookup(code) }

// Summary renders the selection for a compact badge: the first limit
// labels followed by "+N more" when more are selected.
func (p *Picker) Summary(limit int) string {
	codes := p.sel.Selected()
	if len(codes) == 0 {
		return ""
	}
	if limit <= 0 || limit > len(codes) {
		limit = len(codes)
	}
	labels := make([]string, 0, limit)
	for _, code := range codes[:limit] {
		if leaf, ok := p.index.Lookup(code); ok {
			labels = append(labels, leaf.Label())
			continue
		}
		labels = append(labels, code)
	}
	out := strings.Join(labels, ", ")
	if rest := len(codes) - limit; rest > 0 {
		out += fmt.Sprintf(" +%d more", rest)
	}
	return out
}

func (p *Picker) emit() {
	if p.onChange != nil {
		p.onChange(p.sel.Selected())
	}
}
