package sector

import (
	"slices"

	"go.uber.org/zap"
)

// DefaultMaxSelections is the selection cap used when none is configured.
const DefaultMaxSelections = 10

// ToggleResult reports what a selection change did.
type ToggleResult int

const (
	// Unchanged means the call had no effect (e.g. adding a code that is
	// already selected).
	Unchanged ToggleResult = iota
	Added
	Removed
	// LimitReached means an add was rejected because the selection is at
	// its cap. The selection is unchanged.
	LimitReached
)

func (r ToggleResult) String() string {
	switch r {
	case Added:
		return "added"
	case Removed:
		return "removed"
	case LimitReached:
		return "limit_reached"
	default:
		return "unchanged"
	}
}

// Changed reports whether the selection was modified.
func (r ToggleResult) Changed() bool {
	return r == Added || r == Removed
}

// Selection is an insertion-ordered set of subsector codes bounded by a cap.
// Adds at or over the cap are rejected, removals are always allowed. Only
// Load can leave the selection over the cap.
type Selection struct {
	max   int
	codes []string
	set   map[string]struct{}
}

// NewSelection creates an empty selection. A non-positive limit falls back to
// DefaultMaxSelections.
func NewSelection(limit int) *Selection {
	if limit <= 0 {
		limit = DefaultMaxSelections
	}
	return &Selection{
		max: limit,
		set: make(map[string]struct{}),
	}
}

// Max returns the selection cap.
func (s *Selection) Max() int { return s.max }

// Count returns the number of selected codes.
func (s *Selection) Count() int { return len(s.codes) }

// AtCap reports whether further additions will be rejected.
func (s *Selection) AtCap() bool { return len(s.codes) >= s.max }

// OverCap reports whether a loaded value holds more codes than the cap.
func (s *Selection) OverCap() bool { return len(s.codes) > s.max }

// IsSelected reports whether code is selected.
func (s *Selection) IsSelected(code string) bool {
	_, ok := s.set[code]
	return ok
}

// Selected returns a copy of the selected codes in the order they were added.
func (s *Selection) Selected() []string {
	return slices.Clone(s.codes)
}

// Toggle removes code when selected, otherwise adds it if the cap allows.
func (s *Selection) Toggle(code string) ToggleResult {
	if s.IsSelected(code) {
		s.remove(code)
		return Removed
	}
	return s.Add(code)
}

// Add selects code. Adding an already selected or empty code is Unchanged.
func (s *Selection) Add(code string) ToggleResult {
	if code == "" || s.IsSelected(code) {
		return Unchanged
	}
	if s.AtCap() {
		return LimitReached
	}
	s.codes = append(s.codes, code)
	s.set[code] = struct{}{}
	return Added
}

// Remove deselects code and reports whether it was selected.
func (s *Selection) Remove(code string) bool {
	if !s.IsSelected(code) {
		return false
	}
	s.remove(code)
	return true
}

func (s *Selection) remove(code string) {
	delete(s.set, code)
	if i := slices.Index(s.codes, code); i >= 0 {
		s.codes = slices.Delete(s.codes, i, i+1)
	}
}

// Clear deselects everything.
func (s *Selection) Clear() {
	s.codes = nil
	clear(s.set)
}

// SetValue replaces the selection with value, as supplied by the owning
// host. Empty and repeated codes are dropped; codes past the cap are
// discarded.
func (s *Selection) SetValue(value []string) {
	s.Clear()
	dropped := 0
	for _, code := range value {
		if s.Add(code) == LimitReached {
			dropped++
		}
	}
	if dropped > 0 {
		zap.L().Warn("sector: selection value exceeds cap, truncated",
			zap.Int("max", s.max),
			zap.Int("dropped", dropped),
		)
	}
}

// Load replaces the selection with a persisted value. Unlike SetValue it
// keeps every code, even past the cap, so a later change never drops codes
// the caller did not touch. Adds stay rejected until removals bring the
// count under the cap.
func (s *Selection) Load(value []string) {
	s.Clear()
	for _, code := range value {
		if code == "" || s.IsSelected(code) {
			continue
		}
		s.codes = append(s.codes, code)
		s.set[code] = struct{}{}
	}
	if s.OverCap() {
		zap.L().Warn("sector: stored selection exceeds cap",
			zap.Int("max", s.max),
			zap.Int("count", len(s.codes)),
		)
	}
}
