package model

import "strings"

// SectorCodeLength is the length of a selectable 5-digit sector code.
const SectorCodeLength = 5

// SectorStatus is the lifecycle status carried by a taxonomy record.
type SectorStatus string

const (
	SectorStatusActive     SectorStatus = "active"
	SectorStatusWithdrawn  SectorStatus = "withdrawn"
	SectorStatusDeprecated SectorStatus = "deprecated"
)

// SectorRecord is one row of the flat sector taxonomy (one per 5-digit DAC code).
// Field tags follow the published codelist keys.
type SectorRecord struct {
	Code         string       `json:"code" yaml:"code"`
	Name         string       `json:"name" yaml:"name"`
	GroupCode    string       `json:"group-code" yaml:"group-code"`
	GroupName    string       `json:"group-name" yaml:"group-name"`
	CategoryCode string       `json:"category-code" yaml:"category-code"`
	CategoryName string       `json:"category-name" yaml:"category-name"`
	Status       SectorStatus `json:"status,omitempty" yaml:"status,omitempty"`
}

// HasValidCode reports whether the record carries a selectable 5-character code.
func (r SectorRecord) HasValidCode() bool {
	return len(r.Code) == SectorCodeLength
}

// IsActive reports whether the record should be offered for selection.
// An empty status is treated as active.
func (r SectorRecord) IsActive() bool {
	if !r.HasValidCode() {
		return false
	}
	switch SectorStatus(strings.ToLower(strings.TrimSpace(string(r.Status)))) {
	case "", SectorStatusActive:
		return true
	default:
		return false
	}
}
