package model

import "time"

// SectorAllocation assigns one sector code to an activity. Percentage is
// optional; nil means the activity did not report a split.
type SectorAllocation struct {
	Code       string   `json:"code"`
	Percentage *float64 `json:"percentage,omitempty"`
}

// ActivitySectors is the persisted sector selection of a single activity.
// Allocations keep the order in which codes were selected. Funding is the
// activity's total funding amount when one was recorded.
type ActivitySectors struct {
	ActivityID  string             `json:"activity_id"`
	Allocations []SectorAllocation `json:"allocations"`
	Funding     *float64           `json:"funding,omitempty"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// Codes returns the selected codes in selection order.
func (a ActivitySectors) Codes() []string {
	codes := make([]string, 0, len(a.Allocations))
	for _, al := range a.Allocations {
		codes = append(codes, al.Code)
	}
	return codes
}

// TaxonomyImport records one load of the sector taxonomy into the store.
type TaxonomyImport struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	RecordCount int       `json:"record_count"`
	ImportedAt  time.Time `json:"imported_at"`
}
