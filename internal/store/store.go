package store

import (
	"context"
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/aims-sectors/internal/model"
)

// Store defines the persistence interface for the sector taxonomy and
// activity sector assignments.
type Store interface {
	// Taxonomy
	ReplaceSectors(ctx context.Context, source string, records []model.SectorRecord) (*model.TaxonomyImport, error)
	ListSectors(ctx context.Context) ([]model.SectorRecord, error)
	LastImport(ctx context.Context) (*model.TaxonomyImport, error)

	// Activity assignments
	GetActivitySectors(ctx context.Context, activityID string) (*model.ActivitySectors, error)
	SetActivitySectors(ctx context.Context, activityID string, allocations []model.SectorAllocation) error
	ListAllocations(ctx context.Context) ([]model.ActivitySectors, error)
	ListActivitiesBySector(ctx context.Context, code string) ([]string, error)

	// Activity funding. A nil amount clears it.
	SetActivityFunding(ctx context.Context, activityID string, amount *float64) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

var (
	sectorColumns     = []string{"code", "name", "group_code", "group_name", "category_code", "category_name", "status", "position"}
	allocationColumns = []string{"activity_id", "code", "percentage", "position", "updated_at"}
)

// ErrNegativeFunding rejects funding amounts below zero.
var ErrNegativeFunding = eris.New("store: funding must not be negative")

func checkFunding(amount *float64) error {
	if amount != nil && (*amount < 0 || math.IsNaN(*amount)) {
		return ErrNegativeFunding
	}
	return nil
}

// groupAllocations folds ordered allocation rows into per-activity values.
// Rows must already be sorted by activity and position.
func groupAllocations(rows []allocationRow) []model.ActivitySectors {
	out := make([]model.ActivitySectors, 0)
	for _, r := range rows {
		if n := len(out); n == 0 || out[n-1].ActivityID != r.activityID {
			out = append(out, model.ActivitySectors{ActivityID: r.activityID, Allocations: []model.SectorAllocation{}})
		}
		cur := &out[len(out)-1]
		cur.Allocations = append(cur.Allocations, r.alloc)
		if r.funding != nil {
			cur.Funding = r.funding
		}
		if r.updatedAt.After(cur.UpdatedAt) {
			cur.UpdatedAt = r.updatedAt
		}
	}
	return out
}
