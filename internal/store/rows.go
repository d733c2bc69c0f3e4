package store

import (
	"database/sql"
	"time"

	"github.com/sells-group/aims-sectors/internal/model"
)

type scannable interface {
	Scan(dest ...any) error
}

type allocationRow struct {
	activityID string
	alloc      model.SectorAllocation
	funding    *float64
	updatedAt  time.Time
}

func scanSector(row scannable) (model.SectorRecord, error) {
	var r model.SectorRecord
	var status string
	if err := row.Scan(&r.Code, &r.Name, &r.GroupCode, &r.GroupName, &r.CategoryCode, &r.CategoryName, &status); err != nil {
		return r, err
	}
	r.Status = model.SectorStatus(status)
	return r, nil
}

// scanAllocation reads activity_id, code, percentage, updated_at and, when
// withFunding is set, a trailing joined funding column.
func scanAllocation(row scannable, withFunding bool) (allocationRow, error) {
	var r allocationRow
	var pct, funding sql.NullFloat64
	dest := []any{&r.activityID, &r.alloc.Code, &pct, &r.updatedAt}
	if withFunding {
		dest = append(dest, &funding)
	}
	if err := row.Scan(dest...); err != nil {
		return r, err
	}
	r.alloc.Percentage = floatPtr(pct)
	r.funding = floatPtr(funding)
	r.updatedAt = r.updatedAt.UTC()
	return r, nil
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// nullableFloat maps a nil pointer to SQL NULL.
func nullableFloat(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func sectorRows(records []model.SectorRecord) [][]any {
	rows := make([][]any, 0, len(records))
	for i, r := range records {
		rows = append(rows, []any{r.Code, r.Name, r.GroupCode, r.GroupName, r.CategoryCode, r.CategoryName, string(r.Status), i})
	}
	return rows
}

func allocationRows(activityID string, allocations []model.SectorAllocation, now time.Time) [][]any {
	rows := make([][]any, 0, len(allocations))
	for i, a := range allocations {
		rows = append(rows, []any{activityID, a.Code, nullableFloat(a.Percentage), i, now})
	}
	return rows
}
