package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/aims-sectors/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS sectors (
	code          TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	group_code    TEXT NOT NULL DEFAULT '',
	group_name    TEXT NOT NULL DEFAULT '',
	category_code TEXT NOT NULL DEFAULT '',
	category_name TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL DEFAULT '',
	position      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS taxonomy_imports (
	id           TEXT PRIMARY KEY,
	source       TEXT NOT NULL,
	record_count INTEGER NOT NULL,
	imported_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS activity_sectors (
	activity_id TEXT NOT NULL,
	code        TEXT NOT NULL,
	percentage  REAL,
	position    INTEGER NOT NULL,
	updated_at  DATETIME NOT NULL,
	PRIMARY KEY (activity_id, code)
);

CREATE TABLE IF NOT EXISTS activities (
	activity_id TEXT PRIMARY KEY,
	funding     REAL,
	updated_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_taxonomy_imports_imported_at ON taxonomy_imports(imported_at);
CREATE INDEX IF NOT EXISTS idx_activity_sectors_code ON activity_sectors(code);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ReplaceSectors(ctx context.Context, source string, records []model.SectorRecord) (*model.TaxonomyImport, error) {
	imp := &model.TaxonomyImport{
		ID:          uuid.New().String(),
		Source:      source,
		RecordCount: len(records),
		ImportedAt:  time.Now().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin replace sectors")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM sectors`); err != nil {
		return nil, eris.Wrap(err, "sqlite: clear sectors")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO sectors (code, name, group_code, group_name, category_code, category_name, status, position)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: prepare sector insert")
	}
	defer stmt.Close()

	for _, row := range sectorRows(records) {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return nil, eris.Wrapf(err, "sqlite: insert sector %v", row[0])
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO taxonomy_imports (id, source, record_count, imported_at) VALUES (?, ?, ?, ?)`,
		imp.ID, imp.Source, imp.RecordCount, imp.ImportedAt,
	); err != nil {
		return nil, eris.Wrap(err, "sqlite: insert taxonomy import")
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit replace sectors")
	}
	return imp, nil
}

func (s *SQLiteStore) ListSectors(ctx context.Context) ([]model.SectorRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT code, name, group_code, group_name, category_code, category_name, status
		 FROM sectors ORDER BY position`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list sectors")
	}
	defer rows.Close()

	records := make([]model.SectorRecord, 0)
	for rows.Next() {
		r, err := scanSector(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan sector")
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: iterate sectors")
}

func (s *SQLiteStore) LastImport(ctx context.Context) (*model.TaxonomyImport, error) {
	var imp model.TaxonomyImport
	err := s.db.QueryRowContext(ctx,
		`SELECT id, source, record_count, imported_at FROM taxonomy_imports ORDER BY imported_at DESC LIMIT 1`,
	).Scan(&imp.ID, &imp.Source, &imp.RecordCount, &imp.ImportedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: last import")
	}
	imp.ImportedAt = imp.ImportedAt.UTC()
	return &imp, nil
}

func (s *SQLiteStore) GetActivitySectors(ctx context.Context, activityID string) (*model.ActivitySectors, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT activity_id, code, percentage, updated_at
		 FROM activity_sectors WHERE activity_id = ? ORDER BY position`,
		activityID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get activity sectors %s", activityID)
	}
	defer rows.Close()

	scanned, err := collectAllocations(rows, false)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: scan activity sectors %s", activityID)
	}
	out := &model.ActivitySectors{ActivityID: activityID, Allocations: []model.SectorAllocation{}}
	if grouped := groupAllocations(scanned); len(grouped) > 0 {
		out = &grouped[0]
	}

	var funding sql.NullFloat64
	err = s.db.QueryRowContext(ctx, `SELECT funding FROM activities WHERE activity_id = ?`, activityID).Scan(&funding)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(err, "sqlite: get activity funding %s", activityID)
	}
	out.Funding = floatPtr(funding)
	return out, nil
}

func (s *SQLiteStore) SetActivitySectors(ctx context.Context, activityID string, allocations []model.SectorAllocation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin set activity sectors")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM activity_sectors WHERE activity_id = ?`, activityID); err != nil {
		return eris.Wrapf(err, "sqlite: clear activity sectors %s", activityID)
	}

	for _, row := range allocationRows(activityID, allocations, time.Now().UTC()) {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO activity_sectors (activity_id, code, percentage, position, updated_at) VALUES (?, ?, ?, ?, ?)`,
			row...,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert activity sector %s/%v", activityID, row[1])
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit activity sectors")
}

func (s *SQLiteStore) ListAllocations(ctx context.Context) ([]model.ActivitySectors, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.activity_id, s.code, s.percentage, s.updated_at, a.funding
		 FROM activity_sectors s LEFT JOIN activities a ON a.activity_id = s.activity_id
		 ORDER BY s.activity_id, s.position`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list allocations")
	}
	defer rows.Close()

	scanned, err := collectAllocations(rows, true)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan allocations")
	}
	return groupAllocations(scanned), nil
}

func (s *SQLiteStore) ListActivitiesBySector(ctx context.Context, code string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT activity_id FROM activity_sectors WHERE code = ? ORDER BY activity_id`, code)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list activities by sector %s", code)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan activity id")
		}
		ids = append(ids, id)
	}
	return ids, eris.Wrap(rows.Err(), "sqlite: iterate activities by sector")
}

func (s *SQLiteStore) SetActivityFunding(ctx context.Context, activityID string, amount *float64) error {
	if err := checkFunding(amount); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO activities (activity_id, funding, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (activity_id) DO UPDATE SET funding = excluded.funding, updated_at = excluded.updated_at`,
		activityID, nullableFloat(amount), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: set activity funding %s", activityID)
}

func collectAllocations(rows *sql.Rows, withFunding bool) ([]allocationRow, error) {
	var out []allocationRow
	for rows.Next() {
		r, err := scanAllocation(rows, withFunding)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
