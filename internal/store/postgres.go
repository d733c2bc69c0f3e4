package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/aims-sectors/internal/db"
	"github.com/sells-group/aims-sectors/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
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
	imported_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS activity_sectors (
	activity_id TEXT NOT NULL,
	code        TEXT NOT NULL,
	percentage  DOUBLE PRECISION,
	position    INTEGER NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (activity_id, code)
);

CREATE TABLE IF NOT EXISTS activities (
	activity_id TEXT PRIMARY KEY,
	funding     DOUBLE PRECISION,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_taxonomy_imports_imported_at ON taxonomy_imports(imported_at DESC);
CREATE INDEX IF NOT EXISTS idx_activity_sectors_code ON activity_sectors(code);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) ReplaceSectors(ctx context.Context, source string, records []model.SectorRecord) (*model.TaxonomyImport, error) {
	imp := &model.TaxonomyImport{
		ID:          uuid.New().String(),
		Source:      source,
		RecordCount: len(records),
		ImportedAt:  time.Now().UTC(),
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin replace sectors")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := db.Replace(ctx, tx, db.ReplaceConfig{Table: "sectors", Columns: sectorColumns}, sectorRows(records)); err != nil {
		return nil, eris.Wrap(err, "postgres: replace sectors")
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO taxonomy_imports (id, source, record_count, imported_at) VALUES ($1, $2, $3, $4)`,
		imp.ID, imp.Source, imp.RecordCount, imp.ImportedAt,
	); err != nil {
		return nil, eris.Wrap(err, "postgres: insert taxonomy import")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit replace sectors")
	}
	return imp, nil
}

func (s *PostgresStore) ListSectors(ctx context.Context) ([]model.SectorRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT code, name, group_code, group_name, category_code, category_name, status
		 FROM sectors ORDER BY position`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list sectors")
	}
	defer rows.Close()

	records := make([]model.SectorRecord, 0)
	for rows.Next() {
		r, err := scanSector(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan sector")
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "postgres: iterate sectors")
}

func (s *PostgresStore) LastImport(ctx context.Context) (*model.TaxonomyImport, error) {
	var imp model.TaxonomyImport
	err := s.pool.QueryRow(ctx,
		`SELECT id, source, record_count, imported_at FROM taxonomy_imports ORDER BY imported_at DESC LIMIT 1`,
	).Scan(&imp.ID, &imp.Source, &imp.RecordCount, &imp.ImportedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: last import")
	}
	imp.ImportedAt = imp.ImportedAt.UTC()
	return &imp, nil
}

func (s *PostgresStore) GetActivitySectors(ctx context.Context, activityID string) (*model.ActivitySectors, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT activity_id, code, percentage, updated_at
		 FROM activity_sectors WHERE activity_id = $1 ORDER BY position`,
		activityID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get activity sectors %s", activityID)
	}
	defer rows.Close()

	scanned, err := collectPgAllocations(rows, false)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: scan activity sectors %s", activityID)
	}
	out := &model.ActivitySectors{ActivityID: activityID, Allocations: []model.SectorAllocation{}}
	if grouped := groupAllocations(scanned); len(grouped) > 0 {
		out = &grouped[0]
	}

	var funding sql.NullFloat64
	err = s.pool.QueryRow(ctx, `SELECT funding FROM activities WHERE activity_id = $1`, activityID).Scan(&funding)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(err, "postgres: get activity funding %s", activityID)
	}
	out.Funding = floatPtr(funding)
	return out, nil
}

func (s *PostgresStore) SetActivitySectors(ctx context.Context, activityID string, allocations []model.SectorAllocation) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin set activity sectors")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	cfg := db.ReplaceConfig{
		Table:       "activity_sectors",
		Columns:     allocationColumns,
		ScopeColumn: "activity_id",
		ScopeValue:  activityID,
	}
	if _, err := db.Replace(ctx, tx, cfg, allocationRows(activityID, allocations, time.Now().UTC())); err != nil {
		return eris.Wrapf(err, "postgres: set activity sectors %s", activityID)
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit activity sectors")
}

func (s *PostgresStore) ListAllocations(ctx context.Context) ([]model.ActivitySectors, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT s.activity_id, s.code, s.percentage, s.updated_at, a.funding
		 FROM activity_sectors s LEFT JOIN activities a ON a.activity_id = s.activity_id
		 ORDER BY s.activity_id, s.position`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list allocations")
	}
	defer rows.Close()

	scanned, err := collectPgAllocations(rows, true)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan allocations")
	}
	return groupAllocations(scanned), nil
}

func (s *PostgresStore) ListActivitiesBySector(ctx context.Context, code string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT activity_id FROM activity_sectors WHERE code = $1 ORDER BY activity_id`, code)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list activities by sector %s", code)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "postgres: scan activity id")
		}
		ids = append(ids, id)
	}
	return ids, eris.Wrap(rows.Err(), "postgres: iterate activities by sector")
}

func (s *PostgresStore) SetActivityFunding(ctx context.Context, activityID string, amount *float64) error {
	if err := checkFunding(amount); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO activities (activity_id, funding, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (activity_id) DO UPDATE SET funding = EXCLUDED.funding, updated_at = EXCLUDED.updated_at`,
		activityID, nullableFloat(amount), time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: set activity funding %s", activityID)
}

func collectPgAllocations(rows pgx.Rows, withFunding bool) ([]allocationRow, error) {
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
