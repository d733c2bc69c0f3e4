package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/sells-group/aims-sectors/internal/fetcher"
	"github.com/sells-group/aims-sectors/internal/model"
	"github.com/sells-group/aims-sectors/internal/sector"
	"github.com/sells-group/aims-sectors/internal/store"
	"github.com/sells-group/aims-sectors/internal/taxonomy"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite", "":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "aims-sectors.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// openStore opens the configured store and applies its schema.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func newLoader() *taxonomy.Loader {
	opener := fetcher.NewOpener(
		fetcher.HTTPOptions{
			UserAgent:    cfg.Taxonomy.UserAgent,
			Timeout:      time.Duration(cfg.Taxonomy.TimeoutSecs) * time.Second,
			RateLimiters: fetcher.DefaultRateLimiters(),
		},
		fetcher.FTPOptions{Timeout: time.Duration(cfg.Taxonomy.TimeoutSecs) * time.Second},
	)
	return taxonomy.NewLoader(opener, cfg.Taxonomy.TempDir)
}

func buildOptions() []sector.BuildOption {
	tag, err := language.Parse(cfg.Taxonomy.Language)
	if err != nil {
		zap.L().Warn("invalid taxonomy language, using default collation",
			zap.String("language", cfg.Taxonomy.Language),
			zap.Error(err),
		)
		return nil
	}
	return []sector.BuildOption{sector.WithLanguage(tag)}
}

// loadRecords returns the stored taxonomy, or loads the configured source
// when nothing has been imported yet.
func loadRecords(ctx context.Context, st store.Store) ([]model.SectorRecord, error) {
	if st != nil {
		records, err := st.ListSectors(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "list stored sectors")
		}
		if len(records) > 0 {
			return records, nil
		}
		zap.L().Debug("store has no taxonomy, loading source", zap.String("source", cfg.Taxonomy.Source))
	}
	records, err := newLoader().Load(ctx, cfg.Taxonomy.Source)
	if err != nil {
		return nil, eris.Wrap(err, "load taxonomy")
	}
	return records, nil
}

// loadTree builds the active sector hierarchy once per command.
func loadTree(ctx context.Context, st store.Store) ([]sector.Category, error) {
	records, err := loadRecords(ctx, st)
	if err != nil {
		return nil, err
	}
	return sector.BuildHierarchy(taxonomy.ActiveOnly(records), buildOptions()...), nil
}
