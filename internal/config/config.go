// Package config turns the loaded settings into the concrete store,
// search index and event publisher the server runs on.
package config

import (
	"context"
	"fmt"

	"github.com/Skotchmaster/sweet_shop/internal/repo"
	"github.com/Skotchmaster/sweet_shop/internal/repo/gormrepo"
	"github.com/Skotchmaster/sweet_shop/internal/repo/mongorepo"
	"github.com/Skotchmaster/sweet_shop/internal/search"
	pkgconfig "github.com/Skotchmaster/sweet_shop/pkg/config"
	pkgdb "github.com/Skotchmaster/sweet_shop/pkg/db"
	"gorm.io/gorm"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
)

var Drivers = []string{DriverPostgres, DriverSQLite, DriverMongo}

// Load reads the environment and exits on missing required settings.
func Load() pkgconfig.Config {
	cfg := pkgconfig.Load()

	pkgconfig.MustNonEmptyBytes(cfg.JWTSecret, "JWT_SECRET")
	pkgconfig.MustOneOf(cfg.StoreDriver, "STORE_DRIVER", Drivers...)
	switch cfg.StoreDriver {
	case DriverPostgres:
		pkgconfig.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	case DriverMongo:
		pkgconfig.MustNonEmpty(cfg.MongoURI, "MONGODB_URI")
	}
	return cfg
}

// OpenStore connects the configured backend and prepares its schema.
func OpenStore(ctx context.Context, cfg pkgconfig.Config) (repo.Store, error) {
	switch cfg.StoreDriver {
	case DriverPostgres:
		db, err := pkgdb.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return migrated(ctx, db)
	case DriverSQLite:
		db, err := pkgdb.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return migrated(ctx, db)
	case DriverMongo:
		r, err := mongorepo.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		if err := r.EnsureIndexes(ctx); err != nil {
			_ = r.Close(ctx)
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func migrated(ctx context.Context, db *gorm.DB) (*gormrepo.GormRepo, error) {
	r := gormrepo.New(db)
	if err := r.Migrate(ctx); err != nil {
		_ = r.Close(ctx)
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return r, nil
}

// OpenIndex returns nil when no Elasticsearch URL is configured.
func OpenIndex(ctx context.Context, cfg pkgconfig.Config) (*search.Index, error) {
	if cfg.ESURL == "" {
		return nil, nil
	}
	es, err := search.NewClient(ctx, search.ClientConfig{URL: cfg.ESURL, User: cfg.ESUser, Password: cfg.ESPassword})
	if err != nil {
		return nil, err
	}
	idx := search.NewIndex(es, cfg.ESIndex)
	if err := idx.EnsureIndex(ctx); err != nil {
		return nil, err
	}
	return idx, nil
}
