package main

import (
	"context"

	"github.com/koustreak/modelerd/internal/config"
	"github.com/koustreak/modelerd/internal/database"
	"github.com/koustreak/modelerd/internal/database/mysql"
	"github.com/koustreak/modelerd/internal/database/postgres"
	"github.com/koustreak/modelerd/internal/erd"
	"github.com/koustreak/modelerd/internal/errs"
	"github.com/koustreak/modelerd/internal/logger"
	"github.com/koustreak/modelerd/internal/metadata"
)

// openDB connects the configured database. A nil DB means the generator
// falls back to the tables declared in the manifest.
func openDB(ctx context.Context, cfg *database.Config) (database.DB, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	switch cfg.Driver {
	case database.DriverPostgres:
		return postgres.New(ctx, cfg)
	case database.DriverMySQL:
		return mysql.New(ctx, cfg)
	default:
		return nil, errs.Newf(errs.ErrKindInvalidInput, "unsupported database driver %q", cfg.Driver)
	}
}

// newGenerator wires the manifest source and optional database into a
// generator. The returned cleanup closes the database.
func newGenerator(ctx context.Context, cfg *config.Config, log *logger.Logger) (*erd.Generator, func(), error) {
	if cfg.Metadata.Manifest == "" {
		return nil, nil, errs.New(errs.ErrKindInvalidInput, "no model manifest configured")
	}

	db, err := openDB(ctx, &cfg.Database)
	if err != nil {
		return nil, nil, err
	}

	var in erd.Introspector
	cleanup := func() {}
	if db != nil {
		in = db
		cleanup = db.Close
		log.With().Str("driver", string(cfg.Database.Driver)).Logger().Info("introspecting live database")
	}

	return erd.NewGenerator(metadata.NewManifestSource(cfg.Metadata.Manifest), in, log), cleanup, nil
}
