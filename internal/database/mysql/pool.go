package mysql

import (
	"database/sql"
	"time"

	"github.com/koustreak/modelerd/internal/database"
)

const (
	defaultMaxOpenConns    = 4
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 5 * time.Minute
)

// configurePool applies pool settings to db, with defaults for unset values.
func configurePool(db *sql.DB, cfg *database.Config) {
	maxOpen := int(cfg.MaxConns)
	if maxOpen == 0 {
		maxOpen = defaultMaxOpenConns
	}
	lifetime := cfg.MaxConnLifetime
	if lifetime == 0 {
		lifetime = defaultConnMaxLifetime
	}
	idle := cfg.MaxConnIdleTime
	if idle == 0 {
		idle = defaultConnMaxIdleTime
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(int(cfg.MinConns))
	db.SetConnMaxLifetime(lifetime)
	db.SetConnMaxIdleTime(idle)
}
