package postgres

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koustreak/modelerd/internal/database"
	"github.com/koustreak/modelerd/internal/errs"
)

const (
	defaultMaxConns    = 4
	defaultConnTimeout = 10 * time.Second
)

// poolConfig translates cfg into a pgxpool configuration, applying defaults
// for unset pool settings.
func poolConfig(cfg *database.Config) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid DSN", err)
	}

	poolCfg.MaxConns = withDefault(cfg.MaxConns, defaultMaxConns)
	poolCfg.MinConns = cfg.MinConns
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	poolCfg.ConnConfig.ConnectTimeout = defaultConnTimeout
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}
	return poolCfg, nil
}

// withDefault returns val if non-zero, otherwise returns def
func withDefault(val, def int32) int32 {
	if val == 0 {
		return def
	}
	return val
}
