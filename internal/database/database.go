// Package database opens the configured backing store for the binaries.
package database

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/uptrace/bun"

	"github.com/sbrito346/school-project/internal/config"
	"github.com/sbrito346/school-project/internal/store"
	"github.com/sbrito346/school-project/internal/store/postgres"
	"github.com/sbrito346/school-project/internal/store/sqlite"
)

// Handle is an open database together with the stores bound to it.
type Handle struct {
	DB     *bun.DB
	Stores store.Set
	Tx     store.Transactor
}

func (h *Handle) Close() error {
	if h == nil {
		return nil
	}
	return h.DB.Close()
}

// Open connects to the driver named in cfg.
func Open(cfg config.Config) (*Handle, error) {
	var (
		db  *bun.DB
		err error
		h   = &Handle{}
	)
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		db, err = postgres.Open(cfg.DatabaseURL, postgres.PoolConfig{
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnMaxLifetime,
			ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
		})
		if err != nil {
			return nil, err
		}
		h.Stores, h.Tx = postgres.Stores(db)
	case config.DriverSQLite:
		db, err = sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		h.Stores, h.Tx = sqlite.Stores(db)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
	h.DB = db
	return h, nil
}

// LogArgs describes the configured database without leaking credentials.
func LogArgs(cfg config.Config) []any {
	if cfg.DatabaseDriver == config.DriverSQLite {
		return []any{
			slog.String("db_driver", cfg.DatabaseDriver),
			slog.String("db_path", cfg.SQLitePath),
		}
	}

	u, err := url.Parse(cfg.DatabaseURL)
	if err != nil {
		return []any{slog.String("db_driver", cfg.DatabaseDriver), slog.String("db_url", "invalid")}
	}
	name := strings.TrimPrefix(u.Path, "/")
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "default"
	}
	if host == "" {
		host = "unknown"
	}
	if name == "" {
		name = "unknown"
	}
	return []any{
		slog.String("db_driver", cfg.DatabaseDriver),
		slog.String("db_host", host),
		slog.String("db_port", port),
		slog.String("db_name", name),
	}
}
