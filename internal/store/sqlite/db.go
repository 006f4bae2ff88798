package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"modernc.org/sqlite"

	"github.com/sbrito346/school-project/internal/store"
	"github.com/sbrito346/school-project/internal/store/bunstore"
)

// sqliteConstraint is the primary SQLITE_CONSTRAINT result code; extended
// codes keep it in the low byte.
const sqliteConstraint = 19

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Open opens (or creates) the database at path with WAL journaling and
// foreign keys enforced.
func Open(path string) (*bun.DB, error) {
	dsn := "file::memory:?_pragma=foreign_keys(ON)"
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", path)
	}

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// One writer; an in-memory database also vanishes with its last connection.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return bun.NewDB(sqlDB, sqlitedialect.New()), nil
}

// Stores returns the entity stores and transactor backed by db.
func Stores(db *bun.DB) (store.Set, store.Transactor) {
	return bunstore.NewSet(db, MapError), bunstore.NewTransactor(db, MapError)
}

func MapError(err error) error {
	if err == nil {
		return nil
	}
	var sqlErr *sqlite.Error
	if errors.As(err, &sqlErr) && sqlErr.Code()&0xff == sqliteConstraint {
		return fmt.Errorf("%w: %w", store.ErrConstraint, err)
	}
	if errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%w: %w", store.ErrUnavailable, err)
	}
	return err
}
