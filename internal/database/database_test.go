package database

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sbrito346/school-project/internal/config"
	"github.com/sbrito346/school-project/internal/domain"
	"github.com/sbrito346/school-project/internal/store/bunstore"
)

func TestOpen_SQLiteFile(t *testing.T) {
	cfg := config.Config{DatabaseDriver: config.DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "data", "scheduler.db")}

	h, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })

	ctx := context.Background()
	require.NoError(t, bunstore.CreateSchema(ctx, h.DB))
	id, err := h.Stores.Countries.Insert(ctx, domain.Country{Name: "UK"})
	require.NoError(t, err)
	require.NotZero(t, id)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(config.Config{DatabaseDriver: "mysql"})
	require.Error(t, err)
}

func TestLogArgs_HidesCredentials(t *testing.T) {
	args := LogArgs(config.Config{DatabaseDriver: config.DriverPostgres, DatabaseURL: "postgres://u:secret@db:6543/appts"})

	got := map[string]string{}
	for _, a := range args {
		attr := a.(slog.Attr)
		got[attr.Key] = attr.Value.String()
	}
	require.Equal(t, map[string]string{
		"db_driver": "postgres",
		"db_host":   "db",
		"db_port":   "6543",
		"db_name":   "appts",
	}, got)
}
