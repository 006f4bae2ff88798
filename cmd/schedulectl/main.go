package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sbrito346/school-project/internal/config"
	"github.com/sbrito346/school-project/internal/database"
	"github.com/sbrito346/school-project/internal/directory"
	"github.com/sbrito346/school-project/internal/store/bunstore"
)

var (
	driverFlag string
	sqliteFlag string
	urlFlag    string
	rootCmd    = &cobra.Command{
		Use:           "schedulectl",
		Short:         "Administer the scheduler database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func main() {
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVar(&driverFlag, "driver", "", "Database driver (sqlite or postgres); overrides SCHEDULER_DATABASE_DRIVER")
	rootCmd.PersistentFlags().StringVar(&sqliteFlag, "sqlite", "", "SQLite database path; overrides SCHEDULER_DATABASE_SQLITE_PATH")
	rootCmd.PersistentFlags().StringVar(&urlFlag, "database-url", "", "Postgres URL; overrides SCHEDULER_DATABASE_URL")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create any missing tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, _, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer h.Close()
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	})

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// open loads the config with flag overrides applied, connects and makes sure
// the schema exists.
func open(ctx context.Context) (*database.Handle, config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, config.Config{}, err
	}
	if driverFlag != "" {
		cfg.DatabaseDriver = driverFlag
	}
	if sqliteFlag != "" {
		cfg.SQLitePath = sqliteFlag
	}
	if urlFlag != "" {
		cfg.DatabaseURL = urlFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, config.Config{}, err
	}

	h, err := database.Open(cfg)
	if err != nil {
		return nil, config.Config{}, err
	}
	if err := bunstore.CreateSchema(ctx, h.DB); err != nil {
		_ = h.Close()
		return nil, config.Config{}, err
	}
	return h, cfg, nil
}

// loadDirectory opens the database and loads a directory in the session zone.
func loadDirectory(ctx context.Context) (*directory.Directory, *database.Handle, config.Config, error) {
	h, cfg, err := open(ctx)
	if err != nil {
		return nil, nil, config.Config{}, err
	}
	loc, err := cfg.SessionLocation()
	if err != nil {
		_ = h.Close()
		return nil, nil, config.Config{}, err
	}
	quiet := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	dir := directory.New(h.Stores, h.Tx, directory.Options{Logger: quiet, Location: loc})
	if err := dir.Load(ctx); err != nil {
		_ = h.Close()
		return nil, nil, config.Config{}, err
	}
	return dir, h, cfg, nil
}
