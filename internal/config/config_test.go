package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.DatabaseDriver != DriverSQLite {
		t.Fatalf("DatabaseDriver = %q, want %q", cfg.DatabaseDriver, DriverSQLite)
	}
	if cfg.GRPCPort != 50051 {
		t.Fatalf("GRPCPort = %d, want %d", cfg.GRPCPort, 50051)
	}
	if cfg.UpcomingWindow != 15*time.Minute {
		t.Fatalf("UpcomingWindow = %v, want %v", cfg.UpcomingWindow, 15*time.Minute)
	}
	if cfg.OpenHour != 8 || cfg.CloseHour != 22 {
		t.Fatalf("hours = %d-%d, want 8-22", cfg.OpenHour, cfg.CloseHour)
	}
	if cfg.BusinessZone != "America/New_York" {
		t.Fatalf("BusinessZone = %q, want %q", cfg.BusinessZone, "America/New_York")
	}
}

func TestLoad_EnvOverridesAndAddr(t *testing.T) {
	t.Setenv("SCHEDULER_DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/s")
	t.Setenv("SCHEDULER_GRPC_ADDR", "0.0.0.0:7000")
	t.Setenv("SCHEDULER_SCHEDULING_UPCOMING_WINDOW", "30m")
	t.Setenv("SCHEDULER_SESSION_TIME_ZONE", "Europe/London")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.DatabaseDriver != DriverPostgres {
		t.Fatalf("DatabaseDriver = %q, want %q", cfg.DatabaseDriver, DriverPostgres)
	}
	if cfg.DatabaseURL != "postgres://u:p@db:5432/s" {
		t.Fatalf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if got := cfg.Addr(); got != "0.0.0.0:7000" {
		t.Fatalf("Addr() = %s, want 0.0.0.0:7000", got)
	}
	if cfg.UpcomingWindow != 30*time.Minute {
		t.Fatalf("UpcomingWindow = %v, want %v", cfg.UpcomingWindow, 30*time.Minute)
	}
	loc, err := cfg.SessionLocation()
	if err != nil {
		t.Fatalf("SessionLocation error: %v", err)
	}
	if loc.String() != "Europe/London" {
		t.Fatalf("SessionLocation = %v, want Europe/London", loc)
	}
}

func TestLoad_BadDuration(t *testing.T) {
	t.Setenv("SCHEDULER_SHUTDOWN_TIMEOUT", "soon")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "shutdown.timeout") {
		t.Fatalf("err = %v, want shutdown.timeout parse error", err)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			GRPCPort:        50051,
			DatabaseDriver:  DriverSQLite,
			SQLitePath:      "x.db",
			SessionTokenTTL: time.Hour,
			BusinessZone:    "America/New_York",
			OpenHour:        8,
			CloseHour:       22,
			UpcomingWindow:  15 * time.Minute,
			LoginRPS:        1,
			LoginBurst:      1,
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "unknown driver", mutate: func(c *Config) { c.DatabaseDriver = "mysql" }, want: "database.driver"},
		{name: "bad zone", mutate: func(c *Config) { c.SessionTimeZone = "Mars/Olympus" }, want: "session.time_zone"},
		{name: "inverted hours", mutate: func(c *Config) { c.OpenHour = 22; c.CloseHour = 8 }, want: "scheduling"},
		{name: "zero window", mutate: func(c *Config) { c.UpcomingWindow = 0 }, want: "upcoming_window"},
		{name: "postgres without url", mutate: func(c *Config) { c.DatabaseDriver = DriverPostgres }, want: "database.url"},
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("Validate(valid) error: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}
