package config

import (
	"strings"
	"testing"
	"time"
)

// clearEnv blanks every variable Load reads so tests start from defaults.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"EXPORT_PATH", "LOCAL_TIMEZONE", "MERGE_GAP_SECONDS", "MIDNIGHT_POLICY",
		"CANONICAL_UNITS", "START_DATE", "WAREHOUSE_DRIVER", "SQLITE_PATH",
		"DATABASE_URL", "PARQUET_DIR", "PUSHGATEWAY_URL", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("EXPORT_PATH", "/data/export.zip")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.ExportPath != "/data/export.zip" {
		t.Errorf("ExportPath = %q, want /data/export.zip", cfg.ExportPath)
	}
	if cfg.LocalTimezone != "UTC" {
		t.Errorf("LocalTimezone = %q, want UTC", cfg.LocalTimezone)
	}
	if cfg.MergeGap != 300*time.Second {
		t.Errorf("MergeGap = %v, want 5m", cfg.MergeGap)
	}
	if cfg.MidnightPolicy != "start_day" {
		t.Errorf("MidnightPolicy = %q, want start_day", cfg.MidnightPolicy)
	}
	if cfg.WarehouseDriver != DriverSQLite {
		t.Errorf("WarehouseDriver = %q, want sqlite", cfg.WarehouseDriver)
	}
	if cfg.SQLitePath != "./healthkit.db" {
		t.Errorf("SQLitePath = %q, want ./healthkit.db", cfg.SQLitePath)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if len(cfg.CanonicalUnits) != 0 {
		t.Errorf("CanonicalUnits = %v, want empty", cfg.CanonicalUnits)
	}
}

func TestLoadMissingExportPath(t *testing.T) {
	clearEnv(t)

	_, err := Load()
	if err == nil {
		t.Fatal("Load() succeeded without EXPORT_PATH")
	}
	if !strings.Contains(err.Error(), "EXPORT_PATH") {
		t.Errorf("error %q does not mention EXPORT_PATH", err)
	}
}

func TestLoadInvalidTimezone(t *testing.T) {
	clearEnv(t)
	t.Setenv("EXPORT_PATH", "/data/export.zip")
	t.Setenv("LOCAL_TIMEZONE", "Mars/Olympus_Mons")

	if _, err := Load(); err == nil {
		t.Fatal("Load() accepted an invalid timezone")
	}
}

func TestLoadValidTimezone(t *testing.T) {
	clearEnv(t)
	t.Setenv("EXPORT_PATH", "/data/export.zip")
	t.Setenv("LOCAL_TIMEZONE", "America/New_York")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Location == nil || cfg.Location.String() != "America/New_York" {
		t.Errorf("Location = %v, want America/New_York", cfg.Location)
	}
}

func TestLoadInvalidMidnightPolicy(t *testing.T) {
	clearEnv(t)
	t.Setenv("EXPORT_PATH", "/data/export.zip")
	t.Setenv("MIDNIGHT_POLICY", "round_robin")

	if _, err := Load(); err == nil {
		t.Fatal("Load() accepted an invalid midnight policy")
	}
}

func TestLoadInvalidStartDate(t *testing.T) {
	clearEnv(t)
	t.Setenv("EXPORT_PATH", "/data/export.zip")
	t.Setenv("START_DATE", "March 10 2024")

	if _, err := Load(); err == nil {
		t.Fatal("Load() accepted an invalid start date")
	}
}

func TestLoadPostgresRequiresDatabaseURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("EXPORT_PATH", "/data/export.zip")
	t.Setenv("WAREHOUSE_DRIVER", "postgres")

	if _, err := Load(); err == nil {
		t.Fatal("Load() accepted postgres driver without DATABASE_URL")
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/healthkit")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.WarehouseDriver != DriverPostgres {
		t.Errorf("WarehouseDriver = %q, want postgres", cfg.WarehouseDriver)
	}
}

func TestLoadUnknownWarehouseDriver(t *testing.T) {
	clearEnv(t)
	t.Setenv("EXPORT_PATH", "/data/export.zip")
	t.Setenv("WAREHOUSE_DRIVER", "duckdb")

	if _, err := Load(); err == nil {
		t.Fatal("Load() accepted an unknown warehouse driver")
	}
}

func TestLoadCanonicalUnits(t *testing.T) {
	clearEnv(t)
	t.Setenv("EXPORT_PATH", "/data/export.zip")
	t.Setenv("CANONICAL_UNITS", "workout_distance=km, active_energy_burned=kJ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	want := map[string]string{
		"workout_distance":     "km",
		"active_energy_burned": "kJ",
	}
	if len(cfg.CanonicalUnits) != len(want) {
		t.Fatalf("CanonicalUnits = %v, want %v", cfg.CanonicalUnits, want)
	}
	for k, v := range want {
		if cfg.CanonicalUnits[k] != v {
			t.Errorf("CanonicalUnits[%q] = %q, want %q", k, cfg.CanonicalUnits[k], v)
		}
	}
}

func TestLoadMalformedCanonicalUnits(t *testing.T) {
	clearEnv(t)
	t.Setenv("EXPORT_PATH", "/data/export.zip")
	t.Setenv("CANONICAL_UNITS", "workout_distance")

	if _, err := Load(); err == nil {
		t.Fatal("Load() accepted a malformed CANONICAL_UNITS entry")
	}
}

func TestLoadReportsAllProblems(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOCAL_TIMEZONE", "Nowhere/Nothing")
	t.Setenv("MIDNIGHT_POLICY", "bogus")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() succeeded with multiple invalid values")
	}
	for _, want := range []string{"EXPORT_PATH", "LOCAL_TIMEZONE", "MIDNIGHT_POLICY"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestGetEnvInt(t *testing.T) {
	clearEnv(t)

	if got := getEnvInt("MERGE_GAP_SECONDS", 300); got != 300 {
		t.Errorf("getEnvInt default = %d, want 300", got)
	}

	t.Setenv("MERGE_GAP_SECONDS", "120")
	if got := getEnvInt("MERGE_GAP_SECONDS", 300); got != 120 {
		t.Errorf("getEnvInt = %d, want 120", got)
	}

	t.Setenv("MERGE_GAP_SECONDS", "not-a-number")
	if got := getEnvInt("MERGE_GAP_SECONDS", 300); got != 300 {
		t.Errorf("getEnvInt with invalid value = %d, want 300", got)
	}
}
