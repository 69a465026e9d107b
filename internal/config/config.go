package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	defaultMergeGapSeconds = 300
	dateLayout             = "2006-01-02"
)

// Config holds all application configuration
type Config struct {
	// Extract configuration
	ExportPath string

	// Transform configuration
	LocalTimezone  string
	Location       *time.Location
	MergeGap       time.Duration
	MidnightPolicy string
	CanonicalUnits map[string]string
	StartDate      string

	// Load configuration
	WarehouseDriver string
	SQLitePath      string
	DatabaseURL     string
	ParquetDir      string

	// Observability configuration
	PushgatewayURL string
	LogLevel       string
}

// Load reads configuration from environment variables, honoring a .env
// file when present. It fails fast, listing every missing or invalid value.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		// Optional values with defaults
		LocalTimezone:   getEnv("LOCAL_TIMEZONE", "UTC"),
		MergeGap:        time.Duration(getEnvInt("MERGE_GAP_SECONDS", defaultMergeGapSeconds)) * time.Second,
		MidnightPolicy:  getEnv("MIDNIGHT_POLICY", "start_day"),
		StartDate:       os.Getenv("START_DATE"),
		WarehouseDriver: getEnv("WAREHOUSE_DRIVER", DriverSQLite),
		SQLitePath:      getEnv("SQLITE_PATH", "./healthkit.db"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		ParquetDir:      os.Getenv("PARQUET_DIR"),
		PushgatewayURL:  os.Getenv("PUSHGATEWAY_URL"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}

	var problems []string

	cfg.ExportPath = os.Getenv("EXPORT_PATH")
	if cfg.ExportPath == "" {
		problems = append(problems, "EXPORT_PATH is required")
	}

	loc, err := time.LoadLocation(cfg.LocalTimezone)
	if err != nil {
		problems = append(problems, fmt.Sprintf("LOCAL_TIMEZONE %q is not a valid IANA zone", cfg.LocalTimezone))
	}
	cfg.Location = loc

	if cfg.MergeGap < 0 {
		problems = append(problems, "MERGE_GAP_SECONDS must not be negative")
	}

	switch cfg.MidnightPolicy {
	case "start_day", "split":
	default:
		problems = append(problems, fmt.Sprintf("MIDNIGHT_POLICY %q must be start_day or split", cfg.MidnightPolicy))
	}

	if cfg.StartDate != "" {
		if _, err := time.Parse(dateLayout, cfg.StartDate); err != nil {
			problems = append(problems, fmt.Sprintf("START_DATE %q must be YYYY-MM-DD", cfg.StartDate))
		}
	}

	switch cfg.WarehouseDriver {
	case DriverSQLite:
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			problems = append(problems, "DATABASE_URL is required when WAREHOUSE_DRIVER=postgres")
		}
	default:
		problems = append(problems, fmt.Sprintf("WAREHOUSE_DRIVER %q must be sqlite or postgres", cfg.WarehouseDriver))
	}

	cfg.CanonicalUnits, err = parseUnitOverrides(os.Getenv("CANONICAL_UNITS"))
	if err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}

	return cfg, nil
}

// parseUnitOverrides parses a "metric=unit,metric=unit" list. The metric
// names and units are validated by the normalizer, not here.
func parseUnitOverrides(s string) (map[string]string, error) {
	overrides := make(map[string]string)
	if strings.TrimSpace(s) == "" {
		return overrides, nil
	}
	for _, pair := range strings.Split(s, ",") {
		metric, unit, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || metric == "" || unit == "" {
			return nil, fmt.Errorf("CANONICAL_UNITS entry %q must be metric=unit", pair)
		}
		overrides[strings.TrimSpace(metric)] = strings.TrimSpace(unit)
	}
	return overrides, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt gets an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
