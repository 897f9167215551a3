package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: STACKWALK_[SECTION]_[KEY] (e.g., STACKWALK_INDEX_WORKERS).
func ApplyEnvOverrides(cfg *Config) {
	setEnvInt(&cfg.Index.Workers, "STACKWALK_INDEX_WORKERS")
	setEnvInt(&cfg.Index.CacheSize, "STACKWALK_INDEX_CACHE_SIZE")

	setEnvBool(&cfg.Resolution.SiblingFiles, "STACKWALK_RESOLUTION_SIBLING_FILES")

	setEnvString(&cfg.Output.Dir, "STACKWALK_OUTPUT_DIR")
	setEnvString(&cfg.Output.Project, "STACKWALK_OUTPUT_PROJECT")

	setEnvBool(&cfg.DB.Enabled, "STACKWALK_DB_ENABLED")
	setEnvString(&cfg.DB.Path, "STACKWALK_DB_PATH")
	setEnvDuration(&cfg.DB.BusyTimeout, "STACKWALK_DB_BUSY_TIMEOUT")

	setEnvDuration(&cfg.Watch.Debounce, "STACKWALK_WATCH_DEBOUNCE")

	setEnvString(&cfg.Observability.MetricsAddr, "STACKWALK_OBSERVABILITY_METRICS_ADDR")
	setEnvString(&cfg.Observability.OTLPEndpoint, "STACKWALK_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvBool(&cfg.Observability.EnableTracing, "STACKWALK_OBSERVABILITY_ENABLE_TRACING")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.ToLower(val)); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
