package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the rubric.
// Pattern: GRADECHECK_[SECTION]_[KEY] (e.g., GRADECHECK_DB_PATH).
func ApplyEnvOverrides(cfg *Config) {
	setEnvString(&cfg.SubmissionDir, "GRADECHECK_SUBMISSION_DIR")
	setEnvString(&cfg.Python, "GRADECHECK_PYTHON")

	// Style
	setEnvString(&cfg.Style.Command, "GRADECHECK_STYLE_COMMAND")

	// Scoring
	setEnvInt(&cfg.Scoring.PointsPerError, "GRADECHECK_SCORING_POINTS_PER_ERROR")
	setEnvInt(&cfg.Scoring.MaxPointsDeducted, "GRADECHECK_SCORING_MAX_POINTS_DEDUCTED")

	// Database
	setEnvBool(&cfg.DB.Enabled, "GRADECHECK_DB_ENABLED")
	setEnvString(&cfg.DB.Path, "GRADECHECK_DB_PATH")
	setEnvDuration(&cfg.DB.BusyTimeout, "GRADECHECK_DB_BUSY_TIMEOUT")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "GRADECHECK_WATCH_DEBOUNCE")
	setEnvFloat64(&cfg.Watch.RegradeRate, "GRADECHECK_WATCH_REGRADE_RATE")

	// Observability
	setEnvInt(&cfg.Observability.MetricsPort, "GRADECHECK_OBSERVABILITY_METRICS_PORT")
	setEnvString(&cfg.Observability.OTLPEndpoint, "GRADECHECK_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvBool(&cfg.Observability.EnableTracing, "GRADECHECK_OBSERVABILITY_ENABLE_TRACING")
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
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = f
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
