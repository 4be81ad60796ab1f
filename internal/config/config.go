// Package config loads the application-wide configuration surface: archive,
// scheduler, LLM analysis, and pipeline settings. It follows the fail-open
// loader in internal/pkg/config — every field has a default, every field is
// independently validated, and a bad environment value never aborts startup.
package config

import (
	"log/slog"
	"time"

	"newsgraph/internal/pkg/config"
)

// ArchiveCompression selects the codec the archive engine uses for batch files.
type ArchiveCompression string

const (
	ArchiveCompressionGzip ArchiveCompression = "gzip"
	ArchiveCompressionNone ArchiveCompression = "none"
)

// Config is the full settings surface named by the external interfaces
// section: archive, scheduler defaults, LLM analysis, and pipeline lookback.
type Config struct {
	ArchiveBasePath    string
	ArchiveBatchSize   int
	ArchiveCompression ArchiveCompression
	AutoArchiveEnabled bool
	AutoArchiveHour    int
	AutoArchiveMinute  int

	SchedulerTimezone             string
	DefaultCrawlerIntervalMinutes int
	DefaultCrawlerTimeoutSeconds  int

	LLMAnalysisModel        string
	LLMAnalysisPollInterval time.Duration
	LLMAnalysisMaxWait      time.Duration

	AnalyticalStoreURL string

	PipelineDefaultLookbackDays int

	DatabaseURL string
}

// Default returns production-ready defaults for every field.
func Default() Config {
	return Config{
		ArchiveBasePath:    "./data/raw_html",
		ArchiveBatchSize:   500,
		ArchiveCompression: ArchiveCompressionGzip,
		AutoArchiveEnabled: true,
		AutoArchiveHour:    3,
		AutoArchiveMinute:  0,

		SchedulerTimezone:             "UTC",
		DefaultCrawlerIntervalMinutes: 15,
		DefaultCrawlerTimeoutSeconds:  300,

		LLMAnalysisModel:        "claude-sonnet-4-5",
		LLMAnalysisPollInterval: 10 * time.Second,
		LLMAnalysisMaxWait:      24 * time.Hour,

		AnalyticalStoreURL: "",

		PipelineDefaultLookbackDays: 7,

		DatabaseURL: "postgres://localhost:5432/newsgraph?sslmode=disable",
	}
}

func validateCompression(v string) error {
	switch ArchiveCompression(v) {
	case ArchiveCompressionGzip, ArchiveCompressionNone:
		return nil
	default:
		return &invalidCompressionError{v}
	}
}

type invalidCompressionError struct{ value string }

func (e *invalidCompressionError) Error() string {
	return "archive_compression must be 'gzip' or 'none', got '" + e.value + "'"
}

// Load reads every field from the environment via the fail-open loader,
// recording a warning and a metric for each field that falls back to its
// default instead of aborting.
func Load(logger *slog.Logger, metrics *config.ConfigMetrics) Config {
	cfg := Default()

	loadString := func(field, key string, cur *string, validator func(string) error) {
		result := config.LoadEnvWithFallback(key, *cur, validator)
		*cur = result.Value.(string)
		recordFallback(logger, metrics, field, result)
	}
	loadInt := func(field, key string, cur *int, validator func(int) error) {
		result := config.LoadEnvInt(key, *cur, validator)
		*cur = result.Value.(int)
		recordFallback(logger, metrics, field, result)
	}
	loadBool := func(field, key string, cur *bool) {
		result := config.LoadEnvBool(key, *cur)
		*cur = result.Value.(bool)
		recordFallback(logger, metrics, field, result)
	}
	loadDuration := func(field, key string, cur *time.Duration, validator func(time.Duration) error) {
		result := config.LoadEnvDuration(key, *cur, validator)
		*cur = result.Value.(time.Duration)
		recordFallback(logger, metrics, field, result)
	}

	loadString("archive_base_path", "ARCHIVE_BASE_PATH", &cfg.ArchiveBasePath, nil)
	loadInt("archive_batch_size", "ARCHIVE_BATCH_SIZE", &cfg.ArchiveBatchSize, func(v int) error {
		return config.ValidateIntRange(v, 1, 100000)
	})
	var compression string = string(cfg.ArchiveCompression)
	loadString("archive_compression", "ARCHIVE_COMPRESSION", &compression, validateCompression)
	cfg.ArchiveCompression = ArchiveCompression(compression)

	loadBool("auto_archive_enabled", "AUTO_ARCHIVE_ENABLED", &cfg.AutoArchiveEnabled)
	loadInt("auto_archive_hour", "AUTO_ARCHIVE_HOUR", &cfg.AutoArchiveHour, func(v int) error {
		return config.ValidateIntRange(v, 0, 23)
	})
	loadInt("auto_archive_minute", "AUTO_ARCHIVE_MINUTE", &cfg.AutoArchiveMinute, func(v int) error {
		return config.ValidateIntRange(v, 0, 59)
	})

	loadString("scheduler_timezone", "SCHEDULER_TIMEZONE", &cfg.SchedulerTimezone, config.ValidateTimezone)
	loadInt("default_crawler_interval_minutes", "DEFAULT_CRAWLER_INTERVAL_MINUTES", &cfg.DefaultCrawlerIntervalMinutes, func(v int) error {
		return config.ValidateIntRange(v, 1, 1440)
	})
	loadInt("default_crawler_timeout_seconds", "DEFAULT_CRAWLER_TIMEOUT_SECONDS", &cfg.DefaultCrawlerTimeoutSeconds, func(v int) error {
		return config.ValidateIntRange(v, 1, 3600)
	})

	loadString("llm_analysis_model", "LLM_ANALYSIS_MODEL", &cfg.LLMAnalysisModel, nil)
	loadDuration("llm_analysis_poll_interval", "LLM_ANALYSIS_POLL_INTERVAL", &cfg.LLMAnalysisPollInterval, config.ValidatePositiveDuration)
	loadDuration("llm_analysis_max_wait", "LLM_ANALYSIS_MAX_WAIT", &cfg.LLMAnalysisMaxWait, config.ValidatePositiveDuration)

	loadString("analytical_store_url", "ANALYTICAL_STORE_URL", &cfg.AnalyticalStoreURL, nil)
	loadInt("pipeline_default_lookback_days", "PIPELINE_DEFAULT_LOOKBACK_DAYS", &cfg.PipelineDefaultLookbackDays, func(v int) error {
		return config.ValidateIntRange(v, 1, 3650)
	})
	loadString("database_url", "DATABASE_URL", &cfg.DatabaseURL, nil)

	if metrics != nil {
		metrics.RecordLoadTimestamp()
	}
	return cfg
}

func recordFallback(logger *slog.Logger, metrics *config.ConfigMetrics, field string, result config.ConfigLoadResult) {
	if !result.FallbackApplied {
		return
	}
	if metrics != nil {
		metrics.RecordValidationError(field)
		metrics.RecordFallback(field, "default")
		metrics.SetFallbackActive(field, true)
	}
	for _, warning := range result.Warnings {
		logger.Warn("configuration fallback applied", slog.String("field", field), slog.String("warning", warning))
	}
}
