package config

import (
	"os"
	"strconv"
)

// FromEnv overlays CATALOG_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("CATALOG_BASE_ADDRESS"); v != "" {
		cfg.BaseAddress = v
	}
	if v := os.Getenv("CATALOG_STORAGE"); v != "" {
		cfg.Storage = v
	}
	if v := os.Getenv("CATALOG_POSTGRES_DSN"); v != "" {
		cfg.PostgresDSN = v
	}
	if v := os.Getenv("CATALOG_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("CATALOG_FSYNC"); v != "" {
		cfg.Fsync = v
	}
	if v := os.Getenv("CATALOG_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Writer.PageSize = n
		}
	}
	if v := os.Getenv("CATALOG_SAVE_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Writer.SaveConcurrency = n
		}
	}
	if v := os.Getenv("CATALOG_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Collector.BatchSize = n
		}
	}
	if v := os.Getenv("CATALOG_FILTER"); v != "" {
		cfg.Collector.Filter = v
	}
	if v := os.Getenv("CATALOG_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("CATALOG_GRPC_ADDR"); v != "" {
		cfg.GRPCAddr = v
	}
	if v := os.Getenv("CATALOG_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("CATALOG_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}
