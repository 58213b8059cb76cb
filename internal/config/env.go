package config

import (
	"os"
	"strconv"
)

// FromEnv overlays RTCSTATS_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("RTCSTATS_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("RTCSTATS_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv("RTCSTATS_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("RTCSTATS_SPOOL_DIR"); v != "" {
		cfg.SpoolDir = v
	}
	if v := os.Getenv("RTCSTATS_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Capacity = n
		}
	}
	if v := os.Getenv("RTCSTATS_WORKER_CMD"); v != "" {
		cfg.WorkerCmd = v
	}
	if v := os.Getenv("RTCSTATS_GEO_ENDPOINT"); v != "" {
		cfg.GeoEndpoint = v
	}
	if v := os.Getenv("RTCSTATS_EVENT_FILTER"); v != "" {
		cfg.EventFilter = v
	}
}
