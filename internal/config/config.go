package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	// HTTPAddr is the listen address for the ingest and health endpoints.
	HTTPAddr string `json:"httpAddr" yaml:"httpAddr"`
	// MetricsAddr optionally serves /metrics on a separate listener. When
	// empty, metrics are exposed on HTTPAddr.
	MetricsAddr string `json:"metricsAddr" yaml:"metricsAddr"`
	// DataDir is the root directory for the store and (by default) the spool.
	DataDir string `json:"dataDir" yaml:"dataDir"`
	// SpoolDir holds in-progress session dumps. Defaults to DataDir/spool.
	// Recreated empty at startup.
	SpoolDir string `json:"spoolDir" yaml:"spoolDir"`
	// Capacity bounds concurrently running extraction workers. Zero means
	// the number of CPUs.
	Capacity int `json:"capacity" yaml:"capacity"`
	// WorkerCmd is the extraction worker executable, invoked with the
	// session identifier as its sole argument.
	WorkerCmd string `json:"workerCmd" yaml:"workerCmd"`
	// GeoEndpoint is the base URL of the address resolution service. Empty
	// disables enrichment.
	GeoEndpoint string `json:"geoEndpoint" yaml:"geoEndpoint"`
	// EventFilter is an optional CEL expression evaluated per event; events
	// for which it yields false are dropped before the dump append.
	EventFilter string `json:"eventFilter" yaml:"eventFilter"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		HTTPAddr:  ":8080",
		WorkerCmd: "rtcstats-extract",
	}
}

// Load reads configuration from a JSON or YAML file (by extension). If
// path is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
	}
	return cfg, nil
}
