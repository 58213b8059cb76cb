// Package config holds the server's declarative configuration: listen
// addresses, spool and data directories, extraction pool sizing, and the
// optional geo and event-filter settings. Configuration is loaded from a
// JSON or YAML file, overlaid with RTCSTATS_* environment variables, and
// finally overridden by CLI flags.
package config
