// Package metrics exposes the pipeline's Prometheus instrumentation:
// session and event counters on the ingest side, dispatch/completion
// counters and queue gauges on the extraction side. Collectors register
// against a private Registry so multiple instances can coexist in tests;
// Handler serves the exposition format.
package metrics
