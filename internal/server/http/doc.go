// Package httpserver exposes the ingest, health, and metrics endpoints.
// One POST /v1/ingest request carries one client session: the body is
// an NDJSON stream of event arrays consumed until EOF.
//
// Example:
//
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data", Fsync: pebblestore.FsyncModeAlways, Config: config.Default()})
//	s := httpserver.New(rt, ing, logger)
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = s.ListenAndServe(ctx, ":8080")
package httpserver
