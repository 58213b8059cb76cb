// Package runtime wires storage, the spool directory, sinks, and
// metrics into a single-node instance. It exposes Open/Close, a basic
// health check, and accessors used by the servers and the pipeline.
//
// Example:
//
//	cfg := config.Default()
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data", Fsync: pebblestore.FsyncModeAlways, Config: cfg})
//	defer rt.Close()
//	_ = rt.CheckHealth(context.Background())
package runtime
