// Package log provides the server's structured logging facade.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// Field type for structured context. Internally it is backed by Go's
// standard library slog, so handlers and formatting stay consistent across
// the codebase while callers program against the facade.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("ingest"), log.Str("session", sid))
//	l.Info("session opened", log.Str("origin", origin))
//
// # Configuration
//
// Use ApplyConfig to build a logger from a declarative Config with a level
// and a format ("text" or "json"). To integrate with libraries expecting a
// *log.Logger (Pebble among them), use RedirectStdLog.
package log
