// Package dump implements the per-session append-only spool file.
//
// # Format
//
// A dump is UTF-8 text, one JSON value per line, in arrival order:
//
//	{"path":...,"origin":...,"userAgent":...,"openedAt":...,"version":...}
//	["<tag>", <connectionId>, <payload>, <tsMs>]   (zero or more)
//	["location", null, <location-object>, <tsMs>]  (optional, best effort)
//	["close", null, null, <tsMs>]                  (terminal)
//
// The file is write-only while the session is live and becomes immutable
// the moment the close record is flushed and the handle released. A
// Writer is safe for use from the enrichment goroutine racing the close;
// appends after Close return ErrClosed and are dropped by the caller.
//
// Reset recreates the spool directory empty at process start: partial
// dumps from a previous run are purged rather than resumed.
package dump
