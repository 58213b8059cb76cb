// Package ingest turns one inbound telemetry stream into a finalized
// session dump ready for extraction.
//
// A connection moves through open, streaming, closed. On open the
// ingestor allocates a session identifier, creates the dump file, and
// writes the metadata line; a goroutine resolves the caller's address
// to a coarse location and appends it best effort. While streaming,
// every inbound line bumps the event counter and is parsed as a tagged
// JSON array; sensitive-media-acquisition events pass through
// unmodified, everything else has its payload redacted before the
// append. Malformed lines are logged and dropped, never fatal. On
// close the terminal record is written and the session is handed to
// the extraction queue, unless no events ever arrived, in which case
// the dump is discarded.
package ingest
