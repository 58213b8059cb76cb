// Package id provides 128-bit, lexicographically sortable session
// identifiers.
//
// # Format
//
// An ID is 16 bytes big-endian: [8 bytes ms_timestamp][8 bytes sequence],
// rendered as a 32-character hex token. Byte-wise comparison preserves
// chronological order, so spool files and index keys sort by open time.
//
// # Uniqueness
//
// The Generator seeds its sequence from crypto/rand at construction, so
// tokens remain globally unique across process restarts even when two
// sessions open within the same millisecond. If the system clock
// regresses, the generator pins to the last seen millisecond and keeps
// incrementing the sequence instead of going backwards.
//
// Usage
//
//	g := id.NewGenerator()
//	sid := g.Next().String()
package id
