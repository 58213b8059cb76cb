// Package pebblestore wraps a Pebble database with the durability policy
// used by the result sinks: fsync always, on an interval (group commit),
// or never. It exposes small helpers for batched and single-key
// operations; key layout is owned by the packages built on top of it.
package pebblestore
