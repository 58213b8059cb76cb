// Package sink holds the downstream result interfaces and their local
// Pebble-backed implementations.
//
// # Keyspace
//
//	idx/{origin}/{clientId}/{connectionId}  - feature record (CBOR)
//	blob/{clientId}                         - raw dump (zstd)
//
// Both sinks are fire-and-forget from the pipeline's perspective: the
// queue forwards and moves on, it neither awaits acknowledgement nor
// retries.
package sink
