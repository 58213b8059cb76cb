// Package geo resolves a client's network address to a coarse location
// for the best-effort enrichment record. Resolution is asynchronous to
// ingestion and allowed to fail or arrive late; callers drop the result
// rather than block on it.
package geo
