// Package extract dispatches completed session dumps to a bounded pool
// of out-of-process extraction workers.
//
// # Model
//
// A single coordinator goroutine owns all queue bookkeeping: the pending
// FIFO of session identifiers and the in-flight counter. Worker outcomes
// (exit, spawn failure) arrive over a channel and are folded into the
// state by the coordinator, so no interleaving of dispatches and
// completions can push in-flight past capacity. Enqueue never blocks the
// caller.
//
// # Reactions
//
//   - worker exit: decrement in-flight (clamped at zero), record the
//     status metric, dispatch again if capacity allows, then forward the
//     raw dump to the blob store and delete it.
//   - worker message: each stdout line is a structured result forwarded
//     immediately to the feature index; messages may race the exit.
//   - spawn failure: decrement in-flight (clamped) and re-enqueue the
//     session at the tail of the pending queue. No immediate retry: the
//     next dispatch happens on the next enqueue or worker exit, which
//     naturally throttles under resource pressure.
//
// There is no worker execution timeout; a hung worker occupies a
// capacity slot until it exits on its own. There is also no retry cap on
// spawn failures. Both carry over from the original design on purpose.
package extract
