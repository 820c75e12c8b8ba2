// Package monitor wires the counter reader, accounting engine, threshold
// evaluator and firewall controller into the operations the command
// surface exposes.
//
// The Monitor is the primary entry point. Each operation maps to one
// command: RunCheck performs a full accounting and evaluation pass,
// Status reports without mutating state, Block and Unblock are the
// manual overrides, and Reset clears the cycle.
//
// # Concurrency
//
// Operations that touch the persisted record take the store's advisory
// lock. RunCheck acquires it non-blocking and turns contention into a
// silent skip, because a missed periodic check is caught up by the next
// one. Reset waits a bounded time and fails loudly instead; a missed
// reset silently corrupts the next cycle's accounting.
package monitor
