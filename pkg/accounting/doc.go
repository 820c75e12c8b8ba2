// Package accounting derives "traffic used this billing cycle" from raw
// interface counters and keeps the figure durable across restarts.
//
// # Overview
//
// Raw kernel byte counters only ever increase while a counter lives, but
// they restart from zero on reboot and they say nothing about billing
// cycles. The accounting engine reconciles each fresh counter reading
// against a persisted record to produce a monotonically meaningful
// usage figure for the current calendar month:
//
//   - A new cycle key (year-month) replaces the record wholesale and
//     signals the caller to lift any active enforcement.
//   - A counter that moved backwards means a reset; the traffic already
//     attributed to this cycle is preserved and the restarted counter is
//     folded in from zero, so nothing is lost or double counted.
//
// # Record ownership
//
// The engine exclusively owns the persisted AccountingRecord. Warning,
// report and enforcement markers live as typed fields on the record and are
// owned by the threshold evaluator; the accounting engine never touches
// them except to clear warning markers on cycle rollover.
//
// # Durability
//
// The record is a single JSON file written by atomic replace under an
// advisory exclusive file lock, so a concurrent reader never observes a
// partially written record. Persistence is best effort: a transient write
// failure is reported but does not suppress the computed result, because a
// failed disk write must never stop enforcement of the traffic limit.
package accounting
