// Package threshold decides what happens with a freshly computed usage
// figure: nothing, a warning, a daily report, or a firewall block.
//
// # State machine
//
// The evaluator is a two-state machine persisted in the accounting record:
//
//	NORMAL  --(billable >= limit)-->  BLOCKED
//	BLOCKED --(cycle rollover or explicit unblock)--> NORMAL
//
// BLOCKED never clears merely because usage later appears lower; only a
// cycle boundary or an operator request lifts enforcement.
//
// # Emission throttling
//
// Warnings fire at most once per 10-percentage-point band (decile) per
// cycle, and never below the configured floor. The daily report fires at
// most once per calendar date, at the configured hour. Both are tracked as
// typed markers on the accounting record, not as states; they never gate
// blocking.
//
// The block check runs before the warning check in a single pass, so a
// cycle that jumps straight past the limit produces one over-limit notice
// instead of a redundant final-decile warning.
package threshold
