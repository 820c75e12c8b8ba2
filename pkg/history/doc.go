// Package history persists an append-only log of budget check results.
//
// Every evaluated check appends one row describing the sampled usage,
// the computed percentage of the monthly limit, and any event the check
// produced (a decile warning, a block, an unblock). The log backs the
// status command's recent-activity view and survives state resets, so
// an operator can still see what led up to an enforcement action after
// the accounting record has been cleared.
//
// # Storage
//
// The log is a single SQLite database in the state directory, opened in
// WAL mode with a single writer connection. Rows older than the
// configured retention window are pruned opportunistically on append.
package history
