// Package metrics exposes Prometheus collectors for the budget monitor.
//
// The daemon serves these on the configured metrics listener; one-shot
// command invocations construct them but never export, which keeps the
// recording call sites identical in both modes.
package metrics
