// Package sched provides the run daemon's internal scheduling: cron-style
// recurring jobs for checks and cycle resets, and a config file watcher
// that triggers reloads.
//
// One-shot command invocations never use this package; they are driven by
// an external scheduler instead.
package sched
