// Package telemetry groups the observability concerns of trafficward.
//
// Its only subpackage today is logging, the structured slog setup every
// command and the daemon share. Prometheus collectors live in
// pkg/metrics because they are tied to the monitor's check lifecycle
// rather than to process-wide telemetry.
package telemetry
