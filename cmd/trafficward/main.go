// Trafficward enforces a monthly network traffic budget on a host.
//
// It periodically samples the interface byte counters, reconciles them
// against a persisted accounting record to derive usage this billing
// cycle, and blocks all but an administrative allow-list via the
// firewall once the configured limit is reached. The block lifts
// automatically at the next cycle boundary.
//
// Usage:
//
//	# Run one accounting and evaluation pass (cron-friendly)
//	trafficward check
//
//	# Show current usage
//	trafficward status
//	trafficward status --format json --history 10
//
//	# Manual overrides
//	trafficward block
//	trafficward unblock
//
//	# Clear the cycle and lift enforcement
//	trafficward reset
//
//	# Run as a daemon with built-in scheduling and metrics
//	trafficward run
package main

func main() {
	Execute()
}
