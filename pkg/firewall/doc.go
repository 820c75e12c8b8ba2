// Package firewall installs and removes the traffic-limit allow-list
// policy.
//
// # Policy shape
//
// A dedicated chain (TRAFFIC_LIMIT) is referenced from the INPUT and
// OUTPUT hooks of both the IPv4 and IPv6 filter tables. Rule order is
// significant:
//
//	loopback accept
//	established/related accept
//	SSH accept (configured port, both directions, plus the port-22 fallback)
//	DNS accept
//	ICMP accept (ICMPv6 on the v6 table; required for basic IPv6 function)
//	notification-service address ranges accept
//	default drop
//
// # Idempotence and failure
//
// Block and Unblock are idempotent: repeated Block rebuilds the chain
// without duplicating hook references or cutting established connections,
// and Unblock of an absent policy is a no-op. Individual rule failures are
// logged and the remaining rules are still applied, because a partial
// allow-list is safer than aborting mid-transaction and leaving the
// administrator with an unknown ruleset.
//
// Before installing, a pre-flight cross-checks the configured interface
// and the detected sshd port; a mismatch is flagged as a safety warning
// but never stops the operation, favoring admin reachability over strict
// enforcement.
package firewall
