// Package netstat reads live network interface counters from the kernel.
//
// # Overview
//
// The Reader returns the cumulative received/transmitted byte counters for a
// single named interface. Counters are read from sysfs
// (/sys/class/net/<iface>/statistics) on every call; nothing is cached, so
// each Sample reflects current kernel state.
//
// The package also provides the SSH listen-port detection used by the
// firewall pre-flight check: the configured sshd port is parsed from
// sshd_config and cross-checked against the kernel's listening TCP sockets.
//
// # Errors
//
// A missing interface yields *InterfaceNotFoundError and malformed kernel
// files yield *ParseError; callers must not fall back to zero on either.
package netstat
