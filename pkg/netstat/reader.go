package netstat

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Sample is one point-in-time reading of an interface's cumulative byte
// counters. Counters only ever increase during the lifetime of the counter;
// a value lower than a previous reading means the counter was reset
// (reboot, interface re-creation or wraparound).
type Sample struct {
	// Rx is the cumulative received byte counter.
	Rx uint64

	// Tx is the cumulative transmitted byte counter.
	Tx uint64
}

// InterfaceNotFoundError indicates the named interface does not exist.
type InterfaceNotFoundError struct {
	Name string
}

func (e *InterfaceNotFoundError) Error() string {
	return fmt.Sprintf("netstat: interface %q not found", e.Name)
}

// ParseError indicates a kernel statistics file could not be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("netstat: failed to parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Reader reads interface counters from sysfs.
type Reader struct {
	// sysRoot is the sysfs network class directory.
	// Overridable for tests; defaults to /sys/class/net.
	sysRoot string
}

// NewReader creates a Reader over the host's sysfs.
func NewReader() *Reader {
	return &Reader{sysRoot: "/sys/class/net"}
}

// NewReaderWithRoot creates a Reader over an alternate sysfs root.
// Used by tests to point at a synthetic directory tree.
func NewReaderWithRoot(root string) *Reader {
	return &Reader{sysRoot: root}
}

// Exists reports whether the named interface is present.
func (r *Reader) Exists(iface string) bool {
	_, err := os.Stat(filepath.Join(r.sysRoot, iface))
	return err == nil
}

// Sample reads the current rx/tx byte counters for the named interface.
func (r *Reader) Sample(iface string) (Sample, error) {
	if !r.Exists(iface) {
		return Sample{}, &InterfaceNotFoundError{Name: iface}
	}

	rx, err := r.readCounter(iface, "rx_bytes")
	if err != nil {
		return Sample{}, err
	}
	tx, err := r.readCounter(iface, "tx_bytes")
	if err != nil {
		return Sample{}, err
	}

	return Sample{Rx: rx, Tx: tx}, nil
}

func (r *Reader) readCounter(iface, name string) (uint64, error) {
	path := filepath.Join(r.sysRoot, iface, "statistics", name)
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, &ParseError{Path: path, Err: err}
	}

	v, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, &ParseError{Path: path, Err: err}
	}
	return v, nil
}
