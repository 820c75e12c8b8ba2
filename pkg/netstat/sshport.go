package netstat

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DefaultSSHConfigPath is where sshd_config normally lives.
const DefaultSSHConfigPath = "/etc/ssh/sshd_config"

// tcpListenState is the st column value for LISTEN in /proc/net/tcp.
const tcpListenState = "0A"

// DetectSSHPort returns the port sshd is configured to listen on, read from
// the first uncommented Port directive in sshd_config. When the file has no
// Port directive the protocol default 22 is returned. A missing or unreadable
// file is an error; the caller decides whether that blocks enforcement.
func DetectSSHPort(configPath string) (int, error) {
	f, err := os.Open(configPath)
	if err != nil {
		return 0, fmt.Errorf("netstat: failed to open sshd config: %w", err)
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 || !strings.EqualFold(fields[0], "Port") {
			continue
		}
		port, err := strconv.Atoi(fields[1])
		if err != nil || port < 1 || port > 65535 {
			return 0, &ParseError{Path: configPath, Err: fmt.Errorf("invalid Port directive %q", fields[1])}
		}
		return port, nil
	}
	if err := s.Err(); err != nil {
		return 0, &ParseError{Path: configPath, Err: err}
	}

	return 22, nil
}

// ListeningTCPPorts returns the set of local TCP ports in LISTEN state,
// parsed from the given /proc/net/tcp-format files. Files that do not exist
// are skipped (an IPv6-less host has no /proc/net/tcp6).
func ListeningTCPPorts(procFiles ...string) (map[int]bool, error) {
	if len(procFiles) == 0 {
		procFiles = []string{"/proc/net/tcp", "/proc/net/tcp6"}
	}

	ports := make(map[int]bool)
	for _, path := range procFiles {
		if err := scanListenPorts(path, ports); err != nil {
			return nil, err
		}
	}
	return ports, nil
}

func scanListenPorts(path string, ports map[int]bool) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("netstat: failed to open %s: %w", path, err)
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	lineNo := 0
	for s.Scan() {
		lineNo++
		if lineNo == 1 {
			// Header row.
			continue
		}
		fields := strings.Fields(s.Text())
		if len(fields) < 4 {
			continue
		}
		if fields[3] != tcpListenState {
			continue
		}

		// local_address is "HEXADDR:HEXPORT".
		idx := strings.LastIndexByte(fields[1], ':')
		if idx < 0 {
			return &ParseError{Path: path, Err: fmt.Errorf("malformed local address %q on line %d", fields[1], lineNo)}
		}
		port, err := strconv.ParseInt(fields[1][idx+1:], 16, 32)
		if err != nil {
			return &ParseError{Path: path, Err: fmt.Errorf("malformed local port %q on line %d", fields[1][idx+1:], lineNo)}
		}
		ports[int(port)] = true
	}
	return s.Err()
}
