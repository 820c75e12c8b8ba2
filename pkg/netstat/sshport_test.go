package netstat

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	return path
}

func TestDetectSSHPort(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
		wantErr bool
	}{
		{
			name:    "explicit port",
			content: "# comment\nPort 2222\nPermitRootLogin no\n",
			want:    2222,
		},
		{
			name:    "no port directive defaults to 22",
			content: "PermitRootLogin no\nPasswordAuthentication no\n",
			want:    22,
		},
		{
			name:    "commented port ignored",
			content: "#Port 2022\n",
			want:    22,
		},
		{
			name:    "first directive wins",
			content: "Port 22022\nPort 22\n",
			want:    22022,
		},
		{
			name:    "case insensitive",
			content: "port 8022\n",
			want:    8022,
		},
		{
			name:    "invalid port value",
			content: "Port banana\n",
			wantErr: true,
		},
		{
			name:    "out of range port",
			content: "Port 99999\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectSSHPort(writeFile(t, tt.content))
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("DetectSSHPort = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDetectSSHPort_MissingFile(t *testing.T) {
	if _, err := DetectSSHPort(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Error("expected error for missing sshd_config")
	}
}

func TestListeningTCPPorts(t *testing.T) {
	// Two listeners (22 and 9277 = 0x243D) plus one established connection
	// that must be ignored.
	proc := "  sl  local_address rem_address   st tx_queue rx_queue tr tm->when retrnsmt   uid  timeout inode\n" +
		"   0: 00000000:0016 00000000:0000 0A 00000000:00000000 00:00000000 00000000     0        0 100 1 0000000000000000 100 0 0 10 0\n" +
		"   1: 00000000:243D 00000000:0000 0A 00000000:00000000 00:00000000 00000000     0        0 101 1 0000000000000000 100 0 0 10 0\n" +
		"   2: 0100007F:0016 0100007F:C350 01 00000000:00000000 00:00000000 00000000     0        0 102 1 0000000000000000 100 0 0 10 0\n"

	ports, err := ListeningTCPPorts(writeFile(t, proc))
	if err != nil {
		t.Fatalf("ListeningTCPPorts failed: %v", err)
	}

	if !ports[22] {
		t.Error("port 22 not detected as listening")
	}
	if !ports[9277] {
		t.Error("port 9277 not detected as listening")
	}
	if len(ports) != 2 {
		t.Errorf("detected %d ports, want 2: %v", len(ports), ports)
	}
}

func TestListeningTCPPorts_MissingFileSkipped(t *testing.T) {
	ports, err := ListeningTCPPorts(filepath.Join(t.TempDir(), "tcp6"))
	if err != nil {
		t.Fatalf("missing proc file should be skipped, got %v", err)
	}
	if len(ports) != 0 {
		t.Errorf("expected no ports, got %v", ports)
	}
}
