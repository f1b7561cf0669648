package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTmp(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tunnel.ini")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

const validINI = `
[main]
ssl_server_name = *
ssl_server_port = 8443
destination_name = 127.0.0.1
destination_port = 9000
thread_count = 4
buffer_size = 4096

[ssl]
verify_locations = /etc/ca.pem
certificate_file = /etc/server.pem
PrivateKey_file = /etc/server.key
`

func TestReader_Read_Valid(t *testing.T) {
	path := writeTmp(t, validINI)
	cfg, err := NewReader().Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	switch {
	case cfg.Main.SSLServerName != "*":
		t.Errorf("SSLServerName = %q", cfg.Main.SSLServerName)
	case cfg.Main.SSLServerPort != 8443:
		t.Errorf("SSLServerPort = %d", cfg.Main.SSLServerPort)
	case cfg.Main.DestinationName != "127.0.0.1":
		t.Errorf("DestinationName = %q", cfg.Main.DestinationName)
	case cfg.Main.ThreadCount != 4:
		t.Errorf("ThreadCount = %d", cfg.Main.ThreadCount)
	case cfg.Main.BufferSize != 4096:
		t.Errorf("BufferSize = %d", cfg.Main.BufferSize)
	case cfg.SSL.RequireClientCert != false:
		t.Errorf("RequireClientCert = %v, want false default", cfg.SSL.RequireClientCert)
	}

	if got, want := cfg.BindAddress(), ":8443"; got != want {
		t.Errorf("BindAddress() = %q, want %q", got, want)
	}
	if got, want := cfg.DestinationAddress(), "127.0.0.1:9000"; got != want {
		t.Errorf("DestinationAddress() = %q, want %q", got, want)
	}
}

func TestReader_Read_UnknownKeyRejected(t *testing.T) {
	path := writeTmp(t, validINI+"\nbogus_key = 1\n")
	if _, err := NewReader().Read(path); err == nil {
		t.Fatal("Read succeeded with an unknown key, want error")
	}
}

func TestReader_Read_UnknownSectionRejected(t *testing.T) {
	path := writeTmp(t, validINI+"\n[bogus]\nx = 1\n")
	if _, err := NewReader().Read(path); err == nil {
		t.Fatal("Read succeeded with an unknown section, want error")
	}
}

func TestReader_Read_ClampsThreadCountAndBufferSize(t *testing.T) {
	path := writeTmp(t, `
[main]
destination_name = 127.0.0.1
destination_port = 9000
thread_count = 0
buffer_size = -5

[ssl]
certificate_file = /etc/server.pem
PrivateKey_file = /etc/server.key
`)
	cfg, err := NewReader().Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if cfg.Main.ThreadCount != 1 {
		t.Errorf("ThreadCount = %d, want clamped to 1", cfg.Main.ThreadCount)
	}
	if cfg.Main.BufferSize != 1 {
		t.Errorf("BufferSize = %d, want clamped to 1", cfg.Main.BufferSize)
	}
}

func TestReader_Read_MissingRequiredFieldsRejected(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing destination", `
[main]
thread_count = 1
[ssl]
certificate_file = /etc/server.pem
PrivateKey_file = /etc/server.key
`},
		{"missing cert", `
[main]
destination_name = 127.0.0.1
destination_port = 9000
[ssl]
PrivateKey_file = /etc/server.key
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTmp(t, tt.body)
			if _, err := NewReader().Read(path); err == nil {
				t.Fatal("Read succeeded, want error")
			}
		})
	}
}

func TestWriter_RoundTripsThroughReader(t *testing.T) {
	cfg := Config{
		Main: Main{
			SSLServerName:   "*",
			SSLServerPort:   9443,
			DestinationName: "10.0.0.1",
			DestinationPort: "443",
			ThreadCount:     8,
			BufferSize:      8192,
		},
		SSL: SSL{
			VerifyLocations:   "/ca.pem",
			CertificateFile:   "/cert.pem",
			PrivateKeyFile:    "/key.pem",
			RequireClientCert: true,
		},
	}

	path := filepath.Join(t.TempDir(), "tunnel.ini")
	if err := NewWriter().Write(path, cfg); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := NewReader().Read(path)
	if err != nil {
		t.Fatalf("Read after Write: %v", err)
	}
	if *got != cfg {
		t.Fatalf("round trip mismatch: got %+v, want %+v", *got, cfg)
	}
}
