// Package config loads and validates the tunnel's INI configuration,
// grounded on the teacher's infrastructure/PAL/configuration/server
// Manager/Reader/Writer split, but parsing real INI (spec.md §6.1) via
// gopkg.in/ini.v1 instead of the teacher's JSON.
package config

import "time"

// Main holds the [main] section of the INI file.
type Main struct {
	// SSLServerName is the bind address. "*" means any interface.
	SSLServerName string
	SSLServerPort uint16
	// DestinationName is the downstream host to dial for every session.
	DestinationName string
	// DestinationPort is kept as a string, as spec.md §6.1 specifies,
	// since it is passed straight into address resolution and may be a
	// service name rather than a numeric port.
	DestinationPort string
	ThreadCount     int
	BufferSize      int
}

// SSL holds the [ssl] section of the INI file.
type SSL struct {
	VerifyLocations   string
	CertificateFile   string
	PrivateKeyFile    string
	RequireClientCert bool
}

// Config is the fully parsed, validated, immutable configuration passed
// into server.New. It is never mutated after Reader.Read returns.
type Config struct {
	Main Main
	SSL  SSL
}

// DialTimeout bounds how long a Worker waits to connect to the
// destination before treating the attempt as connection-fatal
// (spec.md §7, kind 2).
const DialTimeout = 10 * time.Second

// BindAddress returns the address net.Listen should bind, translating the
// INI convention of "*" meaning any interface.
func (c Config) BindAddress() string {
	host := c.Main.SSLServerName
	if host == "*" {
		host = ""
	}
	return joinHostPort(host, c.Main.SSLServerPort)
}

// DestinationAddress returns the address to dial for the plaintext side
// of every session.
func (c Config) DestinationAddress() string {
	return c.Main.DestinationName + ":" + c.Main.DestinationPort
}
