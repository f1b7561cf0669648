package config

import (
	"fmt"

	"gopkg.in/ini.v1"
)

// Writer persists a Config back to an INI file, used by confgen to save
// the wizard's answers.
type Writer interface {
	Write(path string, cfg Config) error
}

type defaultWriter struct{}

// NewWriter constructs the default ini.v1-backed Writer.
func NewWriter() Writer {
	return defaultWriter{}
}

func (defaultWriter) Write(path string, cfg Config) error {
	f := ini.Empty()

	main, err := f.NewSection("main")
	if err != nil {
		return fmt.Errorf("config: failed to create [main]: %w", err)
	}
	main.Key("ssl_server_name").SetValue(cfg.Main.SSLServerName)
	main.Key("ssl_server_port").SetValue(fmt.Sprintf("%d", cfg.Main.SSLServerPort))
	main.Key("destination_name").SetValue(cfg.Main.DestinationName)
	main.Key("destination_port").SetValue(cfg.Main.DestinationPort)
	main.Key("thread_count").SetValue(fmt.Sprintf("%d", cfg.Main.ThreadCount))
	main.Key("buffer_size").SetValue(fmt.Sprintf("%d", cfg.Main.BufferSize))

	ssl, err := f.NewSection("ssl")
	if err != nil {
		return fmt.Errorf("config: failed to create [ssl]: %w", err)
	}
	ssl.Key("verify_locations").SetValue(cfg.SSL.VerifyLocations)
	ssl.Key("certificate_file").SetValue(cfg.SSL.CertificateFile)
	ssl.Key("PrivateKey_file").SetValue(cfg.SSL.PrivateKeyFile)
	ssl.Key("require_client_cert").SetValue(fmt.Sprintf("%t", cfg.SSL.RequireClientCert))

	if err := f.SaveTo(path); err != nil {
		return fmt.Errorf("config: failed to write %s: %w", path, err)
	}
	return nil
}
