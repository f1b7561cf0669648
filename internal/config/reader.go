package config

import (
	"fmt"

	"gopkg.in/ini.v1"
)

// allowedKeys enumerates every key the loader accepts. A key present in
// the file but absent here causes Read to reject the file outright
// (spec.md §6.1: "Unknown keys cause the loader to reject the file").
var allowedKeys = map[string]map[string]bool{
	"main": {
		"ssl_server_name":  true,
		"ssl_server_port":  true,
		"destination_name": true,
		"destination_port": true,
		"thread_count":     true,
		"buffer_size":      true,
	},
	"ssl": {
		"verify_locations":    true,
		"certificate_file":    true,
		"PrivateKey_file":     true,
		"require_client_cert": true,
	},
}

// Reader loads a Config from an INI file on disk.
type Reader interface {
	Read(path string) (*Config, error)
}

// defaultReader is the production Reader, backed by gopkg.in/ini.v1.
type defaultReader struct{}

// NewReader constructs the default ini.v1-backed Reader.
func NewReader() Reader {
	return defaultReader{}
}

func (defaultReader) Read(path string) (*Config, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to load %s: %w", path, err)
	}

	if err := rejectUnknownKeys(f); err != nil {
		return nil, err
	}

	main := f.Section("main")
	ssl := f.Section("ssl")

	cfg := &Config{
		Main: Main{
			SSLServerName:   main.Key("ssl_server_name").MustString("*"),
			SSLServerPort:   uint16(main.Key("ssl_server_port").MustUint(8443)),
			DestinationName: main.Key("destination_name").String(),
			DestinationPort: main.Key("destination_port").String(),
			ThreadCount:     main.Key("thread_count").MustInt(1),
			BufferSize:      main.Key("buffer_size").MustInt(4096),
		},
		SSL: SSL{
			VerifyLocations:   ssl.Key("verify_locations").String(),
			CertificateFile:   ssl.Key("certificate_file").String(),
			PrivateKeyFile:    ssl.Key("PrivateKey_file").String(),
			RequireClientCert: ssl.Key("require_client_cert").MustBool(false),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	clamp(cfg)
	return cfg, nil
}

func rejectUnknownKeys(f *ini.File) error {
	for _, section := range f.Sections() {
		name := section.Name()
		if name == ini.DefaultSection {
			if len(section.Keys()) > 0 {
				return fmt.Errorf("config: unexpected keys outside any section")
			}
			continue
		}

		allowed, known := allowedKeys[name]
		if !known {
			return fmt.Errorf("config: unknown section [%s]", name)
		}
		for _, key := range section.Keys() {
			if !allowed[key.Name()] {
				return fmt.Errorf("config: unknown key %q in section [%s]", key.Name(), name)
			}
		}
	}
	return nil
}

func validate(cfg *Config) error {
	if cfg.Main.DestinationName == "" {
		return fmt.Errorf("config: [main] destination_name is required")
	}
	if cfg.Main.DestinationPort == "" {
		return fmt.Errorf("config: [main] destination_port is required")
	}
	if cfg.SSL.CertificateFile == "" {
		return fmt.Errorf("config: [ssl] certificate_file is required")
	}
	if cfg.SSL.PrivateKeyFile == "" {
		return fmt.Errorf("config: [ssl] PrivateKey_file is required")
	}
	return nil
}

// clamp enforces spec.md §6.1's floor values: thread_count and
// buffer_size are clamped to >= 1 rather than rejected, matching the
// original's lenient behavior for those two keys specifically.
func clamp(cfg *Config) {
	if cfg.Main.ThreadCount < 1 {
		cfg.Main.ThreadCount = 1
	}
	if cfg.Main.BufferSize < 1 {
		cfg.Main.BufferSize = 1
	}
}
