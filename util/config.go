package util

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Conf holds the recognized configuration options (spec.md §6 config
// table), plus logging, pprof and node-metadata options. It holds no key
// material; the instance actor's key pairs are stored in the database.
type Conf struct {
	InstanceDomain       string `yaml:"instance_domain"`
	BindAddress          string `yaml:"bind_address"`
	Port                 int    `yaml:"port"`
	ForceAuthFetch       bool   `yaml:"force_auth_fetch"`
	OutboxPaginationSize int    `yaml:"outbox_pagination_size"`
	ContactEmail         string `yaml:"contact_email"`
	DatabasePath         string `yaml:"database_path"`
	WithJournald         bool   `yaml:"with_journald"`
	WithPprof            bool   `yaml:"with_pprof"`
	Closed               bool   `yaml:"closed"`
	NodeDescription      string `yaml:"node_description"`
}

// AppConfig is the top-level config document, mirroring the donor's
// conf-wrapped-in-struct shape so call sites read conf.Conf.Field.
type AppConfig struct {
	Conf Conf `yaml:"conf"`
}

const configFileName = "tesserae.yaml"

func defaultConfig() *AppConfig {
	return &AppConfig{Conf: Conf{
		InstanceDomain:       "localhost",
		BindAddress:          "0.0.0.0",
		Port:                 8080,
		OutboxPaginationSize: 20,
		DatabasePath:         "tesserae.db",
		NodeDescription:      "A federated social-networking server node",
	}}
}

// ReadConf loads the config from ResolveFilePath(configFileName), writing
// out a default file on first run so the instance has something to edit.
func ReadConf() (*AppConfig, error) {
	path := ResolveFilePath(configFileName)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		conf := defaultConfig()
		if writeErr := writeConf(path, conf); writeErr != nil {
			return nil, fmt.Errorf("write default config: %w", writeErr)
		}
		return conf, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	conf := &AppConfig{}
	if err := yaml.Unmarshal(data, conf); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return conf, nil
}

func writeConf(path string, conf *AppConfig) error {
	data, err := yaml.Marshal(conf)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// ResolveFilePath looks for name in the current working directory first,
// falling back to the user config directory (creating it if needed).
func ResolveFilePath(name string) string {
	if _, err := os.Stat(name); err == nil {
		return name
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return name
	}
	dir = filepath.Join(dir, "tesserae")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return name
	}
	return filepath.Join(dir, name)
}

// ResolveFilePathWithSubdir is ResolveFilePath scoped under an additional
// subdirectory of the user config directory (e.g. host keys).
func ResolveFilePathWithSubdir(subdir, name string) string {
	if _, err := os.Stat(filepath.Join(subdir, name)); err == nil {
		return filepath.Join(subdir, name)
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(subdir, name)
	}
	dir = filepath.Join(dir, "tesserae", subdir)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return filepath.Join(subdir, name)
	}
	return filepath.Join(dir, name)
}
