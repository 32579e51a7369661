// Package config holds client settings and the on-disk state store: the
// machine token document, per-service status caches, and notices.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const envPrefix = "ENTCTL_"

// Settings is the client configuration, loaded from the config file with
// environment overrides.
type Settings struct {
	DataDir     string `yaml:"data_dir"`
	ContractURL string `yaml:"contract_url"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`

	// AllowBeta globally permits enabling beta services without the
	// per-invocation --beta flag.
	AllowBeta bool `yaml:"allow_beta"`
}

// DefaultSettings returns the built-in defaults.
func DefaultSettings() *Settings {
	return &Settings{
		DataDir:     "/var/lib/entctl",
		ContractURL: "https://contracts.entctl.io",
		LogLevel:    "info",
		LogFormat:   "auto",
	}
}

var defaultConfigPaths = []string{
	"/etc/entctl/entctl.yaml",
	"/etc/entctl/entctl.yml",
	"./entctl.yaml",
}

// Load reads settings from the first config file found, then applies .env
// and ENTCTL_* environment overrides. A missing config file is not an
// error; defaults apply.
func Load(configPath string) (*Settings, error) {
	s := DefaultSettings()

	paths := defaultConfigPaths
	if configPath != "" {
		paths = []string{configPath}
	}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			if configPath != "" {
				return nil, fmt.Errorf("reading config file %s: %w", path, err)
			}
			continue
		}
		if err := yaml.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
		log.Debug().Str("path", path).Msg("Loaded config file")
		break
	}

	// A .env next to the working directory may carry ENTCTL_* overrides,
	// mainly for development setups.
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("Loaded environment overrides from .env")
	}

	s.applyEnv()

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) applyEnv() {
	if v := os.Getenv(envPrefix + "DATA_DIR"); v != "" {
		s.DataDir = v
	}
	if v := os.Getenv(envPrefix + "CONTRACT_URL"); v != "" {
		s.ContractURL = v
	}
	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		s.LogLevel = v
	}
	if v := os.Getenv(envPrefix + "LOG_FORMAT"); v != "" {
		s.LogFormat = v
	}
	if v := os.Getenv(envPrefix + "ALLOW_BETA"); v != "" {
		s.AllowBeta = strings.EqualFold(v, "true") || v == "1"
	}
}

// Validate checks the final configuration.
func (s *Settings) Validate() error {
	if s.DataDir == "" {
		return fmt.Errorf("configuration validation failed: data_dir must not be empty")
	}
	if !strings.HasPrefix(s.ContractURL, "http://") && !strings.HasPrefix(s.ContractURL, "https://") {
		return fmt.Errorf("configuration validation failed: contract_url %q is not an http(s) URL", s.ContractURL)
	}
	return nil
}
