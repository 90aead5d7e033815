// Package config handles global and per-project configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// Config holds settings read from the global config file and from
// project files. Empty fields are unset.
type Config struct {
	NCBIAPIKey  string `yaml:"ncbi_api_key,omitempty"`
	EUtilsCache string `yaml:"eutils_cache,omitempty"`
	Schema      string `yaml:"schema,omitempty"`
	Workers     int    `yaml:"workers,omitempty"`
}

const (
	// AppDir is the directory name under the XDG config and cache homes.
	AppDir = "biblio"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yml"
	// EUtilsCacheFile is the default PMCID cache database name.
	EUtilsCacheFile = "eutils.db"
	// NCBIAPIKeyEnv overrides ncbi_api_key.
	NCBIAPIKeyEnv = "NCBI_API_KEY"
)

// globalConfigCache caches the loaded global config.
var globalConfigCache *Config

// GlobalConfigPath returns the path to the global config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/biblio/config.yml.
func GlobalConfigPath() string {
	return filepath.Join(xdg.ConfigHome, AppDir, GlobalConfigFile)
}

// DefaultEUtilsCachePath is the PMCID cache location when none is
// configured.
func DefaultEUtilsCachePath() string {
	return filepath.Join(xdg.CacheHome, AppDir, EUtilsCacheFile)
}

// LoadFile reads a config file. Paths in it are tilde-expanded.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.Schema = ExpandPath(cfg.Schema)
	cfg.EUtilsCache = ExpandPath(cfg.EUtilsCache)
	return &cfg, nil
}

// LoadGlobalConfig loads the global configuration file.
// Returns an empty config (not an error) if the file doesn't exist.
func LoadGlobalConfig() (*Config, error) {
	if globalConfigCache != nil {
		return globalConfigCache, nil
	}

	cfg, err := LoadFile(GlobalConfigPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("global config: %w", err)
	}

	globalConfigCache = cfg
	return cfg, nil
}

// ResetGlobalConfigCache clears the cached global config.
// Useful for testing.
func ResetGlobalConfigCache() {
	globalConfigCache = nil
}

// GetConfigValue returns the environment variable if set, otherwise the
// config value.
func GetConfigValue(envVar, configValue string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return configValue
}

// GetNCBIAPIKey returns the NCBI API key, preferring NCBI_API_KEY.
func GetNCBIAPIKey() string {
	cfg, _ := LoadGlobalConfig()
	if cfg == nil {
		cfg = &Config{}
	}
	return GetConfigValue(NCBIAPIKeyEnv, cfg.NCBIAPIKey)
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, path[1:])
}
