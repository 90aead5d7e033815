package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ProjectFile is the per-project config file name.
const ProjectFile = ".biblio.yml"

// ErrNoProject is returned when no project file is found.
var ErrNoProject = errors.New("no .biblio.yml found")

// ProjectPath returns the path to the project file in root.
func ProjectPath(root string) string {
	return filepath.Join(root, ProjectFile)
}

// IsProject checks if root contains a project file.
func IsProject(root string) bool {
	info, err := os.Stat(ProjectPath(root))
	return err == nil && !info.IsDir()
}

// FindProject walks up from start to find a directory containing a project
// file.
func FindProject(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	for {
		if IsProject(abs) {
			return abs, nil
		}

		parent := filepath.Dir(abs)
		if parent == abs {
			return "", ErrNoProject
		}
		abs = parent
	}
}

// Load returns the effective config for work under start: the global
// config overlaid with the nearest project file, if any. Relative paths in
// a project file are resolved against its directory, and the cache path
// defaults to DefaultEUtilsCachePath.
func Load(start string) (*Config, error) {
	global, err := LoadGlobalConfig()
	if err != nil {
		return nil, err
	}
	cfg := *global

	root, err := FindProject(start)
	switch {
	case errors.Is(err, ErrNoProject):
	case err != nil:
		return nil, err
	default:
		project, err := LoadFile(ProjectPath(root))
		if err != nil {
			return nil, err
		}
		cfg.merge(project, root)
	}

	if cfg.EUtilsCache == "" {
		cfg.EUtilsCache = DefaultEUtilsCachePath()
	}
	return &cfg, nil
}

// merge overlays the set fields of other onto c.
func (c *Config) merge(other *Config, root string) {
	if other.NCBIAPIKey != "" {
		c.NCBIAPIKey = other.NCBIAPIKey
	}
	if other.EUtilsCache != "" {
		c.EUtilsCache = resolve(root, other.EUtilsCache)
	}
	if other.Schema != "" {
		c.Schema = resolve(root, other.Schema)
	}
	if other.Workers != 0 {
		c.Workers = other.Workers
	}
}

func resolve(root, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// Validate checks that configured paths exist and values are in range.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("invalid workers: %d", c.Workers)
	}
	if c.Schema != "" {
		info, err := os.Stat(c.Schema)
		if err != nil {
			return fmt.Errorf("schema file does not exist: %s", c.Schema)
		}
		if info.IsDir() {
			return fmt.Errorf("schema path is a directory: %s", c.Schema)
		}
	}
	return nil
}
