package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is looked up in the working directory when no --config is given.
const DefaultConfigFile = "qarag.yml"

// Load builds the effective configuration from defaults, the YAML file at path
// and the process environment.
//
// An empty path falls back to DefaultConfigFile, which may be absent. An explicit
// path that does not exist is an error.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with an injectable environment lookup.
func LoadWithEnv(path string, lookup LookupFunc) (*Config, error) {
	cfg := Defaults()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	if err := cfg.loadFile(ExpandPath(path)); err != nil {
		switch {
		case !os.IsNotExist(err):
			return nil, err
		case explicit:
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, err
	}

	cfg.CorpusPath = ExpandPath(cfg.CorpusPath)
	cfg.IndexPath = ExpandPath(cfg.IndexPath)
	cfg.AskLogPath = ExpandPath(cfg.AskLogPath)

	return cfg, nil
}

// loadFile overlays the YAML file onto c. Keys absent from the file keep
// their current values.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return err
		}
		return fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// Save writes the configuration as YAML, creating parent directories as needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path // Return original if we can't get home directory
	}

	return filepath.Join(home, path[1:])
}
