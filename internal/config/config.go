// Package config handles kiz.toml project configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/go-homedir"
)

// FileName is the name of the project configuration file.
const FileName = "kiz.toml"

// Config represents a kiz.toml project configuration.
type Config struct {
	Project Project `toml:"project"`
	Run     Run     `toml:"run"`
	Log     Log     `toml:"log"`

	// Dir is the directory containing the kiz.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Run configures program execution.
type Run struct {
	// Entry is the compiled unit run when no file is given on the command line.
	Entry string `toml:"entry"`
	// ModuleDirs are searched, in order, for compiled units named by IMPORT.
	ModuleDirs []string `toml:"module-dirs"`
	// ContextCheckInterval is how many instructions run between checks for
	// cancellation.
	ContextCheckInterval int `toml:"context-check-interval"`
}

// Log configures VM debug logging.
type Log struct {
	Level string `toml:"level"`
}

// Default returns the configuration used when no kiz.toml exists.
func Default(dir string) *Config {
	c := &Config{Dir: dir}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if len(c.Run.ModuleDirs) == 0 {
		c.Run.ModuleDirs = []string{"."}
	}
	if c.Log.Level == "" {
		c.Log.Level = "warn"
	}
}

// Load parses a kiz.toml file from the given directory.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var c Config
	md, err := toml.Decode(string(data), &c)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %q in %s", undecoded[0].String(), path)
	}
	if c.Run.ContextCheckInterval < 0 {
		return nil, fmt.Errorf("context-check-interval must not be negative in %s", path)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	c.applyDefaults()
	return &c, nil
}

// FindAndLoad walks up from startDir to find a kiz.toml file, then loads
// and returns it. Returns nil if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, FileName)); err == nil {
			return Load(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// resolve expands a leading ~ and makes path relative to the config dir.
func (c *Config) resolve(path string) (string, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(expanded) {
		return expanded, nil
	}
	return filepath.Join(c.Dir, expanded), nil
}

// ModuleDirPaths returns absolute paths for the configured module dirs.
func (c *Config) ModuleDirPaths() ([]string, error) {
	paths := make([]string, 0, len(c.Run.ModuleDirs))
	for _, d := range c.Run.ModuleDirs {
		p, err := c.resolve(d)
		if err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// EntryPath returns the absolute path of the entry unit, or "" when none
// is configured.
func (c *Config) EntryPath() (string, error) {
	if c.Run.Entry == "" {
		return "", nil
	}
	return c.resolve(c.Run.Entry)
}
