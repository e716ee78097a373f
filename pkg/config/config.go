package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultAppDir is the per-volume directory name used on external mounts
	DefaultAppDir = "datavol"
	// DefaultStateFile is the bbolt database name inside StateDir
	DefaultStateFile = "datavol.db"
)

// DefaultMountRoots are the directories automounters create mount points under.
var DefaultMountRoots = []string{"/media", "/run/media", "/mnt"}

// DefaultMovableExtensions mirrors the file types the data engine writes.
var DefaultMovableExtensions = []string{".mwm", ".mwm.tmp", ".ttf", ".txt", ".bin"}

// Config is the on-disk datavol configuration.
//
// InternalDir defaults to $XDG_DATA_HOME/datavol. AppDir is created on every
// external mount found under MountRoots; ExternalDirs are probed as-is.
type Config struct {
	InternalDir       string    `yaml:"internal_dir"`
	AppDir            string    `yaml:"app_dir,omitempty"`
	MountRoots        []string  `yaml:"mount_roots,omitempty"`
	ExternalDirs      []string  `yaml:"external_dirs,omitempty"`
	StateDir          string    `yaml:"state_dir"`
	MovableExtensions []string  `yaml:"movable_extensions,omitempty"`
	Log               LogConfig `yaml:"log"`
}

// LogConfig controls pkg/log initialization.
type LogConfig struct {
	Level string `yaml:"level,omitempty"`
	JSON  bool   `yaml:"json,omitempty"`
}

// Default returns a configuration rooted in the user's data and config directories.
func Default() (*Config, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	cfgDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("resolve user config directory: %w", err)
	}

	return &Config{
		InternalDir:       filepath.Join(dataHome, DefaultAppDir),
		AppDir:            DefaultAppDir,
		MountRoots:        append([]string(nil), DefaultMountRoots...),
		StateDir:          filepath.Join(cfgDir, DefaultAppDir),
		MovableExtensions: append([]string(nil), DefaultMovableExtensions...),
		Log:               LogConfig{Level: "info"},
	}, nil
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// StatePath returns the bbolt database path.
func (c *Config) StatePath() string {
	return filepath.Join(c.StateDir, DefaultStateFile)
}

// Validate checks the configuration for errors.
// It does not touch the filesystem; missing directories are a probing concern.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.InternalDir) == "" {
		return fmt.Errorf("internal_dir is required")
	}
	if !filepath.IsAbs(c.InternalDir) {
		return fmt.Errorf("internal_dir must be absolute: %s", c.InternalDir)
	}
	if strings.TrimSpace(c.StateDir) == "" {
		return fmt.Errorf("state_dir is required")
	}
	if c.AppDir == "" {
		c.AppDir = DefaultAppDir
	}
	if strings.ContainsRune(c.AppDir, filepath.Separator) {
		return fmt.Errorf("app_dir must be a single path element: %s", c.AppDir)
	}

	for _, root := range c.MountRoots {
		if !filepath.IsAbs(root) {
			return fmt.Errorf("mount root must be absolute: %s", root)
		}
	}
	for _, dir := range c.ExternalDirs {
		if !filepath.IsAbs(dir) {
			return fmt.Errorf("external dir must be absolute: %s", dir)
		}
	}

	if len(c.MovableExtensions) == 0 {
		return fmt.Errorf("at least one movable extension is required")
	}
	for _, ext := range c.MovableExtensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return fmt.Errorf("invalid movable extension %q (must start with '.')", ext)
		}
	}

	return nil
}
