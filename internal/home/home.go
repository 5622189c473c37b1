// Package home manages the airportsearch home directory layout.
//
// The home directory owns persistent state that outlives a single run: the
// optional config file and name index snapshots.
//
// Layout:
//
//	<root>/
//	  airportsearch.yaml               (optional config file)
//	  index/
//	    <fingerprint>.msgpack.zst      (name index snapshot for one data state)
package home

import (
	"fmt"
	"os"
	"path/filepath"
)

// ConfigName is the base name of the config file, without extension.
const ConfigName = "airportsearch"

// Dir represents an airportsearch home directory.
type Dir struct {
	root string
}

// New creates a Dir with an explicit root path.
func New(root string) Dir {
	return Dir{root: root}
}

// Default returns a Dir using the platform-appropriate default location:
//   - Linux:   ~/.config/airportsearch
//   - macOS:   ~/Library/Application Support/airportsearch
//   - Windows: %APPDATA%/airportsearch
func Default() (Dir, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return Dir{}, fmt.Errorf("determine config directory: %w", err)
	}
	return Dir{root: filepath.Join(base, "airportsearch")}, nil
}

// Root returns the home directory path.
func (d Dir) Root() string {
	return d.root
}

// ConfigPath returns the path of the YAML config file.
func (d Dir) ConfigPath() string {
	return filepath.Join(d.root, ConfigName+".yaml")
}

// IndexDir returns the directory holding name index snapshots.
func (d Dir) IndexDir() string {
	return filepath.Join(d.root, "index")
}

// EnsureExists creates the home directory (and parents) if it doesn't exist.
func (d Dir) EnsureExists() error {
	if err := os.MkdirAll(d.root, 0o750); err != nil {
		return fmt.Errorf("create home directory %s: %w", d.root, err)
	}
	return nil
}
