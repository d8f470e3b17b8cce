package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the narrata home directory.
	DefaultDirName = ".narrata"

	// CoversDirName is the subdirectory for cached book cover images.
	CoversDirName = "covers"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"
)

// Dir represents the narrata home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.narrata).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// CoversPath returns the path to the cover image cache directory.
func (d *Dir) CoversPath() string {
	return filepath.Join(d.path, CoversDirName)
}

// CoverPath returns the cached cover image path for a book.
func (d *Dir) CoverPath(bookID string) string {
	return filepath.Join(d.CoversPath(), bookID+".png")
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	// Create covers directory (this also creates the parent)
	if err := os.MkdirAll(d.CoversPath(), 0o755); err != nil {
		return fmt.Errorf("failed to create covers directory: %w", err)
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}
