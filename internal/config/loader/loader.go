// Package loader decodes configuration files and environment overrides.
//
// The loader package handles the file formats accepted by the config
// package (TOML and YAML) and maps prefixed environment variables onto
// dotted configuration paths.
package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Format identifies a configuration file format.
type Format int

const (
	// FormatUnknown is returned for unrecognized file extensions.
	FormatUnknown Format = iota
	// FormatTOML is a TOML document.
	FormatTOML
	// FormatYAML is a YAML document.
	FormatYAML
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatTOML:
		return "toml"
	case FormatYAML:
		return "yaml"
	default:
		return "unknown"
	}
}

// FormatFromPath selects a format from the file extension.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatUnknown
	}
}

// FileSystem is an abstraction for file system operations.
// This allows for easy testing with in-memory file systems.
type FileSystem interface {
	// ReadFile reads the entire file at path.
	ReadFile(path string) ([]byte, error)
}

// OSFS implements FileSystem using the real OS file system.
type OSFS struct{}

// ReadFile reads the entire file at path.
func (OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// DefaultFS returns the default file system (OS).
func DefaultFS() FileSystem {
	return OSFS{}
}

// FileLoader decodes one configuration file into a Go value.
type FileLoader struct {
	fs   FileSystem
	path string
}

// New creates a loader for the file at path.
func New(path string) *FileLoader {
	return NewWithFS(DefaultFS(), path)
}

// NewWithFS creates a loader that reads through fsys.
func NewWithFS(fsys FileSystem, path string) *FileLoader {
	return &FileLoader{fs: fsys, path: path}
}

// Path returns the file path.
func (l *FileLoader) Path() string {
	return l.path
}

// Load decodes the file into v. Fields absent from the file keep their
// current value, so v should be pre-filled with defaults. It returns false
// without error if the file does not exist.
func (l *FileLoader) Load(v any) (bool, error) {
	format := FormatFromPath(l.path)
	if format == FormatUnknown {
		return false, fmt.Errorf("%w: %s", ErrUnsupportedFormat, l.path)
	}

	data, err := l.fs.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("reading config file %s: %w", l.path, err)
	}

	if err := Decode(format, l.path, data, v); err != nil {
		return false, err
	}
	return true, nil
}

// Decode parses data in the given format into v. source names the data in
// errors.
func Decode(format Format, source string, data []byte, v any) error {
	switch format {
	case FormatTOML:
		return decodeTOML(source, data, v)
	case FormatYAML:
		return decodeYAML(source, data, v)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, source)
	}
}
