// Package utils holds small filesystem helpers shared by the CLI.
package utils

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
)

// ValidateInputFile returns an error unless filename names a readable
// regular file.
func ValidateInputFile(filename string) error {
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}
	info, err := os.Stat(filename)
	switch {
	case os.IsNotExist(err):
		return fmt.Errorf("file does not exist: %s", filename)
	case err != nil:
		return fmt.Errorf("cannot access file %s: %w", filename, err)
	case info.IsDir():
		return fmt.Errorf("path is a directory, not a file: %s", filename)
	}

	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("cannot read file %s: %w", filename, err)
	}
	return f.Close()
}

// ValidateOutputFile creates the parent directory of filename if needed.
// An empty filename means stdout.
func ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil
	}
	dir := filepath.Dir(filename)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("cannot create directory %s: %w", dir, err)
	}
	return nil
}

// ResolveOutputPath picks where a generated file goes. An empty output
// means defaultName in the working directory; an existing directory or a
// path ending in a separator gets defaultName inside it.
func ResolveOutputPath(output, defaultName string) string {
	if output == "" {
		return defaultName
	}
	if strings.HasSuffix(output, "/") || strings.HasSuffix(output, string(os.PathSeparator)) {
		return filepath.Join(output, defaultName)
	}
	if info, err := os.Stat(output); err == nil && info.Mode()&fs.ModeDir != 0 {
		return filepath.Join(output, defaultName)
	}
	return output
}

func extension(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// IsTextFile reports whether filename has a plain text or markdown extension.
func IsTextFile(filename string) bool {
	switch extension(filename) {
	case ".txt", ".text", ".md", ".markdown":
		return true
	}
	return false
}

// IsYAMLFile reports whether a record file should be read as YAML.
func IsYAMLFile(filename string) bool {
	ext := extension(filename)
	return ext == ".yaml" || ext == ".yml"
}

// FormatFileSize renders size in binary units, e.g. "1.5 KiB".
func FormatFileSize(size int64) string {
	if size < 0 {
		size = 0
	}
	return humanize.IBytes(uint64(size))
}
