package safe

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// DefaultMaxFileSize is the default maximum file size for safe file operations (1MB).
const DefaultMaxFileSize = 1 << 20

// ReadOptions configures the behavior of ReadFile.
type ReadOptions struct {
	// MaxSize is the maximum allowed file size in bytes. Zero means DefaultMaxFileSize.
	MaxSize int64
	// AllowSymlinks allows reading through symlinks. Default is false for security.
	AllowSymlinks bool
}

// ReadFile reads a file with security validations.
// It rejects symlinks by default to prevent file inclusion attacks,
// validates file size, and ensures only regular files are read.
func ReadFile(path string, opts *ReadOptions) ([]byte, error) {
	if opts == nil {
		opts = &ReadOptions{}
	}
	maxSize := opts.MaxSize
	if maxSize == 0 {
		maxSize = DefaultMaxFileSize
	}

	// Clean and validate the path.
	cleanPath := filepath.Clean(path)

	// Check file info without following symlinks.
	info, err := os.Lstat(cleanPath)
	if err != nil {
		return nil, err
	}

	// Reject symlinks unless explicitly allowed.
	if info.Mode()&os.ModeSymlink != 0 && !opts.AllowSymlinks {
		return nil, fmt.Errorf("file %q is a symlink, which is not allowed for security reasons", path)
	}

	// If it's a symlink and allowed, follow it to get the real file info.
	if info.Mode()&os.ModeSymlink != 0 {
		info, err = os.Stat(cleanPath)
		if err != nil {
			return nil, err
		}
	}

	// Reject non-regular files.
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("path %q is not a regular file", path)
	}

	// Check file size to prevent resource exhaustion.
	if info.Size() > maxSize {
		return nil, fmt.Errorf("file exceeds maximum allowed size of %d bytes", maxSize)
	}

	// #nosec G304 - we have validated the file prior to this.
	return os.ReadFile(cleanPath)
}

// RemoveFile removes gracefully a file, handling and logging the error.
func RemoveFile(f *os.File, logger zerolog.Logger) {
	if f == nil {
		return
	}
	if err := os.Remove(f.Name()); err != nil {
		logger.Error().Err(err).Msg("failed to remove file")
	}
}
