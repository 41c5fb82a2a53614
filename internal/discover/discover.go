// Package discover finds data files under a directory tree.
package discover

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// JSONExt is the extension of song-metadata and event-log files.
const JSONExt = ".json"

// Sentinel errors.
var (
	// ErrNotFound is returned when the root directory does not exist.
	ErrNotFound = errors.New("data directory not found")

	// ErrPermissionDenied is returned when the root or one of its subdirectories cannot be read.
	ErrPermissionDenied = errors.New("data directory not readable")

	// ErrNotDirectory is returned when the root exists but is not a directory.
	ErrNotDirectory = errors.New("data path is not a directory")
)

// Files is a deterministic list of absolute file paths.
type Files []string

// All iterates over the files with their 1-based position. Each call starts
// over from the first file.
func (f Files) All() iter.Seq2[int, string] {
	return func(yield func(int, string) bool) {
		for i, path := range f {
			if !yield(i+1, path) {
				return
			}
		}
	}
}

// Find walks root recursively and returns the absolute paths of all regular
// files whose extension matches ext (case-insensitive), sorted
// lexicographically. An empty result is not an error.
func Find(root, ext string) (Files, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", root, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, classify(abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, abs)
	}

	// WalkDir does not descend into a symlinked root, so walk its target and
	// report paths under the root as given.
	target, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, classify(abs, err)
	}

	var files Files
	err = filepath.WalkDir(target, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return classify(path, err)
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ext) {
			return nil
		}
		if !isRegular(path, d) {
			return nil
		}
		rel, err := filepath.Rel(target, path)
		if err != nil {
			return fmt.Errorf("walking %s: %w", path, err)
		}
		files = append(files, filepath.Join(abs, rel))
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Sort(files)
	return files, nil
}

// isRegular reports whether the entry is a regular file or a symlink to one.
// Symlinked directories are not followed.
func isRegular(path string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// classify maps filesystem errors onto the package sentinels.
func classify(path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %s", ErrPermissionDenied, path)
	default:
		return fmt.Errorf("walking %s: %w", path, err)
	}
}
