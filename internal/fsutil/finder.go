// Package fsutil provides file system utility functions.
package fsutil

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ListFilesByExtension returns the regular files directly inside dir whose
// extension is one of extensions, in the directory's natural listing order
// (lexical by file name). Subdirectories are not descended into. Returned
// paths are absolute.
func ListFilesByExtension(dir string, extensions ...string) ([]string, error) {
	if len(extensions) == 0 {
		panic("at least one extension is required")
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(absDir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if slices.Contains(extensions, ext) {
			files = append(files, filepath.Join(absDir, entry.Name()))
		}
	}
	return files, nil
}

// IsDir reports whether path exists and is a directory.
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Exists reports whether path exists.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
