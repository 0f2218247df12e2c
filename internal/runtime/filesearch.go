package runtime

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	maxSearchResults = 10
	maxSearchVisits  = 20000
)

// searchFiles walks root looking for file names containing query, case
// insensitively. Hidden directories are skipped, the walk is bounded, and a
// full result set stops it early. An empty root defaults to the home dir.
func searchFiles(root, query string, limit int) ([]string, error) {
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		root = home
	}
	needle := strings.ToLower(query)

	var matches []string
	visited := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped, not fatal.
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		visited++
		if visited > maxSearchVisits {
			return fs.SkipAll
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && strings.HasPrefix(name, ".") {
				return fs.SkipDir
			}
			return nil
		}
		if strings.Contains(strings.ToLower(name), needle) {
			matches = append(matches, path)
			if len(matches) >= limit {
				return fs.SkipAll
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}
