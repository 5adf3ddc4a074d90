package source

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// List returns the names of the regular files in dir, sorted. Hidden
// entries and subdirectories are skipped.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("could not read config directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") || entry.IsDir() {
			continue
		}
		if !entry.Type().IsRegular() && entry.Type()&os.ModeSymlink == 0 {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Dir opens config identifiers relative to Root.
type Dir struct {
	Root string
}

func (d Dir) Open(id string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(d.Root, id))
}
