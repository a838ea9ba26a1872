// pattern: Imperative Shell

package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// dropInDir is the directory, next to config.yaml, whose YAML files are
// layered over the main config.
const dropInDir = "config.d"

// DropIn is one config fragment.
type DropIn struct {
	Name string // File name without extension
	Path string // Absolute path to the file
	Data []byte
}

// LoadDropInsFrom loads every .yaml or .yml file in dir, sorted by file
// name. A missing directory has no drop-ins.
func LoadDropInsFrom(dir string) ([]DropIn, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []DropIn{}, nil
		}
		return nil, err
	}

	var dropIns []DropIn
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		// Editors leave hidden swap and backup files behind.
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		dropIns = append(dropIns, DropIn{
			Name: strings.TrimSuffix(entry.Name(), ext),
			Path: path,
			Data: data,
		})
	}

	sort.Slice(dropIns, func(i, j int) bool { return dropIns[i].Path < dropIns[j].Path })
	return dropIns, nil
}
