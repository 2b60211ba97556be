package project

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FormatExtensions lists the file extensions the loader recognizes.
var FormatExtensions = []string{".yaml", ".yml"}

// Loader loads project files from a directory tree.
type Loader struct {
	Root string
}

func NewLoader(root string) *Loader {
	return &Loader{Root: root}
}

// LoadAll scans the root for project files and returns them sorted by
// name. Files that fail to parse or validate are skipped so one broken
// project cannot hide the rest.
func (l *Loader) LoadAll() ([]*Project, error) {
	var projects []*Project
	err := filepath.WalkDir(l.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !isSupportedExtension(path) {
			return nil
		}
		p, err := l.LoadFile(path)
		if err != nil {
			// Skip invalid files.
			return nil
		}
		projects = append(projects, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", l.Root, err)
	}

	sort.Slice(projects, func(i, j int) bool {
		return projects[i].Name < projects[j].Name
	})
	return projects, nil
}

// LoadFile loads a single project file.
func (l *Loader) LoadFile(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing file %s: %w", path, err)
	}
	p.FilePath = path
	return p, nil
}

// LoadByName finds a project by its declared name.
func (l *Loader) LoadByName(name string) (*Project, error) {
	projects, err := l.LoadAll()
	if err != nil {
		return nil, err
	}
	for _, p := range projects {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("project not found: %s", name)
}

// ListNames returns the names of every loadable project under the root.
func (l *Loader) ListNames() ([]string, error) {
	projects, err := l.LoadAll()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(projects))
	for _, p := range projects {
		names = append(names, p.Name)
	}
	return names, nil
}

func isSupportedExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, supported := range FormatExtensions {
		if ext == supported {
			return true
		}
	}
	return false
}
