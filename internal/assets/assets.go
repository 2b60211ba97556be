// Package assets supplies media to the simulation. Raw assets come from a
// Source (the SQLite store, a project directory, a test fixture) and decoded
// images are cached in a Library keyed by asset id.
package assets

import (
	"errors"
	"fmt"
)

// Asset kinds.
const (
	KindImage = "image"
	KindSound = "sound"
)

// ErrNotFound is returned when a source holds no asset under the requested id.
var ErrNotFound = errors.New("asset not found")

// Asset is one stored media item.
type Asset struct {
	ID   string
	Kind string
	Name string
	Data []byte
}

// Source supplies raw assets by id.
type Source interface {
	GetAsset(id string) (*Asset, error)
}

// MemorySource is a map-backed Source for tests and embedded fixtures.
type MemorySource map[string]*Asset

// GetAsset implements Source.
func (m MemorySource) GetAsset(id string) (*Asset, error) {
	a, ok := m[id]
	if !ok {
		return nil, fmt.Errorf("assets: cannot get %q: %w", id, ErrNotFound)
	}
	return a, nil
}
