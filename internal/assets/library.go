package assets

import (
	"bytes"
	"fmt"
	"image"
	"sync"

	// Registered decoders for the image formats users can import.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// Image is a decoded image asset: natural pixel dimensions plus the raw
// encoded bytes for renderers that do their own decoding.
type Image struct {
	ID     string
	Width  int
	Height int
	Format string
	Data   []byte
}

// Library caches decoded images by asset id. Safe for concurrent use; the
// capability path loads images while the render path reads them.
type Library struct {
	mu     sync.RWMutex
	source Source
	images map[string]*Image
}

// NewLibrary creates an empty library reading from source. A nil source is
// allowed; every load then fails until SetSource installs one.
func NewLibrary(source Source) *Library {
	return &Library{source: source, images: make(map[string]*Image)}
}

// SetSource swaps the backing source. Already-cached images stay cached.
func (l *Library) SetSource(source Source) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.source = source
}

// Load fetches, validates, and caches the image asset under id. Loading an
// already-cached id is a no-op.
func (l *Library) Load(id string) error {
	l.mu.RLock()
	_, cached := l.images[id]
	src := l.source
	l.mu.RUnlock()
	if cached {
		return nil
	}
	if src == nil {
		return fmt.Errorf("assets: cannot load %q: no source installed", id)
	}

	a, err := src.GetAsset(id)
	if err != nil {
		return fmt.Errorf("assets: cannot load %q: %w", id, err)
	}
	if a == nil {
		return fmt.Errorf("assets: cannot load %q: %w", id, ErrNotFound)
	}
	if a.Kind != KindImage {
		return fmt.Errorf("assets: cannot load %q: kind %q is not an image", id, a.Kind)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(a.Data))
	if err != nil {
		return fmt.Errorf("assets: cannot decode %q: %w", id, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.images[id]; !ok {
		l.images[id] = &Image{ID: id, Width: cfg.Width, Height: cfg.Height, Format: format, Data: a.Data}
	}
	return nil
}

// DecodeInfo validates that data holds a decodable image and returns its
// natural dimensions and format. Import paths use it to reject broken
// files before they reach storage.
func DecodeInfo(data []byte) (width, height int, format string, err error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, "", fmt.Errorf("assets: cannot decode image: %w", err)
	}
	return cfg.Width, cfg.Height, format, nil
}

// Image returns the cached image under id.
func (l *Library) Image(id string) (*Image, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	img, ok := l.images[id]
	return img, ok
}

// Loaded reports whether id has been decoded and cached.
func (l *Library) Loaded(id string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.images[id]
	return ok
}
