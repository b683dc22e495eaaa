// Package media loads, caches, and prepares raster images for the detection
// pipeline.
package media

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/shape-trainer/internal/entities"
)

// ImageCache loads media items from disk and caches them by path, so a file
// analysed repeatedly keeps one decoded copy and one media identity.
//
// Items are keyed by the exact path string passed to Load; loading the same
// path twice returns the same *entities.Image. Cached items stay in memory
// until Evict or Clear is called.
type ImageCache struct {
	mu    sync.RWMutex
	items map[string]*entities.Image
}

// NewImageCache creates an empty cache ready for concurrent use.
func NewImageCache() *ImageCache {
	return &ImageCache{items: make(map[string]*entities.Image)}
}

// Load returns the media item for a path, decoding it on first use.
// PNG, JPEG, and GIF are supported. The item is named after the file,
// without its extension.
func (c *ImageCache) Load(path string) (*entities.Image, error) {
	c.mu.RLock()
	if item, ok := c.items[path]; ok {
		c.mu.RUnlock()
		return item, nil
	}
	c.mu.RUnlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	pixels, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}

	base := filepath.Base(path)
	item := entities.NewImage(strings.TrimSuffix(base, filepath.Ext(base)), pixels)

	c.mu.Lock()
	c.items[path] = item
	c.mu.Unlock()

	return item, nil
}

// LoadDir loads every supported image file directly under dir, in file name
// order. Subdirectories and files with other extensions are skipped. An empty
// directory is an error, since a dataset of zero items cannot be analysed.
func (c *ImageCache) LoadDir(dir string) ([]*entities.Image, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read image directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !supportedImage(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no images found in %s", dir)
	}
	sort.Strings(names)

	items := make([]*entities.Image, 0, len(names))
	for _, name := range names {
		item, err := c.Load(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// Clear removes all cached items.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.items = make(map[string]*entities.Image)
	c.mu.Unlock()
}

// Evict removes a single item from the cache by its path.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.items, path)
	c.mu.Unlock()
}

func supportedImage(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".gif":
		return true
	}
	return false
}

// Save encodes an image to disk; the format is inferred from the file
// extension.
func Save(img image.Image, path string) error {
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save image %s: %w", path, err)
	}
	return nil
}

// FitWithin downscales an image so that neither dimension exceeds maxDim,
// preserving aspect ratio. Images already within the limit are returned
// unchanged. Detection cost grows with pixel count, so oversized inputs are
// bounded here before analysis.
func FitWithin(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	if b.Dx() <= maxDim && b.Dy() <= maxDim {
		return img
	}
	return imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
}
