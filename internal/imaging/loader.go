package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"io"
	"os"
	"sync"

	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WEBP format decoder
)

// Decode reads an image and returns it as a Raster whose Format is the
// upper-case name reported by the matching decoder ("PNG", "JPEG", "GIF",
// "WEBP", "BMP" or "TIFF").
func Decode(r io.Reader) (Raster, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return Raster{}, fmt.Errorf("failed to decode image: %w", err)
	}
	return NewRaster(img, format), nil
}

// DecodeBytes is Decode over an in-memory buffer.
func DecodeBytes(data []byte) (Raster, error) {
	return Decode(bytes.NewReader(data))
}

// ImageCache provides thread-safe caching of decoded rasters keyed by path.
//
// Once a file is decoded, subsequent Load calls for the same path return the
// cached Raster without disk I/O. Rasters are values whose pixels are never
// modified by the pipeline, so a cached entry can be handed to concurrent
// pipeline runs.
//
// Cached rasters remain in memory until removed with Evict or Clear.
type ImageCache struct {
	mu      sync.RWMutex
	rasters map[string]Raster
}

// NewImageCache creates an empty cache, ready for concurrent use.
func NewImageCache() *ImageCache {
	return &ImageCache{
		rasters: make(map[string]Raster),
	}
}

// Load returns the cached raster for path, decoding the file on first use.
//
// The path string is the cache key as given; a relative and an absolute path
// to the same file are cached separately.
func (c *ImageCache) Load(path string) (Raster, error) {
	c.mu.RLock()
	if r, ok := c.rasters[path]; ok {
		c.mu.RUnlock()
		return r, nil
	}
	c.mu.RUnlock()

	f, err := os.Open(path)
	if err != nil {
		return Raster{}, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	r, err := Decode(f)
	if err != nil {
		return Raster{}, err
	}

	c.mu.Lock()
	c.rasters[path] = r
	c.mu.Unlock()

	return r, nil
}

// Len returns the number of cached rasters.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rasters)
}

// Clear removes every cached raster.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.rasters = make(map[string]Raster)
	c.mu.Unlock()
}

// Evict removes the raster cached under path, if any. The next Load for the
// path reads from disk again.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.rasters, path)
	c.mu.Unlock()
}

// ImageInfo contains metadata about a loaded image file.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is the decoder's format name, e.g. "PNG" or "JPEG". It is
	// detected from the file contents, not from the extension.
	Format string `json:"format"`

	// Mode is the color mode: "L", "RGB", "RGBA", "P" or "CMYK".
	Mode string `json:"mode"`

	// ColorDepth indicates the bit depth per channel: "8-bit" or "16-bit".
	ColorDepth string `json:"color_depth"`

	// HasAlpha indicates whether the image carries transparency.
	HasAlpha bool `json:"has_alpha"`

	// FileSizeBytes is the size of the image file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadImageInfo loads an image into the cache (if not already cached) and
// describes it.
//
// Color depth is "16-bit" for *image.RGBA64, *image.NRGBA64 and *image.Gray16
// and "8-bit" for everything else.
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	r, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	colorDepth := "8-bit"
	switch r.Image.(type) {
	case *image.RGBA64, *image.NRGBA64, *image.Gray16:
		colorDepth = "16-bit"
	}

	return &ImageInfo{
		Width:         r.Width(),
		Height:        r.Height(),
		Format:        r.Format,
		Mode:          string(r.Mode),
		ColorDepth:    colorDepth,
		HasAlpha:      r.HasAlpha(),
		FileSizeBytes: stat.Size(),
	}, nil
}
