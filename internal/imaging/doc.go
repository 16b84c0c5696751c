// Package imaging provides the raster type the transformation pipeline works
// on, together with decoding, encoding, caching and color parsing.
//
// A Raster pairs a Go image.Image with a color mode (L, RGB, RGBA, P or CMYK)
// and the format name it was decoded from. Pixel coordinates are 0-based with
// (0,0) at the top-left corner; rectangles are inclusive at the top-left and
// exclusive at the bottom-right.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Rasters are treated as
// immutable: every operation in this module derives a new Raster instead of
// writing into an existing one, so a cached Raster can be shared between
// concurrent pipeline runs.
//
// # Modes
//
// Operations keep the mode of their input where they can. Grayscale stays
// single channel; paletted and CMYK input becomes RGB or RGBA after the
// first pixel operation, depending on whether it carries transparency.
//
// # Formats
//
// Decoding covers PNG, JPEG, GIF, WEBP, BMP and TIFF. Encoding covers PNG,
// JPEG, GIF, BMP and TIFF; a WEBP target is written as PNG and the returned
// format name says so.
//
// # Colors
//
// ParseColor understands hex codes, rgb()/rgba() expressions and CSS basic
// color names. ResolveColor turns a validated color parameter into a pixel
// for a given mode.
package imaging
