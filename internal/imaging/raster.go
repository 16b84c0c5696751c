package imaging

import (
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"
)

// Mode is the color mode of a Raster.
type Mode string

const (
	ModeL    Mode = "L"    // 8-bit grayscale
	ModeRGB  Mode = "RGB"  // opaque color
	ModeRGBA Mode = "RGBA" // color with alpha
	ModeP    Mode = "P"    // paletted
	ModeCMYK Mode = "CMYK" // CMYK, as decoded from some JPEGs
)

// Raster is a decoded image together with its color mode and format name.
//
// Operations never modify Raster.Image in place; they derive a new Raster with
// With or Convert. Format is the upper-case format name ("PNG", "JPEG", ...)
// the raster was decoded from, or the one it is meant to be written as.
type Raster struct {
	Image  image.Image
	Mode   Mode
	Format string
}

// NewRaster wraps img, detecting its mode from the concrete image type.
func NewRaster(img image.Image, format string) Raster {
	return Raster{
		Image:  img,
		Mode:   DetectMode(img),
		Format: strings.ToUpper(format),
	}
}

// DetectMode maps a Go image type to a color mode.
//
//   - *image.Gray, *image.Gray16 -> L
//   - *image.Paletted -> P
//   - *image.CMYK -> CMYK
//   - *image.YCbCr -> RGB
//   - anything else -> RGB when fully opaque, RGBA otherwise
func DetectMode(img image.Image) Mode {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return ModeL
	case *image.Paletted:
		return ModeP
	case *image.CMYK:
		return ModeCMYK
	case *image.YCbCr:
		return ModeRGB
	}
	if isOpaque(img) {
		return ModeRGB
	}
	return ModeRGBA
}

func isOpaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	return true
}

// Width returns the raster width in pixels.
func (r Raster) Width() int { return r.Image.Bounds().Dx() }

// Height returns the raster height in pixels.
func (r Raster) Height() int { return r.Image.Bounds().Dy() }

// HasAlpha reports whether the mode carries an alpha channel.
func (r Raster) HasAlpha() bool { return r.Mode == ModeRGBA }

// NRGBA returns a copy of the pixels as *image.NRGBA anchored at (0,0).
func (r Raster) NRGBA() *image.NRGBA {
	return imaging.Clone(r.Image)
}

// With returns a raster holding img that keeps r's format and, where the
// pixels allow it, r's mode. Grayscale rasters stay single channel. Paletted
// and CMYK rasters become RGB or RGBA, and an RGB raster whose new pixels
// carry alpha becomes RGBA.
func (r Raster) With(img image.Image) Raster {
	out := Raster{Image: img, Mode: r.Mode, Format: r.Format}
	switch r.Mode {
	case ModeL:
		out.Image = toGray(img)
	case ModeRGB:
		if !isOpaque(img) {
			out.Mode = ModeRGBA
		}
	case ModeP, ModeCMYK:
		if isOpaque(img) {
			out.Mode = ModeRGB
		} else {
			out.Mode = ModeRGBA
		}
	}
	return out
}

// Convert returns r in the requested mode. Converting to RGB drops the alpha
// channel without compositing; converting to L uses ITU-R 601 luma weights.
func (r Raster) Convert(mode Mode) Raster {
	if mode == r.Mode {
		return r
	}
	out := Raster{Mode: mode, Format: r.Format}
	switch mode {
	case ModeL:
		out.Image = toGray(r.Image)
	case ModeRGB:
		px := r.NRGBA()
		for i := 3; i < len(px.Pix); i += 4 {
			px.Pix[i] = 0xff
		}
		out.Image = px
	default:
		out.Mode = ModeRGBA
		out.Image = r.NRGBA()
	}
	return out
}

// toGray converts img to 8-bit luma, reading straight (non-premultiplied)
// channel values so transparent pixels keep their color.
func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	src := imaging.Clone(img)
	dst := image.NewGray(src.Rect)
	for i, j := 0, 0; i < len(src.Pix); i, j = i+4, j+1 {
		c := color.RGBA{R: src.Pix[i], G: src.Pix[i+1], B: src.Pix[i+2], A: 0xff}
		dst.Pix[j] = color.GrayModel.Convert(c).(color.Gray).Y
	}
	return dst
}
