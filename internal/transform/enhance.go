package transform

import (
	"image"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/image-pipeline-mcp/internal/config"
	pix "github.com/ironsheep/image-pipeline-mcp/internal/imaging"
)

// enhancement interpolates between a degenerate version of the image and the
// image itself: factor 0 yields the degenerate image, 1 the original, and
// larger values extrapolate away from the degenerate image.
type enhancement struct {
	variant
	key        string
	summary    string
	degenerate func(src *image.NRGBA) *image.NRGBA
}

func (t enhancement) Key() string { return t.key }

func (t enhancement) Apply(img pix.Raster, params config.Value) (pix.Raster, error) {
	factor, err := config.NewValidator(t.key).Number(params, "factor", config.Number, config.NonNegative())
	if err != nil {
		return pix.Raster{}, err
	}
	src := img.NRGBA()
	return img.With(blend(t.degenerate(src), src, factor)), nil
}

func (t enhancement) Describe() Descriptor {
	return Descriptor{
		Key:     t.key,
		Summary: t.summary,
		Payload: PayloadScalar,
		Params: []Param{{
			Name:        "factor",
			Type:        "number",
			Required:    true,
			Min:         bound(0),
			Description: "0 gives the degenerate image, 1 the original; values above 1 strengthen the effect.",
		}},
	}
}

// blend computes deg + factor*(src-deg) per color channel, truncating and
// clamping to 0-255. Alpha is taken from src.
func blend(deg, src *image.NRGBA, factor float64) *image.NRGBA {
	dst := image.NewNRGBA(src.Rect)
	for i := 0; i < len(src.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			d := float64(deg.Pix[i+c])
			dst.Pix[i+c] = clampByte(d + factor*(float64(src.Pix[i+c])-d))
		}
		dst.Pix[i+3] = src.Pix[i+3]
	}
	return dst
}

func clampByte(f float64) uint8 {
	switch {
	case f <= 0:
		return 0
	case f >= 255:
		return 255
	}
	return uint8(f)
}

// luma is the ITU-R 601-2 luma transform in 16-bit fixed point.
func luma(r, g, b uint8) uint8 {
	return uint8((uint32(r)*19595 + uint32(g)*38470 + uint32(b)*7471 + 0x8000) >> 16)
}

func solid(rect image.Rectangle, v uint8) *image.NRGBA {
	dst := image.NewNRGBA(rect)
	for i := 0; i < len(dst.Pix); i += 4 {
		dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2], dst.Pix[i+3] = v, v, v, 0xff
	}
	return dst
}

func newBrightness() Transformation {
	return enhancement{
		key:     "brightness",
		summary: "Adjust brightness; 0 gives a black image.",
		degenerate: func(src *image.NRGBA) *image.NRGBA {
			return solid(src.Rect, 0)
		},
	}
}

func newContrast() Transformation {
	return enhancement{
		key:     "contrast",
		summary: "Adjust contrast; 0 gives a solid gray at the image's mean luminance.",
		degenerate: func(src *image.NRGBA) *image.NRGBA {
			var mean float64
			for level, share := range imaging.Histogram(src) {
				mean += float64(level) * share
			}
			return solid(src.Rect, uint8(int(mean+0.5)))
		},
	}
}

func newColor() Transformation {
	return enhancement{
		key:     "color",
		summary: "Adjust color saturation; 0 gives a grayscale image.",
		degenerate: func(src *image.NRGBA) *image.NRGBA {
			dst := image.NewNRGBA(src.Rect)
			for i := 0; i < len(src.Pix); i += 4 {
				y := luma(src.Pix[i], src.Pix[i+1], src.Pix[i+2])
				dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2], dst.Pix[i+3] = y, y, y, src.Pix[i+3]
			}
			return dst
		},
	}
}

// smoothKernel is the SMOOTH filter, also the degenerate image for sharpness.
var smoothKernel = [9]float64{
	1, 1, 1,
	1, 5, 1,
	1, 1, 1,
}

func newSharpness() Transformation {
	return enhancement{
		key:     "sharpness",
		summary: "Adjust sharpness; 0 gives a smoothed image, 2 a sharpened one.",
		degenerate: func(src *image.NRGBA) *image.NRGBA {
			return imaging.Convolve3x3(src, smoothKernel, &imaging.ConvolveOptions{Normalize: true})
		},
	}
}
