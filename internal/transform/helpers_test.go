package transform

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ironsheep/image-pipeline-mcp/internal/config"
	pix "github.com/ironsheep/image-pipeline-mcp/internal/imaging"
)

// solidRaster returns a w x h raster filled with c.
func solidRaster(w, h int, c color.NRGBA) pix.Raster {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return pix.NewRaster(img, "PNG")
}

// patternRaster returns an opaque raster with red, green, blue and white
// quadrants (top-left, top-right, bottom-left, bottom-right).
func patternRaster(w, h int) pix.Raster {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBA{255, 255, 255, 255}
			switch {
			case x < w/2 && y < h/2:
				c = color.NRGBA{255, 0, 0, 255}
			case y < h/2:
				c = color.NRGBA{0, 255, 0, 255}
			case x < w/2:
				c = color.NRGBA{0, 0, 255, 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return pix.NewRaster(img, "PNG")
}

// splitGrayRaster returns an opaque raster whose left half has level a and
// right half level b.
func splitGrayRaster(w, h int, a, b uint8) pix.Raster {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := a
			if x >= w/2 {
				v = b
			}
			img.SetNRGBA(x, y, color.NRGBA{v, v, v, 255})
		}
	}
	return pix.NewRaster(img, "PNG")
}

func pixelAt(r pix.Raster, x, y int) color.NRGBA {
	b := r.Image.Bounds()
	return color.NRGBAModel.Convert(r.Image.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
}

// apply runs the transformation registered under key with a JSON payload.
func apply(t *testing.T, key string, img pix.Raster, payload string) (pix.Raster, error) {
	t.Helper()
	tr, ok := MustDefault().Lookup(key)
	require.True(t, ok, "transformation %q not registered", key)
	params, err := config.ParseString(payload)
	require.NoError(t, err)
	return tr.Apply(img, params)
}

func mustApply(t *testing.T, key string, img pix.Raster, payload string) pix.Raster {
	t.Helper()
	out, err := apply(t, key, img, payload)
	require.NoError(t, err)
	return out
}

// requireValidation asserts err is a *config.ValidationError of kind and,
// when field is not empty, on that field.
func requireValidation(t *testing.T, err error, kind config.ErrorKind, field string) {
	t.Helper()
	require.Error(t, err)
	var verr *config.ValidationError
	require.True(t, errors.As(err, &verr), "expected *config.ValidationError, got %T: %v", err, err)
	require.Equal(t, kind, verr.Kind, verr.Error())
	if field != "" {
		require.Equal(t, field, verr.Field, verr.Error())
	}
}

func requireSize(t *testing.T, r pix.Raster, w, h int) {
	t.Helper()
	require.Equal(t, w, r.Width(), "width")
	require.Equal(t, h, r.Height(), "height")
}
