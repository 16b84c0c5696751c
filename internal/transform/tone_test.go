package transform

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/image-pipeline-mcp/internal/config"
	pix "github.com/ironsheep/image-pipeline-mcp/internal/imaging"
)

func grayRaster(w, h int, level uint8) pix.Raster {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = level
	}
	return pix.NewRaster(img, "PNG")
}

func TestEnhancements_Identity(t *testing.T) {
	img := patternRaster(12, 12)
	for _, key := range []string{"brightness", "contrast", "sharpness", "color"} {
		t.Run(key, func(t *testing.T) {
			out := mustApply(t, key, img, `1`)
			assert.Equal(t, img.NRGBA().Pix, out.NRGBA().Pix)
		})
	}
}

func TestBrightness(t *testing.T) {
	src := solidRaster(4, 4, color.NRGBA{100, 50, 10, 200})

	out := mustApply(t, "brightness", src, `0`)
	assert.Equal(t, color.NRGBA{0, 0, 0, 200}, pixelAt(out, 1, 1))

	out = mustApply(t, "brightness", src, `2`)
	assert.Equal(t, color.NRGBA{200, 100, 20, 200}, pixelAt(out, 1, 1))

	out = mustApply(t, "brightness", src, `3.0`)
	assert.Equal(t, color.NRGBA{255, 150, 30, 200}, pixelAt(out, 1, 1))
}

func TestContrast_ZeroIsSolidGray(t *testing.T) {
	out := mustApply(t, "contrast", patternRaster(10, 10), `0`)
	first := pixelAt(out, 0, 0)
	assert.Equal(t, first.R, first.G)
	assert.Equal(t, first.G, first.B)
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			require.Equal(t, first, pixelAt(out, x, y))
		}
	}
}

func TestColor_ZeroIsGrayscale(t *testing.T) {
	out := mustApply(t, "color", patternRaster(10, 10), `0`)
	assert.Equal(t, pix.ModeRGB, out.Mode)
	for _, p := range [][2]int{{0, 0}, {9, 0}, {0, 9}, {9, 9}} {
		c := pixelAt(out, p[0], p[1])
		assert.Equal(t, c.R, c.G)
		assert.Equal(t, c.G, c.B)
	}
	assert.InDelta(t, 76, pixelAt(out, 0, 0).R, 1)
}

func TestEnhancements_Invalid(t *testing.T) {
	img := patternRaster(4, 4)
	for _, key := range []string{"brightness", "contrast", "sharpness", "color"} {
		t.Run(key, func(t *testing.T) {
			_, err := apply(t, key, img, `-0.5`)
			requireValidation(t, err, config.OutOfRange, "factor")
			_, err = apply(t, key, img, `"1.2"`)
			requireValidation(t, err, config.TypeMismatch, "factor")
			_, err = apply(t, key, img, `{"factor": 1}`)
			requireValidation(t, err, config.TypeMismatch, "factor")
		})
	}
}

func TestEnhancements_KeepGrayscaleMode(t *testing.T) {
	out := mustApply(t, "sharpness", grayRaster(8, 8, 90), `2`)
	assert.Equal(t, pix.ModeL, out.Mode)
	_, ok := out.Image.(*image.Gray)
	assert.True(t, ok)
}

func TestBasicFilter(t *testing.T) {
	img := grayRaster(10, 10, 100)

	tests := []struct {
		payload string
		center  uint8
	}{
		{`"FIND_EDGES"`, 0},
		{`"EMBOSS"`, 128},
		{`"SMOOTH"`, 100},
		{`"BLUR"`, 100},
		{`["SMOOTH", "SMOOTH_MORE"]`, 100},
		{`[]`, 100},
	}
	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			out := mustApply(t, "basic_filter", img, tt.payload)
			requireSize(t, out, 10, 10)
			assert.Equal(t, pix.ModeL, out.Mode)
			assert.InDelta(t, tt.center, pixelAt(out, 5, 5).R, 1)
		})
	}
}

func TestBasicFilter_AllNames(t *testing.T) {
	img := patternRaster(12, 12)
	for _, name := range basicFilterNames {
		out := mustApply(t, "basic_filter", img, `"`+name+`"`)
		requireSize(t, out, 12, 12)
		assert.Equal(t, pix.ModeRGB, out.Mode, name)
	}
}

func TestBasicFilter_Invalid(t *testing.T) {
	img := patternRaster(4, 4)

	tests := []struct {
		payload string
		kind    config.ErrorKind
	}{
		{`"blur"`, config.InvalidChoice},
		{`"SEPIA"`, config.InvalidChoice},
		{`["BLUR", "SEPIA"]`, config.InvalidChoice},
		{`5`, config.TypeMismatch},
		{`["BLUR", 3]`, config.TypeMismatch},
		{`null`, config.TypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			_, err := apply(t, "basic_filter", img, tt.payload)
			requireValidation(t, err, tt.kind, "filter")
		})
	}
}

func TestRankFilter(t *testing.T) {
	img := splitGrayRaster(10, 10, 50, 200)

	out := mustApply(t, "rank_filter", img, `{"size": 3, "filter_name": "MIN"}`)
	requireSize(t, out, 10, 10)
	assert.Equal(t, uint8(50), pixelAt(out, 5, 5).R)

	out = mustApply(t, "rank_filter", img, `{"size": 3, "filter_name": "max"}`)
	assert.Equal(t, uint8(200), pixelAt(out, 4, 5).R)

	out = mustApply(t, "rank_filter", img, `{"size": 1, "filter_name": "MEDIAN"}`)
	assert.Equal(t, img.NRGBA().Pix, out.NRGBA().Pix)

	out = mustApply(t, "rank_filter", solidRaster(9, 9, red), `{"size": 5, "filter_name": "MEDIAN"}`)
	assert.Equal(t, red, pixelAt(out, 4, 4))
}

func TestRankFilter_Invalid(t *testing.T) {
	img := patternRaster(6, 6)

	tests := []struct {
		payload string
		kind    config.ErrorKind
		field   string
	}{
		{`{"filter_name": "MIN"}`, config.MissingKey, ""},
		{`{"size": 3}`, config.MissingKey, ""},
		{`{"size": 2, "filter_name": "MIN"}`, config.OutOfRange, "size"},
		{`{"size": 0, "filter_name": "MIN"}`, config.OutOfRange, "size"},
		{`{"size": 3.0, "filter_name": "MIN"}`, config.TypeMismatch, "size"},
		{`{"size": 3, "filter_name": "MODE"}`, config.InvalidChoice, "filter_name"},
		{`3`, config.TypeMismatch, "object"},
	}
	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			_, err := apply(t, "rank_filter", img, tt.payload)
			requireValidation(t, err, tt.kind, tt.field)
		})
	}
}

func TestMultibandFilter(t *testing.T) {
	img := solidRaster(12, 12, color.NRGBA{120, 60, 30, 255})
	for _, name := range multibandFilterNames {
		t.Run(name, func(t *testing.T) {
			out := mustApply(t, "multiband_filter", img, `{"radius": 2, "filter_name": "`+name+`"}`)
			requireSize(t, out, 12, 12)
			c := pixelAt(out, 6, 6)
			assert.InDelta(t, 120, c.R, 2)
			assert.InDelta(t, 60, c.G, 2)
			assert.InDelta(t, 30, c.B, 2)
		})
	}
}

func TestMultibandFilter_UnsharpMaskThreshold(t *testing.T) {
	flat := color.NRGBA{120, 60, 30, 255}
	out := mustApply(t, "multiband_filter", solidRaster(12, 12, flat), `{"radius": 2, "filter_name": "UNSHARPMASK"}`)
	for y := 0; y < 12; y++ {
		for x := 0; x < 12; x++ {
			require.Equal(t, flat, pixelAt(out, x, y), "pixel (%d,%d)", x, y)
		}
	}

	out = mustApply(t, "multiband_filter", splitGrayRaster(12, 12, 80, 160), `{"radius": 2, "filter_name": "UNSHARPMASK"}`)
	assert.Less(t, pixelAt(out, 5, 6).R, uint8(80), "dark side of the edge darkens")
	assert.Greater(t, pixelAt(out, 6, 6).R, uint8(160), "light side of the edge brightens")
	assert.Equal(t, uint8(255), pixelAt(out, 6, 6).A)
}

func TestMultibandFilter_Invalid(t *testing.T) {
	img := patternRaster(6, 6)

	tests := []struct {
		payload string
		kind    config.ErrorKind
		field   string
	}{
		{`{"filter_name": "BOXBLUR"}`, config.MissingKey, ""},
		{`{"radius": 2}`, config.MissingKey, ""},
		{`{"radius": 0.5, "filter_name": "BOXBLUR"}`, config.OutOfRange, "radius"},
		{`{"radius": "2", "filter_name": "BOXBLUR"}`, config.TypeMismatch, "radius"},
		{`{"radius": 2, "filter_name": "MOTIONBLUR"}`, config.InvalidChoice, "filter_name"},
	}
	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			_, err := apply(t, "multiband_filter", img, tt.payload)
			requireValidation(t, err, tt.kind, tt.field)
		})
	}
}

func TestAutocontrast(t *testing.T) {
	img := splitGrayRaster(10, 10, 51, 102)

	tests := []struct {
		name        string
		payload     string
		left, right uint8
	}{
		{"stretch", `{"cutoff": 0}`, 0, 255},
		{"pair cutoff", `{"cutoff": [0, 0.5]}`, 0, 255},
		{"preserve tone", `{"cutoff": 0, "preserve_tone": true}`, 0, 255},
		{"ignored level", `{"cutoff": 0, "ignore": 51}`, 51, 102},
		{"ignore list", `{"cutoff": 0, "ignore": [102]}`, 51, 102},
		{"everything cut", `{"cutoff": 50}`, 51, 102},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := mustApply(t, "autocontrast", img, tt.payload)
			assert.Equal(t, tt.left, pixelAt(out, 0, 0).R)
			assert.Equal(t, tt.right, pixelAt(out, 9, 0).R)
		})
	}
}

func TestAutocontrast_Invalid(t *testing.T) {
	img := patternRaster(6, 6)

	tests := []struct {
		payload string
		kind    config.ErrorKind
		field   string
	}{
		{`{}`, config.MissingKey, ""},
		{`{"cutoff": 101}`, config.OutOfRange, "cutoff"},
		{`{"cutoff": -1}`, config.OutOfRange, "cutoff"},
		{`{"cutoff": [1, 2, 3]}`, config.InvalidShape, "cutoff"},
		{`{"cutoff": "5"}`, config.TypeMismatch, "cutoff"},
		{`{"cutoff": 0, "ignore": 300}`, config.OutOfRange, "ignore"},
		{`{"cutoff": 0, "ignore": [1.5]}`, config.TypeMismatch, "ignore"},
		{`{"cutoff": 0, "ignore": "white"}`, config.TypeMismatch, "ignore"},
		{`{"cutoff": 0, "preserve_tone": "yes"}`, config.TypeMismatch, "preserve_tone"},
	}
	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			_, err := apply(t, "autocontrast", img, tt.payload)
			requireValidation(t, err, tt.kind, tt.field)
		})
	}
}

func TestEqualize(t *testing.T) {
	out := mustApply(t, "equalize", splitGrayRaster(32, 32, 51, 102), `null`)
	assert.Equal(t, uint8(0), pixelAt(out, 0, 0).R)
	assert.Equal(t, uint8(255), pixelAt(out, 31, 0).R)

	// A single level has nothing to spread.
	src := solidRaster(8, 8, color.NRGBA{90, 90, 90, 255})
	out = mustApply(t, "equalize", src, `{}`)
	assert.Equal(t, src.NRGBA().Pix, out.NRGBA().Pix)
}

func TestNoParamTransformations(t *testing.T) {
	img := patternRaster(4, 4)
	for _, key := range []string{"equalize", "grayscale", "invert", "mirror", "flip"} {
		t.Run(key, func(t *testing.T) {
			for _, payload := range []string{`null`, `{}`, `[]`} {
				_, err := apply(t, key, img, payload)
				require.NoError(t, err, payload)
			}
			for _, payload := range []string{`{"x": 1}`, `[1]`, `0`, `""`, `false`} {
				_, err := apply(t, key, img, payload)
				requireValidation(t, err, config.TypeMismatch, "params")
			}
		})
	}
}

func TestGrayscale(t *testing.T) {
	out := mustApply(t, "grayscale", solidRaster(4, 4, color.NRGBA{255, 0, 0, 128}), `null`)
	assert.Equal(t, pix.ModeL, out.Mode)
	g, ok := out.Image.(*image.Gray)
	require.True(t, ok)
	assert.InDelta(t, 76, g.GrayAt(1, 1).Y, 1)
}

func TestInvert(t *testing.T) {
	out := mustApply(t, "invert", solidRaster(4, 4, color.NRGBA{255, 0, 100, 77}), `null`)
	assert.Equal(t, color.NRGBA{0, 255, 155, 77}, pixelAt(out, 0, 0))
}

func TestPosterize(t *testing.T) {
	img := solidRaster(4, 4, color.NRGBA{200, 100, 37, 255})

	tests := []struct {
		bits string
		want color.NRGBA
	}{
		{"1", color.NRGBA{128, 0, 0, 255}},
		{"2", color.NRGBA{192, 64, 0, 255}},
		{"4", color.NRGBA{192, 96, 32, 255}},
		{"8", color.NRGBA{200, 100, 37, 255}},
	}
	for _, tt := range tests {
		t.Run(tt.bits, func(t *testing.T) {
			assert.Equal(t, tt.want, pixelAt(mustApply(t, "posterize", img, tt.bits), 0, 0))
		})
	}

	for _, payload := range []string{`0`, `9`} {
		_, err := apply(t, "posterize", img, payload)
		requireValidation(t, err, config.OutOfRange, "bits")
	}
	for _, payload := range []string{`2.5`, `"4"`, `null`} {
		_, err := apply(t, "posterize", img, payload)
		requireValidation(t, err, config.TypeMismatch, "bits")
	}
}

func TestSolarize(t *testing.T) {
	img := splitGrayRaster(10, 10, 100, 200)

	out := mustApply(t, "solarize", img, `null`)
	assert.Equal(t, uint8(100), pixelAt(out, 0, 0).R)
	assert.Equal(t, uint8(55), pixelAt(out, 9, 0).R)

	out = mustApply(t, "solarize", img, `0`)
	assert.Equal(t, uint8(155), pixelAt(out, 0, 0).R)

	out = mustApply(t, "solarize", img, `255`)
	assert.Equal(t, img.NRGBA().Pix, out.NRGBA().Pix)

	for _, payload := range []string{`256`, `-1`} {
		_, err := apply(t, "solarize", img, payload)
		requireValidation(t, err, config.OutOfRange, "threshold")
	}
	_, err := apply(t, "solarize", img, `128.0`)
	requireValidation(t, err, config.TypeMismatch, "threshold")
}

func TestFormat(t *testing.T) {
	rgba := solidRaster(4, 4, color.NRGBA{10, 20, 30, 100})
	gray := grayRaster(4, 4, 80)
	require.Equal(t, pix.ModeRGBA, rgba.Mode)

	tests := []struct {
		name    string
		src     pix.Raster
		payload string
		mode    pix.Mode
		format  string
	}{
		{"jpeg drops alpha", rgba, `"jpeg"`, pix.ModeRGB, "JPEG"},
		{"webp drops alpha", rgba, `"WEBP"`, pix.ModeRGB, "WEBP"},
		{"png keeps alpha", rgba, `"png"`, pix.ModeRGBA, "PNG"},
		{"png keeps grayscale", gray, `"PNG"`, pix.ModeL, "PNG"},
		{"jpeg from grayscale", gray, `"JPEG"`, pix.ModeRGB, "JPEG"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := mustApply(t, "format", tt.src, tt.payload)
			assert.Equal(t, tt.mode, out.Mode)
			assert.Equal(t, tt.format, out.Format)
			if tt.mode == pix.ModeRGB {
				assert.Equal(t, uint8(255), pixelAt(out, 0, 0).A)
			}
		})
	}
}

func TestFormat_Invalid(t *testing.T) {
	_, err := apply(t, "format", patternRaster(4, 4), `"gif"`)
	requireValidation(t, err, config.InvalidChoice, "format")

	_, err = apply(t, "format", patternRaster(4, 4), `{"format": "png"}`)
	requireValidation(t, err, config.TypeMismatch, "format")
}
