package transform

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/clone"
	"github.com/anthonynsimon/bild/convolution"
	"github.com/anthonynsimon/bild/effect"

	"github.com/ironsheep/image-pipeline-mcp/internal/config"
	pix "github.com/ironsheep/image-pipeline-mcp/internal/imaging"
)

// kernel is a square convolution kernel. Each weighted sum is divided by
// scale, then offset is added.
type kernel struct {
	size    int
	weights []float64
	scale   float64
	offset  float64
}

func (k kernel) apply(img image.Image) image.Image {
	m := convolution.NewKernel(k.size, k.size)
	for i, w := range k.weights {
		m.Matrix[i] = w / k.scale
	}
	return convolution.Convolve(img, m, &convolution.Options{Bias: k.offset, KeepAlpha: true})
}

var basicFilters = map[string]kernel{
	"BLUR": {5, []float64{
		1, 1, 1, 1, 1,
		1, 0, 0, 0, 1,
		1, 0, 0, 0, 1,
		1, 0, 0, 0, 1,
		1, 1, 1, 1, 1,
	}, 16, 0},
	"CONTOUR": {3, []float64{
		-1, -1, -1,
		-1, 8, -1,
		-1, -1, -1,
	}, 1, 255},
	"DETAIL": {3, []float64{
		0, -1, 0,
		-1, 10, -1,
		0, -1, 0,
	}, 6, 0},
	"EDGE_ENHANCE": {3, []float64{
		-1, -1, -1,
		-1, 10, -1,
		-1, -1, -1,
	}, 2, 0},
	"EDGE_ENHANCE_MORE": {3, []float64{
		-1, -1, -1,
		-1, 9, -1,
		-1, -1, -1,
	}, 1, 0},
	"EMBOSS": {3, []float64{
		-1, 0, 0,
		0, 1, 0,
		0, 0, 0,
	}, 1, 128},
	"FIND_EDGES": {3, []float64{
		-1, -1, -1,
		-1, 8, -1,
		-1, -1, -1,
	}, 1, 0},
	"SHARPEN": {3, []float64{
		-2, -2, -2,
		-2, 32, -2,
		-2, -2, -2,
	}, 16, 0},
	"SMOOTH": {3, smoothKernel[:], 13, 0},
	"SMOOTH_MORE": {5, []float64{
		1, 1, 1, 1, 1,
		1, 5, 5, 5, 1,
		1, 5, 44, 5, 1,
		1, 5, 5, 5, 1,
		1, 1, 1, 1, 1,
	}, 100, 0},
}

var basicFilterNames = []string{
	"BLUR", "CONTOUR", "DETAIL", "EDGE_ENHANCE", "EDGE_ENHANCE_MORE",
	"EMBOSS", "FIND_EDGES", "SHARPEN", "SMOOTH", "SMOOTH_MORE",
}

// basicFilter applies one or more fixed kernels in the order given.
type basicFilter struct{ variant }

func (basicFilter) Key() string { return "basic_filter" }

func (t basicFilter) Apply(img pix.Raster, params config.Value) (pix.Raster, error) {
	names, err := config.NewValidator(t.Key()).Strings(params, "filter", config.StringOptions{
		Allowed:  basicFilterNames,
		Multiple: true,
	})
	if err != nil {
		return pix.Raster{}, err
	}

	out := img.With(img.NRGBA())
	for _, name := range names {
		out = out.With(basicFilters[name].apply(out.Image))
	}
	return out, nil
}

func (t basicFilter) Describe() Descriptor {
	return Descriptor{
		Key:     t.Key(),
		Summary: "Apply one or more predefined convolution filters in order.",
		Payload: PayloadScalar,
		Params:  []Param{{Name: "filter", Type: "string|[]string", Required: true, Choices: basicFilterNames, Description: "Filter name or list of names."}},
	}
}

var rankFilters = map[string]func(image.Image, float64) *image.RGBA{
	"MIN":    effect.Erode,
	"MEDIAN": effect.Median,
	"MAX":    effect.Dilate,
}

var rankFilterNames = []string{"MIN", "MEDIAN", "MAX"}

// rankFilter replaces each pixel with the minimum, median or maximum of its
// size x size neighborhood.
type rankFilter struct{ variant }

func (rankFilter) Key() string { return "rank_filter" }

func (t rankFilter) Apply(img pix.Raster, params config.Value) (pix.Raster, error) {
	v := config.NewValidator(t.Key())
	obj, err := v.Object(params)
	if err != nil {
		return pix.Raster{}, err
	}
	if err := v.RequireKeys(obj, "size", "filter_name"); err != nil {
		return pix.Raster{}, err
	}
	size, err := v.Int(obj.Lookup("size", config.NullValue()), "size", config.Positive())
	if err != nil {
		return pix.Raster{}, err
	}
	if size%2 == 0 {
		return pix.Raster{}, config.NewValidationError(config.OutOfRange, t.Key(), "size", "must be an odd number; got "+formatFloat(float64(size)))
	}
	name, err := v.Choice(obj.Lookup("filter_name", config.NullValue()), "filter_name", rankFilterNames)
	if err != nil {
		return pix.Raster{}, err
	}

	radius := float64((size - 1) / 2)
	return img.With(rankFilters[name](img.Image, radius)), nil
}

func (t rankFilter) Describe() Descriptor {
	return Descriptor{
		Key:     t.Key(),
		Summary: "Replace each pixel with the minimum, median or maximum of its neighborhood.",
		Payload: PayloadObject,
		Params: []Param{
			{Name: "size", Type: "int", Required: true, Min: bound(1), Description: "Window size; a positive odd number."},
			{Name: "filter_name", Type: "string", Required: true, Choices: rankFilterNames, Description: "Rank to select."},
		},
	}
}

var multibandFilterNames = []string{"UNSHARPMASK", "GAUSSIANBLUR", "BOXBLUR"}

// UnsharpAmount is the strength of the unsharp mask, as a fraction of the
// difference between the image and its blur. Channel differences below
// UnsharpThreshold are left alone, so flat areas keep their color.
const (
	UnsharpAmount    = 1.5
	UnsharpThreshold = 3
)

// unsharpMask sharpens img against a Gaussian blur of the given radius.
// Alpha is copied through and premultiplied channels never exceed it.
func unsharpMask(img image.Image, radius float64) *image.RGBA {
	src := clone.AsRGBA(img)
	blurred := blur.Gaussian(src, radius)
	dst := image.NewRGBA(src.Rect)
	for i := range src.Pix {
		if i%4 == 3 {
			dst.Pix[i] = src.Pix[i]
			continue
		}
		diff := int(src.Pix[i]) - int(blurred.Pix[i])
		if diff > -UnsharpThreshold && diff < UnsharpThreshold {
			dst.Pix[i] = src.Pix[i]
			continue
		}
		v := math.Round(float64(src.Pix[i]) + float64(diff)*UnsharpAmount)
		dst.Pix[i] = clampByte(math.Min(v, float64(src.Pix[i|3])))
	}
	return dst
}

// multibandFilter applies a radius-driven blur or unsharp mask to every
// channel.
type multibandFilter struct{ variant }

func (multibandFilter) Key() string { return "multiband_filter" }

func (t multibandFilter) Apply(img pix.Raster, params config.Value) (pix.Raster, error) {
	v := config.NewValidator(t.Key())
	obj, err := v.Object(params)
	if err != nil {
		return pix.Raster{}, err
	}
	if err := v.RequireKeys(obj, "radius", "filter_name"); err != nil {
		return pix.Raster{}, err
	}
	radius, err := v.Number(obj.Lookup("radius", config.NullValue()), "radius", config.Number, config.AtLeast(1))
	if err != nil {
		return pix.Raster{}, err
	}
	name, err := v.Choice(obj.Lookup("filter_name", config.NullValue()), "filter_name", multibandFilterNames)
	if err != nil {
		return pix.Raster{}, err
	}

	var out *image.RGBA
	switch name {
	case "UNSHARPMASK":
		out = unsharpMask(img.Image, radius)
	case "GAUSSIANBLUR":
		out = blur.Gaussian(img.Image, radius)
	case "BOXBLUR":
		out = blur.Box(img.Image, radius)
	}
	return img.With(out), nil
}

func (t multibandFilter) Describe() Descriptor {
	return Descriptor{
		Key:     t.Key(),
		Summary: "Blur or sharpen with a radius-based filter.",
		Payload: PayloadObject,
		Params: []Param{
			{Name: "radius", Type: "number", Required: true, Min: bound(1), Description: "Filter radius in pixels."},
			{Name: "filter_name", Type: "string", Required: true, Choices: multibandFilterNames, Description: "Filter to apply."},
		},
	}
}
