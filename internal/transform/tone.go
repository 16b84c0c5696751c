package transform

import (
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/histogram"
	"github.com/disintegration/imaging"

	"github.com/ironsheep/image-pipeline-mcp/internal/config"
	pix "github.com/ironsheep/image-pipeline-mcp/internal/imaging"
)

// lut maps every 8-bit level to a new level.
type lut [256]uint8

func identityLUT() lut {
	var l lut
	for i := range l {
		l[i] = uint8(i)
	}
	return l
}

// applyLUTs maps the red, green and blue channels through their tables and
// keeps alpha.
func applyLUTs(img pix.Raster, luts [3]lut) pix.Raster {
	out := imaging.AdjustFunc(img.Image, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{R: luts[0][c.R], G: luts[1][c.G], B: luts[2][c.B], A: c.A}
	})
	return img.With(out)
}

func sameLUT(l lut) [3]lut { return [3]lut{l, l, l} }

// channelHistograms returns the red, green and blue level counts.
func channelHistograms(img image.Image) [3][]int {
	h := histogram.NewRGBAHistogram(imaging.Clone(img))
	return [3][]int{h.R.Bins, h.G.Bins, h.B.Bins}
}

// autocontrastOp stretches each channel so its darkest kept level becomes 0
// and its lightest becomes 255.
type autocontrastOp struct{ variant }

func (autocontrastOp) Key() string { return "autocontrast" }

func (t autocontrastOp) Apply(img pix.Raster, params config.Value) (pix.Raster, error) {
	v := config.NewValidator(t.Key())
	obj, err := v.Object(params)
	if err != nil {
		return pix.Raster{}, err
	}
	if err := v.RequireKeys(obj, "cutoff"); err != nil {
		return pix.Raster{}, err
	}
	cutoff, err := t.cutoff(v, obj.Lookup("cutoff", config.NullValue()))
	if err != nil {
		return pix.Raster{}, err
	}
	ignore, err := t.ignore(v, obj.Lookup("ignore", config.NullValue()))
	if err != nil {
		return pix.Raster{}, err
	}
	preserveTone, err := v.OptionalBool(obj.Lookup("preserve_tone", config.NullValue()), "preserve_tone")
	if err != nil {
		return pix.Raster{}, err
	}

	if preserveTone {
		gray := img.Convert(pix.ModeL).Image
		bins := histogram.NewRGBAHistogram(gray).R.Bins
		return applyLUTs(img, sameLUT(autocontrastLUT(bins, cutoff, ignore))), nil
	}

	var luts [3]lut
	for i, bins := range channelHistograms(img.Image) {
		luts[i] = autocontrastLUT(bins, cutoff, ignore)
	}
	return applyLUTs(img, luts), nil
}

func (autocontrastOp) cutoff(v config.Validator, value config.Value) ([2]float64, error) {
	r := config.Between(0, 100)
	if value.Kind() == config.Array {
		pair, err := v.NumberTuple(value, "cutoff", 2, config.Number, r)
		if err != nil {
			return [2]float64{}, err
		}
		return [2]float64{pair[0], pair[1]}, nil
	}
	n, err := v.Number(value, "cutoff", config.Number, r)
	if err != nil {
		return [2]float64{}, err
	}
	return [2]float64{n, n}, nil
}

func (autocontrastOp) ignore(v config.Validator, value config.Value) ([]int, error) {
	r := config.Between(0, 255)
	switch value.Kind() {
	case config.Null:
		return nil, nil
	case config.Array:
		items, _ := value.AsArray()
		levels := make([]int, 0, len(items))
		for _, item := range items {
			n, err := v.Int(item, "ignore", r)
			if err != nil {
				return nil, err
			}
			levels = append(levels, n)
		}
		return levels, nil
	}
	n, err := v.Int(value, "ignore", r)
	if err != nil {
		return nil, err
	}
	return []int{n}, nil
}

func autocontrastLUT(bins []int, cutoff [2]float64, ignore []int) lut {
	var h [256]int
	copy(h[:], bins)
	for _, level := range ignore {
		h[level] = 0
	}

	if cutoff[0] > 0 || cutoff[1] > 0 {
		n := 0
		for _, count := range h {
			n += count
		}
		cut := int(math.Floor(float64(n) * cutoff[0] / 100))
		for lo := 0; lo < 256 && cut > 0; lo++ {
			if cut > h[lo] {
				cut -= h[lo]
				h[lo] = 0
			} else {
				h[lo] -= cut
				cut = 0
			}
		}
		cut = int(math.Floor(float64(n) * cutoff[1] / 100))
		for hi := 255; hi >= 0 && cut > 0; hi-- {
			if cut > h[hi] {
				cut -= h[hi]
				h[hi] = 0
			} else {
				h[hi] -= cut
				cut = 0
			}
		}
	}

	lo := 0
	for lo < 255 && h[lo] == 0 {
		lo++
	}
	hi := 255
	for hi > 0 && h[hi] == 0 {
		hi--
	}
	if hi <= lo {
		return identityLUT()
	}

	var out lut
	scale := 255.0 / float64(hi-lo)
	offset := -float64(lo) * scale
	for i := range out {
		out[i] = clampByte(float64(i)*scale + offset)
	}
	return out
}

func (t autocontrastOp) Describe() Descriptor {
	return Descriptor{
		Key:     t.Key(),
		Summary: "Stretch the histogram so the darkest kept level becomes black and the lightest white.",
		Payload: PayloadObject,
		Params: []Param{
			{Name: "cutoff", Type: "number|[2]number", Required: true, Min: bound(0), Max: bound(100), Description: "Percent of pixels to discard from the dark and light ends."},
			{Name: "ignore", Type: "int|[]int", Min: bound(0), Max: bound(255), Description: "Background levels left out of the histogram."},
			{Name: "preserve_tone", Type: "bool", Default: false, Description: "Compute one mapping from luminance and apply it to every channel."},
		},
	}
}

// equalizeLUT spreads the levels of one channel so each output level covers
// roughly the same number of pixels.
func equalizeLUT(bins []int) lut {
	var used []int
	for _, count := range bins {
		if count > 0 {
			used = append(used, count)
		}
	}
	if len(used) <= 1 {
		return identityLUT()
	}
	total := 0
	for _, count := range used {
		total += count
	}
	step := (total - used[len(used)-1]) / 255
	if step == 0 {
		return identityLUT()
	}

	var out lut
	n := step / 2
	for i := range out {
		out[i] = uint8(min(n/step, 255))
		n += bins[i]
	}
	return out
}

func newEqualize() Transformation {
	return noParams{
		key:     "equalize",
		summary: "Equalize the histogram of each channel.",
		apply: func(img pix.Raster) pix.Raster {
			var luts [3]lut
			for i, bins := range channelHistograms(img.Image) {
				luts[i] = equalizeLUT(bins)
			}
			return applyLUTs(img, luts)
		},
	}
}

func newGrayscale() Transformation {
	return noParams{
		key:     "grayscale",
		summary: "Convert to single-channel luminance.",
		apply:   func(img pix.Raster) pix.Raster { return img.Convert(pix.ModeL) },
	}
}

func newInvert() Transformation {
	return noParams{
		key:     "invert",
		summary: "Invert every color channel.",
		apply:   func(img pix.Raster) pix.Raster { return img.With(imaging.Invert(img.Image)) },
	}
}

type posterizeOp struct{ variant }

func (posterizeOp) Key() string { return "posterize" }

func (t posterizeOp) Apply(img pix.Raster, params config.Value) (pix.Raster, error) {
	bits, err := config.NewValidator(t.Key()).Int(params, "bits", config.Between(1, 8))
	if err != nil {
		return pix.Raster{}, err
	}
	mask := ^uint8(1<<(8-bits) - 1)
	var l lut
	for i := range l {
		l[i] = uint8(i) & mask
	}
	return applyLUTs(img, sameLUT(l)), nil
}

func (t posterizeOp) Describe() Descriptor {
	return Descriptor{
		Key:     t.Key(),
		Summary: "Keep only the given number of high bits per channel.",
		Payload: PayloadScalar,
		Params:  []Param{{Name: "bits", Type: "int", Required: true, Min: bound(1), Max: bound(8), Description: "Bits to keep per channel."}},
	}
}

// DefaultSolarizeThreshold applies when solarize is given null.
const DefaultSolarizeThreshold = 128

type solarizeOp struct{ variant }

func (solarizeOp) Key() string { return "solarize" }

func (t solarizeOp) Apply(img pix.Raster, params config.Value) (pix.Raster, error) {
	threshold := DefaultSolarizeThreshold
	if !params.IsNull() {
		n, err := config.NewValidator(t.Key()).Int(params, "threshold", config.Between(0, 255))
		if err != nil {
			return pix.Raster{}, err
		}
		threshold = n
	}
	var l lut
	for i := range l {
		if i < threshold {
			l[i] = uint8(i)
		} else {
			l[i] = uint8(255 - i)
		}
	}
	return applyLUTs(img, sameLUT(l)), nil
}

func (t solarizeOp) Describe() Descriptor {
	return Descriptor{
		Key:     t.Key(),
		Summary: "Invert every channel value at or above the threshold.",
		Payload: PayloadScalar,
		Params:  []Param{{Name: "threshold", Type: "int", Default: DefaultSolarizeThreshold, Min: bound(0), Max: bound(255), Description: "Levels at or above this are inverted; null selects the default."}},
	}
}

// Output formats accepted by the format transformation.
var formatNames = []string{"JPEG", "PNG", "WEBP"}

type formatOp struct{ variant }

func (formatOp) Key() string { return "format" }

func (t formatOp) Apply(img pix.Raster, params config.Value) (pix.Raster, error) {
	target, err := config.NewValidator(t.Key()).Choice(params, "format", formatNames)
	if err != nil {
		return pix.Raster{}, err
	}
	out := img
	if target != "PNG" {
		out = img.Convert(pix.ModeRGB)
	}
	out.Format = target
	return out, nil
}

func (t formatOp) Describe() Descriptor {
	return Descriptor{
		Key:     t.Key(),
		Summary: "Set the output format; JPEG and WEBP drop transparency.",
		Payload: PayloadScalar,
		Params:  []Param{{Name: "format", Type: "string", Required: true, Choices: formatNames, Description: "Output format."}},
	}
}
