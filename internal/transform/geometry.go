package transform

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/image-pipeline-mcp/internal/config"
	pix "github.com/ironsheep/image-pipeline-mcp/internal/imaging"
)

// resizeOp resizes to an exact size with bicubic resampling.
type resizeOp struct{ variant }

func (resizeOp) Key() string { return "resize" }

func (t resizeOp) Apply(img pix.Raster, params config.Value) (pix.Raster, error) {
	v := config.NewValidator(t.Key())
	obj, err := v.Object(params)
	if err != nil {
		return pix.Raster{}, err
	}

	size := [2]int{img.Width(), img.Height()}
	for i, field := range []string{"width", "height"} {
		value := obj.Lookup(field, config.NullValue())
		if value.IsNull() {
			continue
		}
		n, err := v.Int(value, field, config.Positive())
		if err != nil {
			return pix.Raster{}, err
		}
		size[i] = n
	}
	field := "width"
	if size[0] <= MaxDimension && size[1] > MaxDimension {
		field = "height"
	}
	if err := checkSize(t.Key(), field, float64(size[0]), float64(size[1])); err != nil {
		return pix.Raster{}, err
	}

	if size[0] == img.Width() && size[1] == img.Height() {
		return img.With(img.NRGBA()), nil
	}
	return img.With(imaging.Resize(img.Image, size[0], size[1], imaging.CatmullRom)), nil
}

func (t resizeOp) Describe() Descriptor {
	return Descriptor{
		Key:     t.Key(),
		Summary: "Resize to an exact width and height using bicubic resampling.",
		Payload: PayloadObject,
		Params: []Param{
			{Name: "width", Type: "int", Min: bound(1), Description: "Target width; defaults to the current width."},
			{Name: "height", Type: "int", Min: bound(1), Description: "Target height; defaults to the current height."},
		},
	}
}

// cropOp cuts out a rectangle. It is registered under both "crop" and
// "region_crop".
type cropOp struct {
	variant
	key string
}

func (t cropOp) Key() string { return t.key }

func (t cropOp) Apply(img pix.Raster, params config.Value) (pix.Raster, error) {
	v := config.NewValidator(t.key)
	obj, err := v.Object(params)
	if err != nil {
		return pix.Raster{}, err
	}

	w, h := img.Width(), img.Height()
	rect, err := v.CropBox(
		obj.Lookup("left", config.IntValue(0)),
		obj.Lookup("upper", config.IntValue(0)),
		obj.Lookup("right", config.IntValue(int64(w))),
		obj.Lookup("lower", config.IntValue(int64(h))),
		w, h,
	)
	if err != nil {
		return pix.Raster{}, err
	}
	return cropTo(img, rect), nil
}

func (t cropOp) Describe() Descriptor {
	return Descriptor{
		Key:     t.key,
		Summary: "Crop to the box (left, upper, right, lower); 0 <= left < right <= width and 0 <= upper < lower <= height.",
		Payload: PayloadObject,
		Params: []Param{
			{Name: "left", Type: "int", Default: 0, Description: "Left edge, inclusive."},
			{Name: "upper", Type: "int", Default: 0, Description: "Top edge, inclusive."},
			{Name: "right", Type: "int", Description: "Right edge, exclusive; defaults to the image width."},
			{Name: "lower", Type: "int", Description: "Bottom edge, exclusive; defaults to the image height."},
		},
	}
}

func cropTo(img pix.Raster, rect image.Rectangle) pix.Raster {
	return img.With(imaging.Crop(img.Image, rect.Add(img.Image.Bounds().Min)))
}

// borderCrop removes the same number of pixels from every side.
type borderCrop struct{ variant }

func (borderCrop) Key() string { return "border_crop" }

func (t borderCrop) Apply(img pix.Raster, params config.Value) (pix.Raster, error) {
	v := config.NewValidator(t.Key())
	border, err := v.Int(params, "border", config.AtLeast(1))
	if err != nil {
		return pix.Raster{}, err
	}

	w, h := img.Width(), img.Height()
	rect, err := v.CropBox(
		config.IntValue(int64(border)),
		config.IntValue(int64(border)),
		config.IntValue(int64(w-border)),
		config.IntValue(int64(h-border)),
		w, h,
	)
	if err != nil {
		return pix.Raster{}, err
	}
	return cropTo(img, rect), nil
}

func (t borderCrop) Describe() Descriptor {
	return Descriptor{
		Key:     t.Key(),
		Summary: "Remove the given number of pixels from each side.",
		Payload: PayloadScalar,
		Params:  []Param{{Name: "border", Type: "int", Required: true, Min: bound(1), Description: "Pixels to remove from every edge."}},
	}
}

// rotateOp rotates counter-clockwise by an arbitrary angle.
type rotateOp struct{ variant }

func (rotateOp) Key() string { return "rotate" }

func (t rotateOp) Apply(img pix.Raster, params config.Value) (pix.Raster, error) {
	v := config.NewValidator(t.Key())
	obj, err := v.Object(params)
	if err != nil {
		return pix.Raster{}, err
	}
	if err := v.RequireKeys(obj, "angle"); err != nil {
		return pix.Raster{}, err
	}

	angle, err := v.Number(obj.Lookup("angle", config.NullValue()), "angle", config.Number, config.Unbounded())
	if err != nil {
		return pix.Raster{}, err
	}
	expand, err := v.OptionalBool(obj.Lookup("expand", config.NullValue()), "expand")
	if err != nil {
		return pix.Raster{}, err
	}
	fillName, err := v.OptionalString(obj.Lookup("fillcolor", config.NullValue()), "fillcolor")
	if err != nil {
		return pix.Raster{}, err
	}

	fill := defaultFill(img.Mode)
	if fillName != "" {
		spec := config.ColorSpec{Kind: config.String, Text: fillName}
		if fill, err = resolveColor(v, "fillcolor", spec, img.Mode); err != nil {
			return pix.Raster{}, err
		}
	}

	rotated := imaging.Rotate(img.Image, angle, fill)
	if expand {
		return img.With(rotated), nil
	}
	canvas := imaging.New(img.Width(), img.Height(), fill)
	return img.With(imaging.PasteCenter(canvas, rotated)), nil
}

func (t rotateOp) Describe() Descriptor {
	return Descriptor{
		Key:     t.Key(),
		Summary: "Rotate counter-clockwise by angle degrees.",
		Payload: PayloadObject,
		Params: []Param{
			{Name: "angle", Type: "number", Required: true, Description: "Rotation in degrees, counter-clockwise."},
			{Name: "expand", Type: "bool", Default: false, Description: "Grow the canvas to hold the whole rotated image; otherwise keep the original size."},
			{Name: "fillcolor", Type: "string", Description: "Color for uncovered areas; defaults to black, or transparent for RGBA."},
		},
	}
}

var transposeMethods = map[string]func(image.Image) *image.NRGBA{
	"FLIP_LEFT_RIGHT": imaging.FlipH,
	"FLIP_TOP_BOTTOM": imaging.FlipV,
	"ROTATE_90":       imaging.Rotate90,
	"ROTATE_180":      imaging.Rotate180,
	"ROTATE_270":      imaging.Rotate270,
	"TRANSPOSE":       imaging.Transpose,
	"TRANSVERSE":      imaging.Transverse,
}

var transposeNames = []string{"FLIP_LEFT_RIGHT", "FLIP_TOP_BOTTOM", "ROTATE_90", "ROTATE_180", "ROTATE_270", "TRANSPOSE", "TRANSVERSE"}

type transposeOp struct{ variant }

func (transposeOp) Key() string { return "transpose" }

func (t transposeOp) Apply(img pix.Raster, params config.Value) (pix.Raster, error) {
	method, err := config.NewValidator(t.Key()).Choice(params, "method", transposeNames)
	if err != nil {
		return pix.Raster{}, err
	}
	return img.With(transposeMethods[method](img.Image)), nil
}

func (t transposeOp) Describe() Descriptor {
	return Descriptor{
		Key:     t.Key(),
		Summary: "Flip or rotate by multiples of 90 degrees.",
		Payload: PayloadScalar,
		Params:  []Param{{Name: "method", Type: "string", Required: true, Choices: transposeNames, Description: "Transpose method."}},
	}
}

// scaleOp multiplies both dimensions by a factor.
type scaleOp struct{ variant }

func (scaleOp) Key() string { return "scale" }

func (t scaleOp) Apply(img pix.Raster, params config.Value) (pix.Raster, error) {
	v := config.NewValidator(t.Key())
	obj, err := v.Object(params)
	if err != nil {
		return pix.Raster{}, err
	}
	if err := v.RequireKeys(obj, "factor"); err != nil {
		return pix.Raster{}, err
	}

	factor, err := v.Number(obj.Lookup("factor", config.NullValue()), "factor", config.Number, config.Positive())
	if err != nil {
		return pix.Raster{}, err
	}
	resample, err := v.Choice(obj.Lookup("resample", config.StringValue(Bicubic)), "resample", resampleNames)
	if err != nil {
		return pix.Raster{}, err
	}

	if factor == 1 {
		return img.With(img.NRGBA()), nil
	}
	fw := math.RoundToEven(factor * float64(img.Width()))
	fh := math.RoundToEven(factor * float64(img.Height()))
	if fw < 1 || fh < 1 {
		return pix.Raster{}, config.NewValidationError(config.OutOfRange, t.Key(), "factor",
			fmt.Sprintf("scales a %dx%d image to nothing; got %s", img.Width(), img.Height(), formatFloat(factor)))
	}
	if err := checkSize(t.Key(), "factor", fw, fh); err != nil {
		return pix.Raster{}, err
	}
	return img.With(imaging.Resize(img.Image, int(fw), int(fh), resampleFilters[resample])), nil
}

func (t scaleOp) Describe() Descriptor {
	return Descriptor{
		Key:     t.Key(),
		Summary: "Scale both dimensions by a factor.",
		Payload: PayloadObject,
		Params: []Param{
			{Name: "factor", Type: "number", Required: true, Min: bound(0), Description: "Scale factor, greater than 0."},
			resampleParam("resample", "Resampling filter."),
		},
	}
}

// containSize returns the largest size with img's aspect ratio that fits in
// box, rounding half to even.
func containSize(w, h int, box [2]int) (int, int) {
	imRatio := float64(w) / float64(h)
	destRatio := float64(box[0]) / float64(box[1])
	out := box
	switch {
	case imRatio > destRatio:
		out[1] = int(math.RoundToEven(float64(h) / float64(w) * float64(box[0])))
	case imRatio < destRatio:
		out[0] = int(math.RoundToEven(float64(w) / float64(h) * float64(box[1])))
	}
	return max(out[0], 1), max(out[1], 1)
}

func containRaster(img pix.Raster, box [2]int, method string) pix.Raster {
	w, h := containSize(img.Width(), img.Height(), box)
	if w == img.Width() && h == img.Height() {
		return img.With(img.NRGBA())
	}
	return img.With(imaging.Resize(img.Image, w, h, resampleFilters[method]))
}

func boxSize(v config.Validator, obj config.Value) ([2]int, error) {
	if err := v.RequireKeys(obj, "size"); err != nil {
		return [2]int{}, err
	}
	size, err := v.IntTuple(obj.Lookup("size", config.NullValue()), "size", 2, config.Positive())
	if err != nil {
		return [2]int{}, err
	}
	if err := checkSize(v.Key, "size", float64(size[0]), float64(size[1])); err != nil {
		return [2]int{}, err
	}
	return [2]int{size[0], size[1]}, nil
}

// containOp fits the image inside a box, keeping its aspect ratio.
type containOp struct{ variant }

func (containOp) Key() string { return "contain" }

func (t containOp) Apply(img pix.Raster, params config.Value) (pix.Raster, error) {
	v := config.NewValidator(t.Key())
	obj, err := v.Object(params)
	if err != nil {
		return pix.Raster{}, err
	}
	box, err := boxSize(v, obj)
	if err != nil {
		return pix.Raster{}, err
	}
	method, err := v.Choice(obj.Lookup("method", config.StringValue(Bicubic)), "method", resampleNames)
	if err != nil {
		return pix.Raster{}, err
	}
	return containRaster(img, box, method), nil
}

func (t containOp) Describe() Descriptor {
	return Descriptor{
		Key:     t.Key(),
		Summary: "Resize to the largest size that fits inside size while keeping the aspect ratio.",
		Payload: PayloadObject,
		Params: []Param{
			{Name: "size", Type: "[2]int", Required: true, Min: bound(1), Description: "Bounding box (width, height)."},
			resampleParam("method", "Resampling filter."),
		},
	}
}

// padOp contains the image in a box and pads the rest with a color.
type padOp struct{ variant }

func (padOp) Key() string { return "pad" }

func (t padOp) Apply(img pix.Raster, params config.Value) (pix.Raster, error) {
	v := config.NewValidator(t.Key())
	obj, err := v.Object(params)
	if err != nil {
		return pix.Raster{}, err
	}
	box, err := boxSize(v, obj)
	if err != nil {
		return pix.Raster{}, err
	}
	method, err := v.Choice(obj.Lookup("method", config.StringValue(Bicubic)), "method", resampleNames)
	if err != nil {
		return pix.Raster{}, err
	}
	spec, err := v.Color(obj.Lookup("color", config.IntValue(0)), "color")
	if err != nil {
		return pix.Raster{}, err
	}
	centering, err := v.Centering(obj.Lookup("centering", config.ArrayValue(config.FloatValue(0.5), config.FloatValue(0.5))), "centering")
	if err != nil {
		return pix.Raster{}, err
	}
	fill, err := resolveColor(v, "color", spec, img.Mode)
	if err != nil {
		return pix.Raster{}, err
	}

	resized := containRaster(img, box, method)
	if resized.Width() == box[0] && resized.Height() == box[1] {
		return resized, nil
	}

	var at image.Point
	if resized.Width() != box[0] {
		at.X = int(math.RoundToEven(float64(box[0]-resized.Width()) * centering[0]))
	} else {
		at.Y = int(math.RoundToEven(float64(box[1]-resized.Height()) * centering[1]))
	}
	canvas := imaging.New(box[0], box[1], fill)
	return img.With(imaging.Paste(canvas, resized.Image, at)), nil
}

func (t padOp) Describe() Descriptor {
	return Descriptor{
		Key:     t.Key(),
		Summary: "Contain the image in size, then place it on a size canvas filled with color.",
		Payload: PayloadObject,
		Params: []Param{
			{Name: "size", Type: "[2]int", Required: true, Min: bound(1), Description: "Output size (width, height)."},
			resampleParam("method", "Resampling filter."),
			{Name: "color", Type: "color", Default: 0, Description: "Background color."},
			{Name: "centering", Type: "[2]number", Default: []float64{0.5, 0.5}, Min: bound(0), Max: bound(1), Description: "Relative placement of the image on the canvas."},
		},
	}
}

// thumbnailOp shrinks the image to fit a box. It never enlarges.
type thumbnailOp struct{ variant }

func (thumbnailOp) Key() string { return "thumbnail" }

func (t thumbnailOp) Apply(img pix.Raster, params config.Value) (pix.Raster, error) {
	v := config.NewValidator(t.Key())
	obj, err := v.Object(params)
	if err != nil {
		return pix.Raster{}, err
	}
	if err := v.RequireKeys(obj, "size"); err != nil {
		return pix.Raster{}, err
	}
	size, err := v.NumberTuple(obj.Lookup("size", config.NullValue()), "size", 2, config.Number, config.AtLeast(1))
	if err != nil {
		return pix.Raster{}, err
	}
	if size[0] > MaxDimension || size[1] > MaxDimension {
		return pix.Raster{}, config.NewValidationError(config.OutOfRange, t.Key(), "size",
			fmt.Sprintf("values must be <= %d; got %s", MaxDimension, obj.Lookup("size", config.NullValue())))
	}
	resample, err := v.Choice(obj.Lookup("resample", config.StringValue(Bicubic)), "resample", resampleNames)
	if err != nil {
		return pix.Raster{}, err
	}
	gapValue := obj.Lookup("reducing_gap", config.FloatValue(2.0))
	gap := 0.0
	if !gapValue.IsNull() {
		if gap, err = v.Number(gapValue, "reducing_gap", config.Number, config.AtLeast(1)); err != nil {
			return pix.Raster{}, err
		}
	}

	w, h := img.Width(), img.Height()
	tw, th, ok := thumbnailSize(w, h, int(math.Floor(size[0])), int(math.Floor(size[1])))
	if !ok || (tw == w && th == h) {
		return img.With(img.NRGBA()), nil
	}

	var src image.Image = img.Image
	if gap > 0 {
		fx := max(int(float64(w)/float64(tw)/gap), 1)
		fy := max(int(float64(h)/float64(th)/gap), 1)
		if fx > 1 || fy > 1 {
			src = imaging.Resize(src, ceilDiv(w, fx), ceilDiv(h, fy), imaging.Box)
		}
	}
	return img.With(resampleThumbnail(src, tw, th, resample)), nil
}

func (t thumbnailOp) Describe() Descriptor {
	return Descriptor{
		Key:     t.Key(),
		Summary: "Shrink to fit inside size, keeping the aspect ratio; never enlarges.",
		Payload: PayloadObject,
		Params: []Param{
			{Name: "size", Type: "[2]number", Required: true, Min: bound(1), Description: "Maximum (width, height)."},
			resampleParam("resample", "Resampling filter for the final pass."),
			{Name: "reducing_gap", Type: "number", Default: 2.0, Min: bound(1), Description: "Box-reduce first when the shrink ratio exceeds this gap; null disables it."},
		},
	}
}

// thumbnailSize picks the aspect-preserving size that fits in (x, y). For
// each candidate dimension the floor or ceiling closest to the source aspect
// ratio wins. ok is false when the image already fits.
func thumbnailSize(w, h, x, y int) (int, int, bool) {
	if x >= w && y >= h {
		return 0, 0, false
	}
	aspect := float64(w) / float64(h)
	if float64(x)/float64(y) >= aspect {
		x = roundAspect(float64(y)*aspect, func(n float64) float64 {
			return math.Abs(aspect - n/float64(y))
		})
	} else {
		y = roundAspect(float64(x)/aspect, func(n float64) float64 {
			if n == 0 {
				return 0
			}
			return math.Abs(aspect - float64(x)/n)
		})
	}
	return x, y, true
}

func roundAspect(n float64, distance func(float64) float64) int {
	lo, hi := math.Floor(n), math.Ceil(n)
	best := lo
	if distance(hi) < distance(lo) {
		best = hi
	}
	return max(int(best), 1)
}

func ceilDiv(a, b int) int { return (a + b - 1) / b }

// expandOp adds a border around the image.
type expandOp struct{ variant }

func (expandOp) Key() string { return "expand" }

func (t expandOp) Apply(img pix.Raster, params config.Value) (pix.Raster, error) {
	v := config.NewValidator(t.Key())
	obj, err := v.Object(params)
	if err != nil {
		return pix.Raster{}, err
	}
	if err := v.RequireKeys(obj, "border"); err != nil {
		return pix.Raster{}, err
	}
	border, err := v.Border(obj.Lookup("border", config.NullValue()), "border")
	if err != nil {
		return pix.Raster{}, err
	}
	spec, err := v.Color(obj.Lookup("fill", config.IntValue(0)), "fill")
	if err != nil {
		return pix.Raster{}, err
	}
	fill, err := resolveColor(v, "fill", spec, img.Mode)
	if err != nil {
		return pix.Raster{}, err
	}
	w := float64(img.Width()) + float64(border[0]) + float64(border[2])
	h := float64(img.Height()) + float64(border[1]) + float64(border[3])
	if err := checkSize(t.Key(), "border", w, h); err != nil {
		return pix.Raster{}, err
	}
	return expandRaster(img, border, fill), nil
}

func expandRaster(img pix.Raster, border [4]int, fill color.NRGBA) pix.Raster {
	left, top, right, bottom := border[0], border[1], border[2], border[3]
	canvas := imaging.New(img.Width()+left+right, img.Height()+top+bottom, fill)
	return img.With(imaging.Paste(canvas, img.Image, image.Pt(left, top)))
}

func (t expandOp) Describe() Descriptor {
	return Descriptor{
		Key:     t.Key(),
		Summary: "Add a border of fill color around the image.",
		Payload: PayloadObject,
		Params: []Param{
			{Name: "border", Type: "int|[4]int", Required: true, Min: bound(0), Description: "Border width, or (left, top, right, bottom)."},
			{Name: "fill", Type: "color", Default: 0, Description: "Border color."},
		},
	}
}

func newMirror() Transformation {
	return noParams{
		key:     "mirror",
		summary: "Flip horizontally (left to right).",
		apply:   func(img pix.Raster) pix.Raster { return img.With(imaging.FlipH(img.Image)) },
	}
}

func newFlip() Transformation {
	return noParams{
		key:     "flip",
		summary: "Flip vertically (top to bottom).",
		apply:   func(img pix.Raster) pix.Raster { return img.With(imaging.FlipV(img.Image)) },
	}
}
