package transform

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"

	"github.com/ironsheep/image-pipeline-mcp/internal/config"
	pix "github.com/ironsheep/image-pipeline-mcp/internal/imaging"
)

// Transformation is one named image operation. The set of implementations is
// closed: every variant lives in this package and is registered by Default.
type Transformation interface {
	// Key is the configuration key that selects this transformation.
	Key() string

	// Apply validates params and returns the transformed raster. The input
	// raster is never modified. Parameter problems are reported as
	// *config.ValidationError.
	Apply(img pix.Raster, params config.Value) (pix.Raster, error)

	// Describe returns the catalog entry for this transformation.
	Describe() Descriptor

	transformation()
}

// variant is embedded by every Transformation to seal the interface.
type variant struct{}

func (variant) transformation() {}

// Payload describes the JSON shape a transformation expects as its value.
type Payload string

const (
	PayloadObject Payload = "object" // {"param": value, ...}
	PayloadScalar Payload = "scalar" // a bare number, string or list
	PayloadNone   Payload = "none"   // null, {} or []
)

// Param documents one parameter of a transformation.
type Param struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Required    bool     `json:"required"`
	Default     any      `json:"default,omitempty"`
	Choices     []string `json:"choices,omitempty"`
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
	Description string   `json:"description"`
}

// Descriptor is the catalog entry for a transformation.
type Descriptor struct {
	Key     string  `json:"key"`
	Summary string  `json:"summary"`
	Payload Payload `json:"payload"`
	Params  []Param `json:"params,omitempty"`
}

func bound(f float64) *float64 { return &f }

// Output size limits. MaxPixels is the pixel count at which Pillow rejects
// an image as a decompression bomb.
const (
	MaxDimension = 1 << 16
	MaxPixels    = 2 * 89478485
)

// checkSize fails with OutOfRange unless a w x h output stays within
// MaxDimension and MaxPixels. Sizes arrive as float64 so that callers can
// sum or scale without overflowing an int first.
func checkSize(key, field string, w, h float64) error {
	if w > MaxDimension || h > MaxDimension {
		return config.NewValidationError(config.OutOfRange, key, field,
			fmt.Sprintf("produces a %sx%s image; each side must be <= %d", formatFloat(w), formatFloat(h), MaxDimension))
	}
	if w*h > MaxPixels {
		return config.NewValidationError(config.OutOfRange, key, field,
			fmt.Sprintf("produces a %sx%s image; at most %d pixels are allowed", formatFloat(w), formatFloat(h), MaxPixels))
	}
	return nil
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }

// resolveColor turns a validated color into a pixel value, classifying
// unknown names as InvalidChoice and bad channel values as OutOfRange.
func resolveColor(v config.Validator, field string, spec config.ColorSpec, mode pix.Mode) (color.NRGBA, error) {
	c, err := pix.ResolveColor(spec, mode)
	if err == nil {
		return c, nil
	}
	kind := config.InvalidChoice
	if errors.Is(err, pix.ErrColorChannel) {
		kind = config.OutOfRange
	}
	return color.NRGBA{}, config.NewValidationError(kind, v.Key, field, fmt.Sprintf("is not a usable color: %v", err))
}

// defaultFill is the fill used when no color is given: opaque black, or
// transparent black on RGBA rasters.
func defaultFill(mode pix.Mode) color.NRGBA {
	c, _ := pix.ResolveColor(config.ColorSpec{Kind: config.Int}, mode)
	return c
}

// noParams is the shared body of the parameterless transformations.
type noParams struct {
	variant
	key     string
	summary string
	apply   func(pix.Raster) pix.Raster
}

func (t noParams) Key() string { return t.key }

func (t noParams) Apply(img pix.Raster, params config.Value) (pix.Raster, error) {
	if err := config.NewValidator(t.key).NoParams(params); err != nil {
		return pix.Raster{}, err
	}
	return t.apply(img), nil
}

func (t noParams) Describe() Descriptor {
	return Descriptor{Key: t.key, Summary: t.summary, Payload: PayloadNone}
}
