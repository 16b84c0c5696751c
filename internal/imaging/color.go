package imaging

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/image-pipeline-mcp/internal/config"
)

var (
	// ErrUnknownColor is returned for color strings that are neither a hex
	// code, an rgb()/rgba() expression nor a known color name.
	ErrUnknownColor = errors.New("unknown color")

	// ErrColorChannel is returned when a channel value is outside 0-255.
	ErrColorChannel = errors.New("color channel out of range")
)

// namedColors holds the CSS basic color keywords plus a few common extras.
var namedColors = map[string]color.NRGBA{
	"black":   {0x00, 0x00, 0x00, 0xff},
	"silver":  {0xc0, 0xc0, 0xc0, 0xff},
	"gray":    {0x80, 0x80, 0x80, 0xff},
	"grey":    {0x80, 0x80, 0x80, 0xff},
	"white":   {0xff, 0xff, 0xff, 0xff},
	"maroon":  {0x80, 0x00, 0x00, 0xff},
	"red":     {0xff, 0x00, 0x00, 0xff},
	"purple":  {0x80, 0x00, 0x80, 0xff},
	"fuchsia": {0xff, 0x00, 0xff, 0xff},
	"magenta": {0xff, 0x00, 0xff, 0xff},
	"green":   {0x00, 0x80, 0x00, 0xff},
	"lime":    {0x00, 0xff, 0x00, 0xff},
	"olive":   {0x80, 0x80, 0x00, 0xff},
	"yellow":  {0xff, 0xff, 0x00, 0xff},
	"navy":    {0x00, 0x00, 0x80, 0xff},
	"blue":    {0x00, 0x00, 0xff, 0xff},
	"teal":    {0x00, 0x80, 0x80, 0xff},
	"aqua":    {0x00, 0xff, 0xff, 0xff},
	"cyan":    {0x00, 0xff, 0xff, 0xff},
	"orange":  {0xff, 0xa5, 0x00, 0xff},
	"pink":    {0xff, 0xc0, 0xcb, 0xff},
	"brown":   {0xa5, 0x2a, 0x2a, 0xff},
}

// ParseColor parses a color string.
//
// Accepted forms:
//   - "#RGB" and "#RRGGBB" (case-insensitive)
//   - "#RRGGBBAA"
//   - "rgb(r, g, b)" and "rgba(r, g, b, a)" with 0-255 components
//   - a color name such as "white" or "navy"
func ParseColor(s string) (color.NRGBA, error) {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)

	if strings.HasPrefix(lower, "#") {
		return parseHexColor(lower)
	}
	if strings.HasPrefix(lower, "rgb(") || strings.HasPrefix(lower, "rgba(") {
		return parseFunctionalColor(lower)
	}
	if c, ok := namedColors[lower]; ok {
		return c, nil
	}
	return color.NRGBA{}, fmt.Errorf("%w: %q", ErrUnknownColor, s)
}

func parseHexColor(hex string) (color.NRGBA, error) {
	alpha := uint8(0xff)
	if len(hex) == 9 {
		a, err := strconv.ParseUint(hex[7:], 16, 8)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("%w: %q", ErrUnknownColor, hex)
		}
		alpha = uint8(a)
		hex = hex[:7]
	}

	c, err := colorful.Hex(hex)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrUnknownColor, hex)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: alpha}, nil
}

func parseFunctionalColor(s string) (color.NRGBA, error) {
	open := strings.IndexByte(s, '(')
	if !strings.HasSuffix(s, ")") {
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrUnknownColor, s)
	}
	parts := strings.Split(s[open+1:len(s)-1], ",")
	if len(parts) != 3 && len(parts) != 4 {
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrUnknownColor, s)
	}

	channels := make([]uint8, 4)
	channels[3] = 0xff
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("%w: %q", ErrUnknownColor, s)
		}
		if n < 0 || n > 255 {
			return color.NRGBA{}, fmt.Errorf("%w: %d", ErrColorChannel, n)
		}
		channels[i] = uint8(n)
	}
	return color.NRGBA{R: channels[0], G: channels[1], B: channels[2], A: channels[3]}, nil
}

// ResolveColor turns a validated color parameter into a pixel value for a
// raster of the given mode.
//
// Integers are gray levels (0-255) for L rasters. For color rasters they are
// packed as 0xBBGGRR, with the alpha byte taken from bits 24-31 for RGBA
// rasters, so 0 is opaque black on RGB and transparent black on RGBA.
// Channel lists hold 3 or 4 values, each an int or an integer string.
// Only RGBA rasters keep an alpha value; every other mode gets the opaque
// color.
func ResolveColor(spec config.ColorSpec, mode Mode) (color.NRGBA, error) {
	var (
		c   color.NRGBA
		err error
	)
	switch spec.Kind {
	case config.Int:
		c, err = resolvePacked(spec.Int, mode)
	case config.String:
		c, err = ParseColor(spec.Text)
	case config.Array:
		c, err = resolveChannels(spec.Channels)
	default:
		err = fmt.Errorf("%w: unsupported color value", ErrUnknownColor)
	}
	if err != nil {
		return color.NRGBA{}, err
	}
	if mode != ModeRGBA {
		c.A = 0xff
	}
	return c, nil
}

func resolvePacked(v int64, mode Mode) (color.NRGBA, error) {
	if v < 0 {
		return color.NRGBA{}, fmt.Errorf("%w: %d", ErrColorChannel, v)
	}
	if mode == ModeL {
		if v > 255 {
			return color.NRGBA{}, fmt.Errorf("%w: %d", ErrColorChannel, v)
		}
		g := uint8(v)
		return color.NRGBA{R: g, G: g, B: g, A: 0xff}, nil
	}
	if v > 0xffffffff {
		return color.NRGBA{}, fmt.Errorf("%w: %d", ErrColorChannel, v)
	}
	c := color.NRGBA{R: uint8(v), G: uint8(v >> 8), B: uint8(v >> 16), A: 0xff}
	if mode == ModeRGBA {
		c.A = uint8(v >> 24)
	}
	return c, nil
}

func resolveChannels(items []config.Value) (color.NRGBA, error) {
	channels := [4]uint8{0, 0, 0, 0xff}
	for i, item := range items {
		var n int64
		switch item.Kind() {
		case config.Int:
			n, _ = item.AsInt()
		case config.String:
			s, _ := item.AsString()
			parsed, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
			if err != nil {
				return color.NRGBA{}, fmt.Errorf("%w: channel %q", ErrUnknownColor, s)
			}
			n = parsed
		default:
			return color.NRGBA{}, fmt.Errorf("%w: channel %s", ErrUnknownColor, item)
		}
		if n < 0 || n > 255 {
			return color.NRGBA{}, fmt.Errorf("%w: %d", ErrColorChannel, n)
		}
		channels[i] = uint8(n)
	}
	return color.NRGBA{R: channels[0], G: channels[1], B: channels[2], A: channels[3]}, nil
}
