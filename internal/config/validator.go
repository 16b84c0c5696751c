package config

import (
	"fmt"
	"image"
	"math"
	"strconv"
	"strings"
)

// Range bounds a numeric parameter. Nil bounds are open.
type Range struct {
	Min          *float64
	Max          *float64
	MinExclusive bool
}

// Unbounded accepts any number.
func Unbounded() Range { return Range{} }

// AtLeast accepts n >= min.
func AtLeast(min float64) Range { return Range{Min: &min} }

// AtMost accepts n <= max.
func AtMost(max float64) Range { return Range{Max: &max} }

// Between accepts min <= n <= max.
func Between(min, max float64) Range { return Range{Min: &min, Max: &max} }

// Positive accepts n > 0.
func Positive() Range {
	zero := 0.0
	return Range{Min: &zero, MinExclusive: true}
}

// NonNegative accepts n >= 0.
func NonNegative() Range { return AtLeast(0) }

func (r Range) isZero() bool {
	return r.Min == nil && r.Max == nil && !r.MinExclusive
}

func (r Range) check(n float64) (string, bool) {
	if r.Min != nil {
		if r.MinExclusive && n <= *r.Min {
			return "must be > " + formatNumber(*r.Min), false
		}
		if !r.MinExclusive && n < *r.Min {
			return "must be >= " + formatNumber(*r.Min), false
		}
	}
	if r.Max != nil && n > *r.Max {
		return "must be <= " + formatNumber(*r.Max), false
	}
	return "", true
}

// checkInt is check for integers. Bounds are compared exactly, without
// converting n to float64.
func (r Range) checkInt(n int64) (string, bool) {
	if r.Min != nil {
		if r.MinExclusive && !intAbove(n, *r.Min) {
			return "must be > " + formatNumber(*r.Min), false
		}
		if !r.MinExclusive && intBelow(n, *r.Min) {
			return "must be >= " + formatNumber(*r.Min), false
		}
	}
	if r.Max != nil && intAbove(n, *r.Max) {
		return "must be <= " + formatNumber(*r.Max), false
	}
	return "", true
}

// intBelow reports n < bound.
func intBelow(n int64, bound float64) bool {
	if bound >= math.MaxInt64 {
		return true
	}
	if bound <= math.MinInt64 {
		return false
	}
	return n < int64(math.Ceil(bound))
}

// intAbove reports n > bound.
func intAbove(n int64, bound float64) bool {
	if bound >= math.MaxInt64 {
		return false
	}
	if bound < math.MinInt64 {
		return true
	}
	return n > int64(math.Floor(bound))
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Validator holds the validation primitives shared by every transformation.
// Key is the owning transformation key and only feeds error messages.
type Validator struct {
	Key string
}

// NewValidator returns a Validator reporting errors under key.
func NewValidator(key string) Validator {
	return Validator{Key: key}
}

func (v Validator) fail(kind ErrorKind, field, format string, args ...any) *ValidationError {
	return NewValidationError(kind, v.Key, field, fmt.Sprintf(format, args...))
}

func kindNames(kinds []Kind) string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return strings.Join(names, ", ")
}

func kindAllowed(k Kind, kinds []Kind) bool {
	for _, allowed := range kinds {
		if k == allowed {
			return true
		}
	}
	return false
}

// EnsureType fails with TypeMismatch unless value has one of kinds.
func (v Validator) EnsureType(value Value, field string, kinds ...Kind) error {
	if kindAllowed(value.Kind(), kinds) {
		return nil
	}
	return v.fail(TypeMismatch, field, "must be of type(s): %s; got %s", kindNames(kinds), value.Kind())
}

// Object checks that the payload is an object and returns it.
func (v Validator) Object(value Value) (Value, error) {
	if err := v.EnsureType(value, "object", Object); err != nil {
		return Value{}, err
	}
	return value, nil
}

// RequireKeys fails with MissingKey on the first name absent from obj.
func (v Validator) RequireKeys(obj Value, names ...string) error {
	for _, name := range names {
		if !obj.Has(name) {
			return v.fail(MissingKey, "object", "missing required configuration key '%s'", name)
		}
	}
	return nil
}

// Number checks that value is a number of one of kinds within r.
func (v Validator) Number(value Value, field string, kinds []Kind, r Range) (float64, error) {
	if err := v.EnsureType(value, field, kinds...); err != nil {
		return 0, err
	}
	n, _ := value.AsFloat()
	if msg, ok := r.check(n); !ok {
		return 0, v.fail(OutOfRange, field, "%s; got %s", msg, value)
	}
	return n, nil
}

// Int checks that value is an integer within r. The integer is never routed
// through float64, so large values keep their exact magnitude.
func (v Validator) Int(value Value, field string, r Range) (int, error) {
	if err := v.EnsureType(value, field, Int); err != nil {
		return 0, err
	}
	n, _ := value.AsInt()
	if msg, ok := r.checkInt(n); !ok {
		return 0, v.fail(OutOfRange, field, "%s; got %s", msg, value)
	}
	if n < math.MinInt || n > math.MaxInt {
		return 0, v.fail(OutOfRange, field, "does not fit in a machine int; got %s", value)
	}
	return int(n), nil
}

// NumberTuple checks that value is an array of exactly length numbers of the
// given kinds, each within r. The zero Range means non-negative. A wrong
// length is reported before any element is inspected.
func (v Validator) NumberTuple(value Value, field string, length int, kinds []Kind, r Range) ([]float64, error) {
	if err := v.EnsureType(value, field, Array); err != nil {
		return nil, err
	}
	items, _ := value.AsArray()
	if len(items) != length {
		noun := "numbers"
		if len(kinds) == 1 && kinds[0] == Int {
			noun = "ints"
		}
		return nil, v.fail(InvalidShape, field, "must be a tuple of %d %s; got %s", length, noun, value)
	}
	if r.isZero() {
		r = NonNegative()
	}
	out := make([]float64, length)
	for i, item := range items {
		if err := v.EnsureType(item, field, kinds...); err != nil {
			return nil, err
		}
		n, _ := item.AsFloat()
		if msg, ok := r.check(n); !ok {
			return nil, v.fail(OutOfRange, field, "values %s; got %s", msg, value)
		}
		out[i] = n
	}
	return out, nil
}

// IntTuple is NumberTuple restricted to integers. Like Int it reads each
// element as an int64.
func (v Validator) IntTuple(value Value, field string, length int, r Range) ([]int, error) {
	if err := v.EnsureType(value, field, Array); err != nil {
		return nil, err
	}
	items, _ := value.AsArray()
	if len(items) != length {
		return nil, v.fail(InvalidShape, field, "must be a tuple of %d ints; got %s", length, value)
	}
	if r.isZero() {
		r = NonNegative()
	}
	out := make([]int, length)
	for i, item := range items {
		if err := v.EnsureType(item, field, Int); err != nil {
			return nil, err
		}
		n, _ := item.AsInt()
		if msg, ok := r.checkInt(n); !ok {
			return nil, v.fail(OutOfRange, field, "values %s; got %s", msg, value)
		}
		if n < math.MinInt || n > math.MaxInt {
			return nil, v.fail(OutOfRange, field, "values must fit in a machine int; got %s", value)
		}
		out[i] = int(n)
	}
	return out, nil
}

// Choice checks that value is a string naming one of options, ignoring case,
// and returns the upper-case form.
func (v Validator) Choice(value Value, field string, options []string) (string, error) {
	if err := v.EnsureType(value, field, String); err != nil {
		return "", err
	}
	s, _ := value.AsString()
	normalized := strings.ToUpper(s)
	for _, opt := range options {
		if normalized == opt {
			return normalized, nil
		}
	}
	return "", v.fail(InvalidChoice, field, "must be one of [%s]; got %s", strings.Join(options, ", "), value)
}

// OptionalBool returns false for a null value and the payload of a bool.
func (v Validator) OptionalBool(value Value, field string) (bool, error) {
	if value.IsNull() {
		return false, nil
	}
	if err := v.EnsureType(value, field, Bool); err != nil {
		return false, err
	}
	b, _ := value.AsBool()
	return b, nil
}

// OptionalString returns "" for a null value and the payload of a string.
func (v Validator) OptionalString(value Value, field string) (string, error) {
	if value.IsNull() {
		return "", nil
	}
	if err := v.EnsureType(value, field, String); err != nil {
		return "", err
	}
	s, _ := value.AsString()
	return s, nil
}

// StringOptions controls Strings.
type StringOptions struct {
	// Allowed, when set, lists the accepted values (case-sensitive).
	Allowed []string
	// Multiple accepts a list of strings as well as a single string.
	Multiple bool
	// Optional accepts null and yields a nil result.
	Optional bool
}

// Strings normalizes a string, or a list of strings when opts.Multiple is set.
func (v Validator) Strings(value Value, field string, opts StringOptions) ([]string, error) {
	if value.IsNull() {
		if opts.Optional {
			return nil, nil
		}
		return nil, v.fail(TypeMismatch, field, "must not be null")
	}

	var items []string
	switch {
	case value.Kind() == String:
		s, _ := value.AsString()
		items = []string{s}
	case opts.Multiple && value.Kind() == Array:
		arr, _ := value.AsArray()
		for _, item := range arr {
			s, ok := item.AsString()
			if !ok {
				return nil, v.fail(TypeMismatch, field, "must be a list of strings")
			}
			items = append(items, s)
		}
	case opts.Multiple:
		return nil, v.fail(TypeMismatch, field, "must be a string or a list of strings")
	default:
		return nil, v.fail(TypeMismatch, field, "must be a string")
	}

	if opts.Allowed != nil {
		for _, item := range items {
			if !containsString(opts.Allowed, item) {
				return nil, v.fail(InvalidChoice, field, "must be one of [%s]; got '%s'", strings.Join(opts.Allowed, ", "), item)
			}
		}
	}
	return items, nil
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// ColorSpec is a color parameter that passed shape validation. It is resolved
// into pixels against the raster's color mode at apply time.
type ColorSpec struct {
	Kind     Kind // Int, String or Array
	Int      int64
	Text     string
	Channels []Value // 3 or 4 items, each Int or String
}

// Color accepts an int, a string, or a 3- or 4-element array whose items are
// ints or strings.
func (v Validator) Color(value Value, field string) (ColorSpec, error) {
	if err := v.EnsureType(value, field, Int, String, Array); err != nil {
		return ColorSpec{}, err
	}
	switch value.Kind() {
	case Int:
		n, _ := value.AsInt()
		return ColorSpec{Kind: Int, Int: n}, nil
	case String:
		s, _ := value.AsString()
		return ColorSpec{Kind: String, Text: s}, nil
	}
	items, _ := value.AsArray()
	if len(items) != 3 && len(items) != 4 {
		return ColorSpec{}, v.fail(InvalidShape, field, "must be 3- or 4-length tuple; got %s", value)
	}
	for _, item := range items {
		if err := v.EnsureType(item, field, Int, String); err != nil {
			return ColorSpec{}, err
		}
	}
	return ColorSpec{Kind: Array, Channels: items}, nil
}

// Border normalizes a border width given as one int or as four ints
// (left, top, right, bottom). All widths must be non-negative.
func (v Validator) Border(value Value, field string) ([4]int, error) {
	switch value.Kind() {
	case Int:
		n, _ := value.AsInt()
		if n < 0 {
			return [4]int{}, v.fail(OutOfRange, field, "must be non-negative; got %d", n)
		}
		w := int(n)
		return [4]int{w, w, w, w}, nil
	case Array:
		items, _ := value.AsArray()
		if len(items) != 4 {
			return [4]int{}, v.fail(InvalidShape, field, "must be a 4-tuple of ints; got %s", value)
		}
		var out [4]int
		for i, item := range items {
			n, ok := item.AsInt()
			if !ok {
				return [4]int{}, v.fail(TypeMismatch, field, "must be a 4-tuple of ints; got %s", value)
			}
			if n < 0 {
				return [4]int{}, v.fail(OutOfRange, field, "values must be non-negative; got %s", value)
			}
			out[i] = int(n)
		}
		return out, nil
	}
	return [4]int{}, v.fail(TypeMismatch, field, "must be an int or 4-tuple of ints; got %s", value.Kind())
}

// Centering checks a pair of numbers in [0, 1].
func (v Validator) Centering(value Value, field string) ([2]float64, error) {
	if err := v.EnsureType(value, field, Array); err != nil {
		return [2]float64{}, err
	}
	items, _ := value.AsArray()
	if len(items) != 2 {
		return [2]float64{}, v.fail(InvalidShape, field, "must be a tuple of two numbers; got %s", value)
	}
	var out [2]float64
	for i, item := range items {
		if err := v.EnsureType(item, field, Number...); err != nil {
			return [2]float64{}, err
		}
		out[i], _ = item.AsFloat()
	}
	if out[0] < 0 || out[0] > 1 || out[1] < 0 || out[1] > 1 {
		return [2]float64{}, v.fail(OutOfRange, field, "values must be between 0.0 and 1.0; got %s", value)
	}
	return out, nil
}

// CropBox checks integer crop coordinates against a width x height image.
// The horizontal invariant 0 <= left < right <= width is checked before the
// vertical one 0 <= upper < lower <= height.
func (v Validator) CropBox(left, upper, right, lower Value, width, height int) (image.Rectangle, error) {
	coords := [4]struct {
		name  string
		value Value
	}{{"left", left}, {"upper", upper}, {"right", right}, {"lower", lower}}

	var c [4]int
	for i, coord := range coords {
		if err := v.EnsureType(coord.value, coord.name, Int); err != nil {
			return image.Rectangle{}, err
		}
		n, _ := coord.value.AsInt()
		c[i] = int(n)
	}
	l, u, r, b := c[0], c[1], c[2], c[3]

	if !(0 <= l && l < r && r <= width) {
		return image.Rectangle{}, v.fail(OutOfRange, "crop_box",
			"invalid horizontal crop coords: 0 ≤ left(%d) < right(%d) ≤ width(%d)", l, r, width)
	}
	if !(0 <= u && u < b && b <= height) {
		return image.Rectangle{}, v.fail(OutOfRange, "crop_box",
			"invalid vertical crop coords: 0 ≤ upper(%d) < lower(%d) ≤ height(%d)", u, b, height)
	}
	return image.Rect(l, u, r, b), nil
}

// NoParams accepts only an absent payload: null, {} or [].
func (v Validator) NoParams(value Value) error {
	if value.IsEmpty() {
		return nil
	}
	return v.fail(TypeMismatch, "params", "does not accept parameters; got %s", value)
}
