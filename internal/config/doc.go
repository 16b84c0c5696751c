// Package config models transformation parameters as a typed value tree and
// provides the validation primitives every transformation builds on.
//
// # Values
//
// A pipeline configuration is a JSON object whose members are applied in
// order. Parse decodes it into a Value, a tagged union over null, bool, int,
// float, string, array and object. Objects keep their source order, and
// number literals remember whether they were written as integers (5) or as
// floats (5.0), because several parameters accept only one of the two.
//
//	cfg, err := config.ParseString(`{"resize": {"width": 50}, "grayscale": null}`)
//	cfg.Keys() // ["resize", "grayscale"]
//
// # Validation
//
// Validator carries the owning transformation key and exposes one method per
// parameter shape: EnsureType, RequireKeys, Number, NumberTuple, Choice,
// Color, Border, Centering, CropBox, OptionalBool, Strings and NoParams.
// Every failure is a *ValidationError classified as MissingKey, TypeMismatch,
// OutOfRange, InvalidChoice or InvalidShape. The kind sentinels work with
// errors.Is:
//
//	if errors.Is(err, config.ErrOutOfRange) { ... }
//
// Booleans are never accepted where a number is expected.
package config
