// Package transform provides the named image transformations and the
// registry that maps configuration keys to them.
//
// Every transformation validates its own parameters with a config.Validator
// and returns a new raster; inputs are never modified. The set is closed:
// Default registers all of them, in the order listed by All.
//
// Example:
//
//	reg := transform.MustDefault()
//	t, ok := reg.Lookup("rotate")
//	if ok {
//	    out, err := t.Apply(img, params)
//	}
//
// Parameter problems are returned as *config.ValidationError so callers can
// branch on the error kind.
package transform
