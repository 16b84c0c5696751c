package transform

import (
	"fmt"
)

// DuplicateRegistrationError is returned when two transformations claim the
// same key.
type DuplicateRegistrationError struct {
	Key string
}

func (e *DuplicateRegistrationError) Error() string {
	return fmt.Sprintf("transformation %q is already registered", e.Key)
}

// Builder collects transformations before a Registry is published.
type Builder struct {
	order   []string
	entries map[string]Transformation
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{entries: make(map[string]Transformation)}
}

// Register adds t under t.Key(). The first registration of a key wins.
func (b *Builder) Register(t Transformation) error {
	key := t.Key()
	if _, exists := b.entries[key]; exists {
		return &DuplicateRegistrationError{Key: key}
	}
	b.entries[key] = t
	b.order = append(b.order, key)
	return nil
}

// Build publishes the registered transformations. Later calls to Register on
// b do not affect the returned Registry.
func (b *Builder) Build() *Registry {
	r := &Registry{
		order:   append([]string(nil), b.order...),
		entries: make(map[string]Transformation, len(b.entries)),
	}
	for k, t := range b.entries {
		r.entries[k] = t
	}
	return r
}

// Build registers ts in order and publishes them.
func Build(ts ...Transformation) (*Registry, error) {
	b := NewBuilder()
	for _, t := range ts {
		if err := b.Register(t); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}

// Registry maps configuration keys to transformations. It is immutable once
// built and safe for concurrent use without locking.
type Registry struct {
	order   []string
	entries map[string]Transformation
}

// Lookup returns the transformation registered under key.
func (r *Registry) Lookup(key string) (Transformation, bool) {
	t, ok := r.entries[key]
	return t, ok
}

// Snapshot returns a copy of the key to transformation mapping. Changing the
// copy does not affect r.
func (r *Registry) Snapshot() map[string]Transformation {
	out := make(map[string]Transformation, len(r.entries))
	for k, t := range r.entries {
		out[k] = t
	}
	return out
}

// Keys returns the registered keys in registration order.
func (r *Registry) Keys() []string {
	return append([]string(nil), r.order...)
}

// Len returns the number of registered transformations.
func (r *Registry) Len() int { return len(r.order) }

// Catalog describes every transformation in registration order.
func (r *Registry) Catalog() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.entries[k].Describe())
	}
	return out
}

// All returns one instance of every transformation, in catalog order.
func All() []Transformation {
	return []Transformation{
		resizeOp{},
		cropOp{key: "crop"},
		cropOp{key: "region_crop"},
		borderCrop{},
		rotateOp{},
		transposeOp{},
		scaleOp{},
		containOp{},
		padOp{},
		thumbnailOp{},
		expandOp{},
		newMirror(),
		newFlip(),
		formatOp{},
		newBrightness(),
		newContrast(),
		newSharpness(),
		newColor(),
		basicFilter{},
		rankFilter{},
		multibandFilter{},
		autocontrastOp{},
		newEqualize(),
		newGrayscale(),
		newInvert(),
		posterizeOp{},
		solarizeOp{},
	}
}

// Default builds the registry of every transformation.
func Default() (*Registry, error) {
	return Build(All()...)
}

// MustDefault is Default for program startup; it panics on a duplicate key.
func MustDefault() *Registry {
	r, err := Default()
	if err != nil {
		panic(err)
	}
	return r
}
