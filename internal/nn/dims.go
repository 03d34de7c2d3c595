package nn

import "fmt"

// Dims is a table of named layer dimensions such as "nI" and "nO".
//
// A dimension is declared by name and may be unset until the layer is
// initialized. Once set, a dimension can only be set again to the same value.
type Dims struct {
	names  []string
	values map[string]int
}

// NewDims declares the given dimension names, all unset.
func NewDims(names ...string) *Dims {
	d := &Dims{values: make(map[string]int)}
	for _, name := range names {
		d.declare(name)
	}
	return d
}

// MirrorDims declares every dimension of src, copying the values src has
// already resolved.
func MirrorDims(src *Dims) *Dims {
	d := NewDims(src.Names()...)
	for name, v := range src.values {
		d.values[name] = v
	}
	return d
}

func (d *Dims) declare(name string) {
	if d.Has(name) {
		return
	}
	d.names = append(d.names, name)
}

// Names returns the declared dimension names in declaration order.
func (d *Dims) Names() []string {
	return append([]string(nil), d.names...)
}

// Has reports whether name is declared.
func (d *Dims) Has(name string) bool {
	for _, n := range d.names {
		if n == name {
			return true
		}
	}
	return false
}

// MaybeGet returns the value of name and whether it is set.
func (d *Dims) MaybeGet(name string) (int, bool) {
	v, ok := d.values[name]
	return v, ok
}

// Get returns the value of name.
func (d *Dims) Get(name string) (int, error) {
	if !d.Has(name) {
		return 0, fmt.Errorf("get %q: %w", name, ErrUnknownDim)
	}
	v, ok := d.values[name]
	if !ok {
		return 0, fmt.Errorf("get %q: dimension unset: %w", name, ErrNotInitialized)
	}
	return v, nil
}

// Set assigns a declared dimension. Setting a dimension that already holds
// a different value fails with ErrDimMismatch.
func (d *Dims) Set(name string, value int) error {
	if !d.Has(name) {
		return fmt.Errorf("set %q: %w", name, ErrUnknownDim)
	}
	if value < 0 {
		return fmt.Errorf("set %q to %d: %w", name, value, ErrDimMismatch)
	}
	if old, ok := d.values[name]; ok && old != value {
		return fmt.Errorf("set %q from %d to %d: %w", name, old, value, ErrDimMismatch)
	}
	d.values[name] = value
	return nil
}

// CopyFrom copies every dimension src has resolved into d, declaring
// names d does not know yet.
func (d *Dims) CopyFrom(src *Dims) error {
	for _, name := range src.names {
		v, ok := src.values[name]
		if !ok {
			continue
		}
		d.declare(name)
		if err := d.Set(name, v); err != nil {
			return err
		}
	}
	return nil
}
