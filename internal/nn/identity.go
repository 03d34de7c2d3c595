package nn

// Identity returns its input unchanged, and so does its Backprop.
// It is useful as a placeholder inside adapters.
type Identity[T any] struct {
	name string
	dims *Dims
}

// NewIdentity creates an identity layer with the given name.
func NewIdentity[T any](name string) *Identity[T] {
	return &Identity[T]{name: name, dims: NewDims()}
}

// Name returns the layer name.
func (l *Identity[T]) Name() string { return l.name }

// Dims returns an empty dimension table.
func (l *Identity[T]) Dims() *Dims { return l.dims }

// Initialize is a no-op.
func (l *Identity[T]) Initialize(_, _ T) error { return nil }

// Forward returns x.
func (l *Identity[T]) Forward(x T, _ bool) (T, Backprop[T, T], error) {
	return x, identityBackprop[T]{}, nil
}
