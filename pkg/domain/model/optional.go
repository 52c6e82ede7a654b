package model

// Optional is a tri-state field for partial updates: absent, explicitly null, or a value.
// The zero value is absent.
type Optional[T any] struct {
	set   bool
	valid bool
	value T
}

// Some returns an Optional holding v
func Some[T any](v T) Optional[T] {
	return Optional[T]{set: true, valid: true, value: v}
}

// Null returns an Optional that was explicitly set to null
func Null[T any]() Optional[T] {
	return Optional[T]{set: true}
}

// IsSet reports whether the field was present in the update (value or null)
func (o Optional[T]) IsSet() bool { return o.set }

// IsNull reports whether the field was explicitly set to null
func (o Optional[T]) IsNull() bool { return o.set && !o.valid }

// Get returns the value and whether one is held
func (o Optional[T]) Get() (T, bool) { return o.value, o.valid }

// Ptr returns a pointer to a copy of the value, or nil when absent or null
func (o Optional[T]) Ptr() *T {
	if !o.valid {
		return nil
	}
	v := o.value
	return &v
}
